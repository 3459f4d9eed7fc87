package fix

import (
	"strconv"
	"strings"
)

// Msg is a simplified, field-subset decode of a FIX message: only the tags
// the Gateway actually acts on (35, 55, 54, 44, 38) are extracted.
type Msg struct {
	MsgType  string // Tag 35
	Symbol   string // Tag 55
	Side     string // Tag 54: "1"=Buy, "2"=Sell
	Price    float64
	Quantity int64
	Valid    bool
}

// Parse splits raw on the SOH (0x01) field delimiter and extracts the
// known tags into a Msg. Unknown tags and malformed tag=value segments are
// silently skipped, matching the original's permissive parser; a message
// is considered valid once it carries a non-empty MsgType (tag 35).
func Parse(raw []byte) Msg {
	var msg Msg
	for _, segment := range strings.Split(string(raw), string(rune(soh))) {
		eq := strings.IndexByte(segment, '=')
		if eq < 0 {
			continue
		}
		tag, value := segment[:eq], segment[eq+1:]
		switch tag {
		case "35":
			msg.MsgType = value
		case "55":
			msg.Symbol = value
		case "54":
			msg.Side = value
		case "44":
			if v, err := strconv.ParseFloat(value, 64); err == nil {
				msg.Price = v
			}
		case "38":
			if v, err := strconv.ParseInt(value, 10, 64); err == nil {
				msg.Quantity = v
			}
		}
	}
	msg.Valid = msg.MsgType != ""
	return msg
}
