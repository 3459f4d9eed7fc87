package ring

import (
	"crypto/rand"
	"fmt"
)

// newSessionUUID generates a random 36-character UUID string (8-4-4-4-12
// hex groups), matching the format the original producer writes into the
// segment header and the side-channel UUID file. crypto/rand replaces the
// original's std::random_device/mt19937 pairing as the entropy source.
func newSessionUUID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(fmt.Sprintf("ring: failed to generate session uuid: %v", err))
	}
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:16])
}
