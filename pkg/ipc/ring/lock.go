package ring

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// role distinguishes the two lock files a named ring buffer can hand out:
// at most one live producer and at most one live consumer.
type role int

const (
	roleProducer role = iota
	roleConsumer
)

func (r role) suffix() string {
	if r == roleProducer {
		return ".prod.lock"
	}
	return ".cons.lock"
}

// fileLock is an advisory, non-blocking exclusive flock held for the
// lifetime of a Producer or Consumer. It is never unlinked on release:
// other processes may be racing to open the same path, and removing it
// out from under them would let two "exclusive" holders coexist.
type fileLock struct {
	file *os.File
}

// acquireLock opens (creating if necessary) the lock file for name/r and
// takes a non-blocking exclusive flock on it. Failure to acquire means
// another process already holds the role for this segment name — the
// "Highlander Rule": there can be only one.
func acquireLock(name string, r role) (*fileLock, error) {
	path := LockBasePath + name + r.suffix()
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0666)
	if err != nil {
		return nil, fmt.Errorf("ring: open lock file %s: %w", path, err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, fmt.Errorf("ring: Highlander Rule Violation: another process holds the lock %s", path)
	}
	return &fileLock{file: f}, nil
}

func (l *fileLock) release() error {
	err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	if cerr := l.file.Close(); err == nil {
		err = cerr
	}
	return err
}
