package realtime

import "errors"

// Handle is one live client connection as seen by the registry and the
// dispatcher. Implementations serialize writes internally.
type Handle interface {
	Send(frame []byte) error
	Close() error
	IsOpen() bool
}

var (
	ErrConnClosed     = errors.New("realtime: connection closed")
	ErrSendBufferFull = errors.New("realtime: send buffer full")
)
