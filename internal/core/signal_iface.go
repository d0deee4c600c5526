package core

import "errors"

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

// Frame is one encoded message ready for the wire.
type Frame []byte

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
// TrySend never blocks: it returns ErrConnClosed once the connection is
// closed and ErrBackpressure when the outbound queue is full.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
