package gateway

import "context"

// Protocol tags a session's transport.
type Protocol int

const (
	ProtocolTCP Protocol = iota + 1
	ProtocolWebSocket
)

func (p Protocol) String() string {
	if p == ProtocolTCP {
		return "tcp"
	}
	return "websocket"
}

// connReader is the read side of a connection abstraction: readMessage
// blocks until one reassembled application message is available, or
// returns an error (io.EOF on a clean close, anything else on a protocol
// violation). The accept loop runs this on its own goroutine per session
// and feeds results into the session actor as inbound-bytes or
// client-closed notices.
type connReader interface {
	readMessage(ctx context.Context) ([]byte, error)
}

// connWriter is the write side: writeMessage sends one application
// message, framed per the connection's protocol.
type connWriter interface {
	writeMessage(payload []byte) error
}

// connection is what the session actor holds: read, write, and dispose.
type connection interface {
	connReader
	connWriter
	close() error
	remoteAddr() string
}
