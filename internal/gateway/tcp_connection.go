package gateway

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"net"
)

// tcpConnection frames messages as [4-byte big-endian length][payload],
// the gateway TCP wire format (spec.md §6 "Gateway TCP framing").
type tcpConnection struct {
	conn    net.Conn
	r       *bufio.Reader
	maxSize int
}

func newTCPConnection(conn net.Conn, maxSize int) *tcpConnection {
	return &tcpConnection{conn: conn, r: bufio.NewReader(conn), maxSize: maxSize}
}

func (c *tcpConnection) readMessage(ctx context.Context) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := readFull(c.r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := int32(binary.BigEndian.Uint32(lenBuf[:]))
	if n < 0 || int(n) > c.maxSize {
		return nil, errProtocolViolation("tcp frame length %d exceeds maximum %d", n, c.maxSize)
	}
	payload := make([]byte, n)
	if _, err := readFull(c.r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func (c *tcpConnection) writeMessage(payload []byte) error {
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(payload)))
	if _, err := c.conn.Write(header[:]); err != nil {
		return err
	}
	_, err := c.conn.Write(payload)
	return err
}

func (c *tcpConnection) close() error       { return c.conn.Close() }
func (c *tcpConnection) remoteAddr() string { return c.conn.RemoteAddr().String() }

func readFull(r *bufio.Reader, buf []byte) (int, error) {
	read := 0
	for read < len(buf) {
		n, err := r.Read(buf[read:])
		read += n
		if err != nil {
			return read, err
		}
	}
	return read, nil
}

type protocolViolationError struct{ msg string }

func (e *protocolViolationError) Error() string { return e.msg }

func errProtocolViolation(format string, args ...any) error {
	return &protocolViolationError{msg: fmt.Sprintf(format, args...)}
}

func isProtocolViolation(err error) bool {
	_, ok := err.(*protocolViolationError)
	return ok
}
