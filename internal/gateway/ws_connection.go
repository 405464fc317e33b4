package gateway

import (
	"context"
	"errors"
	"io"

	"github.com/gorilla/websocket"
)

// wsConnection wraps a gorilla websocket connection, reassembling
// fragmented frames and rejecting anything but binary/text messages
// (spec.md §6 "Gateway WebSocket framing").
type wsConnection struct {
	conn    *websocket.Conn
	maxSize int
}

func newWSConnection(conn *websocket.Conn, maxSize int) *wsConnection {
	conn.SetReadLimit(int64(maxSize))
	return &wsConnection{conn: conn, maxSize: maxSize}
}

func (c *wsConnection) readMessage(ctx context.Context) ([]byte, error) {
	msgType, data, err := c.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return nil, io.EOF
		}
		if _, ok := err.(*websocket.CloseError); ok {
			return nil, io.EOF
		}
		if errors.Is(err, websocket.ErrReadLimit) {
			return nil, errProtocolViolation("ws message exceeds maximum %d", c.maxSize)
		}
		return nil, err
	}
	if msgType != websocket.BinaryMessage && msgType != websocket.TextMessage {
		return nil, errProtocolViolation("ws: unsupported frame type %d", msgType)
	}
	if len(data) > c.maxSize {
		return nil, errProtocolViolation("ws message length %d exceeds maximum %d", len(data), c.maxSize)
	}
	return data, nil
}

func (c *wsConnection) writeMessage(payload []byte) error {
	return c.conn.WriteMessage(websocket.BinaryMessage, payload)
}

func (c *wsConnection) close() error       { return c.conn.Close() }
func (c *wsConnection) remoteAddr() string { return c.conn.RemoteAddr().String() }
