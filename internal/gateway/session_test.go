package gateway

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/webitel/actorcluster/internal/actorcore"
	"github.com/webitel/actorcluster/internal/actorsystem"
)

// fakeConn is an in-memory connection double: readMessage replays a
// scripted sequence of payloads (then an error), writeMessage records
// everything written.
type fakeConn struct {
	mu       sync.Mutex
	toRead   [][]byte
	readErr  error
	written  [][]byte
	closed   bool
	readOnce chan struct{}
}

func newFakeConn(toRead [][]byte, readErr error) *fakeConn {
	return &fakeConn{toRead: toRead, readErr: readErr, readOnce: make(chan struct{}, 64)}
}

func (c *fakeConn) readMessage(ctx context.Context) ([]byte, error) {
	c.mu.Lock()
	if len(c.toRead) > 0 {
		payload := c.toRead[0]
		c.toRead = c.toRead[1:]
		c.mu.Unlock()
		c.readOnce <- struct{}{}
		return payload, nil
	}
	err := c.readErr
	c.mu.Unlock()
	if err == nil {
		err = io.EOF
	}
	return nil, err
}

func (c *fakeConn) writeMessage(payload []byte) error {
	c.mu.Lock()
	c.written = append(c.written, payload)
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) remoteAddr() string { return "fake:0" }

func (c *fakeConn) writes() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.written))
	copy(out, c.written)
	return out
}

// recordingRouter captures router hook invocations on channels so tests
// can synchronize on them instead of sleeping.
type recordingRouter struct {
	started chan SessionContext
	message chan []byte
	closed  chan CloseReason
}

func newRecordingRouter() *recordingRouter {
	return &recordingRouter{
		started: make(chan SessionContext, 1),
		message: make(chan []byte, 16),
		closed:  make(chan CloseReason, 1),
	}
}

func (r *recordingRouter) OnStarted(ctx context.Context, sc SessionContext) {
	r.started <- sc
}

func (r *recordingRouter) OnMessage(ctx context.Context, sc SessionContext, payload []byte) {
	r.message <- payload
}

func (r *recordingRouter) OnClosed(ctx context.Context, sc SessionContext, reason CloseReason, err error) {
	select {
	case r.closed <- reason:
	default:
	}
}

func newTestSystem() *actorsystem.System {
	return actorsystem.New(actorsystem.Options{NodeID: "node-test"})
}

func TestSessionActor_OnStartedThenOnMessage(t *testing.T) {
	system := newTestSystem()
	defer system.Shutdown()

	conn := newFakeConn([][]byte{[]byte("hi")}, nil)
	router := newRecordingRouter()
	meta := SessionMeta{SessionID: "s1", Protocol: ProtocolTCP}
	actor := newSessionActor(conn, meta, func(SessionMeta) Router { return router }, system, newSessionTable(), time.Hour, nil)

	_, err := system.Create(context.Background(), func() (actorcore.Actor, error) { return actor, nil }, "", actorcore.NoHandle)
	require.NoError(t, err)

	select {
	case <-router.started:
	case <-time.After(time.Second):
		t.Fatal("on_started never fired")
	}

	select {
	case payload := <-router.message:
		require.Equal(t, "hi", string(payload))
	case <-time.After(time.Second):
		t.Fatal("on_message never fired")
	}
}

func TestSessionActor_ClientDisconnectNotifiesRouterAndKillsActor(t *testing.T) {
	system := newTestSystem()
	defer system.Shutdown()

	conn := newFakeConn(nil, io.EOF)
	router := newRecordingRouter()
	meta := SessionMeta{SessionID: "s2", Protocol: ProtocolTCP}
	table := newSessionTable()
	actor := newSessionActor(conn, meta, func(SessionMeta) Router { return router }, system, table, time.Hour, nil)

	handle, err := system.Create(context.Background(), func() (actorcore.Actor, error) { return actor, nil }, "", actorcore.NoHandle)
	require.NoError(t, err)

	select {
	case reason := <-router.closed:
		require.Equal(t, ClientDisconnected, reason)
	case <-time.After(time.Second):
		t.Fatal("on_closed never fired")
	}

	require.Eventually(t, func() bool {
		_, err := system.GetByHandle(handle)
		return err != nil
	}, time.Second, 10*time.Millisecond)
}

func TestSessionActor_SendBytesWritesThroughConnection(t *testing.T) {
	system := newTestSystem()
	defer system.Shutdown()

	conn := newFakeConn(nil, nil)
	started := make(chan SessionContext, 1)
	router := &onStartSendRouter{started: started}
	meta := SessionMeta{SessionID: "s3", Protocol: ProtocolTCP}
	actor := newSessionActor(conn, meta, func(SessionMeta) Router { return router }, system, newSessionTable(), time.Hour, nil)

	_, err := system.Create(context.Background(), func() (actorcore.Actor, error) { return actor, nil }, "", actorcore.NoHandle)
	require.NoError(t, err)

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("on_started never fired")
	}

	require.Eventually(t, func() bool {
		return len(conn.writes()) == 1
	}, time.Second, 10*time.Millisecond)
	require.Equal(t, "pong", string(conn.writes()[0]))
}

type onStartSendRouter struct {
	started chan SessionContext
}

func (r *onStartSendRouter) OnStarted(ctx context.Context, sc SessionContext) {
	sc.SendString("pong")
	r.started <- sc
}
func (r *onStartSendRouter) OnMessage(ctx context.Context, sc SessionContext, payload []byte) {}
func (r *onStartSendRouter) OnClosed(ctx context.Context, sc SessionContext, reason CloseReason, err error) {
}
