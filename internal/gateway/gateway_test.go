package gateway

import (
	"context"
	"encoding/binary"
	"io"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/webitel/actorcluster/internal/actorcore"
)

type upperEchoActor struct{}

func (upperEchoActor) Start(ctx context.Context) error { return nil }
func (upperEchoActor) Receive(ctx context.Context, env actorcore.Envelope) (any, error) {
	return strings.ToUpper(env.Payload.(string)), nil
}
func (upperEchoActor) Stop(ctx context.Context) error { return nil }

type echoRouter struct {
	echo   actorcore.Handle
	closed chan CloseReason
}

func (r *echoRouter) OnStarted(ctx context.Context, sc SessionContext) {}

func (r *echoRouter) OnMessage(ctx context.Context, sc SessionContext, payload []byte) {
	out, err := sc.Call(ctx, r.echo, string(payload), time.Second)
	if err != nil {
		return
	}
	sc.SendString(out.(string))
}

func (r *echoRouter) OnClosed(ctx context.Context, sc SessionContext, reason CloseReason, err error) {
	r.closed <- reason
}

func writeFrame(t *testing.T, conn net.Conn, payload string) {
	t.Helper()
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(payload)))
	_, err := conn.Write(header[:])
	require.NoError(t, err)
	_, err = conn.Write([]byte(payload))
	require.NoError(t, err)
}

func readFrame(t *testing.T, conn net.Conn) string {
	t.Helper()
	var header [4]byte
	_, err := io.ReadFull(conn, header[:])
	require.NoError(t, err)
	n := binary.BigEndian.Uint32(header[:])
	payload := make([]byte, n)
	_, err = io.ReadFull(conn, payload)
	require.NoError(t, err)
	return string(payload)
}

func TestGateway_TCPEchoRoundTripAndClientDisconnect(t *testing.T) {
	system := newTestSystem()
	defer system.Shutdown()

	echoHandle, err := system.Create(context.Background(), func() (actorcore.Actor, error) { return upperEchoActor{}, nil }, "", actorcore.NoHandle)
	require.NoError(t, err)

	closed := make(chan CloseReason, 1)
	factory := func(SessionMeta) Router { return &echoRouter{echo: echoHandle, closed: closed} }

	table := newSessionTable()
	listener := newTCPListener("127.0.0.1:0", 16, 1024, time.Hour, system, table, factory, slog.Default())
	require.NoError(t, listener.start())
	defer listener.stop()

	conn, err := net.Dial("tcp", listener.listener.Addr().String())
	require.NoError(t, err)

	writeFrame(t, conn, "hello")
	require.Equal(t, "HELLO", readFrame(t, conn))

	conn.Close()

	select {
	case reason := <-closed:
		require.Equal(t, ClientDisconnected, reason)
	case <-time.After(2 * time.Second):
		t.Fatal("on_closed never fired after client disconnect")
	}
}
