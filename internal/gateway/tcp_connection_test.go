package gateway

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTCPConnection_FrameRoundTrip(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	clientConn := newTCPConnection(client, 1024)
	serverConn := newTCPConnection(server, 1024)

	done := make(chan error, 1)
	go func() { done <- clientConn.writeMessage([]byte("hello")) }()

	payload, err := serverConn.readMessage(context.Background())
	require.NoError(t, err)
	require.Equal(t, "hello", string(payload))
	require.NoError(t, <-done)
}

func TestTCPConnection_RejectsOversizedFrame(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	clientConn := newTCPConnection(client, 4)
	serverConn := newTCPConnection(server, 4)

	go clientConn.writeMessage([]byte("toolong"))

	_, err := serverConn.readMessage(context.Background())
	require.Error(t, err)
	require.True(t, isProtocolViolation(err))
}
