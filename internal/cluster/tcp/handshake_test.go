package tcp

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHandshake_DialerSendsFirst(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	errCh := make(chan error, 1)
	go func() {
		errCh <- performOutboundHandshake(client, "node-a", "10.0.0.1:9000")
	}()

	remote, err := performInboundHandshake(server, "node-b", "10.0.0.2:9000")
	require.NoError(t, err)
	require.Equal(t, "node-a", remote.NodeID)
	require.Equal(t, "10.0.0.1:9000", remote.Endpoint)

	require.NoError(t, <-errCh)
}
