package tcp

import (
	"encoding/json"
	"fmt"
	"net"
)

// performOutboundHandshake sends this node's handshake first, then reads
// the accepter's reply — the dialer always speaks first (spec.md §8).
func performOutboundHandshake(conn net.Conn, localNodeID, localEndpoint string) error {
	if err := sendHandshake(conn, localNodeID, localEndpoint); err != nil {
		return err
	}
	_, err := readHandshake(conn)
	return err
}

// performInboundHandshake reads the dialer's handshake first, then
// replies with this node's own.
func performInboundHandshake(conn net.Conn, localNodeID, localEndpoint string) (handshakePayload, error) {
	remote, err := readHandshake(conn)
	if err != nil {
		return handshakePayload{}, err
	}
	if err := sendHandshake(conn, localNodeID, localEndpoint); err != nil {
		return handshakePayload{}, err
	}
	return remote, nil
}

// sendHandshake always encodes with JSON regardless of the configured
// wire codec: the handshake is the one frame both ends must be able to
// decode whatever codec each is configured with (the Codec interface is
// only applied to envelope frames, after FrameHandshake).
func sendHandshake(conn net.Conn, nodeID, endpoint string) error {
	body, err := json.Marshal(handshakePayload{NodeID: nodeID, Endpoint: endpoint})
	if err != nil {
		return fmt.Errorf("tcp: marshal handshake: %w", err)
	}
	return writeFrame(conn, FrameHandshake, body)
}

func readHandshake(conn net.Conn) (handshakePayload, error) {
	frameType, payload, err := readFrame(conn)
	if err != nil {
		return handshakePayload{}, fmt.Errorf("tcp: read handshake: %w", err)
	}
	if frameType != FrameHandshake {
		return handshakePayload{}, fmt.Errorf("tcp: expected handshake frame, got type %d", frameType)
	}
	var hs handshakePayload
	if err := json.Unmarshal(payload, &hs); err != nil {
		return handshakePayload{}, fmt.Errorf("tcp: unmarshal handshake: %w", err)
	}
	return hs, nil
}
