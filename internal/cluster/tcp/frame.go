// Package tcp implements the cluster transport described in spec.md §8:
// a length-framed TCP wire protocol carrying envelopes between nodes,
// with a handshake, a heartbeat, and a pending-call table correlating
// outbound Calls with their inbound replies.
package tcp

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Frame types.
const (
	FrameHandshake byte = 1
	FrameEnvelope  byte = 2
	FrameHeartbeat byte = 3
)

// MaxFrameBytes bounds a single frame's payload; a length outside
// [0, MaxFrameBytes] is treated as a protocol violation and terminates
// the connection (spec.md §8's framing boundary behavior).
const MaxFrameBytes = 16 * 1024 * 1024

// writeFrame writes [1-byte type][4-byte big-endian length][payload].
func writeFrame(w io.Writer, frameType byte, payload []byte) error {
	header := make([]byte, 5)
	header[0] = frameType
	binary.BigEndian.PutUint32(header[1:], uint32(len(payload)))
	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("tcp: write frame header: %w", err)
	}
	if len(payload) > 0 {
		if _, err := w.Write(payload); err != nil {
			return fmt.Errorf("tcp: write frame payload: %w", err)
		}
	}
	return nil
}

// readFrame reads one frame, rejecting negative (as interpreted through
// uint32 wraparound checked against MaxFrameBytes) or oversized lengths.
func readFrame(r io.Reader) (frameType byte, payload []byte, err error) {
	header := make([]byte, 5)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, nil, err
	}
	length := binary.BigEndian.Uint32(header[1:])
	if length > MaxFrameBytes {
		return 0, nil, fmt.Errorf("tcp: frame length %d exceeds maximum %d", length, MaxFrameBytes)
	}
	payload = make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return 0, nil, fmt.Errorf("tcp: read frame payload: %w", err)
		}
	}
	return header[0], payload, nil
}
