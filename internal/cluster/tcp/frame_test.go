package tcp

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteReadFrame_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeFrame(&buf, FrameEnvelope, []byte("hello")))

	frameType, payload, err := readFrame(&buf)
	require.NoError(t, err)
	require.Equal(t, FrameEnvelope, frameType)
	require.Equal(t, []byte("hello"), payload)
}

func TestReadFrame_RejectsOversizedLength(t *testing.T) {
	var buf bytes.Buffer
	header := make([]byte, 5)
	header[0] = FrameEnvelope
	binary.BigEndian.PutUint32(header[1:], MaxFrameBytes+1)
	buf.Write(header)

	_, _, err := readFrame(&buf)
	require.Error(t, err)
}

func TestWriteReadFrame_EmptyPayload(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeFrame(&buf, FrameHeartbeat, nil))

	frameType, payload, err := readFrame(&buf)
	require.NoError(t, err)
	require.Equal(t, FrameHeartbeat, frameType)
	require.Empty(t, payload)
}
