package cluster

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/webitel/actorcluster/internal/actorcore"
)

type samplePayload struct {
	A string
	B int
}

func TestJSONCodec_RoundTrip(t *testing.T) {
	c := JSONCodec{}
	data, err := c.Encode(samplePayload{A: "x", B: 1})
	require.NoError(t, err)

	var out samplePayload
	require.NoError(t, c.Decode(data, &out))
	require.Equal(t, samplePayload{A: "x", B: 1}, out)
}

func TestGobCodec_RoundTrip(t *testing.T) {
	RegisterGobType(samplePayload{})
	c := GobCodec{}
	data, err := c.Encode(samplePayload{A: "y", B: 2})
	require.NoError(t, err)

	var out samplePayload
	require.NoError(t, c.Decode(data, &out))
	require.Equal(t, samplePayload{A: "y", B: 2}, out)
}

func TestCodecByTag_ResolvesRegisteredCodecs(t *testing.T) {
	c, ok := CodecByTag(JSONCodec{}.Tag())
	require.True(t, ok)
	require.IsType(t, JSONCodec{}, c)

	c, ok = CodecByTag(GobCodec{}.Tag())
	require.True(t, ok)
	require.IsType(t, GobCodec{}, c)

	_, ok = CodecByTag(99)
	require.False(t, ok)
}

func TestCodecByName(t *testing.T) {
	c, err := CodecByName("")
	require.NoError(t, err)
	require.IsType(t, JSONCodec{}, c)

	c, err = CodecByName("gob")
	require.NoError(t, err)
	require.IsType(t, GobCodec{}, c)

	_, err = CodecByName("bogus")
	require.Error(t, err)
}

func TestDecodeLocation_RejectsMalformed(t *testing.T) {
	_, ok := decodeLocation("not-a-location")
	require.False(t, ok)

	_, ok = decodeLocation("node-a|notanumber")
	require.False(t, ok)

	loc, ok := decodeLocation(encodeLocation(actorcore.Location{NodeID: "node-a", Handle: actorcore.Handle(3)}))
	require.True(t, ok)
	require.Equal(t, "node-a", loc.NodeID)
	require.Equal(t, actorcore.Handle(3), loc.Handle)
}
