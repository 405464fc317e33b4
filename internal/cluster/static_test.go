package cluster

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/webitel/actorcluster/internal/actorcore"
)

func TestStaticRegistry_ResolvesSeededNodes(t *testing.T) {
	r := NewStaticRegistry("node-a", WithNode("node-b", "10.0.0.2:9090"))

	n, ok := r.TryGetNode("node-b")
	require.True(t, ok)
	require.Equal(t, "10.0.0.2:9090", n.Endpoint)

	_, ok = r.TryGetNode("node-missing")
	require.False(t, ok)
}

func TestStaticRegistry_RegisterAndResolveRoundTrip(t *testing.T) {
	r := NewStaticRegistry("node-a")

	require.NoError(t, r.RegisterLocalActor("singleton", actorcore.Handle(7)))

	loc, ok := r.TryResolveByName("singleton")
	require.True(t, ok)
	require.Equal(t, "node-a", loc.NodeID)
	require.Equal(t, actorcore.Handle(7), loc.Handle)

	loc, ok = r.TryResolveByHandle(actorcore.Handle(7))
	require.True(t, ok)
	require.Equal(t, "node-a", loc.NodeID)
	require.Equal(t, actorcore.Handle(7), loc.Handle)
}

func TestStaticRegistry_RegisterRejectsNameTakenByDifferentHandle(t *testing.T) {
	r := NewStaticRegistry("node-a")
	require.NoError(t, r.RegisterLocalActor("singleton", actorcore.Handle(1)))

	err := r.RegisterLocalActor("singleton", actorcore.Handle(2))
	require.ErrorIs(t, err, actorcore.ErrNameTaken)
}

func TestStaticRegistry_UnregisterFreesName(t *testing.T) {
	r := NewStaticRegistry("node-a")
	require.NoError(t, r.RegisterLocalActor("singleton", actorcore.Handle(1)))

	r.UnregisterLocalActor("singleton", actorcore.Handle(1))

	_, ok := r.TryResolveByName("singleton")
	require.False(t, ok)

	require.NoError(t, r.RegisterLocalActor("singleton", actorcore.Handle(2)))
}
