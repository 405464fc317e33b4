package gateway

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/webitel/actorcluster/internal/actorcore"
)

func TestSessionTable_RegisterUnregisterSnapshot(t *testing.T) {
	table := newSessionTable()
	table.register("s1", sessionEntry{meta: SessionMeta{SessionID: "s1"}, handle: actorcore.Handle(1)})
	table.register("s2", sessionEntry{meta: SessionMeta{SessionID: "s2"}, handle: actorcore.Handle(2)})

	require.Len(t, table.snapshot(), 2)

	table.unregister("s1")
	snap := table.snapshot()
	require.Len(t, snap, 1)
	require.Equal(t, "s2", snap[0].meta.SessionID)
}
