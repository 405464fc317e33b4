package gateway

import (
	"context"
	"sync"

	"github.com/webitel/actorcluster/internal/actorcore"
	"github.com/webitel/actorcluster/internal/actorsystem"
)

type sessionEntry struct {
	meta   SessionMeta
	handle actorcore.Handle
}

// sessionTable tracks every live session so Stop can close them all
// without leaking a single one (spec.md §4.9's "never leaks sessions on
// shutdown"), the same sync.Map-plus-range shape as the teacher's
// registry Hub.
type sessionTable struct {
	sessions sync.Map // sessionID string -> sessionEntry
}

func newSessionTable() *sessionTable {
	return &sessionTable{}
}

func (t *sessionTable) register(sessionID string, e sessionEntry) {
	t.sessions.Store(sessionID, e)
}

func (t *sessionTable) unregister(sessionID string) {
	t.sessions.Delete(sessionID)
}

func (t *sessionTable) snapshot() []sessionEntry {
	var out []sessionEntry
	t.sessions.Range(func(_, v any) bool {
		out = append(out, v.(sessionEntry))
		return true
	})
	return out
}

// shutdown enqueues a ServerShutdown close into every live session actor
// and clears the table.
func (t *sessionTable) shutdown(system *actorsystem.System) {
	for _, e := range t.snapshot() {
		system.Send(context.Background(), e.handle, closeRequestMsg{reason: ServerShutdown}, actorcore.NoHandle)
		t.unregister(e.meta.SessionID)
	}
}
