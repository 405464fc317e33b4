package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/webitel/actorcluster/internal/actorsystem"
)

// newHTTPMux builds the gateway's HTTP surface: the WebSocket upgrade
// path at wsPath, a liveness probe, and a debug endpoint dumping every
// actor's metrics snapshot — the operator-facing interfaces spec.md §1
// names as peripheral collaborators of the runtime core.
func newHTTPMux(wsPath string, ws http.Handler, system *actorsystem.System) http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", handleHealthz)
	r.Get("/debug/actors", handleDebugActors(system))
	if ws != nil {
		r.Handle(wsPath, ws)
	}
	return r
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleDebugActors(system *actorsystem.System) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshots := system.Metrics().SnapshotAll()
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(snapshots); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}
