package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/webitel/actorcluster/internal/actorcore"
	"github.com/webitel/actorcluster/internal/actorsystem"
)

// wsListener is an HTTP handler upgrading to a websocket per request and
// binding each upgraded connection to a session actor, the same shape as
// the teacher's WSHandler.
type wsListener struct {
	maxSize     int
	idleTimeout time.Duration

	system   *actorsystem.System
	table    *sessionTable
	factory  RouterFactory
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func newWSListener(maxSize int, idleTimeout time.Duration, system *actorsystem.System, table *sessionTable, factory RouterFactory, logger *slog.Logger) *wsListener {
	return &wsListener{
		maxSize:     maxSize,
		idleTimeout: idleTimeout,
		system:      system,
		table:       table,
		factory:     factory,
		logger:      logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (l *wsListener) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.logger.Error("gateway: ws upgrade failed", "err", err)
		return
	}

	sessionID := uuid.New().String()
	meta := SessionMeta{
		SessionID:      sessionID,
		Protocol:       ProtocolWebSocket,
		RemoteEndpoint: conn.RemoteAddr().String(),
		ConnectedAt:    time.Now(),
	}
	wsConn := newWSConnection(conn, l.maxSize)
	actor := newSessionActor(wsConn, meta, l.factory, l.system, l.table, l.idleTimeout, l.logger)

	if _, err := l.system.Create(context.Background(), func() (actorcore.Actor, error) {
		return actor, nil
	}, "", actorcore.NoHandle); err != nil {
		l.logger.Error("gateway: ws session create failed", "err", err)
		wsConn.close()
		return
	}
}
