package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/webitel/actorcluster/internal/actorcore"
	"github.com/webitel/actorcluster/internal/actorsystem"
)

// tcpListener runs one accept loop under the gateway's lifetime token
// (spec.md §4.9 "Listener").
type tcpListener struct {
	address string
	// backlog is accepted for config-surface completeness (spec.md §6's
	// recognized tcp-backlog option) but net.Listen has no portable knob
	// for the kernel accept queue depth; left for a future listener
	// built on net.ListenConfig.Control if this ever needs tuning.
	backlog     int
	maxSize     int
	idleTimeout time.Duration

	system  *actorsystem.System
	table   *sessionTable
	factory RouterFactory
	logger  *slog.Logger

	listener net.Listener
}

func newTCPListener(address string, backlog, maxSize int, idleTimeout time.Duration, system *actorsystem.System, table *sessionTable, factory RouterFactory, logger *slog.Logger) *tcpListener {
	return &tcpListener{
		address:     address,
		backlog:     backlog,
		maxSize:     maxSize,
		idleTimeout: idleTimeout,
		system:      system,
		table:       table,
		factory:     factory,
		logger:      logger,
	}
}

func (l *tcpListener) start() error {
	ln, err := net.Listen("tcp", l.address)
	if err != nil {
		return fmt.Errorf("gateway: tcp listen %s: %w", l.address, err)
	}
	l.listener = ln
	go l.acceptLoop()
	return nil
}

func (l *tcpListener) acceptLoop() {
	for {
		conn, err := l.listener.Accept()
		if err != nil {
			if isClosedListenerErr(err) {
				return
			}
			l.logger.Error("gateway: tcp accept failed", "err", err)
			continue
		}
		go l.serve(conn)
	}
}

func (l *tcpListener) serve(raw net.Conn) {
	sessionID := uuid.New().String()
	meta := SessionMeta{
		SessionID:      sessionID,
		Protocol:       ProtocolTCP,
		RemoteEndpoint: raw.RemoteAddr().String(),
		ConnectedAt:    time.Now(),
	}
	conn := newTCPConnection(raw, l.maxSize)
	actor := newSessionActor(conn, meta, l.factory, l.system, l.table, l.idleTimeout, l.logger)

	if _, err := l.system.Create(context.Background(), func() (actorcore.Actor, error) {
		return actor, nil
	}, "", actorcore.NoHandle); err != nil {
		l.logger.Error("gateway: tcp session create failed", "err", err)
		conn.close()
		return
	}
}

func (l *tcpListener) stop() error {
	if l.listener == nil {
		return nil
	}
	return l.listener.Close()
}

func isClosedListenerErr(err error) bool {
	return errors.Is(err, net.ErrClosed)
}
