package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/webitel/actorcluster/config"
	"github.com/webitel/actorcluster/internal/actorsystem"
)

func newHTTPListener(addr string) (net.Listener, error) {
	return net.Listen("tcp", addr)
}

// Gateway owns the optional TCP and WebSocket listeners and the session
// table behind them (spec.md §4.9).
type Gateway struct {
	cfg    *config.GatewayConfig
	system *actorsystem.System
	logger *slog.Logger

	table *sessionTable
	tcp   *tcpListener
	http  *http.Server
}

// New builds a Gateway from configuration. The router-factory option is
// required and must have been registered via RegisterRouterFactory before
// Start is called.
func New(cfg *config.Config, system *actorsystem.System, logger *slog.Logger) (*Gateway, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.Gateway.TCPEnable && !cfg.Gateway.WSEnable {
		return &Gateway{cfg: &cfg.Gateway, system: system, logger: logger, table: newSessionTable()}, nil
	}

	factory, err := factoryByName(cfg.Gateway.RouterFactory)
	if err != nil {
		return nil, err
	}

	g := &Gateway{
		cfg:    &cfg.Gateway,
		system: system,
		logger: logger,
		table:  newSessionTable(),
	}

	if cfg.Gateway.TCPEnable {
		addr := fmt.Sprintf("%s:%d", cfg.Gateway.TCPAddress, cfg.Gateway.TCPPort)
		g.tcp = newTCPListener(addr, cfg.Gateway.TCPBacklog, cfg.Gateway.MaxMessageBytes, cfg.Gateway.IdleTimeout, system, g.table, factory, logger)
	}

	if cfg.Gateway.WSEnable {
		path := cfg.Gateway.WSPath
		if !strings.HasSuffix(path, "/") {
			path += "/"
		}
		ws := newWSListener(cfg.Gateway.MaxMessageBytes, cfg.Gateway.IdleTimeout, system, g.table, factory, logger)
		mux := newHTTPMux(path, ws, system)
		g.http = &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Gateway.WSHost, cfg.Gateway.WSPort),
			Handler: mux,
		}
	}

	return g, nil
}

// Start brings up every configured listener. A Gateway with neither
// listener enabled is a no-op (e.g. a headless cluster node that never
// faces external clients).
func (g *Gateway) Start(ctx context.Context) error {
	if g.tcp != nil {
		if err := g.tcp.start(); err != nil {
			return err
		}
	}
	if g.http != nil {
		ln, err := newHTTPListener(g.http.Addr)
		if err != nil {
			return fmt.Errorf("gateway: ws listen %s: %w", g.http.Addr, err)
		}
		go func() {
			if err := g.http.Serve(ln); err != nil && err != http.ErrServerClosed {
				g.logger.Error("gateway: http server failed", "err", err)
			}
		}()
	}
	return nil
}

// Stop closes every listener (the HTTP server's Shutdown waits for its
// active connections; the TCP accept loop is not waited for), enqueues a
// ServerShutdown close into every live session, and clears the session
// table (spec.md §4.9 "Failure semantics" — "the gateway never leaks
// sessions on shutdown").
func (g *Gateway) Stop(ctx context.Context) error {
	var firstErr error
	if g.tcp != nil {
		if err := g.tcp.stop(); err != nil {
			firstErr = err
		}
	}
	if g.http != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := g.http.Shutdown(shutdownCtx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	g.table.shutdown(g.system)
	return firstErr
}
