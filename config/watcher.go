package config

import (
	"log/slog"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Reloadable holds the subset of Config fields safe to change without a
// process restart: log level, the TCP transport's heartbeat interval, and
// the gateway's idle timeout. A Watcher refreshes these in place and logs
// each change; no other component reads them, so the running transport
// and gateway keep the values from the Config they were built with.
type Reloadable struct {
	mu          sync.RWMutex
	LogLevel    string
	Heartbeat   string
	IdleTimeout string
}

func (r *Reloadable) snapshot(cfg *Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.LogLevel = cfg.LogLevel
	r.Heartbeat = cfg.TCP.HeartbeatInterval.String()
	r.IdleTimeout = cfg.Gateway.IdleTimeout.String()
}

// Get returns a copy of the current reloadable values.
func (r *Reloadable) Get() Reloadable {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Reloadable{LogLevel: r.LogLevel, Heartbeat: r.Heartbeat, IdleTimeout: r.IdleTimeout}
}

// Watcher watches the config file backing a Config for changes and
// refreshes a Reloadable in place on every write, logging the fields that
// changed. It never rebuilds actor-system/registry/gateway wiring — those
// require a restart, matching the teacher's config package contract
// (reload covers log level and tunables, not topology).
type Watcher struct {
	path   string
	logger *slog.Logger
	fsw    *fsnotify.Watcher
	done   chan struct{}
}

// NewWatcher starts watching path for writes. Closing the returned Watcher
// stops the background goroutine.
func NewWatcher(path string, reloadable *Reloadable, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(path); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{path: path, logger: logger, fsw: fsw, done: make(chan struct{})}
	go w.loop(reloadable)
	return w, nil
}

func (w *Watcher) loop(reloadable *Reloadable) {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := LoadConfig(w.path)
			if err != nil {
				if w.logger != nil {
					w.logger.Error("config: reload failed, keeping previous values", "err", err)
				}
				continue
			}
			before := reloadable.Get()
			reloadable.snapshot(cfg)
			after := reloadable.Get()
			if w.logger != nil && before != after {
				w.logger.Info("config: reloaded",
					"log-level", after.LogLevel,
					"heartbeat-interval", after.Heartbeat,
					"idle-timeout", after.IdleTimeout)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			if w.logger != nil {
				w.logger.Error("config: watcher error", "err", err)
			}
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	err := w.fsw.Close()
	<-w.done
	return err
}
