package hub

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// ListenerConfig configures the HTTP surface: the signaling upgrade path and
// operational endpoints served alongside it.
type ListenerConfig struct {
	SignalingPath  string
	AllowedOrigins []string
	Options        Options
}

// Listener accepts connections on the configured endpoint, performs the
// protocol upgrade, extracts the name parameter, and spawns one Session per
// accepted socket.
type Listener struct {
	cfg      ListenerConfig
	registry *Registry
	router   *Router
	logger   *zap.Logger
	metrics  Metrics
	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[*Session]struct{}
	wg       sync.WaitGroup
}

// NewListener wires a registry, router, logger, and metrics sink into an
// HTTP handler that only accepts upgrade requests on cfg.SignalingPath;
// requests on any other path are rejected by the mux's routing.
func NewListener(cfg ListenerConfig, registry *Registry, router *Router, logger *zap.Logger, metrics Metrics) *Listener {
	l := &Listener{
		cfg:      cfg,
		registry: registry,
		router:   router,
		logger:   logger,
		metrics:  metrics,
		sessions: make(map[*Session]struct{}),
	}
	l.upgrader = websocket.Upgrader{
		CheckOrigin: l.checkOrigin,
	}
	return l
}

func (l *Listener) checkOrigin(r *http.Request) bool {
	if len(l.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, allowed := range l.cfg.AllowedOrigins {
		if allowed == origin {
			return true
		}
	}
	return false
}

// Mux returns the http.Handler serving the signaling upgrade path plus
// operational endpoints, ready to be passed to an *http.Server.
func (l *Listener) Mux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(l.cfg.SignalingPath, l.handleUpgrade)
	mux.HandleFunc("/healthz", l.handleHealthz)
	mux.HandleFunc("/readyz", l.handleHealthz)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (l *Listener) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func (l *Listener) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")

	conn, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.logger.Debug("upgrade failed", zap.Error(err))
		return
	}

	session := newSession(conn, l.registry, l.router, l.cfg.Options, l.logger, l.metrics)
	l.track(session)
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer l.untrack(session)
		session.run(name)
	}()
}

func (l *Listener) track(s *Session) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sessions[s] = struct{}{}
}

func (l *Listener) untrack(s *Session) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.sessions, s)
}

// Shutdown signals every tracked session to tear down and waits, bounded by
// ctx, until every session goroutine has returned. It does not stop the
// listener from accepting new connections; callers should close the
// underlying http.Server first.
func (l *Listener) Shutdown(ctx context.Context) {
	l.mu.Lock()
	sessions := make([]*Session, 0, len(l.sessions))
	for s := range l.sessions {
		sessions = append(sessions, s)
	}
	l.mu.Unlock()

	for _, s := range sessions {
		s.Shutdown()
	}

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}
}
