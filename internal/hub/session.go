package hub

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Vishwa1011-AFK/ConnectShare/internal/hub/msg"
)

// sessionState tracks one socket's lifecycle from handshake through
// teardown.
type sessionState int32

const (
	stateOpening sessionState = iota
	stateActive
	stateClosing
	stateClosed
)

// Options configures session behavior; populated from internal/config.
type Options struct {
	MaxFrameBytes      int
	MaxNameLength      int
	OutboundQueueDepth int
	WriteTimeout       time.Duration
	ReadIdleTimeout    time.Duration
}

// DefaultOptions returns a reasonable configuration for tests and standalone
// use.
func DefaultOptions() Options {
	return Options{
		MaxFrameBytes:      msg.MaxFrameBytes,
		MaxNameLength:      40,
		OutboundQueueDepth: 32,
		WriteTimeout:       5 * time.Second,
		ReadIdleTimeout:    0,
	}
}

// Session owns one peer's socket, identity, and receive/send pipelines. Each
// session runs its own reader and writer goroutines and talks to every other
// session only through the shared registry and router.
type Session struct {
	conn       *websocket.Conn
	registry   *Registry
	router     *Router
	opts       Options
	logger     *zap.Logger
	metrics    Metrics
	remoteAddr string

	id   string
	name string

	state      atomic.Int32
	outbox     chan []byte
	teardownMu sync.Once
	done       chan struct{}
}

// newSession constructs a session in state opening; it does not touch the
// registry or socket beyond what's passed in.
func newSession(conn *websocket.Conn, registry *Registry, router *Router, opts Options, logger *zap.Logger, metrics Metrics) *Session {
	s := &Session{
		conn:       conn,
		registry:   registry,
		router:     router,
		opts:       opts,
		logger:     logger,
		metrics:    metrics,
		remoteAddr: connRemoteAddr(conn),
		outbox:     make(chan []byte, opts.OutboundQueueDepth),
		done:       make(chan struct{}),
	}
	s.state.Store(int32(stateOpening))
	return s
}

func connRemoteAddr(conn *websocket.Conn) string {
	if conn == nil {
		return ""
	}
	if addr, ok := conn.RemoteAddr().(*net.TCPAddr); ok {
		return addr.String()
	}
	return conn.RemoteAddr().String()
}

// ID returns the session's assigned peer id, valid once active.
func (s *Session) ID() string { return s.id }

func (s *Session) isReady() bool {
	return sessionState(s.state.Load()) == stateActive
}

// trySend enqueues data on the session's outbound mailbox without blocking.
// A full queue means this peer's writer can't keep up, so the session tears
// itself down rather than let the mailbox grow unbounded or block the
// caller; the message itself is simply dropped, same as any other per-peer
// delivery failure.
func (s *Session) trySend(data []byte) bool {
	if !s.isReady() {
		return false
	}
	select {
	case s.outbox <- data:
		return true
	default:
		s.logger.Warn("outbound queue full, tearing down session", zap.String("peer_id", s.id))
		go s.teardown("outbound queue exceeded")
		return false
	}
}

// run drives the session end to end: handshake, then concurrent read/write
// pumps until either fails, then idempotent teardown. Blocks until the
// session is fully closed.
func (s *Session) run(name string) {
	if err := s.handshake(name); err != nil {
		s.logger.Debug("handshake failed", zap.Error(err))
		s.metrics.SessionStarted("handshake_fail")
		s.state.Store(int32(stateClosed))
		s.conn.Close()
		return
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.writePump()
	}()
	go func() {
		defer wg.Done()
		s.readPump()
	}()
	wg.Wait()
}

// handshake runs, in order: sanitize the requested name, generate and
// reserve an id, send the welcome frame, then broadcast this peer's arrival.
// A failure at any step never emits the new-peer broadcast.
func (s *Session) handshake(requestedName string) error {
	name := sanitizeName(requestedName, s.opts.MaxNameLength)

	var id string
	inserted := false
	for attempt := 0; attempt < maxIDAttempts && !inserted; attempt++ {
		candidate, err := randomID()
		if err != nil {
			return err
		}
		candidateName := name
		if candidateName == "" {
			candidateName = defaultName(candidate)
		}
		peer := &Peer{ID: candidate, Name: candidateName, outbox: s.outbox, ready: s.isReady}
		// ready() reports false here since state is still opening; the
		// registry briefly holds a peer whose ready() is false between
		// Insert and the state transition below — no other session can
		// route to it yet because nothing has announced it.
		if s.registry.Insert(peer) {
			id = candidate
			name = candidateName
			inserted = true
		}
	}
	if !inserted {
		return errCollision
	}
	s.id = id
	s.name = name
	s.state.Store(int32(stateActive))

	others := s.registry.Snapshot(s.id)
	peers := make([]msg.PeerRef, len(others))
	for i, p := range others {
		peers[i] = msg.PeerRef{ID: p.ID, Name: p.Name}
	}
	registered := msg.NewRegistered(s.id, s.name, peers)
	payload, err := encode(registered)
	if err != nil {
		return err
	}
	if !s.trySend(payload) {
		return errWelcomeFailed
	}

	s.router.broadcast(msg.NewNewPeerEvent(msg.PeerRef{ID: s.id, Name: s.name}), s.id)

	s.logger.Info("peer joined",
		zap.String("peer_id", s.id),
		zap.String("name", s.name),
		zap.String("remote_addr", s.remoteAddr),
	)
	s.metrics.SessionStarted("handshake_ok")
	return nil
}

func sanitizeName(name string, max int) string {
	if max <= 0 {
		max = 40
	}
	r := []rune(name)
	if len(r) > max {
		r = r[:max]
	}
	return string(r)
}

// writePump drains the outbound mailbox onto the socket. It is the only
// goroutine that ever writes to this connection, so the channel alone
// serializes writes without needing a separate lock.
func (s *Session) writePump() {
	defer s.conn.Close()
	for {
		select {
		case data, ok := <-s.outbox:
			if !ok {
				return
			}
			if s.opts.WriteTimeout > 0 {
				s.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.teardown("write failed")
				return
			}
		case <-s.done:
			return
		}
	}
}

// readPump decodes and dispatches each inbound frame in turn; a frame is
// fully routed or dropped before the next one is read off this socket.
func (s *Session) readPump() {
	defer s.teardown("read loop ended")

	for {
		if s.opts.ReadIdleTimeout > 0 {
			s.conn.SetReadDeadline(time.Now().Add(s.opts.ReadIdleTimeout))
		}
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		s.dispatch(data)
	}
}

// dispatch routes one decoded inbound frame to its handler by type.
func (s *Session) dispatch(data []byte) {
	if s.opts.MaxFrameBytes > 0 && len(data) > s.opts.MaxFrameBytes {
		s.metrics.FrameDecodeError()
		s.replyError("Invalid message format.")
		return
	}
	env, err := msg.Decode(data)
	if err != nil {
		s.metrics.FrameDecodeError()
		s.replyError("Invalid message format.")
		return
	}

	switch env.Type {
	case msg.TypeOffer, msg.TypeAnswer, msg.TypeICECandidate:
		s.dispatchDirected(env)
	case msg.TypeGetPeers:
		s.dispatchGetPeers()
	case msg.TypeUpdateName:
		s.dispatchUpdateName(env)
	default:
		s.replyError("Unknown message type.")
	}
}

func (s *Session) dispatchDirected(env msg.Envelope) {
	d, err := msg.DecodeDirected(env.Raw)
	if err != nil {
		s.replyError("Invalid message format.")
		return
	}
	payload, err := d.WithSender(s.id, s.name)
	if err != nil {
		s.replyError("Invalid message format.")
		return
	}

	result := s.router.sendTo(d.To, env.Type, payload)
	switch result {
	case deliveryDelivered:
		// no reply to the sender on success
	case deliveryNoSuchPeer:
		s.replyError(d.To + " is not connected.")
	case deliveryNotReady:
		s.replyError("Peer " + d.To + " not available.")
	}
}

func (s *Session) dispatchGetPeers() {
	others := s.registry.Snapshot(s.id)
	peers := make([]msg.PeerRef, len(others))
	for i, p := range others {
		peers[i] = msg.PeerRef{ID: p.ID, Name: p.Name}
	}
	s.sendEncoded(msg.NewPeerList(peers))
}

func (s *Session) dispatchUpdateName(env msg.Envelope) {
	req, err := msg.DecodeUpdateName(env.Raw)
	if err != nil {
		s.replyError("Invalid message format.")
		return
	}
	name := sanitizeName(req.Name, s.opts.MaxNameLength)
	if name == "" {
		s.replyError("Name must not be empty.")
		return
	}

	if !s.registry.Rename(s.id, name) {
		// Cannot happen from a live session: it is, by definition, still
		// registered while dispatching.
		s.replyError("Rename failed.")
		return
	}
	s.name = name

	s.router.broadcast(msg.NewPeerNameUpdated(s.id, name), s.id)
	s.sendEncoded(msg.NewNameUpdatedAck(name))
}

func (s *Session) replyError(message string) {
	s.sendEncoded(msg.NewErrorFrame(message))
}

func (s *Session) sendEncoded(v any) {
	payload, err := encode(v)
	if err != nil {
		s.logger.Warn("failed to encode outbound frame", zap.Error(err))
		return
	}
	s.trySend(payload)
}

// teardown is the session's single point of registry removal and departure
// broadcast. sync.Once collapses concurrent firings from readPump's return,
// writePump's write failure, and an idle-timeout or queue-overflow caller
// into exactly one removal and one broadcast.
func (s *Session) teardown(reason string) {
	s.teardownMu.Do(func() {
		s.state.Store(int32(stateClosing))
		close(s.done)

		if s.id != "" && s.registry.Remove(s.id) {
			s.router.broadcast(msg.NewPeerDisconnected(s.id), "")
			s.logger.Info("peer left",
				zap.String("peer_id", s.id),
				zap.String("reason", reason),
			)
			s.metrics.SessionEnded()
		}

		s.state.Store(int32(stateClosed))
		s.conn.Close()
	})
}

// Shutdown signals this session to tear down as part of hub shutdown. The
// resulting departure broadcast is best-effort like any other.
func (s *Session) Shutdown() {
	go s.teardown("hub shutdown")
}
