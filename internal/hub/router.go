package hub

import "github.com/Vishwa1011-AFK/ConnectShare/internal/hub/msg"

// deliveryResult is sendTo's outcome.
type deliveryResult int

const (
	deliveryDelivered deliveryResult = iota
	deliveryNoSuchPeer
	deliveryNotReady
)

// Router builds directed and broadcast delivery on top of Registry
// snapshot/lookup plus per-session outbound sends.
type Router struct {
	registry *Registry
	metrics  Metrics
}

// NewRouter builds a Router over the given registry, recording outcomes via
// metrics.
func NewRouter(registry *Registry, metrics Metrics) *Router {
	return &Router{registry: registry, metrics: metrics}
}

// sendTo looks up the target, checks its outbound writability, and enqueues
// the already-annotated payload. It never blocks on socket I/O itself — that
// lives in the target session's writer goroutine. A full target mailbox is
// reported as not-ready; the target session is not torn down for it.
func (r *Router) sendTo(targetID, frameType string, payload []byte) deliveryResult {
	peer, ok := r.registry.Lookup(targetID)
	if !ok {
		r.metrics.MessageRouted(frameType, "no_such_peer")
		return deliveryNoSuchPeer
	}
	if !peer.ready() || !trySendPeer(peer, payload) {
		r.metrics.MessageRouted(frameType, "not_ready")
		return deliveryNotReady
	}
	r.metrics.MessageRouted(frameType, "delivered")
	return deliveryDelivered
}

// trySendPeer is a package-local indirection so Router never needs to know
// about Session; it only ever touches the routing-only Peer view.
func trySendPeer(p *Peer, data []byte) bool {
	select {
	case p.outbox <- data:
		return true
	default:
		return false
	}
}

// broadcast snapshots the registry and enqueues payload to every live peer
// except the optional excluded id. Per-peer failures are silently ignored and
// one unreachable peer never aborts delivery to the rest: a peer that is not
// ready, or whose mailbox is full, simply misses this frame. A full mailbox
// does not tear that peer's session down.
func (r *Router) broadcast(v any, except string) {
	payload, err := encode(v)
	if err != nil {
		return
	}
	frameType := frameTypeOf(v)
	snapshot := r.registry.Snapshot(except)
	for _, info := range snapshot {
		peer, ok := r.registry.Lookup(info.ID)
		if !ok || !peer.ready() {
			continue
		}
		trySendPeer(peer, payload)
	}
	r.metrics.Broadcast(frameType)
}

func frameTypeOf(v any) string {
	switch v.(type) {
	case msg.NewPeerEvent:
		return msg.TypeNewPeer
	case msg.PeerDisconnected:
		return msg.TypePeerDisconnected
	case msg.PeerNameUpdated:
		return msg.TypePeerNameUpdated
	default:
		return "unknown"
	}
}
