package hub

import (
	"encoding/json"
	"testing"

	"github.com/Vishwa1011-AFK/ConnectShare/internal/hub/msg"
)

func newRoutablePeer(id string, ready bool) (*Peer, chan []byte) {
	ch := make(chan []byte, 4)
	return &Peer{ID: id, Name: "peer-" + id, outbox: ch, ready: func() bool { return ready }}, ch
}

func TestRouterSendToDelivered(t *testing.T) {
	r := NewRegistry()
	peer, outbox := newRoutablePeer("b", true)
	r.Insert(peer)
	router := NewRouter(r, NoopMetrics{})

	result := router.sendTo("b", msg.TypeOffer, []byte(`{"type":"offer"}`))
	if result != deliveryDelivered {
		t.Fatalf("expected delivered, got %v", result)
	}
	select {
	case got := <-outbox:
		if string(got) != `{"type":"offer"}` {
			t.Errorf("unexpected payload: %s", got)
		}
	default:
		t.Fatal("expected payload to be enqueued")
	}
}

func TestRouterSendToNoSuchPeer(t *testing.T) {
	r := NewRegistry()
	router := NewRouter(r, NoopMetrics{})

	if got := router.sendTo("ghost", msg.TypeOffer, []byte(`{}`)); got != deliveryNoSuchPeer {
		t.Fatalf("expected no_such_peer, got %v", got)
	}
}

func TestRouterSendToNotReady(t *testing.T) {
	r := NewRegistry()
	peer, _ := newRoutablePeer("b", false)
	r.Insert(peer)
	router := NewRouter(r, NoopMetrics{})

	if got := router.sendTo("b", msg.TypeOffer, []byte(`{}`)); got != deliveryNotReady {
		t.Fatalf("expected not_ready, got %v", got)
	}
}

func TestRouterBroadcastExcludesSelfAndSkipsFailures(t *testing.T) {
	r := NewRegistry()
	a, aOut := newRoutablePeer("a", true)
	b, bOut := newRoutablePeer("b", true)
	c, _ := newRoutablePeer("c", false) // not ready: silently skipped
	r.Insert(a)
	r.Insert(b)
	r.Insert(c)

	router := NewRouter(r, NoopMetrics{})
	router.broadcast(msg.NewPeerDisconnected("x"), "a")

	select {
	case <-aOut:
		t.Fatal("excluded peer should not receive the broadcast")
	default:
	}

	select {
	case got := <-bOut:
		var decoded msg.PeerDisconnected
		if err := json.Unmarshal(got, &decoded); err != nil {
			t.Fatal(err)
		}
		if decoded.PeerID != "x" {
			t.Errorf("expected peerId x, got %q", decoded.PeerID)
		}
	default:
		t.Fatal("expected live peer to receive the broadcast")
	}
}
