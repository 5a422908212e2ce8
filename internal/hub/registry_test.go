package hub

import (
	"sync"
	"testing"
)

func newTestPeer(id string) *Peer {
	ch := make(chan []byte, 1)
	return &Peer{ID: id, Name: "peer-" + id, outbox: ch, ready: func() bool { return true }}
}

func TestRegistryInsertRejectsCollision(t *testing.T) {
	r := NewRegistry()
	if !r.Insert(newTestPeer("a")) {
		t.Fatal("expected first insert to succeed")
	}
	if r.Insert(newTestPeer("a")) {
		t.Fatal("expected second insert with the same id to fail")
	}
}

func TestRegistryRemoveIsIdempotent(t *testing.T) {
	r := NewRegistry()
	r.Insert(newTestPeer("a"))

	if !r.Remove("a") {
		t.Fatal("expected first remove to report true")
	}
	if r.Remove("a") {
		t.Fatal("expected second remove to report false")
	}
}

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry()
	r.Insert(newTestPeer("a"))

	if _, ok := r.Lookup("a"); !ok {
		t.Fatal("expected lookup to find inserted peer")
	}
	if _, ok := r.Lookup("missing"); ok {
		t.Fatal("expected lookup of unknown id to fail")
	}
}

func TestRegistryRename(t *testing.T) {
	r := NewRegistry()
	r.Insert(newTestPeer("a"))

	if !r.Rename("a", "Alicia") {
		t.Fatal("expected rename of live peer to succeed")
	}
	p, _ := r.Lookup("a")
	if p.Name != "Alicia" {
		t.Errorf("expected renamed peer, got %q", p.Name)
	}
	if r.Rename("missing", "X") {
		t.Fatal("expected rename of unknown id to fail")
	}
}

func TestRegistrySnapshotExcludesSelfAndIsIndependent(t *testing.T) {
	r := NewRegistry()
	r.Insert(newTestPeer("a"))
	r.Insert(newTestPeer("b"))
	r.Insert(newTestPeer("c"))

	snap := r.Snapshot("b")
	if len(snap) != 2 {
		t.Fatalf("expected 2 peers excluding self, got %d", len(snap))
	}
	for _, p := range snap {
		if p.ID == "b" {
			t.Errorf("snapshot should not include excluded id, got %+v", p)
		}
	}

	r.Insert(newTestPeer("d"))
	if len(snap) != 2 {
		t.Errorf("snapshot slice should not observe later mutation, got len %d", len(snap))
	}
}

// Under concurrent joins, every id stays unique and every snapshot taken
// mid-flight stays internally consistent (no duplicates, no torn reads).
func TestRegistryConcurrentMutationStaysConsistent(t *testing.T) {
	r := NewRegistry()
	const n = 200

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			id := string(rune('a' + i%26))
			r.Insert(newTestPeer(id + string(rune('0'+i/26))))
			snap := r.Snapshot("")
			seen := make(map[string]bool, len(snap))
			for _, p := range snap {
				if seen[p.ID] {
					t.Errorf("duplicate id %q in snapshot", p.ID)
				}
				seen[p.ID] = true
			}
		}(i)
	}
	wg.Wait()

	if r.Len() > n {
		t.Errorf("expected at most %d live peers, got %d", n, r.Len())
	}
}
