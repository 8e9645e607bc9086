package stream_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/tradeboard/tradeboard-api/internal/stream"
)

type fakeSnapshotter struct {
	updates []stream.PriceUpdate
}

func (f *fakeSnapshotter) Snapshot() []stream.PriceUpdate { return f.updates }

func recv(t *testing.T, sub *stream.Subscription) []byte {
	t.Helper()
	select {
	case b, ok := <-sub.Events():
		if !ok {
			t.Fatal("subscription channel closed")
		}
		return b
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestBroadcastOrdering(t *testing.T) {
	hub := stream.NewHub(nil)
	sub := hub.Register()
	defer hub.Unregister(sub)

	hub.Broadcast(stream.NewPriceUpdate("NIFTY", 18600.0, 18500.0))
	hub.Broadcast(stream.NewPriceUpdate("NIFTY", 18610.0, 18500.0))

	var first, second stream.PriceUpdate
	if err := json.Unmarshal(recv(t, sub), &first); err != nil {
		t.Fatalf("decode first: %v", err)
	}
	if err := json.Unmarshal(recv(t, sub), &second); err != nil {
		t.Fatalf("decode second: %v", err)
	}

	if first.Price != 18600.0 || second.Price != 18610.0 {
		t.Errorf("events out of order: %f then %f", first.Price, second.Price)
	}
}

func TestBroadcastReachesAllSubscribers(t *testing.T) {
	hub := stream.NewHub(nil)
	a := hub.Register()
	b := hub.Register()
	defer hub.Unregister(a)
	defer hub.Unregister(b)

	hub.Broadcast(stream.NewOrderUpdate(101, "OPEN", time.Now()))

	for _, sub := range []*stream.Subscription{a, b} {
		var ev stream.OrderUpdate
		if err := json.Unmarshal(recv(t, sub), &ev); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if ev.OrderID != 101 || ev.Type != "order_update" {
			t.Errorf("unexpected event %+v", ev)
		}
	}
}

func TestDeadSubscriberIsIsolatedAndRemoved(t *testing.T) {
	hub := stream.NewHub(nil)
	dead := hub.Register()
	healthy := hub.Register()
	defer hub.Unregister(healthy)
	_ = dead // never drained; its buffer fills up and it gets dropped

	// Push more events than the per-subscriber buffer holds while
	// draining only the healthy subscriber.
	done := make(chan int)
	go func() {
		n := 0
		for range healthy.Events() {
			n++
			if n == 300 {
				break
			}
		}
		done <- n
	}()

	for i := 0; i < 300; i++ {
		hub.Broadcast(stream.NewPriceUpdate("NIFTY", float64(18000+i), 18000.0))
		if i%64 == 0 {
			// Give the draining goroutine a chance to keep up so only
			// the undrained subscriber overflows.
			time.Sleep(time.Millisecond)
		}
	}

	select {
	case n := <-done:
		if n != 300 {
			t.Fatalf("healthy subscriber received %d of 300 events", n)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("healthy subscriber starved by dead one")
	}

	if got := hub.Len(); got != 1 {
		t.Errorf("expected dead subscriber to be removed, %d still registered", got)
	}
}

func TestLateJoinSnapshot(t *testing.T) {
	snap := &fakeSnapshotter{updates: []stream.PriceUpdate{
		stream.NewPriceUpdate("NIFTY", 18600.0, 18500.0),
		stream.NewPriceUpdate("GOLD", 70100.0, 70000.0),
	}}
	hub := stream.NewHub(snap)

	sub := hub.Register()
	defer hub.Unregister(sub)

	seen := make(map[string]stream.PriceUpdate)
	for i := 0; i < 2; i++ {
		var ev stream.PriceUpdate
		if err := json.Unmarshal(recv(t, sub), &ev); err != nil {
			t.Fatalf("decode snapshot event: %v", err)
		}
		if ev.Type != "price_update" {
			t.Fatalf("snapshot event type = %q", ev.Type)
		}
		seen[ev.Ticker] = ev
	}

	if got := seen["NIFTY"].Price; got != 18600.0 {
		t.Errorf("NIFTY snapshot price = %f, want current 18600", got)
	}
	if got := seen["GOLD"].Open; got != 70000.0 {
		t.Errorf("GOLD snapshot open = %f, want 70000", got)
	}
}

func TestSnapshotGoesOnlyToNewSubscriber(t *testing.T) {
	snap := &fakeSnapshotter{updates: []stream.PriceUpdate{
		stream.NewPriceUpdate("NIFTY", 18600.0, 18500.0),
	}}
	hub := stream.NewHub(snap)

	early := hub.Register()
	defer hub.Unregister(early)
	// Drain early's own snapshot
	recv(t, early)

	late := hub.Register()
	defer hub.Unregister(late)
	recv(t, late)

	select {
	case b := <-early.Events():
		t.Fatalf("existing subscriber received another event: %s", b)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnregisterIsIdempotent(t *testing.T) {
	hub := stream.NewHub(nil)
	sub := hub.Register()

	hub.Unregister(sub)
	hub.Unregister(sub) // must not panic or double-close

	if hub.Len() != 0 {
		t.Errorf("expected 0 subscribers, got %d", hub.Len())
	}

	// Broadcast after removal must not panic either
	hub.Broadcast(stream.NewPriceUpdate("NIFTY", 18600.0, 18500.0))
}
