package stream

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tradeboard/tradeboard-api/internal/metrics"
)

// sendBuffer is the per-subscriber outbound queue depth. A subscriber
// that falls this far behind is treated as dead and removed.
const sendBuffer = 256

// Snapshotter provides the current per-symbol price state sent to a
// subscriber on connect.
type Snapshotter interface {
	Snapshot() []PriceUpdate
}

// Subscription is one registered subscriber. Events arrive pre-serialized
// on Events(); the channel is closed when the subscription is removed.
type Subscription struct {
	ID uuid.UUID
	ch chan []byte
}

// Events returns the subscriber's delivery channel.
func (s *Subscription) Events() <-chan []byte { return s.ch }

// Hub fans events out to every connected subscriber. Registration,
// removal and broadcast may all race; the registry is guarded so
// broadcast always iterates a consistent view.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uuid.UUID]*Subscription
	snap   Snapshotter
	logger zerolog.Logger
}

func NewHub(snap Snapshotter) *Hub {
	return &Hub{
		subs:   make(map[uuid.UUID]*Subscription),
		snap:   snap,
		logger: log.With().Str("component", "broadcast_hub").Logger(),
	}
}

// Register adds a new subscriber and queues the current price snapshot
// for it alone. Late joiners see current prices without waiting for the
// next tick.
func (h *Hub) Register() *Subscription {
	sub := &Subscription{
		ID: uuid.New(),
		ch: make(chan []byte, sendBuffer),
	}

	if h.snap != nil {
		for _, ev := range h.snap.Snapshot() {
			b, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			sub.ch <- b
		}
	}

	h.mu.Lock()
	h.subs[sub.ID] = sub
	count := len(h.subs)
	h.mu.Unlock()

	metrics.ActiveSubscribers.Inc()
	h.logger.Debug().Str("subscriber", sub.ID.String()).Int("active", count).Msg("subscriber connected")
	return sub
}

// Unregister removes a subscriber and closes its channel. Safe to call
// more than once for the same subscription.
func (h *Hub) Unregister(sub *Subscription) {
	if sub == nil {
		return
	}

	h.mu.Lock()
	_, present := h.subs[sub.ID]
	if present {
		delete(h.subs, sub.ID)
		close(sub.ch)
	}
	count := len(h.subs)
	h.mu.Unlock()

	if present {
		metrics.ActiveSubscribers.Dec()
		h.logger.Debug().Str("subscriber", sub.ID.String()).Int("active", count).Msg("subscriber disconnected")
	}
}

// Broadcast delivers ev to every connected subscriber. Delivery is
// best-effort: a subscriber whose queue is full is dropped without
// affecting the others. Events broadcast sequentially by one producer
// reach each surviving subscriber in the same order.
func (h *Hub) Broadcast(ev Event) {
	b, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error().Err(err).Str("type", ev.EventType()).Msg("failed to encode event")
		return
	}

	var dead []*Subscription
	h.mu.RLock()
	for _, sub := range h.subs {
		select {
		case sub.ch <- b:
		default:
			dead = append(dead, sub)
		}
	}
	h.mu.RUnlock()

	metrics.EventsBroadcast.WithLabelValues(ev.EventType()).Inc()

	for _, sub := range dead {
		h.Unregister(sub)
		metrics.DroppedSubscribers.Inc()
		h.logger.Warn().Str("subscriber", sub.ID.String()).Msg("dropped unresponsive subscriber")
	}
}

// Len reports the number of connected subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
