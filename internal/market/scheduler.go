package market

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tradeboard/tradeboard-api/internal/metrics"
	"github.com/tradeboard/tradeboard-api/internal/stream"
)

// Broadcaster is the hub surface the scheduler and request handlers
// publish into.
type Broadcaster interface {
	Broadcast(ev stream.Event)
}

// BroadcasterFunc adapts a function to the Broadcaster interface.
type BroadcasterFunc func(ev stream.Event)

func (f BroadcasterFunc) Broadcast(ev stream.Event) { f(ev) }

// persistQueueDepth bounds the backlog of price-tick writes waiting on
// the store. A full queue drops the write, never the tick.
const persistQueueDepth = 256

type tickWrite struct {
	symbol string
	price  float64
}

// Scheduler drives the market simulation on a fixed cadence. It owns the
// in-memory current/open price maps; every other component reads them
// only through Snapshot.
type Scheduler struct {
	db       *Database
	sim      *Simulator
	ids      *IDGenerator
	hub      Broadcaster
	interval time.Duration
	logger   zerolog.Logger

	mu      sync.RWMutex
	current map[string]float64
	dayOpen map[string]float64

	persistCh chan tickWrite
}

func NewScheduler(db *Database, sim *Simulator, ids *IDGenerator, hub Broadcaster, interval time.Duration) *Scheduler {
	return &Scheduler{
		db:        db,
		sim:       sim,
		ids:       ids,
		hub:       hub,
		interval:  interval,
		logger:    log.With().Str("component", "tick_scheduler").Logger(),
		current:   make(map[string]float64),
		dayOpen:   make(map[string]float64),
		persistCh: make(chan tickWrite, persistQueueDepth),
	}
}

// InitPricesOnce populates the price maps from the active tickers. The
// first caller wins; later calls return immediately. Both the run loop
// and the subscriber-connect path may race to call it.
func (s *Scheduler) InitPricesOnce() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.current) > 0 {
		return nil
	}

	tickers, err := s.db.GetTickers()
	if err != nil {
		return err
	}

	for _, t := range tickers {
		price := s.sim.BasePrice(t.Symbol)
		s.current[t.Symbol] = price
		s.dayOpen[t.Symbol] = price
	}

	s.logger.Info().Int("symbols", len(s.current)).Msg("initialized price map")
	return nil
}

// Snapshot returns the current per-symbol price state as ready-to-send
// events. The new-subscriber path uses it so late joiners see prices
// without waiting for the next tick.
func (s *Scheduler) Snapshot() []stream.PriceUpdate {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]stream.PriceUpdate, 0, len(s.current))
	for sym, price := range s.current {
		out = append(out, stream.NewPriceUpdate(sym, price, s.dayOpen[sym]))
	}
	return out
}

// Run drives the tick loop until ctx is cancelled. Storage failures for
// a single symbol or tick are logged and skipped; the loop itself is the
// sole source of simulated market time and never stops on them.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info().Dur("interval", s.interval).Msg("starting tick scheduler")

	if err := s.InitPricesOnce(); err != nil {
		s.logger.Error().Err(err).Msg("price initialization failed, retrying on first tick")
	}

	go s.persistLoop(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	tick := 0
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("shutting down tick scheduler")
			return
		case <-ticker.C:
			tick++
			s.step(tick)
		}
	}
}

// step performs one full tick: prices for every symbol, then the
// lower-cadence order and trade advances.
func (s *Scheduler) step(tick int) {
	if err := s.InitPricesOnce(); err != nil {
		s.logger.Error().Err(err).Msg("price initialization failed")
		return
	}

	for _, pu := range s.advancePrices() {
		s.hub.Broadcast(pu)
		select {
		case s.persistCh <- tickWrite{symbol: pu.Ticker, price: pu.Price}:
		default:
			metrics.StoreWriteFailures.WithLabelValues("price_tick").Inc()
			s.logger.Warn().Str("symbol", pu.Ticker).Msg("persist queue full, dropping price tick")
		}
	}

	if tick%orderCadence == 0 {
		s.advanceOrder()
	}
	if tick%tradeCadence == 0 {
		s.emitTrade()
	}

	metrics.TicksProcessed.Inc()
}

// advancePrices walks every tracked symbol one step and returns the
// resulting events. Map mutation happens under the lock; broadcasting
// and persistence happen outside it.
func (s *Scheduler) advancePrices() []stream.PriceUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]stream.PriceUpdate, 0, len(s.current))
	for sym, price := range s.current {
		next := s.sim.AdvancePrice(price)
		s.current[sym] = next
		out = append(out, stream.NewPriceUpdate(sym, next, s.dayOpen[sym]))
	}
	return out
}

func (s *Scheduler) advanceOrder() {
	order, err := s.db.OldestOrder()
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load oldest order")
		return
	}
	if order == nil {
		return
	}

	status := s.sim.NextOrderStatus()
	updated, err := s.db.UpdateOrderStatus(order.OrderID, &status, nil)
	if err != nil || updated == nil {
		metrics.StoreWriteFailures.WithLabelValues("order").Inc()
		s.logger.Error().Err(err).Int64("order_id", order.OrderID).Msg("failed to advance order status")
		return
	}

	s.hub.Broadcast(stream.NewOrderUpdate(updated.OrderID, updated.EntryStatus, updated.LastUpdated))
}

func (s *Scheduler) emitTrade() {
	order, err := s.db.NewestOrder()
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load newest order")
		return
	}
	if order == nil {
		return
	}

	trade := s.sim.BuildTrade(order, s.ids.Next())
	if err := s.db.CreateTrade(trade); err != nil {
		metrics.StoreWriteFailures.WithLabelValues("trade").Inc()
		s.logger.Error().Err(err).Int64("trade_id", trade.TradeID).Msg("failed to persist trade")
		return
	}

	s.hub.Broadcast(stream.NewNewTrade(
		trade.TradeID,
		trade.OrderID,
		trade.AveragePrice,
		trade.Quantity,
		trade.Tradingsymbol,
		trade.TransactionType,
		trade.FillTimestamp,
	))
}

// persistLoop writes queued price ticks to the store off the tick loop's
// critical path, so a slow insert never delays broadcasting or the next
// tick.
func (s *Scheduler) persistLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case w := <-s.persistCh:
			if _, err := s.db.AddPriceTick(w.symbol, w.price); err != nil {
				metrics.StoreWriteFailures.WithLabelValues("price_tick").Inc()
				s.logger.Error().Err(err).Str("symbol", w.symbol).Msg("failed to persist price tick")
			}
		}
	}
}
