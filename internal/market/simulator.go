package market

import (
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/tradeboard/tradeboard-api/internal/types"
)

const (
	// maxTickDelta bounds the per-tick random walk step in either direction.
	maxTickDelta = 10.0
	// minPrice is the floor below which a simulated price never falls.
	minPrice = 0.01

	// orderCadence and tradeCadence control how often the scheduler asks
	// for an order-status advance and a trade emission.
	orderCadence = 3
	tradeCadence = 5
)

// Simulator produces the next simulated market state from the current
// one. It keeps no history beyond the inputs it is handed.
type Simulator struct{}

func NewSimulator() *Simulator {
	return &Simulator{}
}

// AdvancePrice applies one bounded random-walk step: a delta drawn
// uniformly from ±maxTickDelta, floored at minPrice, rounded to two
// decimal places.
func (s *Simulator) AdvancePrice(current float64) float64 {
	delta := rand.Float64()*2*maxTickDelta - maxTickDelta
	next := current + delta
	if next < minPrice {
		next = minPrice
	}
	return math.Round(next*100) / 100
}

// NextOrderStatus draws a status uniformly from the full entry-status
// set, independent of the previous status. Reassigning the same status
// is deliberate noise, not a state machine.
func (s *Simulator) NextOrderStatus() string {
	return types.EntryStatuses[rand.Intn(len(types.EntryStatuses))]
}

// BasePrice returns the symbol-dependent starting band for the price
// map, jittered by ±100 and rounded to two decimals.
func (s *Simulator) BasePrice(symbol string) float64 {
	var base float64
	switch {
	case symbol == "GOLD":
		base = 70000.0
	case symbol == "SILVER":
		base = 85000.0
	case strings.Contains(symbol, "NIFTY"):
		base = 22000.0
	default:
		base = 2500.0
	}
	return math.Round((base+rand.Float64()*200-100)*100) / 100
}

// BuildTrade manufactures a fill against order. No matching or risk
// validation happens here; this is illustrative data generation.
func (s *Simulator) BuildTrade(order *types.Order, tradeID int64) *types.TradeRecord {
	return &types.TradeRecord{
		TradeID:         tradeID,
		OrderID:         order.OrderID,
		Tradingsymbol:   order.Ticker,
		Product:         types.ProductMIS,
		Quantity:        order.Quantity,
		AveragePrice:    order.Price,
		TransactionType: order.Action,
		FillTimestamp:   time.Now().UTC(),
	}
}
