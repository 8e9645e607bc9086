package market

import (
	"fmt"
	"testing"
	"time"

	"github.com/tradeboard/tradeboard-api/internal/database"
	"github.com/tradeboard/tradeboard-api/internal/types"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := database.NewDatabase(dsn)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	return NewDatabase(db)
}

func makeOrder(id int64, status string) *types.Order {
	return &types.Order{
		OrderID:     id,
		Ticker:      "NIFTY",
		Action:      "BUY",
		Quantity:    50,
		Price:       18600.0,
		EntryStatus: status,
		LastUpdated: time.Now().UTC(),
	}
}

func TestGetOpenOrdersFiltersAndOrders(t *testing.T) {
	d := newTestDatabase(t)

	statuses := []string{types.StatusOpen, types.StatusPending, types.StatusFilled, types.StatusCancelled}
	for i, status := range statuses {
		order := makeOrder(int64(100+i), status)
		order.LastUpdated = time.Now().UTC().Add(time.Duration(i) * time.Second)
		if err := d.CreateOrder(order); err != nil {
			t.Fatalf("create order: %v", err)
		}
	}

	open, err := d.GetOpenOrders()
	if err != nil {
		t.Fatalf("get open orders: %v", err)
	}
	if len(open) != 2 {
		t.Fatalf("expected 2 open orders, got %d", len(open))
	}
	// PENDING was updated later than OPEN, so it comes first
	if open[0].EntryStatus != types.StatusPending || open[1].EntryStatus != types.StatusOpen {
		t.Errorf("unexpected order: %s then %s", open[0].EntryStatus, open[1].EntryStatus)
	}
}

func TestUpdateOrderStatusAdvancesLastUpdated(t *testing.T) {
	d := newTestDatabase(t)

	order := makeOrder(200, types.StatusOpen)
	order.LastUpdated = time.Now().UTC().Add(-time.Minute)
	if err := d.CreateOrder(order); err != nil {
		t.Fatalf("create order: %v", err)
	}
	before := order.LastUpdated

	status := types.StatusFilled
	updated, err := d.UpdateOrderStatus(200, &status, nil)
	if err != nil {
		t.Fatalf("update order: %v", err)
	}
	if updated.EntryStatus != types.StatusFilled {
		t.Errorf("entry_status = %q, want FILLED", updated.EntryStatus)
	}
	if !updated.LastUpdated.After(before) {
		t.Errorf("last_updated %v not after %v", updated.LastUpdated, before)
	}

	fetched, err := d.GetOrder(200)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if fetched.EntryStatus != types.StatusFilled {
		t.Errorf("persisted entry_status = %q, want FILLED", fetched.EntryStatus)
	}
}

func TestUpdateOrderStatusPatchesExitStatus(t *testing.T) {
	d := newTestDatabase(t)

	if err := d.CreateOrder(makeOrder(201, types.StatusOpen)); err != nil {
		t.Fatalf("create order: %v", err)
	}

	exit := "SQUARED_OFF"
	updated, err := d.UpdateOrderStatus(201, nil, &exit)
	if err != nil {
		t.Fatalf("update order: %v", err)
	}
	if updated.ExitStatus == nil || *updated.ExitStatus != "SQUARED_OFF" {
		t.Errorf("exit_status not patched: %v", updated.ExitStatus)
	}
	// Entry status untouched
	if updated.EntryStatus != types.StatusOpen {
		t.Errorf("entry_status = %q, want OPEN", updated.EntryStatus)
	}
}

func TestUpdateOrderStatusNotFound(t *testing.T) {
	d := newTestDatabase(t)

	status := types.StatusFilled
	updated, err := d.UpdateOrderStatus(99999, &status, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated != nil {
		t.Fatalf("expected nil order for unknown id, got %+v", updated)
	}
}

func TestGetOrderNotFound(t *testing.T) {
	d := newTestDatabase(t)

	order, err := d.GetOrder(42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order != nil {
		t.Fatalf("expected nil, got %+v", order)
	}
}

func TestGetPriceHistoryLimitAndOrder(t *testing.T) {
	d := newTestDatabase(t)

	for i := 0; i < 20; i++ {
		if _, err := d.AddPriceTick("NIFTY", 18000.0+float64(i)); err != nil {
			t.Fatalf("add tick: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	ticks, err := d.GetPriceHistory("NIFTY", 5)
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	if len(ticks) != 5 {
		t.Fatalf("expected 5 ticks, got %d", len(ticks))
	}
	for i := 1; i < len(ticks); i++ {
		if ticks[i].Timestamp.Before(ticks[i-1].Timestamp) {
			t.Errorf("ticks not in ascending order at %d", i)
		}
	}
	// The newest 5 ticks are returned: prices 18015..18019
	if ticks[len(ticks)-1].Price != 18019.0 {
		t.Errorf("last tick price = %f, want 18019", ticks[len(ticks)-1].Price)
	}
}

func TestLimitClamping(t *testing.T) {
	d := newTestDatabase(t)

	if _, err := d.AddPriceTick("NIFTY", 18000.0); err != nil {
		t.Fatalf("add tick: %v", err)
	}

	// Out-of-range limits are clamped, not rejected
	if _, err := d.GetPriceHistory("NIFTY", 0); err != nil {
		t.Errorf("limit 0: %v", err)
	}
	if _, err := d.GetPriceHistory("NIFTY", 100000); err != nil {
		t.Errorf("huge limit: %v", err)
	}
	if _, err := d.GetRecentTrades(-5); err != nil {
		t.Errorf("negative limit: %v", err)
	}
}

func TestOldestAndNewestOrder(t *testing.T) {
	d := newTestDatabase(t)

	oldest := makeOrder(300, types.StatusOpen)
	oldest.LastUpdated = time.Now().UTC().Add(-time.Hour)
	newest := makeOrder(301, types.StatusOpen)
	newest.LastUpdated = time.Now().UTC()

	for _, o := range []*types.Order{oldest, newest} {
		if err := d.CreateOrder(o); err != nil {
			t.Fatalf("create order: %v", err)
		}
	}

	o, err := d.OldestOrder()
	if err != nil {
		t.Fatalf("oldest: %v", err)
	}
	if o.OrderID != 300 {
		t.Errorf("oldest order_id = %d, want 300", o.OrderID)
	}

	n, err := d.NewestOrder()
	if err != nil {
		t.Fatalf("newest: %v", err)
	}
	if n.OrderID != 301 {
		t.Errorf("newest order_id = %d, want 301", n.OrderID)
	}
}

func TestOldestOrderEmpty(t *testing.T) {
	d := newTestDatabase(t)

	o, err := d.OldestOrder()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o != nil {
		t.Fatalf("expected nil on empty table, got %+v", o)
	}
}

func TestGetTradesByOrder(t *testing.T) {
	d := newTestDatabase(t)

	for i := int64(0); i < 3; i++ {
		trade := &types.TradeRecord{
			TradeID:         1000 + i,
			OrderID:         500,
			Tradingsymbol:   "NIFTY",
			Product:         types.ProductMIS,
			Quantity:        50,
			AveragePrice:    18600.0,
			TransactionType: "BUY",
			FillTimestamp:   time.Now().UTC(),
		}
		if err := d.CreateTrade(trade); err != nil {
			t.Fatalf("create trade: %v", err)
		}
	}

	trades, err := d.GetTradesByOrder(500)
	if err != nil {
		t.Fatalf("get trades: %v", err)
	}
	if len(trades) != 3 {
		t.Fatalf("expected 3 trades, got %d", len(trades))
	}

	none, err := d.GetTradesByOrder(501)
	if err != nil {
		t.Fatalf("get trades: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no trades, got %d", len(none))
	}
}
