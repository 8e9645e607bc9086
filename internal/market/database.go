package market

import (
	"errors"
	"time"

	"github.com/tradeboard/tradeboard-api/internal/types"
	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

func clampLimit(limit, max int) int {
	if limit < 1 {
		return 1
	}
	if limit > max {
		return max
	}
	return limit
}

// GetOpenOrders returns OPEN and PENDING orders, most recently updated first.
func (d *Database) GetOpenOrders() ([]types.Order, error) {
	orders := []types.Order{}
	err := d.db.
		Where("entry_status IN ?", []string{types.StatusOpen, types.StatusPending}).
		Order("last_updated DESC").
		Find(&orders).Error
	return orders, err
}

// GetRecentTrades returns up to limit trades, newest fill first.
// limit is clamped to [1,100].
func (d *Database) GetRecentTrades(limit int) ([]types.TradeRecord, error) {
	trades := []types.TradeRecord{}
	err := d.db.
		Order("fill_timestamp DESC").
		Limit(clampLimit(limit, 100)).
		Find(&trades).Error
	return trades, err
}

// GetTickers returns active tickers in symbol order.
func (d *Database) GetTickers() ([]types.Ticker, error) {
	tickers := []types.Ticker{}
	err := d.db.
		Where("active = ?", true).
		Order("symbol ASC").
		Find(&tickers).Error
	return tickers, err
}

func (d *Database) CreateOrder(order *types.Order) error {
	return d.db.Create(order).Error
}

func (d *Database) GetOrder(orderID int64) (*types.Order, error) {
	var order types.Order
	if err := d.db.Where("order_id = ?", orderID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// UpdateOrderStatus patches an order's entry and/or exit status and bumps
// last_updated. Returns (nil, nil) when the order does not exist.
func (d *Database) UpdateOrderStatus(orderID int64, entryStatus, exitStatus *string) (*types.Order, error) {
	order, err := d.GetOrder(orderID)
	if err != nil || order == nil {
		return nil, err
	}

	if entryStatus != nil {
		order.EntryStatus = *entryStatus
	}
	if exitStatus != nil {
		order.ExitStatus = exitStatus
	}
	order.LastUpdated = time.Now().UTC()

	if err := d.db.Save(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (d *Database) GetTradesByOrder(orderID int64) ([]types.TradeRecord, error) {
	trades := []types.TradeRecord{}
	err := d.db.
		Where("order_id = ?", orderID).
		Order("fill_timestamp DESC").
		Find(&trades).Error
	return trades, err
}

func (d *Database) CreateTrade(trade *types.TradeRecord) error {
	return d.db.Create(trade).Error
}

func (d *Database) AddPriceTick(symbol string, price float64) (*types.PriceTick, error) {
	tick := &types.PriceTick{
		Symbol:    symbol,
		Price:     price,
		Timestamp: time.Now().UTC(),
	}
	if err := d.db.Create(tick).Error; err != nil {
		return nil, err
	}
	return tick, nil
}

// GetPriceHistory returns up to limit of the newest ticks for symbol,
// in ascending chronological order. limit is clamped to [1,200].
func (d *Database) GetPriceHistory(symbol string, limit int) ([]types.PriceTick, error) {
	ticks := []types.PriceTick{}
	err := d.db.
		Where("symbol = ?", symbol).
		Order("timestamp DESC").
		Limit(clampLimit(limit, 200)).
		Find(&ticks).Error
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(ticks)-1; i < j; i, j = i+1, j-1 {
		ticks[i], ticks[j] = ticks[j], ticks[i]
	}
	return ticks, nil
}

// OldestOrder returns the least recently updated order, or (nil, nil)
// when no orders exist. The simulator uses it to guarantee eventual
// coverage of all orders.
func (d *Database) OldestOrder() (*types.Order, error) {
	var order types.Order
	if err := d.db.Order("last_updated ASC").First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// NewestOrder returns the most recently updated order, or (nil, nil)
// when no orders exist.
func (d *Database) NewestOrder() (*types.Order, error) {
	var order types.Order
	if err := d.db.Order("last_updated DESC").First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}
