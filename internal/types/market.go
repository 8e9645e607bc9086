package types

import (
	"time"

	"gorm.io/gorm"
)

// Order is a simulated order on the dashboard. OrderID is the externally
// visible identity; the gorm surrogate key never leaves the store.
type Order struct {
	gorm.Model  `json:"-"`
	OrderID     int64     `gorm:"uniqueIndex" json:"order_id"`
	Ticker      string    `gorm:"index" json:"ticker"`
	Action      string    `json:"action"` // BUY or SELL
	Quantity    int       `json:"quantity"`
	Price       float64   `json:"price"`
	EntryStatus string    `gorm:"index" json:"entry_status"` // OPEN, PENDING, FILLED, CANCELLED
	ExitStatus  *string   `json:"exit_status"`
	LastUpdated time.Time `gorm:"index" json:"last_updated"`
}

// TradeRecord is an append-only fill record. OrderID is a weak reference:
// it is never re-validated against the orders table.
type TradeRecord struct {
	gorm.Model      `json:"-"`
	TradeID         int64     `gorm:"uniqueIndex" json:"trade_id"`
	OrderID         int64     `gorm:"index" json:"order_id"`
	Tradingsymbol   string    `gorm:"index" json:"tradingsymbol"`
	Product         string    `json:"product"`
	Quantity        int       `json:"quantity"`
	AveragePrice    float64   `json:"average_price"`
	TransactionType string    `json:"transaction_type"` // BUY or SELL
	FillTimestamp   time.Time `gorm:"index" json:"fill_timestamp"`
}

type Ticker struct {
	gorm.Model  `json:"-"`
	Symbol      string `gorm:"uniqueIndex" json:"symbol"`
	Description string `json:"description"`
	Active      bool   `json:"active"`
}

// PriceTick is one observed price for a symbol. Pure history log, never
// mutated or deleted.
type PriceTick struct {
	gorm.Model `json:"-"`
	Symbol     string    `gorm:"index" json:"symbol"`
	Price      float64   `json:"price"`
	Timestamp  time.Time `gorm:"index" json:"timestamp"`
}

// Order entry statuses.
const (
	StatusOpen      = "OPEN"
	StatusPending   = "PENDING"
	StatusFilled    = "FILLED"
	StatusCancelled = "CANCELLED"
)

// EntryStatuses lists every valid order entry status.
var EntryStatuses = []string{StatusOpen, StatusPending, StatusFilled, StatusCancelled}

// ValidEntryStatus reports whether s is a known entry status.
func ValidEntryStatus(s string) bool {
	for _, v := range EntryStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// ProductMIS is the constant product tag carried on every trade.
const ProductMIS = "MIS"
