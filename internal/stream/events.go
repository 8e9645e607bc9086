package stream

import "time"

// Event is the closed set of messages pushed to stream subscribers.
// Each variant carries its own wire tag so dispatch stays exhaustive.
type Event interface {
	EventType() string
}

// PriceUpdate reports the latest simulated price for one symbol.
type PriceUpdate struct {
	Type   string  `json:"type"`
	Ticker string  `json:"ticker"`
	Price  float64 `json:"price"`
	Open   float64 `json:"open"`
}

func NewPriceUpdate(ticker string, price, open float64) PriceUpdate {
	return PriceUpdate{Type: "price_update", Ticker: ticker, Price: price, Open: open}
}

func (PriceUpdate) EventType() string { return "price_update" }

// OrderUpdate reports an order status change, whether simulator- or
// request-driven.
type OrderUpdate struct {
	Type        string `json:"type"`
	OrderID     int64  `json:"order_id"`
	Status      string `json:"status"`
	LastUpdated string `json:"last_updated"`
}

func NewOrderUpdate(orderID int64, status string, lastUpdated time.Time) OrderUpdate {
	return OrderUpdate{
		Type:        "order_update",
		OrderID:     orderID,
		Status:      status,
		LastUpdated: lastUpdated.Format(time.RFC3339Nano),
	}
}

func (OrderUpdate) EventType() string { return "order_update" }

// NewTrade reports a freshly recorded fill.
type NewTrade struct {
	Type            string  `json:"type"`
	TradeID         int64   `json:"trade_id"`
	OrderID         int64   `json:"order_id"`
	Price           float64 `json:"price"`
	Quantity        int     `json:"quantity"`
	Tradingsymbol   string  `json:"tradingsymbol"`
	TransactionType string  `json:"transaction_type"`
	FillTimestamp   string  `json:"fill_timestamp"`
}

func NewNewTrade(tradeID, orderID int64, price float64, quantity int, symbol, transactionType string, fillTimestamp time.Time) NewTrade {
	return NewTrade{
		Type:            "new_trade",
		TradeID:         tradeID,
		OrderID:         orderID,
		Price:           price,
		Quantity:        quantity,
		Tradingsymbol:   symbol,
		TransactionType: transactionType,
		FillTimestamp:   fillTimestamp.Format(time.RFC3339Nano),
	}
}

func (NewTrade) EventType() string { return "new_trade" }
