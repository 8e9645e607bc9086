package types

// OrdersResponse wraps a list of orders
type OrdersResponse struct {
	Orders []Order `json:"orders"`
}

// TradesResponse wraps a list of trade records
type TradesResponse struct {
	Trades []TradeRecord `json:"trades"`
}

// TickersResponse wraps the active ticker set
type TickersResponse struct {
	Tickers []Ticker `json:"tickers"`
}

// PriceHistoryResponse wraps the tick history for one symbol,
// in ascending chronological order
type PriceHistoryResponse struct {
	Symbol string      `json:"symbol"`
	Ticks  []PriceTick `json:"ticks"`
}
