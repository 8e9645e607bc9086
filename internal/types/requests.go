package types

// CreateOrderRequest is the body for POST /orders.
type CreateOrderRequest struct {
	Ticker   string  `json:"ticker" binding:"required"`
	Action   string  `json:"action" binding:"required,oneof=BUY SELL"`
	Quantity int     `json:"quantity" binding:"required,gt=0"`
	Price    float64 `json:"price" binding:"required,gt=0"`
}

// UpdateOrderRequest is the body for PATCH /orders/:order_id.
// Both fields are optional; at least one must be present.
type UpdateOrderRequest struct {
	EntryStatus *string `json:"entry_status"`
	ExitStatus  *string `json:"exit_status"`
}
