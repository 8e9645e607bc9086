package market

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/tradeboard/tradeboard-api/internal/stream"
	"github.com/tradeboard/tradeboard-api/internal/types"
	"github.com/tradeboard/tradeboard-api/pkg/response"
	"gorm.io/gorm"
)

// Service handles the request-driven order and market-data paths. Writes
// go straight to the store, outside the tick cadence, and publish their
// own events into the hub.
type Service struct {
	db  *Database
	ids *IDGenerator
	hub Broadcaster
}

func NewService(gormDB *gorm.DB, ids *IDGenerator, hub Broadcaster) *Service {
	return &Service{
		db:  NewDatabase(gormDB),
		ids: ids,
		hub: hub,
	}
}

// DB exposes the store wrapper for components sharing the service's
// database handle.
func (s *Service) DB() *Database {
	return s.db
}

// CreateOrder persists a new OPEN order under a freshly assigned ID and
// publishes the matching order_update event.
func (s *Service) CreateOrder(req types.CreateOrderRequest) (*types.Order, error) {
	order := &types.Order{
		OrderID:     s.ids.Next(),
		Ticker:      req.Ticker,
		Action:      req.Action,
		Quantity:    req.Quantity,
		Price:       req.Price,
		EntryStatus: types.StatusOpen,
		LastUpdated: time.Now().UTC(),
	}

	if err := s.db.CreateOrder(order); err != nil {
		return nil, err
	}

	s.hub.Broadcast(stream.NewOrderUpdate(order.OrderID, order.EntryStatus, order.LastUpdated))
	return order, nil
}

// UpdateOrder patches an order's statuses and publishes the resulting
// order_update. Returns (nil, nil) when the order does not exist.
func (s *Service) UpdateOrder(orderID int64, req types.UpdateOrderRequest) (*types.Order, error) {
	order, err := s.db.UpdateOrderStatus(orderID, req.EntryStatus, req.ExitStatus)
	if err != nil || order == nil {
		return nil, err
	}

	s.hub.Broadcast(stream.NewOrderUpdate(order.OrderID, order.EntryStatus, order.LastUpdated))
	return order, nil
}

func (s *Service) GetOrder(orderID int64) (*types.Order, error) {
	return s.db.GetOrder(orderID)
}

func (s *Service) GetOpenOrders() ([]types.Order, error) {
	return s.db.GetOpenOrders()
}

func (s *Service) GetRecentTrades(limit int) ([]types.TradeRecord, error) {
	return s.db.GetRecentTrades(limit)
}

func (s *Service) GetTradesByOrder(orderID int64) ([]types.TradeRecord, error) {
	return s.db.GetTradesByOrder(orderID)
}

func (s *Service) GetTickers() ([]types.Ticker, error) {
	return s.db.GetTickers()
}

func (s *Service) GetPriceHistory(symbol string, limit int) ([]types.PriceTick, error) {
	return s.db.GetPriceHistory(symbol, limit)
}

// GinHandlers contains HTTP handlers for the dashboard endpoints
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{service: service}
}

// CreateOrderHandler handles POST /orders.
// Request body: ticker, action (BUY/SELL), quantity > 0, price > 0.
func (h *GinHandlers) CreateOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.CreateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		order, err := h.service.CreateOrder(req)
		if err != nil {
			log.Error().Err(err).Msg("failed to create order")
			response.InternalError(c, "failed to create order")
			return
		}

		response.Success(c, order)
	}
}

// UpdateOrderHandler handles PATCH /orders/:order_id.
// At least one of entry_status, exit_status must be present.
func (h *GinHandlers) UpdateOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, ok := parseOrderID(c)
		if !ok {
			return
		}

		var req types.UpdateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		if req.EntryStatus == nil && req.ExitStatus == nil {
			response.BadRequest(c, "at least one of entry_status or exit_status is required")
			return
		}
		if req.EntryStatus != nil && !types.ValidEntryStatus(*req.EntryStatus) {
			response.BadRequest(c, "invalid entry_status")
			return
		}

		order, err := h.service.UpdateOrder(orderID, req)
		if err != nil {
			log.Error().Err(err).Int64("order_id", orderID).Msg("failed to update order")
			response.InternalError(c, "failed to update order")
			return
		}
		if order == nil {
			response.NotFound(c, "Order not found")
			return
		}

		response.Success(c, order)
	}
}

// GetOrderHandler handles GET /orders/:order_id.
func (h *GinHandlers) GetOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, ok := parseOrderID(c)
		if !ok {
			return
		}

		order, err := h.service.GetOrder(orderID)
		if err != nil {
			response.InternalError(c, "failed to load order")
			return
		}
		if order == nil {
			response.NotFound(c, "Order not found")
			return
		}

		response.Success(c, order)
	}
}

// GetOpenOrdersHandler handles GET /orders/open.
func (h *GinHandlers) GetOpenOrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orders, err := h.service.GetOpenOrders()
		if err != nil {
			response.InternalError(c, "failed to load open orders")
			return
		}
		response.Success(c, types.OrdersResponse{Orders: orders})
	}
}

// GetRecentTradesHandler handles GET /trades/recent?limit=N.
func (h *GinHandlers) GetRecentTradesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := parseLimit(c, 100)
		trades, err := h.service.GetRecentTrades(limit)
		if err != nil {
			response.InternalError(c, "failed to load trades")
			return
		}
		response.Success(c, types.TradesResponse{Trades: trades})
	}
}

// GetTradesByOrderHandler handles GET /trades/by-order/:order_id.
func (h *GinHandlers) GetTradesByOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, ok := parseOrderID(c)
		if !ok {
			return
		}

		trades, err := h.service.GetTradesByOrder(orderID)
		if err != nil {
			response.InternalError(c, "failed to load trades")
			return
		}
		response.Success(c, types.TradesResponse{Trades: trades})
	}
}

// GetTickersHandler handles GET /tickers.
func (h *GinHandlers) GetTickersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		tickers, err := h.service.GetTickers()
		if err != nil {
			response.InternalError(c, "failed to load tickers")
			return
		}
		response.Success(c, types.TickersResponse{Tickers: tickers})
	}
}

// GetPriceHistoryHandler handles GET /prices/:symbol?limit=N.
func (h *GinHandlers) GetPriceHistoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		symbol := c.Param("symbol")
		if symbol == "" {
			response.BadRequest(c, "symbol is required")
			return
		}

		limit := parseLimit(c, 10)
		ticks, err := h.service.GetPriceHistory(symbol, limit)
		if err != nil {
			response.InternalError(c, "failed to load price history")
			return
		}
		response.Success(c, types.PriceHistoryResponse{Symbol: symbol, Ticks: ticks})
	}
}

func parseOrderID(c *gin.Context) (int64, bool) {
	orderID, err := strconv.ParseInt(c.Param("order_id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "order_id must be an integer")
		return 0, false
	}
	return orderID, true
}

func parseLimit(c *gin.Context, fallback int) int {
	raw := c.Query("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return limit
}
