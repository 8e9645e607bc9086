package stream

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The dashboard is served from a separate dev origin
	CheckOrigin: func(r *http.Request) bool { return true },
}

// GinHandlers contains the HTTP handler for the live event stream
type GinHandlers struct {
	hub *Hub
	// ensureInit lazily initializes the price maps so the first
	// subscriber gets a snapshot even before the scheduler's first tick
	ensureInit func() error
}

func NewGinHandlers(hub *Hub, ensureInit func() error) *GinHandlers {
	return &GinHandlers{hub: hub, ensureInit: ensureInit}
}

// LiveHandler upgrades the request to a websocket, registers the
// subscriber with the hub and starts its pumps.
func (h *GinHandlers) LiveHandler() gin.HandlerFunc {
	logger := log.With().Str("component", "stream_handler").Logger()

	return func(c *gin.Context) {
		if h.ensureInit != nil {
			if err := h.ensureInit(); err != nil {
				logger.Error().Err(err).Msg("price initialization failed")
			}
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}

		sub := h.hub.Register()
		NewClient(conn, h.hub, sub).Start()
	}
}
