package stream_test

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/tradeboard/tradeboard-api/internal/stream"
)

func startStreamServer(t *testing.T, snap stream.Snapshotter) (*httptest.Server, *stream.Hub) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := stream.NewHub(snap)
	handlers := stream.NewGinHandlers(hub, nil)

	router := gin.New()
	router.GET("/ws/live", handlers.LiveHandler())

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, hub
}

func dialStream(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/live"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn, out interface{}) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := json.Unmarshal(msg, out); err != nil {
		t.Fatalf("decode %s: %v", msg, err)
	}
}

func TestWebsocketSnapshotThenBroadcast(t *testing.T) {
	snap := &fakeSnapshotter{updates: []stream.PriceUpdate{
		stream.NewPriceUpdate("NIFTY", 18600.0, 18500.0),
	}}
	srv, hub := startStreamServer(t, snap)
	conn := dialStream(t, srv)

	// The snapshot arrives first, before any broadcast
	var first stream.PriceUpdate
	readEvent(t, conn, &first)
	if first.Type != "price_update" || first.Ticker != "NIFTY" || first.Price != 18600.0 {
		t.Fatalf("unexpected snapshot event %+v", first)
	}

	// Wait for registration to be visible, then broadcast
	waitFor(t, func() bool { return hub.Len() == 1 })
	hub.Broadcast(stream.NewNewTrade(7, 101, 18600.0, 50, "NIFTY", "BUY", time.Now()))

	var trade stream.NewTrade
	readEvent(t, conn, &trade)
	if trade.Type != "new_trade" || trade.TradeID != 7 || trade.Tradingsymbol != "NIFTY" {
		t.Fatalf("unexpected trade event %+v", trade)
	}
}

func TestWebsocketDisconnectRemovesSubscriber(t *testing.T) {
	srv, hub := startStreamServer(t, nil)
	conn := dialStream(t, srv)

	waitFor(t, func() bool { return hub.Len() == 1 })

	conn.Close()
	waitFor(t, func() bool { return hub.Len() == 0 })
}

func TestWebsocketMultipleSubscribers(t *testing.T) {
	srv, hub := startStreamServer(t, nil)
	a := dialStream(t, srv)
	b := dialStream(t, srv)

	waitFor(t, func() bool { return hub.Len() == 2 })

	hub.Broadcast(stream.NewOrderUpdate(55, "FILLED", time.Now()))

	for _, conn := range []*websocket.Conn{a, b} {
		var ev stream.OrderUpdate
		readEvent(t, conn, &ev)
		if ev.OrderID != 55 || ev.Status != "FILLED" {
			t.Fatalf("unexpected event %+v", ev)
		}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}
