package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tradeboard/tradeboard-api/internal/types"
)

const (
	numWorkers      = 5
	ordersPerWorker = 10
	listenDuration  = 15 * time.Second
)

// init configures the logger for the load generator with pretty printing
// and timestamps
func init() {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

// routeStats tracks performance statistics for an API endpoint
type routeStats struct {
	name       string
	durations  []time.Duration
	totalCalls int
	failures   int
}

// addDuration records a new duration measurement for the route
func (rs *routeStats) addDuration(d time.Duration) {
	rs.durations = append(rs.durations, d)
	rs.totalCalls++
}

// calculate computes performance statistics from recorded durations
// Returns min, max, mean, median, 95th percentile, and 99th percentile durations
func (rs *routeStats) calculate() (min, max, mean, median, p95, p99 time.Duration) {
	if len(rs.durations) == 0 {
		return 0, 0, 0, 0, 0, 0
	}

	sort.Slice(rs.durations, func(i, j int) bool {
		return rs.durations[i] < rs.durations[j]
	})

	min = rs.durations[0]
	max = rs.durations[len(rs.durations)-1]

	var sum time.Duration
	for _, d := range rs.durations {
		sum += d
	}
	mean = sum / time.Duration(len(rs.durations))
	median = rs.durations[len(rs.durations)/2]

	p95idx := int(math.Ceil(float64(len(rs.durations))*0.95)) - 1
	p99idx := int(math.Ceil(float64(len(rs.durations))*0.99)) - 1
	p95 = rs.durations[p95idx]
	p99 = rs.durations[p99idx]

	return
}

// loadClient handles HTTP communication with the dashboard API
type loadClient struct {
	baseURL string
	client  *http.Client

	mu    sync.Mutex
	stats map[string]*routeStats
}

func newLoadClient(baseURL string) *loadClient {
	return &loadClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		stats: map[string]*routeStats{
			"create":  {name: "Create Order"},
			"patch":   {name: "Patch Order"},
			"get":     {name: "Get Order"},
			"open":    {name: "Open Orders"},
			"history": {name: "Price History"},
		},
	}
}

func (lc *loadClient) record(route string, start time.Time, failed bool) {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	rs := lc.stats[route]
	rs.addDuration(time.Since(start))
	if failed {
		rs.failures++
	}
}

// envelope mirrors the API's response wrapper
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

func (lc *loadClient) do(route, method, path string, body, out interface{}) error {
	start := time.Now()
	failed := true
	defer func() { lc.record(route, start, failed) }()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewBuffer(b)
	}

	req, err := http.NewRequest(method, lc.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := lc.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("%s %s failed with status %d: %s", method, path, resp.StatusCode, string(respBody))
	}

	if out != nil {
		var env envelope
		if err := json.Unmarshal(respBody, &env); err != nil {
			return fmt.Errorf("failed to decode response: %w, body: %s", err, string(respBody))
		}
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("failed to decode data: %w, body: %s", err, string(respBody))
		}
	}

	failed = false
	return nil
}

// listenStream holds a websocket subscription and counts events by type
// until the duration elapses
func listenStream(wsURL string, duration time.Duration) (map[string]int, error) {
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	counts := make(map[string]int)
	deadline := time.Now().Add(duration)

	for time.Now().Before(deadline) {
		conn.SetReadDeadline(deadline)
		_, msg, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var ev struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(msg, &ev); err != nil {
			continue
		}
		counts[ev.Type]++
	}

	return counts, nil
}

// runWorker generates random order traffic against the API
func runWorker(workerID int, lc *loadClient, tickers []types.Ticker) {
	quantities := []int{25, 50, 75, 100}
	actions := []string{"BUY", "SELL"}
	statuses := []string{"OPEN", "PENDING", "FILLED", "CANCELLED"}

	for i := 0; i < ordersPerWorker; i++ {
		ticker := tickers[rand.Intn(len(tickers))]
		createReq := types.CreateOrderRequest{
			Ticker:   ticker.Symbol,
			Action:   actions[rand.Intn(len(actions))],
			Quantity: quantities[rand.Intn(len(quantities))],
			Price:    float64(rand.Intn(20000)+100) + rand.Float64(),
		}

		var order types.Order
		if err := lc.do("create", "POST", "/orders", createReq, &order); err != nil {
			log.Error().Err(err).Int("worker_id", workerID).Msg("Failed to create order")
			continue
		}
		log.Info().
			Int("worker_id", workerID).
			Int64("order_id", order.OrderID).
			Str("ticker", order.Ticker).
			Msg("Order created")

		// Patch roughly half of the created orders
		if rand.Float64() < 0.5 {
			status := statuses[rand.Intn(len(statuses))]
			patch := types.UpdateOrderRequest{EntryStatus: &status}
			var patched types.Order
			path := fmt.Sprintf("/orders/%d", order.OrderID)
			if err := lc.do("patch", "PATCH", path, patch, &patched); err != nil {
				log.Error().Err(err).Int64("order_id", order.OrderID).Msg("Failed to patch order")
			}
		}

		var fetched types.Order
		if err := lc.do("get", "GET", fmt.Sprintf("/orders/%d", order.OrderID), nil, &fetched); err != nil {
			log.Error().Err(err).Int64("order_id", order.OrderID).Msg("Failed to fetch order")
		}

		var history types.PriceHistoryResponse
		if err := lc.do("history", "GET", fmt.Sprintf("/prices/%s?limit=20", ticker.Symbol), nil, &history); err != nil {
			log.Error().Err(err).Str("symbol", ticker.Symbol).Msg("Failed to fetch price history")
		}

		time.Sleep(time.Duration(rand.Intn(500)) * time.Millisecond)
	}
}

// printPerformanceStats prints the recorded latency distribution per route
func (lc *loadClient) printPerformanceStats() {
	fmt.Println("\nAPI Performance Statistics")
	fmt.Println("--------------------------")
	fmt.Printf("%-15s %8s %8s %10s %10s %10s %10s %10s %10s\n",
		"Route", "Calls", "Failed", "Min", "Max", "Mean", "Median", "P95", "P99")

	lc.mu.Lock()
	defer lc.mu.Unlock()
	for _, rs := range lc.stats {
		min, max, mean, median, p95, p99 := rs.calculate()
		fmt.Printf("%-15s %8d %8d %10v %10v %10v %10v %10v %10v\n",
			rs.name, rs.totalCalls, rs.failures,
			min.Round(time.Microsecond), max.Round(time.Microsecond),
			mean.Round(time.Microsecond), median.Round(time.Microsecond),
			p95.Round(time.Microsecond), p99.Round(time.Microsecond))
	}
}

func main() {
	baseURL := os.Getenv("TARGET")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	wsURL := "ws" + baseURL[len("http"):] + "/ws/live"

	lc := newLoadClient(baseURL)

	var tickersResp types.TickersResponse
	if err := lc.do("open", "GET", "/tickers", nil, &tickersResp); err != nil {
		log.Fatal().Err(err).Msg("Failed to load tickers; is the server running?")
	}
	if len(tickersResp.Tickers) == 0 {
		log.Fatal().Msg("No active tickers available")
	}

	// Hold a stream subscription for the duration of the run
	var eventCounts map[string]int
	var streamErr error
	streamDone := make(chan struct{})
	go func() {
		defer close(streamDone)
		eventCounts, streamErr = listenStream(wsURL, listenDuration)
	}()

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			runWorker(workerID, lc, tickersResp.Tickers)
		}(i)
	}
	wg.Wait()

	var openOrders types.OrdersResponse
	if err := lc.do("open", "GET", "/orders/open", nil, &openOrders); err != nil {
		log.Error().Err(err).Msg("Failed to fetch open orders")
	}

	<-streamDone
	if streamErr != nil {
		log.Error().Err(streamErr).Msg("Stream subscription failed")
	}

	log.Info().
		Dur("duration", time.Since(start).Round(time.Millisecond)).
		Int("open_orders", len(openOrders.Orders)).
		Msg("Load run completed")

	fmt.Println("\nStream Events Observed")
	fmt.Println("----------------------")
	for evType, count := range eventCounts {
		fmt.Printf("%-15s: %d\n", evType, count)
	}

	lc.printPerformanceStats()
}
