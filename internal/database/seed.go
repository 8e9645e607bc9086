package database

import (
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tradeboard/tradeboard-api/internal/types"
	"gorm.io/gorm"
)

// DefaultTickers are the symbols tracked by a fresh install.
var DefaultTickers = []types.Ticker{
	{Symbol: "NIFTY", Description: "NIFTY 50 Index", Active: true},
	{Symbol: "BANKNIFTY", Description: "NIFTY Bank Index", Active: true},
	{Symbol: "RELIANCE", Description: "Reliance Industries", Active: true},
	{Symbol: "GOLD", Description: "Gold Futures", Active: true},
	{Symbol: "SILVER", Description: "Silver Futures", Active: true},
}

// Seed populates an empty database with demonstration data. Each section
// only runs when its table is empty, so calling Seed repeatedly never
// duplicates rows.
func Seed(db *gorm.DB) error {
	logger := log.With().Str("component", "seed").Logger()

	var tickerCount int64
	if err := db.Model(&types.Ticker{}).Count(&tickerCount).Error; err != nil {
		return err
	}
	if tickerCount == 0 {
		if err := db.Create(&DefaultTickers).Error; err != nil {
			return err
		}
		logger.Info().Int("tickers", len(DefaultTickers)).Msg("seeded tickers")
	}

	var orderCount int64
	if err := db.Model(&types.Order{}).Count(&orderCount).Error; err != nil {
		return err
	}
	if orderCount == 0 {
		actions := []string{"BUY", "SELL"}
		quantities := []int{25, 50, 75, 100}
		statuses := []string{types.StatusOpen, types.StatusPending, types.StatusFilled}

		orderID := int64(10000)
		var orders []types.Order
		for _, t := range DefaultTickers {
			for i := 0; i < 5; i++ {
				orderID++
				orders = append(orders, types.Order{
					OrderID:     orderID,
					Ticker:      t.Symbol,
					Action:      actions[rand.Intn(len(actions))],
					Quantity:    quantities[rand.Intn(len(quantities))],
					Price:       round2(100.0 + rand.Float64()*49900.0),
					EntryStatus: statuses[rand.Intn(len(statuses))],
					LastUpdated: time.Now().UTC(),
				})
			}
		}
		if err := db.Create(&orders).Error; err != nil {
			return err
		}
		logger.Info().Int("orders", len(orders)).Msg("seeded orders")
	}

	var tradeCount int64
	if err := db.Model(&types.TradeRecord{}).Count(&tradeCount).Error; err != nil {
		return err
	}
	if tradeCount == 0 {
		var orders []types.Order
		if err := db.Limit(30).Find(&orders).Error; err != nil {
			return err
		}

		tradeID := int64(9000)
		var trades []types.TradeRecord
		for _, o := range orders {
			if rand.Float64() >= 0.6 {
				continue
			}
			tradeID++
			trades = append(trades, types.TradeRecord{
				TradeID:         tradeID,
				OrderID:         o.OrderID,
				Tradingsymbol:   o.Ticker,
				Product:         types.ProductMIS,
				Quantity:        o.Quantity,
				AveragePrice:    o.Price + (rand.Float64()*10 - 5),
				TransactionType: o.Action,
				FillTimestamp:   time.Now().UTC(),
			})
		}
		if len(trades) > 0 {
			if err := db.Create(&trades).Error; err != nil {
				return err
			}
		}
		logger.Info().Int("trades", len(trades)).Msg("seeded trades")
	}

	return nil
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
