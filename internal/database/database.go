package database

import (
	"github.com/tradeboard/tradeboard-api/internal/types"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase initializes and returns a new GORM DB connection
func NewDatabase(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	err = db.AutoMigrate(
		&types.Ticker{},
		&types.Order{},
		&types.TradeRecord{},
		&types.PriceTick{},
	)
	if err != nil {
		return nil, err
	}

	return db, nil
}
