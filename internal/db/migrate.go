package db

import (
	"wingo/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.Round{},
		&models.Wager{},
		&models.Wallet{},
		&models.BalanceEvent{},
		&models.ScheduledOutcome{},
		&models.SystemSetting{},
	)
}
