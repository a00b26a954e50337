package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet holds one user's spendable balance. Mutations go through atomic
// increments at the storage layer; engine code never does read-then-write.
type Wallet struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement"`
	UserID uint64 `gorm:"not null;uniqueIndex"`

	Balance decimal.Decimal `gorm:"type:numeric(30,8);not null;default:0"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Wallet) TableName() string {
	return "wallets"
}
