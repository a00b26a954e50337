package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	WagerStatusPending   = "pending"
	WagerStatusWon       = "won"
	WagerStatusLost      = "lost"
	WagerStatusCancelled = "cancelled"
)

const (
	BetTypeColor  = "color"
	BetTypeNumber = "number"
	BetTypeSize   = "size"
)

// Wager is one player stake tied to exactly one round by period code.
// Status moves pending -> won/lost/cancelled exactly once and never reverts.
type Wager struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement"`
	UserID uint64 `gorm:"not null;index"`

	PeriodCode string `gorm:"type:varchar(20);not null;index"`

	BetType string `gorm:"type:varchar(10);not null"`
	// A color name, a digit rendered as string, or a size name.
	BetValue string `gorm:"type:varchar(10);not null"`

	Amount    decimal.Decimal `gorm:"type:numeric(30,8);not null"`
	Potential decimal.Decimal `gorm:"type:numeric(30,8);not null"`

	Status       string           `gorm:"type:varchar(20);not null;default:'pending';index"`
	ActualPayout *decimal.Decimal `gorm:"type:numeric(30,8)"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Wager) TableName() string {
	return "wagers"
}
