package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	RoundStatusActive    = "active"
	RoundStatusCompleted = "completed"
	RoundStatusCancelled = "cancelled"
)

// Round is one play window of one lane. PeriodCode is deterministic
// (date + duration + sequence) so a restart racing a still-armed timer
// recreates the same row instead of forking a duplicate.
type Round struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	PeriodCode      string `gorm:"type:varchar(20);not null;uniqueIndex"`
	DurationMinutes int    `gorm:"not null;index"`

	StartTime time.Time `gorm:"type:timestamptz;not null"`
	EndTime   time.Time `gorm:"type:timestamptz;not null;index"`

	Status string `gorm:"type:varchar(20);not null;default:'active';index"`

	// Outcome fields stay null until the round completes. Cancelled rounds
	// never get an outcome.
	OutcomeDigit *int   `gorm:"type:smallint"`
	OutcomeColor string `gorm:"type:varchar(10)"`
	OutcomeSize  string `gorm:"type:varchar(10)"`

	TotalWagered decimal.Decimal `gorm:"type:numeric(30,8);not null;default:0"`
	TotalPaidOut decimal.Decimal `gorm:"type:numeric(30,8);not null;default:0"`
	HouseProfit  decimal.Decimal `gorm:"type:numeric(30,8);not null;default:0"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Round) TableName() string {
	return "rounds"
}
