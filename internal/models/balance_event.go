package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	BalanceEventWin    = "win"
	BalanceEventLoss   = "loss"
	BalanceEventRefund = "refund"
)

// BalanceEvent is the persisted mirror of every balance-change event put on
// the bus. Downstream consumers use the stream for animation sequencing only;
// this journal is the replayable record.
type BalanceEvent struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement"`
	UserID uint64 `gorm:"not null;index"`

	PeriodCode string `gorm:"type:varchar(20);not null;index"`
	WagerID    uint64 `gorm:"not null;index"`

	Kind   string          `gorm:"type:varchar(10);not null"`
	Amount decimal.Decimal `gorm:"type:numeric(30,8);not null"`
	// Balance after the change for win/refund, the pre-bet balance for loss.
	Balance decimal.Decimal `gorm:"type:numeric(30,8);not null"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (BalanceEvent) TableName() string {
	return "balance_events"
}
