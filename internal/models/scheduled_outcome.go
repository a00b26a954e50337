package models

import "time"

// ScheduledOutcome is an admin-planted result for a specific round. When one
// exists for the closing period it is used verbatim and the generator is not
// invoked at all.
type ScheduledOutcome struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	PeriodCode string `gorm:"type:varchar(20);not null;uniqueIndex"`
	Digit      int    `gorm:"type:smallint;not null"`

	Used bool `gorm:"not null;default:false;index"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (ScheduledOutcome) TableName() string {
	return "scheduled_outcomes"
}
