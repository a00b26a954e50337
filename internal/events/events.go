package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"wingo/internal/models"
)

const (
	TypeRoundStarted   = "round_started"
	TypeRoundEnded     = "round_ended"
	TypeRoundCancelled = "round_cancelled"
	TypeBalanceChange  = "balance_change"
	TypeLaneSnapshot   = "lane_snapshot"
)

// Event is the wire shape put on the bus. Consumers use the stream for UI
// sequencing only; financial truth is the persisted records.
type Event struct {
	ID      string         `json:"id"`
	Type    string         `json:"type"`
	At      time.Time      `json:"at"`
	Payload map[string]any `json:"payload"`
}

// Publisher is fire-and-forget: implementations never block the engine on
// subscriber availability.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

func New(eventType string, payload map[string]any) Event {
	return Event{
		ID:      uuid.NewString(),
		Type:    eventType,
		At:      time.Now().UTC(),
		Payload: payload,
	}
}

func RoundStarted(r *models.Round) Event {
	return New(TypeRoundStarted, map[string]any{
		"period_code":      r.PeriodCode,
		"duration_minutes": r.DurationMinutes,
		"start_time":       r.StartTime,
		"end_time":         r.EndTime,
	})
}

func RoundEnded(r *models.Round, digit int) Event {
	return New(TypeRoundEnded, map[string]any{
		"period_code":      r.PeriodCode,
		"duration_minutes": r.DurationMinutes,
		"outcome_digit":    digit,
		"outcome_color":    r.OutcomeColor,
		"outcome_size":     r.OutcomeSize,
		"total_wagered":    r.TotalWagered.StringFixed(8),
		"total_paid_out":   r.TotalPaidOut.StringFixed(8),
		"house_profit":     r.HouseProfit.StringFixed(8),
	})
}

func RoundCancelled(r *models.Round) Event {
	return New(TypeRoundCancelled, map[string]any{
		"period_code":      r.PeriodCode,
		"duration_minutes": r.DurationMinutes,
	})
}

func BalanceChange(kind string, userID uint64, wagerID uint64, periodCode string, amount, balance decimal.Decimal) Event {
	return New(TypeBalanceChange, map[string]any{
		"kind":        kind,
		"user_id":     userID,
		"wager_id":    wagerID,
		"period_code": periodCode,
		"amount":      amount.StringFixed(8),
		"balance":     balance.StringFixed(8),
	})
}

// NopPublisher drops everything; used in tests and when Redis is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, event Event) {}
