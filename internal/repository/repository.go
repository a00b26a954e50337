package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"wingo/internal/models"
)

// Repository is the storage contract the engine runs against. Persisted
// rounds and wagers are the single source of truth; every in-memory lane
// state must stay reconcilable against these records.
type Repository interface {
	// Rounds
	UpsertRound(ctx context.Context, item *models.Round) error
	GetRoundByCode(ctx context.Context, periodCode string) (*models.Round, error)
	GetActiveRoundByDuration(ctx context.Context, durationMinutes int) (*models.Round, error)
	ListStalledActiveRounds(ctx context.Context, now time.Time) ([]models.Round, error)
	UpdateRoundOutcome(ctx context.Context, periodCode string, digit int, color, size string) error
	UpdateRoundStats(ctx context.Context, periodCode string, status string, wagered, paidOut, profit decimal.Decimal) error
	IncrementRoundStats(ctx context.Context, periodCode string, addWagered, addPaidOut decimal.Decimal) error
	UpdateRoundStatus(ctx context.Context, periodCode string, status string) error

	// Wagers
	CreateWager(ctx context.Context, item *models.Wager) error
	ListWagersByPeriod(ctx context.Context, periodCode string) ([]models.Wager, error)
	ListPendingWagersByPeriod(ctx context.Context, periodCode string) ([]models.Wager, error)
	UpdateWagerStatus(ctx context.Context, id uint64, status string, payout *decimal.Decimal) error

	// Wallets. Credit/Debit are atomic increments at the storage layer and
	// return the post-mutation balance.
	CreditBalance(ctx context.Context, userID uint64, amount decimal.Decimal) (decimal.Decimal, error)
	DebitBalance(ctx context.Context, userID uint64, amount decimal.Decimal) (decimal.Decimal, error)
	GetBalance(ctx context.Context, userID uint64) (decimal.Decimal, error)

	// Balance event journal
	InsertBalanceEvent(ctx context.Context, item *models.BalanceEvent) error

	// Admin-scheduled outcomes
	UpsertScheduledOutcome(ctx context.Context, item *models.ScheduledOutcome) error
	GetScheduledOutcome(ctx context.Context, periodCode string) (*models.ScheduledOutcome, error)
	MarkScheduledOutcomeUsed(ctx context.Context, periodCode string) error

	// System settings
	UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error
	GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error)
	ListSystemSettings(ctx context.Context) ([]models.SystemSetting, error)
}
