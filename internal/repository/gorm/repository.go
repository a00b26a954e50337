package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"wingo/internal/models"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// --- Rounds -----------------------------------------------------------------

// UpsertRound creates the round or updates the existing row in place.
// Period codes are deterministic, so a restart racing a still-armed timer
// recreates the same code; update-in-place is the correct recovery.
func (s *Store) UpsertRound(ctx context.Context, item *models.Round) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if strings.TrimSpace(item.PeriodCode) == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "period_code"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"duration_minutes",
			"start_time",
			"end_time",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) GetRoundByCode(ctx context.Context, periodCode string) (*models.Round, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	periodCode = strings.TrimSpace(periodCode)
	if periodCode == "" {
		return nil, nil
	}
	var item models.Round
	err := s.db.WithContext(ctx).Model(&models.Round{}).Where("period_code = ?", periodCode).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetActiveRoundByDuration(ctx context.Context, durationMinutes int) (*models.Round, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Round
	err := s.db.WithContext(ctx).Model(&models.Round{}).
		Where("duration_minutes = ?", durationMinutes).
		Where("status = ?", models.RoundStatusActive).
		Order("start_time DESC").
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListStalledActiveRounds(ctx context.Context, now time.Time) ([]models.Round, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	var items []models.Round
	err := s.db.WithContext(ctx).Model(&models.Round{}).
		Where("status = ?", models.RoundStatusActive).
		Where("end_time < ?", now).
		Order("end_time ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) UpdateRoundOutcome(ctx context.Context, periodCode string, digit int, color, size string) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Round{}).
		Where("period_code = ?", periodCode).
		Updates(map[string]any{
			"outcome_digit": digit,
			"outcome_color": color,
			"outcome_size":  size,
			"updated_at":    time.Now().UTC(),
		}).Error
}

func (s *Store) UpdateRoundStats(ctx context.Context, periodCode string, status string, wagered, paidOut, profit decimal.Decimal) error {
	if s == nil || s.db == nil {
		return nil
	}
	updates := map[string]any{
		"total_wagered":  wagered,
		"total_paid_out": paidOut,
		"house_profit":   profit,
		"updated_at":     time.Now().UTC(),
	}
	if strings.TrimSpace(status) != "" {
		updates["status"] = strings.TrimSpace(status)
	}
	return s.db.WithContext(ctx).
		Model(&models.Round{}).
		Where("period_code = ?", periodCode).
		Updates(updates).Error
}

// IncrementRoundStats folds straggler totals into an already-settled round
// without racing other writers.
func (s *Store) IncrementRoundStats(ctx context.Context, periodCode string, addWagered, addPaidOut decimal.Decimal) error {
	if s == nil || s.db == nil {
		return nil
	}
	if addWagered.IsZero() && addPaidOut.IsZero() {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Round{}).
		Where("period_code = ?", periodCode).
		Updates(map[string]any{
			"total_wagered":  gorm.Expr("total_wagered + ?", addWagered),
			"total_paid_out": gorm.Expr("total_paid_out + ?", addPaidOut),
			"house_profit":   gorm.Expr("house_profit + ?", addWagered.Sub(addPaidOut)),
			"updated_at":     time.Now().UTC(),
		}).Error
}

func (s *Store) UpdateRoundStatus(ctx context.Context, periodCode string, status string) error {
	if s == nil || s.db == nil {
		return nil
	}
	if strings.TrimSpace(status) == "" {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Round{}).
		Where("period_code = ?", periodCode).
		Updates(map[string]any{"status": strings.TrimSpace(status), "updated_at": time.Now().UTC()}).Error
}

// --- Wagers -----------------------------------------------------------------

func (s *Store) CreateWager(ctx context.Context, item *models.Wager) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if item.Status == "" {
		item.Status = models.WagerStatusPending
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListWagersByPeriod(ctx context.Context, periodCode string) ([]models.Wager, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Wager
	err := s.db.WithContext(ctx).Model(&models.Wager{}).
		Where("period_code = ?", periodCode).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListPendingWagersByPeriod(ctx context.Context, periodCode string) ([]models.Wager, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Wager
	err := s.db.WithContext(ctx).Model(&models.Wager{}).
		Where("period_code = ?", periodCode).
		Where("status = ?", models.WagerStatusPending).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// UpdateWagerStatus only moves wagers out of pending, so a settled wager can
// never revert or be double-paid.
func (s *Store) UpdateWagerStatus(ctx context.Context, id uint64, status string, payout *decimal.Decimal) error {
	if s == nil || s.db == nil {
		return nil
	}
	if id == 0 || strings.TrimSpace(status) == "" {
		return nil
	}
	updates := map[string]any{
		"status":     strings.TrimSpace(status),
		"updated_at": time.Now().UTC(),
	}
	if payout != nil {
		updates["actual_payout"] = *payout
	}
	return s.db.WithContext(ctx).
		Model(&models.Wager{}).
		Where("id = ?", id).
		Where("status = ?", models.WagerStatusPending).
		Updates(updates).Error
}

// --- Wallets ----------------------------------------------------------------

func (s *Store) CreditBalance(ctx context.Context, userID uint64, amount decimal.Decimal) (decimal.Decimal, error) {
	return s.adjustBalance(ctx, userID, amount)
}

func (s *Store) DebitBalance(ctx context.Context, userID uint64, amount decimal.Decimal) (decimal.Decimal, error) {
	return s.adjustBalance(ctx, userID, amount.Neg())
}

// adjustBalance is a single atomic increment with RETURNING, so concurrent
// wager intake debits and settlement credits for the same user cannot lose
// updates.
func (s *Store) adjustBalance(ctx context.Context, userID uint64, delta decimal.Decimal) (decimal.Decimal, error) {
	if s == nil || s.db == nil || userID == 0 {
		return decimal.Zero, nil
	}
	var balance decimal.Decimal
	res := s.db.WithContext(ctx).Raw(
		`UPDATE wallets SET balance = balance + ?, updated_at = ? WHERE user_id = ? RETURNING balance`,
		delta, time.Now().UTC(), userID,
	).Scan(&balance)
	if res.Error != nil {
		return decimal.Zero, res.Error
	}
	if res.RowsAffected == 0 {
		return decimal.Zero, gorm.ErrRecordNotFound
	}
	return balance, nil
}

func (s *Store) GetBalance(ctx context.Context, userID uint64) (decimal.Decimal, error) {
	if s == nil || s.db == nil || userID == 0 {
		return decimal.Zero, nil
	}
	var item models.Wallet
	err := s.db.WithContext(ctx).Model(&models.Wallet{}).Where("user_id = ?", userID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return item.Balance, nil
}

// --- Balance events ---------------------------------------------------------

func (s *Store) InsertBalanceEvent(ctx context.Context, item *models.BalanceEvent) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

// --- Scheduled outcomes -----------------------------------------------------

func (s *Store) UpsertScheduledOutcome(ctx context.Context, item *models.ScheduledOutcome) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if strings.TrimSpace(item.PeriodCode) == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "period_code"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"digit",
			"used",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) GetScheduledOutcome(ctx context.Context, periodCode string) (*models.ScheduledOutcome, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	periodCode = strings.TrimSpace(periodCode)
	if periodCode == "" {
		return nil, nil
	}
	var item models.ScheduledOutcome
	err := s.db.WithContext(ctx).Model(&models.ScheduledOutcome{}).
		Where("period_code = ?", periodCode).
		Where("used = ?", false).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) MarkScheduledOutcomeUsed(ctx context.Context, periodCode string) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.ScheduledOutcome{}).
		Where("period_code = ?", periodCode).
		Updates(map[string]any{"used": true, "updated_at": time.Now().UTC()}).Error
}

// --- System settings --------------------------------------------------------

func (s *Store) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	item.Key = strings.TrimSpace(item.Key)
	if item.Key == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"value",
			"description",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	var item models.SystemSetting
	err := s.db.WithContext(ctx).Model(&models.SystemSetting{}).Where("key = ?", key).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListSystemSettings(ctx context.Context) ([]models.SystemSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.SystemSetting
	err := s.db.WithContext(ctx).Model(&models.SystemSetting{}).Order("key ASC").Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
