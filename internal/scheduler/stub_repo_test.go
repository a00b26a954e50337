package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"wingo/internal/models"
)

// stubRepo is a test-only in-memory implementation of repository.Repository.
type stubRepo struct {
	rounds     map[string]*models.Round
	wagers     map[uint64]*models.Wager
	wagerOrder []uint64
	balances   map[uint64]decimal.Decimal
	journal    []models.BalanceEvent
	settings   map[string]*models.SystemSetting
	scheduled  map[string]*models.ScheduledOutcome
	nextID     uint64
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		rounds:    map[string]*models.Round{},
		wagers:    map[uint64]*models.Wager{},
		balances:  map[uint64]decimal.Decimal{},
		settings:  map[string]*models.SystemSetting{},
		scheduled: map[string]*models.ScheduledOutcome{},
	}
}

func (s *stubRepo) addRound(r *models.Round) *models.Round {
	s.rounds[r.PeriodCode] = r
	return r
}

func (s *stubRepo) addWager(w models.Wager) *models.Wager {
	s.nextID++
	w.ID = s.nextID
	if w.Status == "" {
		w.Status = models.WagerStatusPending
	}
	s.wagers[w.ID] = &w
	s.wagerOrder = append(s.wagerOrder, w.ID)
	return &w
}

func (s *stubRepo) UpsertRound(ctx context.Context, item *models.Round) error {
	if existing, ok := s.rounds[item.PeriodCode]; ok {
		existing.StartTime = item.StartTime
		existing.EndTime = item.EndTime
		existing.Status = item.Status
		*item = *existing
		return nil
	}
	s.rounds[item.PeriodCode] = item
	return nil
}

func (s *stubRepo) GetRoundByCode(ctx context.Context, periodCode string) (*models.Round, error) {
	return s.rounds[periodCode], nil
}

func (s *stubRepo) GetActiveRoundByDuration(ctx context.Context, durationMinutes int) (*models.Round, error) {
	for _, r := range s.rounds {
		if r.DurationMinutes == durationMinutes && r.Status == models.RoundStatusActive {
			return r, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) ListStalledActiveRounds(ctx context.Context, now time.Time) ([]models.Round, error) {
	var out []models.Round
	for _, r := range s.rounds {
		if r.Status == models.RoundStatusActive && r.EndTime.Before(now) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *stubRepo) UpdateRoundOutcome(ctx context.Context, periodCode string, digit int, color, size string) error {
	r, ok := s.rounds[periodCode]
	if !ok {
		return errors.New("round not found")
	}
	d := digit
	r.OutcomeDigit = &d
	r.OutcomeColor = color
	r.OutcomeSize = size
	return nil
}

func (s *stubRepo) UpdateRoundStats(ctx context.Context, periodCode string, status string, wagered, paidOut, profit decimal.Decimal) error {
	r, ok := s.rounds[periodCode]
	if !ok {
		return errors.New("round not found")
	}
	r.TotalWagered = wagered
	r.TotalPaidOut = paidOut
	r.HouseProfit = profit
	if status != "" {
		r.Status = status
	}
	return nil
}

func (s *stubRepo) IncrementRoundStats(ctx context.Context, periodCode string, addWagered, addPaidOut decimal.Decimal) error {
	r, ok := s.rounds[periodCode]
	if !ok {
		return errors.New("round not found")
	}
	r.TotalWagered = r.TotalWagered.Add(addWagered)
	r.TotalPaidOut = r.TotalPaidOut.Add(addPaidOut)
	r.HouseProfit = r.HouseProfit.Add(addWagered.Sub(addPaidOut))
	return nil
}

func (s *stubRepo) UpdateRoundStatus(ctx context.Context, periodCode string, status string) error {
	r, ok := s.rounds[periodCode]
	if !ok {
		return errors.New("round not found")
	}
	r.Status = status
	return nil
}

func (s *stubRepo) CreateWager(ctx context.Context, item *models.Wager) error {
	created := s.addWager(*item)
	item.ID = created.ID
	return nil
}

func (s *stubRepo) ListWagersByPeriod(ctx context.Context, periodCode string) ([]models.Wager, error) {
	var out []models.Wager
	for _, id := range s.wagerOrder {
		if w := s.wagers[id]; w.PeriodCode == periodCode {
			out = append(out, *w)
		}
	}
	return out, nil
}

func (s *stubRepo) ListPendingWagersByPeriod(ctx context.Context, periodCode string) ([]models.Wager, error) {
	var out []models.Wager
	for _, id := range s.wagerOrder {
		if w := s.wagers[id]; w.PeriodCode == periodCode && w.Status == models.WagerStatusPending {
			out = append(out, *w)
		}
	}
	return out, nil
}

func (s *stubRepo) UpdateWagerStatus(ctx context.Context, id uint64, status string, payout *decimal.Decimal) error {
	w, ok := s.wagers[id]
	if !ok {
		return errors.New("wager not found")
	}
	if w.Status != models.WagerStatusPending {
		return nil
	}
	w.Status = status
	if payout != nil {
		p := *payout
		w.ActualPayout = &p
	}
	return nil
}

func (s *stubRepo) CreditBalance(ctx context.Context, userID uint64, amount decimal.Decimal) (decimal.Decimal, error) {
	s.balances[userID] = s.balances[userID].Add(amount)
	return s.balances[userID], nil
}

func (s *stubRepo) DebitBalance(ctx context.Context, userID uint64, amount decimal.Decimal) (decimal.Decimal, error) {
	s.balances[userID] = s.balances[userID].Sub(amount)
	return s.balances[userID], nil
}

func (s *stubRepo) GetBalance(ctx context.Context, userID uint64) (decimal.Decimal, error) {
	return s.balances[userID], nil
}

func (s *stubRepo) InsertBalanceEvent(ctx context.Context, item *models.BalanceEvent) error {
	s.journal = append(s.journal, *item)
	return nil
}

func (s *stubRepo) UpsertScheduledOutcome(ctx context.Context, item *models.ScheduledOutcome) error {
	s.scheduled[item.PeriodCode] = item
	return nil
}

func (s *stubRepo) GetScheduledOutcome(ctx context.Context, periodCode string) (*models.ScheduledOutcome, error) {
	so, ok := s.scheduled[periodCode]
	if !ok || so.Used {
		return nil, nil
	}
	return so, nil
}

func (s *stubRepo) MarkScheduledOutcomeUsed(ctx context.Context, periodCode string) error {
	if so, ok := s.scheduled[periodCode]; ok {
		so.Used = true
	}
	return nil
}

func (s *stubRepo) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	s.settings[item.Key] = item
	return nil
}

func (s *stubRepo) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	return s.settings[key], nil
}

func (s *stubRepo) ListSystemSettings(ctx context.Context) ([]models.SystemSetting, error) {
	var out []models.SystemSetting
	for _, item := range s.settings {
		out = append(out, *item)
	}
	return out, nil
}
