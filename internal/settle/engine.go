package settle

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"wingo/internal/events"
	"wingo/internal/metrics"
	"wingo/internal/models"
	"wingo/internal/outcome"
	"wingo/internal/repository"
	"wingo/internal/service"
)

var hundred = decimal.NewFromInt(100)

// Engine settles every wager of a round against a chosen outcome digit,
// mutates balances through atomic storage credits, persists results, and
// feeds the profit tracker. One wager's failure never aborts the batch: the
// wager stays pending for the recovery sweep or a manual fix.
type Engine struct {
	Repo     repository.Repository
	Bus      events.Publisher
	Tracker  *outcome.ProfitTracker
	Settings *service.GameSettingsService
	Logger   *zap.Logger
}

// Result reports what a settlement pass did.
type Result struct {
	PeriodCode   string
	OutcomeDigit int
	Won          int
	Lost         int
	Failed       int
	// Wager IDs whose stakes are already counted in TotalWagered, passed to
	// the sweep so a failed wager is not double-counted into round stats.
	Counted map[uint64]bool

	TotalWagered decimal.Decimal
	TotalPaidOut decimal.Decimal
	HouseProfit  decimal.Decimal
}

func (e *Engine) Settle(ctx context.Context, round *models.Round, digit int) (Result, error) {
	res := Result{
		PeriodCode:   round.PeriodCode,
		OutcomeDigit: digit,
		Counted:      map[uint64]bool{},
		TotalWagered: decimal.Zero,
		TotalPaidOut: decimal.Zero,
	}
	if e == nil || e.Repo == nil {
		return res, nil
	}

	wagers, err := e.Repo.ListWagersByPeriod(ctx, round.PeriodCode)
	if err != nil {
		return res, err
	}

	// The full handle, a lost stake included. A wager a previous interrupted
	// pass already paid keeps its payout in the round's totals.
	for _, w := range wagers {
		res.TotalWagered = res.TotalWagered.Add(w.Amount)
		res.Counted[w.ID] = true
		if w.Status == models.WagerStatusWon && w.ActualPayout != nil {
			res.TotalPaidOut = res.TotalPaidOut.Add(*w.ActualPayout)
		}
	}

	pending := make([]models.Wager, 0, len(wagers))
	for _, w := range wagers {
		if w.Status == models.WagerStatusPending {
			pending = append(pending, w)
		}
	}

	// Fix the outcome in storage before any money moves, so a pass abandoned
	// mid-settlement resumes against the same digit instead of a fresh one.
	color := outcome.ColorOf(digit)
	size := outcome.SizeOf(digit)
	if err := e.Repo.UpdateRoundOutcome(ctx, round.PeriodCode, digit, color, size); err != nil {
		return res, err
	}

	feePercent := e.feePercent(ctx)
	award := awardSet(pending, digit)

	for _, w := range pending {
		if award[w.ID] {
			payout, err := e.settleWin(ctx, w, feePercent)
			if err != nil {
				e.logWagerError(w, err)
				res.Failed++
				continue
			}
			res.TotalPaidOut = res.TotalPaidOut.Add(payout)
			res.Won++
		} else {
			if err := e.settleLoss(ctx, w); err != nil {
				e.logWagerError(w, err)
				res.Failed++
				continue
			}
			res.Lost++
		}
	}

	res.HouseProfit = res.TotalWagered.Sub(res.TotalPaidOut)

	e.Tracker.AddWager(res.TotalWagered)
	e.Tracker.AddPayout(res.TotalPaidOut)
	metrics.ProfitPercent.Set(e.Tracker.CurrentProfitPercent())

	if err := e.Repo.UpdateRoundStats(ctx, round.PeriodCode, models.RoundStatusCompleted,
		res.TotalWagered, res.TotalPaidOut, res.HouseProfit); err != nil {
		return res, err
	}

	round.OutcomeColor = color
	round.OutcomeSize = size
	round.TotalWagered = res.TotalWagered
	round.TotalPaidOut = res.TotalPaidOut
	round.HouseProfit = res.HouseProfit
	round.Status = models.RoundStatusCompleted

	return res, nil
}

// awardSet computes the final won partition: per-user winners filtered
// through the overlap resolver. Order of processing cannot change the
// partition; the resolver is order-independent within a user group.
func awardSet(pending []models.Wager, digit int) map[uint64]bool {
	byUser := map[uint64][]models.Wager{}
	for _, w := range pending {
		if outcome.Matches(w.BetType, w.BetValue, digit) {
			byUser[w.UserID] = append(byUser[w.UserID], w)
		}
	}
	award := map[uint64]bool{}
	for _, winning := range byUser {
		resolution := ResolveOverlap(winning, digit)
		for _, id := range resolution.ToAward {
			award[id] = true
		}
	}
	return award
}

// settleWin pays a winning wager. The fee applies to the profit portion
// only; the returned principal is never taxed.
func (e *Engine) settleWin(ctx context.Context, w models.Wager, feePercent decimal.Decimal) (decimal.Decimal, error) {
	winnings := w.Potential.Sub(w.Amount)
	fee := winnings.Mul(feePercent).Div(hundred)
	finalPayout := w.Amount.Add(winnings.Sub(fee)).Round(8)

	if err := e.Repo.UpdateWagerStatus(ctx, w.ID, models.WagerStatusWon, &finalPayout); err != nil {
		return decimal.Zero, err
	}
	balance, err := e.Repo.CreditBalance(ctx, w.UserID, finalPayout)
	if err != nil {
		return decimal.Zero, err
	}
	e.journalAndPublish(ctx, models.BalanceEventWin, w, finalPayout, balance)
	metrics.WagersSettled.WithLabelValues(models.WagerStatusWon).Inc()
	return finalPayout, nil
}

// settleLoss marks the wager lost. The stake was debited at placement time,
// so there is no balance mutation; the event carries the pre-bet balance for
// UI animation.
func (e *Engine) settleLoss(ctx context.Context, w models.Wager) error {
	if err := e.Repo.UpdateWagerStatus(ctx, w.ID, models.WagerStatusLost, nil); err != nil {
		return err
	}
	balance, err := e.Repo.GetBalance(ctx, w.UserID)
	if err != nil {
		balance = decimal.Zero
	}
	preBet := balance.Add(w.Amount)
	e.journalAndPublish(ctx, models.BalanceEventLoss, w, w.Amount, preBet)
	metrics.WagersSettled.WithLabelValues(models.WagerStatusLost).Inc()
	return nil
}

func (e *Engine) journalAndPublish(ctx context.Context, kind string, w models.Wager, amount, balance decimal.Decimal) {
	if err := e.Repo.InsertBalanceEvent(ctx, &models.BalanceEvent{
		UserID:     w.UserID,
		PeriodCode: w.PeriodCode,
		WagerID:    w.ID,
		Kind:       kind,
		Amount:     amount,
		Balance:    balance,
	}); err != nil && e.Logger != nil {
		e.Logger.Warn("balance event journal failed", zap.Uint64("wager_id", w.ID), zap.Error(err))
	}
	if e.Bus != nil {
		e.Bus.Publish(ctx, events.BalanceChange(kind, w.UserID, w.ID, w.PeriodCode, amount, balance))
	}
}

func (e *Engine) feePercent(ctx context.Context) decimal.Decimal {
	if e.Settings == nil {
		return decimal.Zero
	}
	return e.Settings.FeePercent(ctx)
}

func (e *Engine) logWagerError(w models.Wager, err error) {
	if e.Logger == nil {
		return
	}
	e.Logger.Warn("wager settlement failed, left pending",
		zap.Uint64("wager_id", w.ID),
		zap.String("period_code", w.PeriodCode),
		zap.Error(err),
	)
}
