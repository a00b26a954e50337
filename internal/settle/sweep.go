package settle

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"wingo/internal/metrics"
	"wingo/internal/models"
)

// Increment is what a sweep folded into an already-settled round.
type Increment struct {
	AdditionalWagered decimal.Decimal
	AdditionalPaidOut decimal.Decimal
	Settled           int
}

// Sweep is the late-bet recovery pass. A wager can be validated and written
// concurrently with round closure, landing in storage after the settlement
// pass loaded its batch; this re-query catches those stragglers and settles
// them against the same outcome. Overlap resolution runs within the late
// batch only, never across the already-settled wagers.
//
// alreadyCounted holds wager IDs whose stakes the settlement pass already
// folded into the round's handle (a wager that failed mid-settlement stays
// pending but was counted); pass nil when invoking standalone. With zero
// stragglers the sweep is a no-op.
func (e *Engine) Sweep(ctx context.Context, periodCode string, digit int, alreadyCounted map[uint64]bool) (Increment, error) {
	inc := Increment{
		AdditionalWagered: decimal.Zero,
		AdditionalPaidOut: decimal.Zero,
	}
	if e == nil || e.Repo == nil {
		return inc, nil
	}

	stragglers, err := e.Repo.ListPendingWagersByPeriod(ctx, periodCode)
	if err != nil {
		return inc, err
	}
	if len(stragglers) == 0 {
		return inc, nil
	}

	feePercent := e.feePercent(ctx)
	award := awardSet(stragglers, digit)

	for _, w := range stragglers {
		if alreadyCounted == nil || !alreadyCounted[w.ID] {
			inc.AdditionalWagered = inc.AdditionalWagered.Add(w.Amount)
		}
		if award[w.ID] {
			payout, err := e.settleWin(ctx, w, feePercent)
			if err != nil {
				e.logWagerError(w, err)
				continue
			}
			inc.AdditionalPaidOut = inc.AdditionalPaidOut.Add(payout)
		} else {
			if err := e.settleLoss(ctx, w); err != nil {
				e.logWagerError(w, err)
				continue
			}
		}
		inc.Settled++
	}

	if inc.Settled > 0 {
		metrics.StragglersRecovered.Add(float64(inc.Settled))
	}

	if !inc.AdditionalWagered.IsZero() || !inc.AdditionalPaidOut.IsZero() {
		if err := e.Repo.IncrementRoundStats(ctx, periodCode, inc.AdditionalWagered, inc.AdditionalPaidOut); err != nil {
			return inc, err
		}
		e.Tracker.AddWager(inc.AdditionalWagered)
		e.Tracker.AddPayout(inc.AdditionalPaidOut)
		metrics.ProfitPercent.Set(e.Tracker.CurrentProfitPercent())
	}

	if e.Logger != nil && inc.Settled > 0 {
		e.Logger.Info("recovery sweep settled stragglers",
			zap.String("period_code", periodCode),
			zap.Int("count", inc.Settled),
			zap.String("additional_wagered", inc.AdditionalWagered.StringFixed(8)),
			zap.String("additional_paid_out", inc.AdditionalPaidOut.StringFixed(8)),
		)
	}

	return inc, nil
}

// Refund cancels every still-pending wager of a round and returns the stake.
// Used by the forced-cancel path, which skips outcome generation and
// settlement entirely.
func (e *Engine) Refund(ctx context.Context, periodCode string) (int, error) {
	if e == nil || e.Repo == nil {
		return 0, nil
	}
	pending, err := e.Repo.ListPendingWagersByPeriod(ctx, periodCode)
	if err != nil {
		return 0, err
	}
	refunded := 0
	for _, w := range pending {
		if err := e.Repo.UpdateWagerStatus(ctx, w.ID, models.WagerStatusCancelled, nil); err != nil {
			e.logWagerError(w, err)
			continue
		}
		balance, err := e.Repo.CreditBalance(ctx, w.UserID, w.Amount)
		if err != nil {
			e.logWagerError(w, err)
			continue
		}
		e.journalAndPublish(ctx, models.BalanceEventRefund, w, w.Amount, balance)
		metrics.WagersSettled.WithLabelValues(models.WagerStatusCancelled).Inc()
		refunded++
	}
	return refunded, nil
}
