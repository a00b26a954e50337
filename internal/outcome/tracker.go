package outcome

import (
	"sync"

	"github.com/shopspring/decimal"
)

// ProfitTracker is the process-wide running aggregate of handle vs payouts.
// It is a lifetime-since-restart smoothing signal, not an audit record:
// counters are purely additive and rebuild from zero on restart.
//
// Constructed once at process start and injected into the algorithms that
// need it; percentages are expressed on the 0-100 scale.
type ProfitTracker struct {
	mu            sync.Mutex
	totalWagered  decimal.Decimal
	totalPaidOut  decimal.Decimal
	targetPercent float64
}

func NewProfitTracker(targetPercent float64) *ProfitTracker {
	return &ProfitTracker{targetPercent: targetPercent}
}

func (t *ProfitTracker) AddWager(amount decimal.Decimal) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.totalWagered = t.totalWagered.Add(amount)
	t.mu.Unlock()
}

func (t *ProfitTracker) AddPayout(amount decimal.Decimal) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.totalPaidOut = t.totalPaidOut.Add(amount)
	t.mu.Unlock()
}

// SetTargetPercent is called before every outcome decision with the freshest
// configured value, so operators can retune the edge without a restart.
func (t *ProfitTracker) SetTargetPercent(v float64) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.targetPercent = v
	t.mu.Unlock()
}

func (t *ProfitTracker) TargetPercent() float64 {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.targetPercent
}

// CurrentProfitPercent is (wagered - paid out) / wagered * 100, or 0 before
// the first wager.
func (t *ProfitTracker) CurrentProfitPercent() float64 {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.totalWagered.IsZero() {
		return 0
	}
	profit := t.totalWagered.Sub(t.totalPaidOut)
	pct, _ := profit.Div(t.totalWagered).Mul(decimal.NewFromInt(100)).Float64()
	return pct
}

// Adjustment is how far the house currently sits below target. Positive
// means under target (bias toward the house), negative means over.
func (t *ProfitTracker) Adjustment() float64 {
	if t == nil {
		return 0
	}
	return t.TargetPercent() - t.CurrentProfitPercent()
}

func (t *ProfitTracker) Totals() (wagered, paidOut decimal.Decimal) {
	if t == nil {
		return decimal.Zero, decimal.Zero
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totalWagered, t.totalPaidOut
}
