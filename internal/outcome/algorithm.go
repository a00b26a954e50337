package outcome

import (
	"math"
	"math/rand"
	"sort"

	"github.com/shopspring/decimal"

	"wingo/internal/models"
)

const (
	AlgorithmFairRandom       = "fair_random"
	AlgorithmPlayerFavored    = "player_favored"
	AlgorithmProfitGuaranteed = "profit_guaranteed"
)

// Algorithm selects the winning digit for a round given its pending wagers.
// Implementations are pure apart from randomness; with no wagers every
// algorithm degrades to a uniform pick since there is nobody to bias against.
type Algorithm interface {
	Name() string
	Choose(wagers []models.Wager) int
}

// ForName resolves a configured algorithm name, defaulting to
// profit_guaranteed for anything unrecognized.
func ForName(name string, tracker *ProfitTracker) Algorithm {
	switch name {
	case AlgorithmFairRandom:
		return FairRandom{}
	case AlgorithmPlayerFavored:
		return PlayerFavored{}
	default:
		return ProfitGuaranteed{Tracker: tracker}
	}
}

type FairRandom struct{}

func (FairRandom) Name() string { return AlgorithmFairRandom }

func (FairRandom) Choose(wagers []models.Wager) int {
	return rand.Intn(10)
}

// PlayerFavored injects unconditional player-friendliness independent of the
// profit ledger: 60% of the time it picks among the three digits that pay
// players the most, otherwise among all ten.
type PlayerFavored struct{}

func (PlayerFavored) Name() string { return AlgorithmPlayerFavored }

func (PlayerFavored) Choose(wagers []models.Wager) int {
	if len(wagers) == 0 {
		return rand.Intn(10)
	}
	payouts, totalStaked := payoutByDigit(wagers)
	digits := rankDigits(func(d int) float64 {
		adv, _ := payouts[d].Sub(totalStaked).Float64()
		return adv
	}, true)
	if rand.Float64() < 0.6 {
		return digits[rand.Intn(3)]
	}
	return digits[rand.Intn(10)]
}

// ProfitGuaranteed steers outcomes toward the configured house edge. When the
// ledger sits more than 0.1 percentage points under target it restricts the
// pick to the digits with the highest house take; when over target it inverts
// the ranking and favors players; on target it stays uniform.
type ProfitGuaranteed struct {
	Tracker *ProfitTracker
}

func (ProfitGuaranteed) Name() string { return AlgorithmProfitGuaranteed }

func (a ProfitGuaranteed) Choose(wagers []models.Wager) int {
	if len(wagers) == 0 {
		return rand.Intn(10)
	}
	payouts, totalStaked := payoutByDigit(wagers)
	if totalStaked.IsZero() {
		return rand.Intn(10)
	}

	adjustment := a.Tracker.Adjustment()
	if math.Abs(adjustment) <= 0.1 {
		return rand.Intn(10)
	}

	housePct := func(d int) float64 {
		pct, _ := totalStaked.Sub(payouts[d]).Div(totalStaked).Float64()
		return pct
	}

	// Descending house take when under target, ascending when over.
	digits := rankDigits(housePct, adjustment > 0)

	biasStrength := math.Min(math.Abs(adjustment)/10, 0.8)
	topN := int(math.Floor(5 * biasStrength))
	if topN < 1 {
		topN = 1
	}
	return digits[rand.Intn(topN)]
}

// payoutByDigit sums, per candidate digit, the gross payout owed if that
// digit wins, plus the total staked across all wagers.
func payoutByDigit(wagers []models.Wager) (map[int]decimal.Decimal, decimal.Decimal) {
	payouts := make(map[int]decimal.Decimal, 10)
	for d := 0; d <= 9; d++ {
		payouts[d] = decimal.Zero
	}
	totalStaked := decimal.Zero
	for _, w := range wagers {
		totalStaked = totalStaked.Add(w.Amount)
		for d := 0; d <= 9; d++ {
			if Matches(w.BetType, w.BetValue, d) {
				payouts[d] = payouts[d].Add(w.Potential)
			}
		}
	}
	return payouts, totalStaked
}

func rankDigits(score func(int) float64, desc bool) []int {
	digits := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	sort.SliceStable(digits, func(i, j int) bool {
		if desc {
			return score(digits[i]) > score(digits[j])
		}
		return score(digits[i]) < score(digits[j])
	})
	return digits
}
