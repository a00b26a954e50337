package outcome

import (
	"testing"

	"github.com/shopspring/decimal"

	"wingo/internal/models"
)

func TestForName(t *testing.T) {
	tr := NewProfitTracker(20)
	if got := ForName(AlgorithmFairRandom, tr).Name(); got != AlgorithmFairRandom {
		t.Fatalf("got %s", got)
	}
	if got := ForName(AlgorithmPlayerFavored, tr).Name(); got != AlgorithmPlayerFavored {
		t.Fatalf("got %s", got)
	}
	if got := ForName("garbage", tr).Name(); got != AlgorithmProfitGuaranteed {
		t.Fatalf("unrecognized name resolved to %s", got)
	}
}

func TestChooseUniformWithoutWagers(t *testing.T) {
	const trials = 5000
	tr := NewProfitTracker(20)
	algos := []Algorithm{FairRandom{}, PlayerFavored{}, ProfitGuaranteed{Tracker: tr}}

	for _, algo := range algos {
		counts := make([]int, 10)
		for i := 0; i < trials; i++ {
			d := algo.Choose(nil)
			if d < 0 || d > 9 {
				t.Fatalf("%s chose out-of-range digit %d", algo.Name(), d)
			}
			counts[d]++
		}
		// Expected 500 per digit; the bounds are many standard deviations wide.
		for d, n := range counts {
			if n < 300 || n > 700 {
				t.Errorf("%s: digit %d chosen %d times of %d", algo.Name(), d, n, trials)
			}
		}
	}
}

func TestProfitGuaranteedBiasesTowardHouse(t *testing.T) {
	// Ledger far under target: -50% profit vs a 20% target.
	tr := NewProfitTracker(20)
	tr.AddWager(decimal.NewFromInt(100))
	tr.AddPayout(decimal.NewFromInt(150))

	// All the money rides on digit 5, so every other digit takes the full
	// handle for the house. The biased pick must never pay the crowd.
	wagers := []models.Wager{{
		ID: 1, UserID: 1,
		BetType: models.BetTypeNumber, BetValue: "5",
		Amount:    decimal.NewFromInt(100),
		Potential: decimal.NewFromInt(900),
	}}

	algo := ProfitGuaranteed{Tracker: tr}
	for i := 0; i < 1000; i++ {
		if d := algo.Choose(wagers); d == 5 {
			t.Fatalf("under-target bias paid the most expensive digit on trial %d", i)
		}
	}
}

func TestProfitGuaranteedFavorsPlayersOverTarget(t *testing.T) {
	// Ledger far over target: 90% profit vs a 20% target inverts the ranking.
	tr := NewProfitTracker(20)
	tr.AddWager(decimal.NewFromInt(100))
	tr.AddPayout(decimal.NewFromInt(10))

	wagers := []models.Wager{{
		ID: 1, UserID: 1,
		BetType: models.BetTypeNumber, BetValue: "5",
		Amount:    decimal.NewFromInt(100),
		Potential: decimal.NewFromInt(900),
	}}

	algo := ProfitGuaranteed{Tracker: tr}
	const trials = 1000
	hits := 0
	for i := 0; i < trials; i++ {
		if algo.Choose(wagers) == 5 {
			hits++
		}
	}
	// Digit 5 sits alone at the top of the inverted ranking inside a pool of
	// four, so about a quarter of the trials should land on it. Uniform play
	// would give a tenth.
	if hits < 150 {
		t.Fatalf("digit 5 chosen %d times of %d, expected heavy player bias", hits, trials)
	}
}

func TestProfitGuaranteedUniformNearTarget(t *testing.T) {
	tr := NewProfitTracker(20)
	tr.AddWager(decimal.NewFromInt(100))
	tr.AddPayout(decimal.NewFromInt(80))

	wagers := []models.Wager{{
		ID: 1, UserID: 1,
		BetType: models.BetTypeNumber, BetValue: "5",
		Amount:    decimal.NewFromInt(100),
		Potential: decimal.NewFromInt(900),
	}}

	algo := ProfitGuaranteed{Tracker: tr}
	const trials = 2000
	hits := 0
	for i := 0; i < trials; i++ {
		if algo.Choose(wagers) == 5 {
			hits++
		}
	}
	// On target the pick stays uniform, so the expensive digit still comes up.
	if hits < 100 {
		t.Fatalf("digit 5 chosen %d times of %d, expected roughly uniform", hits, trials)
	}
}

func TestPlayerFavoredLeansOnBestDigits(t *testing.T) {
	wagers := []models.Wager{{
		ID: 1, UserID: 1,
		BetType: models.BetTypeNumber, BetValue: "7",
		Amount:    decimal.NewFromInt(50),
		Potential: decimal.NewFromInt(450),
	}}

	algo := PlayerFavored{}
	const trials = 2000
	hits := 0
	for i := 0; i < trials; i++ {
		if algo.Choose(wagers) == 7 {
			hits++
		}
	}
	// 7 is always in the top three, so it should land around 24% of trials
	// against the 10% a uniform pick would give.
	if hits < 300 {
		t.Fatalf("digit 7 chosen %d times of %d, expected player-favored lean", hits, trials)
	}
}
