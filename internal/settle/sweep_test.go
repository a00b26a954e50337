package settle

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"wingo/internal/models"
)

func TestSweepSettlesStragglers(t *testing.T) {
	repo := newStubRepo()
	round := repo.addRound(activeRound("20250927030261", 3))

	early := repo.addWager(models.Wager{
		UserID: 1, PeriodCode: round.PeriodCode,
		BetType: models.BetTypeColor, BetValue: "red",
		Amount:    decimal.NewFromInt(10),
		Potential: decimal.NewFromInt(20),
	})

	eng := newTestEngine(repo, 3)
	res, err := eng.Settle(context.Background(), round, 2)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if res.Won != 1 {
		t.Fatalf("early wager not won")
	}
	_ = early

	// A straggler lands after the settlement pass loaded its batch.
	late := repo.addWager(models.Wager{
		UserID: 2, PeriodCode: round.PeriodCode,
		BetType: models.BetTypeColor, BetValue: "red",
		Amount:    decimal.NewFromInt(4),
		Potential: decimal.NewFromInt(8),
	})

	inc, err := eng.Sweep(context.Background(), round.PeriodCode, 2, res.Counted)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if inc.Settled != 1 {
		t.Fatalf("settled = %d", inc.Settled)
	}
	if got := inc.AdditionalWagered.StringFixed(8); got != "4.00000000" {
		t.Fatalf("additional wagered = %s", got)
	}
	// winnings 4, fee 0.12, payout 7.88
	if got := inc.AdditionalPaidOut.StringFixed(8); got != "7.88000000" {
		t.Fatalf("additional paid out = %s", got)
	}
	if repo.wagers[late.ID].Status != models.WagerStatusWon {
		t.Fatalf("straggler status = %s", repo.wagers[late.ID].Status)
	}

	// Folded into the persisted round stats: 10 + 4 wagered.
	stored := repo.rounds[round.PeriodCode]
	if got := stored.TotalWagered.StringFixed(8); got != "14.00000000" {
		t.Fatalf("round total wagered = %s", got)
	}
}

func TestSweepIdempotentWithZeroStragglers(t *testing.T) {
	repo := newStubRepo()
	round := repo.addRound(activeRound("20250927030262", 3))
	repo.addWager(models.Wager{
		UserID: 1, PeriodCode: round.PeriodCode,
		BetType: models.BetTypeSize, BetValue: "big",
		Amount:    decimal.NewFromInt(3),
		Potential: decimal.NewFromInt(6),
	})

	eng := newTestEngine(repo, 3)
	res, err := eng.Settle(context.Background(), round, 9)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}

	before := *repo.rounds[round.PeriodCode]
	for i := 0; i < 2; i++ {
		inc, err := eng.Sweep(context.Background(), round.PeriodCode, 9, res.Counted)
		if err != nil {
			t.Fatalf("sweep %d: %v", i, err)
		}
		if inc.Settled != 0 || !inc.AdditionalWagered.IsZero() || !inc.AdditionalPaidOut.IsZero() {
			t.Fatalf("sweep %d mutated a settled round: %+v", i, inc)
		}
	}
	after := *repo.rounds[round.PeriodCode]
	if !before.TotalWagered.Equal(after.TotalWagered) || !before.TotalPaidOut.Equal(after.TotalPaidOut) {
		t.Fatalf("round stats drifted: before=%+v after=%+v", before, after)
	}
}

func TestSweepDoesNotRecountFailedWagerStake(t *testing.T) {
	repo := newStubRepo()
	round := repo.addRound(activeRound("20250927030263", 3))

	bad := repo.addWager(models.Wager{
		UserID: 1, PeriodCode: round.PeriodCode,
		BetType: models.BetTypeColor, BetValue: "green",
		Amount:    decimal.NewFromInt(5),
		Potential: decimal.NewFromInt(10),
	})
	repo.failStatusFor[bad.ID] = true

	eng := newTestEngine(repo, 0)
	res, err := eng.Settle(context.Background(), round, 1)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if res.Failed != 1 {
		t.Fatalf("failed = %d", res.Failed)
	}

	// The write failure clears; the sweep settles the wager but must not add
	// its stake to the handle a second time.
	delete(repo.failStatusFor, bad.ID)
	inc, err := eng.Sweep(context.Background(), round.PeriodCode, 1, res.Counted)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if inc.Settled != 1 {
		t.Fatalf("settled = %d", inc.Settled)
	}
	if !inc.AdditionalWagered.IsZero() {
		t.Fatalf("stake double-counted: %s", inc.AdditionalWagered)
	}
	if got := repo.rounds[round.PeriodCode].TotalWagered.StringFixed(8); got != "5.00000000" {
		t.Fatalf("round total wagered = %s", got)
	}
	if repo.wagers[bad.ID].Status != models.WagerStatusWon {
		t.Fatalf("recovered wager status = %s", repo.wagers[bad.ID].Status)
	}
}

func TestRefundReturnsStakes(t *testing.T) {
	repo := newStubRepo()
	round := repo.addRound(activeRound("20250927010002", 1))
	w := repo.addWager(models.Wager{
		UserID: 5, PeriodCode: round.PeriodCode,
		BetType: models.BetTypeNumber, BetValue: "3",
		Amount:    decimal.NewFromInt(20),
		Potential: decimal.NewFromInt(180),
	})

	eng := newTestEngine(repo, 3)
	refunded, err := eng.Refund(context.Background(), round.PeriodCode)
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if refunded != 1 {
		t.Fatalf("refunded = %d", refunded)
	}
	if repo.wagers[w.ID].Status != models.WagerStatusCancelled {
		t.Fatalf("wager status = %s", repo.wagers[w.ID].Status)
	}
	if got := repo.balances[5].StringFixed(8); got != "20.00000000" {
		t.Fatalf("balance = %s", got)
	}
	if len(repo.journal) != 1 || repo.journal[0].Kind != models.BalanceEventRefund {
		t.Fatalf("journal = %+v", repo.journal)
	}
}
