package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"wingo/internal/models"
	"wingo/internal/outcome"
	"wingo/internal/repository"
)

var (
	ErrRoundClosed   = errors.New("round is not accepting wagers")
	ErrInvalidBet    = errors.New("invalid bet definition")
	ErrInvalidAmount = errors.New("stake must be positive")
	ErrBalanceTooLow = errors.New("insufficient balance")
)

// WagerIntakeService records a player stake against an active round. The
// stake is debited atomically at placement time; settlement later credits
// winners. A wager written here can race round closure, which is exactly the
// window the recovery sweep closes.
type WagerIntakeService struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

func (s *WagerIntakeService) PlaceWager(ctx context.Context, userID uint64, periodCode, betType, betValue string, amount decimal.Decimal) (*models.Wager, error) {
	if s == nil || s.Repo == nil {
		return nil, nil
	}
	if userID == 0 || !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	betType = strings.TrimSpace(betType)
	betValue = strings.TrimSpace(betValue)
	if !validBet(betType, betValue) {
		return nil, ErrInvalidBet
	}

	round, err := s.Repo.GetRoundByCode(ctx, periodCode)
	if err != nil {
		return nil, err
	}
	if round == nil || round.Status != models.RoundStatusActive || time.Now().UTC().After(round.EndTime) {
		return nil, ErrRoundClosed
	}

	balance, err := s.Repo.DebitBalance(ctx, userID, amount)
	if err != nil {
		return nil, err
	}
	if balance.IsNegative() {
		// Return the stake; the atomic debit raced the balance below zero.
		if _, err := s.Repo.CreditBalance(ctx, userID, amount); err != nil && s.Logger != nil {
			s.Logger.Error("stake return failed after overdraft",
				zap.Uint64("user_id", userID), zap.Error(err))
		}
		return nil, ErrBalanceTooLow
	}

	wager := &models.Wager{
		UserID:     userID,
		PeriodCode: periodCode,
		BetType:    betType,
		BetValue:   betValue,
		Amount:     amount,
		Potential:  outcome.PotentialPayout(betType, betValue, amount),
		Status:     models.WagerStatusPending,
	}
	if err := s.Repo.CreateWager(ctx, wager); err != nil {
		if _, cerr := s.Repo.CreditBalance(ctx, userID, amount); cerr != nil && s.Logger != nil {
			s.Logger.Error("stake return failed after write error",
				zap.Uint64("user_id", userID), zap.Error(cerr))
		}
		return nil, err
	}
	return wager, nil
}

func validBet(betType, betValue string) bool {
	switch betType {
	case models.BetTypeNumber:
		d, err := strconv.Atoi(betValue)
		return err == nil && d >= 0 && d <= 9 && betValue == strconv.Itoa(d)
	case models.BetTypeColor:
		return betValue == outcome.ColorViolet || betValue == outcome.ColorGreen || betValue == outcome.ColorRed
	case models.BetTypeSize:
		return betValue == outcome.SizeBig || betValue == outcome.SizeSmall
	default:
		return false
	}
}
