package outcome

import (
	"strconv"

	"github.com/shopspring/decimal"

	"wingo/internal/models"
)

const (
	ColorViolet = "violet"
	ColorGreen  = "green"
	ColorRed    = "red"

	SizeBig   = "big"
	SizeSmall = "small"
)

var (
	multiplierNumber      = decimal.NewFromInt(9)
	multiplierColorViolet = decimal.RequireFromString("4.5")
	multiplierTwo         = decimal.NewFromInt(2)
)

// ColorOf maps a winning digit to its color: 0 and 5 are violet, the other
// odd digits are green, the other even digits are red.
func ColorOf(digit int) string {
	switch {
	case digit == 0 || digit == 5:
		return ColorViolet
	case digit%2 == 1:
		return ColorGreen
	default:
		return ColorRed
	}
}

func SizeOf(digit int) string {
	if digit >= 5 {
		return SizeBig
	}
	return SizeSmall
}

// Multiplier returns the gross payout multiplier for a bet definition.
// Number pays 9x, violet color 4.5x, everything else 2x.
func Multiplier(betType, betValue string) decimal.Decimal {
	switch betType {
	case models.BetTypeNumber:
		return multiplierNumber
	case models.BetTypeColor:
		if betValue == ColorViolet {
			return multiplierColorViolet
		}
		return multiplierTwo
	default:
		return multiplierTwo
	}
}

// PotentialPayout precomputes the gross payout a single winning wager earns.
// Wager intake stores this on the row at placement time.
func PotentialPayout(betType, betValue string, amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(Multiplier(betType, betValue))
}

// Matches reports whether a bet definition wins against a digit.
func Matches(betType, betValue string, digit int) bool {
	switch betType {
	case models.BetTypeNumber:
		return betValue == strconv.Itoa(digit)
	case models.BetTypeColor:
		return betValue == ColorOf(digit)
	case models.BetTypeSize:
		return betValue == SizeOf(digit)
	default:
		return false
	}
}
