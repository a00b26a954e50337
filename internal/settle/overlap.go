package settle

import (
	"wingo/internal/models"
	"wingo/internal/outcome"
)

// Resolution partitions one user's winning wagers into the set that actually
// pays and the set demoted to lost.
type Resolution struct {
	ToAward  []uint64
	ToReject []uint64
}

// ResolveOverlap applies the single-type-pays rule for one user's winning
// wagers on one round. The payout table lets logically overlapping bets all
// match the same digit (e.g. number "0" and color "violet"), so when more
// than one bet type wins, exactly one type is paid by fixed priority:
// number (9x) > violet color (4.5x) > size > other color (both 2x).
// With fewer than two winning types there is no overlap and everything pays.
func ResolveOverlap(winning []models.Wager, digit int) Resolution {
	byType := map[string][]models.Wager{}
	for _, w := range winning {
		byType[w.BetType] = append(byType[w.BetType], w)
	}
	if len(byType) < 2 {
		var res Resolution
		for _, w := range winning {
			res.ToAward = append(res.ToAward, w.ID)
		}
		return res
	}

	var chosen string
	switch {
	case len(byType[models.BetTypeNumber]) > 0:
		chosen = models.BetTypeNumber
	case len(byType[models.BetTypeColor]) > 0 && outcome.ColorOf(digit) == outcome.ColorViolet:
		chosen = models.BetTypeColor
	case len(byType[models.BetTypeSize]) > 0:
		chosen = models.BetTypeSize
	default:
		chosen = models.BetTypeColor
	}

	var res Resolution
	for _, w := range winning {
		if w.BetType == chosen {
			res.ToAward = append(res.ToAward, w.ID)
		} else {
			res.ToReject = append(res.ToReject, w.ID)
		}
	}
	return res
}
