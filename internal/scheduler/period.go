package scheduler

import (
	"fmt"
	"time"
)

// Period codes are computed against a single fixed UTC+5:30 offset regardless
// of server locale, so every deployment derives identical codes.
var periodZone = time.FixedZone("UTC+05:30", 5*3600+30*60)

// PeriodCode derives the deterministic round identifier for a lane at a
// moment in time: YYYYMMDD + 2-digit duration + 4-digit sequence of the
// period within the calendar day. A 3-minute lane's 260th period on
// 2025-09-27 is "20250927030260".
func PeriodCode(now time.Time, durationMinutes int) string {
	local := now.In(periodZone)
	return fmt.Sprintf("%s%02d%04d", local.Format("20060102"), durationMinutes, periodSeq(local, durationMinutes))
}

// PeriodWindow returns the aligned start and end of the period containing
// now. Rounds begin on duration boundaries from local midnight, which is
// what makes the code reproducible across restarts.
func PeriodWindow(now time.Time, durationMinutes int) (start, end time.Time) {
	local := now.In(periodZone)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, periodZone)
	seq := periodSeq(local, durationMinutes)
	start = midnight.Add(time.Duration(seq-1) * time.Duration(durationMinutes) * time.Minute)
	end = start.Add(time.Duration(durationMinutes) * time.Minute)
	return start.UTC(), end.UTC()
}

func periodSeq(local time.Time, durationMinutes int) int {
	if durationMinutes <= 0 {
		durationMinutes = 1
	}
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, periodZone)
	elapsed := int(local.Sub(midnight).Minutes())
	return elapsed/durationMinutes + 1
}
