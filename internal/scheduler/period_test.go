package scheduler

import (
	"testing"
	"time"
)

func TestPeriodCodeSpecExample(t *testing.T) {
	// The 260th 3-minute period of 2025-09-27 in UTC+5:30 starts at 12:57
	// local, which is 07:27 UTC.
	now := time.Date(2025, 9, 27, 7, 28, 0, 0, time.UTC)
	if got := PeriodCode(now, 3); got != "20250927030260" {
		t.Fatalf("PeriodCode = %s, want 20250927030260", got)
	}
}

func TestPeriodCodeFixedOffsetIndependentOfLocale(t *testing.T) {
	// 2025-09-27 23:00 UTC is already 2025-09-28 04:30 in UTC+5:30; the code
	// must roll the date with the fixed offset, never the server zone.
	now := time.Date(2025, 9, 27, 23, 0, 0, 0, time.UTC)
	got := PeriodCode(now, 1)
	if got[:8] != "20250928" {
		t.Fatalf("date part = %s, want 20250928", got[:8])
	}
	// 04:30 local is 270 minutes past midnight, the 271st 1-minute period.
	if got != "20250928010271" {
		t.Fatalf("PeriodCode = %s", got)
	}
}

func TestPeriodCodeFirstPeriodOfDay(t *testing.T) {
	// Local midnight exactly. 18:30 UTC the day before.
	now := time.Date(2025, 9, 26, 18, 30, 0, 0, time.UTC)
	cases := map[int]string{
		1:  "20250927010001",
		3:  "20250927030001",
		5:  "20250927050001",
		10: "20250927100001",
	}
	for duration, want := range cases {
		if got := PeriodCode(now, duration); got != want {
			t.Errorf("PeriodCode(%d) = %s, want %s", duration, got, want)
		}
	}
}

func TestPeriodWindowAligned(t *testing.T) {
	now := time.Date(2025, 9, 27, 7, 28, 13, 0, time.UTC)
	start, end := PeriodWindow(now, 3)

	if end.Sub(start) != 3*time.Minute {
		t.Fatalf("window length = %s", end.Sub(start))
	}
	if now.Before(start) || !now.Before(end) {
		t.Fatalf("now %s outside window [%s, %s)", now, start, end)
	}
	// Period 260 starts 777 minutes past local midnight: 12:57 +05:30,
	// 07:27 UTC.
	wantStart := time.Date(2025, 9, 27, 7, 27, 0, 0, time.UTC)
	if !start.Equal(wantStart) {
		t.Fatalf("start = %s, want %s", start, wantStart)
	}
}

func TestPeriodCodeStableWithinWindow(t *testing.T) {
	start := time.Date(2025, 9, 27, 7, 27, 0, 0, time.UTC)
	code := PeriodCode(start, 3)
	for _, offset := range []time.Duration{0, time.Second, time.Minute, 3*time.Minute - time.Second} {
		if got := PeriodCode(start.Add(offset), 3); got != code {
			t.Fatalf("code drifted at +%s: %s vs %s", offset, got, code)
		}
	}
	if got := PeriodCode(start.Add(3*time.Minute), 3); got == code {
		t.Fatalf("next window reused code %s", code)
	}
}
