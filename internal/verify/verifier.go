package verify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"wingo/internal/metrics"
	"wingo/internal/repository"
)

const inconsistencyLogSize = 50

// LaneRecord is the verifier's belief about one lane's active round.
// The scheduler registers on round open and unregisters on close; storage
// remains the source of truth and this record is a disposable cache.
type LaneRecord struct {
	DurationMinutes int
	PeriodCode      string
	Status          string
	RegisteredAt    time.Time
}

type Inconsistency struct {
	At              time.Time
	DurationMinutes int
	Message         string
	AutoFixed       bool
}

type Result struct {
	IsConsistent bool
	AutoFixed    bool
	Message      string
}

// Verifier is the period-consistency watchdog. It compares in-memory lane
// registrations against persisted rounds on a fixed cadence and self-heals
// status drift; it is never a transactional participant in settlement.
type Verifier struct {
	Repo      repository.Repository
	Logger    *zap.Logger
	Durations []int

	mu      sync.Mutex
	lanes   map[int]*LaneRecord
	history []Inconsistency
}

func New(repo repository.Repository, durations []int, logger *zap.Logger) *Verifier {
	return &Verifier{
		Repo:      repo,
		Logger:    logger,
		Durations: durations,
		lanes:     map[int]*LaneRecord{},
	}
}

func (v *Verifier) Register(durationMinutes int, periodCode, status string) {
	if v == nil {
		return
	}
	v.mu.Lock()
	v.lanes[durationMinutes] = &LaneRecord{
		DurationMinutes: durationMinutes,
		PeriodCode:      periodCode,
		Status:          status,
		RegisteredAt:    time.Now().UTC(),
	}
	v.mu.Unlock()
}

// Unregister drops the lane's record, but only if it still points at the
// given period; a lane that already re-registered a newer round is left
// alone.
func (v *Verifier) Unregister(durationMinutes int, periodCode string) {
	if v == nil {
		return
	}
	v.mu.Lock()
	if rec, ok := v.lanes[durationMinutes]; ok && rec.PeriodCode == periodCode {
		delete(v.lanes, durationMinutes)
	}
	v.mu.Unlock()
}

func (v *Verifier) Record(durationMinutes int) *LaneRecord {
	if v == nil {
		return nil
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	rec, ok := v.lanes[durationMinutes]
	if !ok {
		return nil
	}
	copied := *rec
	return &copied
}

// Verify compares one lane's believed-active round against storage.
// A period-code mismatch is reported as inconsistent and needs scheduler
// intervention; a status-only mismatch is auto-corrected in memory since
// storage wins.
func (v *Verifier) Verify(ctx context.Context, durationMinutes int) Result {
	if v == nil || v.Repo == nil {
		return Result{IsConsistent: true, Message: "verifier not wired"}
	}
	v.mu.Lock()
	rec, ok := v.lanes[durationMinutes]
	v.mu.Unlock()
	if !ok {
		// Between rounds; nothing to check.
		return Result{IsConsistent: true, Message: "no active registration"}
	}

	persisted, err := v.Repo.GetRoundByCode(ctx, rec.PeriodCode)
	if err != nil {
		msg := fmt.Sprintf("lane %dm: storage read failed: %v", durationMinutes, err)
		v.note(durationMinutes, msg, false)
		return Result{IsConsistent: false, Message: msg}
	}
	if persisted == nil {
		msg := fmt.Sprintf("lane %dm: round %s not found in storage", durationMinutes, rec.PeriodCode)
		v.note(durationMinutes, msg, false)
		return Result{IsConsistent: false, Message: msg}
	}
	if persisted.Status != rec.Status {
		msg := fmt.Sprintf("lane %dm: status drift %s -> %s for %s",
			durationMinutes, rec.Status, persisted.Status, rec.PeriodCode)
		v.mu.Lock()
		if cur, ok := v.lanes[durationMinutes]; ok && cur.PeriodCode == rec.PeriodCode {
			cur.Status = persisted.Status
		}
		v.mu.Unlock()
		v.note(durationMinutes, msg, true)
		metrics.VerifierFixes.Inc()
		return Result{IsConsistent: true, AutoFixed: true, Message: "auto-fixed: " + msg}
	}
	return Result{IsConsistent: true, Message: "consistent"}
}

// ReportFault records a consistency fault detected outside the verifier's
// own cadence, e.g. a round missing from storage at settlement time. The
// fault lands in the rolling inconsistency log like any detection.
func (v *Verifier) ReportFault(durationMinutes int, msg string) {
	if v == nil {
		return
	}
	v.note(durationMinutes, msg, false)
}

func (v *Verifier) VerifyAll(ctx context.Context) []Result {
	if v == nil {
		return nil
	}
	results := make([]Result, 0, len(v.Durations))
	for _, d := range v.Durations {
		results = append(results, v.Verify(ctx, d))
	}
	return results
}

// AutoFix re-registers every lane whose persisted active round can still be
// found and returns the number of fixes plus the unresolved errors.
func (v *Verifier) AutoFix(ctx context.Context) (int, []error) {
	if v == nil || v.Repo == nil {
		return 0, nil
	}
	fixed := 0
	var errs []error
	for _, d := range v.Durations {
		res := v.Verify(ctx, d)
		if res.IsConsistent && !res.AutoFixed {
			continue
		}
		if res.AutoFixed {
			fixed++
			continue
		}
		active, err := v.Repo.GetActiveRoundByDuration(ctx, d)
		if err != nil {
			errs = append(errs, fmt.Errorf("lane %dm: %w", d, err))
			continue
		}
		if active == nil {
			errs = append(errs, fmt.Errorf("lane %dm: no active round in storage", d))
			continue
		}
		v.Register(d, active.PeriodCode, active.Status)
		metrics.VerifierFixes.Inc()
		fixed++
	}
	if v.Logger != nil && (fixed > 0 || len(errs) > 0) {
		v.Logger.Info("verifier auto-fix pass", zap.Int("fixed", fixed), zap.Int("unresolved", len(errs)))
	}
	return fixed, errs
}

// Inconsistencies returns the rolling log of the most recent detections,
// newest last.
func (v *Verifier) Inconsistencies() []Inconsistency {
	if v == nil {
		return nil
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]Inconsistency, len(v.history))
	copy(out, v.history)
	return out
}

func (v *Verifier) note(durationMinutes int, msg string, autoFixed bool) {
	if v.Logger != nil {
		if autoFixed {
			v.Logger.Info("verifier auto-fixed drift", zap.String("detail", msg))
		} else {
			v.Logger.Warn("verifier inconsistency", zap.String("detail", msg))
		}
	}
	v.mu.Lock()
	v.history = append(v.history, Inconsistency{
		At:              time.Now().UTC(),
		DurationMinutes: durationMinutes,
		Message:         msg,
		AutoFixed:       autoFixed,
	})
	if len(v.history) > inconsistencyLogSize {
		v.history = v.history[len(v.history)-inconsistencyLogSize:]
	}
	v.mu.Unlock()
}
