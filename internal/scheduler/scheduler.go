package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"wingo/internal/events"
	"wingo/internal/metrics"
	"wingo/internal/models"
	"wingo/internal/outcome"
	"wingo/internal/repository"
	"wingo/internal/service"
	"wingo/internal/settle"
	"wingo/internal/verify"
)

const (
	StateIdle     = "idle"
	StateActive   = "active"
	StateSettling = "settling"
)

var (
	ErrRoundNotActive = errors.New("round is not active on any lane")
	ErrInvalidDigit   = errors.New("outcome digit must be between 0 and 9")
)

// Scheduler owns one independent timer-driven lane per configured duration.
// Lanes run fully concurrently with each other and with wager intake; a
// failure in one lane's cycle is caught at the transition boundary and never
// stops the others.
type Scheduler struct {
	Repo     repository.Repository
	Engine   *settle.Engine
	Settings *service.GameSettingsService
	Tracker  *outcome.ProfitTracker
	Verifier *verify.Verifier
	Bus      events.Publisher
	Logger   *zap.Logger
	Cooldown time.Duration

	baseCtx context.Context
	lanes   map[int]*Lane
}

// Lane is the per-duration state machine:
// Idle -> Active -> (timeout | forced-complete | forced-cancel) -> Settling
// -> Idle(cooldown) -> Active. The mutex serializes transitions; the timer
// is stopped under it before any forced action, which removes the race of a
// natural timeout firing mid-cancel.
type Lane struct {
	sched           *Scheduler
	durationMinutes int

	mu      sync.Mutex
	state   string
	timer   *time.Timer
	current *models.Round
	closed  bool
}

type LaneStatus struct {
	DurationMinutes int        `json:"duration_minutes"`
	State           string     `json:"state"`
	PeriodCode      string     `json:"period_code,omitempty"`
	StartTime       *time.Time `json:"start_time,omitempty"`
	EndTime         *time.Time `json:"end_time,omitempty"`
}

func New(repo repository.Repository, engine *settle.Engine, settings *service.GameSettingsService,
	tracker *outcome.ProfitTracker, verifier *verify.Verifier, bus events.Publisher,
	logger *zap.Logger, durations []int, cooldown time.Duration) *Scheduler {
	if cooldown <= 0 {
		cooldown = 5 * time.Second
	}
	s := &Scheduler{
		Repo:     repo,
		Engine:   engine,
		Settings: settings,
		Tracker:  tracker,
		Verifier: verifier,
		Bus:      bus,
		Logger:   logger,
		Cooldown: cooldown,
		lanes:    map[int]*Lane{},
	}
	for _, d := range durations {
		if d <= 0 {
			continue
		}
		s.lanes[d] = &Lane{sched: s, durationMinutes: d, state: StateIdle}
	}
	return s
}

// Start recovers any round whose end time passed while the process was down,
// then opens every lane. The loop never terminates on its own; Stop tears it
// down.
func (s *Scheduler) Start(ctx context.Context) {
	if s == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	s.baseCtx = ctx
	s.recoverStalled(ctx)
	for _, lane := range s.lanes {
		go lane.open()
	}
}

func (s *Scheduler) Stop() {
	if s == nil {
		return
	}
	for _, lane := range s.lanes {
		lane.mu.Lock()
		lane.closed = true
		if lane.timer != nil {
			lane.timer.Stop()
			lane.timer = nil
		}
		lane.mu.Unlock()
	}
}

// ForceComplete ends an active round ahead of its natural timeout. The
// pending timer is cancelled under the lane mutex first, so the round cannot
// be settled twice.
func (s *Scheduler) ForceComplete(periodCode string) error {
	lane := s.laneFor(periodCode)
	if lane == nil {
		return ErrRoundNotActive
	}
	return lane.forceComplete(periodCode)
}

// Cancel aborts an active round without settlement: every still-pending
// stake is refunded and the round never gets an outcome. A round already in
// Settling cannot be cancelled.
func (s *Scheduler) Cancel(periodCode string) error {
	lane := s.laneFor(periodCode)
	if lane == nil {
		return ErrRoundNotActive
	}
	return lane.cancel(periodCode)
}

// ScheduleOutcome plants an admin override consumed at settling time; it
// takes absolute precedence over every generator algorithm.
func (s *Scheduler) ScheduleOutcome(ctx context.Context, periodCode string, digit int) error {
	if digit < 0 || digit > 9 {
		return ErrInvalidDigit
	}
	return s.Repo.UpsertScheduledOutcome(ctx, &models.ScheduledOutcome{
		PeriodCode: periodCode,
		Digit:      digit,
	})
}

func (s *Scheduler) Snapshot() []LaneStatus {
	if s == nil {
		return nil
	}
	out := make([]LaneStatus, 0, len(s.lanes))
	for _, lane := range s.lanes {
		lane.mu.Lock()
		st := LaneStatus{DurationMinutes: lane.durationMinutes, State: lane.state}
		if lane.current != nil {
			st.PeriodCode = lane.current.PeriodCode
			start, end := lane.current.StartTime, lane.current.EndTime
			st.StartTime, st.EndTime = &start, &end
		}
		lane.mu.Unlock()
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DurationMinutes < out[j].DurationMinutes })
	return out
}

func (s *Scheduler) laneFor(periodCode string) *Lane {
	for _, lane := range s.lanes {
		lane.mu.Lock()
		match := lane.current != nil && lane.current.PeriodCode == periodCode
		lane.mu.Unlock()
		if match {
			return lane
		}
	}
	return nil
}

// chooseOutcome resolves the winning digit for a closing round: an admin
// override wins outright, otherwise the configured algorithm runs over the
// round's pending wagers with a freshly loaded profit target.
func (s *Scheduler) chooseOutcome(ctx context.Context, round *models.Round) int {
	// A digit already persisted by an interrupted settlement pass is final;
	// regenerating would settle stragglers against a different result.
	if round.OutcomeDigit != nil && *round.OutcomeDigit >= 0 && *round.OutcomeDigit <= 9 {
		return *round.OutcomeDigit
	}

	if scheduled, err := s.Repo.GetScheduledOutcome(ctx, round.PeriodCode); err == nil && scheduled != nil {
		if err := s.Repo.MarkScheduledOutcomeUsed(ctx, round.PeriodCode); err != nil && s.Logger != nil {
			s.Logger.Warn("mark scheduled outcome used failed", zap.String("period_code", round.PeriodCode), zap.Error(err))
		}
		if scheduled.Digit >= 0 && scheduled.Digit <= 9 {
			if s.Logger != nil {
				s.Logger.Info("using admin-scheduled outcome",
					zap.String("period_code", round.PeriodCode), zap.Int("digit", scheduled.Digit))
			}
			return scheduled.Digit
		}
	}

	pending, err := s.Repo.ListPendingWagersByPeriod(ctx, round.PeriodCode)
	if err != nil {
		if s.Logger != nil {
			s.Logger.Warn("load pending wagers failed, choosing without bias",
				zap.String("period_code", round.PeriodCode), zap.Error(err))
		}
		pending = nil
	}
	s.Tracker.SetTargetPercent(s.Settings.TargetProfitPercent(ctx))
	algo := outcome.ForName(s.Settings.Algorithm(ctx), s.Tracker)
	return algo.Choose(pending)
}

// recoverStalled settles rounds left active past their end time by a crash;
// their timers will never fire again, so they go straight through Settling.
func (s *Scheduler) recoverStalled(ctx context.Context) {
	stalled, err := s.Repo.ListStalledActiveRounds(ctx, time.Now().UTC())
	if err != nil {
		if s.Logger != nil {
			s.Logger.Warn("stalled round scan failed", zap.Error(err))
		}
		return
	}
	for i := range stalled {
		round := stalled[i]
		digit := s.chooseOutcome(ctx, &round)
		res, err := s.Engine.Settle(ctx, &round, digit)
		if err != nil {
			if s.Logger != nil {
				s.Logger.Warn("stalled round settlement failed",
					zap.String("period_code", round.PeriodCode), zap.Error(err))
			}
			continue
		}
		if _, err := s.Engine.Sweep(ctx, round.PeriodCode, digit, res.Counted); err != nil && s.Logger != nil {
			s.Logger.Warn("stalled round sweep failed", zap.String("period_code", round.PeriodCode), zap.Error(err))
		}
		if s.Bus != nil {
			s.Bus.Publish(ctx, events.RoundEnded(&round, digit))
		}
		metrics.RoundsSettled.WithLabelValues(strconv.Itoa(round.DurationMinutes)).Inc()
		if s.Logger != nil {
			s.Logger.Info("recovered stalled round",
				zap.String("period_code", round.PeriodCode),
				zap.Int("outcome_digit", digit),
				zap.Int("won", res.Won), zap.Int("lost", res.Lost))
		}
	}
}

// --- Lane transitions -------------------------------------------------------

// open is Idle -> Active: derive the deterministic period, create or reuse
// the round row, arm the single-shot timer for the period's end, register
// with the verifier, broadcast.
func (l *Lane) open() {
	defer l.recoverCycle()

	// The DB round-trip happens before the lock; holding the mutex across it
	// would stall Snapshot and the admin force paths on every open.
	ctx := l.sched.baseCtx
	now := time.Now().UTC()
	code := PeriodCode(now, l.durationMinutes)
	start, end := PeriodWindow(now, l.durationMinutes)
	round := &models.Round{
		PeriodCode:      code,
		DurationMinutes: l.durationMinutes,
		StartTime:       start,
		EndTime:         end,
		Status:          models.RoundStatusActive,
	}
	if err := l.sched.Repo.UpsertRound(ctx, round); err != nil {
		if l.sched.Logger != nil {
			l.sched.Logger.Warn("round open failed, retrying after cooldown",
				zap.Int("duration", l.durationMinutes), zap.Error(err))
		}
		l.reopenAfterCooldown()
		return
	}

	l.mu.Lock()
	if l.closed {
		// Shut down mid-open; the orphaned active row settles via the
		// stalled-round scan on next start.
		l.mu.Unlock()
		return
	}
	l.current = round
	l.state = StateActive
	l.timer = time.AfterFunc(time.Until(end), func() { l.onTimeout(code) })
	l.mu.Unlock()

	l.sched.Verifier.Register(l.durationMinutes, code, models.RoundStatusActive)
	if l.sched.Bus != nil {
		l.sched.Bus.Publish(ctx, events.RoundStarted(round))
	}
	if l.sched.Logger != nil {
		l.sched.Logger.Info("round opened",
			zap.Int("duration", l.durationMinutes),
			zap.String("period_code", code),
			zap.Time("end_time", end))
	}
}

// onTimeout is the natural Active -> Settling transition. A stale timer
// (already force-completed or cancelled) is a no-op.
func (l *Lane) onTimeout(periodCode string) {
	l.mu.Lock()
	if l.closed || l.state != StateActive || l.current == nil || l.current.PeriodCode != periodCode {
		l.mu.Unlock()
		return
	}
	l.state = StateSettling
	l.timer = nil
	round := l.current
	l.mu.Unlock()

	l.settleAndReopen(round)
}

func (l *Lane) forceComplete(periodCode string) error {
	l.mu.Lock()
	if l.closed || l.state != StateActive || l.current == nil || l.current.PeriodCode != periodCode {
		l.mu.Unlock()
		return ErrRoundNotActive
	}
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	l.state = StateSettling
	round := l.current
	l.mu.Unlock()

	l.settleAndReopen(round)
	return nil
}

func (l *Lane) cancel(periodCode string) error {
	l.mu.Lock()
	if l.closed || l.state != StateActive || l.current == nil || l.current.PeriodCode != periodCode {
		l.mu.Unlock()
		return ErrRoundNotActive
	}
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	l.state = StateSettling
	round := l.current
	l.mu.Unlock()

	defer l.recoverCycle()
	ctx := l.sched.baseCtx
	refunded, err := l.sched.Engine.Refund(ctx, periodCode)
	if err != nil && l.sched.Logger != nil {
		l.sched.Logger.Warn("cancel refund pass failed", zap.String("period_code", periodCode), zap.Error(err))
	}
	if err := l.sched.Repo.UpdateRoundStatus(ctx, periodCode, models.RoundStatusCancelled); err != nil && l.sched.Logger != nil {
		l.sched.Logger.Warn("cancel status update failed", zap.String("period_code", periodCode), zap.Error(err))
	}
	l.sched.Verifier.Unregister(l.durationMinutes, periodCode)
	if l.sched.Bus != nil {
		l.sched.Bus.Publish(ctx, events.RoundCancelled(round))
	}
	metrics.RoundsCancelled.WithLabelValues(strconv.Itoa(l.durationMinutes)).Inc()
	if l.sched.Logger != nil {
		l.sched.Logger.Info("round cancelled",
			zap.String("period_code", periodCode), zap.Int("refunded", refunded))
	}
	l.reopenAfterCooldown()
	return nil
}

// settleAndReopen is Settling -> Idle(cooldown): pick the outcome, settle,
// sweep stragglers, unregister, broadcast, then re-arm after the cooldown.
func (l *Lane) settleAndReopen(round *models.Round) {
	defer l.recoverCycle()

	ctx := l.sched.baseCtx
	digit := l.sched.chooseOutcome(ctx, round)

	persisted, err := l.sched.Repo.GetRoundByCode(ctx, round.PeriodCode)
	if err == nil && persisted == nil {
		// Mutated out-of-band; a consistency fault, not a lane crash.
		if l.sched.Logger != nil {
			l.sched.Logger.Warn("round vanished before settlement", zap.String("period_code", round.PeriodCode))
		}
		l.sched.Verifier.ReportFault(l.durationMinutes,
			fmt.Sprintf("lane %dm: round %s not found in storage at settlement", l.durationMinutes, round.PeriodCode))
		l.sched.Verifier.Unregister(l.durationMinutes, round.PeriodCode)
		l.reopenAfterCooldown()
		return
	}

	res, err := l.sched.Engine.Settle(ctx, round, digit)
	if err != nil {
		if l.sched.Logger != nil {
			l.sched.Logger.Error("settlement failed, lane reopening",
				zap.String("period_code", round.PeriodCode), zap.Error(err))
		}
		l.sched.Verifier.Unregister(l.durationMinutes, round.PeriodCode)
		l.reopenAfterCooldown()
		return
	}

	if _, err := l.sched.Engine.Sweep(ctx, round.PeriodCode, digit, res.Counted); err != nil && l.sched.Logger != nil {
		l.sched.Logger.Warn("recovery sweep failed", zap.String("period_code", round.PeriodCode), zap.Error(err))
	}

	l.sched.Verifier.Unregister(l.durationMinutes, round.PeriodCode)
	if l.sched.Bus != nil {
		l.sched.Bus.Publish(ctx, events.RoundEnded(round, digit))
	}
	metrics.RoundsSettled.WithLabelValues(strconv.Itoa(l.durationMinutes)).Inc()
	if l.sched.Logger != nil {
		l.sched.Logger.Info("round settled",
			zap.String("period_code", round.PeriodCode),
			zap.Int("outcome_digit", digit),
			zap.Int("won", res.Won),
			zap.Int("lost", res.Lost),
			zap.Int("failed", res.Failed),
			zap.String("house_profit", res.HouseProfit.StringFixed(8)))
	}

	l.reopenAfterCooldown()
}

func (l *Lane) reopenAfterCooldown() {
	l.mu.Lock()
	l.state = StateIdle
	l.current = nil
	if !l.closed {
		l.timer = time.AfterFunc(l.sched.Cooldown, l.open)
	}
	l.mu.Unlock()
}

// recoverCycle keeps a panic inside one lane's cycle from crossing the lane
// boundary; the lane logs and re-arms itself.
func (l *Lane) recoverCycle() {
	if r := recover(); r != nil {
		if l.sched.Logger != nil {
			l.sched.Logger.Error("lane cycle panic",
				zap.Int("duration", l.durationMinutes), zap.Any("panic", r))
		}
		l.reopenAfterCooldown()
	}
}
