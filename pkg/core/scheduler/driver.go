// Package scheduler contains the greedy assignment drivers of the three horizons.
//
// Every driver iterates its time units in chronological order (days for the monthly
// and weekly horizons, phases then blocks for the yearly horizon), filters the roster
// through the eligibility constraints, scores the eligible residents and commits the
// best one to the statistics tracker. A slot nobody can take is recorded as a
// violation and skipped; generation never aborts on a constraint problem.
package scheduler

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/residency-scheduler/pkg/core/calendar"
	"github.com/jakechorley/residency-scheduler/pkg/core/eligibility"
	"github.com/jakechorley/residency-scheduler/pkg/core/model"
	"github.com/jakechorley/residency-scheduler/pkg/core/rules"
	"github.com/jakechorley/residency-scheduler/pkg/core/scoring"
	"github.com/jakechorley/residency-scheduler/pkg/core/stats"
)

// ErrInvalidInput is returned before any work starts when the inputs are unusable
var ErrInvalidInput = errors.New("invalid input")

// Input holds the inputs shared by every horizon
type Input struct {
	// Residents is the roster for the run
	Residents []model.Resident

	// Leave intervals overlapping the period (only Approved participate)
	Leave []model.LeaveInterval

	// Prior assignments already committed (in-period priors count, others seed history)
	Prior []model.DutyAssignment

	// CarryOvers from the previous period
	CarryOvers []model.CarryOver

	Rules rules.Rules

	// Holidays expanded for the period
	Holidays calendar.Holidays

	// Blocks are the rotation blocks of the academic year (used for weekend caps)
	Blocks []model.RotationBlock
}

func (in Input) validate() error {
	if len(in.Residents) == 0 {
		return fmt.Errorf("%w: roster is empty", ErrInvalidInput)
	}
	seen := make(map[string]bool, len(in.Residents))
	for _, r := range in.Residents {
		if r.ID == "" {
			return fmt.Errorf("%w: resident %q has no id", ErrInvalidInput, r.FullName())
		}
		if seen[r.ID] {
			return fmt.Errorf("%w: duplicate resident id %q", ErrInvalidInput, r.ID)
		}
		seen[r.ID] = true
		if r.PGY < 1 || r.PGY > 7 {
			return fmt.Errorf("%w: resident %q has PGY %d, must be 1-7", ErrInvalidInput, r.ID, r.PGY)
		}
	}
	for _, l := range in.Leave {
		if l.End.Before(l.Start) {
			return fmt.Errorf("%w: leave %q ends before it starts", ErrInvalidInput, l.ID)
		}
	}
	if err := in.Rules.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

// Option customises a generation run
type Option func(*options)

type options struct {
	logger *zap.Logger
	now    func() time.Time
}

// WithLogger sets the logger of the run (zap.NewNop by default)
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithClock overrides the generated-at timestamp source
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// run is the state exclusively owned by one driver invocation
type run struct {
	rules   rules.Rules
	tracker *stats.Tracker
	logger  *zap.Logger

	assignments []model.DutyAssignment
	violations  []model.Violation

	required int
	filled   int
}

func newRun(r rules.Rules, tracker *stats.Tracker, logger *zap.Logger) *run {
	return &run{
		rules:       r,
		tracker:     tracker,
		logger:      logger,
		assignments: make([]model.DutyAssignment, 0),
		violations:  make([]model.Violation, 0),
	}
}

// pass describes how one slot is filled
type pass struct {
	constraints []eligibility.Constraint

	// relaxed is tried when no one passes constraints (nil disables relaxation)
	relaxed []eligibility.Constraint

	scorer scoring.Scorer
	role   scoring.Role

	// failRule is recorded as a hard violation when the slot stays empty ("" records nothing)
	failRule string
}

// fillResult reports how a slot was filled
type fillResult struct {
	stats   *stats.ResidentStatistics
	relaxed bool
}

// fillSlot runs filter, optional relaxation, scoring and commit for one slot.
// Returns a nil result when nobody could take the slot.
func (r *run) fillSlot(slot model.Slot, p pass) (*fillResult, error) {
	r.required++

	eligible := eligibility.Filter(r.tracker, slot, p.constraints)
	relaxed := false
	if len(eligible) == 0 && p.relaxed != nil {
		eligible = eligibility.Filter(r.tracker, slot, p.relaxed)
		relaxed = len(eligible) > 0
	}

	if len(eligible) == 0 {
		if p.failRule != "" {
			r.violate(model.SeverityHard, p.failRule, "", slot.Date, "no eligible resident for %s slot %s", slot.Type, slot.ID)
		}
		return nil, nil
	}

	best := p.scorer.Best(r.tracker, eligible, slot, p.role)
	if err := r.commit(slot.Assignment(best.Resident.ID, r.rules.Points(slot.Type))); err != nil {
		return nil, err
	}

	if relaxed {
		r.violate(model.SeveritySoft, model.RulePGYTargetExceeded, best.Resident.ID, slot.Date,
			"%s assigned %s beyond PGY target (shortage)", best.Resident.FullName(), slot.Type)
	}

	return &fillResult{stats: best, relaxed: relaxed}, nil
}

// commit records the assignment in the tracker and the run output
func (r *run) commit(a model.DutyAssignment) error {
	if err := r.tracker.Record(a); err != nil {
		return fmt.Errorf("failed to record assignment: %w", err)
	}
	r.assignments = append(r.assignments, a)

	// The holiday-leave overlay does not fill a slot
	if a.CountsTowardTotals() && a.Type != model.DutyHolidayLeave {
		r.filled++
	}

	r.logger.Debug("Committed assignment",
		zap.String("resident_id", a.ResidentID),
		zap.String("date", calendar.DayKey(a.Date)),
		zap.String("type", string(a.Type)),
		zap.String("slot_id", a.SlotID))
	return nil
}

// commitPostCall records the passive PostCall row on the day after a protected duty
// when that day is still inside the period
func (r *run) commitPostCall(a model.DutyAssignment) error {
	if !r.rules.IsProtected(a.Type) {
		return nil
	}
	next := calendar.NextDay(a.Date)
	if !r.tracker.Period().Contains(next) {
		return nil
	}
	return r.commit(model.DutyAssignment{
		ResidentID: a.ResidentID,
		Date:       next,
		Type:       model.DutyPostCall,
		Points:     r.rules.Points(model.DutyPostCall),
		Status:     model.StatusDraft,
		SlotID:     a.SlotID + "/postcall",
	})
}

func (r *run) violate(severity model.Severity, rule, residentID string, date time.Time, format string, args ...any) {
	v := model.Violation{
		Severity:    severity,
		Rule:        rule,
		ResidentID:  residentID,
		Date:        calendar.DateOnly(date),
		Description: fmt.Sprintf(format, args...),
	}
	r.violations = append(r.violations, v)

	fields := []zap.Field{
		zap.String("rule", rule),
		zap.String("date", calendar.DayKey(date)),
		zap.String("description", v.Description),
	}
	if severity == model.SeverityHard {
		r.logger.Warn("Hard violation", fields...)
	} else {
		r.logger.Info("Soft violation", fields...)
	}
}

func blockPointer(date time.Time, blocks []model.RotationBlock) *model.RotationBlock {
	b, ok := calendar.BlockForDate(date, blocks)
	if !ok {
		return nil
	}
	return &b
}
