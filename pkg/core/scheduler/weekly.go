package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/residency-scheduler/pkg/core/calendar"
	"github.com/jakechorley/residency-scheduler/pkg/core/eligibility"
	"github.com/jakechorley/residency-scheduler/pkg/core/metrics"
	"github.com/jakechorley/residency-scheduler/pkg/core/model"
	"github.com/jakechorley/residency-scheduler/pkg/core/scoring"
	"github.com/jakechorley/residency-scheduler/pkg/core/stats"
)

// ClinicTemplate is a recurring clinic session staffed by one or more residents
type ClinicTemplate struct {
	ID        string       `yaml:"id" validate:"required"`
	Weekday   time.Weekday `yaml:"weekday" validate:"min=0,max=6"`
	Service   string       `yaml:"service"`
	MinPGY    int          `yaml:"minPGY" validate:"min=0,max=7"`
	Residents int          `yaml:"residents" validate:"min=1"`
}

// ORTemplate is a recurring operating room session staffed by a team
type ORTemplate struct {
	ID        string       `yaml:"id" validate:"required"`
	Weekday   time.Weekday `yaml:"weekday" validate:"min=0,max=6"`
	Service   string       `yaml:"service"`
	SurgeonID string       `yaml:"surgeonId"`
	CaseType  string       `yaml:"caseType"`
	Hours     float64      `yaml:"hours" validate:"min=0"`
	MinPGY    int          `yaml:"minPGY" validate:"min=0,max=7"`
	TeamSize  int          `yaml:"teamSize" validate:"oneof=2 3"`
}

// WeeklyInput is the input of the clinical scheduler
type WeeklyInput struct {
	Input

	// WeekStart is the Sunday opening the week
	WeekStart time.Time

	Clinics []ClinicTemplate
	ORSlots []ORTemplate

	// CallHistory holds the monthly call assignments around the week. They drive
	// post-call protection and the on-call penalty but never count.
	CallHistory []model.DutyAssignment
}

func (in WeeklyInput) validate() error {
	if in.WeekStart.Weekday() != time.Sunday {
		return fmt.Errorf("%w: week must start on a Sunday, got %s", ErrInvalidInput, in.WeekStart.Weekday())
	}
	if err := in.Input.validate(); err != nil {
		return err
	}

	ids := make(map[string]bool)
	for _, c := range in.Clinics {
		if c.ID == "" || ids[c.ID] {
			return fmt.Errorf("%w: clinic template id %q is empty or duplicated", ErrInvalidInput, c.ID)
		}
		ids[c.ID] = true
		if c.Residents < 1 {
			return fmt.Errorf("%w: clinic %q needs at least one resident", ErrInvalidInput, c.ID)
		}
		if c.Weekday < time.Sunday || c.Weekday > time.Saturday {
			return fmt.Errorf("%w: clinic %q has invalid weekday %d", ErrInvalidInput, c.ID, c.Weekday)
		}
	}
	for _, t := range in.ORSlots {
		if t.ID == "" || ids[t.ID] {
			return fmt.Errorf("%w: OR template id %q is empty or duplicated", ErrInvalidInput, t.ID)
		}
		ids[t.ID] = true
		if t.TeamSize != 2 && t.TeamSize != 3 {
			return fmt.Errorf("%w: OR %q has team size %d, must be 2 or 3", ErrInvalidInput, t.ID, t.TeamSize)
		}
		if t.Weekday < time.Sunday || t.Weekday > time.Saturday {
			return fmt.Errorf("%w: OR %q has invalid weekday %d", ErrInvalidInput, t.ID, t.Weekday)
		}
	}
	return nil
}

// GenerateWeekly builds the clinical schedule of one week.
//
// Each day fills its OR teams first, then its clinics. An OR team is a senior primary
// plus teamSize-1 assistants chosen under the team-composition rule. Call duties from
// the monthly calendar never block a clinical slot, but a protected call the night
// before does.
func GenerateWeekly(ctx context.Context, in WeeklyInput, opts ...Option) (metrics.Schedule, error) {
	o := buildOptions(opts)
	logger := o.logger

	// Step 1: Validate inputs
	if err := in.validate(); err != nil {
		return metrics.Schedule{}, err
	}

	period := calendar.WeekPeriod(in.WeekStart)
	periodKey := calendar.WeekKey(in.WeekStart)
	r := in.Rules

	logger.Info("Generating weekly schedule",
		zap.String("period", periodKey),
		zap.Int("residents", len(in.Residents)),
		zap.Int("or_templates", len(in.ORSlots)),
		zap.Int("clinic_templates", len(in.Clinics)))

	// Step 2: Initialise the statistics tracker, with call duties as history only
	tracker, err := stats.New(stats.Init{
		Residents:  in.Residents,
		Prior:      in.Prior,
		History:    in.CallHistory,
		CarryOvers: in.CarryOvers,
		Leave:      in.Leave,
		Period:     period,
	})
	if err != nil {
		return metrics.Schedule{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	scorer := scoring.NewScorer(r, r.WeeklyWeights)
	constraints := eligibility.Weekly(r)
	run := newRun(r, tracker, logger)

	// Step 3: Process each day in chronological order
	for _, day := range calendar.EachDay(period) {
		if err := ctx.Err(); err != nil {
			return metrics.Schedule{}, err
		}
		tracker.BeginDay(day)
		block := blockPointer(day, in.Blocks)

		for _, tmpl := range in.ORSlots {
			if tmpl.Weekday != day.Weekday() {
				continue
			}
			if err := run.fillORTeam(orSlot(tmpl, day, block), constraints, scorer); err != nil {
				return metrics.Schedule{}, err
			}
		}

		for _, tmpl := range in.Clinics {
			if tmpl.Weekday != day.Weekday() {
				continue
			}
			if err := run.fillClinic(tmpl, day, block, constraints, scorer); err != nil {
				return metrics.Schedule{}, err
			}
		}
	}

	// Step 4: Audit and assemble
	violations := append(run.violations, metrics.Audit(metrics.AuditInput{
		Horizon:     model.HorizonWeekly,
		Period:      period,
		Residents:   in.Residents,
		Assignments: run.assignments,
		Leave:       in.Leave,
		Rules:       r,
		Blocks:      in.Blocks,
	})...)

	schedule := metrics.Assemble(metrics.AssembleInput{
		Horizon:       model.HorizonWeekly,
		PeriodKey:     periodKey,
		Period:        period,
		Residents:     in.Residents,
		Assignments:   run.assignments,
		Violations:    violations,
		RequiredSlots: run.required,
		FilledSlots:   run.filled,
		GeneratedAt:   o.now().UTC(),
	})

	logger.Info("Weekly schedule generated",
		zap.String("period", periodKey),
		zap.Int("assignments", len(schedule.Assignments)),
		zap.Int("hard_violations", schedule.Summary.HardViolations),
		zap.Float64("coverage", schedule.Summary.CoverageRate))

	return schedule, nil
}

func orSlot(tmpl ORTemplate, day time.Time, block *model.RotationBlock) model.Slot {
	return model.Slot{
		ID:        fmt.Sprintf("%s-%s", calendar.DayKey(day), tmpl.ID),
		Date:      day,
		Type:      model.DutyOR,
		Service:   tmpl.Service,
		MinPGY:    tmpl.MinPGY,
		SurgeonID: tmpl.SurgeonID,
		CaseType:  tmpl.CaseType,
		Hours:     tmpl.Hours,
		TeamSize:  tmpl.TeamSize,
		Block:     block,
	}
}

// fillORTeam picks the primary with the supervisory seniority sign, then the
// assistants. Every seat counts as one required slot.
func (r *run) fillORTeam(slot model.Slot, constraints []eligibility.Constraint, scorer scoring.Scorer) error {
	primary, err := r.fillSlot(slot, pass{
		constraints: constraints,
		scorer:      scorer,
		role:        scoring.RoleSupervisory,
		failRule:    model.RuleNoEligibleCandidate,
	})
	if err != nil {
		return err
	}
	seats := slot.TeamSize - 1
	if primary == nil {
		r.required += seats
		return nil
	}
	r.assignments[len(r.assignments)-1].TeamRole = model.TeamRolePrimary

	// Assistants need not meet the primary's seniority floor
	assistantSlot := slot
	assistantSlot.MinPGY = 0
	pool := eligibility.Filter(r.tracker, assistantSlot, constraints)
	assistants := scorer.SelectAssistants(r.tracker, pool, primary.stats, assistantSlot, r.rules.TeamCompositionRules)

	r.required += seats
	for i, s := range assistants {
		seat := assistantSlot
		seat.ID = fmt.Sprintf("%s/assistant-%d", slot.ID, i+1)
		a := seat.Assignment(s.Resident.ID, r.rules.Points(model.DutyOR))
		a.TeamRole = model.TeamRoleAssistant
		if err := r.commit(a); err != nil {
			return err
		}
	}

	if len(assistants) < seats {
		r.violate(model.SeverityHard, model.RuleTeamIncomplete, primary.stats.Resident.ID, slot.Date,
			"OR %s has %d of %d team members", slot.ID, len(assistants)+1, slot.TeamSize)
	}
	return nil
}

// fillClinic fills the seats of one clinic session. Falling below the configured
// minimum is a hard violation, any other empty seat a soft one.
func (r *run) fillClinic(tmpl ClinicTemplate, day time.Time, block *model.RotationBlock, constraints []eligibility.Constraint, scorer scoring.Scorer) error {
	staffed := 0
	for seat := 1; seat <= tmpl.Residents; seat++ {
		slot := model.Slot{
			ID:      fmt.Sprintf("%s-%s/%d", calendar.DayKey(day), tmpl.ID, seat),
			Date:    day,
			Type:    model.DutyClinic,
			Service: tmpl.Service,
			MinPGY:  tmpl.MinPGY,
			Block:   block,
		}
		filled, err := r.fillSlot(slot, pass{
			constraints: constraints,
			scorer:      scorer,
			role:        scoring.RolePrimary,
		})
		if err != nil {
			return err
		}
		if filled != nil {
			staffed++
		}
	}

	needed := r.rules.ClinicStaffingThresholds.MinResidentsPerClinic
	switch {
	case staffed < needed:
		r.violate(model.SeverityHard, model.RuleClinicUnderstaffed, "", day,
			"clinic %s staffed by %d residents, minimum is %d", tmpl.ID, staffed, needed)
	case staffed < tmpl.Residents:
		r.violate(model.SeveritySoft, model.RuleClinicUnderstaffed, "", day,
			"clinic %s staffed by %d of %d residents", tmpl.ID, staffed, tmpl.Residents)
	}
	return nil
}
