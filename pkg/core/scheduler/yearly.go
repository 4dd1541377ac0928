package scheduler

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/residency-scheduler/pkg/core/calendar"
	"github.com/jakechorley/residency-scheduler/pkg/core/eligibility"
	"github.com/jakechorley/residency-scheduler/pkg/core/metrics"
	"github.com/jakechorley/residency-scheduler/pkg/core/model"
	"github.com/jakechorley/residency-scheduler/pkg/core/scoring"
	"github.com/jakechorley/residency-scheduler/pkg/core/stats"
)

// RotationKind classifies a rotation for the yearly phases
type RotationKind string

const (
	RotationCore       RotationKind = "core"
	RotationElective   RotationKind = "elective"
	RotationOffService RotationKind = "offService"
)

// DefaultHolidayPeriods are the month-day anchors flagging holiday blocks
var DefaultHolidayPeriods = []string{"12-25"}

// Rotation is a service residents rotate through, one block at a time
type Rotation struct {
	Name        string       `yaml:"name" validate:"required"`
	Kind        RotationKind `yaml:"kind" validate:"oneof=core elective offService"`
	Service     string       `yaml:"service"`
	MinPGY      int          `yaml:"minPGY" validate:"min=0,max=7"`
	MaxPGY      int          `yaml:"maxPGY" validate:"min=0,max=7"`
	MinCapacity int          `yaml:"minCapacity" validate:"min=0"`
	MaxCapacity int          `yaml:"maxCapacity" validate:"min=0"`
	CaseType    string       `yaml:"caseType"`
	Hours       float64      `yaml:"hours" validate:"min=0"`

	// Teams split the residents of a core rotation block into balanced groups
	Teams []string `yaml:"teams"`
}

// Placement is a fixed (resident, block) cell decided outside the engine
type Placement struct {
	ResidentID string `yaml:"residentId" validate:"required"`
	Block      int    `yaml:"block" validate:"min=1"`
	Rotation   string `yaml:"rotation" validate:"required"`
}

// YearlyInput is the input of the rotation scheduler
type YearlyInput struct {
	Input

	AcademicYearStart time.Time

	Rotations []Rotation

	// ExternalRotators are visiting residents' fixed placements
	ExternalRotators []Placement

	// OffService are inflexible off-service placements of program residents
	OffService []Placement

	// ExamPGY residents get exam leave in ExamBlock (0 disables)
	ExamPGY   int
	ExamBlock int

	// HolidayLeaveCapacity is the number of residents on holiday leave per holiday block
	HolidayLeaveCapacity int

	// HolidayPeriods are "MM-DD" anchors flagging holiday blocks (DefaultHolidayPeriods when empty)
	HolidayPeriods []string
}

func (in YearlyInput) validate() error {
	if in.AcademicYearStart.IsZero() {
		return fmt.Errorf("%w: academic year start is required", ErrInvalidInput)
	}
	if err := in.Input.validate(); err != nil {
		return err
	}

	names := make(map[string]bool)
	for _, rot := range in.Rotations {
		if rot.Name == "" || names[rot.Name] {
			return fmt.Errorf("%w: rotation name %q is empty or duplicated", ErrInvalidInput, rot.Name)
		}
		names[rot.Name] = true
		switch rot.Kind {
		case RotationCore, RotationElective, RotationOffService:
		default:
			return fmt.Errorf("%w: rotation %q has unknown kind %q", ErrInvalidInput, rot.Name, rot.Kind)
		}
		if rot.MaxCapacity < rot.MinCapacity {
			return fmt.Errorf("%w: rotation %q has maxCapacity below minCapacity", ErrInvalidInput, rot.Name)
		}
		if rot.MaxPGY > 0 && rot.MaxPGY < rot.MinPGY {
			return fmt.Errorf("%w: rotation %q has maxPGY below minPGY", ErrInvalidInput, rot.Name)
		}
	}

	residents := make(map[string]bool, len(in.Residents))
	for _, r := range in.Residents {
		residents[r.ID] = true
	}
	for _, p := range slices.Concat(in.ExternalRotators, in.OffService) {
		if !residents[p.ResidentID] {
			return fmt.Errorf("%w: placement for unknown resident %q", ErrInvalidInput, p.ResidentID)
		}
		if p.Block < 1 || p.Block > calendar.BlocksPerYear {
			return fmt.Errorf("%w: placement for %q has block %d, must be 1-%d", ErrInvalidInput, p.ResidentID, p.Block, calendar.BlocksPerYear)
		}
	}

	if in.ExamBlock < 0 || in.ExamBlock > calendar.BlocksPerYear {
		return fmt.Errorf("%w: exam block %d out of range", ErrInvalidInput, in.ExamBlock)
	}
	if in.HolidayLeaveCapacity < 0 {
		return fmt.Errorf("%w: holiday leave capacity must not be negative", ErrInvalidInput)
	}
	return nil
}

// yearly is the state of one rotation scheduling run
type yearly struct {
	*run
	in       YearlyInput
	blocks   []model.RotationBlock
	capacity map[int]map[string]int
	scorer   scoring.Scorer
}

// GenerateYearly builds the rotation schedule of one academic year.
//
// Every (resident, block) cell holds at most one placement. The phases run in a fixed
// order, each as a full pass over all blocks, and only fill cells still empty:
// external rotators, inflexible off-service placements, exam leave, holiday leave,
// core rotations up to their minimum capacity, electives up to their maximum capacity,
// then team balancing inside core rotations.
func GenerateYearly(ctx context.Context, in YearlyInput, opts ...Option) (metrics.Schedule, error) {
	o := buildOptions(opts)
	logger := o.logger

	// Step 1: Validate inputs and build the block calendar
	if err := in.validate(); err != nil {
		return metrics.Schedule{}, err
	}

	periods := in.HolidayPeriods
	if len(periods) == 0 {
		periods = DefaultHolidayPeriods
	}
	holidayDates, err := calendar.HolidayPeriodDates(in.AcademicYearStart, periods)
	if err != nil {
		return metrics.Schedule{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	blocks := calendar.GenerateRotationBlocks(in.AcademicYearStart, calendar.BlocksPerYear, calendar.BlockLengthDays, holidayDates)
	period := calendar.AcademicYearPeriod(in.AcademicYearStart)
	periodKey := calendar.AcademicYearKey(in.AcademicYearStart)

	logger.Info("Generating yearly schedule",
		zap.String("period", periodKey),
		zap.Int("residents", len(in.Residents)),
		zap.Int("rotations", len(in.Rotations)))

	// Step 2: Initialise the statistics tracker
	tracker, err := stats.New(stats.Init{
		Residents:  in.Residents,
		Prior:      in.Prior,
		CarryOvers: in.CarryOvers,
		Leave:      in.Leave,
		Period:     period,
	})
	if err != nil {
		return metrics.Schedule{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	y := &yearly{
		run:      newRun(in.Rules, tracker, logger),
		in:       in,
		blocks:   blocks,
		capacity: make(map[int]map[string]int, len(blocks)),
		scorer:   scoring.NewScorer(in.Rules, in.Rules.YearlyWeights),
	}
	for _, b := range blocks {
		y.capacity[b.Number] = make(map[string]int)
	}

	// Step 3: Run the phases in order
	phases := []struct {
		name string
		fn   func(ctx context.Context) error
	}{
		{"external rotators", func(ctx context.Context) error { return y.placeFixed(ctx, in.ExternalRotators) }},
		{"off-service", func(ctx context.Context) error { return y.placeFixed(ctx, in.OffService) }},
		{"exam leave", y.placeExamLeave},
		{"holiday leave", y.placeHolidayLeave},
		{"core rotations", func(ctx context.Context) error { return y.fillRotations(ctx, RotationCore) }},
		{"electives", func(ctx context.Context) error { return y.fillRotations(ctx, RotationElective) }},
		{"team balancing", y.balanceTeams},
	}
	for _, phase := range phases {
		if err := ctx.Err(); err != nil {
			return metrics.Schedule{}, err
		}
		if err := phase.fn(ctx); err != nil {
			return metrics.Schedule{}, err
		}
		logger.Debug("Yearly phase complete",
			zap.String("phase", phase.name),
			zap.Int("assignments", len(y.assignments)))
	}

	y.reportEmptyCells()

	// Step 4: Audit and assemble
	violations := append(y.violations, metrics.Audit(metrics.AuditInput{
		Horizon:     model.HorizonYearly,
		Period:      period,
		Residents:   in.Residents,
		Assignments: y.assignments,
		Leave:       in.Leave,
		Rules:       in.Rules,
		Blocks:      blocks,
	})...)

	schedule := metrics.Assemble(metrics.AssembleInput{
		Horizon:       model.HorizonYearly,
		PeriodKey:     periodKey,
		Period:        period,
		Residents:     in.Residents,
		Assignments:   y.assignments,
		Violations:    violations,
		RequiredSlots: y.required,
		FilledSlots:   y.filled,
		GeneratedAt:   o.now().UTC(),
	})

	logger.Info("Yearly schedule generated",
		zap.String("period", periodKey),
		zap.Int("assignments", len(schedule.Assignments)),
		zap.Int("hard_violations", schedule.Summary.HardViolations),
		zap.Int("soft_violations", schedule.Summary.SoftViolations))

	return schedule, nil
}

func (y *yearly) block(number int) model.RotationBlock {
	return y.blocks[number-1]
}

func (y *yearly) rotation(name string) (Rotation, bool) {
	for _, rot := range y.in.Rotations {
		if rot.Name == name {
			return rot, true
		}
	}
	return Rotation{}, false
}

func (y *yearly) cellTaken(s *stats.ResidentStatistics, b model.RotationBlock) bool {
	return s.HasDutyOn(b.Start, model.DutyHolidayLeave)
}

// placeFixed commits placements decided outside the engine. A placement whose cell is
// already taken is reported and skipped.
func (y *yearly) placeFixed(ctx context.Context, placements []Placement) error {
	for _, p := range placements {
		if err := ctx.Err(); err != nil {
			return err
		}
		b := y.block(p.Block)
		y.tracker.BeginDay(b.Start)
		s, _ := y.tracker.Get(p.ResidentID)

		y.required++
		if y.cellTaken(s, b) {
			y.violate(model.SeverityHard, model.RulePlacementConflict, p.ResidentID, b.Start,
				"%s already placed in block %d, cannot add %s", s.Resident.FullName(), b.Number, p.Rotation)
			continue
		}

		slot := model.Slot{
			ID:       fmt.Sprintf("B%02d-%s/%s", b.Number, p.Rotation, p.ResidentID),
			Date:     b.Start,
			Type:     model.DutyExternalRotation,
			Rotation: p.Rotation,
			Block:    &b,
		}
		if rot, ok := y.rotation(p.Rotation); ok {
			slot.Service = rot.Service
			slot.CaseType = rot.CaseType
			slot.Hours = rot.Hours
		}
		if err := y.commit(slot.Assignment(p.ResidentID, y.rules.Points(slot.Type))); err != nil {
			return err
		}
		y.capacity[b.Number][p.Rotation]++
	}
	return nil
}

// placeExamLeave reserves the exam block of every resident at the exam PGY level
func (y *yearly) placeExamLeave(ctx context.Context) error {
	if y.in.ExamPGY == 0 || y.in.ExamBlock == 0 {
		return nil
	}
	b := y.block(y.in.ExamBlock)
	y.tracker.BeginDay(b.Start)

	for _, s := range y.tracker.All() {
		if s.Resident.PGY != y.in.ExamPGY {
			continue
		}
		if y.cellTaken(s, b) {
			y.violate(model.SeveritySoft, model.RulePlacementConflict, s.Resident.ID, b.Start,
				"%s has no free cell for exam leave in block %d", s.Resident.FullName(), b.Number)
			continue
		}
		y.required++
		slot := model.Slot{
			ID:    fmt.Sprintf("B%02d-exam/%s", b.Number, s.Resident.ID),
			Date:  b.Start,
			Type:  model.DutyExamLeave,
			Block: &b,
		}
		if err := y.commit(slot.Assignment(s.Resident.ID, y.rules.Points(slot.Type))); err != nil {
			return err
		}
	}
	return nil
}

// placeHolidayLeave grants holiday leave in holiday blocks by descending holiday
// points, at most once per resident per year. The leave is an overlay: the resident's
// cell stays open for a rotation.
func (y *yearly) placeHolidayLeave(ctx context.Context) error {
	if y.in.HolidayLeaveCapacity == 0 {
		return nil
	}

	ranked := slices.Clone(y.tracker.All())
	slices.SortStableFunc(ranked, func(a, b *stats.ResidentStatistics) int {
		return b.Resident.HolidayPoints - a.Resident.HolidayPoints
	})

	granted := make(map[string]bool)
	for _, b := range y.blocks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !b.IsHoliday {
			continue
		}
		y.tracker.BeginDay(b.Start)

		placed := 0
		for _, s := range ranked {
			if placed == y.in.HolidayLeaveCapacity {
				break
			}
			if granted[s.Resident.ID] {
				continue
			}
			slot := model.Slot{
				ID:    fmt.Sprintf("B%02d-holiday/%s", b.Number, s.Resident.ID),
				Date:  b.Start,
				Type:  model.DutyHolidayLeave,
				Block: &b,
			}
			if err := y.commit(slot.Assignment(s.Resident.ID, y.rules.Points(slot.Type))); err != nil {
				return err
			}
			granted[s.Resident.ID] = true
			placed++
		}
	}
	return nil
}

// fillRotations fills every rotation of a kind, block by block. Core rotations are
// filled up to their minimum capacity and record a hard violation per missing seat.
// Electives are filled up to their maximum capacity and never violate.
func (y *yearly) fillRotations(ctx context.Context, kind RotationKind) error {
	dutyType := model.DutyCoreRotation
	if kind == RotationElective {
		dutyType = model.DutyElective
	}
	constraints := eligibility.Yearly()

	for _, b := range y.blocks {
		if err := ctx.Err(); err != nil {
			return err
		}
		y.tracker.BeginDay(b.Start)

		for _, rot := range y.in.Rotations {
			if rot.Kind != kind {
				continue
			}
			target := rot.MinCapacity
			if kind == RotationElective {
				target = rot.MaxCapacity
			}

			for seat := y.capacity[b.Number][rot.Name] + 1; seat <= target; seat++ {
				slot := model.Slot{
					ID:       fmt.Sprintf("B%02d-%s/%d", b.Number, rot.Name, seat),
					Date:     b.Start,
					Type:     dutyType,
					Service:  rot.Service,
					MinPGY:   rot.MinPGY,
					MaxPGY:   rot.MaxPGY,
					CaseType: rot.CaseType,
					Hours:    rot.Hours,
					Rotation: rot.Name,
					Block:    &b,
				}

				filled, err := y.fillRotationSeat(slot, kind, constraints)
				if err != nil {
					return err
				}
				if !filled {
					break
				}
				y.capacity[b.Number][rot.Name]++
			}
		}
	}
	return nil
}

func (y *yearly) fillRotationSeat(slot model.Slot, kind RotationKind, constraints []eligibility.Constraint) (bool, error) {
	p := pass{
		constraints: constraints,
		scorer:      y.scorer,
		role:        scoring.RolePrimary,
		failRule:    model.RuleUnderCapacity,
	}
	if kind == RotationCore {
		filled, err := y.fillSlot(slot, p)
		return filled != nil, err
	}

	// Elective seats are optional: only a filled seat is counted as demand
	eligible := eligibility.Filter(y.tracker, slot, constraints)
	if len(eligible) == 0 {
		return false, nil
	}
	best := y.scorer.Best(y.tracker, eligible, slot, p.role)
	y.required++
	if err := y.commit(slot.Assignment(best.Resident.ID, y.rules.Points(slot.Type))); err != nil {
		return false, err
	}
	return true, nil
}

// balanceTeams splits the residents of each core rotation block across its teams with
// a snake draft in descending PGY order. The first pick of each team is its senior.
func (y *yearly) balanceTeams(ctx context.Context) error {
	for _, b := range y.blocks {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, rot := range y.in.Rotations {
			if rot.Kind != RotationCore || len(rot.Teams) == 0 {
				continue
			}

			var members []int
			for i, a := range y.assignments {
				if a.Block == b.Number && a.Rotation == rot.Name && a.Type == model.DutyCoreRotation {
					members = append(members, i)
				}
			}
			slices.SortStableFunc(members, func(i, j int) int {
				return y.pgy(y.assignments[j].ResidentID) - y.pgy(y.assignments[i].ResidentID)
			})

			teams := len(rot.Teams)
			for pick, idx := range members {
				round, pos := pick/teams, pick%teams
				team := pos
				if round%2 == 1 {
					team = teams - 1 - pos
				}
				y.assignments[idx].TeamColor = rot.Teams[team]
				y.assignments[idx].TeamRole = model.TeamRoleJunior
				if round == 0 {
					y.assignments[idx].TeamRole = model.TeamRoleSenior
				}
			}
		}
	}
	return nil
}

func (y *yearly) pgy(residentID string) int {
	s, ok := y.tracker.Get(residentID)
	if !ok {
		return 0
	}
	return s.Resident.PGY
}

// reportEmptyCells records a soft violation for every resident block with no placement
func (y *yearly) reportEmptyCells() {
	for _, b := range y.blocks {
		for _, s := range y.tracker.All() {
			if !y.cellTaken(s, b) {
				y.violate(model.SeveritySoft, model.RuleUnassignedBlock, s.Resident.ID, b.Start,
					"%s has no placement in block %d", s.Resident.FullName(), b.Number)
			}
		}
	}
}
