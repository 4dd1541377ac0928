// Package optimizer improves a committed monthly schedule with simulated annealing.
//
// A move swaps the residents of two assignments. Swaps are validated against the
// same eligibility constraints the greedy driver uses, rebuilt from the schedule
// minus the two moved rows, so an accepted state is always feasible. The best
// schedule seen is kept as an immutable snapshot and returned, which guarantees the
// result never scores below the input.
package optimizer

import (
	"context"
	"math"
	"math/rand/v2"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/residency-scheduler/pkg/core/calendar"
	"github.com/jakechorley/residency-scheduler/pkg/core/eligibility"
	"github.com/jakechorley/residency-scheduler/pkg/core/metrics"
	"github.com/jakechorley/residency-scheduler/pkg/core/model"
	"github.com/jakechorley/residency-scheduler/pkg/core/rules"
	"github.com/jakechorley/residency-scheduler/pkg/core/stats"
)

// maxAttemptsPerIteration bounds proposals when most swaps are invalid
const maxAttemptsPerIteration = 20

// Input is a committed schedule and the context needed to validate swaps
type Input struct {
	Residents   []model.Resident
	Assignments []model.DutyAssignment

	// Violations recorded by the greedy pass (unfilled slots stay unfilled under swaps)
	Violations []model.Violation

	Prior      []model.DutyAssignment
	CarryOvers []model.CarryOver
	Leave      []model.LeaveInterval
	Period     model.Period
	Blocks     []model.RotationBlock
	Rules      rules.Rules
}

// Result is the best schedule found
type Result struct {
	Assignments  []model.DutyAssignment
	InitialScore float64
	Score        float64
	Iterations   int
	Accepted     int
	Improved     bool
}

type optimizer struct {
	in          Input
	constraints []eligibility.Constraint
	unfilled    int
	soft        int
	pgy         map[string]int
	logger      *zap.Logger
}

func newOptimizer(in Input, logger *zap.Logger) *optimizer {
	pgy := make(map[string]int, len(in.Residents))
	for _, r := range in.Residents {
		pgy[r.ID] = r.PGY
	}
	return &optimizer{
		in:          in,
		constraints: eligibility.MonthlyShortage(in.Rules),
		unfilled:    model.HardCount(in.Violations),
		soft:        model.SoftCount(in.Violations),
		pgy:         pgy,
		logger:      logger,
	}
}

// Score returns the objective of a schedule for the given context
func Score(in Input, assignments []model.DutyAssignment) float64 {
	return newOptimizer(in, zap.NewNop()).objective(withoutPostCalls(assignments))
}

func withoutPostCalls(assignments []model.DutyAssignment) []model.DutyAssignment {
	out := make([]model.DutyAssignment, 0, len(assignments))
	for _, a := range assignments {
		if a.Type != model.DutyPostCall {
			out = append(out, a)
		}
	}
	return out
}

// Optimize runs simulated annealing over the input schedule. PostCall rows in the
// input are ignored and absent from the result; callers re-derive them.
func Optimize(ctx context.Context, in Input, logger *zap.Logger) (Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := in.Rules.Optimization

	o := newOptimizer(in, logger)

	current := withoutPostCalls(in.Assignments)
	currentScore := o.objective(current)

	result := Result{
		Assignments:  current,
		InitialScore: currentScore,
		Score:        currentScore,
	}

	movable := make([]int, 0, len(current))
	for i, a := range current {
		if a.Type != model.DutyBackup {
			movable = append(movable, i)
		}
	}
	if len(movable) < 2 || cfg.Iterations == 0 {
		return result, nil
	}

	seed := uint64(cfg.Seed)
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	best := current
	bestScore := currentScore
	temperature := cfg.InitialTemperature
	maxAttempts := cfg.Iterations * maxAttemptsPerIteration

	for attempts := 0; result.Iterations < cfg.Iterations && attempts < maxAttempts; attempts++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if temperature < cfg.MinTemperature {
			break
		}

		i := movable[rng.IntN(len(movable))]
		j := movable[rng.IntN(len(movable))]
		candidate, ok := o.propose(current, i, j)
		if !ok {
			continue
		}
		result.Iterations++

		candidateScore := o.objective(candidate)
		delta := candidateScore - currentScore
		if delta >= 0 || rng.Float64() < math.Exp(delta/temperature) {
			current = candidate
			currentScore = candidateScore
			result.Accepted++

			if currentScore > bestScore {
				best = current
				bestScore = currentScore
			}
		}

		temperature *= cfg.CoolingRate
	}

	result.Assignments = slices.Clone(best)
	result.Score = bestScore
	result.Improved = bestScore > result.InitialScore

	logger.Debug("Optimization finished",
		zap.Int("iterations", result.Iterations),
		zap.Int("accepted", result.Accepted),
		zap.Float64("initial_score", result.InitialScore),
		zap.Float64("best_score", result.Score))

	return result, nil
}

// propose returns a copy of the schedule with the residents of rows i and j swapped,
// and whether the swap is feasible. The input slice is never modified.
func (o *optimizer) propose(current []model.DutyAssignment, i, j int) ([]model.DutyAssignment, bool) {
	a, b := current[i], current[j]
	if i == j || a.ResidentID == b.ResidentID {
		return nil, false
	}

	swappedA := a
	swappedA.ResidentID = b.ResidentID
	swappedB := b
	swappedB.ResidentID = a.ResidentID

	remaining := make([]model.DutyAssignment, 0, len(current)-2+len(o.in.Prior))
	remaining = append(remaining, o.in.Prior...)
	for k, x := range current {
		if k != i && k != j {
			remaining = append(remaining, x)
		}
	}

	tracker, err := stats.New(stats.Init{
		Residents:  o.in.Residents,
		Prior:      remaining,
		CarryOvers: o.in.CarryOvers,
		Leave:      o.in.Leave,
		Period:     o.in.Period,
	})
	if err != nil {
		return nil, false
	}

	for _, moved := range []model.DutyAssignment{swappedA, swappedB} {
		s, ok := tracker.Get(moved.ResidentID)
		if !ok {
			return nil, false
		}
		slot := model.Slot{ID: moved.SlotID, Date: moved.Date, Type: moved.Type, Block: blockPointer(moved.Date, o.in.Blocks)}
		if eligibility.Explain(tracker, s, slot, o.constraints) != "" {
			return nil, false
		}
		if err := tracker.Record(moved); err != nil {
			return nil, false
		}
	}

	candidate := slices.Clone(current)
	candidate[i] = swappedA
	candidate[j] = swappedB

	for _, day := range []string{calendar.DayKey(a.Date), calendar.DayKey(b.Date)} {
		if o.supervisionDeficit(candidate, day) > o.supervisionDeficit(current, day) {
			return nil, false
		}
	}
	return candidate, true
}

// supervisionDeficit counts the PGY-1 primary duties on date without a backup
func (o *optimizer) supervisionDeficit(assignments []model.DutyAssignment, date string) int {
	needed, backups := 0, 0
	for _, a := range assignments {
		if calendar.DayKey(a.Date) != date {
			continue
		}
		switch {
		case a.Type == model.DutyBackup:
			backups++
		case o.pgy[a.ResidentID] == 1 && o.in.Rules.RequiresBackup(a.Type):
			needed++
		}
	}
	return max(0, needed-backups)
}

// objective scores a schedule:
//
//	1 - |Gini(points)| - hardPenalty*hard - softPenalty*soft + varianceBonus/(1+variance)
//
// Gini is taken over per-resident points because per-resident counts are invariant
// under swaps. Hard violations are the audit breaches plus the unfilled slots of the
// greedy pass.
func (o *optimizer) objective(assignments []model.DutyAssignment) float64 {
	cfg := o.in.Rules.Optimization

	summary := metrics.Summarize(o.in.Residents, assignments)
	points := make([]float64, len(summary.Distribution))
	for i, d := range summary.Distribution {
		points[i] = d.Points
	}

	audit := metrics.Audit(metrics.AuditInput{
		Horizon:     model.HorizonMonthly,
		Period:      o.in.Period,
		Residents:   o.in.Residents,
		Assignments: assignments,
		Leave:       o.in.Leave,
		Rules:       o.in.Rules,
		Blocks:      o.in.Blocks,
	})
	hard := len(audit) + o.unfilled

	return 1 - math.Abs(metrics.Gini(points)) -
		cfg.HardPenalty*float64(hard) -
		cfg.SoftPenalty*float64(o.soft) +
		cfg.VarianceBonus/(1+metrics.Variance(points))
}

func blockPointer(date time.Time, blocks []model.RotationBlock) *model.RotationBlock {
	b, ok := calendar.BlockForDate(date, blocks)
	if !ok {
		return nil
	}
	return &b
}
