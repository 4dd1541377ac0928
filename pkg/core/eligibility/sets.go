package eligibility

import (
	"github.com/jakechorley/residency-scheduler/pkg/core/model"
	"github.com/jakechorley/residency-scheduler/pkg/core/rules"
)

// Monthly returns the call scheduler's constraints for a primary duty.
// The order is fixed: same day, leave, post-duty, PARO cap, weekend cap, PGY target.
func Monthly(r rules.Rules) []Constraint {
	return []Constraint{
		NewAlreadyAssignedToday(),
		NewApprovedLeave(),
		NewPostDutyProtection(r),
		NewParoCap(r),
		NewWeekendBlockCap(r),
		NewPGYTarget(r),
	}
}

// MonthlyShortage is Monthly without the PGY target. Every regulatory constraint is kept.
func MonthlyShortage(r rules.Rules) []Constraint {
	return Without(Monthly(r), PGYTargetName)
}

// Backup returns the constraints of the supervision pass: every monthly constraint
// plus the minimum backup seniority.
func Backup(r rules.Rules) []Constraint {
	return append(Monthly(r), NewMinimumSeniority(r.BackupMinPGY))
}

// BackupShortage is Backup without the PGY target. Backups always obey the PARO cap
// but may exceed the PGY target when staffing is short.
func BackupShortage(r rules.Rules) []Constraint {
	return Without(Backup(r), PGYTargetName)
}

// Weekly returns the clinical scheduler's constraints. Call duties held on the same
// day do not block a clinical slot.
func Weekly(r rules.Rules) []Constraint {
	return []Constraint{
		NewAlreadyAssignedToday(model.DutyNight, model.DutyWeekend, model.DutyHoliday, model.DutyDay, model.Duty24h, model.DutyBackup),
		NewApprovedLeave(),
		NewPostDutyProtection(r),
		NewQualification(),
		NewOnService(),
		NewClinicLoadCap(r),
	}
}

// Yearly returns the rotation scheduler's constraints for open phases.
// Assignments are dated at the block start, so the same-day rule keeps one placement
// per (resident, block) cell and a resident on approved leave at the block start is
// not placed in that block. The holiday-leave overlay does not fill the cell.
func Yearly() []Constraint {
	return []Constraint{
		NewAlreadyAssignedToday(model.DutyHolidayLeave),
		NewApprovedLeave(),
		NewQualification(),
		NewOnService(),
	}
}
