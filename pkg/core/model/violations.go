package model

// Rule names recorded on violations
const (
	RuleNoEligibleCandidate = "NoEligibleCandidate"
	RuleNoBackupAvailable   = "NoBackupAvailable"
	RulePGYTargetExceeded   = "PGYTargetExceeded"
	RuleTeamIncomplete      = "TeamIncomplete"
	RuleClinicUnderstaffed  = "ClinicUnderstaffed"
	RuleUnderCapacity       = "RotationUnderCapacity"
	RulePlacementConflict   = "PlacementConflict"
	RuleUnassignedBlock     = "UnassignedBlock"

	// Audit rules re-check invariants on a finished schedule
	RuleDoubleBooking    = "DoubleBooking"
	RuleLeaveConflict    = "LeaveConflict"
	RulePostCallConflict = "PostCallConflict"
	RuleParoCapExceeded  = "ParoCapExceeded"
	RuleWeekendBlockCap  = "WeekendBlockCap"
	RuleMissingBackup    = "MissingBackup"
)

// HardCount returns the number of hard violations
func HardCount(violations []Violation) int {
	n := 0
	for _, v := range violations {
		if v.Severity == SeverityHard {
			n++
		}
	}
	return n
}

// SoftCount returns the number of soft violations
func SoftCount(violations []Violation) int {
	return len(violations) - HardCount(violations)
}
