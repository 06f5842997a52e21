package workflows

// StateMachine enforces lifecycle status transitions
type StateMachine struct {
	allowedTransitions map[string][]string
}

// NewLoanStateMachine returns the loan lifecycle. APPROVED deliberately has
// no cancel path.
func NewLoanStateMachine() *StateMachine {
	return &StateMachine{
		allowedTransitions: map[string][]string{
			"NONE":      {"APPLIED"},
			"APPLIED":   {"APPROVED", "CANCELLED", "REJECTED"},
			"APPROVED":  {"REPAID"},
			"REPAID":    {},
			"CANCELLED": {},
			"REJECTED":  {},
		},
	}
}

// NewApplicationStateMachine returns the benefit application lifecycle.
func NewApplicationStateMachine() *StateMachine {
	return &StateMachine{
		allowedTransitions: map[string][]string{
			"PENDING":   {"APPROVED", "REJECTED"},
			"APPROVED":  {"DISBURSED"},
			"DISBURSED": {"COMPLETED"},
			"REJECTED":  {},
			"COMPLETED": {},
		},
	}
}

// CanTransition checks if a status transition is allowed
func (sm *StateMachine) CanTransition(from, to string) bool {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return false
	}
	for _, allowedTo := range allowed {
		if allowedTo == to {
			return true
		}
	}
	return false
}

// GetAllowedTransitions returns the allowed next statuses for a given status
func (sm *StateMachine) GetAllowedTransitions(from string) []string {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return []string{}
	}
	return allowed
}
