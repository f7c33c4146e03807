package provider

// Status is the lifecycle state of a submitted block.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusRunning   Status = "RUNNING"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusTimeout   Status = "TIMEOUT"

	// StatusUnknown is reported for identifiers the provider has no record of
	// and for backend states that could not be translated.
	StatusUnknown Status = "UNKNOWN"
)

// Terminal reports whether s is a final state.
func (s Status) Terminal() bool {
	switch s {
	case StatusCancelled, StatusCompleted, StatusFailed, StatusTimeout:
		return true
	default:
		return false
	}
}

// Active reports whether s counts against the provider's capacity.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusRunning
}

// canMoveTo reports whether a record in state s may change to next.
// Terminal states never change; RUNNING never returns to PENDING.
func (s Status) canMoveTo(next Status) bool {
	if s == next || s.Terminal() {
		return false
	}
	if s == StatusRunning && next == StatusPending {
		return false
	}
	return next != StatusUnknown
}
