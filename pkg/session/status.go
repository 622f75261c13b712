package session

// Status is the lifecycle state of a meeting session. Statuses progress
// forward only; a session never returns to an earlier state.
type Status string

const (
	// StatusInitializing is the state of a freshly created session.
	StatusInitializing Status = "initializing"
	// StatusStarting means the agent is joining the meeting.
	StatusStarting Status = "starting"
	// StatusWaitingAdmission means the agent is waiting to be let in.
	StatusWaitingAdmission Status = "waiting_admission"
	// StatusActive means the agent is in the meeting and capturing.
	StatusActive Status = "active"
	// StatusStopping means finalization is in progress.
	StatusStopping Status = "stopping"
	// StatusStopped is the terminal state of a cleanly finished session.
	StatusStopped Status = "stopped"
	// StatusError is the terminal state of a failed session.
	StatusError Status = "error"
)

// statusRank orders statuses along the lifecycle. Transitions may only move
// to a higher rank, except that StatusError is reachable from any
// non-terminal state.
var statusRank = map[Status]int{
	StatusInitializing:     0,
	StatusStarting:         1,
	StatusWaitingAdmission: 2,
	StatusActive:           3,
	StatusStopping:         4,
	StatusStopped:          5,
	StatusError:            5,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// Terminal reports whether s is a final state.
func (s Status) Terminal() bool {
	return s == StatusStopped || s == StatusError
}

func (s Status) String() string {
	return string(s)
}
