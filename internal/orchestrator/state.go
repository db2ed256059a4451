package orchestrator

// State is the lifecycle state of a sweep.
type State string

const (
	StateReady     State = "ready"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateAborted   State = "aborted"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateAborted
}
