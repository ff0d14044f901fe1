package domain

// Status is the derived execution status of a step. It is recomputed from
// the session state on every render pass, never stored.
//
// Progression is a total order; the only backward transition is an explicit
// reset, which clears the keys the derivation reads.
type Status string

const (
	// StatusWaiting means a dependency step's output is missing.
	StatusWaiting Status = "WAITING"
	// StatusEnqueued means inputs are ready but the previous step is not done.
	StatusEnqueued Status = "ENQUEUED"
	// StatusActiveAckStart means the step may run but a configured start
	// acknowledgement has not been given yet.
	StatusActiveAckStart Status = "ACTIVE_ACK_START"
	// StatusActive means the step is running: awaiting user input or
	// performing its task.
	StatusActive Status = "ACTIVE"
	// StatusActiveAckChanges means the output is ready but a configured
	// confirm-changes acknowledgement has not been given yet.
	StatusActiveAckChanges Status = "ACTIVE_ACK_CHANGES"
	// StatusDone means the output is ready and acknowledged; the next step
	// may start.
	StatusDone Status = "DONE"
)

// Active reports whether the status is in the active family, i.e. the step's
// Perform is invoked during a render pass.
func (s Status) Active() bool {
	switch s {
	case StatusActiveAckStart, StatusActive, StatusActiveAckChanges:
		return true
	}
	return false
}

// Settled reports whether the step has produced its output (ack pending or
// done). Used by visibility policies that show steps "after active".
func (s Status) Settled() bool {
	return s == StatusActiveAckChanges || s == StatusDone
}

// Rank is the status's position in the forward progression, for
// distinguishing forward motion from oscillation between two passes.
func (s Status) Rank() int {
	switch s {
	case StatusWaiting:
		return 0
	case StatusEnqueued:
		return 1
	case StatusActiveAckStart:
		return 2
	case StatusActive:
		return 3
	case StatusActiveAckChanges:
		return 4
	case StatusDone:
		return 5
	}
	return -1
}
