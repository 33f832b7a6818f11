package execution

// JobState represents the current state of a job
type JobState string

const (
	JobStatePending   JobState = "pending"
	JobStateRunning   JobState = "running"
	JobStateCompleted JobState = "completed"
	JobStateFailed    JobState = "failed"
	JobStateKilled    JobState = "killed"
)

// IsTerminal returns true if no further transition is possible
func (s JobState) IsTerminal() bool {
	switch s {
	case JobStateCompleted, JobStateFailed, JobStateKilled:
		return true
	}
	return false
}

// NodeState represents provenance node process state
type NodeState string

const (
	NodeStateCreated  NodeState = "created"
	NodeStateWaiting  NodeState = "waiting"
	NodeStateRunning  NodeState = "running"
	NodeStateFinished NodeState = "finished"
	NodeStateExcepted NodeState = "excepted"
	NodeStateKilled   NodeState = "killed"
)

// IsTerminal returns true if no further transition is possible
func (s NodeState) IsTerminal() bool {
	switch s {
	case NodeStateFinished, NodeStateExcepted, NodeStateKilled:
		return true
	}
	return false
}

var nodeTransitions = map[NodeState][]NodeState{
	NodeStateCreated: {NodeStateRunning, NodeStateWaiting, NodeStateExcepted, NodeStateKilled},
	NodeStateWaiting: {NodeStateRunning, NodeStateExcepted, NodeStateKilled},
	NodeStateRunning: {NodeStateWaiting, NodeStateFinished, NodeStateExcepted, NodeStateKilled},
}

// CanTransition returns true if the state machine allows from -> to
func CanTransition(from, to NodeState) bool {
	if from == to {
		return !from.IsTerminal()
	}
	for _, candidate := range nodeTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}
