package execution

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/viant/fleurflow/internal/clock"
	"github.com/viant/fleurflow/internal/idgen"
	"github.com/viant/fleurflow/model/exitcode"
)

// NodeKind distinguishes workchains from calculations
type NodeKind string

const (
	NodeKindWorkchain   NodeKind = "workchain"
	NodeKindCalculation NodeKind = "calculation"
)

// ErrInvalidTransition is returned for a transition the node state machine does not allow
var ErrInvalidTransition = errors.New("invalid node state transition")

// Report represents a timestamped workchain report line
type Report struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

// Node represents a provenance record of a workchain or calculation
type Node struct {
	ID         string                 `json:"id"`
	ParentID   string                 `json:"parentId,omitempty"`
	Kind       NodeKind               `json:"kind"`
	Type       string                 `json:"type"`
	Label      string                 `json:"label,omitempty"`
	State      NodeState              `json:"state"`
	ExitCode   *exitcode.ExitCode     `json:"exitCode,omitempty"`
	Error      string                 `json:"error,omitempty"`
	Inputs     map[string]interface{} `json:"inputs,omitempty"`
	Outputs    map[string]interface{} `json:"outputs,omitempty"`
	Reports    []*Report              `json:"reports,omitempty"`
	CreatedAt  time.Time              `json:"createdAt"`
	UpdatedAt  time.Time              `json:"updatedAt"`
	FinishedAt *time.Time             `json:"finishedAt,omitempty"`
	mu         sync.RWMutex
}

// NewNode creates a node in created state
func NewNode(kind NodeKind, nodeType, parentID, label string) *Node {
	return NewNodeWithID(idgen.New(), kind, nodeType, parentID, label)
}

// NewNodeWithID creates a node with a preassigned id
func NewNodeWithID(id string, kind NodeKind, nodeType, parentID, label string) *Node {
	now := clock.Now()
	return &Node{
		ID:        id,
		ParentID:  parentID,
		Kind:      kind,
		Type:      nodeType,
		Label:     label,
		State:     NodeStateCreated,
		Inputs:    map[string]interface{}{},
		Outputs:   map[string]interface{}{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Transition moves node to the supplied state
func (n *Node) Transition(to NodeState) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.transition(to)
}

func (n *Node) transition(to NodeState) error {
	if !CanTransition(n.State, to) {
		return fmt.Errorf("%w: %v -> %v (node %v)", ErrInvalidTransition, n.State, to, n.ID)
	}
	n.State = to
	n.UpdatedAt = clock.Now()
	if to.IsTerminal() {
		n.FinishedAt = clock.Ptr()
	}
	return nil
}

// Finish marks node finished with exit code
func (n *Node) Finish(code *exitcode.ExitCode) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if code == nil {
		code = exitcode.OK
	}
	n.ExitCode = code
	return n.transition(NodeStateFinished)
}

// Except marks node excepted with error
func (n *Node) Except(err error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err != nil {
		n.Error = err.Error()
	}
	return n.transition(NodeStateExcepted)
}

// Kill marks node killed
func (n *Node) Kill() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.transition(NodeStateKilled)
}

// IsFinishedOK returns true if node finished with zero exit status
func (n *Node) IsFinishedOK() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.State == NodeStateFinished && n.ExitCode.IsFinishedOK()
}

// ExitStatus returns node exit status, -1 when node is not finished
func (n *Node) ExitStatus() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.State != NodeStateFinished || n.ExitCode == nil {
		return -1
	}
	return n.ExitCode.Status
}

// AddReport appends a report line
func (n *Node) AddReport(format string, args ...interface{}) string {
	message := fmt.Sprintf(format, args...)
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Reports = append(n.Reports, &Report{Time: clock.Now(), Message: message})
	n.UpdatedAt = clock.Now()
	return message
}

// SetInput records input summary value
func (n *Node) SetInput(key string, value interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Inputs == nil {
		n.Inputs = map[string]interface{}{}
	}
	n.Inputs[key] = value
}

// SetOutput records output summary value
func (n *Node) SetOutput(key string, value interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Outputs == nil {
		n.Outputs = map[string]interface{}{}
	}
	n.Outputs[key] = value
	n.UpdatedAt = clock.Now()
}

// Clone returns a copy; summary maps are copied shallowly
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	clone := &Node{
		ID:         n.ID,
		ParentID:   n.ParentID,
		Kind:       n.Kind,
		Type:       n.Type,
		Label:      n.Label,
		State:      n.State,
		ExitCode:   n.ExitCode,
		Error:      n.Error,
		Inputs:     copyMap(n.Inputs),
		Outputs:    copyMap(n.Outputs),
		Reports:    append([]*Report(nil), n.Reports...),
		CreatedAt:  n.CreatedAt,
		UpdatedAt:  n.UpdatedAt,
		FinishedAt: copyTime(n.FinishedAt),
	}
	return clone
}

func copyMap(src map[string]interface{}) map[string]interface{} {
	if src == nil {
		return nil
	}
	ret := make(map[string]interface{}, len(src))
	for k, v := range src {
		ret[k] = v
	}
	return ret
}

// Attributes returns values matched by DAO list parameters
func (n *Node) Attributes() map[string]string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return map[string]string{
		"State":    string(n.State),
		"ParentID": n.ParentID,
		"Kind":     string(n.Kind),
		"Type":     n.Type,
	}
}
