// Package modifier applies ordered change lists to a FLEUR input deck.
package modifier

import (
	"fmt"
	"sort"

	"github.com/viant/fleurflow/model/fleurinp"
)

// Change represents a single named deck mutation
type Change struct {
	Method string                 `json:"method" yaml:"method"`
	Args   map[string]interface{} `json:"args,omitempty" yaml:"args,omitempty"`
}

// Changes represents an ordered patch list
type Changes []*Change

// Task mutates a deck in place
type Task func(input *fleurinp.Input, args map[string]interface{}) error

var tasks = map[string]Task{
	"set_inpchanges":   setInpchanges,
	"set_attrib_value": setAttribValue,
	"set_text":         setText,
	"set_species":      setSpecies,
	"set_atomgroup":    setAtomgroup,
	"set_nkpts":        setNkpts,
	"create_tag":       createTag,
	"delete_tag":       deleteTag,
	"delete_att":       deleteAtt,
}

// Methods returns supported change methods
func Methods() []string {
	var ret = make([]string, 0, len(tasks))
	for name := range tasks {
		ret = append(ret, name)
	}
	sort.Strings(ret)
	return ret
}

// Modifier accumulates changes and applies them to a copy of the original deck
type Modifier struct {
	original *fleurinp.Input
	changes  Changes
	modified *fleurinp.Input
}

// New creates a modifier for the deck
func New(original *fleurinp.Input) *Modifier {
	return &Modifier{original: original}
}

// Add appends a change
func (m *Modifier) Add(method string, args map[string]interface{}) *Modifier {
	m.changes = append(m.changes, &Change{Method: method, Args: args})
	return m
}

// Apply appends changes
func (m *Modifier) Apply(changes ...*Change) *Modifier {
	m.changes = append(m.changes, changes...)
	return m
}

// SetInpchanges appends a set_inpchanges change
func (m *Modifier) SetInpchanges(values map[string]interface{}) *Modifier {
	return m.Add("set_inpchanges", values)
}

// Changes returns accumulated changes
func (m *Modifier) Changes() Changes {
	return m.changes
}

// Freeze applies all changes to a copy of the original deck and validates the result.
// Change failures are returned as *ChangeError, validation failures as *fleurinp.ValidationError.
func (m *Modifier) Freeze() (*fleurinp.Input, error) {
	modified := m.original.Clone()
	for i, change := range m.changes {
		task, ok := tasks[change.Method]
		if !ok {
			return nil, &ChangeError{Index: i, Method: change.Method, Err: ErrUnknownMethod}
		}
		if err := task(modified, change.Args); err != nil {
			return nil, &ChangeError{Index: i, Method: change.Method, Err: err}
		}
	}
	if err := modified.Validate(); err != nil {
		return nil, err
	}
	m.modified = modified
	return modified, nil
}

// Diff returns unified diff between the original and the frozen deck
func (m *Modifier) Diff() (string, DiffStats, error) {
	if m.modified == nil {
		if _, err := m.Freeze(); err != nil {
			return "", DiffStats{}, err
		}
	}
	before, err := m.original.Bytes()
	if err != nil {
		return "", DiffStats{}, err
	}
	after, err := m.modified.Bytes()
	if err != nil {
		return "", DiffStats{}, err
	}
	return GenerateDiff(before, after, fleurinp.FileName, 3)
}

// ChangeError reports a failed change
type ChangeError struct {
	Index  int
	Method string
	Err    error
}

func (e *ChangeError) Error() string {
	return fmt.Sprintf("change #%d %v failed: %v", e.Index, e.Method, e.Err)
}

func (e *ChangeError) Unwrap() error {
	return e.Err
}
