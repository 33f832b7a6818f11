// Package exitcode defines the numeric exit statuses reported by calculations and workchains.
package exitcode

import "fmt"

// ExitCode represents a terminal process status
type ExitCode struct {
	Status  int    `json:"status" yaml:"status"`
	Label   string `json:"label" yaml:"label"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

// IsFinishedOK returns true for a nil or zero status
func (c *ExitCode) IsFinishedOK() bool {
	return c == nil || c.Status == 0
}

// Is returns true if code carries the same status
func (c *ExitCode) Is(other *ExitCode) bool {
	if c == nil || other == nil {
		return c.IsFinishedOK() && other.IsFinishedOK()
	}
	return c.Status == other.Status
}

// With returns a copy with formatted message
func (c *ExitCode) With(format string, args ...interface{}) *ExitCode {
	ret := *c
	ret.Message = fmt.Sprintf(format, args...)
	return &ret
}

func (c *ExitCode) String() string {
	if c == nil {
		return "0"
	}
	if c.Message == "" {
		return fmt.Sprintf("%d %s", c.Status, c.Label)
	}
	return fmt.Sprintf("%d %s: %s", c.Status, c.Label, c.Message)
}

func newCode(status int, label, message string) *ExitCode {
	ret := &ExitCode{Status: status, Label: label, Message: message}
	registry[status] = append(registry[status], ret)
	return ret
}

var registry = map[int][]*ExitCode{}

// Lookup returns registered codes for a status; statuses are shared between process kinds
func Lookup(status int) []*ExitCode {
	return registry[status]
}

// OK is the success code
var OK = &ExitCode{Status: 0, Label: "OK"}
