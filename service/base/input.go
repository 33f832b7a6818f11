package base

import (
	"github.com/viant/fleurflow/model/exitcode"
	"github.com/viant/fleurflow/service/calculation/fleur"
)

// DefaultMaxIterations bounds FLEUR submissions of one base workchain
const DefaultMaxIterations = 3

// Limits represents queue limits the restart handlers must respect
type Limits struct {
	OnlyEvenMPI          bool `json:"only_even_MPI" yaml:"only_even_MPI"`
	MaxQueueNodes        int  `json:"max_queue_nodes" yaml:"max_queue_nodes" validate:"gte=1"`
	MaxQueueWallclockSec int  `json:"max_queue_wallclock_sec" yaml:"max_queue_wallclock_sec" validate:"gte=60"`
}

// DefaultLimits returns default queue limits
func DefaultLimits() Limits {
	return Limits{MaxQueueNodes: 20, MaxQueueWallclockSec: 86400}
}

// Input represents a base workchain request
type Input struct {
	Calculation   *fleur.Input `json:"calculation"`
	MaxIterations int          `json:"max_iterations,omitempty"`
	Limits        *Limits      `json:"add_comp_para,omitempty"`
	Label         string       `json:"label,omitempty"`
}

// Output represents a base workchain outcome
type Output struct {
	ExitCode *exitcode.ExitCode `json:"exit_code"`
	// Calculation is the output of the last FLEUR calculation
	Calculation *fleur.Output `json:"calculation,omitempty"`
	CalcNodeID  string        `json:"calc_node_id,omitempty"`
	NodeID      string        `json:"node_id"`
	Iterations  int           `json:"iterations"`
	// Handlers lists handlers that restarted the calculation, in order
	Handlers []string `json:"handlers,omitempty"`
}

// Code returns workchain exit code
func (o *Output) Code() *exitcode.ExitCode {
	return o.ExitCode
}

// Summary returns values recorded on the workchain node
func (o *Output) Summary() map[string]interface{} {
	ret := map[string]interface{}{
		"exit_status": o.ExitCode.Status,
		"iterations":  o.Iterations,
	}
	if o.CalcNodeID != "" {
		ret["last_calc"] = o.CalcNodeID
	}
	if len(o.Handlers) > 0 {
		ret["handlers"] = o.Handlers
	}
	if o.Calculation != nil && o.Calculation.Folder != nil {
		ret["remote_folder"] = o.Calculation.Folder.URL
	}
	return ret
}
