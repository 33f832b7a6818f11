package scf

import (
	"time"

	"github.com/viant/fleurflow/model/calc"
	"github.com/viant/fleurflow/model/fleurinp"
	"github.com/viant/fleurflow/model/outxml"
	"github.com/viant/fleurflow/service/base"
)

// Context represents loop counters and convergence histories of one workchain
type Context struct {
	Parameters *Parameters
	// Deck is the input deck every run is derived from
	Deck *fleurinp.Input
	// LastDeck is the deck submitted in the latest run
	LastDeck     *fleurinp.Input
	ParentFolder *calc.Folder

	LoopCount         int
	IterationsTotal   int
	StraightRemaining int
	WallTime          time.Duration
	LastIteration     *outxml.Iteration
	// PreviousIteration is the iteration before LastIteration, across runs
	PreviousIteration *outxml.Iteration
	LastBase          *base.Output

	Distances []float64
	Energies  []float64
	Nmmp      []float64

	EnergyUnits string
	Converged   bool

	Info     []string
	Warnings []string
	Errors   []string
}

func newContext(params *Parameters) *Context {
	return &Context{
		Parameters:        params,
		StraightRemaining: params.StraightIterations,
	}
}

// collect appends metrics of a finished run
func (c *Context) collect(result *outxml.Result) {
	if result == nil {
		return
	}
	c.IterationsTotal += len(result.Iterations)
	for _, iteration := range result.Iterations {
		c.PreviousIteration, c.LastIteration = c.LastIteration, iteration
		if distance, ok := iteration.ChargeDistance(); ok {
			c.Distances = append(c.Distances, distance)
		}
		if iteration.TotalEnergy != nil {
			c.Energies = append(c.Energies, *iteration.TotalEnergy)
		}
		if distance, ok := iteration.MaxNmmpDistance(); ok {
			c.Nmmp = append(c.Nmmp, distance)
		}
	}
	if result.EnergyUnits != "" {
		c.EnergyUnits = result.EnergyUnits
	}
	if c.StraightRemaining > 0 {
		c.StraightRemaining -= len(result.Iterations)
		if c.StraightRemaining < 0 {
			c.StraightRemaining = 0
		}
	}
}

// energyChange returns absolute total energy difference of the last two iterations
func (c *Context) energyChange() (float64, bool) {
	if len(c.Energies) < 2 {
		return 0, false
	}
	diff := c.Energies[len(c.Energies)-1] - c.Energies[len(c.Energies)-2]
	if diff < 0 {
		diff = -diff
	}
	return diff, true
}

func (c *Context) lastDistance() (float64, bool) {
	if len(c.Distances) == 0 {
		return 0, false
	}
	return c.Distances[len(c.Distances)-1], true
}

func (c *Context) lastNmmp() (float64, bool) {
	if len(c.Nmmp) == 0 {
		return 0, false
	}
	return c.Nmmp[len(c.Nmmp)-1], true
}
