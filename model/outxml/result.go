// Package outxml parses FLEUR out.xml documents and error files.
package outxml

import (
	"math"
	"time"
)

// FileName is FLEUR output file name
const FileName = "out.xml"

// Force represents total force on a representative atom
type Force struct {
	AtomType int        `json:"atomType"`
	Position [3]float64 `json:"position"`
	Value    [3]float64 `json:"value"`
}

// Torque represents magnetic torque on an atom type
type Torque struct {
	AtomType int        `json:"atomType"`
	Value    [3]float64 `json:"value"`
}

// Iteration represents one FLEUR self-consistency iteration
type Iteration struct {
	Number                int       `json:"number"`
	RunNumber             int       `json:"runNumber"`
	ChargeDistances       []float64 `json:"chargeDistances,omitempty"`
	OverallChargeDistance *float64  `json:"overallChargeDistance,omitempty"`
	SpinDistance          *float64  `json:"spinDistance,omitempty"`
	TotalEnergy           *float64  `json:"totalEnergy,omitempty"`
	Forces                []Force   `json:"forces,omitempty"`
	Torques               []Torque  `json:"torques,omitempty"`
	NmmpDistances         []float64 `json:"nmmpDistances,omitempty"`
}

// ChargeDistance returns overall charge density distance, falling back to the largest spin channel distance
func (i *Iteration) ChargeDistance() (float64, bool) {
	if i.OverallChargeDistance != nil {
		return *i.OverallChargeDistance, true
	}
	if len(i.ChargeDistances) == 0 {
		return 0, false
	}
	return maxOf(i.ChargeDistances), true
}

// MaxNmmpDistance returns largest LDA+U density matrix distance
func (i *Iteration) MaxNmmpDistance() (float64, bool) {
	if len(i.NmmpDistances) == 0 {
		return 0, false
	}
	return maxOf(i.NmmpDistances), true
}

// LargestForce returns largest absolute force component
func (i *Iteration) LargestForce() float64 {
	var ret float64
	for _, force := range i.Forces {
		for _, component := range force.Value {
			ret = math.Max(ret, math.Abs(component))
		}
	}
	return ret
}

// Result represents parsed out.xml
type Result struct {
	Version       string       `json:"version,omitempty"`
	Iterations    []*Iteration `json:"iterations"`
	Finished      bool         `json:"finished"`
	Recovered     bool         `json:"recovered,omitempty"`
	StartedAt     *time.Time   `json:"startedAt,omitempty"`
	EndedAt       *time.Time   `json:"endedAt,omitempty"`
	EnergyUnits   string       `json:"energyUnits,omitempty"`
	DistanceUnits string       `json:"distanceUnits,omitempty"`
	ForceUnits    string       `json:"forceUnits,omitempty"`
	ErrorMessages []string     `json:"errorMessages,omitempty"`
	Warnings      []string     `json:"warnings,omitempty"`
}

// WallTime returns run duration if both timestamps were reported
func (r *Result) WallTime() time.Duration {
	if r.StartedAt == nil || r.EndedAt == nil {
		return 0
	}
	return r.EndedAt.Sub(*r.StartedAt)
}

// Last returns the last iteration or nil
func (r *Result) Last() *Iteration {
	if len(r.Iterations) == 0 {
		return nil
	}
	return r.Iterations[len(r.Iterations)-1]
}

// ChargeDistances returns charge distance of each iteration
func (r *Result) ChargeDistances() []float64 {
	var ret []float64
	for _, iteration := range r.Iterations {
		if distance, ok := iteration.ChargeDistance(); ok {
			ret = append(ret, distance)
		}
	}
	return ret
}

// TotalEnergies returns total energy of each iteration
func (r *Result) TotalEnergies() []float64 {
	var ret []float64
	for _, iteration := range r.Iterations {
		if iteration.TotalEnergy != nil {
			ret = append(ret, *iteration.TotalEnergy)
		}
	}
	return ret
}

// NmmpDistances returns largest density matrix distance of each iteration
func (r *Result) NmmpDistances() []float64 {
	var ret []float64
	for _, iteration := range r.Iterations {
		if distance, ok := iteration.MaxNmmpDistance(); ok {
			ret = append(ret, distance)
		}
	}
	return ret
}

// ForceChange returns the largest change of any force component between two iterations
func ForceChange(previous, last *Iteration) (float64, bool) {
	if previous == nil || last == nil || len(previous.Forces) == 0 || len(last.Forces) == 0 {
		return 0, false
	}
	before := map[int][3]float64{}
	for _, force := range previous.Forces {
		before[force.AtomType] = force.Value
	}
	var ret float64
	for _, force := range last.Forces {
		prior, ok := before[force.AtomType]
		if !ok {
			return 0, false
		}
		for k := range force.Value {
			ret = math.Max(ret, math.Abs(force.Value[k]-prior[k]))
		}
	}
	return ret, true
}

// TorqueChange returns the largest change of any torque component between two iterations
func TorqueChange(previous, last *Iteration) (float64, bool) {
	if previous == nil || last == nil || len(previous.Torques) == 0 || len(last.Torques) == 0 {
		return 0, false
	}
	before := map[int][3]float64{}
	for _, torque := range previous.Torques {
		before[torque.AtomType] = torque.Value
	}
	var ret float64
	for _, torque := range last.Torques {
		prior, ok := before[torque.AtomType]
		if !ok {
			return 0, false
		}
		for k := range torque.Value {
			ret = math.Max(ret, math.Abs(torque.Value[k]-prior[k]))
		}
	}
	return ret, true
}

func maxOf(values []float64) float64 {
	ret := values[0]
	for _, value := range values[1:] {
		ret = math.Max(ret, value)
	}
	return ret
}
