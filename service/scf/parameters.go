package scf

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"
	"github.com/viant/fleurflow/model/fleurinp/modifier"
	"github.com/viant/fleurflow/service/base"
	"gopkg.in/yaml.v3"
)

// Convergence modes
const (
	ModeDensity = "density"
	ModeEnergy  = "energy"
	ModeForce   = "force"
	ModeTorque  = "torque"
	ModeSpex    = "spex"
)

var validate = validator.New()

// ForceDict represents force mode deck settings
type ForceDict struct {
	Qfix       int     `json:"qfix" yaml:"qfix" validate:"gte=0,lte=2"`
	ForceAlpha float64 `json:"forcealpha" yaml:"forcealpha" validate:"gt=0"`
	ForceMix   string  `json:"forcemix" yaml:"forcemix" validate:"oneof=BFGS straight"`
}

// Parameters represents SCF workchain parameters (wf_parameters)
type Parameters struct {
	FleurRunmax        int              `json:"fleur_runmax" yaml:"fleur_runmax" validate:"gte=1"`
	DensityConverged   float64          `json:"density_converged" yaml:"density_converged" validate:"gt=0"`
	EnergyConverged    float64          `json:"energy_converged" yaml:"energy_converged" validate:"gt=0"`
	ForceConverged     float64          `json:"force_converged" yaml:"force_converged" validate:"gt=0"`
	TorqueConverged    float64          `json:"torque_converged" yaml:"torque_converged" validate:"gt=0"`
	NmmpConverged      float64          `json:"nmmp_converged" yaml:"nmmp_converged" validate:"gt=0"`
	Mode               string           `json:"mode" yaml:"mode" validate:"oneof=density energy force torque spex"`
	ItmaxPerRun        int              `json:"itmax_per_run" yaml:"itmax_per_run" validate:"gte=1"`
	StraightIterations int              `json:"straight_iterations" yaml:"straight_iterations" validate:"gte=0"`
	Mixing             string           `json:"mixing" yaml:"mixing" validate:"oneof=straight Broyden1 Broyden2 Anderson Pulay pPulay rPulay aPulay"`
	ForceDict          ForceDict        `json:"force_dict" yaml:"force_dict"`
	InpxmlChanges      modifier.Changes `json:"inpxml_changes" yaml:"inpxml_changes"`
	AddCompPara        base.Limits      `json:"add_comp_para" yaml:"add_comp_para"`
	UseRelaxXML        bool             `json:"use_relax_xml" yaml:"use_relax_xml"`
}

// DefaultParameters returns default SCF parameters
func DefaultParameters() *Parameters {
	return &Parameters{
		FleurRunmax:      4,
		DensityConverged: 0.00002,
		EnergyConverged:  0.002,
		ForceConverged:   0.002,
		TorqueConverged:  0.0002,
		NmmpConverged:    0.002,
		Mode:             ModeDensity,
		ItmaxPerRun:      30,
		Mixing:           "Anderson",
		ForceDict:        ForceDict{Qfix: 2, ForceAlpha: 1.0, ForceMix: "BFGS"},
		AddCompPara:      base.DefaultLimits(),
	}
}

// Validate checks parameter values
func (p *Parameters) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid wf_parameters: %w", err)
	}
	for i, change := range p.InpxmlChanges {
		if change == nil || change.Method == "" {
			return fmt.Errorf("invalid wf_parameters: inpxml_changes[%d] has no method", i)
		}
	}
	return nil
}

// DecodeParameters overlays supplied keys on defaults; unknown keys are rejected
func DecodeParameters(data []byte) (*Parameters, error) {
	ret := DefaultParameters()
	if len(bytes.TrimSpace(data)) == 0 {
		return ret, nil
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(ret); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("invalid wf_parameters: %w", err)
	}
	return ret, ret.Validate()
}

// ParametersOf converts a wf_parameters map into parameters
func ParametersOf(values map[string]interface{}) (*Parameters, error) {
	if len(values) == 0 {
		return DefaultParameters(), nil
	}
	data, err := yaml.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("invalid wf_parameters: %w", err)
	}
	return DecodeParameters(data)
}

// Map returns parameters as a wf_parameters map
func (p *Parameters) Map() (map[string]interface{}, error) {
	data, err := yaml.Marshal(p)
	if err != nil {
		return nil, err
	}
	ret := map[string]interface{}{}
	return ret, yaml.Unmarshal(data, &ret)
}
