package scf

import (
	"bytes"
	"fmt"

	"github.com/viant/fleurflow/model/calc"
	"github.com/viant/fleurflow/model/code"
	"github.com/viant/fleurflow/model/exitcode"
	"github.com/viant/fleurflow/model/fleurinp"
	"github.com/viant/fleurflow/model/structure"
	"github.com/viant/fleurflow/service/calculation/fleur"
	"github.com/viant/fleurflow/service/calculation/inpgen"
	"gopkg.in/yaml.v3"
)

// Input represents a SCF workchain request; exactly one starting point is expected:
// Structure with InpgenCode, FleurInput, or ParentFolder (optionally with FleurInput)
type Input struct {
	Structure      *structure.Structure   `json:"structure,omitempty" yaml:"structure,omitempty"`
	InpgenCode     *code.Code             `json:"inpgen,omitempty" yaml:"inpgen,omitempty"`
	CalcParameters *inpgen.Parameters     `json:"calc_parameters,omitempty" yaml:"calc_parameters,omitempty"`
	InpgenOptions  *calc.Options          `json:"inpgen_options,omitempty" yaml:"inpgen_options,omitempty"`
	FleurInput     *fleurinp.Input        `json:"fleurinp,omitempty" yaml:"-"`
	// FleurInputURL locates inp.xml when FleurInput is not provided
	FleurInputURL string `json:"fleurinp_url,omitempty" yaml:"fleurinp,omitempty"`
	ParentFolder   *calc.Folder           `json:"remote_data,omitempty" yaml:"remote_data,omitempty"`
	FleurCode      *code.Code             `json:"fleur" yaml:"fleur"`
	Options        *calc.Options          `json:"options,omitempty" yaml:"options,omitempty"`
	Parameters     map[string]interface{} `json:"wf_parameters,omitempty" yaml:"wf_parameters,omitempty"`
	Settings       *fleur.Settings        `json:"settings,omitempty" yaml:"settings,omitempty"`
	Label          string                 `json:"label,omitempty" yaml:"label,omitempty"`
	Description    string                 `json:"description,omitempty" yaml:"description,omitempty"`
}

// Output represents a SCF workchain outcome
type Output struct {
	ExitCode *exitcode.ExitCode `json:"exit_code"`
	NodeID   string             `json:"node_id"`
	Result   *Result            `json:"output_scf_wc_para"`
	// FleurInput is the deck of the last FLEUR run
	FleurInput *fleurinp.Input `json:"fleurinp,omitempty"`
	// Folder is the remote folder of the last FLEUR calculation
	Folder *calc.Folder `json:"last_calc_remote,omitempty"`
}

// Code returns workchain exit code
func (o *Output) Code() *exitcode.ExitCode {
	return o.ExitCode
}

// DecodeInput decodes a YAML request; unknown keys are rejected
func DecodeInput(data []byte) (*Input, error) {
	ret := &Input{}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(ret); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	return ret, nil
}
