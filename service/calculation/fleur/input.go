package fleur

import (
	"time"

	"github.com/viant/fleurflow/model/calc"
	"github.com/viant/fleurflow/model/code"
	"github.com/viant/fleurflow/model/exitcode"
	"github.com/viant/fleurflow/model/fleurinp"
	"github.com/viant/fleurflow/model/outxml"
)

// Settings represents extra files to stage and retrieve
type Settings struct {
	// Files maps staged file name to its source URL
	Files          map[string]string `json:"files,omitempty" yaml:"files,omitempty"`
	Retrieve       []string          `json:"retrieve,omitempty" yaml:"retrieve,omitempty"`
	RemoveRetrieve []string          `json:"remove_retrieve,omitempty" yaml:"remove_retrieve,omitempty"`
}

// Input represents a FLEUR calculation request; either FleurInput or ParentFolder must carry inp.xml
type Input struct {
	Code         *code.Code      `json:"code"`
	FleurInput   *fleurinp.Input `json:"fleurinp,omitempty"`
	ParentFolder *calc.Folder    `json:"parent_folder,omitempty"`
	Options      *calc.Options   `json:"options,omitempty"`
	Settings     *Settings       `json:"settings,omitempty"`
	UseRelaxXML  bool            `json:"use_relax_xml,omitempty"`
	Label        string          `json:"label,omitempty"`
}

// Clone returns a copy whose options can be changed by restart handlers; the deck is shared
func (i *Input) Clone() *Input {
	if i == nil {
		return nil
	}
	ret := *i
	ret.Options = i.Options.Clone()
	if i.ParentFolder != nil {
		folder := *i.ParentFolder
		ret.ParentFolder = &folder
	}
	return &ret
}

// Output represents a FLEUR calculation outcome
type Output struct {
	ExitCode  *exitcode.ExitCode `json:"exit_code"`
	Folder    *calc.Folder       `json:"remote_folder,omitempty"`
	Result    *outxml.Result     `json:"output_parameters,omitempty"`
	Failure   outxml.Failure     `json:"failure,omitempty"`
	Retrieved []string           `json:"retrieved,omitempty"`
	Status    int                `json:"status"`
	Elapsed   time.Duration      `json:"elapsed"`
}

// Code returns calculation exit code
func (o *Output) Code() *exitcode.ExitCode {
	return o.ExitCode
}

// Summary returns values recorded on the calculation node
func (o *Output) Summary() map[string]interface{} {
	ret := map[string]interface{}{
		"exit_status": o.ExitCode.Status,
		"status":      o.Status,
	}
	if o.Folder != nil {
		ret["remote_folder"] = o.Folder.URL
	}
	if o.Failure != outxml.FailureNone {
		ret["failure"] = string(o.Failure)
	}
	if o.Result != nil {
		ret["iterations"] = len(o.Result.Iterations)
		ret["finished"] = o.Result.Finished
		if last := o.Result.Last(); last != nil {
			if distance, ok := last.ChargeDistance(); ok {
				ret["distance_charge"] = distance
			}
			if last.TotalEnergy != nil {
				ret["total_energy"] = *last.TotalEnergy
			}
		}
	}
	return ret
}
