// Package inpgen runs the FLEUR input generator to turn a structure into an inp.xml deck.
package inpgen

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/viant/afs"
	"github.com/viant/fleurflow/model/calc"
	"github.com/viant/fleurflow/model/code"
	"github.com/viant/fleurflow/model/exitcode"
	"github.com/viant/fleurflow/model/fleurinp"
	"github.com/viant/fleurflow/model/outxml"
	"github.com/viant/fleurflow/model/structure"
	"github.com/viant/fleurflow/model/types"
	"github.com/viant/fleurflow/service/calculation"
	"github.com/viant/fleurflow/service/runner"
	"github.com/viant/fleurflow/telemetry"
)

// Name identifies the service in the scheduler
const Name = code.PluginInpgen

// Input represents an inpgen calculation request
type Input struct {
	Code       *code.Code           `json:"code"`
	Structure  *structure.Structure `json:"structure"`
	Parameters *Parameters          `json:"calc_parameters,omitempty"`
	Options    *calc.Options        `json:"options,omitempty"`
	Label      string               `json:"label,omitempty"`
}

// Output represents an inpgen calculation outcome
type Output struct {
	ExitCode   *exitcode.ExitCode `json:"exit_code"`
	Folder     *calc.Folder       `json:"remote_folder,omitempty"`
	FleurInput *fleurinp.Input    `json:"fleurinp,omitempty"`
	Status     int                `json:"status"`
	Elapsed    time.Duration      `json:"elapsed"`
}

// Code returns calculation exit code
func (o *Output) Code() *exitcode.ExitCode {
	return o.ExitCode
}

// Summary returns values recorded on the calculation node
func (o *Output) Summary() map[string]interface{} {
	ret := map[string]interface{}{"exit_status": o.ExitCode.Status, "status": o.Status}
	if o.Folder != nil {
		ret["remote_folder"] = o.Folder.URL
	}
	if o.FleurInput != nil {
		ret["formula"] = o.FleurInput.Formula()
	}
	return ret
}

// Service runs inpgen calculations
type Service struct {
	fs      afs.Service
	runner  runner.Runner
	workURL string
	logger  *telemetry.Logger
}

// New creates an inpgen calculation service staging work folders under workURL
func New(fs afs.Service, run runner.Runner, workURL string, logger *telemetry.Logger) *Service {
	if logger == nil {
		logger = telemetry.Nop()
	}
	return &Service{fs: fs, runner: run, workURL: workURL, logger: logger.NewComponentLogger(Name)}
}

func (s *Service) Name() string {
	return Name
}

func (s *Service) Methods() types.Signatures {
	return []types.Signature{
		{
			Name:   "run",
			Input:  reflect.TypeOf(&Input{}),
			Output: reflect.TypeOf(&Output{}),
		}}
}

// Method returns method by name
func (s *Service) Method(name string) (types.Executable, error) {
	switch strings.ToLower(name) {
	case "run":
		return s.run, nil
	default:
		return nil, types.NewMethodNotFoundError(name)
	}
}

func (s *Service) run(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*Input)
	if !ok {
		return types.NewInvalidInputError(in)
	}
	output, ok := out.(*Output)
	if !ok {
		return types.NewInvalidOutputError(out)
	}
	return s.Run(ctx, input, output)
}

// Run writes the inpgen input, runs inpgen and parses the produced inp.xml
func (s *Service) Run(ctx context.Context, input *Input, output *Output) error {
	if err := input.Code.Expect(code.PluginInpgen); err != nil {
		return types.InvalidInputf("%v", err)
	}
	if input.Structure == nil {
		return types.InvalidInputf("structure was not provided")
	}
	text, err := Render(input.Structure, input.Parameters)
	if err != nil {
		return types.InvalidInputf("%v", err)
	}
	options := input.Options
	if options == nil {
		options = calc.DefaultOptions()
	}
	nodeID := calculation.NodeID(ctx)
	folder, err := calculation.CreateFolder(ctx, s.fs, s.workURL, "inpgen", nodeID, input.Code.Computer())
	if err != nil {
		return err
	}
	output.Folder = folder
	if err = calculation.Write(ctx, s.fs, folder, FileName, []byte(text)); err != nil {
		return err
	}
	main := fmt.Sprintf("%v -explicit -f %v > %v 2> %v", input.Code.Executable, FileName, calculation.StdoutFile, calculation.StderrFile)
	command := &runner.Command{
		Host:    input.Code.Computer(),
		Workdir: folder.Path(),
		Env:     options.Environment,
		Line:    calculation.Shell(append(append([]string{}, input.Code.Prepend...), options.PrependText), main, options.AppendText),
		Timeout: time.Duration(options.MaxWallclockSeconds) * time.Second,
	}
	s.logger.WithNode(nodeID).Infof("running inpgen for %v in %v", input.Structure.Formula(), folder.URL)
	result, err := s.runner.Run(ctx, command)
	if err != nil {
		return fmt.Errorf("failed to run inpgen: %w", err)
	}
	output.Status = result.Status
	output.Elapsed = result.Elapsed

	files, err := calculation.Retrieve(ctx, s.fs, folder, fleurinp.FileName, calculation.StdoutFile, calculation.StderrFile)
	switch {
	case errors.Is(err, calculation.ErrFolderMissing):
		output.ExitCode = exitcode.NoRetrievedFolder
		return nil
	case err != nil:
		output.ExitCode = exitcode.OpeningOutputs.With("%v", err)
		return nil
	}
	output.ExitCode, output.FleurInput = classify(files, result.Status)
	return nil
}

func classify(files map[string][]byte, status int) (*exitcode.ExitCode, *fleurinp.Input) {
	data, ok := files[fleurinp.FileName]
	if status != 0 || !ok {
		_, line := outxml.Classify(string(files[calculation.StderrFile]), string(files[calculation.StdoutFile]))
		if status != 0 {
			if line == "" {
				line = fmt.Sprintf("inpgen exited with status %d", status)
			}
			return exitcode.FleurCalcFailed.With("%v", line), nil
		}
		return exitcode.NoInpXML, nil
	}
	deck, err := fleurinp.Parse(data)
	if err == nil {
		err = deck.Validate()
	}
	if err != nil {
		return exitcode.InpXMLInvalid.With("%v", err), nil
	}
	return exitcode.OK, deck
}
