// Package fleur runs a single FLEUR calculation: stage inputs, execute, retrieve and classify outputs.
package fleur

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/viant/afs"
	"github.com/viant/fleurflow/model/calc"
	"github.com/viant/fleurflow/model/code"
	"github.com/viant/fleurflow/model/exitcode"
	"github.com/viant/fleurflow/model/fleurinp"
	"github.com/viant/fleurflow/model/types"
	"github.com/viant/fleurflow/service/calculation"
	"github.com/viant/fleurflow/service/runner"
	"github.com/viant/fleurflow/telemetry"
)

// Name identifies the service in the scheduler
const Name = code.PluginFleur

// RestartFiles are copied from a parent folder
var RestartFiles = []string{"cdn1", "cdn.hdf", "cdn_last.hdf", "mixing_history*", "n_mmp_mat"}

// RetrieveFiles are downloaded after the run
var RetrieveFiles = []string{"out.xml", "out", calculation.StdoutFile, calculation.StderrFile, "usage.json", "relax.xml"}

// wallclockGrace is added to the runner timeout so that FLEUR can stop on -wtime first
const wallclockGrace = time.Minute

// Service runs FLEUR calculations
type Service struct {
	fs      afs.Service
	runner  runner.Runner
	workURL string
	logger  *telemetry.Logger
}

// New creates a fleur calculation service staging work folders under workURL
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

// Run stages, executes and parses one FLEUR calculation; outcomes are reported via output exit code,
// errors are reserved for transport and storage failures
func (s *Service) Run(ctx context.Context, input *Input, output *Output) error {
	if err := input.Code.Expect(code.PluginFleur); err != nil {
		return types.InvalidInputf("%v", err)
	}
	options := input.Options
	if options == nil {
		options = calc.DefaultOptions()
	}
	if err := options.Validate(); err != nil {
		return types.InvalidInputf("%v", err)
	}
	nodeID := calculation.NodeID(ctx)
	logger := s.logger.WithNode(nodeID)
	folder, err := calculation.CreateFolder(ctx, s.fs, s.workURL, "fleur", nodeID, input.Code.Computer())
	if err != nil {
		return err
	}
	output.Folder = folder
	if failed, err := s.stage(ctx, input, folder); err != nil || failed != nil {
		output.ExitCode = failed
		return err
	}

	command := &runner.Command{
		Host:    input.Code.Computer(),
		Workdir: folder.Path(),
		Env:     options.Environment,
		Line:    commandLine(input.Code, options),
		Timeout: time.Duration(options.MaxWallclockSeconds)*time.Second + wallclockGrace,
	}
	logger.Infof("running fleur in %v", folder.URL)
	result, runErr := s.runner.Run(ctx, command)
	timedOut := errors.Is(runErr, context.DeadlineExceeded) && ctx.Err() == nil
	if runErr != nil && !timedOut {
		return fmt.Errorf("failed to run fleur: %w", runErr)
	}
	if result != nil {
		output.Status = result.Status
		output.Elapsed = result.Elapsed
	}

	files, err := calculation.Retrieve(ctx, s.fs, folder, retrieveList(input.Settings)...)
	switch {
	case errors.Is(err, calculation.ErrFolderMissing):
		output.ExitCode = exitcode.NoRetrievedFolder
		return nil
	case err != nil:
		output.ExitCode = exitcode.OpeningOutputs.With("%v", err)
		return nil
	}
	for name := range files {
		output.Retrieved = append(output.Retrieved, name)
	}
	output.ExitCode, output.Result, output.Failure = Classify(files, output.Status, timedOut)
	if !output.ExitCode.IsFinishedOK() {
		logger.Warnf("fleur calculation failed: %v", output.ExitCode)
	}
	return nil
}

func (s *Service) stage(ctx context.Context, input *Input, folder *calc.Folder) (*exitcode.ExitCode, error) {
	deck := input.FleurInput
	if input.ParentFolder != nil {
		patterns := append([]string{}, RestartFiles...)
		if deck == nil {
			patterns = append(patterns, fleurinp.FileName)
		}
		if input.UseRelaxXML {
			patterns = append(patterns, "relax.xml")
		}
		copied, err := calculation.CopyMatching(ctx, s.fs, input.ParentFolder, folder, patterns...)
		if errors.Is(err, calculation.ErrFolderMissing) {
			return exitcode.NoRetrievedFolder.With("parent folder %v does not exist", input.ParentFolder.URL), nil
		}
		if err != nil {
			return nil, err
		}
		if deck == nil && !contains(copied, fleurinp.FileName) {
			return exitcode.FleurCalcFailed.With("parent folder %v has no %v", input.ParentFolder.URL, fleurinp.FileName), nil
		}
	}
	if deck == nil && input.ParentFolder == nil {
		return nil, types.InvalidInputf("neither %v nor parent folder was provided", fleurinp.FileName)
	}
	if deck != nil {
		if err := deck.Upload(ctx, s.fs, folder.Join(fleurinp.FileName)); err != nil {
			return nil, err
		}
	}
	if input.Settings != nil {
		for name, source := range input.Settings.Files {
			if err := s.fs.Copy(ctx, source, folder.Join(name)); err != nil {
				return nil, fmt.Errorf("failed to stage %v: %w", name, err)
			}
		}
	}
	return nil, nil
}

func commandLine(fleurCode *code.Code, options *calc.Options) string {
	minutes := options.MaxWallclockSeconds / 60
	if minutes < 1 {
		minutes = 1
	}
	main := fleurCode.Executable + " -minimalOutput -wtime " + strconv.Itoa(minutes)
	if prefix := options.MPIPrefix(); prefix != "" {
		main = prefix + " " + main
	}
	main += " > " + calculation.StdoutFile + " 2> " + calculation.StderrFile
	prepend := append([]string{}, fleurCode.Prepend...)
	prepend = append(prepend, options.PrependText)
	return calculation.Shell(prepend, main, options.AppendText)
}

func retrieveList(settings *Settings) []string {
	names := append([]string{}, RetrieveFiles...)
	if settings == nil {
		return names
	}
	var ret []string
	for _, name := range append(names, settings.Retrieve...) {
		if !contains(settings.RemoveRetrieve, name) && !contains(ret, name) {
			ret = append(ret, name)
		}
	}
	return ret
}

func contains(values []string, value string) bool {
	for _, candidate := range values {
		if candidate == value {
			return true
		}
	}
	return false
}
