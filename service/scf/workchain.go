package scf

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/viant/fleurflow/model/calc"
	"github.com/viant/fleurflow/model/code"
	"github.com/viant/fleurflow/model/exitcode"
	"github.com/viant/fleurflow/model/fleurinp"
	"github.com/viant/fleurflow/model/fleurinp/modifier"
	"github.com/viant/fleurflow/model/outxml"
	"github.com/viant/fleurflow/progress"
	"github.com/viant/fleurflow/runtime/execution"
	"github.com/viant/fleurflow/service/base"
	"github.com/viant/fleurflow/service/calculation/fleur"
	"github.com/viant/fleurflow/service/calculation/inpgen"
	"github.com/viant/fleurflow/telemetry"
)

const killTimeout = 30 * time.Second

type workchain struct {
	*Service
	node   *execution.Node
	input  *Input
	logger *telemetry.Logger
	state  *Context
	output *Output
}

func (wc *workchain) run(ctx context.Context) (*exitcode.ExitCode, error) {
	wc.state = newContext(DefaultParameters())
	params, code := wc.validate()
	if code != nil {
		return code, nil
	}
	wc.state.StraightRemaining = params.StraightIterations
	if code, err := wc.prepareDeck(ctx); code != nil || err != nil {
		return code, err
	}
	for {
		deck, code := wc.mutate()
		if code != nil {
			return code, nil
		}
		baseOutput, err := wc.runFleur(ctx, deck)
		if err != nil {
			return nil, err
		}
		if code = wc.inspect(baseOutput); code != nil {
			return code, nil
		}
		if wc.converged() {
			wc.state.Converged = true
			wc.report("converged after %d fleur runs and %d iterations", wc.state.LoopCount, wc.state.IterationsTotal)
			return exitcode.OK, nil
		}
		if wc.state.LoopCount >= params.FleurRunmax {
			wc.errorf("did not converge within %d fleur runs", params.FleurRunmax)
			return exitcode.DidNotConverge, nil
		}
		wc.state.ParentFolder = wc.output.Folder
	}
}

// validate checks parameters, the starting point and codes
func (wc *workchain) validate() (*Parameters, *exitcode.ExitCode) {
	input := wc.input
	params, err := ParametersOf(input.Parameters)
	if err != nil {
		wc.errorf("%v", err)
		return nil, exitcode.InvalidInputParam.With("%v", err)
	}
	wc.state.Parameters = params
	hasStructure := input.Structure != nil
	hasDeck := input.FleurInput != nil || input.FleurInputURL != ""
	hasParent := input.ParentFolder != nil
	var configErr string
	switch {
	case hasStructure && (hasDeck || hasParent):
		configErr = "structure cannot be combined with fleurinp or remote_data"
	case !hasStructure && !hasDeck && !hasParent:
		configErr = "one of structure, fleurinp or remote_data is required"
	case hasStructure && input.InpgenCode == nil:
		configErr = "structure was given without inpgen code"
	}
	if configErr != "" {
		wc.errorf("%v", configErr)
		return nil, exitcode.InvalidInputConfig.With("%v", configErr)
	}
	if !hasStructure && input.CalcParameters != nil {
		wc.warnf("calc_parameters are ignored without structure")
	}
	if err := input.FleurCode.Expect(code.PluginFleur); err != nil {
		wc.errorf("%v", err)
		return nil, exitcode.InvalidCodeProvided.With("%v", err)
	}
	if hasStructure {
		if err := input.InpgenCode.Expect(code.PluginInpgen); err != nil {
			wc.errorf("%v", err)
			return nil, exitcode.InvalidCodeProvided.With("%v", err)
		}
		if err := input.Structure.Validate(); err != nil {
			wc.errorf("%v", err)
			return nil, exitcode.InvalidInputConfig.With("%v", err)
		}
		if input.CalcParameters != nil {
			if err := input.CalcParameters.Validate(); err != nil {
				wc.errorf("%v", err)
				return nil, exitcode.InvalidInputParam.With("%v", err)
			}
		}
	}
	wc.node.SetInput("mode", params.Mode)
	wc.node.SetInput("fleur_runmax", params.FleurRunmax)
	wc.node.SetInput("fleur", input.FleurCode.Label)
	return params, nil
}

// prepareDeck resolves the deck every run is derived from
func (wc *workchain) prepareDeck(ctx context.Context) (*exitcode.ExitCode, error) {
	input := wc.input
	var deck *fleurinp.Input
	var err error
	switch {
	case input.Structure != nil:
		return wc.runInpgen(ctx)
	case input.FleurInput != nil:
		deck = input.FleurInput
	case input.FleurInputURL != "":
		if deck, err = fleurinp.Load(ctx, wc.fs, input.FleurInputURL); err != nil {
			wc.errorf("%v", err)
			return exitcode.InvalidInputConfig.With("%v", err), nil
		}
	default:
		URL := input.ParentFolder.Join(fleurinp.FileName)
		if deck, err = fleurinp.Load(ctx, wc.fs, URL); err != nil {
			wc.errorf("%v", err)
			return exitcode.InvalidInputConfig.With("%v", err), nil
		}
	}
	if err = deck.Validate(); err != nil {
		wc.errorf("%v", err)
		return exitcode.InvalidInputFile.With("%v", err), nil
	}
	wc.state.Deck = deck
	wc.state.ParentFolder = input.ParentFolder
	return nil, nil
}

func (wc *workchain) runInpgen(ctx context.Context) (*exitcode.ExitCode, error) {
	options := wc.input.InpgenOptions
	if options == nil {
		options = calc.DefaultOptions()
	}
	job := execution.NewJob(wc.node.ID, inpgen.Name, "run", &inpgen.Input{
		Code:       wc.input.InpgenCode,
		Structure:  wc.input.Structure,
		Parameters: wc.input.CalcParameters,
		Options:    options,
		Label:      wc.input.Label,
	})
	job.Label = Name + " inpgen"
	done, err := wc.await(ctx, job)
	if err != nil {
		return nil, err
	}
	output, _ := done.Output.(*inpgen.Output)
	switch {
	case done.State != execution.JobStateCompleted:
		wc.errorf("inpgen calculation %v %v: %v", job.NodeID, done.State, done.Error)
		return exitcode.InpgenCalcFailed, nil
	case output == nil || !output.ExitCode.IsFinishedOK() || output.FleurInput == nil:
		if output != nil {
			wc.errorf("inpgen calculation %v failed: %v", job.NodeID, output.ExitCode)
		}
		return exitcode.InpgenCalcFailed, nil
	}
	wc.report("inpgen calculation %v created %v", job.NodeID, fleurinp.FileName)
	wc.state.Deck = output.FleurInput
	return nil, nil
}

// await submits a job and waits for it; the job is killed when ctx is cancelled
func (wc *workchain) await(ctx context.Context, job *execution.Job) (*execution.Job, error) {
	wait, err := wc.scheduler.Submit(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("failed to submit %v: %w", job.Service, err)
	}
	progress.UpdateCtx(ctx, progress.Delta{Submitted: 1, Running: 1})
	done, err := wait(ctx, 0)
	progress.UpdateCtx(ctx, progress.Delta{Running: -1})
	if err == nil {
		if done.State == execution.JobStateCompleted {
			progress.UpdateCtx(ctx, progress.Delta{Finished: 1})
		} else {
			progress.UpdateCtx(ctx, progress.Delta{Failed: 1})
		}
		return done, nil
	}
	killCtx, cancel := context.WithTimeout(context.Background(), killTimeout)
	defer cancel()
	if kErr := wc.scheduler.Kill(killCtx, job.ID); kErr == nil {
		_, _ = wait(killCtx, killTimeout)
	}
	return nil, err
}

// mutate derives the deck of the next run from the workchain deck
func (wc *workchain) mutate() (*fleurinp.Input, *exitcode.ExitCode) {
	params := wc.state.Parameters
	itmax := params.ItmaxPerRun
	imix := params.Mixing
	if wc.state.StraightRemaining > 0 {
		imix = "straight"
		if wc.state.StraightRemaining < itmax {
			itmax = wc.state.StraightRemaining
		}
	}
	minDistance := 0.0
	if params.Mode == ModeDensity || params.Mode == ModeSpex {
		minDistance = params.DensityConverged
	}
	values := map[string]interface{}{
		"itmax":       itmax,
		"minDistance": minDistance,
		"imix":        imix,
	}
	switch params.Mode {
	case ModeForce:
		values["l_f"] = true
		values["forcemix"] = params.ForceDict.ForceMix
		values["forcealpha"] = params.ForceDict.ForceAlpha
		values["qfix"] = params.ForceDict.Qfix
		values["force_converged"] = params.ForceConverged
	case ModeSpex:
		values["spex"] = 2
	}
	mod := modifier.New(wc.state.Deck).SetInpchanges(values).Apply(params.InpxmlChanges...)
	deck, err := mod.Freeze()
	var changeErr *modifier.ChangeError
	switch {
	case errors.As(err, &changeErr):
		wc.errorf("%v", err)
		return nil, exitcode.ChangingFleurInp.With("%v", err)
	case err != nil:
		wc.errorf("%v", err)
		return nil, exitcode.InvalidInputFile.With("%v", err)
	}
	if diff, stats, err := mod.Diff(); err == nil {
		wc.logger.Debugf("run %d deck changes: +%d -%d\n%s", wc.state.LoopCount+1, stats.Added, stats.Removed, diff)
	}
	wc.state.LastDeck = deck
	wc.output.FleurInput = deck
	return deck, nil
}

func (wc *workchain) runFleur(ctx context.Context, deck *fleurinp.Input) (*base.Output, error) {
	params := wc.state.Parameters
	wc.state.LoopCount++
	progress.UpdateCtx(ctx, progress.Delta{Loops: 1})
	label := fmt.Sprintf("%s run %d", Name, wc.state.LoopCount)
	limits := params.AddCompPara
	output, err := wc.base.Run(ctx, &base.Input{
		Calculation: &fleur.Input{
			Code:         wc.input.FleurCode,
			FleurInput:   deck,
			ParentFolder: wc.state.ParentFolder,
			Options:      wc.input.Options,
			Settings:     wc.input.Settings,
			UseRelaxXML:  params.UseRelaxXML && wc.state.ParentFolder != nil,
			Label:        label,
		},
		Limits: &limits,
		Label:  label,
	})
	if err != nil {
		return nil, err
	}
	wc.report("fleur run %d finished with %v", wc.state.LoopCount, output.ExitCode)
	return output, nil
}

// inspect collects metrics of the run and maps a base failure to a workchain exit code
func (wc *workchain) inspect(output *base.Output) *exitcode.ExitCode {
	wc.state.LastBase = output
	if calcOutput := output.Calculation; calcOutput != nil {
		if calcOutput.Folder != nil {
			wc.output.Folder = calcOutput.Folder
		}
		wall := calcOutput.Elapsed
		if calcOutput.Result != nil {
			wc.state.collect(calcOutput.Result)
			if w := calcOutput.Result.WallTime(); w > 0 {
				wall = w
			}
			for _, message := range calcOutput.Result.Warnings {
				wc.warnf("%v", message)
			}
		}
		wc.state.WallTime += wall
	}
	if output.ExitCode.IsFinishedOK() {
		return nil
	}
	switch output.ExitCode.Status {
	case exitcode.VacuumSpillRelaxSCF.Status:
		wc.errorf("fleur base workchain failed: %v", output.ExitCode)
		return exitcode.VacuumSpillRelaxSCF
	case exitcode.MTRadiiRelaxSCF.Status:
		wc.errorf("fleur base workchain failed: %v", output.ExitCode)
		return exitcode.MTRadiiRelaxSCF
	}
	wc.errorf("fleur base workchain failed: %v", output.ExitCode)
	return exitcode.FleurCalcFailedSCF.With("base workchain %v exited with %v", output.NodeID, output.ExitCode)
}

// converged evaluates the mode criterion and, for LDA+U decks, the density matrix criterion
func (wc *workchain) converged() bool {
	params, state := wc.state.Parameters, wc.state
	var metric, threshold float64
	var ok bool
	switch params.Mode {
	case ModeEnergy:
		metric, ok = state.energyChange()
		threshold = params.EnergyConverged
	case ModeForce:
		metric, ok = outxml.ForceChange(state.PreviousIteration, state.LastIteration)
		threshold = params.ForceConverged
	case ModeTorque:
		metric, ok = outxml.TorqueChange(state.PreviousIteration, state.LastIteration)
		threshold = params.TorqueConverged
	default:
		metric, ok = state.lastDistance()
		threshold = params.DensityConverged
	}
	if !ok {
		wc.warnf("run %d: no %v convergence data", state.LoopCount, params.Mode)
		return false
	}
	wc.report("run %d: %v criterion %g, threshold %g", state.LoopCount, params.Mode, metric, threshold)
	if metric > threshold {
		return false
	}
	if state.Deck.HasLDAU() {
		var nmmp float64
		if state.LastIteration != nil {
			nmmp, ok = state.LastIteration.MaxNmmpDistance()
		} else {
			ok = false
		}
		if !ok {
			wc.warnf("run %d: LDA+U density matrix distance missing, criterion treated as satisfied", state.LoopCount)
			return true
		}
		if nmmp > params.NmmpConverged {
			wc.report("run %d: density matrix distance %g above %g", state.LoopCount, nmmp, params.NmmpConverged)
			return false
		}
	}
	return true
}

// finish assembles the report
func (wc *workchain) finish(code *exitcode.ExitCode) {
	state := wc.state
	result := &Result{
		WorkflowName:        Name,
		WorkflowVersion:     WorkflowVersion,
		ConvMode:            state.Parameters.Mode,
		Converged:           code.IsFinishedOK() && state.Converged,
		LoopCount:           state.LoopCount,
		IterationsTotal:     state.IterationsTotal,
		DistanceChargeAll:   state.Distances,
		DistanceChargeUnits: DistanceUnits,
		TotalEnergyAll:      state.Energies,
		TotalEnergyUnits:    state.EnergyUnits,
		NmmpDistanceAll:     state.Nmmp,
		TotalWallTime:       state.WallTime.Seconds(),
		TotalWallTimeUnits:  "s",
		Info:                state.Info,
		Warnings:            state.Warnings,
		Errors:              state.Errors,
		ExitStatus:          code.Status,
	}
	if !code.IsFinishedOK() {
		result.ExitMessage = code.String()
	}
	if result.TotalEnergyUnits == "" {
		result.TotalEnergyUnits = "Htr"
	}
	if state.Deck != nil {
		result.Material = state.Deck.Formula()
	} else if wc.input.Structure != nil {
		result.Material = wc.input.Structure.Formula()
	}
	if value, ok := state.lastDistance(); ok {
		result.DistanceCharge = &value
	}
	if len(state.Energies) > 0 {
		value := state.Energies[len(state.Energies)-1]
		result.TotalEnergy = &value
	}
	if value, ok := state.lastNmmp(); ok {
		result.NmmpDistance = &value
	}
	if value, ok := outxml.ForceChange(state.PreviousIteration, state.LastIteration); ok {
		result.ForceDiffLast = &value
	}
	if state.LastIteration != nil && len(state.LastIteration.Forces) > 0 {
		value := state.LastIteration.LargestForce()
		result.ForceLargest = &value
	}
	if value, ok := outxml.TorqueChange(state.PreviousIteration, state.LastIteration); ok {
		result.TorqueDiffLast = &value
	}
	if state.LastBase != nil {
		result.LastCalcUUID = state.LastBase.CalcNodeID
	}
	wc.output.ExitCode = code
	wc.output.Result = result
}

func (wc *workchain) report(format string, args ...interface{}) {
	message := wc.node.AddReport(format, args...)
	wc.state.Info = append(wc.state.Info, message)
	wc.logger.Infof("%s", message)
}

func (wc *workchain) warnf(format string, args ...interface{}) {
	message := wc.node.AddReport("WARNING: "+format, args...)
	wc.state.Warnings = append(wc.state.Warnings, fmt.Sprintf(format, args...))
	wc.logger.Warnf("%s", message)
}

func (wc *workchain) errorf(format string, args ...interface{}) {
	message := wc.node.AddReport("ERROR: "+format, args...)
	wc.state.Errors = append(wc.state.Errors, fmt.Sprintf(format, args...))
	wc.logger.Errorf("%s", message)
}
