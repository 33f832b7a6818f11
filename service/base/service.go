// Package base runs a FLEUR calculation and restarts it on recoverable failures.
package base

import (
	"context"
	"fmt"
	"time"

	"github.com/viant/fleurflow/model/calc"
	"github.com/viant/fleurflow/model/exitcode"
	"github.com/viant/fleurflow/progress"
	"github.com/viant/fleurflow/runtime/execution"
	"github.com/viant/fleurflow/service/calculation/fleur"
	"github.com/viant/fleurflow/service/dao"
	"github.com/viant/fleurflow/telemetry"
	"github.com/viant/fleurflow/tracing"
)

// Name identifies base workchain nodes
const Name = "fleur.base"

// Scheduler submits calculation jobs
type Scheduler interface {
	Submit(ctx context.Context, job *execution.Job) (execution.Wait, error)
	Kill(ctx context.Context, jobID string) error
}

// Service runs base workchains
type Service struct {
	scheduler   Scheduler
	nodes       dao.Service[string, execution.Node]
	logger      *telemetry.Logger
	metrics     *telemetry.Metrics
	killTimeout time.Duration
}

// New creates a base workchain service
func New(scheduler Scheduler, nodes dao.Service[string, execution.Node], options ...Option) *Service {
	s := &Service{scheduler: scheduler, nodes: nodes, killTimeout: 30 * time.Second}
	for _, opt := range options {
		opt(s)
	}
	if s.logger == nil {
		s.logger = telemetry.Nop()
	}
	s.logger = s.logger.NewComponentLogger(Name)
	return s
}

type workchain struct {
	*Service
	node              *execution.Node
	logger            *telemetry.Logger
	calculation       *fleur.Input
	limits            Limits
	maxIterations     int
	unexpectedFailure bool
	output            *Output
}

// Run executes the workchain; the workchain node is a child of the node carried by ctx.
// Outcomes are reported with the output exit code; errors are returned for infrastructure failures
// and when ctx is cancelled.
func (s *Service) Run(ctx context.Context, input *Input) (output *Output, err error) {
	if input == nil || input.Calculation == nil {
		return nil, fmt.Errorf("%v: calculation input was empty", Name)
	}
	parentID := ""
	if parent := execution.ContextValue[*execution.Node](ctx); parent != nil {
		parentID = parent.ID
	}
	node := execution.NewNode(execution.NodeKindWorkchain, Name, parentID, input.Label)
	ctx, span := tracing.StartSpan(ctx, Name, "INTERNAL")
	span.WithAttributes(map[string]string{"node.id": node.ID})
	defer func() { tracing.EndSpan(span, err) }()

	wc := &workchain{
		Service: s,
		node:    node,
		logger:  s.logger.WithNode(node.ID),
		output:  &Output{NodeID: node.ID},
	}
	if err = node.Transition(execution.NodeStateRunning); err != nil {
		return nil, err
	}
	s.save(ctx, node)
	s.metrics.RecordWorkchainStarted(Name)

	code, err := wc.run(execution.WithNode(ctx, node), input)
	switch {
	case err != nil && ctx.Err() != nil:
		_ = node.Kill()
	case err != nil:
		_ = node.Except(err)
	default:
		wc.output.ExitCode = code
		for k, v := range wc.output.Summary() {
			node.SetOutput(k, v)
		}
		_ = node.Finish(code)
		s.metrics.RecordWorkchainFinished(Name, code.Status)
	}
	s.save(context.WithoutCancel(ctx), node)
	if err != nil {
		return nil, err
	}
	return wc.output, nil
}

func (wc *workchain) run(ctx context.Context, input *Input) (*exitcode.ExitCode, error) {
	if code := wc.validate(input); code != nil {
		return code, nil
	}
	for wc.output.Iterations < wc.maxIterations {
		wc.output.Iterations++
		job := execution.NewJob(wc.node.ID, fleur.Name, "run", wc.calculation.Clone())
		job.Label = fmt.Sprintf("%s iteration %d", Name, wc.output.Iterations)
		calcOutput, code, err := wc.submit(ctx, job)
		if err != nil || code != nil {
			return code, err
		}
		if calcOutput == nil {
			progress.UpdateCtx(ctx, progress.Delta{Restarts: 1})
			continue
		}
		wc.output.Calculation = calcOutput
		wc.output.CalcNodeID = job.NodeID
		if calcOutput.ExitCode.IsFinishedOK() {
			progress.UpdateCtx(ctx, progress.Delta{Finished: 1})
			return exitcode.OK, nil
		}
		progress.UpdateCtx(ctx, progress.Delta{Failed: 1})
		if code = wc.inspect(calcOutput); code != nil {
			return code, nil
		}
		progress.UpdateCtx(ctx, progress.Delta{Restarts: 1})
	}
	wc.report("reached the maximum number of %d iterations", wc.maxIterations)
	return exitcode.MaximumIterationsExceeded, nil
}

// validate normalizes inputs and returns an exit code if resources cannot be satisfied
func (wc *workchain) validate(input *Input) *exitcode.ExitCode {
	wc.calculation = input.Calculation.Clone()
	if wc.calculation.Options == nil {
		wc.calculation.Options = calc.DefaultOptions()
	}
	wc.limits = DefaultLimits()
	if input.Limits != nil {
		wc.limits = *input.Limits
	}
	wc.maxIterations = input.MaxIterations
	if wc.maxIterations <= 0 {
		wc.maxIterations = DefaultMaxIterations
	}
	wc.node.SetInput("max_iterations", wc.maxIterations)
	wc.node.SetInput("num_machines", wc.calculation.Options.Resources.NumMachines)
	wc.node.SetInput("max_wallclock_seconds", wc.calculation.Options.MaxWallclockSeconds)
	if err := wc.calculation.Options.Validate(); err != nil {
		wc.report("%v", err)
		return exitcode.InvalidResources.With("%v", err)
	}
	if machines := wc.calculation.Options.Resources.NumMachines; machines > wc.limits.MaxQueueNodes {
		wc.report("%d machines exceed max_queue_nodes %d", machines, wc.limits.MaxQueueNodes)
		return exitcode.InvalidResources.With("%d machines exceed max_queue_nodes %d", machines, wc.limits.MaxQueueNodes)
	}
	return nil
}

// submit runs one calculation; a non nil exit code ends the workchain
func (wc *workchain) submit(ctx context.Context, job *execution.Job) (*fleur.Output, *exitcode.ExitCode, error) {
	wait, err := wc.scheduler.Submit(ctx, job)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to submit %v: %w", job.Service, err)
	}
	progress.UpdateCtx(ctx, progress.Delta{Submitted: 1, Running: 1})
	wc.logger.Infof("launched fleur calculation %v, iteration %d", job.NodeID, wc.output.Iterations)
	done, err := wait(ctx, 0)
	progress.UpdateCtx(ctx, progress.Delta{Running: -1})
	if err != nil {
		wc.killJob(job, wait)
		return nil, nil, err
	}
	switch done.State {
	case execution.JobStateKilled:
		wc.report("calculation %v was killed", job.NodeID)
		return nil, exitcode.SubProcessKilled, nil
	case execution.JobStateFailed:
		progress.UpdateCtx(ctx, progress.Delta{Failed: 1})
		return nil, wc.unhandled(fmt.Sprintf("calculation %v excepted: %v", job.NodeID, done.Error)), nil
	}
	output, ok := done.Output.(*fleur.Output)
	if !ok {
		return nil, nil, fmt.Errorf("unexpected %v output %T", job.Service, done.Output)
	}
	return output, nil, nil
}

// inspect picks the handler for a failed calculation
func (wc *workchain) inspect(output *fleur.Output) *exitcode.ExitCode {
	h := lookupHandler(output.ExitCode)
	if h == nil {
		return wc.unhandled(fmt.Sprintf("calculation failed with unexpected %v", output.ExitCode))
	}
	if code := h.handle(wc, output); code != nil {
		return code
	}
	wc.unexpectedFailure = false
	wc.output.Handlers = append(wc.output.Handlers, h.name)
	wc.metrics.RecordRestart(h.name)
	return nil
}

// unhandled restarts once; a second consecutive unhandled failure aborts
func (wc *workchain) unhandled(reason string) *exitcode.ExitCode {
	if wc.unexpectedFailure {
		wc.report("%v, second consecutive unhandled failure", reason)
		return exitcode.SecondUnhandledFailure
	}
	wc.unexpectedFailure = true
	wc.report("%v, restarting once", reason)
	wc.metrics.RecordRestart("unhandled")
	return nil
}

func (wc *workchain) restartFromFolder(output *fleur.Output) {
	if output.Folder == nil {
		return
	}
	folder := *output.Folder
	wc.calculation.ParentFolder = &folder
}

// killJob kills the running calculation and waits for it to stop
func (wc *workchain) killJob(job *execution.Job, wait execution.Wait) {
	ctx, cancel := context.WithTimeout(context.Background(), wc.killTimeout)
	defer cancel()
	if err := wc.scheduler.Kill(ctx, job.ID); err != nil {
		wc.logger.WithError(err).Warnf("failed to kill calculation %v", job.NodeID)
		return
	}
	if _, err := wait(ctx, wc.killTimeout); err != nil {
		wc.logger.WithError(err).Warnf("calculation %v did not stop", job.NodeID)
	}
}

func (wc *workchain) report(format string, args ...interface{}) {
	wc.logger.Infof("%s", wc.node.AddReport(format, args...))
}

func (s *Service) save(ctx context.Context, node *execution.Node) {
	if s.nodes == nil {
		return
	}
	if err := s.nodes.Save(ctx, node); err != nil {
		s.logger.WithError(err).Errorf("failed to save node %v", node.ID)
	}
}
