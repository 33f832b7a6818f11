// Package scf runs the FLEUR self-consistency workchain: it submits FLEUR runs through the base
// workchain until the selected convergence criterion is reached or the run budget is spent.
package scf

import (
	"context"
	"fmt"

	"github.com/viant/afs"
	"github.com/viant/fleurflow/progress"
	"github.com/viant/fleurflow/runtime/execution"
	"github.com/viant/fleurflow/service/base"
	"github.com/viant/fleurflow/service/dao"
	"github.com/viant/fleurflow/telemetry"
	"github.com/viant/fleurflow/tracing"
)

// Name identifies SCF workchain nodes
const Name = "fleur.scf"

// Service runs SCF workchains
type Service struct {
	fs        afs.Service
	scheduler base.Scheduler
	base      *base.Service
	nodes     dao.Service[string, execution.Node]
	logger    *telemetry.Logger
	metrics   *telemetry.Metrics
}

// New creates a SCF workchain service; calculations are submitted to scheduler
func New(fs afs.Service, scheduler base.Scheduler, nodes dao.Service[string, execution.Node], options ...Option) *Service {
	s := &Service{fs: fs, scheduler: scheduler, nodes: nodes}
	for _, opt := range options {
		opt(s)
	}
	if s.logger == nil {
		s.logger = telemetry.Nop()
	}
	if s.base == nil {
		s.base = base.New(scheduler, nodes, base.WithLogger(s.logger), base.WithMetrics(s.metrics))
	}
	s.logger = s.logger.NewComponentLogger(Name)
	return s
}

// Start creates the workchain node; the returned node can be used to follow or kill the run
func (s *Service) Start(ctx context.Context, input *Input) (*execution.Node, error) {
	if input == nil {
		return nil, fmt.Errorf("%v: input was empty", Name)
	}
	parentID := ""
	if parent := execution.ContextValue[*execution.Node](ctx); parent != nil {
		parentID = parent.ID
	}
	node := execution.NewNode(execution.NodeKindWorkchain, Name, parentID, input.Label)
	if err := node.Transition(execution.NodeStateWaiting); err != nil {
		return nil, err
	}
	s.save(ctx, node)
	return node, nil
}

// Run creates the workchain node and executes the workchain
func (s *Service) Run(ctx context.Context, input *Input) (*Output, error) {
	node, err := s.Start(ctx, input)
	if err != nil {
		return nil, err
	}
	return s.Execute(ctx, node, input)
}

// Execute runs the workchain for a node created by Start. Outcomes are reported with the output
// exit code; errors are returned for infrastructure failures and when ctx is cancelled.
func (s *Service) Execute(ctx context.Context, node *execution.Node, input *Input) (output *Output, err error) {
	ctx, span := tracing.StartSpan(ctx, Name, "INTERNAL")
	span.WithAttributes(map[string]string{"node.id": node.ID})
	defer func() { tracing.EndSpan(span, err) }()
	if _, ok := progress.FromContext(ctx); !ok {
		ctx, _ = progress.WithNewTracker(ctx, node.ID, Name, nil)
	}
	wc := &workchain{
		Service: s,
		node:    node,
		input:   input,
		logger:  s.logger.WithNode(node.ID),
		output:  &Output{NodeID: node.ID},
	}
	if err = node.Transition(execution.NodeStateRunning); err != nil {
		return nil, err
	}
	s.save(ctx, node)
	s.metrics.RecordWorkchainStarted(Name)

	code, err := wc.run(execution.WithNode(ctx, node))
	switch {
	case err != nil && ctx.Err() != nil:
		wc.report("workchain was killed")
		_ = node.Kill()
	case err != nil:
		_ = node.Except(err)
	default:
		wc.finish(code)
		for k, v := range wc.output.Result.Summary() {
			node.SetOutput(k, v)
		}
		_ = node.Finish(code)
		s.metrics.RecordWorkchainFinished(Name, code.Status)
		s.metrics.RecordSCF(wc.output.Result.ConvMode, wc.output.Result.Converged, wc.output.Result.IterationsTotal)
	}
	s.save(context.WithoutCancel(ctx), node)
	if err != nil {
		return nil, err
	}
	return wc.output, nil
}

func (s *Service) save(ctx context.Context, node *execution.Node) {
	if s.nodes == nil {
		return
	}
	if err := s.nodes.Save(ctx, node); err != nil {
		s.logger.WithError(err).Errorf("failed to save node %v", node.ID)
	}
}
