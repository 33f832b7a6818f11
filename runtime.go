package fleurflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/viant/fleurflow/progress"
	"github.com/viant/fleurflow/runtime/execution"
	"github.com/viant/fleurflow/service/base"
	"github.com/viant/fleurflow/service/dao"
	"github.com/viant/fleurflow/service/scf"
	"github.com/viant/fleurflow/service/scheduler"
	"github.com/viant/fleurflow/telemetry"
)

var (
	// ErrNotStarted is returned when a workchain is submitted before Start
	ErrNotStarted = errors.New("runtime was not started")
	// ErrNotRunning is returned when killing a workchain that is not running
	ErrNotRunning = errors.New("workchain is not running")
)

// DefaultCalculationTimeout bounds RunCalculationOnce
const DefaultCalculationTimeout = 24 * time.Hour

// SCFWait blocks until a submitted SCF workchain ends, ctx is done or timeout elapses
type SCFWait func(ctx context.Context, timeout time.Duration) (*scf.Output, error)

// Runtime represents the workchain runtime
type Runtime struct {
	scheduler *scheduler.Service
	base      *base.Service
	scf       *scf.Service
	nodes     dao.Service[string, execution.Node]
	logger    *telemetry.Logger
	closers   []io.Closer

	mux     sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	running map[string]*submission
	group   sync.WaitGroup
}

type submission struct {
	cancel   context.CancelFunc
	done     chan struct{}
	progress *progress.Progress
	output   *scf.Output
	err      error
}

// Start starts the scheduler workers; submitted workchains are bound to ctx
func (r *Runtime) Start(ctx context.Context) error {
	r.mux.Lock()
	defer r.mux.Unlock()
	if r.ctx != nil {
		return nil
	}
	if err := r.scheduler.Start(ctx); err != nil {
		return err
	}
	r.ctx, r.cancel = context.WithCancel(ctx)
	return nil
}

// Shutdown kills running workchains, stops the scheduler and releases runner sessions and stores
func (r *Runtime) Shutdown(ctx context.Context) error {
	r.mux.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.mux.Unlock()

	done := make(chan struct{})
	go func() {
		r.group.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		r.logger.Warnf("shutdown did not wait for running workchains: %v", ctx.Err())
	}
	r.scheduler.Shutdown()
	var errs []error
	for _, closer := range r.closers {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SubmitSCF starts a SCF workchain in the background and returns its node
func (r *Runtime) SubmitSCF(ctx context.Context, input *scf.Input) (*execution.Node, SCFWait, error) {
	r.mux.Lock()
	runtimeCtx := r.ctx
	r.mux.Unlock()
	if runtimeCtx == nil || runtimeCtx.Err() != nil {
		return nil, nil, ErrNotStarted
	}
	if parent := execution.ContextValue[*execution.Node](ctx); parent != nil {
		runtimeCtx = execution.WithNode(runtimeCtx, parent)
	}
	node, err := r.scf.Start(runtimeCtx, input)
	if err != nil {
		return nil, nil, err
	}
	runCtx, cancel := context.WithCancel(runtimeCtx)
	runCtx, tracker := progress.WithNewTracker(runCtx, node.ID, scf.Name, nil)
	sub := &submission{cancel: cancel, done: make(chan struct{}), progress: tracker}

	r.mux.Lock()
	r.running[node.ID] = sub
	r.mux.Unlock()
	r.group.Add(1)
	go func() {
		defer r.group.Done()
		defer cancel()
		sub.output, sub.err = r.scf.Execute(runCtx, node, input)
		r.mux.Lock()
		delete(r.running, node.ID)
		r.mux.Unlock()
		close(sub.done)
	}()
	return node, sub.wait, nil
}

// wait blocks until the workchain ends; a non positive timeout waits without limit
func (s *submission) wait(ctx context.Context, timeout time.Duration) (*scf.Output, error) {
	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}
	select {
	case <-s.done:
		return s.output, s.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer:
		return nil, scheduler.ErrWaitTimeout
	}
}

// RunSCF runs a SCF workchain in the calling goroutine
func (r *Runtime) RunSCF(ctx context.Context, input *scf.Input) (*scf.Output, error) {
	return r.scf.Run(ctx, input)
}

// RunBase runs a single base workchain in the calling goroutine
func (r *Runtime) RunBase(ctx context.Context, input *base.Input) (*base.Output, error) {
	return r.base.Run(ctx, input)
}

// Kill cancels a submitted workchain; its running calculation is killed and its nodes end in killed state
func (r *Runtime) Kill(ctx context.Context, nodeID string) error {
	r.mux.Lock()
	sub, ok := r.running[nodeID]
	r.mux.Unlock()
	if !ok {
		return fmt.Errorf("%w: %v", ErrNotRunning, nodeID)
	}
	sub.cancel()
	select {
	case <-sub.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Progress returns counters of a running workchain
func (r *Runtime) Progress(nodeID string) (progress.Progress, bool) {
	r.mux.Lock()
	sub, ok := r.running[nodeID]
	r.mux.Unlock()
	if !ok {
		return progress.Progress{}, false
	}
	return sub.progress.Snapshot(), true
}

// Node returns a stored node
func (r *Runtime) Node(ctx context.Context, id string) (*execution.Node, error) {
	return r.nodes.Load(ctx, id)
}

// Nodes returns stored nodes matching all parameters
func (r *Runtime) Nodes(ctx context.Context, parameters ...*dao.Parameter) ([]*execution.Node, error) {
	return r.nodes.List(ctx, parameters...)
}

// Children returns nodes created by the workchain node
func (r *Runtime) Children(ctx context.Context, id string) ([]*execution.Node, error) {
	return r.nodes.List(ctx, dao.NewParameter(dao.ParamParentID, id))
}

// RunCalculationOnce submits a single calculation outside any workchain and waits for it.
// Restart handling is not applied; the returned value is the service output.
func (r *Runtime) RunCalculationOnce(ctx context.Context, service, method string, input interface{}) (interface{}, error) {
	parentID := ""
	if parent := execution.ContextValue[*execution.Node](ctx); parent != nil {
		parentID = parent.ID
	}
	job := execution.NewJob(parentID, service, method, input)
	wait, err := r.scheduler.Submit(ctx, job)
	if err != nil {
		return nil, err
	}
	done, err := wait(ctx, DefaultCalculationTimeout)
	if err != nil {
		if ctx.Err() != nil {
			_ = r.scheduler.Kill(context.WithoutCancel(ctx), job.ID)
		}
		return nil, err
	}
	if state, _ := done.Snapshot(); state != execution.JobStateCompleted {
		return done.Output, fmt.Errorf("calculation %v ended %v: %v", job.NodeID, state, done.Error)
	}
	return done.Output, nil
}
