// Package scheduler runs calculation jobs on a worker pool and hands submitters a wait continuation.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/viant/fleurflow/extension"
	"github.com/viant/fleurflow/model/types"
	"github.com/viant/fleurflow/runtime/execution"
	"github.com/viant/fleurflow/service/dao"
	jobmemory "github.com/viant/fleurflow/service/dao/job/memory"
	nodememory "github.com/viant/fleurflow/service/dao/node/memory"
	"github.com/viant/fleurflow/service/messaging"
	"github.com/viant/fleurflow/service/messaging/memory"
	"github.com/viant/fleurflow/telemetry"
)

var (
	// ErrUnknownService is returned when a job names an unregistered service
	ErrUnknownService = errors.New("unknown calculation service")
	// ErrWaitTimeout is returned by Wait when the timeout elapses first
	ErrWaitTimeout = errors.New("wait timed out")
	// ErrStopped is returned when submitting to a stopped scheduler
	ErrStopped = errors.New("scheduler stopped")
)

// Ticket is the queued reference to a job
type Ticket struct {
	JobID string
}

// Service handles calculation job execution
type Service struct {
	config  Config
	actions *extension.Actions
	jobs    dao.Service[string, execution.Job]
	nodes   dao.Service[string, execution.Node]
	queue   messaging.Queue[Ticket]
	logger  *telemetry.Logger
	metrics *telemetry.Metrics

	mux        sync.Mutex
	active     map[string]*entry
	workers    []*worker
	workerWg   sync.WaitGroup
	started    bool
	stopped    bool
	shutdownCh chan struct{}
}

type entry struct {
	job     *execution.Job
	node    *execution.Node
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

type worker struct {
	id       int
	service  *Service
	ctx      context.Context
	cancelFn context.CancelFunc
}

// New creates a scheduler dispatching jobs to services registered in actions
func New(actions *extension.Actions, options ...Option) (*Service, error) {
	s := &Service{
		config:     DefaultConfig(),
		actions:    actions,
		active:     make(map[string]*entry),
		shutdownCh: make(chan struct{}),
	}
	for _, opt := range options {
		opt(s)
	}
	if s.actions == nil {
		return nil, fmt.Errorf("actions registry is required")
	}
	if s.config.WorkerCount < 1 {
		return nil, fmt.Errorf("invalid worker count: %d", s.config.WorkerCount)
	}
	if s.jobs == nil {
		s.jobs = jobmemory.New()
	}
	if s.nodes == nil {
		s.nodes = nodememory.New()
	}
	if s.queue == nil {
		config := memory.DefaultConfig()
		config.QueueBuffer = s.config.QueueBuffer
		config.MaxRetries = 0
		s.queue = memory.NewQueue[Ticket](config)
	}
	if s.logger == nil {
		s.logger = telemetry.Nop()
	}
	s.logger = s.logger.NewComponentLogger("scheduler")
	return s, nil
}

// Start begins the workers
func (s *Service) Start(ctx context.Context) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	if s.stopped {
		return ErrStopped
	}
	if s.started {
		return nil
	}
	s.started = true
	for i := 0; i < s.config.WorkerCount; i++ {
		workerCtx, cancel := context.WithCancel(ctx)
		w := &worker{id: i, service: s, ctx: workerCtx, cancelFn: cancel}
		s.workers = append(s.workers, w)
		s.workerWg.Add(1)
		go w.run()
	}
	return nil
}

// Submit queues the job and returns a continuation that waits for its completion.
// A calculation node with the job node id is created in waiting state.
func (s *Service) Submit(ctx context.Context, job *execution.Job) (execution.Wait, error) {
	service := s.actions.Lookup(job.Service)
	if service == nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownService, job.Service)
	}
	signature := service.Methods().Lookup(job.Method)
	if signature == nil {
		return nil, types.NewMethodNotFoundError(job.Method)
	}
	if !signature.Accepts(job.Input) {
		return nil, types.NewInvalidInputError(job.Input)
	}
	node := execution.NewNodeWithID(job.NodeID, execution.NodeKindCalculation, job.Service, job.ParentID, job.Label)
	if err := node.Transition(execution.NodeStateWaiting); err != nil {
		return nil, err
	}
	if err := s.nodes.Save(ctx, node); err != nil {
		return nil, fmt.Errorf("failed to save node %v: %w", node.ID, err)
	}
	if err := s.jobs.Save(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save job %v: %w", job.ID, err)
	}
	e := &entry{job: job, node: node, done: make(chan struct{})}
	s.mux.Lock()
	if s.stopped {
		s.mux.Unlock()
		return nil, ErrStopped
	}
	s.active[job.ID] = e
	s.mux.Unlock()
	s.metrics.AddQueued(1)
	if err := s.queue.Publish(ctx, &Ticket{JobID: job.ID}); err != nil {
		s.mux.Lock()
		delete(s.active, job.ID)
		s.mux.Unlock()
		s.metrics.AddQueued(-1)
		return nil, fmt.Errorf("failed to queue job %v: %w", job.ID, err)
	}
	s.logger.WithNode(node.ID).Debugf("queued %v.%v job %v", job.Service, job.Method, job.ID)
	return e.wait, nil
}

func (e *entry) wait(ctx context.Context, timeout time.Duration) (*execution.Job, error) {
	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}
	select {
	case <-e.done:
		return e.job.Clone(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer:
		return e.job.Clone(), ErrWaitTimeout
	}
}

// Kill stops a job; a queued job is finished as killed at once, a running one has its context cancelled
func (s *Service) Kill(ctx context.Context, jobID string) error {
	s.mux.Lock()
	e, ok := s.active[jobID]
	if !ok {
		s.mux.Unlock()
		job, err := s.jobs.Load(ctx, jobID)
		if err != nil {
			return err
		}
		if state, _ := job.Snapshot(); !state.IsTerminal() {
			return fmt.Errorf("job %v is not active", jobID)
		}
		return nil
	}
	e.job.RequestKill()
	if e.running {
		cancel := e.cancel
		s.mux.Unlock()
		cancel()
		return nil
	}
	delete(s.active, jobID)
	s.mux.Unlock()
	s.metrics.AddQueued(-1)
	s.finishKilled(ctx, e)
	return nil
}

// Job returns a job snapshot
func (s *Service) Job(ctx context.Context, jobID string) (*execution.Job, error) {
	return s.jobs.Load(ctx, jobID)
}

// Jobs returns job snapshots matching parameters
func (s *Service) Jobs(ctx context.Context, parameters ...*dao.Parameter) ([]*execution.Job, error) {
	return s.jobs.List(ctx, parameters...)
}

// FailedJobs returns ids of jobs that ended with an error, when the queue keeps dead letters
func (s *Service) FailedJobs() []string {
	deadLetters, ok := s.queue.(messaging.DeadLetters[Ticket])
	if !ok {
		return nil
	}
	var ret []string
	for _, ticket := range deadLetters.DeadLetters() {
		ret = append(ret, ticket.JobID)
	}
	return ret
}

// Shutdown stops workers; jobs still queued or running are finished as killed
func (s *Service) Shutdown() {
	s.mux.Lock()
	if s.stopped {
		s.mux.Unlock()
		return
	}
	s.stopped = true
	close(s.shutdownCh)
	workers := s.workers
	s.mux.Unlock()
	for _, w := range workers {
		w.cancelFn()
	}
	s.workerWg.Wait()
	_ = s.queue.Close()

	s.mux.Lock()
	remaining := make([]*entry, 0, len(s.active))
	for id, e := range s.active {
		remaining = append(remaining, e)
		delete(s.active, id)
	}
	s.mux.Unlock()
	for _, e := range remaining {
		e.job.RequestKill()
		s.metrics.AddQueued(-1)
		s.finishKilled(context.Background(), e)
	}
}

func (w *worker) run() {
	defer w.service.workerWg.Done()
	for {
		msg, err := w.service.queue.Consume(w.ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, messaging.ErrClosed) || w.ctx.Err() != nil {
				return
			}
			select {
			case <-time.After(100 * time.Millisecond):
			case <-w.ctx.Done():
				return
			}
			continue
		}
		if msg == nil {
			continue
		}
		if pErr := w.service.processMessage(w.ctx, msg); pErr != nil {
			w.service.logger.WithError(pErr).Errorf("worker %d: failed to process message", w.id)
		}
	}
}

// claim marks the entry running and returns a job context; nil when the job is no longer active
func (s *Service) claim(ctx context.Context, jobID string) (*entry, context.Context) {
	s.mux.Lock()
	defer s.mux.Unlock()
	e, ok := s.active[jobID]
	if !ok {
		return nil, nil
	}
	jobCtx, cancel := context.WithCancel(ctx)
	e.running = true
	e.cancel = cancel
	return e, jobCtx
}

func (s *Service) processMessage(ctx context.Context, message messaging.Message[Ticket]) error {
	ticket := message.T()
	e, jobCtx := s.claim(ctx, ticket.JobID)
	if e == nil {
		return message.Ack()
	}
	defer e.cancel()
	job, node := e.job, e.node
	logger := s.logger.WithNode(node.ID)
	if _, killRequested := job.Snapshot(); killRequested {
		s.release(job.ID)
		s.metrics.AddQueued(-1)
		s.finishKilled(ctx, e)
		return message.Ack()
	}

	job.Start()
	s.metrics.AddQueued(-1)
	s.metrics.AddRunning(1)
	if err := node.Transition(execution.NodeStateRunning); err != nil {
		logger.WithError(err).Warnf("unexpected node state")
	}
	s.save(ctx, e)

	output, err := s.execute(jobCtx, job)
	s.metrics.AddRunning(-1)

	if _, killRequested := job.Snapshot(); killRequested || ctx.Err() != nil {
		s.release(job.ID)
		s.finishKilled(context.Background(), e)
		return message.Ack()
	}
	if err != nil {
		retry, delay := s.config.Retry.shouldRetry(job.Attempts)
		if retry && !errors.Is(err, types.ErrInvalidInput) {
			job.Retry(err, delay)
			_ = node.Transition(execution.NodeStateWaiting)
			logger.Warnf("%s", node.AddReport("attempt %d of %v failed: %v, retrying in %s", job.Attempts, job.Service, err, delay))
			s.save(ctx, e)
			s.mux.Lock()
			e.running = false
			s.mux.Unlock()
			s.metrics.AddQueued(1)
			if pErr := s.queue.PublishAfter(ctx, ticket, delay); pErr == nil {
				return message.Ack()
			}
			s.metrics.AddQueued(-1)
		}
		s.release(job.ID)
		job.Fail(err)
		_ = node.Except(err)
		s.save(context.Background(), e)
		s.metrics.RecordCalculation(job.Service, string(execution.NodeStateExcepted), job.Elapsed())
		logger.WithError(err).Errorf("%v job %v failed", job.Service, job.ID)
		nackErr := message.Nack(err)
		close(e.done)
		return nackErr
	}

	s.release(job.ID)
	job.Complete(output)
	if summarizer, ok := output.(types.Summarizer); ok {
		for k, v := range summarizer.Summary() {
			node.SetOutput(k, v)
		}
	}
	if coder, ok := output.(types.Coder); ok {
		_ = node.Finish(coder.Code())
	} else {
		_ = node.Finish(nil)
	}
	s.save(ctx, e)
	s.metrics.RecordCalculation(job.Service, string(execution.NodeStateFinished), job.Elapsed())
	close(e.done)
	return message.Ack()
}

func (s *Service) execute(ctx context.Context, job *execution.Job) (interface{}, error) {
	service := s.actions.Lookup(job.Service)
	if service == nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownService, job.Service)
	}
	signature := service.Methods().Lookup(job.Method)
	if signature == nil {
		return nil, types.NewMethodNotFoundError(job.Method)
	}
	executable, err := service.Method(job.Method)
	if err != nil {
		return nil, err
	}
	output := signature.NewOutput()
	ctx = execution.WithJob(ctx, job)
	if err = executable(ctx, job.Input, output); err != nil {
		return nil, err
	}
	return output, nil
}

func (s *Service) release(jobID string) {
	s.mux.Lock()
	delete(s.active, jobID)
	s.mux.Unlock()
}

func (s *Service) finishKilled(ctx context.Context, e *entry) {
	e.job.Kill()
	if err := e.node.Kill(); err != nil {
		s.logger.WithError(err).Warnf("failed to kill node %v", e.node.ID)
	}
	s.save(ctx, e)
	s.metrics.RecordCalculation(e.job.Service, string(execution.NodeStateKilled), e.job.Elapsed())
	close(e.done)
}

func (s *Service) save(ctx context.Context, e *entry) {
	if err := s.jobs.Save(ctx, e.job); err != nil {
		s.logger.WithError(err).Errorf("failed to save job %v", e.job.ID)
	}
	if err := s.nodes.Save(ctx, e.node); err != nil {
		s.logger.WithError(err).Errorf("failed to save node %v", e.node.ID)
	}
}
