package scheduler

import (
	"context"
	"errors"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/fleurflow/extension"
	"github.com/viant/fleurflow/model/exitcode"
	"github.com/viant/fleurflow/model/types"
	"github.com/viant/fleurflow/runtime/execution"
	"github.com/viant/fleurflow/service/dao"
	nodememory "github.com/viant/fleurflow/service/dao/node/memory"
	"go.uber.org/goleak"
)

type request struct {
	Failures int
	Block    bool
	Invalid  bool
	Status   int
}

type response struct {
	ExitCode *exitcode.ExitCode
	Attempt  int
}

func (r *response) Code() *exitcode.ExitCode { return r.ExitCode }

func (r *response) Summary() map[string]interface{} {
	return map[string]interface{}{"attempt": r.Attempt}
}

type calculator struct {
	calls   int32
	started chan struct{}
}

func (c *calculator) Name() string { return "test.calc" }

func (c *calculator) Methods() types.Signatures {
	return []types.Signature{{Name: "run", Input: reflect.TypeOf(&request{}), Output: reflect.TypeOf(&response{})}}
}

func (c *calculator) Method(name string) (types.Executable, error) {
	if name != "run" {
		return nil, types.NewMethodNotFoundError(name)
	}
	return func(ctx context.Context, in, out interface{}) error {
		req, res := in.(*request), out.(*response)
		attempt := int(atomic.AddInt32(&c.calls, 1))
		if job := execution.ContextValue[*execution.Job](ctx); job == nil {
			return errors.New("job missing in context")
		}
		if req.Invalid {
			return types.InvalidInputf("bad request")
		}
		if attempt <= req.Failures {
			return errors.New("connection reset by peer")
		}
		if req.Block {
			if c.started != nil {
				close(c.started)
			}
			<-ctx.Done()
			return ctx.Err()
		}
		res.Attempt = attempt
		res.ExitCode = exitcode.OK
		if req.Status != 0 {
			res.ExitCode = &exitcode.ExitCode{Status: req.Status, Label: "ERROR"}
		}
		return nil
	}, nil
}

func newScheduler(t *testing.T, calc *calculator) (*Service, *nodememory.Service) {
	actions := extension.NewActions(extension.Traced)
	actions.Register(calc)
	config := DefaultConfig()
	config.WorkerCount = 2
	config.Retry = Retry{Type: "fixed", MaxRetries: 2, Delay: time.Millisecond}
	nodes := nodememory.New()
	srv, err := New(actions, WithConfig(config), WithNodeDAO(nodes))
	require.NoError(t, err)
	require.NoError(t, srv.Start(context.Background()))
	return srv, nodes
}

func TestService_Submit(t *testing.T) {
	defer goleak.VerifyNone(t)
	var testCases = []struct {
		description  string
		request      *request
		expectState  execution.JobState
		expectNode   execution.NodeState
		expectStatus int
		expectCalls  int32
		expectFailed bool
	}{
		{description: "completed", request: &request{}, expectState: execution.JobStateCompleted, expectNode: execution.NodeStateFinished, expectCalls: 1},
		{description: "exit code recorded", request: &request{Status: 302}, expectState: execution.JobStateCompleted, expectNode: execution.NodeStateFinished, expectStatus: 302, expectCalls: 1},
		{description: "transient failure retried", request: &request{Failures: 2}, expectState: execution.JobStateCompleted, expectNode: execution.NodeStateFinished, expectCalls: 3},
		{description: "retries exhausted", request: &request{Failures: 5}, expectState: execution.JobStateFailed, expectNode: execution.NodeStateExcepted, expectStatus: -1, expectCalls: 3, expectFailed: true},
		{description: "invalid input not retried", request: &request{Invalid: true}, expectState: execution.JobStateFailed, expectNode: execution.NodeStateExcepted, expectStatus: -1, expectCalls: 1, expectFailed: true},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			calc := &calculator{}
			srv, nodes := newScheduler(t, calc)
			defer srv.Shutdown()
			ctx := context.Background()
			job := execution.NewJob("scf-node", "test.calc", "run", testCase.request)
			wait, err := srv.Submit(ctx, job)
			require.NoError(t, err)
			done, err := wait(ctx, 5*time.Second)
			require.NoError(t, err)
			assert.Equal(t, testCase.expectState, done.State)
			assert.Equal(t, testCase.expectCalls, atomic.LoadInt32(&calc.calls))
			if testCase.expectFailed {
				assert.Equal(t, []string{job.ID}, srv.FailedJobs())
			} else {
				assert.Empty(t, srv.FailedJobs())
			}

			node, err := nodes.Load(ctx, job.NodeID)
			require.NoError(t, err)
			assert.Equal(t, testCase.expectNode, node.State)
			assert.Equal(t, "scf-node", node.ParentID)
			assert.Equal(t, testCase.expectStatus, node.ExitStatus())
			if testCase.expectState == execution.JobStateCompleted {
				assert.Equal(t, int(testCase.expectCalls), node.Outputs["attempt"])
				assert.IsType(t, &response{}, done.Output)
			}
			children, err := nodes.List(ctx, dao.NewParameter(dao.ParamParentID, "scf-node"))
			require.NoError(t, err)
			assert.Len(t, children, 1)
		})
	}
}

func TestService_SubmitInvalid(t *testing.T) {
	defer goleak.VerifyNone(t)
	srv, _ := newScheduler(t, &calculator{})
	defer srv.Shutdown()
	ctx := context.Background()
	_, err := srv.Submit(ctx, execution.NewJob("", "fleur.fleur", "run", &request{}))
	assert.True(t, errors.Is(err, ErrUnknownService))
	_, err = srv.Submit(ctx, execution.NewJob("", "test.calc", "stop", &request{}))
	assert.Error(t, err)
	_, err = srv.Submit(ctx, execution.NewJob("", "test.calc", "run", "inp.xml"))
	assert.True(t, errors.Is(err, types.ErrInvalidInput))
}

func TestService_KillRunning(t *testing.T) {
	defer goleak.VerifyNone(t)
	calc := &calculator{started: make(chan struct{})}
	srv, nodes := newScheduler(t, calc)
	defer srv.Shutdown()
	ctx := context.Background()
	job := execution.NewJob("", "test.calc", "run", &request{Block: true})
	wait, err := srv.Submit(ctx, job)
	require.NoError(t, err)
	select {
	case <-calc.started:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not start")
	}

	_, err = wait(ctx, 10*time.Millisecond)
	assert.True(t, errors.Is(err, ErrWaitTimeout))

	require.NoError(t, srv.Kill(ctx, job.ID))
	done, err := wait(ctx, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, execution.JobStateKilled, done.State)
	node, err := nodes.Load(ctx, job.NodeID)
	require.NoError(t, err)
	assert.Equal(t, execution.NodeStateKilled, node.State)
	assert.NoError(t, srv.Kill(ctx, job.ID), "killing a finished job is a no-op")
}

func TestService_KillQueued(t *testing.T) {
	defer goleak.VerifyNone(t)
	actions := extension.NewActions()
	actions.Register(&calculator{})
	srv, err := New(actions, WithWorkers(1))
	require.NoError(t, err)
	ctx := context.Background()
	job := execution.NewJob("", "test.calc", "run", &request{})
	wait, err := srv.Submit(ctx, job)
	require.NoError(t, err)
	require.NoError(t, srv.Kill(ctx, job.ID))
	done, err := wait(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, execution.JobStateKilled, done.State)

	require.NoError(t, srv.Start(ctx))
	srv.Shutdown()
	assert.True(t, errors.Is(srv.Start(ctx), ErrStopped))
}

func TestService_ShutdownReleasesWaiters(t *testing.T) {
	defer goleak.VerifyNone(t)
	calc := &calculator{started: make(chan struct{})}
	srv, _ := newScheduler(t, calc)
	ctx := context.Background()
	wait, err := srv.Submit(ctx, execution.NewJob("", "test.calc", "run", &request{Block: true}))
	require.NoError(t, err)
	<-calc.started
	srv.Shutdown()
	done, err := wait(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, execution.JobStateKilled, done.State)
}

func TestRetry_ShouldRetry(t *testing.T) {
	var testCases = []struct {
		description string
		retry       Retry
		attempts    int
		expect      bool
		expectDelay time.Duration
	}{
		{description: "fixed", retry: Retry{Type: "fixed", MaxRetries: 2, Delay: time.Second}, attempts: 1, expect: true, expectDelay: time.Second},
		{description: "exhausted", retry: Retry{Type: "fixed", MaxRetries: 2, Delay: time.Second}, attempts: 3},
		{description: "none", retry: Retry{Type: "none", MaxRetries: 2}, attempts: 1},
		{description: "exponential", retry: Retry{Type: "exponential", MaxRetries: 5, Delay: time.Second, Multiplier: 3}, attempts: 3, expect: true, expectDelay: 9 * time.Second},
		{description: "exponential capped", retry: Retry{Type: "exponential", MaxRetries: 5, Delay: time.Second, MaxDelay: 3 * time.Second}, attempts: 4, expect: true, expectDelay: 3 * time.Second},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			retry, delay := testCase.retry.shouldRetry(testCase.attempts)
			assert.Equal(t, testCase.expect, retry)
			assert.Equal(t, testCase.expectDelay, delay)
		})
	}
}
