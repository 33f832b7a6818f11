package base

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/fleurflow/model/calc"
	"github.com/viant/fleurflow/model/code"
	"github.com/viant/fleurflow/model/exitcode"
	"github.com/viant/fleurflow/model/outxml"
	"github.com/viant/fleurflow/runtime/execution"
	"github.com/viant/fleurflow/service/calculation/fleur"
	"github.com/viant/fleurflow/service/dao"
	nodememory "github.com/viant/fleurflow/service/dao/node/memory"
)

// step scripts one submission: a calculation output, or a terminal job state
type step struct {
	output *fleur.Output
	state  execution.JobState
	block  bool
}

type scripted struct {
	steps  []step
	jobs   []*execution.Job
	killed []string
	mux    sync.Mutex
}

func (s *scripted) Submit(ctx context.Context, job *execution.Job) (execution.Wait, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	if len(s.jobs) >= len(s.steps) {
		return nil, errors.New("unexpected submission")
	}
	current := s.steps[len(s.jobs)]
	s.jobs = append(s.jobs, job)
	job.Start()
	switch {
	case current.block:
		return func(ctx context.Context, timeout time.Duration) (*execution.Job, error) {
			s.mux.Lock()
			killed := len(s.killed) > 0
			s.mux.Unlock()
			if killed {
				job.Kill()
				return job.Clone(), nil
			}
			<-ctx.Done()
			return nil, ctx.Err()
		}, nil
	case current.state == execution.JobStateFailed:
		job.Fail(errors.New("ssh: handshake failed"))
	case current.state == execution.JobStateKilled:
		job.Kill()
	default:
		job.Complete(current.output)
	}
	return func(ctx context.Context, timeout time.Duration) (*execution.Job, error) {
		return job.Clone(), nil
	}, nil
}

func (s *scripted) Kill(ctx context.Context, jobID string) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.killed = append(s.killed, jobID)
	return nil
}

func failed(code *exitcode.ExitCode, iterations int) step {
	output := &fleur.Output{ExitCode: code, Folder: &calc.Folder{URL: "mem://localhost/work/fleur-" + code.Label}}
	if iterations > 0 {
		output.Result = &outxml.Result{}
		for i := 0; i < iterations; i++ {
			output.Result.Iterations = append(output.Result.Iterations, &outxml.Iteration{Number: i + 1})
		}
	}
	return step{output: output}
}

func succeeded() step {
	return step{output: &fleur.Output{ExitCode: exitcode.OK, Folder: &calc.Folder{URL: "mem://localhost/work/fleur-ok"}}}
}

func newInput(machines, perMachine, wallclock int) *Input {
	return &Input{
		Calculation: &fleur.Input{
			Code: &code.Code{Plugin: code.PluginFleur, Executable: "fleur"},
			Options: &calc.Options{
				Resources:           calc.Resources{NumMachines: machines, NumMPIProcsPerMachine: perMachine},
				MaxWallclockSeconds: wallclock,
			},
		},
		Limits: &Limits{MaxQueueNodes: 3, MaxQueueWallclockSec: 7200},
	}
}

func TestService_Run(t *testing.T) {
	var testCases = []struct {
		description      string
		input            *Input
		steps            []step
		expectCode       *exitcode.ExitCode
		expectIterations int
		expectHandlers   []string
		check            func(t *testing.T, jobs []*execution.Job)
	}{
		{
			description: "first run succeeds", input: newInput(1, 2, 3600),
			steps:      []step{succeeded()},
			expectCode: exitcode.OK, expectIterations: 1,
		},
		{
			description: "memory adds a machine", input: newInput(1, 2, 3600),
			steps:      []step{failed(exitcode.NotEnoughMemory, 0), succeeded()},
			expectCode: exitcode.OK, expectIterations: 2, expectHandlers: []string{"not_enough_memory"},
			check: func(t *testing.T, jobs []*execution.Job) {
				options := jobs[1].Input.(*fleur.Input).Options
				assert.Equal(t, 2, options.Resources.NumMachines)
				assert.Equal(t, 1, jobs[0].Input.(*fleur.Input).Options.Resources.NumMachines)
			},
		},
		{
			description: "memory beyond max_queue_nodes", input: newInput(3, 2, 3600),
			steps:      []step{failed(exitcode.NotEnoughMemory, 0)},
			expectCode: exitcode.MemoryIssueNoSolution, expectIterations: 1,
		},
		{
			description: "memory keeps mpi count even",
			input: func() *Input {
				input := newInput(2, 3, 3600)
				input.Limits.OnlyEvenMPI = true
				return input
			}(),
			steps:      []step{failed(exitcode.NotEnoughMemory, 0), succeeded()},
			expectCode: exitcode.OK, expectIterations: 2, expectHandlers: []string{"not_enough_memory"},
			check: func(t *testing.T, jobs []*execution.Job) {
				resources := jobs[1].Input.(*fleur.Input).Options.Resources
				assert.Equal(t, 3, resources.NumMachines)
				assert.Equal(t, 2, resources.NumMPIProcsPerMachine)
			},
		},
		{
			description: "time limit with iterations restarts from folder", input: newInput(1, 1, 3600),
			steps:      []step{failed(exitcode.TimeLimit, 4), succeeded()},
			expectCode: exitcode.OK, expectIterations: 2, expectHandlers: []string{"time_limit"},
			check: func(t *testing.T, jobs []*execution.Job) {
				restarted := jobs[1].Input.(*fleur.Input)
				require.NotNil(t, restarted.ParentFolder)
				assert.Equal(t, "mem://localhost/work/fleur-ERROR_TIME_LIMIT", restarted.ParentFolder.URL)
				assert.Equal(t, 3600, restarted.Options.MaxWallclockSeconds)
			},
		},
		{
			description: "time limit without iterations doubles wallclock", input: newInput(1, 1, 3000),
			steps:      []step{failed(exitcode.TimeLimit, 0), failed(exitcode.TimeLimit, 0), failed(exitcode.TimeLimit, 0)},
			expectCode: exitcode.TimeLimitNoSolution, expectIterations: 3, expectHandlers: []string{"time_limit", "time_limit"},
			check: func(t *testing.T, jobs []*execution.Job) {
				assert.Equal(t, 6000, jobs[1].Input.(*fleur.Input).Options.MaxWallclockSeconds)
				assert.Equal(t, 7200, jobs[2].Input.(*fleur.Input).Options.MaxWallclockSeconds)
			},
		},
		{
			description: "vacuum spill in relaxation", input: newInput(1, 1, 3600),
			steps:      []step{failed(exitcode.VacuumSpillRelax, 3)},
			expectCode: exitcode.VacuumSpillRelaxSCF, expectIterations: 1,
		},
		{
			description: "mt overlap in relaxation", input: newInput(1, 1, 3600),
			steps:      []step{failed(exitcode.MTRadiiRelax, 3)},
			expectCode: exitcode.MTRadiiRelaxSCF, expectIterations: 1,
		},
		{
			description: "generic failure is not restarted", input: newInput(1, 1, 3600),
			steps:      []step{failed(exitcode.FleurCalcFailed, 1)},
			expectCode: exitcode.SomethingWentWrong, expectIterations: 1,
		},
		{
			description: "excepted calculation restarted once", input: newInput(1, 1, 3600),
			steps:      []step{{state: execution.JobStateFailed}, succeeded()},
			expectCode: exitcode.OK, expectIterations: 2,
		},
		{
			description: "second consecutive unhandled failure", input: newInput(1, 1, 3600),
			steps:      []step{{state: execution.JobStateFailed}, {state: execution.JobStateFailed}},
			expectCode: exitcode.SecondUnhandledFailure, expectIterations: 2,
		},
		{
			description: "killed calculation", input: newInput(1, 1, 3600),
			steps:      []step{{state: execution.JobStateKilled}},
			expectCode: exitcode.SubProcessKilled, expectIterations: 1,
		},
		{
			description: "maximum iterations",
			input: func() *Input {
				input := newInput(1, 1, 3600)
				input.MaxIterations = 2
				return input
			}(),
			steps:      []step{failed(exitcode.TimeLimit, 2), failed(exitcode.TimeLimit, 2)},
			expectCode: exitcode.MaximumIterationsExceeded, expectIterations: 2, expectHandlers: []string{"time_limit", "time_limit"},
		},
		{
			description: "invalid resources", input: newInput(5, 1, 3600),
			expectCode: exitcode.InvalidResources,
		},
		{
			description: "wallclock below minimum", input: newInput(1, 1, 10),
			expectCode: exitcode.InvalidResources,
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			scheduler := &scripted{steps: testCase.steps}
			nodes := nodememory.New()
			srv := New(scheduler, nodes)
			parent := execution.NewNode(execution.NodeKindWorkchain, "fleur.scf", "", "")
			ctx := execution.WithNode(context.Background(), parent)

			output, err := srv.Run(ctx, testCase.input)
			require.NoError(t, err)
			assert.Equal(t, testCase.expectCode.Status, output.ExitCode.Status, output.ExitCode.String())
			assert.Equal(t, testCase.expectIterations, output.Iterations)
			assert.Equal(t, testCase.expectHandlers, output.Handlers)
			assert.Len(t, scheduler.jobs, len(testCase.steps))
			for _, job := range scheduler.jobs {
				assert.Equal(t, output.NodeID, job.ParentID)
				assert.Equal(t, fleur.Name, job.Service)
			}
			if testCase.check != nil {
				testCase.check(t, scheduler.jobs)
			}

			node, err := nodes.Load(ctx, output.NodeID)
			require.NoError(t, err)
			assert.Equal(t, execution.NodeStateFinished, node.State)
			assert.Equal(t, parent.ID, node.ParentID)
			assert.Equal(t, testCase.expectCode.Status, node.ExitStatus())
			children, err := nodes.List(ctx, dao.NewParameter(dao.ParamParentID, parent.ID))
			require.NoError(t, err)
			assert.Len(t, children, 1)
		})
	}
}

func TestService_RunCancelled(t *testing.T) {
	scheduler := &scripted{steps: []step{{block: true}}}
	nodes := nodememory.New()
	srv := New(scheduler, nodes, WithKillTimeout(time.Second))
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	output, err := srv.Run(ctx, newInput(1, 1, 3600))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Nil(t, output)
	require.Len(t, scheduler.jobs, 1)
	assert.Equal(t, []string{scheduler.jobs[0].ID}, scheduler.killed)

	killed, err := nodes.List(context.Background(), dao.NewParameter(dao.ParamState, string(execution.NodeStateKilled)))
	require.NoError(t, err)
	require.Len(t, killed, 1)
	assert.Equal(t, Name, killed[0].Type)
}

func TestService_RunInvalid(t *testing.T) {
	srv := New(&scripted{}, nil)
	_, err := srv.Run(context.Background(), &Input{})
	assert.Error(t, err)
}
