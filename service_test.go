package fleurflow_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
	"github.com/viant/fleurflow"
	"github.com/viant/fleurflow/model/code"
	"github.com/viant/fleurflow/model/exitcode"
	"github.com/viant/fleurflow/model/fleurinp"
	"github.com/viant/fleurflow/runtime/execution"
	"github.com/viant/fleurflow/service/calculation/fleur"
	"github.com/viant/fleurflow/service/dao"
	"github.com/viant/fleurflow/service/runner"
	"github.com/viant/fleurflow/service/runner/mock"
	"github.com/viant/fleurflow/service/scf"
	"github.com/viant/fleurflow/service/scheduler"
	"github.com/viant/fleurflow/telemetry"
)

const convergedOutXML = `<?xml version="1.0" encoding="UTF-8" standalone="no"?>
<fleurOutput fleurOutputVersion="0.34">
<startDateAndTime date="2021/03/05" time="10:00:00" zone="+0100"/>
<scfLoop>
<iteration numberForCurrentRun="1" overallNumber="1">
<totalEnergy value="-2541.0100000000" units="Htr"/>
<densityConvergence units="me/bohr^3"><chargeDensity spin="1" distance="0.0000100000"/><overallChargeDensity distance="0.0000100000"/></densityConvergence>
</iteration>
</scfLoop>
<endDateAndTime date="2021/03/05" time="10:00:30" zone="+0100"/>
</fleurOutput>
`

func writeOutXML(fs afs.Service) mock.Handler {
	return func(ctx context.Context, command *runner.Command) (*runner.Result, error) {
		URL := url.Join("mem://localhost"+command.Workdir, "out.xml")
		if err := fs.Upload(ctx, URL, file.DefaultFileOsMode, bytes.NewReader([]byte(convergedOutXML))); err != nil {
			return nil, err
		}
		return &runner.Result{Elapsed: time.Second}, nil
	}
}

func blocking(started chan struct{}) mock.Handler {
	return func(ctx context.Context, command *runner.Command) (*runner.Result, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}
}

func newService(t *testing.T, config *fleurflow.Config, handler func(fs afs.Service) mock.Handler) *fleurflow.Service {
	fs := afs.New()
	if config == nil {
		config = fleurflow.DefaultConfig()
	}
	config.WorkURL = "mem://localhost/fleurflow-test"
	srv, err := fleurflow.New(context.Background(),
		fleurflow.WithConfig(config),
		fleurflow.WithFileSystem(fs),
		fleurflow.WithLogger(telemetry.Nop()),
		fleurflow.WithRunner(mock.New(handler(fs))))
	require.NoError(t, err)
	require.NoError(t, srv.Runtime().Start(context.Background()))
	t.Cleanup(func() { _ = srv.Runtime().Shutdown(context.Background()) })
	return srv
}

func scfInput(t *testing.T) *scf.Input {
	data, err := os.ReadFile("testdata/inp.xml")
	require.NoError(t, err)
	deck, err := fleurinp.Parse(data)
	require.NoError(t, err)
	return &scf.Input{
		FleurCode:  &code.Code{Label: "fleur", Plugin: code.PluginFleur, Executable: "fleur"},
		FleurInput: deck,
		Label:      "Fe bcc",
	}
}

func TestRuntime_SubmitSCF(t *testing.T) {
	var testCases = []struct {
		description string
		store       fleurflow.StoreConfig
	}{
		{description: "memory store", store: fleurflow.StoreConfig{Kind: fleurflow.StoreMemory}},
		{description: "sqlite store", store: fleurflow.StoreConfig{Kind: fleurflow.StoreSQLite, URL: ":memory:"}},
		{description: "fs store", store: fleurflow.StoreConfig{Kind: fleurflow.StoreFS, URL: "mem://localhost/fleurflow-nodes"}},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			config := fleurflow.DefaultConfig()
			config.Store = testCase.store
			srv := newService(t, config, writeOutXML)
			rt := srv.Runtime()
			ctx := context.Background()

			node, wait, err := rt.SubmitSCF(ctx, scfInput(t))
			require.NoError(t, err)
			output, err := wait(ctx, time.Minute)
			require.NoError(t, err)
			assert.Equal(t, exitcode.OK, output.ExitCode)
			assert.True(t, output.Result.Converged)
			assert.Equal(t, 1, output.Result.IterationsTotal)

			stored, err := rt.Node(ctx, node.ID)
			require.NoError(t, err)
			assert.Equal(t, execution.NodeStateFinished, stored.State)
			assert.Equal(t, 0, stored.ExitStatus())
			assert.Equal(t, "Fe bcc", stored.Label)

			children, err := rt.Children(ctx, node.ID)
			require.NoError(t, err)
			require.Len(t, children, 1)
			calculations, err := rt.Children(ctx, children[0].ID)
			require.NoError(t, err)
			require.Len(t, calculations, 1)
			assert.Equal(t, fleur.Name, calculations[0].Type)

			_, running := rt.Progress(node.ID)
			assert.False(t, running)
			assert.True(t, errors.Is(rt.Kill(ctx, node.ID), fleurflow.ErrNotRunning))
		})
	}
}

func TestRuntime_Kill(t *testing.T) {
	started := make(chan struct{})
	srv := newService(t, nil, func(afs.Service) mock.Handler { return blocking(started) })
	rt := srv.Runtime()
	ctx := context.Background()

	node, wait, err := rt.SubmitSCF(ctx, scfInput(t))
	require.NoError(t, err)
	<-started
	snapshot, running := rt.Progress(node.ID)
	require.True(t, running)
	assert.Equal(t, 1, snapshot.Submitted)

	require.NoError(t, rt.Kill(ctx, node.ID))
	_, err = wait(ctx, time.Minute)
	assert.True(t, errors.Is(err, context.Canceled), err)

	killed, err := rt.Nodes(ctx, dao.NewParameter(dao.ParamState, string(execution.NodeStateKilled)))
	require.NoError(t, err)
	assert.Len(t, killed, 3)
}

func delayed(delay time.Duration) func(fs afs.Service) mock.Handler {
	return func(fs afs.Service) mock.Handler {
		write := writeOutXML(fs)
		return func(ctx context.Context, command *runner.Command) (*runner.Result, error) {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			return write(ctx, command)
		}
	}
}

func TestRuntime_SubmitSCFWait(t *testing.T) {
	var testCases = []struct {
		description string
		delay       time.Duration
		timeout     time.Duration
		expectErr   error
	}{
		{description: "zero timeout waits for completion", delay: 50 * time.Millisecond},
		{description: "negative timeout waits for completion", delay: 50 * time.Millisecond, timeout: -time.Second},
		{description: "timeout elapses first", delay: time.Minute, timeout: 20 * time.Millisecond, expectErr: scheduler.ErrWaitTimeout},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			rt := newService(t, nil, delayed(testCase.delay)).Runtime()
			ctx := context.Background()
			node, wait, err := rt.SubmitSCF(ctx, scfInput(t))
			require.NoError(t, err)
			output, err := wait(ctx, testCase.timeout)
			if testCase.expectErr != nil {
				assert.True(t, errors.Is(err, testCase.expectErr), err)
				require.NoError(t, rt.Kill(ctx, node.ID))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, exitcode.OK, output.ExitCode)
		})
	}
}

func TestRuntime_SubmitBeforeStart(t *testing.T) {
	srv, err := fleurflow.New(context.Background(), fleurflow.WithLogger(telemetry.Nop()), fleurflow.WithRunner(mock.New(nil)))
	require.NoError(t, err)
	_, _, err = srv.Runtime().SubmitSCF(context.Background(), scfInput(t))
	assert.True(t, errors.Is(err, fleurflow.ErrNotStarted))
}

func TestRuntime_RunCalculationOnce(t *testing.T) {
	srv := newService(t, nil, writeOutXML)
	input := scfInput(t)
	output, err := srv.Runtime().RunCalculationOnce(context.Background(), fleur.Name, "run", &fleur.Input{Code: input.FleurCode, FleurInput: input.FleurInput})
	require.NoError(t, err)
	calculation, ok := output.(*fleur.Output)
	require.True(t, ok)
	assert.Equal(t, exitcode.OK, calculation.ExitCode)
	assert.True(t, calculation.Result.Finished)

	_, err = srv.Runtime().RunCalculationOnce(context.Background(), "fleur.unknown", "run", nil)
	assert.Error(t, err)
}
