package fs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
	"github.com/viant/fleurflow/model/exitcode"
	"github.com/viant/fleurflow/runtime/execution"
	"github.com/viant/fleurflow/service/dao"
)

func TestService(t *testing.T) {
	ctx := context.Background()
	srv, err := New(ctx, "mem://localhost/fleurflow/nodes", afs.New(), nil)
	require.NoError(t, err)

	scf := execution.NewNode(execution.NodeKindWorkchain, "fleur.scf", "", "Fe")
	require.NoError(t, scf.Transition(execution.NodeStateRunning))
	scf.SetInput("mode", "density")
	scf.AddReport("submitting fleur calculation %d", 1)
	require.NoError(t, scf.Finish(exitcode.DidNotConverge))
	require.NoError(t, srv.Save(ctx, scf))

	calc := execution.NewNode(execution.NodeKindCalculation, "fleur.fleur", scf.ID, "")
	require.NoError(t, srv.Save(ctx, calc))

	loaded, err := srv.Load(ctx, scf.ID)
	require.NoError(t, err)
	assert.Equal(t, execution.NodeStateFinished, loaded.State)
	assert.Equal(t, 362, loaded.ExitStatus())
	assert.Equal(t, "density", loaded.Inputs["mode"])
	require.Len(t, loaded.Reports, 1)

	var testCases = []struct {
		description string
		parameters  []*dao.Parameter
		expect      int
	}{
		{description: "all", expect: 2},
		{description: "by parent", parameters: []*dao.Parameter{dao.NewParameter(dao.ParamParentID, scf.ID)}, expect: 1},
		{description: "by kind", parameters: []*dao.Parameter{dao.NewParameter(dao.ParamKind, string(execution.NodeKindWorkchain))}, expect: 1},
		{description: "by states", parameters: []*dao.Parameter{dao.NewParameter(dao.ParamState, "running", "waiting")}, expect: 0},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			nodes, err := srv.List(ctx, testCase.parameters...)
			require.NoError(t, err)
			assert.Len(t, nodes, testCase.expect)
		})
	}

	require.NoError(t, srv.Delete(ctx, calc.ID))
	_, err = srv.Load(ctx, calc.ID)
	assert.True(t, errors.Is(err, dao.ErrNotFound))
	assert.True(t, errors.Is(srv.Delete(ctx, calc.ID), dao.ErrNotFound))
}
