package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/fleurflow/model/exitcode"
	"github.com/viant/fleurflow/runtime/execution"
	"github.com/viant/fleurflow/service/dao"
)

func TestService(t *testing.T) {
	ctx := context.Background()
	srv, err := New(ctx, ":memory:")
	require.NoError(t, err)
	defer srv.Close()

	scf := execution.NewNode(execution.NodeKindWorkchain, "fleur.scf", "", "Fe")
	require.NoError(t, srv.Save(ctx, scf))
	calcs := []*execution.Node{
		execution.NewNode(execution.NodeKindCalculation, "fleur.inpgen", scf.ID, ""),
		execution.NewNode(execution.NodeKindCalculation, "fleur.fleur", scf.ID, ""),
	}
	for _, calc := range calcs {
		require.NoError(t, srv.Save(ctx, calc))
	}

	require.NoError(t, scf.Transition(execution.NodeStateRunning))
	require.NoError(t, scf.Finish(nil))
	require.NoError(t, srv.Save(ctx, scf))

	loaded, err := srv.Load(ctx, scf.ID)
	require.NoError(t, err)
	assert.True(t, loaded.IsFinishedOK())
	assert.Equal(t, exitcode.OK.Status, loaded.ExitStatus())

	var testCases = []struct {
		description string
		parameters  []*dao.Parameter
		expect      int
	}{
		{description: "all", expect: 3},
		{description: "children", parameters: []*dao.Parameter{dao.NewParameter(dao.ParamParentID, scf.ID)}, expect: 2},
		{description: "finished", parameters: []*dao.Parameter{dao.NewParameter(dao.ParamState, "finished")}, expect: 1},
		{description: "any of states", parameters: []*dao.Parameter{dao.NewParameter(dao.ParamState, "created", "finished")}, expect: 3},
		{description: "type", parameters: []*dao.Parameter{dao.NewParameter(dao.ParamType, "fleur.fleur")}, expect: 1},
		{description: "unknown ignored", parameters: []*dao.Parameter{dao.NewParameter("Color", "red")}, expect: 3},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			nodes, err := srv.List(ctx, testCase.parameters...)
			require.NoError(t, err)
			assert.Len(t, nodes, testCase.expect)
		})
	}

	require.NoError(t, srv.Delete(ctx, calcs[0].ID))
	_, err = srv.Load(ctx, calcs[0].ID)
	assert.True(t, errors.Is(err, dao.ErrNotFound))
	assert.True(t, errors.Is(srv.Delete(ctx, calcs[0].ID), dao.ErrNotFound))
}

func TestService_File(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nodes.db")
	srv, err := New(ctx, path)
	require.NoError(t, err)
	node := execution.NewNode(execution.NodeKindWorkchain, "fleur.scf", "", "")
	require.NoError(t, srv.Save(ctx, node))
	require.NoError(t, srv.Close())

	reopened, err := New(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()
	loaded, err := reopened.Load(ctx, node.ID)
	require.NoError(t, err)
	assert.Equal(t, node.ID, loaded.ID)
}
