package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/fleurflow/runtime/execution"
	"github.com/viant/fleurflow/service/dao"
)

func TestService(t *testing.T) {
	ctx := context.Background()
	srv := New()
	scf := execution.NewNode(execution.NodeKindWorkchain, "fleur.scf", "", "Fe")
	calc := execution.NewNode(execution.NodeKindCalculation, "fleur.fleur", scf.ID, "")
	require.NoError(t, srv.Save(ctx, scf))
	require.NoError(t, srv.Save(ctx, calc))

	require.NoError(t, calc.Transition(execution.NodeStateRunning))
	loaded, err := srv.Load(ctx, calc.ID)
	require.NoError(t, err)
	assert.Equal(t, execution.NodeStateCreated, loaded.State, "store keeps a copy")

	require.NoError(t, srv.Save(ctx, calc))
	children, err := srv.List(ctx, dao.NewParameter(dao.ParamParentID, scf.ID))
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, execution.NodeStateRunning, children[0].State)

	all, err := srv.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, srv.Delete(ctx, scf.ID))
	_, err = srv.Load(ctx, scf.ID)
	assert.True(t, errors.Is(err, dao.ErrNotFound))
	assert.True(t, errors.Is(srv.Save(ctx, nil), dao.ErrNilEntity))
	assert.True(t, errors.Is(srv.Delete(ctx, ""), dao.ErrInvalidID))
}
