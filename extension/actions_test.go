package extension

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/fleurflow/model/types"
)

type echo struct{}

func (e *echo) Name() string { return "echo" }

func (e *echo) Methods() types.Signatures {
	return []types.Signature{{Name: "run", Input: reflect.TypeOf(""), Output: reflect.TypeOf("")}}
}

func (e *echo) Method(name string) (types.Executable, error) {
	if name != "run" {
		return nil, types.NewMethodNotFoundError(name)
	}
	return func(ctx context.Context, input, output interface{}) error {
		*(output.(*string)) = input.(string)
		return nil
	}, nil
}

func TestActions(t *testing.T) {
	var wrapped []string
	counting := func(base types.Service) types.Service {
		wrapped = append(wrapped, base.Name())
		return base
	}
	actions := NewActions(counting, Traced)
	actions.Register(&echo{})
	assert.Equal(t, []string{"echo"}, wrapped)
	assert.Equal(t, []string{"echo"}, actions.Names())
	assert.Nil(t, actions.Lookup("fleur.fleur"))

	service := actions.Lookup("echo")
	require.NotNil(t, service)
	executable, err := service.Method("run")
	require.NoError(t, err)
	var output string
	require.NoError(t, executable(context.Background(), "inp.xml", &output))
	assert.Equal(t, "inp.xml", output)
	_, err = service.Method("kill")
	assert.Error(t, err)
}
