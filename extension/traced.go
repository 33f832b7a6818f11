package extension

import (
	"context"

	"github.com/viant/fleurflow/model/types"
	"github.com/viant/fleurflow/tracing"
)

type traced struct {
	types.Service
}

// Method returns the base executable wrapped in a span
func (t *traced) Method(name string) (types.Executable, error) {
	executable, err := t.Service.Method(name)
	if err != nil {
		return nil, err
	}
	spanName := t.Service.Name() + "." + name
	return func(ctx context.Context, input, output interface{}) (err error) {
		ctx, span := tracing.StartSpan(ctx, spanName, "CLIENT")
		defer func() { tracing.EndSpan(span, err) }()
		return executable(ctx, input, output)
	}, nil
}

// Traced is a proxy starting a span around every method call
func Traced(base types.Service) types.Service {
	return &traced{Service: base}
}
