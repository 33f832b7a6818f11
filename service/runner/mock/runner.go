// Package mock provides a scripted runner used by calculation and workchain tests.
package mock

import (
	"context"
	"sync"

	"github.com/viant/fleurflow/service/runner"
)

// Handler produces a command result, typically writing canned output files into the workdir
type Handler func(ctx context.Context, command *runner.Command) (*runner.Result, error)

// Runner records commands and delegates to handler
type Runner struct {
	Handler  Handler
	commands []*runner.Command
	mux      sync.Mutex
}

// New creates a mock runner
func New(handler Handler) *Runner {
	return &Runner{Handler: handler}
}

// Run records the command and invokes handler
func (r *Runner) Run(ctx context.Context, command *runner.Command) (*runner.Result, error) {
	r.mux.Lock()
	r.commands = append(r.commands, command)
	r.mux.Unlock()
	if r.Handler == nil {
		return &runner.Result{}, nil
	}
	return r.Handler(ctx, command)
}

// Commands returns recorded commands
func (r *Runner) Commands() []*runner.Command {
	r.mux.Lock()
	defer r.mux.Unlock()
	return append([]*runner.Command(nil), r.commands...)
}

// Close does nothing
func (r *Runner) Close() error { return nil }

var _ runner.Runner = (*Runner)(nil)
