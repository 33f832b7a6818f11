// Package runner executes calculation command lines on the local machine or over ssh.
package runner

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/viant/fleurflow/model/code"
)

// Command represents a command line run in a working directory
type Command struct {
	Host    *code.Host
	Workdir string
	Env     map[string]string
	Line    string
	Timeout time.Duration
}

// Result represents command outcome
type Result struct {
	Stdout  string
	Status  int
	Elapsed time.Duration
}

// Runner runs commands
type Runner interface {
	Run(ctx context.Context, command *Command) (*Result, error)
	Close() error
}

// Script returns the command line wrapped in a subshell that enters the workdir and exports the environment
func (c *Command) Script() string {
	var parts []string
	if c.Workdir != "" {
		parts = append(parts, "cd "+quote(c.Workdir))
	}
	keys := make([]string, 0, len(c.Env))
	for k := range c.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("export %s=%s", k, quote(c.Env[k])))
	}
	parts = append(parts, c.Line)
	return "(" + strings.Join(parts, " && ") + ")"
}

func quote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", `'\''`) + "'"
}
