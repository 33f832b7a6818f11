// Package calc defines calculation resources and remote folders.
package calc

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Resources represents scheduler resources of a calculation
type Resources struct {
	NumMachines           int `json:"num_machines" yaml:"num_machines" validate:"gte=1"`
	NumMPIProcsPerMachine int `json:"num_mpiprocs_per_machine,omitempty" yaml:"num_mpiprocs_per_machine,omitempty" validate:"gte=0"`
	NumCoresPerMPIProc    int `json:"num_cores_per_mpiproc,omitempty" yaml:"num_cores_per_mpiproc,omitempty" validate:"gte=0"`
}

// TotalMPIProcs returns total number of mpi processes
func (r *Resources) TotalMPIProcs() int {
	perMachine := r.NumMPIProcsPerMachine
	if perMachine == 0 {
		perMachine = 1
	}
	return r.NumMachines * perMachine
}

// Options represents calculation options
type Options struct {
	Resources           Resources         `json:"resources" yaml:"resources"`
	MaxWallclockSeconds int               `json:"max_wallclock_seconds" yaml:"max_wallclock_seconds" validate:"gte=60"`
	QueueName           string            `json:"queue_name,omitempty" yaml:"queue_name,omitempty"`
	WithMPI             bool              `json:"withmpi,omitempty" yaml:"withmpi,omitempty"`
	MPIRunCommand       string            `json:"mpirun_command,omitempty" yaml:"mpirun_command,omitempty"`
	Environment         map[string]string `json:"environment_variables,omitempty" yaml:"environment_variables,omitempty"`
	PrependText         string            `json:"prepend_text,omitempty" yaml:"prepend_text,omitempty"`
	AppendText          string            `json:"append_text,omitempty" yaml:"append_text,omitempty"`
}

// DefaultMPIRunCommand is used when options do not define one
const DefaultMPIRunCommand = "mpirun -np {tot_num_mpiprocs}"

// DefaultOptions returns single machine options with one hour wallclock
func DefaultOptions() *Options {
	return &Options{
		Resources:           Resources{NumMachines: 1, NumMPIProcsPerMachine: 1},
		MaxWallclockSeconds: 3600,
	}
}

// Validate checks options
func (o *Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("invalid calculation options: %w", err)
	}
	return nil
}

// Clone returns a deep copy
func (o *Options) Clone() *Options {
	if o == nil {
		return nil
	}
	ret := *o
	if o.Environment != nil {
		ret.Environment = make(map[string]string, len(o.Environment))
		for k, v := range o.Environment {
			ret.Environment[k] = v
		}
	}
	return &ret
}

// MPIPrefix returns the mpi launcher prefix or empty string
func (o *Options) MPIPrefix() string {
	if !o.WithMPI {
		return ""
	}
	command := o.MPIRunCommand
	if command == "" {
		command = DefaultMPIRunCommand
	}
	command = strings.ReplaceAll(command, "{tot_num_mpiprocs}", strconv.Itoa(o.Resources.TotalMPIProcs()))
	command = strings.ReplaceAll(command, "{num_machines}", strconv.Itoa(o.Resources.NumMachines))
	return command
}
