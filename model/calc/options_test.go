package calc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOptions_MPIPrefix(t *testing.T) {
	var testCases = []struct {
		description string
		options     *Options
		expect      string
	}{
		{description: "serial", options: DefaultOptions(), expect: ""},
		{
			description: "default mpirun",
			options:     &Options{WithMPI: true, Resources: Resources{NumMachines: 2, NumMPIProcsPerMachine: 4}},
			expect:      "mpirun -np 8",
		},
		{
			description: "srun",
			options:     &Options{WithMPI: true, MPIRunCommand: "srun -N {num_machines}", Resources: Resources{NumMachines: 3}},
			expect:      "srun -N 3",
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			assert.Equal(t, testCase.expect, testCase.options.MPIPrefix())
		})
	}
}

func TestOptions_Validate(t *testing.T) {
	assert.NoError(t, DefaultOptions().Validate())
	assert.Error(t, (&Options{MaxWallclockSeconds: 3600}).Validate())
	assert.Error(t, (&Options{Resources: Resources{NumMachines: 1}, MaxWallclockSeconds: 10}).Validate())
}

func TestOptions_Clone(t *testing.T) {
	options := DefaultOptions()
	options.Environment = map[string]string{"OMP_NUM_THREADS": "4"}
	cloned := options.Clone()
	cloned.Environment["OMP_NUM_THREADS"] = "8"
	cloned.Resources.NumMachines = 4
	assert.Equal(t, "4", options.Environment["OMP_NUM_THREADS"])
	assert.Equal(t, 1, options.Resources.NumMachines)
}

func TestFolder_Join(t *testing.T) {
	folder := &Folder{URL: "file://localhost/tmp/calc/1"}
	assert.Equal(t, "file://localhost/tmp/calc/1/out.xml", folder.Join("out.xml"))
	assert.Equal(t, "/tmp/calc/1", folder.Path())
}
