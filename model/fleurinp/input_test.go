package fleurinp

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
)

func loadDeck(t *testing.T) *Input {
	data, err := os.ReadFile("testdata/inp.xml")
	require.NoError(t, err)
	input, err := Parse(data)
	require.NoError(t, err)
	return input
}

func TestInput_Accessors(t *testing.T) {
	input := loadDeck(t)
	itmax, err := input.Itmax()
	assert.NoError(t, err)
	assert.Equal(t, 15, itmax)
	distance, err := input.MinDistance()
	assert.NoError(t, err)
	assert.InDelta(t, 0.00001, distance, 1e-12)
	assert.Equal(t, "Anderson", input.Mixing())
	assert.False(t, input.HasLDAU())
	assert.False(t, input.IsNoco())
	assert.False(t, input.IsRelax())
	assert.Equal(t, "Fe", input.Formula())
	_, err = input.Float(PathScfLoop, "unknown")
	assert.True(t, errors.Is(err, ErrMissingAttribute))
}

func TestInput_Query(t *testing.T) {
	var testCases = []struct {
		description string
		path        string
		expectLen   int
		expectErr   bool
	}{
		{description: "relative", path: "calculationSetup/scfLoop", expectLen: 1},
		{description: "rooted", path: "/fleurInput/calculationSetup/scfLoop", expectLen: 1},
		{description: "no match", path: "cell/filmLattice"},
		{description: "unclosed filter", path: "calculationSetup[", expectErr: true},
	}
	input := loadDeck(t)
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			elements, err := input.Query(testCase.path)
			if testCase.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, elements, testCase.expectLen)
		})
	}
}

func TestInput_Validate(t *testing.T) {
	var testCases = []struct {
		description string
		mutate      func(input *Input)
		expectErr   bool
	}{
		{description: "valid", mutate: func(input *Input) {}},
		{
			description: "zero itmax",
			mutate:      func(input *Input) { input.Find(PathScfLoop).CreateAttr("itmax", "0") },
			expectErr:   true,
		},
		{
			description: "unknown mixing",
			mutate:      func(input *Input) { input.Find(PathScfLoop).CreateAttr("imix", "magic") },
			expectErr:   true,
		},
		{
			description: "unknown species",
			mutate:      func(input *Input) { input.Find(PathAtomGroup).CreateAttr("species", "W-1") },
			expectErr:   true,
		},
		{
			description: "no scf loop",
			mutate: func(input *Input) {
				setup := input.Find(PathCalculationSetup)
				setup.RemoveChild(input.Find(PathScfLoop))
			},
			expectErr: true,
		},
		{
			description: "invalid spex",
			mutate:      func(input *Input) { input.Find(PathExpertModes).CreateAttr("spex", "7") },
			expectErr:   true,
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			input := loadDeck(t)
			testCase.mutate(input)
			err := input.Validate()
			if !testCase.expectErr {
				assert.NoError(t, err)
				return
			}
			var validationErr *ValidationError
			assert.True(t, errors.As(err, &validationErr))
		})
	}
}

func TestInput_CloneAndJSON(t *testing.T) {
	input := loadDeck(t)
	cloned := input.Clone()
	cloned.Find(PathScfLoop).CreateAttr("itmax", "3")
	itmax, _ := input.Itmax()
	assert.Equal(t, 15, itmax)

	data, err := json.Marshal(cloned)
	require.NoError(t, err)
	decoded := &Input{}
	require.NoError(t, json.Unmarshal(data, decoded))
	itmax, _ = decoded.Itmax()
	assert.Equal(t, 3, itmax)
}

func TestInput_UploadLoad(t *testing.T) {
	ctx := context.Background()
	fs := afs.New()
	URL := "mem://localhost/fleurinp/inp.xml"
	input := loadDeck(t)
	require.NoError(t, input.Upload(ctx, fs, URL))
	loaded, err := Load(ctx, fs, URL)
	require.NoError(t, err)
	assert.Equal(t, "Fe", loaded.Formula())
	assert.NoError(t, loaded.Validate())
}

func TestParseValues(t *testing.T) {
	value, err := ParseFloat("1.5d-3")
	assert.NoError(t, err)
	assert.InDelta(t, 0.0015, value, 1e-12)
	flag, err := ParseBool("T")
	assert.NoError(t, err)
	assert.True(t, flag)
	_, err = ParseBool("yes")
	assert.Error(t, err)
	assert.Equal(t, "F", FormatValue(false))
	assert.Equal(t, "0.00002", FormatValue(0.00002))
	assert.Equal(t, "30", FormatValue(30))
}
