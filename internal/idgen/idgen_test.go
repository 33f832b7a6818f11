package idgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	first, second := New(), New()
	assert.NotEqual(t, first, second)
	assert.Len(t, first, 36)
	assert.Equal(t, first[:8], Short(first))
	assert.Equal(t, "abc", Short("abc"))
}
