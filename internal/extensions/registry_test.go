package extensions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"relational"}, Names())
	assert.True(t, Known("relational"))
	assert.False(t, Known("service"))
}

func TestLookup(t *testing.T) {
	exts, err := Lookup([]string{"relational", "relational"})
	require.NoError(t, err)
	require.Len(t, exts, 1)
	assert.Equal(t, "relational", exts[0].Name())

	exts, err = Lookup(nil)
	require.NoError(t, err)
	assert.Empty(t, exts)

	_, err = Lookup([]string{"service"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown extension "service"`)
}
