package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewScanner(t *testing.T) {
	s, err := NewScanner("")
	require.NoError(t, err)
	assert.IsType(t, &LineScanner{}, s)

	_, err = NewScanner("regex")
	assert.Error(t, err)
}
