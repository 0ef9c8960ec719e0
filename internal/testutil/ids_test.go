package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedIDGenerator_ReturnsSameID(t *testing.T) {
	gen := NewFixedIDGenerator("capture-123")

	assert.Equal(t, "capture-123", gen.Generate())
	assert.Equal(t, "capture-123", gen.Generate())
}

func TestFixedIDGenerator_EmptyDefault(t *testing.T) {
	assert.Equal(t, "capture-default", NewFixedIDGenerator("").Generate())
}

func TestSequenceIDGenerator(t *testing.T) {
	var gen SequenceIDGenerator

	assert.Equal(t, "capture-1", gen.Generate())
	assert.Equal(t, "capture-2", gen.Generate())
}
