package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden_PubSub(t *testing.T) {
	result, err := RunWithGolden(t, loadTestScenario(t, "pubsub_basic"))
	require.NoError(t, err)
	assert.True(t, result.Pass)
}

func TestRunWithGolden_LossyCapture(t *testing.T) {
	result, err := RunWithGolden(t, loadTestScenario(t, "lossy_capture"))
	require.NoError(t, err)
	assert.True(t, result.Pass)
}

func TestMarshalSnapshot_Deterministic(t *testing.T) {
	scenario := loadTestScenario(t, "pubsub_basic")

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	a, err := MarshalSnapshot(first.Snapshot)
	require.NoError(t, err)
	b, err := MarshalSnapshot(second.Snapshot)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}
