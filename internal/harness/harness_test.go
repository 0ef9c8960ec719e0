package harness

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tracegraph/internal/builder"
)

func loadTestScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return scenario
}

func TestRun_Scenarios(t *testing.T) {
	for _, name := range []string{"pubsub_basic", "lossy_capture", "intra_process", "timer_trace"} {
		t.Run(name, func(t *testing.T) {
			result, err := Run(loadTestScenario(t, name))
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Empty(t, result.Errors)
		})
	}
}

func TestRun_UsesFixedCaptureID(t *testing.T) {
	result, err := Run(loadTestScenario(t, "pubsub_basic"))
	require.NoError(t, err)

	assert.Equal(t, "capture-pubsub", result.Capture.ID)
	assert.Equal(t, "pubsub_basic", result.Capture.Name)
	assert.Equal(t, []string{"scenario:pubsub_basic"}, result.Capture.Sources)
	assert.Equal(t, 28, result.Capture.Records)
	assert.Equal(t, "capture-pubsub", result.Snapshot.CaptureID)
}

func TestRun_DiagnosticsRoundTripThroughStore(t *testing.T) {
	result, err := Run(loadTestScenario(t, "lossy_capture"))
	require.NoError(t, err)

	require.Len(t, result.Diagnostics, 3)
	assert.Equal(t, builder.CodeUpstreamDataLoss, result.Diagnostics[0].Code)
	assert.Equal(t, builder.CodeUnresolvedReference, result.Diagnostics[1].Code)
	assert.Equal(t, uint64(0xdead), result.Diagnostics[1].Handle)
	assert.Equal(t, builder.CodeIncompleteEvent, result.Diagnostics[2].Code)
	assert.Equal(t, int64(500), result.Diagnostics[2].Timestamp)
	assert.Equal(t, uint64(2), result.Snapshot.Discarded)
}

func TestRun_PassOverrides(t *testing.T) {
	off := false
	scenario := loadTestScenario(t, "pubsub_basic")
	scenario.Passes = &Passes{CallbackEvents: &off}
	scenario.Assertions = []Assertion{
		{Type: AssertEventCount, Kind: "callback", Count: 0},
		{Type: AssertEventCount, Kind: "publish", Count: 1},
		{Type: AssertTriggeredBy, Event: "subscription /chatter@1010", Trigger: "publish /chatter@996"},
		{Type: AssertTriggeredBy, Event: "publish /chatter@996", Trigger: ""},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_BadRecord(t *testing.T) {
	scenario := &Scenario{
		Name:        "bad",
		Description: "record without a timestamp",
		Records:     []map[string]any{{"_name": "ros2:rcl_init"}},
		Assertions:  []Assertion{{Type: AssertVerified}},
	}
	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "records[0]")
}

func TestRunDir(t *testing.T) {
	suite, err := RunDir(context.Background(), filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)

	assert.True(t, suite.Pass())
	assert.Equal(t, 4, suite.Passed)
	assert.Zero(t, suite.Failed)
	assert.Contains(t, suite.Results, "timer_trace")
}

func TestRunDir_Empty(t *testing.T) {
	suite, err := RunDir(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.True(t, suite.Pass())
	assert.Empty(t, suite.Results)
}
