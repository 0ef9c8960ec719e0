package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tracegraph/internal/builder"
	"github.com/roach88/tracegraph/internal/record"
)

func writeScenario(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	path := writeScenario(t, t.TempDir(), `
name: test_scenario
description: "Test scenario for validation"
discarded_events: 3
passes:
  callback_events: false
records:
  - {_name: "ros2:rcl_node_init", _timestamp: 1, node_handle: 0x10, node_name: talker, namespace: "/"}
assertions:
  - type: entity_count
    entity: nodes
    count: 1
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "Test scenario for validation", scenario.Description)
	assert.Equal(t, uint64(3), scenario.Discarded)
	assert.Len(t, scenario.Records, 1)
	assert.Equal(t, 16, scenario.Records[0]["node_handle"])
	require.NotNil(t, scenario.Passes)
	require.NotNil(t, scenario.Passes.CallbackEvents)
	assert.False(t, *scenario.Passes.CallbackEvents)
	assert.Equal(t, defaultCaptureID, scenario.captureID())

	c, err := scenario.Collection()
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, uint64(3), c.Discarded)
	h, ok := c.Get(record.RCLNodeInit)[0].Handle("node_handle")
	require.True(t, ok)
	assert.Equal(t, uint64(0x10), h)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := writeScenario(t, t.TempDir(), `
name: typo
description: "misspelled key"
record:
  - {_name: "ros2:rcl_init", _timestamp: 1}
assertions:
  - type: verified
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_ResolvesTraceRelativeToScenario(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "timer_trace.yaml"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("testdata", "scenarios", "traces", "timer.jsonl"), scenario.Trace)

	c, err := scenario.Collection()
	require.NoError(t, err)
	assert.Equal(t, 9, c.Len())
}

func TestValidateScenario(t *testing.T) {
	base := func() Scenario {
		return Scenario{
			Name:        "s",
			Description: "d",
			Records:     []map[string]any{{"_name": "ros2:rcl_init", "_timestamp": 1}},
			Assertions:  []Assertion{{Type: AssertVerified}},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Scenario)
		wantErr string
	}{
		{"valid", func(*Scenario) {}, ""},
		{"missing name", func(s *Scenario) { s.Name = "" }, "name is required"},
		{"missing description", func(s *Scenario) { s.Description = "" }, "description is required"},
		{"no records", func(s *Scenario) { s.Records = nil }, "records or trace is required"},
		{"missing trace file", func(s *Scenario) { s.Trace = "/nonexistent/trace.jsonl" }, "trace file not found"},
		{"no assertions", func(s *Scenario) { s.Assertions = nil }, "assertions list is required"},
		{"missing type", func(s *Scenario) { s.Assertions = []Assertion{{}} }, "type is required"},
		{"unknown type", func(s *Scenario) { s.Assertions = []Assertion{{Type: "final_state"}} }, "unknown assertion type"},
		{"negative count", func(s *Scenario) {
			s.Assertions = []Assertion{{Type: AssertEventCount, Kind: "publish", Count: -1}}
		}, "count must be non-negative"},
		{"event_count without kind", func(s *Scenario) {
			s.Assertions = []Assertion{{Type: AssertEventCount}}
		}, "kind is required"},
		{"unknown entity", func(s *Scenario) {
			s.Assertions = []Assertion{{Type: AssertEntityCount, Entity: "executors"}}
		}, "unknown entity"},
		{"diagnostic_count without code", func(s *Scenario) {
			s.Assertions = []Assertion{{Type: AssertDiagnosticCount}}
		}, "code is required"},
		{"triggered_by without event", func(s *Scenario) {
			s.Assertions = []Assertion{{Type: AssertTriggeredBy}}
		}, "event is required"},
		{"chain without expectations", func(s *Scenario) {
			s.Assertions = []Assertion{{Type: AssertChain, Event: "callback cb@1"}}
		}, "chain needs stages or latency"},
		{"stored with injected table", func(s *Scenario) {
			s.Assertions = []Assertion{{Type: AssertStored, Table: "records; DROP TABLE captures"}}
		}, "invalid table"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base()
			tt.mutate(&s)
			err := validateScenario(&s)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPassesApply(t *testing.T) {
	off := false
	opts := builder.DefaultOptions()
	(&Passes{PublishEvents: &off, Verify: &off}).apply(&opts)

	assert.True(t, opts.TimerEvents)
	assert.True(t, opts.CallbackEvents)
	assert.False(t, opts.PublishEvents)
	assert.True(t, opts.SubscriptionEvents)
	assert.False(t, opts.Verify)

	var none *Passes
	opts = builder.DefaultOptions()
	none.apply(&opts)
	assert.Equal(t, builder.DefaultOptions(), opts)
}
