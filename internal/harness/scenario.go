package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/tracegraph/internal/builder"
	"github.com/roach88/tracegraph/internal/record"
)

// Scenario is one conformance case: a capture, the passes to run over it and
// what the resulting graph must look like.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// CaptureID is the fixed store id given to the imported capture. Empty
	// means "capture-default".
	CaptureID string `yaml:"capture_id,omitempty"`

	// Passes overrides individual build passes. Unset passes stay enabled.
	Passes *Passes `yaml:"passes,omitempty"`

	// Trace names a record file (JSON lines or YAML) relative to the
	// scenario file. Its records come before the inline ones.
	Trace string `yaml:"trace,omitempty"`

	// Discarded is the tracer-reported event loss.
	Discarded uint64 `yaml:"discarded_events,omitempty"`

	// Records are inline trace records in the flat _name/_timestamp form.
	Records []map[string]any `yaml:"records,omitempty"`

	// Assertions validate the built graph and its diagnostics.
	Assertions []Assertion `yaml:"assertions"`
}

// Passes toggles build passes for one scenario.
type Passes struct {
	TimerEvents        *bool `yaml:"timer_events,omitempty"`
	CallbackEvents     *bool `yaml:"callback_events,omitempty"`
	PublishEvents      *bool `yaml:"publish_events,omitempty"`
	SubscriptionEvents *bool `yaml:"subscription_events,omitempty"`
	Verify             *bool `yaml:"verify,omitempty"`
}

func (p *Passes) apply(opts *builder.Options) {
	if p == nil {
		return
	}
	set := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
		}
	}
	set(&opts.TimerEvents, p.TimerEvents)
	set(&opts.CallbackEvents, p.CallbackEvents)
	set(&opts.PublishEvents, p.PublishEvents)
	set(&opts.SubscriptionEvents, p.SubscriptionEvents)
	set(&opts.Verify, p.Verify)
}

// Assertion is one check against a scenario result. Which fields apply
// depends on Type.
type Assertion struct {
	// Type selects the check: event_count, entity_count, diagnostic_count,
	// triggered_by, chain, verified or stored.
	Type string `yaml:"type"`

	// Kind is the event kind counted by event_count.
	Kind string `yaml:"kind,omitempty"`

	// Entity is the entity list counted by entity_count.
	Entity string `yaml:"entity,omitempty"`

	// Code is the diagnostic code counted by diagnostic_count.
	Code string `yaml:"code,omitempty"`

	// Count is the exact expected count.
	Count int `yaml:"count,omitempty"`

	// Event is an event label, "<kind> <owner>@<earliest>".
	Event string `yaml:"event,omitempty"`

	// Trigger is the expected trigger label for triggered_by. Timers are
	// written "timer <node>".
	Trigger string `yaml:"trigger,omitempty"`

	// Stages and Latency describe the expected chain ending at Event.
	Stages  []string `yaml:"stages,omitempty"`
	Latency *int64   `yaml:"latency,omitempty"`

	// Table is the store table counted by stored.
	Table string `yaml:"table,omitempty"`
}

// Assertion types.
const (
	AssertEventCount      = "event_count"
	AssertEntityCount     = "entity_count"
	AssertDiagnosticCount = "diagnostic_count"
	AssertTriggeredBy     = "triggered_by"
	AssertChain           = "chain"
	AssertVerified        = "verified"
	AssertStored          = "stored"
)

const defaultCaptureID = "capture-default"

// LoadScenario reads a scenario file. Unknown fields are rejected and a
// referenced trace file is resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Trace != "" && !filepath.IsAbs(scenario.Trace) {
		scenario.Trace = filepath.Join(filepath.Dir(path), scenario.Trace)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// Collection assembles the scenario's records.
func (s *Scenario) Collection() (*record.Collection, error) {
	c := record.NewCollection()
	if s.Trace != "" {
		loaded, err := record.ReadFile(s.Trace)
		if err != nil {
			return nil, fmt.Errorf("trace %s: %w", s.Trace, err)
		}
		c.Merge(loaded)
	}
	for i, m := range s.Records {
		r, err := record.FromMap(m)
		if err != nil {
			return nil, fmt.Errorf("records[%d]: %w", i, err)
		}
		c.Add(r)
	}
	c.Discarded += s.Discarded
	return c, nil
}

func (s *Scenario) captureID() string {
	if s.CaptureID != "" {
		return s.CaptureID
	}
	return defaultCaptureID
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Trace == "" && len(s.Records) == 0 {
		return fmt.Errorf("records or trace is required")
	}
	if s.Trace != "" {
		if _, err := os.Stat(s.Trace); os.IsNotExist(err) {
			return fmt.Errorf("trace file not found: %s", s.Trace)
		}
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Count < 0 {
		return fmt.Errorf("assertions[%d]: count must be non-negative", index)
	}

	switch a.Type {
	case AssertEventCount:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for event_count", index)
		}
	case AssertEntityCount:
		if _, ok := entityCounters[a.Entity]; !ok {
			return fmt.Errorf("assertions[%d]: unknown entity %q for entity_count", index, a.Entity)
		}
	case AssertDiagnosticCount:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for diagnostic_count", index)
		}
	case AssertTriggeredBy:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for triggered_by", index)
		}
	case AssertChain:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for chain", index)
		}
		if len(a.Stages) == 0 && a.Latency == nil {
			return fmt.Errorf("assertions[%d]: chain needs stages or latency", index)
		}
	case AssertVerified:
	case AssertStored:
		if !validIdentifier.MatchString(a.Table) {
			return fmt.Errorf("assertions[%d]: invalid table %q for stored", index, a.Table)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
