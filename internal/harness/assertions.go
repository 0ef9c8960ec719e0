package harness

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/roach88/tracegraph/internal/builder"
	"github.com/roach88/tracegraph/internal/graph"
	"github.com/roach88/tracegraph/internal/sequence"
)

// validIdentifier matches table names the stored assertion may interpolate.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Events   []EventSummary
}

func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if len(e.Events) > 0 {
		fmt.Fprintf(&buf, "\nEvents:\n")
		for i, ev := range e.Events {
			if ev.Trigger != "" {
				fmt.Fprintf(&buf, "  [%d] %s <- %s\n", i+1, ev.Label, ev.Trigger)
				continue
			}
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, ev.Label)
		}
	}
	return buf.String()
}

var entityCounters = map[string]func(*graph.Graph) int{
	"contexts":      func(g *graph.Graph) int { return len(g.Contexts()) },
	"nodes":         func(g *graph.Graph) int { return len(g.Nodes()) },
	"callbacks":     func(g *graph.Graph) int { return len(g.Callbacks()) },
	"publishers":    func(g *graph.Graph) int { return len(g.Publishers()) },
	"subscriptions": func(g *graph.Graph) int { return len(g.Subscriptions()) },
	"timers":        func(g *graph.Graph) int { return len(g.Timers()) },
	"topics":        func(g *graph.Graph) int { return len(g.Topics()) },
}

func (h *Harness) evaluate(ctx context.Context, r *Result, a Assertion) error {
	switch a.Type {
	case AssertEventCount:
		return assertEventCount(r, a)
	case AssertEntityCount:
		return assertEntityCount(r, a)
	case AssertDiagnosticCount:
		return assertDiagnosticCount(r, a)
	case AssertTriggeredBy:
		return assertTriggeredBy(r, a)
	case AssertChain:
		return assertChain(r, a)
	case AssertVerified:
		return assertVerified(r)
	case AssertStored:
		return h.assertStored(ctx, r, a)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

func assertEventCount(r *Result, a Assertion) error {
	count := 0
	for _, ev := range r.Snapshot.Events {
		if ev.Kind == a.Kind {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertEventCount,
			Expected: fmt.Sprintf("%d %s events", a.Count, a.Kind),
			Actual:   fmt.Sprintf("%d events", count),
			Events:   r.Snapshot.Events,
		}
	}
	return nil
}

func assertEntityCount(r *Result, a Assertion) error {
	counter, ok := entityCounters[a.Entity]
	if !ok {
		return fmt.Errorf("unknown entity %q", a.Entity)
	}
	if count := counter(r.Graph); count != a.Count {
		return &AssertionError{
			Type:     AssertEntityCount,
			Expected: fmt.Sprintf("%d %s", a.Count, a.Entity),
			Actual:   fmt.Sprintf("%d %s", count, a.Entity),
		}
	}
	return nil
}

func assertDiagnosticCount(r *Result, a Assertion) error {
	if count := r.Diagnostics.Count(builder.Code(a.Code)); count != a.Count {
		lines := make([]string, len(r.Diagnostics))
		for i, d := range r.Diagnostics {
			lines[i] = d.String()
		}
		return &AssertionError{
			Type:     AssertDiagnosticCount,
			Expected: fmt.Sprintf("%d %s diagnostics", a.Count, a.Code),
			Actual:   fmt.Sprintf("%d in [%s]", count, strings.Join(lines, "; ")),
		}
	}
	return nil
}

func assertTriggeredBy(r *Result, a Assertion) error {
	ev, err := r.Snapshot.findEvent(a.Event)
	if err != nil {
		return &AssertionError{
			Type:     AssertTriggeredBy,
			Expected: fmt.Sprintf("event %q", a.Event),
			Actual:   err.Error(),
			Events:   r.Snapshot.Events,
		}
	}
	if ev.Trigger != a.Trigger {
		want := a.Trigger
		if want == "" {
			want = "no trigger"
		}
		return &AssertionError{
			Type:     AssertTriggeredBy,
			Expected: fmt.Sprintf("%s triggered by %s", a.Event, want),
			Actual:   fmt.Sprintf("trigger %q", ev.Trigger),
			Events:   r.Snapshot.Events,
		}
	}
	return nil
}

func assertChain(r *Result, a Assertion) error {
	ev, err := r.Snapshot.findEvent(a.Event)
	if err != nil {
		return &AssertionError{
			Type:     AssertChain,
			Expected: fmt.Sprintf("event %q", a.Event),
			Actual:   err.Error(),
			Events:   r.Snapshot.Events,
		}
	}
	seq, err := sequence.Build(r.Graph, ev.id, 0)
	if err != nil {
		return err
	}

	if len(a.Stages) > 0 {
		stages := make([]string, len(seq.Entries))
		for i, e := range seq.Entries {
			stages[i] = e.Stage
		}
		if !slices.Equal(stages, a.Stages) {
			return &AssertionError{
				Type:     AssertChain,
				Expected: strings.Join(a.Stages, " <- "),
				Actual:   strings.Join(stages, " <- "),
				Events:   r.Snapshot.Events,
			}
		}
	}
	if a.Latency != nil {
		if want := time.Duration(*a.Latency); seq.Latency() != want {
			return &AssertionError{
				Type:     AssertChain,
				Expected: fmt.Sprintf("latency %s", want),
				Actual:   fmt.Sprintf("latency %s", seq.Latency()),
			}
		}
	}
	return nil
}

func assertVerified(r *Result) error {
	violations := graph.Verify(r.Graph)
	if len(violations) == 0 {
		return nil
	}
	lines := make([]string, len(violations))
	for i, v := range violations {
		lines[i] = v.String()
	}
	return &AssertionError{
		Type:     AssertVerified,
		Expected: "no invariant violations",
		Actual:   strings.Join(lines, "; "),
	}
}

// assertStored counts the rows a table holds for the scenario's capture.
// The table name is validated before it is interpolated.
func (h *Harness) assertStored(ctx context.Context, r *Result, a Assertion) error {
	if !validIdentifier.MatchString(a.Table) {
		return fmt.Errorf("invalid table name %q: must match pattern %s", a.Table, validIdentifier.String())
	}

	column := "capture_id"
	if a.Table == "captures" {
		column = "id"
	}
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = ?", a.Table, column)
	rows, err := h.store.Query(ctx, query, r.Capture.ID)
	if err != nil {
		return &AssertionError{
			Type:     AssertStored,
			Expected: fmt.Sprintf("query table %s", a.Table),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}
	defer rows.Close()

	count := 0
	if rows.Next() {
		if err := rows.Scan(&count); err != nil {
			return fmt.Errorf("scan count: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate rows: %w", err)
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertStored,
			Expected: fmt.Sprintf("%d rows in %s", a.Count, a.Table),
			Actual:   fmt.Sprintf("%d rows", count),
		}
	}
	return nil
}
