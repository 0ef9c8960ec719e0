package harness

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/roach88/tracegraph/internal/builder"
	"github.com/roach88/tracegraph/internal/graph"
)

// EventSummary is the id-independent view of one event. Events are named by
// label so summaries stay stable when correlation order changes.
type EventSummary struct {
	Label   string
	Kind    string
	Node    string
	Stamps  graph.Stamps
	Trigger string

	id graph.EventID
}

// TopicSummary counts the endpoints of one topic.
type TopicSummary struct {
	Name          string
	Publishers    int
	Subscriptions int
}

// Snapshot is everything a scenario can observe about a build.
type Snapshot struct {
	ScenarioName string
	CaptureID    string
	Discarded    uint64
	Nodes        []string
	Topics       []TopicSummary
	Events       []EventSummary
	Diagnostics  builder.Diagnostics
}

// EventLabel names an event as "<kind> <owner>@<earliest>". The owner is the
// callback symbol for invocations and the topic otherwise.
func EventLabel(g *graph.Graph, ev *graph.Event) string {
	return fmt.Sprintf("%s %s@%d", ev.Payload.Kind(), eventOwner(g, ev), ev.Earliest())
}

func eventOwner(g *graph.Graph, ev *graph.Event) string {
	switch p := ev.Payload.(type) {
	case *graph.CallbackEvent:
		if cb := g.Callback(p.Callback); cb != nil {
			return cb.Symbol
		}
	case *graph.PublishEvent:
		if pub := g.Publisher(p.Publisher); pub != nil {
			return pub.Topic
		}
	case *graph.IntraPublishEvent:
		if pub := g.Publisher(p.Publisher); pub != nil {
			return pub.Topic
		}
	case *graph.SubscriptionEvent:
		if sub := g.Subscription(p.Subscription); sub != nil {
			return sub.Topic
		}
	case *graph.IntraSubscriptionEvent:
		if sub := g.Subscription(p.Subscription); sub != nil {
			return sub.Topic
		}
	}
	return "?"
}

// TriggerLabel names a trigger reference: the event label for events,
// "timer <node>" for timers and "" when unset.
func TriggerLabel(g *graph.Graph, ref graph.Ref) string {
	if ref.IsZero() {
		return ""
	}
	if id, ok := ref.Event(); ok {
		if ev := g.Event(id); ev != nil {
			return EventLabel(g, ev)
		}
	}
	if id, ok := ref.Timer(); ok {
		if t := g.Timer(id); t != nil {
			if n := g.Node(t.Node); n != nil {
				return "timer " + n.FullName()
			}
		}
	}
	return ref.String()
}

// Summarize builds the snapshot of a graph and its diagnostics. Events are
// ordered by earliest stamp, then label.
func Summarize(name, captureID string, g *graph.Graph, diags builder.Diagnostics) *Snapshot {
	s := &Snapshot{
		ScenarioName: name,
		CaptureID:    captureID,
		Discarded:    g.Discarded,
		Nodes:        []string{},
		Topics:       []TopicSummary{},
		Events:       make([]EventSummary, 0, g.EventCount()),
		Diagnostics:  diags,
	}

	for _, n := range g.Nodes() {
		s.Nodes = append(s.Nodes, n.FullName())
	}
	slices.Sort(s.Nodes)

	for _, t := range g.Topics() {
		s.Topics = append(s.Topics, TopicSummary{
			Name:          t.Name,
			Publishers:    len(t.Publishers),
			Subscriptions: len(t.Subscriptions),
		})
	}

	for i := 1; i <= g.EventCount(); i++ {
		ev := g.Event(graph.EventID(i))
		if ev == nil {
			continue
		}
		sum := EventSummary{
			Label:   EventLabel(g, ev),
			Kind:    ev.Payload.Kind(),
			Stamps:  ev.Stamps.Clone(),
			Trigger: TriggerLabel(g, ev.Trigger()),
			id:      ev.ID,
		}
		if n := g.NodeOf(ev); n != nil {
			sum.Node = n.FullName()
		}
		s.Events = append(s.Events, sum)
	}
	slices.SortStableFunc(s.Events, func(a, b EventSummary) int {
		if c := cmp.Compare(a.Stamps.Earliest(), b.Stamps.Earliest()); c != 0 {
			return c
		}
		return cmp.Compare(a.Label, b.Label)
	})
	return s
}

// findEvent returns the single event carrying a label.
func (s *Snapshot) findEvent(label string) (EventSummary, error) {
	var found []EventSummary
	for _, ev := range s.Events {
		if ev.Label == label {
			found = append(found, ev)
		}
	}
	switch len(found) {
	case 1:
		return found[0], nil
	case 0:
		return EventSummary{}, fmt.Errorf("no event labelled %q", label)
	}
	return EventSummary{}, fmt.Errorf("%d events labelled %q", len(found), label)
}

// canonicalMap converts the snapshot into the plain values canonical JSON
// accepts. Empty optional fields are omitted.
func (s *Snapshot) canonicalMap() map[string]any {
	nodes := make([]any, len(s.Nodes))
	for i, n := range s.Nodes {
		nodes[i] = n
	}

	topics := make([]any, len(s.Topics))
	for i, t := range s.Topics {
		topics[i] = map[string]any{
			"name":          t.Name,
			"publishers":    t.Publishers,
			"subscriptions": t.Subscriptions,
		}
	}

	events := make([]any, len(s.Events))
	for i, ev := range s.Events {
		stamps := make([]any, len(ev.Stamps))
		for j, st := range ev.Stamps {
			stamps[j] = map[string]any{"stage": st.Stage, "time": st.Time}
		}
		m := map[string]any{
			"label":  ev.Label,
			"stamps": stamps,
		}
		if ev.Node != "" {
			m["node"] = ev.Node
		}
		if ev.Trigger != "" {
			m["trigger"] = ev.Trigger
		}
		events[i] = m
	}

	diags := make([]any, len(s.Diagnostics))
	for i, d := range s.Diagnostics {
		m := map[string]any{
			"code":    string(d.Code),
			"pass":    d.Pass,
			"message": d.Message,
		}
		if d.Tracepoint != "" {
			m["tracepoint"] = d.Tracepoint
		}
		if d.Timestamp != 0 {
			m["timestamp"] = d.Timestamp
		}
		if d.Handle != 0 {
			m["handle"] = d.Handle
		}
		diags[i] = m
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"capture_id":    s.CaptureID,
		"discarded":     s.Discarded,
		"nodes":         nodes,
		"topics":        topics,
		"events":        events,
		"diagnostics":   diags,
	}
}
