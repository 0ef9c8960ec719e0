package sequence

import (
	"errors"
	"fmt"
	"time"

	"github.com/roach88/tracegraph/internal/graph"
	"github.com/roach88/tracegraph/internal/record"
)

// TimerTopic tags entries of timer-driven callbacks, which have no topic.
const TimerTopic = "timer"

// ErrUnknownEvent is returned when the terminal event is not in the graph.
var ErrUnknownEvent = errors.New("unknown event")

// Entry is one step of a causal chain.
type Entry struct {
	Node      string `json:"node" yaml:"node"`
	Stage     string `json:"stage" yaml:"stage"`
	Topic     string `json:"topic" yaml:"topic"`
	Timestamp int64  `json:"timestamp" yaml:"timestamp"`
}

// Sequence is the causal chain ending at one event, newest entry first.
type Sequence struct {
	End      graph.EventID `json:"end" yaml:"end"`
	Boundary graph.EventID `json:"boundary,omitempty" yaml:"boundary,omitempty"`
	Entries  []Entry       `json:"entries" yaml:"entries"`

	// Events lists the walked events in walk order.
	Events []graph.EventID `json:"events" yaml:"events"`
}

// Build walks trigger links back from end. The walk stops at an event with
// no event trigger, or after emitting boundary when boundary is valid. A
// trigger cycle ends the walk at the first revisited event.
func Build(g *graph.Graph, end, boundary graph.EventID) (*Sequence, error) {
	ev := g.Event(end)
	if ev == nil {
		return nil, fmt.Errorf("chain end %d: %w", end, ErrUnknownEvent)
	}

	seq := &Sequence{End: end, Boundary: boundary, Entries: []Entry{}}
	visited := map[graph.EventID]bool{}
	for ev != nil && !visited[ev.ID] {
		visited[ev.ID] = true
		seq.Events = append(seq.Events, ev.ID)
		seq.Entries = append(seq.Entries, entries(g, ev)...)

		if boundary.Valid() && ev.ID == boundary {
			break
		}
		next, ok := ev.Trigger().Event()
		if !ok {
			break
		}
		ev = g.Event(next)
	}
	return seq, nil
}

func entries(g *graph.Graph, ev *graph.Event) []Entry {
	node := ""
	if n := g.NodeOf(ev); n != nil {
		node = n.FullName()
	}

	if cb, ok := ev.Payload.(*graph.CallbackEvent); ok {
		topic := callbackTopic(g, ev, cb)
		return []Entry{
			{Node: node, Stage: record.CallbackEnd, Topic: topic, Timestamp: cb.End},
			{Node: node, Stage: record.CallbackStart, Topic: topic, Timestamp: cb.Start},
		}
	}

	topic := endpointTopic(g, ev.Source())
	stamps := ev.Stamps.Descending()
	out := make([]Entry, 0, len(stamps))
	for _, s := range stamps {
		out = append(out, Entry{Node: node, Stage: s.Stage, Topic: topic, Timestamp: s.Time})
	}
	return out
}

func callbackTopic(g *graph.Graph, ev *graph.Event, cb *graph.CallbackEvent) string {
	src := ev.Source()
	if src.IsZero() {
		if c := g.Callback(cb.Callback); c != nil {
			src = c.Source()
		}
	}
	if _, ok := src.Timer(); ok {
		return TimerTopic
	}
	return endpointTopic(g, src)
}

func endpointTopic(g *graph.Graph, src graph.Ref) string {
	if id, ok := src.Subscription(); ok {
		if s := g.Subscription(id); s != nil {
			return s.Topic
		}
	}
	if id, ok := src.Publisher(); ok {
		if p := g.Publisher(id); p != nil {
			return p.Topic
		}
	}
	return ""
}

// Latency is the time from the oldest to the newest entry. Chains with fewer
// than two entries have zero latency.
func (s *Sequence) Latency() time.Duration {
	if len(s.Entries) < 2 {
		return 0
	}
	return time.Duration(s.Entries[0].Timestamp - s.Entries[len(s.Entries)-1].Timestamp)
}

// Root returns the oldest entry of the chain.
func (s *Sequence) Root() (Entry, bool) {
	if len(s.Entries) == 0 {
		return Entry{}, false
	}
	return s.Entries[len(s.Entries)-1], true
}

// Complete reports whether the walk reached an event triggered by a timer,
// the only kind of causal root a fully linked chain can have.
func (s *Sequence) Complete(g *graph.Graph) bool {
	if len(s.Events) == 0 {
		return false
	}
	last := g.Event(s.Events[len(s.Events)-1])
	_, ok := last.Trigger().Timer()
	return ok
}
