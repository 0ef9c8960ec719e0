package cli

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/tracegraph/internal/builder"
	"github.com/roach88/tracegraph/internal/graph"
	"github.com/roach88/tracegraph/internal/sequence"
)

// GraphSummary describes the computation graph of one capture.
type GraphSummary struct {
	Counts      Counts               `json:"counts"`
	Diagnostics map[builder.Code]int `json:"diagnostics"`
	Nodes       []NodeSummary        `json:"nodes"`
}

// Counts are the graph-wide entity and event totals.
type Counts struct {
	Nodes     int    `json:"nodes"`
	Topics    int    `json:"topics"`
	Callbacks int    `json:"callbacks"`
	Events    int    `json:"events"`
	Discarded uint64 `json:"discarded"`
}

// NodeSummary lists the endpoints and timers of one node.
type NodeSummary struct {
	Name          string                `json:"name"`
	Publishers    []PublisherSummary    `json:"publishers"`
	Subscriptions []SubscriptionSummary `json:"subscriptions"`
	Timers        []TimerSummary        `json:"timers"`
}

type PublisherSummary struct {
	Topic  string `json:"topic"`
	Events int    `json:"events"`
}

type SubscriptionSummary struct {
	Topic    string         `json:"topic"`
	Callback string         `json:"callback"`
	Events   int            `json:"events"`
	Duration sequence.Stats `json:"duration"`
}

type TimerSummary struct {
	Period     time.Duration  `json:"period"`
	MeanPeriod time.Duration  `json:"mean_period,omitempty"`
	Callback   string         `json:"callback"`
	Duration   sequence.Stats `json:"duration"`
}

// Summarize collects the summary of a graph. Endpoints on topics rejected by
// filter are left out.
func Summarize(g *graph.Graph, diags builder.Diagnostics, filter graph.TopicFilter) GraphSummary {
	s := GraphSummary{
		Counts: Counts{
			Nodes:     len(g.Nodes()),
			Topics:    len(g.Topics()),
			Callbacks: len(g.Callbacks()),
			Events:    g.EventCount(),
			Discarded: g.Discarded,
		},
		Diagnostics: diags.Summary(),
		Nodes:       []NodeSummary{},
	}

	for _, n := range g.Nodes() {
		ns := NodeSummary{
			Name:          n.FullName(),
			Publishers:    []PublisherSummary{},
			Subscriptions: []SubscriptionSummary{},
			Timers:        []TimerSummary{},
		}
		for _, p := range g.FilterPublishers(n.Publishers, filter) {
			ns.Publishers = append(ns.Publishers, PublisherSummary{Topic: p.Topic, Events: len(p.Events)})
		}
		for _, sub := range g.FilterSubscriptions(n.Subscriptions, filter) {
			ns.Subscriptions = append(ns.Subscriptions, SubscriptionSummary{
				Topic:    sub.Topic,
				Callback: symbol(g, sub.Callback),
				Events:   len(sub.Events),
				Duration: sequence.Summarize(g.CallbackDurations(sub.Callback)),
			})
		}
		for _, id := range n.Timers {
			t := g.Timer(id)
			if t == nil {
				continue
			}
			mean, _ := g.MeanPeriod(id)
			ns.Timers = append(ns.Timers, TimerSummary{
				Period:     time.Duration(t.Period),
				MeanPeriod: mean,
				Callback:   symbol(g, t.Callback),
				Duration:   sequence.Summarize(g.CallbackDurations(t.Callback)),
			})
		}
		s.Nodes = append(s.Nodes, ns)
	}
	slices.SortStableFunc(s.Nodes, func(a, b NodeSummary) int { return strings.Compare(a.Name, b.Name) })
	return s
}

func symbol(g *graph.Graph, id graph.CallbackID) string {
	if cb := g.Callback(id); cb != nil {
		return graph.PrettySymbol(cb.Symbol)
	}
	return "-"
}

func (s GraphSummary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "nodes: %d  topics: %d  callbacks: %d  events: %d  discarded: %d\n",
		s.Counts.Nodes, s.Counts.Topics, s.Counts.Callbacks, s.Counts.Events, s.Counts.Discarded)

	b.WriteString("diagnostics:")
	if len(s.Diagnostics) == 0 {
		b.WriteString(" none")
	}
	codes := make([]builder.Code, 0, len(s.Diagnostics))
	for code := range s.Diagnostics {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	for _, code := range codes {
		fmt.Fprintf(&b, " %s=%d", code, s.Diagnostics[code])
	}

	for _, n := range s.Nodes {
		fmt.Fprintf(&b, "\n%s", n.Name)
		for _, p := range n.Publishers {
			fmt.Fprintf(&b, "\n  publisher %s  events=%d", p.Topic, p.Events)
		}
		for _, sub := range n.Subscriptions {
			fmt.Fprintf(&b, "\n  subscription %s -> %s  takes=%d calls=%d mean=%s max=%s",
				sub.Topic, sub.Callback, sub.Events, sub.Duration.Count, sub.Duration.Mean, sub.Duration.Max)
		}
		for _, t := range n.Timers {
			period := "-"
			if t.MeanPeriod > 0 {
				period = t.MeanPeriod.String()
			}
			fmt.Fprintf(&b, "\n  timer %s -> %s  calls=%d mean_period=%s mean=%s max=%s",
				t.Period, t.Callback, t.Duration.Count, period, t.Duration.Mean, t.Duration.Max)
		}
	}
	return b.String()
}

// SummaryOptions holds flags for the summary command.
type SummaryOptions struct {
	*RootOptions
	graphSource
}

// NewSummaryCommand creates the summary command.
func NewSummaryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SummaryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "summary [files...]",
		Short: "Summarize the computation graph",
		Long: `Build the graph of a capture and list its nodes with their publishers,
subscriptions and timers, callback execution times and diagnostic counts.

Examples:
  tracegraph summary trace.jsonl
  tracegraph summary --capture demo --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			built, err := opts.build(cmd, opts.RootOptions, args)
			if err != nil {
				return err
			}
			summary := Summarize(built.Graph, built.Diagnostics, opts.Config().TopicFilter())
			return opts.formatter(cmd).SuccessFor(built.CaptureID, summary)
		},
	}
	opts.bind(cmd)

	return cmd
}
