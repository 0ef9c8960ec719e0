package cli

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tracegraph/internal/graph"
	"github.com/roach88/tracegraph/internal/sequence"
)

// CallbackLatency is the end-to-end latency of the chains ending at one
// callback's invocations.
type CallbackLatency struct {
	Node     string               `json:"node"`
	Callback string               `json:"callback"`
	Trigger  string               `json:"trigger"`
	Complete int                  `json:"complete"`
	Latency  sequence.Stats       `json:"latency"`
	Chains   []*sequence.Sequence `json:"chains,omitempty"`
}

// LatencyReport is the output of the latency command.
type LatencyReport struct {
	Callbacks []CallbackLatency `json:"callbacks"`
}

// LatencyOptions controls which callbacks a report covers.
type LatencyOptions struct {
	// Callback keeps callbacks whose display symbol contains it.
	Callback string

	// Chains includes every walked chain in the report.
	Chains bool

	Filter graph.TopicFilter
}

// Latencies walks the causal chain ending at every invocation of every
// associated callback and summarizes their latencies.
func Latencies(g *graph.Graph, opts LatencyOptions) LatencyReport {
	report := LatencyReport{Callbacks: []CallbackLatency{}}
	for _, cb := range g.Callbacks() {
		if len(cb.Events) == 0 {
			continue
		}
		sym := graph.PrettySymbol(cb.Symbol)
		if opts.Callback != "" && !strings.Contains(sym, opts.Callback) {
			continue
		}
		node, trigger, ok := callbackOwner(g, cb)
		if !ok || !opts.Filter.Keep(trigger) {
			continue
		}

		seqs, err := sequence.ForCallback(g, cb.ID, 0)
		if err != nil {
			continue
		}
		entry := CallbackLatency{
			Node:     node,
			Callback: sym,
			Trigger:  trigger,
			Latency:  sequence.Summarize(sequence.Latencies(seqs)),
		}
		for _, seq := range seqs {
			if seq.Complete(g) {
				entry.Complete++
			}
		}
		if opts.Chains {
			entry.Chains = seqs
		}
		report.Callbacks = append(report.Callbacks, entry)
	}
	slices.SortStableFunc(report.Callbacks, func(a, b CallbackLatency) int {
		return cmp.Or(strings.Compare(a.Node, b.Node), strings.Compare(a.Callback, b.Callback))
	})
	return report
}

// callbackOwner resolves the node and trigger topic of an associated
// callback. Timer callbacks report the timer tag as their topic.
func callbackOwner(g *graph.Graph, cb *graph.Callback) (node, trigger string, ok bool) {
	src := cb.Source()
	if id, isTimer := src.Timer(); isTimer {
		t := g.Timer(id)
		if t == nil {
			return "", "", false
		}
		return nodeName(g, t.Node), sequence.TimerTopic, true
	}
	if id, isSub := src.Subscription(); isSub {
		s := g.Subscription(id)
		if s == nil {
			return "", "", false
		}
		return nodeName(g, s.Node), s.Topic, true
	}
	return "", "", false
}

func nodeName(g *graph.Graph, id graph.NodeID) string {
	if n := g.Node(id); n != nil {
		return n.FullName()
	}
	return "-"
}

func (r LatencyReport) String() string {
	if len(r.Callbacks) == 0 {
		return "no associated callbacks"
	}
	var b strings.Builder
	for i, c := range r.Callbacks {
		if i > 0 {
			b.WriteByte('\n')
		}
		l := c.Latency
		fmt.Fprintf(&b, "%s %s [%s]  chains=%d complete=%d mean=%s median=%s std=%s min=%s max=%s",
			c.Node, c.Callback, c.Trigger, l.Count, c.Complete, l.Mean, l.Median, l.StdDev, l.Min, l.Max)
		for _, seq := range c.Chains {
			fmt.Fprintf(&b, "\n  chain latency=%s", seq.Latency())
			for _, e := range seq.Entries {
				fmt.Fprintf(&b, "\n    %d  %s  %s  %s", e.Timestamp, e.Node, e.Topic, e.Stage)
			}
		}
	}
	return b.String()
}

// LatencyCommandOptions holds flags for the latency command.
type LatencyCommandOptions struct {
	*RootOptions
	graphSource
	Callback string
	Chains   bool
}

// NewLatencyCommand creates the latency command.
func NewLatencyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LatencyCommandOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "latency [files...]",
		Short: "Measure end-to-end callback latency",
		Long: `Walk the causal chain ending at each callback invocation back through the
publications and takes that triggered it, and report latency statistics per
callback. A chain is complete when it reaches a timer-triggered callback.

Examples:
  tracegraph latency trace.jsonl
  tracegraph latency --capture demo --callback on_message --chains`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			built, err := opts.build(cmd, opts.RootOptions, args)
			if err != nil {
				return err
			}
			report := Latencies(built.Graph, LatencyOptions{
				Callback: opts.Callback,
				Chains:   opts.Chains,
				Filter:   opts.Config().TopicFilter(),
			})
			return opts.formatter(cmd).SuccessFor(built.CaptureID, report)
		},
	}
	opts.bind(cmd)
	cmd.Flags().StringVar(&opts.Callback, "callback", "", "only callbacks whose symbol contains this text")
	cmd.Flags().BoolVar(&opts.Chains, "chains", false, "list every chain")

	return cmd
}
