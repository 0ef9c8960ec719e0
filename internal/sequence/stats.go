package sequence

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/roach88/tracegraph/internal/graph"
)

// Stats summarises a latency sample.
type Stats struct {
	Count  int           `json:"count" yaml:"count"`
	Mean   time.Duration `json:"mean" yaml:"mean"`
	Median time.Duration `json:"median" yaml:"median"`
	StdDev time.Duration `json:"std_dev" yaml:"std_dev"`
	Min    time.Duration `json:"min" yaml:"min"`
	Max    time.Duration `json:"max" yaml:"max"`
}

// Summarize computes population statistics. An empty sample yields the zero
// Stats.
func Summarize(latencies []time.Duration) Stats {
	if len(latencies) == 0 {
		return Stats{}
	}
	sorted := slices.Clone(latencies)
	slices.Sort(sorted)

	var sum float64
	for _, l := range sorted {
		sum += float64(l)
	}
	n := float64(len(sorted))
	mean := sum / n

	var sq float64
	for _, l := range sorted {
		d := float64(l) - mean
		sq += d * d
	}

	mid := len(sorted) / 2
	median := sorted[mid]
	if len(sorted)%2 == 0 {
		median = (sorted[mid-1] + sorted[mid]) / 2
	}

	return Stats{
		Count:  len(sorted),
		Mean:   time.Duration(math.Round(mean)),
		Median: median,
		StdDev: time.Duration(math.Round(math.Sqrt(sq / n))),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
	}
}

// ForCallback builds the chain ending at every invocation of a callback.
// Events missing from the graph are skipped.
func ForCallback(g *graph.Graph, id graph.CallbackID, boundary graph.EventID) ([]*Sequence, error) {
	cb := g.Callback(id)
	if cb == nil {
		return nil, fmt.Errorf("callback %d: %w", id, graph.ErrUnknownEntity)
	}
	out := make([]*Sequence, 0, len(cb.Events))
	for _, ev := range cb.Events {
		seq, err := Build(g, ev, boundary)
		if err != nil {
			continue
		}
		out = append(out, seq)
	}
	return out, nil
}

// Latencies collects the latency of each sequence.
func Latencies(seqs []*Sequence) []time.Duration {
	out := make([]time.Duration, len(seqs))
	for i, s := range seqs {
		out[i] = s.Latency()
	}
	return out
}
