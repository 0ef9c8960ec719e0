package sequence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tracegraph/internal/graph"
)

func TestSummarize(t *testing.T) {
	tests := []struct {
		name string
		in   []time.Duration
		want Stats
	}{
		{
			name: "empty",
			want: Stats{},
		},
		{
			name: "single",
			in:   []time.Duration{7},
			want: Stats{Count: 1, Mean: 7, Median: 7, Min: 7, Max: 7},
		},
		{
			name: "odd",
			in:   []time.Duration{30, 10, 20},
			want: Stats{Count: 3, Mean: 20, Median: 20, StdDev: 8, Min: 10, Max: 30},
		},
		{
			name: "even",
			in:   []time.Duration{2, 4, 4, 4, 5, 5, 7, 9},
			want: Stats{Count: 8, Mean: 5, Median: 4, StdDev: 2, Min: 2, Max: 9},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Summarize(tt.in))
		})
	}
}

func TestSummarizeLeavesInputUntouched(t *testing.T) {
	in := []time.Duration{3, 1, 2}
	Summarize(in)
	assert.Equal(t, []time.Duration{3, 1, 2}, in)
}

func TestForCallback(t *testing.T) {
	g := chainGraph(t, 1000, 2000, 3000)
	cb, ok := g.CallbackByHandle(0x500)
	require.True(t, ok)

	seqs, err := ForCallback(g, cb, 0)
	require.NoError(t, err)
	require.Len(t, seqs, 3)

	lat := Latencies(seqs)
	assert.Equal(t, []time.Duration{40, 40, 40}, lat)
	assert.Equal(t, 3, Summarize(lat).Count)

	_, err = ForCallback(g, 42, 0)
	assert.ErrorIs(t, err, graph.ErrUnknownEntity)
}
