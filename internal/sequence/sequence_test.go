package sequence

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tracegraph/internal/builder"
	"github.com/roach88/tracegraph/internal/graph"
	"github.com/roach88/tracegraph/internal/record"
	"github.com/roach88/tracegraph/internal/testutil"
)

// chainGraph builds one timer -> publish -> take -> callback chain per base
// time.
func chainGraph(t *testing.T, bases ...int64) *graph.Graph {
	t.Helper()
	tr := testutil.NewTrace()
	tr.Node(0x10, 0x11, "talker", "/")
	tr.Node(0x20, 0x21, "listener", "/")
	tr.Callback(0x600, "tick")
	tr.Callback(0x500, "on_message")
	tr.Timer(0x700, 0x10, 100, 0x600)
	tr.Publisher(testutil.Endpoint{Handle: 0x100, RMW: 0x101, Node: 0x10, Topic: "/chatter", GID: []byte{1}, DDS: 0x102})
	tr.Subscription(testutil.Endpoint{Handle: 0x200, RMW: 0x201, Node: 0x20, Topic: "/chatter", GID: []byte{2}, DDS: 0x202})
	tr.SubscriptionRef(0x200, 0x203, 0x500)

	for i, base := range bases {
		tr.CallbackRun(0x600, base, base+50, 1)
		tr.Publish(testutil.Publish{Message: uint64(0x900 + i), Publisher: 0x100, RMW: 0x101, Writer: 0x102, Thread: 1, At: base + 10})
		tr.Take(testutil.Take{Message: uint64(0xa00 + i), RMW: 0x201, Reader: 0x202, Source: base + 13, Thread: 2, At: base + 20})
		tr.CallbackRun(0x500, base+30, base+40, 2)
	}

	opts := builder.DefaultOptions()
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	g, diags := builder.Build(tr.Collection(), opts)
	require.Empty(t, diags)
	return g
}

func lastInvocation(t *testing.T, g *graph.Graph) graph.EventID {
	t.Helper()
	cb, ok := g.CallbackByHandle(0x500)
	require.True(t, ok)
	events := g.Callback(cb).Events
	require.NotEmpty(t, events)
	return events[len(events)-1]
}

func TestBuildFullChain(t *testing.T) {
	g := chainGraph(t, 1000)
	end := lastInvocation(t, g)

	seq, err := Build(g, end, 0)
	require.NoError(t, err)

	want := []Entry{
		{"/listener", record.CallbackEnd, "/chatter", 1040},
		{"/listener", record.CallbackStart, "/chatter", 1030},
		{"/listener", record.RCLCPPTake, "/chatter", 1023},
		{"/listener", record.RCLTake, "/chatter", 1022},
		{"/listener", record.RMWTake, "/chatter", 1021},
		{"/listener", record.DDSRead, "/chatter", 1020},
		{"/talker", record.DDSWrite, "/chatter", 1013},
		{"/talker", record.RMWPublish, "/chatter", 1012},
		{"/talker", record.RCLPublish, "/chatter", 1011},
		{"/talker", record.RCLCPPPublish, "/chatter", 1010},
		{"/talker", record.CallbackEnd, TimerTopic, 1050},
		{"/talker", record.CallbackStart, TimerTopic, 1000},
	}
	assert.Equal(t, want, seq.Entries)
	assert.Len(t, seq.Events, 4)
	assert.Equal(t, 40*time.Nanosecond, seq.Latency())
	assert.True(t, seq.Complete(g))

	root, ok := seq.Root()
	require.True(t, ok)
	assert.Equal(t, int64(1000), root.Timestamp)
}

func TestBuildStopsAtBoundary(t *testing.T) {
	g := chainGraph(t, 1000)
	end := lastInvocation(t, g)

	take, ok := g.Event(end).Trigger().Event()
	require.True(t, ok)
	pub, ok := g.Event(take).Trigger().Event()
	require.True(t, ok)

	seq, err := Build(g, end, pub)
	require.NoError(t, err)
	assert.Len(t, seq.Entries, 10)
	assert.Equal(t, []graph.EventID{end, take, pub}, seq.Events)
	assert.Equal(t, 30*time.Nanosecond, seq.Latency())
	assert.False(t, seq.Complete(g))

	seq, err = Build(g, end, end)
	require.NoError(t, err)
	assert.Len(t, seq.Entries, 2)
	assert.Equal(t, 10*time.Nanosecond, seq.Latency())
}

func TestBuildIsIdempotent(t *testing.T) {
	g := chainGraph(t, 1000, 2000)
	end := lastInvocation(t, g)

	first, err := Build(g, end, 0)
	require.NoError(t, err)
	second, err := Build(g, end, 0)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, first.Latency(), second.Latency())
}

func TestBuildUnknownEvent(t *testing.T) {
	g := chainGraph(t)
	_, err := Build(g, 99, 0)
	assert.ErrorIs(t, err, ErrUnknownEvent)
}

func TestBuildStopsOnCycle(t *testing.T) {
	g := graph.New()
	_, err := g.AddNode(graph.Node{Handle: 1, Name: "n", Namespace: "/"})
	require.NoError(t, err)
	pub, err := g.AddPublisher(graph.Publisher{Endpoint: graph.Endpoint{Handle: 2, NodeHandle: 1, Topic: "/t"}})
	require.NoError(t, err)

	a, err := g.AddEvent(graph.Stamps{{Stage: "a", Time: 10}}, &graph.PublishEvent{Publisher: pub})
	require.NoError(t, err)
	b, err := g.AddEvent(graph.Stamps{{Stage: "b", Time: 20}}, &graph.PublishEvent{Publisher: pub})
	require.NoError(t, err)
	require.NoError(t, g.SetTrigger(a, graph.EventRef(b)))
	require.NoError(t, g.SetTrigger(b, graph.EventRef(a)))

	seq, err := Build(g, a, 0)
	require.NoError(t, err)
	assert.Equal(t, []graph.EventID{a, b}, seq.Events)
	assert.Equal(t, []Entry{{"/n", "a", "/t", 10}, {"/n", "b", "/t", 20}}, seq.Entries)
}

func TestLatencyOfShortChains(t *testing.T) {
	assert.Zero(t, (&Sequence{}).Latency())
	assert.Zero(t, (&Sequence{Entries: []Entry{{Timestamp: 5}}}).Latency())
	_, ok := (&Sequence{}).Root()
	assert.False(t, ok)
}
