package graph

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGraph(t *testing.T) (*Graph, NodeID) {
	t.Helper()
	g := New()
	n, err := g.AddNode(Node{Handle: 0x10, Name: "talker", Namespace: "/demo"})
	require.NoError(t, err)
	return g, n
}

func TestAddRejectsDuplicateHandle(t *testing.T) {
	g, n := newTestGraph(t)

	again, err := g.AddNode(Node{Handle: 0x10, Name: "other"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateHandle))
	assert.Equal(t, n, again, "existing id is returned")

	_, err = g.AddCallback(Callback{Handle: 1})
	require.NoError(t, err)
	_, err = g.AddCallback(Callback{Handle: 1})
	assert.ErrorIs(t, err, ErrDuplicateHandle)
}

func TestIDsAreOneBased(t *testing.T) {
	g, n := newTestGraph(t)

	assert.Equal(t, NodeID(1), n)
	assert.True(t, n.Valid())
	assert.False(t, NodeID(0).Valid())
	assert.Nil(t, g.Node(0))
	assert.Nil(t, g.Node(2))
	assert.Equal(t, "talker", g.Node(n).Name)
}

func TestEndpointsAttachToNode(t *testing.T) {
	g, n := newTestGraph(t)

	p, err := g.AddPublisher(Publisher{Endpoint: Endpoint{Handle: 0x100, RMWHandle: 0x101, NodeHandle: 0x10, TopicName: "chatter"}})
	require.NoError(t, err)
	s, err := g.AddSubscription(Subscription{Endpoint: Endpoint{Handle: 0x200, RMWHandle: 0x201, NodeHandle: 0x10, TopicName: "chatter"}})
	require.NoError(t, err)
	tm, err := g.AddTimer(Timer{Handle: 0x300, NodeHandle: 0x10})
	require.NoError(t, err)
	orphan, err := g.AddPublisher(Publisher{Endpoint: Endpoint{Handle: 0x400, NodeHandle: 0x99}})
	require.NoError(t, err)

	node := g.Node(n)
	assert.Equal(t, []PublisherID{p}, node.Publishers)
	assert.Equal(t, []SubscriptionID{s}, node.Subscriptions)
	assert.Equal(t, []TimerID{tm}, node.Timers)
	assert.False(t, g.Publisher(orphan).Node.Valid())

	got, ok := g.PublisherByRMW(0x101)
	require.True(t, ok)
	assert.Equal(t, p, got)

	gotSub, ok := g.SubscriptionByRMW(0x201)
	require.True(t, ok)
	assert.Equal(t, s, gotSub)

	_, ok = g.SubscriptionByRMW(0x999)
	assert.False(t, ok)
}

func TestLayerIndexes(t *testing.T) {
	g, _ := newTestGraph(t)
	p, _ := g.AddPublisher(Publisher{Endpoint: Endpoint{Handle: 1, NodeHandle: 0x10}})
	s, _ := g.AddSubscription(Subscription{Endpoint: Endpoint{Handle: 2, NodeHandle: 0x10}})

	gid, ok := GIDFromBytes([]byte{1, 2, 3})
	require.True(t, ok)
	require.NoError(t, g.SetPublisherGID(p, gid))
	require.NoError(t, g.SetPublisherWriter(p, 0xAA, "rt/chatter"))
	require.NoError(t, g.SetSubscriptionGID(s, gid))
	require.NoError(t, g.SetSubscriptionReader(s, 0xBB, "rt/chatter"))
	require.NoError(t, g.SetSubscriptionReference(s, 0xCC))
	require.NoError(t, g.SetSubscriptionBuffer(s, 0xDD, 0xEE))

	byGID, ok := g.PublisherByGID(gid)
	require.True(t, ok)
	assert.Equal(t, p, byGID)
	byWriter, ok := g.PublisherByWriter(0xAA)
	require.True(t, ok)
	assert.Equal(t, p, byWriter)
	assert.Equal(t, "rt/chatter", g.Publisher(p).DDSTopicName)

	assert.Equal(t, []SubscriptionID{s}, g.SubscriptionsByGID(gid))
	assert.Equal(t, []SubscriptionID{s}, g.SubscriptionsByReader(0xBB))
	assert.Equal(t, []SubscriptionID{s}, g.SubscriptionsByBuffer(0xDD))
	assert.Equal(t, []SubscriptionID{s}, g.SubscriptionsByIPB(0xEE))
	byRef, ok := g.SubscriptionByReference(0xCC)
	require.True(t, ok)
	assert.Equal(t, s, byRef)

	assert.ErrorIs(t, g.SetPublisherGID(99, gid), ErrUnknownEntity)
}

func TestGIDFromBytes(t *testing.T) {
	_, ok := GIDFromBytes(nil)
	assert.False(t, ok)

	long := make([]byte, 24)
	for i := range long {
		long[i] = byte(i)
	}
	gid, ok := GIDFromBytes(long)
	require.True(t, ok)
	assert.Equal(t, byte(15), gid[15])
	assert.Equal(t, "000102030405060708090a0b0c0d0e0f", gid.String())
}

func TestDuplicateSubscription(t *testing.T) {
	g, n := newTestGraph(t)
	s, _ := g.AddSubscription(Subscription{Endpoint: Endpoint{Handle: 2, RMWHandle: 3, NodeHandle: 0x10}})
	gid, _ := GIDFromBytes([]byte{9})
	require.NoError(t, g.SetSubscriptionGID(s, gid))
	require.NoError(t, g.SetSubscriptionReader(s, 0xBB, "rt/x"))
	require.NoError(t, g.SetSubscriptionReference(s, 0xCC))
	g.Subscription(s).Stamps.Add("rmw_init", 5)

	dup, err := g.DuplicateSubscription(s)
	require.NoError(t, err)

	orig, sib := g.Subscription(s), g.Subscription(dup)
	assert.Equal(t, dup, orig.Sibling())
	assert.Equal(t, s, sib.Sibling())
	assert.Equal(t, orig.RMWHandle, sib.RMWHandle)
	assert.Equal(t, orig.GID, sib.GID)
	assert.Equal(t, orig.DDSHandle, sib.DDSHandle)
	assert.Equal(t, orig.Stamps, sib.Stamps)
	assert.False(t, sib.HasReference)

	sib.Stamps.Add("rmw_init", 6)
	v, _ := orig.Stamps.Get("rmw_init")
	assert.Equal(t, int64(5), v, "stamps are deep copied")

	assert.Equal(t, []SubscriptionID{s, dup}, g.SubscriptionsByRMW(3))
	primary, _ := g.SubscriptionByRMW(3)
	assert.Equal(t, s, primary)
	assert.Equal(t, []SubscriptionID{s, dup}, g.Node(n).Subscriptions)

	_, err = g.DuplicateSubscription(s)
	assert.ErrorIs(t, err, ErrSiblingConflict)
}

func TestAddEventAttachesToOwner(t *testing.T) {
	g, _ := newTestGraph(t)
	cb, _ := g.AddCallback(Callback{Handle: 7})
	p, _ := g.AddPublisher(Publisher{Endpoint: Endpoint{Handle: 1, NodeHandle: 0x10}})

	cbEv, err := g.AddEvent(Stamps{{"start", 10}, {"end", 20}}, &CallbackEvent{Callback: cb, Start: 10, End: 20})
	require.NoError(t, err)
	pubEv, err := g.AddEvent(Stamps{{"publish", 15}}, &PublishEvent{Publisher: p})
	require.NoError(t, err)

	assert.Equal(t, []EventID{cbEv}, g.Callback(cb).Events)
	assert.Equal(t, []EventID{pubEv}, g.Publisher(p).Events)
	assert.True(t, g.Event(cbEv).Source().IsZero(), "callback events are sourced by association")
	assert.Equal(t, PublisherRef(p), g.Event(pubEv).Source())

	_, err = g.AddEvent(nil, &SubscriptionEvent{Subscription: 42})
	assert.ErrorIs(t, err, ErrUnknownEntity)
}

func TestSortEvents(t *testing.T) {
	g, _ := newTestGraph(t)
	p, _ := g.AddPublisher(Publisher{Endpoint: Endpoint{Handle: 1, NodeHandle: 0x10}})

	late, _ := g.AddEvent(Stamps{{"a", 30}, {"b", 25}}, &PublishEvent{Publisher: p})
	early, _ := g.AddEvent(Stamps{{"a", 10}}, &PublishEvent{Publisher: p})
	tie, _ := g.AddEvent(Stamps{{"a", 10}}, &PublishEvent{Publisher: p})

	g.SortEvents()
	assert.Equal(t, []EventID{early, tie, late}, g.Publisher(p).Events)
}

func TestSetTriggerWriteOnce(t *testing.T) {
	g, _ := newTestGraph(t)
	cb, _ := g.AddCallback(Callback{Handle: 7})
	a, _ := g.AddEvent(Stamps{{"s", 1}}, &CallbackEvent{Callback: cb})
	b, _ := g.AddEvent(Stamps{{"s", 2}}, &CallbackEvent{Callback: cb})
	c, _ := g.AddEvent(Stamps{{"s", 3}}, &CallbackEvent{Callback: cb})

	assert.ErrorIs(t, g.SetTrigger(a, EventRef(a)), ErrSelfTrigger)

	require.NoError(t, g.SetTrigger(b, EventRef(a)))
	require.NoError(t, g.SetTrigger(b, EventRef(a)), "same trigger again is a no-op")
	assert.ErrorIs(t, g.SetTrigger(b, EventRef(c)), ErrTriggerConflict)
	assert.Equal(t, EventRef(a), g.Event(b).Trigger())

	require.NoError(t, g.SetSource(a, TimerRef(1)))
	assert.ErrorIs(t, g.SetSource(a, SubscriptionRef(1)), ErrSourceConflict)

	require.NoError(t, g.SetCallbackSource(cb, TimerRef(1)))
	assert.ErrorIs(t, g.SetCallbackSource(cb, SubscriptionRef(2)), ErrSourceConflict)
}

func TestRefAccessors(t *testing.T) {
	r := TimerRef(3)
	id, ok := r.Timer()
	assert.True(t, ok)
	assert.Equal(t, TimerID(3), id)
	_, ok = r.Event()
	assert.False(t, ok)
	assert.Equal(t, "timer#3", r.String())
	assert.Equal(t, "none", Ref{}.String())
}

func TestStamps(t *testing.T) {
	var s Stamps
	s.Add("b", 20)
	s.Add("a", 10)
	s.Add("c", 30)
	s.Add("b", 25)

	assert.Equal(t, int64(10), s.Earliest())
	assert.Equal(t, int64(30), s.Latest())
	v, ok := s.Get("b")
	require.True(t, ok)
	assert.Equal(t, int64(25), v)
	assert.Equal(t, Stamps{{"c", 30}, {"b", 25}, {"a", 10}}, s.Descending())
	assert.Equal(t, Stamps{{"b", 25}, {"a", 10}, {"c", 30}}, s, "insertion order is kept")

	var empty Stamps
	assert.Equal(t, int64(0), empty.Earliest())
	assert.Equal(t, int64(0), empty.Latest())
}

func TestNodesByName(t *testing.T) {
	g, _ := newTestGraph(t)
	_, _ = g.AddNode(Node{Handle: 0x20, Name: "listener", Namespace: "/"})
	_, _ = g.AddNode(Node{Handle: 0x30, Name: "hamburg", Namespace: "/"})

	assert.Len(t, g.NodesByName("hamburg"), 1)
	assert.Len(t, g.NodesByName("/demo/"), 1)
	assert.Len(t, g.NodesByName("er"), 2)
	assert.Empty(t, g.NodesByName("missing"))
	assert.Equal(t, "/listener", g.NodesByName("listener")[0].FullName())
}

func TestCallbackTiming(t *testing.T) {
	g, n := newTestGraph(t)
	cb, _ := g.AddCallback(Callback{Handle: 7})
	tm, _ := g.AddTimer(Timer{Handle: 1, NodeHandle: g.Node(n).Handle, Period: 100})
	require.NoError(t, g.SetTimerCallback(tm, 7))

	_, ok := g.MeanPeriod(tm)
	assert.False(t, ok, "needs two invocations")

	for _, start := range []int64{1000, 1100, 1220} {
		_, err := g.AddEvent(Stamps{{"start", start}}, &CallbackEvent{Callback: cb, Start: start, End: start + 7})
		require.NoError(t, err)
	}

	period, ok := g.MeanPeriod(tm)
	require.True(t, ok)
	assert.Equal(t, 110*time.Nanosecond, period)
	assert.Equal(t, []time.Duration{7, 7, 7}, g.CallbackDurations(cb))
}
