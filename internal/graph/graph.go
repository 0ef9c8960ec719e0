package graph

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
)

// Sentinel errors returned by the mutators. Callers match them with
// errors.Is.
var (
	ErrDuplicateHandle = errors.New("handle already registered")
	ErrUnknownEntity   = errors.New("unknown entity")
	ErrSelfTrigger     = errors.New("event cannot trigger itself")
	ErrTriggerConflict = errors.New("trigger already set")
	ErrSourceConflict  = errors.New("source already set")
	ErrSiblingConflict = errors.New("sibling already set")
)

// Graph owns every entity and event of one capture.
type Graph struct {
	contexts      arena[Context]
	nodes         arena[Node]
	callbacks     arena[Callback]
	publishers    arena[Publisher]
	subscriptions arena[Subscription]
	timers        arena[Timer]
	events        arena[Event]

	topics map[string]*Topic

	contextByHandle  map[uint64]ContextID
	nodeByHandle     map[uint64]NodeID
	callbackByHandle map[uint64]CallbackID
	timerByHandle    map[uint64]TimerID

	publisherByHandle map[uint64]PublisherID
	publisherByRMW    map[uint64]PublisherID
	publisherByGID    map[GID]PublisherID
	publisherByWriter map[uint64]PublisherID

	subscriptionByHandle    map[uint64]SubscriptionID
	subscriptionByReference map[uint64]SubscriptionID
	subscriptionsByRMW      map[uint64][]SubscriptionID
	subscriptionsByGID      map[GID][]SubscriptionID
	subscriptionsByReader   map[uint64][]SubscriptionID
	subscriptionsByBuffer   map[uint64][]SubscriptionID
	subscriptionsByIPB      map[uint64][]SubscriptionID

	// Discarded is the tracer-reported lost event count of the capture.
	Discarded uint64
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		topics:                  map[string]*Topic{},
		contextByHandle:         map[uint64]ContextID{},
		nodeByHandle:            map[uint64]NodeID{},
		callbackByHandle:        map[uint64]CallbackID{},
		timerByHandle:           map[uint64]TimerID{},
		publisherByHandle:       map[uint64]PublisherID{},
		publisherByRMW:          map[uint64]PublisherID{},
		publisherByGID:          map[GID]PublisherID{},
		publisherByWriter:       map[uint64]PublisherID{},
		subscriptionByHandle:    map[uint64]SubscriptionID{},
		subscriptionByReference: map[uint64]SubscriptionID{},
		subscriptionsByRMW:      map[uint64][]SubscriptionID{},
		subscriptionsByGID:      map[GID][]SubscriptionID{},
		subscriptionsByReader:   map[uint64][]SubscriptionID{},
		subscriptionsByBuffer:   map[uint64][]SubscriptionID{},
		subscriptionsByIPB:      map[uint64][]SubscriptionID{},
	}
}

// AddContext registers a process context.
func (g *Graph) AddContext(c Context) (ContextID, error) {
	if id, ok := g.contextByHandle[c.Handle]; ok {
		return id, fmt.Errorf("context %#x: %w", c.Handle, ErrDuplicateHandle)
	}
	c.ID = ContextID(g.contexts.len() + 1)
	id := g.contexts.add(&c)
	g.contextByHandle[c.Handle] = id
	return id, nil
}

// AddNode registers a node.
func (g *Graph) AddNode(n Node) (NodeID, error) {
	if id, ok := g.nodeByHandle[n.Handle]; ok {
		return id, fmt.Errorf("node %#x: %w", n.Handle, ErrDuplicateHandle)
	}
	n.ID = NodeID(g.nodes.len() + 1)
	id := g.nodes.add(&n)
	g.nodeByHandle[n.Handle] = id
	return id, nil
}

// AddCallback registers a callback.
func (g *Graph) AddCallback(c Callback) (CallbackID, error) {
	if id, ok := g.callbackByHandle[c.Handle]; ok {
		return id, fmt.Errorf("callback %#x: %w", c.Handle, ErrDuplicateHandle)
	}
	c.ID = CallbackID(g.callbacks.len() + 1)
	c.source = Ref{}
	id := g.callbacks.add(&c)
	g.callbackByHandle[c.Handle] = id
	return id, nil
}

// AddPublisher registers a publisher and attaches it to its node when the
// node is known.
func (g *Graph) AddPublisher(p Publisher) (PublisherID, error) {
	if id, ok := g.publisherByHandle[p.Handle]; ok {
		return id, fmt.Errorf("publisher %#x: %w", p.Handle, ErrDuplicateHandle)
	}
	p.ID = PublisherID(g.publishers.len() + 1)
	p.Node, _ = g.NodeByHandle(p.NodeHandle)
	id := g.publishers.add(&p)
	g.publisherByHandle[p.Handle] = id
	if p.RMWHandle != 0 {
		g.publisherByRMW[p.RMWHandle] = id
	}
	if n := g.nodes.get(p.Node); n != nil {
		n.Publishers = append(n.Publishers, id)
	}
	return id, nil
}

// AddSubscription registers a subscription and attaches it to its node when
// the node is known.
func (g *Graph) AddSubscription(s Subscription) (SubscriptionID, error) {
	if id, ok := g.subscriptionByHandle[s.Handle]; ok {
		return id, fmt.Errorf("subscription %#x: %w", s.Handle, ErrDuplicateHandle)
	}
	s.ID = SubscriptionID(g.subscriptions.len() + 1)
	s.Node, _ = g.NodeByHandle(s.NodeHandle)
	s.sibling = 0
	id := g.subscriptions.add(&s)
	g.subscriptionByHandle[s.Handle] = id
	g.indexSubscription(&s)
	if n := g.nodes.get(s.Node); n != nil {
		n.Subscriptions = append(n.Subscriptions, id)
	}
	return id, nil
}

func (g *Graph) indexSubscription(s *Subscription) {
	if s.RMWHandle != 0 {
		g.subscriptionsByRMW[s.RMWHandle] = append(g.subscriptionsByRMW[s.RMWHandle], s.ID)
	}
	if s.HasGID {
		g.subscriptionsByGID[s.GID] = append(g.subscriptionsByGID[s.GID], s.ID)
	}
	if s.DDSHandle != 0 {
		g.subscriptionsByReader[s.DDSHandle] = append(g.subscriptionsByReader[s.DDSHandle], s.ID)
	}
	if s.HasReference {
		g.subscriptionByReference[s.Reference] = s.ID
	}
}

// AddTimer registers a timer and attaches it to its node when the node is
// known.
func (g *Graph) AddTimer(t Timer) (TimerID, error) {
	if id, ok := g.timerByHandle[t.Handle]; ok {
		return id, fmt.Errorf("timer %#x: %w", t.Handle, ErrDuplicateHandle)
	}
	t.ID = TimerID(g.timers.len() + 1)
	t.Node, _ = g.NodeByHandle(t.NodeHandle)
	id := g.timers.add(&t)
	g.timerByHandle[t.Handle] = id
	if n := g.nodes.get(t.Node); n != nil {
		n.Timers = append(n.Timers, id)
	}
	return id, nil
}

// SetPublisherGID records the middleware-layer GID of a publisher.
func (g *Graph) SetPublisherGID(id PublisherID, gid GID) error {
	p := g.publishers.get(id)
	if p == nil {
		return fmt.Errorf("publisher %d: %w", id, ErrUnknownEntity)
	}
	p.GID, p.HasGID = gid, true
	g.publisherByGID[gid] = id
	return nil
}

// SetPublisherWriter records the wire-layer writer of a publisher.
func (g *Graph) SetPublisherWriter(id PublisherID, writer uint64, ddsTopic string) error {
	p := g.publishers.get(id)
	if p == nil {
		return fmt.Errorf("publisher %d: %w", id, ErrUnknownEntity)
	}
	p.DDSHandle, p.DDSTopicName = writer, ddsTopic
	g.publisherByWriter[writer] = id
	return nil
}

// SetSubscriptionGID records the middleware-layer GID of a subscription.
func (g *Graph) SetSubscriptionGID(id SubscriptionID, gid GID) error {
	s := g.subscriptions.get(id)
	if s == nil {
		return fmt.Errorf("subscription %d: %w", id, ErrUnknownEntity)
	}
	if s.HasGID && s.GID == gid {
		return nil
	}
	s.GID, s.HasGID = gid, true
	g.subscriptionsByGID[gid] = append(g.subscriptionsByGID[gid], id)
	return nil
}

// SetSubscriptionReader records the wire-layer reader of a subscription.
func (g *Graph) SetSubscriptionReader(id SubscriptionID, reader uint64, ddsTopic string) error {
	s := g.subscriptions.get(id)
	if s == nil {
		return fmt.Errorf("subscription %d: %w", id, ErrUnknownEntity)
	}
	if s.DDSHandle == reader {
		s.DDSTopicName = ddsTopic
		return nil
	}
	s.DDSHandle, s.DDSTopicName = reader, ddsTopic
	g.subscriptionsByReader[reader] = append(g.subscriptionsByReader[reader], id)
	return nil
}

// SetSubscriptionReference records the framework-level reference of a
// subscription.
func (g *Graph) SetSubscriptionReference(id SubscriptionID, ref uint64) error {
	s := g.subscriptions.get(id)
	if s == nil {
		return fmt.Errorf("subscription %d: %w", id, ErrUnknownEntity)
	}
	s.Reference, s.HasReference = ref, true
	g.subscriptionByReference[ref] = id
	return nil
}

// SetSubscriptionCallback links a subscription to its callback handle and,
// when registered, the callback entity.
func (g *Graph) SetSubscriptionCallback(id SubscriptionID, handle uint64) error {
	s := g.subscriptions.get(id)
	if s == nil {
		return fmt.Errorf("subscription %d: %w", id, ErrUnknownEntity)
	}
	s.CallbackHandle = handle
	s.Callback, _ = g.CallbackByHandle(handle)
	return nil
}

// SetSubscriptionBuffer records the intra-process ring buffer feeding a
// subscription.
func (g *Graph) SetSubscriptionBuffer(id SubscriptionID, buffer, ipb uint64) error {
	s := g.subscriptions.get(id)
	if s == nil {
		return fmt.Errorf("subscription %d: %w", id, ErrUnknownEntity)
	}
	s.BufferHandle, s.IPBHandle = buffer, ipb
	g.subscriptionsByBuffer[buffer] = append(g.subscriptionsByBuffer[buffer], id)
	g.subscriptionsByIPB[ipb] = append(g.subscriptionsByIPB[ipb], id)
	return nil
}

// SetTimerCallback links a timer to its callback handle and, when registered,
// the callback entity.
func (g *Graph) SetTimerCallback(id TimerID, handle uint64) error {
	t := g.timers.get(id)
	if t == nil {
		return fmt.Errorf("timer %d: %w", id, ErrUnknownEntity)
	}
	t.CallbackHandle = handle
	t.Callback, _ = g.CallbackByHandle(handle)
	return nil
}

// DuplicateSubscription deep-copies an already built subscription into a new
// sibling that shares every middleware and wire-layer field but has its own
// reference, callback and event list. Both are cross-linked as siblings.
func (g *Graph) DuplicateSubscription(id SubscriptionID) (SubscriptionID, error) {
	orig := g.subscriptions.get(id)
	if orig == nil {
		return 0, fmt.Errorf("subscription %d: %w", id, ErrUnknownEntity)
	}
	if orig.sibling.Valid() {
		return 0, fmt.Errorf("subscription %d: %w", id, ErrSiblingConflict)
	}

	dup := *orig
	dup.ID = SubscriptionID(g.subscriptions.len() + 1)
	dup.Stamps = orig.Stamps.Clone()
	dup.Events = nil
	dup.Reference, dup.HasReference = 0, false
	dup.Callback, dup.CallbackHandle = 0, 0
	dup.BufferHandle, dup.IPBHandle = 0, 0
	dup.sibling = 0
	newID := g.subscriptions.add(&dup)
	g.indexSubscription(&dup)
	if n := g.nodes.get(dup.Node); n != nil {
		n.Subscriptions = append(n.Subscriptions, newID)
	}
	if err := g.LinkSiblings(id, newID); err != nil {
		return newID, err
	}
	return newID, nil
}

// LinkSiblings cross-links two subscriptions wrapping the same middleware
// object.
func (g *Graph) LinkSiblings(a, b SubscriptionID) error {
	sa, sb := g.subscriptions.get(a), g.subscriptions.get(b)
	if sa == nil || sb == nil {
		return fmt.Errorf("siblings %d/%d: %w", a, b, ErrUnknownEntity)
	}
	if (sa.sibling.Valid() && sa.sibling != b) || (sb.sibling.Valid() && sb.sibling != a) {
		return fmt.Errorf("siblings %d/%d: %w", a, b, ErrSiblingConflict)
	}
	sa.sibling, sb.sibling = b, a
	return nil
}

// AddEvent stores an event and appends it to its owning entity's event list.
// Publish and take events get their endpoint as source immediately; callback
// events stay unsourced until association.
func (g *Graph) AddEvent(stamps Stamps, p Payload) (EventID, error) {
	ev := &Event{Stamps: stamps, Payload: p}
	ev.ID = EventID(g.events.len() + 1)

	var owner *[]EventID
	switch v := p.(type) {
	case *CallbackEvent:
		c := g.callbacks.get(v.Callback)
		if c == nil {
			return 0, fmt.Errorf("callback %d: %w", v.Callback, ErrUnknownEntity)
		}
		owner = &c.Events
	case *PublishEvent:
		pub := g.publishers.get(v.Publisher)
		if pub == nil {
			return 0, fmt.Errorf("publisher %d: %w", v.Publisher, ErrUnknownEntity)
		}
		owner, ev.source = &pub.Events, PublisherRef(v.Publisher)
	case *IntraPublishEvent:
		pub := g.publishers.get(v.Publisher)
		if pub == nil {
			return 0, fmt.Errorf("publisher %d: %w", v.Publisher, ErrUnknownEntity)
		}
		owner, ev.source = &pub.Events, PublisherRef(v.Publisher)
	case *SubscriptionEvent:
		sub := g.subscriptions.get(v.Subscription)
		if sub == nil {
			return 0, fmt.Errorf("subscription %d: %w", v.Subscription, ErrUnknownEntity)
		}
		owner, ev.source = &sub.Events, SubscriptionRef(v.Subscription)
	case *IntraSubscriptionEvent:
		sub := g.subscriptions.get(v.Subscription)
		if sub == nil {
			return 0, fmt.Errorf("subscription %d: %w", v.Subscription, ErrUnknownEntity)
		}
		owner, ev.source = &sub.Events, SubscriptionRef(v.Subscription)
	default:
		return 0, fmt.Errorf("unsupported payload %T", p)
	}

	id := g.events.add(ev)
	*owner = append(*owner, id)
	return id, nil
}

// SortEvents orders every entity's event list by earliest stamp. Ties keep
// creation order.
func (g *Graph) SortEvents() {
	byEarliest := func(a, b EventID) int {
		if c := cmp.Compare(g.events.get(a).Earliest(), g.events.get(b).Earliest()); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	}
	for _, c := range g.callbacks.items {
		slices.SortFunc(c.Events, byEarliest)
	}
	for _, p := range g.publishers.items {
		slices.SortFunc(p.Events, byEarliest)
	}
	for _, s := range g.subscriptions.items {
		slices.SortFunc(s.Events, byEarliest)
	}
}

// SetTrigger sets the causal predecessor of an event. Setting the same
// trigger twice is a no-op; setting a different one fails.
func (g *Graph) SetTrigger(id EventID, trigger Ref) error {
	ev := g.events.get(id)
	if ev == nil {
		return fmt.Errorf("event %d: %w", id, ErrUnknownEntity)
	}
	if other, ok := trigger.Event(); ok && other == id {
		return fmt.Errorf("event %d: %w", id, ErrSelfTrigger)
	}
	if ev.trigger == trigger {
		return nil
	}
	if !ev.trigger.IsZero() {
		return fmt.Errorf("event %d has %s, refusing %s: %w", id, ev.trigger, trigger, ErrTriggerConflict)
	}
	ev.trigger = trigger
	return nil
}

// SetSource sets the emitting entity of an event, write-once.
func (g *Graph) SetSource(id EventID, source Ref) error {
	ev := g.events.get(id)
	if ev == nil {
		return fmt.Errorf("event %d: %w", id, ErrUnknownEntity)
	}
	if ev.source == source {
		return nil
	}
	if !ev.source.IsZero() {
		return fmt.Errorf("event %d has %s, refusing %s: %w", id, ev.source, source, ErrSourceConflict)
	}
	ev.source = source
	return nil
}

// SetCallbackSource sets the timer or subscription owning a callback,
// write-once.
func (g *Graph) SetCallbackSource(id CallbackID, source Ref) error {
	c := g.callbacks.get(id)
	if c == nil {
		return fmt.Errorf("callback %d: %w", id, ErrUnknownEntity)
	}
	if c.source == source {
		return nil
	}
	if !c.source.IsZero() {
		return fmt.Errorf("callback %d has %s, refusing %s: %w", id, c.source, source, ErrSourceConflict)
	}
	c.source = source
	return nil
}
