package graph

import (
	"slices"
	"strings"
)

func (g *Graph) Context(id ContextID) *Context                { return g.contexts.get(id) }
func (g *Graph) Node(id NodeID) *Node                         { return g.nodes.get(id) }
func (g *Graph) Callback(id CallbackID) *Callback             { return g.callbacks.get(id) }
func (g *Graph) Publisher(id PublisherID) *Publisher          { return g.publishers.get(id) }
func (g *Graph) Subscription(id SubscriptionID) *Subscription { return g.subscriptions.get(id) }
func (g *Graph) Timer(id TimerID) *Timer                      { return g.timers.get(id) }
func (g *Graph) Event(id EventID) *Event                      { return g.events.get(id) }

func (g *Graph) Contexts() []*Context           { return g.contexts.all() }
func (g *Graph) Nodes() []*Node                 { return g.nodes.all() }
func (g *Graph) Callbacks() []*Callback         { return g.callbacks.all() }
func (g *Graph) Publishers() []*Publisher       { return g.publishers.all() }
func (g *Graph) Subscriptions() []*Subscription { return g.subscriptions.all() }
func (g *Graph) Timers() []*Timer               { return g.timers.all() }

// EventCount returns the number of composite events in the graph.
func (g *Graph) EventCount() int { return g.events.len() }

func lookup[K comparable, V any](m map[K]V, k K) (V, bool) {
	v, ok := m[k]
	return v, ok
}

func first[K comparable, V any](m map[K][]V, k K) (V, bool) {
	vs := m[k]
	if len(vs) == 0 {
		var zero V
		return zero, false
	}
	return vs[0], true
}

func (g *Graph) ContextByHandle(h uint64) (ContextID, bool)   { return lookup(g.contextByHandle, h) }
func (g *Graph) NodeByHandle(h uint64) (NodeID, bool)         { return lookup(g.nodeByHandle, h) }
func (g *Graph) CallbackByHandle(h uint64) (CallbackID, bool) { return lookup(g.callbackByHandle, h) }
func (g *Graph) TimerByHandle(h uint64) (TimerID, bool)       { return lookup(g.timerByHandle, h) }

func (g *Graph) PublisherByHandle(h uint64) (PublisherID, bool) {
	return lookup(g.publisherByHandle, h)
}

func (g *Graph) PublisherByRMW(h uint64) (PublisherID, bool) { return lookup(g.publisherByRMW, h) }
func (g *Graph) PublisherByGID(gid GID) (PublisherID, bool)  { return lookup(g.publisherByGID, gid) }

func (g *Graph) PublisherByWriter(writer uint64) (PublisherID, bool) {
	return lookup(g.publisherByWriter, writer)
}

func (g *Graph) SubscriptionByHandle(h uint64) (SubscriptionID, bool) {
	return lookup(g.subscriptionByHandle, h)
}

func (g *Graph) SubscriptionByReference(ref uint64) (SubscriptionID, bool) {
	return lookup(g.subscriptionByReference, ref)
}

// SubscriptionByRMW returns the primary (first built) subscription wrapping a
// middleware handle. Siblings share the handle; see SubscriptionsByRMW.
func (g *Graph) SubscriptionByRMW(h uint64) (SubscriptionID, bool) {
	return first(g.subscriptionsByRMW, h)
}

func (g *Graph) SubscriptionsByRMW(h uint64) []SubscriptionID {
	return slices.Clone(g.subscriptionsByRMW[h])
}

func (g *Graph) SubscriptionsByGID(gid GID) []SubscriptionID {
	return slices.Clone(g.subscriptionsByGID[gid])
}

func (g *Graph) SubscriptionsByReader(reader uint64) []SubscriptionID {
	return slices.Clone(g.subscriptionsByReader[reader])
}

func (g *Graph) SubscriptionsByBuffer(buffer uint64) []SubscriptionID {
	return slices.Clone(g.subscriptionsByBuffer[buffer])
}

func (g *Graph) SubscriptionsByIPB(ipb uint64) []SubscriptionID {
	return slices.Clone(g.subscriptionsByIPB[ipb])
}

// NodesByName returns the nodes whose fully qualified name contains substr,
// in creation order.
func (g *Graph) NodesByName(substr string) []*Node {
	var out []*Node
	for _, n := range g.nodes.items {
		if strings.Contains(n.FullName(), substr) {
			out = append(out, n)
		}
	}
	return out
}

// NodeOf returns the node owning an event's source, or nil.
func (g *Graph) NodeOf(ev *Event) *Node {
	src := ev.source
	if src.IsZero() {
		if cb, ok := ev.Payload.(*CallbackEvent); ok {
			if c := g.callbacks.get(cb.Callback); c != nil {
				src = c.source
			}
		}
	}
	switch src.Kind {
	case RefTimer:
		if t := g.timers.get(TimerID(src.ID)); t != nil {
			return g.nodes.get(t.Node)
		}
	case RefSubscription:
		if s := g.subscriptions.get(SubscriptionID(src.ID)); s != nil {
			return g.nodes.get(s.Node)
		}
	case RefPublisher:
		if p := g.publishers.get(PublisherID(src.ID)); p != nil {
			return g.nodes.get(p.Node)
		}
	}
	return nil
}
