package builder

import (
	"errors"
	"slices"

	"github.com/roach88/tracegraph/internal/graph"
	"github.com/roach88/tracegraph/internal/record"
)

// buildEntities runs the construction passes. Later-layer records only
// enrich entities created from earlier layers, so the order is fixed.
func (b *builder) buildEntities() {
	b.buildContexts()
	b.buildNodes()
	b.buildCallbacks()
	b.buildPublishers()
	b.buildSubscriptions()
	b.buildTimers()
	b.buildIntraProcess()
	b.g.RebuildTopics()

	b.log.Info("built entities",
		"contexts", len(b.g.Contexts()),
		"nodes", len(b.g.Nodes()),
		"callbacks", len(b.g.Callbacks()),
		"publishers", len(b.g.Publishers()),
		"subscriptions", len(b.g.Subscriptions()),
		"timers", len(b.g.Timers()),
	)
}

// sorted returns a tracepoint's records in timestamp order.
func (b *builder) sorted(name string) []record.Record {
	recs := slices.Clone(b.recs.Get(name))
	slices.SortStableFunc(recs, func(x, y record.Record) int {
		switch {
		case x.Timestamp < y.Timestamp:
			return -1
		case x.Timestamp > y.Timestamp:
			return 1
		}
		return 0
	})
	return recs
}

// rejected files the graph error of one record, if any. A reused handle is a
// duplicate; anything else means the record points at nothing usable.
func (b *builder) rejected(pass string, r record.Record, handle uint64, err error) bool {
	if err == nil {
		return false
	}
	code := CodeDuplicateHandle
	if !errors.Is(err, graph.ErrDuplicateHandle) {
		code = CodeUnresolvedReference
	}
	b.reportRecord(code, pass, r, handle, "%v", err)
	return true
}

func (b *builder) buildContexts() {
	for _, r := range b.sorted(record.RCLInit) {
		h := b.handle(r, "context_handle")
		_, err := b.g.AddContext(graph.Context{
			Handle:  h,
			Version: b.str(r, "version"),
			Stamps:  graph.Stamps{{Stage: r.Name, Time: r.Timestamp}},
		})
		b.rejected(PassContexts, r, h, err)
	}
}

func (b *builder) buildNodes() {
	for _, r := range b.sorted(record.RCLNodeInit) {
		h := b.handle(r, "node_handle")
		_, err := b.g.AddNode(graph.Node{
			Handle:    h,
			RMWHandle: b.handle(r, "rmw_handle"),
			Name:      b.str(r, "node_name"),
			Namespace: b.str(r, "namespace"),
			Stamps:    graph.Stamps{{Stage: r.Name, Time: r.Timestamp}},
		})
		b.rejected(PassNodes, r, h, err)
	}
}

func (b *builder) buildCallbacks() {
	for _, r := range b.sorted(record.RCLCPPCallbackRegister) {
		h := b.handle(r, "callback")
		_, err := b.g.AddCallback(graph.Callback{
			Handle: h,
			Symbol: b.str(r, "symbol"),
			Stamps: graph.Stamps{{Stage: r.Name, Time: r.Timestamp}},
		})
		b.rejected(PassCallbacks, r, h, err)
	}
}

func (b *builder) buildPublishers() {
	for _, r := range b.sorted(record.RCLPublisherInit) {
		h := b.handle(r, "publisher_handle")
		nodeHandle := b.handle(r, "node_handle")
		if _, ok := b.g.NodeByHandle(nodeHandle); !ok {
			b.reportRecord(CodeUnresolvedReference, PassPublishers, r, nodeHandle, "publisher %#x references unknown node", h)
		}
		_, err := b.g.AddPublisher(graph.Publisher{Endpoint: graph.Endpoint{
			Handle:     h,
			RMWHandle:  b.handle(r, "rmw_publisher_handle"),
			NodeHandle: nodeHandle,
			TopicName:  b.str(r, "topic_name"),
			QueueDepth: b.num(r, "queue_depth"),
			Stamps:     graph.Stamps{{Stage: r.Name, Time: r.Timestamp}},
		}})
		b.rejected(PassPublishers, r, h, err)
	}

	for _, r := range b.sorted(record.RMWPublisherInit) {
		rmw := b.handle(r, "rmw_publisher_handle")
		id, ok := b.g.PublisherByRMW(rmw)
		if !ok {
			b.reportRecord(CodeUnresolvedReference, PassPublishers, r, rmw, "no publisher with middleware handle")
			continue
		}
		gid, ok := b.gid(r)
		if !ok {
			b.reportRecord(CodeUnresolvedReference, PassPublishers, r, rmw, "record carries no gid")
			continue
		}
		b.g.Publisher(id).Stamps.Add(r.Name, r.Timestamp)
		b.rejected(PassPublishers, r, rmw, b.g.SetPublisherGID(id, gid))
	}

	for _, r := range b.sorted(record.DDSCreateWriter) {
		writer := b.handle(r, "writer")
		gid, ok := b.gid(r)
		if !ok {
			b.reportRecord(CodeUnresolvedReference, PassPublishers, r, writer, "record carries no gid")
			continue
		}
		id, ok := b.g.PublisherByGID(gid)
		if !ok {
			b.reportRecord(CodeUnresolvedReference, PassPublishers, r, writer, "no publisher with gid %s", gid)
			continue
		}
		b.g.Publisher(id).Stamps.Add(r.Name, r.Timestamp)
		b.rejected(PassPublishers, r, writer, b.g.SetPublisherWriter(id, writer, b.str(r, "topic_name")))
	}
}

func (b *builder) gid(r record.Record) (graph.GID, bool) {
	raw, ok := r.Bytes("gid")
	if !ok {
		return graph.GID{}, false
	}
	return graph.GIDFromBytes(raw)
}

func (b *builder) buildSubscriptions() {
	for _, r := range b.sorted(record.RCLSubscriptionInit) {
		h := b.handle(r, "subscription_handle")
		nodeHandle := b.handle(r, "node_handle")
		if _, ok := b.g.NodeByHandle(nodeHandle); !ok {
			b.reportRecord(CodeUnresolvedReference, PassSubscriptions, r, nodeHandle, "subscription %#x references unknown node", h)
		}
		_, err := b.g.AddSubscription(graph.Subscription{Endpoint: graph.Endpoint{
			Handle:     h,
			RMWHandle:  b.handle(r, "rmw_subscription_handle"),
			NodeHandle: nodeHandle,
			TopicName:  b.str(r, "topic_name"),
			QueueDepth: b.num(r, "queue_depth"),
			Stamps:     graph.Stamps{{Stage: r.Name, Time: r.Timestamp}},
		}})
		b.rejected(PassSubscriptions, r, h, err)
	}

	for _, r := range b.sorted(record.RMWSubscriptionInit) {
		rmw := b.handle(r, "rmw_subscription_handle")
		ids := b.g.SubscriptionsByRMW(rmw)
		if len(ids) == 0 {
			b.reportRecord(CodeUnresolvedReference, PassSubscriptions, r, rmw, "no subscription with middleware handle")
			continue
		}
		gid, ok := b.gid(r)
		if !ok {
			b.reportRecord(CodeUnresolvedReference, PassSubscriptions, r, rmw, "record carries no gid")
			continue
		}
		for _, id := range ids {
			b.g.Subscription(id).Stamps.Add(r.Name, r.Timestamp)
			b.rejected(PassSubscriptions, r, rmw, b.g.SetSubscriptionGID(id, gid))
		}
	}

	for _, r := range b.sorted(record.DDSCreateReader) {
		reader := b.handle(r, "reader")
		gid, ok := b.gid(r)
		if !ok {
			b.reportRecord(CodeUnresolvedReference, PassSubscriptions, r, reader, "record carries no gid")
			continue
		}
		ids := b.g.SubscriptionsByGID(gid)
		if len(ids) == 0 {
			b.reportRecord(CodeUnresolvedReference, PassSubscriptions, r, reader, "no subscription with gid %s", gid)
			continue
		}
		for _, id := range ids {
			b.g.Subscription(id).Stamps.Add(r.Name, r.Timestamp)
			b.rejected(PassSubscriptions, r, reader, b.g.SetSubscriptionReader(id, reader, b.str(r, "topic_name")))
		}
	}

	// A second framework init with a new reference for an already referenced
	// subscription means intra-process delivery wrapped the same middleware
	// subscription again. A repeated reference is the same init seen twice.
	for _, r := range b.sorted(record.RCLCPPSubscriptionInit) {
		h := b.handle(r, "subscription_handle")
		ref := b.handle(r, "subscription")
		id, ok := b.g.SubscriptionByHandle(h)
		if !ok {
			b.reportRecord(CodeUnresolvedReference, PassSubscriptions, r, h, "no subscription with handle")
			continue
		}
		if known, ok := b.g.SubscriptionByReference(ref); ok && b.g.Subscription(known).Handle == h {
			b.log.Debug("repeated subscription init", "handle", h, "reference", ref)
			continue
		}
		if b.g.Subscription(id).HasReference {
			dup, err := b.g.DuplicateSubscription(id)
			if err != nil {
				b.reportRecord(CodeTriggerConflict, PassSubscriptions, r, h, "cannot add sibling: %v", err)
				continue
			}
			b.log.Debug("created sibling subscription", "handle", h, "reference", ref, "sibling", dup)
			id = dup
		}
		b.g.Subscription(id).Stamps.Add(r.Name, r.Timestamp)
		b.rejected(PassSubscriptions, r, ref, b.g.SetSubscriptionReference(id, ref))
	}

	for _, r := range b.sorted(record.RCLCPPSubscriptionCallbackAdded) {
		ref := b.handle(r, "subscription")
		cb := b.handle(r, "callback")
		id, ok := b.g.SubscriptionByReference(ref)
		if !ok {
			b.reportRecord(CodeUnresolvedReference, PassSubscriptions, r, ref, "no subscription with reference")
			continue
		}
		if _, ok := b.g.CallbackByHandle(cb); !ok {
			b.reportRecord(CodeUnresolvedReference, PassSubscriptions, r, cb, "callback was never registered")
		}
		b.g.Subscription(id).Stamps.Add(r.Name, r.Timestamp)
		b.rejected(PassSubscriptions, r, cb, b.g.SetSubscriptionCallback(id, cb))
	}
}

func (b *builder) buildTimers() {
	for _, r := range b.sorted(record.RCLCPPTimerLinkNode) {
		h := b.handle(r, "timer_handle")
		nodeHandle := b.handle(r, "node_handle")
		if _, ok := b.g.NodeByHandle(nodeHandle); !ok {
			b.reportRecord(CodeUnresolvedReference, PassTimers, r, nodeHandle, "timer %#x references unknown node", h)
		}
		_, err := b.g.AddTimer(graph.Timer{
			Handle:     h,
			NodeHandle: nodeHandle,
			Stamps:     graph.Stamps{{Stage: r.Name, Time: r.Timestamp}},
		})
		b.rejected(PassTimers, r, h, err)
	}

	for _, r := range b.sorted(record.RCLTimerInit) {
		h := b.handle(r, "timer_handle")
		id, ok := b.g.TimerByHandle(h)
		if !ok {
			b.reportRecord(CodeUnresolvedReference, PassTimers, r, h, "timer was never linked to a node")
			continue
		}
		t := b.g.Timer(id)
		t.Period = b.num(r, "period")
		t.Stamps.Add(r.Name, r.Timestamp)
	}

	for _, r := range b.sorted(record.RCLCPPTimerCallbackAdded) {
		h := b.handle(r, "timer_handle")
		cb := b.handle(r, "callback")
		id, ok := b.g.TimerByHandle(h)
		if !ok {
			b.reportRecord(CodeUnresolvedReference, PassTimers, r, h, "timer was never linked to a node")
			continue
		}
		if _, ok := b.g.CallbackByHandle(cb); !ok {
			b.reportRecord(CodeUnresolvedReference, PassTimers, r, cb, "callback was never registered")
		}
		b.g.Timer(id).Stamps.Add(r.Name, r.Timestamp)
		b.rejected(PassTimers, r, cb, b.g.SetTimerCallback(id, cb))
	}
}

// buildIntraProcess maps ring buffers to the subscriptions they feed:
// buffer -> interprocess buffer (ipb) -> framework subscription reference.
func (b *builder) buildIntraProcess() {
	bufferOf := map[uint64]uint64{}
	for _, r := range b.sorted(record.RCLCPPBufferToIPB) {
		bufferOf[b.handle(r, "ipb")] = b.handle(r, "buffer")
	}

	for _, r := range b.sorted(record.RCLCPPIPBToSubscription) {
		ipb := b.handle(r, "ipb")
		ref := b.handle(r, "subscription")
		buffer, ok := bufferOf[ipb]
		if !ok {
			b.reportRecord(CodeUnresolvedReference, PassIntraProcess, r, ipb, "no ring buffer for interprocess buffer")
			continue
		}
		id, ok := b.g.SubscriptionByReference(ref)
		if !ok {
			b.reportRecord(CodeUnresolvedReference, PassIntraProcess, r, ref, "no subscription with reference")
			continue
		}
		b.g.Subscription(id).Stamps.Add(r.Name, r.Timestamp)
		b.rejected(PassIntraProcess, r, buffer, b.g.SetSubscriptionBuffer(id, buffer, ipb))
	}
}
