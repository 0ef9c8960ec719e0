package builder

import (
	"cmp"
	"errors"
	"slices"

	"github.com/roach88/tracegraph/internal/graph"
)

func (b *builder) associate() {
	if b.opts.associateTimers() {
		b.associateTimerCallbacks()
	}
	if b.opts.associateSubscriptionCallbacks() {
		b.associateSubscriptionCallbacks()
	}
	if b.opts.associatePublishSubscribe() {
		b.associatePublishSubscribe()
	}
	if b.opts.associateTimerPublishes() || b.opts.associateSubscriptionPublishes() {
		b.associatePublishCallbacks()
	}
}

// link sets an event trigger and reports a conflict instead of failing.
func (b *builder) link(pass string, ev graph.EventID, trigger graph.Ref) bool {
	err := b.g.SetTrigger(ev, trigger)
	if err == nil {
		return true
	}
	code := CodeTriggerConflict
	if errors.Is(err, graph.ErrSelfTrigger) {
		code = CodeInvariantViolation
	}
	b.reportf(code, pass, 0, "%v", err)
	return false
}

func (b *builder) source(pass string, ev graph.EventID, src graph.Ref) {
	if err := b.g.SetSource(ev, src); err != nil {
		b.reportf(CodeTriggerConflict, pass, 0, "%v", err)
	}
}

func (b *builder) callbackSource(pass string, cb graph.CallbackID, src graph.Ref) {
	if err := b.g.SetCallbackSource(cb, src); err != nil {
		b.reportf(CodeTriggerConflict, pass, b.g.Callback(cb).Handle, "%v", err)
	}
}

// associateTimerCallbacks makes every timer invocation a causal root: its
// source and trigger are both the timer.
func (b *builder) associateTimerCallbacks() {
	linked := 0
	for _, t := range b.g.Timers() {
		cb := b.g.Callback(t.Callback)
		if cb == nil {
			continue
		}
		ref := graph.TimerRef(t.ID)
		b.callbackSource(PassTimerCallbacks, cb.ID, ref)
		for _, ev := range cb.Events {
			b.source(PassTimerCallbacks, ev, ref)
			if b.link(PassTimerCallbacks, ev, ref) {
				linked++
			}
		}
	}
	b.log.Info("associated timer callbacks", "linked", linked)
}

// associateSubscriptionCallbacks zips each subscription's takes with its
// callback's invocations positionally: the Nth take fed the Nth invocation.
func (b *builder) associateSubscriptionCallbacks() {
	linked := 0
	for _, sub := range b.g.Subscriptions() {
		cb := b.g.Callback(sub.Callback)
		if cb == nil {
			if len(sub.Events) > 0 {
				b.reportf(CodeUnresolvedReference, PassSubscriptionCallbacks, sub.Handle,
					"subscription %s has %d takes but no callback", sub.Topic, len(sub.Events))
			}
			continue
		}
		ref := graph.SubscriptionRef(sub.ID)
		b.callbackSource(PassSubscriptionCallbacks, cb.ID, ref)

		takes, calls := len(sub.Events), len(cb.Events)
		if takes == 0 || calls == 0 {
			if takes == calls {
				continue
			}
			if sib := b.g.Subscription(sub.Sibling()); sib != nil && len(sib.Events) > 0 {
				b.log.Debug("subscription traffic went through its sibling",
					"topic", sub.Topic, "handle", sub.Handle, "takes", takes, "calls", calls)
				continue
			}
			b.reportf(CodeAssociationCountMismatch, PassSubscriptionCallbacks, sub.Handle,
				"subscription %s has %d takes and %d callback invocations", sub.Topic, takes, calls)
			continue
		}
		if takes != calls {
			b.reportf(CodeAssociationCountMismatch, PassSubscriptionCallbacks, sub.Handle,
				"subscription %s has %d takes and %d callback invocations; linking the first %d",
				sub.Topic, takes, calls, min(takes, calls))
		}

		for i := range min(takes, calls) {
			b.source(PassSubscriptionCallbacks, cb.Events[i], ref)
			if b.link(PassSubscriptionCallbacks, cb.Events[i], graph.EventRef(sub.Events[i])) {
				linked++
			}
		}
	}
	b.log.Info("associated subscription callbacks", "linked", linked)
}

// pubsubItem is one entry of the merged publish/take sequence of a topic.
type pubsubItem struct {
	event   graph.EventID
	key     int64
	time    int64
	publish bool
}

func comparePubSub(x, y pubsubItem) int {
	if c := cmp.Compare(x.key, y.key); c != 0 {
		return c
	}
	if c := cmp.Compare(x.time, y.time); c != 0 {
		return c
	}
	switch {
	case x.publish && !y.publish:
		return -1
	case !x.publish && y.publish:
		return 1
	}
	return 0
}

// matchPubSub walks a merged sequence keeping the latest publication as
// outstanding. A take with the outstanding key is linked to it; any other
// take clears it.
func (b *builder) matchPubSub(items []pubsubItem) int {
	slices.SortStableFunc(items, comparePubSub)
	linked := 0
	var outstanding *pubsubItem
	for i := range items {
		it := &items[i]
		if it.publish {
			outstanding = it
			continue
		}
		if outstanding != nil && outstanding.key == it.key {
			if b.link(PassPublishSubscribe, it.event, graph.EventRef(outstanding.event)) {
				linked++
			}
			continue
		}
		outstanding = nil
	}
	return linked
}

// associatePublishSubscribe links takes to the publications they received,
// per topic and per (publisher, subscription) pair. Inter-process traffic is
// matched on the wire timestamp; intra-process traffic per ring buffer on the
// slot index.
func (b *builder) associatePublishSubscribe() {
	linked := 0
	for _, topic := range b.g.Topics() {
		if len(topic.Publishers) == 0 || len(topic.Subscriptions) == 0 {
			continue
		}
		for _, subID := range topic.Subscriptions {
			sub := b.g.Subscription(subID)
			if len(sub.Events) == 0 {
				continue
			}
			for _, pubID := range topic.Publishers {
				pub := b.g.Publisher(pubID)
				if len(pub.Events) == 0 {
					continue
				}
				linked += b.matchPubSub(b.interItems(pub, sub))
				if sub.BufferHandle != 0 {
					linked += b.matchPubSub(b.intraItems(pub, sub))
				}
			}
		}
	}
	b.log.Info("associated publications with takes", "linked", linked)
}

func (b *builder) interItems(pub *graph.Publisher, sub *graph.Subscription) []pubsubItem {
	var items []pubsubItem
	for _, id := range pub.Events {
		if p, ok := b.g.Event(id).Payload.(*graph.PublishEvent); ok {
			items = append(items, pubsubItem{event: id, key: p.WireTimestamp, publish: true})
		}
	}
	for _, id := range sub.Events {
		if s, ok := b.g.Event(id).Payload.(*graph.SubscriptionEvent); ok {
			items = append(items, pubsubItem{event: id, key: s.SourceTimestamp})
		}
	}
	return items
}

func (b *builder) intraItems(pub *graph.Publisher, sub *graph.Subscription) []pubsubItem {
	var items []pubsubItem
	for _, id := range pub.Events {
		ev := b.g.Event(id)
		p, ok := ev.Payload.(*graph.IntraPublishEvent)
		if !ok {
			continue
		}
		for _, slot := range p.Slots {
			if slot.Buffer == sub.BufferHandle {
				items = append(items, pubsubItem{event: id, key: slot.Index, time: ev.Earliest(), publish: true})
			}
		}
	}
	for _, id := range sub.Events {
		ev := b.g.Event(id)
		if s, ok := ev.Payload.(*graph.IntraSubscriptionEvent); ok && s.Slot.Buffer == sub.BufferHandle {
			items = append(items, pubsubItem{event: id, key: s.Slot.Index, time: ev.Earliest()})
		}
	}
	return items
}

// associatePublishCallbacks links each publish to the timer or subscription
// callback invocation on the same node whose [start, end) interval contains
// it. Both lists are sorted, so a two-pointer merge suffices.
func (b *builder) associatePublishCallbacks() {
	linked := 0
	for _, node := range b.g.Nodes() {
		var callbacks []graph.CallbackID
		seen := map[graph.CallbackID]bool{}
		addCallback := func(id graph.CallbackID) {
			if id.Valid() && !seen[id] {
				seen[id] = true
				callbacks = append(callbacks, id)
			}
		}
		if b.opts.associateTimerPublishes() {
			for _, id := range node.Timers {
				addCallback(b.g.Timer(id).Callback)
			}
		}
		if b.opts.associateSubscriptionPublishes() {
			for _, id := range node.Subscriptions {
				addCallback(b.g.Subscription(id).Callback)
			}
		}

		for _, pubID := range node.Publishers {
			pub := b.g.Publisher(pubID)
			for _, cbID := range callbacks {
				linked += b.mergePublishCallback(pub.Events, b.g.Callback(cbID).Events)
			}
		}
	}
	b.log.Info("associated publications with callbacks", "linked", linked)
}

func (b *builder) mergePublishCallback(pubs, calls []graph.EventID) int {
	linked := 0
	i, j := 0, 0
	for i < len(pubs) && j < len(calls) {
		pub := b.g.Event(pubs[i])
		call := b.g.Event(calls[j]).Payload.(*graph.CallbackEvent)
		t := pub.Earliest()

		switch {
		case t < call.Start:
			i++
		case call.End <= t:
			j++
		default:
			if pt := payloadThread(pub.Payload); pt == 0 || call.Thread == 0 || pt == call.Thread {
				if b.link(PassPublishCallbacks, pub.ID, graph.EventRef(calls[j])) {
					linked++
				}
			}
			i++
		}
	}
	return linked
}

func payloadThread(p graph.Payload) int64 {
	switch v := p.(type) {
	case *graph.CallbackEvent:
		return v.Thread
	case *graph.PublishEvent:
		return v.Thread
	case *graph.IntraPublishEvent:
		return v.Thread
	case *graph.SubscriptionEvent:
		return v.Thread
	case *graph.IntraSubscriptionEvent:
		return v.Thread
	}
	return 0
}
