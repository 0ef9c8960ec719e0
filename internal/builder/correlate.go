package builder

import (
	"cmp"
	"slices"

	"github.com/roach88/tracegraph/internal/graph"
	"github.com/roach88/tracegraph/internal/record"
)

// Layer ranks of one logical call, application side first.
const (
	layerFramework = iota
	layerMiddleware
	layerTransport
	layerWire
)

// layerSpec says which record type sits at which layer and which field
// carries the message handle used to group a call's fragments.
type layerSpec struct {
	name  string
	key   string
	layer int
}

var publishLayers = []layerSpec{
	{record.RCLCPPPublish, "message", layerFramework},
	{record.RCLPublish, "message", layerMiddleware},
	{record.RMWPublish, "message", layerTransport},
	{record.DDSWrite, "data", layerWire},
}

var takeLayers = []layerSpec{
	{record.RCLCPPTake, "message", layerFramework},
	{record.RCLTake, "message", layerMiddleware},
	{record.RMWTake, "message", layerTransport},
	{record.DDSRead, "buffer", layerWire},
}

type layered struct {
	rec   record.Record
	layer int
	used  bool
}

// groupKey adds the thread to the message handle so a reused message
// address on another thread starts a separate group.
type groupKey struct {
	handle uint64
	thread int64
}

func (b *builder) buildEvents() {
	if b.opts.CallbackEvents {
		b.buildCallbackEvents()
	}
	if b.opts.PublishEvents {
		b.buildPublishEvents()
		b.buildIntraPublishEvents()
	}
	if b.opts.SubscriptionEvents {
		b.buildSubscriptionEvents()
		b.buildIntraSubscriptionEvents()
	}
	b.g.SortEvents()
	b.log.Info("correlated events", "events", b.g.EventCount())
}

// groupLayers buckets the records of one call type by groupKey, in first-seen
// order. Each bucket is sorted by time (newest first when descending) with
// ties broken by layer.
func (b *builder) groupLayers(specs []layerSpec, descending bool) [][]*layered {
	var order []groupKey
	groups := map[groupKey][]*layered{}
	for _, ls := range specs {
		for _, r := range b.recs.Get(ls.name) {
			key := groupKey{handle: b.handle(r, ls.key), thread: r.Thread()}
			if _, ok := groups[key]; !ok {
				order = append(order, key)
			}
			groups[key] = append(groups[key], &layered{rec: r, layer: ls.layer})
		}
	}

	out := make([][]*layered, 0, len(order))
	for _, key := range order {
		group := groups[key]
		slices.SortStableFunc(group, func(x, y *layered) int {
			if c := cmp.Compare(x.rec.Timestamp, y.rec.Timestamp); c != 0 {
				if descending {
					return -c
				}
				return c
			}
			return cmp.Compare(x.layer, y.layer)
		})
		out = append(out, group)
	}
	return out
}

// pairLayers runs the layer state machine over one group. An attempt opens
// on an unused record of the start layer and absorbs records of strictly
// deeper layers until the wire layer closes it. A repeat of a layer the open
// attempt already holds is a duplicate and is skipped, as is a copy of a
// record in the attempt that just closed. Any other record that does not go
// deeper ends the open attempt as incomplete and is then considered on its
// own. Records outside every attempt stay unused for a later pass.
func pairLayers(group []*layered, start int, complete, incomplete func(parts []*layered)) {
	var open, closed []*layered
	finish := func(done bool) {
		for _, p := range open {
			p.used = true
		}
		if done {
			complete(open)
		} else {
			incomplete(open)
		}
		closed, open = open, nil
	}

	for _, l := range group {
		if l.used {
			continue
		}
		if open != nil {
			if holdsLayer(open, l) {
				l.used = true
				continue
			}
			if l.layer > open[len(open)-1].layer {
				open = append(open, l)
				if l.layer == layerWire {
					finish(true)
				}
				continue
			}
			finish(false)
		}
		if holdsCopy(closed, l) {
			l.used = true
			continue
		}
		if l.layer == start {
			open = []*layered{l}
		}
	}
	if open != nil {
		finish(false)
	}
}

func holdsLayer(parts []*layered, l *layered) bool {
	for _, p := range parts {
		if p.layer == l.layer {
			return true
		}
	}
	return false
}

func holdsCopy(parts []*layered, l *layered) bool {
	for _, p := range parts {
		if p.layer == l.layer && p.rec.Timestamp == l.rec.Timestamp {
			return true
		}
	}
	return false
}

func countUnused(groups [][]*layered) int {
	n := 0
	for _, group := range groups {
		for _, l := range group {
			if !l.used {
				n++
			}
		}
	}
	return n
}

func (b *builder) buildCallbackEvents() {
	type mark struct {
		rec   record.Record
		start bool
	}
	var order []uint64
	groups := map[uint64][]mark{}
	collect := func(name string, start bool) {
		for _, r := range b.recs.Get(name) {
			h := b.handle(r, "callback")
			if _, ok := groups[h]; !ok {
				order = append(order, h)
			}
			groups[h] = append(groups[h], mark{rec: r, start: start})
		}
	}
	collect(record.CallbackStart, true)
	collect(record.CallbackEnd, false)

	built := 0
	for _, h := range order {
		marks := groups[h]
		slices.SortStableFunc(marks, func(x, y mark) int {
			if c := cmp.Compare(x.rec.Timestamp, y.rec.Timestamp); c != 0 {
				return c
			}
			switch {
			case x.start && !y.start:
				return -1
			case !x.start && y.start:
				return 1
			}
			return 0
		})

		cbID, ok := b.g.CallbackByHandle(h)
		if !ok {
			b.reportRecord(CodeUnresolvedReference, PassCallbackEvents, marks[0].rec, h,
				"%d records reference an unregistered callback", len(marks))
			continue
		}

		var open *record.Record
		for _, m := range marks {
			r := m.rec
			if m.start {
				if open != nil {
					b.reportRecord(CodePairingMismatch, PassCallbackEvents, *open, h, "callback started again at %d before ending", r.Timestamp)
				}
				open = &r
				continue
			}
			if open == nil {
				b.reportRecord(CodePairingMismatch, PassCallbackEvents, r, h, "callback end without a start")
				continue
			}
			if st, et := open.Thread(), r.Thread(); st != 0 && et != 0 && st != et {
				b.reportRecord(CodePairingMismatch, PassCallbackEvents, r, h, "end on thread %d does not match start on thread %d", et, st)
				open = nil
				continue
			}

			intra, _ := open.Bool("is_intra_process")
			_, err := b.g.AddEvent(
				graph.Stamps{{Stage: open.Name, Time: open.Timestamp}, {Stage: r.Name, Time: r.Timestamp}},
				&graph.CallbackEvent{
					Callback:     cbID,
					Handle:       h,
					IntraProcess: intra,
					Thread:       open.Thread(),
					Start:        open.Timestamp,
					End:          r.Timestamp,
				},
			)
			if err == nil {
				built++
			}
			open = nil
		}
		if open != nil {
			b.reportRecord(CodeIncompleteEvent, PassCallbackEvents, *open, h, "callback started but never ended")
		}
	}
	b.log.Info("built callback events", "count", built)
}

func (b *builder) buildPublishEvents() {
	groups := b.groupLayers(publishLayers, false)
	built := 0
	complete := func(parts []*layered) {
		if b.completePublish(parts) {
			built++
		}
	}
	incomplete := func(parts []*layered) {
		r := parts[0].rec
		b.reportRecord(CodeIncompleteEvent, PassPublishEvents, r, b.handle(r, "message"),
			"publish never reached the wire layer (%d of 4 layers)", len(parts))
	}

	for _, group := range groups {
		pairLayers(group, layerFramework, complete, incomplete)
	}
	// Some call paths enter at the middleware layer.
	for _, group := range groups {
		pairLayers(group, layerMiddleware, complete, incomplete)
	}

	if n := countUnused(groups); n > 0 {
		b.reportf(CodePairingMismatch, PassPublishEvents, 0, "%d publish layer records fit no publish call", n)
	}
	b.log.Info("built publish events", "count", built)
}

func (b *builder) completePublish(parts []*layered) bool {
	var (
		stamps graph.Stamps
		ev     graph.PublishEvent
		rmw    uint64
	)
	for _, p := range parts {
		r := p.rec
		stamps.Add(r.Name, r.Timestamp)
		switch r.Name {
		case record.RCLCPPPublish:
			ev.Message = b.handle(r, "message")
			if h, ok := r.Handle("publisher_handle"); ok && ev.PublisherHandle == 0 {
				ev.PublisherHandle = h
			}
		case record.RCLPublish:
			ev.Message = b.handle(r, "message")
			ev.PublisherHandle = b.handle(r, "publisher_handle")
		case record.RMWPublish:
			ev.Message = b.handle(r, "message")
			rmw = b.handle(r, "rmw_publisher_handle")
		case record.DDSWrite:
			ev.Writer = b.handle(r, "writer")
			ev.WireTimestamp = b.num(r, "timestamp")
		}
	}
	first := parts[0].rec
	ev.Thread = first.Thread()

	id, ok := b.g.PublisherByHandle(ev.PublisherHandle)
	if !ok && rmw != 0 {
		id, ok = b.g.PublisherByRMW(rmw)
	}
	if !ok {
		id, ok = b.g.PublisherByWriter(ev.Writer)
	}
	if !ok {
		b.reportRecord(CodeUnresolvedReference, PassPublishEvents, first, ev.PublisherHandle,
			"publish of message %#x matches no publisher (writer %#x)", ev.Message, ev.Writer)
		return false
	}
	ev.Publisher = id
	_, err := b.g.AddEvent(stamps, &ev)
	return err == nil
}

func (b *builder) buildIntraPublishEvents() {
	type mark struct {
		rec     record.Record
		publish bool
	}
	var order []int64
	groups := map[int64][]mark{}
	collect := func(name string, publish bool) {
		for _, r := range b.recs.Get(name) {
			tid := r.Thread()
			if _, ok := groups[tid]; !ok {
				order = append(order, tid)
			}
			groups[tid] = append(groups[tid], mark{rec: r, publish: publish})
		}
	}
	collect(record.RCLCPPIntraPublish, true)
	collect(record.RCLCPPRingBufferEnqueue, false)

	built := 0
	for _, tid := range order {
		marks := groups[tid]
		slices.SortStableFunc(marks, func(x, y mark) int {
			if c := cmp.Compare(x.rec.Timestamp, y.rec.Timestamp); c != 0 {
				return c
			}
			switch {
			case x.publish && !y.publish:
				return -1
			case !x.publish && y.publish:
				return 1
			}
			return 0
		})

		var (
			open   *record.Record
			stamps graph.Stamps
			slots  []graph.BufferSlot
		)
		flush := func() {
			if open == nil {
				return
			}
			if b.completeIntraPublish(*open, stamps, slots) {
				built++
			}
			open, stamps, slots = nil, nil, nil
		}

		for _, m := range marks {
			r := m.rec
			if m.publish {
				flush()
				open = &r
				stamps = graph.Stamps{{Stage: r.Name, Time: r.Timestamp}}
				continue
			}
			if open == nil {
				b.reportRecord(CodePairingMismatch, PassIntraPublishEvents, r, b.handle(r, "buffer"),
					"ring buffer enqueue without an intra-process publish on thread %d", tid)
				continue
			}
			if _, seen := stamps.Get(r.Name); !seen {
				stamps.Add(r.Name, r.Timestamp)
			}
			slots = append(slots, graph.BufferSlot{Buffer: b.handle(r, "buffer"), Index: b.num(r, "index")})
		}
		flush()
	}
	b.log.Info("built intra-process publish events", "count", built)
}

func (b *builder) completeIntraPublish(r record.Record, stamps graph.Stamps, slots []graph.BufferSlot) bool {
	h := b.handle(r, "publisher_handle")
	id, ok := b.g.PublisherByHandle(h)
	if !ok {
		b.reportRecord(CodeUnresolvedReference, PassIntraPublishEvents, r, h, "intra-process publish matches no publisher")
		return false
	}
	_, err := b.g.AddEvent(stamps, &graph.IntraPublishEvent{
		Publisher:       id,
		Message:         b.handle(r, "message"),
		PublisherHandle: h,
		Thread:          r.Thread(),
		Slots:           slots,
	})
	return err == nil
}

// buildSubscriptionEvents pairs take fragments newest first: the framework
// take returns after the wire read it triggered, so walking back in time
// meets the layers in framework-to-wire order.
func (b *builder) buildSubscriptionEvents() {
	groups := b.groupLayers(takeLayers, true)
	built := 0
	complete := func(parts []*layered) {
		if b.completeTake(parts) {
			built++
		}
	}
	incomplete := func(parts []*layered) {
		r := parts[0].rec
		b.reportRecord(CodeIncompleteEvent, PassSubscriptionEvents, r, b.handle(r, "message"),
			"take never reached the wire layer (%d of 4 layers)", len(parts))
	}

	for _, group := range groups {
		pairLayers(group, layerFramework, complete, incomplete)
	}
	for _, group := range groups {
		pairLayers(group, layerMiddleware, complete, incomplete)
	}

	if n := countUnused(groups); n > 0 {
		b.reportf(CodePairingMismatch, PassSubscriptionEvents, 0, "%d take layer records fit no take call", n)
	}
	b.log.Info("built subscription events", "count", built)
}

func (b *builder) completeTake(parts []*layered) bool {
	var (
		stamps    graph.Stamps
		ev        graph.SubscriptionEvent
		transport bool
	)
	for i := len(parts) - 1; i >= 0; i-- {
		r := parts[i].rec
		stamps.Add(r.Name, r.Timestamp)
		switch r.Name {
		case record.RCLCPPTake, record.RCLTake:
			ev.Message = b.handle(r, "message")
		case record.RMWTake:
			transport = true
			ev.Message = b.handle(r, "message")
			ev.RMWHandle = b.handle(r, "rmw_subscription_handle")
			ev.SourceTimestamp = b.num(r, "source_timestamp")
			ev.Taken, _ = r.Bool("taken")
		case record.DDSRead:
			ev.Reader = b.handle(r, "reader")
		}
	}
	first := parts[0].rec
	ev.Thread = first.Thread()

	if !transport {
		b.reportRecord(CodeIncompleteEvent, PassSubscriptionEvents, first, ev.Message,
			"take has no transport-layer record")
		return false
	}

	id, ok := b.g.SubscriptionByRMW(ev.RMWHandle)
	if !ok {
		if ids := b.g.SubscriptionsByReader(ev.Reader); len(ids) > 0 {
			id, ok = ids[0], true
		}
	}
	if !ok {
		b.reportRecord(CodeUnresolvedReference, PassSubscriptionEvents, first, ev.RMWHandle,
			"take of message %#x matches no subscription (reader %#x)", ev.Message, ev.Reader)
		return false
	}
	ev.Subscription = id
	_, err := b.g.AddEvent(stamps, &ev)
	return err == nil
}

func (b *builder) buildIntraSubscriptionEvents() {
	built := 0
	for _, r := range b.sorted(record.RCLCPPRingBufferDequeue) {
		buffer := b.handle(r, "buffer")
		ids := b.g.SubscriptionsByBuffer(buffer)
		if len(ids) == 0 {
			b.reportRecord(CodeUnresolvedReference, PassIntraSubscriptionEvents, r, buffer, "ring buffer feeds no known subscription")
			continue
		}
		_, err := b.g.AddEvent(
			graph.Stamps{{Stage: r.Name, Time: r.Timestamp}},
			&graph.IntraSubscriptionEvent{
				Subscription: ids[0],
				Slot:         graph.BufferSlot{Buffer: buffer, Index: b.num(r, "index")},
				Thread:       r.Thread(),
			},
		)
		if err == nil {
			built++
		}
	}
	b.log.Info("built intra-process subscription events", "count", built)
}
