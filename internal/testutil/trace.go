package testutil

import "github.com/roach88/tracegraph/internal/record"

// Trace assembles a record collection the way a tracer would emit it, one
// tracepoint hit at a time. Entity init records take their timestamps from
// the trace clock; event records take explicit times so tests control
// ordering.
type Trace struct {
	clock *DeterministicClock
	recs  *record.Collection
}

// NewTrace creates an empty trace whose clock advances 1ns per init record.
func NewTrace() *Trace {
	return &Trace{clock: NewDeterministicClock(1), recs: record.NewCollection()}
}

// Collection returns the records emitted so far.
func (t *Trace) Collection() *record.Collection { return t.recs }

// Emit adds one record with the given fields.
func (t *Trace) Emit(name string, ts int64, fields map[string]any) record.Record {
	r := record.New(name, ts)
	for k, v := range fields {
		r = r.With(k, v)
	}
	t.clock.AdvanceTo(ts)
	t.recs.Add(r)
	return r
}

// Init adds one record stamped by the trace clock.
func (t *Trace) Init(name string, fields map[string]any) record.Record {
	return t.Emit(name, t.clock.Next(), fields)
}

// Discarded records tracer-reported event loss.
func (t *Trace) Discarded(count int64) {
	t.Init(record.DiscardedEvents, map[string]any{"count": count})
}

// Context emits an rcl init.
func (t *Trace) Context(handle uint64) {
	t.Init(record.RCLInit, map[string]any{"context_handle": handle, "version": "4.1.0"})
}

// Node emits an rcl node init.
func (t *Trace) Node(handle, rmw uint64, name, namespace string) {
	t.Init(record.RCLNodeInit, map[string]any{
		"node_handle": handle,
		"rmw_handle":  rmw,
		"node_name":   name,
		"namespace":   namespace,
	})
}

// Callback emits a callback registration.
func (t *Trace) Callback(handle uint64, symbol string) {
	t.Init(record.RCLCPPCallbackRegister, map[string]any{"callback": handle, "symbol": symbol})
}

// Endpoint describes a publisher or subscription across all layers. Zero
// layer-specific fields suppress the matching init record.
type Endpoint struct {
	Handle uint64
	RMW    uint64
	Node   uint64
	Topic  string
	Depth  int64
	GID    []byte
	// DDS is the wire-layer writer or reader id.
	DDS uint64
}

// Publisher emits the rcl, rmw and dds init records of a publisher.
func (t *Trace) Publisher(e Endpoint) {
	t.Init(record.RCLPublisherInit, map[string]any{
		"publisher_handle":     e.Handle,
		"node_handle":          e.Node,
		"rmw_publisher_handle": e.RMW,
		"topic_name":           e.Topic,
		"queue_depth":          e.Depth,
	})
	if e.GID == nil {
		return
	}
	t.Init(record.RMWPublisherInit, map[string]any{"rmw_publisher_handle": e.RMW, "gid": e.GID})
	if e.DDS != 0 {
		t.Init(record.DDSCreateWriter, map[string]any{"writer": e.DDS, "topic_name": "rt" + e.Topic, "gid": e.GID})
	}
}

// Subscription emits the rcl, rmw and dds init records of a subscription.
// Framework linking is separate; see SubscriptionRef.
func (t *Trace) Subscription(e Endpoint) {
	t.Init(record.RCLSubscriptionInit, map[string]any{
		"subscription_handle":     e.Handle,
		"node_handle":             e.Node,
		"rmw_subscription_handle": e.RMW,
		"topic_name":              e.Topic,
		"queue_depth":             e.Depth,
	})
	if e.GID == nil {
		return
	}
	t.Init(record.RMWSubscriptionInit, map[string]any{"rmw_subscription_handle": e.RMW, "gid": e.GID})
	if e.DDS != 0 {
		t.Init(record.DDSCreateReader, map[string]any{"reader": e.DDS, "topic_name": "rt" + e.Topic, "gid": e.GID})
	}
}

// SubscriptionRef emits the framework init linking a subscription handle to
// a reference, and the callback-added record linking that reference to a
// callback. Emitting it twice for one handle models intra-process
// duplication.
func (t *Trace) SubscriptionRef(handle, reference, callback uint64) {
	t.Init(record.RCLCPPSubscriptionInit, map[string]any{"subscription_handle": handle, "subscription": reference})
	if callback != 0 {
		t.Init(record.RCLCPPSubscriptionCallbackAdded, map[string]any{"subscription": reference, "callback": callback})
	}
}

// Timer emits the link, init and callback-added records of a timer.
func (t *Trace) Timer(handle, node uint64, period int64, callback uint64) {
	t.Init(record.RCLCPPTimerLinkNode, map[string]any{"timer_handle": handle, "node_handle": node})
	t.Init(record.RCLTimerInit, map[string]any{"timer_handle": handle, "period": period})
	if callback != 0 {
		t.Init(record.RCLCPPTimerCallbackAdded, map[string]any{"timer_handle": handle, "callback": callback})
	}
}

// IntraProcessBuffer emits the buffer and ipb records feeding a subscription
// reference.
func (t *Trace) IntraProcessBuffer(buffer, ipb, reference uint64) {
	t.Init(record.RCLCPPBufferToIPB, map[string]any{"buffer": buffer, "ipb": ipb})
	t.Init(record.RCLCPPIPBToSubscription, map[string]any{"ipb": ipb, "subscription": reference})
}

// CallbackRun emits the start and end of one callback execution.
func (t *Trace) CallbackRun(handle uint64, start, end, thread int64) {
	t.Emit(record.CallbackStart, start, map[string]any{"callback": handle, "is_intra_process": false, "vtid": thread})
	t.Emit(record.CallbackEnd, end, map[string]any{"callback": handle, "vtid": thread})
}

// Publish describes one inter-process publish. Layers are stamped At, At+1,
// At+2 and At+3.
type Publish struct {
	Message   uint64
	Publisher uint64
	RMW       uint64
	Writer    uint64
	Thread    int64
	At        int64
	// Wire is the wire-layer source timestamp. Zero means the dds:write time.
	Wire int64

	SkipFramework bool
	SkipWire      bool
}

// Publish emits the layer records of one publish.
func (t *Trace) Publish(p Publish) {
	if !p.SkipFramework {
		t.Emit(record.RCLCPPPublish, p.At, map[string]any{"message": p.Message, "vtid": p.Thread})
	}
	t.Emit(record.RCLPublish, p.At+1, map[string]any{"publisher_handle": p.Publisher, "message": p.Message, "vtid": p.Thread})
	t.Emit(record.RMWPublish, p.At+2, map[string]any{"rmw_publisher_handle": p.RMW, "message": p.Message, "vtid": p.Thread})
	if p.SkipWire {
		return
	}
	wire := p.Wire
	if wire == 0 {
		wire = p.At + 3
	}
	t.Emit(record.DDSWrite, p.At+3, map[string]any{"writer": p.Writer, "data": p.Message, "timestamp": wire, "vtid": p.Thread})
}

// Take describes one inter-process take. The wire read happens first at At,
// then the rmw, rcl and rclcpp takes return at At+1, At+2 and At+3.
type Take struct {
	Message uint64
	RMW     uint64
	Reader  uint64
	Source  int64
	Thread  int64
	At      int64

	SkipFramework bool
}

// Take emits the layer records of one take.
func (t *Trace) Take(k Take) {
	t.Emit(record.DDSRead, k.At, map[string]any{"reader": k.Reader, "buffer": k.Message, "vtid": k.Thread})
	t.Emit(record.RMWTake, k.At+1, map[string]any{
		"rmw_subscription_handle": k.RMW,
		"message":                 k.Message,
		"source_timestamp":        k.Source,
		"taken":                   true,
		"vtid":                    k.Thread,
	})
	t.Emit(record.RCLTake, k.At+2, map[string]any{"message": k.Message, "vtid": k.Thread})
	if !k.SkipFramework {
		t.Emit(record.RCLCPPTake, k.At+3, map[string]any{"message": k.Message, "vtid": k.Thread})
	}
}

// IntraPublish emits an intra-process publish followed by one enqueue per
// slot, 1ns apart.
func (t *Trace) IntraPublish(publisher, message uint64, at, thread int64, slots ...[2]int64) {
	t.Emit(record.RCLCPPIntraPublish, at, map[string]any{"publisher_handle": publisher, "message": message, "vtid": thread})
	for i, s := range slots {
		t.Emit(record.RCLCPPRingBufferEnqueue, at+int64(i)+1, map[string]any{
			"buffer":      s[0],
			"index":       s[1],
			"size":        int64(10),
			"overwritten": false,
			"vtid":        thread,
		})
	}
}

// Dequeue emits one ring-buffer dequeue.
func (t *Trace) Dequeue(buffer uint64, index, at, thread int64) {
	t.Emit(record.RCLCPPRingBufferDequeue, at, map[string]any{"buffer": buffer, "index": index, "size": int64(10), "vtid": thread})
}
