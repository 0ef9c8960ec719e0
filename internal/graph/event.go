package graph

// Event is one concrete invocation reassembled from per-layer records. The
// shared shape lives here; what differs per call type lives in Payload.
type Event struct {
	ID      EventID
	Stamps  Stamps
	Payload Payload

	source  Ref
	trigger Ref
}

// Source is the entity that emitted the event.
func (e *Event) Source() Ref { return e.source }

// Trigger is the causal predecessor: another event, a timer for timer
// invocations, or zero when unknown.
func (e *Event) Trigger() Ref { return e.trigger }

// Earliest is the time the event is ordered by.
func (e *Event) Earliest() int64 { return e.Stamps.Earliest() }

// Payload is the closed set of composite event variants:
// *CallbackEvent, *PublishEvent, *IntraPublishEvent, *SubscriptionEvent and
// *IntraSubscriptionEvent.
type Payload interface {
	payload()
	// Kind names the variant in diagnostics and summaries.
	Kind() string
}

// CallbackEvent is one execution of a callback.
type CallbackEvent struct {
	Callback     CallbackID
	Handle       uint64
	IntraProcess bool
	Thread       int64
	Start        int64
	End          int64
}

// Duration is End minus Start in nanoseconds.
func (c *CallbackEvent) Duration() int64 { return c.End - c.Start }

// Contains reports whether t falls within [Start, End).
func (c *CallbackEvent) Contains(t int64) bool { return c.Start <= t && t < c.End }

// PublishEvent is one inter-process publish traced down to the wire layer.
type PublishEvent struct {
	Publisher       PublisherID
	Message         uint64
	PublisherHandle uint64
	Writer          uint64
	Thread          int64

	// WireTimestamp is the source timestamp the wire layer attached to the
	// sample. Subscribers see it as SubscriptionEvent.SourceTimestamp.
	WireTimestamp int64
}

// BufferSlot addresses one slot of an intra-process ring buffer.
type BufferSlot struct {
	Buffer uint64
	Index  int64
}

// IntraPublishEvent is one intra-process publish. A single publish may feed
// several subscriber ring buffers.
type IntraPublishEvent struct {
	Publisher       PublisherID
	Message         uint64
	PublisherHandle uint64
	Thread          int64
	Slots           []BufferSlot
}

// SubscriptionEvent is one inter-process take.
type SubscriptionEvent struct {
	Subscription    SubscriptionID
	Message         uint64
	RMWHandle       uint64
	Reader          uint64
	SourceTimestamp int64
	Taken           bool
	Thread          int64
}

// IntraSubscriptionEvent is one ring-buffer dequeue.
type IntraSubscriptionEvent struct {
	Subscription SubscriptionID
	Slot         BufferSlot
	Thread       int64
}

func (*CallbackEvent) payload()          {}
func (*PublishEvent) payload()           {}
func (*IntraPublishEvent) payload()      {}
func (*SubscriptionEvent) payload()      {}
func (*IntraSubscriptionEvent) payload() {}

func (*CallbackEvent) Kind() string          { return "callback" }
func (*PublishEvent) Kind() string           { return "publish" }
func (*IntraPublishEvent) Kind() string      { return "intra_publish" }
func (*SubscriptionEvent) Kind() string      { return "subscription" }
func (*IntraSubscriptionEvent) Kind() string { return "intra_subscription" }
