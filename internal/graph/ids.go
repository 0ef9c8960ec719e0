package graph

import "fmt"

// ID is a 1-based index into the arena holding values of type T.
// The zero ID refers to nothing.
type ID[T any] int32

// Valid reports whether the ID refers to an arena slot.
func (id ID[T]) Valid() bool { return id > 0 }

type (
	ContextID      = ID[Context]
	NodeID         = ID[Node]
	CallbackID     = ID[Callback]
	PublisherID    = ID[Publisher]
	SubscriptionID = ID[Subscription]
	TimerID        = ID[Timer]
	EventID        = ID[Event]
)

// arena is an append-only store addressed by ID.
type arena[T any] struct {
	items []*T
}

func (a *arena[T]) add(v *T) ID[T] {
	a.items = append(a.items, v)
	return ID[T](len(a.items))
}

func (a *arena[T]) get(id ID[T]) *T {
	if id <= 0 || int(id) > len(a.items) {
		return nil
	}
	return a.items[id-1]
}

func (a *arena[T]) len() int { return len(a.items) }

func (a *arena[T]) all() []*T {
	out := make([]*T, len(a.items))
	copy(out, a.items)
	return out
}

// RefKind tags what a Ref points at.
type RefKind uint8

const (
	RefNone RefKind = iota
	RefTimer
	RefSubscription
	RefPublisher
	RefCallback
	RefEvent
)

var refKindNames = [...]string{
	RefNone:         "none",
	RefTimer:        "timer",
	RefSubscription: "subscription",
	RefPublisher:    "publisher",
	RefCallback:     "callback",
	RefEvent:        "event",
}

func (k RefKind) String() string {
	if int(k) < len(refKindNames) {
		return refKindNames[k]
	}
	return fmt.Sprintf("RefKind(%d)", k)
}

// Ref is a non-owning reference to an entity or event of any kind. Event
// sources and triggers use it because a trigger may be another event or, for
// timer invocations, the timer itself.
type Ref struct {
	Kind RefKind
	ID   int32
}

func TimerRef(id TimerID) Ref               { return Ref{Kind: RefTimer, ID: int32(id)} }
func SubscriptionRef(id SubscriptionID) Ref { return Ref{Kind: RefSubscription, ID: int32(id)} }
func PublisherRef(id PublisherID) Ref       { return Ref{Kind: RefPublisher, ID: int32(id)} }
func CallbackRef(id CallbackID) Ref         { return Ref{Kind: RefCallback, ID: int32(id)} }
func EventRef(id EventID) Ref               { return Ref{Kind: RefEvent, ID: int32(id)} }

// IsZero reports whether the reference is unset.
func (r Ref) IsZero() bool { return r.Kind == RefNone }

// Timer returns the referenced timer, if r points at one.
func (r Ref) Timer() (TimerID, bool) {
	return TimerID(r.ID), r.Kind == RefTimer
}

// Subscription returns the referenced subscription, if r points at one.
func (r Ref) Subscription() (SubscriptionID, bool) {
	return SubscriptionID(r.ID), r.Kind == RefSubscription
}

// Publisher returns the referenced publisher, if r points at one.
func (r Ref) Publisher() (PublisherID, bool) {
	return PublisherID(r.ID), r.Kind == RefPublisher
}

// Callback returns the referenced callback, if r points at one.
func (r Ref) Callback() (CallbackID, bool) {
	return CallbackID(r.ID), r.Kind == RefCallback
}

// Event returns the referenced event, if r points at one.
func (r Ref) Event() (EventID, bool) {
	return EventID(r.ID), r.Kind == RefEvent
}

func (r Ref) String() string {
	if r.IsZero() {
		return "none"
	}
	return fmt.Sprintf("%s#%d", r.Kind, r.ID)
}
