package graph

import (
	"encoding/hex"
	"strings"
)

// GID is the wire-layer globally unique identifier of an endpoint. Only the
// first 16 bytes reported by the tracer are significant.
type GID [16]byte

// GIDFromBytes builds a GID from a tracer byte list. Shorter lists are zero
// padded. An empty list is not a GID.
func GIDFromBytes(b []byte) (GID, bool) {
	var g GID
	if len(b) == 0 {
		return g, false
	}
	copy(g[:], b)
	return g, true
}

func (g GID) String() string { return hex.EncodeToString(g[:]) }

// Context is one traced process.
type Context struct {
	ID      ContextID
	Handle  uint64
	Version string
	Stamps  Stamps
}

// Node is a named unit of computation. Its entity lists are filled as
// endpoints and timers are attached.
type Node struct {
	ID            NodeID
	Handle        uint64
	RMWHandle     uint64
	Name          string
	Namespace     string
	Stamps        Stamps
	Publishers    []PublisherID
	Subscriptions []SubscriptionID
	Timers        []TimerID
}

// FullName joins namespace and name into a fully qualified node name.
func (n *Node) FullName() string {
	ns := strings.TrimSuffix(n.Namespace, "/")
	return ns + "/" + n.Name
}

// Callback is a registered callback function.
type Callback struct {
	ID     CallbackID
	Handle uint64
	Symbol string
	Stamps Stamps
	Events []EventID

	source Ref
}

// Source is the timer or subscription owning the callback, once associated.
func (c *Callback) Source() Ref { return c.source }

// Endpoint is the state shared by publishers and subscriptions.
type Endpoint struct {
	Handle     uint64
	RMWHandle  uint64
	NodeHandle uint64
	Node       NodeID
	QueueDepth int64

	// TopicName is the name as registered; Topic is its fully qualified
	// expansion, filled by Graph.RebuildTopics.
	TopicName string
	Topic     string

	GID          GID
	HasGID       bool
	DDSTopicName string
	// DDSHandle is the wire-layer writer or reader id.
	DDSHandle uint64

	Stamps Stamps
	Events []EventID
}

// Publisher is a topic writer.
type Publisher struct {
	ID PublisherID
	Endpoint
}

// Subscription is a topic reader.
type Subscription struct {
	ID SubscriptionID
	Endpoint

	// Reference is the framework-level subscription object reported by the
	// rclcpp init record. It links the callback-added record.
	Reference    uint64
	HasReference bool

	CallbackHandle uint64
	Callback       CallbackID

	// BufferHandle and IPBHandle identify the intra-process ring buffer, when
	// one was created.
	BufferHandle uint64
	IPBHandle    uint64

	sibling SubscriptionID
}

// Sibling is the other subscription wrapping the same middleware object.
func (s *Subscription) Sibling() SubscriptionID { return s.sibling }

// Timer is a periodic trigger.
type Timer struct {
	ID             TimerID
	Handle         uint64
	NodeHandle     uint64
	Node           NodeID
	Period         int64
	CallbackHandle uint64
	Callback       CallbackID
	Stamps         Stamps
}

// Topic is a derived index over the endpoints targeting one fully qualified
// topic name.
type Topic struct {
	Name          string
	Publishers    []PublisherID
	Subscriptions []SubscriptionID
}
