// Package graph holds the causal computational graph reconstructed from a
// ROS 2 trace capture.
//
// Every entity and composite event lives in a per-type arena owned by one
// Graph. Cross references are typed 1-based indices into those arenas, never
// pointers, so the zero value of every ID means "unset".
//
// Entities are created once by the builder and are immutable afterwards,
// except for the back references that later passes fill in:
//
//   - Event.Source and Event.Trigger (write-once, see SetSource/SetTrigger)
//   - Callback.Source (write-once, see SetCallbackSource)
//   - Subscription.Sibling (write-once, see LinkSiblings)
//
// Lookups by handle, GID, wire-layer id, framework reference and ring buffer
// go through secondary indexes maintained as fields are learned, so a failed
// lookup is an explicit (zero, false) result rather than an exhausted scan.
//
// A Graph is not safe for concurrent mutation. Once the builder returns, it
// may be read from multiple goroutines.
package graph
