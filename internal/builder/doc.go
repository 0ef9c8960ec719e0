// Package builder turns a record collection into a linked causal graph.
//
// Build runs a fixed sequence of passes, each depending on the invariants the
// previous one established:
//
//  1. Entity construction: contexts, nodes, callbacks, publishers,
//     subscriptions (including intra-process siblings), timers and
//     intra-process buffers, enriched layer by layer.
//  2. Event correlation: per-layer records of one call are paired into
//     composite events and attached to their owning entity; every event list
//     is then sorted.
//  3. Causal association: trigger links from timers to their callback
//     invocations, from takes to the callbacks that consumed them, from
//     publishes to matching takes, and from callbacks to the publishes they
//     made.
//  4. Optional verification of the graph invariants.
//
// The builder never fails. Unresolved references, pairing mismatches,
// incomplete events and conflicting links are returned as Diagnostics next to
// a best-effort graph; a missing link is itself meaningful output.
package builder
