// Package sequence reconstructs end-to-end causal chains from a built graph.
//
// A chain starts at a terminal event and follows trigger links back toward
// the root cause, emitting one entry per stamp, newest first. The latency of
// a chain is the time between its first and last entries. Stats summarises
// latencies over many chains, for example every invocation of one callback.
package sequence
