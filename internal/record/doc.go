// Package record provides the flat instrumentation record model consumed by the
// graph builder.
//
// A Record is one decoded tracepoint hit: a tracepoint name, a timestamp in
// nanoseconds and a flat map of typed field values. Records of a capture are
// grouped by tracepoint name into a Collection, which also carries the number
// of events the tracer reported as discarded.
//
// This package imports nothing internal. Every other internal package builds on
// it.
//
// Key design constraints:
//   - Field values are a sealed set of variants (String, Int, Bool, List)
//   - NO float values - timestamps, handles and counters are integers
//   - Handle fields are unsigned 64-bit addresses stored bit-for-bit in Int
//   - String fields are NFC normalized at the decoding boundary
//   - Canonical JSON (RFC 8785) is the only encoding used for fingerprints
package record
