package builder

import (
	"fmt"
	"slices"
)

// Code categorises a build diagnostic.
type Code string

const (
	// CodeUnresolvedReference means a record references a handle, GID or
	// reference value no earlier record introduced. The record is dropped.
	CodeUnresolvedReference Code = "UNRESOLVED_REFERENCE"

	// CodeDuplicateHandle means an init record reuses a handle already
	// registered for the same entity type. The later record is dropped.
	CodeDuplicateHandle Code = "DUPLICATE_HANDLE"

	// CodePairingMismatch means a continuation record does not fit the open
	// event (wrong thread, orphan end, nested start), or that layer records
	// were left over after every publish or take attempt.
	CodePairingMismatch Code = "PAIRING_MISMATCH"

	// CodeIncompleteEvent means a call never reached its terminal record and
	// was discarded.
	CodeIncompleteEvent Code = "INCOMPLETE_EVENT"

	// CodeAssociationCountMismatch means positional pairing found lists of
	// different length; the shorter length's worth of pairs are still linked.
	CodeAssociationCountMismatch Code = "ASSOCIATION_COUNT_MISMATCH"

	// CodeTriggerConflict means two passes tried to give one event, callback
	// or subscription different back references. The first link wins.
	CodeTriggerConflict Code = "TRIGGER_CONFLICT"

	// CodeCausalityViolation means a linked trigger postdates its effect.
	CodeCausalityViolation Code = "CAUSALITY_VIOLATION"

	// CodeInvariantViolation covers the remaining graph invariant failures
	// (unsorted event lists, timer self-trigger, trigger cycles).
	CodeInvariantViolation Code = "INVARIANT_VIOLATION"

	// CodeUpstreamDataLoss means the tracer reported discarded events. Every
	// other diagnostic count is likely inflated by it.
	CodeUpstreamDataLoss Code = "UPSTREAM_DATA_LOSS"
)

// Diagnostic is one non-fatal problem found while building.
type Diagnostic struct {
	Code Code `json:"code" yaml:"code"`

	// Pass names the build pass that found the problem.
	Pass string `json:"pass" yaml:"pass"`

	// Tracepoint and Timestamp identify the offending record, when there is
	// one.
	Tracepoint string `json:"tracepoint,omitempty" yaml:"tracepoint,omitempty"`
	Timestamp  int64  `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`

	// Handle is the identifying handle the record carried.
	Handle uint64 `json:"handle,omitempty" yaml:"handle,omitempty"`

	Message string `json:"message" yaml:"message"`
}

func (d Diagnostic) String() string {
	if d.Tracepoint != "" {
		return fmt.Sprintf("%s [%s] %s@%d handle=%#x: %s", d.Code, d.Pass, d.Tracepoint, d.Timestamp, d.Handle, d.Message)
	}
	return fmt.Sprintf("%s [%s]: %s", d.Code, d.Pass, d.Message)
}

// Diagnostics is the ordered list of problems one build produced.
type Diagnostics []Diagnostic

// Count returns how many diagnostics carry the code.
func (ds Diagnostics) Count(code Code) int {
	n := 0
	for _, d := range ds {
		if d.Code == code {
			n++
		}
	}
	return n
}

// ByCode returns the diagnostics carrying the code, in order.
func (ds Diagnostics) ByCode(code Code) Diagnostics {
	var out Diagnostics
	for _, d := range ds {
		if d.Code == code {
			out = append(out, d)
		}
	}
	return out
}

// Summary counts diagnostics per code.
func (ds Diagnostics) Summary() map[Code]int {
	out := map[Code]int{}
	for _, d := range ds {
		out[d.Code]++
	}
	return out
}

// Codes returns the distinct codes present, sorted.
func (ds Diagnostics) Codes() []Code {
	var out []Code
	for code := range ds.Summary() {
		out = append(out, code)
	}
	slices.Sort(out)
	return out
}
