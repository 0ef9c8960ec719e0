package record

import (
	"fmt"
	"slices"
	"unicode/utf16"
)

// Value is a sealed interface over the field value variants a decoded record
// may carry. Only String, Int, Bool and List implement it. There is no float
// variant.
type Value interface {
	recordValue()
}

// String is a string field value.
type String string

func (String) recordValue() {}

// Int is an integer field value. Unsigned handles are stored bit-for-bit.
type Int int64

func (Int) recordValue() {}

// Bool is a boolean field value.
type Bool bool

func (Bool) recordValue() {}

// List is an ordered list of field values (e.g. a GUID byte array).
type List []Value

func (List) recordValue() {}

// plain converts a Value into the equivalent untyped Go value.
func plain(v Value) any {
	switch val := v.(type) {
	case String:
		return string(val)
	case Int:
		return int64(val)
	case Bool:
		return bool(val)
	case List:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = plain(elem)
		}
		return out
	default:
		return nil
	}
}

// Format renders a value for diagnostics.
func Format(v Value) string {
	switch val := v.(type) {
	case String:
		return string(val)
	case Int:
		return fmt.Sprintf("%d", int64(val))
	case Bool:
		return fmt.Sprintf("%t", bool(val))
	case List:
		return fmt.Sprintf("%v", plain(val))
	default:
		return "<nil>"
	}
}

// sortedKeys returns map keys in RFC 8785 order (UTF-16 code units).
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings using UTF-16 code unit ordering as
// required by RFC 8785. Go's native string comparison orders by UTF-8 bytes,
// which differs for characters outside the BMP.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}
