package record

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Record is a single decoded tracepoint hit.
type Record struct {
	Name      string
	Timestamp int64
	Fields    map[string]Value
}

// New creates a record with an empty field map.
func New(name string, timestamp int64) Record {
	return Record{Name: name, Timestamp: timestamp, Fields: map[string]Value{}}
}

// With sets a field, coercing the value through the conversion table.
// It panics on values that cannot be coerced and is meant for fixtures.
func (r Record) With(field string, value any) Record {
	v, err := Coerce(field, value)
	if err != nil {
		panic(fmt.Sprintf("record %s: %v", r.Name, err))
	}
	if r.Fields == nil {
		r.Fields = map[string]Value{}
	}
	r.Fields[field] = v
	return r
}

// Has reports whether the record carries the field.
func (r Record) Has(field string) bool {
	_, ok := r.Fields[field]
	return ok
}

// Handle returns an unsigned handle field.
func (r Record) Handle(field string) (uint64, bool) {
	v, ok := r.Fields[field].(Int)
	if !ok {
		return 0, false
	}
	return uint64(v), true
}

// Int returns a signed integer field.
func (r Record) Int(field string) (int64, bool) {
	v, ok := r.Fields[field].(Int)
	if !ok {
		return 0, false
	}
	return int64(v), true
}

// Str returns a string field.
func (r Record) Str(field string) (string, bool) {
	v, ok := r.Fields[field].(String)
	if !ok {
		return "", false
	}
	return string(v), true
}

// Bool returns a boolean field.
func (r Record) Bool(field string) (bool, bool) {
	v, ok := r.Fields[field].(Bool)
	if !ok {
		return false, false
	}
	return bool(v), true
}

// Bytes returns a byte-list field such as a GUID.
func (r Record) Bytes(field string) ([]byte, bool) {
	v, ok := r.Fields[field].(List)
	if !ok {
		return nil, false
	}
	out := make([]byte, 0, len(v))
	for _, elem := range v {
		n, ok := elem.(Int)
		if !ok {
			return nil, false
		}
		out = append(out, byte(n))
	}
	return out, true
}

// Thread returns the virtual thread id of the emitting thread, or 0.
func (r Record) Thread() int64 {
	tid, _ := r.Int(KeyThread)
	return tid
}

// ToMap flattens the record back into an untyped map including the reserved
// _name and _timestamp keys.
func (r Record) ToMap() map[string]any {
	m := make(map[string]any, len(r.Fields)+2)
	for k, v := range r.Fields {
		m[k] = plain(v)
	}
	m[KeyName] = r.Name
	m[KeyTimestamp] = r.Timestamp
	return m
}

// FromMap builds a record from a flat decoded map. The map must carry _name and
// _timestamp; every other key is coerced through the conversion table.
func FromMap(m map[string]any) (Record, error) {
	rawName, ok := m[KeyName]
	if !ok {
		return Record{}, fmt.Errorf("missing %s", KeyName)
	}
	name, ok := rawName.(string)
	if !ok || name == "" {
		return Record{}, fmt.Errorf("%s must be a non-empty string, got %T", KeyName, rawName)
	}
	rawTS, ok := m[KeyTimestamp]
	if !ok {
		return Record{}, fmt.Errorf("%s: missing %s", name, KeyTimestamp)
	}
	ts, err := toInt64(rawTS)
	if err != nil {
		return Record{}, fmt.Errorf("%s: %s: %w", name, KeyTimestamp, err)
	}

	r := Record{Name: name, Timestamp: ts, Fields: make(map[string]Value, len(m))}
	for k, raw := range m {
		if k == KeyName || k == KeyTimestamp {
			continue
		}
		v, err := Coerce(k, raw)
		if err != nil {
			return Record{}, fmt.Errorf("%s: %w", name, err)
		}
		r.Fields[k] = v
	}
	return r, nil
}

// Coerce converts a decoded value into a record Value according to the
// conversion kind registered for the field.
func Coerce(field string, raw any) (Value, error) {
	switch FieldKind(field) {
	case KindHandle:
		u, err := toUint64(raw)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", field, err)
		}
		return Int(int64(u)), nil
	case KindInt:
		n, err := toInt64(raw)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", field, err)
		}
		return Int(n), nil
	case KindString:
		switch val := raw.(type) {
		case string:
			return String(norm.NFC.String(val)), nil
		case nil:
			return String(""), nil
		default:
			return String(norm.NFC.String(fmt.Sprint(val))), nil
		}
	case KindBool:
		b, err := toBool(raw)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", field, err)
		}
		return Bool(b), nil
	case KindBytes:
		l, err := toList(raw)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", field, err)
		}
		return l, nil
	}
	v, err := infer(raw)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", field, err)
	}
	return v, nil
}

// infer coerces a field missing from the conversion table by its decoded type.
func infer(raw any) (Value, error) {
	switch val := raw.(type) {
	case Value:
		return val, nil
	case string:
		return String(norm.NFC.String(val)), nil
	case bool:
		return Bool(val), nil
	case []any, []int, []byte, []int64:
		return toList(val)
	}
	n, err := toInt64(raw)
	if err != nil {
		return nil, err
	}
	return Int(n), nil
}

func toUint64(raw any) (uint64, error) {
	switch val := raw.(type) {
	case Int:
		return uint64(val), nil
	case int:
		return uint64(val), nil
	case int64:
		return uint64(val), nil
	case int32:
		return uint64(val), nil
	case uint:
		return uint64(val), nil
	case uint64:
		return val, nil
	case uint32:
		return uint64(val), nil
	case float64:
		if val < 0 || val != math.Trunc(val) || val > math.MaxUint64 {
			return 0, fmt.Errorf("non-integral handle %v", val)
		}
		return uint64(val), nil
	case json.Number:
		return parseUint(val.String())
	case string:
		return parseUint(val)
	default:
		return 0, fmt.Errorf("cannot coerce %T to handle", raw)
	}
}

func parseUint(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "-") {
		n, err := strconv.ParseInt(s, 0, 64)
		if err != nil {
			return 0, err
		}
		return uint64(n), nil
	}
	return strconv.ParseUint(s, 0, 64)
}

func toInt64(raw any) (int64, error) {
	switch val := raw.(type) {
	case Int:
		return int64(val), nil
	case int:
		return int64(val), nil
	case int64:
		return val, nil
	case int32:
		return int64(val), nil
	case uint:
		return int64(val), nil
	case uint64:
		return int64(val), nil
	case uint32:
		return int64(val), nil
	case float64:
		if val != math.Trunc(val) {
			return 0, fmt.Errorf("floats are not allowed: %v", val)
		}
		return int64(val), nil
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return n, nil
		}
		u, err := strconv.ParseUint(val.String(), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid integer %q", val.String())
		}
		return int64(u), nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(val), 0, 64)
	case bool:
		if val {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("cannot coerce %T to integer", raw)
	}
}

func toBool(raw any) (bool, error) {
	switch val := raw.(type) {
	case Bool:
		return bool(val), nil
	case bool:
		return val, nil
	case string:
		return strconv.ParseBool(val)
	}
	n, err := toInt64(raw)
	if err != nil {
		return false, fmt.Errorf("cannot coerce %T to bool", raw)
	}
	return n != 0, nil
}

func toList(raw any) (List, error) {
	switch val := raw.(type) {
	case List:
		return val, nil
	case []byte:
		out := make(List, len(val))
		for i, b := range val {
			out[i] = Int(b)
		}
		return out, nil
	case []int:
		out := make(List, len(val))
		for i, n := range val {
			out[i] = Int(n)
		}
		return out, nil
	case []int64:
		out := make(List, len(val))
		for i, n := range val {
			out[i] = Int(n)
		}
		return out, nil
	case []any:
		out := make(List, len(val))
		for i, elem := range val {
			v, err := infer(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = v
		}
		return out, nil
	default:
		return nil, fmt.Errorf("cannot coerce %T to list", raw)
	}
}

// Collection groups the records of one capture by tracepoint name.
type Collection struct {
	records map[string][]Record

	// Discarded is the number of events the tracer reported as lost. A
	// non-zero value means every correlation statistic is suspect.
	Discarded uint64
}

// NewCollection creates an empty collection.
func NewCollection() *Collection {
	return &Collection{records: map[string][]Record{}}
}

// Add appends a record. Discarded-event markers are folded into Discarded.
func (c *Collection) Add(r Record) {
	if r.Name == DiscardedEvents {
		if n, ok := r.Int("count"); ok && n > 0 {
			c.Discarded += uint64(n)
		}
		return
	}
	if c.records == nil {
		c.records = map[string][]Record{}
	}
	c.records[r.Name] = append(c.records[r.Name], r)
}

// Get returns the records of a tracepoint. Absent tracepoints yield nil.
func (c *Collection) Get(name string) []Record {
	if c == nil {
		return nil
	}
	return c.records[name]
}

// Names returns the tracepoint names present, sorted.
func (c *Collection) Names() []string {
	names := make([]string, 0, len(c.records))
	for name := range c.records {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Len returns the total number of records.
func (c *Collection) Len() int {
	n := 0
	for _, rs := range c.records {
		n += len(rs)
	}
	return n
}

// Merge appends every record of other into c.
func (c *Collection) Merge(other *Collection) {
	for _, name := range other.Names() {
		for _, r := range other.records[name] {
			c.Add(r)
		}
	}
	c.Discarded += other.Discarded
}

// Drop removes every record of the named tracepoints.
func (c *Collection) Drop(names ...string) {
	for _, name := range names {
		delete(c.records, name)
	}
}

// All returns every record ordered by (timestamp, name).
func (c *Collection) All() []Record {
	out := make([]Record, 0, c.Len())
	for _, name := range c.Names() {
		out = append(out, c.records[name]...)
	}
	slices.SortStableFunc(out, func(a, b Record) int {
		if a.Timestamp != b.Timestamp {
			if a.Timestamp < b.Timestamp {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Name, b.Name)
	})
	return out
}
