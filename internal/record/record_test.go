package record

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerceByFieldKind(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		raw      any
		expected Value
	}{
		{"handle from int", "node_handle", 42, Int(42)},
		{"handle from hex string", "callback", "0x2a", Int(42)},
		{"handle from json number", "message", json.Number("18446744073709551615"), Int(-1)},
		{"int from string", "period", "200", Int(200)},
		{"string from int", "topic_name", 7, String("7")},
		{"nil string", "node_name", nil, String("")},
		{"bool from int", "taken", 1, Bool(true)},
		{"bool from string", "is_intra_process", "false", Bool(false)},
		{"gid from bytes", "gid", []byte{1, 2}, List{Int(1), Int(2)}},
		{"unknown field string", "custom", "x", String("x")},
		{"unknown field list", "custom", []any{1, "a"}, List{Int(1), String("a")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Coerce(tt.field, tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, v)
		})
	}
}

func TestCoerceRejectsBadValues(t *testing.T) {
	_, err := Coerce("period", 1.5)
	assert.Error(t, err)

	_, err = Coerce("node_handle", "not-a-handle")
	assert.Error(t, err)

	_, err = Coerce("gid", "abc")
	assert.Error(t, err)
}

func TestHandleRoundTripsFullRange(t *testing.T) {
	r := New(RCLNodeInit, 1).With("node_handle", uint64(0xFFFF_FFFF_FFFF_0001))

	h, ok := r.Handle("node_handle")
	require.True(t, ok)
	assert.Equal(t, uint64(0xFFFF_FFFF_FFFF_0001), h)
}

func TestFromMap(t *testing.T) {
	r, err := FromMap(map[string]any{
		KeyName:       RCLNodeInit,
		KeyTimestamp:  json.Number("1000"),
		"node_handle": json.Number("10"),
		"node_name":   "talker",
		"vtid":        json.Number("77"),
	})
	require.NoError(t, err)

	assert.Equal(t, RCLNodeInit, r.Name)
	assert.Equal(t, int64(1000), r.Timestamp)
	h, _ := r.Handle("node_handle")
	assert.Equal(t, uint64(10), h)
	name, _ := r.Str("node_name")
	assert.Equal(t, "talker", name)
	assert.Equal(t, int64(77), r.Thread())
	assert.False(t, r.Has(KeyName))
}

func TestFromMapErrors(t *testing.T) {
	tests := []struct {
		name string
		in   map[string]any
	}{
		{"missing name", map[string]any{KeyTimestamp: 1}},
		{"empty name", map[string]any{KeyName: "", KeyTimestamp: 1}},
		{"missing timestamp", map[string]any{KeyName: RCLInit}},
		{"float timestamp", map[string]any{KeyName: RCLInit, KeyTimestamp: 1.5}},
		{"bad field", map[string]any{KeyName: RCLInit, KeyTimestamp: 1, "period": "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromMap(tt.in)
			assert.Error(t, err)
		})
	}
}

func TestToMapRoundTrip(t *testing.T) {
	r := New(RMWPublisherInit, 5).
		With("rmw_publisher_handle", 3).
		With("gid", []int{1, 2, 3})

	back, err := FromMap(r.ToMap())
	require.NoError(t, err)
	assert.Equal(t, r, back)
}

func TestBytes(t *testing.T) {
	r := New(RMWPublisherInit, 5).With("gid", []int{1, 2, 255})

	b, ok := r.Bytes("gid")
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 255}, b)

	_, ok = r.Bytes("missing")
	assert.False(t, ok)
}

func TestCollectionAddFoldsDiscarded(t *testing.T) {
	c := NewCollection()
	c.Add(New(RCLInit, 1).With("context_handle", 1))
	c.Add(New(DiscardedEvents, 2).With("count", 3))
	c.Add(New(DiscardedEvents, 3).With("count", 4))

	assert.Equal(t, 1, c.Len())
	assert.Equal(t, uint64(7), c.Discarded)
	assert.Nil(t, c.Get(DiscardedEvents))
}

func TestCollectionMergeDropAll(t *testing.T) {
	a := NewCollection()
	a.Add(New(CallbackStart, 20).With("callback", 1))
	a.Add(New("lttng_ust_lib:load", 5))

	b := NewCollection()
	b.Add(New(CallbackEnd, 10).With("callback", 1))
	b.Discarded = 2

	a.Merge(b)
	assert.Equal(t, 3, a.Len())
	assert.Equal(t, uint64(2), a.Discarded)

	a.Drop(DefaultIgnored...)
	assert.Equal(t, []string{CallbackEnd, CallbackStart}, a.Names())

	all := a.All()
	require.Len(t, all, 2)
	assert.Equal(t, int64(10), all[0].Timestamp)
	assert.Equal(t, int64(20), all[1].Timestamp)
}

func TestNilCollectionGet(t *testing.T) {
	var c *Collection
	assert.Nil(t, c.Get(RCLInit))
}
