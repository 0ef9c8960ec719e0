package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCollection() *Collection {
	c := NewCollection()
	c.Add(New(RCLInit, 1).With("context_handle", 1).With("version", "4.1.0"))
	c.Add(New(RCLNodeInit, 2).With("node_handle", 10).With("node_name", "talker"))
	return c
}

func TestRecordHashDeterministic(t *testing.T) {
	r := New(RCLInit, 1).With("context_handle", 1)

	h1, err := RecordHash(r)
	require.NoError(t, err)
	h2, err := RecordHash(r)
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64, "SHA-256 hex is 64 characters")
}

func TestFingerprintIgnoresInsertionOrder(t *testing.T) {
	a := sampleCollection()

	b := NewCollection()
	b.Add(New(RCLNodeInit, 2).With("node_handle", 10).With("node_name", "talker"))
	b.Add(New(RCLInit, 1).With("context_handle", 1).With("version", "4.1.0"))

	assert.Equal(t, MustFingerprint(a), MustFingerprint(b))
}

func TestFingerprintChangesWithContent(t *testing.T) {
	base := MustFingerprint(sampleCollection())

	lossy := sampleCollection()
	lossy.Discarded = 1
	assert.NotEqual(t, base, MustFingerprint(lossy), "discarded count is part of identity")

	extra := sampleCollection()
	extra.Add(New(CallbackStart, 3).With("callback", 5))
	assert.NotEqual(t, base, MustFingerprint(extra))
}

func TestFingerprintDomainSeparation(t *testing.T) {
	r := New(RCLInit, 1)
	b, err := MarshalCanonical(r)
	require.NoError(t, err)

	assert.NotEqual(t, hashWithDomain(DomainRecord, b), hashWithDomain(DomainCapture, b))
}
