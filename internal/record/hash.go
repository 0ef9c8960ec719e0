package record

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
)

// Domain prefixes for content-addressed identity.
// The version suffix enables future algorithm migration.
const (
	DomainCapture = "tracegraph/capture/v1"
	DomainRecord  = "tracegraph/record/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data). The null separator
// prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// RecordHash computes the content hash of a single record.
func RecordHash(r Record) (string, error) {
	b, err := MarshalCanonical(r)
	if err != nil {
		return "", fmt.Errorf("RecordHash: %w", err)
	}
	return hashWithDomain(DomainRecord, b), nil
}

// Fingerprint computes the content-addressed identity of a collection.
// Record order inside the collection does not matter: the fingerprint is
// taken over the sorted record hashes plus the discarded-event count.
func Fingerprint(c *Collection) (string, error) {
	sorted := make([]string, 0, c.Len())
	for _, r := range c.All() {
		h, err := RecordHash(r)
		if err != nil {
			return "", fmt.Errorf("Fingerprint: %w", err)
		}
		sorted = append(sorted, h)
	}
	slices.Sort(sorted)
	hashes := make([]any, len(sorted))
	for i, h := range sorted {
		hashes[i] = h
	}

	b, err := MarshalCanonical(map[string]any{
		"discarded": int64(c.Discarded),
		"records":   hashes,
	})
	if err != nil {
		return "", fmt.Errorf("Fingerprint: %w", err)
	}
	return hashWithDomain(DomainCapture, b), nil
}

// MustFingerprint is like Fingerprint but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustFingerprint(c *Collection) string {
	fp, err := Fingerprint(c)
	if err != nil {
		panic(err)
	}
	return fp
}
