package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/tracegraph/internal/record"
)

// marshalSources converts the source file list to canonical JSON TEXT.
func marshalSources(sources []string) (string, error) {
	items := make([]any, len(sources))
	for i, src := range sources {
		items[i] = src
	}
	data, err := record.MarshalCanonical(items)
	if err != nil {
		return "", fmt.Errorf("marshal sources: %w", err)
	}
	return string(data), nil
}

// unmarshalSources parses the source file list. An empty column yields an
// empty, non-nil list.
func unmarshalSources(data string) ([]string, error) {
	sources := []string{}
	if data == "" || data == "[]" {
		return sources, nil
	}
	if err := json.Unmarshal([]byte(data), &sources); err != nil {
		return nil, fmt.Errorf("unmarshal sources: %w", err)
	}
	return sources, nil
}

// marshalRecord returns the canonical JSON body of a record and its content
// hash.
func marshalRecord(r record.Record) (body, hash string, err error) {
	data, err := record.MarshalCanonical(r)
	if err != nil {
		return "", "", fmt.Errorf("marshal record: %w", err)
	}
	hash, err = record.RecordHash(r)
	if err != nil {
		return "", "", fmt.Errorf("marshal record: %w", err)
	}
	return string(data), hash, nil
}

// unmarshalRecord parses a record body. Handles are decoded through the
// record conversion table, so values above 2^63 survive the signed column.
func unmarshalRecord(body string) (record.Record, error) {
	r, err := record.DecodeJSON([]byte(body))
	if err != nil {
		return record.Record{}, fmt.Errorf("unmarshal record: %w", err)
	}
	return r, nil
}
