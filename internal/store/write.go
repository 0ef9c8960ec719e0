package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/tracegraph/internal/builder"
	"github.com/roach88/tracegraph/internal/record"
)

// ImportCapture stores a record set under a new capture ID.
//
// Captures are content-addressed: if a capture with the same fingerprint
// already exists it is returned with inserted=false and nothing is written.
func (s *Store) ImportCapture(ctx context.Context, name string, sources []string, c *record.Collection) (capture Capture, inserted bool, err error) {
	fingerprint, err := record.Fingerprint(c)
	if err != nil {
		return Capture{}, false, fmt.Errorf("import capture: %w", err)
	}

	existing, err := s.CaptureByFingerprint(ctx, fingerprint)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Capture{}, false, fmt.Errorf("import capture: %w", err)
	}

	sourcesJSON, err := marshalSources(sources)
	if err != nil {
		return Capture{}, false, fmt.Errorf("import capture: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Capture{}, false, fmt.Errorf("import capture: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var seq int64
	if err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(seq), 0) + 1 FROM captures").Scan(&seq); err != nil {
		return Capture{}, false, fmt.Errorf("import capture: next seq: %w", err)
	}

	capture = Capture{
		ID:          s.ids.Generate(),
		Seq:         seq,
		Name:        name,
		Fingerprint: fingerprint,
		Sources:     append([]string{}, sources...),
		Discarded:   c.Discarded,
		Records:     c.Len(),
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO captures
		(id, seq, name, fingerprint, sources, discarded, records)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		capture.ID,
		capture.Seq,
		capture.Name,
		capture.Fingerprint,
		sourcesJSON,
		int64(capture.Discarded),
		capture.Records,
	)
	if err != nil {
		return Capture{}, false, fmt.Errorf("import capture: insert capture: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records
		(capture_id, seq, name, timestamp, hash, body)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return Capture{}, false, fmt.Errorf("import capture: prepare: %w", err)
	}
	defer stmt.Close()

	for i, r := range c.All() {
		body, hash, err := marshalRecord(r)
		if err != nil {
			return Capture{}, false, fmt.Errorf("import capture: record %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, capture.ID, i+1, r.Name, r.Timestamp, hash, body); err != nil {
			return Capture{}, false, fmt.Errorf("import capture: insert record %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Capture{}, false, fmt.Errorf("import capture: commit: %w", err)
	}
	return capture, true, nil
}

// WriteDiagnostics replaces the stored diagnostics of a capture with the
// result of its latest build.
//
// Note: The capture must exist (foreign key constraint).
func (s *Store) WriteDiagnostics(ctx context.Context, captureID string, diags builder.Diagnostics) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write diagnostics: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.ExecContext(ctx, "DELETE FROM diagnostics WHERE capture_id = ?", captureID); err != nil {
		return fmt.Errorf("write diagnostics: clear: %w", err)
	}

	for i, d := range diags {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO diagnostics
			(capture_id, seq, code, pass, tracepoint, timestamp, handle, message)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			captureID,
			i+1,
			string(d.Code),
			d.Pass,
			d.Tracepoint,
			d.Timestamp,
			int64(d.Handle),
			d.Message,
		)
		if err != nil {
			return fmt.Errorf("write diagnostics: insert %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write diagnostics: commit: %w", err)
	}
	return nil
}

// DeleteCapture removes a capture with its records and diagnostics.
func (s *Store) DeleteCapture(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM captures WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete capture: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete capture: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete capture %s: %w", id, ErrNotFound)
	}
	return nil
}
