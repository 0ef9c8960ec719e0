package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/tracegraph/internal/builder"
	"github.com/roach88/tracegraph/internal/record"
)

// Capture describes one imported record set.
type Capture struct {
	ID          string   `json:"id"`
	Seq         int64    `json:"seq"`
	Name        string   `json:"name"`
	Fingerprint string   `json:"fingerprint"`
	Sources     []string `json:"sources"`
	Discarded   uint64   `json:"discarded"`
	Records     int      `json:"records"`
}

const captureColumns = "id, seq, name, fingerprint, sources, discarded, records"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCapture(row rowScanner) (Capture, error) {
	var (
		c         Capture
		sources   string
		discarded int64
	)
	if err := row.Scan(&c.ID, &c.Seq, &c.Name, &c.Fingerprint, &sources, &discarded, &c.Records); err != nil {
		return Capture{}, err
	}
	var err error
	if c.Sources, err = unmarshalSources(sources); err != nil {
		return Capture{}, err
	}
	c.Discarded = uint64(discarded)
	return c, nil
}

func (s *Store) captureWhere(ctx context.Context, where string, arg any) (Capture, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+captureColumns+" FROM captures WHERE "+where, arg)
	c, err := scanCapture(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Capture{}, fmt.Errorf("%v: %w", arg, ErrNotFound)
	}
	if err != nil {
		return Capture{}, fmt.Errorf("read capture: %w", err)
	}
	return c, nil
}

// GetCapture returns a capture by ID.
func (s *Store) GetCapture(ctx context.Context, id string) (Capture, error) {
	return s.captureWhere(ctx, "id = ?", id)
}

// CaptureByFingerprint returns the capture holding a record set.
func (s *Store) CaptureByFingerprint(ctx context.Context, fingerprint string) (Capture, error) {
	return s.captureWhere(ctx, "fingerprint = ?", fingerprint)
}

// FindCapture resolves a capture reference: an exact ID, or else the most
// recently imported capture with that name.
func (s *Store) FindCapture(ctx context.Context, ref string) (Capture, error) {
	c, err := s.GetCapture(ctx, ref)
	if !errors.Is(err, ErrNotFound) {
		return c, err
	}
	return s.captureWhere(ctx, "name = ? ORDER BY seq DESC LIMIT 1", ref)
}

// ListCaptures returns every capture in import order.
// Results ordered by seq ASC, id ASC COLLATE BINARY.
func (s *Store) ListCaptures(ctx context.Context) ([]Capture, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+captureColumns+`
		FROM captures
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query captures: %w", err)
	}
	defer rows.Close()

	captures := []Capture{}
	for rows.Next() {
		c, err := scanCapture(rows)
		if err != nil {
			return nil, fmt.Errorf("scan capture: %w", err)
		}
		captures = append(captures, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate captures: %w", err)
	}
	return captures, nil
}

// LoadCapture rebuilds the record collection of a capture, including its
// discarded-event count.
func (s *Store) LoadCapture(ctx context.Context, id string) (*record.Collection, error) {
	capture, err := s.GetCapture(ctx, id)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT body
		FROM records
		WHERE capture_id = ?
		ORDER BY seq ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	c := record.NewCollection()
	c.Discarded = capture.Discarded
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		r, err := unmarshalRecord(body)
		if err != nil {
			return nil, err
		}
		c.Add(r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return c, nil
}

// ReadDiagnostics returns the stored diagnostics of a capture in build order.
func (s *Store) ReadDiagnostics(ctx context.Context, captureID string) (builder.Diagnostics, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT code, pass, tracepoint, timestamp, handle, message
		FROM diagnostics
		WHERE capture_id = ?
		ORDER BY seq ASC
	`, captureID)
	if err != nil {
		return nil, fmt.Errorf("query diagnostics: %w", err)
	}
	defer rows.Close()

	diags := builder.Diagnostics{}
	for rows.Next() {
		var (
			d      builder.Diagnostic
			code   string
			handle int64
		)
		if err := rows.Scan(&code, &d.Pass, &d.Tracepoint, &d.Timestamp, &handle, &d.Message); err != nil {
			return nil, fmt.Errorf("scan diagnostic: %w", err)
		}
		d.Code = builder.Code(code)
		d.Handle = uint64(handle)
		diags = append(diags, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate diagnostics: %w", err)
	}
	return diags, nil
}

// CountDiagnostics returns the stored diagnostic count per code.
func (s *Store) CountDiagnostics(ctx context.Context, captureID string) (map[builder.Code]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT code, COUNT(*)
		FROM diagnostics
		WHERE capture_id = ?
		GROUP BY code
		ORDER BY code COLLATE BINARY ASC
	`, captureID)
	if err != nil {
		return nil, fmt.Errorf("query diagnostic counts: %w", err)
	}
	defer rows.Close()

	counts := map[builder.Code]int{}
	for rows.Next() {
		var (
			code string
			n    int
		)
		if err := rows.Scan(&code, &n); err != nil {
			return nil, fmt.Errorf("scan diagnostic count: %w", err)
		}
		counts[builder.Code(code)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate diagnostic counts: %w", err)
	}
	return counts, nil
}
