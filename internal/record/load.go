package record

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// LoadOptions controls how record files are read.
type LoadOptions struct {
	// Ignore lists tracepoint names dropped after reading. Nil means
	// DefaultIgnored; use an empty non-nil slice to keep everything.
	Ignore []string

	// Validate runs every record through the embedded CUE schema and drops
	// the ones that fail.
	Validate bool

	// Concurrency bounds the number of files read in parallel. Zero means
	// one goroutine per file.
	Concurrency int

	Logger *slog.Logger
}

// DecodeJSON decodes one flat JSON object, such as a line of a JSON-lines
// file or a record body written with MarshalCanonical.
func DecodeJSON(data []byte) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return Record{}, err
	}
	return FromMap(m)
}

// ReadJSONLines reads one flat JSON object per line. Blank lines and lines
// starting with '#' are skipped.
func ReadJSONLines(r io.Reader) (*Collection, error) {
	c := NewCollection()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	line := 0
	for sc.Scan() {
		line++
		text := bytes.TrimSpace(sc.Bytes())
		if len(text) == 0 || text[0] == '#' {
			continue
		}
		rec, err := DecodeJSON(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		c.Add(rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	return c, nil
}

// yamlRecords is the YAML record file layout. A bare top-level sequence is
// accepted as well.
type yamlRecords struct {
	Discarded uint64           `yaml:"discarded_events"`
	Records   []map[string]any `yaml:"records"`
}

// ReadYAML reads a YAML record file.
func ReadYAML(r io.Reader) (*Collection, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if doc.Kind == 0 {
		return NewCollection(), nil
	}

	var file yamlRecords
	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) == 1 {
		root = root.Content[0]
	}
	switch root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&file.Records); err != nil {
			return nil, fmt.Errorf("decode records: %w", err)
		}
	case yaml.MappingNode:
		if err := root.Decode(&file); err != nil {
			return nil, fmt.Errorf("decode records: %w", err)
		}
	default:
		return nil, errors.New("yaml record file must be a sequence or a mapping with a records key")
	}

	c := NewCollection()
	c.Discarded = file.Discarded
	for i, m := range file.Records {
		rec, err := FromMap(m)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		c.Add(rec)
	}
	return c, nil
}

// ReadFile reads a record file, choosing the format by extension: .yaml and
// .yml are YAML, everything else is JSON lines.
func ReadFile(path string) (*Collection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open records: %w", err)
	}
	defer f.Close()

	var c *Collection
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		c, err = ReadYAML(f)
	default:
		c, err = ReadJSONLines(f)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// LoadFiles reads every path in parallel and merges the results in argument
// order. Read errors are fatal. Validation failures drop the offending
// records and are returned, combined, alongside the usable collection.
func LoadFiles(ctx context.Context, paths []string, opts LoadOptions) (*Collection, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	parts := make([]*Collection, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	if opts.Concurrency > 0 {
		g.SetLimit(opts.Concurrency)
	}
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c, err := ReadFile(path)
			if err != nil {
				return err
			}
			logger.Debug("read record file", "path", path, "records", c.Len(), "discarded", c.Discarded)
			parts[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := NewCollection()
	for _, part := range parts {
		merged.Merge(part)
	}

	ignore := opts.Ignore
	if ignore == nil {
		ignore = DefaultIgnored
	}
	merged.Drop(ignore...)

	if !opts.Validate {
		return merged, nil
	}

	v, err := NewValidator()
	if err != nil {
		return nil, err
	}
	valid, verrs := v.Filter(merged)
	if verrs != nil {
		dropped := len(multierr.Errors(verrs))
		logger.Warn("dropped invalid records", "count", dropped)
	}
	return valid, verrs
}
