package record

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"go.uber.org/multierr"
)

//go:embed schema.cue
var schemaCUE string

// Validator checks records against the embedded per-tracepoint CUE schema.
// Tracepoints without a schema entry are accepted unchanged.
//
// A Validator is not safe for concurrent use; the underlying cue.Context is
// single-threaded.
type Validator struct {
	ctx    *cue.Context
	schema cue.Value
}

// ValidationError describes a record rejected by the schema.
type ValidationError struct {
	Name      string
	Timestamp int64
	Message   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s@%d: %s", e.Name, e.Timestamp, e.Message)
}

// NewValidator compiles the embedded schema.
func NewValidator() (*Validator, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile record schema: %s", cueerrors.Details(err, nil))
	}
	return &Validator{ctx: ctx, schema: schema}, nil
}

// HasSchema reports whether the tracepoint has a schema entry.
func (v *Validator) HasSchema(name string) bool {
	return v.schema.LookupPath(cue.MakePath(cue.Str(name))).Exists()
}

// Validate unifies the record fields with the tracepoint schema and requires
// every schema field to be concrete.
func (v *Validator) Validate(r Record) error {
	def := v.schema.LookupPath(cue.MakePath(cue.Str(r.Name)))
	if !def.Exists() {
		return nil
	}

	fields := make(map[string]any, len(r.Fields))
	for k, val := range r.Fields {
		fields[k] = plain(val)
	}
	data := v.ctx.Encode(fields)
	if err := data.Err(); err != nil {
		return &ValidationError{Name: r.Name, Timestamp: r.Timestamp, Message: err.Error()}
	}

	unified := def.Unify(data)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return &ValidationError{
			Name:      r.Name,
			Timestamp: r.Timestamp,
			Message:   cueerrors.Details(err, nil),
		}
	}
	return nil
}

// Filter returns a copy of the collection holding only valid records, plus
// the combined validation errors of the dropped ones.
func (v *Validator) Filter(c *Collection) (*Collection, error) {
	out := NewCollection()
	out.Discarded = c.Discarded

	var errs error
	for _, name := range c.Names() {
		for _, r := range c.Get(name) {
			if err := v.Validate(r); err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			out.Add(r)
		}
	}
	return out, errs
}
