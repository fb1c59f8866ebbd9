// Package transform models the row decoder attached to a query triple.
//
// A Transform is an ordered list of per-column codecs plus optional
// whole-row steps. It is an immutable value: every operation returns a new
// Transform, so wrapping a triple in a pipe never corrupts the transform of
// the triple it came from. A nil *Transform is the absent transform and all
// methods accept it.
//
// exec decodes every result row with DecodeRow, so row steps added with
// ThenRow run on query results. EncodeRow is for callers writing decoded
// rows back to their stored form; pipes only need EncodeValue.
package transform

import (
	"fmt"
	"slices"
)

// Row is one decoded result row keyed by column name.
type Row map[string]any

// Direction selects which half of a codec runs.
type Direction int

const (
	// Encode converts domain values to their stored representation.
	Encode Direction = iota
	// Decode converts stored values back to domain values.
	Decode
)

// String returns "encode" or "decode".
func (d Direction) String() string {
	if d == Decode {
		return "decode"
	}
	return "encode"
}

// Codec converts one column value in both directions.
// A nil Encode or Decode passes values through unchanged.
type Codec struct {
	Name   string
	Encode func(v any) (any, error)
	Decode func(v any) (any, error)
}

// Apply runs the half of the codec selected by dir.
func (c Codec) Apply(v any, dir Direction) (any, error) {
	f := c.Encode
	if dir == Decode {
		f = c.Decode
	}
	if f == nil {
		return v, nil
	}
	return f(v)
}

// RowStep post-processes a whole row after per-column codecs ran (Decode)
// or before they run (Encode).
type RowStep func(row Row, dir Direction) (Row, error)

type column struct {
	name  string
	codec Codec
}

// Transform is an ordered set of column codecs and row steps.
type Transform struct {
	columns []column
	steps   []RowStep
}

// Alias maps an output column Name to the Source column it is computed from.
type Alias struct {
	Name   string
	Source string
}

// New creates an empty transform.
func New() *Transform {
	return &Transform{}
}

// Of creates a transform from column codecs, in order.
func Of(pairs ...ColumnCodec) *Transform {
	t := New()
	for _, p := range pairs {
		t = t.Set(p.Column, p.Codec)
	}
	return t
}

// ColumnCodec pairs a column with its codec.
type ColumnCodec struct {
	Column string
	Codec  Codec
}

// Col is shorthand for building a ColumnCodec.
func Col(name string, codec Codec) ColumnCodec {
	return ColumnCodec{Column: name, Codec: codec}
}

func (t *Transform) clone() *Transform {
	if t == nil {
		return New()
	}
	return &Transform{
		columns: slices.Clone(t.columns),
		steps:   slices.Clone(t.steps),
	}
}

func (t *Transform) index(name string) int {
	if t == nil {
		return -1
	}
	for i, c := range t.columns {
		if c.name == name {
			return i
		}
	}
	return -1
}

// Set returns a transform with codec registered for name, replacing any
// previous codec for that column in place.
func (t *Transform) Set(name string, codec Codec) *Transform {
	out := t.clone()
	if i := out.index(name); i >= 0 {
		out.columns[i].codec = codec
		return out
	}
	out.columns = append(out.columns, column{name: name, codec: codec})
	return out
}

// ThenRow returns a transform with step appended to the row steps.
func (t *Transform) ThenRow(step RowStep) *Transform {
	out := t.clone()
	out.steps = append(out.steps, step)
	return out
}

// Codec returns the codec registered for name.
func (t *Transform) Codec(name string) (Codec, bool) {
	i := t.index(name)
	if i < 0 {
		return Codec{}, false
	}
	return t.columns[i].codec, true
}

// Columns returns the column names with a codec, in registration order.
func (t *Transform) Columns() []string {
	if t == nil {
		return nil
	}
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.name
	}
	return names
}

// Steps returns the number of row steps.
func (t *Transform) Steps() int {
	if t == nil {
		return 0
	}
	return len(t.steps)
}

// Empty reports whether the transform has neither codecs nor row steps.
func (t *Transform) Empty() bool {
	return t == nil || (len(t.columns) == 0 && len(t.steps) == 0)
}

// Restrict keeps only the codecs of cols. Row steps are kept.
// Returns nil when nothing survives.
func (t *Transform) Restrict(cols []string) *Transform {
	aliases := make([]Alias, len(cols))
	for i, c := range cols {
		aliases[i] = Alias{Name: c, Source: c}
	}
	return t.Select(aliases)
}

// Select builds the transform for a projection under new names.
// For each alias the codec registered under the alias name wins; otherwise
// the codec of the source column is carried over to the alias. Columns not
// named by any alias are dropped. Returns nil when nothing survives.
func (t *Transform) Select(aliases []Alias) *Transform {
	if t == nil {
		return nil
	}
	out := &Transform{steps: slices.Clone(t.steps)}
	for _, a := range aliases {
		if c, ok := t.Codec(a.Name); ok {
			out = out.Set(a.Name, c)
			continue
		}
		if c, ok := t.Codec(a.Source); ok {
			out = out.Set(a.Name, c)
		}
	}
	if out.Empty() {
		return nil
	}
	return out
}

// Chain composes t with other: codecs are merged with other winning on the
// same column and row steps run t's first, then other's.
func (t *Transform) Chain(other *Transform) *Transform {
	if other == nil {
		if t == nil {
			return nil
		}
		return t.clone()
	}
	out := t.clone()
	for _, c := range other.columns {
		out = out.Set(c.name, c.codec)
	}
	out.steps = append(out.steps, other.steps...)
	return out
}

// EncodeValue converts a domain value of column name to its stored form.
func (t *Transform) EncodeValue(name string, v any) (any, error) {
	c, ok := t.Codec(name)
	if !ok {
		return v, nil
	}
	out, err := c.Apply(v, Encode)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", name, err)
	}
	return out, nil
}

// DecodeRow applies column codecs and then the row steps.
// The input row is not modified.
func (t *Transform) DecodeRow(row Row) (Row, error) {
	out := make(Row, len(row))
	for k, v := range row {
		c, ok := t.Codec(k)
		if !ok {
			out[k] = v
			continue
		}
		dv, err := c.Apply(v, Decode)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", k, err)
		}
		out[k] = dv
	}
	if t == nil {
		return out, nil
	}
	for _, step := range t.steps {
		var err error
		if out, err = step(out, Decode); err != nil {
			return nil, fmt.Errorf("row step: %w", err)
		}
	}
	return out, nil
}

// EncodeRow is the inverse of DecodeRow: row steps run last-to-first, then
// the column codecs encode each value.
func (t *Transform) EncodeRow(row Row) (Row, error) {
	out := make(Row, len(row))
	for k, v := range row {
		out[k] = v
	}
	if t != nil {
		for i := len(t.steps) - 1; i >= 0; i-- {
			var err error
			if out, err = t.steps[i](out, Encode); err != nil {
				return nil, fmt.Errorf("row step: %w", err)
			}
		}
	}
	for k, v := range out {
		ev, err := t.EncodeValue(k, v)
		if err != nil {
			return nil, err
		}
		out[k] = ev
	}
	return out, nil
}
