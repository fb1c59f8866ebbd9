// Package query defines the Query Triple, the unit of composition: SQL
// text, its bound parameters and an optional row transform.
//
// Pipes, the binder and the nested-query resolver all accept and return
// triples. A triple is passed by value; its Params pointer is never mutated
// by a pipe, which always builds a fresh map for its output.
package query

import (
	"fmt"

	"github.com/roach88/nestq/internal/transform"
)

// Triple is SQL text with its parameters and row transform.
type Triple struct {
	SQL       string
	Params    *Params
	Transform *transform.Transform
}

// Pair is SQL text with its parameters and no transform.
type Pair struct {
	SQL    string
	Params *Params
}

// New creates a triple with an empty parameter map and no transform.
func New(sql string) Triple {
	return Triple{SQL: sql, Params: NewParams()}
}

// WithParams returns t with Params replaced.
func (t Triple) WithParams(p *Params) Triple {
	t.Params = p
	return t
}

// WithTransform returns t with Transform replaced.
func (t Triple) WithTransform(tr *transform.Transform) Triple {
	t.Transform = tr
	return t
}

// KV is one ordered key/value pair.
type KV struct {
	Key   string
	Value any
}

// KVs is an ordered list of key/value pairs. It replaces a map wherever
// emission order is part of the generated SQL.
type KVs []KV

// Pairs builds KVs from alternating keys and values.
// Panics if a key is not a string or the count is odd.
func Pairs(kv ...any) KVs {
	if len(kv)%2 != 0 {
		panic("query.Pairs: odd number of arguments")
	}
	out := make(KVs, 0, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			panic(fmt.Sprintf("query.Pairs: key %d is %T, not string", i/2, kv[i]))
		}
		out = append(out, KV{Key: k, Value: kv[i+1]})
	}
	return out
}

// Keys returns the keys in order.
func (kvs KVs) Keys() []string {
	keys := make([]string, len(kvs))
	for i, kv := range kvs {
		keys[i] = kv.Key
	}
	return keys
}

// Split normalizes v into a triple. It accepts a SQL string, a Pair, a
// Triple or a *Triple and defaults missing parts to an empty parameter map
// and no transform.
func Split(v any) (Triple, error) {
	var t Triple
	switch val := v.(type) {
	case string:
		t = Triple{SQL: val}
	case Pair:
		t = Triple{SQL: val.SQL, Params: val.Params}
	case Triple:
		t = val
	case *Triple:
		if val == nil {
			return Triple{}, fmt.Errorf("split: nil triple")
		}
		t = *val
	default:
		return Triple{}, fmt.Errorf("split: unsupported query value %T", v)
	}
	if t.Params == nil {
		t.Params = NewParams()
	}
	return t, nil
}
