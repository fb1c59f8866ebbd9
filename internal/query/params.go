package query

import (
	"maps"
	"reflect"
	"slices"

	"github.com/roach88/nestq/internal/qerr"
)

// Params is an insertion-ordered parameter map: placeholder name to value.
//
// Order matters only for readable, deterministic output; lookups are by name.
// The zero value is not usable, create one with NewParams.
type Params struct {
	keys   []string
	values map[string]any
}

// NewParams creates an empty parameter map.
func NewParams() *Params {
	return &Params{values: make(map[string]any)}
}

// ParamsOf creates a parameter map from key/value pairs, in order.
func ParamsOf(kvs ...KV) *Params {
	p := NewParams()
	for _, kv := range kvs {
		p.Set(kv.Key, kv.Value)
	}
	return p
}

// Set binds name to v. Rebinding keeps the original position.
func (p *Params) Set(name string, v any) {
	if _, ok := p.values[name]; !ok {
		p.keys = append(p.keys, name)
	}
	p.values[name] = v
}

// Get returns the value bound to name.
func (p *Params) Get(name string) (any, bool) {
	if p == nil {
		return nil, false
	}
	v, ok := p.values[name]
	return v, ok
}

// Has reports whether name is bound.
func (p *Params) Has(name string) bool {
	_, ok := p.Get(name)
	return ok
}

// Len returns the number of bound names.
func (p *Params) Len() int {
	if p == nil {
		return 0
	}
	return len(p.keys)
}

// Keys returns the bound names in insertion order.
func (p *Params) Keys() []string {
	if p == nil {
		return nil
	}
	return slices.Clone(p.keys)
}

// Map returns a copy of the bindings as a plain map.
func (p *Params) Map() map[string]any {
	if p == nil {
		return map[string]any{}
	}
	return maps.Clone(p.values)
}

// Clone returns an independent copy.
func (p *Params) Clone() *Params {
	out := NewParams()
	if p == nil {
		return out
	}
	out.keys = slices.Clone(p.keys)
	out.values = maps.Clone(p.values)
	return out
}

// Merge returns a new map with the bindings of p followed by those of
// other. A name bound in both to different values is an error.
func (p *Params) Merge(other *Params) (*Params, error) {
	out := p.Clone()
	for _, k := range other.Keys() {
		v, _ := other.Get(k)
		if existing, ok := out.values[k]; ok {
			if !reflect.DeepEqual(existing, v) {
				return nil, qerr.NewConflictingParameter(k)
			}
			continue
		}
		out.Set(k, v)
	}
	return out, nil
}

// Restrict returns a new map holding only names, in the order of p.
func (p *Params) Restrict(names []string) *Params {
	out := NewParams()
	for _, k := range p.Keys() {
		if slices.Contains(names, k) {
			out.Set(k, p.values[k])
		}
	}
	return out
}
