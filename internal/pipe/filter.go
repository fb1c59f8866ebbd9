package pipe

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/roach88/nestq/internal/qerr"
	"github.com/roach88/nestq/internal/query"
)

// FilterEquals AND-combines "column op value" predicates, one per pair.
// Values of columns with a codec are encoded before binding so they are
// compared against the stored form. Default op is "=", identifiers are
// quoted. No pairs is a no-op.
func (p *Pipes) FilterEquals(t query.Triple, where query.KVs, opts ...Option) (query.Triple, error) {
	t = split(t)
	if len(where) == 0 {
		return t, nil
	}
	o := collect("=", true, opts)

	params := t.Params.Clone()
	preds := make([]string, len(where))
	for i, kv := range where {
		v, err := t.Transform.EncodeValue(kv.Key, kv.Value)
		if err != nil {
			return query.Triple{}, fmt.Errorf("filter equals: %w", err)
		}
		preds[i] = fmt.Sprintf("%s %s %s",
			p.binder.Quote(kv.Key, o.quoted(), ""), o.op, p.binder.Bind(params, v, kv.Key))
	}
	sql := fmt.Sprintf("SELECT * FROM %s WHERE %s", wrapped(t.SQL), strings.Join(preds, " AND "))
	return query.Triple{SQL: sql, Params: params, Transform: t.Transform}, nil
}

// FilterEqualsAny OR-combines one FilterEquals per map through Any.
func (p *Pipes) FilterEqualsAny(t query.Triple, wheres []query.KVs, opts ...Option) (query.Triple, error) {
	specs := make([]Spec, len(wheres))
	for i, where := range wheres {
		specs[i] = Func(func(in query.Triple) (query.Triple, error) {
			return p.FilterEquals(in, where, opts...)
		})
	}
	return p.Any(t, specs)
}

// FilterMember keeps rows whose column is one of values.
// A nil values is a no-op; a scalar counts as a single value; an empty
// list matches nothing. Default op is "IN", identifiers are quoted.
func (p *Pipes) FilterMember(t query.Triple, column string, values any, opts ...Option) (query.Triple, error) {
	t = split(t)
	if values == nil {
		return t, nil
	}
	o := collect("IN", true, opts)

	items := asList(values)
	if len(items) == 0 {
		sql := fmt.Sprintf("SELECT * FROM %s WHERE 1 = 0", wrapped(t.SQL))
		return query.Triple{SQL: sql, Params: t.Params.Clone(), Transform: t.Transform}, nil
	}

	params := t.Params.Clone()
	tokens := make([]string, len(items))
	for i, item := range items {
		v, err := t.Transform.EncodeValue(column, item)
		if err != nil {
			return query.Triple{}, fmt.Errorf("filter member: %w", err)
		}
		tokens[i] = p.binder.Bind(params, v, column)
	}
	sql := fmt.Sprintf("SELECT * FROM %s WHERE %s %s (%s)",
		wrapped(t.SQL), p.binder.Quote(column, o.quoted(), ""), o.op, strings.Join(tokens, ","))
	return query.Triple{SQL: sql, Params: params, Transform: t.Transform}, nil
}

// asList spreads slices and arrays; anything else is a single value.
// []byte and strings are scalars.
func asList(v any) []any {
	if _, ok := v.([]byte); ok {
		return []any{v}
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []any{v}
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

// FilterLike keeps rows where expr matches pattern. Default op is "LIKE";
// expr is emitted raw unless Quote(true) is given.
func (p *Pipes) FilterLike(t query.Triple, expr, pattern string, opts ...Option) (query.Triple, error) {
	t = split(t)
	o := collect("LIKE", false, opts)

	params := t.Params.Clone()
	sql := fmt.Sprintf("SELECT * FROM %s WHERE %s %s (%s)",
		wrapped(t.SQL), p.binder.Quote(expr, o.quoted(), ""), o.op, p.binder.Bind(params, pattern, expr))
	return query.Triple{SQL: sql, Params: params, Transform: t.Transform}, nil
}

// FilterMatches is FilterEquals with the dialect's pattern-match operator.
func (p *Pipes) FilterMatches(t query.Triple, patterns query.KVs, opts ...Option) (query.Triple, error) {
	d := p.binder.Dialect()
	if d.MatchOperator == "" {
		return query.Triple{}, qerr.NewUnsupported("FilterMatches", d.Name)
	}
	return p.FilterEquals(t, patterns, append(opts[:len(opts):len(opts)], Op(d.MatchOperator))...)
}
