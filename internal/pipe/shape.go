package pipe

import (
	"fmt"
	"strings"

	"github.com/roach88/nestq/internal/qerr"
	"github.com/roach88/nestq/internal/query"
	"github.com/roach88/nestq/internal/transform"
)

// NoLimit disables Limit.
const NoLimit = -1

// Project keeps only columns and drops the codecs of every other column.
// Identifiers are quoted by default. No columns is a no-op.
func (p *Pipes) Project(t query.Triple, columns []string, opts ...Option) (query.Triple, error) {
	t = split(t)
	if len(columns) == 0 {
		return t, nil
	}
	o := collect("", true, opts)

	sql := fmt.Sprintf("SELECT %s FROM %s",
		strings.Join(p.binder.QuoteAll(columns, o.quoted(), ""), ", "), wrapped(t.SQL))
	return query.Triple{SQL: sql, Params: t.Params, Transform: t.Transform.Restrict(columns)}, nil
}

// AliasColumns selects each alias Source expression under its Name.
// A codec registered under the alias wins over one registered under the
// source expression. Pairs with an empty name or source are skipped.
// Identifiers are emitted raw by default.
func (p *Pipes) AliasColumns(t query.Triple, aliases []transform.Alias, opts ...Option) (query.Triple, error) {
	t = split(t)
	o := collect("", false, opts)

	var kept []transform.Alias
	var cols []string
	for _, a := range aliases {
		if a.Name == "" || a.Source == "" {
			continue
		}
		kept = append(kept, a)
		cols = append(cols, fmt.Sprintf("%s AS %s",
			p.binder.Quote(a.Source, o.quoted(), ""), p.binder.Quote(a.Name, o.quoted(), "")))
	}
	if len(kept) == 0 {
		return t, nil
	}
	sql := fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), wrapped(t.SQL))
	return query.Triple{SQL: sql, Params: t.Params, Transform: t.Transform.Select(kept)}, nil
}

var sortDirections = map[string]bool{
	"ASC": true, "DESC": true,
	"ASC NULLS FIRST": true, "ASC NULLS LAST": true,
	"DESC NULLS FIRST": true, "DESC NULLS LAST": true,
}

// OrderBy sorts by exprs. orders is cycled when shorter than exprs and
// defaults to ASC. Identifiers are emitted raw by default.
func (p *Pipes) OrderBy(t query.Triple, exprs []string, orders []string, opts ...Option) (query.Triple, error) {
	t = split(t)
	if len(exprs) == 0 {
		return t, nil
	}
	if len(orders) == 0 {
		orders = []string{"ASC"}
	}
	o := collect("", false, opts)

	terms := make([]string, len(exprs))
	for i, e := range exprs {
		dir := strings.ToUpper(strings.Join(strings.Fields(orders[i%len(orders)]), " "))
		if !sortDirections[dir] {
			return query.Triple{}, qerr.NewInvalidArgument("orders", fmt.Sprintf("unknown sort direction %q", orders[i%len(orders)]))
		}
		terms[i] = p.binder.Quote(e, o.quoted(), "") + " " + dir
	}
	sql := fmt.Sprintf("SELECT * FROM %s ORDER BY %s", wrapped(t.SQL), strings.Join(terms, ", "))
	return query.Triple{SQL: sql, Params: t.Params, Transform: t.Transform}, nil
}

// Limit keeps at most limit rows after skipping offset rows.
// NoLimit (any negative limit) is a no-op; offset is bound only when positive.
func (p *Pipes) Limit(t query.Triple, limit, offset int) (query.Triple, error) {
	t = split(t)
	if limit < 0 {
		return t, nil
	}
	params := t.Params.Clone()
	sql := fmt.Sprintf("SELECT * FROM %s LIMIT %s", wrapped(t.SQL), p.binder.Bind(params, limit, "limit"))
	if offset > 0 {
		sql += " OFFSET " + p.binder.Bind(params, offset, "offset")
	}
	return query.Triple{SQL: sql, Params: params, Transform: t.Transform}, nil
}

// Distinct removes duplicate rows.
func (p *Pipes) Distinct(t query.Triple) (query.Triple, error) {
	t = split(t)
	return query.Triple{SQL: "SELECT DISTINCT * FROM " + wrapped(t.SQL), Params: t.Params, Transform: t.Transform}, nil
}

// Aggregate groups by the named columns, selecting each under its own
// name, followed by the aggregate expressions under their aliases.
// Identifiers are quoted by default.
func (p *Pipes) Aggregate(t query.Triple, aggregates []transform.Alias, keys []string, opts ...Option) (query.Triple, error) {
	o := collect("", true, opts)
	exprs := make([]transform.Alias, len(keys))
	for i, k := range keys {
		exprs[i] = transform.Alias{Name: k, Source: p.binder.Quote(k, o.quoted(), "")}
	}
	return p.aggregate(t, aggregates, keys, exprs, o)
}

// AggregateBy groups by key expressions, selecting each Source expression
// under its Name, followed by the aggregate expressions.
func (p *Pipes) AggregateBy(t query.Triple, aggregates []transform.Alias, keys []transform.Alias, opts ...Option) (query.Triple, error) {
	o := collect("", true, opts)
	sources := make([]string, len(keys))
	for i, k := range keys {
		sources[i] = k.Source
	}
	return p.aggregate(t, aggregates, sources, keys, o)
}

// aggregate emits the query; sources are the transform lookups for keys.
func (p *Pipes) aggregate(t query.Triple, aggregates []transform.Alias, sources []string, keys []transform.Alias, o options) (query.Triple, error) {
	t = split(t)
	if len(aggregates) == 0 && len(keys) == 0 {
		return t, nil
	}

	cols := make([]string, 0, len(keys)+len(aggregates))
	groups := make([]string, 0, len(keys))
	selected := make([]transform.Alias, 0, len(keys)+len(aggregates))
	for i, k := range keys {
		cols = append(cols, k.Source+" AS "+p.binder.Quote(k.Name, o.quoted(), ""))
		groups = append(groups, k.Source)
		selected = append(selected, transform.Alias{Name: k.Name, Source: sources[i]})
	}
	for _, a := range aggregates {
		cols = append(cols, a.Source+" AS "+p.binder.Quote(a.Name, o.quoted(), ""))
		selected = append(selected, transform.Alias{Name: a.Name, Source: a.Name})
	}

	sql := fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), wrapped(t.SQL))
	if len(groups) > 0 {
		sql += " GROUP BY " + strings.Join(groups, ", ")
	}
	return query.Triple{SQL: sql, Params: t.Params, Transform: t.Transform.Select(selected)}, nil
}
