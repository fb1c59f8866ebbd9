// Package bind turns values and identifiers into backend-safe SQL text.
//
// A Binder owns a Dialect and a name generator. Bind stores a value in a
// parameter map under a fresh placeholder name and returns the placeholder
// token; Quote renders identifiers. Nothing in this package touches a
// database.
package bind

import (
	"strings"

	"github.com/roach88/nestq/internal/qerr"
	"github.com/roach88/nestq/internal/query"
	"github.com/roach88/nestq/internal/uniq"
)

// Binder binds parameters and quotes identifiers for one dialect.
//
// Thread-safety: safe for concurrent use if the namer is; the default
// namer is.
type Binder struct {
	dialect Dialect
	namer   *uniq.Namer
}

// NewBinder creates a binder. A nil namer uses uniq.Default().
func NewBinder(d Dialect, namer *uniq.Namer) *Binder {
	if namer == nil {
		namer = uniq.Default()
	}
	return &Binder{dialect: d, namer: namer}
}

// Dialect returns the binder's dialect.
func (b *Binder) Dialect() Dialect {
	return b.dialect
}

// Namer returns the binder's name generator.
func (b *Binder) Namer() *uniq.Namer {
	return b.namer
}

// Bind stores value in params under a fresh name derived from hint and
// returns the placeholder token for it.
func (b *Binder) Bind(params *query.Params, value any, hint string) string {
	name := b.namer.Next(sanitizeHint(hint))
	params.Set(name, value)
	return b.dialect.Placeholder(name)
}

// BindMany binds every pair in order, hinting each name with its key.
func (b *Binder) BindMany(params *query.Params, kvs query.KVs) []string {
	tokens := make([]string, len(kvs))
	for i, kv := range kvs {
		tokens[i] = b.Bind(params, kv.Value, kv.Key)
	}
	return tokens
}

// BindJoined is BindMany joined with sep.
func (b *Binder) BindJoined(params *query.Params, kvs query.KVs, sep string) string {
	return strings.Join(b.BindMany(params, kvs), sep)
}

// Quote quotes expr with the dialect's quote character.
func (b *Binder) Quote(expr string, quote bool, table string) string {
	return QuoteIdentifier(expr, b.dialect.QuoteChar, quote, table)
}

// QuoteAll quotes every expression.
func (b *Binder) QuoteAll(exprs []string, quote bool, table string) []string {
	out := make([]string, len(exprs))
	for i, e := range exprs {
		out[i] = b.Quote(e, quote, table)
	}
	return out
}

// StripUnreferenced returns the subset of params named by placeholders in
// sql. A placeholder without a binding is an error.
func (b *Binder) StripUnreferenced(sql string, params *query.Params) (*query.Params, error) {
	names := Placeholders(sql, b.dialect)
	for _, name := range names {
		if !params.Has(name) {
			return nil, qerr.NewUnknownParameter(name, sql)
		}
	}
	return params.Restrict(names), nil
}

// sanitizeHint keeps [A-Za-z0-9_] and guarantees a leading letter, since
// database/sql named arguments must start with one.
func sanitizeHint(hint string) string {
	var sb strings.Builder
	for _, r := range hint {
		if isIdentRune(r) {
			sb.WriteRune(r)
		} else {
			sb.WriteByte('_')
		}
	}
	s := sb.String()
	if s == "" || !isLetter(rune(s[0])) {
		s = "p" + s
	}
	return s
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentRune(r rune) bool {
	return isLetter(r) || (r >= '0' && r <= '9') || r == '_'
}
