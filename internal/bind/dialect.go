package bind

import (
	"fmt"
	"strings"
)

// Dialect holds the backend conventions the binder emits.
type Dialect struct {
	// Name identifies the backend in errors and configuration.
	Name string

	// QuoteChar wraps quoted identifiers.
	QuoteChar string

	// ParamPrefix and ParamSuffix surround a placeholder name.
	ParamPrefix string
	ParamSuffix string

	// MatchOperator is the pattern-match operator used by FilterMatches.
	// Empty means the backend has none.
	MatchOperator string
}

var (
	// SQLite uses :name placeholders and backtick identifiers.
	SQLite = Dialect{Name: "sqlite", QuoteChar: "`", ParamPrefix: ":", MatchOperator: "REGEXP"}

	// Postgres uses @name placeholders, which pgx rewrites from NamedArgs.
	Postgres = Dialect{Name: "postgres", QuoteChar: `"`, ParamPrefix: "@", MatchOperator: "~"}

	// Generic uses :name placeholders, double-quoted identifiers and no
	// match operator.
	Generic = Dialect{Name: "generic", QuoteChar: `"`, ParamPrefix: ":"}
)

// DialectByName returns the preset named name ("sqlite", "postgres",
// "pgsql" or "generic").
func DialectByName(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql", "pgsql", "pgx":
		return Postgres, nil
	case "generic", "":
		return Generic, nil
	default:
		return Dialect{}, fmt.Errorf("unknown dialect %q (expected sqlite, postgres or generic)", name)
	}
}

// Placeholder formats name as a placeholder token.
func (d Dialect) Placeholder(name string) string {
	return d.ParamPrefix + name + d.ParamSuffix
}
