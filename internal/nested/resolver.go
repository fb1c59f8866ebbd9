package nested

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/nestq/internal/query"
	"github.com/roach88/nestq/internal/transform"
	"github.com/roach88/nestq/internal/uniq"
)

// DefaultSeparator joins temp-table statements.
const DefaultSeparator = ";\n\n-- next query\n\n"

// Resolver turns a root template and named templates into executable SQL.
//
// Thread-safety: a Resolver holds no per-call state. Concurrent calls are
// safe if the namer is; the default namer is.
type Resolver struct {
	quoteChar string
	maxDepth  int
	separator string
	hints     bool
	namer     *uniq.Namer
	logger    *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithQuoteChar sets the character generated names and quote markers are
// quoted with. Default is '"'.
func WithQuoteChar(q string) Option {
	return func(r *Resolver) { r.quoteChar = q }
}

// WithMaxDepth bounds the nesting depth. Default is DefaultMaxDepth.
func WithMaxDepth(n int) Option {
	return func(r *Resolver) { r.maxDepth = n }
}

// WithSeparator sets the string that joins temp-table statements.
func WithSeparator(sep string) Option {
	return func(r *Resolver) { r.separator = sep }
}

// WithMaterializationHints controls whether +/- references emit
// MATERIALIZED / NOT MATERIALIZED. Default is true.
func WithMaterializationHints(on bool) Option {
	return func(r *Resolver) { r.hints = on }
}

// WithNamer sets the generator of CTE and temp-table names.
func WithNamer(n *uniq.Namer) Option {
	return func(r *Resolver) { r.namer = n }
}

// WithLogger sets the logger for resolution summaries.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// NewResolver creates a resolver.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		quoteChar: `"`,
		maxDepth:  DefaultMaxDepth,
		separator: DefaultSeparator,
		hints:     true,
		namer:     uniq.Default(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Separator returns the temp-table statement separator.
func (r *Resolver) Separator() string {
	return r.separator
}

// Order builds the dependency graph of root over queries.
func (r *Resolver) Order(root string, queries map[string]string) (*Graph, error) {
	return Order(root, queries, r.maxDepth)
}

func (r *Resolver) quote(name string) string {
	return r.quoteChar + name + r.quoteChar
}

func (r *Resolver) hint(s Sign) string {
	if !r.hints {
		return ""
	}
	switch s {
	case Materialized:
		return "MATERIALIZED "
	case NotMaterialized:
		return "NOT MATERIALIZED "
	}
	return ""
}

// BuildCTE resolves root into a single statement whose shared references
// are CTEs, defined deepest first.
func (r *Resolver) BuildCTE(root string, queries map[string]string) (string, error) {
	g, err := r.Order(root, queries)
	if err != nil {
		return "", err
	}
	return r.buildCTE(g)
}

func (r *Resolver) buildCTE(g *Graph) (string, error) {
	names := make(map[string]string)
	var ctes []*Node
	for _, n := range g.Sorted() {
		if n.Sign == Inline {
			continue
		}
		names[n.Key] = r.quote(r.namer.Next(n.Name))
		ctes = append(ctes, n)
	}

	subst := func(ref Reference) (Template, bool) {
		if ref.Sign == Inline {
			sub, ok := g.Template(ref.Name)
			return inlined(ref, sub), ok
		}
		quoted, ok := names[ref.Key()]
		return named(ref, quoted), ok
	}

	entries := make([]string, len(ctes))
	for i, n := range ctes {
		tpl, _ := g.Template(n.Name)
		body, err := expand(tpl, subst)
		if err != nil {
			return "", fmt.Errorf("expand %s: %w", n.Name, err)
		}
		entries[i] = fmt.Sprintf("%s AS %s(%s)", names[n.Key], r.hint(n.Sign), render(body, r.quoteChar))
	}

	rootOut, err := expand(g.Root(), subst)
	if err != nil {
		return "", fmt.Errorf("expand root: %w", err)
	}
	sql := render(rootOut, r.quoteChar)
	if len(entries) > 0 {
		sql = "WITH " + strings.Join(entries, ",\n") + "\n" + sql
	}

	r.logger.Debug("resolved nested query",
		"mode", "cte",
		"nodes", g.Len(),
		"ctes", len(entries))
	return sql, nil
}

// BuildCTE resolves root with a default resolver.
func BuildCTE(root string, queries map[string]string) (string, error) {
	return NewResolver().BuildCTE(root, queries)
}

// BuildTempQueries resolves root with a default resolver.
func BuildTempQueries(root string, queries map[string]string) (*TempQueries, error) {
	return NewResolver().BuildTemp(root, queries)
}

// BuildCTETriple is BuildCTE over triples. Parameters of the root and of
// every referenced query are merged; one name bound to two different values
// is an error. The root's transform is kept.
func (r *Resolver) BuildCTETriple(root query.Triple, queries map[string]query.Triple) (query.Triple, error) {
	g, params, err := r.orderTriples(root, queries)
	if err != nil {
		return query.Triple{}, err
	}
	sql, err := r.buildCTE(g)
	if err != nil {
		return query.Triple{}, err
	}
	return query.Triple{SQL: sql, Params: params, Transform: root.Transform}, nil
}

// TempTriple is a temp-table resolution with its merged parameters and the
// transform of the load query.
type TempTriple struct {
	Queries   *TempQueries
	Params    *query.Params
	Transform *transform.Transform
}

// BuildTempTriple is BuildTemp over triples; parameters merge as in
// BuildCTETriple.
func (r *Resolver) BuildTempTriple(root query.Triple, queries map[string]query.Triple) (*TempTriple, error) {
	g, params, err := r.orderTriples(root, queries)
	if err != nil {
		return nil, err
	}
	tq, err := r.buildTemp(g)
	if err != nil {
		return nil, err
	}
	return &TempTriple{Queries: tq, Params: params, Transform: root.Transform}, nil
}

func (r *Resolver) orderTriples(root query.Triple, queries map[string]query.Triple) (*Graph, *query.Params, error) {
	templates := make(map[string]string, len(queries))
	for name, t := range queries {
		templates[name] = t.SQL
	}
	g, err := r.Order(root.SQL, templates)
	if err != nil {
		return nil, nil, err
	}

	params := root.Params.Clone()
	seen := make(map[string]bool)
	for _, n := range g.Nodes() {
		if seen[n.Name] {
			continue
		}
		seen[n.Name] = true
		if params, err = params.Merge(queries[n.Name].Params); err != nil {
			return nil, nil, fmt.Errorf("merge params of %s: %w", n.Name, err)
		}
	}
	return g, params, nil
}
