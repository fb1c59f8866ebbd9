package exec

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/roach88/nestq/internal/bind"
	"github.com/roach88/nestq/internal/nested"
	"github.com/roach88/nestq/internal/query"
	"github.com/roach88/nestq/internal/transform"
)

// Result is the decoded output of a query.
type Result struct {
	Columns []string
	Rows    []transform.Row
}

// queryer is satisfied by *sql.DB and *sql.Conn.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Runner executes triples with the placeholder conventions of one dialect.
//
// Every statement receives only the parameters it references: drivers
// reject unused named arguments, and a resolved temp-table plan splits one
// parameter map over several statements.
//
// Thread-safety: safe for concurrent use if the underlying *sql.DB is.
type Runner struct {
	db     *sql.DB
	binder *bind.Binder
	logger *slog.Logger
}

// NewRunner creates a runner. A nil logger uses slog.Default().
func NewRunner(db *sql.DB, d bind.Dialect, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{db: db, binder: bind.NewBinder(d, nil), logger: logger}
}

// Query runs t and decodes every row with its transform.
func (r *Runner) Query(ctx context.Context, t query.Triple) (*Result, error) {
	return r.query(ctx, r.db, t.SQL, t.Params, t.Transform)
}

// RunCTE resolves root over queries into one statement and runs it.
func (r *Runner) RunCTE(ctx context.Context, res *nested.Resolver, root query.Triple, queries map[string]query.Triple) (*Result, error) {
	t, err := res.BuildCTETriple(root, queries)
	if err != nil {
		return nil, err
	}
	return r.Query(ctx, t)
}

// Exec runs a statement that returns no rows.
func (r *Runner) Exec(ctx context.Context, stmt string, params *query.Params) error {
	return r.exec(ctx, r.db, stmt, params)
}

// RunTemp runs a temp-table resolution on one connection: the open
// statements, the load query, then the close statements. Drops run even
// when an earlier step failed or ctx was cancelled; all errors are
// returned joined.
func (r *Runner) RunTemp(ctx context.Context, tt *nested.TempTriple) (res *Result, err error) {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	cleanup := tt.Queries.Close
	defer func() {
		cctx := context.WithoutCancel(ctx)
		for _, stmt := range cleanup {
			if cerr := r.exec(cctx, conn, stmt, tt.Params); cerr != nil {
				err = errors.Join(err, cerr)
			}
		}
		if err != nil {
			res = nil
		}
	}()

	for i, stmt := range tt.Queries.Open {
		if err := r.exec(ctx, conn, stmt, tt.Params); err != nil {
			cleanup = tt.Queries.Cleanup(i)
			return nil, err
		}
	}
	return r.query(ctx, conn, tt.Queries.Load, tt.Params, tt.Transform)
}

func (r *Runner) exec(ctx context.Context, q queryer, stmt string, params *query.Params) error {
	args, err := r.args(stmt, params)
	if err != nil {
		return err
	}
	r.logger.Debug("exec", "sql", stmt, "params", len(args))
	if _, err := q.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("exec %q: %w", stmt, err)
	}
	return nil
}

func (r *Runner) query(ctx context.Context, q queryer, stmt string, params *query.Params, tr *transform.Transform) (*Result, error) {
	args, err := r.args(stmt, params)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("query", "sql", stmt, "params", len(args))

	rows, err := q.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", stmt, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}

	res := &Result{Columns: cols, Rows: []transform.Row{}}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		row := make(transform.Row, len(cols))
		for i, c := range cols {
			row[c] = normalize(values[i])
		}
		decoded, err := tr.DecodeRow(row)
		if err != nil {
			return nil, err
		}
		res.Rows = append(res.Rows, decoded)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return res, nil
}

// args binds the parameters stmt references in the form the driver expects.
func (r *Runner) args(stmt string, params *query.Params) ([]any, error) {
	used, err := r.binder.StripUnreferenced(stmt, params)
	if err != nil {
		return nil, err
	}
	if used.Len() == 0 {
		return nil, nil
	}
	if r.binder.Dialect().Name == bind.Postgres.Name {
		return []any{PgxArgs(used)}, nil
	}
	args := make([]any, 0, used.Len())
	for _, k := range used.Keys() {
		v, _ := used.Get(k)
		args = append(args, sql.Named(k, v))
	}
	return args, nil
}

// normalize turns driver text returned as bytes into strings.
func normalize(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// PgxArgs converts params to pgx named arguments for @name placeholders.
func PgxArgs(params *query.Params) pgx.NamedArgs {
	return pgx.NamedArgs(params.Map())
}
