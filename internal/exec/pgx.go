package exec

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/roach88/nestq/internal/query"
	"github.com/roach88/nestq/internal/transform"
)

// PgxQuerier is satisfied by *pgx.Conn, *pgxpool.Pool and pgx.Tx.
type PgxQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// QueryPgx runs t through a native pgx querier. Placeholders must use the
// Postgres dialect (@name).
func QueryPgx(ctx context.Context, q PgxQuerier, t query.Triple) (*Result, error) {
	rows, err := q.Query(ctx, t.SQL, PgxArgs(t.Params))
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", t.SQL, err)
	}

	var cols []string
	for _, fd := range rows.FieldDescriptions() {
		cols = append(cols, fd.Name)
	}

	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("collect rows: %w", err)
	}

	res := &Result{Columns: cols, Rows: make([]transform.Row, 0, len(maps))}
	for _, m := range maps {
		decoded, err := t.Transform.DecodeRow(transform.Row(m))
		if err != nil {
			return nil, err
		}
		res.Rows = append(res.Rows, decoded)
	}
	return res, nil
}
