package exec

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nestq/internal/query"
	"github.com/roach88/nestq/internal/transform"
)

// fakeRows serves fixed values through the pgx.Rows interface.
type fakeRows struct {
	fields []pgconn.FieldDescription
	values [][]any
	pos    int
	closed bool
}

func (r *fakeRows) Close()                                       { r.closed = true }
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return r.fields }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.closed || r.pos >= len(r.values) {
		return false
	}
	r.pos++
	return true
}

// Scan supports the row scanners pgx.RowTo* pass in, which read Values.
func (r *fakeRows) Scan(dest ...any) error {
	if len(dest) == 1 {
		if rs, ok := dest[0].(pgx.RowScanner); ok {
			return rs.ScanRow(r)
		}
	}
	return errors.New("fakeRows: scan into plain destinations not supported")
}

func (r *fakeRows) Values() ([]any, error) {
	return r.values[r.pos-1], nil
}

type fakeQuerier struct {
	rows *fakeRows
	sql  string
	args []any
}

func (q *fakeQuerier) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	q.sql = sql
	q.args = args
	return q.rows, nil
}

func TestQueryPgx(t *testing.T) {
	q := &fakeQuerier{rows: &fakeRows{
		fields: []pgconn.FieldDescription{{Name: "name"}, {Name: "tags"}},
		values: [][]any{{"ann", `["a","b"]`}, {"bob", `[]`}},
	}}
	tq := query.New("select name, tags from users where age = @age_0").
		WithParams(query.ParamsOf(query.KV{Key: "age_0", Value: 30})).
		WithTransform(transform.Of(transform.Col("tags", transform.JSON)))

	res, err := QueryPgx(context.Background(), q, tq)
	require.NoError(t, err)

	assert.Equal(t, tq.SQL, q.sql)
	require.Len(t, q.args, 1)
	assert.Equal(t, pgx.NamedArgs{"age_0": 30}, q.args[0])

	assert.Equal(t, []string{"name", "tags"}, res.Columns)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "ann", res.Rows[0]["name"])
	assert.Equal(t, []any{"a", "b"}, res.Rows[0]["tags"])
	assert.True(t, q.rows.closed)
}
