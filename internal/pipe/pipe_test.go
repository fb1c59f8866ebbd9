package pipe

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nestq/internal/bind"
	"github.com/roach88/nestq/internal/qerr"
	"github.com/roach88/nestq/internal/query"
	"github.com/roach88/nestq/internal/testutil"
	"github.com/roach88/nestq/internal/transform"
)

const users = "select * from users"

func newPipes() *Pipes {
	return New(testutil.NewBinder(bind.Generic))
}

func TestFilterEquals(t *testing.T) {
	p := newPipes()
	in := query.New(users)

	out, err := p.FilterEquals(in, query.Pairs("name", "bob", "age", 3))
	require.NoError(t, err)

	assert.Equal(t, `SELECT * FROM (select * from users) AS _q WHERE "name" = :name_0 AND "age" = :age_1`, out.SQL)
	assert.Equal(t, []string{"name_0", "age_1"}, out.Params.Keys())
	assert.Equal(t, 0, in.Params.Len(), "input params must not change")
}

func TestFilterEquals_Op(t *testing.T) {
	out, err := newPipes().FilterEquals(query.New(users), query.Pairs("a", 1), Op("<>"), Quote(false))
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM (select * from users) AS _q WHERE a <> :a_0`, out.SQL)
}

// TestFilterEquals_EncodesValues tests that filters compare against the stored form.
func TestFilterEquals_EncodesValues(t *testing.T) {
	in := query.New(users).WithTransform(transform.Of(transform.Col("active", transform.BoolAsInt)))

	out, err := newPipes().FilterEquals(in, query.Pairs("active", true))
	require.NoError(t, err)

	v, ok := out.Params.Get("active_0")
	require.True(t, ok)
	assert.Equal(t, int64(1), v)
	assert.Same(t, in.Transform, out.Transform)
}

func TestFilterEquals_EncodeError(t *testing.T) {
	in := query.New(users).WithTransform(transform.Of(transform.Col("c", transform.Category("x"))))

	_, err := newPipes().FilterEquals(in, query.Pairs("c", "y"))
	assert.Error(t, err)
}

func TestFilterEquals_Empty(t *testing.T) {
	out, err := newPipes().FilterEquals(query.New(users), nil)
	require.NoError(t, err)
	assert.Equal(t, users, out.SQL)
}

func TestFilterEqualsAny(t *testing.T) {
	out, err := newPipes().FilterEqualsAny(query.New("select * from t"), []query.KVs{
		query.Pairs("a", 1),
		query.Pairs("a", 2),
	})
	require.NoError(t, err)

	want := "\nWITH _q_0 AS (select * from t)\n" +
		`SELECT * FROM (SELECT * FROM (SELECT * FROM _q_0) AS _q WHERE "a" = :a_1) AS _q_2` +
		"\nUNION\n" +
		`SELECT * FROM (SELECT * FROM (SELECT * FROM _q_0) AS _q WHERE "a" = :a_3) AS _q_4`
	assert.Equal(t, want, out.SQL)
	assert.Equal(t, []string{"a_1", "a_3"}, out.Params.Keys())
}

func TestAll_Intersect(t *testing.T) {
	p := newPipes()
	eq := func(kvs query.KVs) Spec {
		return Func(func(in query.Triple) (query.Triple, error) { return p.FilterEquals(in, kvs) })
	}

	out, err := p.All(query.New("select * from t"), []Spec{eq(query.Pairs("a", 1)), eq(query.Pairs("b", 2))}, CTEName("base"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out.SQL, "\nWITH base AS (select * from t)\n"))
	assert.Contains(t, out.SQL, "\nINTERSECT\n")
	assert.Contains(t, out.SQL, "SELECT * FROM base")
}

func TestAny_Empty(t *testing.T) {
	out, err := newPipes().Any(query.New(users), nil)
	require.NoError(t, err)
	assert.Equal(t, users, out.SQL)
}

func TestAny_PropagatesSpecError(t *testing.T) {
	_, err := newPipes().Any(query.New(users), []Spec{nil})
	require.Error(t, err)
	assert.True(t, qerr.IsPipeComposition(err))
}

// TestAny_LiteralBranch tests that literal branches contribute their params.
func TestAny_LiteralBranch(t *testing.T) {
	lit := query.Triple{SQL: "select 1 where x = :lit", Params: query.ParamsOf(query.KV{Key: "lit", Value: 9})}

	out, err := newPipes().Any(query.New(users), []Spec{Literal{Triple: lit}})
	require.NoError(t, err)
	assert.Contains(t, out.SQL, "SELECT * FROM (select 1 where x = :lit) AS _q_1")
	assert.True(t, out.Params.Has("lit"))
}

// TestAny_TakesBranchTransform tests that projected branches narrow the result transform.
func TestAny_TakesBranchTransform(t *testing.T) {
	p := newPipes()
	in := query.New("select a, b from t").WithTransform(transform.Of(
		transform.Col("a", transform.JSON),
		transform.Col("b", transform.BoolAsInt),
	))
	project := Func(func(in query.Triple) (query.Triple, error) { return p.Project(in, []string{"a"}) })

	out, err := p.Any(in, []Spec{project, project})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, out.Transform.Columns())
	assert.Equal(t, []string{"a", "b"}, in.Transform.Columns())
}

func TestFilterMember(t *testing.T) {
	p := newPipes()

	out, err := p.FilterMember(query.New(users), "id", []int{1, 2})
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM (select * from users) AS _q WHERE "id" IN (:id_0,:id_1)`, out.SQL)
	v, _ := out.Params.Get("id_1")
	assert.Equal(t, 2, v)
}

func TestFilterMember_Scalar(t *testing.T) {
	out, err := newPipes().FilterMember(query.New(users), "name", "bob")
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM (select * from users) AS _q WHERE "name" IN (:name_0)`, out.SQL)
}

func TestFilterMember_NilIsNoop(t *testing.T) {
	out, err := newPipes().FilterMember(query.New(users), "id", nil)
	require.NoError(t, err)
	assert.Equal(t, users, out.SQL)
}

func TestFilterMember_EmptyMatchesNothing(t *testing.T) {
	out, err := newPipes().FilterMember(query.New(users), "id", []int{})
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM (select * from users) AS _q WHERE 1 = 0`, out.SQL)
}

func TestFilterMember_NotIn(t *testing.T) {
	out, err := newPipes().FilterMember(query.New(users), "id", []any{1}, Op("NOT IN"))
	require.NoError(t, err)
	assert.Contains(t, out.SQL, `"id" NOT IN (:id_0)`)
}

func TestFilterLike(t *testing.T) {
	out, err := newPipes().FilterLike(query.New(users), "name", "b%")
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM (select * from users) AS _q WHERE name LIKE (:name_0)`, out.SQL)
}

func TestFilterMatches(t *testing.T) {
	out, err := New(testutil.NewBinder(bind.SQLite)).FilterMatches(query.New(users), query.Pairs("name", "^b"))
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM (select * from users) AS _q WHERE `name` REGEXP :name_0", out.SQL)
}

func TestFilterMatches_Unsupported(t *testing.T) {
	_, err := newPipes().FilterMatches(query.New(users), query.Pairs("name", "^b"))
	require.Error(t, err)
	assert.True(t, qerr.IsUnsupported(err))
}

// TestProject_RestrictsTransform tests that dropped columns lose their codec.
func TestProject_RestrictsTransform(t *testing.T) {
	tr := transform.Of(transform.Col("a", transform.Int), transform.Col("b", transform.String))
	in := query.New("select a, b from t").WithTransform(tr)

	out, err := newPipes().Project(in, []string{"a"})
	require.NoError(t, err)

	assert.Equal(t, `SELECT "a" FROM (select a, b from t) AS _q`, out.SQL)
	assert.Equal(t, []string{"a"}, out.Transform.Columns())
	assert.Equal(t, []string{"a", "b"}, in.Transform.Columns())
}

func TestProject_Empty(t *testing.T) {
	out, err := newPipes().Project(query.New(users), nil)
	require.NoError(t, err)
	assert.Equal(t, users, out.SQL)
}

func TestAliasColumns(t *testing.T) {
	tr := transform.Of(transform.Col("a", transform.Int), transform.Col("b", transform.String))
	in := query.New("select a, b from t").WithTransform(tr)

	out, err := newPipes().AliasColumns(in, []transform.Alias{
		{Name: "n", Source: "a"},
		{Name: "", Source: "b"},
		{Name: "total", Source: "a + 1"},
	})
	require.NoError(t, err)

	assert.Equal(t, `SELECT a AS n, a + 1 AS total FROM (select a, b from t) AS _q`, out.SQL)
	assert.Equal(t, []string{"n"}, out.Transform.Columns())
}

func TestAliasColumns_AliasCodecWins(t *testing.T) {
	tr := transform.Of(transform.Col("a", transform.Int), transform.Col("n", transform.String))

	out, err := newPipes().AliasColumns(query.New("select a from t").WithTransform(tr),
		[]transform.Alias{{Name: "n", Source: "a"}}, Quote(true))
	require.NoError(t, err)

	assert.Equal(t, `SELECT "a" AS "n" FROM (select a from t) AS _q`, out.SQL)
	c, ok := out.Transform.Codec("n")
	require.True(t, ok)
	assert.Equal(t, "string", c.Name)
}

func TestOrderBy_CyclesOrders(t *testing.T) {
	out, err := newPipes().OrderBy(query.New(users), []string{"a", "b", "c", "d"}, []string{"ASC", "desc"})
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM (select * from users) AS _q ORDER BY a ASC, b DESC, c ASC, d DESC`, out.SQL)
}

func TestOrderBy_DefaultAsc(t *testing.T) {
	out, err := newPipes().OrderBy(query.New(users), []string{"a"}, nil, Quote(true))
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM (select * from users) AS _q ORDER BY "a" ASC`, out.SQL)
}

func TestOrderBy_NullsPlacement(t *testing.T) {
	out, err := newPipes().OrderBy(query.New(users), []string{"a"}, []string{"desc  nulls last"})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out.SQL, "ORDER BY a DESC NULLS LAST"))
}

func TestOrderBy_InvalidDirection(t *testing.T) {
	_, err := newPipes().OrderBy(query.New(users), []string{"a"}, []string{"UP"})
	require.Error(t, err)
	assert.True(t, qerr.IsInvalidArgument(err))
}

func TestLimit(t *testing.T) {
	p := newPipes()

	out, err := p.Limit(query.New(users), 10, 0)
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM (select * from users) AS _q LIMIT :limit_0`, out.SQL)

	out, err = p.Limit(query.New(users), 10, 5)
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM (select * from users) AS _q LIMIT :limit_1 OFFSET :offset_2`, out.SQL)
	v, _ := out.Params.Get("offset_2")
	assert.Equal(t, 5, v)
}

func TestLimit_NoLimit(t *testing.T) {
	out, err := newPipes().Limit(query.New(users), NoLimit, 5)
	require.NoError(t, err)
	assert.Equal(t, users, out.SQL)
}

func TestDistinct(t *testing.T) {
	out, err := newPipes().Distinct(query.New(users))
	require.NoError(t, err)
	assert.Equal(t, `SELECT DISTINCT * FROM (select * from users) AS _q`, out.SQL)
}

func TestAggregate_ListKeys(t *testing.T) {
	tr := transform.Of(transform.Col("k", transform.String), transform.Col("v", transform.Int))
	in := query.New("select k, v from t").WithTransform(tr)

	out, err := newPipes().Aggregate(in, []transform.Alias{{Name: "total", Source: "sum(v)"}}, []string{"k"})
	require.NoError(t, err)

	assert.Equal(t, `SELECT "k" AS "k", sum(v) AS "total" FROM (select k, v from t) AS _q GROUP BY "k"`, out.SQL)
	assert.Equal(t, []string{"k"}, out.Transform.Columns())
}

func TestAggregate_NoKeys(t *testing.T) {
	out, err := newPipes().Aggregate(query.New(users), []transform.Alias{{Name: "n", Source: "count(*)"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, `SELECT count(*) AS "n" FROM (select * from users) AS _q`, out.SQL)
}

func TestAggregateBy_ExpressionKeys(t *testing.T) {
	out, err := newPipes().AggregateBy(query.New(users),
		[]transform.Alias{{Name: "n", Source: "count(*)"}},
		[]transform.Alias{{Name: "yr", Source: "substr(d, 1, 4)"}})
	require.NoError(t, err)
	assert.Equal(t, `SELECT substr(d, 1, 4) AS "yr", count(*) AS "n" FROM (select * from users) AS _q GROUP BY substr(d, 1, 4)`, out.SQL)
}

// TestPipes_WrapInvariant tests that every pipe wraps its input as a derived table.
func TestPipes_WrapInvariant(t *testing.T) {
	p := newPipes()
	in := query.New("select a, b from t")
	pipes := map[string]Pipe{
		"equals":    func(t query.Triple) (query.Triple, error) { return p.FilterEquals(t, query.Pairs("a", 1)) },
		"member":    func(t query.Triple) (query.Triple, error) { return p.FilterMember(t, "a", []int{1, 2}) },
		"like":      func(t query.Triple) (query.Triple, error) { return p.FilterLike(t, "b", "x%") },
		"project":   func(t query.Triple) (query.Triple, error) { return p.Project(t, []string{"a"}) },
		"alias":     func(t query.Triple) (query.Triple, error) { return p.AliasColumns(t, []transform.Alias{{Name: "x", Source: "a"}}) },
		"order":     func(t query.Triple) (query.Triple, error) { return p.OrderBy(t, []string{"a"}, nil) },
		"limit":     func(t query.Triple) (query.Triple, error) { return p.Limit(t, 1, 1) },
		"distinct":  p.Distinct,
		"aggregate": func(t query.Triple) (query.Triple, error) { return p.Aggregate(t, nil, []string{"a"}) },
	}

	for name, fn := range pipes {
		t.Run(name, func(t *testing.T) {
			out, err := fn(in)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(out.SQL, "SELECT "), out.SQL)
			assert.Contains(t, out.SQL, "FROM (select a, b from t) AS _q")

			// every placeholder is bound
			_, err = p.Binder().StripUnreferenced(out.SQL, out.Params)
			assert.NoError(t, err)
		})
	}
}

// TestPipes_Deterministic tests that equal inputs give equal SQL under equal seeds.
func TestPipes_Deterministic(t *testing.T) {
	run := func() string {
		p := newPipes()
		out, err := p.FilterEqualsAny(query.New(users), []query.KVs{query.Pairs("a", 1), query.Pairs("b", 2)})
		require.NoError(t, err)
		return out.SQL
	}
	assert.Equal(t, run(), run())
}
