package pipe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nestq/internal/qerr"
	"github.com/roach88/nestq/internal/query"
)

func wrapWith(prefix string) Pipe {
	return func(t query.Triple) (query.Triple, error) {
		t.SQL = prefix + "(" + t.SQL + ")"
		return t, nil
	}
}

func TestApply_Call(t *testing.T) {
	out, err := Apply(query.New("q"), Func(wrapWith("f")))
	require.NoError(t, err)
	assert.Equal(t, "f(q)", out.SQL)
}

func TestApply_Bound(t *testing.T) {
	spec := Bound{
		Fn: func(t query.Triple, args Args) (query.Triple, error) {
			t.SQL = t.SQL + " LIMIT " + args["n"].(string)
			return t, nil
		},
		Args: Args{"n": "3"},
	}

	out, err := Apply(query.New("q"), spec)
	require.NoError(t, err)
	assert.Equal(t, "q LIMIT 3", out.SQL)
}

func TestApply_Literal(t *testing.T) {
	out, err := Apply(query.New("ignored"), Literal{Triple: query.Triple{SQL: "select 1"}})
	require.NoError(t, err)
	assert.Equal(t, "select 1", out.SQL)
	assert.NotNil(t, out.Params)
}

// TestApply_NestedChain tests that chains resolve recursively.
func TestApply_NestedChain(t *testing.T) {
	spec := Chain{Func(wrapWith("a")), Chain{Func(wrapWith("b")), Func(wrapWith("c"))}}

	out, err := Apply(query.New("q"), spec)
	require.NoError(t, err)
	assert.Equal(t, "c(b(a(q)))", out.SQL)
}

func TestApply_Rejects(t *testing.T) {
	cases := map[string]Spec{
		"nil":         nil,
		"empty call":  Call{},
		"empty bound": Bound{Args: Args{"x": 1}},
		"nested nil":  Chain{Func(wrapWith("a")), nil},
	}
	for name, spec := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Apply(query.New("q"), spec)
			require.Error(t, err)
			assert.True(t, qerr.IsPipeComposition(err))
		})
	}
}

func TestConcat(t *testing.T) {
	p := newPipes()
	out, err := Concat(query.Triple{SQL: users},
		Func(func(t query.Triple) (query.Triple, error) { return p.FilterEquals(t, query.Pairs("a", 1)) }),
		Func(p.Distinct),
	)
	require.NoError(t, err)
	assert.Equal(t, `SELECT DISTINCT * FROM (SELECT * FROM (select * from users) AS _q WHERE "a" = :a_0) AS _q`, out.SQL)
	assert.Equal(t, 1, out.Params.Len())
}

func TestConcat_NoSpecs(t *testing.T) {
	out, err := Concat(query.Triple{SQL: users})
	require.NoError(t, err)
	assert.Equal(t, users, out.SQL)
	assert.NotNil(t, out.Params)
}
