package nested

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/nestq/internal/qerr"
)

func TestParse_Segments(t *testing.T) {
	tpl, err := Parse("q", "select * from :<a>: x where y = :p and z::int")
	require.NoError(t, err)

	assert.Equal(t, Template{
		Text("select * from "),
		Reference{Sign: Shared, Name: "a", Alias: "x"},
		Text(" where y = :p and z::int"),
	}, tpl)
}

func TestParse_Signs(t *testing.T) {
	tpl, err := Parse("q", ":<+a>::<-b>::<=c>: alias:<d>:")
	require.NoError(t, err)

	refs := tpl.References()
	require.Len(t, refs, 4)
	assert.Equal(t, Materialized, refs[0].Sign)
	assert.Equal(t, NotMaterialized, refs[1].Sign)
	assert.Equal(t, Inline, refs[2].Sign)
	assert.Equal(t, "alias", refs[2].Alias)
	assert.Equal(t, Shared, refs[3].Sign)
	assert.Equal(t, "+a", refs[0].Key())
	assert.Equal(t, "d", refs[3].Key())
}

func TestParse_QuoteSpan(t *testing.T) {
	tpl, err := Parse("q", "select :|t.col|: from t")
	require.NoError(t, err)
	assert.Equal(t, Template{Text("select "), QuoteSpan{Expr: "t.col"}, Text(" from t")}, tpl)
}

func TestParse_ReservedWordAfterMarker(t *testing.T) {
	tpl, err := Parse("q", "select * from :<=a>: where x = 1")
	require.NoError(t, err)

	assert.Equal(t, Template{
		Text("select * from "),
		Reference{Sign: Inline, Name: "a"},
		Text(" where x = 1"),
	}, tpl)
}

func TestParse_AsAlias(t *testing.T) {
	tpl, err := Parse("q", "from :<=a>: as t")
	require.NoError(t, err)

	refs := tpl.References()
	require.Len(t, refs, 1)
	assert.Equal(t, "as t", refs[0].Alias)
	assert.Equal(t, "from :<=a>: as t", tpl.String())
}

// TestParse_LiteralsAndComments tests that marker openers in literals and comments are plain text.
func TestParse_LiteralsAndComments(t *testing.T) {
	src := "select ':<', \"a:|b\", `:<x>:` /* :<y>: */ -- :|z\nfrom t where s = 'it''s :<q>:'"
	tpl, err := Parse("q", src)
	require.NoError(t, err)

	assert.Empty(t, tpl.References())
	assert.Equal(t, Template{Text(src)}, tpl)
}

func TestParse_Empty(t *testing.T) {
	tpl, err := Parse("q", "")
	require.NoError(t, err)
	assert.Empty(t, tpl)
}

// TestParse_RoundTrip tests that serializing a parsed template restores it.
func TestParse_RoundTrip(t *testing.T) {
	src := "select _b.v from :<b>: _b, :<=c>:\nwhere :|x|: = :p::text"
	tpl, err := Parse("q", src)
	require.NoError(t, err)
	assert.Equal(t, src, tpl.String())
}

func TestParse_Malformed(t *testing.T) {
	cases := map[string]string{
		"unterminated reference": "select * from :<a",
		"empty name":             "select * from :<>:",
		"bad name":               "select * from :<a-b>:",
		"unterminated quote":     "select :|a.b from t",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse("broken", src)
			require.Error(t, err)
			assert.True(t, qerr.IsMalformedTemplate(err))

			var qe *qerr.Error
			require.ErrorAs(t, err, &qe)
			assert.Equal(t, "broken", qe.Name)
		})
	}
}

func TestSign_String(t *testing.T) {
	assert.Equal(t, "", Shared.String())
	assert.Equal(t, "=", Inline.String())
}
