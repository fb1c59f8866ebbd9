package nested

import (
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/roach88/nestq/internal/qerr"
)

// markerLexer splits a template into text, reference markers and quote
// markers. Rules are tried in order; the Bad* rules catch marker openers
// that do not form a complete marker. String literals, quoted identifiers
// and comments are lexed whole, so markers inside them stay text.
var markerLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Ref", Pattern: `:<[=+\-]?[A-Za-z0-9_]+>:(?: (?:[Aa][Ss] +)?[A-Za-z0-9_]+)?`},
	{Name: "BadRef", Pattern: `:<`},
	{Name: "Quote", Pattern: `:\|[^\n]*?\|:`},
	{Name: "BadQuote", Pattern: `:\|`},
	{Name: "Literal", Pattern: `'(?:[^']|'')*'|"(?:[^"]|"")*"|` + "`[^`]*`"},
	{Name: "Comment", Pattern: `--[^\n]*|/\*(?s:.*?)\*/`},
	{Name: "Text", Pattern: `[^:'"` + "`" + `/-]+`},
	{Name: "Char", Pattern: `(?s:.)`},
})

// reservedAliases are words that may follow a marker without naming it.
var reservedAliases = map[string]bool{
	"all": true, "and": true, "as": true, "between": true, "cross": true,
	"else": true, "end": true, "except": true, "fetch": true, "for": true,
	"from": true, "full": true, "group": true, "having": true, "in": true,
	"inner": true, "intersect": true, "into": true, "is": true, "join": true,
	"lateral": true, "left": true, "like": true, "limit": true, "natural": true,
	"not": true, "offset": true, "on": true, "or": true, "order": true,
	"outer": true, "qualify": true, "returning": true, "right": true,
	"select": true, "set": true, "then": true, "union": true, "using": true,
	"values": true, "when": true, "where": true, "window": true, "with": true,
}

var (
	tokRef      = markerLexer.Symbols()["Ref"]
	tokBadRef   = markerLexer.Symbols()["BadRef"]
	tokQuote    = markerLexer.Symbols()["Quote"]
	tokBadQuote = markerLexer.Symbols()["BadQuote"]
)

// Sign is the mode prefix of a reference marker.
type Sign byte

const (
	// Shared references become one CTE or temp table.
	Shared Sign = 0
	// Inline references are replaced by the subquery itself.
	Inline Sign = '='
	// Materialized references become a MATERIALIZED CTE.
	Materialized Sign = '+'
	// NotMaterialized references become a NOT MATERIALIZED CTE.
	NotMaterialized Sign = '-'
)

// String returns the sign as written in a marker.
func (s Sign) String() string {
	if s == Shared {
		return ""
	}
	return string(rune(s))
}

// Segment is one piece of a parsed template: Text, Reference or QuoteSpan.
type Segment interface {
	isSegment()
}

// Text is literal SQL.
type Text string

// Reference is a :<[sign]name>:[ [AS] alias] marker.
type Reference struct {
	Sign Sign
	Name string
	// Alias is the text naming the reference, as written: "x" or "AS x".
	// Empty when the marker is followed by nothing or by a reserved word.
	Alias string
}

// QuoteSpan is a :|expr|: marker.
type QuoteSpan struct {
	Expr string
}

func (Text) isSegment()      {}
func (Reference) isSegment() {}
func (QuoteSpan) isSegment() {}

// Key identifies the graph node of a reference: sign and name.
func (r Reference) Key() string {
	return r.Sign.String() + r.Name
}

// String re-serializes the marker.
func (r Reference) String() string {
	s := ":<" + r.Key() + ">:"
	if r.Alias != "" {
		s += " " + r.Alias
	}
	return s
}

// Template is a parsed query template.
type Template []Segment

// Parse lexes src into a template. name identifies the template in errors.
func Parse(name, src string) (Template, error) {
	lex, err := markerLexer.LexString(name, src)
	if err != nil {
		return nil, qerr.NewMalformedTemplate(name, src, err.Error())
	}
	tokens, err := lexer.ConsumeAll(lex)
	if err != nil {
		return nil, qerr.NewMalformedTemplate(name, src, err.Error())
	}

	var tpl Template
	var text strings.Builder
	flush := func() {
		if text.Len() > 0 {
			tpl = append(tpl, Text(text.String()))
			text.Reset()
		}
	}
	for _, tok := range tokens {
		switch tok.Type {
		case lexer.EOF:
		case tokRef:
			flush()
			ref, rest := parseReference(tok.Value)
			tpl = append(tpl, ref)
			text.WriteString(rest)
		case tokQuote:
			flush()
			tpl = append(tpl, QuoteSpan{Expr: tok.Value[2 : len(tok.Value)-2]})
		case tokBadRef:
			return nil, qerr.NewMalformedTemplate(name, src, "unterminated reference marker at "+tok.Pos.String())
		case tokBadQuote:
			return nil, qerr.NewMalformedTemplate(name, src, "unterminated quote marker at "+tok.Pos.String())
		default:
			text.WriteString(tok.Value)
		}
	}
	flush()
	return tpl, nil
}

// parseReference splits a lexed Ref token. A trailing word that is a
// reserved word is not an alias and is returned as text.
func parseReference(v string) (Reference, string) {
	end := strings.Index(v, ">:")
	body := v[2:end]
	ref := Reference{}
	switch body[0] {
	case '=', '+', '-':
		ref.Sign = Sign(body[0])
		body = body[1:]
	}
	ref.Name = body

	rest := v[end+2:]
	if rest == "" {
		return ref, ""
	}
	alias := strings.TrimPrefix(rest, " ")
	fields := strings.Fields(alias)
	if reservedAliases[strings.ToLower(fields[len(fields)-1])] {
		return ref, rest
	}
	ref.Alias = alias
	return ref, ""
}

// References returns the reference markers of t in order.
func (t Template) References() []Reference {
	var refs []Reference
	for _, seg := range t {
		if r, ok := seg.(Reference); ok {
			refs = append(refs, r)
		}
	}
	return refs
}

// String re-serializes the template.
func (t Template) String() string {
	var b strings.Builder
	for _, seg := range t {
		switch s := seg.(type) {
		case Text:
			b.WriteString(string(s))
		case Reference:
			b.WriteString(s.String())
		case QuoteSpan:
			b.WriteString(":|" + s.Expr + "|:")
		}
	}
	return b.String()
}
