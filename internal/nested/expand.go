package nested

import (
	"strings"

	"github.com/roach88/nestq/internal/bind"
	"github.com/roach88/nestq/internal/qerr"
)

// maxExpansions bounds the substitution loop.
const maxExpansions = 100

// substitution maps a reference to what replaces it. ok is false when the
// reference must stay as it is.
type substitution func(ref Reference) (out Template, ok bool)

// inlined returns the replacement of an inline reference: the subquery in
// parentheses followed by the marker's alias or _<name>.
func inlined(ref Reference, sub Template) Template {
	alias := ref.Alias
	if alias == "" {
		alias = "_" + ref.Name
	}
	out := make(Template, 0, len(sub)+2)
	out = append(out, Text("("))
	out = append(out, sub...)
	return append(out, Text(") "+alias))
}

// named returns the replacement of a shared reference: the quoted table
// name, keeping the marker's alias.
func named(ref Reference, quoted string) Template {
	if ref.Alias == "" {
		return Template{Text(quoted)}
	}
	return Template{Text(quoted + " " + ref.Alias)}
}

// expand applies subst until no reference it knows is left. Inline
// substitutions may introduce new references, so each pass runs over the
// output of the previous one.
func expand(tpl Template, subst substitution) (Template, error) {
	for range maxExpansions {
		changed := false
		out := make(Template, 0, len(tpl))
		for _, seg := range tpl {
			ref, ok := seg.(Reference)
			if !ok {
				out = append(out, seg)
				continue
			}
			repl, ok := subst(ref)
			if !ok {
				out = append(out, seg)
				continue
			}
			out = append(out, repl...)
			changed = true
		}
		if !changed {
			return out, nil
		}
		tpl = out
	}
	return nil, qerr.NewDepthExceeded(nil, maxExpansions)
}

// render serializes tpl, resolving quote markers with quoteChar.
func render(tpl Template, quoteChar string) string {
	var b strings.Builder
	for _, seg := range tpl {
		switch s := seg.(type) {
		case Text:
			b.WriteString(string(s))
		case QuoteSpan:
			b.WriteString(bind.QuoteIdentifier(s.Expr, quoteChar, true, ""))
		case Reference:
			b.WriteString(s.String())
		}
	}
	return b.String()
}
