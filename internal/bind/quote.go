package bind

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// QuoteIdentifier quotes expr with quoteChar.
//
// A dotted path is split and every segment is quoted on its own. Quote
// characters already wrapping a segment are stripped first, so quoting is
// idempotent. With quote false the raw text is returned. A non-empty table
// is prefixed once to the whole path, quoted like expr.
func QuoteIdentifier(expr, quoteChar string, quote bool, table string) string {
	prefix := ""
	if table != "" {
		prefix = QuoteIdentifier(table, quoteChar, quote, "") + "."
	}
	if !quote {
		return prefix + expr
	}
	return prefix + quotePath(expr, quoteChar)
}

func quotePath(path, quoteChar string) string {
	parts := strings.Split(path, ".")
	for i, p := range parts {
		p = norm.NFC.String(strings.TrimSpace(p))
		if p == "*" {
			parts[i] = p
			continue
		}
		if quoteChar != "" {
			p = strings.TrimPrefix(p, quoteChar)
			p = strings.TrimSuffix(p, quoteChar)
		}
		parts[i] = quoteChar + p + quoteChar
	}
	return strings.Join(parts, ".")
}
