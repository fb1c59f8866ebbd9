package bind

import "strings"

// Placeholders returns the distinct placeholder names in sql, in order of
// first appearance. String literals, quoted identifiers, comments and
// '::' casts are skipped.
func Placeholders(sql string, d Dialect) []string {
	var names []string
	seen := make(map[string]bool)
	prefix := d.ParamPrefix
	for i := 0; i < len(sql); {
		switch c := sql[i]; {
		case c == '\'' || c == '"' || c == '`':
			i = skipQuoted(sql, i, c)
			continue
		case strings.HasPrefix(sql[i:], "--"):
			i = skipUntil(sql, i+2, "\n")
			continue
		case strings.HasPrefix(sql[i:], "/*"):
			i = skipUntil(sql, i+2, "*/")
			continue
		case strings.HasPrefix(sql[i:], "::"):
			i += 2
			continue
		}
		if prefix == "" || !strings.HasPrefix(sql[i:], prefix) {
			i++
			continue
		}
		start := i + len(prefix)
		end := start
		for end < len(sql) && isIdentRune(rune(sql[end])) {
			end++
		}
		if end == start || !isLetter(rune(sql[start])) || !strings.HasPrefix(sql[end:], d.ParamSuffix) {
			i = start
			continue
		}
		name := sql[start:end]
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
		i = end + len(d.ParamSuffix)
	}
	return names
}

// skipQuoted returns the index after the literal opened at sql[i].
// A doubled quote inside the literal is an escape.
func skipQuoted(sql string, i int, q byte) int {
	for j := i + 1; j < len(sql); j++ {
		if sql[j] != q {
			continue
		}
		if j+1 < len(sql) && sql[j+1] == q {
			j++
			continue
		}
		return j + 1
	}
	return len(sql)
}

func skipUntil(sql string, i int, end string) int {
	if k := strings.Index(sql[i:], end); k >= 0 {
		return i + k + len(end)
	}
	return len(sql)
}
