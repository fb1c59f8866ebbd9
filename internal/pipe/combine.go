package pipe

import (
	"fmt"
	"strings"

	"github.com/roach88/nestq/internal/query"
)

// Any wraps t once as a CTE, applies every spec to that CTE independently
// and UNIONs the results. The CTE is named _q_<id> unless CTEName is given.
// The result carries the transform of the last branch, since every branch
// must yield the same columns. No specs is a no-op.
func (p *Pipes) Any(t query.Triple, specs []Spec, opts ...Option) (query.Triple, error) {
	return p.combine(t, specs, collect("UNION", false, opts))
}

// All is Any with INTERSECT.
func (p *Pipes) All(t query.Triple, specs []Spec, opts ...Option) (query.Triple, error) {
	return p.combine(t, specs, collect("INTERSECT", false, opts))
}

func (p *Pipes) combine(t query.Triple, specs []Spec, o options) (query.Triple, error) {
	t = split(t)
	if len(specs) == 0 {
		return t, nil
	}
	namer := p.binder.Namer()
	cte := o.cteName
	if cte == "" {
		cte = "_q_" + namer.ID()
	}

	base := "SELECT * FROM " + cte
	params := t.Params.Clone()
	tr := t.Transform
	branches := make([]string, len(specs))
	for i, s := range specs {
		out, err := Apply(query.Triple{SQL: base, Params: params, Transform: t.Transform}, s)
		if err != nil {
			return query.Triple{}, fmt.Errorf("%s branch %d: %w", strings.ToLower(o.op), i, err)
		}
		if params, err = params.Merge(out.Params); err != nil {
			return query.Triple{}, err
		}
		tr = out.Transform
		branches[i] = fmt.Sprintf("SELECT * FROM (%s) AS _q_%s", out.SQL, namer.ID())
	}

	sql := fmt.Sprintf("\nWITH %s AS (%s)\n%s", cte, t.SQL, strings.Join(branches, "\n"+o.op+"\n"))
	return query.Triple{SQL: sql, Params: params, Transform: tr}, nil
}
