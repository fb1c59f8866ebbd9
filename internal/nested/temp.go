package nested

import (
	"fmt"
	"slices"
	"strings"
)

// TempQueries is a temp-table resolution: statements to run before the
// load query, the load query itself and statements to run after its rows
// have been consumed.
type TempQueries struct {
	Open      []string
	Load      string
	Close     []string
	Separator string
}

// OpenSQL returns the open statements joined by the separator.
func (t *TempQueries) OpenSQL() string {
	return strings.Join(t.Open, t.Separator)
}

// CloseSQL returns the close statements joined by the separator.
func (t *TempQueries) CloseSQL() string {
	return strings.Join(t.Close, t.Separator)
}

// Statements returns every statement in execution order.
func (t *TempQueries) Statements() []string {
	out := slices.Clone(t.Open)
	out = append(out, t.Load)
	return append(out, t.Close...)
}

// Cleanup returns the drops to run when Open[failed] did not succeed: the
// drops still pending in Open, then Close. Every drop is IF EXISTS, so
// tables never created are skipped.
func (t *TempQueries) Cleanup(failed int) []string {
	var out []string
	if failed >= 0 && failed < len(t.Open) {
		for _, stmt := range t.Open[failed+1:] {
			if strings.HasPrefix(stmt, dropPrefix) {
				out = append(out, stmt)
			}
		}
	}
	return append(out, t.Close...)
}

const dropPrefix = "DROP TABLE IF EXISTS "

// BuildTemp resolves root into CREATE TEMP TABLE statements, the load
// query and DROP statements.
//
// Signs other than '=' are ignored: +name, -name and name share one table.
// Each table is dropped as soon as the last table that reads it has been
// created; tables the root reads are dropped after the load.
func (r *Resolver) BuildTemp(root string, queries map[string]string) (*TempQueries, error) {
	g, err := r.Order(root, queries)
	if err != nil {
		return nil, err
	}
	return r.buildTemp(g)
}

// tablePlan is the graph collapsed to temp tables.
type tablePlan struct {
	order []string
	depth map[string]int
	// edges maps a table, or "" for the root, to the tables it reads.
	edges map[string][]string
}

func planTables(g *Graph) *tablePlan {
	p := &tablePlan{depth: make(map[string]int), edges: make(map[string][]string)}

	// Children of inline nodes belong to the table that inlines them.
	var collect func(keys []string, into []string) []string
	collect = func(keys []string, into []string) []string {
		for _, k := range keys {
			n := g.nodes[k]
			if n.Sign == Inline {
				into = collect(n.Children, into)
				continue
			}
			into = appendUnique(into, n.Name)
		}
		return into
	}

	for _, n := range g.Nodes() {
		if n.Sign == Inline {
			continue
		}
		if d, ok := p.depth[n.Name]; !ok {
			p.order = append(p.order, n.Name)
			p.depth[n.Name] = n.Depth
		} else {
			p.depth[n.Name] = max(d, n.Depth)
		}
		p.edges[n.Name] = collect(n.Children, p.edges[n.Name])
	}
	p.edges[""] = collect(g.rootChildren, nil)

	slices.SortStableFunc(p.order, func(a, b string) int {
		return p.depth[b] - p.depth[a]
	})
	return p
}

// referenced reports whether any remaining edge points at table.
func (p *tablePlan) referenced(table string) bool {
	for _, children := range p.edges {
		if slices.Contains(children, table) {
			return true
		}
	}
	return false
}

func (r *Resolver) buildTemp(g *Graph) (*TempQueries, error) {
	plan := planTables(g)
	names := make(map[string]string)

	subst := func(ref Reference) (Template, bool) {
		if ref.Sign == Inline {
			sub, ok := g.Template(ref.Name)
			return inlined(ref, sub), ok
		}
		quoted, ok := names[ref.Name]
		return named(ref, quoted), ok
	}

	tq := &TempQueries{Separator: r.separator}
	var closeOrder []string
	drops := make(map[string]string)

	for _, table := range plan.order {
		quoted := r.quote(r.namer.Next(table))
		names[table] = quoted

		tpl, _ := g.Template(table)
		body, err := expand(tpl, subst)
		if err != nil {
			return nil, fmt.Errorf("expand %s: %w", table, err)
		}
		tq.Open = append(tq.Open, fmt.Sprintf("CREATE TEMP TABLE %s AS %s", quoted, render(body, r.quoteChar)))
		drops[table] = dropPrefix + quoted
		closeOrder = append(closeOrder, table)

		// Release children last-read first, dropping the ones no other
		// table or the root still reads.
		children := plan.edges[table]
		for i := len(children) - 1; i >= 0; i-- {
			child := children[i]
			plan.edges[table] = children[:i]
			if plan.referenced(child) {
				continue
			}
			if drop, ok := drops[child]; ok {
				tq.Open = append(tq.Open, drop)
				delete(drops, child)
			}
		}
	}

	load, err := expand(g.Root(), subst)
	if err != nil {
		return nil, fmt.Errorf("expand root: %w", err)
	}
	tq.Load = render(load, r.quoteChar)
	for _, table := range closeOrder {
		if drop, ok := drops[table]; ok {
			tq.Close = append(tq.Close, drop)
		}
	}

	r.logger.Debug("resolved nested query",
		"mode", "temp",
		"nodes", g.Len(),
		"tables", len(plan.order),
		"early_drops", len(tq.Open)-len(plan.order))
	return tq, nil
}
