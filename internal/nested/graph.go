package nested

import (
	"slices"

	"github.com/roach88/nestq/internal/qerr"
)

// DefaultMaxDepth bounds the nesting depth of a query graph.
const DefaultMaxDepth = 100

const rootName = "<root>"

// Node is one reference key in the dependency graph.
type Node struct {
	// Key is the sign and name, e.g. "+d".
	Key  string
	Name string
	Sign Sign

	// Depth is the longest distance from the root; the root's direct
	// references have depth 1.
	Depth int

	// Children are the reference keys in this node's template, in order of
	// first appearance.
	Children []string
}

// Graph is the dependency graph of a root template over named templates.
type Graph struct {
	root         Template
	rootChildren []string
	nodes        map[string]*Node
	discovered   []string
	templates    map[string]Template
	sources      map[string]string
}

// Root returns the parsed root template.
func (g *Graph) Root() Template {
	return g.root
}

// RootChildren returns the keys referenced by the root template.
func (g *Graph) RootChildren() []string {
	return slices.Clone(g.rootChildren)
}

// Node returns the node for key.
func (g *Graph) Node(key string) (*Node, bool) {
	n, ok := g.nodes[key]
	return n, ok
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.discovered)
}

// Template returns the parsed template of name.
func (g *Graph) Template(name string) (Template, bool) {
	t, ok := g.templates[name]
	return t, ok
}

// Nodes returns the nodes in discovery order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, len(g.discovered))
	for i, key := range g.discovered {
		out[i] = g.nodes[key]
	}
	return out
}

// Sorted returns the nodes deepest first. Nodes of equal depth keep their
// discovery order.
func (g *Graph) Sorted() []*Node {
	out := g.Nodes()
	slices.SortStableFunc(out, func(a, b *Node) int {
		return b.Depth - a.Depth
	})
	return out
}

// Order builds the dependency graph of root over queries.
//
// Every reference marker adds an edge from the template it appears in and
// raises the depth of its key to one more than the depth of that template.
// A name missing from queries, a cycle or a depth beyond maxDepth is an
// error. maxDepth <= 0 means DefaultMaxDepth.
func Order(root string, queries map[string]string, maxDepth int) (*Graph, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	rootTpl, err := Parse(rootName, root)
	if err != nil {
		return nil, err
	}
	g := &Graph{
		root:      rootTpl,
		nodes:     make(map[string]*Node),
		templates: make(map[string]Template),
		sources:   queries,
	}
	o := &orderer{g: g, maxDepth: maxDepth, explored: make(map[string]int)}
	if err := o.probe(rootTpl, root, nil, 0, nil); err != nil {
		return nil, err
	}
	return g, nil
}

type orderer struct {
	g        *Graph
	maxDepth int
	// explored records the depth at which a key's subtree was last probed.
	explored map[string]int
}

func (o *orderer) template(name string) (Template, error) {
	if t, ok := o.g.templates[name]; ok {
		return t, nil
	}
	t, err := Parse(name, o.g.sources[name])
	if err != nil {
		return nil, err
	}
	o.g.templates[name] = t
	return t, nil
}

// probe walks the references of tpl, found at depth. parent is nil for the
// root. path holds the names from the root down to tpl.
func (o *orderer) probe(tpl Template, src string, parent *Node, depth int, path []string) error {
	for _, ref := range tpl.References() {
		if _, ok := o.g.sources[ref.Name]; !ok {
			return qerr.NewUnknownReference(ref.Name, src)
		}
		if i := slices.Index(path, ref.Name); i >= 0 {
			cycle := append(slices.Clone(path[i:]), ref.Name)
			return qerr.NewCycle(cycle)
		}
		childPath := append(slices.Clone(path), ref.Name)
		childDepth := depth + 1
		if childDepth > o.maxDepth {
			return qerr.NewDepthExceeded(childPath, o.maxDepth)
		}

		key := ref.Key()
		node, ok := o.g.nodes[key]
		if !ok {
			node = &Node{Key: key, Name: ref.Name, Sign: ref.Sign}
			o.g.nodes[key] = node
			o.g.discovered = append(o.g.discovered, key)
		}
		node.Depth = max(node.Depth, childDepth)
		if parent == nil {
			o.g.rootChildren = appendUnique(o.g.rootChildren, key)
		} else {
			parent.Children = appendUnique(parent.Children, key)
		}

		// A subtree already probed at this depth or deeper cannot raise any
		// depth further.
		if d, seen := o.explored[key]; seen && d >= childDepth {
			continue
		}
		childTpl, err := o.template(ref.Name)
		if err != nil {
			return err
		}
		if err := o.probe(childTpl, o.g.sources[ref.Name], node, childDepth, childPath); err != nil {
			return err
		}
		o.explored[key] = childDepth
	}
	return nil
}

func appendUnique(s []string, v string) []string {
	if slices.Contains(s, v) {
		return s
	}
	return append(s, v)
}
