// Package ontology holds the merged entity ontology: a directed multigraph of
// namespaced identifiers connected by isa, partof and xref edges.
package ontology

import (
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/multi"

	"github.com/OFFIS-RIT/biokiwi/backend/pkg/common"
)

// Node is an ontology entry. Its identity is the (Namespace, Identifier)
// pair; the int64 returned by ID is internal to one graph instance.
type Node struct {
	id         int64
	Namespace  string
	Identifier string
	Name       string
}

func (n *Node) ID() int64 { return n.id }

// Label returns the external "<namespace>:<id>" form.
func (n *Node) Label() string {
	return common.Label(n.Namespace, n.Identifier)
}

// Edge is a single typed edge. Several edges may connect the same ordered
// pair of nodes when they differ in relation or source.
type Edge struct {
	F, T     *Node
	UID      int64
	Relation common.Relation
	Source   string
}

func (e *Edge) From() graph.Node { return e.F }
func (e *Edge) To() graph.Node   { return e.T }
func (e *Edge) ID() int64        { return e.UID }

func (e *Edge) ReversedLine() graph.Line {
	return &Edge{F: e.T, T: e.F, UID: e.UID, Relation: e.Relation, Source: e.Source}
}

type pair struct {
	from, to int64
}

type nameKey struct {
	ns, name string
}

// Graph is an immutable ontology. It is created by a Builder or restored
// from a snapshot and is safe for any number of concurrent readers.
type Graph struct {
	g *multi.DirectedGraph

	nodes  []*Node
	labels map[string]*Node
	names  map[nameKey]*Node
	// masks holds the union of relations of all edges per ordered pair.
	masks map[pair]common.Relation
	edges int
}

func newGraph() *Graph {
	return &Graph{
		g:      multi.NewDirectedGraph(),
		labels: make(map[string]*Node),
		names:  make(map[nameKey]*Node),
		masks:  make(map[pair]common.Relation),
	}
}

// Empty returns a graph without nodes. Every query on it reports no
// relationship.
func Empty() *Graph {
	return newGraph()
}

// node returns the node with the given label, creating a bare node if
// needed. Only used while the graph is private to its builder.
func (gr *Graph) node(ns, id string) *Node {
	label := common.Label(ns, id)
	if n, ok := gr.labels[label]; ok {
		return n
	}
	n := &Node{id: int64(len(gr.nodes)), Namespace: ns, Identifier: id}
	gr.nodes = append(gr.nodes, n)
	gr.labels[label] = n
	gr.g.AddNode(n)
	return n
}

func (gr *Graph) addEdge(from, to *Node, rel common.Relation, source string) {
	gr.g.SetLine(&Edge{F: from, T: to, UID: int64(gr.edges), Relation: rel, Source: source})
	gr.edges++
}

// indexNames builds the (namespace, name) lookup. When several nodes share
// a name the one added last wins.
func (gr *Graph) indexNames() {
	for _, n := range gr.nodes {
		if n.Name != "" {
			gr.names[nameKey{ns: n.Namespace, name: n.Name}] = n
		}
	}
}

// indexRelations computes the relation mask of every connected pair. It is
// the last step of construction; no mutation happens afterwards.
func (gr *Graph) indexRelations() {
	lines := gr.g.Edges()
	for lines.Next() {
		e := lines.Edge()
		p := pair{from: e.From().ID(), to: e.To().ID()}
		ls := gr.g.Lines(p.from, p.to)
		for ls.Next() {
			gr.masks[p] |= ls.Line().(*Edge).Relation
		}
	}
}

func (gr *Graph) lookup(ns, id string) (*Node, bool) {
	n, ok := gr.labels[common.Label(ns, id)]
	return n, ok
}

// Has reports whether the node exists.
func (gr *Graph) Has(ns, id string) bool {
	_, ok := gr.lookup(ns, id)
	return ok
}

// NodeCount returns the number of nodes.
func (gr *Graph) NodeCount() int { return len(gr.nodes) }

// EdgeCount returns the number of edges, counting parallel edges.
func (gr *Graph) EdgeCount() int { return gr.edges }

// Nodes returns all nodes in insertion order.
func (gr *Graph) Nodes() []*Node {
	out := make([]*Node, len(gr.nodes))
	copy(out, gr.nodes)
	return out
}

// Edges returns all edges ordered by insertion.
func (gr *Graph) Edges() []*Edge {
	out := make([]*Edge, gr.edges)
	lines := gr.g.Edges()
	for lines.Next() {
		ls := gr.g.Lines(lines.Edge().From().ID(), lines.Edge().To().ID())
		for ls.Next() {
			e := ls.Line().(*Edge)
			out[e.UID] = e
		}
	}
	return out
}

// GetName returns the display name of a node.
func (gr *Graph) GetName(ns, id string) (string, bool) {
	n, ok := gr.lookup(ns, id)
	if !ok || n.Name == "" {
		return "", false
	}
	return n.Name, true
}

// GetIDFromName returns the identifier of the node in ns with the given
// display name. When several nodes share a name the most recently added wins.
func (gr *Graph) GetIDFromName(ns, name string) (string, bool) {
	n, ok := gr.names[nameKey{ns: ns, name: name}]
	if !ok {
		return "", false
	}
	return n.Identifier, true
}
