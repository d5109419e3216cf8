package ontology

import (
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/traverse"

	"github.com/OFFIS-RIT/biokiwi/backend/pkg/common"
)

// Isa reports whether a path of isa edges leads from node 1 to node 2.
func (gr *Graph) Isa(ns1, id1, ns2, id2 string) bool {
	return gr.Reachable(ns1, id1, ns2, id2, common.RelationIsa)
}

// PartOf reports whether a path of partof edges leads from node 1 to node 2.
func (gr *Graph) PartOf(ns1, id1, ns2, id2 string) bool {
	return gr.Reachable(ns1, id1, ns2, id2, common.RelationPartOf)
}

// IsaOrPartOf reports whether a path of isa and partof edges, mixed in any
// order, leads from node 1 to node 2.
func (gr *Graph) IsaOrPartOf(ns1, id1, ns2, id2 string) bool {
	return gr.Reachable(ns1, id1, ns2, id2, common.Hierarchy)
}

// MapsTo reports whether a path of xref edges leads from node 1 to node 2.
func (gr *Graph) MapsTo(ns1, id1, ns2, id2 string) bool {
	return gr.Reachable(ns1, id1, ns2, id2, common.RelationXref)
}

// Reachable reports whether a path of at least one edge, using only
// relations in rels, leads from node 1 to node 2. Unknown nodes are never
// reachable.
func (gr *Graph) Reachable(ns1, id1, ns2, id2 string, rels common.RelationSet) bool {
	from, ok := gr.lookup(ns1, id1)
	if !ok {
		return false
	}
	to, ok := gr.lookup(ns2, id2)
	if !ok {
		return false
	}
	return gr.search(from.id, to.id, rels)
}

// search runs a bidirectional breadth-first search and always expands the
// smaller frontier. The forward side starts at the successors of from, so a
// node only reaches itself through a cycle.
func (gr *Graph) search(from, to int64, rels common.RelationSet) bool {
	fwdSeen := make(map[int64]struct{})
	bwdSeen := map[int64]struct{}{to: {}}

	var fwd []int64
	for _, v := range gr.successors(from, rels) {
		if v == to {
			return true
		}
		if _, ok := fwdSeen[v]; !ok {
			fwdSeen[v] = struct{}{}
			fwd = append(fwd, v)
		}
	}
	bwd := []int64{to}

	for len(fwd) > 0 && len(bwd) > 0 {
		if len(fwd) <= len(bwd) {
			var next []int64
			for _, u := range fwd {
				for _, v := range gr.successors(u, rels) {
					if _, ok := bwdSeen[v]; ok {
						return true
					}
					if _, ok := fwdSeen[v]; !ok {
						fwdSeen[v] = struct{}{}
						next = append(next, v)
					}
				}
			}
			fwd = next
			continue
		}

		var next []int64
		for _, v := range bwd {
			for _, u := range gr.predecessors(v, rels) {
				if _, ok := fwdSeen[u]; ok {
					return true
				}
				if _, ok := bwdSeen[u]; !ok {
					bwdSeen[u] = struct{}{}
					next = append(next, u)
				}
			}
		}
		bwd = next
	}
	return false
}

func (gr *Graph) successors(u int64, rels common.RelationSet) []int64 {
	var out []int64
	it := gr.g.From(u)
	for it.Next() {
		v := it.Node().ID()
		if gr.masks[pair{from: u, to: v}]&rels != 0 {
			out = append(out, v)
		}
	}
	return out
}

func (gr *Graph) predecessors(v int64, rels common.RelationSet) []int64 {
	var out []int64
	it := gr.g.To(v)
	for it.Next() {
		u := it.Node().ID()
		if gr.masks[pair{from: u, to: v}]&rels != 0 {
			out = append(out, u)
		}
	}
	return out
}

// walkOut follows outgoing edges of the given relations and returns every
// node reached except start.
func (gr *Graph) walkOut(start *Node, rels common.RelationSet) []*Node {
	return gr.walk(gr.g, start, func(from, to int64) bool {
		return gr.masks[pair{from: from, to: to}]&rels != 0
	})
}

// walkIn follows incoming edges of the given relations.
func (gr *Graph) walkIn(start *Node, rels common.RelationSet) []*Node {
	return gr.walk(reversed{gr.g}, start, func(from, to int64) bool {
		return gr.masks[pair{from: to, to: from}]&rels != 0
	})
}

func (gr *Graph) walk(g graph.Graph, start *Node, follow func(from, to int64) bool) []*Node {
	var out []*Node
	bf := traverse.BreadthFirst{
		Traverse: func(e graph.Edge) bool {
			return follow(e.From().ID(), e.To().ID())
		},
		Visit: func(n graph.Node) {
			if n.ID() != start.id {
				out = append(out, n.(*Node))
			}
		},
	}
	bf.Walk(g, start, nil)
	return out
}

// reversed turns every edge of a directed graph around.
type reversed struct {
	graph.Directed
}

func (r reversed) From(id int64) graph.Nodes { return r.Directed.To(id) }

func (r reversed) Edge(uid, vid int64) graph.Edge {
	e := r.Directed.Edge(vid, uid)
	if e == nil {
		return nil
	}
	return e.ReversedEdge()
}

func sortedLabels(nodes []*Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Label()
	}
	sort.Strings(out)
	return out
}

// GetMappings returns the labels of every node reachable from the node by
// following outgoing xref edges, sorted.
func (gr *Graph) GetMappings(ns, id string) []string {
	n, ok := gr.lookup(ns, id)
	if !ok {
		return nil
	}
	return sortedLabels(gr.walkOut(n, common.RelationXref))
}

// MapTo returns the identifier of the single direct xref neighbor of node 1
// in namespace ns2. Zero or several candidates yield ok=false.
func (gr *Graph) MapTo(ns1, id1, ns2 string) (string, bool) {
	n, ok := gr.lookup(ns1, id1)
	if !ok {
		return "", false
	}
	var found *Node
	for _, v := range gr.successors(n.id, common.RelationXref) {
		target := gr.nodes[v]
		if target.Namespace != ns2 {
			continue
		}
		if found != nil {
			return "", false
		}
		found = target
	}
	if found == nil {
		return "", false
	}
	return found.Identifier, true
}

// GetParents returns the labels of all isa and partof ancestors of the node,
// the nodes it specializes, sorted.
func (gr *Graph) GetParents(ns, id string) []string {
	n, ok := gr.lookup(ns, id)
	if !ok {
		return nil
	}
	return sortedLabels(gr.walkOut(n, common.Hierarchy))
}

// GetChildren returns the labels of all nodes specializing the node, sorted.
func (gr *Graph) GetChildren(ns, id string) []string {
	n, ok := gr.lookup(ns, id)
	if !ok {
		return nil
	}
	return sortedLabels(gr.walkIn(n, common.Hierarchy))
}

// TopLevelAncestors returns the parents of the node that have no parents
// themselves, sorted. A root node has none.
func (gr *Graph) TopLevelAncestors(ns, id string) []string {
	n, ok := gr.lookup(ns, id)
	if !ok {
		return nil
	}
	var top []*Node
	for _, p := range gr.walkOut(n, common.Hierarchy) {
		if len(gr.successors(p.id, common.Hierarchy)) == 0 {
			top = append(top, p)
		}
	}
	return sortedLabels(top)
}
