package preassembly

import (
	"context"
	"fmt"
	"slices"

	"github.com/OFFIS-RIT/biokiwi/backend/pkg/common"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/logger"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

const linkChunk = 64

// Refinement is a pair of groups where Specific refines General.
type Refinement struct {
	Specific string `json:"specific"`
	General  string `json:"general"`
}

// RefinementGraph is the refinement partial order over deduplicated
// groups. Edges point from the more specific group to the more general one;
// the graph is acyclic.
//
// Support follows the refinement upwards: a general group supports the
// groups refining it, and a specific group is supported by the groups it
// refines.
type RefinementGraph struct {
	groups []*Group
	index  map[string]int64
	g      *simple.DirectedGraph
	cycles [][]string
}

type linkJob struct {
	b          *bucket
	start, end int
}

// Link finds every refinement among groups. Groups are bucketed by
// statement type and only candidates sharing ontology ancestry in every
// role are compared. Groups that refine each other in a cycle are reported
// to diags and their mutual edges are left out.
func (p *Preassembler) Link(ctx context.Context, groups []*Group, diags *common.Diagnostics) (*RefinementGraph, error) {
	r := newRefiner(p.ontology, p.order, diags)

	var buckets []*bucket
	byType := make(map[string]*bucket)
	for i, g := range groups {
		typ := g.Statement.Type()
		b, ok := byType[typ]
		if !ok {
			b = newBucket(typ)
			byType[typ] = b
			buckets = append(buckets, b)
		}
		b.add(i, g, p.order)
	}

	ancestors := make(ancestorIndex)
	var jobs []linkJob
	for _, b := range buckets {
		for _, byKey := range b.byKey {
			for key := range byKey {
				if key != "" {
					ancestors.fill(p.ontology, key)
				}
			}
		}
		for start := 0; start < len(b.groups); start += linkChunk {
			jobs = append(jobs, linkJob{b: b, start: start, end: min(start+linkChunk, len(b.groups))})
		}
	}

	results := make([][][2]int, len(jobs))
	var comparisons int64
	counts := make([]int64, len(jobs))
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(p.parallel)
	for j, job := range jobs {
		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			b := job.b
			for pos := job.start; pos < job.end; pos++ {
				specific := groups[b.groups[pos]]
				for _, cand := range b.lessSpecific(pos, ancestors) {
					counts[j]++
					general := groups[b.groups[cand]]
					if r.refines(specific.Statement, general.Statement) {
						results[j] = append(results[j], [2]int{b.groups[pos], b.groups[cand]})
					}
				}
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	for _, c := range counts {
		comparisons += c
	}
	refinementComparisons.Add(float64(comparisons))

	rg := &RefinementGraph{
		groups: groups,
		index:  make(map[string]int64, len(groups)),
		g:      simple.NewDirectedGraph(),
	}
	for i, g := range groups {
		rg.index[g.Key] = int64(i)
		rg.g.AddNode(simple.Node(i))
	}
	for _, pairs := range results {
		for _, pair := range pairs {
			rg.g.SetEdge(simple.Edge{F: simple.Node(pair[0]), T: simple.Node(pair[1])})
		}
	}
	rg.breakCycles(diags)

	logger.Debug("[Preassembly] Linked refinements",
		"groups", len(groups),
		"buckets", len(buckets),
		"comparisons", comparisons,
		"refinements", rg.g.Edges().Len(),
	)
	return rg, nil
}

// breakCycles removes every edge inside a strongly connected component.
// Such groups refine each other, which only happens with inconsistent
// groundings or ontology cycles.
func (rg *RefinementGraph) breakCycles(diags *common.Diagnostics) {
	for _, comp := range topo.TarjanSCC(rg.g) {
		if len(comp) < 2 {
			continue
		}
		ids := nodeIDs(comp)
		keys := make([]string, len(ids))
		for i, id := range ids {
			keys[i] = rg.groups[id].Key
		}
		for _, u := range ids {
			for _, v := range ids {
				if u != v && rg.g.HasEdgeFromTo(u, v) {
					rg.g.RemoveEdge(u, v)
				}
			}
		}
		rg.cycles = append(rg.cycles, keys)
		refinementCycles.Inc()
		diags.Add(common.Diagnostic{
			Kind:    common.DiagRefinementCycle,
			Source:  "refinement",
			Message: fmt.Sprintf("%d statement groups refine each other", len(keys)),
			Items:   keys,
		})
		logger.Warn("[Preassembly] Refinement cycle excluded", "groups", len(keys), "first", keys[0])
	}
	slices.SortFunc(rg.cycles, func(a, b []string) int {
		return int(rg.index[a[0]] - rg.index[b[0]])
	})
}

func nodeIDs(nodes []graph.Node) []int64 {
	ids := make([]int64, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID()
	}
	slices.Sort(ids)
	return ids
}

func collectIDs(it graph.Nodes) []int64 {
	var ids []int64
	for it.Next() {
		ids = append(ids, it.Node().ID())
	}
	slices.Sort(ids)
	return ids
}

func (rg *RefinementGraph) keys(ids []int64) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = rg.groups[id].Key
	}
	return out
}

// Group returns the group with the given key.
func (rg *RefinementGraph) Group(key string) (*Group, bool) {
	id, ok := rg.index[key]
	if !ok {
		return nil, false
	}
	return rg.groups[id], true
}

// Supports returns the keys of all groups refining the group.
func (rg *RefinementGraph) Supports(key string) []string {
	id, ok := rg.index[key]
	if !ok {
		return nil
	}
	return rg.keys(collectIDs(rg.g.To(id)))
}

// SupportedBy returns the keys of all groups the group refines.
func (rg *RefinementGraph) SupportedBy(key string) []string {
	id, ok := rg.index[key]
	if !ok {
		return nil
	}
	return rg.keys(collectIDs(rg.g.From(id)))
}

// MoreGeneral returns the groups the group refines directly, without an
// intermediate refinement between them.
func (rg *RefinementGraph) MoreGeneral(key string) []string {
	id, ok := rg.index[key]
	if !ok {
		return nil
	}
	return rg.keys(rg.direct(collectIDs(rg.g.From(id)), func(w, v int64) bool {
		return topo.PathExistsIn(rg.g, simple.Node(w), simple.Node(v))
	}))
}

// MoreSpecific returns the groups refining the group directly.
func (rg *RefinementGraph) MoreSpecific(key string) []string {
	id, ok := rg.index[key]
	if !ok {
		return nil
	}
	return rg.keys(rg.direct(collectIDs(rg.g.To(id)), func(w, v int64) bool {
		return topo.PathExistsIn(rg.g, simple.Node(v), simple.Node(w))
	}))
}

// direct keeps the neighbors v that no other neighbor w reaches.
func (rg *RefinementGraph) direct(neighbors []int64, reaches func(w, v int64) bool) []int64 {
	var out []int64
	for _, v := range neighbors {
		indirect := false
		for _, w := range neighbors {
			if w != v && reaches(w, v) {
				indirect = true
				break
			}
		}
		if !indirect {
			out = append(out, v)
		}
	}
	return out
}

// TopLevel returns the groups that support no other group, the most
// specific claims, in group order.
func (rg *RefinementGraph) TopLevel() []*Group {
	var out []*Group
	for i, g := range rg.groups {
		if rg.g.To(int64(i)).Len() == 0 {
			out = append(out, g)
		}
	}
	return out
}

// Edges returns every refinement ordered by the specific and then the
// general group.
func (rg *RefinementGraph) Edges() []Refinement {
	var out []Refinement
	for i := range rg.groups {
		for _, v := range collectIDs(rg.g.From(int64(i))) {
			out = append(out, Refinement{Specific: rg.groups[i].Key, General: rg.groups[v].Key})
		}
	}
	return out
}

// Cycles returns the key sets of excluded refinement cycles.
func (rg *RefinementGraph) Cycles() [][]string {
	return rg.cycles
}

// Apply writes the supports and supported_by statement ids into every
// group's representative.
func (rg *RefinementGraph) Apply() {
	ids := func(it graph.Nodes) []string {
		var out []string
		for _, id := range collectIDs(it) {
			out = append(out, rg.groups[id].Statement.Metadata().ID)
		}
		return out
	}
	for i, g := range rg.groups {
		meta := g.Statement.Metadata()
		meta.Supports = ids(rg.g.To(int64(i)))
		meta.SupportedBy = ids(rg.g.From(int64(i)))
	}
}
