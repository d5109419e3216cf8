package preassembly

import (
	"fmt"
	"slices"

	"github.com/OFFIS-RIT/biokiwi/backend/pkg/logger"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/statements"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/traverse"
)

// SupportType tells where a flattened evidence item came from. It is stored
// in the evidence annotations under SupportTypeAnnotation.
type SupportType string

const (
	SupportDirect      SupportType = "direct"
	SupportSupports    SupportType = "supports"
	SupportSupportedBy SupportType = "supported_by"
)

const SupportTypeAnnotation = "support_type"

// ParseSupportType accepts "supports" and "supported_by". The empty string
// means supported_by.
func ParseSupportType(s string) (SupportType, error) {
	switch SupportType(s) {
	case "", SupportSupportedBy:
		return SupportSupportedBy, nil
	case SupportSupports:
		return SupportSupports, nil
	}
	return "", fmt.Errorf("collect from must be %q or %q, got %q", SupportSupports, SupportSupportedBy, s)
}

// FlattenEvidence returns a copy of every group's representative, in group
// order, whose evidence is the union (by evidence matches key) of its own
// evidence and the evidence of every group reachable through collectFrom.
// With supported_by the most specific statements collect the evidence of
// everything they refine.
//
// Own evidence is annotated "direct", collected evidence with collectFrom.
// The groups themselves are not modified.
func FlattenEvidence(rg *RefinementGraph, collectFrom SupportType) ([]statements.Statement, error) {
	collectFrom, err := ParseSupportType(string(collectFrom))
	if err != nil {
		return nil, err
	}

	var g graph.Graph = rg.g
	if collectFrom == SupportSupports {
		g = reversed{rg.g}
	}

	out := make([]statements.Statement, len(rg.groups))
	var collected int
	for i, grp := range rg.groups {
		stmt := grp.Statement.Clone()
		meta := stmt.Metadata()

		seen := make(map[string]struct{}, len(meta.Evidence))
		evidence := make([]statements.Evidence, 0, len(meta.Evidence))
		for _, e := range meta.Evidence {
			key := e.MatchesKey()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			evidence = append(evidence, withSupportType(e, SupportDirect))
		}

		var reached []int64
		bf := traverse.BreadthFirst{
			Visit: func(n graph.Node) {
				if n.ID() != int64(i) {
					reached = append(reached, n.ID())
				}
			},
		}
		bf.Walk(g, simple.Node(i), nil)
		slices.Sort(reached)

		for _, id := range reached {
			for _, e := range rg.groups[id].Statement.Metadata().Evidence {
				key := e.MatchesKey()
				if _, ok := seen[key]; ok {
					continue
				}
				seen[key] = struct{}{}
				evidence = append(evidence, withSupportType(e.Clone(), collectFrom))
				collected++
			}
		}

		meta.Evidence = evidence
		out[i] = stmt
	}

	logger.Debug("[Preassembly] Flattened evidence", "collect_from", collectFrom, "groups", len(out), "collected", collected)
	return out, nil
}

func withSupportType(e statements.Evidence, t SupportType) statements.Evidence {
	if e.Annotations == nil {
		e.Annotations = make(map[string]any, 1)
	}
	e.Annotations[SupportTypeAnnotation] = string(t)
	return e
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

// FlattenedTopLevel returns the most specific statements with evidence
// flattened through collectFrom.
func (r *Result) FlattenedTopLevel(collectFrom SupportType) ([]statements.Statement, error) {
	flat, err := FlattenEvidence(r.Refinements, collectFrom)
	if err != nil {
		return nil, err
	}
	top := r.Refinements.TopLevel()
	out := make([]statements.Statement, len(top))
	for i, g := range top {
		out[i] = flat[r.Refinements.index[g.Key]]
	}
	return out, nil
}
