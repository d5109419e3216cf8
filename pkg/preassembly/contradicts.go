package preassembly

import (
	"context"
	"slices"

	"github.com/OFFIS-RIT/biokiwi/backend/pkg/common"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/logger"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/statements"
	"golang.org/x/sync/errgroup"
)

// Contradiction is a pair of groups making opposite claims about
// compatible entities.
type Contradiction struct {
	First  *Group
	Second *Group
}

// polarPairs lists statement types with their opposite type.
func polarPairs() [][2]string {
	var pairs [][2]string
	for _, add := range statements.AddModificationTypes {
		pairs = append(pairs, [2]string{
			statements.ModificationStatementType(add),
			statements.ModificationStatementType("de" + add),
		})
	}
	return append(pairs,
		[2]string{statements.TypeActivation, statements.TypeInhibition},
		[2]string{statements.TypeIncreaseAmount, statements.TypeDecreaseAmount},
	)
}

// FindContradicts returns the pairs of groups with opposite polarity:
// adding and removing the same modification at the same site, activation
// against inhibition, increase against decrease of an amount, and active
// forms disagreeing on is_active. Pairs are ordered by the first group.
func (p *Preassembler) FindContradicts(ctx context.Context, groups []*Group) ([]Contradiction, error) {
	r := newRefiner(p.ontology, p.order, nil)

	byType := make(map[string][]*Group)
	for _, g := range groups {
		byType[g.Statement.Type()] = append(byType[g.Statement.Type()], g)
	}

	pairs := polarPairs()
	results := make([][]Contradiction, len(pairs)+1)
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(p.parallel)
	for i, pair := range pairs {
		pos, neg := byType[pair[0]], byType[pair[1]]
		if len(pos) == 0 || len(neg) == 0 {
			continue
		}
		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = p.polarContradictions(r, pos, neg)
			return nil
		})
	}
	if forms := byType[statements.TypeActiveForm]; len(forms) > 1 {
		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[len(pairs)] = p.activeFormContradictions(r, forms)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	order := make(map[*Group]int, len(groups))
	for i, g := range groups {
		order[g] = i
	}
	var out []Contradiction
	for _, res := range results {
		out = append(out, res...)
	}
	slices.SortFunc(out, func(a, b Contradiction) int {
		if d := order[a.First] - order[b.First]; d != 0 {
			return d
		}
		return order[a.Second] - order[b.Second]
	})

	contradictionsFound.Add(float64(len(out)))
	logger.Debug("[Preassembly] Found contradictions", "count", len(out))
	return out, nil
}

// anchors returns the agent key and its top level ancestors. Two agents
// that are equal or related by isa/partof share at least one anchor.
func (p *Preassembler) anchors(a *statements.Agent) []string {
	key := AgentKey(a, p.order)
	out := []string{key}
	if ns, id, ok := common.SplitLabel(key); ok && ns != "NAME" {
		out = append(out, p.ontology.TopLevelAncestors(ns, id)...)
	}
	return out
}

// target is the agent whose anchors bucket a polar statement.
func target(stmt statements.Statement) *statements.Agent {
	agents := stmt.Agents()
	return agents[len(agents)-1]
}

func (p *Preassembler) polarContradictions(r *refiner, pos, neg []*Group) []Contradiction {
	index := make(map[string][]int)
	for i, g := range neg {
		if t := target(g.Statement); t != nil {
			for _, anchor := range p.anchors(t) {
				index[anchor] = append(index[anchor], i)
			}
		}
	}

	var out []Contradiction
	for _, g := range pos {
		t := target(g.Statement)
		if t == nil {
			continue
		}
		seen := make(map[int]struct{})
		var candidates []int
		for _, anchor := range p.anchors(t) {
			for _, i := range index[anchor] {
				if _, ok := seen[i]; !ok {
					seen[i] = struct{}{}
					candidates = append(candidates, i)
				}
			}
		}
		slices.Sort(candidates)
		for _, i := range candidates {
			if r.contradicts(g.Statement, neg[i].Statement) {
				out = append(out, Contradiction{First: g, Second: neg[i]})
			}
		}
	}
	return out
}

func (p *Preassembler) activeFormContradictions(r *refiner, forms []*Group) []Contradiction {
	var out []Contradiction
	for i := range forms {
		for j := i + 1; j < len(forms); j++ {
			if r.contradicts(forms[i].Statement, forms[j].Statement) {
				out = append(out, Contradiction{First: forms[i], Second: forms[j]})
			}
		}
	}
	return out
}

// contradicts reports whether a and b make opposite claims. Every agent
// must be present and the agents must be the same entity or related by
// isa/partof in either direction.
func (r *refiner) contradicts(a, b statements.Statement) bool {
	switch s := a.(type) {
	case *statements.Modification:
		o, ok := b.(*statements.Modification)
		if !ok {
			return false
		}
		if inv, _ := statements.InverseModType(s.ModType()); inv != o.ModType() {
			return false
		}
		return s.Residue == o.Residue && s.Position == o.Position &&
			r.compatibleAgents(a.Agents(), b.Agents())
	case *statements.RegulateActivity:
		o, ok := b.(*statements.RegulateActivity)
		if !ok || s.Kind == o.Kind {
			return false
		}
		if statements.ActivityOrDefault(s.ObjActivity) != statements.ActivityOrDefault(o.ObjActivity) {
			return false
		}
		return r.compatibleAgents(a.Agents(), b.Agents())
	case *statements.RegulateAmount:
		o, ok := b.(*statements.RegulateAmount)
		if !ok || s.Kind == o.Kind {
			return false
		}
		return r.compatibleAgents(a.Agents(), b.Agents())
	case *statements.ActiveForm:
		o, ok := b.(*statements.ActiveForm)
		if !ok || s.IsActive == o.IsActive || s.Agent == nil || o.Agent == nil {
			return false
		}
		if statements.ActivityOrDefault(s.Activity) != statements.ActivityOrDefault(o.Activity) {
			return false
		}
		k := keyer{order: r.order}
		if k.agent(s.Agent) == k.agent(o.Agent) {
			return true
		}
		return k.state(s.Agent) == k.state(o.Agent) &&
			(r.entity(s.Agent, o.Agent) || r.entity(o.Agent, s.Agent))
	}
	return false
}

func (r *refiner) compatibleAgents(a, b []*statements.Agent) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] == nil || b[i] == nil {
			return false
		}
		if !r.entity(a[i], b[i]) && !r.entity(b[i], a[i]) {
			return false
		}
	}
	return true
}
