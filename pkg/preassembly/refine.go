package preassembly

import (
	"strings"
	"sync"

	"github.com/OFFIS-RIT/biokiwi/backend/pkg/common"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/ontology"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/statements"
)

const nsGO = "GO"

// refiner decides whether one statement is a refinement of another. It only
// reads the ontology and is shared by the link workers.
type refiner struct {
	onto  *ontology.Graph
	order []string
	diags *common.Diagnostics

	// unresolved location names, reported once each
	unresolved sync.Map
}

func newRefiner(onto *ontology.Graph, order []string, diags *common.Diagnostics) *refiner {
	return &refiner{onto: onto, order: order, diags: diags}
}

// refines reports whether a is at least as specific as b in every argument.
// Both statements must be of the same type.
func (r *refiner) refines(a, b statements.Statement) bool {
	if a.Type() != b.Type() {
		return false
	}
	switch s := a.(type) {
	case *statements.Modification:
		o := b.(*statements.Modification)
		return r.optionalAgent(s.Enz, o.Enz) && r.agent(s.Sub, o.Sub) &&
			siteRefines(s.Residue, o.Residue) && siteRefines(string(s.Position), string(o.Position))
	case *statements.SelfModification:
		o := b.(*statements.SelfModification)
		return r.agent(s.Enz, o.Enz) &&
			siteRefines(s.Residue, o.Residue) && siteRefines(string(s.Position), string(o.Position))
	case *statements.RegulateActivity:
		o := b.(*statements.RegulateActivity)
		return r.agent(s.Subj, o.Subj) && r.agent(s.Obj, o.Obj) &&
			r.activity(statements.ActivityOrDefault(s.ObjActivity), statements.ActivityOrDefault(o.ObjActivity))
	case *statements.RegulateAmount:
		o := b.(*statements.RegulateAmount)
		return r.optionalAgent(s.Subj, o.Subj) && r.agent(s.Obj, o.Obj)
	case *statements.ActiveForm:
		o := b.(*statements.ActiveForm)
		return s.IsActive == o.IsActive && r.agent(s.Agent, o.Agent) &&
			r.activity(statements.ActivityOrDefault(s.Activity), statements.ActivityOrDefault(o.Activity))
	case *statements.HasActivity:
		o := b.(*statements.HasActivity)
		return s.HasActivity == o.HasActivity && r.agent(s.Agent, o.Agent) &&
			r.activity(statements.ActivityOrDefault(s.Activity), statements.ActivityOrDefault(o.Activity))
	case *statements.Gef:
		o := b.(*statements.Gef)
		return r.agent(s.GEF, o.GEF) && r.agent(s.Ras, o.Ras)
	case *statements.Gap:
		o := b.(*statements.Gap)
		return r.agent(s.GAP, o.GAP) && r.agent(s.Ras, o.Ras)
	case *statements.Complex:
		o := b.(*statements.Complex)
		return r.agentSet(s.Members, o.Members)
	case *statements.Translocation:
		o := b.(*statements.Translocation)
		return r.agent(s.Agent, o.Agent) &&
			r.optionalLocation(s.FromLocation, o.FromLocation) && r.optionalLocation(s.ToLocation, o.ToLocation)
	case *statements.Conversion:
		o := b.(*statements.Conversion)
		return r.optionalAgent(s.Subj, o.Subj) && r.agentSet(s.ObjFrom, o.ObjFrom) && r.agentSet(s.ObjTo, o.ObjTo)
	}
	return false
}

// optionalAgent: a missing argument in b is refined by anything, a missing
// argument in a refines nothing but a missing one.
func (r *refiner) optionalAgent(a, b *statements.Agent) bool {
	if b == nil {
		return true
	}
	if a == nil {
		return false
	}
	return r.agent(a, b)
}

// agentSet requires a one to one assignment of a's agents onto b's.
func (r *refiner) agentSet(a, b []*statements.Agent) bool {
	if len(a) != len(b) {
		return false
	}
	return perfectMatching(len(a), func(i, j int) bool {
		return r.agent(a[i], b[j])
	})
}

// entity reports whether a names the same entity as b or one below it in
// the isa/partof hierarchy.
func (r *refiner) entity(a, b *statements.Agent) bool {
	if AgentKey(a, r.order) == AgentKey(b, r.order) {
		return true
	}
	ns1, id1, ok1 := a.Grounding(r.order)
	ns2, id2, ok2 := b.Grounding(r.order)
	if !ok1 || !ok2 {
		return false
	}
	return r.onto.IsaOrPartOf(ns1, id1, ns2, id2)
}

// agent reports whether a is a refinement of b: a is the same or a more
// specific entity and carries at least the conditions of b.
func (r *refiner) agent(a, b *statements.Agent) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if !r.entity(a, b) {
		return false
	}

	usedBound := make([]bool, len(a.BoundConditions))
	for _, other := range b.BoundConditions {
		if !claim(usedBound, func(i int) bool {
			bc := a.BoundConditions[i]
			return bc.IsBound == other.IsBound && r.agent(bc.Agent, other.Agent)
		}) {
			return false
		}
	}

	usedMods := make([]bool, len(a.Mods))
	for _, other := range b.Mods {
		if !claim(usedMods, func(i int) bool { return r.mod(a.Mods[i], other) }) {
			return false
		}
	}

	usedMuts := make([]bool, len(a.Mutations))
	for _, other := range b.Mutations {
		if !claim(usedMuts, func(i int) bool { return mutationRefines(a.Mutations[i], other) }) {
			return false
		}
	}

	if b.Location != "" {
		if a.Location == "" || !r.location(a.Location, b.Location) {
			return false
		}
	}

	if b.Activity != nil {
		if a.Activity == nil || a.Activity.IsActive != b.Activity.IsActive {
			return false
		}
		if !r.activity(a.Activity.ActivityType, b.Activity.ActivityType) {
			return false
		}
	}
	return true
}

// claim marks and returns the first unused index satisfying ok.
func claim(used []bool, ok func(i int) bool) bool {
	for i := range used {
		if !used[i] && ok(i) {
			used[i] = true
			return true
		}
	}
	return false
}

func (r *refiner) mod(a, b statements.ModCondition) bool {
	if a.IsModified != b.IsModified {
		return false
	}
	if !r.vocabIsa(statements.NSModifications, a.ModType, b.ModType) {
		return false
	}
	return siteRefines(a.Residue, b.Residue) && siteRefines(string(a.Position), string(b.Position))
}

func mutationRefines(a, b statements.MutCondition) bool {
	return siteRefines(string(a.Position), string(b.Position)) &&
		siteRefines(a.ResidueFrom, b.ResidueFrom) &&
		siteRefines(a.ResidueTo, b.ResidueTo)
}

func (r *refiner) activity(a, b string) bool {
	return r.vocabIsa(statements.NSActivities, a, b)
}

// vocabIsa compares activity and modification types. The built-in
// vocabularies are normally part of the ontology; without them the static
// tables of the statements package decide.
func (r *refiner) vocabIsa(ns, a, b string) bool {
	if a == b {
		return true
	}
	if r.onto.Has(ns, a) && r.onto.Has(ns, b) {
		return r.onto.Isa(ns, a, ns, b)
	}
	if ns == statements.NSModifications {
		return statements.ModTypeIsa(a, b)
	}
	return statements.ActivityIsa(a, b)
}

func (r *refiner) optionalLocation(a, b string) bool {
	if b == "" {
		return true
	}
	if a == "" {
		return false
	}
	return r.location(a, b)
}

// location reports whether location a is b or lies within it.
func (r *refiner) location(a, b string) bool {
	if a == b {
		return true
	}
	idA, okA := r.goID(a)
	idB, okB := r.goID(b)
	if !okA || !okB {
		return false
	}
	return idA == idB || r.onto.IsaOrPartOf(nsGO, idA, nsGO, idB)
}

// goID resolves a location given as GO id or GO term name.
func (r *refiner) goID(location string) (string, bool) {
	if strings.HasPrefix(location, "GO:") {
		return location, true
	}
	if id, ok := r.onto.GetIDFromName(nsGO, location); ok {
		return id, true
	}
	if _, reported := r.unresolved.LoadOrStore(location, struct{}{}); !reported {
		r.diags.Addf(common.DiagUnresolvedLocation, "refinement", "location %q is not a GO cellular component", location)
	}
	return "", false
}

func siteRefines(a, b string) bool {
	return b == "" || a == b
}

// perfectMatching reports whether an n by n bipartite graph given by ok has
// a perfect matching, using augmenting paths.
func perfectMatching(n int, ok func(i, j int) bool) bool {
	matchOf := make([]int, n)
	for j := range matchOf {
		matchOf[j] = -1
	}

	var augment func(i int, seen []bool) bool
	augment = func(i int, seen []bool) bool {
		for j := 0; j < n; j++ {
			if seen[j] || !ok(i, j) {
				continue
			}
			seen[j] = true
			if matchOf[j] < 0 || augment(matchOf[j], seen) {
				matchOf[j] = i
				return true
			}
		}
		return false
	}

	for i := 0; i < n; i++ {
		if !augment(i, make([]bool, n)) {
			return false
		}
	}
	return true
}
