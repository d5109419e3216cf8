package preassembly

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/OFFIS-RIT/biokiwi/backend/pkg/common"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/statements"
	"github.com/cespare/xxhash/v2"
)

const noneKey = "None"

// MatchKey returns the deduplication key of a statement: its type, the
// grounded identity and state of every argument and the statement's own
// site or activity fields. Evidence never takes part. A nil order uses
// common.DefaultNamespaceOrder.
func MatchKey(stmt statements.Statement, order []string) string {
	k := keyer{order: order}
	var b strings.Builder
	b.WriteString(stmt.Type())
	b.WriteByte('(')

	switch s := stmt.(type) {
	case *statements.Modification:
		k.join(&b, k.agent(s.Enz), k.agent(s.Sub), site(s.Residue), site(string(s.Position)))
	case *statements.SelfModification:
		k.join(&b, k.agent(s.Enz), site(s.Residue), site(string(s.Position)))
	case *statements.RegulateActivity:
		k.join(&b, k.agent(s.Subj), k.agent(s.Obj), statements.ActivityOrDefault(s.ObjActivity))
	case *statements.RegulateAmount:
		k.join(&b, k.agent(s.Subj), k.agent(s.Obj))
	case *statements.ActiveForm:
		k.join(&b, k.agent(s.Agent), statements.ActivityOrDefault(s.Activity), strconv.FormatBool(s.IsActive))
	case *statements.HasActivity:
		k.join(&b, k.agent(s.Agent), statements.ActivityOrDefault(s.Activity), strconv.FormatBool(s.HasActivity))
	case *statements.Complex:
		k.join(&b, k.agentSet(s.Members))
	case *statements.Translocation:
		k.join(&b, k.agent(s.Agent), site(s.FromLocation), site(s.ToLocation))
	case *statements.Conversion:
		k.join(&b, k.agent(s.Subj), k.agentSet(s.ObjFrom), k.agentSet(s.ObjTo))
	default:
		parts := make([]string, 0, len(stmt.Agents()))
		for _, a := range stmt.Agents() {
			parts = append(parts, k.agent(a))
		}
		k.join(&b, parts...)
	}

	b.WriteByte(')')
	return b.String()
}

// Hash folds a match key into a 56-bit integer, small enough to survive
// JSON number handling in other tools.
func Hash(key string) int64 {
	return int64(xxhash.Sum64String(key) >> 8)
}

// AgentKey anchors an agent in the ontology: the label of its prioritized
// grounding, or NAME:<name> when it is ungrounded. A nil agent has the empty
// key.
func AgentKey(a *statements.Agent, order []string) string {
	if a == nil {
		return ""
	}
	if ns, id, ok := a.Grounding(order); ok {
		return common.Label(ns, id)
	}
	return common.Label("NAME", a.Name)
}

type keyer struct {
	order []string
}

func (k keyer) join(b *strings.Builder, parts ...string) {
	for i, p := range parts {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p)
	}
}

// entity is the identity part of an agent key.
func (k keyer) entity(a *statements.Agent) string {
	if ns, id, ok := a.Grounding(k.order); ok {
		return "(" + ns + ", " + id + ")"
	}
	return a.Name
}

// state is the condition part of an agent key. Bound partners contribute
// their full key, so the state of a partner matters as well.
func (k keyer) state(a *statements.Agent) string {
	mods := make([]string, len(a.Mods))
	for i, m := range a.Mods {
		mods[i] = fmt.Sprintf("(%s, %s, %s, %t)", m.ModType, site(m.Residue), site(string(m.Position)), m.IsModified)
	}
	slices.Sort(mods)

	muts := make([]string, len(a.Mutations))
	for i, m := range a.Mutations {
		muts[i] = fmt.Sprintf("(%s, %s, %s)", site(string(m.Position)), site(m.ResidueFrom), site(m.ResidueTo))
	}
	slices.Sort(muts)

	activity := noneKey
	if a.Activity != nil {
		activity = fmt.Sprintf("(%s, %t)", a.Activity.ActivityType, a.Activity.IsActive)
	}

	bound := make([]string, len(a.BoundConditions))
	for i, bc := range a.BoundConditions {
		bound[i] = fmt.Sprintf("(%s, %t)", k.agent(bc.Agent), bc.IsBound)
	}
	slices.Sort(bound)

	return fmt.Sprintf("[%s] [%s] %s %s %d [%s]",
		strings.Join(mods, " "), strings.Join(muts, " "), activity, site(a.Location),
		len(a.BoundConditions), strings.Join(bound, " "))
}

func (k keyer) agent(a *statements.Agent) string {
	if a == nil {
		return noneKey
	}
	return k.entity(a) + "{" + k.state(a) + "}"
}

// agentSet keys an unordered list of agents.
func (k keyer) agentSet(agents []*statements.Agent) string {
	keys := make([]string, len(agents))
	for i, a := range agents {
		keys[i] = k.agent(a)
	}
	slices.Sort(keys)
	return "[" + strings.Join(keys, "; ") + "]"
}

func site(s string) string {
	if s == "" {
		return noneKey
	}
	return s
}
