package preassembly

import (
	"slices"

	"github.com/OFFIS-RIT/biokiwi/backend/pkg/common"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/ontology"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/statements"
)

// bucket indexes the groups of one statement type by the agent keys they
// carry in each role, so that refinement candidates can be found without
// comparing every pair.
type bucket struct {
	typ    string
	groups []int
	roles  []string
	// byKey[role][agentKey] lists positions in groups, ascending
	byKey map[string]map[string][]int
	// keys[role][i] are the agent keys of groups[i] in role
	keys map[string][][]string
}

func newBucket(typ string) *bucket {
	return &bucket{
		typ:   typ,
		byKey: make(map[string]map[string][]int),
		keys:  make(map[string][][]string),
	}
}

func (b *bucket) add(groupIndex int, g *Group, order []string) {
	pos := len(b.groups)
	b.groups = append(b.groups, groupIndex)
	for _, role := range g.Statement.Roles() {
		if _, ok := b.byKey[role.Name]; !ok {
			b.roles = append(b.roles, role.Name)
			b.byKey[role.Name] = make(map[string][]int)
		}
		keys := roleKeys(role.Agents, order)
		for _, k := range keys {
			b.byKey[role.Name][k] = append(b.byKey[role.Name][k], pos)
		}
		b.keys[role.Name] = append(b.keys[role.Name], keys)
	}
}

// roleKeys returns the distinct agent keys of a role. An empty role has
// the single empty key.
func roleKeys(agents []*statements.Agent, order []string) []string {
	if len(agents) == 0 {
		return []string{""}
	}
	keys := make([]string, 0, len(agents))
	for _, a := range agents {
		keys = append(keys, AgentKey(a, order))
	}
	slices.Sort(keys)
	return slices.Compact(keys)
}

// ancestorIndex holds the isa/partof ancestors of every distinct agent key
// of a batch. It is filled before the parallel phase and only read after.
type ancestorIndex map[string][]string

func (idx ancestorIndex) fill(onto *ontology.Graph, key string) {
	if _, ok := idx[key]; ok {
		return
	}
	ns, id, ok := common.SplitLabel(key)
	if !ok || ns == "NAME" {
		idx[key] = nil
		return
	}
	idx[key] = onto.GetParents(ns, id)
}

// lessSpecific returns the positions of the bucket's groups that the group
// at pos could refine: for every role, each of its agent keys must meet a
// candidate key equal to it, one of its ancestors, or the empty key.
func (b *bucket) lessSpecific(pos int, ancestors ancestorIndex) []int {
	var candidates map[int]struct{}
	for _, role := range b.roles {
		if pos >= len(b.keys[role]) {
			continue
		}
		for _, key := range b.keys[role][pos] {
			relevant := make(map[int]struct{})
			collect := func(k string) {
				for _, other := range b.byKey[role][k] {
					relevant[other] = struct{}{}
				}
			}
			collect("")
			if key != "" {
				collect(key)
				for _, parent := range ancestors[key] {
					collect(parent)
				}
			}
			delete(relevant, pos)

			if candidates == nil {
				candidates = relevant
				continue
			}
			for c := range candidates {
				if _, ok := relevant[c]; !ok {
					delete(candidates, c)
				}
			}
		}
	}

	out := make([]int, 0, len(candidates))
	for c := range candidates {
		out = append(out, c)
	}
	slices.Sort(out)
	return out
}
