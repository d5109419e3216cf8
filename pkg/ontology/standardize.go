package ontology

import (
	"sort"
	"strings"

	"github.com/OFFIS-RIT/biokiwi/backend/pkg/common"
)

// StandardizeRefs returns a copy of refs completed with the cross references
// of every entry. A mapped namespace is added when refs lacks it and
// overwritten when the mapping source has higher priority than the mapped
// namespace; the lexicographically smallest mapped id is used. A nil order
// falls back to common.DefaultNamespaceOrder.
//
// Sources are visited by namespace priority, then alphabetically, so the
// result does not depend on map iteration order.
func (gr *Graph) StandardizeRefs(refs map[string]string, order []string) map[string]string {
	out := make(map[string]string, len(refs))
	for ns, id := range refs {
		out[ns] = id
	}

	for _, sourceNS := range prioritySorted(refs, order) {
		sourceID := mappingID(sourceNS, refs[sourceNS])
		if sourceID == "" {
			continue
		}

		mapped := make(map[string]string)
		for _, label := range gr.GetMappings(sourceNS, sourceID) {
			ns, id, ok := common.SplitLabel(label)
			if !ok {
				continue
			}
			// labels are sorted, the first id per namespace is the smallest
			if _, seen := mapped[ns]; !seen {
				mapped[ns] = id
			}
		}

		for ns, id := range mapped {
			if _, present := out[ns]; !present || common.Prioritize(ns, sourceNS, order) {
				out[ns] = id
			}
		}
	}
	return out
}

// StandardName returns the name of the prioritized grounding of refs. A
// UPPRO grounding without a name falls back to the HGNC or UP name.
func (gr *Graph) StandardName(refs map[string]string, order []string) (string, bool) {
	ns, id, ok := common.Grounding(refs, order)
	if !ok {
		return "", false
	}
	if name, ok := gr.GetName(ns, id); ok {
		return name, true
	}
	if ns != "UPPRO" {
		return "", false
	}
	ns, id, ok = common.Grounding(refs, []string{"HGNC", "UP"})
	if !ok {
		return "", false
	}
	return gr.GetName(ns, id)
}

// mappingID strips the isoform suffix of UniProt ids (P04637-2) before
// xref lookup. UniProt chain ids (SL-...) are kept.
func mappingID(ns, id string) string {
	if ns == "UP" && !strings.HasPrefix(id, "SL-") {
		if base, _, ok := strings.Cut(id, "-"); ok {
			return base
		}
	}
	return id
}

func prioritySorted(refs map[string]string, order []string) []string {
	if order == nil {
		order = common.DefaultNamespaceOrder
	}
	rank := make(map[string]int, len(order))
	for i, ns := range order {
		if _, ok := rank[ns]; !ok {
			rank[ns] = i
		}
	}

	out := make([]string, 0, len(refs))
	for ns := range refs {
		out = append(out, ns)
	}
	sort.Slice(out, func(i, j int) bool {
		ri, iok := rank[out[i]]
		rj, jok := rank[out[j]]
		switch {
		case iok && jok && ri != rj:
			return ri < rj
		case iok != jok:
			return iok
		}
		return out[i] < out[j]
	})
	return out
}
