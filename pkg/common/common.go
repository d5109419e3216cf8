package common

import "strings"

// Relation is the type of a directed ontology edge. isa and partof edges
// point from the more specific node to the more general one. xref edges
// link equivalent identifiers in different namespaces.
type Relation uint8

const (
	RelationIsa Relation = 1 << iota
	RelationPartOf
	RelationXref
)

// RelationSet is a bit mask of relations used to restrict graph traversals.
type RelationSet = Relation

const (
	Hierarchy   RelationSet = RelationIsa | RelationPartOf
	AnyRelation RelationSet = RelationIsa | RelationPartOf | RelationXref
)

func (r Relation) String() string {
	switch r {
	case RelationIsa:
		return "isa"
	case RelationPartOf:
		return "partof"
	case RelationXref:
		return "xref"
	}
	return "unknown"
}

// Has reports whether the set contains rel.
func (r Relation) Has(rel Relation) bool {
	return r&rel != 0
}

var relationNames = map[string]Relation{
	"isa":     RelationIsa,
	"is_a":    RelationIsa,
	"partof":  RelationPartOf,
	"part_of": RelationPartOf,
	"xref":    RelationXref,

	// ChEBI relations folded into the isa hierarchy
	"is_conjugate_acid_of":  RelationIsa,
	"has_functional_parent": RelationIsa,
	"has_parent_hydride":    RelationIsa,
	"has_role":              RelationIsa,
}

// ParseRelation normalizes a relation name found in a source vocabulary.
// Unknown relation names return ok=false and should be skipped by loaders.
func ParseRelation(name string) (Relation, bool) {
	rel, ok := relationNames[strings.ToLower(strings.TrimSpace(name))]
	return rel, ok
}

// Label returns the external node label "<namespace>:<id>".
func Label(ns, id string) string {
	return ns + ":" + id
}

// SplitLabel splits a node label on its first colon. Identifiers may contain
// colons themselves (GO:GO:0005634), the namespace never does.
func SplitLabel(label string) (ns, id string, ok bool) {
	ns, id, ok = strings.Cut(label, ":")
	if !ok || ns == "" {
		return "", "", false
	}
	return ns, id, true
}

// DefaultNamespaceOrder is the grounding priority used when an agent carries
// references in several namespaces.
var DefaultNamespaceOrder = []string{
	"FPLX", "UPPRO", "HGNC", "UP", "CHEBI", "GO", "MESH",
	"MIRBASE", "DOID", "HP", "EFO",
}

// Grounding returns the highest priority (namespace, id) pair of refs.
// A nil order falls back to DefaultNamespaceOrder.
func Grounding(refs map[string]string, order []string) (ns, id string, ok bool) {
	if order == nil {
		order = DefaultNamespaceOrder
	}
	for _, ns := range order {
		if id := refs[ns]; id != "" {
			return ns, id, true
		}
	}
	return "", "", false
}

// Prioritize reports whether ns2 has a strictly higher priority than ns1 in
// order. Namespaces missing from the order have the lowest priority.
func Prioritize(ns1, ns2 string, order []string) bool {
	if order == nil {
		order = DefaultNamespaceOrder
	}
	p1, p2 := -1, -1
	for i, ns := range order {
		if ns == ns1 && p1 < 0 {
			p1 = i
		}
		if ns == ns2 && p2 < 0 {
			p2 = i
		}
	}
	return p2 >= 0 && (p1 < 0 || p2 < p1)
}
