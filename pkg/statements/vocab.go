package statements

// Namespaces of the built-in vocabularies. Their nodes live in the ontology
// graph next to the loaded ones so that activity and modification types can
// be compared with the same isa queries as entities.
const (
	NSActivities    = "INDRA_ACTIVITIES"
	NSModifications = "INDRA_MODS"
)

// ModificationRoot is the most generic modification type.
const ModificationRoot = "modification"

// AddModificationTypes lists the chemical modifications in the order used
// for statement types. Each one has a removal counterpart prefixed with "de".
var AddModificationTypes = []string{
	"phosphorylation",
	"hydroxylation",
	"sumoylation",
	"acetylation",
	"glycosylation",
	"ribosylation",
	"ubiquitination",
	"farnesylation",
	"geranylgeranylation",
	"palmitoylation",
	"myristoylation",
	"methylation",
}

// InverseModType returns the opposite modification type, for example
// dephosphorylation for phosphorylation.
func InverseModType(modType string) (string, bool) {
	for _, add := range AddModificationTypes {
		switch modType {
		case add:
			return "de" + add, true
		case "de" + add:
			return add, true
		}
	}
	return "", false
}

// ValidModType reports whether modType is a known modification type.
func ValidModType(modType string) bool {
	if modType == ModificationRoot {
		return true
	}
	_, ok := InverseModType(modType)
	return ok
}

// ActivityHierarchy lists the (child, parent) isa pairs of activity types.
var ActivityHierarchy = [][2]string{
	{"transcription", "activity"},
	{"catalytic", "activity"},
	{"gtpbound", "activity"},
	{"kinase", "catalytic"},
	{"phosphatase", "catalytic"},
	{"gef", "catalytic"},
	{"gap", "catalytic"},
}

// ValidActivity reports whether activity is a known activity type.
func ValidActivity(activity string) bool {
	if activity == "activity" {
		return true
	}
	for _, pair := range ActivityHierarchy {
		if pair[0] == activity {
			return true
		}
	}
	return false
}

// ActivityOrDefault returns "activity" for an unset activity type.
func ActivityOrDefault(activity string) string {
	if activity == "" {
		return "activity"
	}
	return activity
}

// ActivityIsa reports whether activity type child specializes parent in
// ActivityHierarchy. A type does not specialize itself.
func ActivityIsa(child, parent string) bool {
	for child != parent {
		next := ""
		for _, pair := range ActivityHierarchy {
			if pair[0] == child {
				next = pair[1]
				break
			}
		}
		if next == "" {
			return false
		}
		if next == parent {
			return true
		}
		child = next
	}
	return false
}

// ModTypeIsa reports whether modification type child specializes parent.
// Every concrete type specializes ModificationRoot and nothing else.
func ModTypeIsa(child, parent string) bool {
	return parent == ModificationRoot && child != ModificationRoot && ValidModType(child)
}
