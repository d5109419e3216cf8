package preassembly

import (
	"context"
	"testing"

	"github.com/OFFIS-RIT/biokiwi/backend/pkg/common"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/loader"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/loader/vocab"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/ontology"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/statements"
)

type staticLoader struct {
	name  string
	nodes []loader.NodeRecord
	edges []loader.EdgeRecord
}

func (l *staticLoader) Name() string { return l.name }

func (l *staticLoader) Load(ctx context.Context, sink loader.Sink) error {
	for _, n := range l.nodes {
		sink.AddNode(n)
	}
	for _, e := range l.edges {
		sink.AddEdge(e)
	}
	return nil
}

func rel(ns1, id1 string, r common.Relation, ns2, id2 string) loader.EdgeRecord {
	return loader.EdgeRecord{
		From:     loader.Ref{NS: ns1, ID: id1},
		To:       loader.Ref{NS: ns2, ID: id2},
		Relation: r,
	}
}

// testOntology builds:
//
//	HGNC:1097 (BRAF), HGNC:9829 (RAF1) isa FPLX:RAF isa FPLX:MAPKKK
//	HGNC:6840 (MAP2K1) isa FPLX:MEK
//	HGNC:1097 xref UP:P15056
//	FPLX:CYCA isa FPLX:CYCB isa FPLX:CYCA
//	GO:0005634 (nucleus) partof GO:0043229 isa GO:0043226 (organelle)
//
// plus the built-in activity and modification hierarchies.
func testOntology(t *testing.T) *ontology.Graph {
	t.Helper()
	loaders := []loader.SourceLoader{
		&staticLoader{
			name: "genes",
			nodes: []loader.NodeRecord{
				{NS: "HGNC", ID: "1097", Name: "BRAF"},
				{NS: "HGNC", ID: "9829", Name: "RAF1"},
				{NS: "HGNC", ID: "6840", Name: "MAP2K1"},
				{NS: "UP", ID: "P15056"},
			},
			edges: []loader.EdgeRecord{
				rel("HGNC", "1097", common.RelationXref, "UP", "P15056"),
			},
		},
		&staticLoader{
			name: "famplex",
			nodes: []loader.NodeRecord{
				{NS: "FPLX", ID: "RAF", Name: "RAF"},
				{NS: "FPLX", ID: "MAPKKK", Name: "MAPKKK"},
				{NS: "FPLX", ID: "MEK", Name: "MEK"},
			},
			edges: []loader.EdgeRecord{
				rel("HGNC", "1097", common.RelationIsa, "FPLX", "RAF"),
				rel("HGNC", "9829", common.RelationIsa, "FPLX", "RAF"),
				rel("FPLX", "RAF", common.RelationIsa, "FPLX", "MAPKKK"),
				rel("HGNC", "6840", common.RelationIsa, "FPLX", "MEK"),
				rel("FPLX", "CYCA", common.RelationIsa, "FPLX", "CYCB"),
				rel("FPLX", "CYCB", common.RelationIsa, "FPLX", "CYCA"),
			},
		},
		&staticLoader{
			name: "go",
			nodes: []loader.NodeRecord{
				{NS: "GO", ID: "GO:0005634", Name: "nucleus"},
				{NS: "GO", ID: "GO:0043229", Name: "intracellular organelle"},
				{NS: "GO", ID: "GO:0043226", Name: "organelle"},
				{NS: "GO", ID: "GO:0005737", Name: "cytoplasm"},
			},
			edges: []loader.EdgeRecord{
				rel("GO", "GO:0005634", common.RelationPartOf, "GO", "GO:0043229"),
				rel("GO", "GO:0043229", common.RelationIsa, "GO", "GO:0043226"),
			},
		},
		vocab.ActivitiesLoader{},
		vocab.ModificationsLoader{},
	}

	g, _, err := ontology.NewBuilder(ontology.NewBuilderParams{Loaders: loaders, Parallel: 2}).Build(context.Background())
	if err != nil {
		t.Fatalf("build ontology: %v", err)
	}
	return g
}

func testPreassembler(t *testing.T) *Preassembler {
	t.Helper()
	return NewPreassembler(NewPreassemblerParams{Ontology: testOntology(t), Parallel: 4})
}

func gene(name, id string) *statements.Agent {
	return &statements.Agent{Name: name, DBRefs: statements.DBRefs{"HGNC": id}}
}

func family(name string) *statements.Agent {
	return &statements.Agent{Name: name, DBRefs: statements.DBRefs{"FPLX": name}}
}

var (
	braf   = func() *statements.Agent { return gene("BRAF", "1097") }
	raf1   = func() *statements.Agent { return gene("RAF1", "9829") }
	map2k1 = func() *statements.Agent { return gene("MAP2K1", "6840") }
	raf    = func() *statements.Agent { return family("RAF") }
	mek    = func() *statements.Agent { return family("MEK") }
)

func phos(id string, enz, sub *statements.Agent, residue, position string) *statements.Modification {
	return &statements.Modification{
		Kind:     "Phosphorylation",
		Meta:     statements.Meta{ID: id, Belief: 1},
		Enz:      enz,
		Sub:      sub,
		Residue:  residue,
		Position: statements.Site(position),
	}
}

func withEvidence(stmt statements.Statement, evidence ...statements.Evidence) statements.Statement {
	stmt.Metadata().Evidence = evidence
	return stmt
}

func ev(source, pmid, text string) statements.Evidence {
	return statements.Evidence{SourceAPI: source, PMID: pmid, Text: text}
}

func groupKeys(groups []*Group) []string {
	keys := make([]string, len(groups))
	for i, g := range groups {
		keys[i] = g.Key
	}
	return keys
}
