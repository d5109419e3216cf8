package ontology

import (
	"context"
	"testing"

	"github.com/OFFIS-RIT/biokiwi/backend/pkg/common"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/loader"
)

type testLoader struct {
	name        string
	nodes       []loader.NodeRecord
	edges       []loader.EdgeRecord
	err         error
	directional bool
}

func (l *testLoader) Name() string { return l.name }

func (l *testLoader) Load(ctx context.Context, sink loader.Sink) error {
	if l.err != nil {
		return l.err
	}
	for _, n := range l.nodes {
		sink.AddNode(n)
	}
	for _, e := range l.edges {
		sink.AddEdge(e)
	}
	return nil
}

type directionalLoader struct {
	*testLoader
}

func (directionalLoader) DirectionalXrefs() bool { return true }

func node(ns, id, name string) loader.NodeRecord {
	return loader.NodeRecord{NS: ns, ID: id, Name: name}
}

func edge(ns1, id1 string, rel common.Relation, ns2, id2 string) loader.EdgeRecord {
	return loader.EdgeRecord{
		From:     loader.Ref{NS: ns1, ID: id1},
		To:       loader.Ref{NS: ns2, ID: id2},
		Relation: rel,
	}
}

// testGraph builds a small bio ontology:
//
//	HGNC:1097 (BRAF) isa FPLX:RAF isa FPLX:MAPKKK
//	HGNC:6840 (MAP2K1) isa FPLX:MEK
//	GO:GO:0005634 (nucleus) partof GO:GO:0043229 isa GO:GO:0043226
//	CHEBI:15377 xref PUBCHEM:962 xref HMDB:HMDB0002111
//	HGNC:1097 xref UP:P15056
func testGraph(t *testing.T) (*Graph, *common.Diagnostics) {
	t.Helper()
	loaders := []loader.SourceLoader{
		&testLoader{
			name: "hgnc",
			nodes: []loader.NodeRecord{
				node("HGNC", "1097", "BRAF"),
				node("HGNC", "6840", "MAP2K1"),
			},
			edges: []loader.EdgeRecord{
				edge("HGNC", "1097", common.RelationXref, "UP", "P15056"),
			},
		},
		&testLoader{
			name: "famplex",
			nodes: []loader.NodeRecord{
				node("FPLX", "RAF", "RAF"),
				node("FPLX", "MEK", "MEK"),
				node("FPLX", "MAPKKK", "MAPKKK"),
			},
			edges: []loader.EdgeRecord{
				{
					From:     loader.Ref{NS: "HGNC", ID: "BRAF", ByName: true},
					To:       loader.Ref{NS: "FPLX", ID: "RAF"},
					Relation: common.RelationIsa,
				},
				{
					From:     loader.Ref{NS: "HGNC", ID: "MAP2K1", ByName: true},
					To:       loader.Ref{NS: "FPLX", ID: "MEK"},
					Relation: common.RelationIsa,
				},
				edge("FPLX", "RAF", common.RelationIsa, "FPLX", "MAPKKK"),
			},
		},
		&testLoader{
			name: "go",
			nodes: []loader.NodeRecord{
				node("GO", "GO:0005634", "nucleus"),
				node("GO", "GO:0043229", "intracellular organelle"),
				node("GO", "GO:0043226", "organelle"),
			},
			edges: []loader.EdgeRecord{
				edge("GO", "GO:0005634", common.RelationPartOf, "GO", "GO:0043229"),
				edge("GO", "GO:0043229", common.RelationIsa, "GO", "GO:0043226"),
			},
		},
		&testLoader{
			name: "chebi",
			edges: []loader.EdgeRecord{
				edge("CHEBI", "15377", common.RelationXref, "PUBCHEM", "962"),
				edge("PUBCHEM", "962", common.RelationXref, "HMDB", "HMDB0002111"),
			},
		},
	}

	g, diags, err := NewBuilder(NewBuilderParams{Loaders: loaders, Parallel: 2}).Build(context.Background())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return g, diags
}
