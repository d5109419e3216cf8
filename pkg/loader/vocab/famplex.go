package vocab

import (
	"context"

	"github.com/OFFIS-RIT/biokiwi/backend/pkg/common"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/loader"
)

// famplexEquivalenceNamespaces are the namespaces whose FamPlex equivalences
// become cross references.
var famplexEquivalenceNamespaces = map[string]bool{
	"PF":   true,
	"IP":   true,
	"GO":   true,
	"NCIT": true,
}

// FamPlexLoader reads the protein family and complex vocabulary from its
// three headerless CSV tables:
//
//	entities.csv      fplx_id
//	relations.csv     ns1,id1,relation,ns2,id2
//	equivalences.csv  ns,id,fplx_id
//
// HGNC members are named by gene symbol in relations.csv and are resolved by
// the builder once the HGNC nodes are known.
type FamPlexLoader struct {
	Entities     loader.ResourceFile
	Relations    loader.ResourceFile
	Equivalences loader.ResourceFile
}

func (l *FamPlexLoader) Name() string { return "famplex" }

func (l *FamPlexLoader) Load(ctx context.Context, sink loader.Sink) error {
	if err := l.loadEntities(ctx, sink); err != nil {
		return err
	}
	if err := l.loadRelations(ctx, sink); err != nil {
		return err
	}
	if l.Equivalences.Path == "" {
		return nil
	}
	return l.loadEquivalences(ctx, sink)
}

func (l *FamPlexLoader) loadEntities(ctx context.Context, sink loader.Sink) error {
	table, err := readTable(ctx, l.Entities, ',')
	if err != nil {
		return err
	}
	for _, row := range table.Rows {
		if id := row.Field(0); id != "" {
			sink.AddNode(loader.NodeRecord{NS: "FPLX", ID: id, Name: id})
		}
	}
	return nil
}

func (l *FamPlexLoader) loadRelations(ctx context.Context, sink loader.Sink) error {
	table, err := readTable(ctx, l.Relations, ',')
	if err != nil {
		return err
	}

	report := newRowReport(l.Name(), l.Relations.Path)
	report.unparsable(table.Skipped)
	unknown := relationReport{}
	for _, row := range table.Rows {
		if len(row.Fields) != 5 {
			report.skip(common.DiagMalformedRow, row.Line, "expected 5 columns")
			continue
		}
		ns1, id1, relName, ns2, id2 := row.Field(0), row.Field(1), row.Field(2), row.Field(3), row.Field(4)
		if ns1 == "" || id1 == "" || ns2 == "" || id2 == "" {
			report.skip(common.DiagMalformedRow, row.Line, "empty identifier")
			continue
		}
		rel, ok := common.ParseRelation(relName)
		if !ok || rel == common.RelationXref {
			unknown[relName]++
			continue
		}
		sink.AddEdge(loader.EdgeRecord{
			From:     loader.Ref{NS: ns1, ID: id1, ByName: ns1 == "HGNC"},
			To:       loader.Ref{NS: ns2, ID: id2, ByName: ns2 == "HGNC"},
			Relation: rel,
			Source:   l.Name(),
		})
	}
	report.flush(sink)
	unknown.flush(sink, l.Name())
	return nil
}

func (l *FamPlexLoader) loadEquivalences(ctx context.Context, sink loader.Sink) error {
	table, err := readTable(ctx, l.Equivalences, ',')
	if err != nil {
		return err
	}

	report := newRowReport(l.Name(), l.Equivalences.Path)
	report.unparsable(table.Skipped)
	for _, row := range table.Rows {
		ns, id, fplx := row.Field(0), row.Field(1), row.Field(2)
		if ns == "" || id == "" || fplx == "" {
			report.skip(common.DiagMalformedRow, row.Line, "expected ns,id,fplx_id")
			continue
		}
		if !famplexEquivalenceNamespaces[ns] {
			continue
		}
		sink.AddEdge(xref(loader.Ref{NS: "FPLX", ID: fplx}, loader.Ref{NS: ns, ID: id}, "fplx"))
	}
	report.flush(sink)
	return nil
}
