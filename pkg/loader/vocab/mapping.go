package vocab

import (
	"context"

	"github.com/OFFIS-RIT/biokiwi/backend/pkg/common"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/loader"
)

// MappingLoader reads a flat identifier mapping table with the columns ns1,
// id1, ns2 and id2 and yields one xref edge per row. It contributes no nodes.
// The ChEBI chemical table (CHEBI to CHEMBL, PUBCHEM, HMDB and CAS) is loaded
// this way.
type MappingLoader struct {
	Source string
	File   loader.ResourceFile
	Comma  rune
}

func (l *MappingLoader) Name() string {
	if l.Source == "" {
		return "mapping"
	}
	return l.Source
}

func (l *MappingLoader) Load(ctx context.Context, sink loader.Sink) error {
	comma := l.Comma
	if comma == 0 {
		comma = '\t'
	}
	table, err := readTable(ctx, l.File, comma, "ns1", "id1", "ns2", "id2")
	if err != nil {
		return err
	}

	report := newRowReport(l.Name(), l.File.Path)
	report.unparsable(table.Skipped)
	for _, row := range table.Rows {
		from := loader.Ref{NS: row.Get("ns1"), ID: row.Get("id1")}
		to := loader.Ref{NS: row.Get("ns2"), ID: row.Get("id2")}
		if from.NS == "" || from.ID == "" || to.NS == "" || to.ID == "" {
			report.skip(common.DiagMalformedRow, row.Line, "empty identifier")
			continue
		}
		sink.AddEdge(xref(from, to, l.Name()))
	}
	report.flush(sink)
	return nil
}

// NCITLoader reads the NCIT map: a TSV table with the columns ncit_id,
// target_ns, target_id and an optional name. The map is not an equivalence,
// so its xrefs stay one-directional.
type NCITLoader struct {
	File loader.ResourceFile
}

func (l *NCITLoader) Name() string { return "ncit" }

func (l *NCITLoader) DirectionalXrefs() bool { return true }

func (l *NCITLoader) Load(ctx context.Context, sink loader.Sink) error {
	table, err := readTable(ctx, l.File, '\t', "ncit_id", "target_ns", "target_id")
	if err != nil {
		return err
	}

	report := newRowReport(l.Name(), l.File.Path)
	report.unparsable(table.Skipped)
	for _, row := range table.Rows {
		id := row.Get("ncit_id")
		ns, target := row.Get("target_ns"), row.Get("target_id")
		if id == "" || ns == "" || target == "" {
			report.skip(common.DiagMalformedRow, row.Line, "expected ncit_id, target_ns and target_id")
			continue
		}
		sink.AddNode(loader.NodeRecord{NS: "NCIT", ID: id, Name: row.Get("name")})
		sink.AddEdge(xref(loader.Ref{NS: "NCIT", ID: id}, loader.Ref{NS: ns, ID: target}, l.Name()))
	}
	report.flush(sink)
	return nil
}
