package vocab

import (
	"context"

	"github.com/OFFIS-RIT/biokiwi/backend/pkg/common"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/loader"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/loader/csv"
)

// HGNCLoader reads the gene symbol registry. The resource is a TSV table with
// the columns hgnc_id, symbol and uniprot_ids (comma separated). Identifiers
// may carry the "HGNC:" prefix, it is stripped.
type HGNCLoader struct {
	File loader.ResourceFile
}

func (l *HGNCLoader) Name() string { return "hgnc" }

func (l *HGNCLoader) Load(ctx context.Context, sink loader.Sink) error {
	table, err := readTable(ctx, l.File, '\t', "hgnc_id", "symbol")
	if err != nil {
		return err
	}

	report := newRowReport(l.Name(), l.File.Path)
	report.unparsable(table.Skipped)
	for _, row := range table.Rows {
		id := stripPrefix(row.Get("hgnc_id"), "HGNC")
		symbol := row.Get("symbol")
		if id == "" || symbol == "" {
			report.skip(common.DiagMalformedRow, row.Line, "missing hgnc_id or symbol")
			continue
		}
		sink.AddNode(loader.NodeRecord{NS: "HGNC", ID: id, Name: symbol})

		for _, up := range csv.SplitList(row.Get("uniprot_ids"), ",") {
			sink.AddEdge(xref(loader.Ref{NS: "HGNC", ID: id}, loader.Ref{NS: "UP", ID: up}, l.Name()))
		}
	}
	report.flush(sink)
	return nil
}

// UniProtLoader reads the protein registry: a TSV table with the columns
// uniprot_id, gene_name and hgnc_id. The gene name becomes the node name.
type UniProtLoader struct {
	File loader.ResourceFile
}

func (l *UniProtLoader) Name() string { return "uniprot" }

func (l *UniProtLoader) Load(ctx context.Context, sink loader.Sink) error {
	table, err := readTable(ctx, l.File, '\t', "uniprot_id", "gene_name")
	if err != nil {
		return err
	}

	report := newRowReport(l.Name(), l.File.Path)
	report.unparsable(table.Skipped)
	for _, row := range table.Rows {
		id := row.Get("uniprot_id")
		if id == "" {
			report.skip(common.DiagMalformedRow, row.Line, "missing uniprot_id")
			continue
		}
		sink.AddNode(loader.NodeRecord{NS: "UP", ID: id, Name: row.Get("gene_name")})

		if hgnc := stripPrefix(row.Get("hgnc_id"), "HGNC"); hgnc != "" {
			sink.AddEdge(xref(loader.Ref{NS: "UP", ID: id}, loader.Ref{NS: "HGNC", ID: hgnc}, "hgnc"))
		}
	}
	report.flush(sink)
	return nil
}
