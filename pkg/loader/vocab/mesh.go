package vocab

import (
	"context"
	"strings"

	"github.com/OFFIS-RIT/biokiwi/backend/pkg/common"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/loader"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/loader/csv"
)

// MeSHLoader reads the disease and process thesaurus. File is a TSV table
// with the columns mesh_id, name and tree_numbers (pipe separated). The
// hierarchy is derived from tree numbers: the parent of C04.557.337 is the
// descriptor holding C04.557.
//
// Xrefs is an optional TSV table with the columns mesh_id, db_ns and db_id.
// Its edges carry XrefSource as provenance, the loader name when empty.
type MeSHLoader struct {
	File       loader.ResourceFile
	Xrefs      loader.ResourceFile
	XrefSource string
}

func (l *MeSHLoader) Name() string { return "mesh" }

func (l *MeSHLoader) Load(ctx context.Context, sink loader.Sink) error {
	table, err := readTable(ctx, l.File, '\t', "mesh_id", "name")
	if err != nil {
		return err
	}

	report := newRowReport(l.Name(), l.File.Path)
	report.unparsable(table.Skipped)

	treeNumbers := make(map[string][]string, len(table.Rows))
	order := make([]string, 0, len(table.Rows))
	byTree := make(map[string]string)
	for _, row := range table.Rows {
		id := row.Get("mesh_id")
		if id == "" {
			report.skip(common.DiagMalformedRow, row.Line, "missing mesh_id")
			continue
		}
		sink.AddNode(loader.NodeRecord{NS: "MESH", ID: id, Name: row.Get("name")})

		tns := csv.SplitList(row.Get("tree_numbers"), "|")
		if _, seen := treeNumbers[id]; !seen {
			order = append(order, id)
		}
		treeNumbers[id] = append(treeNumbers[id], tns...)
		for _, tn := range tns {
			byTree[tn] = id
		}
	}

	for _, id := range order {
		added := make(map[string]bool)
		for _, tn := range treeNumbers[id] {
			i := strings.LastIndexByte(tn, '.')
			if i < 0 {
				continue
			}
			parent, ok := byTree[tn[:i]]
			if !ok {
				report.skip(common.DiagUnresolvedReference, 0, "parent tree number "+tn[:i]+" not found")
				continue
			}
			if added[parent] || parent == id {
				continue
			}
			added[parent] = true
			sink.AddEdge(loader.EdgeRecord{
				From:     loader.Ref{NS: "MESH", ID: id},
				To:       loader.Ref{NS: "MESH", ID: parent},
				Relation: common.RelationIsa,
				Source:   l.Name(),
			})
		}
	}
	report.flush(sink)

	if l.Xrefs.Path == "" {
		return nil
	}
	return l.loadXrefs(ctx, sink)
}

func (l *MeSHLoader) loadXrefs(ctx context.Context, sink loader.Sink) error {
	table, err := readTable(ctx, l.Xrefs, '\t', "mesh_id", "db_ns", "db_id")
	if err != nil {
		return err
	}

	source := l.XrefSource
	if source == "" {
		source = l.Name()
	}

	report := newRowReport(l.Name(), l.Xrefs.Path)
	report.unparsable(table.Skipped)
	for _, row := range table.Rows {
		id, ns, dbID := row.Get("mesh_id"), row.Get("db_ns"), row.Get("db_id")
		if id == "" || ns == "" || dbID == "" {
			report.skip(common.DiagMalformedRow, row.Line, "expected mesh_id, db_ns and db_id")
			continue
		}
		sink.AddEdge(xref(loader.Ref{NS: "MESH", ID: id}, loader.Ref{NS: ns, ID: dbID}, source))
	}
	report.flush(sink)
	return nil
}
