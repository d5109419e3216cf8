// Package vocab implements the source loaders of the ontology builder. Each
// loader reads one vocabulary resource and yields node and edge tuples.
package vocab

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/OFFIS-RIT/biokiwi/backend/pkg/common"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/loader"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/loader/csv"
)

// maxReportedRows caps the line numbers listed in a single diagnostic.
const maxReportedRows = 20

func readTable(ctx context.Context, file loader.ResourceFile, comma rune, columns ...string) (*csv.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	content, err := file.GetContent(ctx)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", file.Path, err)
	}
	table, err := csv.ParseTable(content, csv.TableOptions{Comma: comma, Comment: '#', Header: len(columns) > 0})
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", file.Path, err)
	}
	if len(columns) > 0 && !table.HasColumns(columns...) {
		return nil, fmt.Errorf("%s: missing columns, want %s, have %s",
			file.Path, strings.Join(columns, ","), strings.Join(table.Columns, ","))
	}
	return table, nil
}

// rowReport groups skipped rows by reason so that one bad resource produces
// a handful of diagnostics instead of one per row.
type rowReport struct {
	source string
	path   string
	kind   map[string]common.DiagnosticKind
	lines  map[string][]int
	order  []string
}

func newRowReport(source, path string) *rowReport {
	return &rowReport{
		source: source,
		path:   path,
		kind:   make(map[string]common.DiagnosticKind),
		lines:  make(map[string][]int),
	}
}

func (r *rowReport) skip(kind common.DiagnosticKind, line int, reason string) {
	if _, ok := r.lines[reason]; !ok {
		r.order = append(r.order, reason)
		r.kind[reason] = kind
	}
	r.lines[reason] = append(r.lines[reason], line)
}

func (r *rowReport) unparsable(n int) {
	for i := 0; i < n; i++ {
		r.skip(common.DiagMalformedRow, 0, "unparsable record")
	}
}

func (r *rowReport) flush(sink loader.Sink) {
	for _, reason := range r.order {
		lines := r.lines[reason]
		items := make([]string, 0, min(len(lines), maxReportedRows))
		for _, l := range lines {
			if len(items) == maxReportedRows {
				break
			}
			if l > 0 {
				items = append(items, r.path+":"+strconv.Itoa(l))
			}
		}
		sink.Report(common.Diagnostic{
			Kind:    r.kind[reason],
			Source:  r.source,
			Message: fmt.Sprintf("skipped %d rows: %s", len(lines), reason),
			Items:   items,
		})
	}
}

// relationReport collects relation names that did not normalize.
type relationReport map[string]int

func (r relationReport) flush(sink loader.Sink, source string) {
	if len(r) == 0 {
		return
	}
	names := make([]string, 0, len(r))
	total := 0
	for name, n := range r {
		names = append(names, name)
		total += n
	}
	sort.Strings(names)
	sink.Report(common.Diagnostic{
		Kind:    common.DiagUnknownRelation,
		Source:  source,
		Message: fmt.Sprintf("skipped %d edges with unknown relation names", total),
		Items:   names,
	})
}

func stripPrefix(id, prefix string) string {
	return strings.TrimPrefix(id, prefix+":")
}

func xref(from, to loader.Ref, source string) loader.EdgeRecord {
	return loader.EdgeRecord{From: from, To: to, Relation: common.RelationXref, Source: source}
}
