package csv

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/OFFIS-RIT/biokiwi/backend/pkg/loader"

	"golang.org/x/sync/singleflight"
)

// ErrEmptyTable is returned when a table holds no data rows.
var ErrEmptyTable = errors.New("table is empty or contains no valid data")

// TableOptions configures how a delimited resource is parsed.
//
// Comma defaults to ','. Header reports whether the first non-empty row names
// the columns. Comment lines start with the Comment rune when it is set.
type TableOptions struct {
	Comma   rune
	Comment rune
	Header  bool
}

// Table is a parsed delimited resource.
type Table struct {
	Columns []string
	Rows    []Row
	// Skipped counts records the csv reader could not parse.
	Skipped int
}

// Row is a single data row with its 1-based line number in the source.
type Row struct {
	Line   int
	Fields []string

	table *Table
}

// Get returns the value of the named column or "" when the row is too short
// or the table has no such column.
func (r Row) Get(column string) string {
	if r.table == nil {
		return ""
	}
	for i, c := range r.table.Columns {
		if c == column {
			return r.Field(i)
		}
	}
	return ""
}

// Field returns the i-th field trimmed of surrounding whitespace.
func (r Row) Field(i int) string {
	if i < 0 || i >= len(r.Fields) {
		return ""
	}
	return strings.TrimSpace(r.Fields[i])
}

// HasColumns reports whether the table has every named column.
func (t *Table) HasColumns(columns ...string) bool {
	for _, want := range columns {
		found := false
		for _, c := range t.Columns {
			if c == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// ParseTable parses delimited content. It tolerates ragged rows and stray
// quotes, drops blank rows and counts records that cannot be read at all.
func ParseTable(content []byte, opts TableOptions) (*Table, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	if opts.Comma != 0 {
		reader.Comma = opts.Comma
	}
	if opts.Comment != 0 {
		reader.Comment = opts.Comment
	}

	table := &Table{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			table.Skipped++
			continue
		}

		isEmpty := true
		for _, field := range record {
			if strings.TrimSpace(field) != "" {
				isEmpty = false
				break
			}
		}
		if isEmpty {
			continue
		}

		if opts.Header && table.Columns == nil {
			table.Columns = make([]string, len(record))
			for i, c := range record {
				table.Columns[i] = strings.ToLower(strings.TrimSpace(c))
			}
			continue
		}

		line, _ := reader.FieldPos(0)
		table.Rows = append(table.Rows, Row{Line: line, Fields: record, table: table})
	}

	if len(table.Rows) == 0 && table.Columns == nil {
		return nil, ErrEmptyTable
	}
	return table, nil
}

// TableReader parses resource files into tables and caches the result per
// file, so that several loaders can share one resource.
type TableReader struct {
	opts TableOptions

	cache   map[string]*Table
	cacheMu sync.RWMutex
	group   singleflight.Group
}

// NewTableReader creates a new TableReader with the given options.
func NewTableReader(opts TableOptions) *TableReader {
	return &TableReader{
		opts:  opts,
		cache: make(map[string]*Table),
	}
}

// GetTable retrieves and parses the file content.
func (l *TableReader) GetTable(ctx context.Context, file loader.ResourceFile) (*Table, error) {
	key := loader.CacheKey(file)

	l.cacheMu.RLock()
	if cached, ok := l.cache[key]; ok {
		l.cacheMu.RUnlock()
		return cached, nil
	}
	l.cacheMu.RUnlock()

	result, err, _ := l.group.Do(key, func() (any, error) {
		l.cacheMu.RLock()
		if cached, ok := l.cache[key]; ok {
			l.cacheMu.RUnlock()
			return cached, nil
		}
		l.cacheMu.RUnlock()

		content, err := file.GetContent(ctx)
		if err != nil {
			return nil, err
		}

		parsed, err := ParseTable(content, l.opts)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", file.Path, err)
		}

		l.cacheMu.Lock()
		l.cache[key] = parsed
		l.cacheMu.Unlock()

		return parsed, nil
	})
	if err != nil {
		return nil, err
	}

	return result.(*Table), nil
}

// SplitList splits a multi-valued cell such as "P04637, Q9H3D4" or
// "C04.557|C04.588". Empty items are dropped.
func SplitList(value string, seps string) []string {
	parts := strings.FieldsFunc(value, func(r rune) bool {
		return strings.ContainsRune(seps, r)
	})
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
