package obo

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
)

const scannerBufferSize = 1 << 20 // 1 MB

// Term is a single [Term] stanza reduced to what the ontology graph needs.
type Term struct {
	ID        string
	Name      string
	Namespace string
	Xrefs     []string
	Obsolete  bool
	// Relations maps a relation name (is_a, part_of, has_role, ...) to its
	// target ids in source order.
	Relations map[string][]string
}

// Document is a parsed OBO file or JSON entry map.
type Document struct {
	Ontology    string
	DataVersion string
	Terms       []Term
}

// internPool avoids duplicate string allocations for relation names.
type internPool struct {
	m map[string]string
}

func newInternPool() *internPool {
	return &internPool{m: make(map[string]string, 16)}
}

func (p *internPool) get(s string) string {
	if v, ok := p.m[s]; ok {
		return v
	}
	p.m[s] = s
	return s
}

// Parse parses OBO flat file content. A leading '[' or '{' switches to the
// JSON entry map format.
func Parse(content []byte) (*Document, error) {
	trimmed := bytes.TrimSpace(content)
	if isJSON(trimmed) {
		return ParseEntries(trimmed)
	}
	return ParseOBO(bytes.NewReader(content))
}

func isJSON(content []byte) bool {
	if len(content) == 0 {
		return false
	}
	if content[0] == '{' {
		return true
	}
	return content[0] == '[' && !bytes.HasPrefix(content, []byte("[Term]")) &&
		!bytes.HasPrefix(content, []byte("[Typedef]"))
}

// ParseOBO parses the OBO 1.4 flat format. Only [Term] stanzas are kept.
func ParseOBO(r io.Reader) (*Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, scannerBufferSize), scannerBufferSize)

	doc := &Document{}
	pool := newInternPool()

	inHeader := true
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line[0] == '[' {
			inHeader = false
			if line == "[Term]" {
				doc.Terms = append(doc.Terms, parseTerm(scanner, pool))
			}
			continue
		}
		if inHeader {
			parseHeaderLine(doc, line)
		}
	}

	return doc, scanner.Err()
}

func parseHeaderLine(doc *Document, line string) {
	key, val, ok := strings.Cut(line, ": ")
	if !ok {
		return
	}
	switch key {
	case "data-version":
		doc.DataVersion = val
	case "ontology":
		doc.Ontology = val
	}
}

func parseTerm(scanner *bufio.Scanner, pool *internPool) Term {
	var t Term
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			break
		}

		key, val, ok := strings.Cut(line, ": ")
		if !ok {
			continue
		}
		val = stripComment(val)

		switch key {
		case "id":
			t.ID = val
		case "name":
			t.Name = val
		case "namespace":
			t.Namespace = pool.get(val)
		case "xref":
			t.Xrefs = append(t.Xrefs, val)
		case "is_a":
			t.addRelation(pool.get("is_a"), firstField(val))
		case "relationship":
			// relationship: part_of GO:0005634 ! nucleus
			relType, target, ok := strings.Cut(val, " ")
			if !ok {
				continue
			}
			t.addRelation(pool.get(relType), firstField(target))
		case "is_obsolete":
			t.Obsolete = val == "true"
		}
	}
	return t
}

func (t *Term) addRelation(rel, target string) {
	if target == "" {
		return
	}
	if t.Relations == nil {
		t.Relations = make(map[string][]string, 2)
	}
	t.Relations[rel] = append(t.Relations[rel], target)
}

// stripComment drops the trailing "! comment" of a tag value. Names never
// carry one, but quoted values may contain '!'.
func stripComment(val string) string {
	if strings.HasPrefix(val, "\"") {
		return val
	}
	if i := strings.Index(val, " ! "); i >= 0 {
		return strings.TrimSpace(val[:i])
	}
	return val
}

func firstField(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// entry is one record of a JSON entry map. Both the list form
// ([{"id": ..., "name": ..., "relations": {...}}]) and the object form
// ({"<id>": {"name": ..., "relations": {...}}}) are accepted.
type entry struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	Namespace string              `json:"namespace"`
	Xrefs     []entryXref         `json:"xrefs"`
	Relations map[string][]string `json:"relations"`
}

type entryXref struct {
	Namespace string `json:"namespace"`
	ID        string `json:"id"`
}

// ParseEntries parses a JSON entry map.
func ParseEntries(content []byte) (*Document, error) {
	var entries []entry
	switch {
	case len(content) > 0 && content[0] == '[':
		if err := json.Unmarshal(content, &entries); err != nil {
			return nil, fmt.Errorf("decode entry list: %w", err)
		}
	default:
		var byID map[string]entry
		if err := json.Unmarshal(content, &byID); err != nil {
			return nil, fmt.Errorf("decode entry map: %w", err)
		}
		ids := make([]string, 0, len(byID))
		for id := range byID {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			e := byID[id]
			if e.ID == "" {
				e.ID = id
			}
			entries = append(entries, e)
		}
	}

	doc := &Document{Terms: make([]Term, 0, len(entries))}
	for _, e := range entries {
		t := Term{
			ID:        e.ID,
			Name:      e.Name,
			Namespace: e.Namespace,
			Relations: e.Relations,
		}
		for _, x := range e.Xrefs {
			t.Xrefs = append(t.Xrefs, x.Namespace+":"+x.ID)
		}
		doc.Terms = append(doc.Terms, t)
	}
	return doc, nil
}

// SplitXref splits an OBO xref into namespace and id. Labelled xrefs such as
// `MEDDRA:10050185 "Palmoplantar pustulosis"` keep only the identifier.
func SplitXref(xref string) (ns, id string, ok bool) {
	ns, id, ok = strings.Cut(xref, ":")
	if !ok || ns == "" {
		return "", "", false
	}
	id = firstField(strings.TrimSpace(id))
	if id == "" {
		return "", "", false
	}
	return ns, id, true
}
