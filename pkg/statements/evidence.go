package statements

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Evidence is the provenance of one extraction. The engine only unions
// evidence; apart from MatchesKey its content is never interpreted.
type Evidence struct {
	SourceAPI   string            `json:"source_api,omitempty"`
	SourceID    string            `json:"source_id,omitempty"`
	PMID        string            `json:"pmid,omitempty"`
	Text        string            `json:"text,omitempty"`
	Annotations map[string]any    `json:"annotations,omitempty"`
	Epistemics  map[string]any    `json:"epistemics,omitempty"`
	TextRefs    map[string]string `json:"text_refs,omitempty"`
	SourceHash  int64             `json:"source_hash,omitempty"`
	Context     json.RawMessage   `json:"context,omitempty"`
}

// MatchesKey identifies the evidence by source, text and the sorted
// annotation and epistemics entries.
func (e Evidence) MatchesKey() string {
	var b strings.Builder
	for _, s := range []string{e.SourceAPI, e.SourceID, e.PMID, e.Text} {
		if s == "" {
			s = "~"
		}
		b.WriteString(s)
		b.WriteString(", ")
	}
	writeSortedMap(&b, e.Annotations)
	b.WriteString(", ")
	writeSortedMap(&b, e.Epistemics)
	return b.String()
}

func writeSortedMap(b *strings.Builder, m map[string]any) {
	b.WriteByte('[')
	for i, k := range slices.Sorted(maps.Keys(m)) {
		if i > 0 {
			b.WriteString(", ")
		}
		// fmt prints nested maps with sorted keys
		fmt.Fprintf(b, "(%s, %v)", k, m[k])
	}
	b.WriteByte(']')
}

// Clone copies the evidence. Annotation values are shared.
func (e Evidence) Clone() Evidence {
	c := e
	c.Annotations = maps.Clone(e.Annotations)
	c.Epistemics = maps.Clone(e.Epistemics)
	c.TextRefs = maps.Clone(e.TextRefs)
	if e.Context != nil {
		c.Context = append(json.RawMessage(nil), e.Context...)
	}
	return c
}
