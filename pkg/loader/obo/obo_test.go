package obo

import (
	"reflect"
	"testing"
)

const sampleOBO = `format-version: 1.2
data-version: releases/2024-06-17
ontology: go

[Term]
id: GO:0005634
name: nucleus
namespace: cellular_component
xref: NIF_Subcellular:sao1702920020
is_a: GO:0043231 ! intracellular membrane-bounded organelle
relationship: part_of GO:0005622 ! intracellular anatomical structure

[Typedef]
id: part_of
name: part of

[Term]
id: GO:0000001
name: obsolete term
is_obsolete: true
`

func TestParseOBO(t *testing.T) {
	doc, err := Parse([]byte(sampleOBO))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Ontology != "go" || doc.DataVersion != "releases/2024-06-17" {
		t.Fatalf("unexpected header: %q %q", doc.Ontology, doc.DataVersion)
	}
	if len(doc.Terms) != 2 {
		t.Fatalf("expected 2 terms, got %d", len(doc.Terms))
	}

	nucleus := doc.Terms[0]
	if nucleus.ID != "GO:0005634" || nucleus.Name != "nucleus" {
		t.Fatalf("unexpected term: %+v", nucleus)
	}
	want := map[string][]string{
		"is_a":    {"GO:0043231"},
		"part_of": {"GO:0005622"},
	}
	if !reflect.DeepEqual(nucleus.Relations, want) {
		t.Fatalf("expected relations %v, got %v", want, nucleus.Relations)
	}
	if !doc.Terms[1].Obsolete {
		t.Fatalf("expected second term to be obsolete")
	}
}

func TestParseEntries(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "list form",
			content: `[{"id": "0000001", "name": "experimental factor", "relations": {"is_a": ["0000002"]}, "xrefs": [{"namespace": "MESH", "id": "D000001"}]}]`,
		},
		{
			name:    "object form",
			content: `{"0000001": {"name": "experimental factor", "relations": {"is_a": ["0000002"]}, "xrefs": [{"namespace": "MESH", "id": "D000001"}]}}`,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			doc, err := Parse([]byte(test.content))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(doc.Terms) != 1 {
				t.Fatalf("expected 1 term, got %d", len(doc.Terms))
			}
			term := doc.Terms[0]
			if term.ID != "0000001" || term.Name != "experimental factor" {
				t.Fatalf("unexpected term: %+v", term)
			}
			if !reflect.DeepEqual(term.Relations["is_a"], []string{"0000002"}) {
				t.Fatalf("unexpected relations: %v", term.Relations)
			}
			if !reflect.DeepEqual(term.Xrefs, []string{"MESH:D000001"}) {
				t.Fatalf("unexpected xrefs: %v", term.Xrefs)
			}
		})
	}
}

func TestSplitXref(t *testing.T) {
	tests := []struct {
		input  string
		ns, id string
		ok     bool
	}{
		{input: "MESH:D000001", ns: "MESH", id: "D000001", ok: true},
		{input: `MEDDRA:10050185 "Palmoplantar pustulosis"`, ns: "MEDDRA", id: "10050185", ok: true},
		{input: "PERSON: James Malone", ns: "PERSON", id: "James", ok: true},
		{input: "no-namespace", ok: false},
	}

	for _, test := range tests {
		ns, id, ok := SplitXref(test.input)
		if ns != test.ns || id != test.id || ok != test.ok {
			t.Fatalf("SplitXref(%q) = %q %q %v", test.input, ns, id, ok)
		}
	}
}
