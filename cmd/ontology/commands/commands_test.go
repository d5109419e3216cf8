package commands

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/OFFIS-RIT/biokiwi/backend/pkg/logger"
)

const manifest = `version: "cli-test"
sources:
  - kind: activities
  - kind: modifications
`

func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "manifest.yaml"), []byte(manifest), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	t.Setenv("ONTOLOGY_MANIFEST", "manifest.yaml")
	t.Setenv("ONTOLOGY_RESOURCE_DIR", dir)
	t.Setenv("ONTOLOGY_RESOURCES", "file")
	t.Setenv("ONTOLOGY_CACHE_BACKEND", "none")
	t.Cleanup(logger.Reset)
	return dir
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestGraphCommands(t *testing.T) {
	setup(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "isa", args: []string{"isa", "INDRA_ACTIVITIES:kinase", "INDRA_ACTIVITIES:activity"}, want: "true\n"},
		{name: "isa reversed", args: []string{"isa", "INDRA_ACTIVITIES:activity", "INDRA_ACTIVITIES:kinase"}, want: "false\n"},
		{name: "partof", args: []string{"partof", "INDRA_ACTIVITIES:kinase", "INDRA_ACTIVITIES:activity"}, want: "false\n"},
		{name: "unknown entity", args: []string{"isa-or-partof", "HGNC:1", "INDRA_ACTIVITIES:activity"}, want: "false\n"},
		{name: "parents", args: []string{"parents", "INDRA_ACTIVITIES:kinase"}, want: "INDRA_ACTIVITIES:activity\nINDRA_ACTIVITIES:catalytic\n"},
		{name: "top level", args: []string{"top-level", "INDRA_ACTIVITIES:kinase"}, want: "INDRA_ACTIVITIES:activity\n"},
		{name: "json", args: []string{"--json", "isa", "INDRA_ACTIVITIES:kinase", "INDRA_ACTIVITIES:catalytic"}, want: "{\n  \"result\": true\n}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := run(t, "", tt.args...)
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestGraphCommandErrors(t *testing.T) {
	setup(t)

	for _, args := range [][]string{
		{"isa", "kinase", "INDRA_ACTIVITIES:activity"},
		{"name", "HGNC:0"},
		{"map-to", "INDRA_ACTIVITIES:kinase", "HGNC"},
		{"--cache", "redis", "build"},
	} {
		if _, err := run(t, "", args...); err == nil {
			t.Fatalf("%v: expected an error", args)
		}
	}
}

func TestBuildSnapshot(t *testing.T) {
	dir := setup(t)
	snapshot := filepath.Join(dir, "graph.msgpack")

	out, err := run(t, "", "build", "--snapshot", snapshot)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !strings.HasPrefix(out, "version cli-test: ") {
		t.Fatalf("unexpected output %q", out)
	}
	if info, err := os.Stat(snapshot); err != nil || info.Size() == 0 {
		t.Fatalf("snapshot not written: %v", err)
	}
}

const cliStatements = `[
	{"type": "Phosphorylation", "id": "a", "enz": {"name": "BRAF", "db_refs": {"HGNC": "1097"}}, "sub": {"name": "MAP2K1", "db_refs": {"HGNC": "6840"}}},
	{"type": "Phosphorylation", "id": "b", "enz": {"name": "BRAF", "db_refs": {"HGNC": "1097"}}, "sub": {"name": "MAP2K1", "db_refs": {"HGNC": "6840"}}, "residue": "S", "position": "218"}
]`

func TestPreassemble(t *testing.T) {
	setup(t)

	out, err := run(t, cliStatements, "preassemble", "--no-ontology", "-")
	if err != nil {
		t.Fatalf("preassemble: %v", err)
	}
	var report struct {
		Groups      []json.RawMessage `json:"groups"`
		TopLevel    []string          `json:"top_level"`
		Refinements []struct {
			Specific string `json:"specific"`
			General  string `json:"general"`
		} `json:"refinements"`
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out)
	}
	if len(report.Groups) != 2 || len(report.TopLevel) != 1 || len(report.Refinements) != 1 {
		t.Fatalf("unexpected report %s", out)
	}
	if report.Refinements[0].Specific != report.TopLevel[0] {
		t.Fatalf("the site specific statement must be on top: %s", out)
	}
}

func TestPreassembleTopLevel(t *testing.T) {
	dir := setup(t)
	path := filepath.Join(dir, "statements.json")
	if err := os.WriteFile(path, []byte(cliStatements), 0o644); err != nil {
		t.Fatalf("write statements: %v", err)
	}

	out, err := run(t, "", "preassemble", "--top-level", path)
	if err != nil {
		t.Fatalf("preassemble: %v", err)
	}
	var stmts []struct {
		ID          string   `json:"id"`
		SupportedBy []string `json:"supported_by"`
	}
	if err := json.Unmarshal([]byte(out), &stmts); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(stmts) != 1 || stmts[0].ID != "b" || len(stmts[0].SupportedBy) != 1 || stmts[0].SupportedBy[0] != "a" {
		t.Fatalf("unexpected top level %s", out)
	}
}

const cliEvidenceStatements = `[
	{"type": "Phosphorylation", "id": "a", "enz": {"name": "BRAF"}, "sub": {"name": "MAP2K1"},
	 "evidence": [{"source_api": "reach", "text": "foo"}, {"source_api": "reach", "text": "bar"}]},
	{"type": "Phosphorylation", "id": "b", "enz": {"name": "BRAF"}, "sub": {"name": "MAP2K1"}, "residue": "S",
	 "evidence": [{"source_api": "reach", "text": "baz"}, {"source_api": "reach", "text": "bak"}]}
]`

func TestPreassembleFlatten(t *testing.T) {
	setup(t)

	type evidence struct {
		Text        string         `json:"text"`
		Annotations map[string]any `json:"annotations"`
	}
	type statement struct {
		ID       string     `json:"id"`
		Evidence []evidence `json:"evidence"`
	}

	out, err := run(t, cliEvidenceStatements, "preassemble", "--no-ontology", "--top-level", "--flatten", "-")
	if err != nil {
		t.Fatalf("preassemble: %v", err)
	}
	var stmts []statement
	if err := json.Unmarshal([]byte(out), &stmts); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(stmts) != 1 || stmts[0].ID != "b" || len(stmts[0].Evidence) != 4 {
		t.Fatalf("expected 4 pieces of evidence on b: %s", out)
	}
	support := make(map[string]any)
	for _, e := range stmts[0].Evidence {
		support[e.Text] = e.Annotations["support_type"]
	}
	want := map[string]any{"baz": "direct", "bak": "direct", "foo": "supported_by", "bar": "supported_by"}
	if !reflect.DeepEqual(support, want) {
		t.Fatalf("expected %v, got %v", want, support)
	}

	out, err = run(t, cliEvidenceStatements, "preassemble", "--no-ontology", "--flatten=supports", "-")
	if err != nil {
		t.Fatalf("preassemble: %v", err)
	}
	var report struct {
		Flattened []statement `json:"flattened"`
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	// nothing refines the top level statement
	if len(report.Flattened) != 1 || len(report.Flattened[0].Evidence) != 2 {
		t.Fatalf("unexpected flattened report %s", out)
	}

	if _, err := run(t, cliEvidenceStatements, "preassemble", "--no-ontology", "--flatten=sideways", "-"); err == nil {
		t.Fatalf("expected an invalid --flatten value to fail")
	}
}
