package common

import (
	"fmt"
	"sync"
)

// DiagnosticKind classifies a data-quality problem found while building the
// ontology or assembling statements.
type DiagnosticKind string

const (
	DiagMalformedRow        DiagnosticKind = "malformed_row"
	DiagUnknownRelation     DiagnosticKind = "unknown_relation"
	DiagUnresolvedReference DiagnosticKind = "unresolved_reference"
	DiagOneDirectionalXref  DiagnosticKind = "one_directional_xref"
	DiagLoaderFailed        DiagnosticKind = "loader_failed"
	DiagCacheError          DiagnosticKind = "cache_error"
	DiagRefinementCycle     DiagnosticKind = "refinement_cycle"
	DiagInvalidStatement    DiagnosticKind = "invalid_statement"
	DiagUnresolvedLocation  DiagnosticKind = "unresolved_location"
)

// Diagnostic is a single reportable anomaly. Source names the vocabulary,
// cache backend or statement batch the anomaly came from.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	Source  string         `json:"source,omitempty"`
	Message string         `json:"message"`
	Items   []string       `json:"items,omitempty"`
}

func (d Diagnostic) String() string {
	if d.Source == "" {
		return fmt.Sprintf("%s: %s", d.Kind, d.Message)
	}
	return fmt.Sprintf("%s [%s]: %s", d.Kind, d.Source, d.Message)
}

// Diagnostics accumulates anomalies next to a successful result. It is safe
// for concurrent use; a nil *Diagnostics discards everything.
type Diagnostics struct {
	mu      sync.Mutex
	entries []Diagnostic
}

func NewDiagnostics() *Diagnostics {
	return &Diagnostics{}
}

// Add records a diagnostic.
func (d *Diagnostics) Add(diag Diagnostic) {
	if d == nil {
		return
	}
	d.mu.Lock()
	d.entries = append(d.entries, diag)
	d.mu.Unlock()
}

// Addf records a diagnostic with a formatted message.
func (d *Diagnostics) Addf(kind DiagnosticKind, source string, format string, args ...any) {
	d.Add(Diagnostic{Kind: kind, Source: source, Message: fmt.Sprintf(format, args...)})
}

// Merge appends all entries of other.
func (d *Diagnostics) Merge(other *Diagnostics) {
	if d == nil || other == nil || d == other {
		return
	}
	entries := other.Entries()
	d.mu.Lock()
	d.entries = append(d.entries, entries...)
	d.mu.Unlock()
}

// Entries returns a copy of the recorded diagnostics in insertion order.
func (d *Diagnostics) Entries() []Diagnostic {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Diagnostic, len(d.entries))
	copy(out, d.entries)
	return out
}

// Len returns the number of recorded diagnostics.
func (d *Diagnostics) Len() int {
	if d == nil {
		return 0
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}

// Count returns the number of diagnostics of the given kind.
func (d *Diagnostics) Count(kind DiagnosticKind) int {
	n := 0
	for _, e := range d.Entries() {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// Summary counts diagnostics per kind.
func (d *Diagnostics) Summary() map[DiagnosticKind]int {
	out := make(map[DiagnosticKind]int)
	for _, e := range d.Entries() {
		out[e.Kind]++
	}
	return out
}

// KeyValues flattens the summary into logger key/value pairs.
func (d *Diagnostics) KeyValues() []any {
	summary := d.Summary()
	kv := make([]any, 0, len(summary)*2)
	for kind, n := range summary {
		kv = append(kv, string(kind), n)
	}
	return kv
}
