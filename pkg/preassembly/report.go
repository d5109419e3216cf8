package preassembly

import (
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/common"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/statements"
)

// Report is the serializable form of a Result.
type Report struct {
	Groups         []*Group                      `json:"groups"`
	TopLevel       []string                      `json:"top_level"`
	Refinements    []Refinement                  `json:"refinements"`
	Cycles         [][]string                    `json:"cycles,omitempty"`
	Contradictions [][2]string                   `json:"contradictions"`
	Diagnostics    []common.Diagnostic           `json:"diagnostics"`
	Summary        map[common.DiagnosticKind]int `json:"summary"`
	// Flattened holds the top level statements with flattened evidence,
	// only set by FlattenedReport.
	Flattened []statements.Statement `json:"flattened,omitempty"`
}

// Report lists groups, refinement edges and contradictions by match key.
func (r *Result) Report() *Report {
	rep := &Report{
		Groups:         r.Groups,
		TopLevel:       make([]string, 0),
		Refinements:    make([]Refinement, 0),
		Contradictions: make([][2]string, 0, len(r.Contradictions)),
		Diagnostics:    r.Diagnostics.Entries(),
		Summary:        r.Diagnostics.Summary(),
	}
	if r.Refinements != nil {
		for _, g := range r.Refinements.TopLevel() {
			rep.TopLevel = append(rep.TopLevel, g.Key)
		}
		rep.Refinements = append(rep.Refinements, r.Refinements.Edges()...)
		rep.Cycles = r.Refinements.Cycles()
	}
	for _, c := range r.Contradictions {
		rep.Contradictions = append(rep.Contradictions, [2]string{c.First.Key, c.Second.Key})
	}
	if rep.Diagnostics == nil {
		rep.Diagnostics = make([]common.Diagnostic, 0)
	}
	return rep
}

// FlattenedReport is Report plus the top level statements carrying the
// evidence flattened through collectFrom.
func (r *Result) FlattenedReport(collectFrom SupportType) (*Report, error) {
	rep := r.Report()
	if r.Refinements == nil {
		return rep, nil
	}
	flat, err := r.FlattenedTopLevel(collectFrom)
	if err != nil {
		return nil, err
	}
	rep.Flattened = flat
	return rep, nil
}
