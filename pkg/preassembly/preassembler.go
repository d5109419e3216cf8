// Package preassembly deduplicates mechanism statements and links them into
// a refinement partial order using an ontology graph.
package preassembly

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/OFFIS-RIT/biokiwi/backend/pkg/common"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/logger"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/ontology"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/statements"
)

// Preassembler runs deduplication and refinement over statement batches.
// It only reads its ontology and may be shared between goroutines.
type Preassembler struct {
	ontology    *ontology.Graph
	order       []string
	parallel    int
	standardize bool
}

// NewPreassemblerParams configures a Preassembler. A nil Ontology behaves
// as an empty one, so only identical entities match. NamespaceOrder
// defaults to common.DefaultNamespaceOrder and Parallel to the number of
// CPUs.
type NewPreassemblerParams struct {
	Ontology       *ontology.Graph
	NamespaceOrder []string
	Parallel       int
	// Standardize completes agent groundings through the ontology before
	// deduplication.
	Standardize bool
}

func NewPreassembler(params NewPreassemblerParams) *Preassembler {
	onto := params.Ontology
	if onto == nil {
		onto = ontology.Empty()
	}
	order := params.NamespaceOrder
	if len(order) == 0 {
		order = common.DefaultNamespaceOrder
	}
	parallel := params.Parallel
	if parallel <= 0 {
		parallel = runtime.NumCPU()
	}
	return &Preassembler{
		ontology:    onto,
		order:       order,
		parallel:    parallel,
		standardize: params.Standardize,
	}
}

// MatchKey returns the match key of stmt under the preassembler's
// namespace order.
func (p *Preassembler) MatchKey(stmt statements.Statement) string {
	return MatchKey(stmt, p.order)
}

// Result is the outcome of a preassembly run.
type Result struct {
	Groups         []*Group
	Refinements    *RefinementGraph
	Contradictions []Contradiction
	Diagnostics    *common.Diagnostics
}

// TopLevel returns the representatives of the most specific groups.
func (r *Result) TopLevel() []statements.Statement {
	return Flatten(r.Refinements.TopLevel())
}

// Run validates, optionally standardizes, deduplicates and links stmts.
// Invalid statements are skipped and reported in the diagnostics. The
// input statements are never modified.
func (p *Preassembler) Run(ctx context.Context, stmts []statements.Statement) (*Result, error) {
	diags := common.NewDiagnostics()
	statementsProcessed.Add(float64(len(stmts)))

	valid := make([]statements.Statement, 0, len(stmts))
	for i, stmt := range stmts {
		if err := statements.Validate(stmt); err != nil {
			source := fmt.Sprintf("statement %d", i)
			if stmt != nil {
				source = stmt.Metadata().ID
			}
			diags.Addf(common.DiagInvalidStatement, source, "%v", err)
			statementsRejected.Inc()
			continue
		}
		valid = append(valid, stmt)
	}

	if p.standardize {
		start := time.Now()
		for i, stmt := range valid {
			valid[i] = stmt.Clone()
		}
		p.StandardizeAgents(valid)
		runDuration.WithLabelValues("standardize").Observe(time.Since(start).Seconds())
	}

	start := time.Now()
	groups, err := p.Dedupe(ctx, valid)
	if err != nil {
		return nil, fmt.Errorf("dedupe: %w", err)
	}
	runDuration.WithLabelValues("dedupe").Observe(time.Since(start).Seconds())
	groupsCreated.Add(float64(len(groups)))

	start = time.Now()
	refinements, err := p.Link(ctx, groups, diags)
	if err != nil {
		return nil, fmt.Errorf("link: %w", err)
	}
	refinements.Apply()
	runDuration.WithLabelValues("link").Observe(time.Since(start).Seconds())
	refinementsFound.Add(float64(len(refinements.Edges())))

	start = time.Now()
	contradictions, err := p.FindContradicts(ctx, groups)
	if err != nil {
		return nil, fmt.Errorf("contradicts: %w", err)
	}
	runDuration.WithLabelValues("contradicts").Observe(time.Since(start).Seconds())

	logger.Info("[Preassembly] Run finished",
		"statements", len(stmts),
		"invalid", len(stmts)-len(valid),
		"groups", len(groups),
		"top_level", len(refinements.TopLevel()),
		"contradictions", len(contradictions),
		"diagnostics", diags.Len(),
	)
	return &Result{
		Groups:         groups,
		Refinements:    refinements,
		Contradictions: contradictions,
		Diagnostics:    diags,
	}, nil
}
