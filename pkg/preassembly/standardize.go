package preassembly

import (
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/statements"
)

// StandardizeAgents completes the groundings of every agent in stmts with
// their ontology cross references and renames agents to the standard name
// of their prioritized grounding. Bound partners are standardized too.
// Statements are modified in place.
func (p *Preassembler) StandardizeAgents(stmts []statements.Statement) {
	for _, stmt := range stmts {
		for _, a := range stmt.Agents() {
			p.standardizeAgent(a)
		}
	}
}

func (p *Preassembler) standardizeAgent(a *statements.Agent) {
	if a == nil {
		return
	}
	if len(a.DBRefs) > 0 {
		a.DBRefs = p.ontology.StandardizeRefs(a.DBRefs, p.order)
		if name, ok := p.ontology.StandardName(a.DBRefs, p.order); ok {
			a.Name = name
		}
	}
	for _, bc := range a.BoundConditions {
		p.standardizeAgent(bc.Agent)
	}
}
