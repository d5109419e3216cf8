// Package main provides the ontology CLI.
//
// Usage:
//
//	ontology [flags] <command> [args]
//
// Commands:
//
//	build        - Build or load the graph and print its size
//	isa          - Check an isa path between two entities
//	partof       - Check a partof path
//	isa-or-partof - Check a path over isa and partof edges
//	maps-to      - Check an xref path
//	map-to       - Map an entity into another namespace
//	mappings     - List the xref closure of an entity
//	name         - Print the standard name of an entity
//	id           - Resolve a name to an identifier
//	parents      - List the ancestors of an entity
//	children     - List the descendants of an entity
//	top-level    - List the root ancestors of an entity
//	preassemble  - Deduplicate and link a JSON statement list
//
// Configuration is read from the environment (and .env), see internal/config.
package main

import (
	"fmt"
	"os"

	"github.com/OFFIS-RIT/biokiwi/backend/cmd/ontology/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
