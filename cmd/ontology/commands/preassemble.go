package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/OFFIS-RIT/biokiwi/backend/pkg/ontology"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/preassembly"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/statements"

	"github.com/spf13/cobra"
)

func (a *app) preassembleCommand() *cobra.Command {
	var (
		standardize bool
		workers     int
		noOntology  bool
		topLevel    bool
		flatten     string
	)

	cmd := &cobra.Command{
		Use:   "preassemble <file>",
		Short: "Deduplicate and link a JSON statement list",
		Long: `Read a JSON list of statements, merge duplicates, find refinements and
contradictions, and print the report as JSON. Use "-" to read stdin.

With --top-level only the most specific statements are printed, as a
statement list with supports and supported_by filled in.

With --flatten every top level statement also carries the evidence of the
statements it refines (--flatten=supports collects from the statements
refining it instead). Collected evidence is annotated with support_type.

Examples:
  ontology preassemble statements.json
  cat statements.json | ontology preassemble --standardize -
  ontology preassemble --top-level --flatten statements.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("failed to read statements: %w", err)
			}
			stmts, err := statements.UnmarshalList(data)
			if err != nil {
				return err
			}

			graph := ontology.Empty()
			if !noOntology {
				onto, err := a.loadOntology(cmd.Context())
				if err != nil {
					return err
				}
				defer onto.Close()
				graph = onto.Graph
			}

			p := preassembly.NewPreassembler(preassembly.NewPreassemblerParams{
				Ontology:       graph,
				NamespaceOrder: a.cfg.NamespaceOrder,
				Parallel:       workers,
				Standardize:    standardize || a.cfg.Standardize,
			})
			res, err := p.Run(cmd.Context(), stmts)
			if err != nil {
				return err
			}

			if topLevel {
				top := res.TopLevel()
				if flatten != "" {
					if top, err = res.FlattenedTopLevel(preassembly.SupportType(flatten)); err != nil {
						return err
					}
				}
				out, err := statements.MarshalList(top)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return err
			}

			report := res.Report()
			if flatten != "" {
				if report, err = res.FlattenedReport(preassembly.SupportType(flatten)); err != nil {
					return err
				}
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}

	cmd.Flags().BoolVar(&standardize, "standardize", false, "standardize agent groundings and names first")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "parallel workers (default: number of CPUs)")
	cmd.Flags().BoolVar(&noOntology, "no-ontology", false, "skip loading the ontology, only exact matches refine")
	cmd.Flags().BoolVar(&topLevel, "top-level", false, "print only the top level statements")
	cmd.Flags().StringVar(&flatten, "flatten", "", "flatten evidence from supported_by or supports")
	cmd.Flags().Lookup("flatten").NoOptDefVal = string(preassembly.SupportSupportedBy)
	return cmd
}
