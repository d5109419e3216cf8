package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/OFFIS-RIT/biokiwi/backend/pkg/common"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/ontology"

	"github.com/spf13/cobra"
)

func (a *app) buildCommand() *cobra.Command {
	var snapshot string

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build or load the graph and print its size",
		Long: `Build the ontology graph from the manifest, or load it from the cache
when an entry for the manifest version exists.

Examples:
  ontology build
  ontology build --cache none --snapshot graph.msgpack`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			onto, err := a.loadOntology(cmd.Context())
			if err != nil {
				return err
			}
			defer onto.Close()

			if snapshot != "" {
				f, err := os.Create(snapshot)
				if err != nil {
					return err
				}
				if err := onto.Graph.WriteSnapshot(f, onto.Version); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
			}

			out := struct {
				Version     string                        `json:"version"`
				Nodes       int                           `json:"nodes"`
				Edges       int                           `json:"edges"`
				Diagnostics map[common.DiagnosticKind]int `json:"diagnostics"`
			}{onto.Version, onto.Graph.NodeCount(), onto.Graph.EdgeCount(), onto.Diagnostics.Summary()}

			return a.print(cmd.OutOrStdout(), out, func(w io.Writer) error {
				fmt.Fprintf(w, "version %s: %d nodes, %d edges\n", out.Version, out.Nodes, out.Edges)
				for kind, n := range out.Diagnostics {
					fmt.Fprintf(w, "  %s: %d\n", kind, n)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&snapshot, "snapshot", "", "also write the msgpack snapshot to this file")
	return cmd
}

func (a *app) pathCommand(use, short string, rels common.RelationSet) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <from> <to>",
		Short: short,
		Long: short + `.

Entities are given as NAMESPACE:ID labels. Prints true or false.

Examples:
  ontology ` + use + ` HGNC:1097 FPLX:RAF
  ontology ` + use + ` GO:GO:0005634 GO:GO:0043226`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ns1, id1, err := parseLabel(args[0])
			if err != nil {
				return err
			}
			ns2, id2, err := parseLabel(args[1])
			if err != nil {
				return err
			}

			onto, err := a.loadOntology(cmd.Context())
			if err != nil {
				return err
			}
			defer onto.Close()

			found := onto.Graph.Reachable(ns1, id1, ns2, id2, rels)
			return a.print(cmd.OutOrStdout(), map[string]bool{"result": found}, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, found)
				return err
			})
		},
	}
}

func (a *app) mapToCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "map-to <entity> <namespace>",
		Short: "Map an entity to its single direct xref in another namespace",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ns, id, err := parseLabel(args[0])
			if err != nil {
				return err
			}
			onto, err := a.loadOntology(cmd.Context())
			if err != nil {
				return err
			}
			defer onto.Close()

			target, ok := onto.Graph.MapTo(ns, id, args[1])
			if !ok {
				return fmt.Errorf("no unique %s mapping for %s", args[1], args[0])
			}
			return a.print(cmd.OutOrStdout(), map[string]string{"id": target}, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, common.Label(args[1], target))
				return err
			})
		},
	}
}

type graphList func(g *ontology.Graph, ns, id string) []string

func graphMappings(g *ontology.Graph, ns, id string) []string { return g.GetMappings(ns, id) }
func graphParents(g *ontology.Graph, ns, id string) []string  { return g.GetParents(ns, id) }
func graphChildren(g *ontology.Graph, ns, id string) []string { return g.GetChildren(ns, id) }
func graphTopLevel(g *ontology.Graph, ns, id string) []string { return g.TopLevelAncestors(ns, id) }

func (a *app) listCommand(use, short string, list graphList) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <entity>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ns, id, err := parseLabel(args[0])
			if err != nil {
				return err
			}
			onto, err := a.loadOntology(cmd.Context())
			if err != nil {
				return err
			}
			defer onto.Close()

			labels := list(onto.Graph, ns, id)
			if labels == nil {
				labels = []string{}
			}
			return a.print(cmd.OutOrStdout(), labels, func(w io.Writer) error {
				if len(labels) == 0 {
					return nil
				}
				_, err := fmt.Fprintln(w, strings.Join(labels, "\n"))
				return err
			})
		},
	}
}

func (a *app) nameCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "name <entity>",
		Short: "Print the standard name of an entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ns, id, err := parseLabel(args[0])
			if err != nil {
				return err
			}
			onto, err := a.loadOntology(cmd.Context())
			if err != nil {
				return err
			}
			defer onto.Close()

			name, ok := onto.Graph.GetName(ns, id)
			if !ok {
				return fmt.Errorf("no name for %s", args[0])
			}
			return a.print(cmd.OutOrStdout(), map[string]string{"name": name}, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, name)
				return err
			})
		},
	}
}

func (a *app) idCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "id <namespace> <name>",
		Short: "Resolve a name to an identifier within a namespace",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			onto, err := a.loadOntology(cmd.Context())
			if err != nil {
				return err
			}
			defer onto.Close()

			id, ok := onto.Graph.GetIDFromName(args[0], args[1])
			if !ok {
				return fmt.Errorf("no %s entry named %q", args[0], args[1])
			}
			return a.print(cmd.OutOrStdout(), map[string]string{"id": id}, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, common.Label(args[0], id))
				return err
			})
		},
	}
}
