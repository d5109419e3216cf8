package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/OFFIS-RIT/biokiwi/backend/internal/bootstrap"
	"github.com/OFFIS-RIT/biokiwi/backend/internal/config"
	"github.com/OFFIS-RIT/biokiwi/backend/internal/storage"
	"github.com/OFFIS-RIT/biokiwi/backend/internal/util"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/common"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/logger"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/logger/console"

	"github.com/spf13/cobra"
)

type app struct {
	manifest  string
	resources string
	cache     string
	debug     bool
	jsonOut   bool

	cfg *config.Config
}

// NewRootCommand creates the command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "ontology",
		Short:         "Query the entity ontology and preassemble statements",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			util.LoadEnv()
			logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{
				Debug:  a.debug || util.GetEnvBool("DEBUG", false),
				Prefix: "ontology",
				Output: cmd.ErrOrStderr(),
			}))
			return a.loadConfig()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.manifest, "manifest", "m", "", "ontology manifest path (overrides ONTOLOGY_MANIFEST)")
	flags.StringVar(&a.resources, "resources", "", "resource directory (overrides ONTOLOGY_RESOURCE_DIR)")
	flags.StringVar(&a.cache, "cache", "", "cache backend: none, file, s3 or badger")
	flags.BoolVar(&a.debug, "debug", false, "enable debug logging")
	flags.BoolVar(&a.jsonOut, "json", false, "print results as JSON")

	root.AddCommand(
		a.buildCommand(),
		a.pathCommand("isa", "Check an isa path between two entities", common.RelationIsa),
		a.pathCommand("partof", "Check a partof path between two entities", common.RelationPartOf),
		a.pathCommand("isa-or-partof", "Check a path over isa and partof edges", common.Hierarchy),
		a.pathCommand("maps-to", "Check an xref path between two entities", common.RelationXref),
		a.mapToCommand(),
		a.listCommand("mappings", "List the xref closure of an entity", graphMappings),
		a.listCommand("parents", "List the isa and partof ancestors of an entity", graphParents),
		a.listCommand("children", "List the isa and partof descendants of an entity", graphChildren),
		a.listCommand("top-level", "List the root ancestors of an entity", graphTopLevel),
		a.nameCommand(),
		a.idCommand(),
		a.preassembleCommand(),
	)
	return root
}

// Execute runs the CLI.
func Execute() error {
	return NewRootCommand().Execute()
}

func (a *app) loadConfig() error {
	cfg, err := config.Load(false)
	if err != nil {
		return err
	}
	if a.manifest != "" {
		cfg.Manifest = a.manifest
	}
	if a.resources != "" {
		cfg.ResourceDir = a.resources
	}
	if a.cache != "" {
		cfg.CacheBackend = a.cache
	}
	if err := cfg.Validate(false); err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

// loadOntology loads the graph for the current configuration. The CLI never
// takes the database lock.
func (a *app) loadOntology(ctx context.Context) (*bootstrap.Ontology, error) {
	deps := bootstrap.Deps{}
	if a.cfg.AWS.Enabled() && (a.cfg.CacheBackend == config.CacheS3 || a.cfg.ResourceBackend == config.ResourcesS3) {
		client, err := storage.NewS3Client(ctx, a.cfg.AWS)
		if err != nil {
			return nil, err
		}
		deps.S3 = client
	}
	return bootstrap.LoadOntology(ctx, a.cfg, deps)
}

func (a *app) print(w io.Writer, v any, text func(w io.Writer) error) error {
	if !a.jsonOut {
		return text(w)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseLabel(label string) (ns, id string, err error) {
	ns, id, ok := common.SplitLabel(label)
	if !ok {
		return "", "", fmt.Errorf("invalid entity %q, expected NAMESPACE:ID", label)
	}
	return ns, id, nil
}
