package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/OFFIS-RIT/biokiwi/backend/internal/config"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/cache"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/statements"
)

const manifest = `version: "test-1"
sources:
  - kind: activities
  - kind: modifications
`

func testConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "manifest.yaml"), []byte(manifest), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return &config.Config{
		Manifest:        "manifest.yaml",
		ResourceBackend: config.ResourcesFile,
		ResourceDir:     dir,
		CacheBackend:    backend,
		CacheDir:        filepath.Join(dir, "cache"),
		BuildParallel:   2,
	}
}

func TestLoadOntologyFileCache(t *testing.T) {
	cfg := testConfig(t, config.CacheFile)

	first, err := LoadOntology(context.Background(), cfg, Deps{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	defer first.Close()
	if first.Version != "test-1" {
		t.Fatalf("unexpected version %q", first.Version)
	}
	if !first.Graph.Has(statements.NSActivities, "kinase") || !first.Graph.Has(statements.NSModifications, "phosphorylation") {
		t.Fatalf("builtin vocabularies missing")
	}

	key := cache.NewCache(cache.NewCacheParams{}).Key("test-1")
	if _, err := os.Stat(filepath.Join(cfg.CacheDir, key)); err != nil {
		t.Fatalf("expected a cache entry: %v", err)
	}

	second, err := LoadOntology(context.Background(), cfg, Deps{})
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	defer second.Close()
	if second.Graph.NodeCount() != first.Graph.NodeCount() || second.Graph.EdgeCount() != first.Graph.EdgeCount() {
		t.Fatalf("cached graph differs: %d/%d nodes", second.Graph.NodeCount(), first.Graph.NodeCount())
	}
}

func TestLoadOntologyBackends(t *testing.T) {
	for _, backend := range []string{config.CacheNone, config.CacheBadger} {
		t.Run(backend, func(t *testing.T) {
			cfg := testConfig(t, backend)
			o, err := LoadOntology(context.Background(), cfg, Deps{})
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if !o.Graph.Isa(statements.NSActivities, "kinase", statements.NSActivities, "activity") {
				t.Fatalf("expected kinase isa activity")
			}
			if err := o.Close(); err != nil {
				t.Fatalf("close: %v", err)
			}
		})
	}
}

func TestLoadOntologyErrors(t *testing.T) {
	tests := []struct {
		name string
		edit func(c *config.Config)
	}{
		{name: "missing manifest", edit: func(c *config.Config) { c.Manifest = "absent.yaml" }},
		{name: "s3 cache without client", edit: func(c *config.Config) { c.CacheBackend = config.CacheS3 }},
		{name: "s3 resources without client", edit: func(c *config.Config) { c.ResourceBackend = config.ResourcesS3 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t, config.CacheNone)
			tt.edit(cfg)
			if _, err := LoadOntology(context.Background(), cfg, Deps{}); err == nil {
				t.Fatalf("expected an error")
			}
		})
	}
}
