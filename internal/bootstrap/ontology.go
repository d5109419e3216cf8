// Package bootstrap wires configuration into a ready ontology graph.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/biokiwi/backend/internal/config"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/cache"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/common"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/leaselock"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/loader"
	ioloader "github.com/OFFIS-RIT/biokiwi/backend/pkg/loader/io"
	s3loader "github.com/OFFIS-RIT/biokiwi/backend/pkg/loader/s3"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/loader/vocab"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/logger"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/ontology"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Deps are the optional clients the ontology setup can use. A nil S3 client
// rules out the s3 backends, a nil pool disables the cross-process lock.
type Deps struct {
	S3   *s3.Client
	Pool *pgxpool.Pool
}

// Ontology is a loaded graph together with the resources backing it.
type Ontology struct {
	Graph       *ontology.Graph
	Version     string
	Diagnostics *common.Diagnostics

	closers []func() error
}

// Close releases the cache store.
func (o *Ontology) Close() error {
	var firstErr error
	for _, c := range o.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ResourceReader returns the reader for the configured resource backend.
func ResourceReader(cfg *config.Config, deps Deps) (loader.ResourceReader, error) {
	switch cfg.ResourceBackend {
	case config.ResourcesS3:
		if deps.S3 == nil {
			return nil, fmt.Errorf("s3 resources need an s3 client")
		}
		return s3loader.NewS3ResourceReaderWithClient(cfg.AWS.Bucket, cfg.ResourcePrefix, deps.S3), nil
	default:
		return ioloader.NewIOResourceReader(cfg.ResourceDir), nil
	}
}

// ReadManifest loads the manifest through the resource reader.
func ReadManifest(ctx context.Context, cfg *config.Config, reader loader.ResourceReader) (*vocab.Manifest, error) {
	file := loader.NewResourceFile(loader.NewResourceFileParams{Path: cfg.Manifest, Reader: reader})
	content, err := file.GetContent(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", cfg.Manifest, err)
	}
	return vocab.ParseManifest(content)
}

// BuildFunc returns the build step of a manifest.
func BuildFunc(cfg *config.Config, m *vocab.Manifest, reader loader.ResourceReader) (cache.BuildFunc, error) {
	loaders, err := vocab.FromManifest(m, reader)
	if err != nil {
		return nil, err
	}
	builder := ontology.NewBuilder(ontology.NewBuilderParams{
		Loaders:               loaders,
		Parallel:              cfg.BuildParallel,
		PreserveXrefDirection: cfg.PreserveXrefDirs,
	})
	return builder.Build, nil
}

// NewCache creates the cache for the configured backend. It returns nil for
// CacheNone.
func NewCache(cfg *config.Config, deps Deps) (*cache.Cache, func() error, error) {
	var (
		store      cache.BlobStore
		closeStore = func() error { return nil }
	)
	switch cfg.CacheBackend {
	case config.CacheNone:
		return nil, closeStore, nil
	case config.CacheFile:
		store = cache.NewFileStore(cfg.CacheDir)
	case config.CacheS3:
		if deps.S3 == nil {
			return nil, nil, fmt.Errorf("s3 cache needs an s3 client")
		}
		store = cache.NewS3Store(deps.S3, cfg.AWS.Bucket, cfg.CachePrefix)
	case config.CacheBadger:
		bs, err := cache.NewBadgerStore(cache.BadgerStoreOptions{Dir: cfg.CacheDir})
		if err != nil {
			return nil, nil, err
		}
		store, closeStore = bs, bs.Close
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}

	var locker cache.Locker
	if deps.Pool != nil {
		locker = cache.NewLeaseLocker(leaselock.New(deps.Pool), leaselock.Options{
			TTL:         cfg.LockTTL,
			Wait:        true,
			TokenPrefix: "ontology-build",
		})
	}
	return cache.NewCache(cache.NewCacheParams{Store: store, Locker: locker}), closeStore, nil
}

// LoadOntology reads the manifest and returns the cached graph of its version,
// building it on a miss.
func LoadOntology(ctx context.Context, cfg *config.Config, deps Deps) (*Ontology, error) {
	start := time.Now()

	reader, err := ResourceReader(cfg, deps)
	if err != nil {
		return nil, err
	}
	m, err := ReadManifest(ctx, cfg, reader)
	if err != nil {
		return nil, err
	}
	build, err := BuildFunc(cfg, m, reader)
	if err != nil {
		return nil, err
	}

	c, closeStore, err := NewCache(cfg, deps)
	if err != nil {
		return nil, err
	}

	var (
		g     *ontology.Graph
		diags *common.Diagnostics
	)
	if c == nil {
		g, diags, err = build(ctx)
	} else {
		g, diags, err = c.LoadOrBuild(ctx, m.Version, build)
	}
	if err != nil {
		closeStore()
		return nil, err
	}

	logger.Info("[Ontology] Graph ready",
		"version", m.Version,
		"cache", cfg.CacheBackend,
		"nodes", g.NodeCount(),
		"duration", time.Since(start).Round(time.Millisecond),
		"diagnostics", diags.Len(),
	)
	return &Ontology{
		Graph:       g,
		Version:     m.Version,
		Diagnostics: diags,
		closers:     []func() error{closeStore},
	}, nil
}
