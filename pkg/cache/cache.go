// Package cache persists built ontology graphs so a process can start from a
// snapshot instead of re-reading every vocabulary.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/OFFIS-RIT/biokiwi/backend/pkg/common"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/logger"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/ontology"

	"golang.org/x/sync/singleflight"
)

var (
	ErrNotFound        = errors.New("cache entry not found")
	ErrVersionMismatch = errors.New("cache entry has another version")
)

// BlobStore holds encoded snapshots by key. Get returns ErrNotFound for a
// missing key.
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
}

// Locker serializes builds of the same key across processes.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// BuildFunc builds the graph on a cache miss.
type BuildFunc func(ctx context.Context) (*ontology.Graph, *common.Diagnostics, error)

type Cache struct {
	store  BlobStore
	locker Locker
	name   string

	group singleflight.Group
}

type NewCacheParams struct {
	Store  BlobStore
	Locker Locker
	// Name prefixes every key, defaults to "ontology".
	Name string
}

func NewCache(params NewCacheParams) *Cache {
	name := params.Name
	if name == "" {
		name = "ontology"
	}
	return &Cache{
		store:  params.Store,
		locker: params.Locker,
		name:   name,
	}
}

type outcome struct {
	graph *ontology.Graph
	diags *common.Diagnostics
}

// Key returns the blob key for a version.
func (c *Cache) Key(version string) string {
	return c.name + "-" + sanitizeKey(version) + ".msgpack.zst"
}

// LoadOrBuild returns the cached graph for version or builds and persists it.
// Unreadable, stale or corrupt entries count as a miss and are reported in
// the diagnostics; only a failing build is an error. Concurrent callers in
// one process share a single load or build; cancelling ctx only stops
// waiting for it.
func (c *Cache) LoadOrBuild(ctx context.Context, version string, build BuildFunc) (*ontology.Graph, *common.Diagnostics, error) {
	if version == "" {
		return nil, nil, errors.New("cache version is empty")
	}
	key := c.Key(version)

	ch := c.group.DoChan(key, func() (any, error) {
		return c.loadOrBuild(context.WithoutCancel(ctx), key, version, build)
	})
	var r singleflight.Result
	select {
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	case r = <-ch:
	}
	if r.Err != nil {
		return nil, nil, r.Err
	}

	res := r.Val.(*outcome)
	diags := common.NewDiagnostics()
	diags.Merge(res.diags)
	return res.graph, diags, nil
}

func (c *Cache) loadOrBuild(ctx context.Context, key, version string, build BuildFunc) (*outcome, error) {
	diags := common.NewDiagnostics()

	if g, ok := c.load(ctx, key, version, diags); ok {
		return &outcome{graph: g, diags: diags}, nil
	}

	if c.locker != nil {
		unlock, err := c.locker.Lock(ctx, key)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			logger.Warn("[Cache] Failed to acquire build lock", "key", key, "err", err)
			diags.Addf(common.DiagCacheError, key, "acquire build lock: %v", err)
		} else {
			defer unlock()
			// another process may have finished the build while we waited
			if g, ok := c.load(ctx, key, version, diags); ok {
				return &outcome{graph: g, diags: diags}, nil
			}
		}
	}

	logger.Info("[Cache] Building ontology", "key", key)
	g, buildDiags, err := build(ctx)
	if err != nil {
		return nil, fmt.Errorf("build ontology: %w", err)
	}
	diags.Merge(buildDiags)

	c.persist(ctx, key, version, g, diags)
	return &outcome{graph: g, diags: diags}, nil
}

func (c *Cache) load(ctx context.Context, key, version string, diags *common.Diagnostics) (*ontology.Graph, bool) {
	if c.store == nil {
		return nil, false
	}

	data, err := c.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			logger.Debug("[Cache] Cache miss", "key", key)
		} else {
			logger.Warn("[Cache] Failed to read cache entry", "key", key, "err", err)
			diags.Addf(common.DiagCacheError, key, "read: %v", err)
		}
		return nil, false
	}

	g, err := Decode(data, version)
	if err != nil {
		logger.Warn("[Cache] Discarding cache entry", "key", key, "err", err)
		diags.Addf(common.DiagCacheError, key, "decode: %v", err)
		return nil, false
	}

	logger.Info("[Cache] Loaded ontology from cache", "key", key, "nodes", g.NodeCount(), "edges", g.EdgeCount())
	return g, true
}

func (c *Cache) persist(ctx context.Context, key, version string, g *ontology.Graph, diags *common.Diagnostics) {
	if c.store == nil {
		return
	}

	data, err := Encode(g, version)
	if err == nil {
		err = c.store.Put(ctx, key, data)
	}
	if err != nil {
		logger.Warn("[Cache] Failed to persist ontology", "key", key, "err", err)
		diags.Addf(common.DiagCacheError, key, "write: %v", err)
		return
	}
	logger.Info("[Cache] Persisted ontology", "key", key, "bytes", len(data))
}

func sanitizeKey(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
}
