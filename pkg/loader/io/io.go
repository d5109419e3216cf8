package io

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/OFFIS-RIT/biokiwi/backend/pkg/loader"

	"golang.org/x/sync/singleflight"
)

// IOResourceReader loads resource files directly from the local filesystem
// with caching. Relative paths are resolved against BaseDir.
type IOResourceReader struct {
	baseDir string

	cache   map[string][]byte
	cacheMu sync.RWMutex
	group   singleflight.Group
}

// NewIOResourceReader creates a new filesystem-based resource reader.
func NewIOResourceReader(baseDir string) *IOResourceReader {
	return &IOResourceReader{
		baseDir: baseDir,
		cache:   make(map[string][]byte),
	}
}

func (l *IOResourceReader) resolve(path string) string {
	if l.baseDir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(l.baseDir, path)
}

// GetFileContent reads the file content from the filesystem. Results are cached.
func (l *IOResourceReader) GetFileContent(ctx context.Context, file loader.ResourceFile) ([]byte, error) {
	key := loader.CacheKey(file)

	l.cacheMu.RLock()
	if cached, ok := l.cache[key]; ok {
		l.cacheMu.RUnlock()
		return cached, nil
	}
	l.cacheMu.RUnlock()

	result, err, _ := l.group.Do(key, func() (any, error) {
		l.cacheMu.RLock()
		if cached, ok := l.cache[key]; ok {
			l.cacheMu.RUnlock()
			return cached, nil
		}
		l.cacheMu.RUnlock()

		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, err := os.ReadFile(l.resolve(file.Path))
		if err != nil {
			return nil, err
		}

		l.cacheMu.Lock()
		l.cache[key] = result
		l.cacheMu.Unlock()

		return result, nil
	})
	if err != nil {
		return nil, err
	}

	return result.([]byte), nil
}

// Forget drops all cached content. Resource files are usually read once per
// build, so long-running processes call this after the ontology is built.
func (l *IOResourceReader) Forget() {
	l.cacheMu.Lock()
	l.cache = make(map[string][]byte)
	l.cacheMu.Unlock()
}
