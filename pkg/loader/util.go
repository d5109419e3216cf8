package loader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// CacheKey identifies the content of a resource file for reader caches.
func CacheKey(file ResourceFile) string {
	return file.ID + ":" + file.Path
}

var gzipMagic = []byte{0x1f, 0x8b}

func maybeDecompress(path string, content []byte) ([]byte, error) {
	if !strings.HasSuffix(path, ".gz") || !bytes.HasPrefix(content, gzipMagic) {
		return content, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open gzip resource %s: %w", path, err)
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("read gzip resource %s: %w", path, err)
	}
	return out, nil
}

// StaticReader serves resource content from memory. It backs built-in
// vocabularies and tests.
type StaticReader map[string][]byte

func (r StaticReader) GetFileContent(_ context.Context, file ResourceFile) ([]byte, error) {
	content, ok := r[file.Path]
	if !ok {
		return nil, fmt.Errorf("resource %s not found", file.Path)
	}
	return content, nil
}
