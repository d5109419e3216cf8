package cache

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/OFFIS-RIT/biokiwi/backend/pkg/ontology"

	"github.com/klauspost/compress/zstd"
)

var encoderOptions = []zstd.EOption{zstd.WithEncoderLevel(zstd.SpeedDefault)}

// Encode writes the msgpack snapshot of g compressed with zstd.
func Encode(g *ontology.Graph, version string) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf, encoderOptions...)
	if err != nil {
		return nil, fmt.Errorf("create zstd writer: %w", err)
	}
	if err := g.WriteSnapshot(zw, version); err != nil {
		zw.Close()
		return nil, fmt.Errorf("write snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode restores a graph written by Encode. A snapshot of another version
// yields ErrVersionMismatch.
func Decode(data []byte, version string) (*ontology.Graph, error) {
	zr, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decompress snapshot: %w", err)
	}
	defer zr.Close()

	g, err := ontology.ReadSnapshot(zr, version)
	if errors.Is(err, ontology.ErrSnapshotVersion) {
		return nil, fmt.Errorf("%w: %v", ErrVersionMismatch, err)
	}
	return g, err
}
