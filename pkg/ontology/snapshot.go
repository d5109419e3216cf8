package ontology

import (
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/OFFIS-RIT/biokiwi/backend/pkg/common"
)

// SnapshotFormat is bumped whenever the snapshot layout changes.
const SnapshotFormat = 1

var (
	// ErrSnapshotFormat is returned for snapshots written by an incompatible
	// layout.
	ErrSnapshotFormat = errors.New("unsupported snapshot format")
	// ErrSnapshotVersion is returned when the snapshot was built from a
	// different resource version than requested.
	ErrSnapshotVersion = errors.New("snapshot version mismatch")
)

// Snapshot is the serialized form of a Graph. Edges reference nodes by their
// position in Nodes and sources by their position in Sources.
type Snapshot struct {
	Format  int            `msgpack:"format"`
	Version string         `msgpack:"version"`
	Nodes   []SnapshotNode `msgpack:"nodes"`
	Sources []string       `msgpack:"sources"`
	Edges   []SnapshotEdge `msgpack:"edges"`
}

type SnapshotNode struct {
	NS   string `msgpack:"ns"`
	ID   string `msgpack:"id"`
	Name string `msgpack:"name,omitempty"`
}

type SnapshotEdge struct {
	From     int64           `msgpack:"f"`
	To       int64           `msgpack:"t"`
	Relation common.Relation `msgpack:"r"`
	Source   int             `msgpack:"s"`
}

// Snapshot captures the graph under a version tag.
func (gr *Graph) Snapshot(version string) *Snapshot {
	s := &Snapshot{
		Format:  SnapshotFormat,
		Version: version,
		Nodes:   make([]SnapshotNode, len(gr.nodes)),
		Edges:   make([]SnapshotEdge, 0, gr.edges),
	}
	for i, n := range gr.nodes {
		s.Nodes[i] = SnapshotNode{NS: n.Namespace, ID: n.Identifier, Name: n.Name}
	}

	sources := make(map[string]int)
	for _, e := range gr.Edges() {
		idx, ok := sources[e.Source]
		if !ok {
			idx = len(s.Sources)
			sources[e.Source] = idx
			s.Sources = append(s.Sources, e.Source)
		}
		s.Edges = append(s.Edges, SnapshotEdge{
			From:     e.F.id,
			To:       e.T.id,
			Relation: e.Relation,
			Source:   idx,
		})
	}
	return s
}

// FromSnapshot restores a graph. The restored graph answers every query
// exactly like the graph the snapshot was taken from.
func FromSnapshot(s *Snapshot) (*Graph, error) {
	if s.Format != SnapshotFormat {
		return nil, fmt.Errorf("%w: %d", ErrSnapshotFormat, s.Format)
	}

	gr := newGraph()
	for _, n := range s.Nodes {
		node := gr.node(n.NS, n.ID)
		node.Name = n.Name
	}
	if len(gr.nodes) != len(s.Nodes) {
		return nil, errors.New("snapshot contains duplicate nodes")
	}
	gr.indexNames()

	for i, e := range s.Edges {
		if e.From < 0 || e.From >= int64(len(gr.nodes)) || e.To < 0 || e.To >= int64(len(gr.nodes)) {
			return nil, fmt.Errorf("snapshot edge %d references unknown node", i)
		}
		if e.Source < 0 || e.Source >= len(s.Sources) {
			return nil, fmt.Errorf("snapshot edge %d references unknown source", i)
		}
		gr.addEdge(gr.nodes[e.From], gr.nodes[e.To], e.Relation, s.Sources[e.Source])
	}
	gr.indexRelations()
	return gr, nil
}

// WriteSnapshot encodes the graph snapshot to w.
func (gr *Graph) WriteSnapshot(w io.Writer, version string) error {
	enc := msgpack.NewEncoder(w)
	if err := enc.Encode(gr.Snapshot(version)); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot decodes a snapshot from r and restores the graph. A snapshot
// of another version is rejected with ErrSnapshotVersion.
func ReadSnapshot(r io.Reader, version string) (*Graph, error) {
	var s Snapshot
	if err := msgpack.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if s.Version != version {
		return nil, fmt.Errorf("%w: have %q, want %q", ErrSnapshotVersion, s.Version, version)
	}
	return FromSnapshot(&s)
}
