package loader

import (
	"context"

	"github.com/OFFIS-RIT/biokiwi/backend/pkg/common"
)

// ResourceFile is a raw vocabulary resource (a delimited table, an OBO dump
// or a JSON entry map) that a SourceLoader turns into graph tuples.
//
// The actual file content is retrieved via the associated ResourceReader.
type ResourceFile struct {
	ID     string
	Path   string
	Reader ResourceReader
}

// NewResourceFileParams defines the input parameters for creating a new
// ResourceFile.
type NewResourceFileParams struct {
	ID     string
	Path   string
	Reader ResourceReader
}

// NewResourceFile creates a ResourceFile. The ID defaults to the path.
func NewResourceFile(params NewResourceFileParams) ResourceFile {
	id := params.ID
	if id == "" {
		id = params.Path
	}
	return ResourceFile{
		ID:     id,
		Path:   params.Path,
		Reader: params.Reader,
	}
}

// GetContent retrieves the file content using its Reader. Gzip compressed
// resources (".gz") are decompressed transparently.
//
// Example:
//
//	content, err := file.GetContent(ctx)
//	if err != nil {
//		return err
//	}
//	rows := csv.ParseTable(content, csv.TableOptions{Comma: '\t'})
func (f *ResourceFile) GetContent(ctx context.Context) ([]byte, error) {
	content, err := f.Reader.GetFileContent(ctx, *f)
	if err != nil {
		return nil, err
	}
	return maybeDecompress(f.Path, content)
}

// ResourceReader defines the interface for loading the contents of a
// ResourceFile. Implementations may load files from disk, object storage or
// other sources.
type ResourceReader interface {
	GetFileContent(ctx context.Context, file ResourceFile) ([]byte, error)
}

// Ref addresses a node inside an edge record. When ByName is set, ID holds a
// display name that the builder resolves to an identifier of NS once every
// vocabulary has contributed its nodes.
type Ref struct {
	NS     string
	ID     string
	ByName bool
}

func (r Ref) Label() string {
	return common.Label(r.NS, r.ID)
}

// NodeRecord is a node tuple produced by a loader.
type NodeRecord struct {
	NS   string
	ID   string
	Name string
}

// EdgeRecord is an edge tuple produced by a loader. Source records the
// vocabulary or mapping that produced the edge and is only used for
// diagnostics.
type EdgeRecord struct {
	From     Ref
	To       Ref
	Relation common.Relation
	Source   string
}

// Sink receives the tuples of a loader.
type Sink interface {
	AddNode(node NodeRecord)
	AddEdge(edge EdgeRecord)
	Report(diag common.Diagnostic)
}

// SourceLoader reads one vocabulary and yields its tuples into a sink.
// Malformed rows are reported through the sink and skipped; an error is
// returned only when the vocabulary as a whole cannot be read.
type SourceLoader interface {
	Name() string
	Load(ctx context.Context, sink Sink) error
}

// Directional is implemented by loaders whose cross references must not be
// mirrored by the builder, because the source mapping is not an equivalence.
type Directional interface {
	DirectionalXrefs() bool
}

// Buffer is an in-memory Sink. Loaders run into private buffers so that the
// shared graph is only assembled once every vocabulary has been read.
type Buffer struct {
	Nodes       []NodeRecord
	Edges       []EdgeRecord
	Diagnostics []common.Diagnostic
}

func (b *Buffer) AddNode(node NodeRecord) {
	b.Nodes = append(b.Nodes, node)
}

func (b *Buffer) AddEdge(edge EdgeRecord) {
	b.Edges = append(b.Edges, edge)
}

func (b *Buffer) Report(diag common.Diagnostic) {
	b.Diagnostics = append(b.Diagnostics, diag)
}
