package ontology

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/OFFIS-RIT/biokiwi/backend/pkg/common"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/loader"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/logger"
)

const maxUnresolvedItems = 20

// Builder assembles the output of a fixed list of source loaders into one
// Graph. The graph stays private to Build until it is complete.
//
// A Builder should be created using NewBuilder.
type Builder struct {
	loaders               []loader.SourceLoader
	parallel              int
	preserveXrefDirection bool
}

// NewBuilderParams defines the configuration parameters for creating a new
// Builder.
//
// Loaders are merged in the given order, so a later vocabulary overrides
// node names of an earlier one.
// Parallel limits how many loaders read their resources at the same time.
// PreserveXrefDirection disables mirroring of xref edges for every loader,
// not only for loaders marked Directional.
type NewBuilderParams struct {
	Loaders               []loader.SourceLoader
	Parallel              int
	PreserveXrefDirection bool
}

// NewBuilder creates a Builder.
//
// Example:
//
//	b := ontology.NewBuilder(ontology.NewBuilderParams{
//		Loaders:  loaders,
//		Parallel: 4,
//	})
//	g, diags, err := b.Build(ctx)
func NewBuilder(params NewBuilderParams) *Builder {
	parallel := params.Parallel
	if parallel <= 0 {
		parallel = 4
	}
	return &Builder{
		loaders:               params.Loaders,
		parallel:              parallel,
		preserveXrefDirection: params.PreserveXrefDirection,
	}
}

// Build runs all loaders and returns the finished graph together with the
// data-quality diagnostics of the build. A loader that fails is reported and
// skipped. Only cancellation of ctx aborts the build.
func (b *Builder) Build(ctx context.Context) (*Graph, *common.Diagnostics, error) {
	start := time.Now()
	diags := common.NewDiagnostics()

	buffers, err := b.runLoaders(ctx, diags)
	if err != nil {
		return nil, diags, err
	}

	gr := newGraph()
	for _, buf := range buffers {
		if buf == nil {
			continue
		}
		for _, n := range buf.Nodes {
			node := gr.node(n.NS, n.ID)
			if n.Name != "" {
				node.Name = n.Name
			}
		}
	}
	gr.indexNames()

	if err := ctx.Err(); err != nil {
		return nil, diags, err
	}

	m := &merger{gr: gr, diags: diags, seen: make(map[edgeKey]struct{})}
	for i, buf := range buffers {
		if buf == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, diags, err
		}
		l := b.loaders[i]
		mirror := !b.preserveXrefDirection
		if d, ok := l.(loader.Directional); ok && d.DirectionalXrefs() {
			mirror = false
		}
		m.merge(l.Name(), buf, mirror)
	}
	gr.indexRelations()

	logger.Info("[Ontology] Built ontology graph",
		"nodes", gr.NodeCount(),
		"edges", gr.EdgeCount(),
		"diagnostics", diags.Len(),
		"duration", time.Since(start),
	)
	return gr, diags, nil
}

func (b *Builder) runLoaders(ctx context.Context, diags *common.Diagnostics) ([]*loader.Buffer, error) {
	buffers := make([]*loader.Buffer, len(b.loaders))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.parallel)
	for i, l := range b.loaders {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			loadStart := time.Now()
			buf := &loader.Buffer{}
			if err := l.Load(gctx, buf); err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				logger.Warn("[Ontology] Loader failed", "loader", l.Name(), "err", err)
				diags.Addf(common.DiagLoaderFailed, l.Name(), "%v", err)
				return nil
			}
			logger.Debug("[Ontology] Loader finished",
				"loader", l.Name(),
				"nodes", len(buf.Nodes),
				"edges", len(buf.Edges),
				"duration", time.Since(loadStart),
			)
			buffers[i] = buf
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("run loaders: %w", err)
	}

	// Loader diagnostics are published in registration order.
	for _, buf := range buffers {
		if buf == nil {
			continue
		}
		for _, d := range buf.Diagnostics {
			diags.Add(d)
		}
	}
	return buffers, nil
}

type edgeKey struct {
	from, to int64
	rel      common.Relation
	source   string
}

type merger struct {
	gr    *Graph
	diags *common.Diagnostics
	seen  map[edgeKey]struct{}
}

func (m *merger) merge(name string, buf *loader.Buffer, mirror bool) {
	var unresolved []string
	unresolvedCount, selfLoops, oneWay := 0, 0, 0

	for _, e := range buf.Edges {
		from, ok := m.resolve(e.From)
		if !ok {
			unresolvedCount++
			if len(unresolved) < maxUnresolvedItems {
				unresolved = append(unresolved, e.From.Label())
			}
			continue
		}
		to, ok := m.resolve(e.To)
		if !ok {
			unresolvedCount++
			if len(unresolved) < maxUnresolvedItems {
				unresolved = append(unresolved, e.To.Label())
			}
			continue
		}
		if from == to {
			selfLoops++
			continue
		}

		source := e.Source
		if source == "" {
			source = name
		}
		m.add(from, to, e.Relation, source)
		if e.Relation != common.RelationXref {
			continue
		}
		if mirror {
			m.add(to, from, e.Relation, source)
		} else {
			oneWay++
		}
	}

	if unresolvedCount > 0 {
		m.diags.Add(common.Diagnostic{
			Kind:    common.DiagUnresolvedReference,
			Source:  name,
			Message: fmt.Sprintf("skipped %d edges with unresolved name references", unresolvedCount),
			Items:   unresolved,
		})
	}
	if selfLoops > 0 {
		m.diags.Addf(common.DiagMalformedRow, name, "skipped %d self-loop edges", selfLoops)
	}
	if oneWay > 0 {
		m.diags.Addf(common.DiagOneDirectionalXref, name, "%d xref edges kept one-directional", oneWay)
	}
}

func (m *merger) resolve(ref loader.Ref) (*Node, bool) {
	if !ref.ByName {
		return m.gr.node(ref.NS, ref.ID), true
	}
	n, ok := m.gr.names[nameKey{ns: ref.NS, name: ref.ID}]
	return n, ok
}

func (m *merger) add(from, to *Node, rel common.Relation, source string) {
	key := edgeKey{from: from.id, to: to.id, rel: rel, source: source}
	if _, ok := m.seen[key]; ok {
		return
	}
	m.seen[key] = struct{}{}
	m.gr.addEdge(from, to, rel, source)
}
