package preassembly

import (
	"context"

	"github.com/OFFIS-RIT/biokiwi/backend/pkg/logger"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/statements"
	"golang.org/x/sync/errgroup"
)

const minKeyChunk = 256

// Group is a set of statements sharing a match key. Statement is the
// representative: a copy of the first member carrying the union of all
// members' evidence.
type Group struct {
	Key       string               `json:"key"`
	Hash      int64                `json:"hash"`
	Statement statements.Statement `json:"statement"`
	Members   []string             `json:"members"`
}

// Dedupe partitions stmts by match key. Groups keep the order in which
// their key first appears in stmts, so permuting the input only permutes
// the groups and their evidence order.
func (p *Preassembler) Dedupe(ctx context.Context, stmts []statements.Statement) ([]*Group, error) {
	keys := make([]string, len(stmts))

	chunk := max(minKeyChunk, (len(stmts)+p.parallel-1)/p.parallel)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.parallel)
	for start := 0; start < len(stmts); start += chunk {
		end := min(start+chunk, len(stmts))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for i := start; i < end; i++ {
				keys[i] = MatchKey(stmts[i], p.order)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	index := make(map[string]int)
	var buckets [][]statements.Statement
	var groupKeys []string
	for i, key := range keys {
		ix, ok := index[key]
		if !ok {
			ix = len(buckets)
			index[key] = ix
			buckets = append(buckets, nil)
			groupKeys = append(groupKeys, key)
		}
		buckets[ix] = append(buckets[ix], stmts[i])
	}

	groups := make([]*Group, len(buckets))
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(p.parallel)
	for ix := range buckets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			groups[ix] = mergeGroup(groupKeys[ix], buckets[ix])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logger.Debug("[Preassembly] Deduplicated statements", "statements", len(stmts), "groups", len(groups))
	return groups, nil
}

func mergeGroup(key string, members []statements.Statement) *Group {
	rep := members[0].Clone()
	meta := rep.Metadata()
	meta.Supports = nil
	meta.SupportedBy = nil

	ids := make([]string, len(members))
	seen := make(map[string]struct{})
	var evidence []statements.Evidence
	for i, m := range members {
		ids[i] = m.Metadata().ID
		for _, ev := range m.Metadata().Evidence {
			evKey := ev.MatchesKey()
			if _, ok := seen[evKey]; ok {
				continue
			}
			seen[evKey] = struct{}{}
			evidence = append(evidence, ev.Clone())
		}
		meta.Belief = max(meta.Belief, m.Metadata().Belief)
	}
	meta.Evidence = evidence

	// a singleton keeps its id so that deduplicating twice is stable
	if len(members) > 1 {
		meta.ID = statements.NewID()
	}

	return &Group{
		Key:       key,
		Hash:      Hash(key),
		Statement: rep,
		Members:   ids,
	}
}

// Flatten returns the representatives of groups.
func Flatten(groups []*Group) []statements.Statement {
	out := make([]statements.Statement, len(groups))
	for i, g := range groups {
		out[i] = g.Statement
	}
	return out
}
