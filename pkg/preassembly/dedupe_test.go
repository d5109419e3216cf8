package preassembly

import (
	"context"
	"errors"
	"reflect"
	"slices"
	"testing"

	"github.com/OFFIS-RIT/biokiwi/backend/pkg/statements"
)

func dedupeInput() []statements.Statement {
	return []statements.Statement{
		withEvidence(phos("s1", braf(), map2k1(), "", ""), ev("reach", "1", "a")),
		withEvidence(phos("s2", braf(), map2k1(), "", ""), ev("reach", "1", "a"), ev("sparser", "2", "b")),
		withEvidence(&statements.RegulateActivity{Kind: statements.TypeActivation, Meta: statements.Meta{ID: "s3"}, Subj: braf(), Obj: map2k1()}, ev("reach", "3", "c")),
		withEvidence(phos("s4", gene("B-Raf", "1097"), map2k1(), "", ""), ev("trips", "4", "d")),
	}
}

// evidenceSets maps group keys to their sorted evidence keys.
func evidenceSets(groups []*Group) map[string][]string {
	out := make(map[string][]string)
	for _, g := range groups {
		var keys []string
		for _, e := range g.Statement.Metadata().Evidence {
			keys = append(keys, e.MatchesKey())
		}
		slices.Sort(keys)
		out[g.Key] = keys
	}
	return out
}

func TestDedupe(t *testing.T) {
	p := NewPreassembler(NewPreassemblerParams{Parallel: 2})
	input := dedupeInput()

	groups, err := p.Dedupe(context.Background(), input)
	if err != nil {
		t.Fatalf("dedupe: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}

	phosGroup, actGroup := groups[0], groups[1]
	if phosGroup.Statement.Type() != "Phosphorylation" || actGroup.Statement.Type() != statements.TypeActivation {
		t.Fatalf("groups not in first appearance order: %v", groupKeys(groups))
	}
	if !reflect.DeepEqual(phosGroup.Members, []string{"s1", "s2", "s4"}) {
		t.Fatalf("unexpected members %v", phosGroup.Members)
	}
	if n := len(phosGroup.Statement.Metadata().Evidence); n != 3 {
		t.Fatalf("expected 3 distinct evidences, got %d", n)
	}
	if id := phosGroup.Statement.Metadata().ID; id == "" || slices.Contains(phosGroup.Members, id) {
		t.Fatalf("merged group needs a fresh id, got %q", id)
	}
	if id := actGroup.Statement.Metadata().ID; id != "s3" {
		t.Fatalf("singleton group must keep its id, got %q", id)
	}
	if phosGroup.Hash != Hash(phosGroup.Key) {
		t.Fatalf("hash does not match key")
	}

	if n := len(input[0].Metadata().Evidence); n != 1 {
		t.Fatalf("input statement modified, has %d evidences", n)
	}
}

func TestDedupeOrderIndependent(t *testing.T) {
	p := NewPreassembler(NewPreassemblerParams{Parallel: 3})
	forward, err := p.Dedupe(context.Background(), dedupeInput())
	if err != nil {
		t.Fatalf("dedupe: %v", err)
	}

	reversed := dedupeInput()
	slices.Reverse(reversed)
	backward, err := p.Dedupe(context.Background(), reversed)
	if err != nil {
		t.Fatalf("dedupe reversed: %v", err)
	}

	if !reflect.DeepEqual(evidenceSets(forward), evidenceSets(backward)) {
		t.Fatalf("permuted input changed groups:\n%v\n%v", evidenceSets(forward), evidenceSets(backward))
	}
}

func TestDedupeIdempotent(t *testing.T) {
	p := NewPreassembler(NewPreassemblerParams{Parallel: 2})
	once, err := p.Dedupe(context.Background(), dedupeInput())
	if err != nil {
		t.Fatalf("dedupe: %v", err)
	}
	twice, err := p.Dedupe(context.Background(), Flatten(once))
	if err != nil {
		t.Fatalf("dedupe again: %v", err)
	}

	if !reflect.DeepEqual(groupKeys(once), groupKeys(twice)) {
		t.Fatalf("keys changed: %v vs %v", groupKeys(once), groupKeys(twice))
	}
	if !reflect.DeepEqual(evidenceSets(once), evidenceSets(twice)) {
		t.Fatalf("evidence changed")
	}
	for i := range once {
		if once[i].Statement.Metadata().ID != twice[i].Statement.Metadata().ID {
			t.Fatalf("group %d changed id", i)
		}
	}
}

func TestDedupeManyStatements(t *testing.T) {
	p := NewPreassembler(NewPreassemblerParams{Parallel: 4})
	var input []statements.Statement
	for i := range 2000 {
		position := []string{"", "218", "222"}[i%3]
		input = append(input, withEvidence(phos("", braf(), map2k1(), "S", position), ev("reach", "1", string(rune('a'+i%7)))))
	}

	groups, err := p.Dedupe(context.Background(), input)
	if err != nil {
		t.Fatalf("dedupe: %v", err)
	}
	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(groups))
	}
	for _, g := range groups {
		if n := len(g.Statement.Metadata().Evidence); n != 7 {
			t.Fatalf("expected 7 evidences in %s, got %d", g.Key, n)
		}
	}
}

func TestDedupeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewPreassembler(NewPreassemblerParams{Parallel: 2})
	if _, err := p.Dedupe(ctx, dedupeInput()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
