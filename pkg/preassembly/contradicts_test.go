package preassembly

import (
	"context"
	"testing"

	"github.com/OFFIS-RIT/biokiwi/backend/pkg/statements"
)

func TestFindContradicts(t *testing.T) {
	p := testPreassembler(t)

	phosphorylated := func() *statements.Agent {
		a := map2k1()
		a.Mods = []statements.ModCondition{{ModType: "phosphorylation", IsModified: true}}
		return a
	}
	dephos := func(enz *statements.Agent, residue, position string) statements.Statement {
		return &statements.Modification{Kind: "Dephosphorylation", Enz: enz, Sub: map2k1(), Residue: residue, Position: statements.Site(position)}
	}

	stmts := []statements.Statement{
		phos("", braf(), map2k1(), "S", "218"),
		dephos(raf(), "S", "218"),
		dephos(braf(), "T", "222"),
		&statements.RegulateActivity{Kind: statements.TypeActivation, Subj: braf(), Obj: map2k1()},
		&statements.RegulateActivity{Kind: statements.TypeInhibition, Subj: braf(), Obj: mek()},
		&statements.RegulateAmount{Kind: statements.TypeIncreaseAmount, Obj: map2k1()},
		&statements.RegulateAmount{Kind: statements.TypeDecreaseAmount, Subj: braf(), Obj: map2k1()},
		&statements.ActiveForm{Agent: phosphorylated(), Activity: "kinase", IsActive: true},
		&statements.ActiveForm{Agent: phosphorylated(), Activity: "kinase", IsActive: false},
		&statements.RegulateActivity{Kind: statements.TypeActivation, Subj: braf(), Obj: raf1()},
		&statements.ActiveForm{Agent: map2k1(), Activity: "kinase", IsActive: false},
	}
	groups, err := p.Dedupe(context.Background(), stmts)
	if err != nil {
		t.Fatalf("dedupe: %v", err)
	}

	contradictions, err := p.FindContradicts(context.Background(), groups)
	if err != nil {
		t.Fatalf("find contradicts: %v", err)
	}

	want := [][2]int{{0, 1}, {3, 4}, {7, 8}}
	if len(contradictions) != len(want) {
		for _, c := range contradictions {
			t.Logf("%s <> %s", c.First.Key, c.Second.Key)
		}
		t.Fatalf("expected %d contradictions, got %d", len(want), len(contradictions))
	}
	for i, w := range want {
		c := contradictions[i]
		if c.First != groups[w[0]] || c.Second != groups[w[1]] {
			t.Fatalf("contradiction %d: expected %s <> %s, got %s <> %s",
				i, groups[w[0]].Key, groups[w[1]].Key, c.First.Key, c.Second.Key)
		}
	}
}

func TestContradictsActiveFormFamily(t *testing.T) {
	r := newRefiner(testOntology(t), nil, nil)
	a := &statements.ActiveForm{Agent: braf(), Activity: "kinase", IsActive: true}
	b := &statements.ActiveForm{Agent: raf(), Activity: "kinase", IsActive: false}
	if !r.contradicts(a, b) || !r.contradicts(b, a) {
		t.Fatalf("member and family with opposite activity must contradict")
	}

	c := &statements.ActiveForm{Agent: raf(), Activity: "catalytic", IsActive: false}
	if r.contradicts(a, c) {
		t.Fatalf("different activities must not contradict")
	}
}
