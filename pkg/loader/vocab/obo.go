package vocab

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/OFFIS-RIT/biokiwi/backend/pkg/common"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/loader"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/loader/obo"
)

// OBOLoader reads an OBO-style ontology (GO, EFO, HP, DOID, ChEBI) from an
// OBO flat file or a JSON entry map.
//
// Terms and relation targets from other ontologies are skipped. With
// RemovePrefix the "<NS>:" prefix is dropped from identifiers (EFO keeps bare
// numeric ids). Xrefs are only turned into edges for namespaces listed in
// XrefNamespaces.
type OBOLoader struct {
	Namespace      string
	File           loader.ResourceFile
	RemovePrefix   bool
	XrefNamespaces []string
}

func (l *OBOLoader) Name() string { return strings.ToLower(l.Namespace) }

func (l *OBOLoader) Load(ctx context.Context, sink loader.Sink) error {
	if l.Namespace == "" {
		return fmt.Errorf("obo loader for %s: namespace is required", l.File.Path)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	content, err := l.File.GetContent(ctx)
	if err != nil {
		return fmt.Errorf("read %s: %w", l.File.Path, err)
	}
	doc, err := obo.Parse(content)
	if err != nil {
		return fmt.Errorf("parse %s: %w", l.File.Path, err)
	}

	ns := strings.ToUpper(l.Namespace)
	allowedXrefs := make(map[string]bool, len(l.XrefNamespaces))
	for _, x := range l.XrefNamespaces {
		allowedXrefs[x] = true
	}

	report := newRowReport(l.Name(), l.File.Path)
	unknown := relationReport{}
	for _, term := range doc.Terms {
		id, own := l.ownID(term.ID)
		if !own {
			continue
		}
		if term.Name == "" {
			report.skip(common.DiagMalformedRow, 0, "term without name")
			continue
		}
		sink.AddNode(loader.NodeRecord{NS: ns, ID: id, Name: term.Name})

		for _, relName := range sortedKeys(term.Relations) {
			targets := term.Relations[relName]
			rel, ok := common.ParseRelation(relName)
			if !ok {
				unknown[relName] += len(targets)
				continue
			}
			for _, target := range targets {
				targetID, own := l.ownID(target)
				if !own {
					continue
				}
				sink.AddEdge(loader.EdgeRecord{
					From:     loader.Ref{NS: ns, ID: id},
					To:       loader.Ref{NS: ns, ID: targetID},
					Relation: rel,
					Source:   l.Name(),
				})
			}
		}

		for _, x := range term.Xrefs {
			xns, xid, ok := obo.SplitXref(x)
			if !ok || !allowedXrefs[xns] {
				continue
			}
			sink.AddEdge(xref(loader.Ref{NS: ns, ID: id}, loader.Ref{NS: xns, ID: xid}, l.Name()))
		}
	}
	report.flush(sink)
	unknown.flush(sink, l.Name())
	return nil
}

// ownID reports whether an OBO identifier belongs to this ontology and
// returns it in the form used for graph labels.
func (l *OBOLoader) ownID(id string) (string, bool) {
	prefix := strings.ToUpper(l.Namespace) + ":"
	if strings.HasPrefix(id, prefix) {
		if l.RemovePrefix {
			return id[len(prefix):], true
		}
		return id, true
	}
	// JSON entry maps of prefix-less ontologies hold bare ids already.
	if l.RemovePrefix && !strings.Contains(id, ":") && id != "" {
		return id, true
	}
	return "", false
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
