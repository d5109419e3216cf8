package vocab

import (
	"context"

	"github.com/OFFIS-RIT/biokiwi/backend/pkg/common"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/loader"
	"github.com/OFFIS-RIT/biokiwi/backend/pkg/statements"
)

// ActivitiesLoader yields the activity type hierarchy. It reads no resource.
type ActivitiesLoader struct{}

func (ActivitiesLoader) Name() string { return "activities" }

func (ActivitiesLoader) Load(ctx context.Context, sink loader.Sink) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ns := statements.NSActivities
	sink.AddNode(loader.NodeRecord{NS: ns, ID: "activity", Name: "activity"})
	for _, pair := range statements.ActivityHierarchy {
		sink.AddNode(loader.NodeRecord{NS: ns, ID: pair[0], Name: pair[0]})
		sink.AddEdge(loader.EdgeRecord{
			From:     loader.Ref{NS: ns, ID: pair[0]},
			To:       loader.Ref{NS: ns, ID: pair[1]},
			Relation: common.RelationIsa,
			Source:   "activities",
		})
	}
	return nil
}

// ModificationsLoader yields the modification type hierarchy: every
// modification and its removal counterpart isa "modification".
type ModificationsLoader struct{}

func (ModificationsLoader) Name() string { return "modifications" }

func (ModificationsLoader) Load(ctx context.Context, sink loader.Sink) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ns := statements.NSModifications
	root := statements.ModificationRoot
	sink.AddNode(loader.NodeRecord{NS: ns, ID: root, Name: root})
	for _, add := range statements.AddModificationTypes {
		for _, modType := range []string{add, "de" + add} {
			sink.AddNode(loader.NodeRecord{NS: ns, ID: modType, Name: modType})
			sink.AddEdge(loader.EdgeRecord{
				From:     loader.Ref{NS: ns, ID: modType},
				To:       loader.Ref{NS: ns, ID: root},
				Relation: common.RelationIsa,
				Source:   "modifications",
			})
		}
	}
	return nil
}
