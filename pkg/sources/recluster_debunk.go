package sources

import (
	"context"

	"github.com/campusafe/blackboard/pkg/controller"
	"github.com/campusafe/blackboard/pkg/graph"
)

// ReclusterDebunk builds the "recluster_debunk" knowledge source: whenever a
// debunked_by edge appears, recompute every report's debunk_count from
// scratch over the full edge set (never incremented), which is what makes
// the handler idempotent under replay and cascade — ported from
// original_source/app/pipelines/recluster_debunk.py.
func ReclusterDebunk(store *graph.Store) controller.Source {
	return controller.Source{
		Name:              "recluster_debunk",
		TriggerEventTypes: []string{"edge:debunked_by"},
		Priority:          controller.PriorityHigh,
		Cooldown:          1.0,
		Handler: func(ctx context.Context, caseID string, payload map[string]any) error {
			edges := store.EdgesInCase(caseID)
			counts := make(map[string]int)
			for _, e := range edges {
				if e.Kind == graph.EdgeKindDebunkedBy {
					counts[e.SourceNodeID]++
				}
			}
			for _, n := range store.NodesInCase(caseID) {
				if n.Kind != graph.NodeKindReport {
					continue
				}
				count := counts[n.ID]
				if n.Data.DebunkCount != nil && *n.Data.DebunkCount == count {
					continue
				}
				if _, err := store.UpdateNode(n.ID, graph.Data{DebunkCount: &count}); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
