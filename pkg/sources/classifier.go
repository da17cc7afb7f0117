package sources

import (
	"context"

	"github.com/campusafe/blackboard/pkg/controller"
	"github.com/campusafe/blackboard/pkg/graph"
)

const (
	semanticRoleMutator         = "mutator"
	semanticRoleAmplifier       = "amplifier"
	semanticRoleOriginator      = "originator"
	semanticRoleUnwittingSharer = "unwitting_sharer"
)

// classifyRole assigns a report's semantic role using the deterministic
// ordering of spec.md §4.4: mutator, then amplifier, then originator
// (earliest report, ties broken by creation order), then unwitting_sharer,
// else no change. This is a cleaner total order than the original
// classifier.py's check sequence; SPEC_FULL.md §4.4 chooses this version.
func classifyRole(report graph.Node, reports []graph.Node, outEdges []graph.Edge) string {
	for _, e := range outEdges {
		if e.Kind == graph.EdgeKindMutationOf {
			return semanticRoleMutator
		}
	}
	for _, e := range outEdges {
		if e.Kind == graph.EdgeKindRepostOf {
			return semanticRoleAmplifier
		}
	}
	if isEarliest(report, reports) {
		return semanticRoleOriginator
	}
	hasExternalLink := false
	for _, e := range outEdges {
		if e.Kind == graph.EdgeKindSimilarTo || e.Kind == graph.EdgeKindDebunkedBy {
			hasExternalLink = true
			break
		}
	}
	if !hasExternalLink {
		return semanticRoleUnwittingSharer
	}
	return ""
}

// isEarliest reports whether report is the earliest-timestamped report in
// reports, ties broken by creation order (reports is already in creation
// order, matching the original's stable-sort behaviour under Python).
func isEarliest(report graph.Node, reports []graph.Node) bool {
	otherCreatedFirst := true
	for _, other := range reports {
		if other.ID == report.ID {
			otherCreatedFirst = false
			continue
		}
		if other.Data.Timestamp == nil || report.Data.Timestamp == nil {
			continue
		}
		if other.Data.Timestamp.Before(*report.Data.Timestamp) {
			return false
		}
		if otherCreatedFirst && other.Data.Timestamp.Equal(*report.Data.Timestamp) {
			return false
		}
	}
	return true
}

// Classifier builds the "classifier" knowledge source: recomputes every
// report's semantic role in the case whenever the link structure changes.
func Classifier(store *graph.Store) controller.Source {
	return controller.Source{
		Name: "classifier",
		TriggerEventTypes: []string{
			"edge:similar_to", "edge:repost_of", "edge:mutation_of",
			"edge:debunked_by", "node:fact_check", "node:external_source",
		},
		Priority: controller.PriorityLow,
		Cooldown: 2.0,
		Handler: func(ctx context.Context, caseID string, payload map[string]any) error {
			reports := make([]graph.Node, 0)
			for _, n := range store.NodesInCase(caseID) {
				if n.Kind == graph.NodeKindReport {
					reports = append(reports, n)
				}
			}
			for _, r := range reports {
				role := classifyRole(r, reports, store.EdgesFrom(caseID, r.ID))
				if role == "" || role == r.Data.SemanticRole {
					continue
				}
				if _, err := store.UpdateNode(r.ID, graph.Data{SemanticRole: role}); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
