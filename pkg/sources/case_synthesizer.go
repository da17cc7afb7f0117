package sources

import (
	"context"

	"github.com/campusafe/blackboard/pkg/controller"
	"github.com/campusafe/blackboard/pkg/graph"
)

// CaseSynthesizer builds the "case_synthesizer" knowledge source: a
// background pass that writes a case-level narrative onto every report
// node once claims are present, gated the same way
// original_source/app/pipelines/orchestrator.py registers it
// (trigger_types=["update:report"], condition=_has_claims). Beyond
// spec.md's narrative/confidence pair, it also carries origin_analysis,
// spread_map, and recommended_action, matching
// original_source/app/pipelines/case_synthesizer.py.
func CaseSynthesizer(store *graph.Store, ai AI) controller.Source {
	return controller.Source{
		Name:              "case_synthesizer",
		TriggerEventTypes: []string{"update:report"},
		Priority:          controller.PriorityBackground,
		Cooldown:          5.0,
		Condition:         hasClaims,
		Handler: func(ctx context.Context, caseID string, payload map[string]any) error {
			reports := make([]graph.Node, 0)
			texts := make([]string, 0)
			for _, n := range store.NodesInCase(caseID) {
				if n.Kind == graph.NodeKindReport {
					reports = append(reports, n)
					texts = append(texts, n.Data.TextBody)
				}
			}
			if len(reports) == 0 {
				return nil
			}

			result, err := ai.GenerateNarrative(ctx, NarrativeInput{CaseID: caseID, Reports: texts})
			if err != nil {
				return nil
			}

			confidence := result.Confidence
			for _, r := range reports {
				if _, err := store.UpdateNode(r.ID, graph.Data{
					CaseNarrative:     result.Narrative,
					OriginAnalysis:    result.OriginAnalysis,
					SpreadMap:         result.SpreadMap,
					RecommendedAction: result.RecommendedAction,
					ConfidenceScore:   &confidence,
				}); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
