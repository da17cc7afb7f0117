package sources

import (
	"context"

	"github.com/campusafe/blackboard/pkg/controller"
	"github.com/campusafe/blackboard/pkg/graph"
)

const factCheckResultsPerClaim = 3

// Network builds the "network" knowledge source: extracts claims from a new
// report, fact-checks each one, and generates search queries that become
// external_source nodes to track down, ported from
// original_source/app/pipelines/network.py's run_network.
func Network(store *graph.Store, ai AI, factCheck FactCheck) controller.Source {
	return controller.Source{
		Name:              "network",
		TriggerEventTypes: []string{"node:report"},
		Priority:          controller.PriorityMedium,
		Cooldown:          1.0,
		Handler: func(ctx context.Context, caseID string, payload map[string]any) error {
			nodeID, _ := payload["node_id"].(string)
			if nodeID == "" {
				return nil
			}
			report, err := store.GetNode(nodeID)
			if err != nil {
				return err
			}

			extraction, err := ai.ExtractClaims(ctx, report.Data.TextBody, caseID)
			if err != nil {
				// The AI layer is a best-effort external service; fall back
				// to no claims rather than failing the handler (spec.md §6).
				extraction = ClaimExtraction{}
			}

			claims := make([]graph.Claim, 0, len(extraction.Claims))
			for _, c := range extraction.Claims {
				claims = append(claims, graph.Claim{Statement: c})
			}
			urgency := extraction.Urgency
			if _, err := store.UpdateNode(nodeID, graph.Data{
				Claims:  claims,
				Urgency: &urgency,
				Extra: map[string]any{
					"misinformation_flags":    extraction.MisinformationFlags,
					"suggested_verifications": extraction.SuggestedVerifications,
				},
			}); err != nil {
				return err
			}

			for _, claim := range claims {
				if claim.Statement == "" {
					continue
				}
				results, err := factCheck.SearchClaims(ctx, claim.Statement)
				if err != nil {
					continue
				}
				if len(results) > factCheckResultsPerClaim {
					results = results[:factCheckResultsPerClaim]
				}
				for _, r := range results {
					fc, err := store.AddNode(graph.NodeKindFactCheck, caseID, graph.Data{
						Extra: map[string]any{
							"claim_text": r.ClaimText,
							"rating":     r.Rating,
							"reviewer":   r.Reviewer,
							"url":        r.URL,
						},
					})
					if err != nil {
						return err
					}
					if _, err := store.AddEdge(graph.EdgeKindDebunkedBy, report.ID, fc.ID, caseID, nil); err != nil {
						return err
					}
				}
			}

			claimTexts := make([]string, 0, len(claims))
			for _, c := range claims {
				claimTexts = append(claimTexts, c.Statement)
			}
			queries, err := ai.GenerateSearchQueries(ctx, claimTexts)
			if err != nil {
				return nil
			}
			for _, q := range queries {
				ext, err := store.AddNode(graph.NodeKindExternalSource, caseID, graph.Data{
					SearchQuery: q,
					Extra:       map[string]any{"platform": "web", "url": "", "status": "pending"},
				})
				if err != nil {
					return err
				}
				if _, err := store.AddEdge(graph.EdgeKindSimilarTo, report.ID, ext.ID, caseID, map[string]any{"confidence": 0.5}); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
