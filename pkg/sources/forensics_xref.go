package sources

import (
	"context"

	"github.com/campusafe/blackboard/pkg/controller"
	"github.com/campusafe/blackboard/pkg/graph"
)

const (
	xrefClaimLimit  = 2
	xrefResultLimit = 2
)

func hasClaims(payload map[string]any) bool {
	claims, ok := payload["claims"].([]graph.Claim)
	return ok && len(claims) > 0
}

// ForensicsXref builds the "forensics_xref" knowledge source: once a report
// carries extracted claims, search a video index for each of the first few
// claims and record what turns up, ported from
// original_source/app/pipelines/forensics_xref.py.
func ForensicsXref(store *graph.Store, videoSearch VideoSearch) controller.Source {
	return controller.Source{
		Name:              "forensics_xref",
		TriggerEventTypes: []string{"update:report"},
		Priority:          controller.PriorityMedium,
		Cooldown:          3.0,
		Condition:         hasClaims,
		Handler: func(ctx context.Context, caseID string, payload map[string]any) error {
			nodeID, _ := payload["node_id"].(string)
			if nodeID == "" || videoSearch == nil {
				return nil
			}
			report, err := store.GetNode(nodeID)
			if err != nil {
				return err
			}
			claims := report.Data.Claims
			if len(claims) > xrefClaimLimit {
				claims = claims[:xrefClaimLimit]
			}

			xrefs := append([]graph.VideoXref(nil), report.Data.VideoXref...)
			for _, claim := range claims {
				hits, err := videoSearch.Search(ctx, claim.Statement)
				if err != nil {
					continue
				}
				if len(hits) > xrefResultLimit {
					hits = hits[:xrefResultLimit]
				}
				for _, h := range hits {
					xrefs = append(xrefs, graph.VideoXref{
						SearchQuery: claim.Statement,
						Platform:    h.Platform,
						URL:         h.URL,
						Status:      "found",
					})
				}
			}
			if len(xrefs) == len(report.Data.VideoXref) {
				return nil
			}
			_, err = store.UpdateNode(nodeID, graph.Data{VideoXref: xrefs})
			return err
		},
	}
}
