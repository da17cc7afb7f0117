package sources

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/campusafe/blackboard/pkg/controller"
	"github.com/campusafe/blackboard/pkg/graph"
)

// Clustering weights and thresholds, grounded on
// original_source/app/pipelines/clustering.py's module-level constants.
const (
	temporalWindow     = 30 * time.Minute
	geoRadiusMeters    = 200.0
	similarityThreshold = 0.4
	weightTemporal     = 0.3
	weightGeo          = 0.3
	weightSemantic     = 0.4
	earthRadiusMeters  = 6371000.0
)

// haversineMeters returns the great-circle distance between two lat/lng
// points in meters.
func haversineMeters(lat1, lng1, lat2, lng2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

// tokenSet lowercases and splits text into a set of words longer than three
// characters, the same tokenization clustering.py uses for its Jaccard
// semantic score.
func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,!?;:\"'()")
		if len(w) > 3 {
			set[w] = struct{}{}
		}
	}
	return set
}

// jaccard computes |A∩B| / |A∪B|, 0 when both sets are empty.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for w := range a {
		if _, ok := b[w]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func temporalScore(a, b *time.Time) float64 {
	if a == nil || b == nil {
		return 0
	}
	delta := a.Sub(*b)
	if delta < 0 {
		delta = -delta
	}
	if delta >= temporalWindow {
		return 0
	}
	return 1 - float64(delta)/float64(temporalWindow)
}

func geoScore(a, b *graph.Location) float64 {
	if a == nil || b == nil || a.Lat == nil || a.Lng == nil || b.Lat == nil || b.Lng == nil {
		return 0
	}
	dist := haversineMeters(*a.Lat, *a.Lng, *b.Lat, *b.Lng)
	if dist >= geoRadiusMeters {
		return 0
	}
	return 1 - dist/geoRadiusMeters
}

// clusteringScore combines the three weighted signals into a single [0,1]
// similarity, matching clustering.py's run_clustering formula, except that
// this port uses pure Jaccard for the semantic term (the original's
// min(1, overlap*2) is not carried forward).
func clusteringScore(a, b graph.Node) float64 {
	t := temporalScore(a.Data.Timestamp, b.Data.Timestamp)
	g := geoScore(a.Data.Location, b.Data.Location)
	s := jaccard(tokenSet(a.Data.TextBody), tokenSet(b.Data.TextBody))
	return weightTemporal*t + weightGeo*g + weightSemantic*s
}

// Clustering builds the "clustering" knowledge source: on every new report
// node, compare it against every other report already in the case and link
// it to each one scoring at or above similarityThreshold.
func Clustering(store *graph.Store) controller.Source {
	return controller.Source{
		Name:              "clustering",
		TriggerEventTypes: []string{"node:report", "edge:repost_of", "edge:mutation_of"},
		Priority:          controller.PriorityCritical,
		Cooldown:          2.0,
		Handler: func(ctx context.Context, caseID string, payload map[string]any) error {
			newID, _ := payload["node_id"].(string)
			if newID == "" {
				newID, _ = payload["source_node_id"].(string)
			}
			if newID == "" {
				return nil
			}
			newNode, err := store.GetNode(newID)
			if err != nil {
				return err
			}
			for _, other := range store.NodesInCase(caseID) {
				if other.Kind != graph.NodeKindReport || other.ID == newNode.ID {
					continue
				}
				if clusteringScore(newNode, other) < similarityThreshold {
					continue
				}
				if _, err := store.AddEdge(graph.EdgeKindSimilarTo, newNode.ID, other.ID, caseID, nil); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
