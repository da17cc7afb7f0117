package sources

import (
	"context"
	"strconv"
	"strings"

	"github.com/campusafe/blackboard/pkg/controller"
	"github.com/campusafe/blackboard/pkg/graph"
)

const (
	repostHammingMax   = 5
	mutationHammingMax = 15
)

// hammingDistance compares two hex-encoded 64-bit perceptual hashes.
func hammingDistance(a, b string) (int, bool) {
	if a == "" || b == "" {
		return 0, false
	}
	av, errA := strconv.ParseUint(a, 16, 64)
	bv, errB := strconv.ParseUint(b, 16, 64)
	if errA != nil || errB != nil {
		return 0, false
	}
	x := av ^ bv
	count := 0
	for x != 0 {
		count++
		x &= x - 1
	}
	return count, true
}

func hasMedia(payload map[string]any) bool {
	url, _ := payload["media_url"].(string)
	return url != ""
}

// ForensicsDeps bundles the external capabilities the forensics source
// calls best-effort. Hasher is required to do anything useful; Forensics
// and VideoSearch are optional (nil is valid and simply skips that detail).
type ForensicsDeps struct {
	Hasher      MediaHasher
	Forensics   MediaForensics
	VideoSearch VideoSearch
}

func isVideoURL(url string) bool {
	lower := strings.ToLower(url)
	for _, ext := range []string{".mp4", ".mov", ".webm", ".avi"} {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// Forensics builds the "forensics" knowledge source: computes a perceptual
// hash for reported media, always emits a media_variant node recording the
// processed media (spec.md §4.4 — this applies to images too, unlike the
// original Python's report-only path for images, per SPEC_FULL.md §4.4), and
// links the new report to any existing media_variant node in the case whose
// phash falls within Hamming-distance banding.
func Forensics(store *graph.Store, deps ForensicsDeps) controller.Source {
	return controller.Source{
		Name:              "forensics",
		TriggerEventTypes: []string{"node:report"},
		Priority:          controller.PriorityHigh,
		Cooldown:          2.0,
		Condition:         hasMedia,
		Handler: func(ctx context.Context, caseID string, payload map[string]any) error {
			nodeID, _ := payload["node_id"].(string)
			if nodeID == "" {
				return nil
			}
			report, err := store.GetNode(nodeID)
			if err != nil {
				return err
			}
			mediaURL := report.Data.MediaURL

			var phash string
			if deps.Hasher != nil {
				if h, err := deps.Hasher.Phash(ctx, mediaURL); err == nil {
					phash = h
				}
				// A hasher failure is not fatal: forensics proceeds without
				// a phash rather than failing the whole handler (spec.md §6).
			}

			if _, err := store.UpdateNode(nodeID, graph.Data{Phash: phash}); err != nil {
				return err
			}

			variantData := graph.Data{MediaURL: mediaURL, Phash: phash}
			if deps.Forensics != nil {
				if f, err := deps.Forensics.Analyze(ctx, mediaURL); err == nil {
					variantData.Extra = map[string]any{
						"exif":          f.EXIF,
						"ela_available": f.ELAAvailable,
					}
				}
			}
			if isVideoURL(mediaURL) && deps.VideoSearch != nil {
				if hits, err := deps.VideoSearch.Search(ctx, mediaURL); err == nil {
					if variantData.Extra == nil {
						variantData.Extra = map[string]any{}
					}
					variantData.Extra["video_search_results"] = hits
				}
			}
			variant, err := store.AddNode(graph.NodeKindMediaVariant, caseID, variantData)
			if err != nil {
				return err
			}

			if phash == "" {
				return nil
			}
			for _, other := range store.NodesInCase(caseID) {
				if other.Kind != graph.NodeKindMediaVariant || other.ID == variant.ID || other.Data.Phash == "" {
					continue
				}
				dist, ok := hammingDistance(phash, other.Data.Phash)
				if !ok {
					continue
				}
				var kind graph.EdgeKind
				switch {
				case dist <= repostHammingMax:
					kind = graph.EdgeKindRepostOf
				case dist <= mutationHammingMax:
					kind = graph.EdgeKindMutationOf
				default:
					continue
				}
				if _, err := store.AddEdge(kind, report.ID, other.ID, caseID, map[string]any{"hamming_distance": dist}); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
