// Package sources implements the seven knowledge sources of spec.md §4.4:
// clustering, forensics, recluster_debunk, network, forensics_xref,
// classifier, and case_synthesizer. Each is a pure function of the graph
// plus a small set of narrow external-service interfaces (spec.md §6);
// none of them talks to a concrete AI/fact-check/media provider directly.
package sources

import "context"

// AI is the narrow claim-extraction and query-generation surface a real
// service (Backboard/Gemini in the original) sits behind. Implementations
// may fail; callers fall back to a conservative default rather than erroring
// the whole handler (spec.md §6).
type AI interface {
	ExtractClaims(ctx context.Context, reportText string, caseID string) (ClaimExtraction, error)
	GenerateSearchQueries(ctx context.Context, claims []string) ([]string, error)
	GenerateNarrative(ctx context.Context, in NarrativeInput) (NarrativeResult, error)
}

// ClaimExtraction is the AI layer's structured claim-extraction result.
type ClaimExtraction struct {
	Claims                 []string
	Urgency                float64
	MisinformationFlags    []string
	SuggestedVerifications []string
}

// NarrativeInput is what case_synthesizer hands the AI layer.
type NarrativeInput struct {
	CaseID  string
	Reports []string
}

// NarrativeResult is the AI layer's case-level synthesis.
type NarrativeResult struct {
	Narrative         string
	OriginAnalysis    string
	SpreadMap         string
	RecommendedAction string
	Confidence        float64
}

// FactCheckResult is one hit from a fact-check lookup.
type FactCheckResult struct {
	ClaimText string
	Rating    string
	Reviewer  string
	URL       string
}

// FactCheck is the narrow fact-check lookup surface (Google Fact Check
// Tools API in the original). Returns an empty slice, never an error, when
// the upstream service is unavailable — mirrors services/factcheck.py.
type FactCheck interface {
	SearchClaims(ctx context.Context, statement string) ([]FactCheckResult, error)
}

// MediaHasher computes a perceptual hash for an image or video frame. This
// is the one external capability spec.md's forensics contract requires;
// implementations that cannot reach the service should return an error, and
// the forensics source substitutes its documented fallback (spec.md §6).
type MediaHasher interface {
	Phash(ctx context.Context, mediaURL string) (string, error)
}

// MediaForensics is optional best-effort image forensics (EXIF extraction,
// error-level-analysis availability) beyond the required phash. A nil
// MediaForensics is valid; the forensics source simply skips this detail.
type MediaForensics interface {
	Analyze(ctx context.Context, mediaURL string) (ForensicsResult, error)
}

// ForensicsResult is the best-effort image-forensics detail attached to a report.
type ForensicsResult struct {
	EXIF         map[string]any
	ELAAvailable bool
}

// VideoHit is one search result from a video cross-reference lookup.
type VideoHit struct {
	Platform string
	URL      string
}

// VideoSearch looks up where else a video or its frames appear online, used
// by both the forensics video path and forensics_xref.
type VideoSearch interface {
	Search(ctx context.Context, query string) ([]VideoHit, error)
}
