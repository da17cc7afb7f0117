package sources

import "context"

// NoopAI is the fallback AI implementation: every call reports "nothing
// found" rather than erroring, so network and case_synthesizer still run to
// completion with no claim extraction, search, or narrative configured.
type NoopAI struct{}

func (NoopAI) ExtractClaims(ctx context.Context, reportText, caseID string) (ClaimExtraction, error) {
	return ClaimExtraction{}, nil
}

func (NoopAI) GenerateSearchQueries(ctx context.Context, claims []string) ([]string, error) {
	return nil, nil
}

func (NoopAI) GenerateNarrative(ctx context.Context, in NarrativeInput) (NarrativeResult, error) {
	return NarrativeResult{}, nil
}

// NoopFactCheck always reports no matching fact checks.
type NoopFactCheck struct{}

func (NoopFactCheck) SearchClaims(ctx context.Context, statement string) ([]FactCheckResult, error) {
	return nil, nil
}

// NoopVideoSearch always reports no cross-reference hits.
type NoopVideoSearch struct{}

func (NoopVideoSearch) Search(ctx context.Context, query string) ([]VideoHit, error) {
	return nil, nil
}
