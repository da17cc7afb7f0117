package sources

import "context"

type stubAI struct {
	extraction ClaimExtraction
	extractErr error
	queries    []string
	narrative  NarrativeResult
}

func (s stubAI) ExtractClaims(ctx context.Context, reportText, caseID string) (ClaimExtraction, error) {
	return s.extraction, s.extractErr
}

func (s stubAI) GenerateSearchQueries(ctx context.Context, claims []string) ([]string, error) {
	return s.queries, nil
}

func (s stubAI) GenerateNarrative(ctx context.Context, in NarrativeInput) (NarrativeResult, error) {
	return s.narrative, nil
}

type stubFactCheck struct {
	results []FactCheckResult
}

func (s stubFactCheck) SearchClaims(ctx context.Context, statement string) ([]FactCheckResult, error) {
	return s.results, nil
}

type stubHasher struct {
	hash string
	err  error
}

func (s stubHasher) Phash(ctx context.Context, mediaURL string) (string, error) {
	return s.hash, s.err
}

type stubForensics struct {
	forensics ForensicsResult
	err       error
}

func (s stubForensics) Analyze(ctx context.Context, mediaURL string) (ForensicsResult, error) {
	return s.forensics, s.err
}

type stubVideoSearch struct {
	hits []VideoHit
}

func (s stubVideoSearch) Search(ctx context.Context, query string) ([]VideoHit, error) {
	return s.hits, nil
}
