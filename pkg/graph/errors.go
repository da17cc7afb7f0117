package graph

import "errors"

// Sentinel errors for the invalid-mutation taxonomy (spec.md §7). Callers
// classify with errors.Is; the store never panics on caller-supplied bad
// input.
var (
	ErrCaseIDMissing  = errors.New("graph: case_id is required")
	ErrDuplicateNode  = errors.New("graph: node id already exists")
	ErrDuplicateEdge  = errors.New("graph: edge id already exists")
	ErrNodeNotFound   = errors.New("graph: node not found")
	ErrEdgeNotFound   = errors.New("graph: edge not found")
	ErrCaseNotFound   = errors.New("graph: case not found")
	ErrCrossCaseEdge  = errors.New("graph: edge endpoints belong to different cases")
	ErrUnknownNodeRef = errors.New("graph: edge references an unknown node")
	ErrInvalidKind    = errors.New("graph: unrecognised node or edge kind")
	ErrReportIDMissing = errors.New("graph: report_id is required")
	ErrDuplicateReport = errors.New("graph: report id already exists")
)
