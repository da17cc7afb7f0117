package graph

import (
	"strings"

	"github.com/google/uuid"
)

// shortID returns prefix-{first 12 uppercase hex chars of a random uuid},
// matching utils/ids.py's generate_node_id convention.
func shortID(prefix string) string {
	hex := strings.ReplaceAll(uuid.New().String(), "-", "")
	return prefix + "-" + strings.ToUpper(hex[:12])
}

// NewNodeID allocates an id for a node of the given kind.
func NewNodeID(kind NodeKind) string {
	return shortID(kind.idPrefix())
}

// NewEdgeID allocates an id for an edge. Edges share the report-adjacent "E"
// letter convention of the original but are never confused with
// external_source node ids because callers only compare full ids, never bare
// prefixes.
func NewEdgeID() string {
	return shortID("EDGE")
}

// NewCaseID allocates a human-scannable case identifier.
func NewCaseID() string {
	return "CASE-" + strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
}

// NewAlertID allocates an alert identifier.
func NewAlertID() string {
	return shortID("ALT")
}
