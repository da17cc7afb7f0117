// Package graph owns the authoritative in-process knowledge graph for a case:
// nodes, edges, per-case indexes and case metadata. Every mutation produces a
// MutationRecord delivered synchronously to subscribers and to the blackboard
// controller, in that order.
package graph

import "time"

// NodeKind identifies the role a node plays on the board.
type NodeKind string

const (
	NodeKindReport         NodeKind = "report"
	NodeKindExternalSource NodeKind = "external_source"
	NodeKindFactCheck      NodeKind = "fact_check"
	NodeKindMediaVariant   NodeKind = "media_variant"
)

// idPrefix returns the short id prefix for a node kind (R-, E-, F-, M-).
func (k NodeKind) idPrefix() string {
	switch k {
	case NodeKindReport:
		return "R"
	case NodeKindExternalSource:
		return "E"
	case NodeKindFactCheck:
		return "F"
	case NodeKindMediaVariant:
		return "M"
	default:
		return "N"
	}
}

// EdgeKind identifies the relationship an edge expresses between two nodes.
type EdgeKind string

const (
	EdgeKindSimilarTo   EdgeKind = "similar_to"
	EdgeKindRepostOf    EdgeKind = "repost_of"
	EdgeKindMutationOf  EdgeKind = "mutation_of"
	EdgeKindDebunkedBy  EdgeKind = "debunked_by"
	EdgeKindAmplifiedBy EdgeKind = "amplified_by"
)

// Location is a free-text or lat/lng location reported alongside a tip.
type Location struct {
	Lat      *float64 `json:"lat,omitempty"`
	Lng      *float64 `json:"lng,omitempty"`
	Building string   `json:"building,omitempty"`
}

// Data is the free-form, per-kind payload carried by a node. The fields the
// core reads are named explicitly; everything else rides along in Extra so
// that knowledge sources can stash kind-specific detail without the store
// needing to know about it (spec.md §9 design note).
type Data struct {
	TextBody               string         `json:"text_body,omitempty"`
	Timestamp              *time.Time     `json:"timestamp,omitempty"`
	Location               *Location      `json:"location,omitempty"`
	Claims                 []Claim        `json:"claims,omitempty"`
	Urgency                *float64       `json:"urgency,omitempty"`
	MediaURL               string         `json:"media_url,omitempty"`
	Phash                  string         `json:"phash,omitempty"`
	DebunkCount            *int           `json:"debunk_count,omitempty"`
	SemanticRole           string         `json:"semantic_role,omitempty"`
	SearchQuery            string         `json:"search_query,omitempty"`
	VideoXref              []VideoXref    `json:"video_xref,omitempty"`
	CaseNarrative          string         `json:"case_narrative,omitempty"`
	OriginAnalysis         string         `json:"origin_analysis,omitempty"`
	SpreadMap              string         `json:"spread_map,omitempty"`
	RecommendedAction      string         `json:"recommended_action,omitempty"`
	ConfidenceScore        *float64       `json:"confidence_score,omitempty"`
	MisinformationFlags    []string       `json:"misinformation_flags,omitempty"`
	SuggestedVerifications []string       `json:"suggested_verifications,omitempty"`
	Extra                  map[string]any `json:"extra,omitempty"`
}

// Claim is one factual assertion extracted from a report's free text.
type Claim struct {
	Statement string `json:"statement"`
}

// VideoXref is a single cross-referenced video search hit attached to a report.
type VideoXref struct {
	SearchQuery string `json:"search_query"`
	Platform    string `json:"platform"`
	URL         string `json:"url"`
	Status      string `json:"status"`
}

// Merge overlays patch onto d, keeping every field patch leaves at its zero
// value and overwriting every field patch sets. Extra keys are merged
// key-by-key so unspecified keys survive (spec.md invariant 4).
func (d Data) Merge(patch Data) Data {
	out := d
	if patch.TextBody != "" {
		out.TextBody = patch.TextBody
	}
	if patch.Timestamp != nil {
		out.Timestamp = patch.Timestamp
	}
	if patch.Location != nil {
		out.Location = patch.Location
	}
	if patch.Claims != nil {
		out.Claims = patch.Claims
	}
	if patch.Urgency != nil {
		out.Urgency = patch.Urgency
	}
	if patch.MediaURL != "" {
		out.MediaURL = patch.MediaURL
	}
	if patch.Phash != "" {
		out.Phash = patch.Phash
	}
	if patch.DebunkCount != nil {
		out.DebunkCount = patch.DebunkCount
	}
	if patch.SemanticRole != "" {
		out.SemanticRole = patch.SemanticRole
	}
	if patch.SearchQuery != "" {
		out.SearchQuery = patch.SearchQuery
	}
	if patch.VideoXref != nil {
		out.VideoXref = patch.VideoXref
	}
	if patch.CaseNarrative != "" {
		out.CaseNarrative = patch.CaseNarrative
	}
	if patch.OriginAnalysis != "" {
		out.OriginAnalysis = patch.OriginAnalysis
	}
	if patch.SpreadMap != "" {
		out.SpreadMap = patch.SpreadMap
	}
	if patch.RecommendedAction != "" {
		out.RecommendedAction = patch.RecommendedAction
	}
	if patch.ConfidenceScore != nil {
		out.ConfidenceScore = patch.ConfidenceScore
	}
	if patch.MisinformationFlags != nil {
		out.MisinformationFlags = patch.MisinformationFlags
	}
	if patch.SuggestedVerifications != nil {
		out.SuggestedVerifications = patch.SuggestedVerifications
	}
	if len(patch.Extra) > 0 {
		merged := make(map[string]any, len(out.Extra)+len(patch.Extra))
		for k, v := range out.Extra {
			merged[k] = v
		}
		for k, v := range patch.Extra {
			merged[k] = v
		}
		out.Extra = merged
	}
	return out
}

// Node is a single vertex on the case board.
type Node struct {
	ID        string    `json:"id"`
	Kind      NodeKind  `json:"kind"`
	CaseID    string    `json:"case_id"`
	Data      Data      `json:"data"`
	CreatedAt time.Time `json:"created_at"`
}

// Edge is a directed, typed relationship between two nodes in the same case.
type Edge struct {
	ID           string         `json:"id"`
	Kind         EdgeKind       `json:"kind"`
	SourceNodeID string         `json:"source_node_id"`
	TargetNodeID string         `json:"target_node_id"`
	CaseID       string         `json:"case_id"`
	Data         map[string]any `json:"data,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// CaseMetadata is the optional, free-form descriptive overlay for a case
// (label, status, summary, ...). Unset fields never override a derived
// snapshot value.
type CaseMetadata struct {
	Label     string `json:"label,omitempty"`
	Status    string `json:"status,omitempty"`
	Summary   string `json:"summary,omitempty"`
	Location  string `json:"location,omitempty"`
	Story     string `json:"story,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// CaseSnapshot is the full picture of one case: every node and edge sharing
// its case_id, plus derived and overridden descriptive fields.
type CaseSnapshot struct {
	CaseID      string `json:"case_id"`
	Label       string `json:"label"`
	Status      string `json:"status"`
	Summary     string `json:"summary"`
	Location    string `json:"location"`
	Story       string `json:"story"`
	UpdatedAt   string `json:"updated_at"`
	NodeCount   int    `json:"node_count"`
	EdgeCount   int    `json:"edge_count"`
	ReportCount int    `json:"report_count"`
	Nodes       []Node `json:"nodes"`
	Edges       []Edge `json:"edges"`
}

// CaseSummary is the lightweight entry returned by AllCases.
type CaseSummary struct {
	CaseID      string       `json:"case_id"`
	NodeCount   int          `json:"node_count"`
	EdgeCount   int          `json:"edge_count"`
	ReportCount int          `json:"report_count"`
	Metadata    CaseMetadata `json:"metadata"`
}

// MutationKind discriminates the MutationRecord variants of spec.md §3.
type MutationKind string

const (
	MutationAddNode    MutationKind = "add_node"
	MutationAddEdge    MutationKind = "add_edge"
	MutationUpdateNode MutationKind = "update_node"
)

// MutationRecord is the tagged value produced atomically with every graph
// change. Exactly one is produced per mutation (spec.md invariant 3) and
// delivered first to caseboard subscribers, then to the controller.
type MutationRecord struct {
	Kind MutationKind
	Node *Node // set for AddNode and UpdateNode (post-merge node)
	Edge *Edge // set for AddEdge
}

// EventType derives the controller trigger event type from a mutation record
// (spec.md §4.2 "Event type derivation"), without mutating the record.
func (m MutationRecord) EventType() string {
	switch m.Kind {
	case MutationAddNode:
		return "node:" + string(m.Node.Kind)
	case MutationAddEdge:
		return "edge:" + string(m.Edge.Kind)
	case MutationUpdateNode:
		return "update:" + string(m.Node.Kind)
	default:
		return ""
	}
}

// CaseID returns the case this mutation belongs to, used by the controller
// to route trigger bookkeeping per case.
func (m MutationRecord) CaseID() string {
	switch m.Kind {
	case MutationAddNode, MutationUpdateNode:
		if m.Node != nil {
			return m.Node.CaseID
		}
	case MutationAddEdge:
		if m.Edge != nil {
			return m.Edge.CaseID
		}
	}
	return ""
}
