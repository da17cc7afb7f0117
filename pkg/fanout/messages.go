package fanout

import (
	"time"

	"github.com/campusafe/blackboard/pkg/graph"
)

// GraphUpdateMessage renders a mutation record as the caseboard stream's
// wire message: {"type":"graph_update","action":...,"payload":...}.
func GraphUpdateMessage(rec graph.MutationRecord) Message {
	var action string
	var payload any
	switch rec.Kind {
	case graph.MutationAddNode:
		action = "add_node"
		payload = rec.Node
	case graph.MutationUpdateNode:
		action = "update_node"
		payload = rec.Node
	case graph.MutationAddEdge:
		action = "add_edge"
		payload = rec.Edge
	}
	return Message{
		Kind:      "graph_update",
		Action:    action,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// SnapshotMessage renders the one-time initial snapshot sent to a caseboard
// subscriber on connect: {"type":"snapshot","payload":[...]}.
func SnapshotMessage(cases []graph.CaseSummary) Message {
	return Message{
		Kind:      "snapshot",
		Payload:   cases,
		Timestamp: time.Now().UTC(),
	}
}

// NewAlertMessage renders an alert as the alert stream's wire message:
// {"type":"new_alert","alert":...}.
func NewAlertMessage(alert any) Message {
	return Message{
		Kind:      "new_alert",
		Alert:     alert,
		Timestamp: time.Now().UTC(),
	}
}
