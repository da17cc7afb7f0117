// Package engine wires the graph store, event bus, subscriber fan-out, and
// blackboard controller into the running Blackboard Orchestration Engine
// (spec.md §2's composition order).
package engine

import (
	"context"
	"time"

	"github.com/campusafe/blackboard/internal/config"
	"github.com/campusafe/blackboard/internal/logging"
	"github.com/campusafe/blackboard/pkg/alert"
	"github.com/campusafe/blackboard/pkg/controller"
	"github.com/campusafe/blackboard/pkg/eventbus"
	"github.com/campusafe/blackboard/pkg/fanout"
	"github.com/campusafe/blackboard/pkg/graph"
	"github.com/campusafe/blackboard/pkg/sources"
)

// Engine owns every core component and their wiring for one running
// instance of the blackboard.
type Engine struct {
	Store      *graph.Store
	Fanout     *fanout.Fanout
	Controller *controller.Controller
	Bus        *eventbus.Bus
	Alerts     alert.Store

	log *logging.Logger
}

func seconds(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}

// New constructs a fully wired Engine. Call Run to start it.
func New(cfg *config.EngineConfig, deps sources.Deps, alerts alert.Store) *Engine {
	store := graph.NewStore()
	fan := fanout.New(seconds(*cfg.FanoutSendTimeoutSecond))
	ctrl := controller.New(controller.Config{
		MaxTriggersPerCase: *cfg.MaxTriggersPerCase,
		DefaultCooldown:    seconds(*cfg.DefaultCooldownSeconds),
		HandlerTimeout:     seconds(*cfg.HandlerTimeoutSeconds),
		WorkerConcurrency:  *cfg.WorkerConcurrency,
	})
	sources.Register(ctrl, store, deps)
	bus := eventbus.New(0)

	if alerts == nil {
		alerts = alert.NewMemoryStore(100)
	}

	e := &Engine{
		Store:      store,
		Fanout:     fan,
		Controller: ctrl,
		Bus:        bus,
		Alerts:     alerts,
		log:        logging.New("engine"),
	}

	// Fan-out is subscribed before the controller so every caseboard
	// subscriber observes a mutation before the controller reacts to it —
	// order matters only for observability, not correctness, but matches
	// spec.md §4.5's stated composition.
	store.Subscribe(func(rec graph.MutationRecord) {
		fan.Caseboard.Publish(fanout.GraphUpdateMessage(rec))
	})
	store.Subscribe(func(rec graph.MutationRecord) {
		ctrl.Notify(rec.EventType(), rec.CaseID(), buildPayload(rec))
	})

	return e
}

// buildPayload projects a mutation record into the flat map the controller
// hands to Condition and Handler functions.
func buildPayload(rec graph.MutationRecord) map[string]any {
	payload := map[string]any{}
	switch rec.Kind {
	case graph.MutationAddNode, graph.MutationUpdateNode:
		n := rec.Node
		payload["node_id"] = n.ID
		payload["node_kind"] = string(n.Kind)
		payload["media_url"] = n.Data.MediaURL
		payload["claims"] = n.Data.Claims
	case graph.MutationAddEdge:
		e := rec.Edge
		payload["edge_id"] = e.ID
		payload["source_node_id"] = e.SourceNodeID
		payload["target_node_id"] = e.TargetNodeID
	}
	return payload
}

// Run starts the event bus and controller and blocks until ctx is
// cancelled, then shuts both down in reverse order.
func (e *Engine) Run(ctx context.Context) {
	e.Bus.Start(ctx)
	e.Controller.Start(ctx)
	e.log.Event("engine.started", nil)

	<-ctx.Done()

	e.Controller.Stop()
	e.Bus.Stop()
	e.log.Event("engine.stopped", nil)
}

// SubmitReport ingests a new tip as a report node, the entry point that
// drives the rest of the reactive pipeline. Beyond the node itself, it
// records the report in the store's per-case report index and raw-payload
// map (spec.md §4.2's add_report), and emits a ReportReceived event on the
// bus for any non-graph observer.
func (e *Engine) SubmitReport(caseID string, data graph.Data) (*graph.Node, error) {
	node, err := e.Store.AddNode(graph.NodeKindReport, caseID, data)
	if err != nil {
		return nil, err
	}
	if err := e.Store.AddReport(caseID, node.ID, data, node.ID); err != nil {
		return nil, err
	}
	e.Bus.Emit("ReportReceived", eventbus.Payload{
		"case_id":   caseID,
		"report_id": node.ID,
		"node_id":   node.ID,
	})
	return node, nil
}

// LinkNode adds a manual edge between two nodes in the same case and emits
// an edge:created event on the bus, matching spec.md §4.1's example of a
// non-graph domain event ("edge:created after a manual link").
func (e *Engine) LinkNode(kind graph.EdgeKind, sourceNodeID, targetNodeID, caseID string, data map[string]any) (*graph.Edge, error) {
	edge, err := e.Store.AddEdge(kind, sourceNodeID, targetNodeID, caseID, data)
	if err != nil {
		return nil, err
	}
	e.Bus.Emit("edge:created", eventbus.Payload{
		"edge_id":        edge.ID,
		"kind":           string(edge.Kind),
		"source_node_id": edge.SourceNodeID,
		"target_node_id": edge.TargetNodeID,
		"case_id":        caseID,
	})
	return edge, nil
}

// SubscribeCaseboard registers a caseboard subscriber and immediately
// delivers a snapshot of every known case, so two subscribers that connect
// with no mutation in between observe an identical initial picture
// (spec.md §4.5).
func (e *Engine) SubscribeCaseboard(sub fanout.Subscriber) int64 {
	id := e.Fanout.Caseboard.Subscribe(sub)
	_ = sub.Send(fanout.SnapshotMessage(e.Store.AllCases()))
	return id
}

// PublishAlert records an alert to the AlertHistory cache and pushes it to
// every current alert-stream subscriber. Composing the alert body itself is
// out of the engine's scope (spec.md §6); callers pass a finished Alert.
func (e *Engine) PublishAlert(ctx context.Context, a alert.Alert) error {
	if err := e.Alerts.Record(ctx, a); err != nil {
		e.log.Error("engine.alert_record_failed", err, map[string]interface{}{"alert_id": a.ID})
	}
	e.Fanout.Alerts.Publish(fanout.NewAlertMessage(a))
	return nil
}
