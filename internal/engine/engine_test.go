package engine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusafe/blackboard/internal/config"
	"github.com/campusafe/blackboard/pkg/alert"
	"github.com/campusafe/blackboard/pkg/controller"
	"github.com/campusafe/blackboard/pkg/eventbus"
	"github.com/campusafe/blackboard/pkg/fanout"
	"github.com/campusafe/blackboard/pkg/graph"
	"github.com/campusafe/blackboard/pkg/sources"
)

type stubAI struct{}

func (stubAI) ExtractClaims(ctx context.Context, reportText, caseID string) (sources.ClaimExtraction, error) {
	return sources.ClaimExtraction{}, nil
}
func (stubAI) GenerateSearchQueries(ctx context.Context, claims []string) ([]string, error) {
	return nil, nil
}
func (stubAI) GenerateNarrative(ctx context.Context, in sources.NarrativeInput) (sources.NarrativeResult, error) {
	return sources.NarrativeResult{}, nil
}

type stubFactCheck struct{}

func (stubFactCheck) SearchClaims(ctx context.Context, statement string) ([]sources.FactCheckResult, error) {
	return nil, nil
}

func testConfig(t *testing.T) *config.EngineConfig {
	t.Helper()
	max := 10
	cooldown := 0.02
	timeout := 5.0
	fanoutTimeout := 0.2
	workers := 1
	return &config.EngineConfig{
		MaxTriggersPerCase:      &max,
		DefaultCooldownSeconds:  &cooldown,
		HandlerTimeoutSeconds:   &timeout,
		FanoutSendTimeoutSecond: &fanoutTimeout,
		WorkerConcurrency:       &workers,
	}
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	deps := sources.Deps{AI: stubAI{}, FactCheck: stubFactCheck{}}
	e := New(testConfig(t), deps, alert.NewMemoryStore(10))
	return e
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	require.True(t, cond(), "condition not met within %s", timeout)
}

// Scenario 1: a single report with no media produces no forensics side
// effects and no crash.
func TestScenarioSingleReportNoMedia(t *testing.T) {
	e := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	report, err := e.SubmitReport("CASE-1", graph.Data{TextBody: "a suspicious noise near lot C"})
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	nodes := e.Store.NodesInCase("CASE-1")
	for _, n := range nodes {
		assert.NotEqual(t, graph.NodeKindMediaVariant, n.Kind, "no media means no media_variant node")
	}
	assert.Equal(t, report.ID, nodes[0].ID)
}

// SubmitReport records the report in the store's report index and emits a
// ReportReceived event, beyond just creating the node.
func TestSubmitReportRecordsIndexAndEmitsEvent(t *testing.T) {
	e := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	var received atomic.Bool
	e.Bus.On("ReportReceived", func(ctx context.Context, payload eventbus.Payload) error {
		received.Store(true)
		return nil
	})

	report, err := e.SubmitReport("CASE-1", graph.Data{TextBody: "a suspicious noise near lot C"})
	require.NoError(t, err)

	assert.Equal(t, []string{report.ID}, e.Store.ReportIDsInCase("CASE-1"))
	payload, ok := e.Store.GetReportPayload(report.ID)
	require.True(t, ok)
	assert.Equal(t, "a suspicious noise near lot C", payload.TextBody)

	waitFor(t, time.Second, func() bool { return received.Load() })
}

// LinkNode records a manual edge and emits an edge:created event, the bus's
// other named use beyond ReportReceived.
func TestLinkNodeEmitsEdgeCreated(t *testing.T) {
	e := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	a, err := e.SubmitReport("CASE-1", graph.Data{TextBody: "first tip"})
	require.NoError(t, err)
	b, err := e.SubmitReport("CASE-1", graph.Data{TextBody: "second tip"})
	require.NoError(t, err)

	var gotEdgeID string
	e.Bus.On("edge:created", func(ctx context.Context, payload eventbus.Payload) error {
		gotEdgeID, _ = payload["edge_id"].(string)
		return nil
	})

	edge, err := e.LinkNode(graph.EdgeKindSimilarTo, a.ID, b.ID, "CASE-1", nil)
	require.NoError(t, err)

	waitFor(t, time.Second, func() bool { return gotEdgeID == edge.ID })
}

// Scenario 2: two close, textually similar reports cluster together.
func TestScenarioTwoCloseReportsCluster(t *testing.T) {
	e := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	now := time.Now().UTC()
	lat, lng := 40.1, -75.1
	_, err := e.SubmitReport("CASE-1", graph.Data{
		TextBody:  "suspicious package near the library entrance",
		Timestamp: &now,
		Location:  &graph.Location{Lat: &lat, Lng: &lng},
	})
	require.NoError(t, err)

	later := now.Add(time.Minute)
	lat2, lng2 := lat + 0.0003, lng + 0.0003
	second, err := e.SubmitReport("CASE-1", graph.Data{
		TextBody:  "suspicious package spotted near the library entrance",
		Timestamp: &later,
		Location:  &graph.Location{Lat: &lat2, Lng: &lng2},
	})
	require.NoError(t, err)

	waitFor(t, time.Second, func() bool {
		return len(e.Store.EdgesFrom("CASE-1", second.ID)) > 0
	})
}

// Scenario 3: a debunk edge propagates into a recomputed debunk_count.
func TestScenarioDebunkPropagates(t *testing.T) {
	e := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	report, err := e.SubmitReport("CASE-1", graph.Data{TextBody: "rumor spreading about a lockdown"})
	require.NoError(t, err)
	fc, err := e.Store.AddNode(graph.NodeKindFactCheck, "CASE-1", graph.Data{})
	require.NoError(t, err)
	_, err = e.Store.AddEdge(graph.EdgeKindDebunkedBy, report.ID, fc.ID, "CASE-1", nil)
	require.NoError(t, err)

	waitFor(t, time.Second, func() bool {
		n, err := e.Store.GetNode(report.ID)
		return err == nil && n.Data.DebunkCount != nil && *n.Data.DebunkCount == 1
	})
}

// Scenario 4: a pathological source that always re-triggers itself is
// stopped by the anti-loop cap, not left running forever.
func TestScenarioAntiLoopCapBoundsAPathologicalSource(t *testing.T) {
	e := newTestEngine(t)
	var calls int32
	e.Controller.Register(controller.Source{
		Name:              "pathological",
		TriggerEventTypes: []string{"node:report", "update:report"},
		Cooldown:          0.001,
		Handler: func(ctx context.Context, caseID string, payload map[string]any) error {
			atomic.AddInt32(&calls, 1)
			_, err := e.Store.UpdateNode(payload["node_id"].(string), graph.Data{TextBody: "still spinning"})
			return err
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	report, err := e.SubmitReport("CASE-1", graph.Data{TextBody: "seed"})
	require.NoError(t, err)
	_ = report

	time.Sleep(200 * time.Millisecond)
	assert.LessOrEqual(t, int(atomic.LoadInt32(&calls)), 10, "the anti-loop cap must bound re-triggering")
}

// Scenario 5: a slow caseboard subscriber gets dropped instead of stalling
// delivery to everyone else.
func TestScenarioSlowSubscriberDropped(t *testing.T) {
	e := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	blocked := blockingCaseboardSubscriber{}
	e.Fanout.Caseboard.Subscribe(blocked)

	fast := fanout.NewChannelSubscriber(8)
	e.Fanout.Caseboard.Subscribe(fast)

	_, err := e.SubmitReport("CASE-1", graph.Data{TextBody: "test"})
	require.NoError(t, err)

	waitFor(t, time.Second, func() bool { return len(fast.Ch) > 0 })
	waitFor(t, time.Second, func() bool { return e.Fanout.Caseboard.Count() == 1 })
}

type blockingCaseboardSubscriber struct{}

func (blockingCaseboardSubscriber) Send(fanout.Message) error { select {} }
func (blockingCaseboardSubscriber) Close()                    {}

// Scenario 6: repeated triggers of the same source within its cooldown
// window are suppressed.
func TestScenarioCooldownRespected(t *testing.T) {
	e := newTestEngine(t)
	var calls int32
	e.Controller.Register(controller.Source{
		Name:              "cooldown-probe",
		TriggerEventTypes: []string{"update:report"},
		Cooldown:          1.0,
		Handler: func(ctx context.Context, caseID string, payload map[string]any) error {
			atomic.AddInt32(&calls, 1)
			return nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	report, err := e.SubmitReport("CASE-1", graph.Data{TextBody: "initial"})
	require.NoError(t, err)
	_, err = e.Store.UpdateNode(report.ID, graph.Data{TextBody: "update one"})
	require.NoError(t, err)
	waitFor(t, time.Second, func() bool { return atomic.LoadInt32(&calls) == 1 })

	_, err = e.Store.UpdateNode(report.ID, graph.Data{TextBody: "update two"})
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls), "second update arrives within the cooldown window")
}

// Subscribing twice to the caseboard stream yields identical initial
// snapshots, regardless of how many reports already exist.
func TestSubscribeCaseboardSendsMatchingInitialSnapshots(t *testing.T) {
	e := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	_, err := e.SubmitReport("CASE-1", graph.Data{TextBody: "first tip"})
	require.NoError(t, err)
	waitFor(t, time.Second, func() bool { return len(e.Store.NodesInCase("CASE-1")) == 1 })

	first := fanout.NewChannelSubscriber(4)
	e.SubscribeCaseboard(first)
	second := fanout.NewChannelSubscriber(4)
	e.SubscribeCaseboard(second)

	var firstMsg, secondMsg fanout.Message
	select {
	case firstMsg = <-first.Ch:
	case <-time.After(time.Second):
		t.Fatal("first subscriber never received a snapshot")
	}
	select {
	case secondMsg = <-second.Ch:
	case <-time.After(time.Second):
		t.Fatal("second subscriber never received a snapshot")
	}

	assert.Equal(t, "snapshot", firstMsg.Kind)
	assert.Equal(t, "snapshot", secondMsg.Kind)
	assert.Equal(t, firstMsg.Payload, secondMsg.Payload)
}
