package controller

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	require.True(t, cond(), "condition not met within %s", timeout)
}

func TestNotifySchedulesMatchingSources(t *testing.T) {
	c := New(Config{WorkerConcurrency: 1})
	var calls int32
	c.Register(Source{
		Name:              "clustering",
		TriggerEventTypes: []string{"node:report"},
		Priority:          PriorityHigh,
		Handler: func(ctx context.Context, caseID string, payload map[string]any) error {
			atomic.AddInt32(&calls, 1)
			return nil
		},
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)
	defer c.Stop()

	c.Notify("node:report", "CASE-1", map[string]any{})
	waitFor(t, time.Second, func() bool { return atomic.LoadInt32(&calls) == 1 })
}

func TestNotifyIgnoresNonMatchingEventTypes(t *testing.T) {
	c := New(Config{WorkerConcurrency: 1})
	var calls int32
	c.Register(Source{
		Name:              "forensics",
		TriggerEventTypes: []string{"node:media_variant"},
		Handler: func(context.Context, string, map[string]any) error {
			atomic.AddInt32(&calls, 1)
			return nil
		},
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)
	defer c.Stop()

	c.Notify("node:report", "CASE-1", map[string]any{})
	time.Sleep(20 * time.Millisecond)
	assert.EqualValues(t, 0, atomic.LoadInt32(&calls))
}

func TestConditionGatesFiring(t *testing.T) {
	c := New(Config{WorkerConcurrency: 1})
	var calls int32
	c.Register(Source{
		Name:              "forensics",
		TriggerEventTypes: []string{"node:report"},
		Condition: func(payload map[string]any) bool {
			_, hasMedia := payload["media_url"]
			return hasMedia
		},
		Handler: func(context.Context, string, map[string]any) error {
			atomic.AddInt32(&calls, 1)
			return nil
		},
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)
	defer c.Stop()

	c.Notify("node:report", "CASE-1", map[string]any{})
	time.Sleep(20 * time.Millisecond)
	assert.EqualValues(t, 0, atomic.LoadInt32(&calls))

	c.Notify("node:report", "CASE-1", map[string]any{"media_url": "http://x"})
	waitFor(t, time.Second, func() bool { return atomic.LoadInt32(&calls) == 1 })
}

func TestCooldownSuppressesRepeatedTriggers(t *testing.T) {
	c := New(Config{WorkerConcurrency: 1, DefaultCooldown: 50 * time.Millisecond})
	var calls int32
	c.Register(Source{
		Name:              "network",
		TriggerEventTypes: []string{"node:report"},
		Handler: func(context.Context, string, map[string]any) error {
			atomic.AddInt32(&calls, 1)
			return nil
		},
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)
	defer c.Stop()

	c.Notify("node:report", "CASE-1", map[string]any{})
	waitFor(t, time.Second, func() bool { return atomic.LoadInt32(&calls) == 1 })

	c.Notify("node:report", "CASE-1", map[string]any{})
	time.Sleep(20 * time.Millisecond)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls), "second trigger within cooldown window must be suppressed")

	time.Sleep(60 * time.Millisecond)
	c.Notify("node:report", "CASE-1", map[string]any{})
	waitFor(t, time.Second, func() bool { return atomic.LoadInt32(&calls) == 2 })
}

func TestDedupSkipsWhileAlreadyActive(t *testing.T) {
	c := New(Config{WorkerConcurrency: 1})
	release := make(chan struct{})
	var calls int32
	c.Register(Source{
		Name:              "slow",
		TriggerEventTypes: []string{"node:report"},
		Cooldown:          0.001,
		Handler: func(context.Context, string, map[string]any) error {
			atomic.AddInt32(&calls, 1)
			<-release
			return nil
		},
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)
	defer c.Stop()

	c.Notify("node:report", "CASE-1", map[string]any{})
	waitFor(t, time.Second, func() bool { return atomic.LoadInt32(&calls) == 1 })

	// Second notify arrives while the first invocation is still running
	// (blocked on release): the source is "active" for this case and must
	// be skipped, not queued a second time.
	c.Notify("node:report", "CASE-1", map[string]any{})
	time.Sleep(20 * time.Millisecond)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
	close(release)
}

func TestAntiLoopCapStopsSchedulingAfterLimit(t *testing.T) {
	c := New(Config{WorkerConcurrency: 1, MaxTriggersPerCase: 3, DefaultCooldown: time.Microsecond})
	var calls int32
	c.Register(Source{
		Name:              "pathological",
		TriggerEventTypes: []string{"node:report"},
		Handler: func(context.Context, string, map[string]any) error {
			atomic.AddInt32(&calls, 1)
			return nil
		},
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)
	defer c.Stop()

	for i := 0; i < 10; i++ {
		c.Notify("node:report", "CASE-1", map[string]any{})
		time.Sleep(2 * time.Millisecond)
	}

	time.Sleep(20 * time.Millisecond)
	assert.LessOrEqual(t, int(atomic.LoadInt32(&calls)), 3)
}

func TestFIFOTieBreakAtEqualPriority(t *testing.T) {
	c := New(Config{WorkerConcurrency: 1})
	var mu sync.Mutex
	var order []string
	block := make(chan struct{})

	register := func(name, eventType string) {
		c.Register(Source{
			Name:              name,
			TriggerEventTypes: []string{eventType},
			Priority:          PriorityMedium,
			Cooldown:          0.0001,
			Handler: func(context.Context, string, map[string]any) error {
				<-block
				mu.Lock()
				order = append(order, name)
				mu.Unlock()
				return nil
			},
		})
	}
	// Each source reacts to a distinct event type so each Notify call below
	// schedules exactly one task, letting the test control seq assignment
	// order without depending on Go's randomized map iteration order.
	register("a", "evt:a")
	register("b", "evt:b")
	register("c", "evt:c")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)
	defer c.Stop()

	// The single worker blocks on the first task's handler until we close
	// block, so all three get enqueued before any of them runs, exercising
	// heap ordering rather than scheduling luck.
	c.Notify("evt:a", "CASE-1", map[string]any{})
	time.Sleep(5 * time.Millisecond)
	c.Notify("evt:b", "CASE-1", map[string]any{})
	c.Notify("evt:c", "CASE-1", map[string]any{})
	time.Sleep(5 * time.Millisecond)
	close(block)

	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 3
	})
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestResetCaseTriggersAllowsFurtherScheduling(t *testing.T) {
	c := New(Config{WorkerConcurrency: 1, MaxTriggersPerCase: 1, DefaultCooldown: time.Microsecond})
	var calls int32
	c.Register(Source{
		Name:              "x",
		TriggerEventTypes: []string{"node:report"},
		Handler: func(context.Context, string, map[string]any) error {
			atomic.AddInt32(&calls, 1)
			return nil
		},
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)
	defer c.Stop()

	c.Notify("node:report", "CASE-1", map[string]any{})
	waitFor(t, time.Second, func() bool { return atomic.LoadInt32(&calls) == 1 })

	c.Notify("node:report", "CASE-1", map[string]any{})
	time.Sleep(10 * time.Millisecond)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls), "cap reached, further notifies dropped")

	c.ResetCaseTriggers("CASE-1")
	c.Notify("node:report", "CASE-1", map[string]any{})
	waitFor(t, time.Second, func() bool { return atomic.LoadInt32(&calls) == 2 })
}
