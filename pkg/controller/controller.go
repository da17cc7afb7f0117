package controller

import (
	"container/heap"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/campusafe/blackboard/internal/logging"
)

// DefaultMaxTriggersPerCase is the anti-loop cap: once a case has been
// re-triggered this many times over its lifetime, Notify stops scheduling
// any further work for it (spec.md §4.3).
const DefaultMaxTriggersPerCase = 10

// DefaultCooldown is applied to a source that registers without an explicit
// cooldown.
const DefaultCooldown = 1 * time.Second

// DefaultHandlerTimeout bounds a single handler invocation.
const DefaultHandlerTimeout = 30 * time.Second

// Config holds the tunable options recognised by the controller (spec.md
// §6): max_triggers_per_case, default_cooldown_seconds,
// handler_timeout_seconds, worker_concurrency.
type Config struct {
	MaxTriggersPerCase int
	DefaultCooldown    time.Duration
	HandlerTimeout     time.Duration
	WorkerConcurrency  int
}

func (c Config) withDefaults() Config {
	if c.MaxTriggersPerCase <= 0 {
		c.MaxTriggersPerCase = DefaultMaxTriggersPerCase
	}
	if c.DefaultCooldown <= 0 {
		c.DefaultCooldown = DefaultCooldown
	}
	if c.HandlerTimeout <= 0 {
		c.HandlerTimeout = DefaultHandlerTimeout
	}
	if c.WorkerConcurrency <= 0 {
		c.WorkerConcurrency = 1
	}
	return c
}

// Controller is the blackboard's scheduler: it classifies incoming events
// against registered sources, deduplicates and rate-limits, and dispatches
// runnable tasks to a small worker pool in strict priority/FIFO order.
type Controller struct {
	cfg Config
	log *logging.Logger

	mu            sync.Mutex
	sources       map[string]*Source
	active        map[string]bool          // key: source+"|"+caseID
	lastRun       map[string]time.Time     // key: source+"|"+caseID
	triggerCounts map[string]int           // key: caseID
	queue         taskHeap
	seq           uint64
	cond          *sync.Cond

	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool
}

// New constructs a Controller. Call Register for each knowledge source, then
// Start before feeding it Notify calls.
func New(cfg Config) *Controller {
	c := &Controller{
		cfg:           cfg.withDefaults(),
		log:           logging.New("controller"),
		sources:       make(map[string]*Source),
		active:        make(map[string]bool),
		lastRun:       make(map[string]time.Time),
		triggerCounts: make(map[string]int),
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Register adds a knowledge source. Not safe to call after Start.
func (c *Controller) Register(s Source) {
	c.mu.Lock()
	defer c.mu.Unlock()
	src := s
	c.sources[src.Name] = &src
}

// Start launches the worker pool.
func (c *Controller) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	for i := 0; i < c.cfg.WorkerConcurrency; i++ {
		c.wg.Add(1)
		go c.worker(ctx)
	}
	c.log.Event("controller.started", map[string]interface{}{"workers": c.cfg.WorkerConcurrency})
}

// Stop cancels every worker and waits for in-flight handlers to return.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}
	c.cond.Broadcast()
	c.wg.Wait()
	c.log.Event("controller.stopped", nil)
}

func activeKey(source, caseID string) string {
	return source + "|" + caseID
}

// Notify classifies a mutation event against every registered source and
// schedules the ones that should fire. It is intended to be called
// synchronously from the graph store's mutation pipeline (spec.md invariant
// 3): it never blocks on a handler, only on the internal queue mutex.
func (c *Controller) Notify(eventType, caseID string, payload map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.triggerCounts[caseID] >= c.cfg.MaxTriggersPerCase {
		c.log.Warn("controller.anti_loop_cap_reached", map[string]interface{}{
			"case_id": caseID,
			"cap":     c.cfg.MaxTriggersPerCase,
		})
		return
	}

	now := time.Now()
	for _, src := range c.sources {
		if !src.canFire(eventType, payload) {
			continue
		}
		key := activeKey(src.Name, caseID)
		if c.active[key] {
			continue
		}
		cooldown := c.cfg.DefaultCooldown
		if src.Cooldown > 0 {
			cooldown = time.Duration(src.Cooldown * float64(time.Second))
		}
		if last, ok := c.lastRun[key]; ok && now.Sub(last) < cooldown {
			continue
		}

		c.active[key] = true
		c.triggerCounts[caseID]++
		c.seq++
		heap.Push(&c.queue, &queuedTask{
			priority: src.Priority,
			seq:      c.seq,
			source:   src.Name,
			caseID:   caseID,
			payload:  payload,
		})
		c.log.Event("controller.scheduled", map[string]interface{}{
			"source":       src.Name,
			"case_id":      caseID,
			"event_type":   eventType,
			"trigger_count": c.triggerCounts[caseID],
		})
	}
	c.cond.Broadcast()
}

// ResetCaseTriggers clears the anti-loop counter for a case, letting it be
// re-triggered up to the cap again. Nothing in this engine calls it
// automatically; it exists as a documented seam for a caller that tracks
// case idleness.
func (c *Controller) ResetCaseTriggers(caseID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.triggerCounts, caseID)
}

func (c *Controller) worker(ctx context.Context) {
	defer c.wg.Done()
	for {
		task, ok := c.next(ctx)
		if !ok {
			return
		}
		c.execute(ctx, task)
	}
}

// next blocks until a task is available, the controller is stopped, or ctx
// is cancelled.
func (c *Controller) next(ctx context.Context) (*queuedTask, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.queue.Len() == 0 {
		if c.closed || ctx.Err() != nil {
			return nil, false
		}
		c.cond.Wait()
	}
	if c.closed || ctx.Err() != nil {
		return nil, false
	}
	task := heap.Pop(&c.queue).(*queuedTask)
	return task, true
}

// execute runs one task's handler and then, regardless of outcome, records
// last_run_time and clears the active flag (spec.md §4.3's guaranteed-
// execute bookkeeping order: handler first, bookkeeping after).
func (c *Controller) execute(ctx context.Context, task *queuedTask) {
	c.mu.Lock()
	src, ok := c.sources[task.source]
	c.mu.Unlock()
	if !ok {
		return
	}

	hctx, cancel := context.WithTimeout(ctx, c.cfg.HandlerTimeout)
	defer cancel()

	start := time.Now()
	err := c.runHandler(hctx, src, task)
	duration := time.Since(start)

	c.mu.Lock()
	key := activeKey(task.source, task.caseID)
	c.lastRun[key] = time.Now()
	delete(c.active, key)
	c.mu.Unlock()

	fields := map[string]interface{}{
		"source":      task.source,
		"case_id":     task.caseID,
		"duration_ms": duration.Milliseconds(),
	}
	if err != nil {
		c.log.Error("controller.handler_failed", err, fields)
		return
	}
	c.log.Event("controller.handler_completed", fields)
}

func (c *Controller) runHandler(ctx context.Context, src *Source, task *queuedTask) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("knowledge source %s panicked: %v", src.Name, r)
		}
	}()
	return src.Handler(ctx, task.caseID, task.payload)
}
