// Package controller implements the blackboard controller: a priority
// scheduler that decides, on every graph mutation, which knowledge sources
// should run next, and runs them with dedup, cooldown, and an anti-loop cap.
// The scheduling algorithm is the Go port of
// original_source/app/pipelines/blackboard_controller.py's
// BlackboardController — a dataclass-ordered (priority, sequence) queue with
// a stable FIFO tie-break, reimplemented over container/heap since Go's heap
// package does not guarantee tie-break order on its own.
package controller

import "context"

// Priority ranks knowledge sources; lower values run first.
type Priority int

const (
	PriorityCritical Priority = iota
	PriorityHigh
	PriorityMedium
	PriorityLow
	PriorityBackground
)

// Handler is a knowledge source's unit of work for one triggering event.
type Handler func(ctx context.Context, caseID string, payload map[string]any) error

// Condition further gates whether a source fires beyond its trigger event
// types — e.g. "only if the report carries a media_url".
type Condition func(payload map[string]any) bool

// Source is a registered knowledge source.
type Source struct {
	Name              string
	TriggerEventTypes []string
	Priority          Priority
	Condition         Condition
	Cooldown          float64 // seconds; 0 means use the controller default
	Handler           Handler
}

func (s Source) matchesEventType(eventType string) bool {
	for _, t := range s.TriggerEventTypes {
		if t == eventType {
			return true
		}
	}
	return false
}

func (s Source) canFire(eventType string, payload map[string]any) bool {
	if !s.matchesEventType(eventType) {
		return false
	}
	if s.Condition != nil && !s.Condition(payload) {
		return false
	}
	return true
}

// queuedTask is one scheduled invocation, ordered by (priority, sequence).
type queuedTask struct {
	priority Priority
	seq      uint64
	source   string
	caseID   string
	payload  map[string]any
}

// taskHeap implements container/heap.Interface, breaking priority ties by
// insertion sequence so equal-priority tasks run strictly FIFO.
type taskHeap []*queuedTask

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority < h[j].priority
	}
	return h[i].seq < h[j].seq
}

func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *taskHeap) Push(x any) {
	*h = append(*h, x.(*queuedTask))
}

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}
