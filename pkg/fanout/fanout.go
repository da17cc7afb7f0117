// Package fanout delivers graph mutations and alerts to subscribers over
// two independent, best-effort streams (spec.md §4.5), the Go port of
// graph_state.py's ConnectionManager. Delivery is in order per subscriber
// and holds the producer for at most the send timeout per subscriber: a
// subscriber whose send fails or does not finish within that timeout is
// dropped from the stream rather than stalling the mutation pipeline.
package fanout

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/campusafe/blackboard/internal/logging"
)

// Message is the wire envelope sent to subscribers. Kind is serialized as
// "type" to match the original service's wire contract.
type Message struct {
	Kind      string    `json:"type"`
	Action    string    `json:"action,omitempty"`
	Payload   any       `json:"payload,omitempty"`
	Alert     any       `json:"alert,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// MarshalMessage renders a Message to its wire JSON form.
func MarshalMessage(m Message) ([]byte, error) {
	return json.Marshal(m)
}

// Subscriber is one connected sink. Send delivers a single message; it
// should not block indefinitely (an HTTP/WS writer typically has its own
// deadline). Close is called once when the fan-out drops the subscriber.
type Subscriber interface {
	Send(Message) error
	Close()
}

// ChannelSubscriber is a Subscriber backed by a bounded, buffered channel —
// the shape used by in-process consumers. Messages are pushed onto Ch; when
// Ch is full, Send fails at once and Stream.Publish drops the subscriber
// rather than blocking the producer.
type ChannelSubscriber struct {
	Ch chan Message
}

// NewChannelSubscriber allocates a ChannelSubscriber with the given buffer.
func NewChannelSubscriber(bufSize int) *ChannelSubscriber {
	if bufSize <= 0 {
		bufSize = 32
	}
	return &ChannelSubscriber{Ch: make(chan Message, bufSize)}
}

// Send never blocks the caller past the fan-out's own send timeout logic —
// callers use Stream.Publish, which enforces the timeout centrally. This
// direct Send is a plain non-blocking best-effort push for callers that
// bypass Stream.Publish.
func (c *ChannelSubscriber) Send(m Message) error {
	select {
	case c.Ch <- m:
		return nil
	default:
		return errFull
	}
}

// Close closes the underlying channel. Safe to call at most once.
func (c *ChannelSubscriber) Close() {
	close(c.Ch)
}

var errFull = fanoutFullError{}

type fanoutFullError struct{}

func (fanoutFullError) Error() string { return "fanout: subscriber buffer full" }

// Stream is one independent fan-out channel (caseboard or alerts).
type Stream struct {
	name        string
	log         *logging.Logger
	sendTimeout time.Duration

	mu   sync.Mutex
	subs map[int64]Subscriber
	next int64
}

func newStream(name string, sendTimeout time.Duration) *Stream {
	return &Stream{
		name:        name,
		log:         logging.New("fanout"),
		sendTimeout: sendTimeout,
		subs:        make(map[int64]Subscriber),
	}
}

// Subscribe registers a subscriber and returns an id for Unsubscribe.
func (s *Stream) Subscribe(sub Subscriber) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.next
	s.next++
	s.subs[id] = sub
	return id
}

// Unsubscribe removes and closes a subscriber. Safe to call more than once.
func (s *Stream) Unsubscribe(id int64) {
	s.mu.Lock()
	sub, ok := s.subs[id]
	if ok {
		delete(s.subs, id)
	}
	s.mu.Unlock()
	if ok {
		sub.Close()
	}
}

// Publish delivers msg to every current subscriber. Delivery to each
// subscriber is attempted independently and with a bounded timeout; a
// subscriber that cannot accept the message within sendTimeout is dropped
// entirely, matching the ConnectionManager's "collect dead sockets, remove
// after the loop" behaviour, generalised to a timeout instead of only a
// hard I/O error.
func (s *Stream) Publish(msg Message) {
	s.mu.Lock()
	targets := make(map[int64]Subscriber, len(s.subs))
	for id, sub := range s.subs {
		targets[id] = sub
	}
	s.mu.Unlock()

	var dead []int64
	for id, sub := range targets {
		if !s.deliverWithTimeout(sub, msg) {
			dead = append(dead, id)
		}
	}
	for _, id := range dead {
		s.log.Warn("fanout.subscriber_dropped", map[string]interface{}{"stream": s.name})
		s.Unsubscribe(id)
	}
}

func (s *Stream) deliverWithTimeout(sub Subscriber, msg Message) bool {
	done := make(chan error, 1)
	go func() { done <- sub.Send(msg) }()
	select {
	case err := <-done:
		return err == nil
	case <-time.After(s.sendTimeout):
		return false
	}
}

// Count reports the current number of subscribers, for tests and metrics.
func (s *Stream) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Fanout owns the two independent subscriber streams (spec.md §4.5).
type Fanout struct {
	Caseboard *Stream
	Alerts    *Stream
}

// New constructs a Fanout with the given per-subscriber send timeout,
// applied identically to both streams.
func New(sendTimeout time.Duration) *Fanout {
	if sendTimeout <= 0 {
		sendTimeout = time.Second
	}
	return &Fanout{
		Caseboard: newStream("caseboard", sendTimeout),
		Alerts:    newStream("alerts", sendTimeout),
	}
}
