// Package logging provides the structured JSON event logger shared by every
// component of the engine, generalising the orchestrator's logEvent helper.
package logging

import (
	"encoding/json"
	"log"
	"time"
)

// Logger stamps a fixed component name onto every event it logs.
type Logger struct {
	component string
}

// New returns a Logger tagging every event with component.
func New(component string) *Logger {
	return &Logger{component: component}
}

// Event logs a single structured event as one line of JSON to the standard
// logger. data is mutated with the standard envelope fields.
func (l *Logger) Event(eventType string, data map[string]interface{}) {
	if data == nil {
		data = map[string]interface{}{}
	}
	data["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	if _, ok := data["level"]; !ok {
		data["level"] = "info"
	}
	data["component"] = l.component
	data["event_type"] = eventType

	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Printf("[%s] failed to marshal log event: %v", l.component, err)
		return
	}
	log.Println(string(jsonData))
}

// Warn logs a structured event at warn level.
func (l *Logger) Warn(eventType string, data map[string]interface{}) {
	if data == nil {
		data = map[string]interface{}{}
	}
	data["level"] = "warn"
	l.Event(eventType, data)
}

// Error logs a structured event at error level, attaching err.Error().
func (l *Logger) Error(eventType string, err error, data map[string]interface{}) {
	if data == nil {
		data = map[string]interface{}{}
	}
	data["level"] = "error"
	data["error"] = err.Error()
	l.Event(eventType, data)
}
