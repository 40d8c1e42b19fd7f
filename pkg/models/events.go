package models

import "time"

type EventType string

const (
	EventTypeSignalObserved       EventType = "signal_observed"
	EventTypeTelemetryUnavailable EventType = "telemetry_unavailable"
	EventTypeDecisionMade         EventType = "decision_made"
	EventTypeScalingStarted       EventType = "scaling_started"
	EventTypeScalingComplete      EventType = "scaling_complete"
	EventTypeScalingFailed        EventType = "scaling_failed"
	EventTypeZeroBoundary         EventType = "zero_boundary"
	EventTypeAlert                EventType = "alert"
	EventTypeError                EventType = "error"
)

type EventSeverity string

const (
	SeverityInfo     EventSeverity = "info"
	SeverityWarning  EventSeverity = "warning"
	SeverityCritical EventSeverity = "critical"
)

// Event represents an internal system event
type Event struct {
	ID        string        `json:"id"`
	Type      EventType     `json:"type"`
	Severity  EventSeverity `json:"severity"`
	ServiceID string        `json:"service_id,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Message   string        `json:"message"`
	Data      interface{}   `json:"data,omitempty"`
	TraceID   string        `json:"trace_id,omitempty"`
}

func NewEvent(eventType EventType, serviceID, message string) *Event {
	return &Event{
		ID:        NewUUID(),
		Type:      eventType,
		Severity:  SeverityInfo,
		ServiceID: serviceID,
		Timestamp: time.Now(),
		Message:   message,
	}
}

func (e *Event) WithSeverity(severity EventSeverity) *Event {
	e.Severity = severity
	return e
}

func (e *Event) WithData(data interface{}) *Event {
	e.Data = data
	return e
}

func (e *Event) WithTraceID(traceID string) *Event {
	e.TraceID = traceID
	return e
}

// ZeroBoundaryNotice is the payload published when a service enters or leaves zero capacity
type ZeroBoundaryNotice struct {
	ServiceID string        `json:"service_id"`
	Action    ScalingAction `json:"action"`
	Reason    string        `json:"reason"`
	Timestamp time.Time     `json:"timestamp"`
}
