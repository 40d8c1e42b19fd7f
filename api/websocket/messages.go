package websocket

import (
	"encoding/json"
	"time"

	"github.com/OldStager01/capacity-controller/pkg/models"
)

type MessageType string

const (
	MessageTypeSignal       MessageType = "signal"
	MessageTypeDecision     MessageType = "decision"
	MessageTypeScalingStart MessageType = "scaling_started"
	MessageTypeScalingEvent MessageType = "scaling_event"
	MessageTypeScalingFail  MessageType = "scaling_failed"
	MessageTypeZeroBoundary MessageType = "zero_boundary"
	MessageTypeAlert        MessageType = "alert"
	MessageTypeError        MessageType = "error"
	MessageTypeSubscription MessageType = "subscription_update"
)

type OutgoingMessage struct {
	Type      MessageType          `json:"type"`
	ServiceID string               `json:"service_id,omitempty"`
	Timestamp time.Time            `json:"timestamp"`
	Severity  models.EventSeverity `json:"severity,omitempty"`
	Message   string               `json:"message,omitempty"`
	TraceID   string               `json:"trace_id,omitempty"`
	Data      interface{}          `json:"data,omitempty"`
}

func NewMessage(msgType MessageType, serviceID string, data interface{}) *OutgoingMessage {
	return &OutgoingMessage{
		Type:      msgType,
		ServiceID: serviceID,
		Timestamp: time.Now(),
		Data:      data,
	}
}

func (m *OutgoingMessage) JSON() []byte {
	data, _ := json.Marshal(m)
	return data
}

// messageType maps bus events to stream message types; "" means not streamed
func messageType(eventType models.EventType) MessageType {
	switch eventType {
	case models.EventTypeSignalObserved, models.EventTypeTelemetryUnavailable:
		return MessageTypeSignal
	case models.EventTypeDecisionMade:
		return MessageTypeDecision
	case models.EventTypeScalingStarted:
		return MessageTypeScalingStart
	case models.EventTypeScalingComplete:
		return MessageTypeScalingEvent
	case models.EventTypeScalingFailed:
		return MessageTypeScalingFail
	case models.EventTypeZeroBoundary:
		return MessageTypeZeroBoundary
	case models.EventTypeAlert:
		return MessageTypeAlert
	case models.EventTypeError:
		return MessageTypeError
	default:
		return ""
	}
}

func fromEvent(event *models.Event) *OutgoingMessage {
	msgType := messageType(event.Type)
	if msgType == "" {
		return nil
	}
	return &OutgoingMessage{
		Type:      msgType,
		ServiceID: event.ServiceID,
		Timestamp: event.Timestamp,
		Severity:  event.Severity,
		Message:   event.Message,
		TraceID:   event.TraceID,
		Data:      event.Data,
	}
}
