package models

import "time"

type ScalingEventStatus string

const (
	ScalingEventSuccess ScalingEventStatus = "success"
	ScalingEventFailed  ScalingEventStatus = "failed"
)

// ScalingEvent represents a recorded scaling action
type ScalingEvent struct {
	ID            int                `json:"id"`
	ServiceID     string             `json:"service_id"`
	Timestamp     time.Time          `json:"timestamp"`
	Action        ScalingAction      `json:"action"`
	CountBefore   int                `json:"count_before"`
	CountAfter    int                `json:"count_after"`
	TriggerReason string             `json:"trigger_reason"`
	Status        ScalingEventStatus `json:"status"`
	Error         string             `json:"error,omitempty"`
}

func NewScalingEvent(decision ScalingDecision, status ScalingEventStatus, err error) *ScalingEvent {
	event := &ScalingEvent{
		ServiceID:     decision.ServiceID,
		Timestamp:     decision.Timestamp,
		Action:        decision.Action,
		CountBefore:   decision.CurrentCount,
		CountAfter:    decision.TargetCount,
		TriggerReason: decision.Reason,
		Status:        status,
	}
	if err != nil {
		event.Error = err.Error()
	}
	return event
}
