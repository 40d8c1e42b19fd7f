package models

import "time"

type ScalingAction string

const (
	ActionNoChange      ScalingAction = "NO_CHANGE"
	ActionScaleToZero   ScalingAction = "SCALE_TO_ZERO"
	ActionScaleFromZero ScalingAction = "SCALE_FROM_ZERO"
	ActionScaleUp       ScalingAction = "SCALE_UP"
	ActionScaleDown     ScalingAction = "SCALE_DOWN"
)

// ScalingDecision is produced fresh by the decision engine on every invocation
type ScalingDecision struct {
	ServiceID    string        `json:"service_id"`
	Timestamp    time.Time     `json:"timestamp"`
	Action       ScalingAction `json:"action"`
	CurrentCount int           `json:"current_count"`
	TargetCount  int           `json:"target_count"`
	Reason       string        `json:"reason"`
}

func (d ScalingDecision) Delta() int {
	return d.TargetCount - d.CurrentCount
}

func (d ScalingDecision) ShouldExecute() bool {
	return d.Action != ActionNoChange
}

// CrossesZero reports whether applying the decision moves the service
// into or out of the scaled-to-zero state.
func (d ScalingDecision) CrossesZero() bool {
	return d.Action == ActionScaleToZero || d.Action == ActionScaleFromZero
}

// AppliedChange is the result of a decision that reached compute control
type AppliedChange struct {
	ServiceID     string        `json:"service_id"`
	Action        ScalingAction `json:"action"`
	PreviousCount int           `json:"previous_count"`
	TargetCount   int           `json:"target_count"`
	Reason        string        `json:"reason"`
	AppliedAt     time.Time     `json:"applied_at"`
	Notified      bool          `json:"notified"`
}
