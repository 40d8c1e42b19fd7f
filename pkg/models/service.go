package models

import "time"

// ServiceState is the compute-control view of a single service
type ServiceState struct {
	ServiceID    string    `json:"service_id"`
	DesiredCount int       `json:"desired_count"`
	RunningCount int       `json:"running_count"`
	PendingCount int       `json:"pending_count"`
	LastModified time.Time `json:"last_modified"`
}

func (s *ServiceState) IsScaledToZero() bool {
	return s.DesiredCount == 0
}

func (s *ServiceState) IsSettled() bool {
	return s.PendingCount == 0 && s.RunningCount == s.DesiredCount
}

// ServiceTarget identifies the telemetry dimensions and capacity band of a controlled service
type ServiceTarget struct {
	ServiceID   string `json:"service_id"`
	Cluster     string `json:"cluster,omitempty"`
	TargetGroup string `json:"target_group,omitempty"`
	MinCapacity int    `json:"min_capacity"`
	MaxCapacity int    `json:"max_capacity"`
}
