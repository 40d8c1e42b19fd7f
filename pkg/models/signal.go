package models

import "time"

type MetricName string

const (
	MetricRequestCount   MetricName = "RequestCount"
	MetricCPUUtilization MetricName = "CPUUtilization"
)

type Statistic string

const (
	StatisticSum     Statistic = "Sum"
	StatisticAverage Statistic = "Average"
)

// Datapoint is a single telemetry sample
type Datapoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// TrafficWindow summarizes request counts over the look-back window
type TrafficWindow struct {
	TotalRequests        int64   `json:"total_requests"`
	AvgRequestsPerMinute float64 `json:"avg_requests_per_minute"`
	SampleCount          int     `json:"sample_count"`
	HasTraffic           bool    `json:"has_traffic"`
}

// CPUWindow summarizes CPU utilization over the look-back window
type CPUWindow struct {
	AvgUtilizationPercent float64 `json:"avg_utilization_percent"`
	SampleCount           int     `json:"sample_count"`
	IsHigh                bool    `json:"is_high"`
	IsLow                 bool    `json:"is_low"`
}

// Signal is what the decision engine sees for one invocation.
// Reliable is false when telemetry could not be observed; the engine
// must not act on such a signal.
type Signal struct {
	ServiceID  string        `json:"service_id"`
	ObservedAt time.Time     `json:"observed_at"`
	Traffic    TrafficWindow `json:"traffic"`
	CPU        CPUWindow     `json:"cpu"`
	Reliable   bool          `json:"reliable"`
	Reason     string        `json:"reason,omitempty"`
}

func NoSignal(serviceID, reason string) *Signal {
	return &Signal{
		ServiceID:  serviceID,
		ObservedAt: time.Now(),
		Reliable:   false,
		Reason:     reason,
	}
}
