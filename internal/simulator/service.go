package simulator

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/OldStager01/capacity-controller/pkg/models"
)

const idleCPU = 2.0

type ServiceSimConfig struct {
	BaseRPM  float64
	BaseCPU  float64
	Variance float64
	Seed     int64
}

// ServiceSim generates request-count and CPU series for one service
type ServiceSim struct {
	id       string
	baseRPM  float64
	baseCPU  float64
	variance float64
	pattern  Pattern
	burst    *Burst
	rng      *rand.Rand
	mu       sync.Mutex
}

// Burst multiplies load for a while, ramping up linearly first
type Burst struct {
	Multiplier float64
	StartTime  time.Time
	Duration   time.Duration
	RampUp     time.Duration
}

func (b *Burst) active(t time.Time) bool {
	elapsed := t.Sub(b.StartTime)
	return elapsed >= 0 && elapsed <= b.Duration
}

func (b *Burst) factor(t time.Time) float64 {
	elapsed := t.Sub(b.StartTime)
	switch {
	case elapsed < 0 || elapsed > b.Duration:
		return 1
	case elapsed < b.RampUp:
		progress := float64(elapsed) / float64(b.RampUp)
		return 1 + (b.Multiplier-1)*progress
	default:
		return b.Multiplier
	}
}

func NewServiceSim(id string, cfg ServiceSimConfig) *ServiceSim {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &ServiceSim{
		id:       id,
		baseRPM:  cfg.BaseRPM,
		baseCPU:  cfg.BaseCPU,
		variance: cfg.Variance,
		pattern:  PatternSteady,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// Series returns one datapoint per period covering window, ending at the
// period boundary at or before now, oldest first.
func (s *ServiceSim) Series(metric models.MetricName, window, period time.Duration, now time.Time) []models.Datapoint {
	s.mu.Lock()
	defer s.mu.Unlock()

	if period <= 0 || window < period {
		return nil
	}

	count := int(window / period)
	end := now.Truncate(period)
	points := make([]models.Datapoint, 0, count)

	for i := count - 1; i >= 0; i-- {
		ts := end.Add(-time.Duration(i) * period)
		rpm := s.rpmAt(ts)

		var value float64
		switch metric {
		case models.MetricRequestCount:
			value = math.Round(rpm * period.Minutes())
		case models.MetricCPUUtilization:
			value = s.cpuAt(ts, rpm)
		}
		points = append(points, models.Datapoint{Timestamp: ts, Value: value})
	}

	return points
}

func (s *ServiceSim) rpmAt(t time.Time) float64 {
	rpm := s.pattern.Apply(s.baseRPM, t)
	if s.burst != nil {
		rpm *= s.burst.factor(t)
	}
	return s.jitter(rpm, 0)
}

// cpuAt tracks load: the base CPU at base traffic, idle when there is none
func (s *ServiceSim) cpuAt(t time.Time, rpm float64) float64 {
	if rpm <= 0 || s.baseRPM <= 0 {
		return idleCPU
	}
	cpu := s.baseCPU * rpm / s.baseRPM
	return math.Round(math.Min(s.jitter(cpu, idleCPU), 100)*100) / 100
}

func (s *ServiceSim) jitter(value, floor float64) float64 {
	if value <= 0 {
		return floor
	}
	if s.variance > 0 {
		value += (s.rng.Float64()*2 - 1) * s.variance * value / 100
	}
	return math.Max(value, floor)
}

func (s *ServiceSim) SetBaseRPM(rpm float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baseRPM = rpm
}

func (s *ServiceSim) SetBaseCPU(cpu float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baseCPU = cpu
}

func (s *ServiceSim) SetVariance(variance float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.variance = variance
}

func (s *ServiceSim) SetPattern(pattern Pattern) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pattern = pattern
}

func (s *ServiceSim) InjectBurst(multiplier float64, duration, rampUp time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.burst = &Burst{
		Multiplier: multiplier,
		StartTime:  time.Now(),
		Duration:   duration,
		RampUp:     rampUp,
	}
}

type ServiceStatus struct {
	ID          string  `json:"id"`
	BaseRPM     float64 `json:"base_rpm"`
	BaseCPU     float64 `json:"base_cpu"`
	Variance    float64 `json:"variance"`
	Pattern     string  `json:"pattern"`
	BurstActive bool    `json:"burst_active"`
}

func (s *ServiceSim) Status() ServiceStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	return ServiceStatus{
		ID:          s.id,
		BaseRPM:     s.baseRPM,
		BaseCPU:     s.baseCPU,
		Variance:    s.variance,
		Pattern:     s.pattern.Name(),
		BurstActive: s.burst != nil && s.burst.active(time.Now()),
	}
}
