package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "capctl"

// Metrics holds every collector exported by the controller and the admission gate
type Metrics struct {
	decisionsTotal       *prometheus.CounterVec
	scalingAppliedTotal  *prometheus.CounterVec
	scalingFailuresTotal *prometheus.CounterVec
	notifyFailuresTotal  *prometheus.CounterVec
	telemetryFailures    *prometheus.CounterVec
	desiredCount         *prometheus.GaugeVec
	circuitBreakerState  *prometheus.GaugeVec
	cycleDuration        *prometheus.HistogramVec

	admissionTotal    *prometheus.CounterVec
	cacheLookupsTotal *prometheus.CounterVec
	usageCommitsTotal *prometheus.CounterVec
	storeErrorsTotal  *prometheus.CounterVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Get returns the process-wide metrics; collectors are usable before Register
func Get() *Metrics {
	once.Do(func() {
		instance = New()
	})
	return instance
}

func New() *Metrics {
	return &Metrics{
		decisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Scaling decisions produced, by service and action",
		}, []string{"service", "action"}),
		scalingAppliedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scaling_applied_total",
			Help:      "Scaling decisions applied to compute control",
		}, []string{"service", "action"}),
		scalingFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scaling_failures_total",
			Help:      "Scaling decisions compute control rejected",
		}, []string{"service", "action"}),
		notifyFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notify_failures_total",
			Help:      "Zero-boundary notifications that could not be delivered",
		}, []string{"service"}),
		telemetryFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telemetry_failures_total",
			Help:      "Observations that degraded to no reliable signal",
		}, []string{"service"}),
		desiredCount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "desired_count",
			Help:      "Last known desired instance count",
		}, []string{"service"}),
		circuitBreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		}, []string{"name"}),
		cycleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of one observe-decide-execute cycle",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service"}),
		admissionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admission_total",
			Help:      "Admission outcomes by tier and reason",
		}, []string{"tier", "reason"}),
		cacheLookupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Result cache lookups by outcome",
		}, []string{"tier", "result"}),
		usageCommitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "usage_commits_total",
			Help:      "Requests charged against usage quotas",
		}, []string{"tier"}),
		storeErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Usage ledger and cache store errors",
		}, []string{"store"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.decisionsTotal, m.scalingAppliedTotal, m.scalingFailuresTotal,
		m.notifyFailuresTotal, m.telemetryFailures, m.desiredCount,
		m.circuitBreakerState, m.cycleDuration, m.admissionTotal,
		m.cacheLookupsTotal, m.usageCommitsTotal, m.storeErrorsTotal,
	}
}

// Register adds all collectors to registry. Already-registered collectors are tolerated.
func (m *Metrics) Register(registry prometheus.Registerer) error {
	for _, c := range m.collectors() {
		if err := registry.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return fmt.Errorf("failed to register metric: %w", err)
		}
	}
	return nil
}

func (m *Metrics) IncDecision(serviceID, action string) {
	m.decisionsTotal.WithLabelValues(serviceID, action).Inc()
}

func (m *Metrics) IncScalingApplied(serviceID, action string) {
	m.scalingAppliedTotal.WithLabelValues(serviceID, action).Inc()
}

func (m *Metrics) IncScalingFailure(serviceID, action string) {
	m.scalingFailuresTotal.WithLabelValues(serviceID, action).Inc()
}

func (m *Metrics) IncNotifyFailure(serviceID string) {
	m.notifyFailuresTotal.WithLabelValues(serviceID).Inc()
}

func (m *Metrics) IncTelemetryFailure(serviceID string) {
	m.telemetryFailures.WithLabelValues(serviceID).Inc()
}

func (m *Metrics) SetDesiredCount(serviceID string, count int) {
	m.desiredCount.WithLabelValues(serviceID).Set(float64(count))
}

func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	m.circuitBreakerState.WithLabelValues(name).Set(float64(state))
}

func (m *Metrics) ObserveCycle(serviceID string, d time.Duration) {
	m.cycleDuration.WithLabelValues(serviceID).Observe(d.Seconds())
}

func (m *Metrics) IncAdmission(tier, reason string) {
	m.admissionTotal.WithLabelValues(tier, reason).Inc()
}

func (m *Metrics) IncCacheLookup(tier string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookupsTotal.WithLabelValues(tier, result).Inc()
}

func (m *Metrics) IncUsageCommit(tier string) {
	m.usageCommitsTotal.WithLabelValues(tier).Inc()
}

func (m *Metrics) IncStoreError(store string) {
	m.storeErrorsTotal.WithLabelValues(store).Inc()
}

func (m *Metrics) ScalingFailures(serviceID, action string) prometheus.Counter {
	return m.scalingFailuresTotal.WithLabelValues(serviceID, action)
}

func (m *Metrics) TelemetryFailures(serviceID string) prometheus.Counter {
	return m.telemetryFailures.WithLabelValues(serviceID)
}

func (m *Metrics) AdmissionOutcomes(tier, reason string) prometheus.Counter {
	return m.admissionTotal.WithLabelValues(tier, reason)
}

func (m *Metrics) UsageCommits(tier string) prometheus.Counter {
	return m.usageCommitsTotal.WithLabelValues(tier)
}
