package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/OldStager01/capacity-controller/internal/analyzer"
	"github.com/OldStager01/capacity-controller/internal/logger"
	"github.com/OldStager01/capacity-controller/pkg/models"
)

type ClientConfig struct {
	Window  time.Duration
	Period  time.Duration
	Timeout time.Duration
}

// Client turns raw telemetry into a Signal. It never returns an error:
// when either series cannot be read within Timeout the signal is marked
// unreliable so the caller holds the current capacity.
type Client struct {
	source   Source
	analyzer *analyzer.Analyzer
	config   ClientConfig
	onError  func(serviceID string, err error)
}

func NewClient(source Source, a *analyzer.Analyzer, cfg ClientConfig) *Client {
	if cfg.Window == 0 {
		cfg.Window = 15 * time.Minute
	}
	if cfg.Period == 0 {
		cfg.Period = 5 * time.Minute
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 20 * time.Second
	}

	return &Client{
		source:   source,
		analyzer: a,
		config:   cfg,
	}
}

// OnError registers a hook invoked whenever an observation degrades to no-signal
func (c *Client) OnError(fn func(serviceID string, err error)) {
	c.onError = fn
}

func (c *Client) Observe(ctx context.Context, target models.ServiceTarget) *models.Signal {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	type result struct {
		points []models.Datapoint
		err    error
	}
	requests := make(chan result, 1)
	cpu := make(chan result, 1)

	go func() {
		points, err := c.source.Query(ctx, c.query(target, models.MetricRequestCount, models.StatisticSum))
		requests <- result{points, err}
	}()
	go func() {
		points, err := c.source.Query(ctx, c.query(target, models.MetricCPUUtilization, models.StatisticAverage))
		cpu <- result{points, err}
	}()

	reqResult, cpuResult := <-requests, <-cpu

	if err := errors.Join(reqResult.err, cpuResult.err); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			err = fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		err = fmt.Errorf("%w: %w", ErrMetricsUnavailable, err)
		logger.WithService(target.ServiceID).Warnf("No reliable signal: %v", err)
		if c.onError != nil {
			c.onError(target.ServiceID, err)
		}
		return models.NoSignal(target.ServiceID, err.Error())
	}

	return c.analyzer.Analyze(target.ServiceID, reqResult.points, cpuResult.points)
}

func (c *Client) query(target models.ServiceTarget, metric models.MetricName, stat models.Statistic) Query {
	return Query{
		Target:    target,
		Metric:    metric,
		Window:    c.config.Window,
		Period:    c.config.Period,
		Statistic: stat,
	}
}

func (c *Client) HealthCheck(ctx context.Context) error {
	return c.source.HealthCheck(ctx)
}

func (c *Client) Close() error {
	return c.source.Close()
}
