package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/OldStager01/capacity-controller/internal/logger"
	"github.com/OldStager01/capacity-controller/pkg/models"
)

// HTTPSource reads datapoints from a JSON telemetry endpoint such as the
// bundled simulator.
type HTTPSource struct {
	client   *http.Client
	endpoint string
}

type HTTPSourceConfig struct {
	Endpoint string
	Timeout  time.Duration
}

func NewHTTPSource(cfg HTTPSourceConfig) *HTTPSource {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	return &HTTPSource{
		client: &http.Client{
			Timeout: timeout,
		},
		endpoint: cfg.Endpoint,
	}
}

// SeriesResponse is the wire format served by the telemetry endpoint
type SeriesResponse struct {
	ServiceID  string             `json:"service_id"`
	Metric     models.MetricName  `json:"metric"`
	Statistic  models.Statistic   `json:"statistic"`
	Datapoints []models.Datapoint `json:"datapoints"`
}

func (s *HTTPSource) Query(ctx context.Context, q Query) ([]models.Datapoint, error) {
	params := url.Values{}
	params.Set("window", strconv.Itoa(int(q.Window.Seconds())))
	params.Set("period", strconv.Itoa(int(q.Period.Seconds())))
	params.Set("stat", string(q.Statistic))
	endpoint := fmt.Sprintf("%s/services/%s/metrics/%s?%s",
		s.endpoint, url.PathEscape(q.Target.ServiceID), q.Metric, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrMetricsUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	logger.WithService(q.Target.ServiceID).Debugf("Querying telemetry from %s", endpoint)

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrMetricsUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrServiceNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status code %d", ErrMetricsUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %v", ErrMetricsUnavailable, err)
	}

	var series SeriesResponse
	if err := json.Unmarshal(body, &series); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	points := series.Datapoints
	sort.Slice(points, func(i, j int) bool {
		return points[i].Timestamp.Before(points[j].Timestamp)
	})

	return points, nil
}

func (s *HTTPSource) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

func (s *HTTPSource) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
