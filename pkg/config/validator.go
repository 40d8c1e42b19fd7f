package config

import (
	"errors"
	"fmt"

	"github.com/OldStager01/capacity-controller/pkg/validation"
)

func (c *Config) Validate() error {
	var errs []error

	// App validation
	if c.App.Name == "" {
		errs = append(errs, errors.New("app.name is required"))
	}

	validModes := map[string]bool{"development": true, "production": true, "test": true}
	if !validModes[c.App.Mode] {
		errs = append(errs, fmt.Errorf("app.mode must be one of: development, production, test"))
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.App.LogLevel] {
		errs = append(errs, fmt.Errorf("app.log_level must be one of: debug, info, warn, error"))
	}

	// Database validation
	if c.Database.Enabled || c.Usage.Backend == "postgres" {
		if c.Database.Host == "" {
			errs = append(errs, errors.New("database.host is required"))
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, errors.New("database.port must be between 1 and 65535"))
		}
		if c.Database.Name == "" {
			errs = append(errs, errors.New("database.name is required"))
		}
		if c.Database.MaxConnections <= 0 {
			errs = append(errs, errors.New("database.max_connections must be positive"))
		}
	}

	// Telemetry validation
	validTelemetry := map[string]bool{"cloudwatch": true, "http": true, "static": true}
	if !validTelemetry[c.Telemetry.Type] {
		errs = append(errs, errors.New("telemetry.type must be one of: cloudwatch, http, static"))
	}
	if c.Telemetry.Type == "http" && c.Telemetry.Endpoint == "" {
		errs = append(errs, errors.New("telemetry.endpoint is required for http telemetry"))
	}
	if c.Telemetry.Timeout <= 0 {
		errs = append(errs, errors.New("telemetry.timeout must be positive"))
	}
	if c.Telemetry.Window <= 0 || c.Telemetry.Period <= 0 {
		errs = append(errs, errors.New("telemetry.window and telemetry.period must be positive"))
	}
	if c.Telemetry.Period > c.Telemetry.Window {
		errs = append(errs, errors.New("telemetry.period must not exceed telemetry.window"))
	}

	// Compute validation
	validCompute := map[string]bool{"ecs": true, "memory": true}
	if !validCompute[c.Compute.Type] {
		errs = append(errs, errors.New("compute.type must be one of: ecs, memory"))
	}
	if c.Compute.Type == "ecs" && c.Compute.Cluster == "" {
		errs = append(errs, errors.New("compute.cluster is required for ecs compute"))
	}

	// Controller validation
	if c.Controller.Interval <= 0 {
		errs = append(errs, errors.New("controller.interval must be positive"))
	}
	if c.Telemetry.Timeout >= c.Controller.Interval {
		errs = append(errs, errors.New("telemetry.timeout must be less than controller.interval"))
	}
	t := c.Controller.Thresholds
	if t.ScaleUpRequestsPerMinute <= t.ScaleDownRequestsPerMinute {
		errs = append(errs, errors.New("controller.thresholds.scale_up_rpm must be greater than scale_down_rpm"))
	}
	if t.CPUHigh <= t.CPULow {
		errs = append(errs, errors.New("controller.thresholds.cpu_high must be greater than cpu_low"))
	}
	if t.CPUHigh <= 0 || t.CPUHigh > 100 {
		errs = append(errs, errors.New("controller.thresholds.cpu_high must be between 0 and 100"))
	}
	if t.CPULow < 0 || t.CPULow >= 100 {
		errs = append(errs, errors.New("controller.thresholds.cpu_low must be between 0 and 100"))
	}
	seen := make(map[string]bool)
	for i, svc := range c.Controller.Services {
		if err := validation.ValidateServiceID(svc.ID); err != nil {
			errs = append(errs, fmt.Errorf("controller.services[%d].id: %w", i, err))
			continue
		}
		if seen[svc.ID] {
			errs = append(errs, fmt.Errorf("controller.services[%d].id %q is duplicated", i, svc.ID))
		}
		seen[svc.ID] = true
		if err := validation.ValidateCapacityBounds(svc.MinCapacity, svc.MaxCapacity); err != nil {
			errs = append(errs, fmt.Errorf("controller.services[%d]: %w", i, err))
		}
	}

	// Tier validation
	for i, tc := range c.Tiers {
		if tc.Name == "" {
			errs = append(errs, fmt.Errorf("tiers[%d].name is required", i))
		}
		if tc.DailyRequestLimit < 0 || tc.MonthlyRequestLimit < 0 {
			errs = append(errs, fmt.Errorf("tiers[%d] limits must be >= 0", i))
		}
		if tc.RateLimitRequests < 0 || tc.RateLimitWindowMs < 0 {
			errs = append(errs, fmt.Errorf("tiers[%d] rate limit must be >= 0", i))
		}
	}

	// Admission validation
	if c.Admission.StoreFailurePolicy != "open" && c.Admission.StoreFailurePolicy != "closed" {
		errs = append(errs, errors.New("admission.store_failure_policy must be one of: open, closed"))
	}

	// Store validation
	validUsage := map[string]bool{"postgres": true, "dynamodb": true, "memory": true}
	if !validUsage[c.Usage.Backend] {
		errs = append(errs, errors.New("usage.backend must be one of: postgres, dynamodb, memory"))
	}
	validCache := map[string]bool{"memory": true, "dynamodb": true, "s3": true}
	if !validCache[c.Cache.Backend] {
		errs = append(errs, errors.New("cache.backend must be one of: memory, dynamodb, s3"))
	}
	if c.Cache.Backend == "s3" && c.Cache.Bucket == "" {
		errs = append(errs, errors.New("cache.bucket is required for s3 cache"))
	}

	// Notify validation
	if c.Notify.Type == "sns" && c.Notify.TopicARN == "" {
		errs = append(errs, errors.New("notify.topic_arn is required for sns notifications"))
	}

	// API validation
	if c.API.Port <= 0 || c.API.Port > 65535 {
		errs = append(errs, errors.New("api.port must be between 1 and 65535"))
	}
	if c.App.Mode == "production" && c.API.JWTSecret == "change-me-in-production" {
		errs = append(errs, errors.New("api.jwt_secret must be changed in production"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %v", errs)
	}

	return nil
}
