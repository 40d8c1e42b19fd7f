package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/capacity-controller")
	}

	v.SetEnvPrefix("CAPCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "capacity-controller")
	v.SetDefault("app.mode", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.shutdown_timeout", "30s")

	// Database defaults
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "capacity")
	v.SetDefault("database.user", "admin")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.migration_timeout", "60s")

	// AWS defaults
	v.SetDefault("aws.region", "us-east-1")

	// Telemetry defaults
	v.SetDefault("telemetry.type", "http")
	v.SetDefault("telemetry.endpoint", "http://localhost:9000")
	v.SetDefault("telemetry.timeout", "20s")
	v.SetDefault("telemetry.window", "15m")
	v.SetDefault("telemetry.period", "5m")
	v.SetDefault("telemetry.retry_attempts", 2)
	v.SetDefault("telemetry.circuit_breaker.max_failures", 5)
	v.SetDefault("telemetry.circuit_breaker.timeout", "2m")

	// Compute defaults
	v.SetDefault("compute.type", "memory")
	v.SetDefault("compute.provision_time", "10s")
	v.SetDefault("compute.initial_count", 0)

	// Controller defaults
	v.SetDefault("controller.interval", "5m")
	v.SetDefault("controller.thresholds.scale_up_rpm", 10.0)
	v.SetDefault("controller.thresholds.scale_down_rpm", 2.0)
	v.SetDefault("controller.thresholds.cpu_high", 70.0)
	v.SetDefault("controller.thresholds.cpu_low", 20.0)

	// Admission defaults
	v.SetDefault("admission.store_failure_policy", "open")

	// Usage ledger defaults
	v.SetDefault("usage.backend", "memory")
	v.SetDefault("usage.table", "usage_counters")

	// Result cache defaults
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.table", "result_cache")
	v.SetDefault("cache.prefix", "results/")
	v.SetDefault("cache.max_entries", 10000)

	// Notify defaults
	v.SetDefault("notify.type", "log")

	// API defaults
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.read_timeout", "15s")
	v.SetDefault("api.write_timeout", "15s")
	v.SetDefault("api.idle_timeout", "60s")
	v.SetDefault("api.rate_limit", 100)
	v.SetDefault("api.jwt_secret", "change-me-in-production")
	v.SetDefault("api.jwt_issuer", "capacity-controller")
	v.SetDefault("api.default_limit", 50)
	v.SetDefault("api.max_limit", 500)

	// WebSocket defaults
	v.SetDefault("websocket.max_connections", 1000)
	v.SetDefault("websocket.ping_interval", "30s")

	// Prometheus defaults
	v.SetDefault("prometheus.enabled", true)
	v.SetDefault("prometheus.path", "/metrics")

	// Events defaults
	v.SetDefault("events.buffer_size", 100)
	v.SetDefault("events.persist", false)
}
