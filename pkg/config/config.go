package config

import (
	"fmt"
	"time"
)

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Database   DatabaseConfig   `mapstructure:"database"`
	AWS        AWSConfig        `mapstructure:"aws"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
	Compute    ComputeConfig    `mapstructure:"compute"`
	Controller ControllerConfig `mapstructure:"controller"`
	Tiers      []TierConfig     `mapstructure:"tiers"`
	Admission  AdmissionConfig  `mapstructure:"admission"`
	Usage      UsageConfig      `mapstructure:"usage"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Notify     NotifyConfig     `mapstructure:"notify"`
	API        APIConfig        `mapstructure:"api"`
	WebSocket  WebSocketConfig  `mapstructure:"websocket"`
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Events     EventsConfig     `mapstructure:"events"`
}

type AppConfig struct {
	Name            string        `mapstructure:"name"`
	Mode            string        `mapstructure:"mode"`
	LogLevel        string        `mapstructure:"log_level"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	Host             string        `mapstructure:"host"`
	Port             int           `mapstructure:"port"`
	Name             string        `mapstructure:"name"`
	User             string        `mapstructure:"user"`
	Password         string        `mapstructure:"password"`
	MaxConnections   int           `mapstructure:"max_connections"`
	SSLMode          string        `mapstructure:"ssl_mode"`
	ConnMaxLifetime  time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime  time.Duration `mapstructure:"conn_max_idle_time"`
	PingTimeout      time.Duration `mapstructure:"ping_timeout"`
	MigrationTimeout time.Duration `mapstructure:"migration_timeout"`
}

func (d DatabaseConfig) DSN() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, sslMode,
	)
}

// AWSConfig is shared by every AWS-backed component.
// Endpoint overrides the service endpoint, e.g. for localstack.
type AWSConfig struct {
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"`
}

type TelemetryConfig struct {
	Type           string               `mapstructure:"type"`
	Endpoint       string               `mapstructure:"endpoint"`
	Timeout        time.Duration        `mapstructure:"timeout"`
	Window         time.Duration        `mapstructure:"window"`
	Period         time.Duration        `mapstructure:"period"`
	RetryAttempts  int                  `mapstructure:"retry_attempts"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

type CircuitBreakerConfig struct {
	MaxFailures int           `mapstructure:"max_failures"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type ComputeConfig struct {
	Type          string        `mapstructure:"type"`
	Cluster       string        `mapstructure:"cluster"`
	ProvisionTime time.Duration `mapstructure:"provision_time"`
	InitialCount  int           `mapstructure:"initial_count"`
}

type ControllerConfig struct {
	Interval   time.Duration   `mapstructure:"interval"`
	Thresholds ThresholdConfig `mapstructure:"thresholds"`
	Services   []ServiceConfig `mapstructure:"services"`
}

type ThresholdConfig struct {
	ScaleUpRequestsPerMinute   float64 `mapstructure:"scale_up_rpm"`
	ScaleDownRequestsPerMinute float64 `mapstructure:"scale_down_rpm"`
	CPUHigh                    float64 `mapstructure:"cpu_high"`
	CPULow                     float64 `mapstructure:"cpu_low"`
}

type ServiceConfig struct {
	ID          string `mapstructure:"id"`
	TargetGroup string `mapstructure:"target_group"`
	MinCapacity int    `mapstructure:"min_capacity"`
	MaxCapacity int    `mapstructure:"max_capacity"`
}

type TierConfig struct {
	Name                string `mapstructure:"name"`
	DailyRequestLimit   int64  `mapstructure:"daily_request_limit"`
	MonthlyRequestLimit int64  `mapstructure:"monthly_request_limit"`
	CacheTTLSeconds     int    `mapstructure:"cache_ttl_seconds"`
	RateLimitRequests   int    `mapstructure:"rate_limit_requests"`
	RateLimitWindowMs   int64  `mapstructure:"rate_limit_window_ms"`
}

type AdmissionConfig struct {
	StoreFailurePolicy string `mapstructure:"store_failure_policy"`
}

type UsageConfig struct {
	Backend string `mapstructure:"backend"`
	Table   string `mapstructure:"table"`
}

type CacheConfig struct {
	Backend    string `mapstructure:"backend"`
	Table      string `mapstructure:"table"`
	Bucket     string `mapstructure:"bucket"`
	Prefix     string `mapstructure:"prefix"`
	MaxEntries uint64 `mapstructure:"max_entries"`
}

type NotifyConfig struct {
	Type     string `mapstructure:"type"`
	TopicARN string `mapstructure:"topic_arn"`
}

type APIConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	RateLimit    int           `mapstructure:"rate_limit"`
	JWTSecret    string        `mapstructure:"jwt_secret"`
	JWTIssuer    string        `mapstructure:"jwt_issuer"`
	DefaultLimit int           `mapstructure:"default_limit"`
	MaxLimit     int           `mapstructure:"max_limit"`
	CORS         CORSConfig    `mapstructure:"cors"`
}

type WebSocketConfig struct {
	MaxConnections  int           `mapstructure:"max_connections"`
	PingInterval    time.Duration `mapstructure:"ping_interval"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	PongTimeout     time.Duration `mapstructure:"pong_timeout"`
	MaxMessageSize  int64         `mapstructure:"max_message_size"`
	ReadBufferSize  int           `mapstructure:"read_buffer_size"`
	WriteBufferSize int           `mapstructure:"write_buffer_size"`
	BroadcastBuffer int           `mapstructure:"broadcast_buffer"`
	ClientBuffer    int           `mapstructure:"client_buffer"`
}

type PrometheusConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

type EventsConfig struct {
	BufferSize int  `mapstructure:"buffer_size"`
	Persist    bool `mapstructure:"persist"`
}
