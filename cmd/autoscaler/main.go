package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/OldStager01/capacity-controller/api"
	"github.com/OldStager01/capacity-controller/api/handlers"
	"github.com/OldStager01/capacity-controller/internal/admission"
	"github.com/OldStager01/capacity-controller/internal/auth"
	"github.com/OldStager01/capacity-controller/internal/cache"
	"github.com/OldStager01/capacity-controller/internal/cloud"
	"github.com/OldStager01/capacity-controller/internal/logger"
	"github.com/OldStager01/capacity-controller/internal/metrics"
	"github.com/OldStager01/capacity-controller/internal/notify"
	"github.com/OldStager01/capacity-controller/internal/orchestrator"
	"github.com/OldStager01/capacity-controller/internal/resilience"
	"github.com/OldStager01/capacity-controller/internal/scaler"
	"github.com/OldStager01/capacity-controller/internal/telemetry"
	"github.com/OldStager01/capacity-controller/internal/tier"
	"github.com/OldStager01/capacity-controller/internal/usage"
	"github.com/OldStager01/capacity-controller/pkg/config"
	"github.com/OldStager01/capacity-controller/pkg/database"
	"github.com/OldStager01/capacity-controller/pkg/database/queries"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file")
	migrate := flag.Bool("migrate", false, "run database migrations and exit")
	tokenUser := flag.String("issue-token", "", "print a signed API token for this user id and exit")
	tokenTier := flag.String("token-tier", "FREE", "tier claim for -issue-token")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger.Setup(cfg.App.LogLevel, cfg.App.Mode)

	if *tokenUser != "" {
		token, err := auth.NewService(cfg.API.JWTSecret, cfg.API.JWTIssuer, 30*24*time.Hour).
			GenerateToken(*tokenUser, *tokenTier)
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	}

	logger.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Mode)

	var db *database.DB
	if cfg.Database.Enabled || cfg.Usage.Backend == "postgres" {
		db, err = database.New(cfg.Database.ToDBConfig())
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
		logger.Info("Database connection established")
	}

	if *migrate {
		if db == nil {
			return fmt.Errorf("-migrate requires database.enabled")
		}
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Database.MigrationTimeout)
		defer cancel()

		logger.Info("Running database migrations")
		if err := database.NewMigrator(db).Run(ctx); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		logger.Info("Migrations completed successfully")
		return nil
	}

	m := metrics.Get()
	if err := m.Register(prometheus.DefaultRegisterer); err != nil {
		return err
	}

	var awsCfg aws.Config
	if needsAWS(cfg) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		awsCfg, err = cloud.LoadAWSConfig(ctx, cloud.AWSConfig{Region: cfg.AWS.Region, Endpoint: cfg.AWS.Endpoint})
		cancel()
		if err != nil {
			return err
		}
	}

	deps := orchestrator.Dependencies{
		Control:  newComputeControl(cfg, awsCfg),
		Source:   newTelemetrySource(cfg, awsCfg, m),
		Notifier: newNotifier(cfg, awsCfg),
		Metrics:  m,
	}
	var history handlers.EventHistory
	if db != nil {
		repo := queries.NewScalingEventRepository(db.DB)
		deps.EventStore = repo
		history = repo
	}

	tiers, err := tier.NewTable(cfg.TierOverrides()...)
	if err != nil {
		return fmt.Errorf("invalid tier configuration: %w", err)
	}
	ledger := newLedger(cfg, awsCfg, db)
	gate := admission.NewGate(tiers, ledger, newCache(cfg, awsCfg), m, admission.Config{
		StoreFailurePolicy: admission.StoreFailurePolicy(cfg.Admission.StoreFailurePolicy),
	})
	defer gate.Close()

	orch := orchestrator.New(cfg, deps)
	if err := orch.Start(); err != nil {
		return fmt.Errorf("failed to start orchestrator: %w", err)
	}
	defer orch.Stop()

	server := api.NewServer(cfg, api.Dependencies{
		Controller: orch,
		Gate:       gate,
		DB:         db,
		History:    history,
	})

	purgeCtx, stopPurge := context.WithCancel(context.Background())
	defer stopPurge()
	if pg, ok := ledger.(*usage.PostgresLedger); ok {
		go purgeExpiredUsage(purgeCtx, pg)
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start()
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-shutdownChan:
		logger.Infof("Received signal %v, shutting down", sig)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	logger.Info("Server stopped gracefully")
	return nil
}

func needsAWS(cfg *config.Config) bool {
	return cfg.Telemetry.Type == "cloudwatch" ||
		cfg.Compute.Type == "ecs" ||
		cfg.Notify.Type == "sns" ||
		cfg.Usage.Backend == "dynamodb" ||
		cfg.Cache.Backend == "dynamodb" || cfg.Cache.Backend == "s3"
}

func newTelemetrySource(cfg *config.Config, awsCfg aws.Config, m *metrics.Metrics) telemetry.Source {
	var source telemetry.Source
	switch cfg.Telemetry.Type {
	case "cloudwatch":
		source = telemetry.NewCloudWatchSource(telemetry.CloudWatchSourceConfig{AWS: awsCfg, Cluster: cfg.Compute.Cluster})
	case "static":
		logger.Warn("Static telemetry configured: every cycle will hold capacity")
		return telemetry.NewStaticSource()
	default:
		source = telemetry.NewHTTPSource(telemetry.HTTPSourceConfig{
			Endpoint: cfg.Telemetry.Endpoint,
			Timeout:  cfg.Telemetry.Timeout,
		})
	}

	return telemetry.NewResilientSource(telemetry.ResilientSourceConfig{
		Source:        source,
		MaxFailures:   cfg.Telemetry.CircuitBreaker.MaxFailures,
		Timeout:       cfg.Telemetry.CircuitBreaker.Timeout,
		RetryAttempts: cfg.Telemetry.RetryAttempts,
		OnStateChange: func(name string, from, to resilience.State) {
			m.SetCircuitBreakerState(name, int(to))
		},
	})
}

func newComputeControl(cfg *config.Config, awsCfg aws.Config) scaler.ComputeControl {
	if cfg.Compute.Type == "ecs" {
		return scaler.NewECSControl(scaler.ECSControlConfig{AWS: awsCfg, Cluster: cfg.Compute.Cluster})
	}

	control := scaler.NewMemoryControl(scaler.MemoryControlConfig{ProvisionTime: cfg.Compute.ProvisionTime})
	for _, svc := range cfg.Controller.Services {
		control.InitializeService(svc.ID, max(cfg.Compute.InitialCount, svc.MinCapacity))
	}
	return control
}

func newNotifier(cfg *config.Config, awsCfg aws.Config) scaler.Notifier {
	if cfg.Notify.Type == "sns" {
		return notify.NewSNSNotifier(notify.SNSNotifierConfig{AWS: awsCfg, TopicARN: cfg.Notify.TopicARN})
	}
	return notify.LogNotifier{}
}

func newLedger(cfg *config.Config, awsCfg aws.Config, db *database.DB) usage.Ledger {
	switch cfg.Usage.Backend {
	case "postgres":
		return usage.NewPostgresLedger(db.DB)
	case "dynamodb":
		return usage.NewDynamoLedger(usage.DynamoLedgerConfig{AWS: awsCfg, Table: cfg.Usage.Table})
	default:
		logger.Warn("In-memory usage ledger configured: quotas reset on restart and are not shared between replicas")
		return usage.NewMemoryLedger()
	}
}

func newCache(cfg *config.Config, awsCfg aws.Config) cache.Cache {
	switch cfg.Cache.Backend {
	case "dynamodb":
		return cache.NewDynamoCache(cache.DynamoCacheConfig{AWS: awsCfg, Table: cfg.Cache.Table})
	case "s3":
		return cache.NewS3Cache(cache.S3CacheConfig{AWS: awsCfg, Bucket: cfg.Cache.Bucket, Prefix: cfg.Cache.Prefix})
	default:
		return cache.NewMemoryCache(cache.MemoryCacheConfig{MaxEntries: cfg.Cache.MaxEntries})
	}
}

func purgeExpiredUsage(ctx context.Context, ledger *usage.PostgresLedger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := ledger.PurgeExpired(ctx)
			if err != nil {
				logger.WithError(err).Warn("Failed to purge expired usage counters")
				continue
			}
			if n > 0 {
				logger.Infof("Purged %d expired usage counters", n)
			}
		}
	}
}
