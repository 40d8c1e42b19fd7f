package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/OldStager01/capacity-controller/internal/logger"
	"github.com/OldStager01/capacity-controller/internal/simulator"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	port := flag.Int("port", 9000, "simulator server port")
	logLevel := flag.String("log-level", "info", "log level")
	autoCreate := flag.Bool("auto-create", true, "create unknown services on first query")
	services := flag.String("services", "", "comma-separated service ids to seed")
	pattern := flag.String("pattern", "daily", "traffic pattern for seeded services: steady, idle, daily, weekly, random")
	baseRPM := flag.Float64("base-rpm", 30, "requests per minute for seeded services at pattern factor 1")
	flag.Parse()

	logger.Setup(*logLevel, "development")
	logger.Info("Starting telemetry simulator")

	sim := simulator.New(simulator.Config{
		Port:       *port,
		AutoCreate: *autoCreate,
	})

	for _, id := range strings.Split(*services, ",") {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		svc := sim.AddService(id, simulator.ServiceSimConfig{BaseRPM: *baseRPM, BaseCPU: 45, Variance: 10})
		svc.SetPattern(simulator.ParsePattern(*pattern))
		logger.Infof("Seeded service %s with %s traffic", id, *pattern)
	}

	if err := sim.Start(); err != nil {
		return fmt.Errorf("failed to start simulator: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down simulator")
	return sim.Stop()
}
