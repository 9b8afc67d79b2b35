package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/xepoctpat/H3X-sub004/pkg/api"
	"github.com/xepoctpat/H3X-sub004/pkg/auth"
	"github.com/xepoctpat/H3X-sub004/pkg/bus"
	"github.com/xepoctpat/H3X-sub004/pkg/config"
	"github.com/xepoctpat/H3X-sub004/pkg/engine"
	"github.com/xepoctpat/H3X-sub004/pkg/health"
	"github.com/xepoctpat/H3X-sub004/pkg/logging"
	"github.com/xepoctpat/H3X-sub004/pkg/metrics"
)

const version = "1.0.0"

func main() {
	configPath := flag.String("config", "", "Path to YAML config (FLUPS_* env vars override)")
	addr := flag.String("addr", "", "Listen address override")
	flag.Parse()

	// Structured logging for the process itself; the engine carries its
	// own logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	logger.Info("flups engine server starting",
		"version", version,
		"addr", cfg.Server.Addr,
		"max_nodes", cfg.Engine.MaxNodes,
		"max_patches", cfg.Engine.MaxPatches,
		"mirroring", cfg.Engine.EnableMirroring,
		"phi_mapping", cfg.Engine.EnablePhiMapping,
	)

	registry := metrics.NewRegistry()
	engineLogger := logging.NewJSONLogger(os.Stdout, logging.ParseLevel(cfg.Log.Level))

	eng, err := engine.New(engine.Options{
		Config:  cfg,
		Logger:  engineLogger,
		Metrics: registry,
	})
	if err != nil {
		logger.Error("failed to create engine", "error", err)
		os.Exit(1)
	}

	server, err := api.NewServer(api.Options{
		Config:  cfg.Server,
		Engine:  eng,
		Logger:  engineLogger,
		Metrics: registry,
		Health:  buildHealthChecker(eng, cfg),
		Version: version,
	})
	if err != nil {
		logger.Error("failed to create api server", "error", err)
		os.Exit(1)
	}

	if server.AuthEnabled() {
		bootstrapOperator(logger, server.Operators())
	}

	var publisher *bus.Publisher
	if cfg.Bus.Enabled {
		publisher, err = bus.NewPublisher(bus.Options{
			URL:     cfg.Bus.URL,
			Engine:  eng,
			Logger:  engineLogger,
			Metrics: registry,
		})
		if err != nil {
			logger.Error("failed to create bus publisher", "error", err)
			os.Exit(1)
		}
		if err := publisher.Start(); err != nil {
			logger.Error("failed to start bus publisher", "error", err)
			os.Exit(1)
		}
		logger.Info("bus publisher started", "url", cfg.Bus.URL)
	}

	// Graceful shutdown on SIGINT/SIGTERM
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("shutting down", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	// Start returned cleanly: the shutdown path owns the rest
	if publisher != nil {
		publisher.Stop()
	}
	status := eng.Statistics()
	eng.Close()
	logger.Info("server exited",
		"virtual_time", status.VirtualTime,
		"nodes", status.Nodes,
		"patches", status.Patches,
		"actions", status.Actions.Total,
	)
}

// buildHealthChecker wires the standard probe set: engine liveness,
// lattice occupancy, queue depth, audit ring pressure, process memory.
func buildHealthChecker(eng *engine.Engine, cfg *config.Config) *health.HealthChecker {
	checker := health.NewHealthChecker()

	checker.RegisterCheck("engine", health.EngineCheck(eng.Ping))
	checker.RegisterCheck("lattice_capacity", health.LatticeCapacityCheck(func() (int, int, int, int) {
		status := eng.Statistics()
		return status.Nodes, cfg.Engine.MaxNodes, status.Patches, cfg.Engine.MaxPatches
	}))
	checker.RegisterCheck("action_queue", health.QueueCheck(eng.QueueDepth, 100, 1000))
	checker.RegisterCheck("audit_trail", health.AuditCheck(func() (int, int) {
		return eng.Statistics().AuditRetained, cfg.Engine.AuditCap
	}))
	checker.RegisterCheck("memory", health.MemoryCheck(func() (uint64, uint64) {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		return m.Alloc, m.Sys
	}))

	checker.RegisterReadinessCheck("engine", health.EngineCheck(eng.Ping))
	checker.RegisterLivenessCheck("process", func() health.Check {
		return health.SimpleCheck("process")
	})

	return checker
}

// bootstrapOperator seeds the first admin from the environment so a
// fresh deployment can log in. Without the variables the store starts
// empty and only API keys minted out-of-band work.
func bootstrapOperator(logger *slog.Logger, operators *auth.OperatorStore) {
	username := os.Getenv("FLUPS_ADMIN_USER")
	password := os.Getenv("FLUPS_ADMIN_PASSWORD")
	if username == "" || password == "" {
		logger.Warn("auth enabled but FLUPS_ADMIN_USER/FLUPS_ADMIN_PASSWORD not set; operator store starts empty")
		return
	}

	operator, err := operators.CreateOperator(username, password, auth.RoleAdmin)
	if err != nil {
		logger.Error("failed to create bootstrap operator", "error", err)
		os.Exit(1)
	}
	logger.Info("bootstrap operator created", "username", operator.Username, "role", operator.Role)
}
