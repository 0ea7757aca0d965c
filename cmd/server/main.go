package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dbmcp/sql-gateway/internal/config"
	"github.com/dbmcp/sql-gateway/internal/dispatch"
	"github.com/dbmcp/sql-gateway/internal/logger"
	"github.com/dbmcp/sql-gateway/internal/mcpserver"
	"github.com/dbmcp/sql-gateway/internal/policy"
	"github.com/dbmcp/sql-gateway/internal/ratelimit"
	"github.com/dbmcp/sql-gateway/internal/server"
	"github.com/dbmcp/sql-gateway/internal/validate"
	"github.com/dbmcp/sql-gateway/pkg/db"
	"github.com/dbmcp/sql-gateway/pkg/dbtools"
	"github.com/dbmcp/sql-gateway/pkg/tools"
)

func main() {
	// Parse command line flags
	transportMode := flag.String("t", "", "Transport mode (http or stdio)")
	port := flag.Int("port", 0, "Server port")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load configuration: %v", err)
		os.Exit(1)
	}

	// Override config with command line flags if provided
	if *transportMode != "" {
		cfg.TransportMode = *transportMode
	}
	if *port != 0 {
		cfg.ServerPort = *port
	}

	// Initialize logger
	logger.Initialize(cfg.LogLevel, cfg.LogFormat)

	mode, err := policy.ParseMode(cfg.Mode)
	if err != nil {
		logger.Error("Invalid mode: %v", err)
		os.Exit(1)
	}
	logger.Info("Starting sql-gateway in %s mode with %s transport", mode, cfg.TransportMode)

	if cfg.Timezone != "" {
		if loc, err := time.LoadLocation(cfg.Timezone); err == nil {
			time.Local = loc
		} else {
			logger.Warn("Invalid TZ %q: %v", cfg.Timezone, err)
		}
	}

	// Connect to the database
	database, err := db.NewDatabase(db.Config{
		Type:        cfg.DBConfig.Type,
		Host:        cfg.DBConfig.Host,
		Port:        cfg.DBConfig.Port,
		User:        cfg.DBConfig.User,
		Password:    cfg.DBConfig.Password,
		Name:        cfg.DBConfig.Name,
		PoolSize:    cfg.DBConfig.PoolSize,
		MaxOverflow: cfg.DBConfig.MaxOverflow,
	})
	if err != nil {
		logger.Error("Failed to configure database: %v", err)
		os.Exit(1)
	}
	if err := database.Connect(); err != nil {
		logger.Error("Failed to connect to database: %v", err)
		os.Exit(1)
	}
	defer database.Close()
	logger.Info("Connected to %s database at %s", database.DriverName(), database.ConnectionString())

	adapter, err := db.AdapterFor(cfg.DBConfig.Type)
	if err != nil {
		logger.Error("Failed to select dialect adapter: %v", err)
		os.Exit(1)
	}

	// Assemble the pipeline
	pool := db.NewPool(database, cfg.PoolBorrowTimeout)
	validator := &validate.Validator{
		MaxLength: cfg.MaxQueryLength,
		MaxParams: cfg.MaxQueryParams,
	}
	executor := dbtools.NewExecutor(pool, adapter, validator, cfg.DBConfig.Type,
		cfg.MaxResultRows, cfg.QueryTimeout)

	registry := tools.NewRegistry()
	executor.RegisterAll(registry)
	logger.Info("Registered %d tools, %d callable in %s mode",
		len(registry.List()), callableCount(registry, mode), mode)

	limiter := ratelimit.NewLimiter(cfg.RateLimitPerMin, cfg.RateLimitWindow)
	dispatcher := dispatch.NewDispatcher(registry, limiter, mode, cfg.MaxResultRows)

	switch cfg.TransportMode {
	case "http":
		runHTTP(cfg, dispatcher, database)
	case "stdio":
		runStdio(dispatcher)
	default:
		logger.Error("Unknown transport mode: %s", cfg.TransportMode)
		os.Exit(1)
	}
}

func callableCount(registry *tools.Registry, mode policy.Mode) int {
	n := 0
	for _, t := range registry.List() {
		if mode.Allowed(t.Name) {
			n++
		}
	}
	return n
}

func runHTTP(cfg *config.Config, dispatcher *dispatch.Dispatcher, database db.Database) {
	srv := server.New(cfg.ServerHost, cfg.ServerPort, dispatcher, database)

	// Start server in a goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// Wait for interrupt signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("Server error: %v", err)
			os.Exit(1)
		}
	case <-stop:
	}

	// Shutdown server gracefully
	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown error: %v", err)
	}

	logger.Info("Server stopped")
}

func runStdio(dispatcher *dispatch.Dispatcher) {
	srv := mcpserver.New("sql-gateway", server.Version, dispatcher)
	if err := mcpserver.ServeStdio(srv); err != nil {
		logger.Error("Stdio server error: %v", err)
		os.Exit(1)
	}
}
