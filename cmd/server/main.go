package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sarifscope/api/internal/app"
	"github.com/sarifscope/api/internal/config"
	"github.com/sarifscope/api/internal/infra/http"
	"github.com/sarifscope/api/internal/infra/http/handler"
	"github.com/sarifscope/api/internal/infra/http/routes"
	"github.com/sarifscope/api/internal/infra/postgres"
	"github.com/sarifscope/api/pkg/logger"
	"github.com/sarifscope/api/pkg/migrations"
	"github.com/sarifscope/api/pkg/validator"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		log := logger.NewDefault()
		log.Error("failed to load configuration", "error", err)
		return 1
	}
	log := initLogger(cfg)
	log.Info("starting application", "app", cfg.App.Name, "env", cfg.App.Env)

	db, err := postgres.New(&cfg.Database)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		return 1
	}
	defer closeWithLog(db, "database", log)
	log.Info("database connected")

	if cfg.Database.AutoMigrate {
		runner := migrations.NewRunner(db.DB, cfg.Database.MigrationsDir, log)
		if err := runner.Up(context.Background()); err != nil {
			log.Error("failed to run migrations", "error", err)
			return 1
		}
	}

	repo := postgres.NewReportRepository(db)
	reportService := app.NewReportService(repo, cfg.Ingest, log)

	v := validator.New()
	handlers := routes.Handlers{
		Health: handler.NewHealthHandler(handler.WithDatabase(db)),
		Report: handler.NewReportHandler(reportService, v, log),
	}

	server := http.NewServer(cfg, log)
	routes.Register(server.Router(), handlers)

	go func() {
		if err := server.Start(); err != nil {
			log.Error("server error", "error", err)
		}
	}()
	log.Info("application started", "http_addr", cfg.Server.Addr())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
		return 1
	}

	log.Info("application stopped")
	return 0
}

func initLogger(cfg *config.Config) *logger.Logger {
	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	log.SetDefault()
	return log
}

type closer interface {
	Close() error
}

func closeWithLog(c closer, name string, log *logger.Logger) {
	if err := c.Close(); err != nil {
		log.Error("failed to close "+name, "error", err)
	}
}
