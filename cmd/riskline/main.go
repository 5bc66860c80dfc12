package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/nidhogg/riskline/internal/agent"
	"github.com/nidhogg/riskline/internal/api"
	"github.com/nidhogg/riskline/internal/auditlog"
	"github.com/nidhogg/riskline/internal/config"
	"github.com/nidhogg/riskline/internal/notify"
	"github.com/nidhogg/riskline/internal/pipeline"
	"github.com/nidhogg/riskline/internal/provider"
	"github.com/nidhogg/riskline/internal/report"
	"github.com/nidhogg/riskline/internal/schedule"
	"github.com/nidhogg/riskline/internal/search"
)

func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	logger.Info("Starting riskline...")

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "configs/riskline.json"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.String("path", cfgPath), zap.Error(err))
	}
	logger.Info("Config loaded", zap.String("path", cfgPath))

	// Provider router
	router := provider.NewRouter(logger)
	var model string
	for _, pc := range cfg.Providers {
		provCfg := provider.Config{
			ID: pc.ID, Type: pc.Type, Name: pc.Name,
			Endpoint: pc.Endpoint, APIKey: pc.APIKey, Model: pc.Model,
		}
		switch pc.Type {
		case "openai":
			router.Register(provider.NewOpenAIProvider(provCfg, logger))
		case "anthropic":
			router.Register(provider.NewAnthropicProvider(provCfg, logger))
		default:
			logger.Warn("unknown provider type", zap.String("id", pc.ID), zap.String("type", pc.Type))
			continue
		}
		if model == "" {
			model = pc.Model
		}
	}
	if !router.Available() {
		logger.Warn("no providers configured, stages will answer with placeholders")
	}

	// Audit store
	var audit *auditlog.Store
	if cfg.Database.Postgres.DSN != "" {
		st, pgErr := auditlog.New(cfg.Database.Postgres.DSN, logger)
		if pgErr != nil {
			logger.Warn("PostgreSQL unavailable, running without audit log", zap.Error(pgErr))
		} else {
			dir := cfg.Database.Postgres.MigrationsDir
			if dir == "" {
				dir = "migrations"
			}
			if mErr := st.Migrate(context.Background(), dir); mErr != nil {
				logger.Fatal("migration failed", zap.Error(mErr))
			}
			audit = st
		}
	}

	// Stage event bus
	var bus *pipeline.EventBus
	if cfg.Database.Redis.URL != "" {
		b, busErr := pipeline.NewEventBus(cfg.Database.Redis.URL, logger)
		if busErr != nil {
			logger.Warn("Redis unavailable, running without stage events", zap.Error(busErr))
		} else {
			bus = b
		}
	}

	// Stage tool dependencies
	var schedSrc schedule.Source
	if audit != nil {
		schedSrc = schedule.NewPGSource(audit.Pool(), logger)
	}
	toolbox := &agent.Toolbox{
		Schedule: schedSrc,
		Search:   search.NewClient(cfg.Search.Endpoint, cfg.Search.MaxResults, logger),
		Reports:  report.NewWriter(cfg.Reports.Dir, cfg.Reports.BaseURL, audit, logger),
		Notifier: notify.NewSlackNotifier(cfg.Notify.SlackWebhookURL, logger),
		Audit:    audit,
		Model:    model,
		Logger:   logger,
	}

	exec := agent.NewExecutor(router, model, logger)
	sessions := pipeline.NewSessions(logger)
	pl := pipeline.New(toolbox.Stages(), exec, pipeline.KeywordClassifier{}, sessions, audit, bus, logger)

	handler := api.NewHandler(pl, audit, logger)

	port := fmt.Sprintf("%d", cfg.Server.Port)
	if port == "0" {
		port = "8000"
	}
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: handler.Router(),
	}

	go func() {
		logger.Info("riskline listening", zap.String("port", port))
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down riskline...")
	srv.Shutdown(context.Background())
	sessions.ClearAll()
	if bus != nil {
		bus.Close()
	}
	if audit != nil {
		audit.Close()
	}
}
