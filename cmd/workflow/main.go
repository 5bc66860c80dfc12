package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/nidhogg/riskline/internal/agent"
	"github.com/nidhogg/riskline/internal/auditlog"
	"github.com/nidhogg/riskline/internal/config"
	"github.com/nidhogg/riskline/internal/notify"
	"github.com/nidhogg/riskline/internal/pipeline"
	"github.com/nidhogg/riskline/internal/provider"
	"github.com/nidhogg/riskline/internal/report"
	"github.com/nidhogg/riskline/internal/schedule"
	"github.com/nidhogg/riskline/internal/search"
)

// workflowQuery routes through the scheduler and then, via the "report"
// keyword, the reporting stage.
const workflowQuery = "Analyze the current equipment schedule and generate a comprehensive risk report."

// workflowResult is printed as JSON on stdout.
type workflowResult struct {
	Status         string `json:"status"`
	Report         string `json:"report,omitempty"`
	Error          string `json:"error,omitempty"`
	WorkflowRunID  string `json:"workflow_run_id"`
	SessionID      string `json:"session_id,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	Timestamp      string `json:"timestamp"`
}

// main runs one unattended schedule analysis turn and prints the result.
// Intended for cron-style invocation.
func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "configs/riskline.json"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.String("path", cfgPath), zap.Error(err))
	}

	runID := uuid.New().String()
	sessionID := "workflow_" + time.Now().Format("20060102_150405")

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
			continue
		}
		if model == "" {
			model = pc.Model
		}
	}

	var audit *auditlog.Store
	if cfg.Database.Postgres.DSN != "" {
		st, pgErr := auditlog.New(cfg.Database.Postgres.DSN, logger)
		if pgErr != nil {
			logger.Warn("PostgreSQL unavailable, running without audit log", zap.Error(pgErr))
		} else {
			audit = st
			defer audit.Close()
		}
	}

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
	pl := pipeline.New(toolbox.Stages(), exec, pipeline.KeywordClassifier{}, sessions, audit, nil, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Second)
	defer cancel()

	res, err := pl.Process(ctx, sessionID, workflowQuery)

	out := workflowResult{
		WorkflowRunID: runID,
		Timestamp:     time.Now().Format(time.RFC3339),
	}
	if err != nil {
		out.Status = "error"
		out.Error = err.Error()
	} else {
		out.Status = "success"
		out.Report = res.Response
		out.SessionID = sessionID
		out.ConversationID = res.ConversationID
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(out); encErr != nil {
		fmt.Fprintln(os.Stderr, encErr)
	}
	if err != nil {
		os.Exit(1)
	}
}
