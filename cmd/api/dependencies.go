package main

import (
	"log/slog"
	"time"

	"github.com/khoroch-app/khoroch/internal/domain/ambiguity"
	"github.com/khoroch-app/khoroch/internal/domain/category"
	"github.com/khoroch-app/khoroch/internal/domain/clarify"
	"github.com/khoroch-app/khoroch/internal/domain/contamination"
	"github.com/khoroch-app/khoroch/internal/domain/expense"
	"github.com/khoroch-app/khoroch/internal/domain/insights"
	"github.com/khoroch-app/khoroch/internal/domain/invariant"
	"github.com/khoroch-app/khoroch/internal/domain/llm"
	"github.com/khoroch-app/khoroch/internal/domain/parser"
	"github.com/khoroch-app/khoroch/internal/domain/pipeline"
	"github.com/khoroch-app/khoroch/internal/domain/prefs"
	"github.com/khoroch-app/khoroch/internal/domain/repair"
	"github.com/khoroch-app/khoroch/pkg/config"
	"github.com/khoroch-app/khoroch/pkg/cron"
	"github.com/khoroch-app/khoroch/pkg/db"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	DB     *db.DB
	Logger *slog.Logger

	// Stores
	ExpenseStore expense.Store
	PrefsStore   prefs.Store
	ClarifyStore *clarify.Store

	// Domain components
	CategoryEngine   *category.Engine
	AmountNormalizer *parser.AmountNormalizer
	Parser           *parser.Parser
	Repairer         *repair.Detector
	Ambiguity        *ambiguity.Detector
	Dialogue         *clarify.Machine
	Invariants       *invariant.Monitor
	Contamination    *contamination.Monitor
	Pipeline         *pipeline.Pipeline
	Insights         *insights.Service
	Scheduler        *cron.Scheduler
}

// NewDependencies wires the application from configuration.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	database, err := db.New(db.Config{
		DSN:             cfg.Database.DSN(),
		MaxConns:        10,
		MinConns:        2,
		MaxConnLifetime: time.Hour,
	})
	if err != nil {
		return nil, err
	}

	var llmClient llm.Client
	if cfg.LLM.Enabled() {
		llmClient = llm.NewRateLimited(
			llm.NewHTTPClient(cfg.LLM.Endpoint, cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.Timeout),
			cfg.LLM.RequestsPerMin,
			cfg.LLM.Timeout,
		)
	} else {
		logger.Info("llm extraction disabled, regex strategies only")
	}

	engine := category.NewEngine()
	amounts := parser.NewAmountNormalizer(cfg.Pipeline.DefaultCurrency)

	expenses := expense.NewPostgresStore(database.Pool)
	preferences := prefs.NewPostgresStore(database.Pool)
	clarifyStore := clarify.NewStore(cfg.Pipeline.ClarificationTTL)
	dialogue := clarify.NewMachine(clarifyStore, logger)
	invariants := invariant.NewMonitor(cfg.Pipeline.AllowedSource, logger)
	contam := contamination.NewMonitor(contamination.DefaultWindow, logger)
	multiParser := parser.New(llmClient, engine, amounts, logger)
	repairer := repair.NewDetector(amounts, engine, logger)
	detector := ambiguity.NewDetector()

	pipe := pipeline.New(pipeline.Config{
		Parser:          multiParser,
		Repairer:        repairer,
		Ambiguity:       detector,
		Dialogue:        dialogue,
		Prefs:           preferences,
		Invariants:      invariants,
		Expenses:        expenses,
		Source:          cfg.Pipeline.AllowedSource,
		DefaultCurrency: cfg.Pipeline.DefaultCurrency,
		Logger:          logger,
	})

	return &Dependencies{
		Config:           cfg,
		DB:               database,
		Logger:           logger,
		ExpenseStore:     expenses,
		PrefsStore:       preferences,
		ClarifyStore:     clarifyStore,
		CategoryEngine:   engine,
		AmountNormalizer: amounts,
		Parser:           multiParser,
		Repairer:         repairer,
		Ambiguity:        detector,
		Dialogue:         dialogue,
		Invariants:       invariants,
		Contamination:    contam,
		Pipeline:         pipe,
		Insights:         insights.NewService(expenses, contam, logger),
		Scheduler:        cron.NewScheduler(clarifyStore, contam, logger),
	}, nil
}

// Close releases held resources.
func (d *Dependencies) Close() {
	if d.DB != nil {
		d.DB.Close()
	}
}
