package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/bryanwahyu/competeiq/internal/application"
	appanalysis "github.com/bryanwahyu/competeiq/internal/application/analysis"
	appassets "github.com/bryanwahyu/competeiq/internal/application/assets"
	"github.com/bryanwahyu/competeiq/internal/application/pipeline"
	"github.com/bryanwahyu/competeiq/internal/application/progress"
	"github.com/bryanwahyu/competeiq/internal/config"
	"github.com/bryanwahyu/competeiq/internal/domain/analysis"
	"github.com/bryanwahyu/competeiq/internal/domain/search"
	"github.com/bryanwahyu/competeiq/internal/infra/ai/agent"
	"github.com/bryanwahyu/competeiq/internal/infra/ai/openai"
	"github.com/bryanwahyu/competeiq/internal/infra/ai/prompt"
	mysqlp "github.com/bryanwahyu/competeiq/internal/infra/db/mysql"
	"github.com/bryanwahyu/competeiq/internal/infra/db/postgres"
	"github.com/bryanwahyu/competeiq/internal/infra/db/sqlite"
	"github.com/bryanwahyu/competeiq/internal/infra/db/sqlstore"
	"github.com/bryanwahyu/competeiq/internal/infra/httpserver"
	"github.com/bryanwahyu/competeiq/internal/infra/push"
	"github.com/bryanwahyu/competeiq/internal/infra/scrape"
	"github.com/bryanwahyu/competeiq/internal/infra/search/tavily"
	minioStore "github.com/bryanwahyu/competeiq/internal/infra/storage"
	"github.com/bryanwahyu/competeiq/internal/logger"
	"github.com/bryanwahyu/competeiq/internal/middleware"
)

// openStore connects the configured driver and ensures the schema
func openStore(ctx context.Context, cfg *config.Config) (*sqlstore.Store, error) {
	var (
		db      *sql.DB
		dialect sqlstore.Dialect
		err     error
	)
	switch cfg.Database.Driver {
	case "mysql":
		db, err = mysqlp.Connect(ctx, cfg.MySQLDSN())
		dialect = mysqlp.Dialect
	case "postgres":
		db, err = postgres.Connect(ctx, cfg.PostgresDSN())
		dialect = postgres.Dialect
	case "sqlite":
		db, err = sqlite.Connect(ctx, cfg.Database.Path)
		dialect = sqlite.Dialect
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("%s connect error: %w", cfg.Database.Driver, err)
	}
	if err := sqlstore.EnsureSchema(ctx, db, dialect); err != nil {
		db.Close()
		return nil, err
	}
	return sqlstore.New(db, dialect), nil
}

// app holds what serve needs after wiring
type app struct {
	store   *sqlstore.Store
	tasks   *appanalysis.TaskRegistry
	limiter *middleware.RateLimiter
	handler http.Handler
}

func (a *app) Close() {
	a.limiter.Stop()
	a.store.DB.Close()
}

// buildApp wires the stores, agents and services. base bounds every
// background analysis; canceling it stops them.
func buildApp(base context.Context, cfg *config.Config) (*app, error) {
	for _, k := range cfg.MissingKeys() {
		logger.Log.WithField("key", k).Warn("API key not set, affected stages will use fallbacks")
	}

	store, err := openStore(base, cfg)
	if err != nil {
		return nil, err
	}

	checkers := map[string]middleware.HealthChecker{
		"database": &middleware.PingChecker{Target: store, Timeout: 2 * time.Second},
	}

	var artifacts *minioStore.Store
	if cfg.Minio.Enabled {
		artifacts, err = minioStore.New(base,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			store.DB.Close()
			return nil, fmt.Errorf("minio init error: %w", err)
		}
		checkers["object_store"] = &middleware.PingChecker{Target: artifacts, Timeout: 2 * time.Second}
	}

	agents, err := buildAgents(cfg)
	if err != nil {
		store.DB.Close()
		return nil, err
	}
	tracker := progress.NewTracker()
	runner := &pipeline.Runner{
		Agents:  agents,
		Tracker: tracker,
	}
	hub := push.NewHub(nil)
	tasks := appanalysis.NewTaskRegistry(base)

	analyses := &appanalysis.Service{
		Companies:   store.Companies,
		Repo:        store.Analyses,
		StageErrors: store.StageErrors,
		Runner:      runner,
		Tracker:     tracker,
		Notifier:    hub,
		Tasks:       tasks,
		Recorder:    middleware.RunRecorder{},
		Clock:       application.SystemClock{},
	}
	runner.OnDegraded = analyses.RecordDegraded

	assetSvc := &appassets.Service{
		Analyses: store.Analyses,
		Repo:     store.Assets,
		Clock:    application.SystemClock{},
	}
	if artifacts != nil {
		assetSvc.Artifacts = artifacts
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	handler := httpserver.NewRouter(httpserver.Options{
		Analyses:       analyses,
		Assets:         assetSvc,
		Hub:            hub,
		APIKeys:        cfg.Auth.APIKeys,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Limiter:        limiter,
		HealthCheckers: checkers,
	})

	return &app{
		store:   store,
		tasks:   tasks,
		limiter: limiter,
		handler: handler,
	}, nil
}

// buildAgents creates one agent per stage. They share one model client and
// one rate limiter; only web scraping reads the company page and trend
// prediction works without search.
func buildAgents(cfg *config.Config) (pipeline.Agents, error) {
	llm := openai.NewClient(openai.Options{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
	})
	limiter := rate.NewLimiter(rate.Limit(float64(cfg.LLM.RPM)/60), max(cfg.LLM.Burst, 1))

	var searcher search.Searcher
	if cfg.Search.TavilyAPIKey != "" {
		searcher = tavily.NewClient(cfg.Search.TavilyAPIKey, "")
	}

	byStage := make(map[analysis.StageName]*agent.Agent)
	for _, st := range analysis.DefaultStages() {
		instructions, err := prompt.For(st.Name)
		if err != nil {
			return pipeline.Agents{}, err
		}
		a := &agent.Agent{
			AgentName:    st.Agent,
			Instructions: instructions,
			Completer:    llm,
			Limiter:      limiter,
			SearchDepth:  cfg.Search.Depth,
			MaxResults:   cfg.Search.MaxResults,
		}
		if searcher != nil && st.Name != analysis.StageTrendPrediction {
			a.Search = searcher
		}
		byStage[st.Name] = a
	}
	byStage[analysis.StageWebScraping].Pages = scrape.NewReader()

	return pipeline.Agents{
		WebScraping:        byStage[analysis.StageWebScraping],
		CompetitorResearch: byStage[analysis.StageCompetitorResearch],
		TrendPrediction:    byStage[analysis.StageTrendPrediction],
		MarketPositioning:  byStage[analysis.StageMarketPositioning],
	}, nil
}
