// Package app wires together every service the research core needs into a
// single App struct: storage, the Gemini claim extractor, the dispatcher
// and its registered actions, the long-poll status service, the feedback
// handler, the schema registry, the tool-dispatch router, and metrics.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmcallan/lancet/internal/clients/gemini"
	"github.com/bobmcallan/lancet/internal/clients/serp"
	"github.com/bobmcallan/lancet/internal/clients/web"
	"github.com/bobmcallan/lancet/internal/common"
	"github.com/bobmcallan/lancet/internal/interfaces"
	"github.com/bobmcallan/lancet/internal/metrics"
	"github.com/bobmcallan/lancet/internal/models"
	"github.com/bobmcallan/lancet/internal/schema"
	"github.com/bobmcallan/lancet/internal/services/adminws"
	"github.com/bobmcallan/lancet/internal/services/dispatcher"
	"github.com/bobmcallan/lancet/internal/services/feedback"
	"github.com/bobmcallan/lancet/internal/services/status"
	"github.com/bobmcallan/lancet/internal/storage/surrealdb"
	"github.com/bobmcallan/lancet/internal/toolrouter"
)

// App holds every initialized service and is the core that
// cmd/lancet-server builds on.
type App struct {
	Config *common.Config
	Logger *common.Logger
	Store  interfaces.Store

	ClaimExtractor interfaces.ClaimExtractor

	Dispatcher      *dispatcher.Dispatcher
	StatusHub       *status.TaskHub
	StatusService   *status.Service
	FeedbackHandler *feedback.Handler
	SchemaRegistry  *schema.Registry
	ToolRouter      *toolrouter.Router
	Metrics         *metrics.Registry
	AdminWSHub      *adminws.Hub

	StartupTime time.Time
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes storage, clients, the dispatcher's action registry,
// and the tool-dispatch boundary. configPath may be empty, in which case
// the default resolution logic below is used.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	common.LoadVersionFromFile()

	binDir := getBinaryDir()

	if configPath == "" {
		configPath = os.Getenv("LANCET_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "lancet-service.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/lancet-service.toml" // fallback for development
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if config.Storage.DataPath != "" && !filepath.IsAbs(config.Storage.DataPath) {
		config.Storage.DataPath = filepath.Join(binDir, config.Storage.DataPath)
	}
	if config.Logging.FilePath != "" && !filepath.IsAbs(config.Logging.FilePath) {
		config.Logging.FilePath = filepath.Join(binDir, config.Logging.FilePath)
	}

	logger := common.NewLogger(config.Logging.Level)

	store, err := surrealdb.NewManager(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	ctx := context.Background()

	geminiKey, err := common.ResolveAPIKey(ctx, store, "gemini_api_key", config.Clients.Gemini.APIKey)
	if err != nil {
		logger.Warn().Msg("Gemini API key not configured - claim extraction will be unavailable")
	}

	var claimExtractor interfaces.ClaimExtractor
	if geminiKey != "" {
		geminiClient, err := gemini.NewClient(ctx, geminiKey,
			gemini.WithLogger(logger),
			gemini.WithModel(config.Clients.Gemini.Model),
		)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to initialize Gemini client")
		} else {
			claimExtractor = geminiClient
		}
	}

	metricsRegistry := metrics.NewRegistry()

	hub := status.NewTaskHub(logger)
	statusSvc := status.NewService(store, hub, logger, config.Status).WithMetrics(metricsRegistry)
	feedbackHandler := feedback.NewHandler(store, logger)

	schemaRegistry, err := schema.NewRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to load schema registry: %w", err)
	}

	fetcher := web.NewClient(web.WithLogger(logger))
	engines := buildSearchEngines(config.Engines, logger)
	breakerCooldown := time.Duration(config.Engines.GetCooldown()) * time.Second

	adminHub := adminws.NewHub(logger)
	go adminHub.Run()

	disp := dispatcher.New(store, hub, logger, config.Dispatcher).
		WithMetrics(metricsRegistry).
		WithEventBus(adminHub)

	targetAction := dispatcher.NewTargetAction(store, hub, logger, engines, fetcher, breakerCooldown)
	disp.RegisterAction(models.JobKindTargetQueue, targetAction)
	disp.RegisterAction(models.JobKindSearchQueue, targetAction)
	disp.RegisterAction(models.JobKindReferenceQueue, dispatcher.NewReferenceAction(store, hub, logger, targetAction))
	disp.RegisterAction(models.JobKindComputeClaims, dispatcher.NewClaimAction(store, hub, logger, claimExtractor))

	router := toolrouter.New(store, hub, statusSvc, feedbackHandler, schemaRegistry, logger).WithMetrics(metricsRegistry)

	a := &App{
		Config:          config,
		Logger:          logger,
		Store:           store,
		ClaimExtractor:  claimExtractor,
		Dispatcher:      disp,
		StatusHub:       hub,
		StatusService:   statusSvc,
		FeedbackHandler: feedbackHandler,
		SchemaRegistry:  schemaRegistry,
		ToolRouter:      router,
		Metrics:         metricsRegistry,
		AdminWSHub:      adminHub,
		StartupTime:     startupStart,
	}

	logger.Info().Dur("startup", time.Since(startupStart)).Msg("App initialized")

	return a, nil
}

// buildSearchEngines constructs one serp.Engine per configured engine name,
// falling back to a bare https://serp.local/<name> endpoint (a safe
// stand-in with no real traffic) for any name without an explicit
// [engines.endpoints] entry.
func buildSearchEngines(config common.EnginesConfig, logger *common.Logger) []dispatcher.SearchEngine {
	engines := make([]dispatcher.SearchEngine, 0, len(config.Names))
	for _, name := range config.Names {
		endpoint := config.Endpoints[name]
		baseURL := endpoint.BaseURL
		if baseURL == "" {
			baseURL = "https://serp.local/" + name
		}
		opts := []serp.EngineOption{serp.WithLogger(logger)}
		if endpoint.APIKey != "" {
			opts = append(opts, serp.WithAPIKey(endpoint.APIKey))
		}
		engines = append(engines, serp.NewEngine(name, baseURL, opts...))
	}
	return engines
}

// StartDispatcher launches the dispatcher's worker pools.
func (a *App) StartDispatcher() {
	a.Dispatcher.Start()
}

// Close releases all resources held by the App. Shutdown order: stop the
// dispatcher so no worker is mid-job, then close storage.
func (a *App) Close() {
	if a.Dispatcher != nil {
		a.Dispatcher.Stop()
	}
	if a.AdminWSHub != nil {
		a.AdminWSHub.Stop()
	}
	if a.Store != nil {
		a.Store.Close()
		a.Store = nil
	}
}
