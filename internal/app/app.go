// Package app assembles the services shared by the API server, the MCP
// server and the operator CLI.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/zhouzirui/polaris/backend/internal/config"
	"github.com/zhouzirui/polaris/backend/internal/handler"
	"github.com/zhouzirui/polaris/backend/internal/logging"
	"github.com/zhouzirui/polaris/backend/internal/metrics"
	portfolioModel "github.com/zhouzirui/polaris/backend/internal/model/portfolio"
	"github.com/zhouzirui/polaris/backend/internal/service/artifact"
	"github.com/zhouzirui/polaris/backend/internal/service/chat"
	"github.com/zhouzirui/polaris/backend/internal/service/discovery"
	"github.com/zhouzirui/polaris/backend/internal/service/embedding"
	"github.com/zhouzirui/polaris/backend/internal/service/extractor"
	"github.com/zhouzirui/polaris/backend/internal/service/gateway"
	"github.com/zhouzirui/polaris/backend/internal/service/health"
	"github.com/zhouzirui/polaris/backend/internal/service/portfolio"
	"github.com/zhouzirui/polaris/backend/internal/service/session"
)

// App holds the wired services.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *metrics.Metrics

	Gateway    gateway.Gateway
	Catalog    *portfolioModel.Catalog
	Embeddings *embedding.Client
	Sessions   *session.Store
	Discovery  *discovery.Service
	Portfolio  *portfolio.Service
	Artifacts  *artifact.Service
	Chat       *chat.Service
	Health     *health.Service
}

// Option overrides a collaborator, mostly for tests.
type Option func(*options)

type options struct {
	gateway gateway.Gateway
}

// WithGateway replaces the configured model gateway.
func WithGateway(gw gateway.Gateway) Option {
	return func(o *options) { o.gateway = gw }
}

// New builds every service from cfg.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	gw := o.gateway
	if gw == nil {
		built, err := newGateway(ctx, cfg.AI, m, logger)
		if err != nil {
			return nil, err
		}
		gw = built
	}

	catalog, err := loadCatalog(cfg.Portfolio)
	if err != nil {
		return nil, err
	}

	embeddings := embedding.NewClient(cfg.Embedding, nil)

	var searcher portfolio.Searcher = portfolio.NewStaticSearcher(catalog)
	if cfg.Embedding.SearchEnabled {
		searcher = portfolio.NewEmbeddingSearcher(embeddings, catalog, searcher, logger)
		logger.Info("portfolio vector search enabled", "url", cfg.Embedding.URL)
	}

	store := session.NewStore(session.WithMetrics(m), session.WithLogger(logger))
	ex := extractor.New(gw,
		extractor.WithMaxTokens(cfg.AI.ExtractMaxTokens),
		extractor.WithTimeout(cfg.AI.Timeout),
		extractor.WithMetrics(m),
		extractor.WithLogger(logger),
	)

	var llmHealth gateway.HealthChecker
	if checker, ok := gw.(gateway.HealthChecker); ok {
		llmHealth = checker
	}

	return &App{
		Config:     cfg,
		Logger:     logger,
		Metrics:    m,
		Gateway:    gw,
		Catalog:    catalog,
		Embeddings: embeddings,
		Sessions:   store,
		Discovery: discovery.NewService(store, ex, searcher,
			discovery.WithMetrics(m),
			discovery.WithLogger(logger),
		),
		Portfolio: portfolio.NewService(searcher),
		Artifacts: artifact.NewService(store),
		Chat:      chat.NewService(store, gw, logger),
		Health:    health.NewService(llmHealth, embeddings),
	}, nil
}

// Router returns the HTTP API for the app.
func (a *App) Router() http.Handler {
	return handler.NewRouter(handler.Services{
		Sessions:    a.Sessions,
		Discovery:   a.Discovery,
		Chat:        a.Chat,
		Artifacts:   a.Artifacts,
		Portfolio:   a.Portfolio,
		Health:      a.Health,
		Metrics:     a.Metrics,
		MetricsPath: a.Config.Metrics.Path,
		Logger:      a.Logger,
	})
}

func newGateway(ctx context.Context, cfg config.AIConfig, m *metrics.Metrics, logger *slog.Logger) (gateway.Gateway, error) {
	if !cfg.UsesChatModel() {
		logger.Info("using http model gateway", "url", cfg.LLMURL)
		return gateway.Instrument(gateway.NewHTTPGateway(cfg.LLMURL, nil), cfg.Provider, m, logger), nil
	}

	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("init %s chat model: %w", cfg.Provider, err)
	}
	gw, err := gateway.NewEinoGateway(ctx, cfg.Provider, chatModel)
	if err != nil {
		return nil, fmt.Errorf("init %s gateway: %w", cfg.Provider, err)
	}
	logger.Info("using chat model gateway", "provider", cfg.Provider)
	return gateway.Instrument(gw, cfg.Provider, m, logger), nil
}

func loadCatalog(cfg config.PortfolioConfig) (*portfolioModel.Catalog, error) {
	if cfg.File == "" {
		return portfolioModel.NewCatalog(portfolioModel.Seed()), nil
	}
	catalog, err := portfolioModel.LoadCatalog(cfg.File)
	if err != nil {
		return nil, fmt.Errorf("load portfolio catalog: %w", err)
	}
	return catalog, nil
}
