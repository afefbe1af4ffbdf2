package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/polaris/backend/internal/handler/artifact"
	"github.com/zhouzirui/polaris/backend/internal/handler/chat"
	"github.com/zhouzirui/polaris/backend/internal/handler/discovery"
	"github.com/zhouzirui/polaris/backend/internal/handler/health"
	"github.com/zhouzirui/polaris/backend/internal/handler/portfolio"
	"github.com/zhouzirui/polaris/backend/internal/handler/session"
	"github.com/zhouzirui/polaris/backend/internal/handler/stream"
	"github.com/zhouzirui/polaris/backend/internal/handler/ws"
	"github.com/zhouzirui/polaris/backend/internal/metrics"
	middlewarePkg "github.com/zhouzirui/polaris/backend/internal/middleware"
	artifactService "github.com/zhouzirui/polaris/backend/internal/service/artifact"
	chatService "github.com/zhouzirui/polaris/backend/internal/service/chat"
	discoveryService "github.com/zhouzirui/polaris/backend/internal/service/discovery"
	healthService "github.com/zhouzirui/polaris/backend/internal/service/health"
	portfolioService "github.com/zhouzirui/polaris/backend/internal/service/portfolio"
	sessionService "github.com/zhouzirui/polaris/backend/internal/service/session"
)

// Services 是路由依赖的核心服务
type Services struct {
	Sessions  *sessionService.Store
	Discovery *discoveryService.Service
	Chat      *chatService.Service
	Artifacts *artifactService.Service
	Portfolio *portfolioService.Service
	Health    *healthService.Service

	// Metrics 为 nil 时不暴露指标端点
	Metrics     *metrics.Metrics
	MetricsPath string
	Logger      *slog.Logger
}

// NewRouter wires HTTP routes to core services.
func NewRouter(svc Services) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Route("/api/v1", func(api chi.Router) {
		health.New(svc.Health).RegisterRoutes(api)
		session.New(svc.Sessions, svc.Discovery).RegisterRoutes(api)
		discovery.New(svc.Discovery).RegisterRoutes(api)
		portfolio.New(svc.Portfolio).RegisterRoutes(api)
		artifact.New(svc.Artifacts).RegisterRoutes(api)
		chat.New(svc.Chat).RegisterRoutes(api)
		stream.New(svc.Chat, svc.Logger).RegisterRoutes(api)
	})

	// WebSocket 不在版本前缀下
	ws.New(svc.Chat, svc.Logger).RegisterRoutes(r)

	if svc.Metrics != nil {
		path := svc.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Method(http.MethodGet, path, svc.Metrics.Handler())
	}

	return r
}
