package gateway

import (
	"context"
	"log/slog"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/polaris/backend/internal/logging"
	"github.com/zhouzirui/polaris/backend/internal/metrics"
)

// Instrumented records latency and outcome of every call to the wrapped gateway.
type Instrumented struct {
	next     Gateway
	provider string
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// Instrument wraps next. A nil logger discards output.
func Instrument(next Gateway, provider string, m *metrics.Metrics, logger *slog.Logger) *Instrumented {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Instrumented{next: next, provider: provider, metrics: m, logger: logger}
}

func (g *Instrumented) Generate(ctx context.Context, req Request) (*Completion, error) {
	start := time.Now()
	completion, err := g.next.Generate(ctx, req)
	elapsed := time.Since(start)

	g.metrics.GatewayRequest(g.provider, err, elapsed)
	if err != nil {
		g.logger.Warn("model gateway call failed",
			"provider", g.provider,
			"elapsed", elapsed,
			"error", err,
		)
		return nil, err
	}

	g.logger.Debug("model gateway call",
		"provider", g.provider,
		"elapsed", elapsed,
		"text_len", len(completion.Text),
	)
	return completion, nil
}

// Stream forwards to the wrapped gateway's stream, or a single-chunk fallback.
func (g *Instrumented) Stream(ctx context.Context, req Request) (*schema.StreamReader[string], error) {
	start := time.Now()
	stream, err := Stream(ctx, g.next, req)
	g.metrics.GatewayRequest(g.provider, err, time.Since(start))
	if err != nil {
		g.logger.Warn("model gateway stream failed", "provider", g.provider, "error", err)
		return nil, err
	}
	return stream, nil
}

func (g *Instrumented) Health(ctx context.Context) ComponentHealth {
	checker, ok := g.next.(HealthChecker)
	if !ok {
		return ComponentHealth{OK: true, Provider: g.provider}
	}
	health := checker.Health(ctx)
	if health.Provider == "" {
		health.Provider = g.provider
	}
	return health
}
