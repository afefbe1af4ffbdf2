package health

import (
	"context"

	"github.com/zhouzirui/polaris/backend/internal/service/gateway"
)

// Options selects optional checks.
type Options struct {
	Embeddings bool
}

// Report aggregates component health. OK is false when any checked component fails.
type Report struct {
	OK         bool                               `json:"ok"`
	Components map[string]gateway.ComponentHealth `json:"components"`
}

// Service probes the external dependencies.
type Service struct {
	llm        gateway.HealthChecker
	embeddings gateway.HealthChecker
}

// NewService creates a health service. embeddings may be nil.
func NewService(llm, embeddings gateway.HealthChecker) *Service {
	return &Service{llm: llm, embeddings: embeddings}
}

// Check always probes the model service and the embedding service on request.
func (s *Service) Check(ctx context.Context, opts Options) Report {
	report := Report{OK: true, Components: map[string]gateway.ComponentHealth{}}

	report.add("llm", s.probe(ctx, s.llm))
	if opts.Embeddings {
		report.add("embeddings", s.probe(ctx, s.embeddings))
	}
	return report
}

func (s *Service) probe(ctx context.Context, checker gateway.HealthChecker) gateway.ComponentHealth {
	if checker == nil {
		return gateway.ComponentHealth{OK: false, Error: "not configured"}
	}
	return checker.Health(ctx)
}

func (r *Report) add(name string, h gateway.ComponentHealth) {
	r.Components[name] = h
	if !h.OK {
		r.OK = false
	}
}
