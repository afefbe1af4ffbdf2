package extractor

import (
	"context"
	"log/slog"
	"time"

	"github.com/zhouzirui/polaris/backend/internal/logging"
	"github.com/zhouzirui/polaris/backend/internal/metrics"
	"github.com/zhouzirui/polaris/backend/internal/model/discovery"
	"github.com/zhouzirui/polaris/backend/internal/service/gateway"
)

// Status tags the result of an extraction.
type Status string

const (
	// StatusExtracted means the model returned a JSON object; Fields may still be empty.
	StatusExtracted Status = "extracted"
	// StatusFailed means nothing may be written to the session.
	StatusFailed Status = "failed"
)

// Failure reasons.
const (
	ReasonUpstream  = "upstream_failed"
	ReasonMalformed = "malformed_output"
)

const (
	extractTemperature = 0.0
	defaultMaxTokens   = 256
)

// Outcome is the explicit result of one extraction.
type Outcome struct {
	Status Status
	// Fields holds the non-null slot values, keyed by slot name.
	Fields map[string]any
	// Confidence is the model's confidence object, nil when absent or not an object.
	Confidence map[string]any
	Attempts   int
	Reason     string
}

// Succeeded reports whether the outcome carries data to apply.
func (o Outcome) Succeeded() bool {
	return o.Status == StatusExtracted
}

// Apply writes the outcome into slots. Failed outcomes leave slots untouched.
func (o Outcome) Apply(slots discovery.Slots) {
	if !o.Succeeded() {
		return
	}
	slots.ApplyExtraction(o.Fields, o.Confidence)
}

// Extractor turns free text into slot values through the model gateway.
type Extractor struct {
	gateway   gateway.Gateway
	maxTokens int
	timeout   time.Duration
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// Option configures the Extractor.
type Option func(*Extractor)

func WithMaxTokens(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.maxTokens = n
		}
	}
}

// WithTimeout bounds each gateway call; zero keeps the gateway default.
func WithTimeout(d time.Duration) Option {
	return func(e *Extractor) { e.timeout = d }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Extractor) { e.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an extractor backed by gw.
func New(gw gateway.Gateway, opts ...Option) *Extractor {
	e := &Extractor{
		gateway:   gw,
		maxTokens: defaultMaxTokens,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract runs at most two attempts, the second with a stricter prompt, and
// only when the first produced unparseable output. A gateway failure ends
// extraction immediately. Extract never returns an error.
func (e *Extractor) Extract(ctx context.Context, message string) Outcome {
	outcome := Outcome{Status: StatusFailed, Reason: ReasonMalformed}

	for i, template := range attemptPrompts {
		outcome.Attempts = i + 1

		completion, err := e.gateway.Generate(ctx, gateway.Request{
			Prompt:      buildPrompt(template, message),
			MaxTokens:   e.maxTokens,
			Temperature: extractTemperature,
			Timeout:     e.timeout,
		})
		if err != nil {
			outcome.Reason = ReasonUpstream
			e.logger.Warn("slot extraction gateway call failed",
				"attempt", outcome.Attempts,
				"error", err,
			)
			break
		}

		parsed, err := parseObject(completion.Text)
		if err != nil {
			e.logger.Warn("slot extraction output is not a json object",
				"attempt", outcome.Attempts,
				"error", err,
			)
			continue
		}

		outcome = Outcome{
			Status:     StatusExtracted,
			Fields:     slotFields(parsed),
			Confidence: confidenceMap(parsed),
			Attempts:   outcome.Attempts,
		}
		break
	}

	e.record(outcome)
	return outcome
}

func (e *Extractor) record(outcome Outcome) {
	label := metrics.OutcomeExtracted
	switch {
	case outcome.Reason == ReasonUpstream:
		label = metrics.OutcomeUpstreamFailed
	case !outcome.Succeeded():
		label = metrics.OutcomeMalformed
	case len(outcome.Fields) == 0 && outcome.Confidence == nil:
		label = metrics.OutcomeNoData
	}
	e.metrics.ExtractionOutcome(label, outcome.Attempts)

	e.logger.Debug("slot extraction finished",
		"outcome", label,
		"attempts", outcome.Attempts,
		"fields", len(outcome.Fields),
	)
}

func slotFields(parsed map[string]any) map[string]any {
	fields := make(map[string]any, len(discovery.RequiredSlots))
	for _, name := range discovery.SlotNames() {
		if value, ok := parsed[name]; ok && value != nil {
			fields[name] = value
		}
	}
	return fields
}

func confidenceMap(parsed map[string]any) map[string]any {
	confidence, _ := parsed["confidence"].(map[string]any)
	return confidence
}
