package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"
)

// ErrUpstream marks every failure of the model service: transport errors,
// non-success statuses, timeouts and unreadable bodies.
var ErrUpstream = errors.New("model gateway unavailable")

// DefaultTimeout bounds a call whose Request carries no timeout.
const DefaultTimeout = 10 * time.Second

// Request is one text-generation call.
type Request struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// Completion is a successful generation. Meta is opaque provider data.
type Completion struct {
	Text string         `json:"text"`
	Meta map[string]any `json:"meta,omitempty"`
}

// Gateway sends a prompt to the model service.
type Gateway interface {
	Generate(ctx context.Context, req Request) (*Completion, error)
}

// Streamer is implemented by gateways that can emit text incrementally.
type Streamer interface {
	Stream(ctx context.Context, req Request) (*schema.StreamReader[string], error)
}

// Func adapts a plain function to Gateway.
type Func func(ctx context.Context, req Request) (*Completion, error)

func (f Func) Generate(ctx context.Context, req Request) (*Completion, error) {
	return f(ctx, req)
}

// ComponentHealth is the health report of one dependency.
type ComponentHealth struct {
	OK         bool   `json:"ok"`
	StatusCode int    `json:"status_code,omitempty"`
	Provider   string `json:"provider,omitempty"`
	Error      string `json:"error,omitempty"`
}

// HealthChecker is implemented by gateways that can probe their backend.
type HealthChecker interface {
	Health(ctx context.Context) ComponentHealth
}

// Stream uses the gateway's native stream when available and otherwise
// delivers the whole completion as a single chunk.
func Stream(ctx context.Context, gw Gateway, req Request) (*schema.StreamReader[string], error) {
	if streamer, ok := gw.(Streamer); ok {
		return streamer.Stream(ctx, req)
	}
	completion, err := gw.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]string{completion.Text}), nil
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

func upstreamError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUpstream, fmt.Sprintf(format, args...))
}
