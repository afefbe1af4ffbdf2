package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

const healthTimeout = 3 * time.Second

// HTTPGateway talks to a text-generation service exposing
// POST /v1/generate and GET /v1/health.
type HTTPGateway struct {
	baseURL string
	client  *http.Client
}

// NewHTTPGateway creates a gateway for baseURL. A nil client uses http.DefaultClient.
func NewHTTPGateway(baseURL string, client *http.Client) *HTTPGateway {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

type generatePayload struct {
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

// Generate posts the prompt and normalizes the returned text field.
func (g *HTTPGateway) Generate(ctx context.Context, req Request) (*Completion, error) {
	ctx, cancel := withTimeout(ctx, req.Timeout)
	defer cancel()

	body, err := sonic.Marshal(generatePayload{
		Prompt:      req.Prompt,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal generate payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/generate", bytes.NewReader(body))
	if err != nil {
		return nil, upstreamError("build request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, upstreamError("%v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, upstreamError("read body: %v", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, upstreamError("status %d", resp.StatusCode)
	}

	var meta map[string]any
	if err := sonic.Unmarshal(raw, &meta); err != nil {
		return nil, upstreamError("decode body: %v", err)
	}

	return &Completion{Text: normalizeText(meta["text"]), Meta: meta}, nil
}

// normalizeText accepts a plain string, a {"parts": [...]} object whose first
// part is a string or {"text": ...}, or anything else rendered with %v.
func normalizeText(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case map[string]any:
		parts, _ := v["parts"].([]any)
		if len(parts) == 0 {
			return fmt.Sprint(v)
		}
		switch part := parts[0].(type) {
		case string:
			return part
		case map[string]any:
			text, _ := part["text"].(string)
			return text
		default:
			return fmt.Sprint(part)
		}
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Health calls GET /v1/health.
func (g *HTTPGateway) Health(ctx context.Context) ComponentHealth {
	return probe(ctx, g.client, g.baseURL+"/v1/health")
}

// probe issues a GET with the health timeout and reports 200 as healthy.
func probe(ctx context.Context, client *http.Client, url string) ComponentHealth {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ComponentHealth{OK: false, Error: err.Error()}
	}
	resp, err := client.Do(req)
	if err != nil {
		return ComponentHealth{OK: false, Error: err.Error()}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return ComponentHealth{OK: resp.StatusCode == http.StatusOK, StatusCode: resp.StatusCode}
}

// Probe is the health check used for other HTTP dependencies.
func Probe(ctx context.Context, client *http.Client, url string) ComponentHealth {
	if client == nil {
		client = http.DefaultClient
	}
	return probe(ctx, client, url)
}
