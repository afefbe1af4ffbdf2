package embedding

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/zhouzirui/polaris/backend/internal/config"
	"github.com/zhouzirui/polaris/backend/internal/service/gateway"
)

const requestTimeout = 10 * time.Second

var (
	defaultEmbedPaths  = []string{"/v1/embeddings", "/embeddings", "/v1/embed", "/embed"}
	defaultUpsertPaths = []string{"/v1/upsert", "/upsert", "/v1/collections/upsert"}
	defaultSearchPaths = []string{"/v1/search", "/search", "/v1/query", "/query"}
)

// ErrUnavailable wraps failures of every candidate path.
var ErrUnavailable = errors.New("embedding service unavailable")

// Match is one vector search hit.
type Match struct {
	ID       any            `json:"id"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Client calls a vector service whose routes differ between deployments.
// Each call tries the configured path and then the known alternatives.
type Client struct {
	baseURL     string
	model       string
	http        *http.Client
	embedPaths  []string
	upsertPaths []string
	searchPaths []string
}

// NewClient builds a client from configuration. A nil httpClient uses http.DefaultClient.
func NewClient(cfg config.EmbeddingConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.URL, "/"),
		model:       cfg.Model,
		http:        httpClient,
		embedPaths:  candidatePaths(cfg.EmbedPath, defaultEmbedPaths),
		upsertPaths: candidatePaths(cfg.UpsertPath, defaultUpsertPaths),
		searchPaths: candidatePaths(cfg.SearchPath, defaultSearchPaths),
	}
}

func candidatePaths(configured string, defaults []string) []string {
	paths := make([]string, 0, len(defaults)+1)
	if configured != "" {
		paths = append(paths, configured)
	}
	for _, p := range defaults {
		if p != configured {
			paths = append(paths, p)
		}
	}
	return paths
}

// Embed returns one vector per input text.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	payload := map[string]any{"inputs": texts}
	if c.model != "" {
		payload["model"] = c.model
	}

	var body struct {
		Embeddings [][]float64 `json:"embeddings"`
		Data       []struct {
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
	}
	if _, err := c.postFirst(ctx, c.embedPaths, payload, &body); err != nil {
		return nil, err
	}

	if body.Embeddings != nil {
		return body.Embeddings, nil
	}
	out := make([][]float64, 0, len(body.Data))
	for _, item := range body.Data {
		if item.Embedding != nil {
			out = append(out, item.Embedding)
		}
	}
	return out, nil
}

// Upsert stores a vector with metadata.
func (c *Client) Upsert(ctx context.Context, id any, vector []float64, metadata map[string]any) error {
	if metadata == nil {
		metadata = map[string]any{}
	}
	payload := map[string]any{
		"items": []map[string]any{{"id": id, "vector": vector, "metadata": metadata}},
	}
	_, err := c.postFirst(ctx, c.upsertPaths, payload, nil)
	return err
}

// Search returns matches for vector, accepting results, matches or items lists.
func (c *Client) Search(ctx context.Context, vector []float64, topK int) ([]Match, error) {
	payload := map[string]any{"vector": vector, "top_k": topK}

	var body struct {
		Results []Match `json:"results"`
		Matches []Match `json:"matches"`
		Items   []Match `json:"items"`
	}
	if _, err := c.postFirst(ctx, c.searchPaths, payload, &body); err != nil {
		return nil, err
	}

	switch {
	case body.Results != nil:
		return body.Results, nil
	case len(body.Matches) > 0:
		return body.Matches, nil
	default:
		return body.Items, nil
	}
}

// postFirst posts payload to each path until one answers 2xx and decodes.
func (c *Client) postFirst(ctx context.Context, paths []string, payload any, out any) (string, error) {
	raw, err := sonic.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal embedding payload: %w", err)
	}

	var errs []error
	for _, path := range paths {
		if err := c.post(ctx, path, raw, out); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		return path, nil
	}
	return "", fmt.Errorf("%w: %w", ErrUnavailable, errors.Join(errs...))
}

func (c *Client) post(ctx context.Context, path string, payload []byte, out any) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return sonic.Unmarshal(body, out)
}

func (c *Client) url(path string) string {
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

// Health calls GET {baseURL}/health.
func (c *Client) Health(ctx context.Context) gateway.ComponentHealth {
	return gateway.Probe(ctx, c.http, c.url("/health"))
}

// ProbeResult reports how one candidate route answered a sample request.
type ProbeResult struct {
	Kind   string   `json:"kind"`
	Path   string   `json:"path"`
	OK     bool     `json:"ok"`
	Status int      `json:"status,omitempty"`
	Keys   []string `json:"keys,omitempty"`
	Error  string   `json:"error,omitempty"`
}

// Probe sends sample payloads to every known route, for discovering the
// contract of an unfamiliar deployment.
func (c *Client) Probe(ctx context.Context) []ProbeResult {
	samples := []struct {
		kind    string
		paths   []string
		payload any
	}{
		{"embed", c.embedPaths, map[string]any{"inputs": []string{"hello world"}}},
		{"upsert", c.upsertPaths, map[string]any{"items": []map[string]any{{"id": "probe1", "vector": []float64{0.1, 0.2}, "metadata": map[string]any{"title": "probe"}}}}},
		{"search", c.searchPaths, map[string]any{"vector": []float64{0.1, 0.2}, "top_k": 3}},
	}

	var results []ProbeResult
	for _, sample := range samples {
		raw, err := sonic.Marshal(sample.payload)
		if err != nil {
			continue
		}
		for _, path := range sample.paths {
			results = append(results, c.probePath(ctx, sample.kind, path, raw))
		}
	}
	return results
}

func (c *Client) probePath(ctx context.Context, kind, path string, payload []byte) ProbeResult {
	result := ProbeResult{Kind: kind, Path: path}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path), bytes.NewReader(payload))
	if err != nil {
		result.Error = err.Error()
		return result
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	defer resp.Body.Close()

	result.OK = true
	result.Status = resp.StatusCode

	body, _ := io.ReadAll(resp.Body)
	var obj map[string]any
	if sonic.Unmarshal(body, &obj) == nil {
		for key := range obj {
			result.Keys = append(result.Keys, key)
		}
		slices.Sort(result.Keys)
	}
	return result
}
