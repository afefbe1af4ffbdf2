package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/polaris/backend/internal/config"
	"github.com/zhouzirui/polaris/backend/internal/service/gateway"
	"github.com/zhouzirui/polaris/backend/internal/service/health"
	"github.com/zhouzirui/polaris/backend/internal/service/portfolio"
)

func testConfig() *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{Addr: ":0"},
		Log:     config.LogConfig{Level: "info", Format: "text"},
		AI:      config.AIConfig{Provider: config.ProviderHTTP, LLMURL: "http://127.0.0.1:1", ExtractMaxTokens: 256},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

func stubGateway(text string) gateway.Gateway {
	return gateway.Func(func(context.Context, gateway.Request) (*gateway.Completion, error) {
		return &gateway.Completion{Text: text}, nil
	})
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func TestRouterDiscoveryFlow(t *testing.T) {
	a, err := New(context.Background(), testConfig(), nil,
		WithGateway(stubGateway(`{"pain":"a","users":"b","kpi":"c","budget":"d"}`)))
	require.NoError(t, err)
	router := a.Router()

	resp := do(t, router, http.MethodPost, "/api/v1/sessions", `{}`)
	require.Equal(t, http.StatusCreated, resp.Code)
	var created struct {
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))

	resp = do(t, router, http.MethodPost, "/api/v1/discovery", `{"session_id":"`+created.SessionID+`","message":"tudo"}`)
	require.Equal(t, http.StatusOK, resp.Code)
	var turn map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &turn))
	assert.Equal(t, true, turn["complete"])

	resp = do(t, router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "polaris_sessions_created_total 1")
	assert.Contains(t, resp.Body.String(), `polaris_discovery_turns_total{complete="true"} 1`)
}

func TestRouterWithoutMetrics(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.Enabled = false
	a, err := New(context.Background(), cfg, nil, WithGateway(stubGateway("{}")))
	require.NoError(t, err)

	resp := do(t, a.Router(), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestCatalogFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	raw := strings.Join([]string{
		"candidates:",
		"  - id: 7",
		"    title: Portal do cliente",
		"    score: 0.9",
		"    stack: [go, react]",
		"    estimated_budget: 50000",
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	cfg := testConfig()
	cfg.Portfolio.File = path
	a, err := New(context.Background(), cfg, nil, WithGateway(stubGateway("{}")))
	require.NoError(t, err)

	selection, err := a.Portfolio.Select(context.Background(), "portal", 5, portfolio.Filters{RequiredStack: []string{"Go"}})
	require.NoError(t, err)
	require.Len(t, selection.Candidates, 1)
	assert.Equal(t, 7, selection.Candidates[0].ID)
}

func TestMissingCatalogFile(t *testing.T) {
	cfg := testConfig()
	cfg.Portfolio.File = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := New(context.Background(), cfg, nil, WithGateway(stubGateway("{}")))
	require.Error(t, err)
}

func TestHTTPGatewayHealthWired(t *testing.T) {
	a, err := New(context.Background(), testConfig(), nil)
	require.NoError(t, err)

	report := a.Health.Check(context.Background(), health.Options{})
	assert.False(t, report.OK)
	assert.Equal(t, config.ProviderHTTP, report.Components["llm"].Provider)
}
