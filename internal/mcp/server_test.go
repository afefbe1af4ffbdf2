package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/polaris/backend/internal/app"
	"github.com/zhouzirui/polaris/backend/internal/config"
	"github.com/zhouzirui/polaris/backend/internal/service/gateway"
)

func newTestServer(t *testing.T, reply string) *Server {
	t.Helper()
	cfg := &config.Config{
		AI: config.AIConfig{Provider: config.ProviderHTTP, LLMURL: "http://127.0.0.1:1", ExtractMaxTokens: 256},
	}
	gw := gateway.Func(func(context.Context, gateway.Request) (*gateway.Completion, error) {
		return &gateway.Completion{Text: reply}, nil
	})
	a, err := app.New(context.Background(), cfg, nil, app.WithGateway(gw))
	require.NoError(t, err)
	return NewServer(a, "test")
}

func rpc(t *testing.T, s *Server, method string, params any) map[string]any {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	})
	require.NoError(t, err)

	resp := s.MCPServer().HandleMessage(context.Background(), raw)
	encoded, err := json.Marshal(resp)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(encoded, &out))
	return out
}

func TestToolsListed(t *testing.T) {
	s := newTestServer(t, "{}")

	out := rpc(t, s, "tools/list", map[string]any{})
	result, ok := out["result"].(map[string]any)
	require.True(t, ok, "unexpected response %v", out)

	var names []string
	for _, tool := range result["tools"].([]any) {
		names = append(names, tool.(map[string]any)["name"].(string))
	}
	assert.ElementsMatch(t, []string{
		"create_session", "health_check", "ask_discovery", "select_portfolio",
		"generate_prototype", "generate_mock", "estimate_development",
	}, names)
}

func TestAskDiscoveryOverRPC(t *testing.T) {
	s := newTestServer(t, `{"pain":"churn"}`)
	created, err := s.handleCreateSession(context.Background(), mcp.CallToolRequest{}, createSessionArgs{})
	require.NoError(t, err)

	out := rpc(t, s, "tools/call", map[string]any{
		"name":      "ask_discovery",
		"arguments": map[string]any{"session_id": created.SessionID, "message": "nossa dor é churn"},
	})
	result := out["result"].(map[string]any)
	assert.NotEqual(t, true, result["isError"])

	snap, err := s.app.Sessions.Snapshot(context.Background(), created.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "churn", snap.Slots["pain"])
}

func TestUnknownSessionIsToolError(t *testing.T) {
	s := newTestServer(t, "{}")

	out := rpc(t, s, "tools/call", map[string]any{
		"name":      "estimate_development",
		"arguments": map[string]any{"session_id": "missing", "features": []string{"Login"}},
	})
	result := out["result"].(map[string]any)
	assert.Equal(t, true, result["isError"])

	raw, _ := json.Marshal(result["content"])
	assert.Contains(t, string(raw), CodeSessionNotFound)
}

func TestHandlersMapErrors(t *testing.T) {
	s := newTestServer(t, "{}")
	ctx := context.Background()
	created, err := s.handleCreateSession(ctx, mcp.CallToolRequest{}, createSessionArgs{})
	require.NoError(t, err)
	assert.Equal(t, "active", created.Status)

	_, err = s.handleEstimate(ctx, mcp.CallToolRequest{}, estimateArgs{SessionID: created.SessionID})
	require.Error(t, err)
	assert.Contains(t, err.Error(), CodeInvalidInput)

	_, err = s.handleSelectPortfolio(ctx, mcp.CallToolRequest{}, portfolioArgs{Query: ""})
	require.Error(t, err)
	assert.Contains(t, err.Error(), CodeInvalidInput)

	_, err = s.handleAskDiscovery(ctx, mcp.CallToolRequest{}, discoveryArgs{SessionID: "missing", Message: "oi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), CodeSessionNotFound)
}

func TestGenerateArtifacts(t *testing.T) {
	s := newTestServer(t, "{}")
	ctx := context.Background()
	created, err := s.handleCreateSession(ctx, mcp.CallToolRequest{}, createSessionArgs{})
	require.NoError(t, err)

	proto, err := s.handleGeneratePrototype(ctx, mcp.CallToolRequest{}, prototypeArgs{
		SessionID: created.SessionID,
		ChoiceID:  1,
		Context:   map[string]any{"summary": "Loja online"},
	})
	require.NoError(t, err)
	assert.Contains(t, proto.Artifact.Content, "Loja online")

	mocks, err := s.handleGenerateMock(ctx, mcp.CallToolRequest{}, mockArgs{
		SessionID:    created.SessionID,
		ContractName: "Order",
		Context:      map[string]any{"example_base": map[string]any{"sku": "A1"}},
		Count:        2,
	})
	require.NoError(t, err)
	require.Len(t, mocks.Mocks, 2)
	assert.Equal(t, "A1_2", mocks.Mocks[1].Payload["sku"])

	selection, err := s.handleSelectPortfolio(ctx, mcp.CallToolRequest{}, portfolioArgs{Query: "loja"})
	require.NoError(t, err)
	assert.Len(t, selection.Candidates, 3)
}
