// Package mcp exposes the POLARIS operations as Model Context Protocol tools.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/zhouzirui/polaris/backend/internal/app"
	"github.com/zhouzirui/polaris/backend/internal/service/artifact"
	discoveryService "github.com/zhouzirui/polaris/backend/internal/service/discovery"
	"github.com/zhouzirui/polaris/backend/internal/service/health"
	"github.com/zhouzirui/polaris/backend/internal/service/portfolio"
	"github.com/zhouzirui/polaris/backend/internal/service/session"
)

// Tool error codes surfaced to the agent.
const (
	CodeSessionNotFound = "session_not_found"
	CodeInvalidInput    = "invalid_input"
)

// Server wraps the POLARIS services and exposes them as an MCP Server.
type Server struct {
	app       *app.App
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(a *app.App, version string) *Server {
	s := &Server{
		app:       a,
		mcpServer: server.NewMCPServer("polaris-mcp", version),
	}
	s.registerTools()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("create_session",
		mcp.WithDescription("Create a discovery session and return its id."),
		mcp.WithString("client_id", mcp.Description("Client identifier (optional)")),
		mcp.WithObject("metadata", mcp.Description("Free-form metadata (optional)")),
	), mcp.NewStructuredToolHandler(s.handleCreateSession))

	s.mcpServer.AddTool(mcp.NewTool("health_check",
		mcp.WithDescription("Check the model service and, optionally, the embedding service."),
		mcp.WithBoolean("check_embeddings", mcp.Description("Also probe the embedding service")),
	), mcp.NewStructuredToolHandler(s.handleHealthCheck))

	s.mcpServer.AddTool(mcp.NewTool("ask_discovery",
		mcp.WithDescription("Process one client message: extract pain, users, kpi and budget and return the next question."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Active session id")),
		mcp.WithString("message", mcp.Required(), mcp.Description("Client message")),
	), mcp.NewStructuredToolHandler(s.handleAskDiscovery))

	s.mcpServer.AddTool(mcp.NewTool("select_portfolio",
		mcp.WithDescription("Recommend portfolio projects for a need."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Description of the client need")),
		mcp.WithNumber("top_k", mcp.Description("Number of candidates, 1 to 10 (default 5)")),
		mcp.WithObject("filters", mcp.Description("max_budget, required_stack, industry (optional)")),
	), mcp.NewStructuredToolHandler(s.handleSelectPortfolio))

	s.mcpServer.AddTool(mcp.NewTool("generate_prototype",
		mcp.WithDescription("Render the prototype document for a portfolio choice."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Active session id")),
		mcp.WithNumber("choice_id", mcp.Required(), mcp.Description("Chosen portfolio candidate id")),
		mcp.WithObject("context", mcp.Description("summary, features, constraints, integrations")),
	), mcp.NewStructuredToolHandler(s.handleGeneratePrototype))

	s.mcpServer.AddTool(mcp.NewTool("generate_mock",
		mcp.WithDescription("Generate example records for a data contract."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Active session id")),
		mcp.WithString("contract_name", mcp.Required(), mcp.Description("Contract name")),
		mcp.WithObject("context", mcp.Description("example_base record to vary")),
		mcp.WithNumber("count", mcp.Description("Number of mocks, 1 to 100 (default 10)")),
	), mcp.NewStructuredToolHandler(s.handleGenerateMock))

	s.mcpServer.AddTool(mcp.NewTool("estimate_development",
		mcp.WithDescription("Estimate development hours and t-shirt size for a feature list."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Active session id")),
		mcp.WithArray("features", mcp.Required(), mcp.Description("Feature descriptions"), mcp.Items(map[string]any{"type": "string"})),
		mcp.WithBoolean("include_buffer", mcp.Description("Add a 20% buffer")),
	), mcp.NewStructuredToolHandler(s.handleEstimate))
}

type createSessionArgs struct {
	ClientID *string        `json:"client_id"`
	Metadata map[string]any `json:"metadata"`
}

// CreateSessionResult mirrors POST /sessions.
type CreateSessionResult struct {
	SessionID string         `json:"session_id"`
	ClientID  *string        `json:"client_id"`
	CreatedAt time.Time      `json:"created_at"`
	Metadata  map[string]any `json:"metadata"`
	Status    string         `json:"status"`
}

func (s *Server) handleCreateSession(ctx context.Context, _ mcp.CallToolRequest, args createSessionArgs) (CreateSessionResult, error) {
	snap := s.app.Sessions.Create(ctx, args.ClientID, args.Metadata).Snapshot()
	return CreateSessionResult{
		SessionID: snap.ID,
		ClientID:  snap.ClientID,
		CreatedAt: snap.CreatedAt,
		Metadata:  snap.Metadata,
		Status:    "active",
	}, nil
}

type healthArgs struct {
	CheckEmbeddings bool `json:"check_embeddings"`
}

func (s *Server) handleHealthCheck(ctx context.Context, _ mcp.CallToolRequest, args healthArgs) (health.Report, error) {
	return s.app.Health.Check(ctx, health.Options{Embeddings: args.CheckEmbeddings}), nil
}

type discoveryArgs struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

func (s *Server) handleAskDiscovery(ctx context.Context, _ mcp.CallToolRequest, args discoveryArgs) (*discoveryService.TurnResult, error) {
	if args.SessionID == "" || args.Message == "" {
		return nil, fmt.Errorf("%s: session_id and message are required", CodeInvalidInput)
	}
	result, err := s.app.Discovery.ProcessTurn(ctx, args.SessionID, args.Message)
	if err != nil {
		return nil, toolError(err)
	}
	return result, nil
}

type portfolioArgs struct {
	Query   string            `json:"query"`
	TopK    *int              `json:"top_k"`
	Filters portfolio.Filters `json:"filters"`
}

func (s *Server) handleSelectPortfolio(ctx context.Context, _ mcp.CallToolRequest, args portfolioArgs) (*portfolio.Selection, error) {
	topK := 5
	if args.TopK != nil {
		topK = *args.TopK
	}
	selection, err := s.app.Portfolio.Select(ctx, args.Query, topK, args.Filters)
	if err != nil {
		return nil, toolError(err)
	}
	return selection, nil
}

type prototypeArgs struct {
	SessionID string         `json:"session_id"`
	ChoiceID  int            `json:"choice_id"`
	Context   map[string]any `json:"context"`
}

func (s *Server) handleGeneratePrototype(ctx context.Context, _ mcp.CallToolRequest, args prototypeArgs) (*artifact.PrototypeResult, error) {
	pc, err := artifact.DecodePrototypeContext(args.Context)
	if err != nil {
		return nil, toolError(err)
	}
	result, err := s.app.Artifacts.Prototype(ctx, args.SessionID, args.ChoiceID, pc)
	if err != nil {
		return nil, toolError(err)
	}
	return result, nil
}

type mockArgs struct {
	SessionID    string         `json:"session_id"`
	ContractName string         `json:"contract_name"`
	Context      map[string]any `json:"context"`
	Count        int            `json:"count"`
}

func (s *Server) handleGenerateMock(ctx context.Context, _ mcp.CallToolRequest, args mockArgs) (*artifact.MockResult, error) {
	mc, err := artifact.DecodeMockContext(args.Context)
	if err != nil {
		return nil, toolError(err)
	}
	result, err := s.app.Artifacts.Mocks(ctx, args.SessionID, args.ContractName, mc, args.Count)
	if err != nil {
		return nil, toolError(err)
	}
	return result, nil
}

type estimateArgs struct {
	SessionID     string   `json:"session_id"`
	Features      []string `json:"features"`
	IncludeBuffer bool     `json:"include_buffer"`
}

func (s *Server) handleEstimate(ctx context.Context, _ mcp.CallToolRequest, args estimateArgs) (*artifact.Estimate, error) {
	result, err := s.app.Artifacts.Estimate(ctx, args.SessionID, args.Features, args.IncludeBuffer)
	if err != nil {
		return nil, toolError(err)
	}
	return result, nil
}

// toolError prefixes known failures with a stable code.
func toolError(err error) error {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return fmt.Errorf("%s: %w", CodeSessionNotFound, err)
	case errors.Is(err, artifact.ErrInvalidInput),
		errors.Is(err, portfolio.ErrInvalidQuery):
		return fmt.Errorf("%s: %w", CodeInvalidInput, err)
	default:
		return err
	}
}
