package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// AssessmentsURI is the resource listing the assessments that can be started.
const AssessmentsURI = "arbor://assessments"

// Server exposes a RunService as an MCP server so that an agent can drive
// assessment runs with tools.
type Server struct {
	service   ports.RunService
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(svc ports.RunService, opts ...Option) *Server {
	s := &Server{
		service:   svc,
		mcpServer: server.NewMCPServer("arbor-mcp", arbor.Version),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server, e.g. for in-process clients.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over SSE on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// StartArgs are the arguments of the start_run tool.
type StartArgs struct {
	Assessment string `json:"assessment"`
	RunID      string `json:"run_id,omitempty"`
}

// RunArgs identify a run.
type RunArgs struct {
	RunID string `json:"run_id"`
}

// AnswerArgs are the arguments of the answer tool.
type AnswerArgs struct {
	RunID string `json:"run_id"`
	// Value is the JSON encoding of the raw answer.
	Value   string `json:"value"`
	Advance bool   `json:"advance,omitempty"`
}

// ExitArgs are the arguments of the exit_run tool.
type ExitArgs struct {
	RunID  string `json:"run_id"`
	Reason string `json:"reason,omitempty"`
}

// AssessmentList is the output of the list_assessments tool.
type AssessmentList struct {
	Assessments []string `json:"assessments"`
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_assessments",
		mcp.WithDescription("List the assessments that can be started."),
		mcp.WithOutputSchema[AssessmentList](),
	), mcp.NewStructuredToolHandler(s.handleList))

	s.mcpServer.AddTool(mcp.NewTool("start_run",
		mcp.WithDescription("Start a run of an assessment, or resume a saved one when run_id is given."),
		mcp.WithString("assessment", mcp.Required(), mcp.Description("Assessment name")),
		mcp.WithString("run_id", mcp.Description("Run to resume (optional)")),
		mcp.WithOutputSchema[ports.RunSnapshot](),
	), mcp.NewStructuredToolHandler(s.handleStart))

	s.mcpServer.AddTool(mcp.NewTool("get_run",
		mcp.WithDescription("Show the current step of a run."),
		mcp.WithString("run_id", mcp.Required(), mcp.Description("Run identifier")),
		mcp.WithOutputSchema[ports.RunSnapshot](),
	), mcp.NewStructuredToolHandler(s.handleGet))

	s.mcpServer.AddTool(mcp.NewTool("answer",
		mcp.WithDescription("Answer the current question of a run."),
		mcp.WithString("run_id", mcp.Required(), mcp.Description("Run identifier")),
		mcp.WithString("value", mcp.Required(), mcp.Description(`JSON-encoded answer, e.g. 42, true, "text", ["a","b"] or null to skip`)),
		mcp.WithBoolean("advance", mcp.Description("Move to the next step after answering")),
		mcp.WithOutputSchema[ports.RunSnapshot](),
	), mcp.NewStructuredToolHandler(s.handleAnswer))

	s.mcpServer.AddTool(mcp.NewTool("go_forward",
		mcp.WithDescription("Move a run to its next step."),
		mcp.WithString("run_id", mcp.Required(), mcp.Description("Run identifier")),
		mcp.WithOutputSchema[ports.RunSnapshot](),
	), mcp.NewStructuredToolHandler(s.handleForward))

	s.mcpServer.AddTool(mcp.NewTool("go_backward",
		mcp.WithDescription("Move a run back to its previous step."),
		mcp.WithString("run_id", mcp.Required(), mcp.Description("Run identifier")),
		mcp.WithOutputSchema[ports.RunSnapshot](),
	), mcp.NewStructuredToolHandler(s.handleBackward))

	s.mcpServer.AddTool(mcp.NewTool("exit_run",
		mcp.WithDescription("End a run early."),
		mcp.WithString("run_id", mcp.Required(), mcp.Description("Run identifier")),
		mcp.WithString("reason", mcp.Enum("saveForLater", "declined", "discard"), mcp.Description("Why the run ends (default saveForLater)")),
		mcp.WithOutputSchema[ports.RunSnapshot](),
	), mcp.NewStructuredToolHandler(s.handleExit))

	s.mcpServer.AddTool(mcp.NewTool("get_result",
		mcp.WithDescription("Get the result tree of a run as JSON."),
		mcp.WithString("run_id", mcp.Required(), mcp.Description("Run identifier")),
	), s.handleResult)
}

func (s *Server) handleList(ctx context.Context, _ mcp.CallToolRequest, _ struct{}) (AssessmentList, error) {
	names, err := s.service.Assessments(ctx)
	if err != nil {
		return AssessmentList{}, fmt.Errorf("list failed: %w", err)
	}
	return AssessmentList{Assessments: names}, nil
}

func (s *Server) handleStart(ctx context.Context, _ mcp.CallToolRequest, args StartArgs) (ports.RunSnapshot, error) {
	return deref(s.service.Start(ctx, args.Assessment, args.RunID))
}

func (s *Server) handleGet(ctx context.Context, _ mcp.CallToolRequest, args RunArgs) (ports.RunSnapshot, error) {
	return deref(s.service.Get(ctx, args.RunID))
}

func (s *Server) handleAnswer(ctx context.Context, _ mcp.CallToolRequest, args AnswerArgs) (ports.RunSnapshot, error) {
	var value any
	if err := json.Unmarshal([]byte(args.Value), &value); err != nil {
		s.logger.Warn("MCP answer: value is not JSON", "err", err, "size", len(args.Value))
		return ports.RunSnapshot{}, fmt.Errorf("value must be JSON: %w", err)
	}
	snap, err := s.service.Answer(ctx, args.RunID, value)
	if err == nil && args.Advance {
		snap, err = s.service.Forward(ctx, args.RunID)
	}
	return deref(snap, err)
}

func (s *Server) handleForward(ctx context.Context, _ mcp.CallToolRequest, args RunArgs) (ports.RunSnapshot, error) {
	return deref(s.service.Forward(ctx, args.RunID))
}

func (s *Server) handleBackward(ctx context.Context, _ mcp.CallToolRequest, args RunArgs) (ports.RunSnapshot, error) {
	return deref(s.service.Backward(ctx, args.RunID))
}

func (s *Server) handleExit(ctx context.Context, _ mcp.CallToolRequest, args ExitArgs) (ports.RunSnapshot, error) {
	reason, err := arbor.ExitReason(args.Reason)
	if err != nil {
		return ports.RunSnapshot{}, err
	}
	return deref(s.service.Exit(ctx, args.RunID, reason))
}

func (s *Server) handleResult(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runID := request.GetString("run_id", "")
	res, err := s.service.Result(ctx, runID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("result failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(mustJSON(res))), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(AssessmentsURI, "Available assessments",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		names, err := s.service.Assessments(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list assessments: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      AssessmentsURI,
				MIMEType: "application/json",
				Text:     string(mustJSON(names)),
			},
		}, nil
	})
}

func deref(snap *ports.RunSnapshot, err error) (ports.RunSnapshot, error) {
	if err != nil {
		return ports.RunSnapshot{}, err
	}
	return *snap, nil
}

func mustJSON(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte(fmt.Sprintf(`{"error":%q}`, err.Error()))
	}
	return data
}
