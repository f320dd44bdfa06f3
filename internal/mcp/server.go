// Package mcp exposes the tool registry over the Model Context Protocol.
// Every call goes through the same auth gate and dispatcher as the REST
// front door.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/qubex-tech/VantageAI-CRM-sub004/internal/auth"
	"github.com/qubex-tech/VantageAI-CRM-sub004/internal/tools"
)

// BasePath is where the SSE transport is mounted.
const BasePath = "/mcp"

type Server struct {
	mcpServer  *server.MCPServer
	dispatcher *tools.Dispatcher
	gate       *auth.Gate
	logger     *slog.Logger

	// streams is canceled by Shutdown to end open event streams
	streams      context.Context
	closeStreams context.CancelFunc
}

func NewServer(dispatcher *tools.Dispatcher, gate *auth.Gate, logger *slog.Logger, version string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		mcpServer: server.NewMCPServer(
			"Insurance Verification Gateway",
			version,
			server.WithToolCapabilities(true),
		),
		dispatcher: dispatcher,
		gate:       gate,
		logger:     logger,
	}
	s.streams, s.closeStreams = context.WithCancel(context.Background())

	s.registerTools()
	return s
}

func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	for _, t := range s.dispatcher.Registry().Tools() {
		s.mcpServer.AddTool(newTool(t), s.handleTool(t.Name))
	}
}

func newTool(t *tools.Tool) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(t.Description)}
	for _, f := range t.Input.Fields {
		var props []mcp.PropertyOption
		if f.Description != "" {
			props = append(props, mcp.Description(f.Description))
		}
		if f.Required {
			props = append(props, mcp.Required())
		}
		switch f.Type {
		case tools.TypeBoolean:
			if def, ok := f.Default.(bool); ok {
				props = append(props, mcp.DefaultBool(def))
			}
			opts = append(opts, mcp.WithBoolean(f.Name, props...))
		default:
			if f.Format == tools.FormatZip {
				props = append(props, mcp.Pattern(tools.ZipPattern))
			}
			opts = append(opts, mcp.WithString(f.Name, props...))
		}
	}
	return mcp.NewTool(t.Name, opts...)
}

// handleTool adapts one registry entry to an MCP tool handler. The result
// text is the same {output, error} envelope the REST front door returns.
func (s *Server) handleTool(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		actor, ok := auth.ActorFrom(ctx)
		if !ok {
			return mcp.NewToolResultError(auth.CodeUnauthorized + ": not authenticated"), nil
		}

		env := s.dispatcher.Invoke(ctx, name, request.GetArguments(), actor)

		body, err := json.Marshal(env)
		if err != nil {
			s.logger.Error("encode mcp result", "tool", name, "request_id", actor.RequestID, "error", err)
			return mcp.NewToolResultError(tools.CodeInternalError + ": internal error"), nil
		}
		res := mcp.NewToolResultText(string(body))
		res.IsError = env.Error != nil
		return res, nil
	}
}

// Handler returns the SSE transport guarded by the auth gate: the event
// stream requires a valid API key, and every message POST must carry the
// full set of actor headers.
func (s *Server) Handler() http.Handler {
	sseServer := server.NewSSEServer(s.mcpServer,
		server.WithStaticBasePath(BasePath),
		server.WithSSEContextFunc(withRequestActor),
	)

	mux := http.NewServeMux()
	mux.Handle(BasePath+"/sse", s.requireAPIKey(s.endOnShutdown(sseServer)))
	mux.Handle(BasePath+"/message", s.requireActor(sseServer))
	return mux
}

// Shutdown ends every open event stream. http.Server.Shutdown does not
// interrupt active handlers, so it is called first.
func (s *Server) Shutdown() {
	s.closeStreams()
}

func (s *Server) endOnShutdown(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.streams.Err() != nil {
			http.Error(w, "server shutting down", http.StatusServiceUnavailable)
			return
		}
		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		stop := context.AfterFunc(s.streams, cancel)
		defer stop()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// withRequestActor carries the actor resolved by requireActor into the
// context the tool handler runs with.
func withRequestActor(ctx context.Context, r *http.Request) context.Context {
	if actor, ok := auth.ActorFrom(r.Context()); ok {
		return auth.WithActor(ctx, actor)
	}
	return ctx
}

func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := s.gate.CheckAPIKey(r.Header); err != nil {
			writeAuthError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := s.gate.Authenticate(r.Header)
		if err != nil {
			writeAuthError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithActor(r.Context(), actor)))
	})
}

func writeAuthError(w http.ResponseWriter, err error) {
	status, code, msg := http.StatusUnauthorized, auth.CodeUnauthorized, err.Error()
	var authErr *auth.Error
	if errors.As(err, &authErr) {
		status, code, msg = authErr.Status, authErr.Code, authErr.Message
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"output": map[string]any{},
		"error":  tools.Error{Code: code, Message: msg},
	})
}
