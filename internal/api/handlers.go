// Package api contains the HTTP handlers for the verification gateway
package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/qubex-tech/VantageAI-CRM-sub004/internal/auth"
	"github.com/qubex-tech/VantageAI-CRM-sub004/internal/tools"
	"github.com/qubex-tech/VantageAI-CRM-sub004/pkg/models"
)

const serviceName = "mcp-insurance-gateway"

// Pinger reports whether storage is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains HTTP handlers for the gateway REST API
type Handler struct {
	dispatcher *tools.Dispatcher
	store      Pinger
	version    string
}

// NewHandler creates a new Handler with required dependencies
func NewHandler(dispatcher *tools.Dispatcher, store Pinger, version string) *Handler {
	return &Handler{dispatcher: dispatcher, store: store, version: version}
}

// Meta is attached to every /call response.
type Meta struct {
	RequestID string `json:"request_id"`
	LatencyMS int64  `json:"latency_ms"`
}

// CallResponse is the /call envelope.
type CallResponse struct {
	Output any          `json:"output"`
	Error  *tools.Error `json:"error,omitempty"`
	Meta   Meta         `json:"meta"`
}

// CallRequest is the /call body.
type CallRequest struct {
	Tool  string `json:"tool"`
	Input any    `json:"input"`
}

// HandleHealth reports liveness (GET /health). No auth.
func (h *Handler) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, models.HealthStatus{
		OK:        true,
		Service:   serviceName,
		Version:   h.version,
		Timestamp: time.Now().UTC(),
	})
}

// HandleReady reports whether storage is reachable (GET /ready). No auth.
func (h *Handler) HandleReady(c echo.Context) error {
	status := models.HealthStatus{
		OK:        true,
		Service:   serviceName,
		Version:   h.version,
		Timestamp: time.Now().UTC(),
		Checks:    map[string]string{"storage": "ok"},
	}
	if err := h.store.Ping(c.Request().Context()); err != nil {
		status.OK = false
		status.Checks["storage"] = "unavailable"
		return c.JSON(http.StatusServiceUnavailable, status)
	}
	return c.JSON(http.StatusOK, status)
}

// HandleListTools returns every tool with its schemas (GET /tools).
func (h *Handler) HandleListTools(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"tools": h.dispatcher.Registry().Describe(),
	})
}

// HandleCall invokes one tool (POST /call).
func (h *Handler) HandleCall(c echo.Context) error {
	actor, ok := auth.ActorFromEcho(c)
	if !ok {
		return &auth.Error{Code: auth.CodeUnauthorized, Status: http.StatusUnauthorized, Message: "not authenticated"}
	}

	var req CallRequest
	if err := c.Bind(&req); err != nil {
		return badCall("request body must be a JSON object with tool and input")
	}
	if strings.TrimSpace(req.Tool) == "" {
		return badCall("tool is required")
	}

	env := h.dispatcher.Invoke(c.Request().Context(), req.Tool, req.Input, actor)

	status := http.StatusOK
	if env.Error != nil {
		status = env.Error.HTTPStatus()
	}
	return c.JSON(status, CallResponse{
		Output: env.Output,
		Error:  env.Error,
		Meta:   newMeta(c, actor.RequestID),
	})
}

func badCall(msg string) *tools.Error {
	return &tools.Error{Code: tools.CodeBadRequest, Message: msg}
}

func newMeta(c echo.Context, requestID string) Meta {
	m := Meta{RequestID: requestID}
	if start, ok := c.Get(startKey).(time.Time); ok {
		m.LatencyMS = time.Since(start).Milliseconds()
	}
	return m
}
