package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/qubex-tech/VantageAI-CRM-sub004/internal/auth"
	"github.com/qubex-tech/VantageAI-CRM-sub004/internal/tools"
)

const startKey = "request_start"

// Options configures the HTTP server.
type Options struct {
	Dispatcher  *tools.Dispatcher
	Gate        *auth.Gate
	Store       Pinger
	Logger      *slog.Logger
	Version     string
	CORSOrigins []string

	// Metrics is served on /metrics when set.
	Metrics http.Handler

	// MCP is mounted under /mcp/ when set.
	MCP http.Handler
}

// NewServer builds the echo instance with every route and middleware.
func NewServer(opts Options) *echo.Echo {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(logger)

	e.Use(stampStart)
	e.Use(middleware.Recover())
	e.Use(otelecho.Middleware(serviceName))
	e.Use(requestLogger(logger))
	e.Use(middleware.BodyLimit("1M"))
	if len(opts.CORSOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: opts.CORSOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders: append([]string{echo.HeaderContentType}, auth.AllHeaders...),
		}))
	}

	h := NewHandler(opts.Dispatcher, opts.Store, opts.Version)
	e.GET("/health", h.HandleHealth)
	e.GET("/ready", h.HandleReady)

	authed := opts.Gate.Middleware()
	e.GET("/tools", h.HandleListTools, authed)
	e.POST("/call", h.HandleCall, authed)

	if opts.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(opts.Metrics))
	}
	if opts.MCP != nil {
		e.Any("/mcp/*", echo.WrapHandler(opts.MCP))
	}

	return e
}

func stampStart(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Set(startKey, time.Now())
		return next(c)
	}
}

// requestLogger logs method, route and status only; bodies may carry PHI
// and are never logged.
func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURIPath:  true,
		LogStatus:   true,
		LogLatency:  true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.LogAttrs(context.Background(), slog.LevelInfo, "request",
				slog.String("method", v.Method),
				slog.String("path", v.URIPath),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("request_id", c.Request().Header.Get(auth.HeaderRequestID)),
			)
			return nil
		},
	})
}

// errorHandler renders every failure as the JSON call envelope.
func errorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := http.StatusInternalServerError, &tools.Error{Code: tools.CodeInternalError, Message: "internal error"}

		var authErr *auth.Error
		var toolErr *tools.Error
		var httpErr *echo.HTTPError
		switch {
		case errors.As(err, &authErr):
			status, body = authErr.Status, &tools.Error{Code: authErr.Code, Message: authErr.Message}
		case errors.As(err, &toolErr):
			status, body = toolErr.HTTPStatus(), toolErr
		case errors.As(err, &httpErr):
			status = httpErr.Code
			body = &tools.Error{Code: httpCode(httpErr.Code), Message: http.StatusText(httpErr.Code)}
		default:
			logger.Error("unhandled error", "path", c.Path(), "error", err)
		}

		requestID := c.Request().Header.Get(auth.HeaderRequestID)
		if actor, ok := auth.ActorFromEcho(c); ok {
			requestID = actor.RequestID
		}

		resp := CallResponse{
			Output: map[string]any{},
			Error:  body,
			Meta:   newMeta(c, requestID),
		}
		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = c.JSON(status, resp)
		}
		if writeErr != nil {
			logger.Error("write error response", "error", writeErr)
		}
	}
}

func httpCode(status int) string {
	switch status {
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusUnauthorized:
		return auth.CodeUnauthorized
	}
	if status >= 500 {
		return tools.CodeInternalError
	}
	return tools.CodeBadRequest
}
