// Package auth turns request headers into an ActorContext: who is calling,
// for what purpose, and whether they may see unmasked identifiers.
package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/qubex-tech/VantageAI-CRM-sub004/internal/metrics"
	"github.com/qubex-tech/VantageAI-CRM-sub004/pkg/models"
)

var requestIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[1-5][0-9a-fA-F]{3}-[89abAB][0-9a-fA-F]{3}-[0-9a-fA-F]{12}$`)

// ActorContext describes the authenticated caller of one request.
type ActorContext struct {
	RequestID     string
	ActorID       string
	ActorType     models.ActorType
	Purpose       string
	AllowUnmasked bool

	// PracticeID scopes every lookup; empty means the API key is unscoped.
	PracticeID string
}

// Error is an authentication or header validation failure.
type Error struct {
	Code    string
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func unauthorized(msg string) *Error {
	return &Error{Code: CodeUnauthorized, Status: http.StatusUnauthorized, Message: msg}
}

func badRequest(msg string) *Error {
	return &Error{Code: CodeBadRequest, Status: http.StatusBadRequest, Message: msg}
}

// Options configures a Gate.
type Options struct {
	// APIKeys is the allow-list of accepted keys.
	APIKeys []string

	// PracticeKeys binds API keys to a practice. Keys listed here are
	// accepted even if they are absent from APIKeys.
	PracticeKeys map[string]string

	// AllowAgentUnmask lets agent actors request unmasked output.
	AllowAgentUnmask bool
}

type apiKey struct {
	key        []byte
	practiceID string
}

// Gate validates request headers. It is immutable after New and safe for
// concurrent use.
type Gate struct {
	keys             []apiKey
	allowAgentUnmask bool
	logger           *slog.Logger
	metrics          *metrics.Metrics
}

// New creates a Gate. The option values are copied.
func New(opts Options, logger *slog.Logger, m *metrics.Metrics) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	seen := make(map[string]bool)
	var keys []apiKey
	for k, practice := range opts.PracticeKeys {
		k = strings.TrimSpace(k)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, apiKey{key: []byte(k), practiceID: practice})
	}
	for _, k := range opts.APIKeys {
		k = strings.TrimSpace(k)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, apiKey{key: []byte(k)})
	}
	return &Gate{
		keys:             keys,
		allowAgentUnmask: opts.AllowAgentUnmask,
		logger:           logger,
		metrics:          m,
	}
}

// lookup compares the presented key against every configured key in
// constant time per comparison.
func (g *Gate) lookup(presented string) (apiKey, bool) {
	var match apiKey
	found := false
	p := []byte(presented)
	for _, k := range g.keys {
		if subtle.ConstantTimeCompare(p, k.key) == 1 {
			match = k
			found = true
		}
	}
	return match, found
}

// CheckAPIKey validates only the API key header.
func (g *Gate) CheckAPIKey(h http.Header) error {
	key := h.Get(HeaderAPIKey)
	if key == "" {
		return g.fail(unauthorized("missing " + HeaderAPIKey))
	}
	if _, ok := g.lookup(key); !ok {
		return g.fail(unauthorized("invalid " + HeaderAPIKey))
	}
	return nil
}

// Authenticate validates the headers in order and stops at the first
// violation. It has no side effects beyond metrics.
func (g *Gate) Authenticate(h http.Header) (*ActorContext, error) {
	key := h.Get(HeaderAPIKey)
	if key == "" {
		return nil, g.fail(unauthorized("missing " + HeaderAPIKey))
	}
	k, ok := g.lookup(key)
	if !ok {
		return nil, g.fail(unauthorized("invalid " + HeaderAPIKey))
	}

	actorID := strings.TrimSpace(h.Get(HeaderActorID))
	if actorID == "" {
		return nil, g.fail(badRequest(HeaderActorID + " is required"))
	}

	actorType := models.ActorType(h.Get(HeaderActorType))
	if !actorType.Valid() {
		return nil, g.fail(badRequest(HeaderActorType + " must be one of agent, user, system"))
	}

	purpose := h.Get(HeaderPurpose)
	if purpose != RequiredPurpose {
		return nil, g.fail(badRequest(fmt.Sprintf("%s must be %q", HeaderPurpose, RequiredPurpose)))
	}

	requestID := h.Get(HeaderRequestID)
	if !requestIDPattern.MatchString(requestID) {
		return nil, g.fail(badRequest(HeaderRequestID + " must be a UUID"))
	}

	requested := strings.EqualFold(h.Get(HeaderAllowUnmasked), "true")

	return &ActorContext{
		RequestID:     requestID,
		ActorID:       actorID,
		ActorType:     actorType,
		Purpose:       purpose,
		AllowUnmasked: requested && (actorType != models.ActorTypeAgent || g.allowAgentUnmask),
		PracticeID:    k.practiceID,
	}, nil
}

func (g *Gate) fail(err *Error) *Error {
	g.metrics.IncAuthFailure(err.Code)
	g.logger.Warn("request rejected", "code", err.Code, "reason", err.Message)
	return err
}

// Middleware authenticates every request and stores the ActorContext in
// both the echo context and the request context. Failures are returned as
// *Error for the HTTP error handler to render.
func (g *Gate) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, err := g.Authenticate(c.Request().Header)
			if err != nil {
				return err
			}
			c.Set(actorKey, actor)
			req := c.Request()
			c.SetRequest(req.WithContext(WithActor(req.Context(), actor)))
			return next(c)
		}
	}
}

const actorKey = "actor"

type ctxKey struct{}

// WithActor returns a copy of ctx carrying actor.
func WithActor(ctx context.Context, actor *ActorContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, actor)
}

// ActorFrom returns the actor stored by WithActor, if any.
func ActorFrom(ctx context.Context) (*ActorContext, bool) {
	actor, ok := ctx.Value(ctxKey{}).(*ActorContext)
	return actor, ok && actor != nil
}

// ActorFromEcho returns the actor stored by Middleware, if any.
func ActorFromEcho(c echo.Context) (*ActorContext, bool) {
	actor, ok := c.Get(actorKey).(*ActorContext)
	return actor, ok && actor != nil
}
