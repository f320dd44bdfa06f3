package tools

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/qubex-tech/VantageAI-CRM-sub004/internal/audit"
	"github.com/qubex-tech/VantageAI-CRM-sub004/internal/auth"
	"github.com/qubex-tech/VantageAI-CRM-sub004/internal/metrics"
)

const tracerName = "github.com/qubex-tech/VantageAI-CRM-sub004/internal/tools"

// Auditor receives one record per dispatched invocation.
type Auditor interface {
	Record(ctx context.Context, p audit.Params)
}

// Envelope is the dispatcher's answer to one invocation. Output is the
// JSON tree that was audited and must be sent unchanged.
type Envelope struct {
	Output any    `json:"output"`
	Error  *Error `json:"error,omitempty"`
}

// Dispatcher runs the lookup, validate, call, audit pipeline.
type Dispatcher struct {
	registry *Registry
	auditor  Auditor
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

// NewDispatcher creates a Dispatcher. metrics may be nil.
func NewDispatcher(registry *Registry, auditor Auditor, logger *slog.Logger, m *metrics.Metrics) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		registry: registry,
		auditor:  auditor,
		logger:   logger,
		metrics:  m,
		tracer:   otel.Tracer(tracerName),
	}
}

// Registry returns the dispatcher's registry.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Invoke runs toolName for an authenticated actor. rawInput is the decoded
// JSON input (nil or an object). The audit record is queued before Invoke
// returns and never affects the envelope.
func (d *Dispatcher) Invoke(ctx context.Context, toolName string, rawInput any, actor *auth.ActorContext) Envelope {
	start := time.Now()
	name := boundedToolName(d.registry, toolName)
	ctx, span := d.tracer.Start(ctx, "tool "+name, trace.WithAttributes(
		attribute.String("mcp.tool", name),
		attribute.String("mcp.request_id", actor.RequestID),
		attribute.String("mcp.actor_type", string(actor.ActorType)),
	))
	defer span.End()

	env, res := d.run(ctx, toolName, rawInput, actor)

	code := ""
	if env.Error != nil {
		code = env.Error.Code
		span.SetAttributes(attribute.String("mcp.error_code", code))
		span.SetStatus(codes.Error, code)
	}

	d.auditor.Record(ctx, audit.Params{
		RequestID:      actor.RequestID,
		ActorID:        actor.ActorID,
		ActorType:      actor.ActorType,
		Purpose:        actor.Purpose,
		PracticeID:     actor.PracticeID,
		PatientID:      res.PatientID,
		PolicyID:       res.PolicyID,
		ToolName:       toolName,
		FieldsReturned: audit.CollectFieldPaths(env.Output, ""),
		Unmasked:       actor.AllowUnmasked,
		ErrorCode:      code,
	})

	d.metrics.ObserveToolCall(name, code, time.Since(start))
	return env
}

func (d *Dispatcher) run(ctx context.Context, toolName string, rawInput any, actor *auth.ActorContext) (Envelope, Result) {
	tool, ok := d.registry.Lookup(toolName)
	if !ok {
		return failure(unknownTool(toolName)), Result{}
	}

	args, errs := tool.Input.Validate(rawInput)
	if errs != nil {
		return failure(validationError(errs)), Result{}
	}

	res, err := tool.Handler(ctx, args, actor)
	if err != nil {
		var toolErr *Error
		if errors.As(err, &toolErr) {
			return failure(toolErr), res
		}
		d.logger.Error("tool failed",
			"tool", toolName,
			"request_id", actor.RequestID,
			"error", err)
		return failure(internalError()), res
	}

	tree, err := audit.ToJSONTree(res.Output)
	if err != nil {
		d.logger.Error("encode tool output",
			"tool", toolName,
			"request_id", actor.RequestID,
			"error", err)
		return failure(internalError()), res
	}
	return Envelope{Output: tree}, res
}

func failure(err *Error) Envelope {
	return Envelope{Output: map[string]any{}, Error: err}
}

// boundedToolName is the tool name used for span names and metric labels.
// Caller-supplied names that are not registered collapse into "unknown".
func boundedToolName(r *Registry, name string) string {
	if _, ok := r.Lookup(name); ok {
		return name
	}
	return "unknown"
}
