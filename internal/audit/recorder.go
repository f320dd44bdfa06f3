// Package audit records which response fields each tool invocation disclosed.
//
// Audit durability is best-effort: a failed write is logged and counted but
// never surfaces to the caller, and the business response never waits on it.
// The failure counter is the hook for external alerting.
package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/qubex-tech/VantageAI-CRM-sub004/internal/metrics"
	"github.com/qubex-tech/VantageAI-CRM-sub004/pkg/models"
)

// DefaultWriteTimeout bounds a single audit write when none is configured.
const DefaultWriteTimeout = 5 * time.Second

// Writer persists audit rows. Implementations must treat entries as
// append-only.
type Writer interface {
	AppendAuditLog(ctx context.Context, entry *models.AuditLogEntry) error
}

// Params describes one tool invocation to be audited.
type Params struct {
	RequestID      string
	ActorID        string
	ActorType      models.ActorType
	Purpose        string
	PracticeID     string
	PatientID      string
	PolicyID       string
	ToolName       string
	FieldsReturned []string
	Unmasked       bool
	ErrorCode      string
}

// Recorder writes audit rows in the background.
type Recorder struct {
	writer  Writer
	logger  *slog.Logger
	metrics *metrics.Metrics
	timeout time.Duration

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewRecorder creates a Recorder. metrics may be nil.
func NewRecorder(writer Writer, logger *slog.Logger, m *metrics.Metrics, timeout time.Duration) *Recorder {
	if timeout <= 0 {
		timeout = DefaultWriteTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		writer:  writer,
		logger:  logger,
		metrics: m,
		timeout: timeout,
	}
}

// Record starts an audit write and returns immediately. The write detaches
// from ctx cancellation so a caller that hangs up after the handler finished
// still leaves an audit attempt behind.
//
// After Close, Record writes synchronously so late callers still leave a row.
func (r *Recorder) Record(ctx context.Context, p Params) {
	ctx = context.WithoutCancel(ctx)
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.WriteAuditLog(ctx, p)
		return
	}
	r.wg.Add(1)
	r.mu.Unlock()
	go func() {
		defer r.wg.Done()
		r.WriteAuditLog(ctx, p)
	}()
}

// WriteAuditLog appends one row synchronously. Errors are logged and
// swallowed.
func (r *Recorder) WriteAuditLog(ctx context.Context, p Params) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	entry := NewEntry(p)
	if err := r.writer.AppendAuditLog(ctx, entry); err != nil {
		r.metrics.IncAuditWriteFailure()
		r.logger.ErrorContext(ctx, "audit write failed",
			"request_id", p.RequestID,
			"actor_id", p.ActorID,
			"tool", p.ToolName,
			"fields", len(p.FieldsReturned),
			"error", err,
		)
		return
	}
	r.logger.DebugContext(ctx, "audit row written",
		"request_id", p.RequestID,
		"tool", p.ToolName,
		"fields", len(p.FieldsReturned),
	)
}

// Close stops background writes and waits for in-flight ones until ctx is
// done.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return r.Wait(ctx)
}

// Wait blocks until in-flight writes finish or ctx is done. Records started
// while Wait runs may or may not be waited for; use Close at shutdown.
func (r *Recorder) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NewEntry builds the row for p, assigning an ID and timestamp.
func NewEntry(p Params) *models.AuditLogEntry {
	return &models.AuditLogEntry{
		ID:             uuid.New().String(),
		RequestID:      p.RequestID,
		ActorID:        p.ActorID,
		ActorType:      p.ActorType,
		Purpose:        p.Purpose,
		PracticeID:     p.PracticeID,
		PatientID:      optional(p.PatientID),
		PolicyID:       optional(p.PolicyID),
		ToolName:       p.ToolName,
		FieldsReturned: append([]string{}, p.FieldsReturned...),
		Unmasked:       p.Unmasked,
		ErrorCode:      p.ErrorCode,
		CreatedAt:      time.Now().UTC(),
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
