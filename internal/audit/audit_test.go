package audit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qubex-tech/VantageAI-CRM-sub004/internal/metrics"
	"github.com/qubex-tech/VantageAI-CRM-sub004/pkg/models"
)

type captureWriter struct {
	mu      sync.Mutex
	entries []*models.AuditLogEntry
	err     error
}

func (w *captureWriter) AppendAuditLog(ctx context.Context, e *models.AuditLogEntry) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.entries = append(w.entries, e)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCollectFieldPaths(t *testing.T) {
	output := map[string]any{
		"patient": map[string]any{
			"first_name": "Jane",
			"last_name":  "Doe",
			"dob":        models.Date{Year: 1984, Month: time.March, Day: 7},
		},
		"insurance": map[string]any{
			"member_id_masked": "*********6789",
			"rx":               nil,
		},
		"candidates": []any{
			map[string]any{"display_name": "Jane D.", "confidence": 1.0},
		},
		"empty": map[string]any{},
	}

	paths := CollectFieldPaths(output, "")

	assert.Equal(t, []string{
		"candidates[0].confidence",
		"candidates[0].display_name",
		"insurance.member_id_masked",
		"patient.dob",
		"patient.first_name",
		"patient.last_name",
	}, paths)
}

func TestCollectFieldPaths_NeverCapturesValues(t *testing.T) {
	output := map[string]any{"member_id": "ABC123456789", "group_number": "GRP-0042"}

	for _, p := range CollectFieldPaths(output, "") {
		assert.NotContains(t, p, "ABC123456789")
		assert.NotContains(t, p, "GRP-0042")
	}
}

func TestCollectFieldPaths_RootCases(t *testing.T) {
	assert.Empty(t, CollectFieldPaths(nil, ""))
	assert.Equal(t, []string{"x"}, CollectFieldPaths("value", "x"))
	assert.Equal(t, []string{"list[0]", "list[1]"}, CollectFieldPaths([]string{"a", "b"}, "list"))
	assert.Equal(t, []string{"when"}, CollectFieldPaths(time.Now(), "when"))
}

func TestCollectFieldPaths_TypedStructsFollowJSONTags(t *testing.T) {
	type inner struct {
		Zip string `json:"zip_masked"`
	}
	type outer struct {
		Name    string `json:"name"`
		Skipped string `json:"-"`
		Addr    *inner `json:"address,omitempty"`
	}

	assert.Equal(t, []string{"name"}, CollectFieldPaths(outer{Name: "x"}, ""))
	assert.Equal(t, []string{"address.zip_masked", "name"},
		CollectFieldPaths(outer{Name: "x", Addr: &inner{Zip: "021**"}}, ""))
}

func TestRecorder_WritesEntry(t *testing.T) {
	w := &captureWriter{}
	r := NewRecorder(w, discardLogger(), nil, time.Second)

	r.Record(context.Background(), Params{
		RequestID:      "7b0e3f5a-0c7e-4b8f-9a44-2f1d2b0c9e11",
		ActorID:        "agent-7",
		ActorType:      models.ActorTypeAgent,
		Purpose:        "insurance_verification",
		PatientID:      "p1",
		ToolName:       "get_patient_identity",
		FieldsReturned: []string{"patient.first_name"},
	})
	require.NoError(t, r.Wait(context.Background()))

	require.Len(t, w.entries, 1)
	e := w.entries[0]
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "agent-7", e.ActorID)
	require.NotNil(t, e.PatientID)
	assert.Equal(t, "p1", *e.PatientID)
	assert.Nil(t, e.PolicyID)
	assert.Equal(t, []string{"patient.first_name"}, e.FieldsReturned)
	assert.False(t, e.CreatedAt.IsZero())
}

func TestRecorder_SwallowsWriteFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	w := &captureWriter{err: errors.New("connection refused")}
	r := NewRecorder(w, discardLogger(), m, time.Second)

	assert.NotPanics(t, func() {
		r.WriteAuditLog(context.Background(), Params{ToolName: "get_patient_identity"})
	})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuditWriteFailures))
}

func TestRecorder_WriteSurvivesCanceledRequest(t *testing.T) {
	w := &captureWriter{}
	r := NewRecorder(w, discardLogger(), nil, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.Record(ctx, Params{ToolName: "list_insurance_policies"})
	require.NoError(t, r.Wait(context.Background()))

	assert.Len(t, w.entries, 1)
}

// gateWriter blocks every write until release is closed.
type gateWriter struct {
	captureWriter
	release chan struct{}
}

func (w *gateWriter) AppendAuditLog(ctx context.Context, e *models.AuditLogEntry) error {
	select {
	case <-w.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	return w.captureWriter.AppendAuditLog(ctx, e)
}

func TestRecorder_CloseDrainsPendingWrites(t *testing.T) {
	w := &gateWriter{release: make(chan struct{})}
	r := NewRecorder(w, discardLogger(), nil, 5*time.Second)

	r.Record(context.Background(), Params{ToolName: "get_patient_identity"})

	expired, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, r.Close(expired), context.DeadlineExceeded)

	close(w.release)
	require.NoError(t, r.Close(context.Background()))
	assert.Len(t, w.entries, 1)
}

func TestRecorder_RecordAfterCloseWritesSynchronously(t *testing.T) {
	w := &captureWriter{}
	r := NewRecorder(w, discardLogger(), nil, time.Second)
	require.NoError(t, r.Close(context.Background()))

	r.Record(context.Background(), Params{ToolName: "get_verification_bundle"})

	// no Wait: the row is already written
	w.mu.Lock()
	defer w.mu.Unlock()
	assert.Len(t, w.entries, 1)
}

func TestNewEntry_EmptyFieldsSerializeAsList(t *testing.T) {
	e := NewEntry(Params{ToolName: "delete_patient", ErrorCode: "UNKNOWN_TOOL"})
	assert.NotNil(t, e.FieldsReturned)
	assert.Empty(t, e.FieldsReturned)
}
