package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/qubex-tech/VantageAI-CRM-sub004/pkg/models"
)

func TestPostgresStore(t *testing.T) {
	if testing.Short() {
		t.Skip("requires docker")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test-db"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2)),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Fatalf("failed to terminate container: %s", err)
		}
	}()

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatal(err)
	}

	pool, err := Connect(ctx, connStr)
	if err != nil {
		t.Fatal(err)
	}
	defer pool.Close()

	require.NoError(t, Migrate(ctx, pool))
	// second run must be a no-op
	require.NoError(t, Migrate(ctx, pool))

	store := NewPostgresStore(pool)
	require.NoError(t, DemoFixtures().Load(ctx, store))

	t.Run("Get patient", func(t *testing.T) {
		p, err := store.GetPatient(ctx, DemoPracticeID, "p1")
		require.NoError(t, err)
		assert.Equal(t, "Jane", p.FirstName)
		assert.Equal(t, models.Date{Year: 1984, Month: time.March, Day: 7}, p.DateOfBirth)
		assert.Equal(t, "02108", p.Address.ZipCode)

		_, err = store.GetPatient(ctx, "other-practice", "p1")
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = store.GetPatient(ctx, "", "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Policy subscriber DOB may be null", func(t *testing.T) {
		p, err := store.GetPolicy(ctx, DemoPracticeID, "pol2")
		require.NoError(t, err)
		assert.True(t, p.SubscriberDOB.IsZero())
		assert.Equal(t, "XOF", p.BCBSAlphaPrefix)
	})

	t.Run("List policies skips deleted", func(t *testing.T) {
		deleted := time.Now().UTC()
		require.NoError(t, store.UpsertPolicy(ctx, &models.InsurancePolicy{
			ID: "pol-deleted", PatientID: "p2", PracticeID: DemoPracticeID,
			PayerNameRaw: "Cigna", MemberID: "C000111", DeletedAt: &deleted,
		}))

		policies, err := store.ListPolicies(ctx, DemoPracticeID, "p2")
		require.NoError(t, err)
		require.Len(t, policies, 2)
		assert.Equal(t, "pol3", policies[0].ID)
		assert.Equal(t, "pol2", policies[1].ID)
	})

	t.Run("Find by DOB", func(t *testing.T) {
		found, err := store.FindPatientsByDOB(ctx, DemoPracticeID, models.Date{Year: 1984, Month: time.March, Day: 7})
		require.NoError(t, err)
		require.Len(t, found, 2)
		assert.Equal(t, "p1", found[0].ID)
	})

	t.Run("Append audit log", func(t *testing.T) {
		requestID := uuid.NewString()
		patientID := "p1"
		entry := &models.AuditLogEntry{
			ID:             uuid.NewString(),
			RequestID:      requestID,
			ActorID:        "agent-7",
			ActorType:      models.ActorTypeAgent,
			Purpose:        "insurance_verification",
			PracticeID:     DemoPracticeID,
			PatientID:      &patientID,
			ToolName:       "get_patient_identity",
			FieldsReturned: []string{"patient.first_name", "patient.id"},
			CreatedAt:      time.Now().UTC(),
		}
		require.NoError(t, store.AppendAuditLog(ctx, entry))

		rows, err := auditRows(ctx, store, requestID)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, entry.FieldsReturned, rows[0].FieldsReturned)
		assert.Equal(t, models.ActorTypeAgent, rows[0].ActorType)
		require.NotNil(t, rows[0].PatientID)
		assert.Nil(t, rows[0].PolicyID)
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, store.Ping(ctx))
	})
}

// auditRows reads back the audit rows written for a request ID, oldest first.
func auditRows(ctx context.Context, s *PostgresStore, requestID string) ([]*models.AuditLogEntry, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, request_id, actor_id, actor_type, purpose, practice_id, patient_id, policy_id,
			tool_name, fields_returned_json, unmasked, error_code, created_at
		 FROM mcp_audit_logs WHERE request_id = $1 ORDER BY created_at, id`,
		requestID)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()

	var entries []*models.AuditLogEntry
	for rows.Next() {
		var e models.AuditLogEntry
		var actorType string
		var fields []byte
		if err := rows.Scan(&e.ID, &e.RequestID, &e.ActorID, &actorType, &e.Purpose, &e.PracticeID,
			&e.PatientID, &e.PolicyID, &e.ToolName, &fields, &e.Unmasked, &e.ErrorCode, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		e.ActorType = models.ActorType(actorType)
		if err := json.Unmarshal(fields, &e.FieldsReturned); err != nil {
			return nil, fmt.Errorf("decode fields returned: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
