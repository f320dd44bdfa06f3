package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qubex-tech/VantageAI-CRM-sub004/pkg/models"
)

func seededMemoryStore(t *testing.T) *MemoryStore {
	t.Helper()
	s := NewMemoryStore()
	require.NoError(t, DemoFixtures().Load(context.Background(), s))
	return s
}

func TestMemoryStore_PracticeScoping(t *testing.T) {
	ctx := context.Background()
	s := seededMemoryStore(t)

	p, err := s.GetPatient(ctx, DemoPracticeID, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Jane", p.FirstName)

	_, err = s.GetPatient(ctx, "other-practice", "p1")
	assert.ErrorIs(t, err, ErrNotFound)

	p, err = s.GetPatient(ctx, "", "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ID)

	_, err = s.GetPolicy(ctx, "other-practice", "pol1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_SoftDeletedRowsAreHidden(t *testing.T) {
	ctx := context.Background()
	s := seededMemoryStore(t)

	deleted := time.Now().UTC()
	require.NoError(t, s.UpsertPolicy(ctx, &models.InsurancePolicy{
		ID: "pol9", PatientID: "p1", PracticeID: DemoPracticeID, DeletedAt: &deleted,
	}))

	_, err := s.GetPolicy(ctx, "", "pol9")
	assert.ErrorIs(t, err, ErrNotFound)

	policies, err := s.ListPolicies(ctx, "", "p1")
	require.NoError(t, err)
	require.Len(t, policies, 1)
	assert.Equal(t, "pol1", policies[0].ID)
}

func TestMemoryStore_ListPoliciesInCreationOrder(t *testing.T) {
	s := seededMemoryStore(t)

	policies, err := s.ListPolicies(context.Background(), DemoPracticeID, "p2")
	require.NoError(t, err)
	require.Len(t, policies, 2)
	assert.Equal(t, "pol3", policies[0].ID)
	assert.Equal(t, "pol2", policies[1].ID)
}

func TestMemoryStore_FindPatientsByDOB(t *testing.T) {
	s := seededMemoryStore(t)

	found, err := s.FindPatientsByDOB(context.Background(), DemoPracticeID,
		models.Date{Year: 1984, Month: time.March, Day: 7})
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "p1", found[0].ID)
	assert.Equal(t, "p3", found[1].ID)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := seededMemoryStore(t)

	p, err := s.GetPatient(ctx, "", "p1")
	require.NoError(t, err)
	p.FirstName = "Mutated"

	again, err := s.GetPatient(ctx, "", "p1")
	require.NoError(t, err)
	assert.Equal(t, "Jane", again.FirstName)
}

func TestMemoryStore_AppendAuditLog(t *testing.T) {
	s := NewMemoryStore()
	entry := &models.AuditLogEntry{ID: "a1", ToolName: "get_patient_identity", FieldsReturned: []string{"patient.id"}}

	require.NoError(t, s.AppendAuditLog(context.Background(), entry))
	entry.FieldsReturned[0] = "mutated"

	entries := s.AuditEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, []string{"patient.id"}, entries[0].FieldsReturned)
}
