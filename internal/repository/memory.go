package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/qubex-tech/VantageAI-CRM-sub004/pkg/models"
)

// MemoryStore is an in-process Repository for local development and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	patients map[string]*models.Patient
	policies map[string]*models.InsurancePolicy
	audit    []*models.AuditLogEntry
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		patients: make(map[string]*models.Patient),
		policies: make(map[string]*models.InsurancePolicy),
	}
}

func (s *MemoryStore) GetPatient(ctx context.Context, practiceID, patientID string) (*models.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.patients[patientID]
	if !ok || p.DeletedAt != nil || !inPractice(practiceID, p.PracticeID) {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) FindPatientsByDOB(ctx context.Context, practiceID string, dob models.Date) ([]*models.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Patient
	for _, p := range s.patients {
		if p.DeletedAt != nil || !inPractice(practiceID, p.PracticeID) || !p.DateOfBirth.Equal(dob) {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) GetPolicy(ctx context.Context, practiceID, policyID string) (*models.InsurancePolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.policies[policyID]
	if !ok || p.Deleted() || !inPractice(practiceID, p.PracticeID) {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) ListPolicies(ctx context.Context, practiceID, patientID string) ([]*models.InsurancePolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.InsurancePolicy
	for _, p := range s.policies {
		if p.PatientID != patientID || p.Deleted() || !inPractice(practiceID, p.PracticeID) {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) AppendAuditLog(ctx context.Context, e *models.AuditLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *e
	cp.FieldsReturned = append([]string{}, e.FieldsReturned...)
	s.audit = append(s.audit, &cp)
	return nil
}

// AuditEntries returns a snapshot of the audit rows written so far.
func (s *MemoryStore) AuditEntries() []*models.AuditLogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*models.AuditLogEntry(nil), s.audit...)
}

func (s *MemoryStore) UpsertPatient(ctx context.Context, p *models.Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.patients[p.ID] = &cp
	return nil
}

func (s *MemoryStore) UpsertPolicy(ctx context.Context, p *models.InsurancePolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.policies[p.ID] = &cp
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}
