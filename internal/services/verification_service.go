package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/qubex-tech/VantageAI-CRM-sub004/internal/repository"
	"github.com/qubex-tech/VantageAI-CRM-sub004/pkg/models"
)

// Store is the read side of the repository the service depends on.
type Store interface {
	repository.PatientReader
	repository.PolicyReader
}

// VerificationService is the data access facade used by tool handlers. Every
// lookup is scoped to the caller's practice; an empty practice ID is unscoped.
//
// Lookups return (nil, nil) when the record does not exist so handlers can
// report "not found" as ordinary output. Any other error is a storage failure.
type VerificationService struct {
	store Store
}

// NewVerificationService creates a new VerificationService.
func NewVerificationService(store Store) *VerificationService {
	return &VerificationService{store: store}
}

// Patient returns the patient or nil if it does not exist.
func (s *VerificationService) Patient(ctx context.Context, practiceID, patientID string) (*models.Patient, error) {
	p, err := s.store.GetPatient(ctx, practiceID, patientID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load patient: %w", err)
	}
	return p, nil
}

// Policy returns the policy or nil if it does not exist or is deleted.
func (s *VerificationService) Policy(ctx context.Context, practiceID, policyID string) (*models.InsurancePolicy, error) {
	p, err := s.store.GetPolicy(ctx, practiceID, policyID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load policy: %w", err)
	}
	if p.Deleted() {
		return nil, nil
	}
	return p, nil
}

// OrderedPolicies returns the live policies of a patient, primary first.
func (s *VerificationService) OrderedPolicies(ctx context.Context, practiceID, patientID string) ([]*models.InsurancePolicy, error) {
	policies, err := s.store.ListPolicies(ctx, practiceID, patientID)
	if err != nil {
		return nil, fmt.Errorf("list policies: %w", err)
	}
	return models.OrderPolicies(policies), nil
}

// PrimaryPolicy returns the patient's primary policy, or nil when the
// patient has no live policy.
func (s *VerificationService) PrimaryPolicy(ctx context.Context, practiceID, patientID string) (*models.InsurancePolicy, error) {
	policies, err := s.store.ListPolicies(ctx, practiceID, patientID)
	if err != nil {
		return nil, fmt.Errorf("list policies: %w", err)
	}
	return models.SelectPrimary(policies), nil
}
