package repository

import (
	"context"
	"errors"

	"github.com/qubex-tech/VantageAI-CRM-sub004/pkg/models"
)

// ErrNotFound is returned when a patient or policy does not exist, is
// soft-deleted, or belongs to another practice.
var ErrNotFound = errors.New("record not found")

// PatientReader is the read-only view of patient records. An empty
// practiceID disables practice scoping.
type PatientReader interface {
	// GetPatient retrieves a live patient by ID.
	GetPatient(ctx context.Context, practiceID, patientID string) (*models.Patient, error)
	// FindPatientsByDOB returns live patients born on dob.
	FindPatientsByDOB(ctx context.Context, practiceID string, dob models.Date) ([]*models.Patient, error)
}

// PolicyReader is the read-only view of insurance policies.
type PolicyReader interface {
	// GetPolicy retrieves a live policy by ID.
	GetPolicy(ctx context.Context, practiceID, policyID string) (*models.InsurancePolicy, error)
	// ListPolicies returns every live policy of a patient in storage order.
	ListPolicies(ctx context.Context, practiceID, patientID string) ([]*models.InsurancePolicy, error)
}

// AuditWriter appends audit rows.
type AuditWriter interface {
	AppendAuditLog(ctx context.Context, entry *models.AuditLogEntry) error
}

// Repository is everything the gateway needs from storage.
type Repository interface {
	PatientReader
	PolicyReader
	AuditWriter
	Ping(ctx context.Context) error
}

// Seeder loads records for development and tests. The gateway itself never
// writes clinical data.
type Seeder interface {
	UpsertPatient(ctx context.Context, patient *models.Patient) error
	UpsertPolicy(ctx context.Context, policy *models.InsurancePolicy) error
}

func inPractice(practiceID, recordPractice string) bool {
	return practiceID == "" || practiceID == recordPractice
}
