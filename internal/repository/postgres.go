package repository

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/qubex-tech/VantageAI-CRM-sub004/pkg/models"
)

//go:embed schema.sql
var schemaSQL string

// Connect opens a connection pool and verifies it with a ping.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// Migrate applies the embedded schema. Statements are idempotent.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// PostgresStore is a PostgreSQL implementation of Repository.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const patientColumns = `id, practice_id, first_name, last_name, date_of_birth, phone, email,
	address_line1, address_line2, city, state, zip_code, created_at, updated_at`

const policyColumns = `id, patient_id, practice_id, payer_name_raw, plan_name, member_id, group_number,
	is_primary, subscriber_is_patient, subscriber_first_name, subscriber_last_name, subscriber_dob,
	relationship_to_patient, bcbs_alpha_prefix, rx_bin, rx_pcn, rx_group, card_front_ref, card_back_ref,
	created_at, updated_at`

// GetPatient retrieves a live patient by ID.
func (s *PostgresStore) GetPatient(ctx context.Context, practiceID, patientID string) (*models.Patient, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+patientColumns+` FROM patients
		 WHERE id = $1 AND ($2 = '' OR practice_id = $2) AND deleted_at IS NULL`,
		patientID, practiceID)
	p, err := scanPatient(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get patient: %w", err)
	}
	return p, nil
}

// FindPatientsByDOB returns live patients born on dob.
func (s *PostgresStore) FindPatientsByDOB(ctx context.Context, practiceID string, dob models.Date) ([]*models.Patient, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+patientColumns+` FROM patients
		 WHERE date_of_birth = $1 AND ($2 = '' OR practice_id = $2) AND deleted_at IS NULL
		 ORDER BY id`,
		dob.Time(), practiceID)
	if err != nil {
		return nil, fmt.Errorf("find patients by dob: %w", err)
	}
	defer rows.Close()

	var patients []*models.Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan patient: %w", err)
		}
		patients = append(patients, p)
	}
	return patients, rows.Err()
}

// GetPolicy retrieves a live policy by ID.
func (s *PostgresStore) GetPolicy(ctx context.Context, practiceID, policyID string) (*models.InsurancePolicy, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+policyColumns+` FROM insurance_policies
		 WHERE id = $1 AND ($2 = '' OR practice_id = $2) AND deleted_at IS NULL`,
		policyID, practiceID)
	p, err := scanPolicy(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get policy: %w", err)
	}
	return p, nil
}

// ListPolicies returns every live policy of a patient in creation order.
func (s *PostgresStore) ListPolicies(ctx context.Context, practiceID, patientID string) ([]*models.InsurancePolicy, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+policyColumns+` FROM insurance_policies
		 WHERE patient_id = $1 AND ($2 = '' OR practice_id = $2) AND deleted_at IS NULL
		 ORDER BY created_at, id`,
		patientID, practiceID)
	if err != nil {
		return nil, fmt.Errorf("list policies: %w", err)
	}
	defer rows.Close()

	var policies []*models.InsurancePolicy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, fmt.Errorf("scan policy: %w", err)
		}
		policies = append(policies, p)
	}
	return policies, rows.Err()
}

// AppendAuditLog inserts one audit row.
func (s *PostgresStore) AppendAuditLog(ctx context.Context, e *models.AuditLogEntry) error {
	fields, err := json.Marshal(e.FieldsReturned)
	if err != nil {
		return fmt.Errorf("marshal fields returned: %w", err)
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO mcp_audit_logs (id, request_id, actor_id, actor_type, purpose, practice_id,
			patient_id, policy_id, tool_name, fields_returned_json, unmasked, error_code, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		e.ID, e.RequestID, e.ActorID, string(e.ActorType), e.Purpose, e.PracticeID,
		e.PatientID, e.PolicyID, e.ToolName, string(fields), e.Unmasked, e.ErrorCode, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

// UpsertPatient inserts or replaces a patient row.
func (s *PostgresStore) UpsertPatient(ctx context.Context, p *models.Patient) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO patients (`+patientColumns+`, deleted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 ON CONFLICT (id) DO UPDATE SET
			practice_id = EXCLUDED.practice_id, first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name, date_of_birth = EXCLUDED.date_of_birth,
			phone = EXCLUDED.phone, email = EXCLUDED.email,
			address_line1 = EXCLUDED.address_line1, address_line2 = EXCLUDED.address_line2,
			city = EXCLUDED.city, state = EXCLUDED.state, zip_code = EXCLUDED.zip_code,
			updated_at = EXCLUDED.updated_at, deleted_at = EXCLUDED.deleted_at`,
		p.ID, p.PracticeID, p.FirstName, p.LastName, dateParam(p.DateOfBirth),
		p.Contact.Phone, p.Contact.Email,
		p.Address.Line1, p.Address.Line2, p.Address.City, p.Address.State, p.Address.ZipCode,
		timestampOrNow(p.CreatedAt), timestampOrNow(p.UpdatedAt), p.DeletedAt)
	if err != nil {
		return fmt.Errorf("upsert patient %s: %w", p.ID, err)
	}
	return nil
}

// UpsertPolicy inserts or replaces a policy row.
func (s *PostgresStore) UpsertPolicy(ctx context.Context, p *models.InsurancePolicy) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO insurance_policies (`+policyColumns+`, deleted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
		 ON CONFLICT (id) DO UPDATE SET
			patient_id = EXCLUDED.patient_id, practice_id = EXCLUDED.practice_id,
			payer_name_raw = EXCLUDED.payer_name_raw, plan_name = EXCLUDED.plan_name,
			member_id = EXCLUDED.member_id, group_number = EXCLUDED.group_number,
			is_primary = EXCLUDED.is_primary, subscriber_is_patient = EXCLUDED.subscriber_is_patient,
			subscriber_first_name = EXCLUDED.subscriber_first_name,
			subscriber_last_name = EXCLUDED.subscriber_last_name,
			subscriber_dob = EXCLUDED.subscriber_dob,
			relationship_to_patient = EXCLUDED.relationship_to_patient,
			bcbs_alpha_prefix = EXCLUDED.bcbs_alpha_prefix,
			rx_bin = EXCLUDED.rx_bin, rx_pcn = EXCLUDED.rx_pcn, rx_group = EXCLUDED.rx_group,
			card_front_ref = EXCLUDED.card_front_ref, card_back_ref = EXCLUDED.card_back_ref,
			updated_at = EXCLUDED.updated_at, deleted_at = EXCLUDED.deleted_at`,
		p.ID, p.PatientID, p.PracticeID, p.PayerNameRaw, p.PlanName, p.MemberID, p.GroupNumber,
		p.IsPrimary, p.SubscriberIsPatient, p.SubscriberFirstName, p.SubscriberLastName, dateParam(p.SubscriberDOB),
		p.RelationshipToPatient, p.BCBSAlphaPrefix, p.RxBin, p.RxPCN, p.RxGroup, p.CardFrontRef, p.CardBackRef,
		timestampOrNow(p.CreatedAt), timestampOrNow(p.UpdatedAt), p.DeletedAt)
	if err != nil {
		return fmt.Errorf("upsert policy %s: %w", p.ID, err)
	}
	return nil
}

// Ping verifies the database is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func scanPatient(row pgx.Row) (*models.Patient, error) {
	var p models.Patient
	var dob *time.Time
	err := row.Scan(&p.ID, &p.PracticeID, &p.FirstName, &p.LastName, &dob,
		&p.Contact.Phone, &p.Contact.Email,
		&p.Address.Line1, &p.Address.Line2, &p.Address.City, &p.Address.State, &p.Address.ZipCode,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.DateOfBirth, _ = models.AsDate(dob)
	return &p, nil
}

func scanPolicy(row pgx.Row) (*models.InsurancePolicy, error) {
	var p models.InsurancePolicy
	var subscriberDOB *time.Time
	err := row.Scan(&p.ID, &p.PatientID, &p.PracticeID, &p.PayerNameRaw, &p.PlanName, &p.MemberID, &p.GroupNumber,
		&p.IsPrimary, &p.SubscriberIsPatient, &p.SubscriberFirstName, &p.SubscriberLastName, &subscriberDOB,
		&p.RelationshipToPatient, &p.BCBSAlphaPrefix, &p.RxBin, &p.RxPCN, &p.RxGroup, &p.CardFrontRef, &p.CardBackRef,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.SubscriberDOB, _ = models.AsDate(subscriberDOB)
	return &p, nil
}

// dateParam maps an unset date to SQL NULL.
func dateParam(d models.Date) *time.Time {
	if d.IsZero() {
		return nil
	}
	t := d.Time()
	return &t
}

func timestampOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}
