// Package models defines the domain models read by the insurance verification gateway
package models

import (
	"time"
)

// ActorType identifies the kind of principal calling the gateway
type ActorType string

const (
	ActorTypeAgent  ActorType = "agent"
	ActorTypeUser   ActorType = "user"
	ActorTypeSystem ActorType = "system"
)

// Valid reports whether t is one of the supported actor types.
func (t ActorType) Valid() bool {
	switch t {
	case ActorTypeAgent, ActorTypeUser, ActorTypeSystem:
		return true
	}
	return false
}

// Patient represents a practice's patient record
type Patient struct {
	ID          string `json:"id" db:"id"`
	PracticeID  string `json:"practice_id" db:"practice_id"`
	FirstName   string `json:"first_name" db:"first_name"`
	LastName    string `json:"last_name" db:"last_name"`
	DateOfBirth Date   `json:"date_of_birth" db:"date_of_birth"`

	// Contact information
	Contact ContactInfo `json:"contact"`

	// Address information
	Address Address `json:"address"`

	// Audit fields
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"-" db:"deleted_at"`
}

// ContactInfo represents contact information
type ContactInfo struct {
	Phone string `json:"phone,omitempty" db:"phone"`
	Email string `json:"email,omitempty" db:"email"`
}

// Address represents a physical address
type Address struct {
	Line1   string `json:"line1,omitempty" db:"address_line1"`
	Line2   string `json:"line2,omitempty" db:"address_line2"`
	City    string `json:"city,omitempty" db:"city"`
	State   string `json:"state,omitempty" db:"state"`
	ZipCode string `json:"zip_code,omitempty" db:"zip_code"`
}

// InsurancePolicy represents one coverage record attached to a patient.
// A patient may carry several; see SelectPrimary for how one is chosen.
type InsurancePolicy struct {
	ID           string `json:"id" db:"id"`
	PatientID    string `json:"patient_id" db:"patient_id"`
	PracticeID   string `json:"practice_id" db:"practice_id"`
	PayerNameRaw string `json:"payer_name_raw" db:"payer_name_raw"`
	PlanName     string `json:"plan_name,omitempty" db:"plan_name"`
	MemberID     string `json:"member_id" db:"member_id"`
	GroupNumber  string `json:"group_number,omitempty" db:"group_number"`
	IsPrimary    bool   `json:"is_primary" db:"is_primary"`

	// Subscriber
	SubscriberIsPatient   bool   `json:"subscriber_is_patient" db:"subscriber_is_patient"`
	SubscriberFirstName   string `json:"subscriber_first_name,omitempty" db:"subscriber_first_name"`
	SubscriberLastName    string `json:"subscriber_last_name,omitempty" db:"subscriber_last_name"`
	SubscriberDOB         Date   `json:"subscriber_dob" db:"subscriber_dob"`
	RelationshipToPatient string `json:"relationship_to_patient,omitempty" db:"relationship_to_patient"`

	BCBSAlphaPrefix string `json:"bcbs_alpha_prefix,omitempty" db:"bcbs_alpha_prefix"`

	// Pharmacy benefit
	RxBin   string `json:"rx_bin,omitempty" db:"rx_bin"`
	RxPCN   string `json:"rx_pcn,omitempty" db:"rx_pcn"`
	RxGroup string `json:"rx_group,omitempty" db:"rx_group"`

	// Card image references (storage keys or URIs, never image bytes)
	CardFrontRef string `json:"card_front_ref,omitempty" db:"card_front_ref"`
	CardBackRef  string `json:"card_back_ref,omitempty" db:"card_back_ref"`

	// Audit fields
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"-" db:"deleted_at"`
}

// Deleted reports whether the policy has been soft-deleted.
func (p *InsurancePolicy) Deleted() bool {
	return p.DeletedAt != nil
}

// HealthStatus represents service health
type HealthStatus struct {
	OK        bool              `json:"ok"`
	Service   string            `json:"service"`
	Version   string            `json:"version"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}
