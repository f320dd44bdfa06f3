// Package readiness decides whether a policy and patient record carry enough
// information to run an eligibility check.
//
// Compute is pure domain logic: no I/O, no clock, no randomness. Identical
// input always yields an identical Result.
package readiness

import (
	"strings"
	"unicode"

	"github.com/qubex-tech/VantageAI-CRM-sub004/pkg/models"
)

// Status is the readiness verdict.
type Status string

const (
	StatusReady     Status = "READY"
	StatusNeedsInfo Status = "NEEDS_INFO"
)

// Reasons attached to findings.
const (
	ReasonRequired              = "required"
	ReasonRecommendedForRouting = "recommended-for-routing"
	ReasonMismatchWithPatient   = "mismatch-with-patient"
)

// Field names reported in findings.
const (
	FieldInsurancePolicy       = "insurancePolicy"
	FieldPayerNameRaw          = "payerNameRaw"
	FieldMemberID              = "memberId"
	FieldSubscriberFirstName   = "subscriberFirstName"
	FieldSubscriberLastName    = "subscriberLastName"
	FieldSubscriberDOB         = "subscriberDob"
	FieldRelationshipToPatient = "relationshipToPatient"
	FieldBCBSAlphaPrefix       = "bcbsAlphaPrefix"
	FieldPatient               = "patient"
	FieldPatientFirstName      = "patientFirstName"
	FieldPatientLastName       = "patientLastName"
	FieldPatientDOB            = "patientDob"
)

// Finding names one field and why it was flagged.
type Finding struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Result is the readiness verdict. MissingFields block READY; Warnings never do.
type Result struct {
	Status        Status    `json:"status"`
	MissingFields []Finding `json:"missing_fields"`
	Warnings      []Finding `json:"warnings"`
}

// bcbsBrands are normalized fragments identifying Blue Cross Blue Shield
// licensees, which route claims by the member id's alpha prefix.
var bcbsBrands = []string{
	"bcbs",
	"bluecross",
	"blueshield",
	"anthem",
	"carefirst",
	"highmark",
	"premera",
	"regence",
	"wellmark",
	"excellus",
}

// Compute evaluates every rule against policy and patient and returns all
// findings at once. Either argument may be nil. Rules never short-circuit:
// the caller gets the full list of gaps in a single round trip.
func Compute(policy *models.InsurancePolicy, patient *models.Patient) Result {
	r := Result{
		MissingFields: []Finding{},
		Warnings:      []Finding{},
	}

	if policy == nil {
		r.missing(FieldInsurancePolicy, ReasonRequired)
	} else {
		checkPolicy(&r, policy, patient)
	}

	checkPatient(&r, patient)

	r.Status = StatusReady
	if len(r.MissingFields) > 0 {
		r.Status = StatusNeedsInfo
	}
	return r
}

func checkPolicy(r *Result, policy *models.InsurancePolicy, patient *models.Patient) {
	if blank(policy.PayerNameRaw) {
		r.missing(FieldPayerNameRaw, ReasonRequired)
	}
	if blank(policy.MemberID) {
		r.missing(FieldMemberID, ReasonRequired)
	}

	if !policy.SubscriberIsPatient {
		if blank(policy.SubscriberFirstName) {
			r.missing(FieldSubscriberFirstName, ReasonRequired)
		}
		if blank(policy.SubscriberLastName) {
			r.missing(FieldSubscriberLastName, ReasonRequired)
		}
		if policy.SubscriberDOB.IsZero() {
			r.missing(FieldSubscriberDOB, ReasonRequired)
		}
		if blank(policy.RelationshipToPatient) {
			r.missing(FieldRelationshipToPatient, ReasonRequired)
		}
	} else if patient != nil && !policy.SubscriberDOB.IsZero() && !patient.DateOfBirth.IsZero() &&
		!policy.SubscriberDOB.Equal(patient.DateOfBirth) {
		r.warn(FieldSubscriberDOB, ReasonMismatchWithPatient)
	}

	if IsBCBS(policy.PayerNameRaw) && blank(policy.BCBSAlphaPrefix) {
		r.warn(FieldBCBSAlphaPrefix, ReasonRecommendedForRouting)
	}
}

func checkPatient(r *Result, patient *models.Patient) {
	if patient == nil {
		r.missing(FieldPatient, ReasonRequired)
		return
	}
	if blank(patient.FirstName) {
		r.missing(FieldPatientFirstName, ReasonRequired)
	}
	if blank(patient.LastName) {
		r.missing(FieldPatientLastName, ReasonRequired)
	}
	if patient.DateOfBirth.IsZero() {
		r.missing(FieldPatientDOB, ReasonRequired)
	}
}

// IsBCBS reports whether a free-text payer name looks like a Blue Cross Blue
// Shield plan. Matching ignores case, spacing and punctuation, so
// "Blue Cross & Blue Shield of MA" and "BCBS-TX" both match.
func IsBCBS(payerName string) bool {
	norm := normalize(payerName)
	if norm == "" {
		return false
	}
	for _, brand := range bcbsBrands {
		if strings.Contains(norm, brand) {
			return true
		}
	}
	return false
}

// DependsOnRx reports whether any readiness rule reads pharmacy benefit
// fields. None do today; strict minimum-necessary output uses this to drop
// rx data from bundles.
func DependsOnRx() bool {
	return false
}

func normalize(s string) string {
	var b strings.Builder
	for _, c := range strings.ToLower(s) {
		if unicode.IsLetter(c) || unicode.IsDigit(c) {
			b.WriteRune(c)
		}
	}
	return b.String()
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func (r *Result) missing(field, reason string) {
	r.MissingFields = append(r.MissingFields, Finding{Field: field, Reason: reason})
}

func (r *Result) warn(field, reason string) {
	r.Warnings = append(r.Warnings, Finding{Field: field, Reason: reason})
}
