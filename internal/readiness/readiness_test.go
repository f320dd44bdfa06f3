package readiness

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qubex-tech/VantageAI-CRM-sub004/pkg/models"
)

func completePatient() *models.Patient {
	return &models.Patient{
		ID:          "p1",
		FirstName:   "Jane",
		LastName:    "Doe",
		DateOfBirth: models.Date{Year: 1984, Month: time.March, Day: 7},
	}
}

func completePolicy() *models.InsurancePolicy {
	return &models.InsurancePolicy{
		ID:                  "pol1",
		PatientID:           "p1",
		PayerNameRaw:        "Aetna",
		MemberID:            "W123456789",
		SubscriberIsPatient: true,
	}
}

func TestCompute_Ready(t *testing.T) {
	r := Compute(completePolicy(), completePatient())

	assert.Equal(t, StatusReady, r.Status)
	assert.Empty(t, r.MissingFields)
	assert.Empty(t, r.Warnings)
}

func TestCompute_ReportsEveryMissingField(t *testing.T) {
	policy := &models.InsurancePolicy{SubscriberIsPatient: false}
	patient := &models.Patient{}

	r := Compute(policy, patient)

	assert.Equal(t, StatusNeedsInfo, r.Status)
	assert.Equal(t, []Finding{
		{FieldPayerNameRaw, ReasonRequired},
		{FieldMemberID, ReasonRequired},
		{FieldSubscriberFirstName, ReasonRequired},
		{FieldSubscriberLastName, ReasonRequired},
		{FieldSubscriberDOB, ReasonRequired},
		{FieldRelationshipToPatient, ReasonRequired},
		{FieldPatientFirstName, ReasonRequired},
		{FieldPatientLastName, ReasonRequired},
		{FieldPatientDOB, ReasonRequired},
	}, r.MissingFields)
}

func TestCompute_NonPatientSubscriberMissingDOB(t *testing.T) {
	policy := completePolicy()
	policy.SubscriberIsPatient = false
	policy.SubscriberFirstName = "John"
	policy.SubscriberLastName = "Doe"
	policy.RelationshipToPatient = "spouse"

	r := Compute(policy, completePatient())

	assert.Equal(t, StatusNeedsInfo, r.Status)
	assert.Equal(t, []Finding{{FieldSubscriberDOB, ReasonRequired}}, r.MissingFields)
}

func TestCompute_BCBSWarningDoesNotBlock(t *testing.T) {
	policy := completePolicy()
	policy.PayerNameRaw = "Blue Cross & Blue Shield of Massachusetts"

	r := Compute(policy, completePatient())

	assert.Equal(t, StatusReady, r.Status)
	assert.Equal(t, []Finding{{FieldBCBSAlphaPrefix, ReasonRecommendedForRouting}}, r.Warnings)

	policy.BCBSAlphaPrefix = "XYZ"
	assert.Empty(t, Compute(policy, completePatient()).Warnings)
}

func TestCompute_SubscriberDOBComparedByCalendarDay(t *testing.T) {
	policy := completePolicy()
	// Same calendar day delivered as a late-evening timestamp in a western zone.
	dob, ok := models.AsDate(time.Date(1984, time.March, 7, 23, 0, 0, 0, time.FixedZone("PST", -8*3600)))
	require.True(t, ok)
	policy.SubscriberDOB = dob

	assert.Empty(t, Compute(policy, completePatient()).Warnings)

	policy.SubscriberDOB, _ = models.AsDate("1984-03-08")
	r := Compute(policy, completePatient())
	assert.Equal(t, StatusReady, r.Status)
	assert.Equal(t, []Finding{{FieldSubscriberDOB, ReasonMismatchWithPatient}}, r.Warnings)
}

func TestCompute_NilInputs(t *testing.T) {
	r := Compute(nil, nil)

	assert.Equal(t, StatusNeedsInfo, r.Status)
	assert.Equal(t, []Finding{
		{FieldInsurancePolicy, ReasonRequired},
		{FieldPatient, ReasonRequired},
	}, r.MissingFields)
}

func TestCompute_Deterministic(t *testing.T) {
	policy := &models.InsurancePolicy{PayerNameRaw: "Anthem BCBS", SubscriberIsPatient: false}
	patient := completePatient()

	first, err := json.Marshal(Compute(policy, patient))
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := json.Marshal(Compute(policy, patient))
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestIsBCBS(t *testing.T) {
	for _, name := range []string{"BCBS-TX", "Anthem Blue Cross", "Highmark Inc.", "blue shield of california"} {
		assert.True(t, IsBCBS(name), name)
	}
	for _, name := range []string{"Aetna", "UnitedHealthcare", "", "Cigna"} {
		assert.False(t, IsBCBS(name), name)
	}
}
