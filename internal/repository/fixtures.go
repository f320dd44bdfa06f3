package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/qubex-tech/VantageAI-CRM-sub004/pkg/models"
)

// DemoPracticeID is the practice that owns the demo fixtures.
const DemoPracticeID = "practice-demo"

// Fixtures is a set of records to load into a store.
type Fixtures struct {
	Patients []*models.Patient
	Policies []*models.InsurancePolicy
}

// DemoFixtures returns the development data set:
//   - p1 Jane Doe, one complete Aetna policy (pol1)
//   - p2 Maria Garcia, a BCBS policy held by her spouse with no subscriber DOB
//     on file (pol2) and an older secondary policy (pol3)
//   - p3 Jon Doe, a near-duplicate of p1 for demographic search
func DemoFixtures() Fixtures {
	base := time.Date(2024, time.January, 15, 9, 0, 0, 0, time.UTC)
	dob := models.Date{Year: 1984, Month: time.March, Day: 7}

	return Fixtures{
		Patients: []*models.Patient{
			{
				ID: "p1", PracticeID: DemoPracticeID,
				FirstName: "Jane", LastName: "Doe", DateOfBirth: dob,
				Contact: models.ContactInfo{Phone: "617-555-0142", Email: "jane.doe@example.com"},
				Address: models.Address{Line1: "12 Beacon St", City: "Boston", State: "MA", ZipCode: "02108"},
				CreatedAt: base, UpdatedAt: base,
			},
			{
				ID: "p2", PracticeID: DemoPracticeID,
				FirstName: "Maria", LastName: "Garcia",
				DateOfBirth: models.Date{Year: 1990, Month: time.July, Day: 21},
				Contact:     models.ContactInfo{Phone: "312-555-0199", Email: "mgarcia@example.org"},
				Address:     models.Address{Line1: "400 Lake Shore Dr", Line2: "Apt 9", City: "Chicago", State: "IL", ZipCode: "60611"},
				CreatedAt:   base, UpdatedAt: base,
			},
			{
				ID: "p3", PracticeID: DemoPracticeID,
				FirstName: "Jon", LastName: "Doe", DateOfBirth: dob,
				Contact: models.ContactInfo{Phone: "617-555-0177"},
				Address: models.Address{City: "Cambridge", State: "MA", ZipCode: "02139"},
				CreatedAt: base, UpdatedAt: base,
			},
		},
		Policies: []*models.InsurancePolicy{
			{
				ID: "pol1", PatientID: "p1", PracticeID: DemoPracticeID,
				PayerNameRaw: "Aetna", PlanName: "Aetna Choice POS II",
				MemberID: "ABC123456789", GroupNumber: "GRP-0042", IsPrimary: true,
				SubscriberIsPatient: true, SubscriberDOB: dob,
				RxBin: "610502", RxPCN: "ADV", RxGroup: "RX0042",
				CardFrontRef: "cards/p1/pol1-front.jpg", CardBackRef: "cards/p1/pol1-back.jpg",
				CreatedAt: base, UpdatedAt: base,
			},
			{
				ID: "pol2", PatientID: "p2", PracticeID: DemoPracticeID,
				PayerNameRaw: "Blue Cross Blue Shield of Illinois", PlanName: "BlueAdvantage HMO",
				MemberID: "XOF998877665", GroupNumber: "B12345", IsPrimary: true,
				SubscriberIsPatient: false,
				SubscriberFirstName: "Luis", SubscriberLastName: "Garcia",
				RelationshipToPatient: "spouse", BCBSAlphaPrefix: "XOF",
				CreatedAt: base.Add(48 * time.Hour), UpdatedAt: base.Add(48 * time.Hour),
			},
			{
				ID: "pol3", PatientID: "p2", PracticeID: DemoPracticeID,
				PayerNameRaw: "UnitedHealthcare", PlanName: "Choice Plus",
				MemberID: "UHC55501234", SubscriberIsPatient: true,
				CreatedAt: base, UpdatedAt: base,
			},
		},
	}
}

// Load writes the fixtures through s. Patients are written before policies.
func (f Fixtures) Load(ctx context.Context, s Seeder) error {
	for _, p := range f.Patients {
		if err := s.UpsertPatient(ctx, p); err != nil {
			return fmt.Errorf("seed patient %s: %w", p.ID, err)
		}
	}
	for _, p := range f.Policies {
		if err := s.UpsertPolicy(ctx, p); err != nil {
			return fmt.Errorf("seed policy %s: %w", p.ID, err)
		}
	}
	return nil
}
