package tools

import (
	"github.com/qubex-tech/VantageAI-CRM-sub004/internal/masking"
	"github.com/qubex-tech/VantageAI-CRM-sub004/pkg/models"
)

// Response views. Each builder decides per field whether the raw value or a
// masked form is emitted; there is no generic masking pass.

type patientView struct {
	ID          string       `json:"id"`
	FirstName   string       `json:"first_name"`
	LastName    string       `json:"last_name"`
	DOB         *models.Date `json:"dob,omitempty"`
	DOBMasked   string       `json:"dob_masked,omitempty"`
	Phone       string       `json:"phone,omitempty"`
	PhoneMasked string       `json:"phone_masked,omitempty"`
	Email       string       `json:"email,omitempty"`
	EmailMasked string       `json:"email_masked,omitempty"`
	Address     *addressView `json:"address,omitempty"`
}

type addressView struct {
	Line1     string `json:"line1,omitempty"`
	Line2     string `json:"line2,omitempty"`
	City      string `json:"city,omitempty"`
	State     string `json:"state,omitempty"`
	Zip       string `json:"zip,omitempty"`
	ZipMasked string `json:"zip_masked,omitempty"`
}

type patientOptions struct {
	unmasked       bool
	includeAddress bool
	// strict keeps only name and DOB, the fields readiness reads
	strict bool
}

func newPatientView(p *models.Patient, opts patientOptions) *patientView {
	v := &patientView{
		ID:        p.ID,
		FirstName: p.FirstName,
		LastName:  p.LastName,
	}
	if opts.unmasked {
		v.DOB = optionalDate(p.DateOfBirth)
	} else {
		v.DOBMasked = masking.MaskDate(p.DateOfBirth)
	}
	if opts.strict {
		return v
	}

	if opts.unmasked {
		v.Phone = p.Contact.Phone
		v.Email = p.Contact.Email
	} else {
		v.PhoneMasked = masking.MaskLast4(p.Contact.Phone)
		v.EmailMasked = masking.MaskEmail(p.Contact.Email)
	}
	if opts.includeAddress {
		v.Address = newAddressView(p.Address, opts.unmasked)
	}
	return v
}

func optionalDate(d models.Date) *models.Date {
	if d.IsZero() {
		return nil
	}
	return &d
}

func newAddressView(a models.Address, unmasked bool) *addressView {
	if unmasked {
		return &addressView{
			Line1: a.Line1,
			Line2: a.Line2,
			City:  a.City,
			State: a.State,
			Zip:   a.ZipCode,
		}
	}
	// street lines are never disclosed masked
	return &addressView{
		City:      a.City,
		State:     a.State,
		ZipMasked: masking.MaskZip(a.ZipCode),
	}
}

type policySummaryView struct {
	ID             string `json:"id"`
	PayerName      string `json:"payer_name"`
	PlanName       string `json:"plan_name,omitempty"`
	MemberIDMasked string `json:"member_id_masked"`
	IsPrimary      bool   `json:"is_primary"`
}

// Summaries are always masked, whatever the caller is authorized for.
func newPolicySummaryView(p *models.InsurancePolicy, isPrimary bool) policySummaryView {
	return policySummaryView{
		ID:             p.ID,
		PayerName:      p.PayerNameRaw,
		PlanName:       p.PlanName,
		MemberIDMasked: masking.MaskLast4(p.MemberID),
		IsPrimary:      isPrimary,
	}
}

type policyDetailView struct {
	ID                string         `json:"id"`
	PatientID         string         `json:"patient_id"`
	PayerName         string         `json:"payer_name"`
	PlanName          string         `json:"plan_name,omitempty"`
	MemberID          string         `json:"member_id,omitempty"`
	MemberIDMasked    string         `json:"member_id_masked,omitempty"`
	GroupNumber       string         `json:"group_number,omitempty"`
	GroupNumberMasked string         `json:"group_number_masked,omitempty"`
	IsPrimary         bool           `json:"is_primary"`
	Subscriber        subscriberView `json:"subscriber"`
	BCBSAlphaPrefix   string         `json:"bcbs_alpha_prefix,omitempty"`
	Rx                *rxView        `json:"rx,omitempty"`
	CardRefs          *cardRefsView  `json:"card_refs,omitempty"`
}

type subscriberView struct {
	IsPatient    bool         `json:"is_patient"`
	FirstName    string       `json:"first_name,omitempty"`
	LastName     string       `json:"last_name,omitempty"`
	DOB          *models.Date `json:"dob,omitempty"`
	DOBMasked    string       `json:"dob_masked,omitempty"`
	Relationship string       `json:"relationship,omitempty"`
}

type rxView struct {
	Bin   string `json:"bin,omitempty"`
	PCN   string `json:"pcn,omitempty"`
	Group string `json:"group,omitempty"`
}

// cardRefsView carries storage references only, never image bytes.
type cardRefsView struct {
	Front string `json:"front,omitempty"`
	Back  string `json:"back,omitempty"`
}

type detailOptions struct {
	isPrimary       bool
	unmasked        bool
	includeRx       bool
	includeCardRefs bool
	// strict drops plan and group, which no readiness rule reads
	strict bool
}

func newPolicyDetailView(p *models.InsurancePolicy, opts detailOptions) *policyDetailView {
	v := &policyDetailView{
		ID:              p.ID,
		PatientID:       p.PatientID,
		PayerName:       p.PayerNameRaw,
		IsPrimary:       opts.isPrimary,
		BCBSAlphaPrefix: p.BCBSAlphaPrefix,
		Subscriber: subscriberView{
			IsPatient:    p.SubscriberIsPatient,
			FirstName:    p.SubscriberFirstName,
			LastName:     p.SubscriberLastName,
			Relationship: p.RelationshipToPatient,
		},
	}

	if opts.unmasked {
		v.MemberID = p.MemberID
		v.Subscriber.DOB = optionalDate(p.SubscriberDOB)
	} else {
		v.MemberIDMasked = masking.MaskLast4(p.MemberID)
		v.Subscriber.DOBMasked = masking.MaskDate(p.SubscriberDOB)
	}
	// rx fields are omitted rather than masked; the caller decides
	// whether strict output still needs them
	if opts.includeRx && (p.RxBin != "" || p.RxPCN != "" || p.RxGroup != "") {
		v.Rx = &rxView{Bin: p.RxBin, PCN: p.RxPCN, Group: p.RxGroup}
	}
	if opts.strict {
		return v
	}

	v.PlanName = p.PlanName
	if opts.unmasked {
		v.GroupNumber = p.GroupNumber
	} else {
		v.GroupNumberMasked = masking.MaskLast4(p.GroupNumber)
	}

	if opts.includeCardRefs && (p.CardFrontRef != "" || p.CardBackRef != "") {
		v.CardRefs = &cardRefsView{Front: p.CardFrontRef, Back: p.CardBackRef}
	}
	return v
}

type candidateView struct {
	PatientID   string  `json:"patient_id"`
	DisplayName string  `json:"display_name"`
	Confidence  float64 `json:"confidence"`
	DOBMasked   string  `json:"dob_masked,omitempty"`
	ZipMasked   string  `json:"zip_masked,omitempty"`
}
