package tools

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/qubex-tech/VantageAI-CRM-sub004/internal/auth"
	"github.com/qubex-tech/VantageAI-CRM-sub004/internal/masking"
	"github.com/qubex-tech/VantageAI-CRM-sub004/internal/readiness"
	"github.com/qubex-tech/VantageAI-CRM-sub004/internal/services"
	"github.com/qubex-tech/VantageAI-CRM-sub004/pkg/models"
)

var (
	patientSchema = object(map[string]any{
		"id":           str("patient id"),
		"first_name":   str("first name"),
		"last_name":    str("last name"),
		"dob":          str("date of birth, YYYY-MM-DD, unmasked callers only"),
		"dob_masked":   str("birth year"),
		"phone":        str("phone, unmasked callers only"),
		"phone_masked": str("phone, last 4 digits"),
		"email":        str("email, unmasked callers only"),
		"email_masked": str("email with the local part masked"),
		"address": object(map[string]any{
			"line1":      str("street, unmasked callers only"),
			"line2":      str("street, unmasked callers only"),
			"city":       str("city"),
			"state":      str("state"),
			"zip":        str("zip, unmasked callers only"),
			"zip_masked": str("three-digit zip prefix"),
		}),
	}, "id", "first_name", "last_name")

	policyDetailSchema = object(map[string]any{
		"id":                  str("policy id"),
		"patient_id":          str("patient id"),
		"payer_name":          str("payer name as entered"),
		"plan_name":           str("plan name; dropped in strict mode"),
		"member_id":           str("member id, unmasked callers only"),
		"member_id_masked":    str("member id, last 4 characters"),
		"group_number":        str("group number, unmasked callers only"),
		"group_number_masked": str("group number, last 4 characters; dropped in strict mode"),
		"is_primary":          boolean("whether this is the patient's primary policy"),
		"subscriber": object(map[string]any{
			"is_patient":   boolean("subscriber is the patient"),
			"first_name":   str("subscriber first name"),
			"last_name":    str("subscriber last name"),
			"dob":          str("subscriber date of birth, unmasked callers only"),
			"dob_masked":   str("subscriber birth year"),
			"relationship": str("relationship to patient"),
		}, "is_patient"),
		"bcbs_alpha_prefix": str("BCBS alpha prefix"),
		"rx": object(map[string]any{
			"bin":   str("rx BIN"),
			"pcn":   str("rx PCN"),
			"group": str("rx group"),
		}),
		"card_refs": object(map[string]any{
			"front": str("front card image reference"),
			"back":  str("back card image reference"),
		}),
	}, "id", "patient_id", "payer_name", "is_primary", "subscriber")

	findingSchema = object(map[string]any{
		"field":  str("field name"),
		"reason": str("required, recommended-for-routing or mismatch-with-patient"),
	}, "field", "reason")

	readinessSchema = object(map[string]any{
		"status":         str("READY or NEEDS_INFO"),
		"missing_fields": arrayOf(findingSchema),
		"warnings":       arrayOf(findingSchema),
	}, "status", "missing_fields", "warnings")
)

// get_patient_identity

type patientIdentityOutput struct {
	Patient *patientView `json:"patient"`
}

func (h *handlers) patientIdentityTool() *Tool {
	return &Tool{
		Name:        ToolGetPatientIdentity,
		Description: "Returns a patient's identity fields, masked unless the caller is authorized for unmasked output. Never returns insurance data.",
		Input: Schema{Fields: []Field{
			{Name: "patient_id", Type: TypeString, Required: true, Description: "patient id"},
			{Name: "include_address", Type: TypeBoolean, Default: false, Description: "include address fields"},
		}},
		OutputSchema: object(map[string]any{"patient": nullable(patientSchema)}, "patient"),
		Handler:      h.getPatientIdentity,
	}
}

func (h *handlers) getPatientIdentity(ctx context.Context, args Args, actor *auth.ActorContext) (Result, error) {
	patientID := args.String("patient_id")
	res := Result{PatientID: patientID}

	p, err := h.svc.Patient(ctx, actor.PracticeID, patientID)
	if err != nil {
		return res, err
	}
	out := patientIdentityOutput{}
	if p != nil {
		out.Patient = newPatientView(p, patientOptions{
			unmasked:       actor.AllowUnmasked,
			includeAddress: args.Bool("include_address"),
		})
	}
	res.Output = out
	return res, nil
}

// list_insurance_policies

type listPoliciesOutput struct {
	PatientID string              `json:"patient_id"`
	Policies  []policySummaryView `json:"policies"`
}

func (h *handlers) listPoliciesTool() *Tool {
	return &Tool{
		Name:        ToolListInsurancePolicies,
		Description: "Lists a patient's active insurance policies, primary first, with masked member ids.",
		Input: Schema{Fields: []Field{
			{Name: "patient_id", Type: TypeString, Required: true, Description: "patient id"},
		}},
		OutputSchema: object(map[string]any{
			"patient_id": str("patient id"),
			"policies": arrayOf(object(map[string]any{
				"id":               str("policy id"),
				"payer_name":       str("payer name as entered"),
				"plan_name":        str("plan name"),
				"member_id_masked": str("member id, last 4 characters"),
				"is_primary":       boolean("whether this is the primary policy"),
			}, "id", "payer_name", "member_id_masked", "is_primary")),
		}, "patient_id", "policies"),
		Handler: h.listInsurancePolicies,
	}
}

func (h *handlers) listInsurancePolicies(ctx context.Context, args Args, actor *auth.ActorContext) (Result, error) {
	patientID := args.String("patient_id")
	res := Result{PatientID: patientID}

	policies, err := h.svc.OrderedPolicies(ctx, actor.PracticeID, patientID)
	if err != nil {
		return res, err
	}
	out := listPoliciesOutput{PatientID: patientID, Policies: make([]policySummaryView, 0, len(policies))}
	for i, p := range policies {
		out.Policies = append(out.Policies, newPolicySummaryView(p, i == 0))
	}
	res.Output = out
	return res, nil
}

// get_insurance_policy_details

type policyDetailsOutput struct {
	Policy *policyDetailView `json:"policy"`
}

func (h *handlers) policyDetailsTool() *Tool {
	return &Tool{
		Name:        ToolGetInsurancePolicyDetails,
		Description: "Returns one policy in detail. Member id and group number are masked unless the caller is authorized for unmasked output. Rx fields and card image references are included only on request.",
		Input: Schema{Fields: []Field{
			{Name: "policy_id", Type: TypeString, Required: true, Description: "policy id"},
			{Name: "include_rx", Type: TypeBoolean, Default: false, Description: "include pharmacy benefit fields"},
			{Name: "include_card_refs", Type: TypeBoolean, Default: false, Description: "include card image references"},
		}},
		OutputSchema: object(map[string]any{"policy": nullable(policyDetailSchema)}, "policy"),
		Handler:      h.getInsurancePolicyDetails,
	}
}

func (h *handlers) getInsurancePolicyDetails(ctx context.Context, args Args, actor *auth.ActorContext) (Result, error) {
	policyID := args.String("policy_id")
	res := Result{PolicyID: policyID, Output: policyDetailsOutput{}}

	p, err := h.svc.Policy(ctx, actor.PracticeID, policyID)
	if err != nil || p == nil {
		return res, err
	}
	res.PatientID = p.PatientID

	primary, err := h.svc.PrimaryPolicy(ctx, actor.PracticeID, p.PatientID)
	if err != nil {
		return res, err
	}
	res.Output = policyDetailsOutput{Policy: newPolicyDetailView(p, detailOptions{
		isPrimary:       primary != nil && primary.ID == p.ID,
		unmasked:        actor.AllowUnmasked,
		includeRx:       args.Bool("include_rx"),
		includeCardRefs: args.Bool("include_card_refs"),
	})}
	return res, nil
}

// get_verification_bundle

type bundleOutput struct {
	Patient   *patientView      `json:"patient"`
	Insurance *policyDetailView `json:"insurance"`
	Readiness *readiness.Result `json:"readiness"`
}

func (h *handlers) verificationBundleTool() *Tool {
	return &Tool{
		Name:        ToolGetVerificationBundle,
		Description: "Returns patient identity, the selected or primary policy, and a readiness verdict in one call. In strict minimum-necessary mode, optional fields not needed for the verdict are dropped.",
		Input: Schema{Fields: []Field{
			{Name: "patient_id", Type: TypeString, Required: true, Description: "patient id"},
			{Name: "policy_id", Type: TypeString, Description: "policy to verify; defaults to the primary policy"},
			{Name: "include_address", Type: TypeBoolean, Default: false, Description: "include address fields; ignored in strict mode"},
			{Name: "include_rx", Type: TypeBoolean, Default: false, Description: "include pharmacy benefit fields; ignored in strict mode"},
			{Name: "strict_minimum_necessary", Type: TypeBoolean, Default: true, Description: "drop optional fields not needed for the readiness verdict"},
		}},
		OutputSchema: object(map[string]any{
			"patient":   nullable(patientSchema),
			"insurance": nullable(policyDetailSchema),
			"readiness": nullable(readinessSchema),
		}, "patient", "insurance", "readiness"),
		Handler: h.getVerificationBundle,
	}
}

func (h *handlers) getVerificationBundle(ctx context.Context, args Args, actor *auth.ActorContext) (Result, error) {
	patientID := args.String("patient_id")
	policyID := args.String("policy_id")
	res := Result{PatientID: patientID, Output: bundleOutput{}}

	var (
		patient  *models.Patient
		policies []*models.InsurancePolicy
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		patient, err = h.svc.Patient(gctx, actor.PracticeID, patientID)
		return err
	})
	g.Go(func() error {
		var err error
		policies, err = h.svc.OrderedPolicies(gctx, actor.PracticeID, patientID)
		return err
	})
	if err := g.Wait(); err != nil {
		return res, err
	}
	if patient == nil {
		return res, nil
	}

	// policies arrive primary first; a policy_id of another patient is not found
	var selected *models.InsurancePolicy
	isPrimary := false
	for i, p := range policies {
		if policyID == "" || p.ID == policyID {
			selected, isPrimary = p, i == 0
			break
		}
	}

	strict := args.Bool("strict_minimum_necessary")
	includeAddress := args.Bool("include_address") && !strict
	includeRx := args.Bool("include_rx") && (!strict || readiness.DependsOnRx())

	verdict := readiness.Compute(selected, patient)
	out := bundleOutput{
		Patient: newPatientView(patient, patientOptions{
			unmasked:       actor.AllowUnmasked,
			includeAddress: includeAddress,
			strict:         strict,
		}),
		Readiness: &verdict,
	}
	if selected != nil {
		res.PolicyID = selected.ID
		out.Insurance = newPolicyDetailView(selected, detailOptions{
			isPrimary: isPrimary,
			unmasked:  actor.AllowUnmasked,
			includeRx: includeRx,
			strict:    strict,
		})
	} else if policyID != "" {
		res.PolicyID = policyID
	}
	res.Output = out
	return res, nil
}

// search_patient_by_demographics

type searchOutput struct {
	Candidates []candidateView `json:"candidates"`
}

func (h *handlers) searchPatientTool() *Tool {
	return &Tool{
		Name:        ToolSearchPatient,
		Description: "Resolves a patient from first name, last name and date of birth, all of which must match. Returns candidates with a confidence score and masked display fields only.",
		Input: Schema{Fields: []Field{
			{Name: "first_name", Type: TypeString, Required: true, Description: "first name"},
			{Name: "last_name", Type: TypeString, Required: true, Description: "last name"},
			{Name: "dob", Type: TypeString, Format: FormatDate, Required: true, Description: "date of birth, YYYY-MM-DD"},
			{Name: "zip", Type: TypeString, Format: FormatZip, Description: "optional ZIP or ZIP+4 filter; must match the patient's first five digits"},
		}},
		OutputSchema: object(map[string]any{
			"candidates": arrayOf(object(map[string]any{
				"patient_id":   str("patient id"),
				"display_name": str("first name and last initial"),
				"confidence":   number("match confidence between 0.85 and 1"),
				"dob_masked":   str("birth year"),
				"zip_masked":   str("three-digit zip prefix"),
			}, "patient_id", "display_name", "confidence")),
		}, "candidates"),
		Handler: h.searchPatientByDemographics,
	}
}

func (h *handlers) searchPatientByDemographics(ctx context.Context, args Args, actor *auth.ActorContext) (Result, error) {
	res := Result{Output: searchOutput{Candidates: []candidateView{}}}

	found, err := h.svc.SearchPatients(ctx, actor.PracticeID, services.Demographics{
		FirstName: args.String("first_name"),
		LastName:  args.String("last_name"),
		DOB:       args.Date("dob"),
		ZipCode:   args.String("zip"),
	})
	if err != nil {
		return res, err
	}

	out := searchOutput{Candidates: make([]candidateView, 0, len(found))}
	for _, c := range found {
		out.Candidates = append(out.Candidates, candidateView{
			PatientID:   c.Patient.ID,
			DisplayName: masking.DisplayName(c.Patient.FirstName, c.Patient.LastName),
			Confidence:  c.Confidence,
			DOBMasked:   masking.MaskDate(c.Patient.DateOfBirth),
			ZipMasked:   masking.MaskZip(c.Patient.Address.ZipCode),
		})
	}
	if len(found) == 1 {
		res.PatientID = found[0].Patient.ID
	}
	res.Output = out
	return res, nil
}
