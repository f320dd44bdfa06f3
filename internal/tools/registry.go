// Package tools holds the gateway's tool registry and the dispatcher that
// validates, runs and audits each invocation.
package tools

import (
	"context"

	"github.com/qubex-tech/VantageAI-CRM-sub004/internal/auth"
	"github.com/qubex-tech/VantageAI-CRM-sub004/internal/services"
)

// Tool names.
const (
	ToolGetPatientIdentity        = "get_patient_identity"
	ToolListInsurancePolicies     = "list_insurance_policies"
	ToolGetInsurancePolicyDetails = "get_insurance_policy_details"
	ToolGetVerificationBundle     = "get_verification_bundle"
	ToolSearchPatient             = "search_patient_by_demographics"
)

// Result is a handler's output plus the record identifiers it touched,
// which the dispatcher copies into the audit row.
type Result struct {
	Output    any
	PatientID string
	PolicyID  string
}

// HandlerFunc runs a tool. Returning a *Error reports a tool-level failure;
// any other error is treated as an internal failure.
type HandlerFunc func(ctx context.Context, args Args, actor *auth.ActorContext) (Result, error)

// Tool is one registry entry.
type Tool struct {
	Name         string
	Description  string
	Input        Schema
	OutputSchema map[string]any
	Handler      HandlerFunc
}

// Registry is the immutable table of tools, built once at startup.
type Registry struct {
	tools  []*Tool
	byName map[string]*Tool
}

// NewRegistry builds the registry of the five verification tools.
func NewRegistry(svc *services.VerificationService) *Registry {
	h := &handlers{svc: svc}
	return newRegistry(
		h.patientIdentityTool(),
		h.listPoliciesTool(),
		h.policyDetailsTool(),
		h.verificationBundleTool(),
		h.searchPatientTool(),
	)
}

func newRegistry(tools ...*Tool) *Registry {
	r := &Registry{byName: make(map[string]*Tool, len(tools))}
	for _, t := range tools {
		r.tools = append(r.tools, t)
		r.byName[t.Name] = t
	}
	return r
}

// Lookup returns the named tool.
func (r *Registry) Lookup(name string) (*Tool, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// Tools returns the tools in registration order.
func (r *Registry) Tools() []*Tool {
	return append([]*Tool(nil), r.tools...)
}

// Descriptor is the introspection view of a tool.
type Descriptor struct {
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	InputSchema  map[string]any `json:"input_schema"`
	OutputSchema map[string]any `json:"output_schema"`
}

// Describe returns descriptors for every tool in registration order.
func (r *Registry) Describe() []Descriptor {
	out := make([]Descriptor, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, Descriptor{
			Name:         t.Name,
			Description:  t.Description,
			InputSchema:  t.Input.JSONSchema(),
			OutputSchema: t.OutputSchema,
		})
	}
	return out
}

type handlers struct {
	svc *services.VerificationService
}
