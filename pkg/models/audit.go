package models

import (
	"time"
)

// AuditLogEntry records what a tool invocation disclosed. FieldsReturned holds
// structural paths into the response (e.g. "insurance.member_id_masked"),
// never the values themselves. Entries are append-only.
type AuditLogEntry struct {
	ID             string    `json:"id" db:"id"`
	RequestID      string    `json:"request_id" db:"request_id"`
	ActorID        string    `json:"actor_id" db:"actor_id"`
	ActorType      ActorType `json:"actor_type" db:"actor_type"`
	Purpose        string    `json:"purpose" db:"purpose"`
	PracticeID     string    `json:"practice_id,omitempty" db:"practice_id"`
	PatientID      *string   `json:"patient_id,omitempty" db:"patient_id"`
	PolicyID       *string   `json:"policy_id,omitempty" db:"policy_id"`
	ToolName       string    `json:"tool_name" db:"tool_name"`
	FieldsReturned []string  `json:"fields_returned" db:"fields_returned_json"`
	Unmasked       bool      `json:"unmasked" db:"unmasked"`
	ErrorCode      string    `json:"error_code,omitempty" db:"error_code"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}
