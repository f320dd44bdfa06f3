package tools

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qubex-tech/VantageAI-CRM-sub004/pkg/models"
)

var testSchema = Schema{Fields: []Field{
	{Name: "patient_id", Type: TypeString, Required: true},
	{Name: "dob", Type: TypeString, Format: FormatDate},
	{Name: "include_address", Type: TypeBoolean, Default: false},
	{Name: "strict", Type: TypeBoolean, Default: true},
}}

func TestSchemaValidate_AppliesDefaultsAndCoerces(t *testing.T) {
	args, errs := testSchema.Validate(map[string]any{
		"patient_id":      "  p1 ",
		"dob":             "1984-03-07",
		"include_address": "TRUE",
	})
	require.Nil(t, errs)

	assert.Equal(t, "p1", args.String("patient_id"))
	assert.Equal(t, models.Date{Year: 1984, Month: time.March, Day: 7}, args.Date("dob"))
	assert.True(t, args.Bool("include_address"))
	assert.True(t, args.Bool("strict"))
}

func TestSchemaValidate_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  []FieldError
	}{
		{
			name:  "missing required",
			input: map[string]any{},
			want:  []FieldError{{Field: "patient_id", Message: "is required"}},
		},
		{
			name:  "null counts as missing",
			input: map[string]any{"patient_id": nil},
			want:  []FieldError{{Field: "patient_id", Message: "is required"}},
		},
		{
			name:  "blank required string",
			input: map[string]any{"patient_id": "  "},
			want:  []FieldError{{Field: "patient_id", Message: "must not be blank"}},
		},
		{
			name:  "wrong types",
			input: map[string]any{"patient_id": 42.0, "include_address": "yes"},
			want: []FieldError{
				{Field: "patient_id", Message: "must be a string"},
				{Field: "include_address", Message: "must be a boolean"},
			},
		},
		{
			name:  "bad date",
			input: map[string]any{"patient_id": "p1", "dob": "03/07/1984"},
			want:  []FieldError{{Field: "dob", Message: "must be a date in YYYY-MM-DD format"}},
		},
		{
			name:  "unknown fields sorted",
			input: map[string]any{"patient_id": "p1", "zz": 1, "aa": 2},
			want: []FieldError{
				{Field: "aa", Message: "is not allowed"},
				{Field: "zz", Message: "is not allowed"},
			},
		},
		{
			name:  "not an object",
			input: []any{"p1"},
			want:  []FieldError{{Field: "input", Message: "must be an object"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args, errs := testSchema.Validate(tt.input)
			assert.Nil(t, args)
			assert.Equal(t, tt.want, errs)
		})
	}
}

func TestSchemaValidate_NilInput(t *testing.T) {
	s := Schema{Fields: []Field{{Name: "flag", Type: TypeBoolean, Default: false}}}

	args, errs := s.Validate(nil)
	require.Nil(t, errs)
	assert.False(t, args.Bool("flag"))
}

func TestSchemaJSONSchema(t *testing.T) {
	js := testSchema.JSONSchema()

	assert.Equal(t, "object", js["type"])
	assert.Equal(t, false, js["additionalProperties"])
	assert.Equal(t, []string{"patient_id"}, js["required"])

	props := js["properties"].(map[string]any)
	assert.Len(t, props, 4)
	assert.Equal(t, map[string]any{"type": "string", "format": "date"}, props["dob"])
	assert.Equal(t, map[string]any{"type": "boolean", "default": true}, props["strict"])
}

func TestSchemaValidate_Zip(t *testing.T) {
	s := Schema{Fields: []Field{{Name: "zip", Type: TypeString, Format: FormatZip}}}

	for _, ok := range []string{"02108", "02108-1234", " 60611 "} {
		args, errs := s.Validate(map[string]any{"zip": ok})
		require.Nil(t, errs, ok)
		assert.Equal(t, strings.TrimSpace(ok), args.String("zip"))
	}
	for _, bad := range []string{"9", "021", "0210x", "021081234", "02108-12"} {
		_, errs := s.Validate(map[string]any{"zip": bad})
		assert.Equal(t, []FieldError{{Field: "zip", Message: "must be a 5-digit ZIP or ZIP+4 code"}}, errs, bad)
	}

	props := s.JSONSchema()["properties"].(map[string]any)
	assert.Equal(t, map[string]any{"type": "string", "pattern": ZipPattern}, props["zip"])
}
