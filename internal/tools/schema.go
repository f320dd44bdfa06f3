package tools

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/qubex-tech/VantageAI-CRM-sub004/pkg/models"
)

// FieldType is the JSON type of an input field.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeBoolean FieldType = "boolean"
)

const (
	// FormatDate marks a string field holding a calendar date.
	FormatDate = "date"
	// FormatZip marks a string field holding a US ZIP or ZIP+4 code.
	FormatZip = "zip"
)

// ZipPattern matches a US ZIP or ZIP+4 code.
const ZipPattern = `^[0-9]{5}(-[0-9]{4})?$`

var zipRe = regexp.MustCompile(ZipPattern)

// Field declares one input field.
type Field struct {
	Name        string
	Type        FieldType
	Format      string
	Required    bool
	Default     any
	Description string
}

// Schema is a tool's input contract: a flat object of typed fields.
// Unknown fields are rejected.
type Schema struct {
	Fields []Field
}

// Validate checks raw against the schema and returns the coerced arguments
// with defaults applied. raw must be nil or a JSON object. Booleans also
// accept the strings "true" and "false".
func (s Schema) Validate(raw any) (Args, []FieldError) {
	var in map[string]any
	switch v := raw.(type) {
	case nil:
		in = map[string]any{}
	case map[string]any:
		in = v
	default:
		return nil, []FieldError{{Field: "input", Message: "must be an object"}}
	}

	var errs []FieldError
	known := make(map[string]bool, len(s.Fields))
	args := make(Args, len(s.Fields))

	for _, f := range s.Fields {
		known[f.Name] = true
		v, present := in[f.Name]
		if !present || v == nil {
			if f.Required {
				errs = append(errs, FieldError{Field: f.Name, Message: "is required"})
			} else if f.Default != nil {
				args[f.Name] = f.Default
			}
			continue
		}

		coerced, msg := f.coerce(v)
		if msg != "" {
			errs = append(errs, FieldError{Field: f.Name, Message: msg})
			continue
		}
		args[f.Name] = coerced
	}

	var unknown []string
	for k := range in {
		if !known[k] {
			unknown = append(unknown, k)
		}
	}
	sort.Strings(unknown)
	for _, k := range unknown {
		errs = append(errs, FieldError{Field: k, Message: "is not allowed"})
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return args, nil
}

func (f Field) coerce(v any) (any, string) {
	switch f.Type {
	case TypeString:
		s, ok := v.(string)
		if !ok {
			return nil, "must be a string"
		}
		s = strings.TrimSpace(s)
		if s == "" {
			if f.Required {
				return nil, "must not be blank"
			}
			if f.Default != nil {
				return f.Default, ""
			}
			return nil, ""
		}
		switch f.Format {
		case FormatDate:
			d, err := models.ParseDate(s)
			if err != nil {
				return nil, "must be a date in YYYY-MM-DD format"
			}
			return d, ""
		case FormatZip:
			if !zipRe.MatchString(s) {
				return nil, "must be a 5-digit ZIP or ZIP+4 code"
			}
		}
		return s, ""
	case TypeBoolean:
		switch b := v.(type) {
		case bool:
			return b, ""
		case string:
			switch strings.ToLower(strings.TrimSpace(b)) {
			case "true":
				return true, ""
			case "false":
				return false, ""
			}
		}
		return nil, "must be a boolean"
	}
	return nil, fmt.Sprintf("unsupported type %q", f.Type)
}

// JSONSchema renders the schema as a JSON Schema object.
func (s Schema) JSONSchema() map[string]any {
	props := make(map[string]any, len(s.Fields))
	required := []string{}
	for _, f := range s.Fields {
		p := map[string]any{"type": string(f.Type)}
		switch f.Format {
		case "":
		case FormatZip:
			// not a JSON Schema format name
			p["pattern"] = ZipPattern
		default:
			p["format"] = f.Format
		}
		if f.Description != "" {
			p["description"] = f.Description
		}
		if f.Default != nil {
			p["default"] = f.Default
		}
		props[f.Name] = p
		if f.Required {
			required = append(required, f.Name)
		}
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}

// Args are validated tool arguments.
type Args map[string]any

// String returns the named string argument, or "".
func (a Args) String(name string) string {
	s, _ := a[name].(string)
	return s
}

// Bool returns the named boolean argument, or false.
func (a Args) Bool(name string) bool {
	b, _ := a[name].(bool)
	return b
}

// Date returns the named date argument.
func (a Args) Date(name string) models.Date {
	d, _ := a[name].(models.Date)
	return d
}

// Output schema helpers. Output shapes are documentation for clients; the
// handlers build them with typed structs.

func object(props map[string]any, required ...string) map[string]any {
	if required == nil {
		required = []string{}
	}
	return map[string]any{"type": "object", "properties": props, "required": required}
}

func nullable(schema map[string]any) map[string]any {
	out := make(map[string]any, len(schema))
	for k, v := range schema {
		out[k] = v
	}
	out["type"] = []string{schema["type"].(string), "null"}
	return out
}

func arrayOf(items map[string]any) map[string]any {
	return map[string]any{"type": "array", "items": items}
}

func str(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func boolean(desc string) map[string]any {
	return map[string]any{"type": "boolean", "description": desc}
}

func number(desc string) map[string]any {
	return map[string]any{"type": "number", "description": desc}
}
