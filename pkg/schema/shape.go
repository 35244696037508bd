// Package schema defines declarative record shapes for structured
// generation results and a generic validator for documents returned by
// the model.
package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// FieldType enumerates the JSON types a field may declare.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeNumber  FieldType = "number"
	TypeInteger FieldType = "integer"
	TypeBoolean FieldType = "boolean"
	TypeArray   FieldType = "array"
	TypeObject  FieldType = "object"
)

// Field describes one named field of a record shape.
type Field struct {
	Name        string
	Type        FieldType
	Required    bool
	Enum        []string // allowed values for string fields
	Description string
}

// Shape is a named, versioned record shape. The version participates in
// cache fingerprints so a shape change never serves stale artifacts.
type Shape struct {
	Name    string
	Version string
	Fields  []Field
}

// ValidationError reports every structural problem found in a document.
type ValidationError struct {
	Shape    string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("document does not match shape %q: %s", e.Shape, strings.Join(e.Problems, "; "))
}

// Validate checks a decoded JSON document against the shape. A document
// passes when every required field is present with the declared type and
// every enum field holds one of its allowed values. Absent optional
// fields are fine; unknown fields are ignored.
func (s Shape) Validate(doc map[string]any) error {
	var problems []string

	for _, f := range s.Fields {
		val, ok := doc[f.Name]
		if !ok || val == nil {
			if f.Required {
				problems = append(problems, fmt.Sprintf("missing required field %q", f.Name))
			}
			continue
		}

		if msg := checkType(f, val); msg != "" {
			problems = append(problems, msg)
			continue
		}

		if len(f.Enum) > 0 {
			sv, _ := val.(string)
			if !contains(f.Enum, sv) {
				problems = append(problems, fmt.Sprintf("field %q: value %q not in allowed set %v", f.Name, sv, f.Enum))
			}
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Shape: s.Name, Problems: problems}
	}
	return nil
}

func checkType(f Field, val any) string {
	switch f.Type {
	case TypeString:
		if _, ok := val.(string); !ok {
			return typeMismatch(f.Name, "string", val)
		}
	case TypeNumber:
		if _, ok := val.(float64); !ok {
			return typeMismatch(f.Name, "number", val)
		}
	case TypeInteger:
		n, ok := val.(float64)
		if !ok || n != math.Trunc(n) {
			return typeMismatch(f.Name, "integer", val)
		}
	case TypeBoolean:
		if _, ok := val.(bool); !ok {
			return typeMismatch(f.Name, "boolean", val)
		}
	case TypeArray:
		if _, ok := val.([]any); !ok {
			return typeMismatch(f.Name, "array", val)
		}
	case TypeObject:
		if _, ok := val.(map[string]any); !ok {
			return typeMismatch(f.Name, "object", val)
		}
	}
	return ""
}

func typeMismatch(name, want string, got any) string {
	return fmt.Sprintf("field %q: expected %s, got %T", name, want, got)
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// Instruction renders the shape as a JSON schema object for embedding in
// the prompt, so the model knows the exact structure to produce.
func (s Shape) Instruction() string {
	props := make(map[string]any, len(s.Fields))
	var required []string

	for _, f := range s.Fields {
		p := map[string]any{"type": string(f.Type)}
		if f.Description != "" {
			p["description"] = f.Description
		}
		if len(f.Enum) > 0 {
			p["enum"] = f.Enum
		}
		props[f.Name] = p
		if f.Required {
			required = append(required, f.Name)
		}
	}

	obj := map[string]any{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		obj["required"] = required
	}

	out, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(out)
}
