package schema

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func testShape() Shape {
	return Shape{
		Name:    "drug-interaction",
		Version: "1",
		Fields: []Field{
			{Name: "summary", Type: TypeString, Required: true},
			{Name: "severity", Type: TypeString, Required: true, Enum: []string{"minor", "moderate", "major"}},
			{Name: "mechanism", Type: TypeString},
			{Name: "references", Type: TypeArray},
			{Name: "confidence", Type: TypeNumber, Required: true},
		},
	}
}

func TestValidateAccepts(t *testing.T) {
	s := testShape()
	doc := map[string]any{
		"summary":    "aspirin + warfarin increases bleeding risk",
		"severity":   "major",
		"confidence": 0.9,
	}
	if err := s.Validate(doc); err != nil {
		t.Fatalf("expected valid document, got %v", err)
	}
}

func TestValidateMissingRequired(t *testing.T) {
	s := testShape()
	doc := map[string]any{
		"summary":    "text",
		"confidence": 0.5,
	}
	err := s.Validate(doc)
	if err == nil {
		t.Fatal("expected error for missing required field")
	}
	if !strings.Contains(err.Error(), "severity") {
		t.Errorf("error should name the missing field: %v", err)
	}
}

func TestValidateEnumOutsideSet(t *testing.T) {
	s := testShape()
	doc := map[string]any{
		"summary":    "text",
		"severity":   "catastrophic",
		"confidence": 0.5,
	}
	err := s.Validate(doc)
	if err == nil {
		t.Fatal("expected error for enum value outside declared set")
	}
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if len(ve.Problems) != 1 {
		t.Errorf("expected 1 problem, got %d: %v", len(ve.Problems), ve.Problems)
	}
}

func TestValidateTypeMismatch(t *testing.T) {
	s := testShape()
	doc := map[string]any{
		"summary":    42,
		"severity":   "minor",
		"confidence": "high",
	}
	err := s.Validate(doc)
	if err == nil {
		t.Fatal("expected error for type mismatches")
	}
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if len(ve.Problems) != 2 {
		t.Errorf("expected 2 problems, got %d: %v", len(ve.Problems), ve.Problems)
	}
}

func TestValidateCollectsAllProblems(t *testing.T) {
	s := testShape()
	err := s.Validate(map[string]any{})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if len(ve.Problems) != 3 {
		t.Errorf("expected 3 missing-field problems, got %v", ve.Problems)
	}
}

func TestValidateIntegerRejectsFraction(t *testing.T) {
	s := Shape{Name: "n", Fields: []Field{{Name: "count", Type: TypeInteger, Required: true}}}
	if err := s.Validate(map[string]any{"count": 3.0}); err != nil {
		t.Errorf("whole number should pass integer check: %v", err)
	}
	if err := s.Validate(map[string]any{"count": 3.5}); err == nil {
		t.Error("fractional number should fail integer check")
	}
}

func TestInstruction(t *testing.T) {
	s := testShape()
	instr := s.Instruction()

	var obj map[string]any
	if err := json.Unmarshal([]byte(instr), &obj); err != nil {
		t.Fatalf("instruction is not valid JSON: %v", err)
	}
	if obj["type"] != "object" {
		t.Errorf("expected object schema, got %v", obj["type"])
	}
	props, ok := obj["properties"].(map[string]any)
	if !ok || len(props) != 5 {
		t.Fatalf("expected 5 properties, got %v", obj["properties"])
	}
	req, ok := obj["required"].([]any)
	if !ok || len(req) != 3 {
		t.Errorf("expected 3 required fields, got %v", obj["required"])
	}
	sev, _ := props["severity"].(map[string]any)
	if _, ok := sev["enum"]; !ok {
		t.Error("enum field should declare its allowed values")
	}
}
