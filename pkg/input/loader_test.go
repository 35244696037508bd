package input

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadLiteralText(t *testing.T) {
	s, err := Load("aspirin and warfarin")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Text != "aspirin and warfarin" {
		t.Errorf("text = %q", s.Text)
	}
	if s.Source != "" {
		t.Errorf("source = %q, want empty", s.Source)
	}
}

func TestLoadMarkdownFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subject.md")
	if err := os.WriteFile(path, []byte("# Pharmacology\n\nBeta blockers.\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !strings.Contains(s.Text, "Beta blockers.") {
		t.Errorf("text = %q", s.Text)
	}
	if s.Source != path {
		t.Errorf("source = %q, want %q", s.Source, path)
	}
}

func TestLoadJSONContentField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subject.json")
	if err := os.WriteFile(path, []byte(`{"id":7,"content":"renal clearance"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Text != "renal clearance" {
		t.Errorf("text = %q, want field contents only", s.Text)
	}
}

func TestLoadJSONWholeDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subject.json")
	if err := os.WriteFile(path, []byte(`{"drug":"warfarin","dose_mg":5}`), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !strings.Contains(s.Text, `"drug": "warfarin"`) {
		t.Errorf("text = %q, want indented JSON", s.Text)
	}
}

func TestLoadMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subject.json")
	if err := os.WriteFile(path, []byte(`{"content": `), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestLoadDirectoryTreatedAsLiteral(t *testing.T) {
	dir := t.TempDir()
	s, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Text != dir {
		t.Errorf("text = %q, want the argument itself", s.Text)
	}
}
