// Package input turns a command-line subject argument into prompt text.
// The argument is either literal text or a path to a file; files are
// detected by existence, not by looking like a path.
package input

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Subject is resolved input ready for prompt rendering.
type Subject struct {
	// Text is the prompt-ready subject text.
	Text string
	// Source is the file the text came from, or "" for literal input.
	Source string
}

// jsonTextKeys are tried in order when extracting text from a JSON file.
var jsonTextKeys = []string{"content", "text", "subject", "body"}

// Load resolves a subject argument. If arg names an existing file the
// file's contents are used; otherwise arg itself is the subject.
func Load(arg string) (*Subject, error) {
	info, err := os.Stat(arg)
	if err != nil || info.IsDir() {
		return &Subject{Text: arg}, nil
	}

	data, err := os.ReadFile(arg)
	if err != nil {
		return nil, fmt.Errorf("read subject file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(arg)) {
	case ".json":
		text, err := fromJSON(data)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", arg, err)
		}
		return &Subject{Text: text, Source: arg}, nil
	default:
		// Markdown and plain text pass through untouched.
		return &Subject{Text: strings.TrimSpace(string(data)), Source: arg}, nil
	}
}

// fromJSON extracts subject text from a JSON document. A top-level
// string field named content, text, subject, or body wins; anything
// else is re-rendered as indented JSON so the model sees the whole
// document.
func fromJSON(data []byte) (string, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", err
	}
	for _, key := range jsonTextKeys {
		if s, ok := doc[key].(string); ok && s != "" {
			return s, nil
		}
	}
	pretty, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}
	return string(pretty), nil
}
