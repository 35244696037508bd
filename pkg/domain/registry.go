// Package domain holds the built-in generation modules: each pairs a
// system/user prompt template with the record shape the model must
// produce and a markdown rendering of the result.
package domain

import (
	"bytes"
	"fmt"
	"sort"
	"text/template"

	"github.com/galen-ai/galen/pkg/schema"
)

// Module is one domain-specific prompt + record shape pairing.
type Module struct {
	Name     string
	Short    string
	System   string
	User     *template.Template
	Shape    schema.Shape
	Markdown *template.Template
}

// userData is the data passed to user prompt templates.
type userData struct {
	Subject string
}

// RenderUser renders the user prompt for a subject.
func (m Module) RenderUser(subject string) (string, error) {
	var buf bytes.Buffer
	if err := m.User.Execute(&buf, userData{Subject: subject}); err != nil {
		return "", fmt.Errorf("render user prompt for %s: %w", m.Name, err)
	}
	return buf.String(), nil
}

// RenderMarkdown renders the validated document as markdown.
func (m Module) RenderMarkdown(doc map[string]any) (string, error) {
	var buf bytes.Buffer
	if err := m.Markdown.Execute(&buf, doc); err != nil {
		return "", fmt.Errorf("render markdown for %s: %w", m.Name, err)
	}
	return buf.String(), nil
}

// Registry is the immutable set of modules, built once at startup and
// passed explicitly to whoever needs it.
type Registry struct {
	modules map[string]Module
}

// NewRegistry returns a Registry with all built-in modules.
func NewRegistry() *Registry {
	r := &Registry{modules: make(map[string]Module)}
	for _, m := range []Module{
		topicModule(),
		faqModule(),
		interactionsModule(),
		equationModule(),
		reviewModule(),
	} {
		r.modules[m.Name] = m
	}
	return r
}

// Lookup returns the module registered under name.
func (r *Registry) Lookup(name string) (Module, bool) {
	m, ok := r.modules[name]
	return m, ok
}

// Names returns all registered module names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.modules))
	for n := range r.modules {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func mustTemplate(name, text string) *template.Template {
	return template.Must(template.New(name).Parse(text))
}
