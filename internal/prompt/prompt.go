// AngelaMos | 2026
// prompt.go

// Package prompt holds the system persona and user prompt template for each
// consultation kind.
package prompt

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/carterperez-dev/mystic-backend/internal/llm"
)

// Data is what a user template is rendered against. Input is the stored
// consultation input decoded from JSON.
type Data struct {
	Input    map[string]any
	Question string
	Index    int
	Total    int
}

type Template struct {
	Kind   string
	System string
	user   *template.Template
}

func NewTemplate(kind, system, user string) (Template, error) {
	tmpl, err := template.New(kind).Parse(user)
	if err != nil {
		return Template{}, fmt.Errorf("parse %s user template: %w", kind, err)
	}
	return Template{Kind: kind, System: system, user: tmpl}, nil
}

// Messages renders the system and user message pair for one question.
func (t Template) Messages(data Data) ([]llm.Message, error) {
	var b strings.Builder
	if err := t.user.Execute(&b, data); err != nil {
		return nil, fmt.Errorf("render %s prompt: %w", t.Kind, err)
	}

	return []llm.Message{
		{Role: llm.RoleSystem, Content: t.System},
		{Role: llm.RoleUser, Content: strings.TrimSpace(b.String())},
	}, nil
}

type Registry struct {
	templates map[string]Template
}

func NewRegistry(templates ...Template) *Registry {
	r := &Registry{templates: make(map[string]Template, len(templates))}
	for _, t := range templates {
		r.templates[t.Kind] = t
	}
	return r
}

// DefaultRegistry returns the built-in templates for every consultation kind.
func DefaultRegistry() *Registry {
	templates := make([]Template, 0, len(builtin))
	for _, b := range builtin {
		t, err := NewTemplate(b.kind, persona(b.role, b.focus, b.words, b.format), b.user)
		if err != nil {
			panic(err)
		}
		templates = append(templates, t)
	}
	return NewRegistry(templates...)
}

func (r *Registry) Get(kind string) (Template, bool) {
	t, ok := r.templates[kind]
	return t, ok
}

func (r *Registry) Render(kind string, data Data) ([]llm.Message, error) {
	t, ok := r.templates[kind]
	if !ok {
		return nil, fmt.Errorf("no prompt template for %q", kind)
	}
	return t.Messages(data)
}
