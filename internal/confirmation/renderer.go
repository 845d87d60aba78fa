package confirmation

import (
	"bytes"
	"fmt"
	"text/template"
)

const textTemplate = `{{.Headline}}
{{.Subline}}

Meeting Confirmation
  Title:    {{.Title}}
  Date:     {{.Date}}
  Time:     {{.Time}}
  Duration: {{.Duration}}

Your Information
  Name:  {{.GuestName}}
  Email: {{.GuestEmail}}
  Phone: {{.GuestPhone}}

Business Information
  Current Revenue: {{.CurrentRevenue}}
  Revenue Goal:    {{.RevenueGoal}}
{{- if .Notes}}

Additional Notes
  {{.Notes}}
{{- end}}

What Happens Next?
{{- range .WhatNext}}
  * {{.Title}}: {{.Body}}
{{- end}}

Important Information
{{- range .ImportantInfo}}
  {{.Title}}
{{- range .Items}}
    - {{.}}
{{- end}}
{{- end}}

Meeting ID: {{.MeetingID}}
`

// Renderer renders confirmation views as text.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer compiles the built-in text layout.
func NewRenderer() *Renderer {
	r, err := NewRendererFromText(textTemplate)
	if err != nil {
		panic(err)
	}
	return r
}

// NewRendererFromText compiles a custom layout with strict missing-key semantics.
func NewRendererFromText(tmpl string) (*Renderer, error) {
	if tmpl == "" {
		return nil, fmt.Errorf("confirmation: template text required")
	}
	t, err := template.New("confirmation").Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return nil, fmt.Errorf("confirmation: parse: %w", err)
	}
	return &Renderer{tmpl: t}, nil
}

// Render executes the layout for v.
func (r *Renderer) Render(v View) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("confirmation: execute: %w", err)
	}
	return buf.String(), nil
}
