package usecase

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"askdocs/internal/domain"
)

//go:embed templates/*.txt
var promptTemplates embed.FS

const answerTemplate = "templates/answer.txt"

// PromptBuilder renders the grounded answering prompt.
type PromptBuilder struct {
	tmpl   *template.Template
	system string
}

// NewPromptBuilder parses the embedded answer template. A non-empty system
// message is attached to every prompt.
func NewPromptBuilder(system string) (*PromptBuilder, error) {
	content, err := promptTemplates.ReadFile(answerTemplate)
	if err != nil {
		return nil, fmt.Errorf("template not found: %w", err)
	}
	tmpl, err := template.New("answer").Funcs(template.FuncMap{
		"join": strings.Join,
	}).Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	return &PromptBuilder{tmpl: tmpl, system: strings.TrimSpace(system)}, nil
}

type promptData struct {
	Question string
	Context  []string
}

// Build renders the prompt for question over the given chunks, in order.
func (b *PromptBuilder) Build(question string, items []domain.QueryResultItem) (domain.Prompt, error) {
	data := promptData{Question: question, Context: make([]string, len(items))}
	for i, item := range items {
		data.Context[i] = item.Text
	}

	var buf bytes.Buffer
	if err := b.tmpl.Execute(&buf, data); err != nil {
		return domain.Prompt{}, fmt.Errorf("failed to render template: %w", err)
	}
	return domain.Prompt{
		System:   b.system,
		Text:     strings.TrimSpace(buf.String()),
		Question: question,
		Context:  data.Context,
	}, nil
}
