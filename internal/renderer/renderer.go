package renderer

import (
	"encoding/json"
	"fmt"

	"github.com/dpshade/spark-prompt/internal/models"
	"github.com/dpshade/spark-prompt/internal/placeholder"
)

// Renderer renders one template in one locale against a bank snapshot
type Renderer struct {
	template   models.Template
	locale     string
	banks      models.BankMap
	categories models.CategoryMap
	overrides  placeholder.Overrides
}

// NewRenderer creates a new renderer instance
func NewRenderer(tmpl models.Template, locale string, banks models.BankMap, categories models.CategoryMap, overrides placeholder.Overrides) *Renderer {
	return &Renderer{
		template:   tmpl,
		locale:     locale,
		banks:      banks,
		categories: categories,
		overrides:  overrides,
	}
}

// Content returns the template source used for the renderer's locale
func (r *Renderer) Content() string {
	return r.template.ContentFor(r.locale)
}

// Blocks renders the interactive block tree
func (r *Renderer) Blocks() []BlockNode {
	return Render(r.Content(), r.locale, r.banks, r.categories, r.overrides)
}

// RenderText renders the final prompt as plain text
func (r *Renderer) RenderText() string {
	return ResolvePrompt(r.Content(), r.locale, r.banks, r.overrides)
}

// RenderJSON renders the prompt as a JSON message array for LLM-style APIs
func (r *Renderer) RenderJSON() (string, error) {
	messages := []Message{
		{
			Role:    "user",
			Content: r.RenderText(),
		},
	}

	jsonBytes, err := json.MarshalIndent(messages, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal to JSON: %w", err)
	}

	return string(jsonBytes), nil
}

// Message represents a chat message for LLM APIs
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
