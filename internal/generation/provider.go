// Package generation sends resolved prompts to an image generation provider.
package generation

import (
	"context"

	"github.com/dpshade/spark-prompt/internal/models"
)

// Request is one generation request
type Request struct {
	Prompt     string         `json:"prompt"`
	Model      string         `json:"model,omitempty"`
	Size       string         `json:"size,omitempty"`
	Images     []string       `json:"images,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// Response is the provider's answer
type Response struct {
	Images    []models.GeneratedImage `json:"images"`
	RequestID string                  `json:"requestId,omitempty"`
}

// Provider generates images from a prompt
type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) (*Response, error)
}
