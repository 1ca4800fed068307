package models

// GeneratedImage is one image returned by a generation provider
type GeneratedImage struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// GenerationParams are the parameters a generation was requested with
type GenerationParams struct {
	Prompt     string                 `json:"prompt"`
	Provider   string                 `json:"provider"`
	Model      string                 `json:"model"`
	Size       string                 `json:"size"`
	Images     []string               `json:"images,omitempty"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
}

// HistoryRecord is a saved generation
type HistoryRecord struct {
	ID         string                 `json:"id"`
	TemplateID string                 `json:"templateId,omitempty"`
	Params     GenerationParams       `json:"params"`
	Images     []GeneratedImage       `json:"images"`
	Timestamp  int64                  `json:"timestamp"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}
