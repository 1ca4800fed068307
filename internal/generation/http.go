package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dpshade/spark-prompt/internal/config"
	apperrors "github.com/dpshade/spark-prompt/internal/errors"
)

const maxResponseBytes = 8 << 20

// HTTPProvider posts requests as JSON to a single endpoint
type HTTPProvider struct {
	name     string
	endpoint string
	apiKey   string
	model    string
	size     string
	client   *http.Client
	logger   *zap.Logger
}

// NewHTTPProvider creates a provider from configuration
func NewHTTPProvider(cfg config.ProviderConfig, client *http.Client, logger *zap.Logger) (*HTTPProvider, error) {
	if !cfg.Configured() {
		return nil, apperrors.NotConfiguredError("generation provider")
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	name := cfg.Name
	if name == "" {
		name = "http"
	}
	return &HTTPProvider{
		name:     name,
		endpoint: cfg.Endpoint,
		apiKey:   cfg.Key(),
		model:    cfg.Model,
		size:     cfg.Size,
		client:   client,
		logger:   logger,
	}, nil
}

// Name returns the configured provider name
func (p *HTTPProvider) Name() string {
	return p.name
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate sends req and returns the generated images. Missing model and
// size fall back to the configured defaults.
func (p *HTTPProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	if req.Prompt == "" {
		return nil, apperrors.ValidationError("prompt is empty")
	}
	if req.Model == "" {
		req.Model = p.model
	}
	if req.Size == "" {
		req.Size = p.size
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, apperrors.ProviderError(p.name, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	start := time.Now()
	resp, err := p.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeTimeout, "generation request cancelled")
		}
		return nil, apperrors.NetworkError("generate", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, apperrors.NetworkError("read generation response", err)
	}
	p.logger.Debug("generation response",
		zap.String("provider", p.name),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		var eb errorBody
		msg := fmt.Sprintf("HTTP %d", resp.StatusCode)
		if json.Unmarshal(body, &eb) == nil && eb.Error.Message != "" {
			msg = fmt.Sprintf("%s: %s", msg, eb.Error.Message)
		}
		return nil, apperrors.ProviderError(p.name, fmt.Errorf("%s", msg)).
			WithContext("status", resp.StatusCode)
	}

	var out Response
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, apperrors.ProviderError(p.name, fmt.Errorf("invalid response: %w", err))
	}
	for i := range out.Images {
		if out.Images[i].ID == "" {
			out.Images[i].ID = uuid.NewString()
		}
	}
	return &out, nil
}
