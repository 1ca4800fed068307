package service

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/dpshade/spark-prompt/internal/errors"
	"github.com/dpshade/spark-prompt/internal/generation"
	"github.com/dpshade/spark-prompt/internal/models"
	"github.com/dpshade/spark-prompt/internal/storage"
	"github.com/dpshade/spark-prompt/internal/workstation"
)

// GenerateOptions are the per-request generation settings
type GenerateOptions struct {
	Model      string
	Size       string
	Images     []string
	Parameters map[string]any
}

// Generate sends the resolved prompt of session to the configured provider,
// stores the images locally and appends a history record
func (s *Service) Generate(ctx context.Context, session workstation.Session, opts GenerateOptions) (models.HistoryRecord, error) {
	if s.provider == nil {
		return models.HistoryRecord{}, apperrors.NotConfiguredError("generation provider")
	}

	images, err := s.inlineImages(ctx, opts.Images)
	if err != nil {
		return models.HistoryRecord{}, err
	}

	prompt := session.Prompt()
	resp, err := s.provider.Generate(ctx, generation.Request{
		Prompt:     prompt,
		Model:      opts.Model,
		Size:       opts.Size,
		Images:     images,
		Parameters: opts.Parameters,
	})
	if err != nil {
		return models.HistoryRecord{}, err
	}

	record := models.HistoryRecord{
		ID:         "record_" + uuid.NewString(),
		TemplateID: session.Template.ID,
		Params: models.GenerationParams{
			Prompt:     prompt,
			Provider:   s.provider.Name(),
			Model:      opts.Model,
			Size:       opts.Size,
			Images:     opts.Images,
			Parameters: opts.Parameters,
		},
		Images:    make([]models.GeneratedImage, 0, len(resp.Images)),
		Timestamp: time.Now().Unix(),
		Metadata: map[string]interface{}{
			"locale":     session.Locale,
			"selections": session.Overrides.Selections(),
		},
	}
	if resp.RequestID != "" {
		record.Metadata["requestId"] = resp.RequestID
	}

	for _, img := range resp.Images {
		record.Images = append(record.Images, s.persistImage(ctx, img))
	}

	if err := s.storage.AppendHistory(record); err != nil {
		return record, storageErr("save history", err)
	}
	return record, nil
}

// inlineImages turns local reference image paths into data URIs, since a
// remote provider cannot read the user's disk. URLs and data URIs pass
// through unchanged.
func (s *Service) inlineImages(ctx context.Context, srcs []string) ([]string, error) {
	if len(srcs) == 0 {
		return srcs, nil
	}
	out := make([]string, len(srcs))
	for i, src := range srcs {
		if src == "" || storage.IsRemote(src) || strings.HasPrefix(src, "data:") {
			out[i] = src
			continue
		}
		asset, err := s.assets.GetOrFetch(ctx, src)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInvalidInput, "reference image could not be read").
				WithContext("src", src)
		}
		out[i] = storage.DataURI(asset)
	}
	return out, nil
}

// persistImage downloads a generated image into the library. On failure the
// remote URL is kept.
func (s *Service) persistImage(ctx context.Context, img models.GeneratedImage) models.GeneratedImage {
	asset, err := s.assets.GetOrFetch(ctx, img.URL)
	if err != nil {
		s.logger.Warn("failed to download generated image", zap.String("url", img.URL), zap.Error(err))
		return img
	}

	name := fmt.Sprintf("%s%s", img.ID, imageExt(asset.ContentType, img.URL))
	local, err := s.storage.PersistImage(name, asset.Data)
	if err != nil {
		s.logger.Warn("failed to save generated image", zap.String("url", img.URL), zap.Error(err))
		return img
	}
	s.assets.Invalidate(img.URL)
	img.URL = local
	return img
}

func imageExt(contentType, url string) string {
	switch {
	case strings.HasPrefix(contentType, "image/jpeg"):
		return ".jpg"
	case strings.HasPrefix(contentType, "image/webp"):
		return ".webp"
	case strings.HasPrefix(contentType, "image/png"):
		return ".png"
	}
	if ext := path.Ext(strings.SplitN(url, "?", 2)[0]); ext != "" && len(ext) <= 5 && !strings.HasPrefix(url, "data:") {
		return ext
	}
	return ".png"
}

// History returns the generation history, newest first
func (s *Service) History() ([]models.HistoryRecord, error) {
	history, err := s.storage.LoadHistory()
	if err != nil {
		return nil, storageErr("load history", err)
	}
	for i, j := 0, len(history)-1; i < j; i, j = i+1, j-1 {
		history[i], history[j] = history[j], history[i]
	}
	return history, nil
}

// DeleteHistoryRecord removes a history record and its local images
func (s *Service) DeleteHistoryRecord(id string) error {
	if err := s.storage.DeleteHistoryRecord(id); err != nil {
		return storageErr("delete history record", err)
	}
	return nil
}
