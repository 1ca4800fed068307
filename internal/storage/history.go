package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/dpshade/spark-prompt/internal/models"
)

// LoadHistory returns the generation history, oldest first. An unparseable
// history file reads as empty.
func (s *Storage) LoadHistory() ([]models.HistoryRecord, error) {
	history, err := s.loadHistory()
	if s.tolerateCorrupt(err) {
		return []models.HistoryRecord{}, nil
	}
	return history, err
}

func (s *Storage) loadHistory() ([]models.HistoryRecord, error) {
	var history []models.HistoryRecord
	if err := s.loadJSON(HistoryFile, false, &history); err != nil {
		return nil, err
	}
	if history == nil {
		history = []models.HistoryRecord{}
	}
	return history, nil
}

// AppendHistory adds a record to the end of the history
func (s *Storage) AppendHistory(record models.HistoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, err := s.loadHistory()
	if err != nil {
		return err
	}
	return s.saveJSON(HistoryFile, append(history, record))
}

// DeleteHistoryRecord removes a record and the images it persisted locally
func (s *Storage) DeleteHistoryRecord(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, err := s.loadHistory()
	if err != nil {
		return err
	}

	kept := make([]models.HistoryRecord, 0, len(history))
	var removed *models.HistoryRecord
	for i, record := range history {
		if record.ID == id {
			removed = &history[i]
			continue
		}
		kept = append(kept, record)
	}
	if removed == nil {
		return fmt.Errorf("history record %q: %w", id, ErrNotFound)
	}

	for _, img := range removed.Images {
		if !s.isLocalImage(img.URL) {
			continue
		}
		if err := os.Remove(img.URL); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to delete image file", zap.String("path", img.URL), zap.Error(err))
		}
	}

	return s.saveJSON(HistoryFile, kept)
}

// PersistImage writes image bytes into the images directory and returns the path
func (s *Storage) PersistImage(name string, data []byte) (string, error) {
	if err := os.MkdirAll(s.ImagesDir(), 0755); err != nil {
		return "", fmt.Errorf("failed to create images directory: %w", err)
	}
	path := filepath.Join(s.ImagesDir(), filepath.Base(name))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	return path, nil
}

func (s *Storage) isLocalImage(url string) bool {
	if url == "" || IsRemote(url) {
		return false
	}
	rel, err := filepath.Rel(s.ImagesDir(), url)
	return err == nil && !strings.HasPrefix(rel, "..")
}
