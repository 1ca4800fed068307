package storage

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// Data file names inside the json directory
const (
	TemplatesFile  = "templates.json"
	BanksFile      = "banks.json"
	CategoriesFile = "categories.json"
	HistoryFile    = "ai-history.json"
	SelectionsFile = "selections.json"
)

//go:embed defaults/*.json
var defaultsFS embed.FS

// Storage handles all file system operations for templates, banks,
// categories and generation history
type Storage struct {
	rootPath string
	logger   *zap.Logger
	mu       sync.Mutex // serializes read-modify-write cycles on the data files
}

// NewStorage creates a new storage instance
func NewStorage(rootPath string, logger *zap.Logger) (*Storage, error) {
	if rootPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		rootPath = filepath.Join(homeDir, ".spark-prompt")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Storage{
		rootPath: rootPath,
		logger:   logger,
	}, nil
}

// InitLibrary creates the directory structure for a library
func (s *Storage) InitLibrary() error {
	dirs := []string{
		s.rootPath,
		s.JSONDir(),
		s.ImagesDir(),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// GetBaseDir returns the root path of the storage
func (s *Storage) GetBaseDir() string {
	return s.rootPath
}

// JSONDir returns the directory holding the data files
func (s *Storage) JSONDir() string {
	return filepath.Join(s.rootPath, "json")
}

// ImagesDir returns the directory holding persisted generated images
func (s *Storage) ImagesDir() string {
	return filepath.Join(s.rootPath, "images")
}

func (s *Storage) path(name string) string {
	return filepath.Join(s.JSONDir(), name)
}

// readFile returns the contents of a data file. A missing file falls back to
// the embedded default of the same name, which is then written to disk so the
// user can customize it. found is false when neither exists.
func (s *Storage) readFile(name string, withDefault bool) (data []byte, found bool, err error) {
	data, err = os.ReadFile(s.path(name))
	if err == nil {
		return data, true, nil
	}
	if !os.IsNotExist(err) {
		return nil, false, fmt.Errorf("failed to read %s: %w", name, err)
	}
	if !withDefault {
		return nil, false, nil
	}

	data, embedErr := defaultsFS.ReadFile("defaults/" + name)
	if embedErr != nil {
		return nil, false, nil
	}

	if err := os.MkdirAll(s.JSONDir(), 0755); err == nil {
		if err := os.WriteFile(s.path(name), data, 0644); err != nil {
			s.logger.Warn("failed to write default data file", zap.String("file", name), zap.Error(err))
		}
	}
	return data, true, nil
}

// loadJSON decodes a data file into v. A file that fails to parse yields a
// *CorruptFileError.
func (s *Storage) loadJSON(name string, withDefault bool, v any) error {
	data, found, err := s.readFile(name, withDefault)
	if err != nil || !found {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &CorruptFileError{Path: s.path(name), Err: err}
	}
	return nil
}

// tolerateCorrupt reports whether err is a corrupted data file, logging it.
// Read paths use it to show an empty collection; write paths never do, so
// the broken file is left for the user to repair.
func (s *Storage) tolerateCorrupt(err error) bool {
	var corrupt *CorruptFileError
	if !errors.As(err, &corrupt) {
		return false
	}
	s.logger.Warn("ignoring unparseable data file", zap.String("file", corrupt.Path), zap.Error(corrupt.Err))
	return true
}

func (s *Storage) saveJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}
	if err := os.MkdirAll(s.JSONDir(), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// atomic replace
	tmp, err := os.CreateTemp(s.JSONDir(), "."+name+".*")
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		s.logger.Debug("chmod failed", zap.String("file", tmp.Name()), zap.Error(err))
	}
	if err := os.Rename(tmp.Name(), s.path(name)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write %s: %w", name, err)
	}

	s.logger.Debug("saved data file", zap.String("file", name), zap.Int("bytes", len(data)))
	return nil
}
