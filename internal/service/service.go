package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/dpshade/spark-prompt/internal/config"
	apperrors "github.com/dpshade/spark-prompt/internal/errors"
	"github.com/dpshade/spark-prompt/internal/generation"
	"github.com/dpshade/spark-prompt/internal/locale"
	"github.com/dpshade/spark-prompt/internal/models"
	"github.com/dpshade/spark-prompt/internal/storage"
)

// Service provides the business logic shared by the CLI, the HTTP API and the TUI
type Service struct {
	cfg      *config.Config
	storage  *storage.Storage
	assets   *storage.AssetCache
	provider generation.Provider
	logger   *zap.Logger

	mu         sync.RWMutex
	banks      models.BankMap
	categories models.CategoryMap
	loaded     bool
}

// NewService creates a new service instance over the configured data directory
func NewService(cfg *config.Config, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	store, err := storage.NewStorage(cfg.DataDir(), logger.Named("storage"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	svc := &Service{
		cfg:     cfg,
		storage: store,
		assets: storage.NewAssetCache(cfg.AssetCacheSize,
			storage.DefaultFetcher(http.DefaultClient, cfg.AssetTimeout), logger.Named("assets")),
		logger: logger,
	}

	if cfg.Provider.Configured() {
		p, err := generation.NewHTTPProvider(cfg.Provider, nil, logger.Named("generation"))
		if err != nil {
			return nil, err
		}
		svc.provider = p
	}

	return svc, nil
}

// SetProvider replaces the generation provider
func (s *Service) SetProvider(p generation.Provider) {
	s.provider = p
}

// Config returns the configuration the service was built with
func (s *Service) Config() *config.Config {
	return s.cfg
}

// Storage returns the underlying storage
func (s *Service) Storage() *storage.Storage {
	return s.storage
}

// Logger returns the service logger
func (s *Service) Logger() *zap.Logger {
	return s.logger
}

// DefaultLocale returns the configured or detected content locale
func (s *Service) DefaultLocale() string {
	return locale.Current(s.cfg.Locale)
}

// InitLibrary initializes a new library
func (s *Service) InitLibrary() error {
	if err := s.storage.InitLibrary(); err != nil {
		return apperrors.StorageError("init library", err)
	}
	return nil
}

// LoadLibrary loads banks and categories once. Later calls are no-ops until
// ReloadLibrary is called.
func (s *Service) LoadLibrary(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}
	return s.ReloadLibrary(ctx)
}

// ReloadLibrary reads banks and categories from storage
func (s *Service) ReloadLibrary(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	banks, err := s.storage.LoadBanks()
	if err != nil {
		return apperrors.StorageError("load banks", err)
	}
	categories, err := s.storage.LoadCategories()
	if err != nil {
		return apperrors.StorageError("load categories", err)
	}

	s.mu.Lock()
	s.banks = banks
	s.categories = categories
	s.loaded = true
	s.mu.Unlock()

	s.logger.Debug("library loaded", zap.Int("banks", len(banks)), zap.Int("categories", len(categories)))
	return nil
}

// LoadLibraryAsync loads the library in the background and returns a function
// that reports completion without blocking
func (s *Service) LoadLibraryAsync(ctx context.Context) func() (bool, error) {
	done := make(chan error, 1)
	go func() {
		done <- s.LoadLibrary(ctx)
	}()

	var (
		finished bool
		result   error
	)
	return func() (bool, error) {
		if finished {
			return true, result
		}
		select {
		case result = <-done:
			finished = true
			return true, result
		default:
			return false, nil
		}
	}
}

// Banks returns the loaded bank snapshot. The map must not be modified.
func (s *Service) Banks() models.BankMap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.banks
}

// Categories returns the loaded category snapshot. The map must not be modified.
func (s *Service) Categories() models.CategoryMap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.categories
}

// WatchLibrary reloads banks and categories whenever their files change and
// then calls onReload. The returned function stops watching.
func (s *Service) WatchLibrary(ctx context.Context, onReload func()) (func(), error) {
	if err := s.storage.InitLibrary(); err != nil {
		return nil, apperrors.StorageError("init library", err)
	}
	w, err := storage.NewWatcher(s.storage, storage.DefaultDebounce, s.logger.Named("watcher"))
	if err != nil {
		return nil, apperrors.StorageError("watch library", err)
	}

	err = w.Start(ctx, func(name string) {
		if name != storage.BanksFile && name != storage.CategoriesFile && name != storage.TemplatesFile {
			return
		}
		if err := s.ReloadLibrary(ctx); err != nil {
			s.logger.Warn("library reload failed", zap.String("file", name), zap.Error(err))
			return
		}
		if onReload != nil {
			onReload()
		}
	})
	if err != nil {
		w.Stop()
		return nil, apperrors.StorageError("watch library", err)
	}
	return w.Stop, nil
}

// FetchAsset returns a template cover or generated image through the asset
// cache. Data URIs are always served. Local files must resolve inside the
// library: anything in the images directory, or a file a template or history
// record points at. Remote URLs must be referenced the same way.
func (s *Service) FetchAsset(ctx context.Context, src string) (storage.Asset, error) {
	if src == "" {
		return storage.Asset{}, apperrors.ValidationError("asset source is required")
	}

	key := src
	if !strings.HasPrefix(src, "data:") {
		resolved, err := s.authorizeAsset(src)
		if err != nil {
			return storage.Asset{}, err
		}
		key = resolved
	}

	asset, err := s.assets.GetOrFetch(ctx, key)
	if err != nil {
		return storage.Asset{}, apperrors.NetworkError("fetch asset", err).WithContext("src", src)
	}
	return asset, nil
}

// authorizeAsset checks src against the library and returns the source to
// fetch, which for local files is the resolved path
func (s *Service) authorizeAsset(src string) (string, error) {
	denied := apperrors.NewAppError(apperrors.ErrCodePermissionDenied, "asset is not part of the library").
		WithContext("src", src)

	if storage.IsRemote(src) {
		refs, err := s.assetReferences()
		if err != nil {
			return "", err
		}
		if _, ok := refs[src]; !ok {
			return "", denied
		}
		return src, nil
	}

	path, err := s.storage.ResolveLocalAsset(src)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return "", apperrors.NotFoundError("asset")
		}
		s.logger.Debug("asset rejected", zap.String("src", src), zap.Error(err))
		return "", denied
	}
	if s.storage.InImagesDir(path) {
		return path, nil
	}

	refs, err := s.assetReferences()
	if err != nil {
		return "", err
	}
	for ref := range refs {
		if storage.IsRemote(ref) {
			continue
		}
		if p, err := s.storage.ResolveLocalAsset(ref); err == nil && p == path {
			return path, nil
		}
	}
	return "", denied
}

// assetReferences collects every image source named by a template or a
// history record
func (s *Service) assetReferences() (map[string]struct{}, error) {
	templates, err := s.storage.LoadTemplates()
	if err != nil {
		return nil, storageErr("load templates", err)
	}
	history, err := s.storage.LoadHistory()
	if err != nil {
		return nil, storageErr("load history", err)
	}

	refs := make(map[string]struct{})
	add := func(src string) {
		if src != "" {
			refs[src] = struct{}{}
		}
	}
	for _, t := range templates {
		add(t.ImageURL)
		for _, u := range t.ImageURLs {
			add(u)
		}
	}
	for _, record := range history {
		for _, img := range record.Images {
			add(img.URL)
		}
	}
	return refs, nil
}

// AssetStats returns asset cache counters
func (s *Service) AssetStats() storage.CacheStats {
	return s.assets.Stats()
}

func storageErr(op string, err error) error {
	if stderrors.Is(err, storage.ErrNotFound) {
		return apperrors.Wrap(err, apperrors.ErrCodeNotFound, err.Error())
	}
	var corrupt *storage.CorruptFileError
	if stderrors.As(err, &corrupt) {
		return apperrors.CorruptedFileError(corrupt.Path, err).WithContext("operation", op)
	}
	return apperrors.StorageError(op, err)
}
