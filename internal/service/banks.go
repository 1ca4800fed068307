package service

import (
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
	"go.uber.org/zap"

	"github.com/dpshade/spark-prompt/internal/config"
	apperrors "github.com/dpshade/spark-prompt/internal/errors"
	"github.com/dpshade/spark-prompt/internal/models"
	"github.com/dpshade/spark-prompt/internal/placeholder"
	"github.com/dpshade/spark-prompt/internal/storage"
	"github.com/dpshade/spark-prompt/internal/validation"
)

// AllCategories disables the category filter of SearchBanks
const AllCategories = "all"

// BankMatch is one bank search result
type BankMatch struct {
	Key            string                   `json:"key"`
	Label          string                   `json:"label"`
	Category       placeholder.CategoryInfo `json:"category"`
	Options        []string                 `json:"options"`
	MatchedIndexes []int                    `json:"-"`
}

// SearchBanks fuzzy matches query against bank keys and their labels in loc.
// category restricts results to one category unless it is empty or "all".
// An empty query returns every bank sorted by key.
func (s *Service) SearchBanks(query, category, loc string) []BankMatch {
	banks := s.Banks()
	categories := s.Categories()

	keys := make([]string, 0, len(banks))
	for key, bank := range banks {
		if category != "" && category != AllCategories && bank.Category != category {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	newMatch := func(key string, idx []int) BankMatch {
		label := banks[key].Label.Get(loc)
		if label == "" {
			label = key
		}
		return BankMatch{
			Key:            key,
			Label:          label,
			Category:       placeholder.CategoryLabelFor(key, loc, banks, categories),
			Options:        placeholder.LocalizedOptions(key, loc, banks),
			MatchedIndexes: idx,
		}
	}

	if strings.TrimSpace(query) == "" {
		out := make([]BankMatch, 0, len(keys))
		for _, key := range keys {
			out = append(out, newMatch(key, nil))
		}
		return out
	}

	searchStrings := make([]string, len(keys))
	for i, key := range keys {
		searchStrings[i] = key + " " + banks[key].Label.Get(loc)
	}
	matches := fuzzy.Find(query, searchStrings)

	out := make([]BankMatch, 0, len(matches))
	for _, m := range matches {
		out = append(out, newMatch(keys[m.Index], m.MatchedIndexes))
	}
	return out
}

// ImportResult describes a bank pack import
type ImportResult struct {
	Name      string   `json:"name"`
	Keys      []string `json:"keys"`
	Conflicts []string `json:"conflicts,omitempty"`
}

// PreviewBankPack reads a pack and reports what importing it would change
func (s *Service) PreviewBankPack(path string) (storage.BankPack, ImportResult, error) {
	pack, err := storage.LoadBankPack(path)
	if err != nil {
		return storage.BankPack{}, ImportResult{}, apperrors.Wrap(err, apperrors.ErrCodeInvalidFormat, "could not read bank pack").
			WithContext("path", path)
	}
	for _, key := range pack.Keys() {
		if err := validation.BankKey(key); err != nil {
			return storage.BankPack{}, ImportResult{}, err
		}
	}
	banks, err := s.storage.LoadBanks()
	if err != nil {
		return storage.BankPack{}, ImportResult{}, storageErr("load banks", err)
	}
	_, conflicts := storage.MergeBanks(banks, pack.Banks)
	return pack, ImportResult{Name: pack.Name, Keys: pack.Keys(), Conflicts: conflicts}, nil
}

// ImportBankPack merges a YAML or JSON bank pack into the library, records it
// in the configuration and reloads the bank snapshot
func (s *Service) ImportBankPack(path string) (ImportResult, error) {
	pack, _, err := s.PreviewBankPack(path)
	if err != nil {
		return ImportResult{}, err
	}

	conflicts, err := s.storage.ImportBankPack(pack)
	if err != nil {
		return ImportResult{}, storageErr("import bank pack", err)
	}

	s.cfg.RecordPack(config.Pack{Name: pack.Name, Source: path, Keys: pack.Keys()})
	if err := s.cfg.Save(); err != nil {
		s.logger.Warn("failed to record imported pack", zap.String("pack", pack.Name), zap.Error(err))
	}

	if err := s.reloadBanks(); err != nil {
		return ImportResult{}, err
	}
	return ImportResult{Name: pack.Name, Keys: pack.Keys(), Conflicts: conflicts}, nil
}

// SaveBank adds or replaces a bank and reloads the snapshot
func (s *Service) SaveBank(key string, item models.BankItem) error {
	if err := validation.BankKey(key); err != nil {
		return err
	}
	if err := s.storage.EnsureBank(key, item); err != nil {
		return storageErr("save bank", err)
	}
	return s.reloadBanks()
}

// DeleteBank removes a bank and reloads the snapshot
func (s *Service) DeleteBank(key string) error {
	if err := s.storage.DeleteBank(key); err != nil {
		return storageErr("delete bank", err)
	}
	return s.reloadBanks()
}

// SaveCategory adds or replaces a category and reloads the snapshot
func (s *Service) SaveCategory(id string, category models.Category) error {
	if err := validation.CategoryID(id); err != nil {
		return err
	}
	if err := s.storage.EnsureCategory(id, category); err != nil {
		return storageErr("save category", err)
	}
	return s.reloadBanks()
}

// DeleteCategory removes a category and reloads the snapshot
func (s *Service) DeleteCategory(id string) error {
	if err := s.storage.DeleteCategory(id); err != nil {
		return storageErr("delete category", err)
	}
	return s.reloadBanks()
}

func (s *Service) reloadBanks() error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if !loaded {
		return nil
	}

	banks, err := s.storage.LoadBanks()
	if err != nil {
		return storageErr("load banks", err)
	}
	categories, err := s.storage.LoadCategories()
	if err != nil {
		return storageErr("load categories", err)
	}
	s.mu.Lock()
	s.banks = banks
	s.categories = categories
	s.mu.Unlock()
	return nil
}
