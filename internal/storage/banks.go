package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dpshade/spark-prompt/internal/models"
)

// LoadBanks returns the bank map. An unparseable banks file reads as empty.
func (s *Storage) LoadBanks() (models.BankMap, error) {
	banks, err := s.loadBanks()
	if s.tolerateCorrupt(err) {
		return make(models.BankMap), nil
	}
	return banks, err
}

func (s *Storage) loadBanks() (models.BankMap, error) {
	banks := make(models.BankMap)
	if err := s.loadJSON(BanksFile, true, &banks); err != nil {
		return nil, err
	}
	if banks == nil {
		banks = make(models.BankMap)
	}
	return banks, nil
}

// SaveBanks replaces the bank map
func (s *Storage) SaveBanks(banks models.BankMap) error {
	return s.saveJSON(BanksFile, banks)
}

// EnsureBank adds or replaces one bank
func (s *Storage) EnsureBank(key string, item models.BankItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	banks, err := s.loadBanks()
	if err != nil {
		return err
	}
	banks[key] = item
	return s.SaveBanks(banks)
}

// DeleteBank removes a bank by key
func (s *Storage) DeleteBank(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	banks, err := s.loadBanks()
	if err != nil {
		return err
	}
	if _, ok := banks[key]; !ok {
		return fmt.Errorf("bank %q: %w", key, ErrNotFound)
	}
	delete(banks, key)
	return s.SaveBanks(banks)
}

// LoadCategories returns the category map. An unparseable categories file
// reads as empty.
func (s *Storage) LoadCategories() (models.CategoryMap, error) {
	categories, err := s.loadCategories()
	if s.tolerateCorrupt(err) {
		return make(models.CategoryMap), nil
	}
	return categories, err
}

func (s *Storage) loadCategories() (models.CategoryMap, error) {
	categories := make(models.CategoryMap)
	if err := s.loadJSON(CategoriesFile, true, &categories); err != nil {
		return nil, err
	}
	if categories == nil {
		categories = make(models.CategoryMap)
	}
	return categories, nil
}

// SaveCategories replaces the category map
func (s *Storage) SaveCategories(categories models.CategoryMap) error {
	return s.saveJSON(CategoriesFile, categories)
}

// EnsureCategory adds or replaces one category. The stored ID always matches key.
func (s *Storage) EnsureCategory(key string, category models.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	categories, err := s.loadCategories()
	if err != nil {
		return err
	}
	category.ID = key
	categories[key] = category
	return s.SaveCategories(categories)
}

// DeleteCategory removes a category by key
func (s *Storage) DeleteCategory(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	categories, err := s.loadCategories()
	if err != nil {
		return err
	}
	if _, ok := categories[key]; !ok {
		return fmt.Errorf("category %q: %w", key, ErrNotFound)
	}
	delete(categories, key)
	return s.SaveCategories(categories)
}

// BankPack is a portable set of banks and the categories they use
type BankPack struct {
	Name       string             `json:"name" yaml:"name"`
	Banks      models.BankMap     `json:"banks" yaml:"banks"`
	Categories models.CategoryMap `json:"categories,omitempty" yaml:"categories,omitempty"`
}

// Keys returns the bank keys of the pack in sorted order
func (p BankPack) Keys() []string {
	keys := make([]string, 0, len(p.Banks))
	for k := range p.Banks {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// LoadBankPack reads a bank pack from a YAML (.yaml, .yml) or JSON file.
// A pack without a name is named after its file.
func LoadBankPack(path string) (BankPack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return BankPack{}, fmt.Errorf("failed to read bank pack: %w", err)
	}

	var pack BankPack
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &pack)
	case ".json":
		err = json.Unmarshal(data, &pack)
	default:
		return BankPack{}, fmt.Errorf("unsupported bank pack format %q", ext)
	}
	if err != nil {
		return BankPack{}, fmt.Errorf("failed to parse bank pack: %w", err)
	}

	if pack.Name == "" {
		pack.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	for id, cat := range pack.Categories {
		cat.ID = id
		pack.Categories[id] = cat
	}
	return pack, nil
}

// MergeBanks merges pack into a copy of banks. Pack entries win on key
// collision; the colliding keys are returned in sorted order.
func MergeBanks(banks models.BankMap, pack models.BankMap) (models.BankMap, []string) {
	merged := banks.Clone()

	var conflicts []string
	for key, item := range pack {
		if _, ok := merged[key]; ok {
			conflicts = append(conflicts, key)
		}
		merged[key] = item
	}
	sort.Strings(conflicts)
	return merged, conflicts
}

// ImportBankPack merges a pack into the stored banks and categories and
// returns the keys that replaced existing banks
func (s *Storage) ImportBankPack(pack BankPack) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	banks, err := s.loadBanks()
	if err != nil {
		return nil, err
	}
	merged, conflicts := MergeBanks(banks, pack.Banks)
	if err := s.SaveBanks(merged); err != nil {
		return nil, err
	}

	if len(pack.Categories) > 0 {
		categories, err := s.loadCategories()
		if err != nil {
			return nil, err
		}
		for id, cat := range pack.Categories {
			categories[id] = cat
		}
		if err := s.SaveCategories(categories); err != nil {
			return nil, err
		}
	}

	return conflicts, nil
}
