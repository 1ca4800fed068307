package storage

import (
	"fmt"
	"sort"
	"time"
)

// SavedSelection is a named set of user selections for one template
type SavedSelection struct {
	Name       string            `json:"name"`
	TemplateID string            `json:"templateId"`
	Values     map[string]string `json:"values"`
	CreatedAt  time.Time         `json:"createdAt"`
}

type selectionsData struct {
	Selections []SavedSelection `json:"selections"`
	Version    string           `json:"version"`
}

// LoadSelections returns the saved selections of a template sorted by name.
// An empty templateID returns all of them.
func (s *Storage) LoadSelections(templateID string) ([]SavedSelection, error) {
	all, err := s.loadSelections()
	if err != nil && !s.tolerateCorrupt(err) {
		return nil, err
	}

	out := make([]SavedSelection, 0, len(all))
	for _, sel := range all {
		if templateID == "" || sel.TemplateID == templateID {
			out = append(out, sel)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// GetSelection returns one saved selection
func (s *Storage) GetSelection(templateID, name string) (SavedSelection, error) {
	all, err := s.loadSelections()
	if err != nil && !s.tolerateCorrupt(err) {
		return SavedSelection{}, err
	}
	for _, sel := range all {
		if sel.TemplateID == templateID && sel.Name == name {
			return sel, nil
		}
	}
	return SavedSelection{}, fmt.Errorf("selection %q: %w", name, ErrNotFound)
}

// SaveSelection stores sel, replacing one with the same template and name
func (s *Storage) SaveSelection(sel SavedSelection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.loadSelections()
	if err != nil {
		return err
	}
	if sel.CreatedAt.IsZero() {
		sel.CreatedAt = time.Now()
	}

	found := false
	for i, existing := range all {
		if existing.TemplateID == sel.TemplateID && existing.Name == sel.Name {
			all[i] = sel
			found = true
			break
		}
	}
	if !found {
		all = append(all, sel)
	}
	return s.saveJSON(SelectionsFile, selectionsData{Selections: all, Version: "1.0"})
}

// DeleteSelection removes a saved selection
func (s *Storage) DeleteSelection(templateID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.loadSelections()
	if err != nil {
		return err
	}
	kept := all[:0]
	for _, sel := range all {
		if sel.TemplateID != templateID || sel.Name != name {
			kept = append(kept, sel)
		}
	}
	if len(kept) == len(all) {
		return fmt.Errorf("selection %q: %w", name, ErrNotFound)
	}
	return s.saveJSON(SelectionsFile, selectionsData{Selections: kept, Version: "1.0"})
}

func (s *Storage) loadSelections() ([]SavedSelection, error) {
	var data selectionsData
	if err := s.loadJSON(SelectionsFile, false, &data); err != nil {
		return nil, err
	}
	return data.Selections, nil
}
