package storage

import (
	"fmt"

	"github.com/dpshade/spark-prompt/internal/models"
)

// LoadTemplates returns every template in the library. An unparseable
// templates file reads as empty.
func (s *Storage) LoadTemplates() ([]models.Template, error) {
	templates, err := s.loadTemplates()
	if s.tolerateCorrupt(err) {
		return []models.Template{}, nil
	}
	return templates, err
}

func (s *Storage) loadTemplates() ([]models.Template, error) {
	var templates []models.Template
	if err := s.loadJSON(TemplatesFile, true, &templates); err != nil {
		return nil, err
	}
	if templates == nil {
		templates = []models.Template{}
	}
	return templates, nil
}

// SaveTemplates replaces the template collection
func (s *Storage) SaveTemplates(templates []models.Template) error {
	return s.saveJSON(TemplatesFile, templates)
}

// GetTemplate returns the template with the given id
func (s *Storage) GetTemplate(id string) (models.Template, error) {
	templates, err := s.LoadTemplates()
	if err != nil {
		return models.Template{}, err
	}
	for _, t := range templates {
		if t.ID == id {
			return t, nil
		}
	}
	return models.Template{}, fmt.Errorf("template %q: %w", id, ErrNotFound)
}

// EnsureTemplate adds a template or replaces the one with the same id
func (s *Storage) EnsureTemplate(template models.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	templates, err := s.loadTemplates()
	if err != nil {
		return err
	}

	found := false
	for i, t := range templates {
		if t.ID == template.ID {
			templates[i] = template
			found = true
			break
		}
	}
	if !found {
		templates = append(templates, template)
	}

	return s.SaveTemplates(templates)
}

// DeleteTemplate removes a template by id
func (s *Storage) DeleteTemplate(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	templates, err := s.loadTemplates()
	if err != nil {
		return err
	}

	kept := make([]models.Template, 0, len(templates))
	for _, t := range templates {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	if len(kept) == len(templates) {
		return fmt.Errorf("template %q: %w", id, ErrNotFound)
	}

	return s.SaveTemplates(kept)
}
