package service

import (
	"context"
	"net/http"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/sahilm/fuzzy"
	"go.uber.org/zap"

	apperrors "github.com/dpshade/spark-prompt/internal/errors"
	"github.com/dpshade/spark-prompt/internal/models"
	"github.com/dpshade/spark-prompt/internal/placeholder"
	"github.com/dpshade/spark-prompt/internal/storage"
	"github.com/dpshade/spark-prompt/internal/validation"
	"github.com/dpshade/spark-prompt/internal/workstation"
)

// ListTemplates returns every template sorted by id
func (s *Service) ListTemplates() ([]models.Template, error) {
	templates, err := s.storage.LoadTemplates()
	if err != nil {
		return nil, storageErr("load templates", err)
	}
	sort.SliceStable(templates, func(i, j int) bool { return templates[i].ID < templates[j].ID })
	return templates, nil
}

// GetTemplate returns a template by id
func (s *Service) GetTemplate(id string) (models.Template, error) {
	t, err := s.storage.GetTemplate(id)
	if err != nil {
		return models.Template{}, storageErr("load template", err)
	}
	return t, nil
}

// CreateTemplate stores a new template under a fresh id
func (s *Service) CreateTemplate(t models.Template) (models.Template, error) {
	t.ID = "tpl_" + uuid.NewString()
	if err := s.SaveTemplate(t); err != nil {
		return models.Template{}, err
	}
	return t, nil
}

// SaveTemplate adds or replaces a template
func (s *Service) SaveTemplate(t models.Template) error {
	if err := validation.Template(t); err != nil {
		return err
	}
	if err := s.storage.EnsureTemplate(t); err != nil {
		return storageErr("save template", err)
	}
	return nil
}

// SetTemplateContent replaces the content of one locale of a stored template
func (s *Service) SetTemplateContent(id, loc, text string) (models.Template, error) {
	t, err := s.GetTemplate(id)
	if err != nil {
		return models.Template{}, err
	}
	t = placeholder.SetContent(t, loc, text)
	if err := s.SaveTemplate(t); err != nil {
		return models.Template{}, err
	}
	return t, nil
}

// SetTemplateCover copies the image at src into the library and makes it
// the cover of template id. src may be a URL, a data URI or a local path;
// its content must be an image.
func (s *Service) SetTemplateCover(ctx context.Context, id, src string) (models.Template, error) {
	if src == "" {
		return models.Template{}, apperrors.ValidationError("cover image is required")
	}
	t, err := s.GetTemplate(id)
	if err != nil {
		return models.Template{}, err
	}

	asset, err := s.assets.GetOrFetch(ctx, src)
	if err != nil {
		return models.Template{}, apperrors.NetworkError("fetch cover image", err).WithContext("src", src)
	}
	if !strings.HasPrefix(http.DetectContentType(asset.Data), "image/") {
		return models.Template{}, apperrors.NewAppError(apperrors.ErrCodeInvalidFormat, "cover is not an image").
			WithContext("src", src)
	}

	local, err := s.storage.PersistImage("cover_"+t.ID+imageExt(asset.ContentType, src), asset.Data)
	if err != nil {
		return models.Template{}, storageErr("save cover image", err)
	}
	s.assets.Invalidate(local)

	t.ImageURL = local
	if err := s.SaveTemplate(t); err != nil {
		return models.Template{}, err
	}
	s.logger.Info("template cover set", zap.String("template", t.ID), zap.String("path", local))
	return t, nil
}

// DeleteTemplate removes a template by id
func (s *Service) DeleteTemplate(id string) error {
	if err := s.storage.DeleteTemplate(id); err != nil {
		return storageErr("delete template", err)
	}
	return nil
}

// SearchTemplates fuzzy matches query against template names, ids and tags
// in loc. An empty query returns every template.
func (s *Service) SearchTemplates(query, loc string) ([]models.Template, error) {
	templates, err := s.ListTemplates()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(query) == "" {
		return templates, nil
	}

	searchStrings := make([]string, len(templates))
	for i, t := range templates {
		searchStrings[i] = strings.Join([]string{
			t.NameFor(loc),
			t.ID,
			strings.Join(t.Tags, " "),
		}, " ")
	}

	matches := fuzzy.Find(query, searchStrings)
	results := make([]models.Template, 0, len(matches))
	for _, match := range matches {
		results = append(results, templates[match.Index])
	}
	return results, nil
}

// OpenSession loads the library and opens a workstation session for a template
func (s *Service) OpenSession(ctx context.Context, templateID, loc string) (workstation.Session, error) {
	if err := s.LoadLibrary(ctx); err != nil {
		return workstation.Session{}, err
	}
	t, err := s.GetTemplate(templateID)
	if err != nil {
		return workstation.Session{}, err
	}
	if loc == "" {
		loc = s.DefaultLocale()
	}
	return workstation.New(t, loc, s.Banks(), s.Categories()), nil
}

// SessionState is the client-held state of a workstation session. Content,
// when set, replaces the stored content of the locale before selections are
// replayed.
type SessionState struct {
	TemplateID string            `json:"templateId"`
	Locale     string            `json:"locale,omitempty"`
	Content    *string           `json:"content,omitempty"`
	Selections map[string]string `json:"selections,omitempty"`
}

// RestoreSession reopens a session and replays state onto it
func (s *Service) RestoreSession(ctx context.Context, state SessionState) (workstation.Session, error) {
	session, err := s.OpenSession(ctx, state.TemplateID, state.Locale)
	if err != nil {
		return workstation.Session{}, err
	}
	if state.Content != nil {
		session = session.EditContent(*state.Content)
	}
	for id, value := range state.Selections {
		session = session.Select(id, value)
	}
	return session, nil
}

// SaveSelection stores the user selections of a session under name
func (s *Service) SaveSelection(session workstation.Session, name string) error {
	name = validation.SanitizeString(name)
	if err := validation.Selection(session.Template.ID, name); err != nil {
		return err
	}
	sel := storage.SavedSelection{
		Name:       name,
		TemplateID: session.Template.ID,
		Values:     session.Overrides.Selections(),
	}
	if err := s.storage.SaveSelection(sel); err != nil {
		return storageErr("save selection", err)
	}
	return nil
}

// ApplySelection replays a saved selection onto session
func (s *Service) ApplySelection(session workstation.Session, name string) (workstation.Session, error) {
	sel, err := s.storage.GetSelection(session.Template.ID, name)
	if err != nil {
		return session, storageErr("load selection", err)
	}
	for id, value := range sel.Values {
		session = session.Select(id, value)
	}
	return session, nil
}

// ListSelections returns the saved selections of a template
func (s *Service) ListSelections(templateID string) ([]storage.SavedSelection, error) {
	list, err := s.storage.LoadSelections(templateID)
	if err != nil {
		return nil, storageErr("load selections", err)
	}
	return list, nil
}

// DeleteSelection removes a saved selection
func (s *Service) DeleteSelection(templateID, name string) error {
	if err := s.storage.DeleteSelection(templateID, name); err != nil {
		return storageErr("delete selection", err)
	}
	return nil
}
