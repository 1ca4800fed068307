package api

import (
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/dpshade/spark-prompt/internal/errors"
	"github.com/dpshade/spark-prompt/internal/locale"
	"github.com/dpshade/spark-prompt/internal/models"
	"github.com/dpshade/spark-prompt/internal/renderer"
	"github.com/dpshade/spark-prompt/internal/service"
	"github.com/dpshade/spark-prompt/internal/workstation"
)

// SessionRequest carries the client-held session state of a template
type SessionRequest struct {
	Locale     string            `json:"locale,omitempty"`
	Content    *string           `json:"content,omitempty"`
	Selections map[string]string `json:"selections,omitempty"`
}

// InsertRequest inserts {{key}} at cursor (a rune index) into the content
type InsertRequest struct {
	SessionRequest
	Cursor int    `json:"cursor"`
	Key    string `json:"key"`
}

// GenerateRequest sends the resolved prompt of a session to the provider
type GenerateRequest struct {
	SessionRequest
	Model      string         `json:"model,omitempty"`
	Size       string         `json:"size,omitempty"`
	Images     []string       `json:"images,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// SessionResponse is the state of a session after an operation
type SessionResponse struct {
	TemplateID string                   `json:"templateId"`
	Locale     string                   `json:"locale"`
	Content    string                   `json:"content"`
	Blocks     []renderer.BlockNode     `json:"blocks,omitempty"`
	Variables  []*renderer.VariableSpan `json:"variables,omitempty"`
	Prompt     string                   `json:"prompt,omitempty"`
	Selections map[string]string        `json:"selections"`
}

func newSessionResponse(session workstation.Session) SessionResponse {
	return SessionResponse{
		TemplateID: session.Template.ID,
		Locale:     session.Locale,
		Content:    session.Content(),
		Selections: session.Overrides.Selections(),
	}
}

// session restores the session named by the path from the request body
func (s *APIServer) session(r *http.Request, req SessionRequest) (workstation.Session, error) {
	loc := req.Locale
	if loc == "" {
		loc = r.URL.Query().Get("locale")
	}
	if loc != "" {
		loc = locale.Normalize(loc)
	}
	return s.service.RestoreSession(r.Context(), service.SessionState{
		TemplateID: r.PathValue("id"),
		Locale:     loc,
		Content:    req.Content,
		Selections: req.Selections,
	})
}

func (s *APIServer) locale(r *http.Request) string {
	if loc := r.URL.Query().Get("locale"); loc != "" {
		return locale.Normalize(loc)
	}
	return s.service.DefaultLocale()
}

// handleListTemplates handles GET /api/v1/templates
func (s *APIServer) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.service.SearchTemplates(r.URL.Query().Get("q"), s.locale(r))
	if err != nil {
		s.writeError(w, err)
		return
	}

	if limit := r.URL.Query().Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			s.writeError(w, errors.ValidationError("limit must be a non-negative integer"))
			return
		}
		if n < len(templates) {
			templates = templates[:n]
		}
	}

	s.writeResponse(w, templates, "", http.StatusOK)
}

// handleCreateTemplate handles POST /api/v1/templates
func (s *APIServer) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var t models.Template
	if err := decodeBody(r, &t); err != nil {
		s.writeError(w, err)
		return
	}
	created, err := s.service.CreateTemplate(t)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResponse(w, created, "Template created", http.StatusCreated)
}

// handleGetTemplate handles GET /api/v1/templates/{id}
func (s *APIServer) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := s.service.GetTemplate(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResponse(w, t, "", http.StatusOK)
}

// handleUpdateTemplate handles PUT /api/v1/templates/{id}
func (s *APIServer) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.service.GetTemplate(id); err != nil {
		s.writeError(w, err)
		return
	}

	var t models.Template
	if err := decodeBody(r, &t); err != nil {
		s.writeError(w, err)
		return
	}
	t.ID = id
	if err := s.service.SaveTemplate(t); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResponse(w, t, "Template updated", http.StatusOK)
}

// handleDeleteTemplate handles DELETE /api/v1/templates/{id}
func (s *APIServer) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteTemplate(r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResponse(w, nil, "Template deleted", http.StatusOK)
}

// CoverRequest names the image to copy in as a template cover
type CoverRequest struct {
	Src string `json:"src"`
}

// handleSetCover handles PUT /api/v1/templates/{id}/cover
func (s *APIServer) handleSetCover(w http.ResponseWriter, r *http.Request) {
	var req CoverRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	t, err := s.service.SetTemplateCover(r.Context(), r.PathValue("id"), req.Src)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResponse(w, t, "Cover updated", http.StatusOK)
}

// handleRender handles POST /api/v1/templates/{id}/render
func (s *APIServer) handleRender(w http.ResponseWriter, r *http.Request) {
	var req SessionRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	session, err := s.session(r, req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := newSessionResponse(session)
	resp.Blocks = session.Blocks()
	resp.Variables = renderer.Variables(resp.Blocks)
	s.writeResponse(w, resp, "", http.StatusOK)
}

// handlePrompt handles POST /api/v1/templates/{id}/prompt
func (s *APIServer) handlePrompt(w http.ResponseWriter, r *http.Request) {
	var req SessionRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	session, err := s.session(r, req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := newSessionResponse(session)
	resp.Prompt = session.Prompt()
	s.writeResponse(w, resp, "", http.StatusOK)
}

// handleInsert handles POST /api/v1/templates/{id}/insert. The stored template
// is not modified; clients send the returned content back with later requests.
func (s *APIServer) handleInsert(w http.ResponseWriter, r *http.Request) {
	var req InsertRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if req.Key == "" {
		s.writeError(w, errors.NewAppError(errors.ErrCodeMissingField, "key is required"))
		return
	}
	session, err := s.session(r, req.SessionRequest)
	if err != nil {
		s.writeError(w, err)
		return
	}

	session = session.InsertToken(req.Cursor, req.Key)
	resp := newSessionResponse(session)
	resp.Blocks = session.Blocks()
	resp.Variables = renderer.Variables(resp.Blocks)
	s.writeResponse(w, resp, "", http.StatusOK)
}

// handleGenerate handles POST /api/v1/templates/{id}/generate
func (s *APIServer) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	session, err := s.session(r, req.SessionRequest)
	if err != nil {
		s.writeError(w, err)
		return
	}

	record, err := s.service.Generate(r.Context(), session, service.GenerateOptions{
		Model:      req.Model,
		Size:       req.Size,
		Images:     req.Images,
		Parameters: req.Parameters,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResponse(w, record, "Generation complete", http.StatusCreated)
}

// handleListSelections handles GET /api/v1/templates/{id}/selections
func (s *APIServer) handleListSelections(w http.ResponseWriter, r *http.Request) {
	list, err := s.service.ListSelections(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResponse(w, list, "", http.StatusOK)
}

// handleListBanks handles GET /api/v1/banks
func (s *APIServer) handleListBanks(w http.ResponseWriter, r *http.Request) {
	if err := s.service.LoadLibrary(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	matches := s.service.SearchBanks("", r.URL.Query().Get("category"), s.locale(r))
	s.writeResponse(w, matches, "", http.StatusOK)
}

// handleSearchBanks handles GET /api/v1/banks/search
func (s *APIServer) handleSearchBanks(w http.ResponseWriter, r *http.Request) {
	if err := s.service.LoadLibrary(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	query := r.URL.Query()
	matches := s.service.SearchBanks(query.Get("q"), query.Get("category"), s.locale(r))
	s.writeResponse(w, matches, "", http.StatusOK)
}

// handleSaveBank handles PUT /api/v1/banks/{key}
func (s *APIServer) handleSaveBank(w http.ResponseWriter, r *http.Request) {
	var item models.BankItem
	if err := decodeBody(r, &item); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.service.SaveBank(r.PathValue("key"), item); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResponse(w, item, "Bank saved", http.StatusOK)
}

// handleDeleteBank handles DELETE /api/v1/banks/{key}
func (s *APIServer) handleDeleteBank(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteBank(r.PathValue("key")); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResponse(w, nil, "Bank deleted", http.StatusOK)
}

// CategoryResponse is a category with its label in the requested locale
type CategoryResponse struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Color string `json:"color"`
}

// handleCategories handles GET /api/v1/categories
func (s *APIServer) handleCategories(w http.ResponseWriter, r *http.Request) {
	if err := s.service.LoadLibrary(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	loc := s.locale(r)
	categories := s.service.Categories()
	out := make([]CategoryResponse, 0, len(categories))
	for _, id := range sortedKeys(categories) {
		c := categories[id]
		out = append(out, CategoryResponse{ID: id, Label: c.LabelFor(loc), Color: c.Color})
	}
	s.writeResponse(w, out, "", http.StatusOK)
}

// handleSaveCategory handles PUT /api/v1/categories/{id}
func (s *APIServer) handleSaveCategory(w http.ResponseWriter, r *http.Request) {
	var cat models.Category
	if err := decodeBody(r, &cat); err != nil {
		s.writeError(w, err)
		return
	}
	id := r.PathValue("id")
	if err := s.service.SaveCategory(id, cat); err != nil {
		s.writeError(w, err)
		return
	}
	cat.ID = id
	s.writeResponse(w, cat, "Category saved", http.StatusOK)
}

// handleDeleteCategory handles DELETE /api/v1/categories/{id}
func (s *APIServer) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteCategory(r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResponse(w, nil, "Category deleted", http.StatusOK)
}

// handleAsset handles GET /api/v1/assets?src=
func (s *APIServer) handleAsset(w http.ResponseWriter, r *http.Request) {
	asset, err := s.service.FetchAsset(r.Context(), r.URL.Query().Get("src"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	contentType := asset.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(asset.Data)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(asset.Data)
}

// handleHistory handles GET /api/v1/history
func (s *APIServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.service.History()
	if err != nil {
		s.writeError(w, err)
		return
	}
	if templateID := r.URL.Query().Get("template"); templateID != "" {
		filtered := history[:0]
		for _, record := range history {
			if record.TemplateID == templateID {
				filtered = append(filtered, record)
			}
		}
		history = filtered
	}
	s.writeResponse(w, history, "", http.StatusOK)
}

// handleDeleteHistory handles DELETE /api/v1/history/{id}
func (s *APIServer) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteHistoryRecord(r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeResponse(w, nil, "History record deleted", http.StatusOK)
}

// HealthStatus reports library and cache state
type HealthStatus struct {
	Status     string  `json:"status"`
	Uptime     string  `json:"uptime"`
	Templates  int     `json:"templates"`
	Banks      int     `json:"banks"`
	Categories int     `json:"categories"`
	Provider   bool    `json:"provider"`
	AssetCache any     `json:"assetCache"`
	HitRate    float64 `json:"assetHitRate"`
}

// handleHealth handles GET /api/v1/health
func (s *APIServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.service.LoadLibrary(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	templates, err := s.service.ListTemplates()
	if err != nil {
		s.writeError(w, err)
		return
	}

	stats := s.service.AssetStats()
	var hitRate float64
	if total := stats.Hits + stats.Misses; total > 0 {
		hitRate = float64(stats.Hits) / float64(total)
	}

	s.writeResponse(w, HealthStatus{
		Status:     "healthy",
		Uptime:     time.Since(s.started).Round(time.Second).String(),
		Templates:  len(templates),
		Banks:      len(s.service.Banks()),
		Categories: len(s.service.Categories()),
		Provider:   s.service.Config().Provider.Configured(),
		AssetCache: stats,
		HitRate:    hitRate,
	}, "", http.StatusOK)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
