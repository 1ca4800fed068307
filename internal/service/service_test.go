package service

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dpshade/spark-prompt/internal/config"
	apperrors "github.com/dpshade/spark-prompt/internal/errors"
	"github.com/dpshade/spark-prompt/internal/generation"
	"github.com/dpshade/spark-prompt/internal/models"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	t.Setenv(config.EnvLocale, "")
	t.Setenv(config.EnvDebug, "")

	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)
	svc, err := NewService(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, svc.InitLibrary())
	return svc
}

type fakeProvider struct {
	images []models.GeneratedImage
	last   generation.Request
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Generate(ctx context.Context, req generation.Request) (*generation.Response, error) {
	p.last = req
	return &generation.Response{Images: p.images, RequestID: "r-1"}, nil
}

func TestLoadLibraryOnce(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.LoadLibrary(ctx))
	assert.Contains(t, svc.Banks(), "art_style")

	require.NoError(t, svc.Storage().SaveBanks(models.BankMap{}))
	require.NoError(t, svc.LoadLibrary(ctx))
	assert.Contains(t, svc.Banks(), "art_style")

	require.NoError(t, svc.ReloadLibrary(ctx))
	assert.Empty(t, svc.Banks())
}

func TestLoadLibraryAsync(t *testing.T) {
	svc := newTestService(t)
	poll := svc.LoadLibraryAsync(context.Background())

	assert.Eventually(t, func() bool {
		done, err := poll()
		return done && err == nil
	}, time.Second, 5*time.Millisecond)

	done, err := poll()
	assert.True(t, done)
	assert.NoError(t, err)
	assert.NotEmpty(t, svc.Banks())
}

func TestTemplateLifecycle(t *testing.T) {
	svc := newTestService(t)

	created, err := svc.CreateTemplate(models.Template{
		Name:    models.LocalizedText{"en": "Moodboard"},
		Content: models.LocalizedText{"en": "A {{color}} board"},
		Tags:    []string{"mood"},
	})
	require.NoError(t, err)
	assert.Regexp(t, `^tpl_[0-9a-f-]{36}$`, created.ID)

	got, err := svc.GetTemplate(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Moodboard", got.NameFor("en"))

	updated, err := svc.SetTemplateContent(created.ID, "cn", "一个{{color}}板")
	require.NoError(t, err)
	assert.Equal(t, "一个{{color}}板", updated.ContentFor("cn"))
	assert.Equal(t, "A {{color}} board", updated.ContentFor("en"))

	found, err := svc.SearchTemplates("moodbrd", "en")
	require.NoError(t, err)
	require.NotEmpty(t, found)
	assert.Equal(t, created.ID, found[0].ID)

	require.NoError(t, svc.DeleteTemplate(created.ID))
	_, err = svc.GetTemplate(created.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))
}

func TestSaveTemplateValidation(t *testing.T) {
	svc := newTestService(t)
	err := svc.SaveTemplate(models.Template{Content: models.LocalizedText{"en": "x"}})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeMissingField))

	err = svc.SaveTemplate(models.Template{ID: "x"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeMissingField))
}

func TestSearchBanks(t *testing.T) {
	svc := newTestService(t)
	require.NoError(t, svc.LoadLibrary(context.Background()))

	all := svc.SearchBanks("", AllCategories, "en")
	assert.Len(t, all, len(svc.Banks()))

	scene := svc.SearchBanks("", "scene", "en")
	for _, m := range scene {
		assert.Equal(t, "scene", m.Category.ID)
	}
	assert.NotEmpty(t, scene)

	matches := svc.SearchBanks("light", "", "en")
	require.NotEmpty(t, matches)
	assert.Equal(t, "lighting", matches[0].Key)
	assert.Equal(t, "Lighting", matches[0].Label)
	assert.Equal(t, "Scene", matches[0].Category.Label)
	assert.NotEmpty(t, matches[0].Options)

	cn := svc.SearchBanks("光线", "", "cn")
	require.NotEmpty(t, cn)
	assert.Equal(t, "lighting", cn[0].Key)
}

func TestOpenSession(t *testing.T) {
	svc := newTestService(t)
	session, err := svc.OpenSession(context.Background(), "tpl_landscape", "en")
	require.NoError(t, err)

	assert.Equal(t, "A landscape of snowy mountains, soft morning light, in anime style.", session.Prompt())

	_, err = svc.OpenSession(context.Background(), "missing", "en")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))
}

func TestSelections(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	session, err := svc.OpenSession(ctx, "tpl_landscape", "en")
	require.NoError(t, err)

	require.NoError(t, svc.SaveSelection(session.Select("background_0", "a desert"), "dry"))

	fresh, err := svc.OpenSession(ctx, "tpl_landscape", "en")
	require.NoError(t, err)
	applied, err := svc.ApplySelection(fresh, "dry")
	require.NoError(t, err)
	assert.Contains(t, applied.Prompt(), "a desert")

	list, err := svc.ListSelections("tpl_landscape")
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, svc.DeleteSelection("tpl_landscape", "dry"))
	_, err = svc.ApplySelection(fresh, "dry")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))
}

func TestRestoreSession(t *testing.T) {
	svc := newTestService(t)
	content := "{{lighting}} over {{background}}"

	session, err := svc.RestoreSession(context.Background(), SessionState{
		TemplateID: "tpl_landscape",
		Locale:     "en",
		Content:    &content,
		Selections: map[string]string{"background_0": "the sea"},
	})
	require.NoError(t, err)
	assert.Equal(t, "soft morning light over the sea", session.Prompt())
	assert.Equal(t, map[string]string{"background_0": "the sea"}, session.Overrides.Selections())

	stored, err := svc.GetTemplate("tpl_landscape")
	require.NoError(t, err)
	assert.NotEqual(t, content, stored.ContentFor("en"))
}

func TestImportBankPack(t *testing.T) {
	svc := newTestService(t)
	require.NoError(t, svc.LoadLibrary(context.Background()))

	path := filepath.Join(t.TempDir(), "moods.yaml")
	pack := "banks:\n  mood:\n    label: {en: Mood}\n    category: scene\n    options:\n      - {en: calm}\n  color:\n    label: {en: Color}\n    options:\n      - {en: teal}\n"
	require.NoError(t, os.WriteFile(path, []byte(pack), 0644))

	res, err := svc.ImportBankPack(path)
	require.NoError(t, err)
	assert.Equal(t, "moods", res.Name)
	assert.Equal(t, []string{"color", "mood"}, res.Keys)
	assert.Equal(t, []string{"color"}, res.Conflicts)
	assert.Contains(t, svc.Banks(), "mood")

	_, ok := svc.Config().GetPack("moods")
	assert.True(t, ok)

	_, err = svc.ImportBankPack(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidFormat))
}

func TestSaveBankValidation(t *testing.T) {
	svc := newTestService(t)
	assert.True(t, apperrors.HasCode(svc.SaveBank("{bad}", models.BankItem{}), apperrors.ErrCodeValidation))
	require.NoError(t, svc.SaveBank("mood", models.BankItem{Options: []models.LocalizedText{{"en": "calm"}}}))
	require.NoError(t, svc.DeleteBank("mood"))
	assert.True(t, apperrors.HasCode(svc.DeleteBank("mood"), apperrors.ErrCodeNotFound))
}

func TestGenerate(t *testing.T) {
	var downloads atomic.Int32
	imgSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		downloads.Add(1)
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("\x89PNG"))
	}))
	defer imgSrv.Close()

	svc := newTestService(t)
	ctx := context.Background()

	session, err := svc.OpenSession(ctx, "tpl_landscape", "en")
	require.NoError(t, err)

	_, err = svc.Generate(ctx, session, GenerateOptions{})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotConfigured))

	provider := &fakeProvider{images: []models.GeneratedImage{{ID: "img1", URL: imgSrv.URL + "/out"}}}
	svc.SetProvider(provider)

	record, err := svc.Generate(ctx, session.Select("lighting_0", "moonlight"), GenerateOptions{Model: "m1"})
	require.NoError(t, err)

	assert.Equal(t, "A landscape of snowy mountains, moonlight, in anime style.", provider.last.Prompt)
	assert.Equal(t, "m1", provider.last.Model)
	assert.Equal(t, "fake", record.Params.Provider)
	assert.Equal(t, "tpl_landscape", record.TemplateID)
	require.Len(t, record.Images, 1)
	assert.Equal(t, filepath.Join(svc.Storage().ImagesDir(), "img1.png"), record.Images[0].URL)
	assert.Equal(t, int32(1), downloads.Load())

	history, err := svc.History()
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, record.ID, history[0].ID)

	require.NoError(t, svc.DeleteHistoryRecord(record.ID))
	_, err = os.Stat(record.Images[0].URL)
	assert.True(t, os.IsNotExist(err))
}

func TestGenerateKeepsRemoteURLOnDownloadFailure(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	svc.SetProvider(&fakeProvider{images: []models.GeneratedImage{{ID: "x", URL: "http://127.0.0.1:1/unreachable.png"}}})

	session, err := svc.OpenSession(ctx, "tpl_landscape", "en")
	require.NoError(t, err)
	record, err := svc.Generate(ctx, session, GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:1/unreachable.png", record.Images[0].URL)
}

func TestFetchAsset(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.FetchAsset(context.Background(), "")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))

	path := filepath.Join(svc.Storage().ImagesDir(), "cover.png")
	require.NoError(t, os.WriteFile(path, []byte("img"), 0644))
	asset, err := svc.FetchAsset(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "img", string(asset.Data))
	assert.Equal(t, 1, svc.AssetStats().Entries)

	asset, err = svc.FetchAsset(context.Background(), "images/cover.png")
	require.NoError(t, err)
	assert.Equal(t, "img", string(asset.Data))
}

func TestFetchAssetRejectsOutsideSources(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	outside := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(outside, []byte("secret"), 0644))
	_, err := svc.FetchAsset(ctx, outside)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodePermissionDenied))

	_, err = svc.FetchAsset(ctx, "../"+filepath.Base(filepath.Dir(outside))+"/notes.txt")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodePermissionDenied))

	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("remote"))
	}))
	defer ts.Close()

	_, err = svc.FetchAsset(ctx, ts.URL+"/internal")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodePermissionDenied))
	assert.Zero(t, hits.Load())

	tpl, err := svc.GetTemplate("tpl_landscape")
	require.NoError(t, err)
	tpl.ImageURLs = []string{ts.URL + "/cover.png"}
	require.NoError(t, svc.SaveTemplate(tpl))

	asset, err := svc.FetchAsset(ctx, ts.URL+"/cover.png")
	require.NoError(t, err)
	assert.Equal(t, "remote", string(asset.Data))
}

func TestGenerateInlinesLocalReferenceImages(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	provider := &fakeProvider{}
	svc.SetProvider(provider)

	ref := filepath.Join(t.TempDir(), "ref.png")
	require.NoError(t, os.WriteFile(ref, []byte("\x89PNG\r\n\x1a\nref"), 0644))

	session, err := svc.OpenSession(ctx, "tpl_landscape", "en")
	require.NoError(t, err)

	remote := "https://example.com/style.png"
	record, err := svc.Generate(ctx, session, GenerateOptions{Images: []string{ref, remote}})
	require.NoError(t, err)

	require.Len(t, provider.last.Images, 2)
	assert.Equal(t, "data:image/png;base64,"+base64.StdEncoding.EncodeToString([]byte("\x89PNG\r\n\x1a\nref")), provider.last.Images[0])
	assert.Equal(t, remote, provider.last.Images[1])
	assert.Equal(t, []string{ref, remote}, record.Params.Images)

	_, err = svc.Generate(ctx, session, GenerateOptions{Images: []string{filepath.Join(t.TempDir(), "missing.png")}})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidInput))
}

func TestSetTemplateCover(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\ncover")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}))
	defer srv.Close()

	svc := newTestService(t)
	ctx := context.Background()

	tpl, err := svc.SetTemplateCover(ctx, "tpl_landscape", srv.URL+"/art")
	require.NoError(t, err)
	want := filepath.Join(svc.Storage().ImagesDir(), "cover_tpl_landscape.png")
	assert.Equal(t, want, tpl.ImageURL)

	data, err := os.ReadFile(want)
	require.NoError(t, err)
	assert.Equal(t, png, data)

	stored, err := svc.GetTemplate("tpl_landscape")
	require.NoError(t, err)
	assert.Equal(t, want, stored.ImageURL)

	asset, err := svc.FetchAsset(ctx, stored.ImageURL)
	require.NoError(t, err)
	assert.Equal(t, png, asset.Data)

	notImage := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(notImage, []byte("plain text"), 0644))
	_, err = svc.SetTemplateCover(ctx, "tpl_landscape", notImage)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidFormat))

	_, err = svc.SetTemplateCover(ctx, "tpl_landscape", "")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))

	_, err = svc.SetTemplateCover(ctx, "missing", srv.URL+"/art")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))
}

func TestCategoryLifecycle(t *testing.T) {
	svc := newTestService(t)
	require.NoError(t, svc.LoadLibrary(context.Background()))

	require.NoError(t, svc.SaveCategory("mood", models.Category{ID: "ignored", Label: models.LocalizedText{"en": "Mood"}, Color: "amber"}))
	cat, ok := svc.Categories()["mood"]
	require.True(t, ok)
	assert.Equal(t, "mood", cat.ID)
	assert.Equal(t, "amber", cat.Color)

	assert.Error(t, svc.SaveCategory("", models.Category{}))

	require.NoError(t, svc.DeleteCategory("mood"))
	assert.NotContains(t, svc.Categories(), "mood")
	assert.True(t, apperrors.HasCode(svc.DeleteCategory("mood"), apperrors.ErrCodeNotFound))
}

func TestCorruptedLibraryRefusesWrites(t *testing.T) {
	svc := newTestService(t)
	path := filepath.Join(svc.Storage().JSONDir(), "templates.json")
	broken := []byte(`[{"id": "tpl_mine"`)
	require.NoError(t, os.WriteFile(path, broken, 0644))

	_, err := svc.CreateTemplate(models.Template{Content: models.LocalizedText{"en": "x"}})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeFileCorrupted))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, broken, data)

	templates, err := svc.ListTemplates()
	require.NoError(t, err)
	assert.Empty(t, templates)
}

func TestWatchLibraryReloads(t *testing.T) {
	svc := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, svc.LoadLibrary(ctx))

	var reloads atomic.Int32
	stop, err := svc.WatchLibrary(ctx, func() { reloads.Add(1) })
	require.NoError(t, err)
	defer stop()

	require.NoError(t, svc.Storage().SaveBanks(models.BankMap{"only": {}}))

	assert.Eventually(t, func() bool {
		_, ok := svc.Banks()["only"]
		return ok && reloads.Load() > 0
	}, 3*time.Second, 20*time.Millisecond)
}
