package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agrimitra/internal/assist"
	"agrimitra/internal/core"
	"agrimitra/internal/uploads"
)

// mockAssistant records the arguments of the last call and returns canned results.
type mockAssistant struct {
	mu sync.Mutex

	lang      core.Language
	message   string
	texts     []string
	lat, lon  float64
	image     []byte
	ctxErr    error
	requestID string

	diagnosis *assist.Diagnosis
	reply     string
	therapy   *assist.TherapyReply
	tr        *assist.Translation
	report    *assist.WeatherReport
	schemes   *assist.SchemeList
	err       error
}

func (m *mockAssistant) record(ctx context.Context, lang core.Language) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lang = lang
	m.ctxErr = ctx.Err()
	m.requestID = core.GetRequestID(ctx)
}

func (m *mockAssistant) Diagnose(ctx context.Context, image []byte, _ string, lang core.Language) (*assist.Diagnosis, error) {
	m.record(ctx, lang)
	m.image = image
	return m.diagnosis, m.err
}

func (m *mockAssistant) Chat(ctx context.Context, message string, lang core.Language) (string, error) {
	m.record(ctx, lang)
	m.message = message
	return m.reply, m.err
}

func (m *mockAssistant) Therapy(ctx context.Context, message string, lang core.Language) (*assist.TherapyReply, error) {
	m.record(ctx, lang)
	m.message = message
	return m.therapy, m.err
}

func (m *mockAssistant) Translate(ctx context.Context, texts []string, target core.Language) (*assist.Translation, error) {
	m.record(ctx, target)
	m.texts = texts
	return m.tr, m.err
}

func (m *mockAssistant) Weather(ctx context.Context, lat, lon float64, lang core.Language) (*assist.WeatherReport, error) {
	m.record(ctx, lang)
	m.lat, m.lon = lat, lon
	return m.report, m.err
}

func (m *mockAssistant) Schemes(ctx context.Context, lang core.Language) (*assist.SchemeList, error) {
	m.record(ctx, lang)
	return m.schemes, m.err
}

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func newTestHandler(t *testing.T, m *mockAssistant) (*Handler, *uploads.Store) {
	t.Helper()
	store, err := uploads.NewStore(t.TempDir(), 0)
	require.NoError(t, err)
	return NewHandler(m, store), store
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = newRequestValidator()
	return e
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func multipartImage(t *testing.T, field string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, "leaf.png")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestAnalyze(t *testing.T) {
	m := &mockAssistant{diagnosis: &assist.Diagnosis{Result: "ok", Parsed: map[string]any{"disease": "none"}}}
	h, store := newTestHandler(t, m)
	e := newTestEcho()

	body, contentType := multipartImage(t, "image", pngBytes)
	req := httptest.NewRequest(http.MethodPost, "/analyze?lang=hi", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()

	require.NoError(t, h.Analyze(e.NewContext(req, rec)))

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody(t, rec)
	assert.Equal(t, "ok", resp["result"])
	assert.Nil(t, resp["result_translated"])
	assert.Equal(t, core.Hindi, m.lang)
	assert.Equal(t, pngBytes, m.image)

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries, "upload must be deleted after the call")
}

func TestAnalyze_DeletesUploadOnFailure(t *testing.T) {
	m := &mockAssistant{err: errors.New("boom")}
	h, store := newTestHandler(t, m)
	e := newTestEcho()

	body, contentType := multipartImage(t, "image", pngBytes)
	req := httptest.NewRequest(http.MethodPost, "/analyze", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()

	require.NoError(t, h.Analyze(e.NewContext(req, rec)))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to analyze image", decodeBody(t, rec)["error"])

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAnalyze_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		field   string
		content []byte
		wantMsg string
	}{
		{"missing field", "photo", pngBytes, "Missing 'image' upload"},
		{"not an image", "image", []byte("hello world"), "uploaded file is not an image"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockAssistant{}
			h, store := newTestHandler(t, m)
			e := newTestEcho()

			body, contentType := multipartImage(t, tt.field, tt.content)
			req := httptest.NewRequest(http.MethodPost, "/analyze", body)
			req.Header.Set(echo.HeaderContentType, contentType)
			rec := httptest.NewRecorder()

			require.NoError(t, h.Analyze(e.NewContext(req, rec)))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, decodeBody(t, rec)["error"], tt.wantMsg)
			assert.Nil(t, m.image, "assistant must not be called")

			entries, err := os.ReadDir(store.Dir())
			require.NoError(t, err)
			assert.Empty(t, entries, "rejected upload must not stay on disk")
		})
	}
}

func postJSON(t *testing.T, e *echo.Echo, handler echo.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	require.NoError(t, handler(e.NewContext(req, rec)))
	return rec
}

func TestChat(t *testing.T) {
	m := &mockAssistant{reply: "Use drip irrigation."}
	h, _ := newTestHandler(t, m)

	rec := postJSON(t, newTestEcho(), h.Chat, `{"message": "How to save water?", "lang": "hi-IN"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"reply": "Use drip irrigation."}, decodeBody(t, rec))
	assert.Equal(t, "How to save water?", m.message)
	assert.Equal(t, core.Hindi, m.lang)
}

func TestChat_InvalidBody(t *testing.T) {
	h, _ := newTestHandler(t, &mockAssistant{})

	rec := postJSON(t, newTestEcho(), h.Chat, `{"message": 42}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing 'message' in request body", decodeBody(t, rec)["error"])
}

func TestChat_ValidationErrorFromAssistant(t *testing.T) {
	m := &mockAssistant{err: core.NewValidationError("Missing 'message' in request body", nil)}
	h, _ := newTestHandler(t, m)

	rec := postJSON(t, newTestEcho(), h.Chat, `{}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, map[string]any{"error": "Missing 'message' in request body"}, decodeBody(t, rec))
}

func TestTherapy(t *testing.T) {
	m := &mockAssistant{therapy: &assist.TherapyReply{Reply: "I'm here.", Crisis: true}}
	h, _ := newTestHandler(t, m)

	rec := postJSON(t, newTestEcho(), h.Therapy, `{"message": "I can't go on", "lang": "en"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"reply": "I'm here.", "crisis": true}, decodeBody(t, rec))
}

func TestTranslate(t *testing.T) {
	m := &mockAssistant{tr: &assist.Translation{Translations: []string{"नमस्ते"}, Raw: "raw"}}
	h, _ := newTestHandler(t, m)

	rec := postJSON(t, newTestEcho(), h.Translate, `{"texts": ["Hello"]}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"translations": []any{"नमस्ते"}, "raw": "raw"}, decodeBody(t, rec))
	assert.Equal(t, []string{"Hello"}, m.texts)
	assert.Equal(t, core.Hindi, m.lang, "target defaults to Hindi")

	postJSON(t, newTestEcho(), h.Translate, `{"texts": ["नमस्ते"], "target": "en"}`)
	assert.Equal(t, core.English, m.lang)
}

func TestTranslate_Invalid(t *testing.T) {
	for _, body := range []string{`{}`, `{"texts": []}`, `{"texts": "Hello"}`} {
		t.Run(body, func(t *testing.T) {
			m := &mockAssistant{}
			h, _ := newTestHandler(t, m)

			rec := postJSON(t, newTestEcho(), h.Translate, body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "'texts' must be a non-empty array", decodeBody(t, rec)["error"])
			assert.Nil(t, m.texts)
		})
	}
}

func getQuery(t *testing.T, handler echo.HandlerFunc, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	require.NoError(t, handler(newTestEcho().NewContext(req, rec)))
	return rec
}

func TestWeather(t *testing.T) {
	prob := 40.0
	m := &mockAssistant{report: &assist.WeatherReport{
		Current: map[string]any{"temperature_2m": 30.5},
		Summary: "Dry day",
	}}
	m.report.Rain.Next3hMaxProbability = &prob
	h, _ := newTestHandler(t, m)

	rec := getQuery(t, h.Weather, "/weather?lat=28.61&lon=77.20&lang=hi")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Dry day", body["summary"])
	rain := body["rain"].(map[string]any)
	assert.Equal(t, 40.0, rain["next_3h_max_probability"])
	assert.Nil(t, rain["now_probability"])
	assert.Equal(t, 28.61, m.lat)
	assert.Equal(t, 77.20, m.lon)
	assert.Equal(t, core.Hindi, m.lang)
}

func TestWeather_InvalidCoordinates(t *testing.T) {
	targets := []string{
		"/weather",
		"/weather?lat=abc&lon=1",
		"/weather?lat=1",
		"/weather?lat=NaN&lon=1",
		"/weather?lat=1&lon=Inf",
		"/weather?lat=91&lon=1",
		"/weather?lat=1&lon=-181",
	}
	for _, target := range targets {
		t.Run(target, func(t *testing.T) {
			m := &mockAssistant{}
			h, _ := newTestHandler(t, m)

			rec := getQuery(t, h.Weather, target)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, map[string]any{"error": "Invalid or missing lat/lon"}, decodeBody(t, rec))
		})
	}
}

func TestWeather_ProviderFailure(t *testing.T) {
	m := &mockAssistant{err: core.NewUpstreamError("Weather provider error", errors.New("503"))}
	h, _ := newTestHandler(t, m)

	rec := getQuery(t, h.Weather, "/weather?lat=1&lon=1")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, map[string]any{"error": "Weather provider error"}, decodeBody(t, rec))
}

func TestSchemes(t *testing.T) {
	m := &mockAssistant{schemes: &assist.SchemeList{
		Schemes: []assist.Scheme{{Title: "PM-KISAN", HowToApply: "Online"}},
	}}
	h, _ := newTestHandler(t, m)

	rec := getQuery(t, h.Schemes, "/schemes?lang=HI")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	schemes := body["schemes"].([]any)
	require.Len(t, schemes, 1)
	assert.Equal(t, "Online", schemes[0].(map[string]any)["how_to_apply"])
	assert.Equal(t, core.Hindi, m.lang)
}

func TestHandlers_DetachFromClientCancellation(t *testing.T) {
	m := &mockAssistant{schemes: &assist.SchemeList{}}
	h, _ := newTestHandler(t, m)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/schemes", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	require.NoError(t, h.Schemes(newTestEcho().NewContext(req, rec)))
	assert.NoError(t, m.ctxErr)
}

func TestHealth(t *testing.T) {
	h, _ := newTestHandler(t, &mockAssistant{})
	rec := getQuery(t, h.Health, "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"status": "ok"}, decodeBody(t, rec))
}
