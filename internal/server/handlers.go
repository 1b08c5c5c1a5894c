// Package server provides HTTP handlers and server setup for the farmer assistant.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"agrimitra/internal/assist"
	"agrimitra/internal/core"
	"agrimitra/internal/uploads"
)

// Assistant is the set of feature operations the handlers expose.
type Assistant interface {
	Diagnose(ctx context.Context, image []byte, mimeType string, lang core.Language) (*assist.Diagnosis, error)
	Chat(ctx context.Context, message string, lang core.Language) (string, error)
	Therapy(ctx context.Context, message string, lang core.Language) (*assist.TherapyReply, error)
	Translate(ctx context.Context, texts []string, target core.Language) (*assist.Translation, error)
	Weather(ctx context.Context, lat, lon float64, lang core.Language) (*assist.WeatherReport, error)
	Schemes(ctx context.Context, lang core.Language) (*assist.SchemeList, error)
}

// UploadStore holds uploaded images for the duration of a request.
type UploadStore interface {
	Save(r io.Reader) (path, mimeType string, err error)
	Read(path string) ([]byte, error)
	Remove(path string) error
}

// Handler holds the HTTP handlers
type Handler struct {
	assistant Assistant
	uploads   UploadStore
}

// NewHandler creates a new handler
func NewHandler(assistant Assistant, uploads UploadStore) *Handler {
	return &Handler{
		assistant: assistant,
		uploads:   uploads,
	}
}

type messageRequest struct {
	Message string `json:"message"`
	Lang    string `json:"lang"`
}

type translateRequest struct {
	Texts  []string `json:"texts" validate:"required,min=1"`
	Target string   `json:"target"`
}

type weatherQuery struct {
	Lat float64 `validate:"latitude"`
	Lon float64 `validate:"longitude"`
}

// remoteContext detaches feature calls from client cancellation so an in-flight retry
// loop runs to completion.
func remoteContext(c echo.Context) context.Context {
	return context.WithoutCancel(c.Request().Context())
}

// Analyze handles POST /analyze
func (h *Handler) Analyze(c echo.Context) error {
	lang := core.ParseLanguage(c.QueryParam("lang"))

	file, err := c.FormFile("image")
	if err != nil {
		return handleError(c, core.NewValidationError("Missing 'image' upload", err), "")
	}
	src, err := file.Open()
	if err != nil {
		return handleError(c, core.NewValidationError("Unreadable 'image' upload", err), "")
	}
	defer func() {
		_ = src.Close()
	}()

	path, mimeType, err := h.uploads.Save(src)
	if err != nil {
		if errors.Is(err, uploads.ErrNotImage) || errors.Is(err, uploads.ErrTooLarge) || errors.Is(err, uploads.ErrEmpty) {
			return handleError(c, core.NewValidationError(err.Error(), err), "")
		}
		return handleError(c, err, "Failed to analyze image")
	}
	defer func() {
		if err := h.uploads.Remove(path); err != nil {
			slog.Warn("failed to delete upload", "path", path, "error", err)
		}
	}()

	image, err := h.uploads.Read(path)
	if err != nil {
		return handleError(c, err, "Failed to analyze image")
	}

	result, err := h.assistant.Diagnose(remoteContext(c), image, mimeType, lang)
	if err != nil {
		return handleError(c, err, "Failed to analyze image")
	}
	return c.JSON(http.StatusOK, result)
}

// Chat handles POST /chat
func (h *Handler) Chat(c echo.Context) error {
	var req messageRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, core.NewValidationError("Missing 'message' in request body", err), "")
	}

	reply, err := h.assistant.Chat(remoteContext(c), req.Message, core.ParseLanguage(req.Lang))
	if err != nil {
		return handleError(c, err, "Chat failed")
	}
	return c.JSON(http.StatusOK, map[string]string{"reply": reply})
}

// Therapy handles POST /therapy
func (h *Handler) Therapy(c echo.Context) error {
	var req messageRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, core.NewValidationError("Missing 'message' in request body", err), "")
	}

	reply, err := h.assistant.Therapy(remoteContext(c), req.Message, core.ParseLanguage(req.Lang))
	if err != nil {
		return handleError(c, err, "Therapy chat failed")
	}
	return c.JSON(http.StatusOK, reply)
}

// Translate handles POST /translate
func (h *Handler) Translate(c echo.Context) error {
	var req translateRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, core.NewValidationError("'texts' must be a non-empty array", err), "")
	}
	if err := c.Validate(&req); err != nil {
		return handleError(c, core.NewValidationError("'texts' must be a non-empty array", err), "")
	}

	// Hindi is the default target: the frontend translates English UI text.
	target := core.Hindi
	if req.Target != "" {
		target = core.ParseLanguage(req.Target)
	}

	result, err := h.assistant.Translate(remoteContext(c), req.Texts, target)
	if err != nil {
		return handleError(c, err, "Translate failed")
	}
	return c.JSON(http.StatusOK, result)
}

// Weather handles GET /weather
func (h *Handler) Weather(c echo.Context) error {
	invalid := core.NewValidationError("Invalid or missing lat/lon", nil)

	lat, err := strconv.ParseFloat(c.QueryParam("lat"), 64)
	if err != nil {
		return handleError(c, invalid, "")
	}
	lon, err := strconv.ParseFloat(c.QueryParam("lon"), 64)
	if err != nil {
		return handleError(c, invalid, "")
	}
	if err := c.Validate(&weatherQuery{Lat: lat, Lon: lon}); err != nil {
		return handleError(c, invalid, "")
	}

	report, err := h.assistant.Weather(remoteContext(c), lat, lon, core.ParseLanguage(c.QueryParam("lang")))
	if err != nil {
		return handleError(c, err, "Weather failed")
	}
	return c.JSON(http.StatusOK, report)
}

// Schemes handles GET /schemes
func (h *Handler) Schemes(c echo.Context) error {
	list, err := h.assistant.Schemes(remoteContext(c), core.ParseLanguage(c.QueryParam("lang")))
	if err != nil {
		return handleError(c, err, "Schemes fetch failed")
	}
	return c.JSON(http.StatusOK, list)
}

// Health handles GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// handleError converts application errors to {"error": msg} responses. Unexpected
// errors are logged and reported with fallback, or a generic message when it is empty.
func handleError(c echo.Context, err error, fallback string) error {
	var appErr *core.AppError
	if errors.As(err, &appErr) {
		if appErr.Kind != core.ErrorKindValidation {
			slog.Error("request failed",
				"path", c.Path(),
				"request_id", core.GetRequestID(c.Request().Context()),
				"error", err,
			)
		}
		return c.JSON(appErr.HTTPStatusCode(), appErr.ToJSON())
	}

	slog.Error("unexpected error",
		"path", c.Path(),
		"request_id", core.GetRequestID(c.Request().Context()),
		"error", err,
	)
	if fallback == "" {
		fallback = "an unexpected error occurred"
	}
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": fallback})
}
