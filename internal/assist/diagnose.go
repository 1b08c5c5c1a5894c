package assist

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"agrimitra/internal/aitext"
	"agrimitra/internal/core"
	"agrimitra/internal/pkg/llmclient"
)

// Diagnosis is the crop-image analysis result.
type Diagnosis struct {
	// Result is the model's text, or a localized message when analysis failed.
	Result string `json:"result"`
	// Parsed is the structured {disease, cause, remedies} payload when one was recovered.
	Parsed map[string]any `json:"parsed"`
	// ResultTranslated is the Hindi rendering of Result when no payload was recovered.
	ResultTranslated *string `json:"result_translated"`
}

// Diagnose asks the model to identify crop disease in image. Remote failures are folded
// into Result rather than returned; only invalid input yields an error.
func (s *Service) Diagnose(ctx context.Context, image []byte, mimeType string, lang core.Language) (*Diagnosis, error) {
	if len(image) == 0 {
		return nil, core.NewValidationError("Missing 'image' upload", nil)
	}

	text, err := s.gen.GenerateWithImage(ctx, diagnosisPrompt(lang), image, mimeType)

	out := &Diagnosis{Result: diagnosisApology(lang)}
	switch {
	case err != nil:
		logRemoteError(ctx, "analyze", err)
		out.Result = diagnosisErrorText(err, lang)
	case text != "":
		out.Result = text
	}

	parsed, ok := aitext.Extract(out.Result)
	if ok {
		out.Parsed = parsed
	}

	if !lang.IsHindi() {
		return out, nil
	}

	if ok {
		if translated, tok := s.translatePayload(ctx, parsed); tok {
			out.Parsed = translated
		}
		return out, nil
	}

	if out.Result != "" {
		translated, err := s.gen.GenerateText(ctx, translateTextPrompt(out.Result))
		if err != nil {
			slog.Warn("hindi summary translation failed", "request_id", core.GetRequestID(ctx), "error", err)
		} else if translated != "" {
			out.ResultTranslated = &translated
		}
	}
	return out, nil
}

// translatePayload asks for value-level translation, keeping the keys.
// ok is false unless the reply also yields a payload.
func (s *Service) translatePayload(ctx context.Context, payload map[string]any) (map[string]any, bool) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, false
	}
	text, err := s.gen.GenerateText(ctx, translateValuesPrompt(string(encoded)))
	if err != nil {
		slog.Warn("hindi translation failed", "request_id", core.GetRequestID(ctx), "error", err)
		return nil, false
	}
	return aitext.Extract(text)
}

// diagnosisErrorText picks the text shown for a failed analysis call. Transient failures
// get the localized "try again later" message; others surface the provider message.
func diagnosisErrorText(err error, lang core.Language) string {
	var callErr *llmclient.CallError
	if !errors.As(err, &callErr) {
		return diagnosisApology(lang)
	}
	if callErr.IsUnavailable() || llmclient.IsTransient(callErr) {
		return unavailableMessage(lang)
	}
	if callErr.Message != "" {
		return callErr.Message
	}
	return diagnosisApology(lang)
}
