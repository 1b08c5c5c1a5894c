package assist

import (
	"context"
	"log/slog"
	"strings"

	"agrimitra/internal/core"
	"agrimitra/internal/guardrails"
)

// TherapyReply is the supportive-messaging response.
type TherapyReply struct {
	Reply  string `json:"reply"`
	Crisis bool   `json:"crisis"`
}

// Chat answers a single-turn agriculture question. No history is kept.
func (s *Service) Chat(ctx context.Context, message string, lang core.Language) (string, error) {
	if message == "" {
		return "", core.NewValidationError("Missing 'message' in request body", nil)
	}

	text, err := s.gen.GenerateText(ctx, chatPrompt(message, lang))
	if err != nil {
		logRemoteError(ctx, "chat", err)
	}
	reply := strings.TrimSpace(text)
	if reply == "" {
		return unavailableMessage(lang), nil
	}
	return reply, nil
}

// Therapy answers a supportive message. Crisis resources are appended whenever the
// message matches the crisis screen, whatever the model said. The disclaimer is always
// appended.
func (s *Service) Therapy(ctx context.Context, message string, lang core.Language) (*TherapyReply, error) {
	if message == "" {
		return nil, core.NewValidationError("Missing 'message' in request body", nil)
	}

	crisis := s.crisis.Detect(message)
	if crisis {
		slog.Warn("crisis screen matched",
			"patterns", s.crisis.Matches(message),
			"request_id", core.GetRequestID(ctx),
		)
	}

	text, err := s.gen.GenerateText(ctx, guardrails.WellbeingPrompt(message, lang))
	if err != nil {
		logRemoteError(ctx, "therapy", err)
	}

	reply := text
	if reply == "" {
		reply = guardrails.GroundingInvitation(lang)
	}
	if crisis {
		reply += guardrails.HelplineNote(lang)
	}
	reply += guardrails.Disclaimer(lang)

	return &TherapyReply{Reply: reply, Crisis: crisis}, nil
}
