package assist

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"agrimitra/internal/aitext"
	"agrimitra/internal/core"
)

// Translation is the result of a batch translation.
type Translation struct {
	Translations []string `json:"translations"`
	// Raw is the model's reply. It is empty when the result came from the cache.
	Raw string `json:"raw"`
}

// Translate translates texts into target, preserving order and length. When the reply
// cannot be used, the inputs are echoed back.
func (s *Service) Translate(ctx context.Context, texts []string, target core.Language) (*Translation, error) {
	if len(texts) == 0 {
		return nil, core.NewValidationError("'texts' must be a non-empty array", nil)
	}

	input, err := json.Marshal(struct {
		Texts []string `json:"texts"`
	}{texts})
	if err != nil {
		return nil, core.NewInternalError("Translate failed", err)
	}

	stored, cached, err := s.caches.Translations.GetOrLoad(ctx, translationKey(target, input), func(ctx context.Context) (*Translation, error) {
		text, err := s.gen.GenerateText(ctx, translationPrompt(target, string(input)))
		if err != nil {
			logRemoteError(ctx, "translate", err)
			return &Translation{Translations: echo(texts)}, errUncacheable
		}

		var parsed struct {
			Translations []string `json:"translations"`
		}
		if !aitext.ExtractInto(text, &parsed) || len(parsed.Translations) != len(texts) {
			return &Translation{Translations: echo(texts), Raw: text}, nil
		}
		return &Translation{Translations: parsed.Translations, Raw: text}, nil
	})
	if err != nil && !errors.Is(err, errUncacheable) {
		return nil, core.NewInternalError("Translate failed", err)
	}

	// Stored entries are shared; hand out a copy.
	result := *stored
	if cached {
		result.Raw = ""
	}
	return &result, nil
}

// translationKey hashes the encoded input so long batches produce short, collision-resistant keys.
func translationKey(target core.Language, input []byte) string {
	return "tr:" + string(target) + ":" + strconv.FormatUint(xxhash.Sum64(input), 16)
}

func echo(texts []string) []string {
	out := make([]string, len(texts))
	copy(out, texts)
	return out
}
