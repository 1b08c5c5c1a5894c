package aitext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_FencedMatchesUnwrapped(t *testing.T) {
	bodies := []string{
		`{"disease": "Leaf rust", "cause": "Fungus", "remedies": ["Spray fungicide", "Remove leaves"]}`,
		`{"schemes": [{"title": "PM-KISAN", "link": "https://pmkisan.gov.in/"}]}`,
		`{"translations": ["नमस्ते", ""]}`,
		`{"nested": {"a": 1, "b": [true, null]}}`,
	}
	tags := []string{"json", "JSON", "javascript", ""}

	for _, body := range bodies {
		want, ok := Extract(body)
		require.True(t, ok, "unwrapped body should parse: %s", body)

		for _, tag := range tags {
			wrapped := "```" + tag + "\n" + body + "\n```"
			got, ok := Extract(wrapped)
			require.True(t, ok, "fenced body with tag %q should parse", tag)
			assert.Equal(t, want, got)
		}
	}
}

func TestExtract_Normalization(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  map[string]any
	}{
		{
			name:  "plain object",
			input: `{"a": "b"}`,
			want:  map[string]any{"a": "b"},
		},
		{
			name:  "typographic double quotes",
			input: "{“a”: “b”}",
			want:  map[string]any{"a": "b"},
		},
		{
			name:  "typographic single quotes inside values",
			input: "{\"a\": \"farmer’s field\"}",
			want:  map[string]any{"a": "farmer's field"},
		},
		{
			name:  "leading json label",
			input: `json {"a": 1}`,
			want:  map[string]any{"a": float64(1)},
		},
		{
			name:  "leading JSON label without space",
			input: `JSON{"a": 1}`,
			want:  map[string]any{"a": float64(1)},
		},
		{
			name:  "prose around object",
			input: "Here is the analysis:\n{\"disease\": \"blight\"}\nHope this helps!",
			want:  map[string]any{"disease": "blight"},
		},
		{
			name:  "fence with surrounding prose",
			input: "Sure!\n```json\n{\"a\": true}\n```\nLet me know.",
			want:  map[string]any{"a": true},
		},
		{
			name:  "label inside fence",
			input: "```\njson\n{\"a\": \"x\"}\n```",
			want:  map[string]any{"a": "x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Extract(tt.input)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtract_NoValue(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"The leaf looks healthy.",
		"{not json}",
		`{"a": 1} and then {"b": 2}`,
		"```json\n{\"a\": \n```",
		"null",
		"[1, 2, 3]",
		`{"a": 1`,
		"```\n```",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			assert.NotPanics(t, func() {
				got, ok := Extract(input)
				assert.False(t, ok)
				assert.Nil(t, got)
			})
		})
	}
}

func TestExtractInto_TypedTarget(t *testing.T) {
	var out struct {
		Translations []string `json:"translations"`
	}
	ok := ExtractInto("```json\n{\"translations\": [\"a\", \"b\"]}\n```", &out)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, out.Translations)

	var wrongShape struct {
		Translations []string `json:"translations"`
	}
	assert.False(t, ExtractInto(`{"translations": "not a list"}`, &wrongShape))
}

func TestNarrow_IsDeterministic(t *testing.T) {
	input := "Result:\n```json\n{“a”: 1}\n```"
	first := Narrow(input)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Narrow(input))
	}
	assert.Equal(t, `{"a": 1}`, first)
}
