package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"agrimitra/internal/pkg/llmclient"
)

func fastRetry() llmclient.RetryPolicy {
	p := llmclient.DefaultRetryPolicy()
	p.InitialBackoff = time.Millisecond
	p.MaxBackoff = time.Millisecond
	return p
}

func TestGenerateText(t *testing.T) {
	var gotPath, gotKey string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Irrigate in the evening."}]}}]}`))
	}))
	defer server.Close()

	p := New(Config{APIKey: "k", BaseURL: server.URL + "/", Retry: fastRetry()}, server.Client())

	text, err := p.GenerateText(context.Background(), "When should I irrigate?")
	require.NoError(t, err)
	assert.Equal(t, "Irrigate in the evening.", text)
	assert.Equal(t, "/models/"+DefaultModel+":generateContent", gotPath)
	assert.Equal(t, "k", gotKey)
	assert.Equal(t, "When should I irrigate?", gjson.GetBytes(gotBody, "contents.0.parts.0.text").String())
	assert.False(t, gjson.GetBytes(gotBody, "contents.0.parts.1").Exists())
}

func TestGenerateWithImage(t *testing.T) {
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"disease\":\"rust\"}"}]}}]}`))
	}))
	defer server.Close()

	p := New(Config{APIKey: "k", Model: "gemini-test", BaseURL: server.URL, Retry: fastRetry()}, server.Client())

	image := []byte{0xff, 0xd8, 0xff}
	text, err := p.GenerateWithImage(context.Background(), "Analyze", image, "image/png")
	require.NoError(t, err)
	assert.Equal(t, `{"disease":"rust"}`, text)

	inline := gjson.GetBytes(gotBody, "contents.0.parts.1.inline_data")
	assert.Equal(t, "image/png", inline.Get("mime_type").String())
	assert.Equal(t, base64.StdEncoding.EncodeToString(image), inline.Get("data").String())
	assert.Equal(t, "gemini-test", p.Model())
}

func TestGenerateText_ErrorPropagatesCallError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"status":"PERMISSION_DENIED","message":"denied"}}`))
	}))
	defer server.Close()

	p := New(Config{BaseURL: server.URL, Retry: fastRetry()}, server.Client())

	text, err := p.GenerateText(context.Background(), "hi")
	require.Error(t, err)
	assert.Empty(t, text)

	var callErr *llmclient.CallError
	require.True(t, errors.As(err, &callErr))
	assert.Equal(t, "PERMISSION_DENIED", callErr.Status)
}

func TestReplyText(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"full path", `{"candidates":[{"content":{"parts":[{"text":"hello"}]}}]}`, "hello"},
		{"no candidates", `{"candidates":[]}`, ""},
		{"blocked prompt", `{"promptFeedback":{"blockReason":"SAFETY"}}`, ""},
		{"no parts", `{"candidates":[{"content":{}}]}`, ""},
		{"invalid json", `not json`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReplyText([]byte(tt.body)))
		})
	}
}
