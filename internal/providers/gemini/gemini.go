// Package gemini provides Google Gemini generateContent integration.
package gemini

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"agrimitra/internal/pkg/llmclient"
)

const (
	// DefaultBaseURL is the native Gemini API endpoint
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	// DefaultModel is used for text and multimodal requests alike
	DefaultModel = "gemini-2.5-pro"
)

// Config holds the provider settings
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Retry   llmclient.RetryPolicy
}

// Provider calls the Gemini generateContent endpoint through the resilient client
type Provider struct {
	client *llmclient.Client
	model  string
}

// New creates a new Gemini provider. A nil httpClient uses the shared default client.
func New(cfg Config, httpClient *http.Client) *Provider {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	clientCfg := llmclient.Config{
		ProviderName: "gemini",
		BaseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		Retry:        cfg.Retry,
	}
	// The key goes in a header rather than the ?key= query parameter so it stays out of access logs.
	setKey := func(req *http.Request) {
		req.Header.Set("x-goog-api-key", cfg.APIKey)
	}

	var client *llmclient.Client
	if httpClient != nil {
		client = llmclient.NewWithHTTPClient(httpClient, clientCfg, setKey)
	} else {
		client = llmclient.New(clientCfg, setKey)
	}

	return &Provider{
		client: client,
		model:  cfg.Model,
	}
}

// Model returns the configured model name
func (p *Provider) Model() string {
	return p.model
}

type generateContentRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"` // base64 encoded
}

// GenerateText sends a text-only prompt and returns the first candidate's text.
// An empty string with a nil error means the model answered without text.
func (p *Provider) GenerateText(ctx context.Context, prompt string) (string, error) {
	return p.generate(ctx, []part{{Text: prompt}})
}

// GenerateWithImage sends a prompt paired with an inline image.
func (p *Provider) GenerateWithImage(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return p.generate(ctx, []part{
		{Text: prompt},
		{InlineData: &inlineData{
			MimeType: mimeType,
			Data:     base64.StdEncoding.EncodeToString(image),
		}},
	})
}

func (p *Provider) generate(ctx context.Context, parts []part) (string, error) {
	resp, err := p.client.DoRaw(ctx, llmclient.Request{
		Method:   http.MethodPost,
		Endpoint: "/models/" + p.model + ":generateContent",
		Body:     generateContentRequest{Contents: []content{{Parts: parts}}},
	})
	if err != nil {
		return "", err
	}
	return ReplyText(resp.Body), nil
}

// ReplyText returns candidates[0].content.parts[0].text, or "" when any level is missing.
func ReplyText(body []byte) string {
	return gjson.GetBytes(body, "candidates.0.content.parts.0.text").String()
}
