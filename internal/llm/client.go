// Package llm provides a minimal client for an OpenAI-compatible chat
// completions API (OpenRouter). It supports plain text messages and
// multimodal messages carrying inline images as data URLs, which the
// extraction pipeline uses for per-page vision OCR.
package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultBaseURL is the OpenRouter API root.
const DefaultBaseURL = "https://openrouter.ai/api/v1"

// UpstreamError reports a non-2xx response from the completions API.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("llm upstream returned %d: %s", e.Status, e.Body)
}

// ContentPart is one element of a multimodal message: either text or an
// image reference.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL wraps an image location; for inline images this is a data URL.
type ImageURL struct {
	URL string `json:"url"`
}

// Message is one chat turn. Content is either a string (plain text) or a
// []ContentPart (multimodal); the custom marshaller emits whichever form
// the message carries so the wire shape matches the API exactly.
type Message struct {
	Role  string
	Text  string
	Parts []ContentPart
}

// MarshalJSON emits {"role":..,"content":..} with content as a bare string
// for text messages and as an array for multimodal ones.
func (m Message) MarshalJSON() ([]byte, error) {
	if len(m.Parts) > 0 {
		return json.Marshal(struct {
			Role    string        `json:"role"`
			Content []ContentPart `json:"content"`
		}{m.Role, m.Parts})
	}
	return json.Marshal(struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}{m.Role, m.Text})
}

// System builds a plain-text system message.
func System(text string) Message { return Message{Role: "system", Text: text} }

// User builds a plain-text user message.
func User(text string) Message { return Message{Role: "user", Text: text} }

// Assistant builds a plain-text assistant message.
func Assistant(text string) Message { return Message{Role: "assistant", Text: text} }

// Vision builds a user message pairing an instruction with one inline image.
func Vision(text, dataURL string) Message {
	return Message{Role: "user", Parts: []ContentPart{
		{Type: "text", Text: text},
		{Type: "image_url", ImageURL: &ImageURL{URL: dataURL}},
	}}
}

// DataURL encodes raw image bytes as a base64 data URL with the given MIME
// type (e.g. "image/png").
func DataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// Completer is the narrow interface the services depend on; *Client is the
// production implementation.
type Completer interface {
	Complete(ctx context.Context, model string, messages []Message, maxTokens int) (string, error)
}

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

// NewClient builds a Client against baseURL (DefaultBaseURL when empty).
func NewClient(baseURL, apiKey string) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: 120 * time.Second},
	}
}

type completionRequest struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens,omitempty"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends one chat completion request and returns the first choice's
// content. Non-2xx statuses surface as *UpstreamError.
func (c *Client) Complete(ctx context.Context, model string, messages []Message, maxTokens int) (string, error) {
	body, err := json.Marshal(completionRequest{Model: model, Messages: messages, MaxTokens: maxTokens})
	if err != nil {
		return "", fmt.Errorf("encode completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("call completions: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read completion response: %w", err)
	}

	log.Debug().
		Str("model", model).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("chat completion")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &UpstreamError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	var out completionResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", &UpstreamError{Status: resp.StatusCode, Body: "no choices in response"}
	}
	return out.Choices[0].Message.Content, nil
}
