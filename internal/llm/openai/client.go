// Package openai is a focused client for the OpenAI-compatible endpoints the
// backend delegates to: chat completions for scam analysis and the assistant,
// Whisper transcription for voice checks, and vision input for screenshots.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/kshitij/safepay/backend/internal/domain"
)

const defaultBaseURL = "https://api.openai.com/v1"

// ErrMissingAPIKey indicates no API key was configured.
var ErrMissingAPIKey = errors.New("openai: API key must not be empty")

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("openai: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// ScamVerdict is the structured verdict returned by the scam-analysis prompt.
type ScamVerdict struct {
	IsScam      bool     `json:"is_scam"`
	Confidence  float64  `json:"confidence"`
	Reasons     []string `json:"reasons"`
	Explanation string   `json:"explanation"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []wireMessage   `json:"messages"`
	Temperature    *float64        `json:"temperature,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

// wireMessage allows either plain string content or structured vision content.
type wireMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type imageContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type responseFormat struct {
	Type       string           `json:"type"`
	JSONSchema jsonSchemaConfig `json:"json_schema"`
}

type jsonSchemaConfig struct {
	Name   string          `json:"name"`
	Strict bool            `json:"strict"`
	Schema json.RawMessage `json:"schema"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Index   int                `json:"index"`
		Message domain.ChatMessage `json:"message"`
	} `json:"choices"`
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

// Client talks to an OpenAI-compatible API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL (used for tests and proxies).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a Client with the provided API key.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}
	c := &Client{
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Chat sends a plain chat completion request and returns the assistant reply.
func (c *Client) Chat(ctx context.Context, model string, messages []domain.ChatMessage) (string, error) {
	if model == "" {
		return "", errors.New("openai: model must not be empty")
	}

	wire := make([]wireMessage, 0, len(messages))
	for _, m := range messages {
		wire = append(wire, wireMessage{Role: m.Role, Content: m.Content})
	}

	payload, err := c.doChat(ctx, chatRequest{Model: model, Messages: wire})
	if err != nil {
		return "", err
	}
	return payload, nil
}

const scamAnalysisSystemPrompt = "You are a payment-fraud analyst for an Indian UPI safety app. " +
	"Classify the given content as scam or legitimate. Consider urgency language, KYC/verification " +
	"pretexts, prize bait, requests for OTP/PIN, and suspicious payment links."

// AnalyzeScam asks the model for a structured scam verdict on the content.
// kind describes the content origin ("qr", "message", "transcript", "screenshot").
func (c *Client) AnalyzeScam(ctx context.Context, model, kind, content string) (ScamVerdict, error) {
	if model == "" {
		return ScamVerdict{}, errors.New("openai: model must not be empty")
	}

	messages := []wireMessage{
		{Role: domain.ChatRoleSystem, Content: scamAnalysisSystemPrompt},
		{Role: domain.ChatRoleUser, Content: fmt.Sprintf("Content kind: %s\n\n%s", kind, content)},
	}

	raw, err := c.doChat(ctx, chatRequest{
		Model:          model,
		Messages:       messages,
		ResponseFormat: scamVerdictResponseFormat(),
	})
	if err != nil {
		return ScamVerdict{}, err
	}

	var verdict ScamVerdict
	if err := json.Unmarshal([]byte(raw), &verdict); err != nil {
		return ScamVerdict{}, fmt.Errorf("openai: decode verdict: %w", err)
	}
	return verdict, nil
}

// DescribeImage extracts the textual content of a base64-encoded screenshot
// via a vision chat message.
func (c *Client) DescribeImage(ctx context.Context, model, prompt, imageB64 string) (string, error) {
	if model == "" {
		return "", errors.New("openai: model must not be empty")
	}
	if imageB64 == "" {
		return "", errors.New("openai: image data must not be empty")
	}

	dataURL := imageB64
	if !strings.HasPrefix(imageB64, "data:") {
		dataURL = "data:image/png;base64," + imageB64
	}

	messages := []wireMessage{
		{
			Role: domain.ChatRoleUser,
			Content: []imageContentPart{
				{Type: "text", Text: prompt},
				{Type: "image_url", ImageURL: &imageURL{URL: dataURL}},
			},
		},
	}

	return c.doChat(ctx, chatRequest{Model: model, Messages: messages})
}

// Transcribe uploads audio to the Whisper transcription endpoint and returns
// the recognized text.
func (c *Client) Transcribe(ctx context.Context, model, filename string, audio io.Reader) (string, error) {
	if model == "" {
		return "", errors.New("openai: model must not be empty")
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("openai: create form file: %w", err)
	}
	if _, err := io.Copy(part, audio); err != nil {
		return "", fmt.Errorf("openai: copy audio: %w", err)
	}
	if err := writer.WriteField("model", model); err != nil {
		return "", fmt.Errorf("openai: write model field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("openai: close multipart writer: %w", err)
	}

	url := c.endpoint("/audio/transcriptions")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return "", fmt.Errorf("openai: create transcription request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	raw, err := c.doRequest(req, url)
	if err != nil {
		return "", fmt.Errorf("openai: transcription request failed: %w", err)
	}

	var payload transcriptionResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("openai: decode transcription response: %w", err)
	}
	return payload.Text, nil
}

func (c *Client) doChat(ctx context.Context, reqBody chatRequest) (string, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("openai: marshal request: %w", err)
	}

	url := c.endpoint("/chat/completions")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("openai: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	raw, err := c.doRequest(req, url)
	if err != nil {
		return "", fmt.Errorf("openai: request failed: %w", err)
	}

	var payload chatResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("openai: decode response: %w", err)
	}
	if len(payload.Choices) == 0 {
		return "", errors.New("openai: no choices in response")
	}
	return payload.Choices[0].Message.Content, nil
}

func (c *Client) doRequest(req *http.Request, url string) ([]byte, error) {
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        url,
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return buf, nil
}

func (c *Client) endpoint(path string) string {
	base := strings.TrimRight(c.baseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	return base + path
}

func scamVerdictResponseFormat() *responseFormat {
	return &responseFormat{
		Type: "json_schema",
		JSONSchema: jsonSchemaConfig{
			Name:   "scam_verdict",
			Strict: true,
			Schema: json.RawMessage(`{
				"type":"object",
				"additionalProperties":false,
				"properties":{
					"is_scam":{"type":"boolean"},
					"confidence":{"type":"number"},
					"reasons":{"type":"array","items":{"type":"string"}},
					"explanation":{"type":"string"}
				},
				"required":["is_scam","confidence","reasons","explanation"]
			}`),
		},
	}
}
