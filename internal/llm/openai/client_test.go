package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kshitij/safepay/backend/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient("test-key", WithBaseURL(server.URL))
	require.NoError(t, err)
	return client, server
}

func chatReply(content string) string {
	payload := map[string]any{
		"id": "chatcmpl-1",
		"choices": []map[string]any{
			{"index": 0, "message": map[string]any{"role": "assistant", "content": content}},
		},
	}
	raw, _ := json.Marshal(payload)
	return string(raw)
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient("  ")
	require.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestChat(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody chatRequest

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatReply("Never share your OTP with anyone.")))
	})

	answer, err := client.Chat(context.Background(), "gpt-4o-mini", []domain.ChatMessage{
		{Role: domain.ChatRoleSystem, Content: "You are a safety assistant."},
		{Role: domain.ChatRoleUser, Content: "Is sharing OTP safe?"},
	})

	require.NoError(t, err)
	assert.Equal(t, "Never share your OTP with anyone.", answer)
	assert.Equal(t, "/chat/completions", gotPath)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "gpt-4o-mini", gotBody.Model)
	assert.Len(t, gotBody.Messages, 2)
}

func TestAnalyzeScam(t *testing.T) {
	var gotBody chatRequest

	verdictJSON := `{"is_scam":true,"confidence":0.92,"reasons":["urgency language"],"explanation":"KYC pretext"}`
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatReply(verdictJSON)))
	})

	verdict, err := client.AnalyzeScam(context.Background(), "gpt-4o-mini", "qr", "upi://pay?pa=kyc.update@quickbank")

	require.NoError(t, err)
	assert.True(t, verdict.IsScam)
	assert.Equal(t, 0.92, verdict.Confidence)
	assert.Equal(t, []string{"urgency language"}, verdict.Reasons)

	require.NotNil(t, gotBody.ResponseFormat)
	assert.Equal(t, "json_schema", gotBody.ResponseFormat.Type)
	assert.Equal(t, "scam_verdict", gotBody.ResponseFormat.JSONSchema.Name)
}

func TestAnalyzeScamRejectsMalformedVerdict(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatReply("not json")))
	})

	_, err := client.AnalyzeScam(context.Background(), "gpt-4o-mini", "qr", "content")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode verdict")
}

func TestChatUpstreamError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	})

	_, err := client.Chat(context.Background(), "gpt-4o-mini", []domain.ChatMessage{
		{Role: domain.ChatRoleUser, Content: "hi"},
	})

	require.Error(t, err)
	var statusErr *HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusTooManyRequests, statusErr.HTTPStatusCode())
}

func TestTranscribe(t *testing.T) {
	var gotPath, gotContentType string

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "note.ogg", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"share your otp to claim the prize"}`))
	})

	text, err := client.Transcribe(context.Background(), "whisper-1", "note.ogg", strings.NewReader("fake-audio-bytes"))

	require.NoError(t, err)
	assert.Equal(t, "share your otp to claim the prize", text)
	assert.Equal(t, "/audio/transcriptions", gotPath)
	assert.Contains(t, gotContentType, "multipart/form-data")
}

func TestDescribeImage(t *testing.T) {
	var rawBody map[string]any

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&rawBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatReply("Pay Rs 500 to win4u@freepay")))
	})

	text, err := client.DescribeImage(context.Background(), "gpt-4o-mini", "Extract the text.", "aGVsbG8=")

	require.NoError(t, err)
	assert.Equal(t, "Pay Rs 500 to win4u@freepay", text)

	messages, ok := rawBody["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 1)

	content, ok := messages[0].(map[string]any)["content"].([]any)
	require.True(t, ok)
	require.Len(t, content, 2)

	imagePart, ok := content[1].(map[string]any)
	require.True(t, ok)
	imageRef, ok := imagePart["image_url"].(map[string]any)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(imageRef["url"].(string), "data:image/png;base64,"))
}

func TestDescribeImageRequiresData(t *testing.T) {
	client, err := NewClient("test-key")
	require.NoError(t, err)

	_, err = client.DescribeImage(context.Background(), "gpt-4o-mini", "prompt", "")
	assert.Error(t, err)
}

func TestChatEmptyChoices(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"chatcmpl-1","choices":[]}`))
	})

	_, err := client.Chat(context.Background(), "gpt-4o-mini", []domain.ChatMessage{
		{Role: domain.ChatRoleUser, Content: "hi"},
	})
	require.Error(t, err)
	assert.False(t, errors.As(err, new(*HTTPStatusError)))
}
