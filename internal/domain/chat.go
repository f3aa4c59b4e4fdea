package domain

import "time"

// Chat message roles, matching the OpenAI wire format.
const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage is the provider-agnostic chat message shape shared between the
// assistant endpoint and the LLM client.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatTurn is a persisted question/answer pair within a conversation.
type ChatTurn struct {
	ConversationID string    `json:"conversationId"`
	Question       string    `json:"question"`
	Answer         string    `json:"answer"`
	CreatedAt      time.Time `json:"createdAt"`
}
