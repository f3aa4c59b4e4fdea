package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/kshitij/safepay/backend/internal/domain"
	"github.com/kshitij/safepay/backend/internal/store"
)

// chatSystemPrompt pins the assistant persona for every conversation.
const chatSystemPrompt = "You are a UPI payment safety assistant for users in India. " +
	"Answer questions about payment fraud, scam tactics, and safe UPI practices. " +
	"Be concise and practical. Never ask for OTPs, PINs, passwords, or account numbers, " +
	"and remind users never to share them."

// ChatOptions tunes the assistant conversation flow.
type ChatOptions struct {
	ChatModel    string
	HistoryLimit int
}

// ChatService runs the safety assistant conversations: it replays persisted
// history into the prompt, asks the LLM, and stores the completed turn.
type ChatService struct {
	logger *slog.Logger
	llm    LLMClient
	store  *store.Store
	opts   ChatOptions
}

// NewChatService constructs a ChatService. store may be nil, in which case
// conversations are stateless.
func NewChatService(logger *slog.Logger, llm LLMClient, st *store.Store, opts ChatOptions) *ChatService {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 20
	}
	return &ChatService{
		logger: logger,
		llm:    llm,
		store:  st,
		opts:   opts,
	}
}

// Ask answers a user question within a conversation. An empty conversationID
// starts a new conversation; the assigned ID is returned on the turn.
func (s *ChatService) Ask(ctx context.Context, conversationID, question string) (domain.ChatTurn, error) {
	if s.llm == nil {
		return domain.ChatTurn{}, ErrLLMUnavailable
	}

	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	messages := []domain.ChatMessage{
		{Role: domain.ChatRoleSystem, Content: chatSystemPrompt},
	}
	messages = append(messages, s.history(ctx, conversationID)...)
	messages = append(messages, domain.ChatMessage{Role: domain.ChatRoleUser, Content: question})

	answer, err := s.llm.Chat(ctx, s.opts.ChatModel, messages)
	if err != nil {
		return domain.ChatTurn{}, err
	}

	turn := domain.ChatTurn{
		ConversationID: conversationID,
		Question:       question,
		Answer:         answer,
	}

	if s.store != nil {
		if err := s.store.SaveChatTurn(ctx, turn); err != nil {
			s.logger.Warn("failed to persist chat turn", "error", err, "conversationId", conversationID)
		}
	}
	return turn, nil
}

// history replays persisted turns as alternating user/assistant messages.
func (s *ChatService) history(ctx context.Context, conversationID string) []domain.ChatMessage {
	if s.store == nil {
		return nil
	}

	turns, err := s.store.ChatHistory(ctx, conversationID, s.opts.HistoryLimit)
	if err != nil {
		s.logger.Warn("failed to load chat history", "error", err, "conversationId", conversationID)
		return nil
	}

	messages := make([]domain.ChatMessage, 0, len(turns)*2)
	for _, turn := range turns {
		messages = append(messages,
			domain.ChatMessage{Role: domain.ChatRoleUser, Content: turn.Question},
			domain.ChatMessage{Role: domain.ChatRoleAssistant, Content: turn.Answer},
		)
	}
	return messages
}
