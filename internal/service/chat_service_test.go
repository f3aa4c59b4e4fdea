package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/kshitij/safepay/backend/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(store.Options{Driver: store.DriverSQLite, DSN: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	return st
}

func TestChatAskAssignsConversationID(t *testing.T) {
	llm := &stubLLM{chatReply: "Never share your OTP."}
	svc := NewChatService(testLogger(), llm, openTestStore(t), ChatOptions{ChatModel: "gpt-4o-mini"})

	turn, err := svc.Ask(context.Background(), "", "Is it safe to share an OTP?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if turn.ConversationID == "" {
		t.Fatal("expected a generated conversation ID")
	}
	if turn.Answer != "Never share your OTP." {
		t.Fatalf("unexpected answer: %q", turn.Answer)
	}
}

func TestChatAskPersistsAndReplaysHistory(t *testing.T) {
	st := openTestStore(t)
	llm := &stubLLM{chatReply: "Answer."}
	svc := NewChatService(testLogger(), llm, st, ChatOptions{ChatModel: "gpt-4o-mini", HistoryLimit: 10})

	first, err := svc.Ask(context.Background(), "", "First question?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Ask(context.Background(), first.ConversationID, "Second question?"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	history, err := st.ChatHistory(context.Background(), first.ConversationID, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 persisted turns, got %d", len(history))
	}
	if history[0].Question != "First question?" {
		t.Fatalf("expected chronological order, got %q first", history[0].Question)
	}
}

func TestChatAskWithoutLLM(t *testing.T) {
	svc := NewChatService(testLogger(), nil, nil, ChatOptions{})

	if _, err := svc.Ask(context.Background(), "", "hello"); !errors.Is(err, ErrLLMUnavailable) {
		t.Fatalf("expected ErrLLMUnavailable, got %v", err)
	}
}

func TestChatAskPropagatesLLMError(t *testing.T) {
	llm := &stubLLM{chatErr: errors.New("rate limited")}
	svc := NewChatService(testLogger(), llm, nil, ChatOptions{ChatModel: "gpt-4o-mini"})

	if _, err := svc.Ask(context.Background(), "conv-1", "hello"); err == nil {
		t.Fatal("expected error to propagate")
	}
}
