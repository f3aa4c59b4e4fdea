package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/kshitij/safepay/backend/internal/domain"
	"github.com/kshitij/safepay/backend/internal/risk"
)

// ErrLLMUnavailable indicates the operation needs the LLM and none is configured.
var ErrLLMUnavailable = errors.New("llm integration is not configured")

// ocrPrompt instructs the vision model to behave as a plain text extractor.
const ocrPrompt = "Extract all visible text from this screenshot of a payment or chat app. " +
	"Return only the extracted text, with no commentary."

// MessageOptions tunes the message analysis pipeline.
type MessageOptions struct {
	ChatModel          string
	TranscriptionModel string
}

// MessageService analyzes free-text messages, voice notes, and screenshots for
// scam indicators. The LLM verdict is folded into the local keyword score as
// the classifier component; when the LLM fails or is absent, analysis degrades
// to keywords alone.
type MessageService struct {
	logger   *slog.Logger
	llm      LLMClient
	analyzer *risk.MessageAnalyzer
	opts     MessageOptions
}

// NewMessageService constructs a MessageService. llm may be nil.
func NewMessageService(logger *slog.Logger, llm LLMClient, opts MessageOptions) *MessageService {
	return &MessageService{
		logger:   logger,
		llm:      llm,
		analyzer: risk.NewMessageAnalyzer(),
		opts:     opts,
	}
}

// AnalyzeText scores a message. It never returns an error: LLM failures fall
// back to the keyword engine.
func (s *MessageService) AnalyzeText(ctx context.Context, text string) domain.MessageAnalysis {
	if s.llm == nil {
		return s.analyzer.Analyze(text)
	}

	verdict, err := s.llm.AnalyzeScam(ctx, s.opts.ChatModel, "message", text)
	if err != nil {
		s.logger.Warn("llm message verdict failed, using keyword analysis", "error", err)
		return s.analyzer.Analyze(text)
	}

	classifier := verdict.Confidence
	if !verdict.IsScam {
		classifier = 1 - verdict.Confidence
	}

	analysis := s.analyzer.AnalyzeWithClassifier(text, classifier)
	analysis.WarningFlags = append(analysis.WarningFlags, verdict.Reasons...)
	if verdict.Explanation != "" {
		analysis.Explanation = verdict.Explanation
	}
	return analysis
}

// AnalyzeVoice transcribes an audio clip and analyzes the transcript. Unlike
// text analysis there is no local fallback for transcription.
func (s *MessageService) AnalyzeVoice(ctx context.Context, filename string, audio io.Reader) (string, domain.MessageAnalysis, error) {
	if s.llm == nil {
		return "", domain.MessageAnalysis{}, ErrLLMUnavailable
	}

	transcript, err := s.llm.Transcribe(ctx, s.opts.TranscriptionModel, filename, audio)
	if err != nil {
		return "", domain.MessageAnalysis{}, err
	}
	return transcript, s.AnalyzeText(ctx, transcript), nil
}

// AnalyzeImage extracts text from a base64-encoded screenshot and analyzes it.
func (s *MessageService) AnalyzeImage(ctx context.Context, imageB64 string) (string, domain.MessageAnalysis, error) {
	if s.llm == nil {
		return "", domain.MessageAnalysis{}, ErrLLMUnavailable
	}

	extracted, err := s.llm.DescribeImage(ctx, s.opts.ChatModel, ocrPrompt, imageB64)
	if err != nil {
		return "", domain.MessageAnalysis{}, err
	}
	extracted = strings.TrimSpace(extracted)
	return extracted, s.AnalyzeText(ctx, extracted), nil
}
