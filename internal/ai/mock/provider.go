// Package mock provides a deterministic ai.Provider for development and
// tests. No network calls, no API key, stable output.
package mock

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mindgrove-app/mindgrove/internal/ai"
)

// Provider implements ai.Provider with canned responses.
type Provider struct {
	logger *slog.Logger
}

// New creates a new mock AI provider.
func New(logger *slog.Logger) *Provider {
	return &Provider{logger: logger}
}

func mockUsage() ai.UsageInfo {
	return ai.UsageInfo{Model: "mock", InputTokens: 100, OutputTokens: 50}
}

// GenerateSummary returns a canned summary built from the document title.
func (p *Provider) GenerateSummary(ctx context.Context, params ai.GenerateParams) (*ai.SummaryResult, error) {
	if strings.TrimSpace(params.Text) == "" {
		return nil, ai.WrapError("generate summary", ai.EAIInvalidInput)
	}
	p.logger.Debug("mock summary", "document_id", params.DocumentID)

	return &ai.SummaryResult{
		Summary: fmt.Sprintf("This is a mock summary of %q. The document covers its subject "+
			"in several sections, each building on the last.", params.Title),
		KeyPoints: []string{
			"First key point from the document",
			"Second key point from the document",
			"Third key point from the document",
		},
		Usage: mockUsage(),
	}, nil
}

// GenerateFlashcards returns a small canned deck.
func (p *Provider) GenerateFlashcards(ctx context.Context, params ai.GenerateParams) (*ai.FlashcardsResult, error) {
	if strings.TrimSpace(params.Text) == "" {
		return nil, ai.WrapError("generate flashcards", ai.EAIInvalidInput)
	}
	p.logger.Debug("mock flashcards", "document_id", params.DocumentID)

	return &ai.FlashcardsResult{
		Cards: []ai.Flashcard{
			{Front: fmt.Sprintf("What is the main topic of %q?", params.Title), Back: "The document's central subject."},
			{Front: "Define the first key term.", Back: "A mock definition of the first key term."},
			{Front: "Define the second key term.", Back: "A mock definition of the second key term."},
		},
		Usage: mockUsage(),
	}, nil
}

// GenerateQuiz returns a small canned quiz.
func (p *Provider) GenerateQuiz(ctx context.Context, params ai.GenerateParams) (*ai.QuizResult, error) {
	if strings.TrimSpace(params.Text) == "" {
		return nil, ai.WrapError("generate quiz", ai.EAIInvalidInput)
	}
	p.logger.Debug("mock quiz", "document_id", params.DocumentID)

	return &ai.QuizResult{
		Questions: []ai.QuizQuestion{
			{
				Question:    fmt.Sprintf("What does %q primarily discuss?", params.Title),
				Choices:     []string{"Its main subject", "An unrelated topic", "Nothing at all", "Cooking recipes"},
				AnswerIndex: 0,
				Explanation: "The document is about its main subject.",
			},
			{
				Question:    "Which statement is supported by the document?",
				Choices:     []string{"The first claim", "The second claim", "The third claim", "None of these"},
				AnswerIndex: 1,
				Explanation: "The second claim appears in the document.",
			},
		},
		Usage: mockUsage(),
	}, nil
}

// Chat echoes the question back with a canned answer.
func (p *Provider) Chat(ctx context.Context, params ai.ChatParams) (*ai.ChatResult, error) {
	question := strings.TrimSpace(params.Question)
	if question == "" {
		return nil, ai.WrapError("chat", ai.EAIInvalidInput)
	}

	return &ai.ChatResult{
		Answer: fmt.Sprintf("Mock answer to: %s", question),
		Usage:  mockUsage(),
	}, nil
}
