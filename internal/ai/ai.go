// Package ai defines the provider interface for AI-generated study
// materials: document summaries, flashcards, quizzes, and the study chat.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Provider generates study materials from document text.
type Provider interface {
	// GenerateSummary produces a structured summary of a document.
	GenerateSummary(ctx context.Context, params GenerateParams) (*SummaryResult, error)

	// GenerateFlashcards produces question/answer flashcards from a document.
	GenerateFlashcards(ctx context.Context, params GenerateParams) (*FlashcardsResult, error)

	// GenerateQuiz produces multiple-choice quiz questions from a document.
	GenerateQuiz(ctx context.Context, params GenerateParams) (*QuizResult, error)

	// Chat answers a free-form study question, optionally grounded in
	// document text.
	Chat(ctx context.Context, params ChatParams) (*ChatResult, error)
}

// GenerateParams contains the inputs for material generation.
type GenerateParams struct {
	DocumentID uuid.UUID // Document ID for tracking
	UserID     uuid.UUID // User ID for usage tracking
	Title      string    // Document title, included in prompts for context
	Text       string    // Extracted document text
}

// ChatParams contains the inputs for the study chat.
type ChatParams struct {
	UserID   uuid.UUID
	Question string
	Context  string // Optional document text to ground the answer in
}

// SummaryResult is a generated document summary.
type SummaryResult struct {
	Summary   string    `json:"summary"`
	KeyPoints []string  `json:"key_points"`
	Usage     UsageInfo `json:"-"`
}

// Flashcard is one question/answer pair.
type Flashcard struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

// FlashcardsResult is a generated flashcard deck.
type FlashcardsResult struct {
	Cards []Flashcard `json:"cards"`
	Usage UsageInfo   `json:"-"`
}

// QuizQuestion is one multiple-choice question.
type QuizQuestion struct {
	Question    string   `json:"question"`
	Choices     []string `json:"choices"`
	AnswerIndex int      `json:"answer_index"`
	Explanation string   `json:"explanation"`
}

// QuizResult is a generated quiz.
type QuizResult struct {
	Questions []QuizQuestion `json:"questions"`
	Usage     UsageInfo      `json:"-"`
}

// ChatResult is the answer to a study chat question.
type ChatResult struct {
	Answer string    `json:"answer"`
	Usage  UsageInfo `json:"-"`
}

// UsageInfo tracks API usage for cost monitoring.
type UsageInfo struct {
	Model        string        // AI model used
	InputTokens  int           // Tokens in the request
	OutputTokens int           // Tokens in the response
	CostCents    int           // Estimated cost in cents
	Duration     time.Duration // Request duration
}

// ProviderConfig contains common configuration for AI providers.
type ProviderConfig struct {
	MaxRetries     int           // Maximum retry attempts for transient errors
	RetryBaseDelay time.Duration // Base delay for exponential backoff
	RequestTimeout time.Duration // Timeout for individual requests
}

// Error codes for AI provider operations
var (
	// EAIRateLimit indicates the API rate limit has been exceeded
	EAIRateLimit = errors.New("ai provider rate limit exceeded")

	// EAIInvalidInput indicates the document text or question is unusable
	EAIInvalidInput = errors.New("invalid input for ai generation")

	// EAIContentPolicy indicates the input violates content policy
	EAIContentPolicy = errors.New("input violates content policy")

	// EAITimeout indicates the request timed out
	EAITimeout = errors.New("ai request timed out")

	// EAIUnavailable indicates the AI service is temporarily unavailable
	EAIUnavailable = errors.New("ai service temporarily unavailable")

	// EAIUnauthorized indicates invalid API credentials
	EAIUnauthorized = errors.New("ai provider authentication failed")
)

// IsRetryable returns true if the error is a transient error that can be retried
func IsRetryable(err error) bool {
	return errors.Is(err, EAIRateLimit) ||
		errors.Is(err, EAITimeout) ||
		errors.Is(err, EAIUnavailable)
}

// WrapError wraps an error with context about the AI operation
func WrapError(operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("ai %s: %w", operation, err)
}
