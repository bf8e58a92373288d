// Package anthropic implements the ai.Provider interface over the Anthropic
// Messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mindgrove-app/mindgrove/internal/ai"
	"github.com/mindgrove-app/mindgrove/internal/metrics"
	"github.com/sethvargo/go-retry"
)

const (
	// APIBaseURL is the base URL for the Anthropic API
	APIBaseURL = "https://api.anthropic.com/v1/messages"

	// APIVersion is the Anthropic API version
	APIVersion = "2023-06-01"

	// DefaultModel is the default model to use
	DefaultModel = "claude-3-5-sonnet-20241022"

	// MaxDocumentChars caps how much document text is sent per request.
	// Longer documents are truncated; the prompt covers the leading portion.
	MaxDocumentChars = 150_000

	// Pricing in cents per 1M tokens for claude-3-5-sonnet
	PricingInputCents  = 300  // $3 per 1M input tokens
	PricingOutputCents = 1500 // $15 per 1M output tokens
)

// Config contains configuration for the Anthropic provider
type Config struct {
	APIKey         string
	Model          string
	ProviderConfig ai.ProviderConfig
}

// Provider implements the ai.Provider interface using Anthropic's API
type Provider struct {
	config Config
	client *http.Client
	logger *slog.Logger
}

// New creates a new Anthropic AI provider
func New(config Config, logger *slog.Logger) (*Provider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}

	// Set defaults
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.ProviderConfig.MaxRetries == 0 {
		config.ProviderConfig.MaxRetries = 3
	}
	if config.ProviderConfig.RetryBaseDelay == 0 {
		config.ProviderConfig.RetryBaseDelay = 1 * time.Second
	}
	if config.ProviderConfig.RequestTimeout == 0 {
		config.ProviderConfig.RequestTimeout = 60 * time.Second
	}

	return &Provider{
		config: config,
		client: &http.Client{
			Timeout: config.ProviderConfig.RequestTimeout,
		},
		logger: logger,
	}, nil
}

// GenerateSummary produces a structured summary of a document.
func (p *Provider) GenerateSummary(ctx context.Context, params ai.GenerateParams) (*ai.SummaryResult, error) {
	text, err := validateText(params.Text)
	if err != nil {
		return nil, ai.WrapError("generate summary", err)
	}

	var result ai.SummaryResult
	usage, err := p.completeJSON(ctx, summaryPrompt(params.Title, text), &result)
	if err != nil {
		return nil, ai.WrapError("generate summary", err)
	}
	result.Usage = usage
	return &result, nil
}

// GenerateFlashcards produces question/answer flashcards from a document.
func (p *Provider) GenerateFlashcards(ctx context.Context, params ai.GenerateParams) (*ai.FlashcardsResult, error) {
	text, err := validateText(params.Text)
	if err != nil {
		return nil, ai.WrapError("generate flashcards", err)
	}

	var result ai.FlashcardsResult
	usage, err := p.completeJSON(ctx, flashcardsPrompt(params.Title, text), &result)
	if err != nil {
		return nil, ai.WrapError("generate flashcards", err)
	}
	if len(result.Cards) == 0 {
		return nil, ai.WrapError("generate flashcards", fmt.Errorf("model returned no cards"))
	}
	result.Usage = usage
	return &result, nil
}

// GenerateQuiz produces multiple-choice quiz questions from a document.
func (p *Provider) GenerateQuiz(ctx context.Context, params ai.GenerateParams) (*ai.QuizResult, error) {
	text, err := validateText(params.Text)
	if err != nil {
		return nil, ai.WrapError("generate quiz", err)
	}

	var result ai.QuizResult
	usage, err := p.completeJSON(ctx, quizPrompt(params.Title, text), &result)
	if err != nil {
		return nil, ai.WrapError("generate quiz", err)
	}

	// Drop malformed questions rather than failing the whole quiz.
	valid := result.Questions[:0]
	for _, q := range result.Questions {
		if q.Question == "" || len(q.Choices) < 2 {
			continue
		}
		if q.AnswerIndex < 0 || q.AnswerIndex >= len(q.Choices) {
			continue
		}
		valid = append(valid, q)
	}
	result.Questions = valid
	if len(result.Questions) == 0 {
		return nil, ai.WrapError("generate quiz", fmt.Errorf("model returned no valid questions"))
	}
	result.Usage = usage
	return &result, nil
}

// Chat answers a free-form study question.
func (p *Provider) Chat(ctx context.Context, params ai.ChatParams) (*ai.ChatResult, error) {
	question := strings.TrimSpace(params.Question)
	if question == "" {
		return nil, ai.WrapError("chat", ai.EAIInvalidInput)
	}

	docContext := params.Context
	if len(docContext) > MaxDocumentChars {
		docContext = docContext[:MaxDocumentChars]
	}

	resp, usage, err := p.complete(ctx, chatPrompt(question, docContext))
	if err != nil {
		return nil, ai.WrapError("chat", err)
	}
	return &ai.ChatResult{Answer: resp, Usage: usage}, nil
}

// =============================================================================
// Request execution
// =============================================================================

// completeJSON runs a completion and unmarshals the model's JSON reply into out.
func (p *Provider) completeJSON(ctx context.Context, prompt string, out interface{}) (ai.UsageInfo, error) {
	text, usage, err := p.complete(ctx, prompt)
	if err != nil {
		return usage, err
	}
	if err := json.Unmarshal([]byte(stripFences(text)), out); err != nil {
		return usage, fmt.Errorf("parse model output: %w", err)
	}
	return usage, nil
}

// complete sends one prompt and returns the text reply, retrying transient
// failures with exponential backoff.
func (p *Provider) complete(ctx context.Context, prompt string) (string, ai.UsageInfo, error) {
	startTime := time.Now()

	body, err := json.Marshal(apiRequest{
		Model:     p.config.Model,
		MaxTokens: 4096,
		System:    systemPrompt,
		Messages: []apiMessage{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", ai.UsageInfo{}, fmt.Errorf("marshal request: %w", err)
	}

	backoff := retry.WithMaxRetries(
		uint64(p.config.ProviderConfig.MaxRetries),
		retry.NewExponential(p.config.ProviderConfig.RetryBaseDelay),
	)

	var resp *apiResponse
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		var execErr error
		resp, execErr = p.execute(ctx, body)
		if execErr != nil && ai.IsRetryable(execErr) {
			p.logger.Info("retrying AI request", "error", execErr)
			return retry.RetryableError(execErr)
		}
		return execErr
	})
	if err != nil {
		metrics.AIAPICalls.WithLabelValues("error").Inc()
		return "", ai.UsageInfo{}, err
	}

	text := ""
	for _, content := range resp.Content {
		if content.Type == "text" {
			text = content.Text
			break
		}
	}
	if text == "" {
		metrics.AIAPICalls.WithLabelValues("error").Inc()
		return "", ai.UsageInfo{}, fmt.Errorf("no text content in response")
	}

	usage := ai.UsageInfo{
		Model:        p.config.Model,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
		CostCents:    calculateCost(resp.Usage.InputTokens, resp.Usage.OutputTokens),
		Duration:     time.Since(startTime),
	}

	metrics.AIAPICalls.WithLabelValues("success").Inc()
	metrics.AITokensTotal.WithLabelValues("input").Add(float64(usage.InputTokens))
	metrics.AITokensTotal.WithLabelValues("output").Add(float64(usage.OutputTokens))
	metrics.AICostCentsTotal.Add(float64(usage.CostCents))

	return text, usage, nil
}

// execute performs a single HTTP round trip.
func (p *Provider) execute(ctx context.Context, body []byte) (*apiResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, APIBaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.config.APIKey)
	req.Header.Set("anthropic-version", APIVersion)

	resp, err := p.client.Do(req)
	if err != nil {
		// Network errors are typically retryable
		return nil, ai.EAIUnavailable
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, mapHTTPError(resp.StatusCode, bodyBytes)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &apiResp, nil
}

// mapHTTPError maps HTTP status codes to provider errors.
func mapHTTPError(statusCode int, body []byte) error {
	var errResp apiErrorResponse
	_ = json.Unmarshal(body, &errResp)

	switch statusCode {
	case http.StatusUnauthorized:
		return ai.EAIUnauthorized
	case http.StatusTooManyRequests:
		return ai.EAIRateLimit
	case http.StatusRequestTimeout:
		return ai.EAITimeout
	case http.StatusBadRequest:
		if errResp.Error.Type == "invalid_request_error" {
			return fmt.Errorf("%w: %s", ai.EAIInvalidInput, errResp.Error.Message)
		}
		return fmt.Errorf("bad request: %s", errResp.Error.Message)
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return ai.EAIUnavailable
	default:
		if statusCode >= 500 {
			return ai.EAIUnavailable
		}
		return fmt.Errorf("API error (status %d): %s", statusCode, errResp.Error.Message)
	}
}

// =============================================================================
// Helpers
// =============================================================================

func validateText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ai.EAIInvalidInput
	}
	if len(text) > MaxDocumentChars {
		text = text[:MaxDocumentChars]
	}
	return text, nil
}

// stripFences removes a markdown code fence if the model wrapped its JSON in
// one despite instructions.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

// calculateCost calculates the cost in cents for the given token usage
func calculateCost(inputTokens, outputTokens int) int {
	inputCost := (inputTokens * PricingInputCents) / 1_000_000
	outputCost := (outputTokens * PricingOutputCents) / 1_000_000
	return inputCost + outputCost
}

// =============================================================================
// API request/response types
// =============================================================================

type apiRequest struct {
	Model     string       `json:"model"`
	MaxTokens int          `json:"max_tokens"`
	System    string       `json:"system,omitempty"`
	Messages  []apiMessage `json:"messages"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiResponse struct {
	ID      string             `json:"id"`
	Type    string             `json:"type"`
	Role    string             `json:"role"`
	Content []apiContentOutput `json:"content"`
	Model   string             `json:"model"`
	Usage   apiUsage           `json:"usage"`
}

type apiUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type apiContentOutput struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type apiErrorResponse struct {
	Type  string   `json:"type"`
	Error apiError `json:"error"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
