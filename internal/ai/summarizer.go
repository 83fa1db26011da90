package ai

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"
)

// DefaultSummaryModel is used when no model is configured
const DefaultSummaryModel = "claude-3-5-haiku-20241022"

// Summarizer condenses an issue body into the essence used in the labeling question
type Summarizer interface {
	Summarize(ctx context.Context, body string) (string, error)
}

// SummarizerConfig holds Anthropic summarizer configuration
type SummarizerConfig struct {
	APIKey    string      // Anthropic API key (if empty, reads ANTHROPIC_API_KEY env var)
	Model     string      // Model to use (default: DefaultSummaryModel)
	MaxTokens int         // Output cap (default: 512)
	BaseURL   string      // Optional API base URL override
	Retry     RetryConfig // Retry policy (uses defaults if MaxAttempts is 0)
	Sleeper   Sleeper
	Logger    *zap.Logger
}

// AnthropicSummarizer condenses issues with the Anthropic Messages API
type AnthropicSummarizer struct {
	client    *anthropic.Client
	model     string
	maxTokens int
	retry     *retrier
	logger    *zap.Logger
}

// NewAnthropicSummarizer creates a summarizer backed by Anthropic
func NewAnthropicSummarizer(cfg SummarizerConfig) (*AnthropicSummarizer, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
	}

	model := cfg.Model
	if model == "" {
		model = DefaultSummaryModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 512
	}

	retry := cfg.Retry
	if retry.MaxAttempts == 0 {
		retry = DefaultRetryConfig()
	}
	if err := retry.Validate(); err != nil {
		return nil, fmt.Errorf("invalid retry config: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("summarizer")

	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := anthropic.NewClient(opts...)

	return &AnthropicSummarizer{
		client:    &client,
		model:     model,
		maxTokens: maxTokens,
		retry:     newRetrier(retry, cfg.Sleeper, logger),
		logger:    logger,
	}, nil
}

// Summarize returns the condensed issue text
func (s *AnthropicSummarizer) Summarize(ctx context.Context, body string) (string, error) {
	if strings.TrimSpace(body) == "" {
		return "", nil
	}

	start := time.Now()
	var response *anthropic.Message
	err := s.retry.do(ctx, "summarization", func(attemptCtx context.Context) error {
		resp, apiErr := s.client.Messages.New(attemptCtx, anthropic.MessageNewParams{
			Model:     anthropic.Model(s.model),
			MaxTokens: int64(s.maxTokens),
			System: []anthropic.TextBlockParam{
				{Text: SummarizeSystemPrompt},
			},
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(SummarizePrompt(body))),
			},
		})
		if apiErr != nil {
			return apiErr
		}
		response = resp
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("anthropic summarization failed: %w", err)
	}

	var summary strings.Builder
	for _, block := range response.Content {
		if block.Type == "text" {
			summary.WriteString(block.Text)
		}
	}

	s.logger.Debug("issue summarized",
		zap.Int("input_chars", len(body)),
		zap.Int("output_chars", summary.Len()),
		zap.Int64("input_tokens", response.Usage.InputTokens),
		zap.Int64("output_tokens", response.Usage.OutputTokens),
		zap.Duration("duration", time.Since(start)))

	return collapseWhitespace(summary.String()), nil
}

// TruncatingSummarizer is the offline fallback: it collapses whitespace and
// keeps the first MaxRunes runes of the body.
type TruncatingSummarizer struct {
	MaxRunes int
}

// Summarize returns the shortened body
func (t TruncatingSummarizer) Summarize(_ context.Context, body string) (string, error) {
	limit := t.MaxRunes
	if limit <= 0 {
		limit = 1000
	}
	return truncateRunes(collapseWhitespace(body), limit), nil
}
