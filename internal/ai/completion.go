package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

const (
	// DefaultEndpoint is used when neither the config nor llm_endpoint names one
	DefaultEndpoint = "http://localhost:3000/generate"

	// EnvEndpoint and EnvAPIKey name the environment variables read by NewCompletionClient
	EnvEndpoint = "llm_endpoint"
	EnvAPIKey   = "LLM_API_KEY"

	maxErrorBody = 512
)

// CompletionConfig holds completion client configuration
type CompletionConfig struct {
	Endpoint      string       // Completion URL (if empty, reads llm_endpoint, then DefaultEndpoint)
	APIKey        string       // Bearer token (if empty, reads LLM_API_KEY env var)
	Retry         RetryConfig  // Retry policy (uses defaults if MaxAttempts is 0)
	RatePerMinute int          // Request pacing across attempts (0 = unlimited)
	MaxConcurrent int          // Concurrent Complete calls allowed (0 = unlimited)
	HTTPClient    *http.Client // Optional transport override
	Sleeper       Sleeper      // Optional backoff suspension point (default: ContextSleep)
	Logger        *zap.Logger
}

// CompletionClient submits a prompt to a single text-generation endpoint
// and returns the generated text. It keeps no state between calls apart from
// the circuit breaker and pacing limiter.
type CompletionClient struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	retry      *retrier
	limiter    *rate.Limiter
	sem        *semaphore.Weighted
	logger     *zap.Logger
}

type completionRequest struct {
	Inputs string `json:"inputs"`
}

type generatedResponse struct {
	GeneratedText *string `json:"generated_text"`
}

// NewCompletionClient creates a completion client
func NewCompletionClient(cfg CompletionConfig) (*CompletionClient, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = os.Getenv(EnvEndpoint)
	}
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv(EnvAPIKey)
		if apiKey == "" {
			return nil, fmt.Errorf("%s not set", EnvAPIKey)
		}
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
	logger = logger.Named("completion")

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: retry.Timeout}
	}

	c := &CompletionClient{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: httpClient,
		retry:      newRetrier(retry, cfg.Sleeper, logger),
		logger:     logger,
	}
	if cfg.RatePerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RatePerMinute)), 1)
	}
	if cfg.MaxConcurrent > 0 {
		c.sem = semaphore.NewWeighted(int64(cfg.MaxConcurrent))
	}
	return c, nil
}

// Endpoint returns the URL the client posts to
func (c *CompletionClient) Endpoint() string {
	return c.endpoint
}

// Complete posts prompt to the endpoint and returns the generated text.
// Transport failures and non-2xx statuses are retried within the retry budget;
// a body that cannot be decoded is returned as a *CompletionError right away.
func (c *CompletionClient) Complete(ctx context.Context, prompt string) (string, error) {
	if c.sem != nil {
		if err := c.sem.Acquire(ctx, 1); err != nil {
			return "", fmt.Errorf("failed to acquire completion slot: %w", err)
		}
		defer c.sem.Release(1)
	}

	payload, err := json.Marshal(completionRequest{Inputs: prompt})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	start := time.Now()
	var text string
	err = c.retry.do(ctx, "completion", func(attemptCtx context.Context) error {
		if c.limiter != nil {
			if err := c.limiter.Wait(attemptCtx); err != nil {
				return &CompletionError{Kind: KindTransport, Message: "rate limiter wait failed", Err: err}
			}
		}
		out, err := c.doRequest(attemptCtx, payload)
		if err != nil {
			return err
		}
		text = out
		return nil
	})
	if err != nil {
		return "", err
	}

	c.logger.Debug("completion received",
		zap.Int("prompt_chars", len(prompt)),
		zap.Int("completion_chars", len(text)),
		zap.Duration("duration", time.Since(start)))
	return text, nil
}

// doRequest performs one HTTP attempt
func (c *CompletionClient) doRequest(ctx context.Context, payload []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &CompletionError{Kind: KindTransport, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &CompletionError{Kind: KindTransport, Message: "failed to read response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := string(body)
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return "", &CompletionError{Kind: KindHTTPStatus, StatusCode: resp.StatusCode, Message: snippet}
	}

	return decodeCompletion(body)
}

// decodeCompletion accepts either {"generated_text": ...} or an array of such
// objects, in which case the first element wins.
func decodeCompletion(body []byte) (string, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return "", &CompletionError{Kind: KindDecode, Message: "empty response body"}
	}

	var first generatedResponse
	switch trimmed[0] {
	case '[':
		var choices []generatedResponse
		if err := json.Unmarshal(trimmed, &choices); err != nil {
			return "", &CompletionError{Kind: KindDecode, Message: "malformed response array", Err: err}
		}
		if len(choices) == 0 {
			return "", &CompletionError{Kind: KindNoChoices, Message: "response array is empty"}
		}
		first = choices[0]
	case '{':
		if err := json.Unmarshal(trimmed, &first); err != nil {
			return "", &CompletionError{Kind: KindDecode, Message: "malformed response object", Err: err}
		}
	default:
		return "", &CompletionError{Kind: KindDecode, Message: "response is neither an object nor an array"}
	}

	if first.GeneratedText == nil {
		return "", &CompletionError{Kind: KindDecode, Message: "generated_text missing from response"}
	}
	return *first.GeneratedText, nil
}
