package ai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// recordingSleeper captures backoff waits without blocking
type recordingSleeper struct {
	waits []time.Duration
}

func (r *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return ctx.Err()
}

func newTestClient(t *testing.T, url string, sleeper *recordingSleeper, logger *zap.Logger) *CompletionClient {
	t.Helper()
	retry := DefaultRetryConfig()
	retry.Timeout = 5 * time.Second
	c, err := NewCompletionClient(CompletionConfig{
		Endpoint: url,
		APIKey:   "test-key",
		Retry:    retry,
		Sleeper:  sleeper.sleep,
		Logger:   logger,
	})
	require.NoError(t, err)
	return c
}

func TestCompleteSendsContractRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		var req map[string]any
		assert.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, map[string]any{"inputs": "hello prompt"}, req)

		_, _ = w.Write([]byte(`{"generated_text": "### Response: ` + "`bug`" + `"}`))
	}))
	defer server.Close()

	sleeper := &recordingSleeper{}
	c := newTestClient(t, server.URL, sleeper, nil)

	text, err := c.Complete(context.Background(), "hello prompt")
	require.NoError(t, err)
	assert.Equal(t, "### Response: `bug`", text)
	assert.Empty(t, sleeper.waits)
}

func TestCompleteRetriesServerErrorThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "model loading", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`[{"generated_text": "labels here"}]`))
	}))
	defer server.Close()

	core, logs := observer.New(zapcore.DebugLevel)
	sleeper := &recordingSleeper{}
	c := newTestClient(t, server.URL, sleeper, zap.New(core))

	text, err := c.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "labels here", text)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, []time.Duration{40 * time.Second}, sleeper.waits)
	assert.Equal(t, 1, logs.FilterMessage("call failed, retrying").Len())
	assert.Equal(t, 1, logs.FilterMessage("call succeeded after retry").Len())
}

func TestCompleteExhaustsRetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	sleeper := &recordingSleeper{}
	c := newTestClient(t, server.URL, sleeper, nil)

	text, err := c.Complete(context.Background(), "prompt")
	require.Error(t, err)
	assert.Empty(t, text)
	assert.True(t, errors.Is(err, ErrHTTPStatus))
	assert.Equal(t, int32(2), calls.Load())
	assert.Len(t, sleeper.waits, 1)

	var cerr *CompletionError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, KindHTTPStatus, cerr.Kind)
	assert.Equal(t, http.StatusInternalServerError, cerr.StatusCode)
}

func TestCompleteKeepsNoStateBetweenFailingCalls(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	sleeper := &recordingSleeper{}
	c := newTestClient(t, server.URL, sleeper, nil)

	for i := 1; i <= 6; i++ {
		before := calls.Load()
		_, err := c.Complete(context.Background(), "prompt")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrHTTPStatus), "call %d: %v", i, err)
		assert.Equal(t, int32(2), calls.Load()-before, "call %d attempts", i)
	}
	assert.Len(t, sleeper.waits, 6)
}

func TestCompleteRateLimitWaitIsTransportError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	retry := DefaultRetryConfig()
	retry.Timeout = 100 * time.Millisecond
	sleeper := &recordingSleeper{}
	c, err := NewCompletionClient(CompletionConfig{
		Endpoint:      server.URL,
		APIKey:        "test-key",
		Retry:         retry,
		RatePerMinute: 1,
		Sleeper:       sleeper.sleep,
	})
	require.NoError(t, err)

	// The second attempt cannot get a token before its deadline
	_, err = c.Complete(context.Background(), "prompt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransport), "got %v", err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCompleteDoesNotRetryDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{name: "not json", body: `<html>oops</html>`, want: ErrDecode},
		{name: "malformed object", body: `{"generated_text": `, want: ErrDecode},
		{name: "missing field", body: `{"error": "busy"}`, want: ErrDecode},
		{name: "wrong field type", body: `{"generated_text": 42}`, want: ErrDecode},
		{name: "empty body", body: ``, want: ErrDecode},
		{name: "empty array", body: `[]`, want: ErrNoChoices},
		{name: "array without field", body: `[{"text": "x"}]`, want: ErrDecode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			sleeper := &recordingSleeper{}
			c := newTestClient(t, server.URL, sleeper, nil)

			_, err := c.Complete(context.Background(), "prompt")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.Equal(t, int32(1), calls.Load())
			assert.Empty(t, sleeper.waits)
		})
	}
}

func TestCompleteRetriesTransportErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close() // nothing listens any more

	sleeper := &recordingSleeper{}
	c := newTestClient(t, url, sleeper, nil)

	_, err := c.Complete(context.Background(), "prompt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransport), "got %v", err)
	assert.Len(t, sleeper.waits, 1)
}

func TestCompleteStopsWhenContextCanceledDuringBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	retry := DefaultRetryConfig()
	retry.Backoff = time.Hour
	c, err := NewCompletionClient(CompletionConfig{Endpoint: server.URL, APIKey: "k", Retry: retry})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = c.Complete(ctx, "prompt")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestNewCompletionClientConfig(t *testing.T) {
	t.Setenv(EnvAPIKey, "")
	t.Setenv(EnvEndpoint, "")

	_, err := NewCompletionClient(CompletionConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvAPIKey)

	t.Setenv(EnvAPIKey, "from-env")
	c, err := NewCompletionClient(CompletionConfig{})
	require.NoError(t, err)
	assert.Equal(t, DefaultEndpoint, c.Endpoint())
	assert.Equal(t, "from-env", c.apiKey)

	t.Setenv(EnvEndpoint, "http://llm.internal/generate")
	c, err = NewCompletionClient(CompletionConfig{})
	require.NoError(t, err)
	assert.Equal(t, "http://llm.internal/generate", c.Endpoint())

	_, err = NewCompletionClient(CompletionConfig{Retry: RetryConfig{MaxAttempts: 2, Backoff: -time.Second}})
	require.Error(t, err)
}

func TestDecodeCompletionShapes(t *testing.T) {
	text, err := decodeCompletion([]byte(`  {"generated_text": "single"} `))
	require.NoError(t, err)
	assert.Equal(t, "single", text)

	text, err = decodeCompletion([]byte(`[{"generated_text": "first"}, {"generated_text": "second"}]`))
	require.NoError(t, err)
	assert.Equal(t, "first", text)

	text, err = decodeCompletion([]byte(`{"generated_text": ""}`))
	require.NoError(t, err)
	assert.Equal(t, "", text)
}
