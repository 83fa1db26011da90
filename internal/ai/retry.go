package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"go.uber.org/zap"
)

// RetryConfig holds the bounded retry policy for endpoint calls
type RetryConfig struct {
	MaxAttempts int           // Total attempts including the first (default: 2)
	Backoff     time.Duration // Fixed wait between attempts (default: 40s)
	Timeout     time.Duration // Per-attempt timeout (default: 60s)

	// Circuit breaker settings. The breaker keeps state across calls, so it is opt-in.
	CircuitBreakerEnabled bool          // Enable circuit breaker (default: false)
	FailureThreshold      int           // Failures before opening circuit (default: 5)
	SuccessThreshold      int           // Successes in half-open before closing (default: 2)
	OpenTimeout           time.Duration // How long to keep circuit open (default: 10m)
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:           2,
		Backoff:               40 * time.Second,
		Timeout:               60 * time.Second,
		CircuitBreakerEnabled: false,
		FailureThreshold:      5,
		SuccessThreshold:      2,
		OpenTimeout:           10 * time.Minute,
	}
}

// Validate checks the retry configuration for impossible values
func (c RetryConfig) Validate() error {
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1 (got %d)", c.MaxAttempts)
	}
	if c.Backoff < 0 {
		return fmt.Errorf("backoff cannot be negative (got %v)", c.Backoff)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative (got %v)", c.Timeout)
	}
	if c.CircuitBreakerEnabled && (c.FailureThreshold < 1 || c.SuccessThreshold < 1) {
		return fmt.Errorf("circuit breaker thresholds must be at least 1 (failure=%d, success=%d)",
			c.FailureThreshold, c.SuccessThreshold)
	}
	return nil
}

// Sleeper blocks for d or until ctx is done. It is the single suspension point
// of the retry loop, so a host can substitute its own scheduling.
type Sleeper func(ctx context.Context, d time.Duration) error

// ContextSleep is the default Sleeper.
func ContextSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CircuitState represents the state of a circuit breaker
type CircuitState int

const (
	CircuitClosed   CircuitState = iota // Normal operation, requests pass through
	CircuitOpen                         // Too many failures, block requests (fail fast)
	CircuitHalfOpen                     // Testing recovery, allow limited requests
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "CLOSED"
	case CircuitOpen:
		return "OPEN"
	case CircuitHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// ErrCircuitOpen is returned when the circuit breaker is open
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker stops calling an endpoint that keeps failing across invocations
type CircuitBreaker struct {
	mu sync.Mutex

	state            CircuitState
	failureCount     int
	successCount     int
	lastFailureTime  time.Time
	failureThreshold int
	successThreshold int
	openTimeout      time.Duration
	now              func() time.Time
	logger           *zap.Logger
}

// NewCircuitBreaker creates a new circuit breaker with the given configuration
func NewCircuitBreaker(failureThreshold, successThreshold int, openTimeout time.Duration, logger *zap.Logger) *CircuitBreaker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CircuitBreaker{
		state:            CircuitClosed,
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		openTimeout:      openTimeout,
		now:              time.Now,
		logger:           logger,
	}
}

// Allow returns ErrCircuitOpen while the circuit is open and the open timeout has not elapsed
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed, CircuitHalfOpen:
		return nil
	case CircuitOpen:
		if cb.now().Sub(cb.lastFailureTime) > cb.openTimeout {
			cb.transition(CircuitHalfOpen)
			return nil
		}
		return ErrCircuitOpen
	default:
		return ErrCircuitOpen
	}
}

// RecordSuccess records a successful request
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		cb.failureCount = 0
	case CircuitHalfOpen:
		cb.successCount++
		if cb.successCount >= cb.successThreshold {
			cb.transition(CircuitClosed)
		}
	}
}

// RecordFailure records a failed request
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.lastFailureTime = cb.now()

	switch cb.state {
	case CircuitClosed:
		cb.failureCount++
		if cb.failureCount >= cb.failureThreshold {
			cb.transition(CircuitOpen)
		}
	case CircuitHalfOpen:
		// Any failure while probing reopens the circuit
		cb.transition(CircuitOpen)
	}
}

// State returns the current state and counters
func (cb *CircuitBreaker) State() (state CircuitState, failures, successes int) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state, cb.failureCount, cb.successCount
}

// transition must be called with the lock held
func (cb *CircuitBreaker) transition(to CircuitState) {
	from := cb.state
	cb.state = to
	cb.successCount = 0
	if to == CircuitClosed {
		cb.failureCount = 0
	}
	cb.logger.Info("circuit breaker state transition",
		zap.Stringer("from", from),
		zap.Stringer("to", to),
		zap.Int("failures", cb.failureCount),
		zap.Duration("open_timeout", cb.openTimeout))
}

// retrier runs an operation under a RetryConfig
type retrier struct {
	cfg     RetryConfig
	breaker *CircuitBreaker
	sleep   Sleeper
	logger  *zap.Logger
}

func newRetrier(cfg RetryConfig, sleep Sleeper, logger *zap.Logger) *retrier {
	if sleep == nil {
		sleep = ContextSleep
	}
	r := &retrier{cfg: cfg, sleep: sleep, logger: logger}
	if cfg.CircuitBreakerEnabled {
		r.breaker = NewCircuitBreaker(cfg.FailureThreshold, cfg.SuccessThreshold, cfg.OpenTimeout, logger)
	}
	return r
}

// do executes fn up to MaxAttempts times, waiting a fixed Backoff between attempts.
// Only retriable errors are retried; anything else is returned immediately.
func (r *retrier) do(ctx context.Context, operation string, fn func(context.Context) error) error {
	var lastErr error

	// The breaker gates whole calls; once a call is admitted it spends its full budget
	if r.breaker != nil {
		if err := r.breaker.Allow(); err != nil {
			state, failures, _ := r.breaker.State()
			r.logger.Warn("call blocked by circuit breaker",
				zap.String("operation", operation),
				zap.Stringer("state", state),
				zap.Int("failures", failures))
			return fmt.Errorf("%s failed: %w", operation, err)
		}
	}

	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		attemptCtx, cancel := ctx, context.CancelFunc(func() {})
		if r.cfg.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		}
		err := fn(attemptCtx)
		cancel()

		if err == nil {
			if r.breaker != nil {
				r.breaker.RecordSuccess()
			}
			if attempt > 1 {
				r.logger.Info("call succeeded after retry",
					zap.String("operation", operation),
					zap.Int("attempt", attempt))
			}
			return nil
		}

		lastErr = err

		// Caller cancellation is not an endpoint failure
		if ctx.Err() != nil {
			return fmt.Errorf("%s failed: context canceled: %w", operation, ctx.Err())
		}

		retriable := isRetriableError(err)
		if r.breaker != nil && retriable {
			r.breaker.RecordFailure()
		}
		if !retriable {
			r.logger.Error("call failed with non-retriable error",
				zap.String("operation", operation),
				zap.Int("attempt", attempt),
				zap.Error(err))
			return err
		}

		if attempt == r.cfg.MaxAttempts {
			break
		}

		r.logger.Warn("call failed, retrying",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", r.cfg.MaxAttempts),
			zap.Duration("backoff", r.cfg.Backoff),
			zap.Error(err))

		if err := r.sleep(ctx, r.cfg.Backoff); err != nil {
			return fmt.Errorf("%s failed: context canceled during backoff: %w", operation, err)
		}
	}

	r.logger.Error("call failed, retry budget exhausted",
		zap.String("operation", operation),
		zap.Int("attempts", r.cfg.MaxAttempts),
		zap.Error(lastErr))
	return fmt.Errorf("%s failed after %d attempts: %w", operation, r.cfg.MaxAttempts, lastErr)
}

// isRetriableError determines if an error is transient
func isRetriableError(err error) bool {
	if err == nil {
		return false
	}

	var cerr *CompletionError
	if errors.As(err, &cerr) {
		return cerr.Retriable()
	}

	// Per-attempt timeout expired
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}

	return false
}
