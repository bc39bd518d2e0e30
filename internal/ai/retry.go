package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/steveyegge/rdscout/internal/config"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// RetryConfig holds retry configuration for collaborator calls
type RetryConfig struct {
	MaxRetries        int           // Maximum number of retries (default: 3)
	InitialBackoff    time.Duration // Initial backoff duration (default: 1s)
	MaxBackoff        time.Duration // Maximum backoff duration (default: 30s)
	BackoffMultiplier float64       // Backoff multiplier (default: 2.0)
	Timeout           time.Duration // Per-attempt timeout (default: 60s)

	// Circuit breaker settings
	CircuitBreakerEnabled bool          // Enable circuit breaker (default: true)
	FailureThreshold      int           // Failures before opening circuit (default: 5)
	SuccessThreshold      int           // Successes in half-open before closing (default: 2)
	OpenTimeout           time.Duration // How long to keep circuit open (default: 30s)

	MaxConcurrentCalls int     // Maximum in-flight calls (0 = unlimited)
	RequestsPerSecond  float64 // Call rate cap (0 = unlimited)
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:            3,
		InitialBackoff:        1 * time.Second,
		MaxBackoff:            30 * time.Second,
		BackoffMultiplier:     2.0,
		Timeout:               60 * time.Second,
		CircuitBreakerEnabled: true,
		FailureThreshold:      5,
		SuccessThreshold:      2,
		OpenTimeout:           30 * time.Second,
		MaxConcurrentCalls:    3,
	}
}

// RetryConfigFrom builds a RetryConfig from workspace configuration
func RetryConfigFrom(c config.RetryConfig) RetryConfig {
	rc := DefaultRetryConfig()
	rc.MaxRetries = c.MaxRetries
	if c.InitialBackoff > 0 {
		rc.InitialBackoff = c.InitialBackoff
	}
	if c.MaxBackoff > 0 {
		rc.MaxBackoff = c.MaxBackoff
	}
	if c.Timeout > 0 {
		rc.Timeout = c.Timeout
	}
	if c.FailureThreshold > 0 {
		rc.FailureThreshold = c.FailureThreshold
	}
	if c.OpenTimeout > 0 {
		rc.OpenTimeout = c.OpenTimeout
	}
	return rc
}

// CircuitState represents the state of a circuit breaker
type CircuitState int

const (
	CircuitClosed   CircuitState = iota // Normal operation, requests pass through
	CircuitOpen                         // Too many failures, fail fast
	CircuitHalfOpen                     // Probing for recovery
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

// CircuitBreaker stops calling a collaborator that keeps failing
type CircuitBreaker struct {
	mu sync.Mutex

	name             string
	state            CircuitState
	failureCount     int
	successCount     int
	lastFailureTime  time.Time
	failureThreshold int
	successThreshold int
	openTimeout      time.Duration
	logger           *slog.Logger
}

// NewCircuitBreaker creates a closed circuit breaker
func NewCircuitBreaker(name string, failureThreshold, successThreshold int, openTimeout time.Duration, logger *slog.Logger) *CircuitBreaker {
	if logger == nil {
		logger = slog.Default()
	}
	return &CircuitBreaker{
		name:             name,
		state:            CircuitClosed,
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		openTimeout:      openTimeout,
		logger:           logger,
	}
}

// Allow returns ErrCircuitOpen while the circuit is open and the open timeout
// hasn't elapsed
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed, CircuitHalfOpen:
		return nil
	case CircuitOpen:
		if time.Since(cb.lastFailureTime) > cb.openTimeout {
			cb.transition(CircuitHalfOpen)
			return nil
		}
		return ErrCircuitOpen
	default:
		return ErrCircuitOpen
	}
}

// RecordSuccess records a successful call
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

// RecordFailure records a failed call
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.lastFailureTime = time.Now()
	switch cb.state {
	case CircuitClosed:
		cb.failureCount++
		if cb.failureCount >= cb.failureThreshold {
			cb.transition(CircuitOpen)
		}
	case CircuitHalfOpen:
		cb.transition(CircuitOpen)
	}
}

// State returns the current state
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// must be called with lock held
func (cb *CircuitBreaker) transition(to CircuitState) {
	from := cb.state
	cb.state = to
	cb.successCount = 0
	if to == CircuitClosed {
		cb.failureCount = 0
	}
	cb.logger.Info("circuit breaker state transition",
		"collaborator", cb.name, "from", from.String(), "to", to.String(),
		"failures", cb.failureCount, "open_timeout", cb.openTimeout)
}

// caller runs collaborator calls under a concurrency cap, an optional rate
// limit, a circuit breaker and retry with exponential backoff
type caller struct {
	name    string
	retry   RetryConfig
	breaker *CircuitBreaker
	sem     *semaphore.Weighted
	limiter *rate.Limiter
	logger  *slog.Logger
}

func newCaller(name string, rc RetryConfig, logger *slog.Logger) *caller {
	if logger == nil {
		logger = slog.Default()
	}
	if rc.BackoffMultiplier < 1 {
		rc.BackoffMultiplier = 2.0
	}
	c := &caller{name: name, retry: rc, logger: logger}
	if rc.CircuitBreakerEnabled {
		c.breaker = NewCircuitBreaker(name, rc.FailureThreshold, rc.SuccessThreshold, rc.OpenTimeout, logger)
	}
	if rc.MaxConcurrentCalls > 0 {
		c.sem = semaphore.NewWeighted(int64(rc.MaxConcurrentCalls))
	}
	if rc.RequestsPerSecond > 0 {
		burst := rc.MaxConcurrentCalls
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rc.RequestsPerSecond), burst)
	}
	return c
}

// do executes fn with retries. operation names the call in errors and logs.
func (c *caller) do(ctx context.Context, operation string, fn func(context.Context) error) error {
	if c.sem != nil {
		if err := c.sem.Acquire(ctx, 1); err != nil {
			return fmt.Errorf("failed to acquire concurrency slot for %s: %w", operation, err)
		}
		defer c.sem.Release(1)
	}

	var lastErr error
	backoff := c.retry.InitialBackoff

	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		if c.breaker != nil {
			if err := c.breaker.Allow(); err != nil {
				return fmt.Errorf("%s failed: %w", operation, err)
			}
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("%s failed: rate limiter: %w", operation, err)
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, c.retry.Timeout)
		err := fn(attemptCtx)
		cancel()

		if err == nil {
			if c.breaker != nil {
				c.breaker.RecordSuccess()
			}
			if attempt > 0 {
				c.logger.Info("collaborator call succeeded after retries",
					"collaborator", c.name, "operation", operation, "retries", attempt)
			}
			return nil
		}

		lastErr = err
		retriable := isRetriableError(err)

		// Auth and request errors don't count against the breaker
		if c.breaker != nil && retriable {
			c.breaker.RecordFailure()
		}
		if !retriable {
			return fmt.Errorf("%s failed: %w", operation, err)
		}
		if attempt == c.retry.MaxRetries {
			break
		}
		if ctx.Err() != nil {
			return fmt.Errorf("%s failed: context canceled: %w", operation, ctx.Err())
		}

		c.logger.Warn("collaborator call failed, retrying",
			"collaborator", c.name, "operation", operation,
			"attempt", attempt+1, "max_attempts", c.retry.MaxRetries+1,
			"backoff", backoff, "error", err)

		select {
		case <-time.After(backoff):
			backoff = time.Duration(float64(backoff) * c.retry.BackoffMultiplier)
			if backoff > c.retry.MaxBackoff {
				backoff = c.retry.MaxBackoff
			}
		case <-ctx.Done():
			return fmt.Errorf("%s failed: context canceled during backoff: %w", operation, ctx.Err())
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operation, c.retry.MaxRetries+1, lastErr)
}

// isRetriableError determines if an error is transient
func isRetriableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == 429 || reqErr.HTTPStatusCode >= 500
	}

	// The Anthropic SDK reports the status in its error text
	errStr := strings.ToLower(err.Error())
	for _, s := range []string{
		"429", "rate limit", "overloaded",
		"500", "502", "503", "504", "529",
		"internal server error", "bad gateway", "service unavailable", "gateway timeout",
		"connection refused", "connection reset", "timeout", "temporary failure", "network",
	} {
		if strings.Contains(errStr, s) {
			return true
		}
	}
	return false
}
