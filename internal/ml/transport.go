package ml

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// TransportConfig holds configuration for the model-service HTTP transport
type TransportConfig struct {
	Timeout           time.Duration
	MaxRetries        int
	RetryWaitMin      time.Duration
	RetryWaitMax      time.Duration
	RateLimit         float64 // requests per second
	CircuitBreakerMax int     // max consecutive failures before circuit break
	CircuitCooldown   time.Duration
}

// DefaultTransportConfig returns recommended defaults
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		Timeout:           30 * time.Second,
		MaxRetries:        3,
		RetryWaitMin:      100 * time.Millisecond,
		RetryWaitMax:      5 * time.Second,
		RateLimit:         10.0,
		CircuitBreakerMax: 5,
		CircuitCooldown:   30 * time.Second,
	}
}

// Transport wraps retryablehttp.Client with rate limiting and a circuit breaker
type Transport struct {
	client            *retryablehttp.Client
	limiter           *rate.Limiter
	circuitBreakerMax int
	circuitCooldown   time.Duration

	mu                sync.Mutex
	consecutiveErrors int
	isOpen            bool
	openedAt          time.Time
	trialInFlight     bool
	lastError         error

	logger *logrus.Entry
}

// NewTransport creates a new rate-limited transport
func NewTransport(cfg TransportConfig, logger *logrus.Logger) *Transport {
	entry := logger.WithField("component", "ml_transport")

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient.Timeout = cfg.Timeout
	retryClient.RetryMax = cfg.MaxRetries
	retryClient.RetryWaitMin = cfg.RetryWaitMin
	retryClient.RetryWaitMax = cfg.RetryWaitMax
	retryClient.CheckRetry = retryPolicy()
	retryClient.Logger = nil

	return &Transport{
		client:            retryClient,
		limiter:           rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		circuitBreakerMax: cfg.CircuitBreakerMax,
		circuitCooldown:   cfg.CircuitCooldown,
		logger:            entry,
	}
}

// Do executes an HTTP request with rate limiting and circuit breaker
func (t *Transport) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if err := t.acquire(); err != nil {
		return nil, err
	}

	if err := t.limiter.Wait(ctx); err != nil {
		t.releaseTrial()
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	retryReq, err := retryablehttp.FromRequest(req.WithContext(ctx))
	if err != nil {
		t.releaseTrial()
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := t.client.Do(retryReq)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.trialInFlight = false
	if err != nil {
		t.consecutiveErrors++
		t.lastError = err
		if t.isOpen {
			t.openedAt = time.Now()
			t.logger.WithError(err).Warn("Circuit breaker trial request failed")
		} else if t.circuitBreakerMax > 0 && t.consecutiveErrors >= t.circuitBreakerMax {
			t.isOpen = true
			t.openedAt = time.Now()
			t.logger.WithError(err).WithField("consecutive_errors", t.consecutiveErrors).Error("Circuit breaker opened")
		}
		return nil, fmt.Errorf("%w: %v", ErrMLServiceUnavailable, err)
	}
	if resp.StatusCode >= 500 && t.isOpen {
		t.openedAt = time.Now()
	}
	if resp.StatusCode < 500 {
		if t.isOpen {
			t.logger.Info("Circuit breaker closed")
		}
		t.consecutiveErrors = 0
		t.isOpen = false
	}
	return resp, nil
}

// acquire rejects requests while the circuit is open. After the cooldown one
// trial request is let through; its outcome closes or re-opens the circuit.
func (t *Transport) acquire() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.isOpen {
		return nil
	}
	if t.circuitCooldown > 0 && !t.trialInFlight && time.Since(t.openedAt) >= t.circuitCooldown {
		t.trialInFlight = true
		return nil
	}
	return fmt.Errorf("%w: %v", ErrCircuitOpen, t.lastError)
}

func (t *Transport) releaseTrial() {
	t.mu.Lock()
	t.trialInFlight = false
	t.mu.Unlock()
}

// Close closes any resources held by the transport
func (t *Transport) Close() error {
	t.client.HTTPClient.CloseIdleConnections()
	return nil
}

// retryPolicy retries network errors, 429 and 5xx gateway errors
func retryPolicy() retryablehttp.CheckRetry {
	return func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if err != nil {
			return true, nil
		}
		switch resp.StatusCode {
		case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true, nil
		}
		return false, nil
	}
}

// drain discards the rest of a response body so the connection can be reused
func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
