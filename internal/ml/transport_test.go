package ml

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBreakerTransport(cooldown time.Duration) *Transport {
	return NewTransport(TransportConfig{
		Timeout:           time.Second,
		MaxRetries:        0,
		RetryWaitMin:      time.Millisecond,
		RetryWaitMax:      time.Millisecond,
		RateLimit:         1000,
		CircuitBreakerMax: 2,
		CircuitCooldown:   cooldown,
	}, testLogger())
}

func get(t *testing.T, transport *Transport, url string) error {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	resp, err := transport.Do(context.Background(), req)
	if err == nil {
		drain(resp.Body)
	}
	return err
}

func TestTransportCircuitClosesAfterCooldown(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	downURL := down.URL
	down.Close()

	transport := newBreakerTransport(50 * time.Millisecond)

	assert.ErrorIs(t, get(t, transport, downURL), ErrMLServiceUnavailable)
	assert.ErrorIs(t, get(t, transport, downURL), ErrMLServiceUnavailable)
	assert.ErrorIs(t, get(t, transport, healthy.URL), ErrCircuitOpen)

	time.Sleep(60 * time.Millisecond)
	require.NoError(t, get(t, transport, healthy.URL))
	assert.NoError(t, get(t, transport, healthy.URL))
}

func TestTransportFailedTrialReopensCircuit(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	downURL := down.URL
	down.Close()

	transport := newBreakerTransport(50 * time.Millisecond)
	_ = get(t, transport, downURL)
	_ = get(t, transport, downURL)

	time.Sleep(60 * time.Millisecond)
	assert.ErrorIs(t, get(t, transport, downURL), ErrMLServiceUnavailable)
	assert.ErrorIs(t, get(t, transport, healthy.URL), ErrCircuitOpen)
}

func TestTransportWithoutCooldownStaysOpen(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	downURL := down.URL
	down.Close()

	transport := newBreakerTransport(0)
	_ = get(t, transport, downURL)
	_ = get(t, transport, downURL)

	time.Sleep(10 * time.Millisecond)
	assert.ErrorIs(t, get(t, transport, downURL), ErrCircuitOpen)
}
