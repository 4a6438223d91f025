// Package ml provides clients for the external classifier service.
package ml

import "errors"

var (
	// ErrMLServiceUnavailable indicates the model service is unreachable
	ErrMLServiceUnavailable = errors.New("ml service unavailable")

	// ErrInvalidPrediction indicates the prediction response is invalid
	ErrInvalidPrediction = errors.New("invalid prediction response")

	// ErrCircuitOpen indicates too many consecutive transport failures
	ErrCircuitOpen = errors.New("circuit breaker open")

	// ErrInvalidResponse indicates invalid response from ML service
	ErrInvalidResponse = errors.New("invalid response from ml service")
)
