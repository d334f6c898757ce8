// Package telemetry holds the Prometheus collectors of the transfer service.
package telemetry

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/go-petr/pet-transfer/internal/domain"
)

// Transfer outcomes.
const (
	OutcomeSuccess             = "success"
	OutcomeReplayed            = "replayed"
	OutcomeNotFound            = "not_found"
	OutcomeInvalidAmount       = "invalid_amount"
	OutcomeRecipientMismatch   = "recipient_mismatch"
	OutcomeInsufficientFunds   = "insufficient_funds"
	OutcomeConcurrencyConflict = "concurrency_conflict"
	OutcomeStoreUnavailable    = "store_unavailable"
	OutcomeKeyReused           = "idempotency_key_reused"
	OutcomeFailed              = "failed"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transfer_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "transfer_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Transfer metrics
	TransfersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transfer_transfers_total",
			Help: "Total number of transfer attempts by outcome",
		},
		[]string{"outcome"},
	)

	TransferProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "transfer_processing_duration_seconds",
			Help:    "Time to execute a transfer against the ledger store",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	TransferRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "transfer_conflict_retries_total",
			Help: "Total number of transfer units re-run after a lock or serialization conflict",
		},
	)
)

// Outcome returns the TransfersTotal label for the result of a transfer.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, domain.ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, domain.ErrInvalidAmount):
		return OutcomeInvalidAmount
	case errors.Is(err, domain.ErrRecipientMismatch):
		return OutcomeRecipientMismatch
	case errors.Is(err, domain.ErrInsufficientFunds):
		return OutcomeInsufficientFunds
	case errors.Is(err, domain.ErrConcurrencyConflict):
		return OutcomeConcurrencyConflict
	case errors.Is(err, domain.ErrStoreUnavailable):
		return OutcomeStoreUnavailable
	case errors.Is(err, domain.ErrIdempotencyKeyReused):
		return OutcomeKeyReused
	}

	return OutcomeFailed
}
