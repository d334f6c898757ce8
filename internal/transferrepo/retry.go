package transferrepo

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/go-petr/pet-transfer/internal/domain"
	"github.com/go-petr/pet-transfer/internal/telemetry"
	"github.com/go-petr/pet-transfer/pkg/dbpkg"
)

const (
	backoffInitial = 10 * time.Millisecond
	backoffMax     = 500 * time.Millisecond
)

func isConflict(err error) bool {
	return dbpkg.IsRetryable(err) || errors.Is(err, errDuplicateKey)
}

// newBackOff returns a jittered exponential backoff bounded only by the retry
// budget and the context.
func newBackOff(ctx context.Context, maxRetries int) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = backoffInitial
	b.MaxInterval = backoffMax
	b.MaxElapsedTime = 0

	return backoff.WithMaxRetries(backoff.WithContext(b, ctx), uint64(maxRetries))
}

// retryConflicts runs op until it succeeds, fails with a non-conflict error or
// the retry budget runs out, which is reported as ErrConcurrencyConflict.
func retryConflicts(ctx context.Context, maxRetries int, op func() error) error {
	l := zerolog.Ctx(ctx)
	attempt := 0

	err := backoff.RetryNotify(
		func() error {
			attempt++

			err := op()
			if err != nil && !isConflict(err) {
				return backoff.Permanent(err)
			}

			return err
		},
		newBackOff(ctx, maxRetries),
		func(err error, d time.Duration) {
			l.Info().Err(err).Int("attempt", attempt).Dur("backoff", d).Msg("retrying conflicting transfer")
			telemetry.TransferRetriesTotal.Inc()
		},
	)

	if isConflict(err) {
		l.Warn().Err(err).Int("attempts", attempt).Msg("transfer conflict retry budget exhausted")
		return domain.ErrConcurrencyConflict
	}

	return err
}
