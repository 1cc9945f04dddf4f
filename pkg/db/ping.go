package db

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const pingMaxRetries = 5

type pinger interface {
	PingContext(ctx context.Context) error
}

// pingWithRetry waits for the database to accept connections. Containers
// usually start before their database is ready.
func pingWithRetry(ctx context.Context, p pinger, maxRetries uint64, initial time.Duration, log *zap.Logger) error {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = initial
	expBackoff.MaxInterval = 5 * time.Second
	expBackoff.MaxElapsedTime = 0

	attempt := 0
	operation := func() error {
		attempt++
		err := p.PingContext(ctx)
		if err != nil {
			log.Warn("database not ready", zap.Int("attempt", attempt), zap.Error(err))
		}
		return err
	}

	return backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(expBackoff, maxRetries), ctx))
}
