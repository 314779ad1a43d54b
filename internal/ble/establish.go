package ble

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/muurk/goveeplug/internal/logging"
)

// EstablishOptions tunes connection retry behavior
type EstablishOptions struct {
	// MaxAttempts is the total number of connection attempts (minimum 1)
	MaxAttempts int
	// InitialDelay seeds the exponential backoff between attempts
	InitialDelay time.Duration
	// MaxDelay caps the backoff between attempts
	MaxDelay time.Duration
}

// DefaultEstablishOptions returns the retry schedule plugs tolerate well:
// three attempts starting half a second apart.
func DefaultEstablishOptions() EstablishOptions {
	return EstablishOptions{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     5 * time.Second,
	}
}

// Establish connects to a device, retrying failed attempts with exponential
// backoff. It returns the first successful connection, or the last attempt's
// error once the attempt budget or ctx is exhausted.
func Establish(ctx context.Context, adapter Adapter, address string, opts EstablishOptions) (Connection, error) {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}

	bo := backoff.NewExponentialBackOff()
	if opts.InitialDelay > 0 {
		bo.InitialInterval = opts.InitialDelay
	}
	if opts.MaxDelay > 0 {
		bo.MaxInterval = opts.MaxDelay
	}
	// Bounded by attempt count, not wall clock
	bo.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(opts.MaxAttempts-1)), ctx)

	var conn Connection
	attempt := 0
	operation := func() error {
		attempt++
		c, err := adapter.Connect(ctx, address)
		if err != nil {
			logging.Warn("Connection attempt failed",
				zap.String("address", address),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return err
		}
		conn = c
		return nil
	}

	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return conn, nil
}
