package ocr

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
)

type retrying struct {
	Recognizer
	attempts uint
	delay    time.Duration
	log      *slog.Logger
}

// WithRetry retries recognitions that fail with a RetryableError, up to
// attempts calls in total. Other errors are returned immediately.
func WithRetry(r Recognizer, attempts uint, delay time.Duration, log *slog.Logger) Recognizer {
	if attempts == 0 {
		attempts = 1
	}
	if delay <= 0 {
		delay = time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &retrying{Recognizer: r, attempts: attempts, delay: delay, log: log}
}

func (r *retrying) Recognize(ctx context.Context, image []byte, progress ProgressFunc) (string, error) {
	var text string
	err := retry.Do(
		func() error {
			t, err := r.Recognizer.Recognize(ctx, image, progress)
			if err != nil {
				return err
			}
			text = t
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(r.attempts),
		retry.Delay(r.delay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var re *RetryableError
			return errors.As(err, &re)
		}),
		retry.OnRetry(func(n uint, err error) {
			r.log.Warn("ocr attempt failed, retrying",
				"provider", r.Recognizer.Name(), "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return "", err
	}
	return text, nil
}

// Close closes the wrapped recognizer if it holds resources.
func (r *retrying) Close() error {
	if c, ok := r.Recognizer.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
