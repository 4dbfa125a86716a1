package transcriber

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Uploader performs one transcription request and returns the recognized text.
type Uploader interface {
	Upload(ctx context.Context, wav []byte) (string, error)
}

type Option func(*Client)

// WithRetryNotify is called before each retry with the failed attempt's error
// and the delay until the next one.
func WithRetryNotify(fn func(err error, delay time.Duration)) Option {
	return func(c *Client) {
		c.notify = fn
	}
}

// Client wraps an Uploader with the retry schedule and the hard timeout.
type Client struct {
	uploader Uploader
	config   Config
	notify   func(err error, delay time.Duration)
}

func NewClient(uploader Uploader, config Config, opts ...Option) *Client {
	c := &Client{
		uploader: uploader,
		config:   config.withRetryDefaults(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Transcribe uploads wav, retrying transient errors. It always returns within
// the configured timeout, abandoning the in-flight attempt if needed.
func (c *Client) Transcribe(ctx context.Context, wav []byte) Result {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	var attempts atomic.Int32
	type outcome struct {
		text string
		err  error
	}
	done := make(chan outcome, 1)

	start := time.Now()
	go func() {
		text, err := backoff.RetryNotifyWithData(func() (string, error) {
			attempts.Add(1)
			text, err := c.uploader.Upload(ctx, wav)
			if err != nil && !Retryable(err) {
				return "", backoff.Permanent(err)
			}
			return text, err
		}, c.schedule(ctx), c.onRetry)
		done <- outcome{text: text, err: err}
	}()

	select {
	case out := <-done:
		n := int(attempts.Load())
		if out.err != nil {
			f := classify(out.err, n)
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				f.Kind = FailureTimeout
			}
			zap.S().Warnf("transcriber: failed after %d attempt(s) in %v: %v", n, time.Since(start), f)
			return Failed(f)
		}
		zap.S().Infof("transcriber: transcribed %d bytes in %v (%d attempt(s))", len(wav), time.Since(start), n)
		return Succeeded(out.text, n)

	case <-ctx.Done():
		f := &Failure{Kind: FailureTimeout, Attempts: int(attempts.Load()), Err: ctx.Err()}
		if errors.Is(ctx.Err(), context.Canceled) {
			f.Kind = FailureCanceled
		}
		zap.S().Warnf("transcriber: abandoned after %v: %v", time.Since(start), f)
		return Failed(f)
	}
}

func (c *Client) schedule(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.config.BaseDelay
	b.MaxInterval = c.config.MaxDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.config.MaxAttempts-1)), ctx)
}

func (c *Client) onRetry(err error, delay time.Duration) {
	zap.S().Infof("transcriber: attempt failed, retrying in %v: %v", delay, err)
	if c.notify != nil {
		c.notify(err, delay)
	}
}
