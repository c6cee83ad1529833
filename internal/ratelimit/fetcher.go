// Package ratelimit paces and retries outbound calls to throttled APIs.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RetryPolicy bounds the retry loop applied to each individual call.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultRetry matches the documented backoff contract: base delay doubled
// per attempt, four attempts total.
var DefaultRetry = RetryPolicy{MaxAttempts: 4, BaseDelay: time.Second}

// Fetcher runs independent requests in rate-limited batches, retrying each
// request with exponential backoff on throttling and server errors.
type Fetcher struct {
	profile Profile
	retry   RetryPolicy
	logger  *zap.Logger
}

// NewFetcher creates a fetcher with the given pacing profile and retry policy.
func NewFetcher(profile Profile, retry RetryPolicy, logger *zap.Logger) *Fetcher {
	if profile.BatchSize <= 0 {
		profile.BatchSize = Normal.BatchSize
	}
	if retry.MaxAttempts <= 0 {
		retry = DefaultRetry
	}
	return &Fetcher{profile: profile, retry: retry, logger: logger}
}

// Profile returns the pacing profile in use.
func (f *Fetcher) Profile() Profile {
	return f.profile
}

// Do invokes call, retrying on retryable errors with delay base << attempt up
// to the bounded attempt count. Authentication errors fail fast.
func (f *Fetcher) Do(ctx context.Context, call func(context.Context) error) error {
	var err error
	for attempt := 0; attempt < f.retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := f.retry.BaseDelay << (attempt - 1)
			f.logger.Warn("Retrying after backoff",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(err))
			if !sleep(ctx, delay) {
				return ctx.Err()
			}
		}
		err = call(ctx)
		if err == nil {
			return nil
		}
		if IsAuth(err) || !IsRetryable(err) {
			return err
		}
	}
	return fmt.Errorf("retries exhausted after %d attempts: %w", f.retry.MaxAttempts, err)
}

// Run executes fn for indexes 0..n-1 in batches of the profile's size.
// Calls within a batch run concurrently, staggered by the inter-request
// delay; the next batch starts only after the current one completes plus the
// inter-batch delay. Each call is retried via Do. The returned slice holds
// the final error per index; fn writes successful results to its own slot.
func (f *Fetcher) Run(ctx context.Context, n int, fn func(ctx context.Context, i int) error) []error {
	errs := make([]error, n)
	for start := 0; start < n; start += f.profile.BatchSize {
		end := start + f.profile.BatchSize
		if end > n {
			end = n
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			if i > start {
				sleep(ctx, f.profile.InterRequestDelay)
			}
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = f.Do(ctx, func(ctx context.Context) error {
					return fn(ctx, i)
				})
			}(i)
		}
		wg.Wait()

		if end < n {
			if !sleep(ctx, f.profile.InterBatchDelay) {
				for i := end; i < n; i++ {
					errs[i] = ctx.Err()
				}
				return errs
			}
		}
	}
	return errs
}

// sleep waits cooperatively, returning false when ctx is done first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
