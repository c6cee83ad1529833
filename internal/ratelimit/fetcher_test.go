package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

func fastFetcher(retry RetryPolicy) *Fetcher {
	profile := Profile{Name: "test", BatchSize: 3, InterBatchDelay: time.Millisecond, InterRequestDelay: 0}
	return NewFetcher(profile, retry, zap.NewNop())
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	f := fastFetcher(RetryPolicy{MaxAttempts: 4, BaseDelay: time.Millisecond})
	calls := 0
	err := f.Do(context.Background(), func(context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Do returned %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDoRetriesThrottlingThenSucceeds(t *testing.T) {
	f := fastFetcher(RetryPolicy{MaxAttempts: 4, BaseDelay: time.Millisecond})
	calls := 0
	err := f.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return &StatusError{Code: http.StatusTooManyRequests}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do returned %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDoExhaustsBoundedAttempts(t *testing.T) {
	f := fastFetcher(RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond})
	calls := 0
	err := f.Do(context.Background(), func(context.Context) error {
		calls++
		return &StatusError{Code: http.StatusServiceUnavailable}
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusServiceUnavailable {
		t.Errorf("final error does not wrap the last status: %v", err)
	}
}

func TestDoFailsFastOnAuth(t *testing.T) {
	f := fastFetcher(RetryPolicy{MaxAttempts: 4, BaseDelay: time.Millisecond})
	calls := 0
	err := f.Do(context.Background(), func(context.Context) error {
		calls++
		return &StatusError{Code: http.StatusUnauthorized}
	})
	if !IsAuth(err) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry on auth)", calls)
	}
}

func TestDoDoesNotRetryClientErrors(t *testing.T) {
	f := fastFetcher(RetryPolicy{MaxAttempts: 4, BaseDelay: time.Millisecond})
	calls := 0
	err := f.Do(context.Background(), func(context.Context) error {
		calls++
		return &StatusError{Code: http.StatusBadRequest}
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (400 is not retryable)", calls)
	}
}

func TestDoRetriesTransportErrors(t *testing.T) {
	f := fastFetcher(RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond})
	calls := 0
	err := f.Do(context.Background(), func(context.Context) error {
		calls++
		return errors.New("connection reset by peer")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2 (plain errors are retryable)", calls)
	}
}

func TestRunCoversAllIndexes(t *testing.T) {
	f := fastFetcher(RetryPolicy{MaxAttempts: 1, BaseDelay: time.Millisecond})

	const n = 8
	results := make([]string, n)
	var mu sync.Mutex
	seen := make(map[int]int)

	errs := f.Run(context.Background(), n, func(_ context.Context, i int) error {
		mu.Lock()
		seen[i]++
		mu.Unlock()
		results[i] = fmt.Sprintf("msg-%d", i)
		return nil
	})

	if len(errs) != n {
		t.Fatalf("len(errs) = %d, want %d", len(errs), n)
	}
	for i, err := range errs {
		if err != nil {
			t.Errorf("errs[%d] = %v", i, err)
		}
		if results[i] != fmt.Sprintf("msg-%d", i) {
			t.Errorf("results[%d] = %q, slot written by wrong index", i, results[i])
		}
	}
	for i := 0; i < n; i++ {
		if seen[i] != 1 {
			t.Errorf("index %d invoked %d times, want 1", i, seen[i])
		}
	}
}

func TestRunReportsPerIndexErrors(t *testing.T) {
	f := fastFetcher(RetryPolicy{MaxAttempts: 1, BaseDelay: time.Millisecond})

	errs := f.Run(context.Background(), 4, func(_ context.Context, i int) error {
		if i == 2 {
			return &StatusError{Code: http.StatusNotFound}
		}
		return nil
	})

	for i, err := range errs {
		if i == 2 {
			if err == nil {
				t.Error("errs[2] = nil, want failure")
			}
			continue
		}
		if err != nil {
			t.Errorf("errs[%d] = %v, want nil", i, err)
		}
	}
}

func TestRunRespectsCancellation(t *testing.T) {
	profile := Profile{Name: "test", BatchSize: 2, InterBatchDelay: time.Minute, InterRequestDelay: 0}
	f := NewFetcher(profile, RetryPolicy{MaxAttempts: 1, BaseDelay: time.Millisecond}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	errs := f.Run(ctx, 6, func(_ context.Context, i int) error {
		if i == 1 {
			// Cancel during the first batch so the inter-batch wait aborts.
			cancel()
		}
		return nil
	})

	// The remaining indexes never run and carry the context error.
	for i := 2; i < 6; i++ {
		if !errors.Is(errs[i], context.Canceled) {
			t.Errorf("errs[%d] = %v, want context.Canceled", i, errs[i])
		}
	}
}

func TestRunWithZeroBatchSizeTerminates(t *testing.T) {
	f := NewFetcher(Profile{Name: "broken"}, RetryPolicy{MaxAttempts: 1, BaseDelay: time.Millisecond}, zap.NewNop())
	if got := f.Profile().BatchSize; got != Normal.BatchSize {
		t.Fatalf("BatchSize = %d, want the normal default %d", got, Normal.BatchSize)
	}

	var mu sync.Mutex
	calls := 0
	errs := f.Run(context.Background(), 3, func(context.Context, int) error {
		mu.Lock()
		calls++
		mu.Unlock()
		return nil
	})
	if len(errs) != 3 {
		t.Fatalf("len(errs) = %d, want 3", len(errs))
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestProfileByName(t *testing.T) {
	tests := []struct {
		name      string
		wantBatch int
		wantErr   bool
	}{
		{"conservative", 3, false},
		{"normal", 5, false},
		{"", 5, false},
		{"aggressive", 10, false},
		{"turbo", 0, true},
	}
	for _, tt := range tests {
		p, err := ProfileByName(tt.name)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ProfileByName(%q) succeeded, want error", tt.name)
			}
			continue
		}
		if err != nil {
			t.Errorf("ProfileByName(%q) = %v", tt.name, err)
			continue
		}
		if p.BatchSize != tt.wantBatch {
			t.Errorf("ProfileByName(%q).BatchSize = %d, want %d", tt.name, p.BatchSize, tt.wantBatch)
		}
	}
}

func TestStatusErrorClassification(t *testing.T) {
	tests := []struct {
		code      int
		auth      bool
		retryable bool
	}{
		{http.StatusUnauthorized, true, false},
		{http.StatusForbidden, true, false},
		{http.StatusTooManyRequests, false, true},
		{http.StatusInternalServerError, false, true},
		{http.StatusBadGateway, false, true},
		{http.StatusNotFound, false, false},
		{http.StatusBadRequest, false, false},
	}
	for _, tt := range tests {
		err := &StatusError{Code: tt.code, Err: errors.New("upstream")}
		if got := IsAuth(err); got != tt.auth {
			t.Errorf("IsAuth(%d) = %v, want %v", tt.code, got, tt.auth)
		}
		if got := IsRetryable(err); got != tt.retryable {
			t.Errorf("IsRetryable(%d) = %v, want %v", tt.code, got, tt.retryable)
		}
	}
}
