package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestWithRetry(t *testing.T) {
	transient := errors.New("connection refused")

	tests := []struct {
		name       string
		maxRetries int
		failures   int
		wantCalls  int
		wantErr    error
	}{
		{"first attempt succeeds", 2, 0, 1, nil},
		{"succeeds on last attempt", 2, 2, 3, nil},
		{"exhausted", 2, 3, 3, ErrAgentUnavailable},
		{"no retries", 0, 1, 1, ErrAgentUnavailable},
		{"negative retries act as zero", -3, 5, 1, ErrAgentUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			got, err := WithRetry(context.Background(), func(context.Context) (string, error) {
				calls++
				if calls <= tt.failures {
					return "", transient
				}
				return "ok", nil
			}, tt.maxRetries, time.Millisecond)

			if calls != tt.wantCalls {
				t.Errorf("fn called %d times, want %d", calls, tt.wantCalls)
			}
			if tt.wantErr == nil {
				if err != nil || got != "ok" {
					t.Errorf("WithRetry() = %q, %v, want ok", got, err)
				}
				return
			}
			if err != tt.wantErr {
				t.Errorf("WithRetry() error = %v, want %v", err, tt.wantErr)
			}
			if errors.Is(err, transient) {
				t.Error("sentinel must not wrap the transport error")
			}
		})
	}
}

func TestWithRetryLinearBackoff(t *testing.T) {
	base := 20 * time.Millisecond
	var stamps []time.Time

	_, err := WithRetry(context.Background(), func(context.Context) (int, error) {
		stamps = append(stamps, time.Now())
		return 0, errors.New("boom")
	}, 2, base)

	if err != ErrAgentUnavailable {
		t.Fatalf("err = %v, want ErrAgentUnavailable", err)
	}
	if len(stamps) != 3 {
		t.Fatalf("got %d attempts, want 3", len(stamps))
	}
	for k := 1; k < len(stamps); k++ {
		gap := stamps[k].Sub(stamps[k-1])
		if want := base * time.Duration(k); gap < want {
			t.Errorf("gap before retry %d = %v, want >= %v", k, gap, want)
		}
	}
}

func TestWithRetryPermanentErrors(t *testing.T) {
	custom := errors.New("bad request")

	tests := []struct {
		name    string
		err     error
		wantErr error
	}{
		{"async webhook", ErrAsyncWebhook, ErrAsyncWebhook},
		{"wrapped async webhook", fmt.Errorf("post: %w", ErrAsyncWebhook), ErrAsyncWebhook},
		{"not configured", ErrAgentNotConfigured, ErrAgentNotConfigured},
		{"marked permanent", Permanent(custom), custom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			_, err := WithRetry(context.Background(), func(context.Context) (struct{}, error) {
				calls++
				return struct{}{}, tt.err
			}, 3, time.Millisecond)

			if calls != 1 {
				t.Errorf("fn called %d times, want 1", calls)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if errors.Is(err, ErrAgentUnavailable) {
				t.Error("permanent error must not become ErrAgentUnavailable")
			}
		})
	}
}

func TestWithRetryRetriesRequestTimeouts(t *testing.T) {
	calls := 0
	_, err := WithRetry(context.Background(), func(context.Context) (int, error) {
		calls++
		return 0, fmt.Errorf("post: %w", context.DeadlineExceeded)
	}, 2, time.Millisecond)

	if calls != 3 {
		t.Errorf("fn called %d times, want 3", calls)
	}
	if !errors.Is(err, ErrAgentUnavailable) {
		t.Errorf("err = %v, want ErrAgentUnavailable", err)
	}
}

func TestWithRetryStopsWhenCallerCancels(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := WithRetry(ctx, func(ctx context.Context) (int, error) {
		calls++
		cancel()
		return 0, fmt.Errorf("do: %w", ctx.Err())
	}, 3, time.Millisecond)

	if calls != 1 {
		t.Errorf("fn called %d times, want 1", calls)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestWithRetryContextCancelDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	done := make(chan error, 1)
	go func() {
		_, err := WithRetry(ctx, func(context.Context) (int, error) {
			calls++
			return 0, errors.New("timeout")
		}, 5, time.Hour)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
		if calls != 1 {
			t.Errorf("fn called %d times, want 1", calls)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("WithRetry did not return after cancel")
	}
}
