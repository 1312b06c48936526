package spotify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestClient_SendRetries(t *testing.T) {
	tests := []struct {
		name         string
		statuses     []int
		attempts     int
		wantStatus   int
		wantAttempts int32
		wantErr      bool
	}{
		{
			name:         "succeeds after two 503s",
			statuses:     []int{http.StatusServiceUnavailable, http.StatusServiceUnavailable, http.StatusOK},
			attempts:     3,
			wantStatus:   http.StatusOK,
			wantAttempts: 3,
		},
		{
			name:         "gives up on repeated 429",
			statuses:     []int{http.StatusTooManyRequests},
			attempts:     2,
			wantAttempts: 2,
			wantErr:      true,
		},
		{
			name:         "does not retry 404",
			statuses:     []int{http.StatusNotFound},
			attempts:     3,
			wantStatus:   http.StatusNotFound,
			wantAttempts: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				n := int(calls.Add(1))
				status := tt.statuses[len(tt.statuses)-1]
				if n <= len(tt.statuses) {
					status = tt.statuses[n-1]
				}
				w.WriteHeader(status)
			}))
			defer ts.Close()

			c := NewClient(ts.Client(), ts.URL, WithRetry(tt.attempts, time.Millisecond))
			req, _ := http.NewRequest(http.MethodGet, ts.URL, nil)

			resp, err := c.send(req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error: %v, got: %v", tt.wantErr, err)
			}
			if resp != nil {
				defer resp.Body.Close()
				if resp.StatusCode != tt.wantStatus {
					t.Fatalf("status: got %d, want %d", resp.StatusCode, tt.wantStatus)
				}
			}
			if got := calls.Load(); got != tt.wantAttempts {
				t.Fatalf("attempts: got %d, want %d", got, tt.wantAttempts)
			}
		})
	}
}

func TestClient_SendStopsOnCancel(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "5")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	c := NewClient(ts.Client(), ts.URL, WithRetry(3, time.Millisecond))
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL, nil)

	start := time.Now()
	if _, err := c.send(req); err == nil {
		t.Fatalf("expected cancellation error")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("send ignored cancellation, took %v", elapsed)
	}
}

func TestRetryAfter(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"", 0},
		{"7", 7 * time.Second},
		{"-3", 0},
		{now.Add(30 * time.Second).Format(http.TimeFormat), 30 * time.Second},
		{now.Add(-time.Minute).Format(http.TimeFormat), 0},
		{"soon", 0},
	}
	for _, tc := range tests {
		h := http.Header{}
		if tc.value != "" {
			h.Set("Retry-After", tc.value)
		}
		if got := retryAfter(h, now); got != tc.want {
			t.Fatalf("retryAfter(%q) = %v, want %v", tc.value, got, tc.want)
		}
	}
}
