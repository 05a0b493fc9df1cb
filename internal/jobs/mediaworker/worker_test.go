package mediaworker

import (
	"testing"
	"time"
)

func TestBackoffDelayDoubles(t *testing.T) {
	base := 30 * time.Second
	cap := 30 * time.Minute
	cases := []struct {
		attempts int
		want     time.Duration
	}{
		{0, 30 * time.Second},
		{1, 30 * time.Second},
		{2, time.Minute},
		{3, 2 * time.Minute},
		{4, 4 * time.Minute},
	}
	for _, tc := range cases {
		if got := backoffDelay(tc.attempts, base, cap); got != tc.want {
			t.Fatalf("attempts %d: got %v, want %v", tc.attempts, got, tc.want)
		}
	}
}

func TestBackoffDelayCaps(t *testing.T) {
	base := 30 * time.Second
	cap := 5 * time.Minute
	if got := backoffDelay(10, base, cap); got != cap {
		t.Fatalf("got %v, want cap %v", got, cap)
	}
	if got := backoffDelay(60, base, cap); got != cap {
		t.Fatalf("large attempts: got %v, want cap %v", got, cap)
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	if cfg.PollInterval <= 0 || cfg.BatchSize <= 0 || cfg.MaxAttempts <= 0 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if cfg.BackoffBase <= 0 || cfg.BackoffCap <= cfg.BackoffBase {
		t.Fatalf("backoff defaults not applied: %+v", cfg)
	}
}
