package worker

import (
	"context"
	"net/http"
	"testing"
	"time"
)

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(10, -1)
	if l2.defaultBurst != 5 {
		t.Errorf("expected default burst 5 for negative input, got %d", l2.defaultBurst)
	}
}

func TestLimiter_Wait(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "http://lemmatizer.local/lemmatize"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
	if err := limiter.Wait(ctx, "http://localhost:11434/v1"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
	if err := limiter.Wait(ctx, "lemmatize"); err == nil {
		t.Error("expected error for URL without host")
	}
}

func TestLimiter_Unlimited(t *testing.T) {
	limiter := NewLimiter(0, 1)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for i := 0; i < 20; i++ {
		if err := limiter.Wait(ctx, "http://api.openai.com/v1"); err != nil {
			t.Fatalf("request %d should pass without a rate: %v", i, err)
		}
	}
}

func TestLimiter_SetRate(t *testing.T) {
	limiter := NewLimiter(0, 1)
	if err := limiter.SetRate("http://slow.local/lemmatize", 0.1, 1); err != nil {
		t.Fatalf("SetRate failed: %v", err)
	}
	if err := limiter.SetRate("not a url", 1, 1); err == nil {
		t.Error("expected error for URL without host")
	}

	ctx := context.Background()
	if err := limiter.Wait(ctx, "http://slow.local/a"); err != nil {
		t.Fatalf("first request should pass: %v", err)
	}

	// The bucket is empty and refills after ten seconds
	short, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if err := limiter.Wait(short, "http://slow.local/b"); err == nil {
		t.Error("second request to the slow host should not pass")
	}

	if err := limiter.Wait(ctx, "http://fast.local"); err != nil {
		t.Errorf("other host should pass: %v", err)
	}
}

func TestLimiter_PauseHoldsHost(t *testing.T) {
	limiter := NewLimiter(0, 1)
	ctx := context.Background()

	limiter.Pause("http://archive.local/charter.xml", 60*time.Millisecond)
	limiter.Pause("http://archive.local/other.xml", 10*time.Millisecond)

	start := time.Now()
	if err := limiter.Wait(ctx, "http://archive.local/next.xml"); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 60*time.Millisecond {
		t.Errorf("expected the longer pause to hold, waited %v", elapsed)
	}

	start = time.Now()
	if err := limiter.Wait(ctx, "http://lemmatizer.local"); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 30*time.Millisecond {
		t.Errorf("other host should not be paused, waited %v", elapsed)
	}
}

func TestLimiter_PauseCancelled(t *testing.T) {
	limiter := NewLimiter(100, 1)
	limiter.Pause("http://lemmatizer.local", time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := limiter.Wait(ctx, "http://lemmatizer.local"); err == nil {
		t.Error("expected cancelled context to abort the pause")
	}
}

func TestLimiter_Stats(t *testing.T) {
	limiter := NewLimiter(0, 1)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := limiter.Wait(ctx, "http://b.local"); err != nil {
			t.Fatal(err)
		}
	}
	if err := limiter.Wait(ctx, "http://a.local"); err != nil {
		t.Fatal(err)
	}
	limiter.Pause("http://a.local", time.Millisecond)

	stats := limiter.Stats()
	if len(stats) != 2 {
		t.Fatalf("expected 2 hosts, got %d", len(stats))
	}
	if stats[0].Host != "a.local" || stats[0].Requests != 1 || stats[0].Pauses != 1 {
		t.Errorf("unexpected stats for a.local: %+v", stats[0])
	}
	if stats[1].Host != "b.local" || stats[1].Requests != 3 || stats[1].Pauses != 0 {
		t.Errorf("unexpected stats for b.local: %+v", stats[1])
	}
}

func TestRetryAfter(t *testing.T) {
	h := http.Header{}
	if got := RetryAfter(h, 3*time.Second); got != 3*time.Second {
		t.Errorf("expected fallback, got %v", got)
	}

	h.Set("Retry-After", "7")
	if got := RetryAfter(h, time.Second); got != 7*time.Second {
		t.Errorf("expected 7s, got %v", got)
	}

	h.Set("Retry-After", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
	if got := RetryAfter(h, time.Second); got < 59*time.Minute || got > time.Hour {
		t.Errorf("expected about an hour, got %v", got)
	}

	h.Set("Retry-After", "soon")
	if got := RetryAfter(h, time.Second); got != time.Second {
		t.Errorf("expected fallback for unreadable value, got %v", got)
	}
}

func TestHostOf(t *testing.T) {
	host, err := HostOf("http://localhost:8080/lemmatize")
	if err != nil {
		t.Fatalf("HostOf failed: %v", err)
	}
	if host != "localhost:8080" {
		t.Errorf("expected localhost:8080, got %s", host)
	}

	if _, err := HostOf("::invalid"); err == nil {
		t.Errorf("expected error for invalid URL")
	}
}
