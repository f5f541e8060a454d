package worker

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter paces outgoing requests per host. Archive hosts serving corpus
// files, the lemmatizer service and the LLM endpoint each get their own
// token bucket. A host that answered 429 is paused for every caller until
// its Retry-After period is over.
type Limiter struct {
	mu           sync.Mutex
	hosts        map[string]*hostPace
	defaultRate  rate.Limit
	defaultBurst int
}

type hostPace struct {
	limiter     *rate.Limiter
	pausedUntil time.Time
	requests    int
	pauses      int
	waited      time.Duration
}

// HostStats summarizes the requests paced for one host
type HostStats struct {
	Host     string
	Requests int
	Pauses   int
	Waited   time.Duration
}

// NewLimiter creates a limiter with a default rate for hosts without their
// own. A rate of zero or less disables pacing; pauses still apply.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 5
	}
	return &Limiter{
		hosts:        make(map[string]*hostPace),
		defaultRate:  limitOf(requestsPerSecond),
		defaultBurst: burst,
	}
}

func limitOf(requestsPerSecond float64) rate.Limit {
	if requestsPerSecond <= 0 {
		return rate.Inf
	}
	return rate.Limit(requestsPerSecond)
}

// pace returns the entry of a host; l.mu must be held
func (l *Limiter) pace(host string) *hostPace {
	p, ok := l.hosts[host]
	if !ok {
		p = &hostPace{limiter: rate.NewLimiter(l.defaultRate, l.defaultBurst)}
		l.hosts[host] = p
	}
	return p
}

// SetRate gives the host of rawURL its own rate, e.g. the configured rate
// of the lemmatizer service. Counters of the host are kept.
func (l *Limiter) SetRate(rawURL string, requestsPerSecond float64, burst int) error {
	host, err := HostOf(rawURL)
	if err != nil {
		return err
	}
	if burst <= 0 {
		burst = l.defaultBurst
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.pace(host).limiter = rate.NewLimiter(limitOf(requestsPerSecond), burst)
	return nil
}

// Wait blocks until the host of rawURL is no longer paused and its bucket
// allows one more request
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	host, err := HostOf(rawURL)
	if err != nil {
		return err
	}
	start := time.Now()

	var bucket *rate.Limiter
	for {
		l.mu.Lock()
		p := l.pace(host)
		remaining := time.Until(p.pausedUntil)
		bucket = p.limiter
		l.mu.Unlock()

		if remaining <= 0 {
			break
		}
		// The pause may have been extended meanwhile, so check again
		if err := sleep(ctx, remaining); err != nil {
			return err
		}
	}

	if err := bucket.Wait(ctx); err != nil {
		return err
	}

	l.mu.Lock()
	p := l.pace(host)
	p.requests++
	p.waited += time.Since(start)
	l.mu.Unlock()
	return nil
}

// Pause holds back all requests to the host of rawURL for d. Overlapping
// pauses end at the latest deadline.
func (l *Limiter) Pause(rawURL string, d time.Duration) {
	if d <= 0 {
		return
	}
	host, err := HostOf(rawURL)
	if err != nil {
		return
	}
	until := time.Now().Add(d)

	l.mu.Lock()
	defer l.mu.Unlock()
	p := l.pace(host)
	p.pauses++
	if until.After(p.pausedUntil) {
		p.pausedUntil = until
	}
}

// Stats returns per-host counters sorted by host
func (l *Limiter) Stats() []HostStats {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]HostStats, 0, len(l.hosts))
	for host, p := range l.hosts {
		out = append(out, HostStats{Host: host, Requests: p.requests, Pauses: p.pauses, Waited: p.waited})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Host < out[j].Host })
	return out
}

// HostOf returns the host (with port) of a URL
func HostOf(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("no host in %q", rawURL)
	}
	return parsed.Host, nil
}

// RetryAfter reads a Retry-After header given in seconds or as an HTTP
// date; fallback is used when the header is missing or unreadable
func RetryAfter(h http.Header, fallback time.Duration) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return fallback
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
		return 0
	}
	return fallback
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
