package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/charta/internal/model"
	"github.com/ppiankov/charta/internal/util"
	"github.com/ppiankov/charta/internal/worker"
)

const fetchMaxRetries = 3

// fetchSleepFunc is the sleep function used between retries (injectable for tests)
var fetchSleepFunc = time.Sleep

// Fetcher downloads remote corpus files
type Fetcher struct {
	httpClient *http.Client
	limiter    *worker.Limiter
	robots     *util.RobotsPolicy
	userAgent  string
	maxBytes   int64
}

// NewFetcher creates a fetcher from the HTTP configuration. A nil limiter
// does not throttle. robots.txt is only consulted when RespectRobots is set.
func NewFetcher(cfg model.HTTPConfig, limiter *worker.Limiter) *Fetcher {
	if limiter == nil {
		limiter = worker.NewLimiter(0, 0)
	}
	maxBytes := cfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = 10_000_000
	}
	f := &Fetcher{
		httpClient: util.NewHTTPClient(cfg),
		limiter:    limiter,
		userAgent:  cfg.UserAgent,
		maxBytes:   maxBytes,
	}
	if cfg.RespectRobots {
		f.robots = util.NewRobotsPolicy(cfg)
	}
	return f
}

// FetchResult contains the fetched body and metadata
type FetchResult struct {
	Body        []byte
	ContentType string
	FinalURL    string
}

// Fetch retrieves a corpus file from the given URL
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	if f.robots != nil {
		allowed, err := f.robots.Allowed(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, fmt.Errorf("fetch %s: disallowed by robots.txt", rawURL)
		}
	}

	if err := f.limiter.Wait(ctx, rawURL); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/xml,application/yaml,application/json,text/html;q=0.9,*/*;q=0.8")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		// Other documents on the same archive wait as well
		f.limiter.Pause(rawURL, worker.RetryAfter(resp.Header, 0))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	// Read body with size limit
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &FetchResult{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		FinalURL:    resp.Request.URL.String(),
	}, nil
}

// FetchWithRetry retries transient failures with exponential backoff
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*FetchResult, error) {
	var lastErr error
	for attempt := 0; attempt < fetchMaxRetries; attempt++ {
		result, err := f.Fetch(ctx, rawURL)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !isRetryableFetchError(err) || ctx.Err() != nil {
			return nil, err
		}
		if attempt < fetchMaxRetries-1 {
			fetchSleepFunc(time.Duration(1<<uint(attempt)) * time.Second)
		}
	}
	return nil, lastErr
}

// isRetryableFetchError reports 5xx, 429 and transient network failures
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()

	if rest, ok := strings.CutPrefix(msg, "unexpected status: "); ok {
		code, convErr := strconv.Atoi(strings.Fields(rest + " ")[0])
		if convErr != nil {
			return false
		}
		return code == http.StatusTooManyRequests || code >= 500 && code < 600
	}

	s := strings.ToLower(msg)
	return strings.Contains(s, "timeout") ||
		strings.Contains(s, "connection refused") ||
		strings.Contains(s, "connection reset")
}
