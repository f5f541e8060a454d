package preprocess

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/charta/internal/worker"
)

const httpMaxRetries = 3

// httpRetryBase is the first backoff delay; it doubles per attempt
var httpRetryBase = time.Second

// HTTPLemmatizer queries a lemmatization service. The service receives
// {"forms": [...]} and answers {"lemmas": {"form": ["lemma", ...]}}.
type HTTPLemmatizer struct {
	url        string
	client     *http.Client
	limiter    *worker.Limiter
	batchSize  int
	userAgent  string
	maxRetries int
	logger     *zap.Logger
}

type lemmaRequest struct {
	Forms []string `json:"forms"`
}

type lemmaResponse struct {
	Lemmas map[string][]string `json:"lemmas"`
}

// statusError carries a non-2xx response status
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("lemmatizer returned status %d", e.code)
}

// NewHTTPLemmatizer creates a client for the service at url
func NewHTTPLemmatizer(url string, client *http.Client, limiter *worker.Limiter, batchSize int, userAgent string, logger *zap.Logger) *HTTPLemmatizer {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if limiter == nil {
		limiter = worker.NewLimiter(0, 0)
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPLemmatizer{
		url:        url,
		client:     client,
		limiter:    limiter,
		batchSize:  batchSize,
		userAgent:  userAgent,
		maxRetries: httpMaxRetries,
		logger:     logger.Named("lemma_http"),
	}
}

func (h *HTTPLemmatizer) Name() string { return "http" }

// Lemmatize posts the forms batch by batch. Like Lemlat, a batch that keeps
// failing falls back to identity lemmas.
func (h *HTTPLemmatizer) Lemmatize(ctx context.Context, forms []string) (map[string][]string, error) {
	out := make(map[string][]string, len(forms))

	for _, batch := range batches(forms, h.batchSize) {
		lemmas, err := h.requestWithRetry(ctx, batch)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			h.logger.Warn("lemmatizer failed, using word forms as lemmas",
				zap.String("url", h.url),
				zap.Int("forms", len(batch)),
				zap.Error(err))
		}
		for _, f := range batch {
			if c, ok := lemmas[f]; ok && len(c) > 0 {
				out[f] = c
			} else {
				out[f] = []string{f}
			}
		}
	}
	return out, nil
}

// requestWithRetry retries transient failures with exponential backoff
func (h *HTTPLemmatizer) requestWithRetry(ctx context.Context, forms []string) (map[string][]string, error) {
	var lastErr error
	for attempt := 0; attempt < h.maxRetries; attempt++ {
		if attempt > 0 {
			h.limiter.Pause(h.url, httpRetryBase*time.Duration(1<<uint(attempt-1)))
		}
		if err := h.limiter.Wait(ctx, h.url); err != nil {
			return nil, err
		}

		lemmas, err := h.request(ctx, forms)
		if err == nil {
			return lemmas, nil
		}
		lastErr = err
		if !isRetryable(err) {
			break
		}
		h.logger.Debug("retrying lemmatizer request", zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return nil, lastErr
}

func (h *HTTPLemmatizer) request(ctx context.Context, forms []string) (map[string][]string, error) {
	body, err := json.Marshal(lemmaRequest{Forms: forms})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.userAgent != "" {
		req.Header.Set("User-Agent", h.userAgent)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		if resp.StatusCode == http.StatusTooManyRequests {
			h.limiter.Pause(h.url, worker.RetryAfter(resp.Header, 0))
		}
		return nil, &statusError{code: resp.StatusCode}
	}

	var decoded lemmaResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return decoded.Lemmas, nil
}

// isRetryable reports 5xx, 429 and transient network failures
func isRetryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500 && se.code < 600
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "timeout") ||
		strings.Contains(s, "connection refused") ||
		strings.Contains(s, "connection reset")
}
