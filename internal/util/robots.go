package util

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/temoto/robotstxt"

	"github.com/ppiankov/charta/internal/model"
)

// RobotsPolicy decides whether remote corpus files may be downloaded from an
// archive host. Rules are fetched once per host and kept for the lifetime of
// the policy.
type RobotsPolicy struct {
	mu         sync.RWMutex
	hosts      map[string]*robotstxt.RobotsData
	httpClient *http.Client
	userAgent  string
	agent      string
}

// NewRobotsPolicy creates a policy that fetches robots.txt with the
// configured HTTP client
func NewRobotsPolicy(cfg model.HTTPConfig) *RobotsPolicy {
	return &RobotsPolicy{
		hosts:      make(map[string]*robotstxt.RobotsData),
		httpClient: NewHTTPClient(cfg),
		userAgent:  cfg.UserAgent,
		agent:      ProductToken(cfg.UserAgent),
	}
}

// Allowed reports whether rawURL may be fetched. A host whose robots.txt
// cannot be retrieved allows everything.
func (r *RobotsPolicy) Allowed(ctx context.Context, rawURL string) (bool, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false, fmt.Errorf("parse URL: %w", err)
	}

	data, err := r.rules(ctx, parsed)
	if err != nil {
		return true, nil
	}
	path := parsed.EscapedPath()
	if path == "" {
		path = "/"
	}
	return data.TestAgent(path, r.agent), nil
}

func (r *RobotsPolicy) rules(ctx context.Context, u *url.URL) (*robotstxt.RobotsData, error) {
	host := u.Scheme + "://" + u.Host

	r.mu.RLock()
	data, ok := r.hosts[host]
	r.mu.RUnlock()
	if ok {
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, host+"/robots.txt", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err = robotstxt.FromResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}

	r.mu.Lock()
	r.hosts[host] = data
	r.mu.Unlock()
	return data, nil
}

// ProductToken extracts the product name from a User-Agent string,
// "charta/0.1 (+https://...)" becomes "charta"
func ProductToken(ua string) string {
	parts := strings.Fields(ua)
	if len(parts) == 0 {
		return ua
	}
	return strings.Split(parts[0], "/")[0]
}
