package util

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ppiankov/charta/internal/model"
)

func TestNewProxyFunc_Configured(t *testing.T) {
	proxy := NewProxyFunc("http://proxy.local:3128", "http://secure.local:3129", "lemmas.internal")

	req, _ := http.NewRequest(http.MethodGet, "https://api.example.org/v1", nil)
	u, err := proxy(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u == nil || u.Host != "secure.local:3129" {
		t.Errorf("expected https proxy, got %v", u)
	}

	req, _ = http.NewRequest(http.MethodGet, "http://corpus.example.org/a.yaml", nil)
	u, err = proxy(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u == nil || u.Host != "proxy.local:3128" {
		t.Errorf("expected http proxy, got %v", u)
	}
}

func TestNewProxyFunc_NoProxy(t *testing.T) {
	proxy := NewProxyFunc("http://proxy.local:3128", "", "lemmas.internal")

	req, _ := http.NewRequest(http.MethodGet, "http://lemmas.internal/lemmatize", nil)
	u, err := proxy(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u != nil {
		t.Errorf("expected direct connection for no_proxy host, got %v", u)
	}
}

func TestNewHTTPClient_RedirectLimit(t *testing.T) {
	hops := 0
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hops++
		http.Redirect(w, r, server.URL+"/next", http.StatusFound)
	}))
	defer server.Close()

	client := NewHTTPClient(model.HTTPConfig{Timeout: 5 * time.Second})
	resp, err := client.Get(server.URL)
	if err == nil {
		_ = resp.Body.Close()
		t.Fatal("expected redirect error")
	}
	if hops != maxRedirects+1 {
		t.Errorf("expected %d requests, got %d", maxRedirects+1, hops)
	}
}
