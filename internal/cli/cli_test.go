package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/charta/internal/model"
)

func TestInbox_OfferAndDrain(t *testing.T) {
	b := newInbox()

	accepted := []string{"inbox/b.xml", "inbox/a.yaml", "inbox/a.yaml"}
	for _, p := range accepted {
		if !b.Offer(p) {
			t.Errorf("expected %s to be accepted", p)
		}
	}
	for _, p := range []string{"inbox/.a.yaml.swp", "inbox/.hidden.yaml", "inbox/notes.yaml~", "inbox/scan.pdf"} {
		if b.Offer(p) {
			t.Errorf("expected %s to be rejected", p)
		}
	}

	got := b.Drain()
	if len(got) != 2 || got[0] != "inbox/a.yaml" || got[1] != "inbox/b.xml" {
		t.Errorf("unexpected drain result: %v", got)
	}
	if again := b.Drain(); len(again) != 0 {
		t.Errorf("expected empty inbox after drain, got %v", again)
	}
}

func TestApplyLLMEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OLLAMA_BASE_URL", "http://gpu.local:11434/v1")

	cfg := model.LLMConfig{Provider: "openai"}
	if err := applyLLMEnv(&cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.APIKey != "sk-test" {
		t.Errorf("expected key from environment, got %q", cfg.APIKey)
	}

	cfg = model.LLMConfig{Provider: "ollama"}
	if err := applyLLMEnv(&cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.BaseURL != "http://gpu.local:11434/v1" {
		t.Errorf("expected base URL from environment, got %q", cfg.BaseURL)
	}

	cfg = model.LLMConfig{Provider: "anthropic"}
	if err := applyLLMEnv(&cfg); err == nil {
		t.Error("expected error for unsupported provider")
	}

	none := model.LLMConfig{}
	if err := applyLLMEnv(&none); err != nil || none.APIKey != "" {
		t.Errorf("expected no LLM configuration, got %+v (%v)", none, err)
	}
}

func TestApplyLLMEnv_MissingKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	cfg := model.LLMConfig{Provider: "openai"}
	err := applyLLMEnv(&cfg)
	if err == nil || !strings.Contains(err.Error(), "OPENAI_API_KEY") {
		t.Errorf("expected missing key error, got %v", err)
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".charta", "config.yaml")

	if err := writeDefaultConfig(path); err != nil {
		t.Fatalf("writeDefaultConfig failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if !strings.HasPrefix(string(data), "# Charta Configuration File") {
		t.Errorf("missing header: %q", string(data[:40]))
	}

	var cfg model.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("written config is not valid YAML: %v", err)
	}
	if cfg.Classification.Tolerance != 1 || cfg.Classification.VectorType != model.VectorBinary {
		t.Errorf("unexpected classification defaults: %+v", cfg.Classification)
	}

	if err := writeDefaultConfig(path); err == nil {
		t.Error("expected error when config already exists")
	}
}
