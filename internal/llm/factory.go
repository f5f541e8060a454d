package llm

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/charta/internal/cache"
	"github.com/ppiankov/charta/internal/score"
	"github.com/ppiankov/charta/internal/worker"
)

// DefaultOllamaURL is Ollama's OpenAI-compatible endpoint
const DefaultOllamaURL = "http://localhost:11434/v1"

// NewScorer creates an LLM scorer based on configuration. An empty provider
// disables the scorer and returns nil.
func NewScorer(config Config, c cache.Cache, limiter *worker.Limiter, logger *zap.Logger) (score.Scorer, error) {
	switch strings.ToLower(config.Provider) {
	case "openai":
		config.Provider = "openai"
		return newScorer(config, c, limiter, logger)

	case "ollama":
		config.Provider = "ollama"
		if config.BaseURL == "" {
			config.BaseURL = DefaultOllamaURL
		}
		if config.APIKey == "" {
			// Ollama ignores the key but the client requires one
			config.APIKey = "ollama"
		}
		if config.Model == "" {
			config.Model = "llama3.1"
		}
		return newScorer(config, c, limiter, logger)

	case "":
		// No provider configured - LLM scoring disabled
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, ollama)", config.Provider)
	}
}

func newScorer(config Config, c cache.Cache, limiter *worker.Limiter, logger *zap.Logger) (score.Scorer, error) {
	s, err := NewOpenAIScorer(config, c, limiter, logger)
	if err != nil {
		return nil, err
	}
	return s, nil
}
