// Package llm scores diploma sentences with a chat model. The model is asked
// for a probability per label and its answer is used like any other scorer
// distribution.
package llm

import (
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/charta/internal/label"
	"github.com/ppiankov/charta/internal/model"
)

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout time.Duration

	// MaxTokens for response generation
	MaxTokens int

	// RequestsPerSecond paces the endpoint host, zero leaves the shared
	// limiter's default
	RequestsPerSecond float64

	// HTTP holds user agent and proxy settings
	HTTP model.HTTPConfig
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:  "", // Disabled by default
		Timeout:   30 * time.Second,
		MaxTokens: 300,
	}
}

// ConfigFromModel converts model.LLMConfig to llm.Config
func ConfigFromModel(llmConfig model.LLMConfig, httpConfig model.HTTPConfig) Config {
	return Config{
		Provider:  llmConfig.Provider,
		Model:     llmConfig.Model,
		APIKey:    llmConfig.APIKey,
		BaseURL:   llmConfig.BaseURL,
		Timeout:   llmConfig.Timeout,
		MaxTokens: llmConfig.MaxTokens,
		HTTP:      httpConfig,

		RequestsPerSecond: llmConfig.RequestsPerSecond,
	}
}

const systemPrompt = "You classify sentences of medieval Latin charters into the parts of the diplomatic formulary. Answer with a single JSON object and nothing else."

// BuildPrompt asks for a probability for each label of one sentence. The
// relative position helps the model tell protocol from eschatocol formulas.
func BuildPrompt(s *model.Sentence) string {
	var b strings.Builder
	b.WriteString("Parts of a charter, in canonical order:\n")
	for _, par := range label.Paragraphs() {
		first, last := par.Range()
		names := make([]string, 0, int(last-first)+1)
		for l := first; l <= last; l++ {
			names = append(names, l.String())
		}
		fmt.Fprintf(&b, "- %s: %s\n", par, strings.Join(names, ", "))
	}
	fmt.Fprintf(&b, "\nSentence (ends at %.0f%% of the charter):\n%s\n\n", s.RelativeIndex*100, strings.TrimSpace(s.Raw))
	b.WriteString(`Return {"probabilities": {"<part>": <number between 0 and 1>, ...}} covering every part listed above.`)
	return b.String()
}
