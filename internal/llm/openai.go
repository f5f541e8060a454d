package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/ppiankov/charta/internal/cache"
	"github.com/ppiankov/charta/internal/label"
	"github.com/ppiankov/charta/internal/model"
	"github.com/ppiankov/charta/internal/util"
	"github.com/ppiankov/charta/internal/worker"
)

// minProbability replaces missing or zero answers so a single label is
// never ruled out by the model alone
const minProbability = 0.01

const cacheTTL = 30 * 24 * time.Hour

// Scorer implements score.Scorer on the chat completions API
type Scorer struct {
	client   *openai.Client
	provider string
	model    string
	baseURL  string
	config   Config
	cache    cache.Cache
	limiter  *worker.Limiter
	logger   *zap.Logger
}

// NewOpenAIScorer creates a scorer for an OpenAI-compatible endpoint
func NewOpenAIScorer(config Config, c cache.Cache, limiter *worker.Limiter, logger *zap.Logger) (*Scorer, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if config.Model == "" {
		config.Model = openai.GPT4oMini
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = DefaultConfig().MaxTokens
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	if c == nil {
		c = cache.Nop{}
	}
	if limiter == nil {
		limiter = worker.NewLimiter(0, 0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	httpConfig := config.HTTP
	httpConfig.Timeout = config.Timeout
	clientConfig.HTTPClient = util.NewHTTPClient(httpConfig)

	provider := config.Provider
	if provider == "" {
		provider = "openai"
	}
	if config.RequestsPerSecond > 0 {
		if err := limiter.SetRate(clientConfig.BaseURL, config.RequestsPerSecond, 1); err != nil {
			return nil, fmt.Errorf("invalid %s base URL: %w", provider, err)
		}
	}

	return &Scorer{
		client:   openai.NewClientWithConfig(clientConfig),
		provider: provider,
		model:    config.Model,
		baseURL:  clientConfig.BaseURL,
		config:   config,
		cache:    c,
		limiter:  limiter,
		logger:   logger.Named("llm"),
	}, nil
}

// Name returns the provider name
func (s *Scorer) Name() string {
	return "llm:" + s.provider
}

// Score asks the model for a label distribution of one sentence. Answers
// are cached per model and prompt.
func (s *Scorer) Score(ctx context.Context, sent *model.Sentence) ([]float64, error) {
	prompt := BuildPrompt(sent)
	key := cache.Key("llm", s.provider, s.model, prompt)

	var cached []float64
	if cache.GetJSON(s.cache, key, &cached) && len(cached) == label.Count {
		return cached, nil
	}

	if err := s.limiter.Wait(ctx, s.baseURL); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	resp, err := s.client.CreateChatCompletion(ctxWithTimeout, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   s.config.MaxTokens,
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		if rateLimited(err) {
			s.limiter.Pause(s.baseURL, rateLimitPause)
		}
		return nil, fmt.Errorf("%s API error: %w", s.provider, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from %s", s.provider)
	}

	dist, err := ParseDistribution(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	if err := cache.SetJSON(s.cache, key, dist, cacheTTL); err != nil {
		s.logger.Debug("cache write failed", zap.Error(err))
	}
	s.logger.Debug("sentence scored",
		zap.Int("sentence", sent.Index),
		zap.Int("tokens", resp.Usage.TotalTokens))
	return dist, nil
}

// ParseDistribution reads the model's JSON answer into a normalized
// distribution. Code fences around the object are tolerated, unknown labels
// are ignored and missing ones get minProbability.
func ParseDistribution(content string) ([]float64, error) {
	content = strings.TrimSpace(content)
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON object in answer: %q", truncate(content, 80))
	}

	var answer struct {
		Probabilities map[string]float64 `json:"probabilities"`
	}
	if err := json.Unmarshal([]byte(content[start:end+1]), &answer); err != nil {
		return nil, fmt.Errorf("decode answer: %w", err)
	}
	if len(answer.Probabilities) == 0 {
		return nil, fmt.Errorf("answer has no probabilities")
	}

	dist := make([]float64, label.Count)
	for i := range dist {
		dist[i] = minProbability
	}
	for name, p := range answer.Probabilities {
		l, err := label.Parse(name)
		if err != nil {
			continue
		}
		if p > minProbability {
			dist[l] = p
		}
	}

	total := 0.0
	for _, p := range dist {
		total += p
	}
	for i := range dist {
		dist[i] /= total
	}
	return dist, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// rateLimitPause holds back the endpoint after a 429; go-openai does not
// expose the Retry-After header
const rateLimitPause = 5 * time.Second

func rateLimited(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	return false
}
