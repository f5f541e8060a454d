package model

import (
	"fmt"
	"strings"
	"time"
)

// DefaultSimilarityThreshold is the windowed Jaccard value an indicator of
// strength "similar" must reach
const DefaultSimilarityThreshold = 0.75

// VectorType selects how sentence features are turned into vectors
type VectorType string

const (
	VectorBinary VectorType = "binary"
	VectorCount  VectorType = "count"
	VectorTfIdf  VectorType = "tfidf"
)

// VectorTypes returns all vector types in evaluation order
func VectorTypes() []VectorType {
	return []VectorType{VectorBinary, VectorCount, VectorTfIdf}
}

// ParseVectorType resolves a vector type name
func ParseVectorType(s string) (VectorType, error) {
	switch VectorType(strings.ToLower(strings.TrimSpace(s))) {
	case VectorBinary:
		return VectorBinary, nil
	case VectorCount:
		return VectorCount, nil
	case VectorTfIdf, "tf-idf", "tf_idf":
		return VectorTfIdf, nil
	default:
		return "", fmt.Errorf("unknown vector type: %q (supported: binary, count, tfidf)", s)
	}
}

// Config is the complete charta configuration
type Config struct {
	Classification ClassificationConfig `yaml:"classification" mapstructure:"classification" json:"classification"`
	Resources      ResourceConfig       `yaml:"resources" mapstructure:"resources" json:"resources"`
	Lemmatizer     LemmatizerConfig     `yaml:"lemmatizer" mapstructure:"lemmatizer" json:"lemmatizer"`
	Cache          CacheConfig          `yaml:"cache" mapstructure:"cache" json:"cache"`
	Concurrency    ConcurrencyConfig    `yaml:"concurrency" mapstructure:"concurrency" json:"concurrency"`
	Evaluation     EvaluationConfig     `yaml:"evaluation" mapstructure:"evaluation" json:"evaluation"`
	Store          StoreConfig          `yaml:"store" mapstructure:"store" json:"store"`
	Metrics        MetricsConfig        `yaml:"metrics" mapstructure:"metrics" json:"metrics"`
	Logging        LoggingConfig        `yaml:"logging" mapstructure:"logging" json:"logging"`
	LLM            LLMConfig            `yaml:"llm" mapstructure:"llm" json:"llm"`
	HTTP           HTTPConfig           `yaml:"http" mapstructure:"http" json:"http"`
	Output         OutputConfig         `yaml:"output" mapstructure:"output" json:"-"`
}

// ClassificationConfig holds the settings one classification run depends on
type ClassificationConfig struct {
	Tolerance           int        `yaml:"tolerance" mapstructure:"tolerance" json:"tolerance"`
	VectorType          VectorType `yaml:"vector_type" mapstructure:"vector_type" json:"vector_type"`
	UseBigrams          bool       `yaml:"use_bigrams" mapstructure:"use_bigrams" json:"use_bigrams"`
	SimilarityThreshold float64    `yaml:"similarity_threshold" mapstructure:"similarity_threshold" json:"similarity_threshold"`
}

// String is a compact identifier used in file names and tables
func (c ClassificationConfig) String() string {
	return fmt.Sprintf("tolerance-%d_bigrams-%t_vector-%s", c.Tolerance, c.UseBigrams, c.VectorType)
}

// ResourceConfig points at the rule and regex files
type ResourceConfig struct {
	Indicators     string `yaml:"indicators" mapstructure:"indicators" json:"indicators"`
	Resolvers      string `yaml:"resolvers" mapstructure:"resolvers" json:"resolvers,omitempty"`
	Abbreviations  string `yaml:"abbreviations" mapstructure:"abbreviations" json:"abbreviations,omitempty"`
	CapitalLetters string `yaml:"capital_letters" mapstructure:"capital_letters" json:"capital_letters,omitempty"`
	Parentheses    string `yaml:"parentheses" mapstructure:"parentheses" json:"parentheses,omitempty"`
}

// LemmatizerConfig selects and configures the lemmatizer
type LemmatizerConfig struct {
	Kind          string        `yaml:"kind" mapstructure:"kind" json:"kind"` // identity, lemlat, http
	Command       string        `yaml:"command" mapstructure:"command" json:"command,omitempty"`
	WorkDir       string        `yaml:"work_dir" mapstructure:"work_dir" json:"work_dir,omitempty"`
	URL           string        `yaml:"url" mapstructure:"url" json:"url,omitempty"`
	BatchSize     int           `yaml:"batch_size" mapstructure:"batch_size" json:"batch_size"`
	RatePerSecond float64       `yaml:"rate_per_second" mapstructure:"rate_per_second" json:"rate_per_second"`
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout" json:"timeout"`
}

// CacheConfig configures the lemma and LLM response cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled" json:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir" json:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl" json:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl" json:"disk_ttl"`
}

// ConcurrencyConfig bounds the worker pools
type ConcurrencyConfig struct {
	LoadWorkers     int `yaml:"load_workers" mapstructure:"load_workers" json:"load_workers"`
	QualifyWorkers  int `yaml:"qualify_workers" mapstructure:"qualify_workers" json:"qualify_workers"`
	EvaluateWorkers int `yaml:"evaluate_workers" mapstructure:"evaluate_workers" json:"evaluate_workers"`
}

// EvaluationConfig configures cross-validation
type EvaluationConfig struct {
	Groups       int   `yaml:"groups" mapstructure:"groups" json:"groups"`
	MaxTolerance int   `yaml:"max_tolerance" mapstructure:"max_tolerance" json:"max_tolerance"`
	Seed         int64 `yaml:"seed" mapstructure:"seed" json:"seed"`
}

// StoreConfig configures result persistence
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path" json:"path"`
}

// MetricsConfig configures metric export
type MetricsConfig struct {
	Textfile string `yaml:"textfile" mapstructure:"textfile" json:"textfile,omitempty"`
}

// LoggingConfig configures the zap logger
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level" json:"level"`
	Format string `yaml:"format" mapstructure:"format" json:"format"` // json, console
}

// LLMConfig configures the optional LLM scorer
type LLMConfig struct {
	Provider  string        `yaml:"provider" mapstructure:"provider" json:"provider"` // "", openai, ollama
	Model     string        `yaml:"model" mapstructure:"model" json:"model,omitempty"`
	APIKey    string        `yaml:"api_key" mapstructure:"api_key" json:"-"`
	BaseURL   string        `yaml:"base_url" mapstructure:"base_url" json:"base_url,omitempty"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout" json:"timeout"`
	MaxTokens int           `yaml:"max_tokens" mapstructure:"max_tokens" json:"max_tokens"`
	// RequestsPerSecond paces requests to the LLM endpoint
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second" json:"requests_per_second"`
}

// HTTPConfig configures outgoing HTTP clients
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout" json:"timeout"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent" json:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes" json:"max_body_bytes"`
	// RequestsPerSecond limits requests per remote host, zero disables
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second" json:"requests_per_second"`
	HTTPProxy         string  `yaml:"http_proxy" mapstructure:"http_proxy" json:"http_proxy,omitempty"`
	HTTPSProxy        string  `yaml:"https_proxy" mapstructure:"https_proxy" json:"https_proxy,omitempty"`
	NoProxy           string  `yaml:"no_proxy" mapstructure:"no_proxy" json:"no_proxy,omitempty"`
	// RespectRobots makes the corpus fetcher consult robots.txt before
	// downloading remote files
	RespectRobots bool `yaml:"respect_robots" mapstructure:"respect_robots" json:"respect_robots"`
}

// OutputConfig configures report rendering
type OutputConfig struct {
	JSON     string `yaml:"json" mapstructure:"json"`
	Markdown string `yaml:"markdown" mapstructure:"markdown"`
	Verbose  bool   `yaml:"verbose" mapstructure:"verbose"`
}

// DefaultClassification returns tolerance 1, binary vectors and bigrams
func DefaultClassification() ClassificationConfig {
	return ClassificationConfig{
		Tolerance:           1,
		VectorType:          VectorBinary,
		UseBigrams:          true,
		SimilarityThreshold: DefaultSimilarityThreshold,
	}
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Classification: DefaultClassification(),
		Resources: ResourceConfig{
			Indicators: "resources/indicators.csv",
		},
		Lemmatizer: LemmatizerConfig{
			Kind:          "identity",
			Command:       "lemlat/lemlat",
			WorkDir:       "lemlat",
			BatchSize:     500,
			RatePerSecond: 5,
			Timeout:       2 * time.Minute,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       ".charta/cache",
			MemoryTTL: time.Hour,
			DiskTTL:   30 * 24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			LoadWorkers:     4,
			QualifyWorkers:  8,
			EvaluateWorkers: 3,
		},
		Evaluation: EvaluationConfig{
			Groups:       3,
			MaxTolerance: 2,
			Seed:         1,
		},
		Store: StoreConfig{
			Path: ".charta/charta.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		LLM: LLMConfig{
			Timeout:           30 * time.Second,
			MaxTokens:         300,
			RequestsPerSecond: 1,
		},
		HTTP: HTTPConfig{
			Timeout:           30 * time.Second,
			UserAgent:         "charta/0.1 (+https://github.com/ppiankov/charta)",
			MaxBodyBytes:      10_000_000,
			RequestsPerSecond: 2,
			RespectRobots:     true,
		},
	}
}
