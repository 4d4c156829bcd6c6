package application

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-chateval/internal/domain"
	"github.com/ahrav/go-chateval/internal/ports"
)

// Configuration defaults.
const (
	DefaultConfigPath        = "./config_eval.yaml"
	DefaultDatasetPath       = "./data/qa_pairs_dummy.csv"
	DefaultAPIURL            = "localhost:8080"
	DefaultResponseTimeLimit = 5 * time.Second
	DefaultLogFile           = "chatbot_evaluation.log"
	DefaultLLMTimeout        = 30 * time.Second
)

// Config is the evaluation run configuration, usually read from YAML.
type Config struct {
	// ChatbotType selects the chatbot under evaluation.
	ChatbotType string `yaml:"chatbot_type" validate:"oneof=dummy api lib"`
	// DatasetPath is the CSV dataset to evaluate against.
	DatasetPath string `yaml:"dataset_path" validate:"required"`
	// Scorers lists scorer names in the order their scores are computed.
	Scorers []string `yaml:"scorers" validate:"dive,required"`
	// Language selects the framing used to collapse chat histories.
	Language string `yaml:"language" validate:"language"`

	API   APIConfig   `yaml:"api"`
	Dummy DummyConfig `yaml:"dummy"`
	BERT  BERTConfig  `yaml:"bert"`
	SBERT SBERTConfig `yaml:"sbert"`
	LLM   LLMConfig   `yaml:"llm"`
	Fuzzy FuzzyConfig `yaml:"fuzzy"`
	Exact ExactConfig `yaml:"exact"`

	// ResponseTimeLimit is the expected upper bound for one chatbot answer,
	// in seconds. Slower answers are logged; they are not cut off.
	ResponseTimeLimit float64 `yaml:"response_time_limit" validate:"min=0"`

	ResultsDirectory string `yaml:"results_directory"`
	ResultsFilename  string `yaml:"results_filename"`
	// ResultsStore is an optional SQLite database that accumulates runs.
	ResultsStore string `yaml:"results_store"`
	// PassExpression is a boolean expression deciding whether one result
	// passes, e.g. "scores.bert_f1 >= 0.5 && duration < 2".
	PassExpression string `yaml:"pass_expression"`
	MetricsFile    string `yaml:"metrics_file"`
	LogFile        string `yaml:"log_file"`
	LogLevel       string `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`

	// Raw is the configuration mapping as written, recorded alongside the
	// results.
	Raw map[string]any `yaml:"-"`
}

// APIConfig configures the remote chatbot.
type APIConfig struct {
	URL               string  `yaml:"url"`
	TokenType         string  `yaml:"token_type"`
	Approach          string  `yaml:"approach"`
	RetrievalMode     string  `yaml:"retrieval_mode"`
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"min=0"`
}

// DummyConfig configures the dummy scorer.
type DummyConfig struct {
	Seed uint64 `yaml:"seed"`
}

// BERTConfig configures the BERT scorer and its token embedder.
type BERTConfig struct {
	Lang                string  `yaml:"lang"`
	Provider            string  `yaml:"provider" validate:"omitempty,oneof=ollama openai google"`
	ModelName           string  `yaml:"model_name"`
	BaseURL             string  `yaml:"base_url" validate:"omitempty,url"`
	RescaleWithBaseline bool    `yaml:"rescale_with_baseline"`
	Baseline            float64 `yaml:"baseline" validate:"min=0,lt=1"`
}

// SBERTConfig configures the sentence-embedding scorer.
type SBERTConfig struct {
	ModelName string `yaml:"model_name"`
	Provider  string `yaml:"provider" validate:"omitempty,oneof=ollama openai google"`
	BaseURL   string `yaml:"base_url" validate:"omitempty,url"`
}

// LLMConfig configures the judge scorer. An empty Model keeps the judge on
// its placeholder score.
type LLMConfig struct {
	Model   string  `yaml:"model" validate:"omitempty,modelspec"`
	Timeout float64 `yaml:"timeout" validate:"min=0"`
	// RequestsPerSecond throttles judge requests; zero leaves them
	// unthrottled.
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"min=0"`
	// MaxTokens and MaxCalls cap the judge for a whole run. Zero means
	// unlimited.
	MaxTokens int64 `yaml:"max_tokens" validate:"min=0"`
	MaxCalls  int64 `yaml:"max_calls" validate:"min=0"`
}

// FuzzyConfig configures the Levenshtein scorer.
type FuzzyConfig struct {
	CaseSensitive bool `yaml:"case_sensitive"`
}

// ExactConfig configures the exact-match scorer.
type ExactConfig struct {
	CaseSensitive  bool `yaml:"case_sensitive"`
	TrimWhitespace bool `yaml:"trim_whitespace"`
}

// DefaultConfig returns the configuration used for keys a file leaves out.
func DefaultConfig() *Config {
	return &Config{
		ChatbotType:       "dummy",
		DatasetPath:       DefaultDatasetPath,
		Scorers:           []string{},
		Language:          string(domain.English),
		API:               APIConfig{TokenType: "Bearer", Approach: "abc", RetrievalMode: "hybrid"},
		Dummy:             DummyConfig{Seed: 42},
		BERT:              BERTConfig{Lang: "en", Provider: "ollama"},
		SBERT:             SBERTConfig{Provider: "ollama", ModelName: "all-minilm"},
		Exact:             ExactConfig{TrimWhitespace: true},
		ResponseTimeLimit: DefaultResponseTimeLimit.Seconds(),
		LogFile:           DefaultLogFile,
		LogLevel:          "info",
		Raw:               map[string]any{},
	}
}

// LoadConfig reads the YAML file at path. Environment variables written as
// $VAR or ${VAR} are expanded before parsing.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.NewNotFoundError(path, err)
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes and validates YAML configuration on top of
// DefaultConfig.
func ParseConfig(data []byte) (*Config, error) {
	expanded := []byte(os.ExpandEnv(string(data)))

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(expanded, cfg); err != nil {
		return nil, ports.NewConfigError("yaml", err)
	}
	raw := map[string]any{}
	if err := yaml.Unmarshal(expanded, &raw); err != nil {
		return nil, ports.NewConfigError("yaml", err)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	cfg.Raw = raw

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration against its struct tags and compiles
// the pass expression.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return ports.NewConfigError("config", fmt.Errorf("%w: %w", domain.ErrInvalidConfiguration, err))
	}
	if c.PassExpression != "" {
		if _, err := CompilePass(c.PassExpression); err != nil {
			return err
		}
	}
	return nil
}

// PromptLanguage returns the parsed Language.
func (c *Config) PromptLanguage() domain.Language {
	lang, err := domain.ParseLanguage(c.Language)
	if err != nil {
		return domain.English
	}
	return lang
}

// ResponseTimeLimitDuration returns the declared response time limit.
func (c *Config) ResponseTimeLimitDuration() time.Duration {
	if c.ResponseTimeLimit <= 0 {
		return DefaultResponseTimeLimit
	}
	return time.Duration(c.ResponseTimeLimit * float64(time.Second))
}

// LLMTimeout returns the judge request timeout.
func (c *Config) LLMTimeout() time.Duration {
	if c.LLM.Timeout <= 0 {
		return DefaultLLMTimeout
	}
	return time.Duration(c.LLM.Timeout * float64(time.Second))
}

// Override sets a top-level key on both the typed config and Raw, so the
// recorded configuration matches the one that ran. Only string keys that
// the CLI exposes are supported.
func (c *Config) Override(key, value string) error {
	switch key {
	case "dataset_path":
		c.DatasetPath = value
	case "results_directory":
		c.ResultsDirectory = value
	case "results_filename":
		c.ResultsFilename = value
	default:
		return ports.NewConfigError(key, fmt.Errorf("%w: key cannot be overridden", domain.ErrInvalidConfiguration))
	}
	if c.Raw == nil {
		c.Raw = map[string]any{}
	}
	c.Raw[key] = value
	return nil
}
