package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for a ReviewLabel process.
type Config struct {
	Env      string
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	AI       AIConfig
	Runner   RunnerConfig
	Metrics  MetricsConfig
}

type ServerConfig struct {
	Port int
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL      string
	CacheTTL time.Duration
}

type AIConfig struct {
	Provider          string
	InferenceTimeout  time.Duration
	MaxTokens         int
	Temperature       float64
	RequestsPerSecond float64
	Ollama            OllamaConfig
	VLLM              VLLMConfig
	OpenAI            OpenAIConfig
	DashScope         OpenAIConfig
	Anthropic         AnthropicConfig
}

type OllamaConfig struct {
	BaseURL string
	Model   string
}

type VLLMConfig struct {
	BaseURL string
	Model   string
}

// OpenAIConfig also describes any OpenAI-compatible endpoint such as DashScope.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type AnthropicConfig struct {
	APIKey string
	Model  string
}

type RunnerConfig struct {
	Concurrency int
	MaxRetries  int
	Backoff     time.Duration
}

type MetricsConfig struct {
	Addr string
}

var validProviders = map[string]bool{
	"ollama":    true,
	"vllm":      true,
	"openai":    true,
	"dashscope": true,
	"anthropic": true,
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := read()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadServer reads the same environment as Load but skips the AI provider
// checks, since the ops server never calls a model.
func LoadServer() (*Config, error) {
	cfg := read()
	if err := cfg.validateServer(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func read() *Config {
	return &Config{
		Env: envString("REVIEWLABEL_ENV", "development"),
		Server: ServerConfig{
			Port: envInt("REVIEWLABEL_PORT", 8080),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL:      os.Getenv("REDIS_URL"),
			CacheTTL: envDuration("CACHE_TTL", 7*24*time.Hour),
		},
		AI: AIConfig{
			Provider:          os.Getenv("AI_PROVIDER"),
			InferenceTimeout:  envDurationSecs("AI_INFERENCE_TIMEOUT_SECS", 60*time.Second),
			MaxTokens:         envInt("AI_MAX_TOKENS", 512),
			Temperature:       envFloat("AI_TEMPERATURE", 0),
			RequestsPerSecond: envFloat("AI_REQUESTS_PER_SECOND", 0),
			Ollama: OllamaConfig{
				BaseURL: envString("OLLAMA_BASE_URL", "http://localhost:11434"),
				Model:   envString("OLLAMA_MODEL", "llama3"),
			},
			VLLM: VLLMConfig{
				BaseURL: envString("VLLM_BASE_URL", "http://localhost:8000/v1"),
				Model:   envString("VLLM_MODEL", ""),
			},
			OpenAI: OpenAIConfig{
				APIKey:  os.Getenv("OPENAI_API_KEY"),
				BaseURL: envString("OPENAI_BASE_URL", "https://api.openai.com/v1"),
				Model:   envString("OPENAI_MODEL", "gpt-4o-mini"),
			},
			DashScope: OpenAIConfig{
				APIKey:  os.Getenv("DASHSCOPE_API_KEY"),
				BaseURL: envString("DASHSCOPE_BASE_URL", "https://dashscope.aliyuncs.com/compatible-mode/v1"),
				Model:   envString("DASHSCOPE_MODEL", "qwen-plus"),
			},
			Anthropic: AnthropicConfig{
				APIKey: os.Getenv("ANTHROPIC_API_KEY"),
				Model:  envString("ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),
			},
		},
		Runner: RunnerConfig{
			Concurrency: envInt("RUNNER_CONCURRENCY", 10),
			MaxRetries:  envInt("RUNNER_MAX_RETRIES", 2),
			Backoff:     envDuration("RUNNER_BACKOFF", 0),
		},
		Metrics: MetricsConfig{
			Addr: os.Getenv("METRICS_ADDR"),
		},
	}
}

// Model returns the model identifier configured for the selected provider.
func (c AIConfig) Model() string {
	switch c.Provider {
	case "ollama":
		return c.Ollama.Model
	case "vllm":
		return c.VLLM.Model
	case "openai":
		return c.OpenAI.Model
	case "dashscope":
		return c.DashScope.Model
	case "anthropic":
		return c.Anthropic.Model
	default:
		return ""
	}
}

func (c *Config) validate() error {
	if c.AI.Provider == "" {
		return fmt.Errorf("AI_PROVIDER is required")
	}
	if !validProviders[c.AI.Provider] {
		return fmt.Errorf("AI_PROVIDER must be one of ollama, vllm, openai, dashscope, anthropic; got %q", c.AI.Provider)
	}

	if c.AI.Provider == "openai" && c.AI.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required when AI_PROVIDER is openai")
	}
	if c.AI.Provider == "dashscope" && c.AI.DashScope.APIKey == "" {
		return fmt.Errorf("DASHSCOPE_API_KEY is required when AI_PROVIDER is dashscope")
	}
	if c.AI.Provider == "anthropic" && c.AI.Anthropic.APIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY is required when AI_PROVIDER is anthropic")
	}
	if c.AI.Provider == "vllm" && c.AI.VLLM.Model == "" {
		return fmt.Errorf("VLLM_MODEL is required when AI_PROVIDER is vllm")
	}
	for name, u := range map[string]string{
		"OLLAMA_BASE_URL":    c.AI.Ollama.BaseURL,
		"VLLM_BASE_URL":      c.AI.VLLM.BaseURL,
		"OPENAI_BASE_URL":    c.AI.OpenAI.BaseURL,
		"DASHSCOPE_BASE_URL": c.AI.DashScope.BaseURL,
	} {
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			return fmt.Errorf("%s must start with http:// or https://, got %q", name, u)
		}
	}

	if c.AI.MaxTokens <= 0 {
		return fmt.Errorf("AI_MAX_TOKENS must be positive, got %d", c.AI.MaxTokens)
	}
	if c.AI.RequestsPerSecond < 0 {
		return fmt.Errorf("AI_REQUESTS_PER_SECOND must not be negative, got %v", c.AI.RequestsPerSecond)
	}

	if c.Runner.Concurrency < 1 {
		return fmt.Errorf("RUNNER_CONCURRENCY must be at least 1, got %d", c.Runner.Concurrency)
	}
	if c.Runner.MaxRetries < 0 {
		return fmt.Errorf("RUNNER_MAX_RETRIES must not be negative, got %d", c.Runner.MaxRetries)
	}

	return c.validateServer()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("REVIEWLABEL_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Database.URL != "" && !strings.HasPrefix(c.Database.URL, "postgres://") &&
		!strings.HasPrefix(c.Database.URL, "postgresql://") {
		return fmt.Errorf("DATABASE_URL must be a postgres:// URL")
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}
