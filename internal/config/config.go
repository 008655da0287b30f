package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Assistant backends
const (
	BackendAssistants = "assistants"
	BackendChat       = "chat"
)

// Intel sources
const (
	IntelDuckDuckGo = "duckduckgo"
	IntelLLM        = "llm"
	IntelNone       = "none"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Assistant AssistantConfig `mapstructure:"assistant"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Intel     IntelConfig     `mapstructure:"intel"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Security  SecurityConfig  `mapstructure:"security"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// AssistantConfig selects and tunes the conversation backend
type AssistantConfig struct {
	Backend         string        `mapstructure:"backend"`
	APIKey          string        `mapstructure:"api_key"`
	AssistantID     string        `mapstructure:"assistant_id"`
	BaseURL         string        `mapstructure:"base_url"`
	HTTPTimeout     time.Duration `mapstructure:"http_timeout"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	RunTimeout      time.Duration `mapstructure:"run_timeout"`
	CancelOnTimeout bool          `mapstructure:"cancel_on_timeout"`
	MaxRetries      int           `mapstructure:"max_retries"`
	RetryInterval   time.Duration `mapstructure:"retry_interval"`
	Model           string        `mapstructure:"model"`
	Temperature     float64       `mapstructure:"temperature"`
	MaxTokens       int           `mapstructure:"max_tokens"`
}

// MissingCredentials lists the secrets the selected backend needs but does not have
func (c AssistantConfig) MissingCredentials() []string {
	var missing []string
	if c.Backend != BackendChat && strings.TrimSpace(c.APIKey) == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if strings.TrimSpace(c.AssistantID) == "" {
		missing = append(missing, "ASSISTANT_ID")
	}
	return missing
}

type LLMConfig struct {
	DefaultProvider string          `mapstructure:"default_provider"`
	OpenAI          OpenAIConfig    `mapstructure:"openai"`
	Anthropic       AnthropicConfig `mapstructure:"anthropic"`
	Ollama          OllamaConfig    `mapstructure:"ollama"`
	DeepSeek        DeepSeekConfig  `mapstructure:"deepseek"`
	Gemini          GeminiConfig    `mapstructure:"gemini"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type OllamaConfig struct {
	Host         string `mapstructure:"host"`
	DefaultModel string `mapstructure:"default_model"`
}

type DeepSeekConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// IntelConfig controls the market intel side channel. For the llm source,
// Model, APIKey and Host override the provider's own settings.
type IntelConfig struct {
	Source   string        `mapstructure:"source"`
	Provider string        `mapstructure:"provider"`
	Model    string        `mapstructure:"model"`
	APIKey   string        `mapstructure:"api_key"`
	Host     string        `mapstructure:"host"`
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Limit    int           `mapstructure:"limit"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type SecurityConfig struct {
	MaxSessions int             `mapstructure:"max_sessions"`
	SessionTTL  time.Duration   `mapstructure:"session_ttl"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	Burst             int  `mapstructure:"burst"`
}

type LoggingConfig struct {
	Level        string        `mapstructure:"level"`
	Format       string        `mapstructure:"format"`
	File         string        `mapstructure:"file"`
	MaxAge       time.Duration `mapstructure:"max_age"`
	RotationTime time.Duration `mapstructure:"rotation_time"`
}

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	// Set config file path
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// Set defaults
	setDefaults(v)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	// Override with environment variables
	v.AutomaticEnv()
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Assistant.Backend = strings.ToLower(strings.TrimSpace(cfg.Assistant.Backend))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects settings that cannot work together. Missing secrets are not
// reported here; they surface as configuration errors when a session is opened.
func (c *Config) Validate() error {
	switch c.Assistant.Backend {
	case BackendAssistants, BackendChat:
	default:
		return fmt.Errorf("invalid assistant.backend %q: must be %q or %q", c.Assistant.Backend, BackendAssistants, BackendChat)
	}

	switch c.Intel.Source {
	case IntelDuckDuckGo, IntelLLM, IntelNone:
	default:
		return fmt.Errorf("invalid intel.source %q", c.Intel.Source)
	}

	if c.Assistant.PollInterval <= 0 || c.Assistant.RunTimeout <= 0 {
		return fmt.Errorf("assistant.poll_interval and assistant.run_timeout must be positive")
	}
	if c.Assistant.RunTimeout < c.Assistant.PollInterval {
		return fmt.Errorf("assistant.run_timeout (%s) is shorter than assistant.poll_interval (%s)", c.Assistant.RunTimeout, c.Assistant.PollInterval)
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "5m")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.request_timeout", "4m")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Assistant
	v.SetDefault("assistant.backend", BackendAssistants)
	v.SetDefault("assistant.http_timeout", "60s")
	v.SetDefault("assistant.poll_interval", "1s")
	v.SetDefault("assistant.run_timeout", "3m")
	v.SetDefault("assistant.cancel_on_timeout", true)
	v.SetDefault("assistant.max_retries", 3)
	v.SetDefault("assistant.retry_interval", "500ms")
	v.SetDefault("assistant.temperature", 0.7)

	// LLM
	v.SetDefault("llm.default_provider", "openai")
	v.SetDefault("llm.openai.model", "gpt-4o")
	v.SetDefault("llm.ollama.host", "http://localhost:11434")
	v.SetDefault("llm.ollama.default_model", "llama3")
	v.SetDefault("llm.gemini.model", "gemini-2.5-flash")

	// Intel
	v.SetDefault("intel.source", IntelDuckDuckGo)
	v.SetDefault("intel.provider", "gemini")
	v.SetDefault("intel.timeout", "5s")
	v.SetDefault("intel.limit", 3)
	v.SetDefault("intel.cache_ttl", "6h")

	// Redis
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	// Security
	v.SetDefault("security.max_sessions", 1000)
	v.SetDefault("security.session_ttl", "2h")
	v.SetDefault("security.rate_limit.enabled", true)
	v.SetDefault("security.rate_limit.requests_per_minute", 30)
	v.SetDefault("security.rate_limit.burst", 10)

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.max_age", "168h")
	v.SetDefault("logging.rotation_time", "24h")
}

func bindEnvVars(v *viper.Viper) {
	// Assistant
	v.BindEnv("assistant.api_key", "OPENAI_API_KEY")
	v.BindEnv("assistant.assistant_id", "ASSISTANT_ID")
	v.BindEnv("assistant.backend", "ASSISTANT_BACKEND")

	// Redis
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// LLM API Keys
	v.BindEnv("llm.openai.api_key", "OPENAI_API_KEY")
	v.BindEnv("llm.anthropic.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("llm.deepseek.api_key", "DEEPSEEK_API_KEY")
	v.BindEnv("llm.gemini.api_key", "GEMINI_API_KEY")
	v.BindEnv("llm.ollama.host", "OLLAMA_HOST")
	v.BindEnv("intel.api_key", "INTEL_API_KEY")

	// Logging
	v.BindEnv("logging.level", "LOG_LEVEL")
}
