package service

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/Rrens/gladius/internal/assistant"
	"github.com/Rrens/gladius/internal/assistant/chat"
	assistantopenai "github.com/Rrens/gladius/internal/assistant/openai"
	"github.com/Rrens/gladius/internal/audit"
	"github.com/Rrens/gladius/internal/config"
	"github.com/Rrens/gladius/internal/intel"
	"github.com/Rrens/gladius/internal/llm"
	"github.com/Rrens/gladius/internal/llm/anthropic"
	"github.com/Rrens/gladius/internal/llm/deepseek"
	"github.com/Rrens/gladius/internal/llm/gemini"
	"github.com/Rrens/gladius/internal/llm/ollama"
	llmopenai "github.com/Rrens/gladius/internal/llm/openai"
)

// Provider factory settings. Each one overrides the matching llm.* value.
const (
	settingModel  = "model"
	settingAPIKey = "api_key"
	settingHost   = "host"
)

// NewLLMRouter registers every chat-completion provider that has credentials,
// plus a factory per vendor for callers that need their own settings
func NewLLMRouter(cfg config.LLMConfig) *llm.Router {
	router := llm.NewRouter(cfg.DefaultProvider)

	log.Info().Msgf("Initializing LLM providers. Default: %s", cfg.DefaultProvider)

	if cfg.Ollama.Host != "" {
		log.Info().Str("host", cfg.Ollama.Host).Msg("Registering Ollama provider")
		router.RegisterProvider(ollama.NewProvider(cfg.Ollama.Host, cfg.Ollama.DefaultModel))
	}
	if cfg.OpenAI.APIKey != "" {
		router.RegisterProvider(newOpenAI(cfg.OpenAI))
	}
	if cfg.Anthropic.APIKey != "" {
		router.RegisterProvider(anthropic.NewProvider(cfg.Anthropic.APIKey, cfg.Anthropic.Model))
	}
	if cfg.DeepSeek.APIKey != "" {
		router.RegisterProvider(deepseek.NewProvider(cfg.DeepSeek.APIKey, cfg.DeepSeek.Model))
	}
	if cfg.Gemini.APIKey != "" {
		log.Info().Msg("Registering Gemini provider")
		router.RegisterProvider(gemini.NewProvider(cfg.Gemini))
	}

	router.RegisterFactory("ollama", func(settings map[string]any) (llm.Provider, error) {
		host := setting(settings, settingHost, cfg.Ollama.Host)
		if host == "" {
			return nil, errors.New("ollama host not configured")
		}
		return ollama.NewProvider(host, setting(settings, settingModel, cfg.Ollama.DefaultModel)), nil
	})
	router.RegisterFactory("openai", func(settings map[string]any) (llm.Provider, error) {
		c := cfg.OpenAI
		c.APIKey = setting(settings, settingAPIKey, c.APIKey)
		c.Model = setting(settings, settingModel, c.Model)
		if c.APIKey == "" {
			return nil, errors.New("openai api key not configured")
		}
		return newOpenAI(c), nil
	})
	router.RegisterFactory("anthropic", func(settings map[string]any) (llm.Provider, error) {
		key := setting(settings, settingAPIKey, cfg.Anthropic.APIKey)
		if key == "" {
			return nil, errors.New("anthropic api key not configured")
		}
		return anthropic.NewProvider(key, setting(settings, settingModel, cfg.Anthropic.Model)), nil
	})
	router.RegisterFactory("deepseek", func(settings map[string]any) (llm.Provider, error) {
		key := setting(settings, settingAPIKey, cfg.DeepSeek.APIKey)
		if key == "" {
			return nil, errors.New("deepseek api key not configured")
		}
		return deepseek.NewProvider(key, setting(settings, settingModel, cfg.DeepSeek.Model)), nil
	})
	router.RegisterFactory("gemini", func(settings map[string]any) (llm.Provider, error) {
		c := cfg.Gemini
		c.APIKey = setting(settings, settingAPIKey, c.APIKey)
		c.Model = setting(settings, settingModel, c.Model)
		if c.APIKey == "" {
			return nil, errors.New("gemini api key not configured")
		}
		return gemini.NewProvider(c), nil
	})

	return router
}

func newOpenAI(c config.OpenAIConfig) llm.Provider {
	var opts []llmopenai.Option
	if c.BaseURL != "" {
		opts = append(opts, llmopenai.WithBaseURL(c.BaseURL))
	}
	return llmopenai.NewProvider(c.APIKey, c.Model, opts...)
}

// setting returns the non-empty string stored under key, or fallback
func setting(settings map[string]any, key, fallback string) string {
	if v, ok := settings[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

// Sessions opens assistant sessions on the configured backend
type Sessions struct {
	cfg      config.AssistantConfig
	resolver chat.Resolver
	backend  assistant.Backend
	closer   func()
}

// NewSessions builds the backend selected by cfg.Backend. Missing credentials
// do not fail here; they are reported by New and Ready.
func NewSessions(cfg config.AssistantConfig, router *llm.Router) (*Sessions, error) {
	s := &Sessions{cfg: cfg, resolver: router}

	switch cfg.Backend {
	case config.BackendChat:
		b := chat.NewBackend(router, chat.Options{
			System:      audit.SystemPrompt,
			Model:       cfg.Model,
			Temperature: &cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			RunTimeout:  cfg.RunTimeout,
		})
		s.backend = b
		s.closer = b.Close
	case config.BackendAssistants:
		if cfg.APIKey == "" {
			break
		}
		client, err := assistantopenai.NewClient(cfg.APIKey, cfg.BaseURL, cfg.HTTPTimeout)
		if err != nil {
			return nil, err
		}
		s.backend = client
	default:
		return nil, fmt.Errorf("unknown assistant backend: %s", cfg.Backend)
	}

	log.Info().Str("backend", cfg.Backend).Str("assistant_id", cfg.AssistantID).Msg("Assistant backend ready")
	return s, nil
}

// New opens an unbound session. It fails with *assistant.ConfigurationError
// before any network call when credentials are missing.
func (s *Sessions) New() (*assistant.Session, error) {
	if missing := s.cfg.MissingCredentials(); len(missing) > 0 {
		return nil, &assistant.ConfigurationError{Missing: missing}
	}

	return assistant.NewSession(s.backend, s.cfg.AssistantID,
		assistant.WithPoller(assistant.Poller{
			Interval:        s.cfg.PollInterval,
			Timeout:         s.cfg.RunTimeout,
			CancelOnTimeout: s.cfg.CancelOnTimeout,
		}),
		assistant.WithRetryPolicy(assistant.RetryPolicy{
			MaxAttempts:     s.cfg.MaxRetries,
			InitialInterval: s.cfg.RetryInterval,
			MaxInterval:     assistant.DefaultRetryPolicy().MaxInterval,
		}),
	)
}

// Ready reports whether sessions can be opened
func (s *Sessions) Ready() error {
	if missing := s.cfg.MissingCredentials(); len(missing) > 0 {
		return &assistant.ConfigurationError{Missing: missing}
	}
	if s.cfg.Backend == config.BackendChat {
		if _, err := s.resolver.GetProvider(s.cfg.AssistantID); err != nil {
			return &assistant.ConfigurationError{Missing: []string{"llm provider " + s.cfg.AssistantID}}
		}
	}
	return nil
}

// Close stops in-flight runs of an in-process backend
func (s *Sessions) Close() {
	if s.closer != nil {
		s.closer()
	}
}

// NewIntelGatherer builds the market intel gatherer for cfg.Source. A nil cache disables caching.
func NewIntelGatherer(cfg config.IntelConfig, router *llm.Router, cache intel.Cache) *intel.Gatherer {
	var source intel.Source
	switch cfg.Source {
	case config.IntelDuckDuckGo:
		source = intel.NewDuckDuckGo(cfg.BaseURL)
	case config.IntelLLM:
		provider, err := router.GetProviderWithConfig(cfg.Provider, intelSettings(cfg))
		if err != nil {
			log.Warn().Err(err).Str("provider", cfg.Provider).Msg("Intel provider unavailable, market intel disabled")
		} else {
			source = intel.NewProviderSource(provider, cfg.Model)
		}
	}

	opts := []intel.Option{intel.WithTimeout(cfg.Timeout), intel.WithLimit(cfg.Limit)}
	if cache != nil {
		opts = append(opts, intel.WithCache(cache))
	}
	return intel.NewGatherer(source, opts...)
}

// intelSettings collects the intel-only provider overrides; nil when there are none
func intelSettings(cfg config.IntelConfig) map[string]any {
	settings := map[string]any{}
	for key, v := range map[string]string{
		settingModel:  cfg.Model,
		settingAPIKey: cfg.APIKey,
		settingHost:   cfg.Host,
	} {
		if v != "" {
			settings[key] = v
		}
	}
	if len(settings) == 0 {
		return nil
	}
	return settings
}
