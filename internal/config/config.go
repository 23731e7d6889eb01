// Package config provides configuration for the concierge binaries.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	StaticDir          string

	// Storage
	DatabasePath string
	PromptFile   string

	// LLM settings
	LLMProvider       string
	LLMEnabled        bool
	// LLMModel is empty when the provider's own default model applies.
	LLMModel          string
	LLMTemperature    float64
	LLMMaxTokens      int
	LLMTimeout        time.Duration
	OpenRouterAPIKey  string
	OpenRouterBaseURL string
	OpenRouterReferer string
	OpenRouterTitle   string
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	AnthropicAPIKey   string

	// Messaging bridge
	BridgeCommand string
	BridgeTimeout time.Duration

	// Poller
	PollerCommand    string
	PollerRunTimeout time.Duration
	PollInterval     time.Duration
	PollerReplyMode  string

	// NATS settings
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string

	// JWT settings
	JWTSecret string

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// CORS
	CORSAllowedOrigins []string

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8000")
	v.SetDefault("SERVER_READ_TIMEOUT", 30*time.Second)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 150*time.Second)
	v.SetDefault("STATIC_DIR", "")

	v.SetDefault("DATABASE_PATH", "data/concierge.db")
	v.SetDefault("PROMPT_FILE", "data/system_prompt.txt")

	v.SetDefault("LLM_PROVIDER", "openrouter")
	v.SetDefault("LLM_ENABLED", true)
	v.SetDefault("USE_OPENROUTER", true)
	v.SetDefault("LLM_MODEL", "")
	v.SetDefault("OPENROUTER_MODEL", "deepseek/deepseek-r1-0528:free")
	v.SetDefault("OPENAI_BASE_URL", "")
	v.SetDefault("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1")
	v.SetDefault("OPENROUTER_REFERER", "https://threadmind.local")
	v.SetDefault("OPENROUTER_TITLE", "ThreadMind DM Assistant")
	v.SetDefault("LLM_TEMPERATURE", 0.7)
	v.SetDefault("LLM_MAX_TOKENS", 512)
	v.SetDefault("LLM_TIMEOUT", 60*time.Second)

	v.SetDefault("BRIDGE_COMMAND", "python src/mcp_server.py")
	v.SetDefault("BRIDGE_TIMEOUT", 60*time.Second)

	v.SetDefault("POLLER_COMMAND", "dm-poller --once")
	v.SetDefault("POLLER_RUN_TIMEOUT", 120*time.Second)
	v.SetDefault("POLL_INTERVAL", 2*time.Minute)
	v.SetDefault("POLLER_REPLY_MODE", "template")

	v.SetDefault("RATE_LIMIT_REQUESTS", 120)
	v.SetDefault("RATE_LIMIT_WINDOW", time.Minute)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("TRACING_ENDPOINT", "localhost:4318")
}

// Load reads configuration from defaults, an optional file (.env, YAML,
// JSON or TOML), and environment variables, in increasing precedence.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{
		ServerPort:         v.GetString("PORT"),
		ServerReadTimeout:  v.GetDuration("SERVER_READ_TIMEOUT"),
		ServerWriteTimeout: v.GetDuration("SERVER_WRITE_TIMEOUT"),
		StaticDir:          v.GetString("STATIC_DIR"),

		DatabasePath: v.GetString("DATABASE_PATH"),
		PromptFile:   v.GetString("PROMPT_FILE"),

		LLMProvider:       strings.ToLower(v.GetString("LLM_PROVIDER")),
		LLMEnabled:        v.GetBool("LLM_ENABLED") && v.GetBool("USE_OPENROUTER"),
		LLMTemperature:    v.GetFloat64("LLM_TEMPERATURE"),
		LLMMaxTokens:      v.GetInt("LLM_MAX_TOKENS"),
		LLMTimeout:        v.GetDuration("LLM_TIMEOUT"),
		OpenRouterAPIKey:  v.GetString("OPENROUTER_API_KEY"),
		OpenRouterBaseURL: v.GetString("OPENROUTER_BASE_URL"),
		OpenRouterReferer: v.GetString("OPENROUTER_REFERER"),
		OpenRouterTitle:   v.GetString("OPENROUTER_TITLE"),
		OpenAIAPIKey:      v.GetString("OPENAI_API_KEY"),
		OpenAIBaseURL:     v.GetString("OPENAI_BASE_URL"),
		AnthropicAPIKey:   v.GetString("ANTHROPIC_API_KEY"),

		BridgeCommand: v.GetString("BRIDGE_COMMAND"),
		BridgeTimeout: v.GetDuration("BRIDGE_TIMEOUT"),

		PollerCommand:    v.GetString("POLLER_COMMAND"),
		PollerRunTimeout: v.GetDuration("POLLER_RUN_TIMEOUT"),
		PollInterval:     v.GetDuration("POLL_INTERVAL"),
		PollerReplyMode:  strings.ToLower(v.GetString("POLLER_REPLY_MODE")),

		NATSURL:      v.GetString("NATS_URL"),
		NATSCAFile:   v.GetString("NATS_CA_FILE"),
		NATSCertFile: v.GetString("NATS_CERT_FILE"),
		NATSKeyFile:  v.GetString("NATS_KEY_FILE"),
		NATSToken:    v.GetString("NATS_TOKEN"),

		JWTSecret: v.GetString("JWT_SECRET"),

		RateLimitRequests: v.GetInt("RATE_LIMIT_REQUESTS"),
		RateLimitWindow:   v.GetDuration("RATE_LIMIT_WINDOW"),

		CORSAllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),

		LogLevel: v.GetString("LOG_LEVEL"),

		TracingEndpoint: v.GetString("TRACING_ENDPOINT"),
		TracingEnabled:  v.GetBool("TRACING_ENABLED"),
	}

	cfg.LLMModel = v.GetString("LLM_MODEL")
	if cfg.LLMModel == "" && cfg.LLMProvider == "openrouter" {
		cfg.LLMModel = v.GetString("OPENROUTER_MODEL")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that would otherwise fail late.
func (c *Config) Validate() error {
	var errs []error
	if c.ServerPort == "" {
		errs = append(errs, errors.New("PORT must be set"))
	}
	if c.DatabasePath == "" {
		errs = append(errs, errors.New("DATABASE_PATH must be set"))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, errors.New("POLL_INTERVAL must be positive"))
	}
	switch c.PollerReplyMode {
	case "template", "llm":
	default:
		errs = append(errs, fmt.Errorf("POLLER_REPLY_MODE must be template or llm, got %q", c.PollerReplyMode))
	}
	switch c.LLMProvider {
	case "openrouter", "openai", "anthropic":
	default:
		errs = append(errs, fmt.Errorf("LLM_PROVIDER must be openrouter, openai or anthropic, got %q", c.LLMProvider))
	}
	return errors.Join(errs...)
}

// LLMAPIKey returns the credential for the configured provider.
func (c *Config) LLMAPIKey() string {
	switch c.LLMProvider {
	case "openai":
		return c.OpenAIAPIKey
	case "anthropic":
		return c.AnthropicAPIKey
	default:
		return c.OpenRouterAPIKey
	}
}

// AuthEnabled reports whether bearer tokens are required.
func (c *Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
