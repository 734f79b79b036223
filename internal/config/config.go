// Package config resolves runtime settings from flags, the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"immobilier-assistant/internal/domain"
)

// EnvPrefix namespaces every environment variable, e.g. ASSISTANT_ADDR.
const EnvPrefix = "ASSISTANT"

// Keys understood by Load.
const (
	KeyAddr               = "addr"
	KeyLanguage           = "language"
	KeyLLMProvider        = "llm_provider"
	KeyModel              = "model"
	KeyAPIKey             = "api_key"
	KeyBaseURL            = "base_url"
	KeyParamPrefix        = "param_prefix"
	KeySessionBackend     = "session_backend"
	KeyStateTable         = "state_table"
	KeySessionTTL         = "session_ttl"
	KeyHistoryWindow      = "history_window"
	KeyClientQuickReplies = "client_quick_replies"
	KeyPendingTimeout     = "pending_timeout"
	KeyLogLevel           = "log_level"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	BackendMemory   = "memory"
	BackendDynamoDB = "dynamodb"
)

type Config struct {
	Addr     string
	Language domain.Language

	LLMProvider string
	Model       string
	APIKey      string
	BaseURL     string
	ParamPrefix string

	SessionBackend string
	StateTable     string
	SessionTTL     time.Duration
	PendingTimeout time.Duration

	HistoryWindow      int
	ClientQuickReplies bool

	LogLevel slog.Level
}

// NewViper returns a viper instance with defaults and environment bindings
// registered. Callers may bind command-line flags to it before Load.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyAddr, ":8080")
	v.SetDefault(KeyLanguage, string(domain.LanguageEnglish))
	v.SetDefault(KeyLLMProvider, ProviderGemini)
	v.SetDefault(KeyModel, "")
	v.SetDefault(KeyAPIKey, "")
	v.SetDefault(KeyBaseURL, "")
	v.SetDefault(KeyParamPrefix, "")
	v.SetDefault(KeySessionBackend, BackendMemory)
	v.SetDefault(KeyStateTable, "")
	v.SetDefault(KeySessionTTL, 2*time.Hour)
	v.SetDefault(KeyPendingTimeout, 2*time.Minute)
	v.SetDefault(KeyHistoryWindow, 0)
	v.SetDefault(KeyClientQuickReplies, true)
	v.SetDefault(KeyLogLevel, "info")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	// The provider's conventional variable is accepted as a fallback.
	_ = v.BindEnv(KeyAPIKey, EnvPrefix+"_API_KEY", "GEMINI_API_KEY")
	return v
}

// LoadDotEnv loads variables from the given files, or .env when none are
// named. Variables already set in the environment win. Missing files are not
// an error.
func LoadDotEnv(files ...string) error {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config: load env file: %w", err)
	}
	return nil
}

// Load reads and validates the settings held by v.
func Load(v *viper.Viper) (Config, error) {
	lang, err := domain.ParseLanguage(strings.ToLower(strings.TrimSpace(v.GetString(KeyLanguage))))
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", KeyLanguage, err)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(v.GetString(KeyLogLevel))); err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", KeyLogLevel, err)
	}

	cfg := Config{
		Addr:               strings.TrimSpace(v.GetString(KeyAddr)),
		Language:           lang,
		LLMProvider:        strings.ToLower(strings.TrimSpace(v.GetString(KeyLLMProvider))),
		Model:              strings.TrimSpace(v.GetString(KeyModel)),
		APIKey:             strings.TrimSpace(v.GetString(KeyAPIKey)),
		BaseURL:            strings.TrimSpace(v.GetString(KeyBaseURL)),
		ParamPrefix:        strings.TrimSpace(v.GetString(KeyParamPrefix)),
		SessionBackend:     strings.ToLower(strings.TrimSpace(v.GetString(KeySessionBackend))),
		StateTable:         strings.TrimSpace(v.GetString(KeyStateTable)),
		SessionTTL:         v.GetDuration(KeySessionTTL),
		PendingTimeout:     v.GetDuration(KeyPendingTimeout),
		HistoryWindow:      v.GetInt(KeyHistoryWindow),
		ClientQuickReplies: v.GetBool(KeyClientQuickReplies),
		LogLevel:           level,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the combinations Load cannot express as defaults.
func (c Config) Validate() error {
	switch c.LLMProvider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("config: unsupported %s %q", KeyLLMProvider, c.LLMProvider)
	}
	if c.LLMProvider == ProviderOpenAI && c.Model == "" {
		return fmt.Errorf("config: %s is required for the %s provider", KeyModel, ProviderOpenAI)
	}
	if c.APIKey == "" && c.ParamPrefix == "" {
		return fmt.Errorf("config: one of %s or %s is required", KeyAPIKey, KeyParamPrefix)
	}

	switch c.SessionBackend {
	case BackendMemory:
	case BackendDynamoDB:
		if c.StateTable == "" {
			return fmt.Errorf("config: %s is required for the %s backend", KeyStateTable, BackendDynamoDB)
		}
	default:
		return fmt.Errorf("config: unsupported %s %q", KeySessionBackend, c.SessionBackend)
	}

	if c.SessionTTL <= 0 {
		return fmt.Errorf("config: %s must be positive", KeySessionTTL)
	}
	if c.PendingTimeout <= 0 {
		return fmt.Errorf("config: %s must be positive", KeyPendingTimeout)
	}
	if c.HistoryWindow < 0 {
		return fmt.Errorf("config: %s must not be negative", KeyHistoryWindow)
	}
	return nil
}
