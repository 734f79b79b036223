package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"immobilier-assistant/internal/domain"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"ASSISTANT_ADDR", "ASSISTANT_LANGUAGE", "ASSISTANT_LLM_PROVIDER", "ASSISTANT_MODEL",
		"ASSISTANT_API_KEY", "GEMINI_API_KEY", "ASSISTANT_BASE_URL", "ASSISTANT_PARAM_PREFIX",
		"ASSISTANT_SESSION_BACKEND", "ASSISTANT_STATE_TABLE", "ASSISTANT_SESSION_TTL",
		"ASSISTANT_PENDING_TIMEOUT", "ASSISTANT_HISTORY_WINDOW", "ASSISTANT_CLIENT_QUICK_REPLIES",
		"ASSISTANT_LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("ASSISTANT_API_KEY", "key")

	cfg, err := Load(NewViper())
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.Addr)
	require.Equal(t, domain.LanguageEnglish, cfg.Language)
	require.Equal(t, ProviderGemini, cfg.LLMProvider)
	require.Equal(t, BackendMemory, cfg.SessionBackend)
	require.Equal(t, 2*time.Hour, cfg.SessionTTL)
	require.Equal(t, 2*time.Minute, cfg.PendingTimeout)
	require.Equal(t, 0, cfg.HistoryWindow)
	require.True(t, cfg.ClientQuickReplies)
	require.Equal(t, slog.LevelInfo, cfg.LogLevel)
	require.Equal(t, "key", cfg.APIKey)
}

func TestLoad_FromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("ASSISTANT_ADDR", ":9090")
	t.Setenv("ASSISTANT_LANGUAGE", "AR")
	t.Setenv("ASSISTANT_LLM_PROVIDER", "openai")
	t.Setenv("ASSISTANT_MODEL", "gpt-4o-mini")
	t.Setenv("ASSISTANT_PARAM_PREFIX", "/immobilier/prod")
	t.Setenv("ASSISTANT_SESSION_BACKEND", "dynamodb")
	t.Setenv("ASSISTANT_STATE_TABLE", "assistant-state")
	t.Setenv("ASSISTANT_SESSION_TTL", "30m")
	t.Setenv("ASSISTANT_HISTORY_WINDOW", "6")
	t.Setenv("ASSISTANT_CLIENT_QUICK_REPLIES", "false")
	t.Setenv("ASSISTANT_LOG_LEVEL", "debug")

	cfg, err := Load(NewViper())
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.Addr)
	require.Equal(t, domain.LanguageArabic, cfg.Language)
	require.Equal(t, ProviderOpenAI, cfg.LLMProvider)
	require.Equal(t, "gpt-4o-mini", cfg.Model)
	require.Equal(t, "/immobilier/prod", cfg.ParamPrefix)
	require.Equal(t, BackendDynamoDB, cfg.SessionBackend)
	require.Equal(t, "assistant-state", cfg.StateTable)
	require.Equal(t, 30*time.Minute, cfg.SessionTTL)
	require.Equal(t, 6, cfg.HistoryWindow)
	require.False(t, cfg.ClientQuickReplies)
	require.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestLoad_GeminiKeyFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "gemini-key")

	cfg, err := Load(NewViper())
	require.NoError(t, err)
	require.Equal(t, "gemini-key", cfg.APIKey)

	t.Setenv("ASSISTANT_API_KEY", "assistant-key")
	cfg, err = Load(NewViper())
	require.NoError(t, err)
	require.Equal(t, "assistant-key", cfg.APIKey)
}

func TestLoad_OverridesWinOverEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("ASSISTANT_API_KEY", "key")
	t.Setenv("ASSISTANT_LANGUAGE", "fr")

	v := NewViper()
	v.Set(KeyLanguage, "en")
	cfg, err := Load(v)
	require.NoError(t, err)
	require.Equal(t, domain.LanguageEnglish, cfg.Language)
}

func TestLoad_Rejects(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{name: "no credentials", env: map[string]string{}},
		{name: "language", env: map[string]string{"ASSISTANT_API_KEY": "k", "ASSISTANT_LANGUAGE": "de"}},
		{name: "provider", env: map[string]string{"ASSISTANT_API_KEY": "k", "ASSISTANT_LLM_PROVIDER": "anthropic"}},
		{name: "openai without model", env: map[string]string{"ASSISTANT_API_KEY": "k", "ASSISTANT_LLM_PROVIDER": "openai"}},
		{name: "backend", env: map[string]string{"ASSISTANT_API_KEY": "k", "ASSISTANT_SESSION_BACKEND": "redis"}},
		{name: "dynamodb without table", env: map[string]string{"ASSISTANT_API_KEY": "k", "ASSISTANT_SESSION_BACKEND": "dynamodb"}},
		{name: "ttl", env: map[string]string{"ASSISTANT_API_KEY": "k", "ASSISTANT_SESSION_TTL": "0s"}},
		{name: "history", env: map[string]string{"ASSISTANT_API_KEY": "k", "ASSISTANT_HISTORY_WINDOW": "-1"}},
		{name: "log level", env: map[string]string{"ASSISTANT_API_KEY": "k", "ASSISTANT_LOG_LEVEL": "loud"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load(NewViper())
			require.Error(t, err)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	const key = "ASSISTANT_DOTENV_ONLY"
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))

	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte(key+"=from-dotenv\n"), 0o600))

	require.NoError(t, LoadDotEnv(path))
	require.Equal(t, "from-dotenv", os.Getenv(key))

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env")))
}
