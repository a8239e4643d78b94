package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithMockProviders(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("AUTH_MODE", "static")
	t.Setenv("AUTH_STATIC_TOKENS", "tok-1:user-1, tok-2:user-2")
	t.Setenv("CHAT_PROVIDER", "mock")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":5003", cfg.BindAddr)
	assert.Equal(t, "http://localhost:11434", cfg.OllamaAPIHost)
	assert.Equal(t, 120*time.Second, cfg.ChatTimeout)
	assert.Equal(t, 5*time.Second, cfg.StoreTimeout)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, map[string]string{"tok-1": "user-1", "tok-2": "user-2"}, cfg.AuthStaticTokens)
	assert.False(t, cfg.Production())
}

func TestLoadRequiresSupabaseCredentials(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("CHAT_PROVIDER", "mock")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SUPABASE_URL")
}

func TestLoadRequiresModelIDForOllama(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("AUTH_MODE", "jwt")
	t.Setenv("AUTH_JWT_SECRET", "secret")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OLLAMA_MODEL_ID")
}

func TestLoadRejectsBadDuration(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("AUTH_MODE", "jwt")
	t.Setenv("AUTH_JWT_SECRET", "secret")
	t.Setenv("CHAT_PROVIDER", "mock")
	t.Setenv("CHAT_TIMEOUT", "soon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CHAT_TIMEOUT")
}

func TestLoadRejectsMalformedStaticTokens(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("AUTH_MODE", "static")
	t.Setenv("AUTH_STATIC_TOKENS", "just-a-token")
	t.Setenv("CHAT_PROVIDER", "mock")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadTrimsSupabaseURL(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("SUPABASE_URL", "https://project.supabase.co/")
	t.Setenv("SUPABASE_KEY", "anon")
	t.Setenv("CHAT_PROVIDER", "ollama")
	t.Setenv("OLLAMA_MODEL_ID", "llama3")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://project.supabase.co", cfg.SupabaseURL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
}

func TestLoadPerfStageTargets(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("AUTH_MODE", "static")
	t.Setenv("AUTH_STATIC_TOKENS", "tok:user")
	t.Setenv("CHAT_PROVIDER", "mock")
	t.Setenv("PERF_STAGE_TARGETS", "classify=2ms, chat_model=30s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, map[string]time.Duration{"classify": 2 * time.Millisecond, "chat_model": 30 * time.Second}, cfg.PerfStageTargets)

	t.Setenv("PERF_STAGE_TARGETS", "classify=fast")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PERF_STAGE_TARGETS")
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"APP_BIND_ADDR",
		"APP_ENV",
		"LOG_LEVEL",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_METRICS_NAMESPACE",
		"CORS_ALLOWED_ORIGINS",
		"DATABASE_URL",
		"STORE_TIMEOUT",
		"AUTH_MODE",
		"AUTH_JWT_SECRET",
		"AUTH_JWT_AUDIENCE",
		"AUTH_STATIC_TOKENS",
		"AUTH_TIMEOUT",
		"SUPABASE_URL",
		"SUPABASE_KEY",
		"CHAT_PROVIDER",
		"OLLAMA_API_HOST",
		"OLLAMA_MODEL_ID",
		"OPENAI_API_KEY",
		"OPENAI_BASE_URL",
		"CHAT_TIMEOUT",
		"CHAT_RATE_PER_MINUTE",
		"CHAT_RATE_BURST",
		"MATERNAL_MODEL_PATH",
		"MATERNAL_SCALER_PATH",
		"FETAL_MODEL_PATH",
		"FETAL_SCALER_PATH",
		"OTEL_TRACES_EXPORTER",
		"OTEL_EXPORTER_OTLP_ENDPOINT",
		"PERF_STAGE_TARGETS",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}
