package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config contains all runtime settings for the prenova API.
type Config struct {
	BindAddr         string
	Env              string
	LogLevel         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	CORSAllowedOrigins []string

	DatabaseURL  string
	StoreTimeout time.Duration

	AuthMode         string
	AuthJWTSecret    string
	AuthJWTAudience  string
	AuthStaticTokens map[string]string
	AuthTimeout      time.Duration
	SupabaseURL      string
	SupabaseKey      string

	ChatProvider      string
	OllamaAPIHost     string
	ChatModelID       string
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	ChatTimeout       time.Duration
	ChatRatePerMinute int
	ChatRateBurst     int

	MaternalModelPath  string
	MaternalScalerPath string
	FetalModelPath     string
	FetalScalerPath    string

	TracesExporter string
	OTLPEndpoint   string

	// PerfStageTargets overrides the p95 budget per latency stage on /perf/latency.
	PerfStageTargets map[string]time.Duration
}

// Load reads .env (when present) and environment variables and applies safe defaults.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		BindAddr:           envOrDefault("APP_BIND_ADDR", ":5003"),
		Env:                envOrDefault("APP_ENV", "development"),
		LogLevel:           envOrDefault("LOG_LEVEL", "info"),
		MetricsNamespace:   envOrDefault("APP_METRICS_NAMESPACE", "prenova"),
		CORSAllowedOrigins: listFromEnv("CORS_ALLOWED_ORIGINS", []string{"*"}),
		DatabaseURL:        stringsTrimSpace("DATABASE_URL"),
		AuthMode:           strings.ToLower(envOrDefault("AUTH_MODE", "supabase")),
		AuthJWTSecret:      stringsTrimSpace("AUTH_JWT_SECRET"),
		AuthJWTAudience:    stringsTrimSpace("AUTH_JWT_AUDIENCE"),
		SupabaseURL:        strings.TrimSuffix(stringsTrimSpace("SUPABASE_URL"), "/"),
		SupabaseKey:        stringsTrimSpace("SUPABASE_KEY"),
		ChatProvider:       strings.ToLower(envOrDefault("CHAT_PROVIDER", "ollama")),
		OllamaAPIHost:      strings.TrimSuffix(envOrDefault("OLLAMA_API_HOST", "http://localhost:11434"), "/"),
		ChatModelID:        stringsTrimSpace("OLLAMA_MODEL_ID"),
		OpenAIAPIKey:       stringsTrimSpace("OPENAI_API_KEY"),
		OpenAIBaseURL:      stringsTrimSpace("OPENAI_BASE_URL"),
		MaternalModelPath:  envOrDefault("MATERNAL_MODEL_PATH", "models/maternal_model.json"),
		MaternalScalerPath: envOrDefault("MATERNAL_SCALER_PATH", "models/maternal_scaler.json"),
		FetalModelPath:     envOrDefault("FETAL_MODEL_PATH", "models/fetal_model.json"),
		FetalScalerPath:    envOrDefault("FETAL_SCALER_PATH", "models/fetal_scaler.json"),
		TracesExporter:     strings.ToLower(envOrDefault("OTEL_TRACES_EXPORTER", "none")),
		OTLPEndpoint:       envOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		ShutdownTimeout:    15 * time.Second,
		StoreTimeout:       5 * time.Second,
		AuthTimeout:        5 * time.Second,
		ChatTimeout:        120 * time.Second,
		ChatRatePerMinute:  20,
		ChatRateBurst:      5,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.StoreTimeout, err = durationFromEnv("STORE_TIMEOUT", cfg.StoreTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AuthTimeout, err = durationFromEnv("AUTH_TIMEOUT", cfg.AuthTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.ChatTimeout, err = durationFromEnv("CHAT_TIMEOUT", cfg.ChatTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.ChatRatePerMinute, err = intFromEnv("CHAT_RATE_PER_MINUTE", cfg.ChatRatePerMinute)
	if err != nil {
		return Config{}, err
	}
	cfg.ChatRateBurst, err = intFromEnv("CHAT_RATE_BURST", cfg.ChatRateBurst)
	if err != nil {
		return Config{}, err
	}
	cfg.AuthStaticTokens, err = tokenMapFromEnv("AUTH_STATIC_TOKENS")
	if err != nil {
		return Config{}, err
	}
	cfg.PerfStageTargets, err = durationMapFromEnv("PERF_STAGE_TARGETS")
	if err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.StoreTimeout <= 0 || c.ChatTimeout <= 0 || c.AuthTimeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT, CHAT_TIMEOUT and AUTH_TIMEOUT must be positive")
	}
	if c.ChatRatePerMinute < 0 {
		return fmt.Errorf("CHAT_RATE_PER_MINUTE must be >= 0")
	}
	if c.ChatRatePerMinute > 0 && c.ChatRateBurst <= 0 {
		return fmt.Errorf("CHAT_RATE_BURST must be positive when rate limiting is enabled")
	}

	switch c.AuthMode {
	case "jwt":
		if c.AuthJWTSecret == "" {
			return fmt.Errorf("AUTH_JWT_SECRET is required when AUTH_MODE=jwt")
		}
	case "supabase":
		if c.SupabaseURL == "" || c.SupabaseKey == "" {
			return fmt.Errorf("SUPABASE_URL and SUPABASE_KEY are required when AUTH_MODE=supabase")
		}
	case "static":
		if len(c.AuthStaticTokens) == 0 {
			return fmt.Errorf("AUTH_STATIC_TOKENS is required when AUTH_MODE=static")
		}
	default:
		return fmt.Errorf("invalid AUTH_MODE %q (expected jwt|supabase|static)", c.AuthMode)
	}

	switch c.ChatProvider {
	case "ollama":
		if c.ChatModelID == "" {
			return fmt.Errorf("OLLAMA_MODEL_ID is required when CHAT_PROVIDER=ollama")
		}
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when CHAT_PROVIDER=openai")
		}
		if c.ChatModelID == "" {
			return fmt.Errorf("OLLAMA_MODEL_ID is required when CHAT_PROVIDER=openai")
		}
	case "mock":
	default:
		return fmt.Errorf("invalid CHAT_PROVIDER %q (expected ollama|openai|mock)", c.ChatProvider)
	}

	switch c.TracesExporter {
	case "none", "stdout", "otlp":
	default:
		return fmt.Errorf("invalid OTEL_TRACES_EXPORTER %q (expected none|stdout|otlp)", c.TracesExporter)
	}
	return nil
}

// Production reports whether the service runs with production defaults.
func (c Config) Production() bool {
	return strings.EqualFold(c.Env, "production")
}

func envOrDefault(key, fallback string) string {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func listFromEnv(key string, fallback []string) []string {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

// tokenMapFromEnv parses "token:user,token2:user2".
func tokenMapFromEnv(key string) (map[string]string, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return nil, nil
	}
	out := make(map[string]string)
	for _, pair := range strings.Split(v, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		token, user, ok := strings.Cut(pair, ":")
		token, user = strings.TrimSpace(token), strings.TrimSpace(user)
		if !ok || token == "" || user == "" {
			return nil, fmt.Errorf("%s parse error: expected token:user pairs", key)
		}
		out[token] = user
	}
	return out, nil
}

// durationMapFromEnv parses "stage=150ms,other=2s".
func durationMapFromEnv(key string) (map[string]time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return nil, nil
	}
	out := make(map[string]time.Duration)
	for _, pair := range strings.Split(v, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, raw, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("%s parse error: expected stage=duration pairs", key)
		}
		d, err := time.ParseDuration(strings.TrimSpace(raw))
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("%s parse error: bad duration for %s", key, name)
		}
		out[name] = d
	}
	return out, nil
}
