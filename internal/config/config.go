package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProviderGroq   = "groq"
	ProviderGemini = "gemini"

	EnvProduction = "production"
)

type Config struct {
	Port     string
	AppEnv   string
	LogLevel string

	// Auth
	JWTSecret string

	// HTTP
	CORSAllowedOrigins []string

	// Upload limits
	UploadDir      string
	MaxUploadBytes int64

	// Generative AI. The credential itself is read from AIKeyEnv on every call.
	AIProvider    string
	AIModel       string
	AIBaseURL     string
	AIKeyEnv      string
	AITemperature float32
	AITimeout     time.Duration

	// Extraction
	ScannedMinChars      int
	PDFFallbackPdftotext bool
	OCRLanguage          string
	OCRDPI               float64
	OCRMaxPages          int

	// Pipeline
	MinDocumentChars      int
	ChunkSize             int
	ChunkRetries          int
	MaxConcurrentAnalyses int
	AnalysisTimeout       time.Duration

	// Result cache (disabled when RedisAddr is empty)
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	// LLM latency stats
	StatsWindow time.Duration
}

// Load reads an optional .env file and then the process environment.
func Load() Config {
	_ = godotenv.Load()

	provider := strings.ToLower(envOr("AI_PROVIDER", ProviderGroq))

	cfg := Config{
		Port:     envOr("PORT", "5000"),
		AppEnv:   envOr("APP_ENV", "development"),
		LogLevel: envOr("LOG_LEVEL", "info"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		CORSAllowedOrigins: envList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),

		UploadDir:      envOr("UPLOAD_DIR", os.TempDir()),
		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 20971520), // 20MB

		AIProvider:    provider,
		AIModel:       envOr("AI_MODEL", defaultModel(provider)),
		AIBaseURL:     envOr("AI_BASE_URL", defaultBaseURL(provider)),
		AIKeyEnv:      envOr("AI_API_KEY_ENV", defaultKeyEnv(provider)),
		AITemperature: float32(envFloat("AI_TEMPERATURE", 0.1)),
		AITimeout:     envDuration("AI_TIMEOUT", 2*time.Minute),

		ScannedMinChars:      envInt("SCANNED_MIN_CHARS", 100),
		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
		OCRLanguage:          envOr("OCR_LANGUAGE", "eng"),
		OCRDPI:               envFloat("OCR_DPI", 300),
		OCRMaxPages:          envInt("OCR_MAX_PAGES", 50),

		MinDocumentChars:      envInt("MIN_DOCUMENT_CHARS", 20),
		ChunkSize:             envInt("CHUNK_SIZE", 6000),
		ChunkRetries:          envInt("CHUNK_RETRIES", 1),
		MaxConcurrentAnalyses: envInt("MAX_CONCURRENT_ANALYSES", 4),
		AnalysisTimeout:       envDuration("ANALYSIS_TIMEOUT", 10*time.Minute),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),
		CacheTTL:      envDuration("CACHE_TTL", 24*time.Hour),

		StatsWindow: envDuration("STATS_WINDOW", 1*time.Hour),
	}

	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 20971520
	}
	if cfg.AITimeout <= 0 {
		cfg.AITimeout = 2 * time.Minute
	}
	if cfg.ScannedMinChars < 0 {
		cfg.ScannedMinChars = 100
	}
	if cfg.OCRDPI <= 0 {
		cfg.OCRDPI = 300
	}
	if cfg.OCRMaxPages <= 0 {
		cfg.OCRMaxPages = 50
	}
	if cfg.MinDocumentChars < 0 {
		cfg.MinDocumentChars = 20
	}
	if cfg.ChunkRetries < 0 {
		cfg.ChunkRetries = 1
	}
	if cfg.MaxConcurrentAnalyses <= 0 {
		cfg.MaxConcurrentAnalyses = 4
	}
	if cfg.AnalysisTimeout <= 0 {
		cfg.AnalysisTimeout = 10 * time.Minute
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 24 * time.Hour
	}
	if cfg.StatsWindow <= 0 {
		cfg.StatsWindow = 1 * time.Hour
	}

	return cfg
}

func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.ChunkSize)
	}
	switch c.AIProvider {
	case ProviderGroq, ProviderGemini:
	default:
		return fmt.Errorf("AI_PROVIDER %q is not supported (use %s or %s)", c.AIProvider, ProviderGroq, ProviderGemini)
	}
	if c.AIKeyEnv == "" {
		return fmt.Errorf("AI_API_KEY_ENV must name an environment variable")
	}
	return nil
}

// AIKey returns the current value of the AI credential variable. It is read
// on every call so a rotated key takes effect without a restart.
func (c Config) AIKey() string {
	return os.Getenv(c.AIKeyEnv)
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, EnvProduction)
}

func (c Config) CacheEnabled() bool {
	return c.RedisAddr != ""
}

func defaultModel(provider string) string {
	if provider == ProviderGemini {
		return "gemini-1.5-flash"
	}
	return "llama-3.3-70b-versatile"
}

func defaultBaseURL(provider string) string {
	if provider == ProviderGemini {
		return ""
	}
	return "https://api.groq.com/openai/v1"
}

func defaultKeyEnv(provider string) string {
	if provider == ProviderGemini {
		return "GEMINI_API_KEY"
	}
	return "GROQ_API_KEY"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
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
