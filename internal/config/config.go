package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port string

	// Speech recognition
	STTProvider        string
	GoogleSTTKeyFile   string
	GoogleSTTProjectID string
	GoogleSTTURL       string
	OfflineSTTCommand  string
	OfflineSTTTimeout  time.Duration
	FFmpegPath         string
	UploadDir          string
	MaxAudioDuration   time.Duration

	// Chat-completion gateway
	LLMBaseURL     string
	LLMAPIKey      string
	LLMModel       string
	LLMTimeout     time.Duration
	LLMMaxTokens   int
	LLMTemperature float32
	LLMTopP        float32

	TriageTablesFile string

	RateLimitRPS       float64
	RateLimitBurst     int
	CORSAllowedOrigins []string
	TrustedProxies     []string

	Verbose bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		STTProvider:        strings.ToLower(getEnv("STT_PROVIDER", "google")),
		GoogleSTTKeyFile:   os.Getenv("GOOGLE_STT_KEY_FILE"),
		GoogleSTTProjectID: os.Getenv("GOOGLE_STT_PROJECT_ID"),
		GoogleSTTURL:       getEnv("GOOGLE_STT_URL", "https://speech.googleapis.com"),
		OfflineSTTCommand:  os.Getenv("OFFLINE_STT_COMMAND"),
		FFmpegPath:         getEnv("FFMPEG_PATH", "ffmpeg"),
		UploadDir:          os.Getenv("UPLOAD_DIR"),
		LLMBaseURL:         getEnv("LLM_BASE_URL", "https://router.huggingface.co/v1"),
		LLMAPIKey:          getEnv("LLM_API_KEY", os.Getenv("HUGGING_FACE_TOKEN")),
		LLMModel:           getEnv("LLM_MODEL", "meta-llama/Meta-Llama-3-8B-Instruct"),
		TriageTablesFile:   os.Getenv("TRIAGE_TABLES_FILE"),
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		TrustedProxies:     splitList(os.Getenv("TRUSTED_PROXIES")),
	}

	var err error
	if cfg.OfflineSTTTimeout, err = getSeconds("OFFLINE_STT_TIMEOUT_SEC", 60); err != nil {
		return nil, err
	}
	if cfg.MaxAudioDuration, err = getSeconds("MAX_AUDIO_DURATION_SEC", 300); err != nil {
		return nil, err
	}
	if cfg.LLMTimeout, err = getSeconds("LLM_TIMEOUT_SEC", 30); err != nil {
		return nil, err
	}
	if cfg.LLMMaxTokens, err = getInt("LLM_MAX_TOKENS", 500); err != nil {
		return nil, err
	}
	if cfg.LLMTemperature, err = getFloat32("LLM_TEMPERATURE", 0.4); err != nil {
		return nil, err
	}
	if cfg.LLMTopP, err = getFloat32("LLM_TOP_P", 0.9); err != nil {
		return nil, err
	}
	if cfg.RateLimitRPS, err = getFloat("RATE_LIMIT_RPS", 5); err != nil {
		return nil, err
	}
	if cfg.RateLimitBurst, err = getInt("RATE_LIMIT_BURST", 10); err != nil {
		return nil, err
	}
	cfg.Verbose, _ = strconv.ParseBool(os.Getenv("LOG_VERBOSE"))

	// Validate required environment variables
	if cfg.LLMAPIKey == "" {
		return nil, fmt.Errorf("LLM_API_KEY (or HUGGING_FACE_TOKEN) is required. Please set it as environment variable:\n  Linux/Mac: export LLM_API_KEY=\"your_token\"\n\nOr put it in a .env file next to the binary")
	}

	switch cfg.STTProvider {
	case "google", "google-grpc":
	default:
		return nil, fmt.Errorf("unsupported STT_PROVIDER %q. Supported: google, google-grpc", cfg.STTProvider)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number, got %q", key, v)
	}
	return f, nil
}

func getFloat32(key string, fallback float32) (float32, error) {
	f, err := getFloat(key, float64(fallback))
	return float32(f), err
}

func getSeconds(key string, fallback int) (time.Duration, error) {
	n, err := getInt(key, fallback)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %d", key, n)
	}
	return time.Duration(n) * time.Second, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
