package config

import (
	"strings"
	"testing"
	"time"
)

var allKeys = []string{
	"PORT", "STT_PROVIDER", "GOOGLE_STT_KEY_FILE", "GOOGLE_STT_PROJECT_ID", "GOOGLE_STT_URL",
	"OFFLINE_STT_COMMAND", "OFFLINE_STT_TIMEOUT_SEC", "FFMPEG_PATH", "UPLOAD_DIR", "MAX_AUDIO_DURATION_SEC",
	"LLM_BASE_URL", "LLM_API_KEY", "HUGGING_FACE_TOKEN", "LLM_MODEL", "LLM_TIMEOUT_SEC",
	"LLM_MAX_TOKENS", "LLM_TEMPERATURE", "LLM_TOP_P", "TRIAGE_TABLES_FILE",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "CORS_ALLOWED_ORIGINS", "TRUSTED_PROXIES", "LOG_VERBOSE",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_API_KEY", "hf_test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("expected port 8080, got %s", cfg.Port)
	}
	if cfg.STTProvider != "google" {
		t.Errorf("expected google provider, got %s", cfg.STTProvider)
	}
	if cfg.LLMModel != "meta-llama/Meta-Llama-3-8B-Instruct" {
		t.Errorf("unexpected model %s", cfg.LLMModel)
	}
	if cfg.LLMTimeout != 30*time.Second {
		t.Errorf("expected 30s timeout, got %v", cfg.LLMTimeout)
	}
	if cfg.MaxAudioDuration != 5*time.Minute {
		t.Errorf("expected 5m audio cap, got %v", cfg.MaxAudioDuration)
	}
	if cfg.LLMMaxTokens != 500 || cfg.LLMTemperature != 0.4 || cfg.LLMTopP != 0.9 {
		t.Errorf("unexpected sampling defaults: %d %v %v", cfg.LLMMaxTokens, cfg.LLMTemperature, cfg.LLMTopP)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
		t.Errorf("unexpected CORS origins %v", cfg.CORSAllowedOrigins)
	}
	if cfg.Verbose {
		t.Error("verbose should default to false")
	}
}

func TestLoadHuggingFaceTokenFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("HUGGING_FACE_TOKEN", "hf_legacy")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LLMAPIKey != "hf_legacy" {
		t.Errorf("expected HUGGING_FACE_TOKEN to be used, got %q", cfg.LLMAPIKey)
	}
}

func TestLoadRequiresAPIKey(t *testing.T) {
	clearEnv(t)
	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "LLM_API_KEY") {
		t.Fatalf("expected missing key error, got %v", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_API_KEY", "k")
	t.Setenv("STT_PROVIDER", "Google-GRPC")
	t.Setenv("LLM_TIMEOUT_SEC", "5")
	t.Setenv("MAX_AUDIO_DURATION_SEC", "90")
	t.Setenv("RATE_LIMIT_RPS", "0.5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8")
	t.Setenv("LOG_VERBOSE", "1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.STTProvider != "google-grpc" {
		t.Errorf("expected google-grpc, got %s", cfg.STTProvider)
	}
	if cfg.LLMTimeout != 5*time.Second {
		t.Errorf("expected 5s, got %v", cfg.LLMTimeout)
	}
	if cfg.MaxAudioDuration != 90*time.Second {
		t.Errorf("expected 90s audio cap, got %v", cfg.MaxAudioDuration)
	}
	if cfg.RateLimitRPS != 0.5 {
		t.Errorf("expected 0.5 rps, got %v", cfg.RateLimitRPS)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Errorf("unexpected origins %v", cfg.CORSAllowedOrigins)
	}
	if len(cfg.TrustedProxies) != 1 || cfg.TrustedProxies[0] != "10.0.0.0/8" {
		t.Errorf("unexpected trusted proxies %v", cfg.TrustedProxies)
	}
	if !cfg.Verbose {
		t.Error("expected verbose")
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := map[string]string{
		"LLM_TIMEOUT_SEC": "soon",
		"LLM_MAX_TOKENS":  "many",
		"RATE_LIMIT_RPS":  "fast",
		"STT_PROVIDER":    "azure",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("LLM_API_KEY", "k")
			t.Setenv(key, value)
			if _, err := Load(); err == nil || !strings.Contains(err.Error(), key) {
				t.Errorf("expected error naming %s, got %v", key, err)
			}
		})
	}
}
