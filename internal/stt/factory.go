package stt

import (
	"context"
	"fmt"
	"log"

	"aarogya/internal/config"
)

// CreateProvider creates the primary STT provider based on configuration
func CreateProvider(ctx context.Context, cfg *config.Config, logger *log.Logger) (Provider, error) {
	switch cfg.STTProvider {
	case "", "google":
		return createGoogleProvider(cfg, logger)
	case "google-grpc":
		log.Printf("[STT Factory] Creating Google gRPC STT provider")
		return NewGoogleGRPCProvider(ctx, logger, GoogleClientOptions(cfg.GoogleSTTKeyFile, cfg.GoogleSTTProjectID)...)
	default:
		return nil, fmt.Errorf("unsupported STT provider: %s. Supported: google, google-grpc", cfg.STTProvider)
	}
}

// CreateFallback returns the offline provider, or nil when no offline
// command is configured.
func CreateFallback(cfg *config.Config, logger *log.Logger) Provider {
	if cfg.OfflineSTTCommand == "" {
		log.Printf("[STT Factory] OFFLINE_STT_COMMAND not set, English fallback disabled")
		return nil
	}
	log.Printf("[STT Factory] Creating offline STT provider")
	return NewCommandProvider(cfg.OfflineSTTCommand, cfg.OfflineSTTTimeout, logger)
}

// createGoogleProvider creates a Google STT provider
// GOOGLE_STT_KEY_FILE can be an API key, a path to a JSON key file, a JSON
// string with service account credentials, or empty for default credentials.
func createGoogleProvider(cfg *config.Config, logger *log.Logger) (Provider, error) {
	if IsGoogleAPIKey(cfg.GoogleSTTKeyFile) {
		log.Printf("[STT Factory] Creating Google STT provider with API key")
	} else if cfg.GoogleSTTProjectID != "" {
		log.Printf("[STT Factory] Creating Google STT provider with project: %s", cfg.GoogleSTTProjectID)
	} else {
		log.Printf("[STT Factory] Creating Google STT provider with service account credentials")
	}
	return NewGoogleProvider(GoogleConfig{
		ProjectID: cfg.GoogleSTTProjectID,
		KeyData:   cfg.GoogleSTTKeyFile,
		BaseURL:   cfg.GoogleSTTURL,
	}, logger)
}
