package stt

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"aarogya/internal/audio"
)

const (
	defaultGoogleURL = "https://speech.googleapis.com"
	cloudPlatform    = "https://www.googleapis.com/auth/cloud-platform"
)

// GoogleConfig configures the Google Speech-to-Text REST provider.
//
// KeyData can be either:
//   - An API key (39 characters, typically starts with "AIzaSy")
//   - A file path to a JSON key file (e.g., "./keys/google-service-account.json")
//   - A JSON string containing the service account credentials
//   - Empty, to use application default credentials
type GoogleConfig struct {
	ProjectID string
	KeyData   string
	BaseURL   string
	Timeout   time.Duration
}

// GoogleProvider implements STT using Google Cloud Speech-to-Text REST API
type GoogleProvider struct {
	projectID  string
	apiKey     string
	baseURL    string
	httpClient *http.Client
	useAPIKey  bool
	logger     *log.Logger
}

// IsGoogleAPIKey reports whether keyData looks like a Google API key.
func IsGoogleAPIKey(keyData string) bool {
	k := strings.TrimSpace(keyData)
	return len(k) == 39 && strings.HasPrefix(k, "AIzaSy")
}

// NewGoogleProvider creates a new Google STT provider
func NewGoogleProvider(cfg GoogleConfig, logger *log.Logger) (*GoogleProvider, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultGoogleURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}

	keyData := strings.TrimSpace(cfg.KeyData)
	if IsGoogleAPIKey(keyData) {
		logger.Printf("[Google STT] Using API key authentication")
		return &GoogleProvider{
			projectID:  cfg.ProjectID,
			apiKey:     keyData,
			baseURL:    baseURL,
			httpClient: &http.Client{Timeout: timeout},
			useAPIKey:  true,
			logger:     logger,
		}, nil
	}

	ctx := context.Background()
	var creds *google.Credentials
	var err error

	switch {
	case keyData == "":
		creds, err = google.FindDefaultCredentials(ctx, cloudPlatform)
		if err != nil {
			return nil, fmt.Errorf("failed to find default credentials: %w. Please set GOOGLE_STT_KEY_FILE", err)
		}
	case strings.HasPrefix(keyData, "{"):
		logger.Printf("[Google STT] Using JSON credentials from environment variable")
		creds, err = google.CredentialsFromJSON(ctx, []byte(keyData), cloudPlatform)
		if err != nil {
			return nil, fmt.Errorf("failed to create credentials from JSON: %w", err)
		}
	default:
		logger.Printf("[Google STT] Reading key file: %s", keyData)
		jsonData, err := os.ReadFile(keyData)
		if err != nil {
			return nil, fmt.Errorf("failed to read key file '%s': %w", keyData, err)
		}
		creds, err = google.CredentialsFromJSON(ctx, jsonData, cloudPlatform)
		if err != nil {
			return nil, fmt.Errorf("failed to create credentials from JSON: %w", err)
		}
	}

	client := oauth2.NewClient(ctx, creds.TokenSource)
	client.Timeout = timeout

	projectID := cfg.ProjectID
	if projectID == "" {
		projectID = creds.ProjectID
	}

	return &GoogleProvider{
		projectID:  projectID,
		baseURL:    baseURL,
		httpClient: client,
		logger:     logger,
	}, nil
}

// Name returns the provider name
func (p *GoogleProvider) Name() string {
	return "google"
}

// GoogleSTTRequest represents Google Speech-to-Text API request
type GoogleSTTRequest struct {
	Config GoogleSTTConfig `json:"config"`
	Audio  GoogleSTTAudio  `json:"audio"`
}

// GoogleSTTConfig represents recognition config
type GoogleSTTConfig struct {
	Encoding                   string `json:"encoding"`
	SampleRateHertz            int    `json:"sampleRateHertz"`
	AudioChannelCount          int    `json:"audioChannelCount,omitempty"`
	LanguageCode               string `json:"languageCode"`
	EnableAutomaticPunctuation bool   `json:"enableAutomaticPunctuation"`
}

// GoogleSTTAudio represents audio data
type GoogleSTTAudio struct {
	Content string `json:"content"` // Base64 encoded
}

// GoogleSTTResponse represents Google Speech-to-Text API response
type GoogleSTTResponse struct {
	Results []GoogleSTTResult `json:"results"`
	Error   *GoogleSTTError   `json:"error,omitempty"`
}

// GoogleSTTResult represents a recognition result
type GoogleSTTResult struct {
	Alternatives []GoogleSTTAlternative `json:"alternatives"`
}

// GoogleSTTAlternative represents a transcript alternative
type GoogleSTTAlternative struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
}

// GoogleSTTError represents an API error
type GoogleSTTError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

type googleErrorEnvelope struct {
	Error *GoogleSTTError `json:"error"`
}

// Recognize sends the recording as LINEAR16 to speech:recognize.
func (p *GoogleProvider) Recognize(ctx context.Context, rec *audio.Recording, localeTag string) Recognition {
	startTime := time.Now()

	reqBody := GoogleSTTRequest{
		Config: GoogleSTTConfig{
			Encoding:                   "LINEAR16",
			SampleRateHertz:            rec.SampleRate,
			AudioChannelCount:          1,
			LanguageCode:               localeTag,
			EnableAutomaticPunctuation: true,
		},
		Audio: GoogleSTTAudio{
			Content: base64.StdEncoding.EncodeToString(rec.WAV),
		},
	}

	reqJSON, err := json.Marshal(reqBody)
	if err != nil {
		return unavailable(fmt.Errorf("failed to marshal request: %w", err), "")
	}

	apiURL := p.baseURL + "/v1/speech:recognize"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(reqJSON))
	if err != nil {
		return unavailable(fmt.Errorf("failed to create request: %w", err), "")
	}
	req.Header.Set("Content-Type", "application/json")
	// The key stays out of the URL so transport errors never carry it.
	if p.useAPIKey {
		req.Header.Set("X-Goog-Api-Key", p.apiKey)
	}
	if !p.useAPIKey && p.projectID != "" {
		req.Header.Set("X-Goog-User-Project", p.projectID)
	}

	p.logger.Printf("[Google STT] Calling Google Speech-to-Text API (locale=%s, %d bytes, %v audio)",
		localeTag, len(rec.WAV), rec.Duration())
	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.logger.Printf("[Google STT] HTTP error: %v", err)
		return unavailable(fmt.Errorf("failed to send request to Google Speech-to-Text: %w", err), "")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return unavailable(fmt.Errorf("failed to read response body: %w", err), "")
	}
	raw := string(body)
	p.logger.Printf("[Google STT] Response preview: %s", truncate(raw, 500))

	if resp.StatusCode != http.StatusOK {
		var env googleErrorEnvelope
		if err := json.Unmarshal(body, &env); err == nil && env.Error != nil {
			p.logger.Printf("[Google STT] API error: Code %d, Status %s, Message: %s", env.Error.Code, env.Error.Status, env.Error.Message)
			return unavailable(fmt.Errorf("Google Speech-to-Text API error: %s", env.Error.Message), raw)
		}
		return unavailable(fmt.Errorf("Google Speech-to-Text API returned status %d: %s", resp.StatusCode, truncate(raw, 200)), raw)
	}

	var sttResp GoogleSTTResponse
	if err := json.Unmarshal(body, &sttResp); err != nil {
		return unavailable(fmt.Errorf("failed to parse Google Speech-to-Text response: %w", err), raw)
	}
	if sttResp.Error != nil {
		return unavailable(fmt.Errorf("Google Speech-to-Text API error: %s", sttResp.Error.Message), raw)
	}

	// Long audio is split into consecutive results.
	var parts []string
	for _, r := range sttResp.Results {
		if len(r.Alternatives) == 0 {
			continue
		}
		if t := strings.TrimSpace(r.Alternatives[0].Transcript); t != "" {
			parts = append(parts, t)
		}
	}
	if len(parts) == 0 {
		p.logger.Printf("[Google STT] No speech recognized")
		return unintelligible(raw)
	}

	transcript := strings.Join(parts, " ")
	p.logger.Printf("[Google STT] Transcription successful: length=%d, duration=%v",
		len(transcript), time.Since(startTime))
	return recognized(transcript, raw)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
