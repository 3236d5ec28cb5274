package stt

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/encoding/protojson"

	"aarogya/internal/audio"
)

// GoogleGRPCProvider implements STT using the Cloud Speech gRPC client.
// The client is created once and shared by all requests.
type GoogleGRPCProvider struct {
	client *speech.Client
	logger *log.Logger
}

// NewGoogleGRPCProvider dials the Speech API. With no options the client
// uses application default credentials.
func NewGoogleGRPCProvider(ctx context.Context, logger *log.Logger, opts ...option.ClientOption) (*GoogleGRPCProvider, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google Speech client: %w", err)
	}
	return &GoogleGRPCProvider{client: client, logger: logger}, nil
}

// GoogleClientOptions turns GOOGLE_STT_KEY_FILE style key data into client
// options.
func GoogleClientOptions(keyData, projectID string) []option.ClientOption {
	keyData = strings.TrimSpace(keyData)
	var opts []option.ClientOption
	switch {
	case keyData == "":
	case IsGoogleAPIKey(keyData):
		opts = append(opts, option.WithAPIKey(keyData))
	case strings.HasPrefix(keyData, "{"):
		opts = append(opts, option.WithCredentialsJSON([]byte(keyData)))
	default:
		opts = append(opts, option.WithCredentialsFile(keyData))
	}
	if projectID != "" {
		opts = append(opts, option.WithQuotaProject(projectID))
	}
	return opts
}

func (p *GoogleGRPCProvider) Name() string {
	return "google-grpc"
}

// Close releases the underlying connection.
func (p *GoogleGRPCProvider) Close() error {
	return p.client.Close()
}

func (p *GoogleGRPCProvider) Recognize(ctx context.Context, rec *audio.Recording, localeTag string) Recognition {
	req := &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz:            int32(rec.SampleRate),
			AudioChannelCount:          1,
			LanguageCode:               localeTag,
			EnableAutomaticPunctuation: true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: rec.WAV},
		},
	}

	startTime := time.Now()
	resp, err := p.client.Recognize(ctx, req)
	latency := time.Since(startTime)
	if err != nil {
		p.logger.Printf("[Google gRPC STT] Recognize failed after %v: %v", latency, err)
		return unavailable(fmt.Errorf("Google Speech API recognition failed: %w", err), "")
	}

	raw := ""
	if b, err := protojson.Marshal(resp); err == nil {
		raw = string(b)
	}

	var transcript strings.Builder
	for _, result := range resp.GetResults() {
		alts := result.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		if t := strings.TrimSpace(alts[0].GetTranscript()); t != "" {
			if transcript.Len() > 0 {
				transcript.WriteString(" ")
			}
			transcript.WriteString(t)
		}
	}
	if transcript.Len() == 0 {
		p.logger.Printf("[Google gRPC STT] No speech recognized (locale=%s, %v)", localeTag, latency)
		return unintelligible(raw)
	}

	p.logger.Printf("[Google gRPC STT] Recognized %d chars in %v", transcript.Len(), latency)
	return recognized(transcript.String(), raw)
}
