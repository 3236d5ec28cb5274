package ai

import (
	"context"
	"errors"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"aarogya/internal/locale"
	"aarogya/internal/metrics"
	"aarogya/internal/triage"
)

// ChatClient is the part of *openai.Client the analyzer uses.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// NewClient creates an OpenAI-compatible client for the chat-completion
// gateway at baseURL.
func NewClient(baseURL, apiKey string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return openai.NewClientWithConfig(cfg)
}

// AnalysisResult represents the AI analysis result
type AnalysisResult struct {
	Success      bool            `json:"success"`
	AnalysisText string          `json:"analysis,omitempty"`
	Category     triage.Category `json:"condition_category"`
	Severity     triage.Severity `json:"severity"`
	Language     string          `json:"language"`
	Error        string          `json:"error,omitempty"`
}

// HealthInfoResult is an explanation of a health topic.
type HealthInfoResult struct {
	Topic    string `json:"topic"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	Language string `json:"language"`
}

// Analyzer classifies a symptom description, builds the prompt and calls
// the chat-completion gateway. It never retries.
type Analyzer struct {
	client     ChatClient
	classifier *triage.Classifier
	assembler  *Assembler
	timeout    time.Duration
	logger     *log.Logger
}

func NewAnalyzer(client ChatClient, classifier *triage.Classifier, assembler *Assembler, timeout time.Duration, logger *log.Logger) *Analyzer {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Analyzer{
		client:     client,
		classifier: classifier,
		assembler:  assembler,
		timeout:    timeout,
		logger:     logger,
	}
}

// Analyze analyzes a symptom description. On failure the returned result
// carries Success=false and the error is an *Error.
func (a *Analyzer) Analyze(ctx context.Context, symptoms, language string) (AnalysisResult, error) {
	lang := locale.Normalize(language)
	symptoms = strings.TrimSpace(symptoms)
	if symptoms == "" {
		err := invalidInput("symptoms description is required")
		return AnalysisResult{Language: lang, Error: err.Error()}, err
	}

	category := a.classifier.Classify(symptoms)
	severity := a.classifier.Severity(symptoms)
	metrics.RecordAnalysis(string(category), string(severity))

	result := AnalysisResult{Category: category, Severity: severity, Language: lang}

	req := a.assembler.BuildRequest(category, lang, symptoms)
	a.logger.Printf("[AI] Analyzing symptoms: category=%s severity=%s language=%s model=%s length=%d",
		category, severity, lang, req.Model, len(symptoms))

	content, err := a.complete(ctx, req)
	if err != nil {
		result.Error = err.Error()
		return result, err
	}

	result.Success = true
	result.AnalysisText = content
	return result, nil
}

// HealthInfo explains a health topic in the given language.
func (a *Analyzer) HealthInfo(ctx context.Context, topic, language string) (HealthInfoResult, error) {
	lang := locale.Normalize(language)
	if strings.TrimSpace(topic) == "" {
		return HealthInfoResult{Language: lang}, invalidInput("topic is required")
	}

	resolved := a.classifier.Tables().ResolveTopic(topic, lang)
	info := HealthInfoResult{Topic: resolved.Key, Title: resolved.Title, Language: lang}

	req := a.assembler.BuildTopicRequest(resolved.Title, lang)
	a.logger.Printf("[AI] Health info: topic=%s known=%v language=%s", resolved.Key, resolved.Known, lang)

	content, err := a.complete(ctx, req)
	if err != nil {
		return info, err
	}
	info.Content = content
	return info, nil
}

func (a *Analyzer) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	resp, err := a.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)
	if err != nil {
		aiErr := classifyError(err)
		metrics.ObserveLLM(statusLabel(aiErr), duration)
		a.logger.Printf("[AI] Chat completion failed after %v: kind=%s %v", duration, aiErr.Kind, err)
		return "", aiErr
	}

	a.logger.Printf("[AI] Response received in %v: choices=%d prompt_tokens=%d completion_tokens=%d",
		duration, len(resp.Choices), resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		metrics.ObserveLLM("empty", duration)
		return "", &Error{Kind: KindUpstream, Msg: "empty completion", Err: errors.New("gateway returned no content")}
	}

	metrics.ObserveLLM("200", duration)
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func statusLabel(e *Error) string {
	if e.Status != 0 {
		return strconv.Itoa(e.Status)
	}
	return e.Kind.String()
}
