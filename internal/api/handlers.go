package api

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"aarogya/internal/ai"
	"aarogya/internal/audio"
	"aarogya/internal/locale"
	"aarogya/internal/metrics"
	"aarogya/internal/stt"
	"aarogya/internal/triage"
	"aarogya/internal/utils"
)

// Transcriber is implemented by *stt.Engine.
type Transcriber interface {
	Transcribe(ctx context.Context, path, ext, language string) stt.Result
	PrimaryName() string
	FallbackName() string
}

// SymptomAnalyzer is implemented by *ai.Analyzer.
type SymptomAnalyzer interface {
	Analyze(ctx context.Context, symptoms, language string) (ai.AnalysisResult, error)
	HealthInfo(ctx context.Context, topic, language string) (ai.HealthInfoResult, error)
}

// Deps are the components the handlers delegate to.
type Deps struct {
	Validator   *audio.Validator
	Transcriber Transcriber
	Analyzer    SymptomAnalyzer
	Tables      *triage.Tables
	UploadDir   string
	Logger      *log.Logger
}

// RouterOptions configures the middleware stack.
type RouterOptions struct {
	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int
	// TrustedProxies may set X-Forwarded-For / X-Real-IP. Empty trusts none.
	TrustedProxies []string
}

type Handler struct {
	validator   *audio.Validator
	transcriber Transcriber
	analyzer    SymptomAnalyzer
	tables      *triage.Tables
	uploadDir   string
	logger      *log.Logger
}

func NewHandler(d Deps) *Handler {
	logger := d.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	validator := d.Validator
	if validator == nil {
		validator = audio.NewValidator(logger)
	}
	tables := d.Tables
	if tables == nil {
		tables = triage.DefaultTables()
	}
	return &Handler{
		validator:   validator,
		transcriber: d.Transcriber,
		analyzer:    d.Analyzer,
		tables:      tables,
		uploadDir:   d.UploadDir,
		logger:      logger,
	}
}

// NewRouter builds the gin engine with middleware and all routes.
func NewRouter(h *Handler, opts RouterOptions) (*gin.Engine, error) {
	r := gin.New()
	if err := r.SetTrustedProxies(opts.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}
	r.Use(gin.Logger(), recovery(h.logger), corsMiddleware(opts.AllowedOrigins), metrics.Middleware())

	var limiter *IPRateLimiter
	if opts.RateLimitRPS > 0 {
		limiter = NewIPRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst)
	}
	h.RegisterRoutes(r, limiter)
	return r, nil
}

// RegisterRoutes mounts the routes. POST routes go through limiter when it
// is non-nil.
func (h *Handler) RegisterRoutes(r *gin.Engine, limiter *IPRateLimiter) {
	r.GET("/health", h.healthCheck)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	limited := []gin.HandlerFunc{}
	if limiter != nil {
		limited = append(limited, limiter.Middleware())
	}

	api := r.Group("/api")
	{
		api.POST("/speech-to-text", append(limited, h.speechToText)...)
		api.GET("/speech/supported-formats", h.supportedFormats)
		api.GET("/speech/test", h.speechTest)
		api.POST("/analyze-symptoms", append(limited, h.analyzeSymptoms)...)
		api.GET("/health-info/:topic", h.healthInfo)
		api.GET("/languages", h.languages)
	}
}

// healthCheck returns server health status
func (h *Handler) healthCheck(c *gin.Context) {
	utils.Success(c, gin.H{
		"status":  "ok",
		"service": "aarogya-backend",
	})
}

func (h *Handler) languages(c *gin.Context) {
	utils.Success(c, gin.H{
		"languages": locale.All(),
		"default":   locale.Default,
	})
}

func (h *Handler) supportedFormats(c *gin.Context) {
	utils.Success(c, gin.H{
		"formats":          audio.SupportedFormats,
		"max_file_size_mb": h.validator.Limit() / (1024 * 1024),
		"languages":        locale.All(),
	})
}

// speechTest reports whether the speech service is wired up.
func (h *Handler) speechTest(c *gin.Context) {
	if h.transcriber == nil {
		utils.Error(c, http.StatusServiceUnavailable, "speech service not configured")
		return
	}
	fallback := h.transcriber.FallbackName()
	// The offline backend only recognizes English.
	fallbackLanguages := []string{}
	if fallback != "" {
		fallbackLanguages = append(fallbackLanguages, locale.Default)
	}
	utils.Success(c, gin.H{
		"status":             "operational",
		"primary_backend":    h.transcriber.PrimaryName(),
		"fallback_backend":   fallback,
		"fallback_enabled":   fallback != "",
		"fallback_languages": fallbackLanguages,
	})
}
