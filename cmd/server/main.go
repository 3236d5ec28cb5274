package main

import (
	"context"
	"io"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"aarogya/internal/ai"
	"aarogya/internal/api"
	"aarogya/internal/audio"
	"aarogya/internal/config"
	"aarogya/internal/stt"
	"aarogya/internal/triage"
)

func main() {
	// Load .env file if it exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set Gin mode (default to release mode)
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	logger := log.New(os.Stderr, "", log.LstdFlags)
	debug := log.New(io.Discard, "", 0)
	if cfg.Verbose {
		debug = log.New(os.Stderr, "[debug] ", log.LstdFlags)
	}

	tables, err := triage.LoadTables(cfg.TriageTablesFile)
	if err != nil {
		log.Fatalf("Failed to load triage tables: %v", err)
	}
	if cfg.TriageTablesFile != "" {
		log.Printf("Triage tables loaded from %s", cfg.TriageTablesFile)
	}

	ctx := context.Background()
	primary, err := stt.CreateProvider(ctx, cfg, debug)
	if err != nil {
		log.Fatalf("Failed to create STT provider: %v", err)
	}
	if closer, ok := primary.(io.Closer); ok {
		defer closer.Close()
	}
	fallback := stt.CreateFallback(cfg, debug)

	normalizer := audio.NewNormalizer(cfg.FFmpegPath, cfg.UploadDir, debug)
	normalizer.MaxDuration = cfg.MaxAudioDuration
	engine := stt.NewEngine(normalizer, primary, fallback, logger)

	assembler := ai.NewAssembler(tables, ai.ModelParams{
		Model:       cfg.LLMModel,
		MaxTokens:   cfg.LLMMaxTokens,
		Temperature: cfg.LLMTemperature,
		TopP:        cfg.LLMTopP,
	})
	analyzer := ai.NewAnalyzer(
		ai.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey),
		triage.NewClassifier(tables),
		assembler,
		cfg.LLMTimeout,
		logger,
	)

	handler := api.NewHandler(api.Deps{
		Validator:   audio.NewValidator(debug),
		Transcriber: engine,
		Analyzer:    analyzer,
		Tables:      tables,
		UploadDir:   cfg.UploadDir,
		Logger:      logger,
	})
	r, err := api.NewRouter(handler, api.RouterOptions{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		TrustedProxies: cfg.TrustedProxies,
	})
	if err != nil {
		log.Fatalf("Failed to build router: %v", err)
	}

	log.Printf("STT: primary=%s fallback=%q, LLM model=%s", engine.PrimaryName(), engine.FallbackName(), cfg.LLMModel)
	log.Printf("Aarogya backend running on :%s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
