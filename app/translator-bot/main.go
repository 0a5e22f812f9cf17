package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/ameena/config"
	"github.com/yoockh/ameena/internal/api/handlers"
	"github.com/yoockh/ameena/internal/api/middleware"
	"github.com/yoockh/ameena/internal/api/routes"
	"github.com/yoockh/ameena/internal/logger"
	"github.com/yoockh/ameena/internal/metrics"
	"github.com/yoockh/ameena/internal/providers/llm"
	"github.com/yoockh/ameena/internal/providers/stt"
	"github.com/yoockh/ameena/internal/providers/tts"
	"github.com/yoockh/ameena/internal/sanitize"
	"github.com/yoockh/ameena/internal/server"
	"github.com/yoockh/ameena/internal/services"
	"github.com/yoockh/ameena/internal/translation"
)

func main() {
	_ = godotenv.Load()
	log := logger.New()

	cfg, err := config.LoadBot()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	ctx := context.Background()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	provider, model, err := newLLM(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("llm init error")
	}
	defer provider.Close()

	var synth tts.Synthesizer
	if cfg.TTSServiceURL != "" {
		s := tts.NewHTTPSynthesizer(cfg.TTSServiceURL, cfg.TTSAuthToken, &http.Client{})
		s.Voice = cfg.TTSVoice
		synth = s
	} else {
		log.Warn("TTS_SERVICE_URL not set, sessions are text only")
	}

	recognizer, err := newSTT(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("stt init error")
	}
	if recognizer != nil {
		defer recognizer.Close()
	}

	clean, err := sanitize.Load(cfg.SanitizeRules)
	if err != nil {
		log.WithError(err).Fatal("sanitizer rules error")
	}
	clean.SetLogger(log)
	prompt, err := translation.LoadPrompt(cfg.PromptFile)
	if err != nil {
		log.WithError(err).Fatal("translator prompt error")
	}
	opts := translation.DefaultOptions(model)

	registry := translation.NewRegistry(m)
	newSession := func(ctx context.Context, id string) *translation.Session {
		p := translation.NewPipeline(provider, synth, clean, translation.PipelineConfig{
			Prompt:           prompt,
			Options:          opts,
			TranslateTimeout: cfg.TranslateTimeout,
		}, m, log)
		return translation.NewSession(ctx, id, translation.SessionDeps{
			Pipeline: p,
			STT:      recognizer,
			Metrics:  m,
			Log:      log,
		}, translation.SessionConfig{
			QuietInterval: cfg.QuietInterval,
			Language:      cfg.STTLanguage,
		})
	}

	ws := handlers.NewWSHandler(registry, newSession, model, cfg.QuietInterval, log)
	translate := handlers.NewTranslateHandler(
		services.NewTranslateService(provider, clean, prompt, opts, cfg.TranslateTimeout, log),
	)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log, m))
	routes.RegisterBotRoutes(r, routes.BotDeps{
		WS:        ws,
		Translate: translate,
		Metrics:   promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.WithFields(logrus.Fields{
		"llm_provider":      cfg.LLMProvider,
		"llm_model":         model,
		"stt_provider":      cfg.STTProvider,
		"tts_enabled":       synth != nil,
		"quiet_interval_ms": cfg.QuietInterval.Milliseconds(),
	}).Info("translator bot starting")

	if err := server.Run(ctx, srv, nil, log, registry.CloseAll); err != nil {
		log.WithError(err).Error("server stopped")
		os.Exit(1)
	}
}

func newLLM(ctx context.Context, cfg config.Bot) (llm.Provider, string, error) {
	if cfg.LLMProvider == "vertex" {
		p, err := llm.NewVertexGemini(ctx, cfg.VertexProject, cfg.VertexLocation, cfg.VertexModel)
		if err != nil {
			return nil, "", err
		}
		return p, cfg.VertexModel, nil
	}
	return llm.NewOpenAICompatible(cfg.LLMServiceURL, cfg.LLMAPIKey, cfg.LLMModel, &http.Client{}), cfg.LLMModel, nil
}

func newSTT(ctx context.Context, cfg config.Bot) (stt.Provider, error) {
	switch cfg.STTProvider {
	case "whisper":
		return stt.NewWhisperHTTP(cfg.WhisperURL, &http.Client{Timeout: 60 * time.Second}), nil
	case "google":
		g, err := stt.NewGoogleSpeech(ctx, cfg.STTLanguage, cfg.STTAlternates)
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, nil
	}
}
