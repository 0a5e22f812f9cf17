package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/ameena/config"
	"github.com/yoockh/ameena/internal/api/handlers"
	"github.com/yoockh/ameena/internal/api/middleware"
	"github.com/yoockh/ameena/internal/api/routes"
	"github.com/yoockh/ameena/internal/cache"
	"github.com/yoockh/ameena/internal/logger"
	"github.com/yoockh/ameena/internal/metrics"
	"github.com/yoockh/ameena/internal/providers/llm"
	"github.com/yoockh/ameena/internal/providers/rag"
	"github.com/yoockh/ameena/internal/server"
	"github.com/yoockh/ameena/internal/services"
)

func main() {
	_ = godotenv.Load()
	log := logger.New()

	cfg, err := config.LoadTax()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	ctx := context.Background()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	searcher, err := newSearcher(cfg)
	if err != nil {
		log.WithError(err).Fatal("rag init error")
	}
	defer searcher.Close()

	provider := llm.NewOpenAICompatible(cfg.LLMServiceURL, cfg.LLMAPIKey, cfg.LLMModel, &http.Client{})
	defer provider.Close()

	var c cache.Cache
	if addr := config.RedisAddr(); addr != "" {
		rdb, err := config.NewRedis(ctx, addr)
		switch {
		case rdb == nil:
			log.WithError(err).Warn("redis config invalid, caching disabled")
		case err != nil:
			log.WithError(err).Warn("redis not reachable yet, cache will retry")
			c = cache.NewRedisCache(rdb, "tax:search:")
		default:
			log.Info("redis connected")
			c = cache.NewRedisCache(rdb, "tax:search:")
		}
		if rdb != nil {
			defer rdb.Close()
		}
	}

	tax := services.NewTaxService(ctx, services.TaxDeps{
		RAG:     searcher,
		LLM:     provider,
		Cache:   c,
		Metrics: m,
		Log:     log,
	}, services.TaxOptions{
		Model:         cfg.LLMModel,
		LLMServiceURL: cfg.LLMServiceURL,
		RAGTimeout:    cfg.RAGTimeout,
		LLMTimeout:    cfg.LLMTimeout,
		CacheTTL:      cfg.CacheTTL,
	})

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log, m))
	routes.RegisterTaxRoutes(r, routes.TaxDeps{
		Tax:     handlers.NewTaxHandler(tax),
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})

	corsMW := cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins(),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
	})
	handler := corsMW(httprate.LimitByIP(cfg.RateLimit, time.Minute)(r))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.WithFields(logrus.Fields{
		"rag_backend": searcher.Backend(),
		"llm_service": truncate(cfg.LLMServiceURL, 50),
	}).Info("tax assistant starting")

	if err := server.Run(ctx, srv, nil, log); err != nil {
		log.WithError(err).Error("server stopped")
		os.Exit(1)
	}
}

func newSearcher(cfg config.Tax) (rag.Searcher, error) {
	if cfg.RAGBackend == "pgvector" {
		db, err := config.OpenPostgres(cfg.PostgresURI)
		if err != nil {
			return nil, err
		}
		emb := llm.NewOpenAIEmbedder(cfg.EmbeddingURL, cfg.LLMAPIKey, cfg.EmbeddingModel, &http.Client{Timeout: 30 * time.Second})
		return rag.NewPGVectorSearcher(db, emb, cfg.RAGTable)
	}
	return rag.NewHTTPSearcher(cfg.RAGServiceURL, &http.Client{}), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
