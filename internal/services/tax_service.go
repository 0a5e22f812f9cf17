package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/ameena/internal/cache"
	"github.com/yoockh/ameena/internal/metrics"
	"github.com/yoockh/ameena/internal/models"
	"github.com/yoockh/ameena/internal/providers/llm"
	"github.com/yoockh/ameena/internal/providers/rag"
	"github.com/yoockh/ameena/internal/utils"
)

const (
	DefaultSearchLimit = 5
	MaxSearchLimit     = 10
	MinQueryLen        = 3
	MaxQueryLen        = 500

	maxContextLen  = 2000
	maxSources     = 3
	maxSourceChars = 200
	maxURLChars    = 50
)

type TaxService interface {
	Search(ctx context.Context, query string, limit int) (*models.TaxSearchResponse, error)
	Health(ctx context.Context) models.TaxHealth
}

type TaxOptions struct {
	Model         string
	LLMServiceURL string
	RAGTimeout    time.Duration
	LLMTimeout    time.Duration
	PingTimeout   time.Duration
	CacheTTL      time.Duration
}

type TaxDeps struct {
	RAG     rag.Searcher
	LLM     llm.Provider
	Cache   cache.Cache // optional
	Metrics *metrics.Metrics
	Log     logrus.FieldLogger
}

type taxService struct {
	rag   rag.Searcher
	llm   llm.Provider
	cache cache.Cache
	opts  TaxOptions
	m     *metrics.Metrics
	log   logrus.FieldLogger

	connected atomic.Bool
	now       func() time.Time
}

// NewTaxService probes the search backend once. A failed probe leaves the
// service degraded; Search re-probes before giving up.
func NewTaxService(ctx context.Context, d TaxDeps, opts TaxOptions) TaxService {
	if opts.RAGTimeout <= 0 {
		opts.RAGTimeout = 45 * time.Second
	}
	if opts.LLMTimeout <= 0 {
		opts.LLMTimeout = 60 * time.Second
	}
	if opts.PingTimeout <= 0 {
		opts.PingTimeout = 5 * time.Second
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 10 * time.Minute
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New(prometheus.NewRegistry())
	}
	if d.Log == nil {
		d.Log = logrus.StandardLogger()
	}

	s := &taxService{
		rag:   d.RAG,
		llm:   d.LLM,
		cache: d.Cache,
		opts:  opts,
		m:     d.Metrics,
		log:   d.Log,
		now:   time.Now,
	}
	if s.probe(ctx) {
		s.log.WithField("backend", s.rag.Backend()).Info("rag connected")
	} else {
		s.log.WithField("backend", s.rag.Backend()).Warn("rag not reachable, starting degraded")
	}
	return s
}

func (s *taxService) Search(ctx context.Context, query string, limit int) (*models.TaxSearchResponse, error) {
	const op = "TaxService.Search"
	start := s.now()

	query, err := validateQuery(query)
	if err != nil {
		return nil, s.fail(utils.E(utils.CodeInvalidArgument, op, err.Error(), nil))
	}
	if limit == 0 {
		limit = DefaultSearchLimit
	}
	if limit < 1 || limit > MaxSearchLimit {
		return nil, s.fail(utils.E(utils.CodeInvalidArgument, op, "limit must be between 1 and 10", nil))
	}

	key := cacheKey(query, limit)
	if cached, ok := s.cached(ctx, key); ok {
		cached.ProcessingTimeMS = s.now().Sub(start).Milliseconds()
		s.m.TaxSearches.WithLabelValues("cached").Inc()
		return cached, nil
	}

	if !s.connected.Load() && !s.probe(ctx) {
		return nil, s.fail(utils.EH(utils.CodeUnavailable, op, "RAG system not available",
			"Vector search backend is unreachable. Check RAG_SERVICE_URL or POSTGRES_URI.", nil))
	}

	docs, err := s.search(ctx, query, limit)
	if err != nil {
		return nil, s.fail(s.searchError(op, err))
	}
	if len(docs) == 0 {
		return nil, s.fail(utils.EH(utils.CodeNotFound, op, "No relevant documents found",
			"Try rephrasing your question", nil))
	}
	s.log.WithFields(logrus.Fields{"query": query, "found": len(docs)}).Info("rag search done")

	docContext := buildContext(docs)
	if docContext == "" {
		return nil, s.fail(utils.EH(utils.CodeInternal, op, "Failed to build context",
			"RAG service returned unexpected format", nil))
	}

	answer, err := s.answer(ctx, query, docContext)
	if err != nil {
		return nil, s.fail(llmError(op, err))
	}

	resp := &models.TaxSearchResponse{
		Query:            query,
		Answer:           answer,
		Sources:          toSources(docs),
		ProcessingTimeMS: s.now().Sub(start).Milliseconds(),
	}
	s.store(ctx, key, resp)
	s.m.TaxSearches.WithLabelValues("ok").Inc()
	return resp, nil
}

func (s *taxService) Health(ctx context.Context) models.TaxHealth {
	h := models.TaxHealth{
		Status:               "degraded",
		RAGConnected:         s.connected.Load(),
		RAGBackend:           s.rag.Backend(),
		LLMServiceConfigured: s.opts.LLMServiceURL != "",
		LLMServiceURL:        truncateURL(s.opts.LLMServiceURL),
	}
	if h.RAGConnected {
		h.Status = "ok"
	}
	if s.cache != nil {
		pctx, cancel := context.WithTimeout(ctx, s.opts.PingTimeout)
		h.CacheConnected = s.cache.Ping(pctx) == nil
		cancel()
	}
	return h
}

func (s *taxService) probe(ctx context.Context) bool {
	pctx, cancel := context.WithTimeout(ctx, s.opts.PingTimeout)
	defer cancel()
	if err := s.rag.Ping(pctx); err != nil {
		s.log.WithError(err).Warn("rag probe failed")
		s.connected.Store(false)
		return false
	}
	s.connected.Store(true)
	return true
}

func (s *taxService) search(ctx context.Context, query string, limit int) ([]rag.Document, error) {
	rctx, cancel := context.WithTimeout(ctx, s.opts.RAGTimeout)
	defer cancel()

	start := time.Now()
	docs, err := s.rag.Search(rctx, query, limit)
	s.m.RAGDuration.Observe(time.Since(start).Seconds())
	if err != nil && rctx.Err() != nil && ctx.Err() == nil {
		return nil, fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
	}
	return docs, err
}

func (s *taxService) searchError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return utils.EH(utils.CodeTimeout, op, "Search timeout",
			"The search service may be cold starting. Please try again in 10-15 seconds.", err)
	}
	if errors.Is(err, rag.ErrMalformedResponse) {
		return utils.EH(utils.CodeInternal, op, "Internal server error",
			"RAG service returned unexpected format", err)
	}
	if !errors.Is(err, context.Canceled) {
		s.connected.Store(false)
	}
	return utils.EH(utils.CodeUnavailable, op, "RAG system not available",
		"Vector search failed. Check the search backend logs.", err)
}

func (s *taxService) answer(ctx context.Context, query, docContext string) (string, error) {
	lctx, cancel := context.WithTimeout(ctx, s.opts.LLMTimeout)
	defer cancel()

	start := time.Now()
	out, err := s.llm.Complete(lctx, []llm.Message{
		{Role: llm.RoleSystem, Content: taxSystemPrompt},
		{Role: llm.RoleUser, Content: taxUserPrompt(query, docContext)},
	}, llm.Options{
		Model:       s.opts.Model,
		Temperature: 0.3,
		MaxTokens:   1000,
		TopP:        0.9,
	})
	s.m.LLMDuration.Observe(time.Since(start).Seconds())
	if err != nil && lctx.Err() != nil && ctx.Err() == nil {
		return "", fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
	}
	if err == nil && strings.TrimSpace(out) == "" {
		err = llm.ErrEmptyResponse
	}
	return out, err
}

func llmError(op string, err error) error {
	var se *llm.StatusError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return utils.EH(utils.CodeTimeout, op, "LLM timeout",
			"The LLM service may be cold starting. Wait 10s and retry.", err)
	case errors.As(err, &se) && se.StatusCode == http.StatusTooManyRequests:
		return utils.EH(utils.CodeRateLimited, op, "LLM service error",
			"Upstream status 429. The LLM service is rate limiting, retry later.", err)
	case errors.As(err, &se):
		return utils.EH(utils.CodeUpstream, op, "LLM service error",
			"Upstream status "+strconv.Itoa(se.StatusCode)+". Check LLM_SERVICE_URL in .env", err)
	case errors.Is(err, llm.ErrEmptyResponse):
		return utils.EH(utils.CodeInternal, op, "Internal server error",
			"Invalid response format from LLM", err)
	default:
		return utils.EH(utils.CodeTimeout, op, "Failed to connect to LLM service",
			"Check network connectivity and LLM_SERVICE_URL", err)
	}
}

func (s *taxService) cached(ctx context.Context, key string) (*models.TaxSearchResponse, bool) {
	if s.cache == nil {
		return nil, false
	}
	var out models.TaxSearchResponse
	hit, err := s.cache.GetJSON(ctx, key, &out)
	if err != nil {
		s.log.WithError(err).Warn("tax cache read failed")
		return nil, false
	}
	if !hit {
		s.m.CacheMisses.Inc()
		return nil, false
	}
	s.m.CacheHits.Inc()
	return &out, true
}

func (s *taxService) store(ctx context.Context, key string, resp *models.TaxSearchResponse) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetJSON(ctx, key, resp, s.opts.CacheTTL); err != nil {
		s.log.WithError(err).Warn("tax cache write failed")
	}
}

func (s *taxService) fail(err error) error {
	s.m.TaxSearches.WithLabelValues(string(utils.CodeOf(err))).Inc()
	return err
}

func validateQuery(q string) (string, error) {
	n := utf8.RuneCountInString(q)
	if n < MinQueryLen || n > MaxQueryLen {
		return "", fmt.Errorf("query must be between %d and %d characters", MinQueryLen, MaxQueryLen)
	}
	q = strings.TrimSpace(q)
	if q == "" {
		return "", errors.New("query cannot be empty")
	}
	return q, nil
}

func cacheKey(query string, limit int) string {
	sum := sha256.Sum256([]byte(strconv.Itoa(limit) + "|" + query))
	return hex.EncodeToString(sum[:])
}

// buildContext takes documents in rank order while the summed part length
// stays within maxContextLen.
func buildContext(docs []rag.Document) string {
	var parts []string
	total := 0
	for _, d := range docs {
		part := fmt.Sprintf("[Article: %s, Type: %s]\n%s", orDefault(d.Article, "N/A"), orDefault(d.Type, "unknown"), d.Content)
		n := utf8.RuneCountInString(part)
		if total+n > maxContextLen {
			break
		}
		parts = append(parts, part)
		total += n
	}
	return strings.Join(parts, "\n\n")
}

func toSources(docs []rag.Document) []models.TaxSource {
	if len(docs) > maxSources {
		docs = docs[:maxSources]
	}
	out := make([]models.TaxSource, 0, len(docs))
	for _, d := range docs {
		out = append(out, models.TaxSource{
			Article: orDefault(d.Article, "N/A"),
			Type:    orDefault(d.Type, "unknown"),
			Content: truncate(d.Content, maxSourceChars),
			Score:   math.Round(d.Score*1e4) / 1e4,
		})
	}
	return out
}

func truncateURL(u string) string { return truncate(u, maxURLChars) }

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
