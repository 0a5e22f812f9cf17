package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ameena"

// Metrics contains the Prometheus collectors shared by both servers.
type Metrics struct {
	// Speech accumulation
	Fragments        prometheus.Counter
	Flushes          prometheus.Counter
	SupersededTimers prometheus.Counter
	ActiveSessions   prometheus.Gauge

	// Translation and synthesis
	Translations        *prometheus.CounterVec
	TranslationDuration prometheus.Histogram
	EmptyResponses      prometheus.Counter
	SynthesisFailures   prometheus.Counter
	TranscriptionErrors prometheus.Counter

	// Tax assistant
	TaxSearches *prometheus.CounterVec
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
	RAGDuration prometheus.Histogram
	LLMDuration prometheus.Histogram

	// HTTP API
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New registers every collector on reg. Pass prometheus.DefaultRegisterer in
// binaries and a fresh prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Fragments: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fragments_total",
			Help:      "Transcribed fragments accepted into a segment buffer",
		}),
		Flushes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flushes_total",
			Help:      "Segment buffer flushes that produced an utterance",
		}),
		SupersededTimers: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "superseded_timers_total",
			Help:      "Debounce timers invalidated by a newer fragment",
		}),
		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Translation sessions currently registered",
		}),
		Translations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "translations_total",
			Help:      "Translation requests by outcome",
		}, []string{"outcome"}),
		TranslationDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "translation_duration_seconds",
			Help:      "Time from flush to completed translation stream",
			Buckets:   prometheus.DefBuckets,
		}),
		EmptyResponses: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "empty_responses_total",
			Help:      "Completed LLM streams that produced no text",
		}),
		SynthesisFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "synthesis_failures_total",
			Help:      "Speech synthesis requests that failed",
		}),
		TranscriptionErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcription_errors_total",
			Help:      "Speech-to-text requests that failed",
		}),
		TaxSearches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tax_searches_total",
			Help:      "Tax search requests by outcome code",
		}, []string{"outcome"}),
		CacheHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Tax search answers served from cache",
		}),
		CacheMisses: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Tax search cache lookups that missed",
		}),
		RAGDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rag_search_duration_seconds",
			Help:      "Vector search latency",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 11),
		}),
		LLMDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_completion_duration_seconds",
			Help:      "LLM completion latency",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
}
