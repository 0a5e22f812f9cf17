package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Bot configures the translator bot (app/translator-bot).
type Bot struct {
	Port string

	LLMProvider    string // "openai" (OpenAI-compatible server) or "vertex"
	LLMServiceURL  string
	LLMAPIKey      string
	LLMModel       string
	VertexProject  string
	VertexLocation string
	VertexModel    string

	QuietInterval    time.Duration
	TranslateTimeout time.Duration
	PromptFile       string
	SanitizeRules    string

	STTProvider   string // "", "whisper" or "google"
	STTLanguage   string // empty means auto-detect
	STTAlternates []string
	WhisperURL    string

	TTSServiceURL string
	TTSAuthToken  string
	TTSVoice      string
}

// Tax configures the tax assistant API (app/tax-server).
type Tax struct {
	Port        string
	FrontendURL string

	LLMServiceURL string
	LLMAPIKey     string
	LLMModel      string
	LLMTimeout    time.Duration

	RAGBackend     string // "http" or "pgvector"
	RAGServiceURL  string
	RAGTimeout     time.Duration
	PostgresURI    string
	RAGTable       string
	EmbeddingURL   string
	EmbeddingModel string

	CacheTTL  time.Duration
	RateLimit int
}

func LoadBot() (Bot, error) {
	var p parser
	c := Bot{
		Port:             env("PORT", "8080"),
		LLMProvider:      strings.ToLower(env("LLM_PROVIDER", "openai")),
		LLMServiceURL:    strings.TrimSpace(os.Getenv("LLM_SERVICE_URL")),
		LLMAPIKey:        os.Getenv("LLM_API_KEY"),
		LLMModel:         env("SERVED_MODEL_NAME", "ameena_qwen3-8b"),
		VertexProject:    os.Getenv("GOOGLE_CLOUD_PROJECT"),
		VertexLocation:   env("VERTEX_LOCATION", "us-central1"),
		VertexModel:      env("VERTEX_MODEL", "gemini-2.0-flash"),
		QuietInterval:    p.duration("TRANSLATOR_QUIET_INTERVAL", 1500*time.Millisecond),
		TranslateTimeout: p.duration("TRANSLATE_TIMEOUT", 30*time.Second),
		PromptFile:       os.Getenv("TRANSLATOR_PROMPT_FILE"),
		SanitizeRules:    os.Getenv("SANITIZE_RULES_FILE"),
		STTProvider:      strings.ToLower(os.Getenv("STT_PROVIDER")),
		STTLanguage:      os.Getenv("STT_LANGUAGE"),
		STTAlternates:    list(os.Getenv("STT_ALTERNATIVE_LANGUAGES")),
		WhisperURL:       os.Getenv("WHISPER_URL"),
		TTSServiceURL:    os.Getenv("TTS_SERVICE_URL"),
		TTSAuthToken:     os.Getenv("TTS_AUTH_TOKEN"),
		TTSVoice:         os.Getenv("TTS_VOICE"),
	}
	if p.err != nil {
		return c, p.err
	}
	return c, c.Validate()
}

func (c Bot) Validate() error {
	var errs []error
	switch c.LLMProvider {
	case "openai":
		if c.LLMServiceURL == "" {
			errs = append(errs, errors.New("LLM_SERVICE_URL is not set"))
		}
	case "vertex":
		if c.VertexProject == "" {
			errs = append(errs, errors.New("GOOGLE_CLOUD_PROJECT is not set"))
		}
	default:
		errs = append(errs, fmt.Errorf("LLM_PROVIDER %q is not supported", c.LLMProvider))
	}
	switch c.STTProvider {
	case "", "google":
	case "whisper":
		if c.WhisperURL == "" {
			errs = append(errs, errors.New("WHISPER_URL is not set"))
		}
	default:
		errs = append(errs, fmt.Errorf("STT_PROVIDER %q is not supported", c.STTProvider))
	}
	if c.QuietInterval <= 0 {
		errs = append(errs, errors.New("TRANSLATOR_QUIET_INTERVAL must be positive"))
	}
	return errors.Join(errs...)
}

func LoadTax() (Tax, error) {
	var p parser
	c := Tax{
		Port:           env("PORT", "8000"),
		FrontendURL:    strings.TrimSpace(os.Getenv("FRONTEND_URL")),
		LLMServiceURL:  strings.TrimSpace(os.Getenv("LLM_SERVICE_URL")),
		LLMAPIKey:      os.Getenv("LLM_API_KEY"),
		LLMModel:       env("SERVED_MODEL_NAME", "ameena"),
		LLMTimeout:     p.duration("LLM_TIMEOUT", 60*time.Second),
		RAGBackend:     strings.ToLower(env("RAG_BACKEND", "http")),
		RAGServiceURL:  strings.TrimSpace(os.Getenv("RAG_SERVICE_URL")),
		RAGTimeout:     p.duration("RAG_TIMEOUT", 45*time.Second),
		PostgresURI:    os.Getenv("POSTGRES_URI"),
		RAGTable:       env("RAG_TABLE", "tax_articles"),
		EmbeddingURL:   os.Getenv("EMBEDDING_SERVICE_URL"),
		EmbeddingModel: env("EMBEDDING_MODEL", "text-embedding-3-small"),
		CacheTTL:       p.duration("TAX_CACHE_TTL", 10*time.Minute),
		RateLimit:      p.number("TAX_RATE_LIMIT", 60),
	}
	if c.EmbeddingURL == "" {
		c.EmbeddingURL = c.LLMServiceURL
	}
	if p.err != nil {
		return c, p.err
	}
	return c, c.Validate()
}

func (c Tax) Validate() error {
	var errs []error
	if c.LLMServiceURL == "" {
		errs = append(errs, errors.New("LLM_SERVICE_URL is not set"))
	}
	switch c.RAGBackend {
	case "http":
		if c.RAGServiceURL == "" {
			errs = append(errs, errors.New("RAG_SERVICE_URL is not set"))
		}
	case "pgvector":
		if c.PostgresURI == "" {
			errs = append(errs, errors.New("POSTGRES_URI is not set"))
		}
	default:
		errs = append(errs, fmt.Errorf("RAG_BACKEND %q is not supported", c.RAGBackend))
	}
	if c.RateLimit <= 0 {
		errs = append(errs, errors.New("TAX_RATE_LIMIT must be positive"))
	}
	return errors.Join(errs...)
}

// AllowedOrigins is FRONTEND_URL, when set, followed by the local dev servers.
func (c Tax) AllowedOrigins() []string {
	out := make([]string, 0, 3)
	for _, o := range []string{c.FrontendURL, "http://localhost:5173", "http://localhost:3000"} {
		if o != "" && !slices.Contains(out, o) {
			out = append(out, o)
		}
	}
	return out
}

func env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func list(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// parser keeps the first malformed value so Load* can report it.
type parser struct{ err error }

func (p *parser) fail(key, v string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("%s=%q: %w", key, v, err)
	}
}

func (p *parser) number(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return n
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return d
}
