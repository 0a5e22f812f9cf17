package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yoockh/ameena/internal/providers/llm"
	"github.com/yoockh/ameena/internal/sanitize"
	"github.com/yoockh/ameena/internal/translation"
	"github.com/yoockh/ameena/internal/utils"
)

// TranslateService is the one-shot text translation used by POST /api/translate.
type TranslateService interface {
	Translate(ctx context.Context, text string) (string, error)
}

type translateService struct {
	llm     llm.Provider
	clean   *sanitize.Sanitizer
	prompt  string
	opts    llm.Options
	timeout time.Duration
	log     logrus.FieldLogger
}

func NewTranslateService(p llm.Provider, clean *sanitize.Sanitizer, prompt string, opts llm.Options, timeout time.Duration, log logrus.FieldLogger) TranslateService {
	if clean == nil {
		clean = sanitize.Default()
	}
	if prompt == "" {
		prompt = translation.TranslatorPrompt
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &translateService{llm: p, clean: clean, prompt: prompt, opts: opts, timeout: timeout, log: log}
}

func (s *translateService) Translate(ctx context.Context, text string) (string, error) {
	const op = "TranslateService.Translate"

	text = strings.TrimSpace(text)
	if text == "" {
		return "", utils.E(utils.CodeInvalidArgument, op, "text is required", nil)
	}

	tctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out, err := s.llm.Complete(tctx, translation.Messages(s.prompt, text), s.opts)
	if err != nil {
		var se *llm.StatusError
		switch {
		case errors.Is(err, context.DeadlineExceeded) || (tctx.Err() != nil && ctx.Err() == nil):
			return "", utils.E(utils.CodeTimeout, op, "translation timed out", err)
		case errors.As(err, &se) && se.StatusCode == http.StatusTooManyRequests:
			return "", utils.E(utils.CodeRateLimited, op, "translation service busy", err)
		case errors.As(err, &se):
			return "", utils.E(utils.CodeUpstream, op, "translation service error", err)
		case errors.Is(err, llm.ErrEmptyResponse):
			return "", utils.EH(utils.CodeInternal, op, "Internal server error",
				"Invalid response format from LLM", err)
		default:
			return "", utils.E(utils.CodeUnavailable, op, "translation service unavailable", err)
		}
	}

	clean := s.clean.Clean(out)
	if clean == "" {
		s.log.WithField("raw_chars", len(out)).Warn("translation empty after sanitize")
		return "", utils.E(utils.CodeUpstream, op, "empty translation", llm.ErrEmptyResponse)
	}
	return clean, nil
}
