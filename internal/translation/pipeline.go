package translation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/ameena/internal/metrics"
	"github.com/yoockh/ameena/internal/providers/llm"
	"github.com/yoockh/ameena/internal/providers/tts"
	"github.com/yoockh/ameena/internal/sanitize"
	"github.com/yoockh/ameena/internal/utils"
)

type PipelineConfig struct {
	Prompt           string
	Options          llm.Options
	TranslateTimeout time.Duration
	SynthTimeout     time.Duration
}

// Pipeline carries one utterance through translation, collection and
// synthesis. Translate must not be called concurrently on the same Pipeline.
type Pipeline struct {
	llm       llm.Provider
	synth     tts.Synthesizer
	collector *ResponseCollector
	cfg       PipelineConfig
	m         *metrics.Metrics
	log       logrus.FieldLogger
}

// NewPipeline builds a pipeline. synth may be nil for text-only sessions.
func NewPipeline(p llm.Provider, synth tts.Synthesizer, clean *sanitize.Sanitizer, cfg PipelineConfig, m *metrics.Metrics, log logrus.FieldLogger) *Pipeline {
	if cfg.Prompt == "" {
		cfg.Prompt = TranslatorPrompt
	}
	if cfg.TranslateTimeout <= 0 {
		cfg.TranslateTimeout = 30 * time.Second
	}
	if cfg.SynthTimeout <= 0 {
		cfg.SynthTimeout = 30 * time.Second
	}
	if m == nil {
		m = metrics.New(prometheus.NewRegistry())
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Pipeline{
		llm:       p,
		synth:     synth,
		collector: NewResponseCollector(clean, log),
		cfg:       cfg,
		m:         m,
		log:       log,
	}
}

// Translate streams the translation of text and calls emit for every frame
// meant for the caller: pass-through chunks, the final translation, its
// audio and error frames.
func (p *Pipeline) Translate(ctx context.Context, text string, emit func(Frame)) {
	start := time.Now()
	tctx, cancel := context.WithTimeout(ctx, p.cfg.TranslateTimeout)
	defer cancel()

	chunks, errs := p.llm.StreamAnswer(tctx, Messages(p.cfg.Prompt, text), p.cfg.Options)

	spoke := false
	forward := func(f Frame) {
		for _, out := range p.collector.Process(f) {
			if out.Kind == KindSpeak {
				spoke = true
				emit(out)
				p.speak(ctx, out.Text, emit)
				continue
			}
			emit(out)
		}
	}

	forward(Frame{Kind: KindStreamStart})
	for c := range chunks {
		forward(Chunk(c))
	}
	if err := <-errs; err != nil {
		p.collector.Abort()
		if ctx.Err() != nil {
			return
		}
		code := errorCode(err)
		p.m.Translations.WithLabelValues(string(code)).Inc()
		p.log.WithError(err).WithField("code", code).Error("translation failed")
		emit(ErrorFrame(string(code), errors.New("translation failed")))
		return
	}
	forward(Frame{Kind: KindStreamEnd})

	p.m.TranslationDuration.Observe(time.Since(start).Seconds())
	if spoke {
		p.m.Translations.WithLabelValues("ok").Inc()
	} else {
		p.m.Translations.WithLabelValues("empty").Inc()
		p.m.EmptyResponses.Inc()
	}
}

func (p *Pipeline) speak(ctx context.Context, text string, emit func(Frame)) {
	if p.synth == nil {
		return
	}
	sctx, cancel := context.WithTimeout(ctx, p.cfg.SynthTimeout)
	defer cancel()

	audio, err := p.synth.Synthesize(sctx, text)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.m.SynthesisFailures.Inc()
		p.log.WithError(err).Error("speech synthesis failed")
		emit(ErrorFrame(string(utils.CodeUnavailable), fmt.Errorf("speech synthesis failed")))
		return
	}
	emit(Frame{Kind: KindAudioOut, Audio: audio.PCM, SampleRate: audio.SampleRate, Channels: audio.Channels})
}

func errorCode(err error) utils.Code {
	var se *llm.StatusError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return utils.CodeTimeout
	case errors.As(err, &se) && se.StatusCode == http.StatusTooManyRequests:
		return utils.CodeRateLimited
	case errors.As(err, &se):
		return utils.CodeUpstream
	case errors.Is(err, llm.ErrEmptyResponse):
		return utils.CodeInternal
	default:
		return utils.CodeUnavailable
	}
}
