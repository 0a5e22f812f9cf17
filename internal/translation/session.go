package translation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/ameena/internal/metrics"
	"github.com/yoockh/ameena/internal/providers/stt"
	"github.com/yoockh/ameena/internal/utils"
)

type SessionConfig struct {
	QuietInterval time.Duration
	// Language is passed to speech-to-text; empty means auto-detect.
	Language   string
	STTTimeout time.Duration
	// AudioQueue bounds pending audio chunks awaiting transcription.
	AudioQueue int
	// JobQueue bounds flushed utterances awaiting translation.
	JobQueue int
	Clock    Clock
}

type SessionDeps struct {
	Pipeline *Pipeline
	STT      stt.Provider // optional; audio frames are rejected without it
	Metrics  *metrics.Metrics
	Log      logrus.FieldLogger
}

var ErrSessionClosed = errors.New("session closed")

// Session owns one caller's segment buffer, debounce timer and pipeline.
//
// Three goroutines run per session: the event loop (fragments, timer
// firings, flush requests), the transcription worker and the translation
// worker. Only the loop touches the accumulator and only the translation
// worker touches the pipeline.
type Session struct {
	ID string

	cfg      SessionConfig
	acc      *SpeechAccumulator
	pipeline *Pipeline
	stt      stt.Provider
	m        *metrics.Metrics
	log      logrus.FieldLogger

	in       chan Frame
	fired    chan uint64
	flushReq chan struct{}
	audio    chan []byte
	jobs     chan string
	out      chan Frame

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
	done      chan struct{}
}

// NewSession starts a session bound to ctx. Call Close to tear it down.
func NewSession(ctx context.Context, id string, deps SessionDeps, cfg SessionConfig) *Session {
	if cfg.QuietInterval <= 0 {
		cfg.QuietInterval = DefaultQuietInterval
	}
	if cfg.STTTimeout <= 0 {
		cfg.STTTimeout = 30 * time.Second
	}
	if cfg.AudioQueue <= 0 {
		cfg.AudioQueue = 16
	}
	if cfg.JobQueue <= 0 {
		cfg.JobQueue = 32
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New(prometheus.NewRegistry())
	}
	log := deps.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	sctx, cancel := context.WithCancel(ctx)
	s := &Session{
		ID:       id,
		cfg:      cfg,
		pipeline: deps.Pipeline,
		stt:      deps.STT,
		m:        deps.Metrics,
		log:      log.WithField("session_id", id),
		in:       make(chan Frame),
		fired:    make(chan uint64),
		flushReq: make(chan struct{}, 1),
		audio:    make(chan []byte, cfg.AudioQueue),
		jobs:     make(chan string, cfg.JobQueue),
		out:      make(chan Frame, 64),
		ctx:      sctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	s.acc = NewSpeechAccumulator(cfg.QuietInterval, cfg.Clock, s.onTimer)

	s.wg.Add(3)
	go s.loop()
	go s.translateWorker()
	go s.transcribeWorker()
	return s
}

// Push hands an inbound frame to the session loop.
func (s *Session) Push(f Frame) error {
	select {
	case s.in <- f:
		return nil
	case <-s.ctx.Done():
		return ErrSessionClosed
	}
}

// Flush asks the loop to flush immediately instead of waiting for silence.
func (s *Session) Flush() {
	select {
	case s.flushReq <- struct{}{}:
	default:
	}
}

// Out yields frames for the caller. It is closed after Close returns.
func (s *Session) Out() <-chan Frame { return s.out }

// Done is closed once the session has fully stopped.
func (s *Session) Done() <-chan struct{} { return s.done }

// Close cancels the pending timer, stops all workers and closes Out.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		s.wg.Wait()
		close(s.out)
		close(s.done)
		s.log.Info("session closed")
	})
}

// onTimer runs on the timer goroutine. It only forwards the generation.
func (s *Session) onTimer(gen uint64) {
	select {
	case s.fired <- gen:
	case <-s.ctx.Done():
	}
}

func (s *Session) loop() {
	defer s.wg.Done()
	defer s.acc.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return

		case f := <-s.in:
			s.dispatch(f)

		case gen := <-s.fired:
			if text, ok := s.acc.Fire(gen); ok {
				s.enqueue(text)
			}

		case <-s.flushReq:
			if text, ok := s.acc.Flush(); ok {
				s.enqueue(text)
			}
		}
	}
}

func (s *Session) dispatch(f Frame) {
	switch f.Kind {
	case KindFragment:
		pending := s.acc.Pending()
		if !s.acc.Add(f.Text) {
			return
		}
		s.m.Fragments.Inc()
		if pending > 0 {
			s.m.SupersededTimers.Inc()
		}
		s.log.WithField("pending", s.acc.Pending()).Debug("fragment buffered")

	case KindAudioIn:
		if s.stt == nil {
			s.emit(ErrorFrame(string(utils.CodeInvalidArgument), errors.New("audio input not enabled")))
			return
		}
		select {
		case s.audio <- f.Audio:
		default:
			s.log.Warn("transcription queue full, dropping audio chunk")
			s.emit(ErrorFrame(string(utils.CodeUnavailable), errors.New("transcription busy, audio dropped")))
		}

	default:
		s.log.WithField("kind", f.Kind.String()).Debug("ignoring frame")
	}
}

func (s *Session) enqueue(text string) {
	s.m.Flushes.Inc()
	s.log.WithField("chars", len(text)).Info("utterance flushed")
	s.emit(Frame{Kind: KindUtterance, Text: text})

	select {
	case s.jobs <- text:
	case <-s.ctx.Done():
	}
}

func (s *Session) translateWorker() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case text := <-s.jobs:
			s.pipeline.Translate(s.ctx, text, s.emit)
		}
	}
}

func (s *Session) transcribeWorker() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case audio := <-s.audio:
			ctx, cancel := context.WithTimeout(s.ctx, s.cfg.STTTimeout)
			text, _, err := s.stt.Transcribe(ctx, audio, s.cfg.Language)
			cancel()
			if err != nil {
				if s.ctx.Err() != nil {
					return
				}
				s.m.TranscriptionErrors.Inc()
				s.log.WithError(err).Error("transcription failed")
				s.emit(ErrorFrame(string(utils.CodeUnavailable), errors.New("transcription failed")))
				continue
			}
			text = strings.TrimSpace(text)
			if text == "" {
				continue
			}
			s.emit(Fragment(text))
			if err := s.Push(Fragment(text)); err != nil {
				return
			}
		}
	}
}

func (s *Session) emit(f Frame) {
	select {
	case s.out <- f:
	case <-s.ctx.Done():
	}
}
