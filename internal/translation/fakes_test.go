package translation

import (
	"context"
	"sync"

	"github.com/yoockh/ameena/internal/providers/llm"
	"github.com/yoockh/ameena/internal/providers/tts"
)

type fakeLLM struct {
	mu     sync.Mutex
	calls  [][]llm.Message
	opts   []llm.Options
	reply  func(user string) ([]string, error)
	closed bool
}

func (f *fakeLLM) Complete(ctx context.Context, msgs []llm.Message, opts llm.Options) (string, error) {
	return llm.Collect(f.StreamAnswer(ctx, msgs, opts))
}

func (f *fakeLLM) StreamAnswer(ctx context.Context, msgs []llm.Message, opts llm.Options) (<-chan string, <-chan error) {
	f.mu.Lock()
	f.calls = append(f.calls, msgs)
	f.opts = append(f.opts, opts)
	f.mu.Unlock()

	chunks, err := f.reply(msgs[len(msgs)-1].Content)
	out := make(chan string, len(chunks))
	errs := make(chan error, 1)
	for _, c := range chunks {
		out <- c
	}
	close(out)
	if err != nil {
		errs <- err
	}
	close(errs)
	return out, errs
}

func (f *fakeLLM) Close() error {
	f.closed = true
	return nil
}

func (f *fakeLLM) users() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		out = append(out, c[len(c)-1].Content)
	}
	return out
}

type fakeSynth struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (f *fakeSynth) Synthesize(ctx context.Context, text string) (tts.Audio, error) {
	f.mu.Lock()
	f.texts = append(f.texts, text)
	f.mu.Unlock()
	if f.err != nil {
		return tts.Audio{}, f.err
	}
	return tts.Audio{PCM: []byte(text), SampleRate: tts.SampleRate, Channels: tts.Channels}, nil
}

func (f *fakeSynth) Close() error { return nil }

type fakeSTT struct {
	text string
	err  error
}

func (f *fakeSTT) Transcribe(ctx context.Context, audio []byte, language string) (string, float64, error) {
	if f.err != nil {
		return "", 0, f.err
	}
	return f.text, 1, nil
}

func (f *fakeSTT) Close() error { return nil }

func echoReply(prefix string) func(string) ([]string, error) {
	return func(user string) ([]string, error) {
		return []string{prefix, user}, nil
	}
}
