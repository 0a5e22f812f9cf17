package services

import (
	"context"
	"sync"

	"github.com/yoockh/ameena/internal/providers/llm"
	"github.com/yoockh/ameena/internal/providers/rag"
)

type fakeSearcher struct {
	mu       sync.Mutex
	docs     []rag.Document
	err      error
	pingErr  error
	block    bool
	searches int
	pings    int
	limit    int
}

func (f *fakeSearcher) Search(ctx context.Context, query string, limit int) ([]rag.Document, error) {
	f.mu.Lock()
	f.searches++
	f.limit = limit
	block, docs, err := f.block, f.docs, f.err
	f.mu.Unlock()
	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return docs, err
}

func (f *fakeSearcher) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pings++
	return f.pingErr
}

func (f *fakeSearcher) Backend() string { return "fake" }
func (f *fakeSearcher) Close() error    { return nil }

type fakeLLM struct {
	mu    sync.Mutex
	reply string
	err   error
	block bool
	msgs  []llm.Message
	opts  llm.Options
	calls int
}

func (f *fakeLLM) Complete(ctx context.Context, msgs []llm.Message, opts llm.Options) (string, error) {
	f.mu.Lock()
	f.calls++
	f.msgs, f.opts = msgs, opts
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.reply, f.err
}

func (f *fakeLLM) StreamAnswer(ctx context.Context, msgs []llm.Message, opts llm.Options) (<-chan string, <-chan error) {
	chunks := make(chan string, 1)
	errs := make(chan error, 1)
	out, err := f.Complete(ctx, msgs, opts)
	if err != nil {
		errs <- err
	} else {
		chunks <- out
	}
	close(chunks)
	close(errs)
	return chunks, errs
}

func (f *fakeLLM) Close() error { return nil }
