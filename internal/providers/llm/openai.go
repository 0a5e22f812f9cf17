package llm

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAICompatible talks to any server exposing /v1/chat/completions
// (LM Studio, vLLM, llama.cpp, OpenAI itself).
type OpenAICompatible struct {
	client *openai.Client
	model  string
}

// NormalizeBaseURL appends /v1 when the configured URL points at the host root.
func NormalizeBaseURL(raw string) string {
	u := strings.TrimRight(strings.TrimSpace(raw), "/")
	if u == "" || strings.HasSuffix(u, "/v1") {
		return u
	}
	return u + "/v1"
}

func NewOpenAICompatible(baseURL, apiKey, model string, hc *http.Client) *OpenAICompatible {
	if apiKey == "" {
		apiKey = "not-needed"
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = NormalizeBaseURL(baseURL)
	}
	if hc != nil {
		cfg.HTTPClient = hc
	}
	return &OpenAICompatible{client: openai.NewClientWithConfig(cfg), model: model}
}

func (o *OpenAICompatible) Close() error { return nil }

func (o *OpenAICompatible) Complete(ctx context.Context, msgs []Message, opts Options) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, o.request(msgs, opts))
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

func (o *OpenAICompatible) StreamAnswer(ctx context.Context, msgs []Message, opts Options) (<-chan string, <-chan error) {
	out := make(chan string, 32)
	errs := make(chan error, 1)

	go func() {
		defer close(errs)
		defer close(out)

		stream, err := o.client.CreateChatCompletionStream(ctx, o.request(msgs, opts))
		if err != nil {
			errs <- classify(err)
			return
		}
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				errs <- classify(err)
				return
			}
			for _, ch := range resp.Choices {
				if ch.Delta.Content == "" {
					continue
				}
				select {
				case out <- ch.Delta.Content:
				case <-ctx.Done():
					errs <- ctx.Err()
					return
				}
			}
		}
	}()

	return out, errs
}

func (o *OpenAICompatible) request(msgs []Message, opts Options) openai.ChatCompletionRequest {
	model := opts.Model
	if model == "" {
		model = o.model
	}
	cm := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		cm = append(cm, openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content})
	}
	return openai.ChatCompletionRequest{
		Model:            model,
		Messages:         cm,
		MaxTokens:        opts.MaxTokens,
		Temperature:      opts.Temperature,
		TopP:             opts.TopP,
		FrequencyPenalty: opts.FrequencyPenalty,
		PresencePenalty:  opts.PresencePenalty,
		Stop:             opts.Stop,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeText,
		},
	}
}

// OpenAIEmbedder calls /v1/embeddings on an OpenAI-compatible server.
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
}

func NewOpenAIEmbedder(baseURL, apiKey, model string, hc *http.Client) *OpenAIEmbedder {
	c := NewOpenAICompatible(baseURL, apiKey, model, hc)
	return &OpenAIEmbedder{client: c.client, model: model}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, classify(err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, ErrEmptyResponse
	}
	return resp.Data[0].Embedding, nil
}

func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &StatusError{StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &StatusError{StatusCode: reqErr.HTTPStatusCode, Message: http.StatusText(reqErr.HTTPStatusCode), Err: err}
	}
	return err
}
