package llm

import (
	"context"
	"strings"

	vertexgenai "cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/iterator"
)

type VertexGemini struct {
	client    *vertexgenai.Client
	modelName string
}

func NewVertexGemini(ctx context.Context, projectID, location, modelName string) (*VertexGemini, error) {
	c, err := vertexgenai.NewClient(ctx, projectID, location)
	if err != nil {
		return nil, err
	}

	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	return &VertexGemini{client: c, modelName: modelName}, nil
}

func (v *VertexGemini) Close() error { return v.client.Close() }

func (v *VertexGemini) Complete(ctx context.Context, msgs []Message, opts Options) (string, error) {
	cs, last := v.chat(msgs, opts)
	resp, err := cs.SendMessage(ctx, vertexgenai.Text(last))
	if err != nil {
		return "", err
	}
	text := responseText(resp)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (v *VertexGemini) StreamAnswer(ctx context.Context, msgs []Message, opts Options) (<-chan string, <-chan error) {
	out := make(chan string, 32)
	errs := make(chan error, 1)

	go func() {
		defer close(errs)
		defer close(out)

		cs, last := v.chat(msgs, opts)
		it := cs.SendMessageStream(ctx, vertexgenai.Text(last))
		for {
			resp, err := it.Next()
			if err == iterator.Done {
				return
			}
			if err != nil {
				errs <- err
				return
			}
			if t := responseText(resp); t != "" {
				select {
				case out <- t:
				case <-ctx.Done():
					errs <- ctx.Err()
					return
				}
			}
		}
	}()

	return out, errs
}

// chat maps system messages to the system instruction, earlier turns to
// history and returns the final user text to send.
func (v *VertexGemini) chat(msgs []Message, opts Options) (*vertexgenai.ChatSession, string) {
	name := opts.Model
	if name == "" {
		name = v.modelName
	}
	m := v.client.GenerativeModel(name)
	if opts.Temperature > 0 {
		m.SetTemperature(opts.Temperature)
	}
	if opts.TopP > 0 {
		m.SetTopP(opts.TopP)
	}
	if opts.MaxTokens > 0 {
		m.SetMaxOutputTokens(int32(opts.MaxTokens))
	}
	if len(opts.Stop) > 0 {
		m.StopSequences = opts.Stop
	}

	var system []string
	var turns []Message
	for _, msg := range msgs {
		if msg.Role == RoleSystem {
			system = append(system, msg.Content)
			continue
		}
		turns = append(turns, msg)
	}
	if len(system) > 0 {
		m.SystemInstruction = &vertexgenai.Content{
			Parts: []vertexgenai.Part{vertexgenai.Text(strings.Join(system, "\n\n"))},
		}
	}

	cs := m.StartChat()
	last := ""
	if n := len(turns); n > 0 {
		last = turns[n-1].Content
		for _, t := range turns[:n-1] {
			role := "user"
			if t.Role == RoleAssistant {
				role = "model"
			}
			cs.History = append(cs.History, &vertexgenai.Content{
				Role:  role,
				Parts: []vertexgenai.Part{vertexgenai.Text(t.Content)},
			})
		}
	}
	return cs, last
}

func responseText(resp *vertexgenai.GenerateContentResponse) string {
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(vertexgenai.Text); ok {
				b.WriteString(string(t))
			}
		}
	}
	return b.String()
}
