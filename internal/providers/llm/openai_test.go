package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Model            string    `json:"model"`
	MaxTokens        int       `json:"max_tokens"`
	Temperature      float32   `json:"temperature"`
	TopP             float32   `json:"top_p"`
	FrequencyPenalty float32   `json:"frequency_penalty"`
	PresencePenalty  float32   `json:"presence_penalty"`
	Stop             []string  `json:"stop"`
	Stream           bool      `json:"stream"`
	Messages         []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func TestNormalizeBaseURL(t *testing.T) {
	assert.Equal(t, "http://h:1234/v1", NormalizeBaseURL("http://h:1234"))
	assert.Equal(t, "http://h:1234/v1", NormalizeBaseURL("http://h:1234/v1/"))
	assert.Equal(t, "", NormalizeBaseURL(""))
}

func TestCompleteSendsOptionsAndMessages(t *testing.T) {
	var got capturedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Салом"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	p := NewOpenAICompatible(srv.URL, "", "ameena_qwen3-8b", srv.Client())
	out, err := p.Complete(context.Background(), []Message{
		{Role: RoleSystem, Content: "translate"},
		{Role: RoleUser, Content: "Hello"},
	}, Options{MaxTokens: 150, Temperature: 0.05, TopP: 0.85, FrequencyPenalty: 0.3, PresencePenalty: 0.2, Stop: []string{"<think>", "\n\n"}})
	require.NoError(t, err)
	assert.Equal(t, "Салом", out)

	assert.Equal(t, "ameena_qwen3-8b", got.Model)
	assert.Equal(t, 150, got.MaxTokens)
	assert.InDelta(t, 0.05, got.Temperature, 1e-6)
	assert.InDelta(t, 0.85, got.TopP, 1e-6)
	assert.InDelta(t, 0.3, got.FrequencyPenalty, 1e-6)
	assert.InDelta(t, 0.2, got.PresencePenalty, 1e-6)
	assert.Equal(t, []string{"<think>", "\n\n"}, got.Stop)
	assert.False(t, got.Stream)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "Hello", got.Messages[1].Content)
}

func TestCompleteEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","choices":[]}`))
	}))
	defer srv.Close()

	p := NewOpenAICompatible(srv.URL, "", "m", srv.Client())
	_, err := p.Complete(context.Background(), []Message{{Role: RoleUser, Content: "q"}}, Options{})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestCompleteStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"model loading","type":"server_error"}}`))
	}))
	defer srv.Close()

	p := NewOpenAICompatible(srv.URL, "", "m", srv.Client())
	_, err := p.Complete(context.Background(), []Message{{Role: RoleUser, Content: "q"}}, Options{})

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
}

func TestCompleteTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	p := NewOpenAICompatible(srv.URL, "", "m", srv.Client())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := p.Complete(ctx, []Message{{Role: RoleUser, Content: "q"}}, Options{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStreamAnswer(t *testing.T) {
	var got capturedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, c := range []string{"Са", "лом", ""} {
			fmt.Fprintf(w, "data: {\"id\":\"x\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", c)
			flusher.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	}))
	defer srv.Close()

	p := NewOpenAICompatible(srv.URL, "", "m", srv.Client())
	chunks, errs := p.StreamAnswer(context.Background(), []Message{{Role: RoleUser, Content: "Hello"}}, Options{})

	var parts []string
	for c := range chunks {
		parts = append(parts, c)
	}
	require.NoError(t, <-errs)
	assert.Equal(t, []string{"Са", "лом"}, parts)
	assert.True(t, got.Stream)
}

func TestStreamAnswerStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":{"message":"upstream down"}}`))
	}))
	defer srv.Close()

	p := NewOpenAICompatible(srv.URL, "", "m", srv.Client())
	out, err := Collect(p.StreamAnswer(context.Background(), []Message{{Role: RoleUser, Content: "Hello"}}, Options{}))
	assert.Empty(t, out)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadGateway, se.StatusCode)
}

func TestEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":0,"embedding":[0.1,0.2,0.3]}],"model":"e"}`))
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(srv.URL, "", "e", srv.Client())
	vec, err := e.Embed(context.Background(), "андоз")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}
