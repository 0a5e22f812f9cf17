package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/yoockh/ameena/internal/providers/httpx"
)

// WhisperHTTP posts WAV audio to a whisper server (faster-whisper style
// /transcribe endpoint) and reads {"text": ...} back.
type WhisperHTTP struct {
	URL        string
	Client     *http.Client
	SampleRate int
	Retry      httpx.Policy
}

func NewWhisperHTTP(endpoint string, hc *http.Client) *WhisperHTTP {
	return &WhisperHTTP{URL: endpoint, Client: hc, SampleRate: 16000, Retry: httpx.DefaultPolicy()}
}

func (w *WhisperHTTP) Close() error { return nil }

type whisperResponse struct {
	Text       string   `json:"text"`
	Confidence *float64 `json:"confidence"`
}

func (w *WhisperHTTP) Transcribe(ctx context.Context, audio []byte, language string) (string, float64, error) {
	if w.URL == "" {
		return "", 0, fmt.Errorf("whisper: url not configured")
	}
	if len(audio) == 0 {
		return "", 0, nil
	}

	target, err := url.Parse(w.URL)
	if err != nil {
		return "", 0, fmt.Errorf("whisper: parse url: %w", err)
	}
	q := target.Query()
	q.Set("task", "transcribe")
	if language != "" {
		q.Set("language", language)
	}
	target.RawQuery = q.Encode()

	wav := audio
	if !IsWAV(audio) {
		wav = BuildWAV(audio, w.SampleRate, 1, 16)
	}

	resp, err := httpx.Post(ctx, w.Client, httpx.Request{
		URL:         target.String(),
		ContentType: "audio/wav",
		Body:        wav,
	}, w.Retry)
	if err != nil {
		return "", 0, fmt.Errorf("whisper: %w", err)
	}
	defer resp.Body.Close()

	var out whisperResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", 0, fmt.Errorf("whisper: decode response: %w", err)
	}
	conf := 1.0
	if out.Confidence != nil {
		conf = *out.Confidence
	}
	return strings.TrimSpace(out.Text), conf, nil
}
