package tts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/yoockh/ameena/internal/providers/httpx"
)

// HTTPSynthesizer posts {"text": ...} to a speech service and accepts
// audio/wav, audio/x-float32 (raw f32le samples) or raw 16-bit PCM back.
type HTTPSynthesizer struct {
	URL       string
	AuthToken string
	Voice     string
	Client    *http.Client
	Retry     httpx.Policy
	MaxBytes  int64
}

func NewHTTPSynthesizer(endpoint, authToken string, hc *http.Client) *HTTPSynthesizer {
	return &HTTPSynthesizer{
		URL:       endpoint,
		AuthToken: authToken,
		Client:    hc,
		Retry:     httpx.Policy{Attempts: 2},
		MaxBytes:  32 << 20,
	}
}

func (s *HTTPSynthesizer) Close() error { return nil }

type synthRequest struct {
	Text       string `json:"text"`
	Voice      string `json:"voice,omitempty"`
	SampleRate int    `json:"sample_rate"`
}

func (s *HTTPSynthesizer) Synthesize(ctx context.Context, text string) (Audio, error) {
	if s.URL == "" {
		return Audio{}, fmt.Errorf("tts: url not configured")
	}
	body, err := json.Marshal(synthRequest{Text: PrepareText(text), Voice: s.Voice, SampleRate: SampleRate})
	if err != nil {
		return Audio{}, err
	}

	hdr := http.Header{}
	if s.AuthToken != "" {
		hdr.Set("Authorization", "Bearer "+s.AuthToken)
	}
	resp, err := httpx.Post(ctx, s.Client, httpx.Request{
		URL:         s.URL,
		ContentType: "application/json",
		Body:        body,
		Header:      hdr,
	}, s.Retry)
	if err != nil {
		return Audio{}, fmt.Errorf("tts: %w", err)
	}
	defer resp.Body.Close()

	limit := s.MaxBytes
	if limit <= 0 {
		limit = 32 << 20
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return Audio{}, fmt.Errorf("tts: read body: %w", err)
	}
	if len(raw) == 0 {
		return Audio{}, fmt.Errorf("tts: empty audio")
	}

	mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	switch {
	case mt == "audio/wav" || mt == "audio/x-wav" || mt == "audio/wave" || (len(raw) >= 4 && string(raw[:4]) == "RIFF"):
		a, err := DecodeWAV(raw)
		if err != nil {
			return Audio{}, fmt.Errorf("tts: %w", err)
		}
		return a, nil
	case mt == "audio/x-float32":
		f, err := decodeFloat32(raw)
		if err != nil {
			return Audio{}, fmt.Errorf("tts: %w", err)
		}
		return Audio{PCM: FloatToPCM16(f), SampleRate: SampleRate, Channels: Channels}, nil
	default:
		if len(raw)%2 != 0 {
			raw = raw[:len(raw)-1]
		}
		return Audio{PCM: raw, SampleRate: SampleRate, Channels: Channels}, nil
	}
}
