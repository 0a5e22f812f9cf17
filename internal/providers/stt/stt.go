package stt

import "context"

// Provider turns one utterance of caller audio into text. An empty language
// asks the backend to auto-detect.
type Provider interface {
	Transcribe(ctx context.Context, audio []byte, language string) (text string, confidence float64, err error)
	Close() error
}
