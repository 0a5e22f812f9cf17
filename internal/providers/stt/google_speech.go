package stt

import (
	"context"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
)

type GoogleSpeech struct {
	c *speech.Client

	Encoding     speechpb.RecognitionConfig_AudioEncoding
	SampleRateHz int32
	// DefaultLanguage is used when the caller does not pass one.
	DefaultLanguage string
	// AlternativeLanguages lets the API pick among several source languages.
	AlternativeLanguages []string
}

func NewGoogleSpeech(ctx context.Context, defaultLanguage string, alternatives []string) (*GoogleSpeech, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	if defaultLanguage == "" {
		defaultLanguage = "en-US"
	}
	return &GoogleSpeech{
		c:                    c,
		Encoding:             speechpb.RecognitionConfig_LINEAR16,
		SampleRateHz:         16000,
		DefaultLanguage:      defaultLanguage,
		AlternativeLanguages: alternatives,
	}, nil
}

func (g *GoogleSpeech) Close() error { return g.c.Close() }

// language example: "en-US", "ru-RU"
func (g *GoogleSpeech) Transcribe(ctx context.Context, audio []byte, language string) (string, float64, error) {
	if len(audio) == 0 {
		return "", 0, nil
	}
	cfg := &speechpb.RecognitionConfig{
		Encoding:                   g.Encoding,
		SampleRateHertz:            g.SampleRateHz,
		LanguageCode:               language,
		EnableAutomaticPunctuation: true,
	}
	if language == "" {
		cfg.LanguageCode = g.DefaultLanguage
		cfg.AlternativeLanguageCodes = g.AlternativeLanguages
	}
	if IsWAV(audio) {
		// header carries encoding and rate
		cfg.Encoding = speechpb.RecognitionConfig_ENCODING_UNSPECIFIED
		cfg.SampleRateHertz = 0
	}

	resp, err := g.c.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: cfg,
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	})
	if err != nil {
		return "", 0, err
	}

	var bestText string
	var bestConf float64
	for _, r := range resp.Results {
		for _, alt := range r.Alternatives {
			if alt.Transcript != "" && float64(alt.Confidence) >= bestConf {
				bestText = alt.Transcript
				bestConf = float64(alt.Confidence)
			}
		}
	}

	return bestText, bestConf, nil
}
