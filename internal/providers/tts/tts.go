package tts

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
)

const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16
)

// Audio is little-endian signed 16-bit PCM.
type Audio struct {
	PCM        []byte
	SampleRate int
	Channels   int
}

// Duration in milliseconds.
func (a Audio) DurationMS() int {
	if a.SampleRate == 0 || a.Channels == 0 {
		return 0
	}
	return len(a.PCM) / 2 * 1000 / (a.SampleRate * a.Channels)
}

// Synthesizer speaks one complete text unit per call.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (Audio, error)
	Close() error
}

// PrepareText removes quote characters the voice model reads aloud and
// substitutes a single period for empty input.
func PrepareText(text string) string {
	text = strings.NewReplacer(`"`, "", `'`, "").Replace(text)
	text = strings.TrimSpace(text)
	if text == "" {
		return "."
	}
	return text
}

// FloatToPCM16 clips samples to [-1, 1] and scales them to int16.
func FloatToPCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := math.Max(-1, math.Min(1, float64(s)))
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(v*32767)))
	}
	return out
}

func decodeFloat32(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("float32 audio length %d not a multiple of 4", len(b))
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out, nil
}

var errBadWAV = errors.New("malformed wav")

// DecodeWAV extracts 16-bit PCM from a RIFF/WAVE body. IEEE float data is
// converted to 16-bit.
func DecodeWAV(b []byte) (Audio, error) {
	if len(b) < 12 || string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		return Audio{}, errBadWAV
	}

	var (
		format   uint16
		channels uint16
		rate     uint32
		bits     uint16
		haveFmt  bool
	)
	pos := 12
	for pos+8 <= len(b) {
		id := string(b[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(b[pos+4 : pos+8]))
		body := pos + 8
		if size < 0 || body+size > len(b) {
			// some encoders write a bogus data size for streamed output
			if id == "data" {
				size = len(b) - body
			} else {
				return Audio{}, errBadWAV
			}
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return Audio{}, errBadWAV
			}
			format = binary.LittleEndian.Uint16(b[body:])
			channels = binary.LittleEndian.Uint16(b[body+2:])
			rate = binary.LittleEndian.Uint32(b[body+4:])
			bits = binary.LittleEndian.Uint16(b[body+14:])
			haveFmt = true

		case "data":
			if !haveFmt {
				return Audio{}, errBadWAV
			}
			data := b[body : body+size]
			a := Audio{SampleRate: int(rate), Channels: int(channels)}
			switch {
			case format == 1 && bits == 16:
				a.PCM = append([]byte(nil), data...)
			case format == 3 && bits == 32:
				f, err := decodeFloat32(data)
				if err != nil {
					return Audio{}, err
				}
				a.PCM = FloatToPCM16(f)
			default:
				return Audio{}, fmt.Errorf("unsupported wav format %d/%d bits", format, bits)
			}
			return a, nil
		}

		pos = body + size + size%2
	}
	return Audio{}, errBadWAV
}
