package translation

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/yoockh/ameena/internal/sanitize"
)

// ResponseCollector folds one streamed LLM reply into a single Speak frame.
// Not safe for concurrent use; one collector belongs to one pipeline.
type ResponseCollector struct {
	clean *sanitize.Sanitizer
	log   logrus.FieldLogger

	collecting bool
	buf        strings.Builder
}

func NewResponseCollector(clean *sanitize.Sanitizer, log logrus.FieldLogger) *ResponseCollector {
	if clean == nil {
		clean = sanitize.Default()
	}
	return &ResponseCollector{clean: clean, log: log}
}

// Process consumes f and returns the frames to forward downstream.
func (c *ResponseCollector) Process(f Frame) []Frame {
	switch f.Kind {
	case KindStreamStart:
		c.buf.Reset()
		c.collecting = true
		return nil

	case KindStreamChunk:
		if c.collecting {
			c.buf.WriteString(f.Text)
			return nil
		}
		return []Frame{f}

	case KindStreamEnd:
		return c.finish()

	default:
		return []Frame{f}
	}
}

// Abort drops a partially collected reply without emitting it.
func (c *ResponseCollector) Abort() {
	c.collecting = false
	c.buf.Reset()
}

// Collecting reports whether a stream is open.
func (c *ResponseCollector) Collecting() bool { return c.collecting }

func (c *ResponseCollector) finish() []Frame {
	wasCollecting := c.collecting
	raw := c.buf.String()
	c.Abort()

	if !wasCollecting {
		return nil
	}
	if strings.TrimSpace(raw) == "" {
		c.log.Warn("translation stream ended with no text")
		return nil
	}

	text := c.clean.Clean(raw)
	if text == "" {
		c.log.WithField("raw", raw).Warn("translation empty after sanitize")
		return nil
	}
	return []Frame{{Kind: KindSpeak, Text: text}}
}
