package handlers

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoockh/ameena/internal/metrics"
	"github.com/yoockh/ameena/internal/models"
	"github.com/yoockh/ameena/internal/providers/llm"
	"github.com/yoockh/ameena/internal/providers/tts"
	"github.com/yoockh/ameena/internal/translation"
)

// upperLLM streams the user text back with a fixed prefix.
type upperLLM struct{}

func (upperLLM) Complete(ctx context.Context, msgs []llm.Message, opts llm.Options) (string, error) {
	return "TJ " + msgs[len(msgs)-1].Content, nil
}

func (u upperLLM) StreamAnswer(ctx context.Context, msgs []llm.Message, opts llm.Options) (<-chan string, <-chan error) {
	chunks := make(chan string, 2)
	errs := make(chan error)
	chunks <- "TJ "
	chunks <- msgs[len(msgs)-1].Content
	close(chunks)
	close(errs)
	return chunks, errs
}

func (upperLLM) Close() error { return nil }

type toneSynth struct{}

func (toneSynth) Synthesize(ctx context.Context, text string) (tts.Audio, error) {
	return tts.Audio{PCM: []byte{1, 0, 2, 0}, SampleRate: tts.SampleRate, Channels: tts.Channels}, nil
}

func (toneSynth) Close() error { return nil }

func newWSServer(t *testing.T) (*httptest.Server, *translation.Registry) {
	t.Helper()
	log, _ := test.NewNullLogger()
	m := metrics.New(prometheus.NewRegistry())
	reg := translation.NewRegistry(m)

	factory := func(ctx context.Context, id string) *translation.Session {
		p := translation.NewPipeline(upperLLM{}, toneSynth{}, nil, translation.PipelineConfig{}, m, log)
		return translation.NewSession(ctx, id, translation.SessionDeps{Pipeline: p, Metrics: m, Log: log},
			translation.SessionConfig{QuietInterval: 100 * time.Millisecond})
	}
	h := NewWSHandler(reg, factory, "ameena", 100*time.Millisecond, log)

	r := newEngine()
	r.GET("/ws/translate", h.Translate)
	r.GET("/health", h.Health)
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		reg.CloseAll()
		srv.Close()
	})
	return srv, reg
}

func dial(t *testing.T, srv *httptest.Server, query string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/translate" + query
	return websocket.DefaultDialer.Dial(u, nil)
}

func readMsg(t *testing.T, c *websocket.Conn) models.WSServerMsg {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg models.WSServerMsg
	require.NoError(t, c.ReadJSON(&msg))
	return msg
}

func TestWSTranslateRoundTrip(t *testing.T) {
	srv, reg := newWSServer(t)

	c, _, err := dial(t, srv, "?session_id=call-1")
	require.NoError(t, err)
	defer c.Close()

	ready := readMsg(t, c)
	assert.Equal(t, "ready", ready.Type)
	assert.Equal(t, "call-1", ready.SessionID)
	assert.Equal(t, 1, reg.Len())

	require.NoError(t, c.WriteJSON(models.WSClientMsg{Type: "transcript", Text: "Good"}))
	require.NoError(t, c.WriteJSON(models.WSClientMsg{Type: "transcript", Text: "morning"}))

	utt := readMsg(t, c)
	assert.Equal(t, "utterance", utt.Type)
	assert.Equal(t, "Good morning", utt.Text)

	tr := readMsg(t, c)
	assert.Equal(t, "translation", tr.Type)
	assert.Equal(t, "TJ Good morning", tr.Text)

	audio := readMsg(t, c)
	assert.Equal(t, "audio", audio.Type)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte{1, 0, 2, 0}), audio.AudioBase64)
	assert.Equal(t, 16000, audio.SampleRate)
	assert.Equal(t, 1, audio.Channels)

	require.NoError(t, c.WriteJSON(models.WSClientMsg{Type: "end_session"}))
	assert.Equal(t, "ended", readMsg(t, c).Status)

	assert.Eventually(t, func() bool { return reg.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestWSTranslateRejectsDuplicateSession(t *testing.T) {
	srv, _ := newWSServer(t)

	c, _, err := dial(t, srv, "?session_id=dup")
	require.NoError(t, err)
	defer c.Close()
	readMsg(t, c)

	_, resp, err := dial(t, srv, "?session_id=dup")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestWSTranslateProtocolErrors(t *testing.T) {
	srv, _ := newWSServer(t)

	c, _, err := dial(t, srv, "")
	require.NoError(t, err)
	defer c.Close()
	ready := readMsg(t, c)
	assert.NotEmpty(t, ready.SessionID, "a session id is assigned")

	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte("{nope")))
	msg := readMsg(t, c)
	assert.Equal(t, "error", msg.Type)
	assert.Equal(t, "INVALID_ARGUMENT", msg.Code)

	require.NoError(t, c.WriteJSON(models.WSClientMsg{Type: "dance"}))
	assert.Equal(t, "unknown message type", readMsg(t, c).Message)

	require.NoError(t, c.WriteJSON(models.WSClientMsg{Type: "audio_chunk", AudioBase64: "!!"}))
	assert.Equal(t, "INVALID_ARGUMENT", readMsg(t, c).Code)

	// no STT configured for this bot
	require.NoError(t, c.WriteJSON(models.WSClientMsg{Type: "audio_chunk", AudioBase64: "AAE="}))
	msg = readMsg(t, c)
	assert.Equal(t, "error", msg.Type)
	assert.Equal(t, "audio input not enabled", msg.Message)
}

func TestWSFlushAndDisconnect(t *testing.T) {
	srv, reg := newWSServer(t)

	c, _, err := dial(t, srv, "?session_id=ptt")
	require.NoError(t, err)
	readMsg(t, c)

	require.NoError(t, c.WriteJSON(models.WSClientMsg{Type: "transcript", Text: "push to talk"}))
	require.NoError(t, c.WriteJSON(models.WSClientMsg{Type: "flush"}))
	assert.Equal(t, "push to talk", readMsg(t, c).Text)

	require.NoError(t, c.Close())
	assert.Eventually(t, func() bool { return reg.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestBotHealthHandler(t *testing.T) {
	srv, _ := newWSServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
