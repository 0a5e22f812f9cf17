package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/ameena/internal/models"
	"github.com/yoockh/ameena/internal/translation"
	"github.com/yoockh/ameena/internal/utils"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// SessionFactory starts a translation session for one connection.
type SessionFactory func(ctx context.Context, id string) *translation.Session

type WSHandler struct {
	registry   *translation.Registry
	newSession SessionFactory
	model      string
	quiet      time.Duration
	log        logrus.FieldLogger
	upgrader   websocket.Upgrader
}

func NewWSHandler(registry *translation.Registry, newSession SessionFactory, model string, quiet time.Duration, log logrus.FieldLogger) *WSHandler {
	return &WSHandler{
		registry:   registry,
		newSession: newSession,
		model:      model,
		quiet:      quiet,
		log:        log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origin once the bot frontend has a fixed host
		},
	}
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeJSON(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.c.SetWriteDeadline(time.Now().Add(writeWait))
	return w.c.WriteJSON(v)
}

func (w *wsConn) ping() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.c.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (w *wsConn) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.c.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"),
		time.Now().Add(writeWait))
}

func (w *wsConn) writeError(code utils.Code, msg string) error {
	return w.writeJSON(models.WSServerMsg{Type: "error", Code: string(code), Message: msg})
}

func (h *WSHandler) Translate(c *gin.Context) {
	const op = "WSHandler.Translate"

	sessionID := c.Query("session_id")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	if _, ok := h.registry.Get(sessionID); ok {
		writeError(c, utils.E(utils.CodeConflict, op, "session already active", translation.ErrSessionExists))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response in most cases
		return
	}
	defer conn.Close()
	wc := &wsConn{c: conn}
	log := h.log.WithField("session_id", sessionID)

	sess := h.newSession(c.Request.Context(), sessionID)
	if err := h.registry.Add(sess); err != nil {
		sess.Close()
		_ = wc.writeError(utils.CodeConflict, "session already active")
		return
	}
	defer h.registry.Remove(sessionID)

	if err := wc.writeJSON(models.WSServerMsg{Type: "ready", SessionID: sessionID}); err != nil {
		return
	}
	log.Info("ws session opened")

	// writer: session frames -> WS
	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case f, ok := <-sess.Out():
				if !ok {
					// session closed from outside (shutdown); unblock the reader
					wc.close()
					_ = conn.Close()
					return
				}
				msg, ok := frameMessage(f)
				if !ok {
					continue
				}
				if err := wc.writeJSON(msg); err != nil {
					log.WithError(err).Debug("ws write failed")
					_ = conn.Close()
					return
				}
			case <-ticker.C:
				if err := wc.ping(); err != nil {
					_ = conn.Close()
					return
				}
			}
		}
	}()

	h.readLoop(conn, wc, sess, log)

	h.registry.Remove(sessionID)
	<-writeDone
	log.Info("ws session closed")
}

// readLoop handles inbound messages until the peer leaves or ends the session.
func (h *WSHandler) readLoop(conn *websocket.Conn, wc *wsConn, sess *translation.Session, log logrus.FieldLogger) {
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithError(err).Warn("ws read failed")
			}
			return
		}

		var msg models.WSClientMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			_ = wc.writeError(utils.CodeInvalidArgument, "invalid json")
			continue
		}

		switch msg.Type {
		case "transcript":
			if err := sess.Push(translation.Fragment(msg.Text)); err != nil {
				return
			}

		case "audio_chunk":
			audio, err := base64.StdEncoding.DecodeString(msg.AudioBase64)
			if err != nil || len(audio) == 0 {
				_ = wc.writeError(utils.CodeInvalidArgument, "audio_base64 must be non-empty base64")
				continue
			}
			if err := sess.Push(translation.Frame{Kind: translation.KindAudioIn, Audio: audio}); err != nil {
				return
			}

		case "flush":
			sess.Flush()

		case "end_session":
			_ = wc.writeJSON(models.WSServerMsg{Type: "status", Status: "ended"})
			return

		default:
			_ = wc.writeError(utils.CodeInvalidArgument, "unknown message type")
		}
	}
}

func frameMessage(f translation.Frame) (models.WSServerMsg, bool) {
	switch f.Kind {
	case translation.KindFragment:
		return models.WSServerMsg{Type: "transcript", Text: f.Text}, true
	case translation.KindUtterance:
		return models.WSServerMsg{Type: "utterance", Text: f.Text}, true
	case translation.KindStreamChunk:
		return models.WSServerMsg{Type: "text", Text: f.Text}, true
	case translation.KindSpeak:
		return models.WSServerMsg{Type: "translation", Text: f.Text}, true
	case translation.KindAudioOut:
		return models.WSServerMsg{
			Type:        "audio",
			AudioBase64: base64.StdEncoding.EncodeToString(f.Audio),
			SampleRate:  f.SampleRate,
			Channels:    f.Channels,
		}, true
	case translation.KindError:
		msg := "internal error"
		if f.Err != nil {
			msg = f.Err.Error()
		}
		return models.WSServerMsg{Type: "error", Code: f.Code, Message: msg}, true
	default:
		return models.WSServerMsg{}, false
	}
}

func (h *WSHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, models.BotHealth{
		Status:          "ok",
		ActiveSessions:  h.registry.Len(),
		LLMModel:        h.model,
		QuietIntervalMS: h.quiet.Milliseconds(),
	})
}
