package models

type TranslateRequest struct {
	Text string `json:"text" binding:"required"`
}

type TranslateResponse struct {
	Translation  string `json:"translation"`
	OriginalText string `json:"original_text"`
}

type BotHealth struct {
	Status          string `json:"status"`
	ActiveSessions  int    `json:"active_sessions"`
	LLMModel        string `json:"llm_model"`
	QuietIntervalMS int64  `json:"quiet_interval_ms"`
}

// WSClientMsg is one inbound WebSocket message.
type WSClientMsg struct {
	Type        string `json:"type"` // transcript|audio_chunk|flush|end_session
	Text        string `json:"text,omitempty"`
	AudioBase64 string `json:"audio_base64,omitempty"`
}

// WSServerMsg is one outbound WebSocket message. Only fields relevant to
// Type are set.
type WSServerMsg struct {
	Type        string `json:"type"`
	SessionID   string `json:"session_id,omitempty"`
	Text        string `json:"text,omitempty"`
	AudioBase64 string `json:"audio_base64,omitempty"`
	SampleRate  int    `json:"sample_rate,omitempty"`
	Channels    int    `json:"channels,omitempty"`
	Code        string `json:"code,omitempty"`
	Message     string `json:"message,omitempty"`
	Status      string `json:"status,omitempty"`
}
