package ipc

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/1broseidon/deskmate/internal/faults"
	"github.com/1broseidon/deskmate/internal/windowing"
)

// Channel names the fixed message surface between clients and the daemon.
type Channel string

const (
	ChannelChatSend         Channel = "chat:send"
	ChannelChatHistory      Channel = "chat:history"
	ChannelChatClear        Channel = "chat:clear"
	ChannelChatSystemPrompt Channel = "chat:system-prompt"

	ChannelWindowShow      Channel = "window:show"
	ChannelWindowHide      Channel = "window:hide"
	ChannelWindowToggle    Channel = "window:toggle"
	ChannelWindowGetBounds Channel = "window:get-bounds"
	ChannelWindowSetBounds Channel = "window:set-bounds"
	ChannelWindowState     Channel = "window:state"
	ChannelChatCollapse    Channel = "chat:toggle-collapse"

	ChannelThemeGet      Channel = "theme:get"
	ChannelThemeSet      Channel = "theme:set"
	ChannelExpressionGet Channel = "expression:get"
	ChannelExpressionSet Channel = "expression:set"

	ChannelErrorsQuery  Channel = "errors:query"
	ChannelErrorsCounts Channel = "errors:counts"

	ChannelStatus Channel = "app:status"

	// Fire-and-forget channels: the daemon processes them without replying.
	ChannelSay        Channel = "speech:say"
	ChannelSpeechHide Channel = "speech:hide"
	ChannelQuit       Channel = "app:quit"
)

// FireAndForget reports whether ch gets no response line.
func FireAndForget(ch Channel) bool {
	switch ch {
	case ChannelSay, ChannelSpeechHide, ChannelQuit:
		return true
	}
	return false
}

// Request is one line of JSON from client to daemon.
type Request struct {
	Channel Channel         `json:"channel"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response is one line of JSON from daemon to client.
type Response struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// WindowPayload addresses a logical window.
type WindowPayload struct {
	Window windowing.Name `json:"window"`
}

// SetBoundsPayload carries new bounds for a window.
type SetBoundsPayload struct {
	Window windowing.Name   `json:"window"`
	Bounds windowing.Bounds `json:"bounds"`
}

// ChatSendPayload carries one user message.
type ChatSendPayload struct {
	Text string `json:"text"`
}

// ChatReplyData is the model's answer.
type ChatReplyData struct {
	Reply string `json:"reply"`
}

// SystemPromptPayload replaces the chat system prompt.
type SystemPromptPayload struct {
	Prompt string `json:"prompt"`
}

// ThemePayload carries a theme name.
type ThemePayload struct {
	Theme string `json:"theme"`
}

// ExpressionPayload carries an avatar expression name.
type ExpressionPayload struct {
	Expression string `json:"expression"`
}

// SayPayload carries speech bubble text.
type SayPayload struct {
	Text string `json:"text"`
}

// ErrorsQueryPayload filters the fault log.
type ErrorsQueryPayload struct {
	Category     faults.Category `json:"category,omitempty"`
	Severity     faults.Severity `json:"severity,omitempty"`
	Component    string          `json:"component,omitempty"`
	SinceSeconds int             `json:"since_seconds,omitempty"`
	Limit        int             `json:"limit,omitempty"`
}

// ErrorsData is the fault-log query result.
type ErrorsData struct {
	Entries []*faults.Entry `json:"entries"`
}

// StatusData summarizes the daemon for clients.
type StatusData struct {
	DaemonRunning  bool                               `json:"daemon_running"`
	UptimeSeconds  int64                              `json:"uptime_seconds"`
	Windows        map[windowing.Name]windowing.State `json:"windows"`
	ChatConfigured bool                               `json:"chat_configured"`
	ChatTurns      int                                `json:"chat_turns"`
	ErrorCount     int                                `json:"error_count"`
	Theme          string                             `json:"theme"`
	Expression     string                             `json:"expression"`
}

// NewOKResponse creates a successful response with optional data.
func NewOKResponse(data interface{}) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Success:   true,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// NewErrorResponse creates a failed response with a message.
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Success:   false,
		Error:     errMsg,
		Timestamp: time.Now(),
	}
}

// ParseRequest parses a request from JSON bytes.
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes.
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}
