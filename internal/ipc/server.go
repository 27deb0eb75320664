package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"sync"
	"time"

	"github.com/1broseidon/deskmate/internal/avatar"
	"github.com/1broseidon/deskmate/internal/chat"
	"github.com/1broseidon/deskmate/internal/controller"
	"github.com/1broseidon/deskmate/internal/faults"
	"github.com/1broseidon/deskmate/internal/runtimepath"
	"github.com/1broseidon/deskmate/internal/settings"
)

// chatPolicy retries model calls twice with a short back-off; a flaky
// provider should not surface on the first hiccup.
var chatPolicy = faults.RetryPolicy{
	MaxAttempts: 3,
	BaseDelay:   500 * time.Millisecond,
	MaxDelay:    5 * time.Second,
	Exponential: true,
}

// Handlers are the daemon services the message surface drives. Chat may be
// nil when no provider is configured.
type Handlers struct {
	Orchestrator *controller.Orchestrator
	Chat         *chat.Service
	Avatar       *avatar.Controller
	Store        *settings.Store
	Faults       *faults.Handler
}

// Server answers line-JSON requests on the unix socket.
type Server struct {
	socketPath   string
	listener     net.Listener
	h            Handlers
	startTime    time.Time
	quitChan     chan struct{}
	quitOnce     sync.Once
	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates a server over the standard socket path. quitChan receives
// one signal when a client asks the daemon to quit.
func NewServer(h Handlers, quitChan chan struct{}) (*Server, error) {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
	}

	// Remove a stale socket from a previous run.
	os.Remove(socketPath)

	return &Server{
		socketPath: socketPath,
		h:          h,
		startTime:  time.Now(),
		quitChan:   quitChan,
	}, nil
}

// Start begins listening for IPC connections.
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	if err := os.Chmod(s.socketPath, 0600); err != nil {
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	log.Printf("IPC server listening on %s", s.socketPath)

	go s.acceptLoop()
	return nil
}

// Stop gracefully shuts down the IPC server.
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	os.Remove(s.socketPath)
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			if s.shuttingDown {
				s.shutdownMu.Unlock()
				return
			}
			s.shutdownMu.Unlock()
			log.Printf("IPC accept error: %v", err)
			continue
		}

		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		log.Printf("IPC read error: %v", err)
		return
	}

	req, err := ParseRequest(data)
	if err != nil {
		s.writeResponse(conn, NewErrorResponse(fmt.Sprintf("invalid request: %v", err)))
		return
	}

	resp := s.handleRequest(req)

	// Fire-and-forget channels get no response line.
	if FireAndForget(req.Channel) {
		return
	}
	s.writeResponse(conn, resp)
}

func (s *Server) writeResponse(conn net.Conn, resp *Response) {
	data, err := resp.Marshal()
	if err != nil {
		log.Printf("Failed to marshal response: %v", err)
		return
	}
	data = append(data, '\n')
	if _, err := conn.Write(data); err != nil {
		log.Printf("Failed to send response: %v", err)
	}
}

// handleRequest dispatches one request to its handler.
func (s *Server) handleRequest(req *Request) *Response {
	switch req.Channel {
	case ChannelChatSend:
		return s.handleChatSend(req.Payload)
	case ChannelChatHistory:
		return s.handleChatHistory()
	case ChannelChatClear:
		return s.handleChatClear()
	case ChannelChatSystemPrompt:
		return s.handleChatSystemPrompt(req.Payload)
	case ChannelWindowShow, ChannelWindowHide, ChannelWindowToggle:
		return s.handleWindowVisibility(req.Channel, req.Payload)
	case ChannelWindowGetBounds:
		return s.handleWindowGetBounds(req.Payload)
	case ChannelWindowSetBounds:
		return s.handleWindowSetBounds(req.Payload)
	case ChannelWindowState:
		return s.handleWindowState(req.Payload)
	case ChannelChatCollapse:
		return s.handleChatCollapse()
	case ChannelThemeGet:
		return s.handleThemeGet()
	case ChannelThemeSet:
		return s.handleThemeSet(req.Payload)
	case ChannelExpressionGet:
		return s.handleExpressionGet()
	case ChannelExpressionSet:
		return s.handleExpressionSet(req.Payload)
	case ChannelErrorsQuery:
		return s.handleErrorsQuery(req.Payload)
	case ChannelErrorsCounts:
		return s.handleErrorsCounts()
	case ChannelStatus:
		return s.handleStatus()
	case ChannelSay:
		return s.handleSay(req.Payload)
	case ChannelSpeechHide:
		return s.handleSpeechHide()
	case ChannelQuit:
		return s.handleQuit()
	default:
		return NewErrorResponse(fmt.Sprintf("unknown channel: %s", req.Channel))
	}
}

// fail records the failure and answers with the user-facing message, never
// the raw technical error.
func (s *Server) fail(err error, operation string) *Response {
	entry := s.h.Faults.Report(err, faults.Origin{Component: "ipc.server", Operation: operation}, nil)
	return NewErrorResponse(entry.UserMessage)
}

func (s *Server) handleChatSend(payload json.RawMessage) *Response {
	if s.h.Chat == nil {
		return NewErrorResponse("chat is not configured")
	}
	var p ChatSendPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return NewErrorResponse(fmt.Sprintf("invalid chat payload: %v", err))
	}

	var reply string
	err := s.h.Faults.Do(context.Background(),
		faults.Origin{Component: "chat.service", Operation: "Send"},
		chatPolicy,
		func() error {
			var err error
			reply, err = s.h.Chat.Send(context.Background(), p.Text)
			return err
		})
	if err != nil {
		category := faults.Classify(err, faults.Origin{Component: "chat.service"})
		return NewErrorResponse(faults.UserMessage(category))
	}

	resp, _ := NewOKResponse(ChatReplyData{Reply: reply})
	return resp
}

func (s *Server) handleChatHistory() *Response {
	if s.h.Chat == nil {
		return NewErrorResponse("chat is not configured")
	}
	resp, _ := NewOKResponse(s.h.Chat.History())
	return resp
}

func (s *Server) handleChatClear() *Response {
	if s.h.Chat == nil {
		return NewErrorResponse("chat is not configured")
	}
	s.h.Chat.ClearHistory()
	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) handleChatSystemPrompt(payload json.RawMessage) *Response {
	if s.h.Chat == nil {
		return NewErrorResponse("chat is not configured")
	}
	var p SystemPromptPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return NewErrorResponse(fmt.Sprintf("invalid prompt payload: %v", err))
	}
	s.h.Chat.SetSystemPrompt(p.Prompt)
	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) handleWindowVisibility(ch Channel, payload json.RawMessage) *Response {
	var p WindowPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return NewErrorResponse(fmt.Sprintf("invalid window payload: %v", err))
	}

	var err error
	switch ch {
	case ChannelWindowShow:
		err = s.h.Orchestrator.ShowWindow(p.Window)
	case ChannelWindowHide:
		err = s.h.Orchestrator.HideWindow(p.Window)
	case ChannelWindowToggle:
		err = s.h.Orchestrator.ToggleWindow(p.Window)
	}
	if err != nil {
		return s.fail(err, string(ch))
	}
	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) handleWindowGetBounds(payload json.RawMessage) *Response {
	var p WindowPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return NewErrorResponse(fmt.Sprintf("invalid window payload: %v", err))
	}
	b, err := s.h.Orchestrator.WindowBounds(p.Window)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	resp, _ := NewOKResponse(b)
	return resp
}

func (s *Server) handleWindowSetBounds(payload json.RawMessage) *Response {
	var p SetBoundsPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return NewErrorResponse(fmt.Sprintf("invalid bounds payload: %v", err))
	}
	if err := s.h.Orchestrator.SetWindowBounds(p.Window, p.Bounds); err != nil {
		return NewErrorResponse(err.Error())
	}
	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) handleWindowState(payload json.RawMessage) *Response {
	// With no payload, report every window.
	if len(payload) == 0 {
		resp, _ := NewOKResponse(s.h.Orchestrator.WindowStates())
		return resp
	}
	var p WindowPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return NewErrorResponse(fmt.Sprintf("invalid window payload: %v", err))
	}
	resp, _ := NewOKResponse(s.h.Orchestrator.WindowState(p.Window))
	return resp
}

func (s *Server) handleChatCollapse() *Response {
	if err := s.h.Orchestrator.Chat().ToggleCollapsed(); err != nil {
		return NewErrorResponse(err.Error())
	}
	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) handleThemeGet() *Response {
	resp, _ := NewOKResponse(ThemePayload{Theme: s.h.Store.Theme()})
	return resp
}

func (s *Server) handleThemeSet(payload json.RawMessage) *Response {
	var p ThemePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return NewErrorResponse(fmt.Sprintf("invalid theme payload: %v", err))
	}
	if err := s.h.Store.SetTheme(p.Theme); err != nil {
		return s.fail(err, "theme:set")
	}
	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) handleExpressionGet() *Response {
	resp, _ := NewOKResponse(ExpressionPayload{Expression: s.h.Avatar.Current()})
	return resp
}

func (s *Server) handleExpressionSet(payload json.RawMessage) *Response {
	var p ExpressionPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return NewErrorResponse(fmt.Sprintf("invalid expression payload: %v", err))
	}
	if err := s.h.Avatar.SetExpression(p.Expression); err != nil {
		return NewErrorResponse(err.Error())
	}
	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) handleErrorsQuery(payload json.RawMessage) *Response {
	var p ErrorsQueryPayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &p); err != nil {
			return NewErrorResponse(fmt.Sprintf("invalid errors payload: %v", err))
		}
	}

	q := faults.Query{
		Category:  p.Category,
		Severity:  p.Severity,
		Component: p.Component,
		Limit:     p.Limit,
	}
	if p.SinceSeconds > 0 {
		q.Since = time.Now().Add(-time.Duration(p.SinceSeconds) * time.Second)
	}

	resp, _ := NewOKResponse(ErrorsData{Entries: s.h.Faults.Log().Entries(q)})
	return resp
}

func (s *Server) handleErrorsCounts() *Response {
	resp, _ := NewOKResponse(s.h.Faults.Log().Counts())
	return resp
}

func (s *Server) handleStatus() *Response {
	status := StatusData{
		DaemonRunning:  true,
		UptimeSeconds:  int64(time.Since(s.startTime).Seconds()),
		Windows:        s.h.Orchestrator.WindowStates(),
		ChatConfigured: s.h.Chat != nil,
		ErrorCount:     s.h.Faults.Log().Len(),
		Theme:          s.h.Store.Theme(),
		Expression:     s.h.Avatar.Current(),
	}
	if s.h.Chat != nil {
		status.ChatTurns = len(s.h.Chat.History())
	}

	resp, _ := NewOKResponse(status)
	return resp
}

func (s *Server) handleSay(payload json.RawMessage) *Response {
	var p SayPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return NewErrorResponse(fmt.Sprintf("invalid say payload: %v", err))
	}
	if err := s.h.Orchestrator.Say(p.Text); err != nil {
		return s.fail(err, "speech:say")
	}
	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) handleSpeechHide() *Response {
	if err := s.h.Orchestrator.HideSpeech(); err != nil {
		return s.fail(err, "speech:hide")
	}
	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) handleQuit() *Response {
	log.Println("IPC: quit requested")
	s.quitOnce.Do(func() {
		close(s.quitChan)
	})
	resp, _ := NewOKResponse(nil)
	return resp
}
