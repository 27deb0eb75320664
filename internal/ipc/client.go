package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/1broseidon/deskmate/internal/faults"
	"github.com/1broseidon/deskmate/internal/runtimepath"
	"github.com/1broseidon/deskmate/internal/windowing"
)

// Client talks to the daemon over the unix socket.
type Client struct {
	socketPath string
	timeout    time.Duration
	retry      *faults.Handler
}

// NewClient creates a client for the standard socket path.
func NewClient() *Client {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		// Keep constructor non-failing; request calls surface connection errors.
		socketPath = ""
	}

	return &Client{
		socketPath: socketPath,
		timeout:    30 * time.Second,
	}
}

// WithRetry makes request calls retry transient connection failures through h.
func (c *Client) WithRetry(h *faults.Handler) *Client {
	c.retry = h
	return c
}

// send performs one request/response exchange. When a retry handler is set,
// connection-level failures are retried with the default back-off.
func (c *Client) send(req *Request) (*Response, error) {
	if c.retry == nil {
		return c.sendOnce(req)
	}

	var resp *Response
	err := c.retry.Do(context.Background(),
		faults.Origin{Component: "ipc.client", Operation: string(req.Channel)},
		faults.DefaultPolicy,
		func() error {
			var err error
			resp, err = c.sendOnce(req)
			return err
		})
	return resp, err
}

func (c *Client) sendOnce(req *Request) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w (is the daemon running?)", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))

	reqData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	reqData = append(reqData, '\n')
	if _, err := conn.Write(reqData); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	// Fire-and-forget channels never get a response line.
	if FireAndForget(req.Channel) {
		return nil, nil
	}

	reader := bufio.NewReader(conn)
	respData, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("daemon error: %s", resp.Error)
	}
	return &resp, nil
}

// ChatSend asks the model for a reply to text.
func (c *Client) ChatSend(text string) (string, error) {
	payload, err := json.Marshal(ChatSendPayload{Text: text})
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat payload: %w", err)
	}

	resp, err := c.send(&Request{Channel: ChannelChatSend, Payload: payload})
	if err != nil {
		return "", err
	}

	var reply ChatReplyData
	if err := json.Unmarshal(resp.Data, &reply); err != nil {
		return "", fmt.Errorf("failed to parse chat reply: %w", err)
	}
	return reply.Reply, nil
}

// ChatHistory retrieves the conversation.
func (c *Client) ChatHistory() (json.RawMessage, error) {
	resp, err := c.send(&Request{Channel: ChannelChatHistory})
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// ChatClear drops the conversation.
func (c *Client) ChatClear() error {
	_, err := c.send(&Request{Channel: ChannelChatClear})
	return err
}

// SetSystemPrompt replaces the chat system prompt.
func (c *Client) SetSystemPrompt(prompt string) error {
	payload, err := json.Marshal(SystemPromptPayload{Prompt: prompt})
	if err != nil {
		return fmt.Errorf("failed to marshal prompt payload: %w", err)
	}
	_, err = c.send(&Request{Channel: ChannelChatSystemPrompt, Payload: payload})
	return err
}

func (c *Client) windowRequest(ch Channel, name windowing.Name) error {
	payload, err := json.Marshal(WindowPayload{Window: name})
	if err != nil {
		return fmt.Errorf("failed to marshal window payload: %w", err)
	}
	_, err = c.send(&Request{Channel: ch, Payload: payload})
	return err
}

// ShowWindow shows the named window.
func (c *Client) ShowWindow(name windowing.Name) error {
	return c.windowRequest(ChannelWindowShow, name)
}

// HideWindow hides the named window.
func (c *Client) HideWindow(name windowing.Name) error {
	return c.windowRequest(ChannelWindowHide, name)
}

// ToggleWindow flips the named window's visibility.
func (c *Client) ToggleWindow(name windowing.Name) error {
	return c.windowRequest(ChannelWindowToggle, name)
}

// WindowBounds retrieves the named window's live bounds.
func (c *Client) WindowBounds(name windowing.Name) (windowing.Bounds, error) {
	payload, err := json.Marshal(WindowPayload{Window: name})
	if err != nil {
		return windowing.Bounds{}, fmt.Errorf("failed to marshal window payload: %w", err)
	}

	resp, err := c.send(&Request{Channel: ChannelWindowGetBounds, Payload: payload})
	if err != nil {
		return windowing.Bounds{}, err
	}

	var b windowing.Bounds
	if err := json.Unmarshal(resp.Data, &b); err != nil {
		return windowing.Bounds{}, fmt.Errorf("failed to parse bounds: %w", err)
	}
	return b, nil
}

// SetWindowBounds applies bounds to the named window.
func (c *Client) SetWindowBounds(name windowing.Name, b windowing.Bounds) error {
	payload, err := json.Marshal(SetBoundsPayload{Window: name, Bounds: b})
	if err != nil {
		return fmt.Errorf("failed to marshal bounds payload: %w", err)
	}
	_, err = c.send(&Request{Channel: ChannelWindowSetBounds, Payload: payload})
	return err
}

// ToggleChatCollapsed flips the chat panel's size mode.
func (c *Client) ToggleChatCollapsed() error {
	_, err := c.send(&Request{Channel: ChannelChatCollapse})
	return err
}

// Theme retrieves the persisted theme name.
func (c *Client) Theme() (string, error) {
	resp, err := c.send(&Request{Channel: ChannelThemeGet})
	if err != nil {
		return "", err
	}
	var p ThemePayload
	if err := json.Unmarshal(resp.Data, &p); err != nil {
		return "", fmt.Errorf("failed to parse theme: %w", err)
	}
	return p.Theme, nil
}

// SetTheme persists the theme name.
func (c *Client) SetTheme(theme string) error {
	payload, err := json.Marshal(ThemePayload{Theme: theme})
	if err != nil {
		return fmt.Errorf("failed to marshal theme payload: %w", err)
	}
	_, err = c.send(&Request{Channel: ChannelThemeSet, Payload: payload})
	return err
}

// Expression retrieves the avatar's active expression.
func (c *Client) Expression() (string, error) {
	resp, err := c.send(&Request{Channel: ChannelExpressionGet})
	if err != nil {
		return "", err
	}
	var p ExpressionPayload
	if err := json.Unmarshal(resp.Data, &p); err != nil {
		return "", fmt.Errorf("failed to parse expression: %w", err)
	}
	return p.Expression, nil
}

// SetExpression switches the avatar's active expression.
func (c *Client) SetExpression(expression string) error {
	payload, err := json.Marshal(ExpressionPayload{Expression: expression})
	if err != nil {
		return fmt.Errorf("failed to marshal expression payload: %w", err)
	}
	_, err = c.send(&Request{Channel: ChannelExpressionSet, Payload: payload})
	return err
}

// Errors queries the daemon's fault log.
func (c *Client) Errors(q ErrorsQueryPayload) (*ErrorsData, error) {
	payload, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal errors payload: %w", err)
	}

	resp, err := c.send(&Request{Channel: ChannelErrorsQuery, Payload: payload})
	if err != nil {
		return nil, err
	}

	var data ErrorsData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to parse errors data: %w", err)
	}
	return &data, nil
}

// ErrorCounts retrieves aggregate fault counts.
func (c *Client) ErrorCounts() (*faults.Counts, error) {
	resp, err := c.send(&Request{Channel: ChannelErrorsCounts})
	if err != nil {
		return nil, err
	}
	var counts faults.Counts
	if err := json.Unmarshal(resp.Data, &counts); err != nil {
		return nil, fmt.Errorf("failed to parse counts: %w", err)
	}
	return &counts, nil
}

// Status retrieves the daemon status summary.
func (c *Client) Status() (*StatusData, error) {
	resp, err := c.send(&Request{Channel: ChannelStatus})
	if err != nil {
		return nil, err
	}
	var status StatusData
	if err := json.Unmarshal(resp.Data, &status); err != nil {
		return nil, fmt.Errorf("failed to parse status data: %w", err)
	}
	return &status, nil
}

// Say shows text in the speech bubble. Fire-and-forget.
func (c *Client) Say(text string) error {
	payload, err := json.Marshal(SayPayload{Text: text})
	if err != nil {
		return fmt.Errorf("failed to marshal say payload: %w", err)
	}
	_, err = c.send(&Request{Channel: ChannelSay, Payload: payload})
	return err
}

// HideSpeech dismisses the speech bubble. Fire-and-forget.
func (c *Client) HideSpeech() error {
	_, err := c.send(&Request{Channel: ChannelSpeechHide})
	return err
}

// Quit asks the daemon to shut down. Fire-and-forget.
func (c *Client) Quit() error {
	_, err := c.send(&Request{Channel: ChannelQuit})
	return err
}

// Ping checks whether the daemon is responding.
func (c *Client) Ping() error {
	_, err := c.Status()
	return err
}
