package mcp

// WindowInput names a logical window for the window tools.
type WindowInput struct {
	Window string `json:"window" jsonschema:"required,Logical window name: main, chat, settings, or speechBubble"`
}

// WindowOutput reports the window's state after the operation.
type WindowOutput struct {
	Window  string `json:"window"`
	Exists  bool   `json:"exists"`
	Visible bool   `json:"visible"`
}

// SetBoundsInput is the input for the set_window_bounds tool.
type SetBoundsInput struct {
	Window string `json:"window" jsonschema:"required,Logical window name: main, chat, or settings"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width" jsonschema:"required,Window width in pixels; each window enforces a class minimum"`
	Height int    `json:"height" jsonschema:"required,Window height in pixels; each window enforces a class minimum"`
}

// SetBoundsOutput echoes the applied bounds.
type SetBoundsOutput struct {
	Window string `json:"window"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// SayInput is the input for the say tool.
type SayInput struct {
	Text string `json:"text" jsonschema:"required,Text for the companion to display in its speech bubble"`
}

// SayOutput confirms the speech request was delivered.
type SayOutput struct {
	Delivered bool `json:"delivered"`
}

// ChatInput is the input for the chat tool.
type ChatInput struct {
	Text string `json:"text" jsonschema:"required,Message to send to the companion's chat model"`
}

// ChatOutput carries the model's reply.
type ChatOutput struct {
	Reply string `json:"reply"`
}

// ListErrorsInput filters the daemon's error log.
type ListErrorsInput struct {
	Category string `json:"category,omitempty" jsonschema:"Filter by category: validation, permission, network, filesystem, window, settings, chat, avatar, system"`
	Severity string `json:"severity,omitempty" jsonschema:"Filter by severity: low, medium, high, critical"`
	Limit    int    `json:"limit,omitempty" jsonschema:"Maximum entries to return, newest first (default: 20)"`
}

// ErrorEntry is one logged fault.
type ErrorEntry struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Category  string `json:"category"`
	Severity  string `json:"severity"`
	Component string `json:"component"`
	Message   string `json:"message"`
}

// ListErrorsOutput is the output for the list_errors tool.
type ListErrorsOutput struct {
	Entries []ErrorEntry `json:"entries"`
	Total   int          `json:"total"`
}

// StatusInput is the (empty) input for the status tool.
type StatusInput struct{}

// StatusOutput summarizes the daemon.
type StatusOutput struct {
	DaemonRunning  bool                    `json:"daemon_running"`
	UptimeSeconds  int64                   `json:"uptime_seconds"`
	ChatConfigured bool                    `json:"chat_configured"`
	ErrorCount     int                     `json:"error_count"`
	Theme          string                  `json:"theme"`
	Expression     string                  `json:"expression"`
	Windows        map[string]WindowOutput `json:"windows"`
}
