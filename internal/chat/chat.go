// Package chat wraps the language-model client behind a small conversation
// service with bounded in-memory history.
package chat

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/teilomillet/gollm"
	"github.com/teilomillet/gollm/llm"

	"github.com/1broseidon/deskmate/internal/config"
)

// Role identifies the author of a history message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of the conversation.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// generateFn abstracts the model call so tests can run without a provider.
type generateFn func(ctx context.Context, prompt string) (string, error)

// Service holds the model client and the bounded conversation history.
type Service struct {
	mu           sync.Mutex
	history      []Message
	maxHistory   int
	systemPrompt string
	generate     generateFn
}

// NewService builds a service from the chat configuration. The API key is
// taken from the config or from the provider's standard environment variable.
func NewService(cfg config.ChatConfig) (*Service, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		switch cfg.Provider {
		case "anthropic":
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		case "openai":
			apiKey = os.Getenv("OPENAI_API_KEY")
		case "ollama":
			apiKey = "ollama"
		}
	}
	if apiKey == "" && cfg.Provider != "ollama" {
		return nil, fmt.Errorf("chat: no API key for provider %s", cfg.Provider)
	}

	// gollm reads the key from the environment.
	switch cfg.Provider {
	case "anthropic":
		os.Setenv("ANTHROPIC_API_KEY", apiKey)
	case "openai":
		os.Setenv("OPENAI_API_KEY", apiKey)
	}

	client, err := gollm.NewLLM(
		gollm.SetProvider(cfg.Provider),
		gollm.SetModel(cfg.Model),
		gollm.SetMaxTokens(cfg.MaxTokens),
		gollm.SetTemperature(cfg.Temperature),
	)
	if err != nil {
		return nil, fmt.Errorf("chat: create LLM client: %w", err)
	}

	return newServiceWith(clientGenerate(client), cfg), nil
}

func clientGenerate(client llm.LLM) generateFn {
	return func(ctx context.Context, prompt string) (string, error) {
		return client.Generate(ctx, gollm.NewPrompt(prompt))
	}
}

func newServiceWith(gen generateFn, cfg config.ChatConfig) *Service {
	maxHistory := cfg.MaxHistory
	if maxHistory == 0 {
		maxHistory = 40
	}
	return &Service{
		maxHistory:   maxHistory,
		systemPrompt: cfg.SystemPrompt,
		generate:     gen,
	}
}

// Send appends the user message, asks the model, records the reply, and
// returns it. History older than the bound is dropped oldest-first.
func (s *Service) Send(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("chat: empty message")
	}

	s.mu.Lock()
	s.append(Message{Role: RoleUser, Content: text, Timestamp: time.Now()})
	prompt := s.promptLocked()
	s.mu.Unlock()

	reply, err := s.generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("chat: generate: %w", err)
	}
	reply = strings.TrimSpace(reply)

	s.mu.Lock()
	s.append(Message{Role: RoleAssistant, Content: reply, Timestamp: time.Now()})
	s.mu.Unlock()

	return reply, nil
}

// History returns a copy of the conversation, oldest first.
func (s *Service) History() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.history))
	copy(out, s.history)
	return out
}

// ClearHistory drops the conversation.
func (s *Service) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
}

// SetSystemPrompt replaces the system prompt used on subsequent turns.
func (s *Service) SetSystemPrompt(prompt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.systemPrompt = strings.TrimSpace(prompt)
}

// SystemPrompt returns the current system prompt.
func (s *Service) SystemPrompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.systemPrompt
}

func (s *Service) append(m Message) {
	s.history = append(s.history, m)
	if over := len(s.history) - s.maxHistory; over > 0 {
		s.history = append([]Message(nil), s.history[over:]...)
	}
}

// promptLocked flattens the system prompt and history into a single prompt.
func (s *Service) promptLocked() string {
	var b strings.Builder
	if s.systemPrompt != "" {
		b.WriteString(s.systemPrompt)
		b.WriteString("\n\n")
	}
	for _, m := range s.history {
		switch m.Role {
		case RoleUser:
			b.WriteString("User: ")
		case RoleAssistant:
			b.WriteString("Assistant: ")
		}
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	b.WriteString("Assistant:")
	return b.String()
}
