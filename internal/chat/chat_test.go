package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/1broseidon/deskmate/internal/config"
)

func echoService(maxHistory int) *Service {
	return newServiceWith(
		func(ctx context.Context, prompt string) (string, error) {
			return "ok", nil
		},
		config.ChatConfig{MaxHistory: maxHistory},
	)
}

func TestSend_RecordsUserAndAssistantTurns(t *testing.T) {
	s := echoService(10)

	reply, err := s.Send(context.Background(), "hello")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if reply != "ok" {
		t.Fatalf("expected ok, got %q", reply)
	}

	h := s.History()
	if len(h) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(h))
	}
	if h[0].Role != RoleUser || h[0].Content != "hello" {
		t.Fatalf("unexpected first entry: %+v", h[0])
	}
	if h[1].Role != RoleAssistant || h[1].Content != "ok" {
		t.Fatalf("unexpected second entry: %+v", h[1])
	}
}

func TestSend_EmptyMessageRejected(t *testing.T) {
	s := echoService(10)
	if _, err := s.Send(context.Background(), "   "); err == nil {
		t.Fatalf("expected rejection of blank message")
	}
	if len(s.History()) != 0 {
		t.Fatalf("blank message must not enter history")
	}
}

func TestSend_GenerateFailureLeavesUserTurnOnly(t *testing.T) {
	s := newServiceWith(
		func(ctx context.Context, prompt string) (string, error) {
			return "", errors.New("model timeout")
		},
		config.ChatConfig{MaxHistory: 10},
	)

	if _, err := s.Send(context.Background(), "hi"); err == nil {
		t.Fatalf("expected generate error")
	}
	h := s.History()
	if len(h) != 1 || h[0].Role != RoleUser {
		t.Fatalf("expected only the user turn, got %+v", h)
	}
}

func TestHistory_BoundedOldestFirstEviction(t *testing.T) {
	s := echoService(6)

	for i := 0; i < 5; i++ {
		if _, err := s.Send(context.Background(), fmt.Sprintf("msg %d", i)); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}

	h := s.History()
	if len(h) != 6 {
		t.Fatalf("expected history bounded at 6, got %d", len(h))
	}
	// The oldest turns are gone; the newest exchange survives.
	if h[len(h)-2].Content != "msg 4" {
		t.Fatalf("expected newest user turn last, got %+v", h[len(h)-2])
	}
	for _, m := range h {
		if m.Content == "msg 0" {
			t.Fatalf("oldest turn should have been evicted")
		}
	}
}

func TestClearHistory(t *testing.T) {
	s := echoService(10)
	s.Send(context.Background(), "hello")
	s.ClearHistory()
	if len(s.History()) != 0 {
		t.Fatalf("expected empty history after clear")
	}
}

func TestSystemPromptFlowsIntoPrompt(t *testing.T) {
	var seen string
	s := newServiceWith(
		func(ctx context.Context, prompt string) (string, error) {
			seen = prompt
			return "ok", nil
		},
		config.ChatConfig{MaxHistory: 10},
	)
	s.SetSystemPrompt("You are a desk companion.")

	if _, err := s.Send(context.Background(), "hello"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if !strings.HasPrefix(seen, "You are a desk companion.") {
		t.Fatalf("expected system prompt at the head of the prompt, got %q", seen)
	}
	if !strings.Contains(seen, "User: hello") {
		t.Fatalf("expected user turn in prompt, got %q", seen)
	}
}
