package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/1broseidon/deskmate/internal/ipc"
)

func printChatUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  deskmate chat                  Start an interactive chat session")
	fmt.Fprintln(os.Stderr, "  deskmate chat <message>        Send one message and print the reply")
	fmt.Fprintln(os.Stderr, "  deskmate chat --history        Print the conversation history")
	fmt.Fprintln(os.Stderr, "  deskmate chat --clear          Clear the conversation history")
	fmt.Fprintln(os.Stderr, "  deskmate chat --system PROMPT  Replace the system prompt")
}

func runChat(args []string) int {
	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	history := fs.Bool("history", false, "Print the conversation history")
	clear := fs.Bool("clear", false, "Clear the conversation history")
	system := fs.String("system", "", "Replace the system prompt")
	fs.Usage = printChatUsage
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	client := ipc.NewClient()

	switch {
	case *history:
		raw, err := client.ChatHistory()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		var turns []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		}
		if err := json.Unmarshal(raw, &turns); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		for _, turn := range turns {
			fmt.Printf("%s: %s\n", turn.Role, turn.Content)
		}
		return 0

	case *clear:
		if err := client.ChatClear(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0

	case *system != "":
		if err := client.SetSystemPrompt(*system); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	}

	if fs.NArg() > 0 {
		reply, err := client.ChatSend(strings.Join(fs.Args(), " "))
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Println(reply)
		return 0
	}

	return chatREPL(client)
}

// chatREPL runs an interactive chat loop on the terminal. Requires a TTY so
// pipes don't hang waiting for input.
func chatREPL(client *ipc.Client) int {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprintln(os.Stderr, "interactive chat requires a terminal; pass the message as an argument instead")
		return 2
	}

	fmt.Println("Chatting with deskmate. Empty line or Ctrl-D to exit.")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return 0
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			return 0
		}
		reply, err := client.ChatSend(text)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		fmt.Println(reply)
	}
}
