package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/huh"
	"gopkg.in/yaml.v3"

	"github.com/1broseidon/deskmate/internal/config"
)

func printConfigUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  deskmate config validate [--path PATH]")
	fmt.Fprintln(os.Stderr, "  deskmate config print [--path PATH] [--defaults]")
	fmt.Fprintln(os.Stderr, "  deskmate config init")
}

func runConfig(args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		printConfigUsage()
		return 2
	}

	switch args[0] {
	case "validate":
		fs := flag.NewFlagSet("validate", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/deskmate/config.yaml)")
		if err := fs.Parse(args[1:]); err != nil {
			if err == flag.ErrHelp {
				return 0
			}
			return 2
		}

		var err error
		if *path == "" {
			_, err = config.Load()
		} else {
			_, err = config.LoadFromPath(*path)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Println("config: ok")
		return 0

	case "print":
		fs := flag.NewFlagSet("print", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/deskmate/config.yaml)")
		printDefaults := fs.Bool("defaults", false, "Print built-in defaults (no files)")
		if err := fs.Parse(args[1:]); err != nil {
			if err == flag.ErrHelp {
				return 0
			}
			return 2
		}

		var cfg *config.Config
		var err error
		if *printDefaults {
			cfg = config.DefaultConfig()
		} else if *path == "" {
			cfg, err = config.Load()
		} else {
			cfg, err = config.LoadFromPath(*path)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Print(string(data))
		return 0

	case "init":
		return runConfigInit(args[1:])

	default:
		fmt.Fprintf(os.Stderr, "Unknown config command: %s\n\n", args[0])
		printConfigUsage()
		return 2
	}
}

// runConfigInit walks through the chat and bubble settings and writes the
// config file. Existing files are not overwritten without confirmation.
func runConfigInit(args []string) int {
	if len(args) > 0 && (args[0] == "help" || args[0] == "-h" || args[0] == "--help") {
		fmt.Fprintln(os.Stdout, "Usage: deskmate config init")
		fmt.Fprintln(os.Stdout, "")
		fmt.Fprintln(os.Stdout, "Create ~/.config/deskmate/config.yaml interactively.")
		return 0
	}

	cfg := config.DefaultConfig()

	path, err := config.DefaultConfigPath()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if _, err := os.Stat(path); err == nil {
		overwrite := false
		confirm := huh.NewConfirm().
			Title(fmt.Sprintf("%s exists. Overwrite?", path)).
			Value(&overwrite)
		if err := confirm.Run(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		if !overwrite {
			return 0
		}
	}

	timeout := strconv.Itoa(cfg.Bubble.TimeoutSeconds)
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Chat provider").
				Options(
					huh.NewOption("Anthropic", "anthropic"),
					huh.NewOption("OpenAI", "openai"),
					huh.NewOption("Ollama (local)", "ollama"),
				).
				Value(&cfg.Chat.Provider),
			huh.NewInput().
				Title("Model").
				Value(&cfg.Chat.Model),
			huh.NewInput().
				Title("API key (blank to use the provider's environment variable)").
				Value(&cfg.Chat.APIKey),
			huh.NewInput().
				Title("System prompt (optional)").
				Value(&cfg.Chat.SystemPrompt),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Speech bubble timeout (seconds)").
				Value(&timeout).
				Validate(func(s string) error {
					n, err := strconv.Atoi(s)
					if err != nil || n <= 0 {
						return fmt.Errorf("must be a positive integer")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Log level").
				Options(
					huh.NewOption("debug", "debug"),
					huh.NewOption("info", "info"),
					huh.NewOption("warn", "warn"),
					huh.NewOption("error", "error"),
				).
				Value(&cfg.LogLevel),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	cfg.Bubble.TimeoutSeconds, _ = strconv.Atoi(timeout)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if err := cfg.Save(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("wrote %s\n", path)
	return 0
}
