package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/1broseidon/deskmate/internal/config"
	"github.com/1broseidon/deskmate/internal/daemon"
	"github.com/1broseidon/deskmate/internal/faults"
	"github.com/1broseidon/deskmate/internal/ipc"
	"github.com/1broseidon/deskmate/internal/tui"
	"github.com/1broseidon/deskmate/internal/windowing"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "daemon":
		if len(os.Args) > 2 && (os.Args[2] == "help" || os.Args[2] == "-h" || os.Args[2] == "--help") {
			fmt.Fprintln(os.Stdout, "Usage: deskmate daemon")
			os.Exit(0)
		}
		if len(os.Args) > 2 {
			fmt.Fprintln(os.Stderr, "daemon takes no arguments")
			fmt.Fprintln(os.Stderr, "")
			fmt.Fprintln(os.Stderr, "Usage: deskmate daemon")
			os.Exit(2)
		}
		runDaemon()
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "window":
		os.Exit(runWindow(os.Args[2:]))
	case "say":
		os.Exit(runSay(os.Args[2:]))
	case "chat":
		os.Exit(runChat(os.Args[2:]))
	case "expression":
		os.Exit(runExpression(os.Args[2:]))
	case "theme":
		os.Exit(runTheme(os.Args[2:]))
	case "errors":
		os.Exit(runErrors(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "tui":
		os.Exit(runTUI(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "quit":
		os.Exit(runQuit(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: deskmate <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon              Start the deskmate daemon (foreground)")
	fmt.Fprintln(w, "  status              Show daemon status")
	fmt.Fprintln(w, "  quit                Ask the daemon to shut down")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  window show         Show a window (main, chat, settings)")
	fmt.Fprintln(w, "  window hide         Hide a window")
	fmt.Fprintln(w, "  window toggle       Toggle a window")
	fmt.Fprintln(w, "  window bounds       Print a window's bounds")
	fmt.Fprintln(w, "  window set-bounds   Move and resize a window")
	fmt.Fprintln(w, "  window collapse     Toggle chat between collapsed and expanded")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  say                 Show text in the speech bubble")
	fmt.Fprintln(w, "  chat                Chat with the companion (REPL or one-shot)")
	fmt.Fprintln(w, "  expression          Get or set the avatar expression")
	fmt.Fprintln(w, "  theme               Get or set the UI theme")
	fmt.Fprintln(w, "  errors              Query the daemon's error log")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print configuration")
	fmt.Fprintln(w, "  config init         Create a config file interactively")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  tui                 Open interactive dashboard")
	fmt.Fprintln(w, "  mcp serve           Start MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'deskmate <command> --help' for command-specific options.")
}

func runDaemon() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	d, err := daemon.New(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize daemon: %v", err)
	}
	if err := d.Run(context.Background()); err != nil {
		log.Fatalf("Daemon failed: %v", err)
	}
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	asJSON := fs.Bool("json", false, "Print status as JSON")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: deskmate status [--json]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Show daemon status via IPC.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "status takes no arguments")
		fs.Usage()
		return 2
	}

	client := ipc.NewClient()
	status, err := client.Status()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	}

	fmt.Printf("daemon_running:  %v\n", status.DaemonRunning)
	fmt.Printf("uptime_seconds:  %d\n", status.UptimeSeconds)
	fmt.Printf("chat_configured: %v\n", status.ChatConfigured)
	fmt.Printf("chat_turns:      %d\n", status.ChatTurns)
	fmt.Printf("error_count:     %d\n", status.ErrorCount)
	fmt.Printf("theme:           %s\n", status.Theme)
	fmt.Printf("expression:      %s\n", status.Expression)
	for _, name := range windowing.Names() {
		st := status.Windows[name]
		state := "closed"
		if st.Exists && st.Visible {
			state = "visible"
		} else if st.Exists {
			state = "hidden"
		}
		fmt.Printf("window %-13s %s\n", name+":", state)
	}
	return 0
}

func printWindowUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  deskmate window show <name>")
	fmt.Fprintln(w, "  deskmate window hide <name>")
	fmt.Fprintln(w, "  deskmate window toggle <name>")
	fmt.Fprintln(w, "  deskmate window bounds <name>")
	fmt.Fprintln(w, "  deskmate window set-bounds --x X --y Y --width W --height H <name>")
	fmt.Fprintln(w, "  deskmate window collapse")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Window names: main, chat, settings")
}

func parseWindowArg(fs *flag.FlagSet) (windowing.Name, bool) {
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "expected exactly one window name")
		printWindowUsage(os.Stderr)
		return "", false
	}
	name := windowing.Name(fs.Arg(0))
	if !name.Valid() {
		fmt.Fprintf(os.Stderr, "unknown window %q; valid names: %v\n", fs.Arg(0), windowing.Names())
		return "", false
	}
	return name, true
}

func runWindow(args []string) int {
	if len(args) == 0 {
		printWindowUsage(os.Stderr)
		return 2
	}
	if args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		printWindowUsage(os.Stdout)
		return 0
	}

	client := ipc.NewClient()

	switch args[0] {
	case "show", "hide", "toggle", "bounds":
		fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		if err := fs.Parse(args[1:]); err != nil {
			if err == flag.ErrHelp {
				return 0
			}
			return 2
		}
		name, ok := parseWindowArg(fs)
		if !ok {
			return 2
		}

		var err error
		switch args[0] {
		case "show":
			err = client.ShowWindow(name)
		case "hide":
			err = client.HideWindow(name)
		case "toggle":
			err = client.ToggleWindow(name)
		case "bounds":
			var b windowing.Bounds
			b, err = client.WindowBounds(name)
			if err == nil {
				fmt.Printf("x: %d\ny: %d\nwidth: %d\nheight: %d\n", b.X, b.Y, b.Width, b.Height)
			}
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0

	case "set-bounds":
		fs := flag.NewFlagSet("set-bounds", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		x := fs.Int("x", 0, "Window X position")
		y := fs.Int("y", 0, "Window Y position")
		width := fs.Int("width", 0, "Window width (class minimum enforced)")
		height := fs.Int("height", 0, "Window height (class minimum enforced)")
		if err := fs.Parse(args[1:]); err != nil {
			if err == flag.ErrHelp {
				return 0
			}
			return 2
		}
		name, ok := parseWindowArg(fs)
		if !ok {
			return 2
		}
		err := client.SetWindowBounds(name, windowing.Bounds{
			X: *x, Y: *y, Width: *width, Height: *height,
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0

	case "collapse":
		if err := client.ToggleChatCollapsed(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown window command: %s\n\n", args[0])
		printWindowUsage(os.Stderr)
		return 2
	}
}

func runSay(args []string) int {
	fs := flag.NewFlagSet("say", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: deskmate say <text>")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Show text in the companion's speech bubble. The bubble hides")
		fmt.Fprintln(os.Stderr, "automatically after the configured timeout.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "say takes exactly one argument")
		fs.Usage()
		return 2
	}

	client := ipc.NewClient()
	if err := client.Say(fs.Arg(0)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runExpression(args []string) int {
	fs := flag.NewFlagSet("expression", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: deskmate expression [name]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Without arguments, print the current avatar expression.")
		fmt.Fprintln(os.Stderr, "With a name, set it.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	client := ipc.NewClient()
	switch fs.NArg() {
	case 0:
		expr, err := client.Expression()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Println(expr)
		return 0
	case 1:
		if err := client.SetExpression(fs.Arg(0)); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	default:
		fs.Usage()
		return 2
	}
}

func runTheme(args []string) int {
	fs := flag.NewFlagSet("theme", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: deskmate theme [name]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Without arguments, print the current theme. With a name, set it.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	client := ipc.NewClient()
	switch fs.NArg() {
	case 0:
		theme, err := client.Theme()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Println(theme)
		return 0
	case 1:
		if err := client.SetTheme(fs.Arg(0)); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	default:
		fs.Usage()
		return 2
	}
}

func runErrors(args []string) int {
	fs := flag.NewFlagSet("errors", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	category := fs.String("category", "", "Filter by category (network, chat, window, ...)")
	severity := fs.String("severity", "", "Filter by severity (low, medium, high, critical)")
	limit := fs.Int("limit", 20, "Maximum entries, newest first")
	counts := fs.Bool("counts", false, "Print per-category and per-severity counts instead")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: deskmate errors [--category C] [--severity S] [--limit N] [--counts]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Query the daemon's in-memory error log.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	client := ipc.NewClient()
	if *counts {
		c, err := client.ErrorCounts()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Printf("total: %d\n", c.Total)
		for category, n := range c.ByCategory {
			fmt.Printf("category %-12s %d\n", string(category)+":", n)
		}
		for severity, n := range c.BySeverity {
			fmt.Printf("severity %-12s %d\n", string(severity)+":", n)
		}
		return 0
	}

	data, err := client.Errors(ipc.ErrorsQueryPayload{
		Category: faults.Category(*category),
		Severity: faults.Severity(*severity),
		Limit:    *limit,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if len(data.Entries) == 0 {
		fmt.Println("no errors logged")
		return 0
	}
	for _, e := range data.Entries {
		fmt.Printf("%s  %-8s %-10s %-20s %s\n",
			e.Timestamp.Format("2006-01-02 15:04:05"),
			e.Severity, e.Category, e.Origin.Component, e.Message)
	}
	return 0
}

func runTUI(args []string) int {
	if len(args) > 0 && (args[0] == "help" || args[0] == "-h" || args[0] == "--help") {
		fmt.Fprintln(os.Stdout, "Usage: deskmate tui")
		fmt.Fprintln(os.Stdout, "")
		fmt.Fprintln(os.Stdout, "Open the interactive dashboard: status, chat, and error log.")
		return 0
	}
	if len(args) > 0 {
		fmt.Fprintln(os.Stderr, "tui takes no arguments")
		return 2
	}
	if err := tui.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runQuit(args []string) int {
	if len(args) > 0 && (args[0] == "help" || args[0] == "-h" || args[0] == "--help") {
		fmt.Fprintln(os.Stdout, "Usage: deskmate quit")
		return 0
	}
	client := ipc.NewClient()
	if err := client.Quit(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
