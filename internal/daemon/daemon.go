// Package daemon wires the companion's services together and runs them for
// the lifetime of the process: the window backend, the orchestrator, the IPC
// surface, the drift reconciler, and the config watcher.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"

	"github.com/1broseidon/deskmate/internal/avatar"
	"github.com/1broseidon/deskmate/internal/bus"
	"github.com/1broseidon/deskmate/internal/chat"
	"github.com/1broseidon/deskmate/internal/config"
	"github.com/1broseidon/deskmate/internal/controller"
	"github.com/1broseidon/deskmate/internal/faults"
	"github.com/1broseidon/deskmate/internal/ipc"
	"github.com/1broseidon/deskmate/internal/settings"
	"github.com/1broseidon/deskmate/internal/windowing"
	"github.com/1broseidon/deskmate/internal/x11"
)

// Daemon is the long-running companion process.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger

	backend    windowing.Backend
	x11Backend *x11.Backend
	store      *settings.Store
	faults     *faults.Handler
	chat       *chat.Service
	avatar     *avatar.Controller
	orch       *controller.Orchestrator
	reconciler *Reconciler
	server     *ipc.Server
	quitChan   chan struct{}
}

// New builds a daemon from configuration. The chat service is optional: a
// missing or broken provider is logged and the rest of the companion runs
// without it.
func New(cfg *config.Config) (*Daemon, error) {
	logger := newLogger(cfg.LogLevel)

	backend, x11Backend, err := newBackend(cfg, logger)
	if err != nil {
		return nil, err
	}

	statePath, err := settings.DefaultPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve state path: %w", err)
	}
	store, err := settings.NewStore(statePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings store: %w", err)
	}

	faultHandler := faults.NewHandler(faults.NewLog(cfg.ErrorLogCapacity), logger)

	chatService, err := chat.NewService(cfg.Chat)
	if err != nil {
		logger.Warn("chat provider unavailable, continuing without chat", "error", err)
		faultHandler.Report(err, faults.Origin{Component: "chat.service", Operation: "init"}, nil)
		chatService = nil
	}

	renderer := avatar.NewController(store)

	deps := controller.Deps{
		Registry: windowing.NewRegistry(backend, logger),
		Backend:  backend,
		Store:    store,
		Bus:      bus.New(),
		Faults:   faultHandler,
		Config:   cfg,
		Logger:   logger,
	}
	orch := controller.NewOrchestrator(deps, renderer)

	reconciler := NewReconciler(ReconcilerConfig{Logger: logger}, deps.Registry)

	quitChan := make(chan struct{})
	server, err := ipc.NewServer(ipc.Handlers{
		Orchestrator: orch,
		Chat:         chatService,
		Avatar:       renderer,
		Store:        store,
		Faults:       faultHandler,
	}, quitChan)
	if err != nil {
		return nil, err
	}

	return &Daemon{
		cfg:        cfg,
		logger:     logger,
		backend:    backend,
		x11Backend: x11Backend,
		store:      store,
		faults:     faultHandler,
		chat:       chatService,
		avatar:     renderer,
		orch:       orch,
		reconciler: reconciler,
		server:     server,
		quitChan:   quitChan,
	}, nil
}

// Run starts every service and blocks until a quit request or a termination
// signal arrives, then shuts down in reverse order.
func (d *Daemon) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if d.x11Backend != nil {
		go d.x11Backend.EventLoop()
	}

	if err := d.server.Start(); err != nil {
		return fmt.Errorf("failed to start IPC server: %w", err)
	}
	defer d.server.Stop()

	go d.reconciler.Run(ctx)
	go d.watchConfig(ctx)

	if err := d.orch.Start(); err != nil {
		return fmt.Errorf("failed to open main window: %w", err)
	}

	d.logger.Info("deskmate daemon started",
		"headless", d.x11Backend == nil,
		"chat_configured", d.chat != nil)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

running:
	for {
		select {
		case sig := <-sigChan:
			if sig == syscall.SIGHUP {
				if path, err := config.DefaultConfigPath(); err == nil {
					d.reloadConfig(path)
				}
				continue
			}
			d.logger.Info("signal received, shutting down", "signal", sig)
			break running
		case <-d.quitChan:
			d.logger.Info("quit requested over IPC, shutting down")
			break running
		case <-ctx.Done():
			break running
		}
	}

	cancel()
	d.orch.Shutdown()
	if d.x11Backend != nil {
		d.x11Backend.Close()
	}
	return nil
}

// watchConfig reloads the config file when it changes. Only settings that can
// take effect on a live daemon are applied: the chat system prompt and the
// bubble timing stay with the values the controllers captured at startup.
func (d *Daemon) watchConfig(ctx context.Context) {
	path, err := config.DefaultConfigPath()
	if err != nil {
		return
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		d.logger.Warn("config watcher unavailable", "error", err)
		return
	}
	defer watcher.Close()

	// Watch the directory: editors replace the file, which drops a watch on
	// the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		d.logger.Warn("config watcher unavailable", "error", err)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if ev.Name != path || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			d.reloadConfig(path)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			d.logger.Warn("config watcher error", "error", err)
		}
	}
}

func (d *Daemon) reloadConfig(path string) {
	cfg, err := config.LoadFromPath(path)
	if err != nil {
		d.faults.Report(err, faults.Origin{Component: "daemon", Operation: "reloadConfig"}, nil)
		return
	}
	if d.chat != nil && cfg.Chat.SystemPrompt != d.cfg.Chat.SystemPrompt {
		d.chat.SetSystemPrompt(cfg.Chat.SystemPrompt)
		d.logger.Info("chat system prompt reloaded")
	}
	d.cfg = cfg
	d.logger.Info("configuration reloaded", "path", path)
}

// newBackend picks the window backend: X11 normally, the in-memory backend
// when headless is configured or no display is reachable.
func newBackend(cfg *config.Config, logger *slog.Logger) (windowing.Backend, *x11.Backend, error) {
	if cfg.Headless {
		logger.Info("running headless on the in-memory window backend")
		return windowing.NewMemoryBackend(), nil, nil
	}
	if cfg.Display == "" && os.Getenv("DISPLAY") == "" {
		logger.Warn("no DISPLAY set, falling back to the in-memory window backend")
		return windowing.NewMemoryBackend(), nil, nil
	}

	xb, err := x11.NewBackend(cfg.Display, cfg.XAuthority, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize X11 backend: %w", err)
	}
	return xb, xb, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
