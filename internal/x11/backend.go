package x11

import (
	"fmt"
	"log/slog"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/motif"
	"github.com/BurntSushi/xgbutil/xwindow"

	"github.com/1broseidon/deskmate/internal/windowing"
)

// Backend implements windowing.Backend over X11.
type Backend struct {
	conn   *Connection
	logger *slog.Logger
}

// NewBackend connects to the X server. The caller runs EventLoop in its own
// goroutine; window events are not delivered before it starts.
func NewBackend(display, xauthority string, logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := NewConnection(display, xauthority)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}
	return &Backend{conn: conn, logger: logger}, nil
}

// EventLoop runs the X event loop (blocking).
func (b *Backend) EventLoop() {
	b.conn.EventLoop()
}

// Close disconnects from the X server.
func (b *Backend) Close() {
	b.conn.Close()
}

// CreateWindow implements windowing.Backend.
func (b *Backend) CreateWindow(name windowing.Name, cfg windowing.Config, content string) (windowing.Handle, error) {
	xu := b.conn.XUtil

	win, err := xwindow.Generate(xu)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate window id: %w", err)
	}

	x, y, err := b.initialPosition(cfg)
	if err != nil {
		return nil, err
	}

	err = win.CreateChecked(b.conn.Root, x, y, cfg.Width, cfg.Height,
		xproto.CwBackPixel|xproto.CwEventMask,
		0xffffff,
		xproto.EventMaskStructureNotify|xproto.EventMaskFocusChange)
	if err != nil {
		return nil, fmt.Errorf("failed to create window %q: %w", name, err)
	}

	if err := b.applyHints(win, name, cfg, content); err != nil {
		win.Destroy()
		return nil, err
	}

	w := newWindow(b.conn, name, win, windowing.Bounds{
		X: x, Y: y, Width: cfg.Width, Height: cfg.Height,
	})
	w.connectEvents()

	if cfg.ShowOnCreate {
		win.Map()
	}

	b.logger.Info("X11 window created",
		"window", name, "id", win.Id, "x", x, "y", y,
		"width", cfg.Width, "height", cfg.Height)
	return w, nil
}

// initialPosition uses the configured position, centering in the work area
// when none is set.
func (b *Backend) initialPosition(cfg windowing.Config) (int, int, error) {
	if cfg.X != nil && cfg.Y != nil {
		return *cfg.X, *cfg.Y, nil
	}
	work, err := b.conn.workArea()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to resolve work area: %w", err)
	}
	x := work.X + (work.Width-cfg.Width)/2
	y := work.Y + (work.Height-cfg.Height)/2
	if cfg.X != nil {
		x = *cfg.X
	}
	if cfg.Y != nil {
		y = *cfg.Y
	}
	return x, y, nil
}

func (b *Backend) applyHints(win *xwindow.Window, name windowing.Name, cfg windowing.Config, content string) error {
	xu := b.conn.XUtil

	if err := ewmh.WmNameSet(xu, win.Id, "deskmate: "+string(name)); err != nil {
		b.logger.Warn("set window name failed", "window", name, "error", err)
	}
	if err := icccm.WmClassSet(xu, win.Id, &icccm.WmClass{
		Instance: content,
		Class:    "deskmate",
	}); err != nil {
		b.logger.Warn("set window class failed", "window", name, "error", err)
	}

	if cfg.MinWidth > 0 || cfg.MinHeight > 0 {
		if err := setMinSizeHint(xu, win.Id, cfg.MinWidth, cfg.MinHeight); err != nil {
			return fmt.Errorf("failed to set size hints for %q: %w", name, err)
		}
	}

	if cfg.Frameless {
		if err := motif.WmHintsSet(xu, win.Id, &motif.Hints{
			Flags:      motif.HintDecorations,
			Decoration: motif.DecorationNone,
		}); err != nil {
			b.logger.Warn("set frameless hint failed", "window", name, "error", err)
		}
	}

	// Utility windows stay out of taskbars and pagers.
	if err := ewmh.WmWindowTypeSet(xu, win.Id, []string{"_NET_WM_WINDOW_TYPE_UTILITY"}); err != nil {
		b.logger.Warn("set window type failed", "window", name, "error", err)
	}

	if cfg.AlwaysOnTop {
		if err := ewmh.WmStateSet(xu, win.Id, []string{"_NET_WM_STATE_ABOVE"}); err != nil {
			b.logger.Warn("set always-on-top failed", "window", name, "error", err)
		}
	}

	return nil
}

// WorkArea implements windowing.Backend.
func (b *Backend) WorkArea() (windowing.Rect, error) {
	return b.conn.workArea()
}

// Alive implements windowing.Backend: the X window still answers geometry
// queries. Used by the drift reconciler to catch windows destroyed without a
// DestroyNotify reaching us.
func (b *Backend) Alive(h windowing.Handle) bool {
	w, ok := h.(*Window)
	if !ok || w.Destroyed() {
		return false
	}
	_, err := xproto.GetGeometry(b.conn.XUtil.Conn(), xproto.Drawable(w.win.Id)).Reply()
	return err == nil
}

func setMinSizeHint(xu *xgbutil.XUtil, id xproto.Window, minW, minH int) error {
	return icccm.WmNormalHintsSet(xu, id, &icccm.NormalHints{
		Flags:     icccm.SizeHintPMinSize,
		MinWidth:  uint(minW),
		MinHeight: uint(minH),
	})
}
