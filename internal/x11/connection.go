// Package x11 is the production window backend. It creates and manipulates
// the companion's native windows over the X protocol and translates X events
// into windowing lifecycle events.
package x11

import (
	"os"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/xevent"
)

// Connection manages the X11 connection and core X resources.
type Connection struct {
	XUtil *xgbutil.XUtil
	Root  xproto.Window
}

// NewConnection establishes a connection to the X11 server. display and
// xauthority override the environment when non-empty.
func NewConnection(display, xauthority string) (*Connection, error) {
	if display != "" {
		os.Setenv("DISPLAY", display)
	}
	if xauthority != "" {
		os.Setenv("XAUTHORITY", xauthority)
	}

	xu, err := xgbutil.NewConn()
	if err != nil {
		return nil, err
	}

	return &Connection{
		XUtil: xu,
		Root:  xu.RootWin(),
	}, nil
}

// EventLoop starts the main X11 event loop (blocking).
func (c *Connection) EventLoop() {
	xevent.Main(c.XUtil)
}

// Close cleanly disconnects from the X11 server.
func (c *Connection) Close() {
	xevent.Quit(c.XUtil)
	c.XUtil.Conn().Close()
}
