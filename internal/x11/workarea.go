package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"

	"github.com/1broseidon/deskmate/internal/windowing"
)

// workArea returns the usable screen region excluding panels and docks.
// _NET_WORKAREA for the current desktop is preferred; the root geometry is
// the fallback when the window manager does not publish one.
func (c *Connection) workArea() (windowing.Rect, error) {
	if wa, err := ewmh.WorkareaGet(c.XUtil); err == nil && len(wa) > 0 {
		desktopIndex := 0
		if currentDesktop, err := ewmh.CurrentDesktopGet(c.XUtil); err == nil {
			if int(currentDesktop) >= 0 && int(currentDesktop) < len(wa) {
				desktopIndex = int(currentDesktop)
			}
		}
		area := wa[desktopIndex]
		if area.Width > 0 && area.Height > 0 {
			return windowing.Rect{
				X:      int(area.X),
				Y:      int(area.Y),
				Width:  int(area.Width),
				Height: int(area.Height),
			}, nil
		}
	}

	geom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(c.Root)).Reply()
	if err != nil {
		return windowing.Rect{}, fmt.Errorf("failed to get root geometry: %w", err)
	}
	return windowing.Rect{
		X:      0,
		Y:      0,
		Width:  int(geom.Width),
		Height: int(geom.Height),
	}, nil
}
