package windowing

// Name identifies one of the companion's logical windows.
type Name string

const (
	Main         Name = "main"
	Chat         Name = "chat"
	Settings     Name = "settings"
	SpeechBubble Name = "speechBubble"
)

// Names lists every logical window in a stable order.
func Names() []Name {
	return []Name{Main, Chat, Settings, SpeechBubble}
}

// Valid reports whether n is one of the known logical windows.
func (n Name) Valid() bool {
	switch n {
	case Main, Chat, Settings, SpeechBubble:
		return true
	}
	return false
}

// Rect describes a rectangular region in screen coordinates.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Bounds is a window's position and size on screen.
type Bounds struct {
	X      int `json:"x" yaml:"x"`
	Y      int `json:"y" yaml:"y"`
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// MinSize returns the class-specific minimum window size. Bounds below the
// minimum are rejected at the persistence boundary, never clamped.
func MinSize(name Name) (width, height int) {
	switch name {
	case Main:
		return 200, 300
	case Chat:
		return 280, 340
	case Settings:
		return 420, 360
	case SpeechBubble:
		return 80, 50
	default:
		return 1, 1
	}
}

// Config describes how a native window should be constructed. It is produced
// once per open request and never mutated after the window exists.
type Config struct {
	Width        int
	Height       int
	MinWidth     int
	MinHeight    int
	X            *int
	Y            *int
	Transparent  bool
	Frameless    bool
	AlwaysOnTop  bool
	Resizable    bool
	Shadow       bool
	ShowOnCreate bool
}

// DefaultConfig is the static per-class window config factory.
func DefaultConfig(name Name) Config {
	minW, minH := MinSize(name)
	switch name {
	case Main:
		return Config{
			Width: 320, Height: 480,
			MinWidth: minW, MinHeight: minH,
			Transparent: true, Frameless: true, AlwaysOnTop: true,
			Resizable: true, ShowOnCreate: true,
		}
	case Chat:
		return Config{
			Width: 360, Height: 520,
			MinWidth: minW, MinHeight: minH,
			Frameless: true, Resizable: true, Shadow: true,
		}
	case Settings:
		return Config{
			Width: 520, Height: 620,
			MinWidth: minW, MinHeight: minH,
			Resizable: true, Shadow: true,
		}
	case SpeechBubble:
		return Config{
			Width: 240, Height: 120,
			MinWidth: minW, MinHeight: minH,
			Transparent: true, Frameless: true, AlwaysOnTop: true,
		}
	default:
		return Config{Width: 320, Height: 240, MinWidth: minW, MinHeight: minH, Resizable: true}
	}
}

// EventKind identifies a window lifecycle event.
type EventKind string

const (
	EventMoved   EventKind = "moved"
	EventResized EventKind = "resized"
	EventShown   EventKind = "shown"
	EventHidden  EventKind = "hidden"
	EventClosed  EventKind = "closed"
	EventFocused EventKind = "focused"
	EventBlurred EventKind = "blurred"
)

// Event is a lifecycle notification from a native window. Events of the same
// kind from the same window are delivered in emission order.
type Event struct {
	Kind   EventKind
	Window Name
	Bounds Bounds
}

// Handle is an opaque wrapper over one native OS window. All orchestration
// logic talks to this interface so it never depends on the windowing API
// directly.
type Handle interface {
	Name() Name
	Bounds() (Bounds, error)
	SetBounds(Bounds) error
	SetMinSize(width, height int) error
	Show() error
	Hide() error
	Focus() error
	Close() error
	Visible() bool
	Destroyed() bool

	// Post sends a fire-and-forget message to the window's content.
	Post(channel string, payload any) error

	// Subscribe registers fn for events of the given kind and returns a
	// cancel func that removes the subscription.
	Subscribe(kind EventKind, fn func(Event)) (cancel func())
}

// Backend abstracts the underlying window system. The X11 backend is used in
// production; the in-memory backend serves headless runs and tests.
type Backend interface {
	// CreateWindow constructs a native window and loads the named content.
	CreateWindow(name Name, cfg Config, content string) (Handle, error)
	// WorkArea returns the usable screen region excluding docks and panels.
	WorkArea() (Rect, error)
	// Alive reports whether the native window behind h still exists.
	Alive(h Handle) bool
}

// State is the derived view of a logical window. Exists=false implies the
// registry holds no handle under that name.
type State struct {
	Exists    bool `json:"exists"`
	Visible   bool `json:"visible"`
	Destroyed bool `json:"destroyed"`
}
