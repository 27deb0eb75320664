package windowing

import (
	"fmt"
	"log/slog"
	"sync"
)

// Registry is the named table of live window handles. It enforces at most one
// window per logical name: creating a name that is already live focuses and
// returns the existing handle instead of constructing a second window.
//
// The name→handle table is the only shared mutable state in the orchestration
// layer, so every mutation happens under the mutex.
type Registry struct {
	mu      sync.Mutex
	backend Backend
	windows map[Name]Handle
	logger  *slog.Logger
}

// NewRegistry creates an empty registry over the given backend.
func NewRegistry(backend Backend, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		backend: backend,
		windows: make(map[Name]Handle),
		logger:  logger,
	}
}

// Create returns a live handle for name, constructing a native window from
// cfg only when none exists. The idempotent-create contract: a second call
// without an intervening close performs no new native construction.
func (r *Registry) Create(name Name, cfg Config, content string) (Handle, error) {
	if !name.Valid() {
		return nil, fmt.Errorf("unknown window name %q", name)
	}

	r.mu.Lock()
	if h, ok := r.windows[name]; ok && !h.Destroyed() {
		r.mu.Unlock()
		if err := h.Focus(); err != nil {
			r.logger.Warn("focus existing window failed", "window", name, "error", err)
		}
		return h, nil
	}

	h, err := r.backend.CreateWindow(name, cfg, content)
	if err != nil {
		r.mu.Unlock()
		return nil, fmt.Errorf("create window %q: %w", name, err)
	}
	r.windows[name] = h
	r.mu.Unlock()

	// A destroyed handle must leave the registry immediately so Get never
	// hands out a zombie entry.
	h.Subscribe(EventClosed, func(Event) {
		r.remove(name, h)
	})

	r.logger.Info("window created", "window", name, "content", content)
	return h, nil
}

// Get returns the handle for name only when it exists and is not destroyed.
func (r *Registry) Get(name Name) (Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.windows[name]
	if !ok || h.Destroyed() {
		return nil, false
	}
	return h, true
}

// StateOf derives the registry's view of a logical window.
func (r *Registry) StateOf(name Name) State {
	h, ok := r.Get(name)
	if !ok {
		return State{}
	}
	return State{Exists: true, Visible: h.Visible(), Destroyed: false}
}

// Names returns the names of all live windows.
func (r *Registry) Names() []Name {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]Name, 0, len(r.windows))
	for name, h := range r.windows {
		if !h.Destroyed() {
			names = append(names, name)
		}
	}
	return names
}

// CloseAll closes every live handle. Already-destroyed handles are skipped
// without error.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	handles := make([]Handle, 0, len(r.windows))
	for _, h := range r.windows {
		handles = append(handles, h)
	}
	r.mu.Unlock()

	for _, h := range handles {
		if h.Destroyed() {
			continue
		}
		if err := h.Close(); err != nil {
			r.logger.Warn("close window failed", "window", h.Name(), "error", err)
		}
	}
}

// Prune removes entries whose native window vanished without a closed event.
// It returns the names that were dropped. Used by the drift reconciler.
func (r *Registry) Prune() []Name {
	r.mu.Lock()
	defer r.mu.Unlock()

	var dropped []Name
	for name, h := range r.windows {
		if h.Destroyed() || !r.backend.Alive(h) {
			delete(r.windows, name)
			dropped = append(dropped, name)
		}
	}
	return dropped
}

// remove deletes the entry for name if it still maps to h.
func (r *Registry) remove(name Name, h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.windows[name]; ok && cur == h {
		delete(r.windows, name)
	}
}
