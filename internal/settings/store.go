// Package settings is the durable key/value boundary for window geometry,
// visibility, and appearance preferences. The on-disk encoding is an
// implementation detail; callers only see the narrow service contract.
package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/1broseidon/deskmate/internal/windowing"
)

// WindowState is the persisted shape per window name.
type WindowState struct {
	Bounds  *windowing.Bounds `yaml:"bounds,omitempty"`
	Visible *bool             `yaml:"visible,omitempty"`
}

type fileState struct {
	Windows           map[windowing.Name]*WindowState `yaml:"windows,omitempty"`
	DefaultExpression string                          `yaml:"default_expression,omitempty"`
	Theme             string                          `yaml:"theme,omitempty"`
}

// Store reads and writes the deskmate state file. Writes are synchronous and
// whole-file; burst coalescing is the controllers' job via their debouncers.
type Store struct {
	mu    sync.Mutex
	path  string
	state fileState
}

// DefaultPath returns the state file location under the user config dir.
func DefaultPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("settings: resolve config dir: %w", err)
	}
	return filepath.Join(configDir, "deskmate", "state.yaml"), nil
}

// NewStore opens the store at path, loading existing state. A missing file
// is an empty store, not an error.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path, state: fileState{Windows: make(map[windowing.Name]*WindowState)}}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("settings: read state file: %w", err)
	}
	if err := yaml.Unmarshal(data, &s.state); err != nil {
		return nil, fmt.Errorf("settings: parse state file %s: %w", path, err)
	}
	if s.state.Windows == nil {
		s.state.Windows = make(map[windowing.Name]*WindowState)
	}
	return s, nil
}

// ValidateBounds rejects bounds below the window class minimum. Violations
// are rejected, never clamped.
func ValidateBounds(name windowing.Name, b windowing.Bounds) error {
	minW, minH := windowing.MinSize(name)
	if b.Width < minW || b.Height < minH {
		return fmt.Errorf("settings: bounds %dx%d for %q rejected: below minimum %dx%d",
			b.Width, b.Height, name, minW, minH)
	}
	return nil
}

// WindowBounds returns the persisted bounds for name, if any.
func (s *Store) WindowBounds(name windowing.Name) (windowing.Bounds, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws, ok := s.state.Windows[name]
	if !ok || ws.Bounds == nil {
		return windowing.Bounds{}, false
	}
	return *ws.Bounds, true
}

// SetWindowBounds validates and persists bounds for name. On rejection the
// previously persisted value is left untouched.
func (s *Store) SetWindowBounds(name windowing.Name, b windowing.Bounds) error {
	if err := ValidateBounds(name, b); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ws := s.windowLocked(name)
	copied := b
	ws.Bounds = &copied
	return s.saveLocked()
}

// WindowVisible returns the persisted visibility for name, if any.
func (s *Store) WindowVisible(name windowing.Name) (bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws, ok := s.state.Windows[name]
	if !ok || ws.Visible == nil {
		return false, false
	}
	return *ws.Visible, true
}

// SetWindowVisible persists visibility for name.
func (s *Store) SetWindowVisible(name windowing.Name, visible bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws := s.windowLocked(name)
	ws.Visible = &visible
	return s.saveLocked()
}

// DefaultExpression returns the persisted avatar default expression.
func (s *Store) DefaultExpression() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.DefaultExpression
}

// SetDefaultExpression persists the avatar default expression.
func (s *Store) SetDefaultExpression(expression string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.DefaultExpression = expression
	return s.saveLocked()
}

// Theme returns the persisted theme name.
func (s *Store) Theme() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Theme
}

// SetTheme persists the theme name.
func (s *Store) SetTheme(theme string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Theme = theme
	return s.saveLocked()
}

func (s *Store) windowLocked(name windowing.Name) *WindowState {
	ws, ok := s.state.Windows[name]
	if !ok {
		ws = &WindowState{}
		s.state.Windows[name] = ws
	}
	return ws
}

func (s *Store) saveLocked() error {
	data, err := yaml.Marshal(&s.state)
	if err != nil {
		return fmt.Errorf("settings: encode state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("settings: create state dir: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("settings: write state file: %w", err)
	}
	return nil
}
