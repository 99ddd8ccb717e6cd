package settings

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/DesarrolloAlpha/Nexori-sub001/nexori"
)

// Manager owns one user's settings: it loads them once and writes every
// change through to the store.
type Manager struct {
	store  Store
	key    string
	logger nexori.Logger

	mu      sync.Mutex
	current AlertSettings
	loaded  bool
	subs    []func(AlertSettings)
}

// NewManager creates a Manager for user. A nil logger discards logs.
func NewManager(store Store, user string, logger nexori.Logger) *Manager {
	if logger == nil {
		logger = nexori.NopLogger{}
	}
	return &Manager{
		store:   store,
		key:     Key(user),
		logger:  logger,
		current: Defaults(),
	}
}

// Load reads the stored settings. Only the first call touches the store;
// a missing or unreadable record leaves the defaults in place.
func (m *Manager) Load(ctx context.Context) AlertSettings {
	m.mu.Lock()
	if m.loaded {
		s := m.current
		m.mu.Unlock()
		return s
	}
	m.mu.Unlock()

	s, err := m.store.Load(ctx, m.key)
	switch {
	case errors.Is(err, ErrNotFound):
		s = Defaults()
	case err != nil:
		m.logger.Warn("settings: load failed, using defaults", map[string]any{
			"key":   m.key,
			"error": err.Error(),
		})
		s = Defaults()
	}

	m.mu.Lock()
	if m.loaded {
		s = m.current
		m.mu.Unlock()
		return s
	}
	m.loaded = true
	m.current = s
	subs := append([]func(AlertSettings){}, m.subs...)
	m.mu.Unlock()

	for _, fn := range subs {
		fn(s)
	}
	return s
}

// Get returns the current settings.
func (m *Manager) Get() AlertSettings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// SetBackgroundMonitoring updates and persists the monitoring toggle.
func (m *Manager) SetBackgroundMonitoring(ctx context.Context, enabled bool) error {
	return m.update(ctx, func(s *AlertSettings) { s.BackgroundMonitoringEnabled = enabled })
}

// SetQuickAccessShortcut updates and persists the shortcut toggle.
func (m *Manager) SetQuickAccessShortcut(ctx context.Context, enabled bool) error {
	return m.update(ctx, func(s *AlertSettings) { s.QuickAccessShortcutEnabled = enabled })
}

// OnChange registers fn for every change, including the initial load.
func (m *Manager) OnChange(fn func(AlertSettings)) {
	m.mu.Lock()
	m.subs = append(m.subs, fn)
	m.mu.Unlock()
}

// update applies the change in memory even when saving fails; the error
// is returned so the caller can surface it.
func (m *Manager) update(ctx context.Context, change func(*AlertSettings)) error {
	m.mu.Lock()
	s := m.current
	change(&s)
	m.current = s
	subs := append([]func(AlertSettings){}, m.subs...)
	m.mu.Unlock()

	for _, fn := range subs {
		fn(s)
	}

	if err := m.store.Save(ctx, m.key, s); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
