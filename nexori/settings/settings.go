// Package settings persists the per-user alert preferences.
package settings

import (
	"context"
	"errors"
)

// AlertSettings are the user's alert preferences.
type AlertSettings struct {
	BackgroundMonitoringEnabled bool `json:"backgroundMonitoringEnabled" yaml:"background_monitoring"`
	QuickAccessShortcutEnabled  bool `json:"quickAccessShortcutEnabled" yaml:"quick_access_shortcut"`
}

// Defaults returns the settings used when nothing has been stored.
func Defaults() AlertSettings {
	return AlertSettings{
		BackgroundMonitoringEnabled: true,
		QuickAccessShortcutEnabled:  false,
	}
}

// ErrNotFound is returned by a Store when the key holds nothing.
var ErrNotFound = errors.New("settings: not found")

// Store persists settings under a key.
type Store interface {
	Load(ctx context.Context, key string) (AlertSettings, error)
	Save(ctx context.Context, key string, s AlertSettings) error
}

// Key returns the storage key for user.
func Key(user string) string {
	return "alert_settings:" + user
}
