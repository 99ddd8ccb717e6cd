// Package effects turns alert and session state into local side effects:
// the alarm sound and the quick-access shortcut shown while the app is in
// the background.
package effects

// AppState is the host application's visibility.
type AppState int

const (
	Foreground AppState = iota
	Background
)

func (s AppState) String() string {
	if s == Background {
		return "background"
	}
	return "foreground"
}

// Shortcut is the quick-access variant to display. Variants are exclusive.
type Shortcut int

const (
	ShortcutNone Shortcut = iota
	// ShortcutAttention lets a monitoring user jump to active alerts.
	ShortcutAttention
	// ShortcutTrigger lets a user who cannot monitor raise a panic.
	ShortcutTrigger
)

func (s Shortcut) String() string {
	switch s {
	case ShortcutAttention:
		return "attention"
	case ShortcutTrigger:
		return "trigger"
	default:
		return "none"
	}
}

// Type is the discriminator carried in the shortcut payload.
func (s Shortcut) Type() string {
	switch s {
	case ShortcutAttention:
		return "panic_attention"
	case ShortcutTrigger:
		return "panic_trigger"
	default:
		return ""
	}
}

// Inputs is everything the decisions depend on.
type Inputs struct {
	Authenticated     bool
	CanMonitor        bool
	CanTrigger        bool
	MonitoringEnabled bool
	ShortcutEnabled   bool
	App               AppState
	ActiveCount       int
}

// DecideAlarm reports whether the alarm should be sounding.
func DecideAlarm(in Inputs) bool {
	return in.Authenticated && in.CanMonitor && in.MonitoringEnabled && in.ActiveCount > 0
}

// DecideShortcut returns the shortcut variant that should be visible.
func DecideShortcut(in Inputs) Shortcut {
	if !in.Authenticated || !in.ShortcutEnabled || in.App != Background {
		return ShortcutNone
	}
	if in.CanMonitor {
		return ShortcutAttention
	}
	if in.CanTrigger {
		return ShortcutTrigger
	}
	return ShortcutNone
}
