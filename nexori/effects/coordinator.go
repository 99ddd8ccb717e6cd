package effects

import (
	"fmt"
	"sync"

	"github.com/DesarrolloAlpha/Nexori-sub001/nexori"
	"github.com/DesarrolloAlpha/Nexori-sub001/nexori/auth"
	"github.com/DesarrolloAlpha/Nexori-sub001/nexori/settings"
)

// ShortcutCategory is the notification category of the quick-access shortcut.
const ShortcutCategory = "quick_access"

// Player starts and stops the alarm sound.
type Player interface {
	Play() error
	Stop() error
}

// Notification is a local notification payload.
type Notification struct {
	Category string
	Title    string
	Body     string
	Data     map[string]string
}

// Notifier shows and dismisses local notifications.
type Notifier interface {
	Show(n Notification) error
	Dismiss(category string) error
	ClearBadge() error
	NotifyNewAlert(ev nexori.PanicEvent) error
}

// Coordinator re-evaluates the alarm and the shortcut on every input change
// and drives the outputs only when the decision flips. Calls to Player and
// Notifier happen under the coordinator's lock and must not call back into it.
type Coordinator struct {
	player   Player
	notifier Notifier
	logger   nexori.Logger

	mu       sync.Mutex
	in       Inputs
	playing  bool
	shortcut Shortcut
}

// NewCoordinator creates a Coordinator with default settings, a signed-out
// session and the app in the foreground. Nil outputs are ignored.
func NewCoordinator(player Player, notifier Notifier, logger nexori.Logger) *Coordinator {
	if logger == nil {
		logger = nexori.NopLogger{}
	}
	d := settings.Defaults()
	return &Coordinator{
		player:   player,
		notifier: notifier,
		logger:   logger,
		in: Inputs{
			MonitoringEnabled: d.BackgroundMonitoringEnabled,
			ShortcutEnabled:   d.QuickAccessShortcutEnabled,
		},
	}
}

// SetActiveCount updates the number of active alerts.
func (c *Coordinator) SetActiveCount(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.in.ActiveCount = n
	c.evaluateLocked()
}

// SetSettings updates the user's toggles.
func (c *Coordinator) SetSettings(s settings.AlertSettings) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.in.MonitoringEnabled = s.BackgroundMonitoringEnabled
	c.in.ShortcutEnabled = s.QuickAccessShortcutEnabled
	c.evaluateLocked()
}

// SetSession updates authentication and role.
func (c *Coordinator) SetSession(s auth.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.in.Authenticated = s.Authenticated
	c.in.CanMonitor = s.CanMonitor()
	c.in.CanTrigger = s.CanTrigger()
	c.evaluateLocked()
}

// SetAppState records a foreground/background transition. Coming to the
// foreground dismisses the shortcut and clears the badge before anything
// else is evaluated.
func (c *Coordinator) SetAppState(state AppState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.in.App == Background && state == Foreground {
		if c.notifier != nil {
			c.report("dismiss shortcut", c.notifier.Dismiss(ShortcutCategory))
			c.report("clear badge", c.notifier.ClearBadge())
		}
		c.shortcut = ShortcutNone
	}
	c.in.App = state
	c.evaluateLocked()
}

// NewAlert raises a notification for ev when the session is monitoring.
func (c *Coordinator) NewAlert(ev nexori.PanicEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.in.Authenticated || !c.in.CanMonitor || c.notifier == nil {
		return
	}
	c.report("notify new alert", c.notifier.NotifyNewAlert(ev))
}

// Shutdown stops the alarm, dismisses the shortcut and forgets the session
// and the active count, so later app state changes cannot restart either
// until SetSession and SetActiveCount are called again.
func (c *Coordinator) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.in.Authenticated = false
	c.in.CanMonitor = false
	c.in.CanTrigger = false
	c.in.ActiveCount = 0
	if c.playing && c.player != nil {
		c.report("stop alarm", c.player.Stop())
	}
	c.playing = false
	c.dismissLocked()
}

// Inputs returns the current inputs.
func (c *Coordinator) Inputs() Inputs {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.in
}

// Playing reports whether the alarm is sounding.
func (c *Coordinator) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

// Shortcut returns the visible shortcut variant.
func (c *Coordinator) Shortcut() Shortcut {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shortcut
}

func (c *Coordinator) evaluateLocked() {
	if want := DecideAlarm(c.in); want != c.playing {
		c.playing = want
		if c.player != nil {
			if want {
				c.report("play alarm", c.player.Play())
			} else {
				c.report("stop alarm", c.player.Stop())
			}
		}
		c.logger.Debug("effects: alarm", map[string]any{"playing": want, "active": c.in.ActiveCount})
	}

	want := DecideShortcut(c.in)
	if want == c.shortcut {
		return
	}
	c.dismissLocked()
	if want == ShortcutNone || c.notifier == nil {
		return
	}
	c.report("show shortcut", c.notifier.Show(shortcutNotification(want)))
	c.shortcut = want
	c.logger.Debug("effects: shortcut", map[string]any{"variant": want.String()})
}

func (c *Coordinator) dismissLocked() {
	if c.shortcut == ShortcutNone {
		return
	}
	if c.notifier != nil {
		c.report("dismiss shortcut", c.notifier.Dismiss(ShortcutCategory))
	}
	c.shortcut = ShortcutNone
}

func (c *Coordinator) report(op string, err error) {
	if err != nil {
		c.logger.Warn(fmt.Sprintf("effects: %s failed", op), map[string]any{"error": err.Error()})
	}
}

func shortcutNotification(s Shortcut) Notification {
	n := Notification{
		Category: ShortcutCategory,
		Data:     map[string]string{"type": s.Type()},
	}
	switch s {
	case ShortcutAttention:
		n.Title = "Panic alerts"
		n.Body = "Tap to review active alerts"
	case ShortcutTrigger:
		n.Title = "Panic button"
		n.Body = "Tap to raise a panic alert"
	}
	return n
}
