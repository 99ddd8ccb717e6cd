package effects

import (
	"strings"
	"testing"

	"github.com/DesarrolloAlpha/Nexori-sub001/nexori"
	"github.com/DesarrolloAlpha/Nexori-sub001/nexori/auth"
	"github.com/DesarrolloAlpha/Nexori-sub001/nexori/settings"
)

// recorder implements Player and Notifier and logs every call in order.
type recorder struct {
	calls []string
}

func (r *recorder) Play() error { r.calls = append(r.calls, "play"); return nil }
func (r *recorder) Stop() error { r.calls = append(r.calls, "stop"); return nil }

func (r *recorder) Show(n Notification) error {
	r.calls = append(r.calls, "show:"+n.Data["type"])
	return nil
}

func (r *recorder) Dismiss(category string) error {
	r.calls = append(r.calls, "dismiss:"+category)
	return nil
}

func (r *recorder) ClearBadge() error { r.calls = append(r.calls, "badge"); return nil }

func (r *recorder) NotifyNewAlert(ev nexori.PanicEvent) error {
	r.calls = append(r.calls, "alert:"+ev.ID)
	return nil
}

func (r *recorder) take() string {
	s := strings.Join(r.calls, ",")
	r.calls = nil
	return s
}

func session(role auth.Role) auth.Session {
	return auth.Session{UserID: "u1", Role: role, Authenticated: true}
}

func TestDecideAlarm(t *testing.T) {
	base := Inputs{Authenticated: true, CanMonitor: true, MonitoringEnabled: true, ActiveCount: 1}
	if !DecideAlarm(base) {
		t.Fatal("all conditions hold, alarm should play")
	}
	flips := map[string]func(*Inputs){
		"signed out":   func(in *Inputs) { in.Authenticated = false },
		"cannot watch": func(in *Inputs) { in.CanMonitor = false },
		"setting off":  func(in *Inputs) { in.MonitoringEnabled = false },
		"no active":    func(in *Inputs) { in.ActiveCount = 0 },
	}
	for name, flip := range flips {
		in := base
		flip(&in)
		if DecideAlarm(in) {
			t.Errorf("%s: alarm should be off", name)
		}
	}
}

func TestDecideShortcut(t *testing.T) {
	tests := []struct {
		name string
		in   Inputs
		want Shortcut
	}{
		{"monitor in background", Inputs{Authenticated: true, ShortcutEnabled: true, CanMonitor: true, CanTrigger: true, App: Background}, ShortcutAttention},
		{"trigger only", Inputs{Authenticated: true, ShortcutEnabled: true, CanTrigger: true, App: Background}, ShortcutTrigger},
		{"foreground", Inputs{Authenticated: true, ShortcutEnabled: true, CanMonitor: true, App: Foreground}, ShortcutNone},
		{"setting off", Inputs{Authenticated: true, CanMonitor: true, App: Background}, ShortcutNone},
		{"signed out", Inputs{ShortcutEnabled: true, CanMonitor: true, App: Background}, ShortcutNone},
		{"no permissions", Inputs{Authenticated: true, ShortcutEnabled: true, App: Background}, ShortcutNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecideShortcut(tt.in); got != tt.want {
				t.Fatalf("DecideShortcut = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestAlarmFlipsOncePerChange(t *testing.T) {
	r := &recorder{}
	c := NewCoordinator(r, r, nil)

	c.SetSession(session(auth.RoleSecurity))
	c.SetActiveCount(1)
	c.SetActiveCount(2)
	c.SetActiveCount(3)
	if got := r.take(); got != "play" {
		t.Fatalf("calls = %q, want play", got)
	}

	c.SetSettings(settings.AlertSettings{BackgroundMonitoringEnabled: false})
	c.SetSettings(settings.AlertSettings{BackgroundMonitoringEnabled: false})
	if got := r.take(); got != "stop" {
		t.Fatalf("calls = %q, want stop", got)
	}

	c.SetSettings(settings.Defaults())
	c.SetActiveCount(0)
	c.SetActiveCount(0)
	if got := r.take(); got != "play,stop" {
		t.Fatalf("calls = %q, want play,stop", got)
	}
	if c.Playing() {
		t.Fatal("alarm should be off")
	}
}

func TestAlarmStopsOnSignOut(t *testing.T) {
	r := &recorder{}
	c := NewCoordinator(r, r, nil)
	c.SetSession(session(auth.RoleAdmin))
	c.SetActiveCount(1)
	c.SetSession(auth.Session{})
	if got := r.take(); got != "play,stop" {
		t.Fatalf("calls = %q", got)
	}
}

func TestUserRoleNeverPlaysAlarm(t *testing.T) {
	r := &recorder{}
	c := NewCoordinator(r, r, nil)
	c.SetSession(session(auth.RoleUser))
	c.SetActiveCount(5)
	if got := r.take(); got != "" {
		t.Fatalf("calls = %q, want none", got)
	}
}

func TestShortcutVariantSwitchDismissesFirst(t *testing.T) {
	r := &recorder{}
	c := NewCoordinator(r, r, nil)
	c.SetSettings(settings.AlertSettings{QuickAccessShortcutEnabled: true})
	c.SetSession(session(auth.RoleUser))
	c.SetAppState(Background)
	if got := r.take(); got != "show:panic_trigger" {
		t.Fatalf("calls = %q", got)
	}

	c.SetSession(session(auth.RoleSupervisor))
	if got := r.take(); got != "dismiss:quick_access,show:panic_attention" {
		t.Fatalf("calls = %q", got)
	}
	if c.Shortcut() != ShortcutAttention {
		t.Fatalf("Shortcut() = %s", c.Shortcut())
	}
}

func TestForegroundDismissesBeforeAnythingElse(t *testing.T) {
	r := &recorder{}
	c := NewCoordinator(r, r, nil)
	c.SetSettings(settings.AlertSettings{BackgroundMonitoringEnabled: true, QuickAccessShortcutEnabled: true})
	c.SetSession(session(auth.RoleSecurity))
	c.SetAppState(Background)
	r.take()

	c.SetAppState(Foreground)
	if got := r.take(); got != "dismiss:quick_access,badge" {
		t.Fatalf("calls = %q", got)
	}
	if c.Shortcut() != ShortcutNone {
		t.Fatalf("Shortcut() = %s, want none", c.Shortcut())
	}

	// Foreground with nothing shown still dismisses.
	c.SetAppState(Background)
	c.SetSettings(settings.Defaults())
	r.take()
	c.SetAppState(Foreground)
	if got := r.take(); got != "dismiss:quick_access,badge" {
		t.Fatalf("calls = %q", got)
	}
}

func TestNewAlertOnlyForMonitors(t *testing.T) {
	r := &recorder{}
	c := NewCoordinator(r, r, nil)
	ev := nexori.PanicEvent{ID: "p1"}

	c.NewAlert(ev)
	c.SetSession(session(auth.RoleUser))
	c.NewAlert(ev)
	if got := r.take(); got != "" {
		t.Fatalf("calls = %q, want none", got)
	}

	c.SetSession(session(auth.RoleSecurity))
	c.NewAlert(ev)
	if got := r.take(); got != "alert:p1" {
		t.Fatalf("calls = %q", got)
	}
}

func TestShutdown(t *testing.T) {
	r := &recorder{}
	c := NewCoordinator(r, r, nil)
	c.SetSettings(settings.AlertSettings{BackgroundMonitoringEnabled: true, QuickAccessShortcutEnabled: true})
	c.SetSession(session(auth.RoleSecurity))
	c.SetActiveCount(1)
	c.SetAppState(Background)
	r.take()

	c.Shutdown()
	if got := r.take(); got != "stop,dismiss:quick_access" {
		t.Fatalf("calls = %q", got)
	}

	// App transitions after shutdown must not bring the alarm back.
	c.SetAppState(Foreground)
	r.take()
	c.SetAppState(Background)
	c.NewAlert(nexori.PanicEvent{ID: "p2"})
	if got := r.take(); got != "" {
		t.Fatalf("calls after shutdown = %q", got)
	}
	if c.Playing() || c.Shortcut() != ShortcutNone {
		t.Fatal("effects active after shutdown")
	}
}

func TestNilOutputs(t *testing.T) {
	c := NewCoordinator(nil, nil, nil)
	c.SetSession(session(auth.RoleSecurity))
	c.SetActiveCount(1)
	c.SetAppState(Background)
	c.SetAppState(Foreground)
	c.NewAlert(nexori.PanicEvent{ID: "p1"})
	if !c.Playing() {
		t.Fatal("decision should be tracked without a player")
	}
}
