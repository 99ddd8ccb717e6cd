// Package monitor wires one signed-in session together: the live
// connection feeds the alert store, and the store, settings and session
// drive the local side effects.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/DesarrolloAlpha/Nexori-sub001/nexori"
	"github.com/DesarrolloAlpha/Nexori-sub001/nexori/alerts"
	"github.com/DesarrolloAlpha/Nexori-sub001/nexori/auth"
	"github.com/DesarrolloAlpha/Nexori-sub001/nexori/effects"
	"github.com/DesarrolloAlpha/Nexori-sub001/nexori/settings"
)

// refreshTimeout bounds the alert reload after a reconnect. Dispatch waits
// for it.
const refreshTimeout = 10 * time.Second

// Connection is the live channel the monitor drives. *nexori.Client
// satisfies it.
type Connection interface {
	alerts.EventSource
	Connect(ctx context.Context, credential string) error
	Disconnect()
	State() nexori.ConnectionState
}

// Options configures a Monitor. Gate and Conn are required.
type Options struct {
	Gate *auth.Gate
	Conn Connection

	// Backend loads the initial alert list. Optional.
	Backend alerts.Backend
	// Settings persists the user's toggles. Defaults to memory.
	Settings settings.Store

	Player   effects.Player
	Notifier effects.Notifier
	Logger   nexori.Logger

	DedupWindow time.Duration
}

// Monitor owns the per-session pipeline.
type Monitor struct {
	gate    *auth.Gate
	conn    Connection
	logger  nexori.Logger
	prefs   settings.Store
	store   *alerts.Store
	service *alerts.Service
	coord   *effects.Coordinator

	mu      sync.Mutex
	manager *settings.Manager
	offs    []func()
	running bool

	refreshMu sync.Mutex
}

// New builds a Monitor.
func New(opts Options) (*Monitor, error) {
	if opts.Gate == nil || opts.Conn == nil {
		return nil, nexori.NewError(nexori.ErrorInvalidConfig, "monitor needs a gate and a connection")
	}
	if opts.Logger == nil {
		opts.Logger = nexori.NopLogger{}
	}
	if opts.Settings == nil {
		opts.Settings = settings.NewMemoryStore()
	}

	m := &Monitor{
		gate:   opts.Gate,
		conn:   opts.Conn,
		logger: opts.Logger,
		prefs:  opts.Settings,
		store:  alerts.NewStore(alerts.NewGuard(opts.DedupWindow)),
		coord:  effects.NewCoordinator(opts.Player, opts.Notifier, opts.Logger),
	}
	if opts.Backend != nil {
		m.service = alerts.NewService(opts.Backend, m.store)
	}
	return m, nil
}

// Start loads the user's settings and the current alerts, then connects.
// The session must already be signed in. When Connect fails and the
// connection is not retrying on its own, Start undoes its wiring so a
// later Start begins from scratch.
func (m *Monitor) Start(ctx context.Context) error {
	sess := m.gate.Session()
	if !sess.Authenticated {
		return nexori.ErrMissingCredential
	}

	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = true
	manager := settings.NewManager(m.prefs, sess.UserID, m.logger)
	m.manager = manager
	m.mu.Unlock()

	manager.OnChange(m.coord.SetSettings)
	manager.Load(ctx)
	m.coord.SetSession(sess)
	m.coord.SetActiveCount(m.store.Stats().Active)

	offs := []func(){
		m.gate.OnChange(m.coord.SetSession),
		m.store.OnChange(func(v alerts.View) { m.coord.SetActiveCount(v.Stats.Active) }),
		m.store.OnNewAlert(m.coord.NewAlert),
		alerts.Bind(m.conn, m.store, m.logger),
		m.conn.On(nexori.EventReconnect, m.onReconnect),
	}
	m.mu.Lock()
	m.offs = offs
	m.mu.Unlock()

	m.refresh(ctx)

	if err := m.conn.Connect(ctx, ""); err != nil {
		m.logger.Warn("monitor: connect failed", map[string]any{
			"user":  sess.UserID,
			"error": err.Error(),
		})
		if m.conn.State() != nexori.StateReconnecting {
			m.Stop()
		}
		return err
	}
	m.logger.Info("monitor: started", map[string]any{"user": sess.UserID, "role": string(sess.Role)})
	return nil
}

// Stop disconnects and silences every side effect. The store keeps its
// contents.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	offs := m.offs
	m.offs = nil
	m.mu.Unlock()

	for _, off := range offs {
		off()
	}
	m.conn.Disconnect()
	m.coord.Shutdown()
	m.logger.Info("monitor: stopped", nil)
}

// SetAppState forwards a foreground/background transition. After Stop the
// coordinator is signed out, so only the foreground dismissal can happen.
func (m *Monitor) SetAppState(state effects.AppState) {
	m.coord.SetAppState(state)
}

// Store returns the alert store.
func (m *Monitor) Store() *alerts.Store { return m.store }

// Service returns the REST-backed alert service, or nil without a backend.
func (m *Monitor) Service() *alerts.Service { return m.service }

// Coordinator returns the side-effect coordinator.
func (m *Monitor) Coordinator() *effects.Coordinator { return m.coord }

// Settings returns the settings manager of the running session.
func (m *Monitor) Settings() *settings.Manager {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.manager
}

// onReconnect reloads the alert list. It runs on the connection's dispatch
// goroutine, so broadcasts received meanwhile are applied after the reload.
func (m *Monitor) onReconnect(nexori.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()
	m.refresh(ctx)
}

func (m *Monitor) refresh(ctx context.Context) {
	if m.service == nil {
		return
	}
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()
	if err := m.service.Refresh(ctx); err != nil {
		m.logger.Warn("monitor: alert refresh failed", map[string]any{"error": err.Error()})
	}
}
