package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/DesarrolloAlpha/Nexori-sub001/nexori"
	"github.com/DesarrolloAlpha/Nexori-sub001/nexori/auth"
	"github.com/DesarrolloAlpha/Nexori-sub001/nexori/effects"
	"github.com/DesarrolloAlpha/Nexori-sub001/nexori/rest"
	"github.com/DesarrolloAlpha/Nexori-sub001/nexori/settings"
)

// fakeConn routes pushed events through a real Registry.
type fakeConn struct {
	reg *nexori.Registry

	mu          sync.Mutex
	connects    int
	disconnects int
	connectErr  error
	// failState is the state reported after a failed Connect.
	failState nexori.ConnectionState
	state     nexori.ConnectionState
}

func newFakeConn() *fakeConn {
	return &fakeConn{reg: nexori.NewRegistry(nil)}
}

func (c *fakeConn) On(name nexori.EventName, fn nexori.Handler) func() {
	sub := c.reg.Register(name, fn)
	return func() { c.reg.Unregister(name, sub) }
}

func (c *fakeConn) Connect(context.Context, string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connects++
	if c.connectErr != nil {
		c.state = c.failState
		return c.connectErr
	}
	c.state = nexori.StateConnected
	return nil
}

func (c *fakeConn) Disconnect() {
	c.mu.Lock()
	c.disconnects++
	c.state = nexori.StateDisconnected
	c.mu.Unlock()
}

func (c *fakeConn) State() nexori.ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *fakeConn) connectCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connects
}

func (c *fakeConn) push(t *testing.T, name nexori.EventName, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	c.reg.Dispatch(nexori.Event{Name: name, Data: data})
}

type fakeBackend struct {
	mu    sync.Mutex
	list  []nexori.PanicEvent
	calls int

	// duringList runs inside ListPanics with the 1-based call number.
	duringList func(call int)
}

func (b *fakeBackend) ListPanics(context.Context) ([]nexori.PanicEvent, error) {
	b.mu.Lock()
	b.calls++
	call, list, during := b.calls, b.list, b.duringList
	b.mu.Unlock()

	if during != nil {
		during(call)
	}
	return list, nil
}

func (b *fakeBackend) CreatePanic(context.Context, rest.CreatePanicRequest) (*nexori.PanicEvent, error) {
	return nil, errors.New("not used")
}

func (b *fakeBackend) UpdatePanic(context.Context, string, rest.UpdatePanicRequest) (*nexori.PanicEvent, error) {
	return nil, errors.New("not used")
}

func (b *fakeBackend) listCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(s string) error {
	r.mu.Lock()
	r.calls = append(r.calls, s)
	r.mu.Unlock()
	return nil
}

func (r *recorder) Play() error { return r.add("play") }
func (r *recorder) Stop() error { return r.add("stop") }
func (r *recorder) Show(n effects.Notification) error { return r.add("show:" + n.Data["type"]) }
func (r *recorder) Dismiss(category string) error { return r.add("dismiss:" + category) }
func (r *recorder) ClearBadge() error { return r.add("badge") }
func (r *recorder) NotifyNewAlert(ev nexori.PanicEvent) error { return r.add("alert:" + ev.ID) }

func (r *recorder) take() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := strings.Join(r.calls, ",")
	r.calls = nil
	return s
}

func signedInGate(t *testing.T, role auth.Role) *auth.Gate {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		Name:             "Ana",
		Role:             role,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"},
	}).SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	g := auth.NewGate()
	if _, err := g.SetToken(tok); err != nil {
		t.Fatalf("SetToken: %v", err)
	}
	return g
}

func TestNewRequiresGateAndConn(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestStartRequiresSignIn(t *testing.T) {
	conn := newFakeConn()
	m, err := New(Options{Gate: auth.NewGate(), Conn: conn})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := m.Start(context.Background()); !errors.Is(err, nexori.ErrMissingCredential) {
		t.Fatalf("Start err = %v", err)
	}
	if conn.connects != 0 {
		t.Fatal("connect should not be attempted")
	}
}

func TestPipeline(t *testing.T) {
	conn := newFakeConn()
	rec := &recorder{}
	backend := &fakeBackend{list: []nexori.PanicEvent{{ID: "old", Status: nexori.PanicResolved}}}
	gate := signedInGate(t, auth.RoleSecurity)

	m, err := New(Options{
		Gate:     gate,
		Conn:     conn,
		Backend:  backend,
		Player:   rec,
		Notifier: rec,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if conn.connects != 1 || backend.listCalls() != 1 {
		t.Fatalf("connects=%d list=%d", conn.connects, backend.listCalls())
	}
	if n := len(m.Store().All()); n != 1 {
		t.Fatalf("store has %d records after refresh", n)
	}
	rec.take()

	p1 := nexori.PanicEvent{ID: "p1", Status: nexori.PanicActive, Priority: nexori.PriorityHigh}
	conn.push(t, nexori.EventPanicCreated, p1)
	conn.push(t, nexori.EventPanicCreated, p1)
	if got := rec.take(); got != "play,alert:p1" {
		t.Fatalf("calls after creation = %q", got)
	}

	p1.Status = nexori.PanicAttended
	conn.push(t, nexori.EventPanicUpdated, p1)
	if got := rec.take(); got != "stop" {
		t.Fatalf("calls after attend = %q", got)
	}
	if st := m.Store().Stats(); st.Active != 0 || st.InProgress != 1 || st.Total != 2 {
		t.Fatalf("stats = %+v", st)
	}

	if err := m.Settings().SetQuickAccessShortcut(context.Background(), true); err != nil {
		t.Fatalf("SetQuickAccessShortcut: %v", err)
	}
	m.SetAppState(effects.Background)
	if got := rec.take(); got != "show:panic_attention" {
		t.Fatalf("calls after background = %q", got)
	}

	gate.Clear()
	if got := rec.take(); got != "dismiss:quick_access" {
		t.Fatalf("calls after sign out = %q", got)
	}

	m.Stop()
	m.Stop()
	if conn.disconnects != 1 {
		t.Fatalf("disconnects = %d, want 1", conn.disconnects)
	}
	if n := conn.reg.Len(nexori.EventPanicCreated); n != 0 {
		t.Fatalf("handlers left after Stop: %d", n)
	}
}

func TestReconnectRefreshes(t *testing.T) {
	conn := newFakeConn()
	backend := &fakeBackend{}
	m, err := New(Options{Gate: signedInGate(t, auth.RoleAdmin), Conn: conn, Backend: backend})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	conn.reg.Dispatch(nexori.Event{Name: nexori.EventReconnect})

	deadline := time.Now().Add(time.Second)
	for backend.listCalls() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("list calls = %d, want 2", backend.listCalls())
		}
		time.Sleep(time.Millisecond)
	}
	m.Stop()
}

func TestSettingsAreLoadedForUser(t *testing.T) {
	ctx := context.Background()
	store := settings.NewMemoryStore()
	_ = store.Save(ctx, settings.Key("u1"), settings.AlertSettings{BackgroundMonitoringEnabled: false})

	rec := &recorder{}
	conn := newFakeConn()
	m, err := New(Options{Gate: signedInGate(t, auth.RoleSecurity), Conn: conn, Settings: store, Player: rec})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	conn.push(t, nexori.EventPanicCreated, nexori.PanicEvent{ID: "p1", Status: nexori.PanicActive})
	if got := rec.take(); got != "" {
		t.Fatalf("alarm played with monitoring off: %q", got)
	}
	if in := m.Coordinator().Inputs(); in.MonitoringEnabled || in.ActiveCount != 1 {
		t.Fatalf("inputs = %+v", in)
	}
	m.Stop()
}

func TestStoppedMonitorStaysSilent(t *testing.T) {
	conn := newFakeConn()
	rec := &recorder{}
	m, err := New(Options{Gate: signedInGate(t, auth.RoleSecurity), Conn: conn, Player: rec, Notifier: rec})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	conn.push(t, nexori.EventPanicCreated, nexori.PanicEvent{ID: "p1", Status: nexori.PanicActive})
	if got := rec.take(); got != "play,alert:p1" {
		t.Fatalf("calls after creation = %q", got)
	}

	m.Stop()
	if got := rec.take(); got != "stop" {
		t.Fatalf("calls after Stop = %q", got)
	}
	m.SetAppState(effects.Background)
	if got := rec.take(); got != "" {
		t.Fatalf("calls after Stop and background = %q", got)
	}
	if m.Coordinator().Playing() {
		t.Fatal("alarm playing after Stop")
	}
}

func TestRestartResumesAlarmForStoredAlerts(t *testing.T) {
	conn := newFakeConn()
	rec := &recorder{}
	m, err := New(Options{Gate: signedInGate(t, auth.RoleSecurity), Conn: conn, Player: rec})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	conn.push(t, nexori.EventPanicCreated, nexori.PanicEvent{ID: "p1", Status: nexori.PanicActive})
	m.Stop()
	rec.take()

	if err := m.Start(ctx); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if got := rec.take(); got != "play" {
		t.Fatalf("calls after restart = %q", got)
	}
	m.Stop()
}

func TestStartRetriesAfterFailedConnect(t *testing.T) {
	conn := newFakeConn()
	conn.connectErr = nexori.ErrTimeout
	conn.failState = nexori.StateFailed
	m, err := New(Options{Gate: signedInGate(t, auth.RoleSecurity), Conn: conn})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	if err := m.Start(ctx); !errors.Is(err, nexori.ErrTimeout) {
		t.Fatalf("first Start err = %v", err)
	}
	if n := conn.reg.Len(nexori.EventPanicCreated); n != 0 {
		t.Fatalf("handlers left after failed Start: %d", n)
	}

	conn.mu.Lock()
	conn.connectErr = nil
	conn.mu.Unlock()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if n := conn.connectCount(); n != 2 {
		t.Fatalf("connects = %d, want 2", n)
	}
	if n := conn.reg.Len(nexori.EventPanicCreated); n != 1 {
		t.Fatalf("panic:created handlers = %d, want 1", n)
	}
	m.Stop()
}

func TestStartKeepsWiringWhileReconnecting(t *testing.T) {
	conn := newFakeConn()
	conn.connectErr = nexori.ErrTransport
	conn.failState = nexori.StateReconnecting
	m, err := New(Options{Gate: signedInGate(t, auth.RoleSecurity), Conn: conn})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := m.Start(context.Background()); err == nil {
		t.Fatal("expected connect error")
	}
	if n := conn.reg.Len(nexori.EventPanicCreated); n != 1 {
		t.Fatalf("panic:created handlers = %d, want 1", n)
	}
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("second Start = %v, want nil while retrying", err)
	}
	if n := conn.connectCount(); n != 1 {
		t.Fatalf("connects = %d, want 1", n)
	}
	m.Stop()
}

func TestReconnectRefreshKeepsBroadcastsDuringFetch(t *testing.T) {
	conn := newFakeConn()
	rec := &recorder{}
	backend := &fakeBackend{}
	backend.duringList = func(call int) {
		if call == 2 {
			conn.push(t, nexori.EventPanicCreated, nexori.PanicEvent{ID: "p2", Status: nexori.PanicActive})
		}
	}
	m, err := New(Options{Gate: signedInGate(t, auth.RoleSecurity), Conn: conn, Backend: backend, Player: rec, Notifier: rec})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	rec.take()

	conn.reg.Dispatch(nexori.Event{Name: nexori.EventReconnect})
	if got := rec.take(); got != "play,alert:p2" {
		t.Fatalf("calls across reconnect refresh = %q", got)
	}
	if _, ok := m.Store().Get("p2"); !ok {
		t.Fatal("p2 lost by the refresh")
	}

	conn.push(t, nexori.EventPanicUpdated, nexori.PanicEvent{ID: "p2", Status: nexori.PanicAttended})
	if got, _ := m.Store().Get("p2"); got.Status != nexori.PanicAttended {
		t.Fatalf("p2 status = %s, want attended", got.Status)
	}
	if got := rec.take(); got != "stop" {
		t.Fatalf("calls after attend = %q", got)
	}
	m.Stop()
}
