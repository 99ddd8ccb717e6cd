package nexori

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Client owns one persistent connection to the event server.
//
// It knows nothing about domain events: it moves frames between the
// transport and the Registry, keeps the room membership applied across
// reconnects and exposes the connection state.
type Client struct {
	cfg         Config
	id          string
	logger      Logger
	dialer      Dialer
	credentials CredentialSource
	registry    *Registry
	queue       *eventQueue

	mu         sync.Mutex
	state      ConnectionState
	lastErr    error
	token      string // tags the live attempt; timers and loops holding another token are stale
	attempts   int    // reconnect attempts since the last Connected
	credential string
	pending    *attempt
	conn       *session
	timer      *time.Timer
	rooms      *rooms
	stateSubs  []stateSub
	stateSeq   uint64
	closed     bool
}

type stateSub struct {
	id uint64
	fn func(StateEvent)
}

type attempt struct {
	token  string
	n      int // 0 for Connect, k for the k-th automatic reconnect
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
	err    error
}

func (a *attempt) finish(err error) {
	a.once.Do(func() {
		a.err = err
		close(a.done)
	})
}

type session struct {
	token   string
	tr      Transport
	writeCh chan Frame
	cancel  context.CancelFunc
}

func (s *session) enqueue(f Frame) bool {
	select {
	case s.writeCh <- f:
		return true
	default:
		return false
	}
}

// Option customizes a Client.
type Option func(*Client)

// WithDialer replaces the websocket dialer.
func WithDialer(d Dialer) Option {
	return func(c *Client) {
		if d != nil {
			c.dialer = d
		}
	}
}

// WithCredentials sets where Connect looks up a credential when none is passed.
func WithCredentials(src CredentialSource) Option {
	return func(c *Client) { c.credentials = src }
}

// WithLogger overrides logger (optional).
func WithLogger(l Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient constructs a client with provided config.
// Use DefaultConfig() as a starting point and modify as needed.
func NewClient(cfg Config, opts ...Option) *Client {
	if cfg.WriteQueueSize <= 0 {
		cfg.WriteQueueSize = 16
	}
	c := &Client{
		cfg:    cfg,
		id:     uuid.NewString(),
		logger: NopLogger{},
		rooms:  newRooms(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.dialer == nil {
		c.dialer = newWebsocketDialer(cfg)
	}
	c.registry = NewRegistry(c.logger)
	c.queue = newEventQueue()
	c.registry.Register(EventSocketConnected, c.onSessionConfirmed)
	return c
}

// Connect starts a connection attempt and waits for its outcome.
//
// While an attempt is in flight further calls wait for that same attempt.
// While connected it returns nil at once; a different credential passed then
// is not applied and only logged. Disconnect first to switch credentials.
// An empty credential falls back to the CredentialSource, then Config.Token.
// ctx only bounds the wait; the attempt itself is bounded by
// Config.HandshakeTimeout.
func (c *Client) Connect(ctx context.Context, credential string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return NewError(ErrorInvalidConfig, "client closed")
	}
	if c.state == StateConnected {
		ignored := credential != "" && credential != c.credential
		c.mu.Unlock()
		if ignored {
			c.logger.Warn("already connected, new credential ignored until the next connect", map[string]any{"client": c.id})
		}
		return nil
	}
	if p := c.pending; p != nil {
		c.mu.Unlock()
		return waitAttempt(ctx, p)
	}
	if c.cfg.URL == "" {
		c.mu.Unlock()
		return NewError(ErrorInvalidConfig, "empty URL")
	}
	if credential != "" {
		c.credential = credential
	}
	c.stopTimerLocked()
	c.attempts = 0
	p := c.beginAttemptLocked(0)
	ev := c.setStateLocked(StateConnecting, nil)
	c.mu.Unlock()

	c.emitState(ev)
	go c.runAttempt(p)
	return waitAttempt(ctx, p)
}

// Disconnect closes the connection and cancels pending timers. It always
// leaves the client Disconnected; rooms are kept for the next Connect.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.token = ""
	c.stopTimerLocked()
	p := c.pending
	c.pending = nil
	s := c.conn
	c.conn = nil
	c.attempts = 0
	ev := c.setStateLocked(StateDisconnected, nil)
	c.mu.Unlock()

	if p != nil {
		p.cancel()
		p.finish(NewError(ErrorNotConnected, "disconnected before handshake"))
	}
	if s != nil {
		s.cancel()
		_ = s.tr.Close("client disconnect")
	}
	c.emitState(ev)
	if s != nil {
		c.logger.Info("disconnected", map[string]any{"client": c.id})
		c.dispatchLocal(EventDisconnect, LifecycleInfo{Reason: "io client disconnect"}, nil)
	}
}

// Close tears the client down: it disconnects, drains queued dispatches and
// drops every handler. The client cannot be reused.
func (c *Client) Close() error {
	c.Disconnect()
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.queue.push(c.registry.Clear)
	c.queue.close()
	return nil
}

// On registers fn for every future dispatch of name and returns an
// idempotent unsubscribe function. Names outside the event table are refused.
func (c *Client) On(name EventName, fn Handler) (unsubscribe func()) {
	if fn == nil || !IsKnownEvent(name) {
		c.logger.Warn("ignoring handler registration", map[string]any{"event": string(name)})
		return func() {}
	}
	sub := c.registry.Register(name, fn)
	var once sync.Once
	return func() {
		once.Do(func() { c.registry.Unregister(name, sub) })
	}
}

// Subscribe registers a handler that receives the payload of name decoded as T.
// Payloads that fail to decode are reported to error handlers and skipped.
func Subscribe[T any](c *Client, name EventName, fn func(T)) (unsubscribe func()) {
	return c.On(name, func(ev Event) {
		var v T
		if err := UnmarshalData(ev.Data, &v); err != nil {
			c.reportError(WrapError(ErrorSerialization, "failed to unmarshal "+string(name)+" event", err))
			return
		}
		fn(v)
	})
}

// OnPanicCreated registers callback for panic:created broadcasts.
func (c *Client) OnPanicCreated(fn func(PanicEvent)) func() {
	return Subscribe(c, EventPanicCreated, fn)
}

// OnPanicUpdated registers callback for panic:updated broadcasts.
func (c *Client) OnPanicUpdated(fn func(PanicEvent)) func() {
	return Subscribe(c, EventPanicUpdated, fn)
}

// OnPanicResolved registers callback for panic:resolved broadcasts.
func (c *Client) OnPanicResolved(fn func(PanicEvent)) func() {
	return Subscribe(c, EventPanicResolved, fn)
}

// OnError registers callback for protocol and decoding errors.
func (c *Client) OnError(fn func(error)) func() {
	sub := c.registry.Register(eventError, func(ev Event) { fn(ev.Err) })
	var once sync.Once
	return func() {
		once.Do(func() { c.registry.Unregister(eventError, sub) })
	}
}

// OnStateChanged registers callback for connection state transitions.
func (c *Client) OnStateChanged(fn func(StateEvent)) func() {
	c.mu.Lock()
	c.stateSeq++
	id := c.stateSeq
	c.stateSubs = append(c.stateSubs, stateSub{id: id, fn: fn})
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, s := range c.stateSubs {
			if s.id == id {
				c.stateSubs = append(c.stateSubs[:i:i], c.stateSubs[i+1:]...)
				return
			}
		}
	}
}

// Emit sends name with payload to the server. It returns false when the
// client is not Connected, the payload cannot be encoded or the write queue
// is full.
func (c *Client) Emit(name EventName, payload any) bool {
	f, err := newFrame(name, payload)
	if err != nil {
		c.logger.Warn("emit: encode payload", map[string]any{"event": string(name), "error": err.Error()})
		return false
	}
	c.mu.Lock()
	s := c.liveSessionLocked()
	c.mu.Unlock()
	if s == nil {
		return false
	}
	if !s.enqueue(f) {
		c.logger.Warn("emit: write queue full", map[string]any{"event": string(name)})
		return false
	}
	return true
}

// JoinRoom adds name to the room membership. The join request is sent now
// when Connected, otherwise on the next transition to Connected.
func (c *Client) JoinRoom(name string) {
	c.mu.Lock()
	added := c.rooms.add(name)
	s := c.liveSessionLocked()
	c.mu.Unlock()
	if added && s != nil {
		c.sendRoom(s, eventJoinRoom, name)
	}
}

// LeaveRoom removes name from the room membership, telling the server when
// Connected.
func (c *Client) LeaveRoom(name string) {
	c.mu.Lock()
	removed := c.rooms.remove(name)
	s := c.liveSessionLocked()
	c.mu.Unlock()
	if removed && s != nil {
		c.sendRoom(s, eventLeaveRoom, name)
	}
}

// Rooms returns the current room membership in join order.
func (c *Client) Rooms() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rooms.list()
}

// IsConnected reports whether the client is Connected.
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected
}

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastError returns the error behind the most recent failed transition.
func (c *Client) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// ReconnectAttempts returns the automatic attempts made since the last
// successful handshake.
func (c *Client) ReconnectAttempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

func (c *Client) beginAttemptLocked(n int) *attempt {
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if c.cfg.HandshakeTimeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), c.cfg.HandshakeTimeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	p := &attempt{
		token:  uuid.NewString(),
		n:      n,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	c.token = p.token
	c.pending = p
	return p
}

func (c *Client) runAttempt(p *attempt) {
	credential := c.resolveCredential(p.ctx)
	if credential == "" {
		c.attemptFailed(p, ErrMissingCredential)
		return
	}

	c.logger.Debug("dialing", map[string]any{"client": c.id, "url": c.cfg.URL, "attempt": p.n})
	tr, err := c.dialer.Dial(p.ctx, c.cfg.URL, credential)
	if err != nil {
		c.attemptFailed(p, err)
		return
	}
	c.opened(p, tr)
}

func (c *Client) resolveCredential(ctx context.Context) string {
	c.mu.Lock()
	credential := c.credential
	c.mu.Unlock()
	if credential != "" {
		return credential
	}
	if c.credentials != nil {
		token, err := c.credentials.Token(ctx)
		if err != nil {
			c.logger.Warn("credential lookup failed", map[string]any{"error": err.Error()})
		}
		if token != "" {
			return token
		}
	}
	return c.cfg.Token
}

func (c *Client) opened(p *attempt, tr Transport) {
	c.mu.Lock()
	if c.pending != p {
		c.mu.Unlock()
		_ = tr.Close("stale attempt")
		return
	}
	c.pending = nil
	reconnected := p.n > 0
	c.attempts = 0
	c.lastErr = nil

	runCtx, cancel := context.WithCancel(context.Background())
	s := &session{
		token:   p.token,
		tr:      tr,
		writeCh: make(chan Frame, c.cfg.WriteQueueSize),
		cancel:  cancel,
	}
	c.conn = s
	joins := c.rooms.list()
	ev := c.setStateLocked(StateConnected, nil)
	c.mu.Unlock()

	p.cancel()
	p.finish(nil)

	c.logger.Info("connected", map[string]any{"client": c.id, "attempt": p.n, "rooms": len(joins)})
	go c.writeLoop(runCtx, s, joins)

	// Lifecycle signals are queued before the first inbound frame can be.
	c.emitState(ev)
	c.dispatchLocal(EventConnect, LifecycleInfo{}, nil)
	if reconnected {
		c.dispatchLocal(EventReconnect, LifecycleInfo{Attempt: p.n}, nil)
	}
	go c.readLoop(runCtx, s)
}

func (c *Client) attemptFailed(p *attempt, cause error) {
	c.mu.Lock()
	if c.pending != p {
		c.mu.Unlock()
		return
	}
	c.pending = nil

	timedOut := errors.Is(p.ctx.Err(), context.DeadlineExceeded) || errors.Is(cause, context.DeadlineExceeded)
	var (
		err        error
		ev         *StateEvent
		lifecycles []Event
	)
	switch {
	case errors.Is(cause, ErrMissingCredential):
		err = cause
		ev = c.setStateLocked(StateFailed, err)
	case timedOut && p.n == 0:
		err = WrapError(ErrorTimeout, "handshake deadline exceeded", cause)
		ev = c.setStateLocked(StateFailed, err)
		lifecycles = append(lifecycles, Event{Name: EventConnectError, Err: err})
	default:
		if timedOut {
			err = WrapError(ErrorTimeout, "handshake deadline exceeded", cause)
		} else {
			err = WrapError(ErrorTransport, "dial failed", cause)
		}
		lifecycles = append(lifecycles, Event{Name: EventConnectError, Err: err})

		switch {
		case !c.cfg.AutoReconnect || c.cfg.MaxReconnectTries <= 0:
			ev = c.setStateLocked(StateFailed, err)
		case p.n >= c.cfg.MaxReconnectTries:
			final := WrapError(ErrorReconnectFailed, fmt.Sprintf("gave up after %d attempts", p.n), err)
			ev = c.setStateLocked(StateFailed, final)
			lifecycles = append(lifecycles, Event{Name: EventReconnectFailed, Err: final})
		default:
			ev = c.setStateLocked(StateReconnecting, err)
			c.scheduleReconnectLocked(p.n + 1)
		}
	}
	c.mu.Unlock()

	p.cancel()
	p.finish(err)

	c.logger.Warn("connection attempt failed", map[string]any{
		"client":  c.id,
		"attempt": p.n,
		"error":   err.Error(),
	})
	c.emitState(ev)
	for _, lc := range lifecycles {
		c.dispatchLocal(lc.Name, LifecycleInfo{Attempt: p.n, Reason: lc.Err.Error()}, lc.Err)
	}
}

func (c *Client) scheduleReconnectLocked(n int) {
	c.stopTimerLocked()
	token := c.token
	delay := c.cfg.reconnectDelay(n)
	c.timer = time.AfterFunc(delay, func() { c.reconnect(token, n) })
}

func (c *Client) reconnect(token string, n int) {
	c.mu.Lock()
	if c.token != token || c.state != StateReconnecting || c.pending != nil {
		c.mu.Unlock()
		c.logger.Debug("ignoring stale reconnect timer", map[string]any{"client": c.id, "attempt": n})
		return
	}
	c.timer = nil
	c.attempts = n
	p := c.beginAttemptLocked(n)
	c.mu.Unlock()

	c.dispatchLocal(EventReconnectAttempt, LifecycleInfo{Attempt: n}, nil)
	c.runAttempt(p)
}

func (c *Client) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Client) readLoop(ctx context.Context, s *session) {
	for {
		f, err := s.tr.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.dropped(s, err)
			return
		}
		c.handleFrame(f)
	}
}

func (c *Client) writeLoop(ctx context.Context, s *session, joins []string) {
	for _, room := range joins {
		f, _ := newFrame(eventJoinRoom, room)
		if err := s.tr.Write(ctx, f); err != nil {
			if ctx.Err() == nil {
				c.dropped(s, err)
			}
			return
		}
	}
	for {
		select {
		case f := <-s.writeCh:
			if err := s.tr.Write(ctx, f); err != nil {
				if ctx.Err() == nil {
					c.dropped(s, err)
				}
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// dropped handles a transport failure the caller did not ask for.
func (c *Client) dropped(s *session, err error) {
	c.mu.Lock()
	if c.conn != s {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	cause := classifyDrop(err)
	var ev *StateEvent
	if c.cfg.AutoReconnect && c.cfg.MaxReconnectTries > 0 {
		ev = c.setStateLocked(StateReconnecting, cause)
		c.scheduleReconnectLocked(1)
	} else {
		ev = c.setStateLocked(StateFailed, cause)
	}
	c.mu.Unlock()

	s.cancel()
	_ = s.tr.Close("connection lost")

	c.logger.Warn("connection lost", map[string]any{"client": c.id, "session": s.token, "error": cause.Error()})
	c.emitState(ev)
	c.dispatchLocal(EventDisconnect, LifecycleInfo{Reason: cause.Error()}, cause)
}

func (c *Client) handleFrame(f Frame) {
	if f.Error != nil || f.Event == eventError {
		err := FromProtocolError(f.Error)
		if err == nil {
			err = NewError(ErrorUnknown, "error frame without details")
		}
		c.queue.push(func() { c.reportError(err) })
		return
	}
	if !IsInboundEvent(f.Event) {
		c.logger.Warn("dropping unknown event", map[string]any{"event": string(f.Event)})
		return
	}
	ev := Event{Name: f.Event, Data: f.Data}
	c.queue.push(func() { c.registry.Dispatch(ev) })
}

func (c *Client) onSessionConfirmed(Event) {
	if c.cfg.DefaultRoom != "" {
		c.JoinRoom(c.cfg.DefaultRoom)
	}
}

// reportError delivers err to OnError handlers. Must run on the queue.
func (c *Client) reportError(err error) {
	c.logger.Warn("event error", map[string]any{"error": err.Error()})
	c.registry.Dispatch(Event{Name: eventError, Err: err})
}

func (c *Client) dispatchLocal(name EventName, info LifecycleInfo, err error) {
	data, _ := json.Marshal(info)
	ev := Event{Name: name, Data: data, Err: err}
	c.queue.push(func() { c.registry.Dispatch(ev) })
}

func (c *Client) sendRoom(s *session, name EventName, room string) {
	f, _ := newFrame(name, room)
	if !s.enqueue(f) {
		c.logger.Warn("room request dropped: write queue full", map[string]any{"event": string(name), "room": room})
	}
}

// setStateLocked records the transition and returns the event to publish,
// or nil when the state did not change.
func (c *Client) setStateLocked(next ConnectionState, err error) *StateEvent {
	if err != nil {
		c.lastErr = err
	}
	if c.state == next {
		return nil
	}
	ev := &StateEvent{OldState: c.state, NewState: next, Error: err}
	c.state = next
	return ev
}

func (c *Client) emitState(ev *StateEvent) {
	if ev == nil {
		return
	}
	c.mu.Lock()
	subs := make([]func(StateEvent), 0, len(c.stateSubs))
	for _, s := range c.stateSubs {
		subs = append(subs, s.fn)
	}
	c.mu.Unlock()

	e := *ev
	c.queue.push(func() {
		for _, fn := range subs {
			c.safeCall(func() { fn(e) })
		}
	})
}

func (c *Client) safeCall(fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			c.logger.Error("state handler panicked", map[string]any{"error": fmt.Sprint(rec)})
		}
	}()
	fn()
}

func (c *Client) liveSessionLocked() *session {
	if c.state != StateConnected {
		return nil
	}
	return c.conn
}

func waitAttempt(ctx context.Context, p *attempt) error {
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func newFrame(name EventName, payload any) (Frame, error) {
	f := Frame{Event: name}
	if payload == nil {
		return f, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, err
	}
	f.Data = data
	return f, nil
}
