// Package auth holds the signed-in user's access token and the session
// derived from it.
package auth

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/DesarrolloAlpha/Nexori-sub001/nexori"
)

// Claims are the token fields the client relies on.
type Claims struct {
	Name string `json:"name"`
	Role Role   `json:"role"`
	jwt.RegisteredClaims
}

// Session describes who is signed in.
type Session struct {
	UserID        string
	UserName      string
	Role          Role
	Authenticated bool
	ExpiresAt     time.Time
}

// CanMonitor reports whether the session may watch panic alerts.
func (s Session) CanMonitor() bool { return s.Authenticated && s.Role.CanMonitor() }

// CanTrigger reports whether the session may raise a panic alert.
func (s Session) CanTrigger() bool { return s.Authenticated && s.Role.CanTrigger() }

// Gate stores the bearer token and exposes it as a credential source.
// Claims are read without verifying the signature; the server does that.
type Gate struct {
	now func() time.Time

	mu      sync.RWMutex
	token   string
	session Session
	seq     uint64
	subs    []subscriber
}

type subscriber struct {
	id uint64
	fn func(Session)
}

// NewGate creates an empty, signed-out gate.
func NewGate() *Gate {
	return &Gate{now: time.Now}
}

// SetClock replaces the time source used for expiry checks.
func (g *Gate) SetClock(now func() time.Time) {
	g.mu.Lock()
	g.now = now
	g.mu.Unlock()
}

// SetToken stores token and derives the session from its claims.
func (g *Gate) SetToken(token string) (Session, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return Session{}, nexori.WrapError(nexori.ErrorUnauthorized, "parse access token", err)
	}
	if claims.Subject == "" {
		return Session{}, nexori.NewError(nexori.ErrorUnauthorized, "access token has no subject")
	}

	s := Session{
		UserID:        claims.Subject,
		UserName:      claims.Name,
		Role:          claims.Role,
		Authenticated: true,
	}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}

	g.mu.Lock()
	g.token = token
	g.session = s
	subs := g.snapshotLocked()
	g.mu.Unlock()

	for _, fn := range subs {
		fn(s)
	}
	return s, nil
}

// Token returns the stored token. It implements nexori.CredentialSource.
func (g *Gate) Token(context.Context) (string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.token == "" {
		return "", nexori.ErrMissingCredential
	}
	if !g.session.ExpiresAt.IsZero() && !g.now().Before(g.session.ExpiresAt) {
		return "", nexori.NewError(nexori.ErrorUnauthorized, "access token expired")
	}
	return g.token, nil
}

// Session returns the current session.
func (g *Gate) Session() Session {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.session
}

// Clear signs out.
func (g *Gate) Clear() {
	g.mu.Lock()
	g.token = ""
	g.session = Session{}
	subs := g.snapshotLocked()
	g.mu.Unlock()

	for _, fn := range subs {
		fn(Session{})
	}
}

// OnChange registers fn to receive the session after SetToken and Clear.
func (g *Gate) OnChange(fn func(Session)) (unsubscribe func()) {
	g.mu.Lock()
	g.seq++
	id := g.seq
	g.subs = append(g.subs, subscriber{id: id, fn: fn})
	g.mu.Unlock()

	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		for i, s := range g.subs {
			if s.id == id {
				g.subs = append(g.subs[:i:i], g.subs[i+1:]...)
				return
			}
		}
	}
}

func (g *Gate) snapshotLocked() []func(Session) {
	out := make([]func(Session), len(g.subs))
	for i, s := range g.subs {
		out[i] = s.fn
	}
	return out
}
