package nexori

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/coder/websocket"

	"github.com/DesarrolloAlpha/Nexori-sub001/nexori/internal"
)

// Transport is one established connection to the event server.
type Transport interface {
	Read(ctx context.Context) (Frame, error)
	Write(ctx context.Context, f Frame) error
	Close(reason string) error
}

// Dialer opens transports. The handshake must honor ctx.
type Dialer interface {
	Dial(ctx context.Context, url, credential string) (Transport, error)
}

// CredentialSource supplies the bearer credential on demand.
type CredentialSource interface {
	Token(ctx context.Context) (string, error)
}

// WebsocketDialer is the default Dialer.
type WebsocketDialer struct {
	ReadTimeout  time.Duration // zero disables
	WriteTimeout time.Duration
}

type wsTransport struct {
	conn *internal.Conn
}

// newWebsocketDialer builds the dialer used when no WithDialer option is given.
func newWebsocketDialer(cfg Config) Dialer {
	return WebsocketDialer{ReadTimeout: cfg.ReadTimeout, WriteTimeout: cfg.WriteTimeout}
}

func (d WebsocketDialer) Dial(ctx context.Context, url, credential string) (Transport, error) {
	conn, err := internal.Dial(ctx, url, credential, d.ReadTimeout, d.WriteTimeout)
	if err != nil {
		return nil, err
	}
	return &wsTransport{conn: conn}, nil
}

func (t *wsTransport) Read(ctx context.Context) (Frame, error) {
	var f Frame
	err := t.conn.Read(ctx, &f)
	return f, err
}

func (t *wsTransport) Write(ctx context.Context, f Frame) error {
	return t.conn.Write(ctx, f)
}

func (t *wsTransport) Close(reason string) error {
	return t.conn.Close(websocket.StatusNormalClosure, reason)
}

// classifyDrop maps a read loop failure to the error reported with the
// Connected -> Reconnecting transition.
func classifyDrop(err error) error {
	if internal.IsCloseFrame(err) || errors.Is(err, io.EOF) {
		return WrapError(ErrorServerDisconnected, "server closed the session", err)
	}
	return WrapError(ErrorTransport, "connection lost", err)
}
