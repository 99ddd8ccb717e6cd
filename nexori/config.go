package nexori

import "time"

// Config controls how the SDK connects.
type Config struct {
	URL              string
	Token            string // bearer credential, used when Connect gets none and no CredentialSource is set
	DefaultRoom      string // joined when the server confirms the session with socket:connected
	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration

	AutoReconnect     bool
	ReconnectInterval time.Duration // first reconnect delay, doubled per attempt
	MaxReconnectDelay time.Duration
	MaxReconnectTries int

	WriteQueueSize int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout:  20 * time.Second,
		ReadTimeout:       0, // server pushes are sparse; rely on close frames instead
		WriteTimeout:      10 * time.Second,
		AutoReconnect:     true,
		ReconnectInterval: time.Second,
		MaxReconnectDelay: 5 * time.Second,
		MaxReconnectTries: 10,
		WriteQueueSize:    16,
	}
}

// reconnectDelay returns the wait before the given 1-based attempt.
func (c Config) reconnectDelay(attempt int) time.Duration {
	d := c.ReconnectInterval
	if d <= 0 {
		d = time.Second
	}
	for i := 1; i < attempt; i++ {
		d *= 2
		if c.MaxReconnectDelay > 0 && d >= c.MaxReconnectDelay {
			return c.MaxReconnectDelay
		}
	}
	if c.MaxReconnectDelay > 0 && d > c.MaxReconnectDelay {
		return c.MaxReconnectDelay
	}
	return d
}
