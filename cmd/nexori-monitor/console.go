package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/DesarrolloAlpha/Nexori-sub001/nexori"
	"github.com/DesarrolloAlpha/Nexori-sub001/nexori/effects"
)

// console renders side effects as terminal lines.
type console struct {
	mu  sync.Mutex
	out io.Writer
	now func() time.Time
}

func newConsole(out io.Writer) *console {
	return &console{out: out, now: time.Now}
}

func (c *console) printf(format string, args ...any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.out, "[%s] "+format+"\n", append([]any{c.now().Format("15:04:05")}, args...)...)
	return err
}

func (c *console) Play() error { return c.printf("ALARM on") }
func (c *console) Stop() error { return c.printf("ALARM off") }

func (c *console) Show(n effects.Notification) error {
	return c.printf("shortcut %s: %s (%s)", n.Data["type"], n.Title, n.Body)
}

func (c *console) Dismiss(category string) error {
	return c.printf("dismiss %s", category)
}

func (c *console) ClearBadge() error { return nil }

func (c *console) NotifyNewAlert(ev nexori.PanicEvent) error {
	who := ev.UserName
	if who == "" {
		who = ev.UserID
	}
	where := ev.Location
	if where == "" {
		where = "unknown location"
	}
	return c.printf("PANIC %s [%s] from %s at %s", ev.ID, ev.Priority, who, where)
}
