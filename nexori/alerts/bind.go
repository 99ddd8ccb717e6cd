package alerts

import (
	"github.com/DesarrolloAlpha/Nexori-sub001/nexori"
)

// EventSource is the part of the connection the store listens to.
// *nexori.Client satisfies it.
type EventSource interface {
	On(name nexori.EventName, fn nexori.Handler) (unsubscribe func())
}

// Bind routes panic broadcasts from src into store. The returned function
// removes every handler Bind registered.
func Bind(src EventSource, store *Store, logger nexori.Logger) (unbind func()) {
	if logger == nil {
		logger = nexori.NopLogger{}
	}

	apply := func(name nexori.EventName, fn func(nexori.PanicEvent) bool, stale string) nexori.Handler {
		return func(ev nexori.Event) {
			var p nexori.PanicEvent
			if err := nexori.UnmarshalData(ev.Data, &p); err != nil {
				logger.Warn("alerts: malformed payload", map[string]any{
					"event": string(name),
					"error": err.Error(),
				})
				return
			}
			if p.ID == "" {
				logger.Warn("alerts: payload without id", map[string]any{"event": string(name)})
				return
			}
			if !fn(p) && stale != "" {
				logger.Debug(stale, map[string]any{
					"event": string(name),
					"id":    p.ID,
				})
			}
		}
	}

	offs := []func(){
		src.On(nexori.EventPanicCreated, apply(nexori.EventPanicCreated, store.ApplyCreated, "alerts: duplicate creation dropped")),
		src.On(nexori.EventPanicUpdated, apply(nexori.EventPanicUpdated, store.ApplyUpdated, "alerts: update for unknown event dropped")),
		src.On(nexori.EventPanicResolved, apply(nexori.EventPanicResolved, store.ApplyResolved, "alerts: resolution for unknown event dropped")),
	}
	return func() {
		for _, off := range offs {
			off()
		}
	}
}
