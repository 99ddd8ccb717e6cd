package alerts

import (
	"encoding/json"
	"testing"

	"github.com/DesarrolloAlpha/Nexori-sub001/nexori"
)

// registrySource adapts a Registry to EventSource.
type registrySource struct {
	reg *nexori.Registry
}

func (r registrySource) On(name nexori.EventName, fn nexori.Handler) func() {
	sub := r.reg.Register(name, fn)
	return func() { r.reg.Unregister(name, sub) }
}

func (r registrySource) push(t *testing.T, name nexori.EventName, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	r.reg.Dispatch(nexori.Event{Name: name, Data: data})
}

func TestBindAppliesBroadcasts(t *testing.T) {
	src := registrySource{reg: nexori.NewRegistry(nil)}
	s, _ := newTestStore()
	unbind := Bind(src, s, nil)

	src.push(t, nexori.EventPanicCreated, panicEvent("p1", nexori.PanicActive))
	src.push(t, nexori.EventPanicCreated, panicEvent("p1", nexori.PanicActive))
	src.push(t, nexori.EventPanicUpdated, panicEvent("p1", nexori.PanicAttended))

	all := s.All()
	if len(all) != 1 || all[0].Status != nexori.PanicAttended {
		t.Fatalf("All() = %+v", all)
	}

	src.push(t, nexori.EventPanicResolved, panicEvent("p1", nexori.PanicResolved))
	if got, _ := s.Get("p1"); got.Status != nexori.PanicResolved {
		t.Fatalf("status = %s, want resolved", got.Status)
	}

	unbind()
	for _, name := range []nexori.EventName{nexori.EventPanicCreated, nexori.EventPanicUpdated, nexori.EventPanicResolved} {
		if n := src.reg.Len(name); n != 0 {
			t.Fatalf("%s still has %d handlers", name, n)
		}
	}
}

func TestBindSkipsMalformedPayloads(t *testing.T) {
	src := registrySource{reg: nexori.NewRegistry(nil)}
	s, _ := newTestStore()
	Bind(src, s, nil)

	src.reg.Dispatch(nexori.Event{Name: nexori.EventPanicCreated, Data: json.RawMessage(`{"id":`)})
	src.push(t, nexori.EventPanicCreated, map[string]string{"status": "active"})

	if n := len(s.All()); n != 0 {
		t.Fatalf("len(All()) = %d, want 0", n)
	}
}
