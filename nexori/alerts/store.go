// Package alerts keeps the session's panic events and the views derived
// from them.
package alerts

import (
	"sync"

	"github.com/DesarrolloAlpha/Nexori-sub001/nexori"
)

// Stats counts events per status.
type Stats struct {
	Active     int `json:"active"`
	InProgress int `json:"inProgress"`
	Resolved   int `json:"resolved"`
	Total      int `json:"total"`
}

// View is a projection of the store at one instant.
type View struct {
	Active     []nexori.PanicEvent
	InProgress []nexori.PanicEvent
	Resolved   []nexori.PanicEvent
	Stats      Stats
}

// Store is the in-memory collection of panic events for the session,
// newest first. Records are only ever replaced whole.
type Store struct {
	guard *Guard

	mu     sync.RWMutex
	events []nexori.PanicEvent

	// seq counts writes; written maps an id to the seq of its last write.
	seq     uint64
	written map[string]uint64

	changed  listeners[View]
	newAlert listeners[nexori.PanicEvent]
}

// NewStore creates an empty store. A nil guard gets the default window.
func NewStore(guard *Guard) *Store {
	if guard == nil {
		guard = NewGuard(DefaultDedupWindow)
	}
	return &Store{guard: guard, written: make(map[string]uint64)}
}

// OnChange registers fn to receive the new view after every mutation.
func (s *Store) OnChange(fn func(View)) (unsubscribe func()) {
	return s.changed.add(fn)
}

// OnNewAlert registers fn for events accepted by ApplyCreated.
func (s *Store) OnNewAlert(fn func(nexori.PanicEvent)) (unsubscribe func()) {
	return s.newAlert.add(fn)
}

// Load replaces the whole collection.
func (s *Store) Load(events []nexori.PanicEvent) {
	s.mu.Lock()
	s.events = append([]nexori.PanicEvent(nil), events...)
	s.written = make(map[string]uint64)
	view := s.viewLocked()
	s.mu.Unlock()

	s.changed.emit(view)
}

// Mark returns a position in the store's write history. Pass it to
// Reconcile or ApplyConfirmed once a request started at that point returns.
func (s *Store) Mark() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seq
}

// Reconcile replaces the collection with a snapshot fetched since mark.
// Records written after mark are newer than the snapshot and win over it;
// ones the snapshot does not contain are kept in front.
func (s *Store) Reconcile(events []nexori.PanicEvent, mark uint64) {
	s.mu.Lock()
	merged := append([]nexori.PanicEvent(nil), events...)
	var fresh []nexori.PanicEvent
	written := make(map[string]uint64)
	for _, ev := range s.events {
		n := s.written[ev.ID]
		if n <= mark {
			continue
		}
		written[ev.ID] = n
		if i := indexOf(merged, ev.ID); i >= 0 {
			merged[i] = ev
		} else {
			fresh = append(fresh, ev)
		}
	}
	s.events = append(fresh, merged...)
	s.written = written
	view := s.viewLocked()
	s.mu.Unlock()

	s.changed.emit(view)
}

// ApplyConfirmed replaces the stored record with a server reply to a
// request started at mark. Broadcasts dispatched for the id since mark
// are newer than the reply, so the reply is then dropped. It reports
// whether ev was applied.
func (s *Store) ApplyConfirmed(ev nexori.PanicEvent, mark uint64) bool {
	s.mu.Lock()
	i := s.indexLocked(ev.ID)
	if i < 0 || s.written[ev.ID] > mark {
		s.mu.Unlock()
		return false
	}
	s.events[i] = ev
	s.touchLocked(ev.ID)
	view := s.viewLocked()
	s.mu.Unlock()

	s.changed.emit(view)
	return true
}

// ApplyCreated prepends ev unless its id was seen inside the dedup window or
// is already stored. It reports whether ev was added.
func (s *Store) ApplyCreated(ev nexori.PanicEvent) bool {
	if !s.guard.ShouldProcess(ev.ID) {
		return false
	}

	s.mu.Lock()
	if s.indexLocked(ev.ID) >= 0 {
		s.mu.Unlock()
		return false
	}
	s.events = append([]nexori.PanicEvent{ev}, s.events...)
	s.touchLocked(ev.ID)
	view := s.viewLocked()
	s.mu.Unlock()

	s.changed.emit(view)
	s.newAlert.emit(ev)
	return true
}

// ApplyUpdated replaces the stored record with ev. Unknown ids are dropped.
func (s *Store) ApplyUpdated(ev nexori.PanicEvent) bool {
	return s.replace(ev)
}

// ApplyResolved replaces the stored record with ev. Unknown ids are dropped.
func (s *Store) ApplyResolved(ev nexori.PanicEvent) bool {
	return s.replace(ev)
}

func (s *Store) replace(ev nexori.PanicEvent) bool {
	s.mu.Lock()
	i := s.indexLocked(ev.ID)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	s.events[i] = ev
	s.touchLocked(ev.ID)
	view := s.viewLocked()
	s.mu.Unlock()

	s.changed.emit(view)
	return true
}

func (s *Store) touchLocked(id string) {
	s.seq++
	s.written[id] = s.seq
}

// Get returns the record with id.
func (s *Store) Get(id string) (nexori.PanicEvent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.events[i], true
	}
	return nexori.PanicEvent{}, false
}

// All returns every record, newest first.
func (s *Store) All() []nexori.PanicEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]nexori.PanicEvent(nil), s.events...)
}

// Active returns events with status active.
func (s *Store) Active() []nexori.PanicEvent { return s.View().Active }

// InProgress returns events with status attended.
func (s *Store) InProgress() []nexori.PanicEvent { return s.View().InProgress }

// Resolved returns events with status resolved.
func (s *Store) Resolved() []nexori.PanicEvent { return s.View().Resolved }

// Stats returns the counts per status.
func (s *Store) Stats() Stats {
	return s.View().Stats
}

// View returns all projections computed from one snapshot.
func (s *Store) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewLocked()
}

// viewLocked classifies every event into exactly one bucket. Statuses the
// store does not know are counted as active so the total always matches.
func (s *Store) viewLocked() View {
	var v View
	for _, ev := range s.events {
		switch ev.Status {
		case nexori.PanicAttended:
			v.InProgress = append(v.InProgress, ev)
		case nexori.PanicResolved:
			v.Resolved = append(v.Resolved, ev)
		default:
			v.Active = append(v.Active, ev)
		}
	}
	v.Stats = Stats{
		Active:     len(v.Active),
		InProgress: len(v.InProgress),
		Resolved:   len(v.Resolved),
		Total:      len(s.events),
	}
	return v
}

func (s *Store) indexLocked(id string) int {
	return indexOf(s.events, id)
}

func indexOf(events []nexori.PanicEvent, id string) int {
	for i, ev := range events {
		if ev.ID == id {
			return i
		}
	}
	return -1
}
