package alerts

import "sync"

type listener[T any] struct {
	id uint64
	fn func(T)
}

// listeners is a registration-ordered callback list. emit runs callbacks
// outside the lock so they may call back into the store.
type listeners[T any] struct {
	mu   sync.Mutex
	seq  uint64
	list []listener[T]
}

func (l *listeners[T]) add(fn func(T)) func() {
	l.mu.Lock()
	l.seq++
	id := l.seq
	l.list = append(l.list, listener[T]{id: id, fn: fn})
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			for i, e := range l.list {
				if e.id == id {
					l.list = append(l.list[:i:i], l.list[i+1:]...)
					return
				}
			}
		})
	}
}

func (l *listeners[T]) emit(v T) {
	l.mu.Lock()
	snapshot := append([]listener[T](nil), l.list...)
	l.mu.Unlock()
	for _, e := range snapshot {
		e.fn(v)
	}
}
