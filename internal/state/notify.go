package state

import "sync"

// listeners is a set of callbacks. Emit runs them in registration order on
// the caller's goroutine; callers must not hold their own lock while emitting.
type listeners[T any] struct {
	mu    sync.Mutex
	next  int
	order []int
	fns   map[int]func(T)
}

func (l *listeners[T]) add(fn func(T)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = make(map[int]func(T))
	}
	id := l.next
	l.next++
	l.fns[id] = fn
	l.order = append(l.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			delete(l.fns, id)
			for i, existing := range l.order {
				if existing == id {
					l.order = append(l.order[:i], l.order[i+1:]...)
					break
				}
			}
		})
	}
}

func (l *listeners[T]) emit(value T) {
	l.mu.Lock()
	fns := make([]func(T), 0, len(l.order))
	for _, id := range l.order {
		fns = append(fns, l.fns[id])
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(value)
	}
}

// subscribeFunc adapts a plain callback to a listeners[struct{}].
func subscribeFunc(l *listeners[struct{}], fn func()) func() {
	return l.add(func(struct{}) { fn() })
}

func errorMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	if message := err.Error(); message != "" {
		return message
	}
	return fallback
}
