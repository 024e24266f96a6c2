// Package event provides a typed observer list. Registries own a Feed and
// publish a snapshot of their state after every mutation; callers subscribe
// and receive an unsubscribe function in return.
package event

import "sync"

// Feed fans a value out to every subscribed listener. The zero value is
// ready to use.
type Feed[T any] struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]func(T)
	order  []uint64
}

// Subscribe registers fn and returns a function that removes it again.
// The returned function is safe to call more than once.
func (f *Feed[T]) Subscribe(fn func(T)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.subs == nil {
		f.subs = make(map[uint64]func(T))
	}
	f.nextID++
	id := f.nextID
	f.subs[id] = fn
	f.order = append(f.order, id)

	var once sync.Once
	return func() {
		once.Do(func() { f.remove(id) })
	}
}

func (f *Feed[T]) remove(id uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.subs, id)
	for i, v := range f.order {
		if v == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
}

// Publish calls every listener in subscription order. Listeners run on the
// caller's goroutine after the feed's lock is released, so a listener may
// subscribe or unsubscribe without deadlocking.
func (f *Feed[T]) Publish(v T) {
	f.mu.Lock()
	fns := make([]func(T), 0, len(f.order))
	for _, id := range f.order {
		fns = append(fns, f.subs[id])
	}
	f.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

// Len returns the number of active subscribers.
func (f *Feed[T]) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.order)
}
