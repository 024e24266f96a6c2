package nav

import (
	"sync"

	"github.com/jpl-au/vela/internal/event"
)

// LiveQuery is an in-memory QueryState that publishes every change.
type LiveQuery struct {
	mu   sync.RWMutex
	q    string
	feed event.Feed[string]
}

func (l *LiveQuery) Query() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.q
}

func (l *LiveQuery) SetQuery(q string) {
	l.mu.Lock()
	l.q = q
	l.mu.Unlock()
	l.feed.Publish(q)
}

// Subscribe registers fn to receive the query after each change.
func (l *LiveQuery) Subscribe(fn func(string)) func() {
	return l.feed.Subscribe(fn)
}
