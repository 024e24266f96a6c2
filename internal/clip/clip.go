// Package clip adapts the system clipboard for plugins. System uses
// github.com/atotto/clipboard; Memory is an in-process clipboard for tests
// and for hosts without a clipboard utility (headless servers).
package clip

import (
	"errors"
	"sync"

	"github.com/atotto/clipboard"
)

// ErrUnavailable is returned when no system clipboard utility exists.
var ErrUnavailable = errors.New("clipboard unavailable")

// System is the OS clipboard.
type System struct{}

func (System) ReadAll() (string, error) {
	if clipboard.Unsupported {
		return "", ErrUnavailable
	}
	return clipboard.ReadAll()
}

func (System) WriteAll(text string) error {
	if clipboard.Unsupported {
		return ErrUnavailable
	}
	return clipboard.WriteAll(text)
}

// Memory is a clipboard held in process memory.
type Memory struct {
	mu   sync.Mutex
	text string
}

func (m *Memory) ReadAll() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text, nil
}

func (m *Memory) WriteAll(text string) error {
	m.mu.Lock()
	m.text = text
	m.mu.Unlock()
	return nil
}

// Clipboard is satisfied by System and Memory.
type Clipboard interface {
	ReadAll() (string, error)
	WriteAll(text string) error
}

// Detect returns the system clipboard when a utility is available,
// otherwise an in-memory one.
func Detect() Clipboard {
	if clipboard.Unsupported {
		return &Memory{}
	}
	return System{}
}
