package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFeed_PublishOrder(t *testing.T) {
	var f Feed[int]
	var got []string

	f.Subscribe(func(v int) { got = append(got, "a") })
	f.Subscribe(func(v int) { got = append(got, "b") })

	f.Publish(1)
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestFeed_Unsubscribe(t *testing.T) {
	var f Feed[string]
	calls := 0

	unsub := f.Subscribe(func(string) { calls++ })
	f.Publish("x")
	unsub()
	unsub() // second call is a no-op
	f.Publish("y")

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, f.Len())
}

func TestFeed_UnsubscribeFromListener(t *testing.T) {
	var f Feed[int]
	calls := 0

	var unsub func()
	unsub = f.Subscribe(func(int) {
		calls++
		unsub()
	})

	f.Publish(1)
	f.Publish(2)
	assert.Equal(t, 1, calls)
}
