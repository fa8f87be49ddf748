package poller

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRegistryCancelStopsSubscription(t *testing.T) {
	var mu sync.Mutex
	counts := map[string]int{}
	reg := NewRegistry(func(view string, live int) {
		mu.Lock()
		counts[view] = live
		mu.Unlock()
	})

	f := newFakeFetcher()
	walls := New[string, string](f.fetch, Options{View: "walls", Interval: 30 * time.Millisecond}, nil)
	wall := New[string, string](f.fetch, Options{View: "wall", Interval: time.Hour}, nil)
	reg.Add(walls)
	reg.Add(wall)
	assert.Equal(t, 2, reg.Len())

	walls.Start(context.Background(), "")
	f.next(t).resp <- result{data: "x"}

	reg.Cancel(walls.ID())
	reg.Cancel(walls.ID())
	assert.Equal(t, 1, reg.Len())
	f.expectNone(t, 80*time.Millisecond)

	reg.CancelAll()
	assert.Equal(t, 0, reg.Len())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, map[string]int{"walls": 0, "wall": 0}, counts)
}
