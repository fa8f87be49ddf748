package poller

import (
	"sync"

	"github.com/google/uuid"
)

// Handle is the type-erased control surface of a Subscription.
type Handle interface {
	ID() uuid.UUID
	View() string
	Refresh()
	Stop()
}

// Registry tracks live subscriptions by identity so they can be cancelled explicitly.
type Registry struct {
	mu   sync.Mutex
	subs map[uuid.UUID]Handle
	// onChange receives the live count for a view after every Add/Cancel.
	onChange func(view string, live int)
}

// NewRegistry returns an empty registry. onChange may be nil.
func NewRegistry(onChange func(view string, live int)) *Registry {
	return &Registry{subs: make(map[uuid.UUID]Handle), onChange: onChange}
}

// Add registers a subscription.
func (r *Registry) Add(h Handle) {
	r.mu.Lock()
	r.subs[h.ID()] = h
	live := r.countLocked(h.View())
	r.mu.Unlock()
	r.changed(h.View(), live)
}

// Cancel stops and forgets the subscription. Unknown ids are ignored.
func (r *Registry) Cancel(id uuid.UUID) {
	r.mu.Lock()
	h, ok := r.subs[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.subs, id)
	live := r.countLocked(h.View())
	r.mu.Unlock()

	h.Stop()
	r.changed(h.View(), live)
}

// Len returns the number of live subscriptions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

// CancelAll stops every subscription, used on shutdown.
func (r *Registry) CancelAll() {
	r.mu.Lock()
	ids := make([]uuid.UUID, 0, len(r.subs))
	for id := range r.subs {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	for _, id := range ids {
		r.Cancel(id)
	}
}

func (r *Registry) countLocked(view string) int {
	n := 0
	for _, h := range r.subs {
		if h.View() == view {
			n++
		}
	}
	return n
}

func (r *Registry) changed(view string, live int) {
	if r.onChange != nil {
		r.onChange(view, live)
	}
}
