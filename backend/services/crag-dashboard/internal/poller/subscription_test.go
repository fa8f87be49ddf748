package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type result struct {
	data string
	err  error
}

type call struct {
	params string
	resp   chan result
}

type fakeFetcher struct {
	calls chan call
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{calls: make(chan call, 16)}
}

func (f *fakeFetcher) fetch(_ context.Context, params string) (string, error) {
	c := call{params: params, resp: make(chan result, 1)}
	f.calls <- c
	r := <-c.resp
	return r.data, r.err
}

func (f *fakeFetcher) next(t *testing.T) call {
	t.Helper()
	select {
	case c := <-f.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("expected a fetch")
		return call{}
	}
}

func (f *fakeFetcher) expectNone(t *testing.T, wait time.Duration) {
	t.Helper()
	select {
	case c := <-f.calls:
		t.Fatalf("unexpected fetch for %q", c.params)
	case <-time.After(wait):
	}
}

type fakeObserver struct {
	mu         sync.Mutex
	outcomes   []error
	superseded int
}

func (o *fakeObserver) ObservePoll(_ string, err error, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, err)
}

func (o *fakeObserver) ObserveSuperseded(string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.superseded++
}

func (o *fakeObserver) supersededCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.superseded
}

func (o *fakeObserver) outcomeCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.outcomes)
}

func newTestSubscription(f *fakeFetcher, interval time.Duration) (*Subscription[string, string], *fakeObserver, *[]Status) {
	obs := &fakeObserver{}
	var mu sync.Mutex
	statuses := []Status{}
	sub := New[string, string](f.fetch, Options{View: "wall", Interval: interval, Observer: obs}, func(s Snapshot[string, string]) {
		mu.Lock()
		statuses = append(statuses, s.Status)
		mu.Unlock()
	})
	return sub, obs, &statuses
}

func waitStatus(t *testing.T, sub *Subscription[string, string], want Status) Snapshot[string, string] {
	t.Helper()
	require.Eventually(t, func() bool { return sub.Snapshot().Status == want }, 2*time.Second, 5*time.Millisecond)
	return sub.Snapshot()
}

func TestSubscriptionStartsLoadingAndFetchesImmediately(t *testing.T) {
	f := newFakeFetcher()
	sub, _, _ := newTestSubscription(f, time.Hour)
	defer sub.Stop()

	assert.Equal(t, StatusIdle, sub.Snapshot().Status)

	sub.Start(context.Background(), "west-face")
	c := f.next(t)
	assert.Equal(t, "west-face", c.params)
	assert.Equal(t, StatusLoading, sub.Snapshot().Status)
	assert.False(t, sub.Snapshot().HasData)

	c.resp <- result{data: "W1"}
	snap := waitStatus(t, sub, StatusReady)
	assert.Equal(t, "W1", snap.Data)
	assert.True(t, snap.HasData)
	assert.NoError(t, snap.Err)
	assert.False(t, snap.FetchedAt.IsZero())
	assert.Equal(t, sub.ID(), snap.ID)
}

func TestSubscriptionFailureKeepsLastReadyData(t *testing.T) {
	f := newFakeFetcher()
	sub, _, _ := newTestSubscription(f, time.Hour)
	defer sub.Stop()

	sub.Start(context.Background(), "west-face")
	f.next(t).resp <- result{data: "W1"}
	ready := waitStatus(t, sub, StatusReady)

	sub.Refresh()
	f.next(t).resp <- result{err: errors.New("connection refused")}
	snap := waitStatus(t, sub, StatusFailed)

	assert.Equal(t, "W1", snap.Data)
	assert.True(t, snap.HasData)
	assert.EqualError(t, snap.Err, "connection refused")
	assert.Equal(t, ready.FetchedAt, snap.FetchedAt)

	sub.Refresh()
	f.next(t).resp <- result{data: "W2"}
	snap = waitStatus(t, sub, StatusReady)
	assert.Equal(t, "W2", snap.Data)
	assert.NoError(t, snap.Err)
}

func TestSubscriptionRetriesOnFixedIntervalAfterFailure(t *testing.T) {
	f := newFakeFetcher()
	sub, obs, _ := newTestSubscription(f, 20*time.Millisecond)
	defer sub.Stop()

	sub.Start(context.Background(), "cave")
	f.next(t).resp <- result{err: errors.New("timeout")}
	f.next(t).resp <- result{err: errors.New("timeout")}
	f.next(t).resp <- result{data: "C1"}

	require.Eventually(t, func() bool {
		snap := sub.Snapshot()
		return snap.HasData && snap.Data == "C1"
	}, 2*time.Second, 5*time.Millisecond)
	assert.GreaterOrEqual(t, obs.outcomeCount(), 3)
}

func TestSubscriptionStaleResultForAbandonedParamsIsDropped(t *testing.T) {
	f := newFakeFetcher()
	sub, obs, _ := newTestSubscription(f, time.Hour)
	defer sub.Stop()

	sub.Start(context.Background(), "west-face")
	west := f.next(t)

	sub.SetParams("north-face")
	north := f.next(t)
	assert.Equal(t, "north-face", north.params)

	west.resp <- result{data: "WEST"}
	require.Eventually(t, func() bool { return obs.supersededCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	snap := sub.Snapshot()
	assert.Equal(t, StatusLoading, snap.Status)
	assert.Equal(t, "north-face", snap.Params)
	assert.False(t, snap.HasData)

	north.resp <- result{data: "NORTH"}
	snap = waitStatus(t, sub, StatusReady)
	assert.Equal(t, "NORTH", snap.Data)
	assert.Equal(t, "north-face", snap.Params)
}

func TestSubscriptionParamChangeDropsPreviousData(t *testing.T) {
	f := newFakeFetcher()
	sub, obs, _ := newTestSubscription(f, time.Hour)
	defer sub.Stop()

	sub.Start(context.Background(), "west-face")
	f.next(t).resp <- result{data: "WEST"}
	waitStatus(t, sub, StatusReady)

	sub.Refresh()
	westRefresh := f.next(t)
	sub.SetParams("north-face")
	north := f.next(t)

	snap := sub.Snapshot()
	assert.Equal(t, StatusLoading, snap.Status)
	assert.False(t, snap.HasData)
	assert.Empty(t, snap.Data)

	north.resp <- result{data: "NORTH"}
	waitStatus(t, sub, StatusReady)
	westRefresh.resp <- result{data: "WEST-LATE"}
	require.Eventually(t, func() bool { return obs.supersededCount() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "NORTH", sub.Snapshot().Data)
}

func TestSubscriptionLastStartedWins(t *testing.T) {
	f := newFakeFetcher()
	sub, obs, _ := newTestSubscription(f, time.Hour)
	defer sub.Stop()

	sub.Start(context.Background(), "cave")
	older := f.next(t)
	sub.Refresh()
	newer := f.next(t)

	newer.resp <- result{data: "new"}
	waitStatus(t, sub, StatusReady)
	older.resp <- result{data: "old"}
	require.Eventually(t, func() bool { return obs.supersededCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, "new", sub.Snapshot().Data)
}

func TestSubscriptionSameParamsIsNoop(t *testing.T) {
	f := newFakeFetcher()
	sub, _, _ := newTestSubscription(f, time.Hour)
	defer sub.Stop()

	sub.Start(context.Background(), "cave")
	f.next(t).resp <- result{data: "C"}
	waitStatus(t, sub, StatusReady)

	sub.SetParams("cave")
	f.expectNone(t, 30*time.Millisecond)
	assert.Equal(t, StatusReady, sub.Snapshot().Status)
}

func TestSubscriptionStopDiscardsInFlightAndClearsTimer(t *testing.T) {
	f := newFakeFetcher()
	sub, obs, statuses := newTestSubscription(f, 10*time.Millisecond)

	sub.Start(context.Background(), "cave")
	inflight := f.next(t)
	sub.Stop()

	inflight.resp <- result{data: "late"}
	require.Eventually(t, func() bool { return obs.supersededCount() == 1 }, 2*time.Second, 5*time.Millisecond)
	f.expectNone(t, 60*time.Millisecond)

	snap := sub.Snapshot()
	assert.False(t, snap.HasData)
	assert.Equal(t, []Status{StatusLoading}, *statuses)

	sub.Refresh()
	sub.Start(context.Background(), "other")
	f.expectNone(t, 20*time.Millisecond)
}

func TestSubscriptionUpdatesInOrder(t *testing.T) {
	f := newFakeFetcher()
	sub, _, statuses := newTestSubscription(f, time.Hour)
	defer sub.Stop()

	sub.Start(context.Background(), "cave")
	f.next(t).resp <- result{data: "ok"}
	waitStatus(t, sub, StatusReady)
	sub.Refresh()
	f.next(t).resp <- result{err: errors.New("down")}
	waitStatus(t, sub, StatusFailed)

	assert.Equal(t, []Status{StatusLoading, StatusReady, StatusLoading, StatusFailed}, *statuses)
}
