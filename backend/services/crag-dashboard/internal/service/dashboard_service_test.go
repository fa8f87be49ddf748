package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cragwatch/backend/services/crag-dashboard/internal/models"
	"cragwatch/backend/services/crag-dashboard/internal/poller"
)

type fakeSource struct {
	mu        sync.Mutex
	walls     []models.WallState
	wallsErr  error
	readings  map[string][]models.Reading
	queries   []models.ReadingsQuery
	submitted []models.ReadingInput
	gates     map[string]chan struct{}
}

func (f *fakeSource) Health(context.Context) (models.Health, error) {
	return models.Health{Status: "ok"}, nil
}

func (f *fakeSource) FetchWalls(context.Context) ([]models.WallState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.walls, f.wallsErr
}

func (f *fakeSource) FetchReadings(_ context.Context, q models.ReadingsQuery) ([]models.Reading, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	gate := f.gates[q.WallID]
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readings[q.WallID], nil
}

func (f *fakeSource) SubmitReading(_ context.Context, in models.ReadingInput) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, in)
	return "id-1", nil
}

func (f *fakeSource) setWalls(walls []models.WallState, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.walls = walls
	f.wallsErr = err
}

type supersedeCounter struct {
	mu sync.Mutex
	n  int
}

func (c *supersedeCounter) ObservePoll(string, error, time.Duration) {}

func (c *supersedeCounter) ObserveSuperseded(string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
}

func (c *supersedeCounter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestService(src *fakeSource, interval time.Duration) *DashboardService {
	return NewDashboardService(src, DashboardOptions{
		Interval: interval,
		Location: time.UTC,
		Now:      func() time.Time { return fixedNow },
	}, zap.NewNop())
}

func TestWallsStampsRelativeAge(t *testing.T) {
	src := &fakeSource{walls: []models.WallState{
		{WallID: "slab", DeviceCount: 11, LatestReadingTimestamp: fixedNow.Add(-5 * time.Minute)},
	}}
	svc := newTestService(src, time.Hour)

	got, err := svc.Walls(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "5 minutes ago", got[0].LastUpdate)
	assert.Equal(t, models.ActivityBusy, got[0].Activity)
}

func TestWallSeriesQueriesDetailWindow(t *testing.T) {
	src := &fakeSource{readings: map[string][]models.Reading{
		"cave": {
			{ID: "b", DeviceCount: 3, ServerTimestamp: fixedNow.Add(-time.Minute)},
			{ID: "a", DeviceCount: 1, ServerTimestamp: fixedNow.Add(-2 * time.Minute)},
		},
	}}
	svc := newTestService(src, time.Hour)

	got, err := svc.WallSeries(context.Background(), "cave")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Average)
	assert.Equal(t, 1, got.Series[0].Value)
	assert.Equal(t, 3, got.Current)

	require.Len(t, src.queries, 1)
	assert.Equal(t, models.ReadingsQuery{
		WallID: "cave",
		Start:  fixedNow.Add(-24 * time.Hour),
		Limit:  100,
	}, src.queries[0])
}

func TestSubmitReadingValidates(t *testing.T) {
	src := &fakeSource{}
	svc := newTestService(src, time.Hour)

	_, err := svc.SubmitReading(context.Background(), models.ReadingInput{WallID: " "})
	assert.ErrorIs(t, err, ErrInvalidReading)
	_, err = svc.SubmitReading(context.Background(), models.ReadingInput{WallID: "cave", DeviceCount: -1})
	assert.ErrorIs(t, err, ErrInvalidReading)

	id, err := svc.SubmitReading(context.Background(), models.ReadingInput{WallID: " cave ", DeviceCount: 2})
	require.NoError(t, err)
	assert.Equal(t, "id-1", id)
	assert.Equal(t, "cave", src.submitted[0].WallID)
}

func TestWatchWallsKeepsDataOnFailure(t *testing.T) {
	src := &fakeSource{walls: []models.WallState{{WallID: "slab", DeviceCount: 3}}}
	svc := newTestService(src, 20*time.Millisecond)
	defer svc.Close()

	var mu sync.Mutex
	var updates []WallsSnapshot
	sub := svc.WatchWalls(context.Background(), func(s WallsSnapshot) {
		mu.Lock()
		updates = append(updates, s)
		mu.Unlock()
	})
	assert.Equal(t, 1, svc.LiveSubscriptions())

	require.Eventually(t, func() bool { return sub.Snapshot().HasData }, 2*time.Second, 5*time.Millisecond)

	src.setWalls(nil, errors.New("backend down"))
	require.Eventually(t, func() bool { return sub.Snapshot().Status == poller.StatusFailed }, 2*time.Second, 5*time.Millisecond)

	snap := sub.Snapshot()
	assert.True(t, snap.HasData)
	require.Len(t, snap.Data, 1)
	assert.Equal(t, "slab", snap.Data[0].WallID)
	assert.EqualError(t, snap.Err, "backend down")

	svc.Unwatch(sub.ID())
	assert.Equal(t, 0, svc.LiveSubscriptions())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, poller.StatusLoading, updates[0].Status)
}

func TestWatchWallNavigationSupersedesStaleWall(t *testing.T) {
	westGate := make(chan struct{})
	src := &fakeSource{
		readings: map[string][]models.Reading{
			"west-face":  {{ID: "w", WallID: "west-face", DeviceCount: 9, ServerTimestamp: fixedNow}},
			"north-face": {{ID: "n", WallID: "north-face", DeviceCount: 2, ServerTimestamp: fixedNow}},
		},
		gates: map[string]chan struct{}{"west-face": westGate},
	}
	obs := &supersedeCounter{}
	svc := NewDashboardService(src, DashboardOptions{
		Interval: time.Hour,
		Location: time.UTC,
		Now:      func() time.Time { return fixedNow },
		Observer: obs,
	}, zap.NewNop())
	defer svc.Close()

	sub := svc.WatchWall(context.Background(), "west-face", nil)
	require.Eventually(t, func() bool {
		src.mu.Lock()
		defer src.mu.Unlock()
		return len(src.queries) == 1
	}, 2*time.Second, 5*time.Millisecond)

	sub.SetParams("north-face")
	require.Eventually(t, func() bool { return sub.Snapshot().Status == poller.StatusReady }, 2*time.Second, 5*time.Millisecond)
	close(westGate)

	require.Eventually(t, func() bool { return obs.count() == 1 }, 2*time.Second, 5*time.Millisecond)
	snap := sub.Snapshot()
	assert.Equal(t, "north-face", snap.Params)
	assert.Equal(t, "north-face", snap.Data.WallID)
	require.NotNil(t, snap.Data.Latest)
	assert.Equal(t, "n", snap.Data.Latest.ID)
}
