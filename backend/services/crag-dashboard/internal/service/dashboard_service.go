package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"cragwatch/backend/services/crag-dashboard/internal/models"
	"cragwatch/backend/services/crag-dashboard/internal/poller"
)

const (
	ViewWalls = "walls"
	ViewWall  = "wall"

	DefaultDetailWindow = 24 * time.Hour
	DefaultDetailLimit  = 100
)

// ErrInvalidReading rejects diagnostic readings that would break the deviceCount >= 0
// invariant or have no wall.
var ErrInvalidReading = errors.New("invalid reading")

// TelemetrySource is the backend contract the dashboard consumes.
type TelemetrySource interface {
	Health(ctx context.Context) (models.Health, error)
	FetchWalls(ctx context.Context) ([]models.WallState, error)
	FetchReadings(ctx context.Context, q models.ReadingsQuery) ([]models.Reading, error)
	SubmitReading(ctx context.Context, in models.ReadingInput) (string, error)
}

// WallsSnapshot is the state of a wall list subscription.
type WallsSnapshot = poller.Snapshot[struct{}, []models.WallSummary]

// WallSnapshot is the state of a wall detail subscription.
type WallSnapshot = poller.Snapshot[string, models.WallSeries]

// WallsSubscription polls the wall list.
type WallsSubscription = poller.Subscription[struct{}, []models.WallSummary]

// WallSubscription polls one wall's series.
type WallSubscription = poller.Subscription[string, models.WallSeries]

// DashboardOptions configures the dashboard pipeline.
type DashboardOptions struct {
	Interval     time.Duration
	DetailWindow time.Duration
	DetailLimit  int
	Location     *time.Location
	Now          func() time.Time
	Observer     poller.Observer
	// OnSubscriptions receives the live subscription count per view.
	OnSubscriptions func(view string, live int)
}

// DashboardService runs the retrieval and aggregation pipeline for the wall list and
// wall detail views.
type DashboardService struct {
	source   TelemetrySource
	opts     DashboardOptions
	registry *poller.Registry
	logger   *zap.Logger
}

// NewDashboardService returns service instance.
func NewDashboardService(source TelemetrySource, opts DashboardOptions, logger *zap.Logger) *DashboardService {
	if opts.Interval <= 0 {
		opts.Interval = poller.DefaultInterval
	}
	if opts.DetailWindow <= 0 {
		opts.DetailWindow = DefaultDetailWindow
	}
	if opts.DetailLimit <= 0 {
		opts.DetailLimit = DefaultDetailLimit
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		source:   source,
		opts:     opts,
		registry: poller.NewRegistry(opts.OnSubscriptions),
		logger:   logger,
	}
}

// Health reports the backend health.
func (s *DashboardService) Health(ctx context.Context) (models.Health, error) {
	return s.source.Health(ctx)
}

// Walls fetches and derives the wall list once.
func (s *DashboardService) Walls(ctx context.Context) ([]models.WallSummary, error) {
	states, err := s.source.FetchWalls(ctx)
	if err != nil {
		return nil, err
	}
	summaries := DeriveSummaries(states)
	now := s.opts.Now()
	for i := range summaries {
		summaries[i].LastUpdate = RelativeAge(summaries[i].LatestReadingTimestamp, now)
	}
	return summaries, nil
}

// WallSeries fetches the detail window for one wall and transforms it once. The window
// is the last DetailWindow up to now, capped at DetailLimit newest readings; when the
// wall reports more readings than the limit, the oldest part of the window is lost.
func (s *DashboardService) WallSeries(ctx context.Context, wallID string) (models.WallSeries, error) {
	readings, err := s.source.FetchReadings(ctx, models.ReadingsQuery{
		WallID: wallID,
		Start:  s.opts.Now().Add(-s.opts.DetailWindow),
		Limit:  s.opts.DetailLimit,
	})
	if err != nil {
		return models.WallSeries{}, err
	}
	return BuildSeries(wallID, readings, s.opts.Location), nil
}

// SubmitReading validates and forwards a diagnostic reading.
func (s *DashboardService) SubmitReading(ctx context.Context, in models.ReadingInput) (string, error) {
	in.WallID = strings.TrimSpace(in.WallID)
	if in.WallID == "" {
		return "", fmt.Errorf("%w: wall_id is required", ErrInvalidReading)
	}
	if in.DeviceCount < 0 {
		return "", fmt.Errorf("%w: device_count must be non-negative", ErrInvalidReading)
	}
	id, err := s.source.SubmitReading(ctx, in)
	if err != nil {
		return "", err
	}
	s.logger.Info("diagnostic reading submitted", zap.String("wall_id", in.WallID), zap.String("id", id))
	return id, nil
}

// WatchWalls mounts a wall list subscription. Cancel it with Unwatch.
func (s *DashboardService) WatchWalls(ctx context.Context, onUpdate func(WallsSnapshot)) *WallsSubscription {
	sub := poller.New[struct{}, []models.WallSummary](func(ctx context.Context, _ struct{}) ([]models.WallSummary, error) {
		return s.Walls(ctx)
	}, s.pollOptions(ViewWalls), onUpdate)
	s.registry.Add(sub)
	sub.Start(ctx, struct{}{})
	return sub
}

// WatchWall mounts a wall detail subscription. Navigating to another wall is
// sub.SetParams(otherWallID).
func (s *DashboardService) WatchWall(ctx context.Context, wallID string, onUpdate func(WallSnapshot)) *WallSubscription {
	sub := poller.New[string, models.WallSeries](s.WallSeries, s.pollOptions(ViewWall), onUpdate)
	s.registry.Add(sub)
	sub.Start(ctx, wallID)
	return sub
}

// Unwatch unmounts a subscription.
func (s *DashboardService) Unwatch(id uuid.UUID) {
	s.registry.Cancel(id)
}

// LiveSubscriptions returns the number of mounted subscriptions.
func (s *DashboardService) LiveSubscriptions() int {
	return s.registry.Len()
}

// Close unmounts every subscription.
func (s *DashboardService) Close() {
	s.registry.CancelAll()
}

func (s *DashboardService) pollOptions(view string) poller.Options {
	return poller.Options{
		View:     view,
		Interval: s.opts.Interval,
		Logger:   s.logger,
		Observer: s.opts.Observer,
		Now:      s.opts.Now,
	}
}
