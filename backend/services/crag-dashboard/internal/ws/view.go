package ws

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"cragwatch/backend/services/crag-dashboard/internal/models"
	"cragwatch/backend/services/crag-dashboard/internal/poller"
	"cragwatch/backend/services/crag-dashboard/internal/service"
)

// ErrUnknownCommand is returned for commands a view cannot act on.
var ErrUnknownCommand = errors.New("ws: unknown command")

// Dashboard is the subset of the dashboard service a live view drives.
type Dashboard interface {
	WatchWalls(ctx context.Context, onUpdate func(service.WallsSnapshot)) *service.WallsSubscription
	WatchWall(ctx context.Context, wallID string, onUpdate func(service.WallSnapshot)) *service.WallSubscription
	Unwatch(id uuid.UUID)
}

// Command is sent by the browser to pick what it displays.
type Command struct {
	View   string `json:"view,omitempty"`
	WallID string `json:"wallId,omitempty"`
	Action string `json:"action,omitempty"`
}

// ViewUpdate is pushed to the browser on every subscription state change.
type ViewUpdate struct {
	View      string               `json:"view"`
	WallID    string               `json:"wallId,omitempty"`
	Status    poller.Status        `json:"status"`
	HasData   bool                 `json:"hasData"`
	Walls     []models.WallSummary `json:"walls,omitempty"`
	Series    *models.WallSeries   `json:"series,omitempty"`
	Error     *service.ViewError   `json:"error,omitempty"`
	FetchedAt *time.Time           `json:"fetchedAt,omitempty"`

	// AttemptedAt is when the latest fetch started, successful or not.
	AttemptedAt *time.Time `json:"attemptedAt,omitempty"`
}

// WallsUpdate renders a wall list snapshot.
func WallsUpdate(s service.WallsSnapshot) ViewUpdate {
	u := ViewUpdate{
		View:        service.ViewWalls,
		Status:      s.Status,
		HasData:     s.HasData,
		Error:       service.DescribeError(s.Err),
		AttemptedAt: timePtr(s.AttemptedAt),
	}
	if s.HasData {
		u.Walls = s.Data
		u.FetchedAt = timePtr(s.FetchedAt)
	}
	return u
}

// WallUpdate renders a wall detail snapshot.
func WallUpdate(s service.WallSnapshot) ViewUpdate {
	u := ViewUpdate{
		View:        service.ViewWall,
		WallID:      s.Params,
		Status:      s.Status,
		HasData:     s.HasData,
		Error:       service.DescribeError(s.Err),
		AttemptedAt: timePtr(s.AttemptedAt),
	}
	if s.HasData {
		series := s.Data
		u.Series = &series
		u.FetchedAt = timePtr(s.FetchedAt)
	}
	return u
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// View is the live state of one browser connection: at most one subscription mounted.
type View struct {
	ctx  context.Context
	dash Dashboard
	push func(ViewUpdate)

	mu     sync.Mutex
	walls  *service.WallsSubscription
	wall   *service.WallSubscription
	closed bool
}

// NewView returns a view with nothing mounted.
func NewView(ctx context.Context, dash Dashboard, push func(ViewUpdate)) *View {
	return &View{ctx: ctx, dash: dash, push: push}
}

// Handle applies a browser command. Wall to wall navigation reuses the mounted
// subscription so stale results for the previous wall are superseded.
func (v *View) Handle(cmd Command) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return nil
	}

	if strings.EqualFold(cmd.Action, "refresh") {
		switch {
		case v.walls != nil:
			v.walls.Refresh()
		case v.wall != nil:
			v.wall.Refresh()
		}
		return nil
	}

	switch strings.ToLower(cmd.View) {
	case service.ViewWalls:
		if v.walls != nil {
			return nil
		}
		v.unmountLocked()
		v.walls = v.dash.WatchWalls(v.ctx, func(s service.WallsSnapshot) { v.push(WallsUpdate(s)) })
		return nil
	case service.ViewWall:
		wallID := strings.TrimSpace(cmd.WallID)
		if wallID == "" {
			return errors.New("ws: wallId is required for the wall view")
		}
		if v.wall != nil {
			v.wall.SetParams(wallID)
			return nil
		}
		v.unmountLocked()
		v.wall = v.dash.WatchWall(v.ctx, wallID, func(s service.WallSnapshot) { v.push(WallUpdate(s)) })
		return nil
	default:
		return ErrUnknownCommand
	}
}

// Close unmounts whatever is mounted; later commands are ignored.
func (v *View) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	v.unmountLocked()
}

func (v *View) unmountLocked() {
	if v.walls != nil {
		v.dash.Unwatch(v.walls.ID())
		v.walls = nil
	}
	if v.wall != nil {
		v.dash.Unwatch(v.wall.ID())
		v.wall = nil
	}
}
