package app

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	libredis "cragwatch/backend/libs/redis"
	"cragwatch/backend/services/crag-dashboard/internal/clients"
	"cragwatch/backend/services/crag-dashboard/internal/config"
	"cragwatch/backend/services/crag-dashboard/internal/credentials"
	httpserver "cragwatch/backend/services/crag-dashboard/internal/http"
	"cragwatch/backend/services/crag-dashboard/internal/http/handlers"
	"cragwatch/backend/services/crag-dashboard/internal/http/middleware"
	"cragwatch/backend/services/crag-dashboard/internal/metrics"
	"cragwatch/backend/services/crag-dashboard/internal/service"
	"cragwatch/backend/services/crag-dashboard/internal/ws"
)

// ServiceName names the logger and health reports.
const ServiceName = "crag-dashboard"

// App wires crag dashboard dependencies.
type App struct {
	server    *httpserver.Server
	dashboard *service.DashboardService
	liveViews *ws.Manager
	redis     *goredis.Client
	cancel    context.CancelFunc
	logger    *zap.Logger
}

// New constructs application graph. ctx bounds live view connections and the Redis
// handshake.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{logger: logger}

	store, err := a.credentialStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Credentials.Token != "" {
		if err := store.Set(ctx, cfg.Credentials.Token); err != nil {
			a.Close()
			return nil, fmt.Errorf("app: initial credential: %w", err)
		}
	}

	loc, err := cfg.Location()
	if err != nil {
		a.Close()
		return nil, err
	}

	telemetry := clients.NewTelemetryClient(cfg.Telemetry.BaseURL, cfg.Telemetry.Timeout, store, logger)
	collectors := metrics.New()
	a.dashboard = service.NewDashboardService(telemetry, service.DashboardOptions{
		Interval:        cfg.Polling.Interval,
		DetailWindow:    cfg.Polling.DetailWindow,
		DetailLimit:     cfg.Polling.DetailLimit,
		Location:        loc,
		Observer:        collectors,
		OnSubscriptions: collectors.SetSubscriptions,
	}, logger)

	viewCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.liveViews = ws.NewManager()
	liveServer := ws.NewServer(viewCtx, a.liveViews, a.dashboard, 10*time.Second, middleware.OriginChecker(cfg.HTTP.AllowedOrigins), logger)

	router := httpserver.NewRouter(httpserver.RouterDeps{
		WallsHandlers:   handlers.NewWallsHandlers(a.dashboard, logger),
		SessionHandlers: handlers.NewSessionHandlers(store, logger),
		HealthHandler:   handlers.NewHealthHandler(ServiceName, a.dashboard, time.Now()),
		Metrics:         collectors.Handler(),
		LiveView:        liveServer.HandleWS,
		Instrument:      collectors.InstrumentHandler,
	})

	a.server = httpserver.NewServer(
		cfg.HTTPAddress(),
		router,
		logger,
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
		middleware.CORSMiddleware(cfg.HTTP.AllowedOrigins),
	)

	logger.Info("application configured",
		zap.String("telemetry_url", cfg.Telemetry.BaseURL),
		zap.String("credentials", cfg.Credentials.Backend),
		zap.Duration("poll_interval", cfg.Polling.Interval),
		zap.String("timezone", loc.String()),
	)
	return a, nil
}

func (a *App) credentialStore(ctx context.Context, cfg *config.Config) (credentials.Store, error) {
	if cfg.Credentials.Backend != config.CredentialsRedis {
		return credentials.NewMemoryStore(), nil
	}
	client, err := libredis.NewRedisClient(ctx, libredis.Options{
		Addr:     cfg.Credentials.Redis.Addr,
		Password: cfg.Credentials.Redis.Password,
		DB:       cfg.Credentials.Redis.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("app: credential store: %w", err)
	}
	a.redis = client
	return credentials.NewRedisStore(client, cfg.Credentials.Redis.Key), nil
}

// Run serves HTTP and live views until ctx is done.
func (a *App) Run(ctx context.Context) error {
	go a.liveViews.Run(ctx)
	return a.server.Run(ctx)
}

// Close releases resources.
func (a *App) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.liveViews != nil {
		a.liveViews.CloseAll()
	}
	if a.dashboard != nil {
		a.dashboard.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}
