package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"cragwatch/backend/services/crag-dashboard/internal/credentials"
	"cragwatch/backend/services/crag-dashboard/internal/models"
)

// DefaultTimeout bounds every request to the sensor backend.
const DefaultTimeout = 10 * time.Second

const queryTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// TelemetryClient talks to the sensor backend REST API. It never retries; retry policy
// belongs to the poller.
type TelemetryClient struct {
	http   *resty.Client
	creds  credentials.Store
	logger *zap.Logger
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Count   *int            `json:"count,omitempty"`
	Error   string          `json:"error,omitempty"`
	Details json.RawMessage `json:"details,omitempty"`
}

// NewTelemetryClient returns client wrapper. A non-positive timeout falls back to
// DefaultTimeout.
func NewTelemetryClient(baseURL string, timeout time.Duration, creds credentials.Store, logger *zap.Logger) *TelemetryClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &TelemetryClient{
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(timeout).
			SetRetryCount(0).
			SetHeader("Accept", "application/json"),
		creds:  creds,
		logger: logger,
	}
	c.http.OnBeforeRequest(c.attachCredential)
	return c
}

func (c *TelemetryClient) attachCredential(_ *resty.Client, req *resty.Request) error {
	if c.creds == nil {
		return nil
	}
	token, err := c.creds.Token(req.Context())
	if err != nil {
		c.logger.Warn("credential lookup failed, sending request without credential", zap.Error(err))
		return nil
	}
	if token != "" {
		req.SetAuthToken(token)
	}
	return nil
}

// Health fetches GET /health.
func (c *TelemetryClient) Health(ctx context.Context) (models.Health, error) {
	var health models.Health
	body, err := c.do(ctx, "health", c.http.R().SetContext(ctx), http.MethodGet, "/health")
	if err != nil {
		return health, err
	}
	if err := json.Unmarshal(body, &health); err != nil {
		return health, fmt.Errorf("telemetry: health: decode: %w", err)
	}
	return health, nil
}

// FetchWalls returns the backend's per-wall states in backend order.
func (c *TelemetryClient) FetchWalls(ctx context.Context) ([]models.WallState, error) {
	const op = "fetch walls"
	body, err := c.do(ctx, op, c.http.R().SetContext(ctx), http.MethodGet, "/sensor-data/walls")
	if err != nil {
		return nil, err
	}
	env, err := decodeEnvelope(op, body)
	if err != nil {
		return nil, err
	}
	var data struct {
		Walls []models.WallState `json:"walls"`
	}
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, fmt.Errorf("telemetry: %s: decode: %w", op, err)
		}
	}
	if data.Walls == nil {
		data.Walls = []models.WallState{}
	}
	return data.Walls, nil
}

// FetchReadings returns readings newest first. Start is inclusive, a zero End means
// "up to now" and Limit bounds the number of readings returned.
func (c *TelemetryClient) FetchReadings(ctx context.Context, q models.ReadingsQuery) ([]models.Reading, error) {
	const op = "fetch readings"
	params := map[string]string{}
	if q.WallID != "" {
		params["wall_id"] = q.WallID
	}
	if !q.Start.IsZero() {
		params["start_time"] = q.Start.UTC().Format(queryTimeLayout)
	}
	if !q.End.IsZero() {
		params["end_time"] = q.End.UTC().Format(queryTimeLayout)
	}
	if q.Limit > 0 {
		params["limit"] = strconv.Itoa(q.Limit)
	}

	body, err := c.do(ctx, op, c.http.R().SetContext(ctx).SetQueryParams(params), http.MethodGet, "/sensor-data")
	if err != nil {
		return nil, err
	}
	env, err := decodeEnvelope(op, body)
	if err != nil {
		return nil, err
	}
	readings := []models.Reading{}
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &readings); err != nil {
			return nil, fmt.Errorf("telemetry: %s: decode: %w", op, err)
		}
	}
	if q.Limit > 0 && len(readings) > q.Limit {
		readings = readings[:q.Limit]
	}
	if q.Limit > 0 && len(readings) == q.Limit {
		c.logger.Debug("readings page full, older readings in window were not returned",
			zap.String("wall_id", q.WallID),
			zap.Int("limit", q.Limit),
		)
	}
	return readings, nil
}

// SubmitReading posts a partial reading and returns the id the backend assigned.
func (c *TelemetryClient) SubmitReading(ctx context.Context, in models.ReadingInput) (string, error) {
	const op = "submit reading"
	req := c.http.R().SetContext(ctx).SetHeader("Content-Type", "application/json").SetBody(in)
	body, err := c.do(ctx, op, req, http.MethodPost, "/sensor-data")
	if err != nil {
		return "", err
	}
	env, err := decodeEnvelope(op, body)
	if err != nil {
		return "", err
	}
	var data struct {
		ID string `json:"id"`
	}
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return "", fmt.Errorf("telemetry: %s: decode: %w", op, err)
		}
	}
	return data.ID, nil
}

func (c *TelemetryClient) do(ctx context.Context, op string, req *resty.Request, method, path string) ([]byte, error) {
	resp, err := req.Execute(method, path)
	if err != nil {
		c.logger.Warn("telemetry request failed", zap.String("op", op), zap.Error(err))
		return nil, networkError(op, err)
	}

	status := resp.StatusCode()
	if status == http.StatusUnauthorized {
		// ctx may already be done when the caller gave up; the purge must still happen.
		// Only the credential this request carried is purged.
		if err := c.purgeCredential(context.WithoutCancel(ctx), req.Token); err != nil {
			c.logger.Error("failed to clear credential after 401", zap.Error(err))
		}
		c.logger.Warn("telemetry request unauthorized, credential cleared", zap.String("op", op))
		return nil, ErrUnauthorized
	}
	if status < 200 || status >= 300 {
		c.logger.Warn("telemetry returned non-success", zap.String("op", op), zap.Int("status", status))
		return nil, serverError(op, status, resp.Body())
	}
	return resp.Body(), nil
}

func (c *TelemetryClient) purgeCredential(ctx context.Context, sent string) error {
	if c.creds == nil {
		return nil
	}
	return c.creds.ClearIf(ctx, sent)
}

func decodeEnvelope(op string, body []byte) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return env, fmt.Errorf("telemetry: %s: decode: %w", op, err)
	}
	if !env.Success {
		return env, &ServerError{Op: op, StatusCode: http.StatusOK, Message: env.Error, Details: env.Details}
	}
	return env, nil
}

func serverError(op string, status int, body []byte) error {
	srvErr := &ServerError{Op: op, StatusCode: status}
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil {
		srvErr.Message = env.Error
		srvErr.Details = env.Details
	}
	if srvErr.Message == "" {
		srvErr.Message = http.StatusText(status)
	}
	return srvErr
}

// IsRetryLater reports whether err is a transport failure the view should present as
// "try again later".
func IsRetryLater(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}
