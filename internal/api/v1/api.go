// Package api implements the JSON HTTP API: scan control and status,
// stored networks, sessions and routes, identity keys, statistics and CSV
// export.
package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/patrickmn/go-cache"

	"github.com/tphakala/rfscan-go/internal/datastore"
	"github.com/tphakala/rfscan-go/internal/logger"
	"github.com/tphakala/rfscan-go/internal/observation"
	"github.com/tphakala/rfscan-go/internal/scanner"
)

// Prefix is the route prefix of every endpoint.
const Prefix = "/api/v1"

const (
	statsCacheTTL   = 10 * time.Second
	defaultPageSize = 100
	maxPageSize     = 1000
	statsCacheKey   = "stats"
)

// Scanner is the part of the orchestrator the API drives.
type Scanner interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Snapshot() scanner.Snapshot
	Subscribe(buffer int) (<-chan scanner.Snapshot, func())
	Options() scanner.Options
	SetOptions(opts scanner.Options)
}

// StatsSource computes store statistics.
type StatsSource interface {
	Statistics(ctx context.Context) (observation.Statistics, error)
}

// Controller manages the API routes and handlers.
type Controller struct {
	Echo  *echo.Echo
	Group *echo.Group

	store   *datastore.Store
	scanner Scanner
	stats   StatsSource
	logger  logger.Logger

	statsCache    *cache.Cache
	unsubscribeDB func()
}

// GetLogger returns the API logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("api")
}

// New registers the API routes on e. scanner may be nil, in which case the
// scan control endpoints answer 503.
func New(e *echo.Echo, store *datastore.Store, sc Scanner, stats StatsSource) *Controller {
	c := &Controller{
		Echo:       e,
		Group:      e.Group(Prefix),
		store:      store,
		scanner:    sc,
		stats:      stats,
		logger:     GetLogger(),
		statsCache: cache.New(statsCacheTTL, 2*statsCacheTTL),
	}

	// Any write makes cached statistics stale
	c.unsubscribeDB = store.OnChange(func(datastore.ChangeEvent) {
		c.statsCache.Delete(statsCacheKey)
	})

	c.initRoutes()
	return c
}

func (c *Controller) initRoutes() {
	g := c.Group
	g.GET("/health", c.Health)

	g.GET("/status", c.GetStatus)
	g.GET("/status/stream", c.StreamStatus)
	g.POST("/scan/start", c.StartScan)
	g.POST("/scan/stop", c.StopScan)
	g.GET("/scan/options", c.GetOptions)
	g.PUT("/scan/options", c.UpdateOptions)

	g.GET("/networks", c.ListNetworks)
	g.DELETE("/networks", c.DeleteOldNetworks)
	g.GET("/networks/:address", c.GetNetwork)
	g.GET("/networks/:address/sightings", c.ListNetworkSightings)

	g.GET("/sessions", c.ListSessions)
	g.GET("/sessions/:id", c.GetSession)
	g.DELETE("/sessions/:id", c.DeleteSession)
	g.GET("/sessions/:id/route", c.GetSessionRoute)
	g.GET("/sessions/:id/sightings", c.ListSessionSightings)
	g.GET("/route", c.ListRoute)

	g.GET("/irks", c.ListIRKs)
	g.POST("/irks", c.AddIRK)
	g.PUT("/irks/:id", c.UpdateIRK)
	g.DELETE("/irks/:id", c.DeleteIRK)
	g.POST("/irks/resolve", c.ResolveAddress)

	g.GET("/stats", c.GetStats)
	g.GET("/export.csv", c.ExportCSV)
}

// Shutdown detaches the controller from store notifications.
func (c *Controller) Shutdown() {
	if c.unsubscribeDB != nil {
		c.unsubscribeDB()
	}
}

// Health reports liveness.
func (c *Controller) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"`
}

// NewErrorResponse creates an error body with a fresh correlation id.
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	errorStr := message
	if err != nil {
		errorStr = err.Error()
	}
	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: uuid.NewString()[:8],
	}
}

// HandleError logs err and writes a JSON error reply.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	resp := NewErrorResponse(err, message, code)

	fields := []logger.Field{
		logger.String("correlation_id", resp.CorrelationID),
		logger.String("message", message),
		logger.String("path", ctx.Path()),
		logger.String("ip", ctx.RealIP()),
		logger.Int("code", code),
	}
	if err != nil {
		fields = append(fields, logger.Error(err))
	}
	if code >= http.StatusInternalServerError {
		c.logger.Error("API error", fields...)
	} else {
		c.logger.Debug("API client error", fields...)
	}

	return ctx.JSON(code, resp)
}

// pageParams reads limit and offset query parameters.
func pageParams(ctx echo.Context) (limit, offset int, err error) {
	limit, err = intParam(ctx, "limit", defaultPageSize)
	if err != nil {
		return 0, 0, err
	}
	if limit < 1 || limit > maxPageSize {
		return 0, 0, echo.NewHTTPError(http.StatusBadRequest, "limit must be between 1 and "+strconv.Itoa(maxPageSize))
	}
	offset, err = intParam(ctx, "offset", 0)
	if err != nil {
		return 0, 0, err
	}
	if offset < 0 {
		return 0, 0, echo.NewHTTPError(http.StatusBadRequest, "offset must not be negative")
	}
	return limit, offset, nil
}

func intParam(ctx echo.Context, name string, def int) (int, error) {
	raw := strings.TrimSpace(ctx.QueryParam(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, name+" must be an integer")
	}
	return v, nil
}

func boolParam(ctx echo.Context, name string) (bool, error) {
	raw := strings.TrimSpace(ctx.QueryParam(name))
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, echo.NewHTTPError(http.StatusBadRequest, name+" must be true or false")
	}
	return v, nil
}

// timeParam accepts RFC 3339 timestamps.
func timeParam(ctx echo.Context, name string) (time.Time, error) {
	raw := strings.TrimSpace(ctx.QueryParam(name))
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, echo.NewHTTPError(http.StatusBadRequest, name+" must be an RFC 3339 timestamp")
	}
	return t, nil
}

// badRequest converts a parameter error into the standard error reply.
func (c *Controller) badRequest(ctx echo.Context, err error) error {
	msg := err.Error()
	if he, ok := err.(*echo.HTTPError); ok {
		if s, ok := he.Message.(string); ok {
			msg = s
		}
	}
	return c.HandleError(ctx, nil, msg, http.StatusBadRequest)
}
