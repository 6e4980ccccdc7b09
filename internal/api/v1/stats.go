package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/rfscan-go/internal/export"
	"github.com/tphakala/rfscan-go/internal/logger"
)

// StatsResponse summarizes the store.
type StatsResponse struct {
	NetworksByKind map[string]int64 `json:"networks_by_kind"`
	TotalNetworks  int64            `json:"total_networks"`
	TotalSightings int64            `json:"total_sightings"`
	Sessions       int64            `json:"sessions"`
	RoutePoints    int64            `json:"route_points"`
	IdentityKeys   int64            `json:"identity_keys"`
	LastSeen       *time.Time       `json:"last_seen,omitempty"`
}

// GetStats returns store statistics. Results are cached until the next
// write or for a few seconds, whichever comes first.
func (c *Controller) GetStats(ctx echo.Context) error {
	if cached, ok := c.statsCache.Get(statsCacheKey); ok {
		if resp, ok := cached.(StatsResponse); ok {
			return ctx.JSON(http.StatusOK, resp)
		}
	}
	if c.stats == nil {
		return c.HandleError(ctx, nil, "statistics are not available", http.StatusServiceUnavailable)
	}

	s, err := c.stats.Statistics(ctx.Request().Context())
	if err != nil {
		return c.HandleError(ctx, err, "failed to compute statistics", http.StatusInternalServerError)
	}

	resp := StatsResponse{
		NetworksByKind: make(map[string]int64, len(s.NetworksByKind)),
		TotalNetworks:  s.TotalNetworks,
		TotalSightings: s.TotalSightings,
		Sessions:       s.Sessions,
		RoutePoints:    s.RoutePoints,
		IdentityKeys:   s.IdentityKeys,
	}
	for k, v := range s.NetworksByKind {
		resp.NetworksByKind[string(k)] = v
	}
	if !s.LastSeen.IsZero() {
		last := s.LastSeen
		resp.LastSeen = &last
	}

	c.statsCache.SetDefault(statsCacheKey, resp)
	return ctx.JSON(http.StatusOK, resp)
}

// ExportCSV streams the networks matching the list filters as a CSV
// attachment. Without a limit parameter every match is exported.
func (c *Controller) ExportCSV(ctx echo.Context) error {
	filter, err := networkFilter(ctx)
	if err != nil {
		return c.badRequest(ctx, err)
	}
	if ctx.QueryParam("limit") == "" {
		filter.Limit = 0
	}

	w := ctx.Response()
	w.Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	w.Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+export.FileName(time.Now())+`"`)
	w.WriteHeader(http.StatusOK)

	rows, err := export.WriteCSV(ctx.Request().Context(), w, c.store.Networks, filter)
	if err != nil {
		// Headers are already on the wire; the client sees a truncated file
		c.logger.Error("CSV export aborted",
			logger.Int("rows", rows),
			logger.Error(err))
		return nil
	}
	c.logger.Debug("CSV export complete", logger.Int("rows", rows))
	return nil
}
