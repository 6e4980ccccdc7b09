package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/rfscan-go/internal/datastore/repository"
	"github.com/tphakala/rfscan-go/internal/errors"
)

// maxRouteWindow bounds /route queries so a careless request cannot pull
// the whole table.
const maxRouteWindow = 31 * 24 * time.Hour

// SessionListResponse is one page of sessions.
type SessionListResponse struct {
	Sessions []SessionResponse `json:"sessions"`
	Total    int64             `json:"total"`
}

func (c *Controller) sessionError(ctx echo.Context, err error, message string) error {
	switch {
	case errors.Is(err, repository.ErrSessionNotFound):
		return c.HandleError(ctx, err, "session not found", http.StatusNotFound)
	case errors.Is(err, repository.ErrSessionClosed):
		return c.HandleError(ctx, err, "session is closed", http.StatusConflict)
	default:
		return c.HandleError(ctx, err, message, http.StatusInternalServerError)
	}
}

// ListSessions returns sessions newest first.
func (c *Controller) ListSessions(ctx echo.Context) error {
	limit, offset, err := pageParams(ctx)
	if err != nil {
		return c.badRequest(ctx, err)
	}

	reqCtx := ctx.Request().Context()
	rows, err := c.store.Sessions.List(reqCtx, limit, offset)
	if err != nil {
		return c.sessionError(ctx, err, "failed to list sessions")
	}
	total, err := c.store.Sessions.Count(reqCtx)
	if err != nil {
		return c.sessionError(ctx, err, "failed to count sessions")
	}

	resp := SessionListResponse{Sessions: make([]SessionResponse, 0, len(rows)), Total: total}
	for _, s := range rows {
		resp.Sessions = append(resp.Sessions, newSessionResponse(s))
	}
	return ctx.JSON(http.StatusOK, resp)
}

// GetSession returns one session.
func (c *Controller) GetSession(ctx echo.Context) error {
	s, err := c.store.Sessions.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return c.sessionError(ctx, err, "failed to load session")
	}
	return ctx.JSON(http.StatusOK, newSessionResponse(s))
}

// DeleteSession removes a closed session and its route. Its sightings are
// kept and detached. The active session cannot be deleted.
func (c *Controller) DeleteSession(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	id := ctx.Param("id")

	s, err := c.store.Sessions.GetByID(reqCtx, id)
	if err != nil {
		return c.sessionError(ctx, err, "failed to load session")
	}
	if s.Active() {
		return c.HandleError(ctx, nil, "session is still active", http.StatusConflict)
	}

	if err := c.store.Sessions.Delete(reqCtx, id); err != nil {
		return c.sessionError(ctx, err, "failed to delete session")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// GetSessionRoute returns the route points of one session in time order.
func (c *Controller) GetSessionRoute(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	id := ctx.Param("id")

	if _, err := c.store.Sessions.GetByID(reqCtx, id); err != nil {
		return c.sessionError(ctx, err, "failed to load session")
	}
	rows, err := c.store.Routes.ListBySession(reqCtx, id)
	if err != nil {
		return c.HandleError(ctx, err, "failed to load route", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, newRouteResponses(rows))
}

// ListSessionSightings returns the sightings recorded during one session.
func (c *Controller) ListSessionSightings(ctx echo.Context) error {
	limit, _, err := pageParams(ctx)
	if err != nil {
		return c.badRequest(ctx, err)
	}

	reqCtx := ctx.Request().Context()
	id := ctx.Param("id")
	if _, err := c.store.Sessions.GetByID(reqCtx, id); err != nil {
		return c.sessionError(ctx, err, "failed to load session")
	}
	rows, err := c.store.Sightings.ListBySession(reqCtx, id, limit)
	if err != nil {
		return c.HandleError(ctx, err, "failed to list sightings", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, newSightingResponses(rows))
}

// ListRoute returns route points across sessions between from and to.
// Without parameters it covers the last 24 hours.
func (c *Controller) ListRoute(ctx echo.Context) error {
	from, err := timeParam(ctx, "from")
	if err != nil {
		return c.badRequest(ctx, err)
	}
	to, err := timeParam(ctx, "to")
	if err != nil {
		return c.badRequest(ctx, err)
	}
	if to.IsZero() {
		to = time.Now()
	}
	if from.IsZero() {
		from = to.Add(-24 * time.Hour)
	}
	if !from.Before(to) {
		return c.HandleError(ctx, nil, "from must be before to", http.StatusBadRequest)
	}
	if to.Sub(from) > maxRouteWindow {
		return c.HandleError(ctx, nil, "time window must not exceed 31 days", http.StatusBadRequest)
	}

	rows, err := c.store.Routes.ListByRange(ctx.Request().Context(), from, to)
	if err != nil {
		return c.HandleError(ctx, err, "failed to load route", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, newRouteResponses(rows))
}
