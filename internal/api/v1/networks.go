package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/rfscan-go/internal/datastore/entities"
	"github.com/tphakala/rfscan-go/internal/datastore/repository"
	"github.com/tphakala/rfscan-go/internal/errors"
	"github.com/tphakala/rfscan-go/internal/radio"
)

// NetworkListResponse is one page of networks.
type NetworkListResponse struct {
	Networks []NetworkResponse `json:"networks"`
	Total    int64             `json:"total"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}

var networkOrders = map[string]repository.NetworkOrder{
	"":           repository.OrderLastSeen,
	"last_seen":  repository.OrderLastSeen,
	"signal":     repository.OrderSignal,
	"first_seen": repository.OrderFirstSeen,
}

// networkFilter reads the list query parameters:
// kind, search, min_level, since, until, located, resolved, order, limit, offset.
func networkFilter(ctx echo.Context) (repository.NetworkFilter, error) {
	var f repository.NetworkFilter
	var err error

	if k := strings.ToUpper(strings.TrimSpace(ctx.QueryParam("kind"))); k != "" {
		f.Kind = entities.Kind(k)
		if !f.Kind.Valid() {
			return f, echo.NewHTTPError(http.StatusBadRequest, "kind must be WIFI, BLUETOOTH, BLE or CELLULAR")
		}
	}
	f.Search = strings.TrimSpace(ctx.QueryParam("search"))

	if ctx.QueryParam("min_level") != "" {
		level, err := intParam(ctx, "min_level", 0)
		if err != nil {
			return f, err
		}
		f.MinLevel = &level
	}
	if f.SeenAfter, err = timeParam(ctx, "since"); err != nil {
		return f, err
	}
	if f.SeenBefore, err = timeParam(ctx, "until"); err != nil {
		return f, err
	}
	if f.WithLocation, err = boolParam(ctx, "located"); err != nil {
		return f, err
	}
	if f.ResolvedOnly, err = boolParam(ctx, "resolved"); err != nil {
		return f, err
	}

	order, ok := networkOrders[ctx.QueryParam("order")]
	if !ok {
		return f, echo.NewHTTPError(http.StatusBadRequest, "order must be last_seen, signal or first_seen")
	}
	f.Order = order

	if f.Limit, f.Offset, err = pageParams(ctx); err != nil {
		return f, err
	}
	return f, nil
}

// ListNetworks returns a filtered page of networks with the total match count.
func (c *Controller) ListNetworks(ctx echo.Context) error {
	filter, err := networkFilter(ctx)
	if err != nil {
		return c.badRequest(ctx, err)
	}

	reqCtx := ctx.Request().Context()
	rows, err := c.store.Networks.List(reqCtx, filter)
	if err != nil {
		return c.HandleError(ctx, err, "failed to list networks", http.StatusInternalServerError)
	}
	total, err := c.store.Networks.Count(reqCtx, filter)
	if err != nil {
		return c.HandleError(ctx, err, "failed to count networks", http.StatusInternalServerError)
	}

	resp := NetworkListResponse{
		Networks: make([]NetworkResponse, 0, len(rows)),
		Total:    total,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	}
	for _, n := range rows {
		resp.Networks = append(resp.Networks, NewNetworkResponse(n))
	}
	return ctx.JSON(http.StatusOK, resp)
}

// GetNetwork returns one network by address in any accepted notation.
func (c *Controller) GetNetwork(ctx echo.Context) error {
	n, err := c.store.Networks.GetByAddress(ctx.Request().Context(), radio.NormalizeAddress(ctx.Param("address")))
	if err != nil {
		if errors.Is(err, repository.ErrNetworkNotFound) {
			return c.HandleError(ctx, err, "network not found", http.StatusNotFound)
		}
		return c.HandleError(ctx, err, "failed to load network", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, NewNetworkResponse(n))
}

// ListNetworkSightings returns the most recent sightings of one network.
func (c *Controller) ListNetworkSightings(ctx echo.Context) error {
	limit, _, err := pageParams(ctx)
	if err != nil {
		return c.badRequest(ctx, err)
	}

	reqCtx := ctx.Request().Context()
	n, err := c.store.Networks.GetByAddress(reqCtx, radio.NormalizeAddress(ctx.Param("address")))
	if err != nil {
		if errors.Is(err, repository.ErrNetworkNotFound) {
			return c.HandleError(ctx, err, "network not found", http.StatusNotFound)
		}
		return c.HandleError(ctx, err, "failed to load network", http.StatusInternalServerError)
	}

	rows, err := c.store.Sightings.ListByNetwork(reqCtx, n.ID, limit)
	if err != nil {
		return c.HandleError(ctx, err, "failed to list sightings", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, newSightingResponses(rows))
}

// DeleteOldNetworks removes networks last seen longer ago than the
// older_than duration query parameter.
func (c *Controller) DeleteOldNetworks(ctx echo.Context) error {
	raw := ctx.QueryParam("older_than")
	age, err := time.ParseDuration(raw)
	if err != nil || age <= 0 {
		return c.HandleError(ctx, err, "older_than must be a positive duration, e.g. 720h", http.StatusBadRequest)
	}

	deleted, err := c.store.Networks.DeleteOlderThan(ctx.Request().Context(), time.Now().Add(-age))
	if err != nil {
		return c.HandleError(ctx, err, "failed to delete networks", http.StatusInternalServerError)
	}
	c.logger.Info("old networks deleted")
	return ctx.JSON(http.StatusOK, map[string]int64{"deleted": deleted})
}
