package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/rfscan-go/internal/datastore/entities"
	"github.com/tphakala/rfscan-go/internal/datastore/repository"
	"github.com/tphakala/rfscan-go/internal/errors"
	"github.com/tphakala/rfscan-go/internal/rpa"
)

// IRKRequest adds or renames an identity key. Key is ignored on update.
type IRKRequest struct {
	Key        string `json:"key"`
	Name       string `json:"name"`
	DeviceType string `json:"device_type"`
}

// ResolveRequest asks which stored key, if any, resolves an address.
type ResolveRequest struct {
	Address string `json:"address"`
}

// ResolveResponse is the outcome of a resolve request.
type ResolveResponse struct {
	Address    string `json:"address"`
	Resolvable bool   `json:"resolvable"`
	Resolved   bool   `json:"resolved"`
	IRKID      string `json:"irk_id,omitempty"`
	Name       string `json:"name,omitempty"`
}

func (c *Controller) irkError(ctx echo.Context, err error, message string) error {
	switch {
	case errors.Is(err, repository.ErrIRKNotFound):
		return c.HandleError(ctx, err, "identity key not found", http.StatusNotFound)
	case errors.Is(err, repository.ErrDuplicateKey):
		return c.HandleError(ctx, err, "identity key already exists", http.StatusConflict)
	case errors.Is(err, repository.ErrInvalidInput):
		return c.HandleError(ctx, err, "invalid identity key", http.StatusBadRequest)
	default:
		return c.HandleError(ctx, err, message, http.StatusInternalServerError)
	}
}

// ListIRKs returns all stored identity keys.
func (c *Controller) ListIRKs(ctx echo.Context) error {
	rows, err := c.store.IRKs.List(ctx.Request().Context())
	if err != nil {
		return c.irkError(ctx, err, "failed to list identity keys")
	}
	out := make([]IRKResponse, 0, len(rows))
	for _, k := range rows {
		out = append(out, newIRKResponse(k))
	}
	return ctx.JSON(http.StatusOK, out)
}

// AddIRK stores a new identity key. The key may be given in any notation
// rpa.ParseKey accepts and is stored in compact lower-case hex.
func (c *Controller) AddIRK(ctx echo.Context) error {
	var req IRKRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "invalid request body", http.StatusBadRequest)
	}

	key, err := rpa.ParseKey(req.Key)
	if err != nil {
		return c.HandleError(ctx, err, "key must be 16 bytes of hex", http.StatusBadRequest)
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return c.HandleError(ctx, nil, "name is required", http.StatusBadRequest)
	}

	irk := &entities.IRK{
		Key:        key.String(),
		Name:       name,
		DeviceType: strings.TrimSpace(req.DeviceType),
		AddedAt:    time.Now().UTC(),
	}
	if err := c.store.IRKs.Add(ctx.Request().Context(), irk); err != nil {
		return c.irkError(ctx, err, "failed to store identity key")
	}

	c.logger.Info("identity key added")
	return ctx.JSON(http.StatusCreated, newIRKResponse(irk))
}

// UpdateIRK changes the name and device type of a stored key.
func (c *Controller) UpdateIRK(ctx echo.Context) error {
	var req IRKRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "invalid request body", http.StatusBadRequest)
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return c.HandleError(ctx, nil, "name is required", http.StatusBadRequest)
	}

	reqCtx := ctx.Request().Context()
	id := ctx.Param("id")
	if err := c.store.IRKs.Update(reqCtx, id, name, strings.TrimSpace(req.DeviceType)); err != nil {
		return c.irkError(ctx, err, "failed to update identity key")
	}
	k, err := c.store.IRKs.GetByID(reqCtx, id)
	if err != nil {
		return c.irkError(ctx, err, "failed to load identity key")
	}
	return ctx.JSON(http.StatusOK, newIRKResponse(k))
}

// DeleteIRK removes a stored key.
func (c *Controller) DeleteIRK(ctx echo.Context) error {
	if err := c.store.IRKs.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return c.irkError(ctx, err, "failed to delete identity key")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// ResolveAddress tests an address against every stored key.
func (c *Controller) ResolveAddress(ctx echo.Context) error {
	var req ResolveRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "invalid request body", http.StatusBadRequest)
	}

	addr, err := rpa.ParseAddress(req.Address)
	if err != nil {
		return c.HandleError(ctx, err, "address must be six hex octets", http.StatusBadRequest)
	}
	resp := ResolveResponse{Address: addr.String(), Resolvable: addr.IsResolvable()}
	if !resp.Resolvable {
		return ctx.JSON(http.StatusOK, resp)
	}

	rows, err := c.store.IRKs.List(ctx.Request().Context())
	if err != nil {
		return c.irkError(ctx, err, "failed to list identity keys")
	}
	keys := make([]rpa.Key, 0, len(rows))
	stored := make([]*entities.IRK, 0, len(rows))
	for _, k := range rows {
		parsed, err := rpa.ParseKey(k.Key)
		if err != nil {
			c.logger.Warn("skipping malformed stored identity key")
			continue
		}
		keys = append(keys, parsed)
		stored = append(stored, k)
	}

	if i, ok := rpa.Match(resp.Address, keys); ok {
		resp.Resolved = true
		resp.IRKID = stored[i].ID
		resp.Name = stored[i].Name
	}
	return ctx.JSON(http.StatusOK, resp)
}
