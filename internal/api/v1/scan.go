package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/rfscan-go/internal/scanner"
)

const (
	streamBuffer    = 8
	streamHeartbeat = 30 * time.Second
)

// OptionsRequest is a partial update of the scan options. Absent fields keep
// their current value.
type OptionsRequest struct {
	WifiEnabled    *bool   `json:"wifi_enabled"`
	BLEEnabled     *bool   `json:"ble_enabled"`
	ClassicEnabled *bool   `json:"classic_enabled"`
	LogRoute       *bool   `json:"log_route"`
	MinSignalLevel *int    `json:"min_signal_level"`
	Interval       *string `json:"interval"` // Go duration, e.g. "2s"
}

// OptionsResponse is the API view of the scan options.
type OptionsResponse struct {
	WifiEnabled    bool   `json:"wifi_enabled"`
	BLEEnabled     bool   `json:"ble_enabled"`
	ClassicEnabled bool   `json:"classic_enabled"`
	LogRoute       bool   `json:"log_route"`
	MinSignalLevel int    `json:"min_signal_level"`
	Interval       string `json:"interval"`
}

func newOptionsResponse(o scanner.Options) OptionsResponse {
	return OptionsResponse{
		WifiEnabled:    o.WifiEnabled,
		BLEEnabled:     o.BLEEnabled,
		ClassicEnabled: o.ClassicEnabled,
		LogRoute:       o.LogRoute,
		MinSignalLevel: o.MinSignalLevel,
		Interval:       o.Interval.String(),
	}
}

func (c *Controller) requireScanner(ctx echo.Context) error {
	if c.scanner == nil {
		return c.HandleError(ctx, nil, "scanner is not available", http.StatusServiceUnavailable)
	}
	return nil
}

// GetStatus returns the current orchestrator snapshot.
func (c *Controller) GetStatus(ctx echo.Context) error {
	if c.scanner == nil {
		return c.requireScanner(ctx)
	}
	return ctx.JSON(http.StatusOK, c.scanner.Snapshot())
}

// StartScan starts a scan run. Starting a running scan is a no-op.
func (c *Controller) StartScan(ctx echo.Context) error {
	if c.scanner == nil {
		return c.requireScanner(ctx)
	}
	if err := c.scanner.Start(ctx.Request().Context()); err != nil {
		return c.HandleError(ctx, err, "failed to start scan", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, c.scanner.Snapshot())
}

// StopScan stops the running scan. Stopping an idle scanner is a no-op.
func (c *Controller) StopScan(ctx echo.Context) error {
	if c.scanner == nil {
		return c.requireScanner(ctx)
	}
	if err := c.scanner.Stop(ctx.Request().Context()); err != nil {
		return c.HandleError(ctx, err, "scan stopped with errors", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, c.scanner.Snapshot())
}

// GetOptions returns the active scan options.
func (c *Controller) GetOptions(ctx echo.Context) error {
	if c.scanner == nil {
		return c.requireScanner(ctx)
	}
	return ctx.JSON(http.StatusOK, newOptionsResponse(c.scanner.Options()))
}

// UpdateOptions applies a partial options update; a running scan picks it
// up on its next cycle.
func (c *Controller) UpdateOptions(ctx echo.Context) error {
	if c.scanner == nil {
		return c.requireScanner(ctx)
	}

	var req OptionsRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "invalid request body", http.StatusBadRequest)
	}

	opts := c.scanner.Options()
	if req.WifiEnabled != nil {
		opts.WifiEnabled = *req.WifiEnabled
	}
	if req.BLEEnabled != nil {
		opts.BLEEnabled = *req.BLEEnabled
	}
	if req.ClassicEnabled != nil {
		opts.ClassicEnabled = *req.ClassicEnabled
	}
	if req.LogRoute != nil {
		opts.LogRoute = *req.LogRoute
	}
	if req.MinSignalLevel != nil {
		if *req.MinSignalLevel < -127 || *req.MinSignalLevel > 0 {
			return c.HandleError(ctx, nil, "min_signal_level must be between -127 and 0", http.StatusBadRequest)
		}
		opts.MinSignalLevel = *req.MinSignalLevel
	}
	if req.Interval != nil {
		d, err := time.ParseDuration(*req.Interval)
		if err != nil || d < 100*time.Millisecond {
			return c.HandleError(ctx, err, "interval must be a duration of at least 100ms", http.StatusBadRequest)
		}
		opts.Interval = d
	}

	c.scanner.SetOptions(opts)
	c.logger.Info("scan options updated")
	return ctx.JSON(http.StatusOK, newOptionsResponse(opts))
}

// StreamStatus sends orchestrator snapshots as server-sent events until the
// client disconnects.
func (c *Controller) StreamStatus(ctx echo.Context) error {
	if c.scanner == nil {
		return c.requireScanner(ctx)
	}

	updates, unsubscribe := c.scanner.Subscribe(streamBuffer)
	defer unsubscribe()

	w := ctx.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set(echo.HeaderConnection, "keep-alive")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	done := ctx.Request().Context().Done()
	for {
		select {
		case <-done:
			return nil
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return nil
			}
			w.Flush()
		case snap, ok := <-updates:
			if !ok {
				return nil
			}
			data, err := json.Marshal(snap)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "event: status\ndata: %s\n\n", data); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}
