package survey

import (
	"context"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/tphakala/rfscan-go/internal/datastore"
	"github.com/tphakala/rfscan-go/internal/datastore/repository"
	"github.com/tphakala/rfscan-go/internal/logger"
)

const datastoreMetricsInterval = 30 * time.Second

// logSystemInfo logs the platform once at startup. Lookup failures are
// logged at debug level and otherwise ignored.
func logSystemInfo(log logger.Logger) {
	fields := []logger.Field{
		logger.String("go", runtime.Version()),
		logger.String("arch", runtime.GOARCH),
		logger.Int("cpus", runtime.NumCPU()),
	}

	if info, err := host.Info(); err == nil {
		fields = append(fields,
			logger.String("os", info.OS),
			logger.String("platform", info.Platform),
			logger.String("platform_version", info.PlatformVersion),
			logger.String("kernel", info.KernelVersion),
			logger.String("virtualization", info.VirtualizationSystem))
	} else {
		log.Debug("host info unavailable", logger.Error(err))
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		fields = append(fields,
			logger.Uint64("memory_total_mb", vm.Total/1024/1024),
			logger.Float64("memory_used_percent", vm.UsedPercent))
	} else {
		log.Debug("memory info unavailable", logger.Error(err))
	}

	log.Info("system info", fields...)
}

// TableGauges receives periodic datastore gauges.
type TableGauges interface {
	UpdateTableRowCount(table string, rowCount int64)
	UpdateConnectionMetrics(open, inUse int)
}

// monitorDatastore refreshes row count and connection gauges every interval
// until ctx ends.
func monitorDatastore(ctx context.Context, store *datastore.Store, gauges TableGauges, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	updateDatastoreGauges(ctx, store, gauges)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateDatastoreGauges(ctx, store, gauges)
		}
	}
}

func updateDatastoreGauges(ctx context.Context, store *datastore.Store, gauges TableGauges) {
	log := GetLogger()

	counts := []struct {
		table string
		count func(context.Context) (int64, error)
	}{
		{"networks", func(ctx context.Context) (int64, error) {
			return store.Networks.Count(ctx, repository.NetworkFilter{})
		}},
		{"sightings", store.Sightings.Count},
		{"sessions", store.Sessions.Count},
		{"route_points", store.Routes.Count},
		{"irks", store.IRKs.Count},
	}
	for _, c := range counts {
		n, err := c.count(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.Debug("row count failed", logger.String("table", c.table), logger.Error(err))
			}
			continue
		}
		gauges.UpdateTableRowCount(c.table, n)
	}

	if sqlDB, err := store.Manager().DB().DB(); err == nil {
		stats := sqlDB.Stats()
		gauges.UpdateConnectionMetrics(stats.OpenConnections, stats.InUse)
	}
}
