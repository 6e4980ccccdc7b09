// Package export writes stored networks as CSV in the column layout used by
// common wardriving upload services.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/tphakala/rfscan-go/internal/datastore/entities"
	"github.com/tphakala/rfscan-go/internal/datastore/repository"
	"github.com/tphakala/rfscan-go/internal/errors"
)

// Header is the CSV header row.
var Header = []string{
	"MAC", "SSID", "AuthMode", "FirstSeen", "Channel", "RSSI",
	"CurrentLatitude", "CurrentLongitude", "AltitudeMeters", "AccuracyMeters", "Type",
}

// TimeLayout formats FirstSeen as ISO-8601 with milliseconds and a numeric zone.
const TimeLayout = "2006-01-02T15:04:05.000-0700"

const pageSize = 500

// FileName returns the default export file name for t.
func FileName(t time.Time) string {
	return "rfscan_export_" + t.Format("20060102_150405") + ".csv"
}

// Record converts one network to its CSV row. Altitude and accuracy are not
// tracked per network and are always written as 0.
func Record(n *entities.Network) []string {
	authMode := n.Security
	if authMode == "" {
		authMode = "UNKNOWN"
	}
	return []string{
		n.Address,
		n.Name,
		authMode,
		n.FirstSeen.Format(TimeLayout),
		strconv.Itoa(n.Channel),
		strconv.Itoa(n.BestLevel),
		strconv.FormatFloat(n.BestLat, 'f', -1, 64),
		strconv.FormatFloat(n.BestLon, 'f', -1, 64),
		"0",
		"0",
		string(n.Kind),
	}
}

// WriteCSV writes the header and every network matching filter to w and
// returns the number of rows written. When filter.Limit is zero the whole
// table is walked in pages.
func WriteCSV(ctx context.Context, w io.Writer, networks repository.NetworkRepository, filter repository.NetworkFilter) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return 0, writeError(err)
	}

	written := 0
	remaining := filter.Limit
	filter.Offset = max(filter.Offset, 0)
	for {
		page := filter
		page.Limit = pageSize
		if remaining > 0 {
			page.Limit = min(pageSize, remaining-written)
		}

		rows, err := networks.List(ctx, page)
		if err != nil {
			return written, errors.New(err).
				Component("export").
				Category(errors.CategoryDatabase).
				Context("operation", "list_networks").
				Context("offset", page.Offset).
				Build()
		}

		for _, n := range rows {
			if err := cw.Write(Record(n)); err != nil {
				return written, writeError(err)
			}
			written++
		}

		if len(rows) < page.Limit || (remaining > 0 && written >= remaining) {
			break
		}
		filter.Offset += len(rows)
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return written, writeError(err)
	}
	return written, nil
}

func writeError(err error) error {
	return errors.New(fmt.Errorf("write csv: %w", err)).
		Component("export").
		Category(errors.CategoryFileIO).
		Build()
}
