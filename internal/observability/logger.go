package observability

import "github.com/tphakala/rfscan-go/internal/logger"

// Package-level cached logger instance.
var log = logger.Global().Module("telemetry")
