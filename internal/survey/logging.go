package survey

import (
	"fmt"

	"github.com/tphakala/rfscan-go/internal/conf"
	"github.com/tphakala/rfscan-go/internal/logger"
)

// SetupLogging builds the central logger from settings and installs it as
// the global logger. Debug mode lowers the default level to debug.
// A relative log file path is placed under the data directory.
func SetupLogging(settings *conf.Settings) (*logger.CentralLogger, error) {
	cfg := settings.Logging
	if settings.Debug {
		cfg.DefaultLevel = "debug"
		if cfg.Console != nil {
			console := *cfg.Console
			console.Level = "debug"
			cfg.Console = &console
		}
	}
	if cfg.FileOutput != nil && cfg.FileOutput.Enabled {
		file := *cfg.FileOutput
		file.Path = settings.DataPath(file.Path)
		cfg.FileOutput = &file
	}

	cl, err := logger.NewCentralLogger(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.SetGlobal(cl)
	return cl, nil
}
