// conf/validate.go

package conf

import (
	"fmt"
	"net"
	"net/url"
	"slices"
	"strings"
	"time"
)

// Allowed values for enumerated settings.
const (
	SourceLive   = "live"
	SourceReplay = "replay"

	PositionHTTP   = "http"
	PositionReplay = "replay"
	PositionNone   = "none"

	DatabaseSQLite = "sqlite"
	DatabaseMySQL  = "mysql"

	WifiBackendIW = "iw"
)

const (
	minScanInterval = 100 * time.Millisecond
	// dBm range accepted for the signal floor; -127 is the "no value" marker
	minSignalFloor = -127
	maxSignalFloor = 0
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateScanSettings(&settings.Scan); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateDatabaseSettings(&settings.Database); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateListenAddress("api.listen", settings.API.Enabled, settings.API.Listen); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateListenAddress("telemetry.listen", settings.Telemetry.Enabled, settings.Telemetry.Listen); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateMQTTSettings(&settings.MQTT); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if settings.Sentry.Enabled && settings.Sentry.DSN == "" {
		ve.Errors = append(ve.Errors, "sentry.dsn is required when sentry is enabled")
	}

	if settings.Notification.Enabled && len(settings.Notification.URLs) == 0 {
		ve.Errors = append(ve.Errors, "notification.urls must contain at least one URL when notifications are enabled")
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

// validateScanSettings checks the orchestrator options
func validateScanSettings(s *ScanSettings) error {
	var errs []string

	if s.Interval < minScanInterval {
		errs = append(errs, fmt.Sprintf("scan.interval must be at least %s, got %s", minScanInterval, s.Interval))
	}

	if s.MinSignalLevel < minSignalFloor || s.MinSignalLevel > maxSignalFloor {
		errs = append(errs, fmt.Sprintf("scan.minsignallevel must be between %d and %d dBm, got %d",
			minSignalFloor, maxSignalFloor, s.MinSignalLevel))
	}

	if s.DrainTimeout < 0 {
		errs = append(errs, "scan.draintimeout must not be negative")
	}

	if s.Workers < 1 {
		errs = append(errs, fmt.Sprintf("scan.workers must be at least 1, got %d", s.Workers))
	}

	if s.QueueSize < 1 {
		errs = append(errs, fmt.Sprintf("scan.queuesize must be at least 1, got %d", s.QueueSize))
	}

	if s.ResolverCacheTTL < 0 {
		errs = append(errs, "scan.resolvercachettl must not be negative")
	}

	if s.Wifi.Enabled && s.Wifi.Backend != WifiBackendIW {
		errs = append(errs, fmt.Sprintf("scan.wifi.backend %q is not supported", s.Wifi.Backend))
	}

	if !slices.Contains([]string{SourceLive, SourceReplay}, s.Source.Type) {
		errs = append(errs, fmt.Sprintf("scan.source.type must be %q or %q, got %q", SourceLive, SourceReplay, s.Source.Type))
	}

	if s.Source.ReplaySpeed < 0 {
		errs = append(errs, "scan.source.replayspeed must not be negative")
	}

	if !slices.Contains([]string{PositionHTTP, PositionReplay, PositionNone}, s.Position.Type) {
		errs = append(errs, fmt.Sprintf("scan.position.type %q is not supported", s.Position.Type))
	}

	if s.Position.Type == PositionHTTP && s.Position.URL != "" {
		if u, err := url.Parse(s.Position.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errs = append(errs, fmt.Sprintf("scan.position.url %q must be an http(s) URL", s.Position.URL))
		}
	}

	if s.Position.PollInterval <= 0 && s.Position.Type == PositionHTTP {
		errs = append(errs, "scan.position.pollinterval must be positive")
	}

	if s.Position.MinDistance < 0 {
		errs = append(errs, "scan.position.mindistance must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("scan settings: %s", strings.Join(errs, "; "))
	}
	return nil
}

// validateDatabaseSettings checks the store backend selection
func validateDatabaseSettings(s *DatabaseSettings) error {
	switch s.Type {
	case DatabaseSQLite:
		if s.SQLite.Path == "" {
			return fmt.Errorf("database.sqlite.path is required")
		}
	case DatabaseMySQL:
		var missing []string
		if s.MySQL.Host == "" {
			missing = append(missing, "host")
		}
		if s.MySQL.Port == "" {
			missing = append(missing, "port")
		}
		if s.MySQL.Username == "" {
			missing = append(missing, "username")
		}
		if s.MySQL.Database == "" {
			missing = append(missing, "database")
		}
		if len(missing) > 0 {
			return fmt.Errorf("database.mysql is missing: %s", strings.Join(missing, ", "))
		}
	default:
		return fmt.Errorf("database.type must be %q or %q, got %q", DatabaseSQLite, DatabaseMySQL, s.Type)
	}
	return nil
}

func validateListenAddress(key string, enabled bool, addr string) error {
	if !enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("%s %q is not a valid host:port: %w", key, addr, err)
	}
	return nil
}

func validateMQTTSettings(s *MQTTSettings) error {
	if !s.Enabled {
		return nil
	}
	if s.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
	}
	if _, err := url.Parse(s.Broker); err != nil {
		return fmt.Errorf("mqtt.broker %q is invalid: %w", s.Broker, err)
	}
	if strings.TrimSpace(s.Topic) == "" {
		return fmt.Errorf("mqtt.topic is required when mqtt is enabled")
	}
	return nil
}
