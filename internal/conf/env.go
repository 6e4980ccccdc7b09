// env.go - Environment variable configuration and validation for rfscan
package conf

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "RFSCAN_DEBUG", validateEnvBool},
		{"main.datadir", "RFSCAN_DATADIR", nil},

		// Scanning
		{"scan.wifi.interface", "RFSCAN_WIFI_INTERFACE", nil},
		{"scan.minsignallevel", "RFSCAN_MIN_SIGNAL_LEVEL", validateEnvSignalLevel},
		{"scan.source.type", "RFSCAN_SOURCE", nil},
		{"scan.source.replayfile", "RFSCAN_REPLAY_FILE", nil},
		{"scan.position.url", "RFSCAN_GPS_URL", validateEnvURL},

		// Database
		{"database.type", "RFSCAN_DATABASE_TYPE", nil},
		{"database.sqlite.path", "RFSCAN_SQLITE_PATH", nil},
		{"database.mysql.host", "RFSCAN_MYSQL_HOST", nil},
		{"database.mysql.port", "RFSCAN_MYSQL_PORT", validateEnvPort},
		{"database.mysql.username", "RFSCAN_MYSQL_USERNAME", nil},
		{"database.mysql.password", "RFSCAN_MYSQL_PASSWORD", nil},
		{"database.mysql.database", "RFSCAN_MYSQL_DATABASE", nil},

		// Integrations
		{"api.listen", "RFSCAN_API_LISTEN", nil},
		{"mqtt.broker", "RFSCAN_MQTT_BROKER", validateEnvURL},
		{"mqtt.username", "RFSCAN_MQTT_USERNAME", nil},
		{"mqtt.password", "RFSCAN_MQTT_PASSWORD", nil},
		{"sentry.dsn", "RFSCAN_SENTRY_DSN", nil},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars() error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, envValue, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}

	return nil
}

// validateEnvBool validates boolean environment variables
func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("must be true or false")
	}
	return nil
}

// validateEnvSignalLevel validates the dBm signal floor
func validateEnvSignalLevel(value string) error {
	level, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("must be an integer")
	}
	if level < minSignalFloor || level > maxSignalFloor {
		return fmt.Errorf("must be between %d and %d", minSignalFloor, maxSignalFloor)
	}
	return nil
}

// validateEnvPort validates a TCP port number
func validateEnvPort(value string) error {
	port, err := strconv.Atoi(value)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("must be a port between 1 and 65535")
	}
	return nil
}

// validateEnvURL validates that the value parses as an absolute URL
func validateEnvURL(value string) error {
	u, err := url.Parse(value)
	if err != nil {
		return err
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("must be an absolute URL")
	}
	return nil
}
