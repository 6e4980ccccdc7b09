// Package conf provides configuration management for rfscan.
package conf

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/rfscan-go/internal/logger"
)

//go:embed config.yaml
var configFiles embed.FS

// MainSettings holds application identity and the data directory.
type MainSettings struct {
	Name    string `yaml:"name" mapstructure:"name"`
	DataDir string `yaml:"datadir" mapstructure:"datadir"` // base directory for the database, captures and exports
}

// WifiSettings configures the Wi-Fi sub-scanner.
type WifiSettings struct {
	Enabled   bool   `yaml:"enabled" mapstructure:"enabled"`
	Interface string `yaml:"interface" mapstructure:"interface"` // wireless interface passed to iw
	Backend   string `yaml:"backend" mapstructure:"backend"`     // "iw" is the only live backend
}

// ToggleSettings is a sub-scanner with only an on/off switch.
type ToggleSettings struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// SourceSettings selects where radio observations come from.
type SourceSettings struct {
	Type        string  `yaml:"type" mapstructure:"type"`               // "live" or "replay"
	ReplayFile  string  `yaml:"replayfile" mapstructure:"replayfile"`   // JSON-lines capture file
	ReplaySpeed float64 `yaml:"replayspeed" mapstructure:"replayspeed"` // 1.0 is real time, 0 replays without delays
}

// PositionSettings selects the position source.
type PositionSettings struct {
	Type         string        `yaml:"type" mapstructure:"type"` // "http", "replay" or "none"
	URL          string        `yaml:"url" mapstructure:"url"`
	PollInterval time.Duration `yaml:"pollinterval" mapstructure:"pollinterval"`
	MinDistance  float64       `yaml:"mindistance" mapstructure:"mindistance"` // meters between reported fixes
}

// ScanSettings contains the orchestrator options.
type ScanSettings struct {
	Interval         time.Duration    `yaml:"interval" mapstructure:"interval"`
	Wifi             WifiSettings     `yaml:"wifi" mapstructure:"wifi"`
	BLE              ToggleSettings   `yaml:"ble" mapstructure:"ble"`
	Classic          ToggleSettings   `yaml:"classic" mapstructure:"classic"`
	LogRoute         bool             `yaml:"logroute" mapstructure:"logroute"`
	MinSignalLevel   int              `yaml:"minsignallevel" mapstructure:"minsignallevel"` // dBm floor, sightings below are ignored
	DrainTimeout     time.Duration    `yaml:"draintimeout" mapstructure:"draintimeout"`
	Workers          int              `yaml:"workers" mapstructure:"workers"`
	QueueSize        int              `yaml:"queuesize" mapstructure:"queuesize"`
	ResolverCacheTTL time.Duration    `yaml:"resolvercachettl" mapstructure:"resolvercachettl"`
	Source           SourceSettings   `yaml:"source" mapstructure:"source"`
	Position         PositionSettings `yaml:"position" mapstructure:"position"`
}

// SQLiteSettings configures the SQLite backend.
type SQLiteSettings struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// MySQLSettings configures the MySQL backend.
type MySQLSettings struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     string `yaml:"port" mapstructure:"port"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	Database string `yaml:"database" mapstructure:"database"`
}

// DatabaseSettings selects and configures the store backend.
type DatabaseSettings struct {
	Type   string         `yaml:"type" mapstructure:"type"` // "sqlite" or "mysql"
	SQLite SQLiteSettings `yaml:"sqlite" mapstructure:"sqlite"`
	MySQL  MySQLSettings  `yaml:"mysql" mapstructure:"mysql"`
}

// APISettings configures the HTTP API.
type APISettings struct {
	Enabled        bool     `yaml:"enabled" mapstructure:"enabled"`
	Listen         string   `yaml:"listen" mapstructure:"listen"`
	AllowedOrigins []string `yaml:"allowedorigins" mapstructure:"allowedorigins"` // CORS, "*" for any
}

// TelemetrySettings configures the Prometheus endpoint.
type TelemetrySettings struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Listen  string `yaml:"listen" mapstructure:"listen"`
}

// SentrySettings configures error reporting.
type SentrySettings struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	DSN     string `yaml:"dsn" mapstructure:"dsn"`
}

// MQTTSettings configures the MQTT publisher.
type MQTTSettings struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Broker   string `yaml:"broker" mapstructure:"broker"`
	ClientID string `yaml:"clientid" mapstructure:"clientid"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	Topic    string `yaml:"topic" mapstructure:"topic"` // topic prefix
	Retain   bool   `yaml:"retain" mapstructure:"retain"`
}

// NotificationSettings configures push notifications.
type NotificationSettings struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	URLs    []string      `yaml:"urls" mapstructure:"urls"` // shoutrrr service URLs
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// Settings contains all configuration options for rfscan.
type Settings struct {
	Debug        bool                 `yaml:"debug" mapstructure:"debug"`
	Main         MainSettings         `yaml:"main" mapstructure:"main"`
	Logging      logger.LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Scan         ScanSettings         `yaml:"scan" mapstructure:"scan"`
	Database     DatabaseSettings     `yaml:"database" mapstructure:"database"`
	API          APISettings          `yaml:"api" mapstructure:"api"`
	Telemetry    TelemetrySettings    `yaml:"telemetry" mapstructure:"telemetry"`
	Sentry       SentrySettings       `yaml:"sentry" mapstructure:"sentry"`
	MQTT         MQTTSettings         `yaml:"mqtt" mapstructure:"mqtt"`
	Notification NotificationSettings `yaml:"notification" mapstructure:"notification"`
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
	configFileFlag   string
)

// SetConfigFile pins the configuration file path, bypassing the search paths.
func SetConfigFile(path string) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()
	configFileFlag = path
}

// Load reads the configuration file and environment variables into Settings.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigType("yaml")

	setDefaultConfig()

	if err := bindEnvVars(); err != nil {
		GetLogger().Warn("environment configuration problems", logger.Error(err))
	}

	if configFileFlag != "" {
		viper.SetConfigFile(configFileFlag)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("fatal error reading config file %s: %w", configFileFlag, err)
		}
		return nil
	}

	viper.SetConfigName("config")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	err = viper.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return createDefaultConfig(configPaths)
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig writes the embedded default config to the first search path
func createDefaultConfig(configPaths []string) error {
	if len(configPaths) == 0 {
		return fmt.Errorf("no config paths available")
	}
	configPath := filepath.Join(configPaths[0], "config.yaml")

	defaultConfig, err := getDefaultConfig()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	if err := os.WriteFile(configPath, defaultConfig, 0o644); err != nil { //nolint:gosec // config is not secret by default
		return fmt.Errorf("error writing default config file: %w", err)
	}

	GetLogger().Info("created default config file", logger.String("path", configPath))
	return viper.ReadInConfig()
}

// getDefaultConfig reads the default configuration from the embedded config.yaml file.
func getDefaultConfig() ([]byte, error) {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		return nil, fmt.Errorf("error reading embedded config: %w", err)
	}
	return data, nil
}

// GetSettings returns the current settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// SaveYAMLConfig writes settings to configPath atomically.
// Comments and ordering of the existing file are not preserved.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	defer os.Remove(tempFileName)

	if _, err := tempFile.Write(yamlData); err != nil {
		tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	if err := os.Rename(tempFileName, configPath); err != nil {
		return fmt.Errorf("error replacing config file: %w", err)
	}

	return nil
}

// DataPath resolves p against the data directory unless it is absolute.
func (s *Settings) DataPath(p string) string {
	if p == "" || filepath.IsAbs(p) || s.Main.DataDir == "" {
		return p
	}
	return filepath.Join(s.Main.DataDir, p)
}
