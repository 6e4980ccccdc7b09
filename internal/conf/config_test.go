package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loadFromYAML writes content to a temp config file and loads it.
func loadFromYAML(t *testing.T, content string) (*Settings, error) {
	t.Helper()
	viper.Reset()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	SetConfigFile(path)
	t.Cleanup(func() {
		SetConfigFile("")
		viper.Reset()
	})
	return Load()
}

func TestLoadAppliesDefaults(t *testing.T) {
	settings, err := loadFromYAML(t, "main:\n  name: field-test\n")
	require.NoError(t, err)

	assert.Equal(t, "field-test", settings.Main.Name)
	assert.Equal(t, 2*time.Second, settings.Scan.Interval)
	assert.Equal(t, -100, settings.Scan.MinSignalLevel)
	assert.Equal(t, 2*time.Second, settings.Scan.DrainTimeout)
	assert.Equal(t, 4, settings.Scan.Workers)
	assert.Equal(t, 1024, settings.Scan.QueueSize)
	assert.Equal(t, 5*time.Minute, settings.Scan.ResolverCacheTTL)
	assert.True(t, settings.Scan.Wifi.Enabled)
	assert.True(t, settings.Scan.BLE.Enabled)
	assert.False(t, settings.Scan.Classic.Enabled)
	assert.True(t, settings.Scan.LogRoute)
	assert.InDelta(t, 5.0, settings.Scan.Position.MinDistance, 0)
	assert.Equal(t, DatabaseSQLite, settings.Database.Type)
	assert.Equal(t, "rfscan.db", settings.Database.SQLite.Path)
	assert.Equal(t, "info", settings.Logging.DefaultLevel)
	assert.Same(t, settings, GetSettings())
}

func TestEmbeddedDefaultConfigIsValid(t *testing.T) {
	data, err := getDefaultConfig()
	require.NoError(t, err)

	settings, err := loadFromYAML(t, string(data))
	require.NoError(t, err)
	assert.Equal(t, SourceLive, settings.Scan.Source.Type)
	assert.Equal(t, "wlan0", settings.Scan.Wifi.Interface)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	t.Setenv("RFSCAN_MIN_SIGNAL_LEVEL", "-85")
	t.Setenv("RFSCAN_DATABASE_TYPE", "mysql")
	t.Setenv("RFSCAN_MYSQL_HOST", "db.internal")

	settings, err := loadFromYAML(t, "scan:\n  minsignallevel: -90\n")
	require.NoError(t, err)

	assert.Equal(t, -85, settings.Scan.MinSignalLevel)
	assert.Equal(t, DatabaseMySQL, settings.Database.Type)
	assert.Equal(t, "db.internal", settings.Database.MySQL.Host)
}

func TestValidationCollectsAllErrors(t *testing.T) {
	_, err := loadFromYAML(t, `
scan:
  interval: 10ms
  workers: 0
  minsignallevel: 20
  source:
    type: satellite
database:
  type: postgres
mqtt:
  enabled: true
  topic: ""
`)
	require.Error(t, err)

	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 3, "scan, database and mqtt problems are reported together: %v", ve.Errors)
	assert.Contains(t, ve.Errors[0], "scan.interval")
	assert.Contains(t, ve.Errors[0], "scan.workers")
	assert.Contains(t, ve.Errors[0], "scan.source.type")
	assert.Contains(t, ve.Errors[1], "database.type")
}

func TestValidateDatabaseMySQLRequiresFields(t *testing.T) {
	err := validateDatabaseSettings(&DatabaseSettings{Type: DatabaseMySQL, MySQL: MySQLSettings{Host: "h"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port")
	assert.Contains(t, err.Error(), "username")
}

func TestSaveYAMLConfigRoundTrip(t *testing.T) {
	settings, err := loadFromYAML(t, "scan:\n  workers: 8\n")
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "saved.yaml")
	require.NoError(t, SaveYAMLConfig(out, settings))

	reloaded, err := loadFromYAML(t, mustRead(t, out))
	require.NoError(t, err)
	assert.Equal(t, 8, reloaded.Scan.Workers)
	assert.Equal(t, settings.Scan.Interval, reloaded.Scan.Interval)
}

func TestDataPath(t *testing.T) {
	s := &Settings{Main: MainSettings{DataDir: "/var/lib/rfscan"}}
	assert.Equal(t, "/var/lib/rfscan/rfscan.db", s.DataPath("rfscan.db"))
	assert.Equal(t, "/tmp/x.db", s.DataPath("/tmp/x.db"))
	assert.Empty(t, s.DataPath(""))
}

func mustRead(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}
