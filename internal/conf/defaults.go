// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "rfscan")
	viper.SetDefault("main.datadir", "data")

	viper.SetDefault("logging.default_level", "info")
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.console.enabled", true)
	viper.SetDefault("logging.console.level", "info")
	viper.SetDefault("logging.file_output.enabled", false)
	viper.SetDefault("logging.file_output.path", "logs/rfscan.log")
	viper.SetDefault("logging.file_output.level", "info")

	// Scan cadence and filters follow the mobile scanner's defaults:
	// 2s cycle, floor at -100 dBm.
	viper.SetDefault("scan.interval", 2*time.Second)
	viper.SetDefault("scan.wifi.enabled", true)
	viper.SetDefault("scan.wifi.interface", "wlan0")
	viper.SetDefault("scan.wifi.backend", "iw")
	viper.SetDefault("scan.ble.enabled", true)
	viper.SetDefault("scan.classic.enabled", false)
	viper.SetDefault("scan.logroute", true)
	viper.SetDefault("scan.minsignallevel", -100)
	viper.SetDefault("scan.draintimeout", 2*time.Second)
	viper.SetDefault("scan.workers", 4)
	viper.SetDefault("scan.queuesize", 1024)
	viper.SetDefault("scan.resolvercachettl", 5*time.Minute)

	viper.SetDefault("scan.source.type", SourceLive)
	viper.SetDefault("scan.source.replayfile", "")
	viper.SetDefault("scan.source.replayspeed", 1.0)

	viper.SetDefault("scan.position.type", PositionHTTP)
	viper.SetDefault("scan.position.url", "")
	viper.SetDefault("scan.position.pollinterval", time.Second)
	viper.SetDefault("scan.position.mindistance", 5.0)

	viper.SetDefault("database.type", DatabaseSQLite)
	viper.SetDefault("database.sqlite.path", "rfscan.db")
	viper.SetDefault("database.mysql.host", "localhost")
	viper.SetDefault("database.mysql.port", "3306")
	viper.SetDefault("database.mysql.username", "rfscan")
	viper.SetDefault("database.mysql.password", "")
	viper.SetDefault("database.mysql.database", "rfscan")

	viper.SetDefault("api.enabled", true)
	viper.SetDefault("api.listen", "127.0.0.1:8080")
	viper.SetDefault("api.allowedorigins", []string{"*"})

	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.listen", "127.0.0.1:8090")

	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.dsn", "")

	viper.SetDefault("mqtt.enabled", false)
	viper.SetDefault("mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("mqtt.clientid", "rfscan")
	viper.SetDefault("mqtt.username", "")
	viper.SetDefault("mqtt.password", "")
	viper.SetDefault("mqtt.topic", "rfscan")
	viper.SetDefault("mqtt.retain", false)

	viper.SetDefault("notification.enabled", false)
	viper.SetDefault("notification.urls", []string{})
	viper.SetDefault("notification.timeout", 10*time.Second)
}
