package scan

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/rfscan-go/internal/conf"
	"github.com/tphakala/rfscan-go/internal/survey"
)

// Command creates the scan command, which runs the daemon until interrupted.
func Command(settings *conf.Settings, version string) *cobra.Command {
	var (
		noStart    bool
		replayFile string
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run the scanner",
		Long: `Run the scanner daemon with the HTTP API until interrupted.

Scanning starts immediately unless --no-start is given, in which case it is
started through the API.

Examples:
  rfscan scan
  rfscan scan --replay drive.jsonl --speed 0 --listen 127.0.0.1:8090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if replayFile != "" {
				settings.Scan.Source.Type = conf.SourceReplay
				settings.Scan.Source.ReplayFile = replayFile
				if settings.Scan.Position.Type == conf.PositionHTTP && settings.Scan.Position.URL == "" {
					settings.Scan.Position.Type = conf.PositionReplay
				}
			}
			if err := conf.ValidateSettings(settings); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return survey.Run(ctx, settings, survey.Options{
				Version:   version,
				AutoStart: !noStart,
			})
		},
	}

	if err := setupFlags(cmd, settings, &noStart, &replayFile); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}
	return cmd
}

func setupFlags(cmd *cobra.Command, settings *conf.Settings, noStart *bool, replayFile *string) error {
	cmd.Flags().BoolVar(noStart, "no-start", false, "Wait for an API request before scanning")
	cmd.Flags().StringVar(replayFile, "replay", "", "Replay a JSON-lines capture instead of scanning live")
	cmd.Flags().Float64Var(&settings.Scan.Source.ReplaySpeed, "speed", viper.GetFloat64("scan.source.replayspeed"), "Replay speed, 1 is real time and 0 is as fast as possible")
	cmd.Flags().DurationVar(&settings.Scan.Interval, "interval", viper.GetDuration("scan.interval"), "Scan cycle interval")
	cmd.Flags().StringVar(&settings.API.Listen, "listen", viper.GetString("api.listen"), "Listen address of the HTTP API")
	cmd.Flags().BoolVar(&settings.Telemetry.Enabled, "telemetry", viper.GetBool("telemetry.enabled"), "Enable the Prometheus endpoint")

	// Bind flags so they take precedence over the configuration file
	if err := viper.BindPFlag("scan.source.replayspeed", cmd.Flags().Lookup("speed")); err != nil {
		return err
	}
	if err := viper.BindPFlag("scan.interval", cmd.Flags().Lookup("interval")); err != nil {
		return err
	}
	if err := viper.BindPFlag("api.listen", cmd.Flags().Lookup("listen")); err != nil {
		return err
	}
	return viper.BindPFlag("telemetry.enabled", cmd.Flags().Lookup("telemetry"))
}
