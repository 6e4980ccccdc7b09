package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/rfscan-go/cmd/clear"
	"github.com/tphakala/rfscan-go/cmd/export"
	"github.com/tphakala/rfscan-go/cmd/irk"
	"github.com/tphakala/rfscan-go/cmd/scan"
	"github.com/tphakala/rfscan-go/cmd/sessions"
	"github.com/tphakala/rfscan-go/cmd/stats"
	"github.com/tphakala/rfscan-go/internal/conf"
	"github.com/tphakala/rfscan-go/internal/logger"
	"github.com/tphakala/rfscan-go/internal/survey"
)

// RootCommand creates the root command. settings is filled from the
// configuration file, environment and flags before any subcommand runs.
func RootCommand(settings *conf.Settings, version string) *cobra.Command {
	var (
		configFile string
		debug      bool
		central    *logger.CentralLogger
	)

	rootCmd := &cobra.Command{
		Use:           "rfscan",
		Short:         "Wi-Fi and Bluetooth survey scanner",
		Long:          "rfscan records Wi-Fi access points and Bluetooth devices with the position they were seen at.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to the configuration file")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug output")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if configFile != "" {
			conf.SetConfigFile(configFile)
		}
		loaded, err := conf.Load()
		if err != nil {
			return err
		}
		*settings = *loaded
		if debug || viper.GetBool("debug") {
			settings.Debug = true
		}

		central, err = survey.SetupLogging(settings)
		if err != nil {
			return fmt.Errorf("error setting up logging: %w", err)
		}
		return nil
	}

	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if central != nil {
			return central.Close()
		}
		return nil
	}

	rootCmd.AddCommand(
		scan.Command(settings, version),
		irk.Command(settings),
		export.Command(settings),
		stats.Command(settings),
		sessions.Command(settings),
		clear.Command(settings),
	)

	return rootCmd
}
