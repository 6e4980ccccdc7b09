// Package export implements the CSV export command.
package export

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tphakala/rfscan-go/internal/conf"
	"github.com/tphakala/rfscan-go/internal/datastore"
	"github.com/tphakala/rfscan-go/internal/datastore/entities"
	"github.com/tphakala/rfscan-go/internal/datastore/repository"
	csvexport "github.com/tphakala/rfscan-go/internal/export"
)

// Command creates the export command.
func Command(settings *conf.Settings) *cobra.Command {
	var (
		output  string
		kind    string
		since   time.Duration
		located bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export networks as CSV",
		Long: `Export stored networks as CSV. Without --output the file is written to the
data directory with a timestamped name; "-" writes to standard output.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := repository.NetworkFilter{WithLocation: located}
			if kind != "" {
				filter.Kind = entities.Kind(strings.ToUpper(kind))
				if !filter.Kind.Valid() {
					return fmt.Errorf("unknown network kind %q", kind)
				}
			}
			if since > 0 {
				filter.SeenAfter = time.Now().Add(-since)
			}

			store, err := datastore.Open(settings, nil)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if output == "-" {
				_, err := csvexport.WriteCSV(cmd.Context(), cmd.OutOrStdout(), store.Networks, filter)
				return err
			}
			if output == "" {
				output = settings.DataPath(csvexport.FileName(time.Now()))
			}

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("error creating export file: %w", err)
			}
			n, err := csvexport.WriteCSV(cmd.Context(), f, store.Networks, filter)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d networks to %s\n", n, output)
			return err
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file, - for standard output")
	cmd.Flags().StringVarP(&kind, "kind", "k", "", "Only export one kind: WIFI, BLE, BLUETOOTH or CELLULAR")
	cmd.Flags().DurationVar(&since, "since", 0, "Only export networks seen within this duration")
	cmd.Flags().BoolVar(&located, "located", false, "Only export networks with a known position")
	return cmd
}
