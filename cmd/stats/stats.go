// Package stats implements the store summary command.
package stats

import (
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/tphakala/rfscan-go/internal/conf"
	"github.com/tphakala/rfscan-go/internal/datastore"
	"github.com/tphakala/rfscan-go/internal/datastore/entities"
	"github.com/tphakala/rfscan-go/internal/observation"
)

// Command creates the stats command.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print a summary of the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := datastore.Open(settings, nil)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			stats, err := observation.New(store).Statistics(cmd.Context())
			if err != nil {
				return err
			}
			return printStatistics(cmd, &stats)
		},
	}
}

func printStatistics(cmd *cobra.Command, s *observation.Statistics) error {
	out := cmd.OutOrStdout()

	kinds := make([]entities.Kind, 0, len(s.NetworksByKind))
	for k := range s.NetworksByKind {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)

	fmt.Fprintf(out, "Networks:      %d\n", s.TotalNetworks)
	for _, k := range kinds {
		fmt.Fprintf(out, "  %-12s %d\n", k, s.NetworksByKind[k])
	}
	fmt.Fprintf(out, "Sightings:     %d\n", s.TotalSightings)
	fmt.Fprintf(out, "Sessions:      %d\n", s.Sessions)
	fmt.Fprintf(out, "Route points:  %d\n", s.RoutePoints)
	fmt.Fprintf(out, "Identity keys: %d\n", s.IdentityKeys)

	lastSeen := "never"
	if !s.LastSeen.IsZero() {
		lastSeen = s.LastSeen.Local().Format(time.DateTime)
	}
	_, err := fmt.Fprintf(out, "Last sighting: %s\n", lastSeen)
	return err
}
