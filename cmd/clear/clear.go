// Package clear implements the command that empties the store.
package clear

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tphakala/rfscan-go/internal/conf"
	"github.com/tphakala/rfscan-go/internal/datastore"
	"github.com/tphakala/rfscan-go/internal/observation"
)

// Command creates the clear command.
func Command(settings *conf.Settings) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all networks, sightings, sessions and routes",
		Long:  "Delete all networks, sightings, sessions and routes. Identity keys are kept.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				fmt.Fprint(cmd.OutOrStdout(), "This deletes all recorded data. Continue? [y/N] ")
				answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
					_, err := fmt.Fprintln(cmd.OutOrStdout(), "aborted")
					return err
				}
			}

			store, err := datastore.Open(settings, nil)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := observation.New(store).ClearAll(cmd.Context()); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "store cleared")
			return err
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}
