// Package sessions implements the scan session commands.
package sessions

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tphakala/rfscan-go/internal/conf"
	"github.com/tphakala/rfscan-go/internal/datastore"
	"github.com/tphakala/rfscan-go/internal/datastore/entities"
)

// Command creates the sessions command.
func Command(settings *conf.Settings) *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List scan sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := datastore.Open(settings, nil)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			list, err := store.Sessions.List(cmd.Context(), limit, offset)
			if err != nil {
				return err
			}
			return printSessions(cmd.OutOrStdout(), list)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of sessions to list, newest first")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of sessions to skip")

	cmd.AddCommand(deleteCommand(settings))
	return cmd
}

func printSessions(out io.Writer, list []*entities.Session) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTARTED\tDURATION\tNETWORKS\tNEW\tSIGHTINGS\tDISTANCE\tNOTES")
	for _, s := range list {
		duration := "active"
		if s.EndTime != nil {
			duration = s.EndTime.Sub(s.StartTime).Round(time.Second).String()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%.1f km\t%s\n",
			s.ID, s.StartTime.Local().Format(time.DateTime), duration,
			s.TotalNetworks, s.NewNetworks, s.TotalSightings, s.Distance/1000, s.Notes)
	}
	return w.Flush()
}

func deleteCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a closed session and its route",
		Long:  "Delete a closed session and its route. Sightings recorded during the session are kept.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := datastore.Open(settings, nil)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			session, err := store.Sessions.GetByID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if session.Active() {
				return fmt.Errorf("session %s is still active", session.ID)
			}
			return store.Sessions.Delete(cmd.Context(), session.ID)
		},
	}
}
