// Package irk implements the identity resolving key management commands.
package irk

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tphakala/rfscan-go/internal/conf"
	"github.com/tphakala/rfscan-go/internal/datastore"
	"github.com/tphakala/rfscan-go/internal/datastore/entities"
	"github.com/tphakala/rfscan-go/internal/rpa"
)

// Command creates the irk command and its subcommands.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "irk",
		Short: "Manage identity resolving keys",
		Long: `Manage the identity resolving keys used to resolve Bluetooth LE private addresses.

Keys are 16 bytes written as 32 hex digits, optionally separated by colons or
dashes or prefixed with 0x.`,
	}

	cmd.AddCommand(
		addCommand(settings),
		listCommand(settings),
		updateCommand(settings),
		deleteCommand(settings),
		resolveCommand(settings),
	)
	return cmd
}

func withStore(settings *conf.Settings, fn func(*datastore.Store) error) error {
	store, err := datastore.Open(settings, nil)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	return fn(store)
}

func addCommand(settings *conf.Settings) *cobra.Command {
	var deviceType string
	cmd := &cobra.Command{
		Use:   "add KEY NAME",
		Short: "Add a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := rpa.ParseKey(args[0])
			if err != nil {
				return err
			}
			return withStore(settings, func(store *datastore.Store) error {
				rec := &entities.IRK{
					Key:        key.String(),
					Name:       args[1],
					DeviceType: deviceType,
					AddedAt:    time.Now().UTC(),
				}
				if err := store.IRKs.Add(cmd.Context(), rec); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "added %s (%s)\n", rec.Name, rec.ID)
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&deviceType, "type", "t", "", "Device type label, for example phone or watch")
	return cmd
}

func listCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(settings, func(store *datastore.Store) error {
				keys, err := store.IRKs.List(cmd.Context())
				if err != nil {
					return err
				}
				return printKeys(cmd.OutOrStdout(), keys)
			})
		},
	}
}

func printKeys(out io.Writer, keys []*entities.IRK) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTYPE\tKEY\tRESOLVED\tADDED")
	for _, k := range keys {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			k.ID, k.Name, k.DeviceType, k.Key, k.TimesResolved, k.AddedAt.Local().Format(time.DateTime))
	}
	return w.Flush()
}

func updateCommand(settings *conf.Settings) *cobra.Command {
	var name, deviceType string
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Rename a key or change its device type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(settings, func(store *datastore.Store) error {
				current, err := store.IRKs.GetByID(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !cmd.Flags().Changed("name") {
					name = current.Name
				}
				if !cmd.Flags().Changed("type") {
					deviceType = current.DeviceType
				}
				return store.IRKs.Update(cmd.Context(), args[0], name, deviceType)
			})
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "New name")
	cmd.Flags().StringVarP(&deviceType, "type", "t", "", "New device type")
	cmd.MarkFlagsOneRequired("name", "type")
	return cmd
}

func deleteCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(settings, func(store *datastore.Store) error {
				return store.IRKs.Delete(cmd.Context(), args[0])
			})
		},
	}
}

func resolveCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve ADDRESS",
		Short: "Try the stored keys against a Bluetooth address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := rpa.ParseAddress(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !addr.IsResolvable() {
				_, err := fmt.Fprintf(out, "%s is not a resolvable private address\n", addr)
				return err
			}

			return withStore(settings, func(store *datastore.Store) error {
				records, err := store.IRKs.List(cmd.Context())
				if err != nil {
					return err
				}
				keys := make([]rpa.Key, 0, len(records))
				named := make([]*entities.IRK, 0, len(records))
				for _, r := range records {
					k, err := rpa.ParseKey(r.Key)
					if err != nil {
						continue
					}
					keys = append(keys, k)
					named = append(named, r)
				}

				if i, ok := rpa.Match(addr.String(), keys); ok {
					_, err = fmt.Fprintf(out, "%s resolves to %s (%s)\n", addr, named[i].Name, named[i].ID)
					return err
				}
				_, err = fmt.Fprintf(out, "%s did not match any of %d keys\n", addr, len(keys))
				return err
			})
		},
	}
}
