package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iWorld-y/watch_tower/app/watch_tower/pkg/model"
)

func newDomainsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "domains", Short: "Manage the source domain allow-list"}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List allow-listed domains",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			domains, err := store.ListDomains(cmd.Context())
			if err != nil {
				return err
			}
			for _, d := range domains {
				fmt.Fprintln(cmd.OutOrStdout(), d)
			}
			return nil
		},
	}, &cobra.Command{
		Use:   "add DOMAIN...",
		Short: "Add domains",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			for _, a := range args {
				d, err := store.AddDomain(cmd.Context(), a)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "added %s\n", d)
			}
			return nil
		},
	}, &cobra.Command{
		Use:   "remove DOMAIN...",
		Short: "Remove domains",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			for _, a := range args {
				if err := store.RemoveDomain(cmd.Context(), a); err != nil {
					return err
				}
			}
			return nil
		},
	})
	return cmd
}

func newWatchesCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "watches", Short: "Manage saved watches"}

	var (
		topic     string
		markets   []string
		timeframe string
	)
	save := &cobra.Command{
		Use:   "save NAME",
		Short: "Create or replace a saved watch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tf, err := model.ParseTimeframe(timeframe)
			if err != nil {
				return err
			}
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			return store.SaveWatch(cmd.Context(), model.WatchQuery{
				Name: args[0], Topic: topic, Markets: markets, Timeframe: tf,
			})
		},
	}
	save.Flags().StringVarP(&topic, "topic", "t", "", "topic to watch")
	save.Flags().StringSliceVarP(&markets, "markets", "m", nil, "target markets")
	save.Flags().StringVar(&timeframe, "timeframe", "12mo", "time window: 30d, 12mo, 3y or empty")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List saved watches",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			watches, err := store.ListWatches(cmd.Context())
			if err != nil {
				return err
			}
			for _, w := range watches {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n", w.Name, w.Topic, w.Timeframe.Label(), strings.Join(w.Markets, ", "))
			}
			return nil
		},
	}, save, &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a saved watch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			return store.DeleteWatch(cmd.Context(), args[0])
		},
	})
	return cmd
}
