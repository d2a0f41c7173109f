package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newCacheCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the cache",
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(g)
			if err != nil {
				return err
			}
			defer a.Close()

			s, err := a.cache.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Occupations: %d\nDetails:     %d\nAnswers:     %d\n",
				s.Occupations, s.Details, s.Queries)
			return nil
		},
	}

	evictCmd := &cobra.Command{
		Use:   "evict",
		Short: "Remove answers not read within the retention window",
		Long: "Remove answers not read within the retention window. Intended to be run\n" +
			"by an external scheduler; evicted answers are regenerated on next use.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(g)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.cfg.Cache.Retention <= 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Retention is disabled; nothing evicted.")
				return nil
			}
			n, err := a.cache.Evict(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Evicted %d answers older than %s.\n", n, a.cfg.Cache.Retention)
			return nil
		},
	}

	var queries bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear cached answers",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !queries {
				return errors.New("only cached answers can be cleared (pass --queries); the occupation index is append-only")
			}
			a, err := openApp(g)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.cache.ClearAnswers(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "All cached answers cleared.")
			return nil
		},
	}
	clearCmd.Flags().BoolVar(&queries, "queries", false, "clear the query/response cache")

	cmd.AddCommand(statsCmd, evictCmd, clearCmd)
	return cmd
}
