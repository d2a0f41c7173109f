package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newIndexCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Inspect the occupation index",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "ls",
		Short: "List indexed occupations in insertion order",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(g)
			if err != nil {
				return err
			}
			defer a.Close()

			entries, err := a.cache.Occupations(cmd.Context())
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No occupations indexed.")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "OCCUPATION\tANZSCO\tLINK")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\n", e.OccupationName, e.AnzscoCode, e.DirectLink)
			}
			return w.Flush()
		},
	})
	return cmd
}

func newQueriesCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queries",
		Short: "Inspect cached answers",
	}

	var occupation string
	lsCmd := &cobra.Command{
		Use:   "ls",
		Short: "List cached answers, most recently read first",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(g)
			if err != nil {
				return err
			}
			defer a.Close()

			recs, err := a.cache.Answers(cmd.Context(), occupation)
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No cached answers.")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tOCCUPATION\tSECTION\tCREATED\tLAST READ\tSOURCE\tQUERY")
			for _, r := range recs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					r.ID, r.OccupationName, r.Section,
					r.CreatedAt.Format("2006-01-02T15:04:05"),
					r.AccessedAt.Format("2006-01-02T15:04:05"),
					r.Source, r.Query)
			}
			return w.Flush()
		},
	}
	lsCmd.Flags().StringVarP(&occupation, "occupation", "o", "", "only answers for this occupation")

	cmd.AddCommand(lsCmd)
	return cmd
}
