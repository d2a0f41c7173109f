package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pario-ai/anzscache/pkg/models"
)

func newLookupCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <occupation name>",
		Short: "Resolve an occupation name to its ANZSCO code and details",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(g)
			if err != nil {
				return err
			}
			defer a.Close()

			occ, err := a.cache.Occupation(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			printOccupation(cmd.OutOrStdout(), occ)
			return nil
		},
	}
}

func newAskCmd(g *globalFlags) *cobra.Command {
	var occupation, section string

	cmd := &cobra.Command{
		Use:   "ask <query>",
		Short: "Answer a question about one section of an occupation",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(g)
			if err != nil {
				return err
			}
			defer a.Close()

			rec, cached, err := a.cache.Answer(cmd.Context(), strings.Join(args, " "), occupation, section)
			if err != nil {
				return err
			}
			printAnswer(cmd.OutOrStdout(), rec, cached)
			return nil
		},
	}

	cmd.Flags().StringVarP(&occupation, "occupation", "o", "", "occupation name")
	cmd.Flags().StringVarP(&section, "section", "s", "overview", "section tag")
	_ = cmd.MarkFlagRequired("occupation")
	return cmd
}

func printOccupation(w io.Writer, occ models.Occupation) {
	fmt.Fprintf(w, "Occupation:  %s\n", occ.Entry.OccupationName)
	fmt.Fprintf(w, "ANZSCO:      %s\n", occ.Entry.AnzscoCode)
	if occ.Entry.DirectLink != "" {
		fmt.Fprintf(w, "Link:        %s\n", occ.Entry.DirectLink)
	}
	if occ.Detail.Title != "" {
		fmt.Fprintf(w, "Title:       %s\n", occ.Detail.Title)
	}
	if occ.Detail.UnitGroup != "" {
		fmt.Fprintf(w, "Unit group:  %s\n", occ.Detail.UnitGroup)
	}
	if occ.Detail.SkillLevel != "" {
		fmt.Fprintf(w, "Skill level: %s\n", occ.Detail.SkillLevel)
	}
	for i, task := range occ.Detail.Tasks {
		if i == 0 {
			fmt.Fprintln(w, "Tasks:")
		}
		fmt.Fprintf(w, "  %d. %s\n", i+1, task)
	}
}

func printAnswer(w io.Writer, rec models.QueryRecord, cached bool) {
	state := "miss"
	if cached {
		state = "hit"
	}
	fmt.Fprintln(w, rec.Response)
	fmt.Fprintf(w, "\n(%s, %s, source %s, cache %s)\n", rec.OccupationName, rec.Section, rec.Source, state)
}
