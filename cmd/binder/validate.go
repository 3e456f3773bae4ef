package main

import (
	"context"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/ramonehamilton/mtg-binder/internal/deckrules"
)

func newValidateCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "validate <collection-id>",
		Short: "Check a deck against its format rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}

			a, err := openApp(true)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := context.Background()
			c, err := a.readableCollection(ctx, args[0])
			if err != nil {
				return err
			}
			entries, cards, err := a.entriesWithCards(ctx, c)
			if entries == nil {
				return err
			}
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: partial catalog data: %v\n", err)
			}

			deck := make([]deckrules.DeckCard, len(entries))
			for i, e := range entries {
				deck[i] = deckrules.DeckCard{Entry: e, Card: cards[e.CatalogID]}
			}
			report := deckrules.Evaluate(c, deck)

			if format == "json" {
				return outputJSON(cmd, report)
			}
			printReport(cmd, c.Name, report)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")

	return cmd
}

func printReport(cmd *cobra.Command, name string, report deckrules.Report) {
	out := cmd.OutOrStdout()

	switch report.Status {
	case deckrules.StatusNotEvaluated:
		fmt.Fprintf(out, "%s: no format rules to check\n", name)
		return
	case deckrules.StatusEmpty:
		fmt.Fprintf(out, "%s (%s): deck is empty\n", name, report.Format)
		return
	}

	verdict := "valid"
	if !report.Result.Valid {
		verdict = "invalid"
	}
	fmt.Fprintf(out, "%s (%s): %s\n", name, report.Format, verdict)

	if len(report.Result.Errors)+len(report.Result.Warnings) == 0 {
		return
	}
	t := newTable(cmd)
	t.AppendHeader(table.Row{"Level", "Type", "Message"})
	for _, issue := range deckrules.SortedIssues(report.Result.Errors) {
		t.AppendRow(table.Row{"error", issue.Type, issue.Message})
	}
	for _, issue := range deckrules.SortedIssues(report.Result.Warnings) {
		t.AppendRow(table.Row{"warning", issue.Type, issue.Message})
	}
	t.Render()
}
