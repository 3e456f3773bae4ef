package main

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/ramonehamilton/mtg-binder/internal/stats"
)

func newStatsCmd() *cobra.Command {
	var (
		period string
		format string
	)

	cmd := &cobra.Command{
		Use:   "stats <collection-id>",
		Short: "Summarize a collection's value and color/rarity breakdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			tr, err := stats.ParsePeriod(period, time.Now())
			if err != nil {
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

			result := stats.Calculate(stats.EntriesAddedIn(entries, tr), cards)
			if format == "json" {
				return outputJSON(cmd, struct {
					Period string `json:"period"`
					*stats.CollectionStats
				}{tr.FormatPeriod(), result})
			}
			printStats(cmd, c.Name, tr.FormatPeriod(), result)
			return nil
		},
	}

	cmd.Flags().StringVar(&period, "period", "", "Limit to entries added in: all, week, last-week, month, last-month or <n>d")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")

	return cmd
}

func printStats(cmd *cobra.Command, name, period string, s *stats.CollectionStats) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%s)\n", name, period)
	fmt.Fprintf(out, "Cards: %d  Unique: %d  Value: $%.2f\n", s.TotalCards, s.UniqueCards, s.TotalValue)
	if s.MissingData > 0 {
		fmt.Fprintf(out, "Entries without catalog data: %d\n", s.MissingData)
	}

	breakdown := newTable(cmd)
	breakdown.AppendHeader(table.Row{"Breakdown", "Key", "Cards"})
	for _, k := range sortedKeys(s.ColorBreakdown) {
		breakdown.AppendRow(table.Row{"color", k, s.ColorBreakdown[k]})
	}
	breakdown.AppendSeparator()
	for _, k := range sortedKeys(s.RarityBreakdown) {
		breakdown.AppendRow(table.Row{"rarity", k, s.RarityBreakdown[k]})
	}
	breakdown.Render()

	if len(s.TopCards) == 0 {
		return
	}
	top := newTable(cmd)
	top.SetTitle("Most valuable")
	top.AppendHeader(table.Row{"Name", "Qty", "Price", "Total"})
	top.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	for _, c := range s.TopCards {
		top.AppendRow(table.Row{c.Name, c.Quantity, fmt.Sprintf("%.2f", c.PurchasePrice), fmt.Sprintf("%.2f", c.TotalValue)})
	}
	top.Render()
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
