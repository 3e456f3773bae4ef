package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/ramonehamilton/mtg-binder/internal/catalog/fuzzy"
	"github.com/ramonehamilton/mtg-binder/internal/importer"
	"github.com/ramonehamilton/mtg-binder/internal/importer/csvimport"
	"github.com/ramonehamilton/mtg-binder/internal/storage/models"
)

func newParseCmd() *cobra.Command {
	var (
		kind    string
		mapping map[string]int
		resolve bool
		format  string
	)

	cmd := &cobra.Command{
		Use:   "parse <file|->",
		Short: "Parse a decklist or CSV export without saving it",
		Long: "Parse reads a decklist or a CSV export and prints the line items it found. " +
			"With --resolve every item is also looked up in the card catalog.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			text, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			req := importer.Request{
				Kind:    importer.Kind(kind),
				Text:    text,
				Mapping: csvMapping(mapping),
			}

			if !resolve {
				parsed, err := importer.Parse(req)
				if err != nil {
					return err
				}
				if format == "json" {
					return outputJSON(cmd, parsed)
				}
				printParsed(cmd, parsed, nil)
				return nil
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			g, _, res := newCatalog(cfg)
			defer g.Close()

			svc := importer.NewService(res, nil, nil, importer.Config{
				MaxSuggestedItems: cfg.Import.MaxSuggestedItems,
			})
			defer svc.Close()

			preview, err := svc.Preview(context.Background(), req)
			if err != nil {
				return err
			}
			if format == "json" {
				return outputJSON(cmd, preview)
			}
			printParsed(cmd, preview.Parsed, preview.Suggestions)
			if preview.Summary != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "\n%d matched, %d unmatched, %d entries after aggregation\n",
					preview.Summary.Matched, preview.Summary.Unmatched, len(preview.Entries))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", string(importer.KindAuto), "Input kind: auto, decklist or csv")
	cmd.Flags().StringToIntVar(&mapping, "map", nil, "Explicit CSV column mapping, e.g. name=1,quantity=0")
	cmd.Flags().BoolVar(&resolve, "resolve", false, "Look items up in the card catalog")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")

	return cmd
}

// csvMapping converts a --map flag to a column mapping.
func csvMapping(m map[string]int) csvimport.Mapping {
	if len(m) == 0 {
		return nil
	}
	out := make(csvimport.Mapping, len(m))
	for field, col := range m {
		out[csvimport.Field(strings.ToLower(strings.TrimSpace(field)))] = col
	}
	return out
}

func printParsed(cmd *cobra.Command, parsed *importer.Parsed, suggestions map[int][]fuzzy.Match) {
	out := cmd.OutOrStdout()

	if parsed.Kind == importer.KindCSV {
		fmt.Fprintf(out, "CSV format: %s\n", parsed.Format)
	}
	if parsed.NeedsMapping {
		fmt.Fprintf(out, "Columns could not be mapped. Headers: %s\n", strings.Join(parsed.Headers, ", "))
		fmt.Fprintln(out, "Pass --map with at least name=<column>.")
		return
	}

	t := newTable(cmd)
	t.AppendHeader(table.Row{"#", "Qty", "Name", "Set", "Number", "Section", "Status", "Did you mean"})
	for _, item := range parsed.Items {
		t.AppendRow(table.Row{
			item.RawIndex,
			item.Quantity,
			item.Name,
			item.SetCode,
			item.CollectorNumber,
			section(item),
			item.Status,
			suggestionList(suggestions[item.RawIndex]),
		})
	}
	t.Render()

	for _, w := range parsed.Warnings {
		fmt.Fprintf(out, "warning: %s\n", w)
	}
}

func section(item *models.LineItem) string {
	switch {
	case item.IsCommander:
		return string(models.SectionCommander)
	case item.IsSideboard:
		return string(models.SectionSideboard)
	default:
		return string(item.Section)
	}
}

func suggestionList(matches []fuzzy.Match) string {
	names := make([]string, len(matches))
	for i, m := range matches {
		names[i] = m.Name
	}
	return strings.Join(names, ", ")
}
