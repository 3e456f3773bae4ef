package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ramonehamilton/mtg-binder/internal/export"
)

func newExportCmd() *cobra.Command {
	var (
		format    string
		output    string
		overwrite bool
	)

	cmd := &cobra.Command{
		Use:   "export <collection-id>",
		Short: "Export a collection as Deckbox/Moxfield CSV, an Arena decklist or plain text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
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
			if err != nil {
				return err
			}

			items := make([]export.Item, len(entries))
			for i, e := range entries {
				items[i] = export.Item{Entry: e, Card: cards[e.CatalogID]}
			}

			var skipped int
			write := func(w io.Writer) error {
				skipped, err = export.Write(w, f, items)
				return err
			}
			if output == "" {
				if err := write(cmd.OutOrStdout()); err != nil {
					return err
				}
			} else {
				if err := export.WriteFile(output, overwrite, write); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", output)
			}
			if skipped > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %d entries without catalog data were left out\n", skipped)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", string(export.FormatDeckbox), "Export format: deckbox, moxfield, arena, text or json")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to this file instead of stdout")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing output file")

	return cmd
}
