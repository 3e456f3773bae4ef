package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/ramonehamilton/mtg-binder/internal/events"
	"github.com/ramonehamilton/mtg-binder/internal/importer"
)

func newImportCmd() *cobra.Command {
	var (
		kind    string
		mapping map[string]int
		skip    []int
		format  string
		quiet   bool
	)

	cmd := &cobra.Command{
		Use:   "import <collection-id> <file|->",
		Short: "Import a decklist or CSV export into a collection",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			id, err := strconv.Atoi(args[0])
			if err != nil || id < 1 {
				return fmt.Errorf("invalid collection ID: %q", args[0])
			}
			text, err := readInput(cmd, args[1])
			if err != nil {
				return err
			}

			a, err := openApp(true)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := context.Background()
			u, err := a.user(ctx, false)
			if err != nil {
				return err
			}
			if _, err := a.store.OwnedCollection(ctx, id, u.ID); err != nil {
				return err
			}

			dispatcher := events.NewEventDispatcher()
			if !quiet {
				dispatcher.Register(progressPrinter(cmd))
			}
			svc := importer.NewService(a.resolver, a.store.Entries, dispatcher, importer.Config{
				BatchSize:         a.cfg.Import.MaxBulkEntries,
				MaxSuggestedItems: a.cfg.Import.MaxSuggestedItems,
				JobTTL:            a.cfg.JobTTL(),
			})
			defer svc.Close()

			job, err := svc.Start(importer.Request{
				CollectionID: id,
				Kind:         importer.Kind(kind),
				Text:         text,
				Mapping:      csvMapping(mapping),
				Skip:         skip,
			})
			if err != nil {
				return err
			}

			interrupt := make(chan os.Signal, 1)
			signal.Notify(interrupt, os.Interrupt)
			defer signal.Stop(interrupt)

			select {
			case <-job.Done():
			case <-interrupt:
				fmt.Fprintln(cmd.ErrOrStderr(), "Cancelling import...")
				_ = svc.Cancel(job.ID)
				<-job.Done()
			}

			snap := job.Snapshot()
			if format == "json" {
				return outputJSON(cmd, snap)
			}
			printJob(cmd, snap)
			if snap.Status == importer.JobFailed {
				return fmt.Errorf("import failed: %s", snap.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", string(importer.KindAuto), "Input kind: auto, decklist or csv")
	cmd.Flags().StringToIntVar(&mapping, "map", nil, "Explicit CSV column mapping, e.g. name=1,quantity=0")
	cmd.Flags().IntSliceVar(&skip, "skip", nil, "Raw indexes of unmatched items to skip")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not print progress")

	return cmd
}

// progressPrinter writes import progress events to stderr.
func progressPrinter(cmd *cobra.Command) events.Observer {
	return &events.FuncObserver{
		Name:  "cli-progress",
		Types: []string{events.TypeImportProgress},
		Fn: func(e events.Event) error {
			p, ok := e.Data.(events.ImportProgressEvent)
			if !ok {
				return nil
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%-9s %d/%d (%.0f%%) matched %d, unmatched %d\n",
				p.Stage, p.Processed, p.Total, p.Fraction*100, p.Matched, p.Unmatched)
			return nil
		},
	}
}

func printJob(cmd *cobra.Command, snap importer.Snapshot) {
	out := cmd.OutOrStdout()

	if snap.Status == importer.JobNeedsMapping && snap.Parsed != nil {
		printParsed(cmd, snap.Parsed, nil)
		return
	}

	fmt.Fprintf(out, "Import %s: %s\n", snap.ID, snap.Status)
	r := snap.Result
	if r == nil {
		return
	}
	fmt.Fprintf(out, "Imported %d entries (%d matched lines, %d skipped, %d failed batches)\n",
		r.Imported, r.Matched, r.Skipped, r.FailedBatches)
	for _, e := range r.Errors {
		fmt.Fprintf(out, "error: %s\n", e)
	}

	if len(r.Unmatched) == 0 {
		return
	}
	t := newTable(cmd)
	t.SetTitle("Unmatched")
	t.AppendHeader(table.Row{"#", "Qty", "Name", "Set", "Number", "Did you mean"})
	for _, item := range r.Unmatched {
		t.AppendRow(table.Row{
			item.RawIndex,
			item.Quantity,
			item.Name,
			item.SetCode,
			item.CollectorNumber,
			suggestionList(r.Suggestions[item.RawIndex]),
		})
	}
	t.Render()
	fmt.Fprintln(out, "Re-run with --skip <#,...> to acknowledge lines that should not be imported.")
}
