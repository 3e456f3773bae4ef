package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/ramonehamilton/mtg-binder/internal/storage/models"
)

func newCollectionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "collections",
		Aliases: []string{"collection", "col"},
		Short:   "Manage trade binders and decks",
	}

	cmd.AddCommand(newCollectionsListCmd())
	cmd.AddCommand(newCollectionsCreateCmd())
	cmd.AddCommand(newCollectionsDeleteCmd())

	return cmd
}

func newCollectionsListCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your collections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}

			a, err := openApp(false)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := context.Background()
			u, err := a.user(ctx, true)
			if err != nil {
				return err
			}
			collections, err := a.store.Collections.ListByUser(ctx, u.ID)
			if err != nil {
				return err
			}

			if format == "json" {
				return outputJSON(cmd, collections)
			}

			t := newTable(cmd)
			t.AppendHeader(table.Row{"ID", "Name", "Type", "Format", "Visibility", "Updated"})
			for _, c := range collections {
				deckType := ""
				if c.DeckType != nil {
					deckType = string(*c.DeckType)
				}
				t.AppendRow(table.Row{c.ID, c.Name, c.Type, deckType, c.Visibility, c.UpdatedAt.Format("2006-01-02 15:04")})
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")

	return cmd
}

func newCollectionsCreateCmd() *cobra.Command {
	var (
		collectionType string
		deckType       string
		description    string
		visibility     string
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a trade binder or a deck",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(false)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := context.Background()
			u, err := a.user(ctx, true)
			if err != nil {
				return err
			}

			c := &models.Collection{
				UserID:     u.ID,
				Name:       args[0],
				Type:       models.CollectionType(strings.ToUpper(collectionType)),
				Visibility: models.Visibility(strings.ToUpper(visibility)),
			}
			if deckType != "" {
				dt := models.DeckType(deckType)
				c.DeckType = &dt
			}
			if description != "" {
				c.Description = &description
			}
			if err := a.store.CreateCollection(ctx, c); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created collection %d (%s)\n", c.ID, c.Name)
			if c.ShareSlug != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Share slug: %s\n", *c.ShareSlug)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&collectionType, "type", string(models.CollectionTypeTradeBinder), "Collection type: TRADE_BINDER or DECK")
	cmd.Flags().StringVar(&deckType, "deck-type", "", "Deck format, required for decks (e.g. COMMANDER, MODERN)")
	cmd.Flags().StringVar(&description, "description", "", "Optional description")
	cmd.Flags().StringVar(&visibility, "visibility", string(models.VisibilityPrivate), "PRIVATE, INVITE_ONLY or PUBLIC")

	return cmd
}

func newCollectionsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <collection-id>",
		Short: "Delete a collection with its entries and shares",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil || id < 1 {
				return fmt.Errorf("invalid collection ID: %q", args[0])
			}

			a, err := openApp(false)
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
			if err := a.store.Collections.Delete(ctx, id); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Deleted collection %d\n", id)
			return nil
		},
	}
}
