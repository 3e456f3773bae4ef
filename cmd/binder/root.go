package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/ramonehamilton/mtg-binder/internal/catalog/gate"
	"github.com/ramonehamilton/mtg-binder/internal/catalog/scryfall"
	"github.com/ramonehamilton/mtg-binder/internal/config"
	"github.com/ramonehamilton/mtg-binder/internal/importer/resolver"
	"github.com/ramonehamilton/mtg-binder/internal/metrics"
	"github.com/ramonehamilton/mtg-binder/internal/storage"
	"github.com/ramonehamilton/mtg-binder/internal/storage/models"
	"github.com/ramonehamilton/mtg-binder/internal/telemetry"
	"github.com/ramonehamilton/mtg-binder/internal/version"
)

var (
	configPath string
	dbPath     string
	userName   string
)

var rootCmd = &cobra.Command{
	Use:           "binder",
	Short:         "binder - Magic: The Gathering collection and deck tracker",
	Long:          "binder parses decklists and CSV exports, imports them into collections, and validates, summarizes and exports what you own.",
	Version:       version.GetVersion(),
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: $XDG_CONFIG_HOME/mtg-binder/config.toml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db-path", "", "Database path (overrides config)")
	rootCmd.PersistentFlags().StringVarP(&userName, "user", "u", os.Getenv("USER"), "Username that owns the collections")

	rootCmd.AddCommand(newParseCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newCollectionsCmd())
}

// app is the wiring shared by commands that touch the database or the catalog.
type app struct {
	cfg      *config.Config
	db       *storage.DB
	store    *storage.Service
	gate     *gate.Gate
	resolver *resolver.Resolver
	tracing  telemetry.Shutdown
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	return cfg, nil
}

// openApp opens the database and, with withCatalog, the rate-limited catalog client.
func openApp(withCatalog bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	dbConfig := storage.DefaultConfig(cfg.Database.Path)
	dbConfig.AutoMigrate = cfg.Database.AutoMigrate
	db, err := storage.Open(dbConfig)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	a := &app{cfg: cfg, db: db, store: storage.NewService(db)}
	if withCatalog {
		a.tracing, err = telemetry.Setup(context.Background(), cfg.Tracing)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set up tracing: %w", err)
		}
		a.gate, _, a.resolver = newCatalog(cfg)
	}
	return a, nil
}

// newCatalog builds the gated catalog client and a resolver over it. The
// caller closes the gate.
func newCatalog(cfg *config.Config) (*gate.Gate, *scryfall.Client, *resolver.Resolver) {
	g := gate.New(gate.Options{
		MinSpacing: cfg.MinSpacing(),
		Timeout:    cfg.CatalogTimeout(),
		Metrics:    metrics.NewCatalog(),
	})
	client := scryfall.NewClient(g, scryfall.Options{
		BaseURL:   cfg.Catalog.BaseURL,
		UserAgent: cfg.Catalog.UserAgent,
	})
	return g, client, resolver.New(client, cfg.InterChunkDelay())
}

func (a *app) Close() {
	if a.gate != nil {
		a.gate.Close()
	}
	if a.tracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.tracing(ctx)
	}
	_ = a.db.Close()
}

// user looks up the --user account, creating it when create is set.
func (a *app) user(ctx context.Context, create bool) (*models.User, error) {
	if userName == "" {
		return nil, errors.New("no user: pass --user")
	}
	u, err := a.store.Users.GetByUsername(ctx, userName)
	if err == nil || !create || !errors.Is(err, storage.ErrNotFound) {
		return u, err
	}
	return a.store.CreateUser(ctx, userName)
}

// readableCollection resolves a collection ID argument for the --user account.
func (a *app) readableCollection(ctx context.Context, arg string) (*models.Collection, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id < 1 {
		return nil, fmt.Errorf("invalid collection ID: %q", arg)
	}
	u, err := a.user(ctx, false)
	if err != nil {
		return nil, err
	}
	return a.store.ReadableCollection(ctx, id, u.ID)
}

// entriesWithCards loads a collection's entries and their catalog records.
// A catalog failure is returned together with whatever records were fetched.
func (a *app) entriesWithCards(ctx context.Context, c *models.Collection) ([]models.CollectionEntry, map[string]*scryfall.Card, error) {
	rows, err := a.store.Entries.ListByCollection(ctx, c.ID)
	if err != nil {
		return nil, nil, err
	}

	entries := make([]models.CollectionEntry, len(rows))
	ids := make([]string, 0, len(rows))
	seen := make(map[string]bool, len(rows))
	for i, e := range rows {
		entries[i] = *e
		if !seen[e.CatalogID] {
			seen[e.CatalogID] = true
			ids = append(ids, e.CatalogID)
		}
	}
	if len(ids) == 0 {
		return entries, map[string]*scryfall.Card{}, nil
	}

	cards, err := a.resolver.FetchByIDs(ctx, ids)
	if cards == nil {
		cards = map[string]*scryfall.Card{}
	}
	return entries, cards, err
}

// readInput returns the contents of path, or stdin for "-".
func readInput(cmd *cobra.Command, path string) (string, error) {
	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return "", err
		}
		defer func() { _ = f.Close() }()
		r = f
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return string(data), nil
}

func newTable(cmd *cobra.Command) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	return t
}

func outputJSON(cmd *cobra.Command, v any) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func checkFormat(format string) error {
	switch format {
	case "table", "json":
		return nil
	default:
		return fmt.Errorf("invalid format: %s (valid values: table, json)", format)
	}
}
