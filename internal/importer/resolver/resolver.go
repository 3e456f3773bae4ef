// Package resolver turns parsed line items into catalog IDs using chunked
// batch lookups through the shared catalog gate.
package resolver

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/ramonehamilton/mtg-binder/internal/catalog/fuzzy"
	"github.com/ramonehamilton/mtg-binder/internal/catalog/scryfall"
	"github.com/ramonehamilton/mtg-binder/internal/storage/models"
)

const (
	// BatchSize is the number of items per catalog lookup.
	BatchSize = scryfall.MaxBatchSize

	// DefaultInterChunkDelay is waited between chunks, on top of the gate spacing.
	DefaultInterChunkDelay = 150 * time.Millisecond
)

// Catalog is the batch lookup surface the resolver needs.
type Catalog interface {
	Collection(ctx context.Context, identifiers []scryfall.CardIdentifier) (*scryfall.CollectionResponse, error)
	Autocomplete(ctx context.Context, query string) ([]string, error)
}

// Progress is reported after every chunk.
type Progress struct {
	Processed int `json:"processed"`
	Total     int `json:"total"`
	Matched   int `json:"matched"`
	Unmatched int `json:"unmatched"`
}

// Fraction returns the processed share in [0, 1].
func (p Progress) Fraction() float64 {
	if p.Total == 0 {
		return 1
	}
	return float64(p.Processed) / float64(p.Total)
}

// ProgressFunc receives progress updates.
type ProgressFunc func(Progress)

// CancelFlag is checked between chunks. An in-flight lookup is never aborted.
type CancelFlag struct {
	set atomic.Bool
}

// Cancel requests that no further chunks start.
func (f *CancelFlag) Cancel() {
	f.set.Store(true)
}

// Cancelled reports whether Cancel was called.
func (f *CancelFlag) Cancelled() bool {
	return f != nil && f.set.Load()
}

// Options tune a single Resolve call.
type Options struct {
	Progress ProgressFunc
	Cancel   *CancelFlag
}

// Summary describes a finished resolution pass.
type Summary struct {
	Progress
	Cancelled bool `json:"cancelled"`
	// FailedChunks counts chunks whose lookup failed as a whole.
	FailedChunks int `json:"failed_chunks"`
	// Cards holds the catalog record for every matched catalog ID.
	Cards map[string]*scryfall.Card `json:"-"`
	// LastError is the most recent chunk failure, if any.
	LastError error `json:"-"`
}

// Resolver resolves line items against the catalog.
type Resolver struct {
	catalog         Catalog
	interChunkDelay time.Duration
}

// New creates a resolver. A zero delay disables the inter-chunk pause.
func New(catalog Catalog, interChunkDelay time.Duration) *Resolver {
	if interChunkDelay < 0 {
		interChunkDelay = 0
	}
	return &Resolver{
		catalog:         catalog,
		interChunkDelay: interChunkDelay,
	}
}

// Resolve looks up every pending or unmatched item, in chunks of BatchSize,
// one chunk at a time. Matched and skipped items are left alone. A chunk
// whose lookup fails marks all its items unmatched; Resolve itself never
// fails. When cancelled, items in chunks that never started stay as they were.
func (r *Resolver) Resolve(ctx context.Context, items []*models.LineItem, opts Options) *Summary {
	todo := make([]*models.LineItem, 0, len(items))
	for _, item := range items {
		if item != nil && item.NeedsResolution() {
			todo = append(todo, item)
		}
	}

	summary := &Summary{
		Progress: Progress{Total: len(todo)},
		Cards:    make(map[string]*scryfall.Card),
	}

	for start := 0; start < len(todo); start += BatchSize {
		if opts.Cancel.Cancelled() || ctx.Err() != nil {
			summary.Cancelled = true
			break
		}
		if start > 0 {
			if err := r.pause(ctx); err != nil {
				summary.Cancelled = true
				break
			}
		}

		end := min(start+BatchSize, len(todo))
		chunk := todo[start:end]

		if err := r.resolveChunk(ctx, chunk, summary); err != nil {
			log.Printf("resolver: chunk %d-%d failed: %v", start, end, err)
			summary.FailedChunks++
			summary.LastError = err
		}

		summary.Processed = end
		if opts.Progress != nil {
			opts.Progress(summary.Progress)
		}
	}

	return summary
}

func (r *Resolver) resolveChunk(ctx context.Context, chunk []*models.LineItem, summary *Summary) error {
	identifiers := make([]scryfall.CardIdentifier, len(chunk))
	for i, item := range chunk {
		identifiers[i] = Identifier(item)
	}

	resp, err := r.catalog.Collection(ctx, identifiers)
	if err != nil {
		for _, item := range chunk {
			item.Status = models.StatusUnmatched
			item.ResolvedCatalogID = ""
		}
		summary.Unmatched += len(chunk)
		return err
	}

	l := newLookup(resp.Data)
	for _, item := range chunk {
		card := l.match(item)
		if card == nil {
			item.Status = models.StatusUnmatched
			item.ResolvedCatalogID = ""
			summary.Unmatched++
			continue
		}
		item.Status = models.StatusMatched
		item.ResolvedCatalogID = card.ID
		summary.Cards[card.ID] = card
		summary.Matched++
	}
	return nil
}

func (r *Resolver) pause(ctx context.Context) error {
	if r.interChunkDelay == 0 {
		return nil
	}
	timer := time.NewTimer(r.interChunkDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// FetchByIDs loads catalog records for the given IDs, deduplicated and in
// chunks of BatchSize. IDs the catalog does not know are absent from the
// result. The first failing chunk stops the fetch; cards already loaded are
// returned with the error.
func (r *Resolver) FetchByIDs(ctx context.Context, ids []string) (map[string]*scryfall.Card, error) {
	identifiers := scryfall.IDIdentifiers(ids)
	cards := make(map[string]*scryfall.Card, len(identifiers))

	for start := 0; start < len(identifiers); start += BatchSize {
		if start > 0 {
			if err := r.pause(ctx); err != nil {
				return cards, err
			}
		}

		end := min(start+BatchSize, len(identifiers))
		resp, err := r.catalog.Collection(ctx, identifiers[start:end])
		if err != nil {
			return cards, fmt.Errorf("failed to fetch cards %d-%d: %w", start, end, err)
		}
		for i := range resp.Data {
			card := resp.Data[i]
			cards[card.ID] = &card
		}
	}

	return cards, nil
}

// Suggest offers likely names for an unmatched item, best first.
func (r *Resolver) Suggest(ctx context.Context, name string, limit int) ([]fuzzy.Match, error) {
	query := LookupName(name)
	if query == "" {
		return nil, nil
	}

	candidates, err := r.catalog.Autocomplete(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get suggestions for '%s': %w", name, err)
	}

	// Misspellings usually break prefix completion; retry on a shorter prefix.
	if len(candidates) == 0 && len([]rune(query)) > 4 {
		prefix := string([]rune(query)[:4])
		candidates, err = r.catalog.Autocomplete(ctx, prefix)
		if err != nil {
			return nil, fmt.Errorf("failed to get suggestions for '%s': %w", name, err)
		}
	}

	opts := fuzzy.DefaultOptions()
	if limit > 0 {
		opts.MaxResults = limit
	}
	return fuzzy.Rank(query, candidates, opts), nil
}

// Skip marks the unmatched items at the given raw indexes as skipped and
// returns how many changed.
func Skip(items []*models.LineItem, rawIndexes ...int) int {
	wanted := make(map[int]bool, len(rawIndexes))
	for _, idx := range rawIndexes {
		wanted[idx] = true
	}

	skipped := 0
	for _, item := range items {
		if wanted[item.RawIndex] && item.Skip() {
			skipped++
		}
	}
	return skipped
}
