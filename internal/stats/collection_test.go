package stats

import (
	"fmt"
	"testing"
	"time"

	"github.com/ramonehamilton/mtg-binder/internal/catalog/scryfall"
	"github.com/ramonehamilton/mtg-binder/internal/storage/models"
)

func price(v float64) *float64 { return &v }

func TestCalculate(t *testing.T) {
	cards := map[string]*scryfall.Card{
		"bolt":   {ID: "bolt", Name: "Lightning Bolt", Colors: []string{"R"}, Rarity: "common"},
		"helix":  {ID: "helix", Name: "Lightning Helix", Colors: []string{"R", "W"}, Rarity: "uncommon"},
		"ring":   {ID: "ring", Name: "Sol Ring", Rarity: "uncommon"},
		"norare": {ID: "norare", Name: "Odd Card", Colors: []string{"U"}},
	}
	entries := []models.CollectionEntry{
		{ID: 1, CatalogID: "bolt", Quantity: 4, PurchasePrice: price(1.115)},
		{ID: 2, CatalogID: "helix", Quantity: 2},
		{ID: 3, CatalogID: "ring", Quantity: 1, PurchasePrice: price(3.50)},
		{ID: 4, CatalogID: "missing", Quantity: 3, PurchasePrice: price(10)},
		{ID: 5, CatalogID: "norare", Quantity: 1},
	}

	stats := Calculate(entries, cards)

	if stats.TotalCards != 11 {
		t.Errorf("TotalCards = %d, want 11", stats.TotalCards)
	}
	// 4*1.115 + 3.50 + 3*10 = 37.96
	if stats.TotalValue != 37.96 {
		t.Errorf("TotalValue = %v, want 37.96", stats.TotalValue)
	}
	if stats.UniqueCards != 5 {
		t.Errorf("UniqueCards = %d, want 5", stats.UniqueCards)
	}
	if stats.MissingData != 1 {
		t.Errorf("MissingData = %d, want 1", stats.MissingData)
	}

	wantColors := map[string]int{"R": 4, ColorMulticolor: 2, ColorColorless: 1, "U": 1}
	for k, v := range wantColors {
		if stats.ColorBreakdown[k] != v {
			t.Errorf("ColorBreakdown[%s] = %d, want %d", k, stats.ColorBreakdown[k], v)
		}
	}
	if len(stats.ColorBreakdown) != len(wantColors) {
		t.Errorf("ColorBreakdown = %v", stats.ColorBreakdown)
	}

	wantRarity := map[string]int{"Common": 4, "Uncommon": 3, RarityUnknown: 1}
	for k, v := range wantRarity {
		if stats.RarityBreakdown[k] != v {
			t.Errorf("RarityBreakdown[%s] = %d, want %d", k, stats.RarityBreakdown[k], v)
		}
	}

	// The missing card is worth the most but has no catalog data.
	if len(stats.TopCards) != 2 {
		t.Fatalf("TopCards = %+v, want 2 entries", stats.TopCards)
	}
	if stats.TopCards[0].Name != "Lightning Bolt" || stats.TopCards[0].TotalValue != 4.46 {
		t.Errorf("TopCards[0] = %+v", stats.TopCards[0])
	}
	if stats.TopCards[1].Name != "Sol Ring" {
		t.Errorf("TopCards[1] = %+v", stats.TopCards[1])
	}
}

func TestCalculate_TopCardsStableAndTruncated(t *testing.T) {
	cards := make(map[string]*scryfall.Card)
	var entries []models.CollectionEntry
	for i := 0; i < 15; i++ {
		id := fmt.Sprintf("c%d", i)
		cards[id] = &scryfall.Card{ID: id, Name: id}
		entries = append(entries, models.CollectionEntry{ID: i, CatalogID: id, Quantity: 1, PurchasePrice: price(5)})
	}
	entries[12].PurchasePrice = price(50)

	stats := Calculate(entries, cards)

	if len(stats.TopCards) != TopCardsLimit {
		t.Fatalf("len(TopCards) = %d", len(stats.TopCards))
	}
	if stats.TopCards[0].EntryID != 12 {
		t.Errorf("TopCards[0].EntryID = %d, want 12", stats.TopCards[0].EntryID)
	}
	for i := 1; i < TopCardsLimit; i++ {
		if stats.TopCards[i].EntryID != i-1 {
			t.Errorf("TopCards[%d].EntryID = %d, want %d (ties keep entry order)", i, stats.TopCards[i].EntryID, i-1)
		}
	}
}

func TestCalculate_Empty(t *testing.T) {
	stats := Calculate(nil, nil)
	if stats.TotalCards != 0 || stats.TotalValue != 0 {
		t.Errorf("unexpected totals: %+v", stats)
	}
	if stats.TopCards == nil || stats.ColorBreakdown == nil {
		t.Error("empty stats should have non-nil collections")
	}
}

func TestParsePeriod(t *testing.T) {
	now := time.Date(2026, 3, 18, 15, 0, 0, 0, time.UTC) // Wednesday

	tests := []struct {
		period    string
		wantStart time.Time
		wantEnd   time.Time
		wantErr   bool
	}{
		{period: "all"},
		{period: ""},
		{period: "week", wantStart: time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC), wantEnd: time.Date(2026, 3, 23, 0, 0, 0, 0, time.UTC)},
		{period: "last-week", wantStart: time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), wantEnd: time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)},
		{period: "month", wantStart: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), wantEnd: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)},
		{period: "last-month", wantStart: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), wantEnd: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
		{period: "7d", wantStart: now.AddDate(0, 0, -7), wantEnd: now.Add(time.Nanosecond)},
		{period: "0d", wantErr: true},
		{period: "7dx", wantErr: true},
		{period: "fortnight", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.period, func(t *testing.T) {
			tr, err := ParsePeriod(tt.period, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePeriod(%q) error = %v, wantErr %v", tt.period, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !tr.Start.Equal(tt.wantStart) || !tr.End.Equal(tt.wantEnd) {
				t.Errorf("ParsePeriod(%q) = %v..%v, want %v..%v", tt.period, tr.Start, tr.End, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestWeekRangeFrom_Sunday(t *testing.T) {
	sunday := time.Date(2026, 3, 22, 23, 0, 0, 0, time.UTC)
	tr := WeekRangeFrom(sunday, 0)
	if !tr.Start.Equal(time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Start = %v", tr.Start)
	}
	if tr.FormatPeriod() != "2026-03-16 to 2026-03-22" {
		t.Errorf("FormatPeriod() = %q", tr.FormatPeriod())
	}
}

func TestEntriesAddedIn(t *testing.T) {
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	entries := []models.CollectionEntry{
		{ID: 1, CreatedAt: base.AddDate(0, 0, -20)},
		{ID: 2, CreatedAt: base},
		{ID: 3, CreatedAt: base.AddDate(0, 1, 0)},
	}

	got := EntriesAddedIn(entries, MonthRangeFrom(base, 0))
	if len(got) != 1 || got[0].ID != 2 {
		t.Errorf("EntriesAddedIn = %+v", got)
	}
	if len(EntriesAddedIn(entries, TimeRange{})) != 3 {
		t.Error("zero range should keep every entry")
	}
}
