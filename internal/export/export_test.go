package export

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ramonehamilton/mtg-binder/internal/catalog/scryfall"
	"github.com/ramonehamilton/mtg-binder/internal/importer/csvimport"
	"github.com/ramonehamilton/mtg-binder/internal/importer/decklist"
	"github.com/ramonehamilton/mtg-binder/internal/storage/models"
)

func floatPtr(f float64) *float64 { return &f }

func testItems() []Item {
	bolt := &scryfall.Card{ID: "bolt", Name: "Lightning Bolt", SetCode: "lea", SetName: "Limited Edition Alpha", CollectorNumber: "161"}
	atraxa := &scryfall.Card{ID: "atraxa", Name: "Atraxa, Praetors' Voice", SetCode: "c16", SetName: "Commander 2016", CollectorNumber: "28"}
	rip := &scryfall.Card{ID: "rip", Name: "Rest in Peace", SetCode: "2xm", SetName: "Double Masters", CollectorNumber: "29"}

	return []Item{
		{Entry: models.CollectionEntry{CatalogID: "atraxa", Quantity: 1, Condition: models.ConditionNearMint, Finish: models.FinishFoil, IsCommander: true}, Card: atraxa},
		{Entry: models.CollectionEntry{CatalogID: "bolt", Quantity: 4, Condition: models.ConditionLightlyPlayed, Finish: models.FinishNonfoil, PurchasePrice: floatPtr(2.5)}, Card: bolt},
		{Entry: models.CollectionEntry{CatalogID: "rip", Quantity: 2, Condition: models.ConditionDamaged, Finish: models.FinishEtched, IsSideboard: true}, Card: rip},
		{Entry: models.CollectionEntry{CatalogID: "unknown", Quantity: 1}},
	}
}

func TestParseFormat(t *testing.T) {
	for _, name := range []string{"deckbox", "Moxfield", " ARENA ", "text", "json"} {
		if _, err := ParseFormat(name); err != nil {
			t.Errorf("ParseFormat(%q) failed: %v", name, err)
		}
	}
	if _, err := ParseFormat("mtgo"); err == nil {
		t.Error("ParseFormat(mtgo) should fail")
	}
}

func TestWrite_MoxfieldRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	skipped, err := Write(&buf, FormatMoxfield, testItems())
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if skipped != 1 {
		t.Errorf("skipped = %d, want 1", skipped)
	}

	res := csvimport.Parse(buf.String(), csvimport.Options{})
	if res.Format != csvimport.FormatMoxfield {
		t.Fatalf("Format = %s, want moxfield", res.Format)
	}
	if len(res.Items) != 3 {
		t.Fatalf("len(Items) = %d, want 3", len(res.Items))
	}

	bolt := res.Items[1]
	if bolt.Name != "Lightning Bolt" || bolt.Quantity != 4 || bolt.SetCode != "lea" || bolt.CollectorNumber != "161" {
		t.Errorf("bolt = %+v", bolt)
	}
	if bolt.Condition != models.ConditionLightlyPlayed {
		t.Errorf("bolt condition = %s", bolt.Condition)
	}
	if bolt.PurchasePrice == nil || *bolt.PurchasePrice != 2.5 {
		t.Errorf("bolt price = %v", bolt.PurchasePrice)
	}
	if res.Items[0].Finish != models.FinishFoil || res.Items[2].Finish != models.FinishEtched {
		t.Errorf("finishes = %s, %s", res.Items[0].Finish, res.Items[2].Finish)
	}
	if res.Items[2].Condition != models.ConditionDamaged {
		t.Errorf("rip condition = %s", res.Items[2].Condition)
	}
}

func TestWrite_DeckboxConditionLabels(t *testing.T) {
	var buf bytes.Buffer
	if _, err := Write(&buf, FormatDeckbox, testItems()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "Count,Tradelist Count,Name,Edition,Card Number,Condition,") {
		t.Errorf("unexpected header: %q", strings.SplitN(out, "\n", 2)[0])
	}
	for _, want := range []string{"Good (Lightly Played)", "Poor", "Limited Edition Alpha", "2.50", `"Atraxa, Praetors' Voice"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	res := csvimport.Parse(out, csvimport.Options{})
	if res.Format != csvimport.FormatDeckbox {
		t.Fatalf("Format = %s, want deckbox", res.Format)
	}
	if res.Items[1].Condition != models.ConditionLightlyPlayed {
		t.Errorf("condition = %s", res.Items[1].Condition)
	}
	if res.Items[1].SetCode != "" {
		t.Errorf("full set names are not set codes, got %q", res.Items[1].SetCode)
	}
}

func TestDecklist_ArenaRoundTrip(t *testing.T) {
	text := Decklist(testItems(), true)

	want := "Commander\n1 Atraxa, Praetors' Voice (C16) 28 *F*\n\nDeck\n4 Lightning Bolt (LEA) 161\n\nSideboard\n2 Rest in Peace (2XM) 29\n"
	if text != want {
		t.Fatalf("Decklist =\n%s\nwant\n%s", text, want)
	}

	parsed := decklist.Parse(text)
	if len(parsed.AllCards) != 3 {
		t.Fatalf("parsed %d cards", len(parsed.AllCards))
	}
	if parsed.AllCards[0].Section != models.SectionCommander || parsed.AllCards[0].Finish != models.FinishFoil {
		t.Errorf("commander = %+v", parsed.AllCards[0])
	}
	if parsed.AllCards[2].Section != models.SectionSideboard || parsed.AllCards[2].SetCode != "2xm" {
		t.Errorf("sideboard = %+v", parsed.AllCards[2])
	}
}

func TestDecklist_Text(t *testing.T) {
	text := Decklist(testItems(), false)
	if strings.Contains(text, "(") {
		t.Errorf("text export should not carry printings:\n%s", text)
	}
	if !strings.Contains(text, "4 Lightning Bolt\n") {
		t.Errorf("missing bolt line:\n%s", text)
	}
}

func TestWrite_JSONKeepsEveryEntry(t *testing.T) {
	var buf bytes.Buffer
	skipped, err := Write(&buf, FormatJSON, testItems())
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if skipped != 0 {
		t.Errorf("skipped = %d, want 0", skipped)
	}
	if strings.Count(buf.String(), `"scryfall_id"`) != 4 {
		t.Errorf("expected 4 entries:\n%s", buf.String())
	}
}

type sample struct {
	ID      int       `csv:"id"`
	Name    string    `csv:"name"`
	Value   float64   `csv:"value"`
	Active  bool      `csv:"active"`
	Pointer *string   `csv:"pointer"`
	Hidden  string    `csv:"-"`
	When    time.Time `csv:"-"`
}

func TestWriteCSV(t *testing.T) {
	s := "x"
	var buf bytes.Buffer
	err := WriteCSV(&buf, []*sample{{ID: 1, Name: "a,b", Value: 1.5, Active: true, Pointer: &s, Hidden: "no"}, {ID: 2}})
	if err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	want := "id,name,value,active,pointer\n1,\"a,b\",1.50,true,x\n2,,0.00,,\n"
	if buf.String() != want {
		t.Errorf("WriteCSV =\n%q\nwant\n%q", buf.String(), want)
	}

	if err := WriteCSV(&buf, sample{}); err == nil {
		t.Error("WriteCSV should reject non-slices")
	}
	if err := WriteCSV(&buf, []int{1}); err == nil {
		t.Error("WriteCSV should reject slices of non-structs")
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "out.txt")
	write := func(content string) func(w io.Writer) error {
		return func(w io.Writer) error {
			_, err := io.WriteString(w, content)
			return err
		}
	}

	if err := WriteFile(path, false, write("one")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := WriteFile(path, false, write("two")); err == nil {
		t.Error("WriteFile should refuse to overwrite")
	}
	if err := WriteFile(path, true, write("three")); err != nil {
		t.Fatalf("WriteFile overwrite failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "three" {
		t.Errorf("content = %q", data)
	}
}

func TestFilename(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		want   string
	}{
		{"My Deck", FormatArena, "My Deck.txt"},
		{"Binder: Trades/2024", FormatMoxfield, "Binder_ Trades_2024.csv"},
		{"  ", FormatJSON, "collection.json"},
	}
	for _, tt := range tests {
		if got := Filename(tt.name, tt.format); got != tt.want {
			t.Errorf("Filename(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}
