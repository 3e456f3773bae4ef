package scryfall

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// MaxBatchSize is the maximum number of identifiers per /cards/collection
// request.
const MaxBatchSize = 75

// ErrBatchTooLarge is returned when a caller passes more than MaxBatchSize
// identifiers to Collection.
var ErrBatchTooLarge = errors.New("collection batch exceeds 75 identifiers")

// CardIdentifier represents a card identifier for the /cards/collection endpoint.
type CardIdentifier struct {
	ID              string `json:"id,omitempty"`               // Scryfall ID
	Name            string `json:"name,omitempty"`             // Card name
	Set             string `json:"set,omitempty"`              // Set code
	CollectorNumber string `json:"collector_number,omitempty"` // Collector number (requires set)
}

// String renders the identifier for logs and error messages.
func (id CardIdentifier) String() string {
	switch {
	case id.ID != "":
		return id.ID
	case id.Set != "" && id.CollectorNumber != "":
		return fmt.Sprintf("%s #%s", strings.ToUpper(id.Set), id.CollectorNumber)
	case id.Set != "":
		return fmt.Sprintf("%s (%s)", id.Name, strings.ToUpper(id.Set))
	default:
		return id.Name
	}
}

// CollectionRequest is the request body for /cards/collection.
type CollectionRequest struct {
	Identifiers []CardIdentifier `json:"identifiers"`
}

// CollectionResponse is the response from /cards/collection.
type CollectionResponse struct {
	Object   string           `json:"object"`
	NotFound []CardIdentifier `json:"not_found"`
	Data     []Card           `json:"data"`
}

// Collection performs one batch lookup. Callers chunk their input to
// MaxBatchSize.
func (c *Client) Collection(ctx context.Context, identifiers []CardIdentifier) (*CollectionResponse, error) {
	if len(identifiers) == 0 {
		return &CollectionResponse{Object: "list", Data: []Card{}}, nil
	}
	if len(identifiers) > MaxBatchSize {
		return nil, ErrBatchTooLarge
	}

	body, err := json.Marshal(CollectionRequest{Identifiers: identifiers})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := c.baseURL + "/cards/collection"
	var resp CollectionResponse
	err = c.gate.Do(ctx, "collection", func(ctx context.Context) error {
		return c.doRequest(ctx, http.MethodPost, endpoint, body, &resp)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch card collection: %w", err)
	}

	return &resp, nil
}

// IDIdentifiers builds by-ID identifiers, dropping duplicates and empty IDs.
func IDIdentifiers(ids []string) []CardIdentifier {
	seen := make(map[string]bool, len(ids))
	out := make([]CardIdentifier, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, CardIdentifier{ID: id})
	}
	return out
}
