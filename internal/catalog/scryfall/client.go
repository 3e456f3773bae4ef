// Package scryfall is the client for the external card catalog. Every
// request is executed through the shared catalog gate.
package scryfall

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ramonehamilton/mtg-binder/internal/catalog/gate"
)

const (
	// DefaultBaseURL is the public Scryfall API.
	DefaultBaseURL = "https://api.scryfall.com"

	// DefaultUserAgent identifies the client to the catalog.
	DefaultUserAgent = "MTG-Binder/1.0"

	defaultMaxRetries     = 3
	defaultInitialBackoff = 1 * time.Second
	maxBackoff            = 16 * time.Second
)

// Options configures a Client.
type Options struct {
	BaseURL        string
	UserAgent      string
	HTTPClient     *http.Client
	MaxRetries     int
	InitialBackoff time.Duration
}

// Client represents a Scryfall API client. Spacing and timeouts are owned by
// the gate it was constructed with.
type Client struct {
	httpClient     *http.Client
	gate           *gate.Gate
	baseURL        string
	userAgent      string
	maxRetries     int
	initialBackoff time.Duration
}

// NewClient creates a new Scryfall API client that runs every request
// through g.
func NewClient(g *gate.Gate, opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.HTTPClient == nil {
		// The gate enforces the per-call timeout.
		opts.HTTPClient = &http.Client{}
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	} else if opts.MaxRetries == 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = defaultInitialBackoff
	}

	return &Client{
		httpClient:     opts.HTTPClient,
		gate:           g,
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		userAgent:      opts.UserAgent,
		maxRetries:     opts.MaxRetries,
		initialBackoff: opts.InitialBackoff,
	}
}

// GetCard retrieves a card by its Scryfall ID.
func (c *Client) GetCard(ctx context.Context, id string) (*Card, error) {
	endpoint := fmt.Sprintf("%s/cards/%s", c.baseURL, url.PathEscape(id))

	var card Card
	if err := c.get(ctx, "get_card", endpoint, &card); err != nil {
		return nil, fmt.Errorf("failed to get card %s: %w", id, err)
	}

	return &card, nil
}

// GetCardNamed retrieves a card by exact name, or by the catalog's own fuzzy
// name matching when fuzzy is true.
func (c *Client) GetCardNamed(ctx context.Context, name string, fuzzy bool) (*Card, error) {
	q := url.Values{}
	if fuzzy {
		q.Set("fuzzy", name)
	} else {
		q.Set("exact", name)
	}
	endpoint := fmt.Sprintf("%s/cards/named?%s", c.baseURL, q.Encode())

	var card Card
	if err := c.get(ctx, "get_card_named", endpoint, &card); err != nil {
		return nil, fmt.Errorf("failed to get card named '%s': %w", name, err)
	}

	return &card, nil
}

// SearchCards performs a full-text search for cards. Pages start at 1.
func (c *Client) SearchCards(ctx context.Context, query string, page int) (*SearchResult, error) {
	q := url.Values{}
	q.Set("q", query)
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}
	endpoint := fmt.Sprintf("%s/cards/search?%s", c.baseURL, q.Encode())

	var result SearchResult
	if err := c.get(ctx, "search", endpoint, &result); err != nil {
		if IsNotFound(err) {
			// A search without hits is reported as 404.
			return &SearchResult{Object: "list", Data: []Card{}}, nil
		}
		return nil, fmt.Errorf("failed to search cards with query '%s': %w", query, err)
	}

	return &result, nil
}

// Autocomplete returns up to 20 card names starting with or containing query.
func (c *Client) Autocomplete(ctx context.Context, query string) ([]string, error) {
	q := url.Values{}
	q.Set("q", query)
	endpoint := fmt.Sprintf("%s/cards/autocomplete?%s", c.baseURL, q.Encode())

	var result Catalog
	if err := c.get(ctx, "autocomplete", endpoint, &result); err != nil {
		return nil, fmt.Errorf("failed to autocomplete '%s': %w", query, err)
	}

	return result.Data, nil
}

func (c *Client) get(ctx context.Context, op, endpoint string, result interface{}) error {
	return c.gate.Do(ctx, op, func(ctx context.Context) error {
		return c.doRequest(ctx, http.MethodGet, endpoint, nil, result)
	})
}

// doRequest performs an HTTP request with retry on 429 responses. It runs
// inside a gate slot, so the gate timeout bounds all attempts together.
func (c *Client) doRequest(ctx context.Context, method, endpoint string, body []byte, result interface{}) error {
	var lastErr error
	backoff := c.initialBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("HTTP request failed: %w", err)
		}

		respBody, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return fmt.Errorf("failed to read response body: %w", readErr)
		}

		switch resp.StatusCode {
		case http.StatusOK:
			if err := json.Unmarshal(respBody, result); err != nil {
				return fmt.Errorf("failed to parse JSON response: %w", err)
			}
			return nil

		case http.StatusTooManyRequests:
			lastErr = fmt.Errorf("rate limited (HTTP 429)")
			if attempt == c.maxRetries {
				break
			}

			wait := backoff
			if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
				if secs, err := strconv.Atoi(retryAfter); err == nil {
					wait = time.Duration(secs) * time.Second
				}
			}
			if err := sleepContext(ctx, wait); err != nil {
				return err
			}
			backoff = min(backoff*2, maxBackoff)
			continue

		case http.StatusNotFound:
			return &NotFoundError{URL: endpoint}

		default:
			var apiErr APIError
			if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Details != "" {
				if apiErr.Status == 0 {
					apiErr.Status = resp.StatusCode
				}
				return &apiErr
			}

			return fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(respBody))
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
