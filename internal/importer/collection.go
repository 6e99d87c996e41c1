package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// CollectionClient talks to the media server's library and collection API.
// Importing an item is two calls: resolve the external identifier to a
// library item, then attach that item to the target collection.
type CollectionClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	log        *slog.Logger
}

// NewCollectionClient creates a new media server client.
func NewCollectionClient(baseURL, token string, log *slog.Logger) *CollectionClient {
	return &CollectionClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		log:     collectionLogger(log),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func collectionLogger(log *slog.Logger) *slog.Logger {
	if log == nil {
		return slog.Default()
	}
	return log.With("component", "mediaserver")
}

// Identity holds media server identity information.
type Identity struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// libraryItem is one entry in a lookup response.
type libraryItem struct {
	Key        string `json:"key"`
	Title      string `json:"title"`
	ExternalID string `json:"external_id"`
}

type lookupResponse struct {
	Items []libraryItem `json:"items"`
}

// ServerIdentity fetches the server's name and version. Used as a
// connectivity check at daemon startup.
func (c *CollectionClient) ServerIdentity(ctx context.Context) (*Identity, error) {
	var ident Identity
	if err := c.get(ctx, "/api/system/info", &ident); err != nil {
		return nil, err
	}
	return &ident, nil
}

// Import resolves itemID on the media server and attaches the matching
// library item to collectionID. Fans out into many episode-level calls on
// the server side for series items, which is why the scheduler paces series
// imports.
func (c *CollectionClient) Import(ctx context.Context, itemID, collectionID string) error {
	item, err := c.lookup(ctx, itemID)
	if err != nil {
		return fmt.Errorf("lookup %s: %w", itemID, err)
	}

	if err := c.addToCollection(ctx, collectionID, item.Key); err != nil {
		return fmt.Errorf("add %s to collection %s: %w", itemID, collectionID, err)
	}

	c.log.Debug("item imported", "item_id", itemID, "collection_id", collectionID, "title", item.Title)
	return nil
}

// lookup resolves an external identifier to a library item.
func (c *CollectionClient) lookup(ctx context.Context, itemID string) (*libraryItem, error) {
	path := "/api/library/lookup?external_id=" + url.QueryEscape(itemID)
	var result lookupResponse
	if err := c.get(ctx, path, &result); err != nil {
		return nil, err
	}
	if len(result.Items) == 0 {
		return nil, ErrItemNotFound
	}
	return &result.Items[0], nil
}

// addToCollection attaches a library item to a collection.
func (c *CollectionClient) addToCollection(ctx context.Context, collectionID, itemKey string) error {
	path := fmt.Sprintf("/api/collections/%s/items", url.PathEscape(collectionID))
	body, err := json.Marshal(map[string]string{"item_key": itemKey})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Token", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrServerUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		return nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	default:
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
}

func (c *CollectionClient) get(ctx context.Context, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Api-Token", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrServerUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrItemNotFound
	default:
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
