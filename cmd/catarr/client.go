package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client wraps HTTP calls to the catarr server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new catarr API client.
func NewClient(serverURL string) *Client {
	return &Client{
		baseURL: serverURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) get(path string, result any) error {
	resp, err := c.httpClient.Get(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server error %d: %s", resp.StatusCode, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(result)
}

func (c *Client) post(path string, body any, result any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	resp, err := c.httpClient.Post(c.baseURL+path, "application/json", bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server error %d: %s", resp.StatusCode, string(respBody))
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func (c *Client) delete(path string) error {
	req, err := http.NewRequest(http.MethodDelete, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("request creation failed: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server error %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

// API response types (mirror server types)

type StatusResponse struct {
	Status       string `json:"status"`
	Version      string `json:"version"`
	HasPending   bool   `json:"has_pending"`
	PendingCount int    `json:"pending_count"`
}

type CatalogResponse struct {
	CatalogID      string     `json:"catalog_id"`
	CollectionID   string     `json:"collection_id"`
	CatalogName    string     `json:"catalog_name"`
	MediaType      string     `json:"media_type"`
	PendingCount   int        `json:"pending_count"`
	ProcessedCount int        `json:"processed_count"`
	SuccessCount   int        `json:"success_count"`
	FailedCount    int        `json:"failed_count"`
	TotalCount     int        `json:"total_count"`
	QueuedAt       time.Time  `json:"queued_at"`
	LastUpdated    *time.Time `json:"last_updated,omitempty"`
}

type ListQueueResponse struct {
	Items []CatalogResponse `json:"items"`
	Total int               `json:"total"`
}

type HistoryEntryResponse struct {
	ID         int64     `json:"id"`
	RunID      string    `json:"run_id"`
	CatalogID  string    `json:"catalog_id"`
	ItemID     string    `json:"item_id"`
	MediaType  string    `json:"media_type"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

type ListHistoryResponse struct {
	Items []HistoryEntryResponse `json:"items"`
	Total int                    `json:"total"`
}

type EnqueueRequest struct {
	CatalogID    string   `json:"catalog_id"`
	CollectionID string   `json:"collection_id"`
	CatalogName  string   `json:"catalog_name"`
	MediaType    string   `json:"media_type"`
	ItemIDs      []string `json:"item_ids"`
}

// Status fetches daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var status StatusResponse
	if err := c.get("/api/v1/system/status", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Queue lists queued catalogs, optionally fuzzy-filtered by name.
func (c *Client) Queue(nameFilter string) (*ListQueueResponse, error) {
	path := "/api/v1/queue"
	if nameFilter != "" {
		path += "?name=" + url.QueryEscape(nameFilter)
	}
	var list ListQueueResponse
	if err := c.get(path, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// Enqueue queues a catalog for import.
func (c *Client) Enqueue(req EnqueueRequest) (*CatalogResponse, error) {
	var created CatalogResponse
	if err := c.post("/api/v1/catalogs", req, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// Cancel removes a catalog from the queue.
func (c *Client) Cancel(catalogID string) error {
	return c.delete("/api/v1/queue/" + url.PathEscape(catalogID))
}

// History lists recent import attempts.
func (c *Client) History(catalogID string, failedOnly bool, limit int) (*ListHistoryResponse, error) {
	q := url.Values{}
	if catalogID != "" {
		q.Set("catalog_id", catalogID)
	}
	if failedOnly {
		q.Set("failed", "true")
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	path := "/api/v1/history"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var list ListHistoryResponse
	if err := c.get(path, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("error encoding JSON: %v\n", err)
		return
	}
	fmt.Println(string(data))
}
