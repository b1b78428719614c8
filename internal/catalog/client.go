package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	"net/http"
	"strings"
)

// Client fetches events from the external products API.
type Client struct {
	client  *http.Client
	baseURL string
	logger  *logger.Logger
}

// NewClient creates a new Client. baseURL is the API root, e.g. https://dummyjson.com.
func NewClient(baseURL string, client *http.Client, log *logger.Logger) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  log,
	}
}

// FetchPage fetches one page of events.
func (c *Client) FetchPage(ctx context.Context, limit, skip int) (*models.EventPage, error) {
	url := fmt.Sprintf("%s/products?limit=%d&skip=%d", c.baseURL, limit, skip)
	c.logger.Debug("CATALOG", fmt.Sprintf("Fetching event page: %s", url))

	var page models.EventPage
	if err := c.getJSON(ctx, url, &page); err != nil {
		return nil, err
	}

	c.logger.LogCatalog("PAGE", fmt.Sprintf("fetched %d of %d events (skip=%d)", len(page.Events), page.Total, skip))
	return &page, nil
}

// FetchEvent fetches a single event. A 404 from upstream becomes models.ErrEventNotFound.
func (c *Client) FetchEvent(ctx context.Context, id int) (*models.Event, error) {
	url := fmt.Sprintf("%s/products/%d", c.baseURL, id)
	c.logger.Debug("CATALOG", fmt.Sprintf("Fetching event: %s", url))

	var event models.Event
	if err := c.getJSON(ctx, url, &event); err != nil {
		return nil, err
	}
	if event.ID == 0 {
		return nil, fmt.Errorf("event %d: %w", id, models.ErrEventNotFound)
	}

	c.logger.LogCatalog("EVENT", fmt.Sprintf("fetched event %d (%s)", event.ID, event.Title))
	return &event, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		c.logger.Error("CATALOG", fmt.Sprintf("Failed to create catalog request: %v", err))
		return fmt.Errorf("failed to create catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("CATALOG", fmt.Sprintf("Catalog request failed: %v", err))
		return fmt.Errorf("%w: %v", models.ErrUpstream, err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			c.logger.Error("CATALOG", fmt.Sprintf("Failed to close catalog response body: %v", err))
		}
	}(resp.Body)

	if resp.StatusCode == http.StatusNotFound {
		c.logger.Warn("CATALOG", fmt.Sprintf("Not found upstream: %s", url))
		return models.ErrEventNotFound
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("CATALOG", fmt.Sprintf("Catalog returned status: %d", resp.StatusCode))
		return fmt.Errorf("%w: status %d", models.ErrUpstream, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.logger.Error("CATALOG", fmt.Sprintf("Failed to decode catalog response: %v", err))
		return fmt.Errorf("%w: decode: %v", models.ErrUpstream, err)
	}
	return nil
}
