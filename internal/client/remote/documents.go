package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/packsync/packsync/internal/docstore"
)

// compile-time check: Client must satisfy docstore.LiveStore.
var _ docstore.LiveStore = (*Client)(nil)

func collectionPath(collection string) string {
	return "/v1/collections/" + url.PathEscape(collection)
}

func documentPath(collection, id string) string {
	return collectionPath(collection) + "/documents/" + url.PathEscape(id)
}

func filtersQuery(filters docstore.Filters) (string, error) {
	if len(filters) == 0 {
		return "", nil
	}
	b, err := json.Marshal(filters)
	if err != nil {
		return "", fmt.Errorf("encode filters: %w", err)
	}
	return "?filters=" + url.QueryEscape(string(b)), nil
}

func (c *Client) Query(ctx context.Context, collection string, filters docstore.Filters) ([]docstore.Document, error) {
	q, err := filtersQuery(filters)
	if err != nil {
		return nil, fmt.Errorf("remote.Client.Query: %w", err)
	}
	var resp struct {
		Documents []docstore.Document `json:"documents"`
	}
	if err := c.do(ctx, http.MethodGet, collectionPath(collection)+"/documents"+q, nil, &resp); err != nil {
		return nil, fmt.Errorf("remote.Client.Query: %w", err)
	}
	return resp.Documents, nil
}

func (c *Client) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	var doc docstore.Document
	if err := c.do(ctx, http.MethodGet, documentPath(collection, id), nil, &doc); err != nil {
		return docstore.Document{}, fmt.Errorf("remote.Client.Get: %w", err)
	}
	return doc, nil
}

func (c *Client) Create(ctx context.Context, collection string, fields map[string]any) (docstore.Document, error) {
	var doc docstore.Document
	if err := c.do(ctx, http.MethodPost, collectionPath(collection)+"/documents", fields, &doc); err != nil {
		return docstore.Document{}, fmt.Errorf("remote.Client.Create: %w", err)
	}
	return doc, nil
}

func (c *Client) SetFields(ctx context.Context, collection, id string, fields map[string]any, merge bool) error {
	path := documentPath(collection, id) + "?merge=" + strconv.FormatBool(merge)
	if err := c.do(ctx, http.MethodPatch, path, fields, nil); err != nil {
		return fmt.Errorf("remote.Client.SetFields: %w", err)
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, collection, id string) error {
	if err := c.do(ctx, http.MethodDelete, documentPath(collection, id), nil, nil); err != nil {
		return fmt.Errorf("remote.Client.Delete: %w", err)
	}
	return nil
}
