package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/packsync/packsync/internal/blob"
)

// compile-time check: Client must satisfy blob.Store.
var _ blob.Store = (*Client)(nil)

func blobPath(p string) string {
	segs := strings.Split(p, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return "/v1/blobs/" + strings.Join(segs, "/")
}

// Upload stores data at path on the server.
func (c *Client) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	if err := c.do(ctx, http.MethodPut, blobPath(path), rawBody{data: data, contentType: contentType}, nil); err != nil {
		return fmt.Errorf("remote.Client.Upload: %w", err)
	}
	return nil
}

// DownloadURL asks the server for a time-limited URL for path.
func (c *Client) DownloadURL(ctx context.Context, path string) (string, error) {
	var resp struct {
		URL string `json:"url"`
	}
	if err := c.do(ctx, http.MethodGet, blobPath(path), nil, &resp); err != nil {
		return "", fmt.Errorf("remote.Client.DownloadURL: %w", err)
	}
	return resp.URL, nil
}
