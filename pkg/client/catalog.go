package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// CatalogClient resolves book and user references against a remote catalog
// service. It is the over-the-wire alternative to the direct Mongo directory
// used when both services share a database.
type CatalogClient struct {
	httpClient *HttpClient
}

func NewCatalogClient(baseURL string) *CatalogClient {
	return &CatalogClient{
		httpClient: NewHttpClient(baseURL),
	}
}

func (c *CatalogClient) BookExists(ctx context.Context, id string) (bool, error) {
	return c.exists(ctx, "/api/v1/books/id/"+url.PathEscape(id))
}

func (c *CatalogClient) UserExists(ctx context.Context, id string) (bool, error) {
	return c.exists(ctx, "/api/v1/users/id/"+url.PathEscape(id))
}

func (c *CatalogClient) exists(ctx context.Context, path string) (bool, error) {
	resp, err := c.httpClient.GET(ctx, path)
	if err != nil {
		return false, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound, http.StatusBadRequest:
		return false, nil
	default:
		return false, fmt.Errorf("catalog lookup returned unexpected status %d", resp.StatusCode)
	}
}
