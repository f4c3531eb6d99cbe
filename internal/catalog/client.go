// Package catalog provides access to the remote product catalog service,
// optionally fronted by a local cache with a bloom-filter ID prefilter.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/myshop/storefront/internal/domain/product"
)

var _ product.Source = (*Client)(nil)

// Client is an HTTP client for the remote catalog API.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a catalog client for the service at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// productPayload mirrors the catalog service's wire format. Prices arrive as
// JSON numbers and are decoded straight into decimals to avoid float drift.
type productPayload struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category"`
	Image    struct {
		Thumbnail string `json:"thumbnail"`
		Mobile    string `json:"mobile"`
		Tablet    string `json:"tablet"`
		Desktop   string `json:"desktop"`
	} `json:"image"`
}

func (p productPayload) toDomain() product.Product {
	return product.Product{
		ID:       p.ID,
		Name:     p.Name,
		Price:    p.Price,
		Category: p.Category,
		Image: product.Image{
			Thumbnail: p.Image.Thumbnail,
			Mobile:    p.Image.Mobile,
			Tablet:    p.Image.Tablet,
			Desktop:   p.Image.Desktop,
		},
	}
}

// List fetches the full product catalog.
func (c *Client) List(ctx context.Context) ([]product.Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/products", nil)
	if err != nil {
		return nil, errors.Wrap(err, "build catalog request")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "call catalog service")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("catalog service returned status %d", resp.StatusCode)
	}

	var payload []productPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errors.Wrap(err, "decode catalog response")
	}

	products := make([]product.Product, len(payload))
	for i, p := range payload {
		products[i] = p.toDomain()
	}
	return products, nil
}

// GetByID fetches a single product. It returns product.ErrNotFound when the
// catalog does not know the ID.
func (c *Client) GetByID(ctx context.Context, id string) (*product.Product, error) {
	u := fmt.Sprintf("%s/products/%s", c.baseURL, url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build catalog request")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "call catalog service")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return nil, product.ErrNotFound
	default:
		return nil, errors.Errorf("catalog service returned status %d", resp.StatusCode)
	}

	var payload productPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errors.Wrap(err, "decode catalog response")
	}

	p := payload.toDomain()
	return &p, nil
}
