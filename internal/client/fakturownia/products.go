package fakturownia

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	httpClient "github.com/pablop76/hikashop-fakturownia/internal/client/http"
	"github.com/pablop76/hikashop-fakturownia/internal/logger"
)

// UpsertProduct updates the catalog product whose code matches exactly
// (case-insensitive, trimmed) or creates it. When the search itself fails
// the product is skipped and nothing is written.
func (c *Client) UpsertProduct(ctx context.Context, product Product) error {
	id, err := c.findProduct(ctx, product.Code)
	if err != nil {
		logger.Warn("product search failed, skipping product", zap.String("code", product.Code), zap.Error(err))
		return err
	}

	body := productRequest{APIToken: c.apiToken, Product: product}

	var resp *http.Response
	op := "create product"
	if id != 0 {
		op = "update product"
		resp, err = c.httpClient.Put(ctx, idPath("/products", id), body)
	} else {
		resp, err = c.httpClient.Post(ctx, "/products.json", body)
	}
	if err != nil {
		drain(resp)
		return asAPIError(op, err)
	}
	defer drain(resp)

	if !isCreated(resp) {
		return newAPIError(op, resp.StatusCode, "unexpected status")
	}
	return nil
}

func (c *Client) findProduct(ctx context.Context, code string) (int64, error) {
	resp, err := c.httpClient.Get(ctx, "/products.json",
		c.tokenParam(),
		httpClient.WithQueryParam("search", code),
	)
	if err != nil {
		drain(resp)
		return 0, asAPIError("search products", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, nil
	}

	var found []resource
	if err := json.NewDecoder(resp.Body).Decode(&found); err != nil {
		logger.Debug("unreadable product search result, creating", zap.String("code", code), zap.Error(err))
		return 0, nil
	}

	want := strings.ToLower(strings.TrimSpace(code))
	for _, p := range found {
		if strings.ToLower(strings.TrimSpace(p.Code)) == want {
			return p.ID, nil
		}
	}
	return 0, nil
}
