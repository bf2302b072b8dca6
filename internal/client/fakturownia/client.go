// Package fakturownia is a client for the subset of the Fakturownia REST API
// used to issue invoices for shop orders.
package fakturownia

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	httpClient "github.com/pablop76/hikashop-fakturownia/internal/client/http"
)

// BaseURL returns the API root of a Fakturownia account.
func BaseURL(subdomain string) string {
	return "https://" + subdomain + ".fakturownia.pl"
}

// Client talks to one Fakturownia account.
type Client struct {
	httpClient *httpClient.HTTPClient
	apiToken   string
}

// New creates a client for subdomain. Options are applied after the default
// base URL, so httpClient.WithBaseURL can point the client elsewhere.
func New(apiToken, subdomain string, options ...httpClient.ClientOption) *Client {
	opts := append([]httpClient.ClientOption{httpClient.WithBaseURL(BaseURL(subdomain))}, options...)
	return &Client{
		httpClient: httpClient.NewHTTPClient(opts...),
		apiToken:   apiToken,
	}
}

func (c *Client) tokenParam() httpClient.RequestOption {
	return httpClient.WithQueryParam("api_token", c.apiToken)
}

func idPath(prefix string, id int64) string {
	return prefix + "/" + strconv.FormatInt(id, 10) + ".json"
}

// isCreated reports whether a write call succeeded. The API answers 200 or 201.
func isCreated(resp *http.Response) bool {
	return resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated
}

// decodeResource reads the id (and code) of a created resource.
func decodeResource(resp *http.Response) (resource, error) {
	defer resp.Body.Close()

	var r resource
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return r, err
	}
	if err := json.Unmarshal(body, &r); err != nil {
		return r, err
	}
	return r, nil
}

// drain discards and closes a response body the caller does not need.
func drain(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
