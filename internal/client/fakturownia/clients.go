package fakturownia

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	httpClient "github.com/pablop76/hikashop-fakturownia/internal/client/http"
	"github.com/pablop76/hikashop-fakturownia/internal/logger"
)

// UpsertClient looks the client up by e-mail. The first match is updated in
// place and its id returned even when the update fails; otherwise a new client
// is created. A search that does not get an answer aborts: creating anyway
// could duplicate the client.
func (c *Client) UpsertClient(ctx context.Context, client ClientData) (int64, error) {
	id, err := c.findClient(ctx, client.Email)
	if err != nil {
		return 0, err
	}

	body := clientRequest{APIToken: c.apiToken, Client: client}

	if id != 0 {
		resp, err := c.httpClient.Put(ctx, idPath("/clients", id), body)
		if err != nil {
			logger.Warn("failed to update client", zap.Int64("client_id", id), zap.Error(err))
		}
		drain(resp)
		return id, nil
	}

	resp, err := c.httpClient.Post(ctx, "/clients.json", body)
	if err != nil {
		drain(resp)
		return 0, asAPIError("create client", err)
	}
	if !isCreated(resp) {
		drain(resp)
		return 0, newAPIError("create client", resp.StatusCode, "unexpected status")
	}

	created, err := decodeResource(resp)
	if err != nil {
		return 0, errors.Wrap(err, "failed to decode created client")
	}
	if created.ID == 0 {
		return 0, errors.Wrap(ErrMissingID, "create client")
	}

	logger.Debug("created client", zap.Int64("client_id", created.ID))
	return created.ID, nil
}

// findClient returns 0 with a nil error when the search answered but nothing
// usable came back.
func (c *Client) findClient(ctx context.Context, email string) (int64, error) {
	resp, err := c.httpClient.Get(ctx, "/clients.json",
		c.tokenParam(),
		httpClient.WithQueryParam("email", email),
	)
	if err != nil {
		drain(resp)
		return 0, asAPIError("search clients", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Warn("unexpected client search status, creating a new client", zap.Int("status", resp.StatusCode))
		return 0, nil
	}

	var found []resource
	if err := json.NewDecoder(resp.Body).Decode(&found); err != nil {
		logger.Warn("unreadable client search result, creating a new client", zap.Error(err))
		return 0, nil
	}
	if len(found) == 0 {
		return 0, nil
	}
	return found[0].ID, nil
}
