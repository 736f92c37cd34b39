package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Client pings the API's notify endpoint after a status change so it can push
// the updated order to live listeners. Delivery is best effort: any response
// code counts as delivered, and failures are for the caller to log, never to
// act on.
type Client struct {
	base string
	http *http.Client
	log  *zap.SugaredLogger
}

func NewClient(baseURL string, log *zap.SugaredLogger) *Client {
	return &Client{
		base: baseURL,
		http: &http.Client{Timeout: 5 * time.Second},
		log:  log,
	}
}

// OrderUpdated fires POST {base}/orders/{id}/notify with an empty body.
func (c *Client) OrderUpdated(ctx context.Context, orderID uuid.UUID) error {
	url := fmt.Sprintf("%s/orders/%s/notify", c.base, orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	c.log.Debugf("notified order %s, status %d", orderID, resp.StatusCode)
	return nil
}
