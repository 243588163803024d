/*
Copyright 2024 TGFC Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package shopify is a minimal client for the order source. Orders are read
// one at a time by id; the rest of the Admin API surface is out of scope.
package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/tgfc/fanops/config"
	"github.com/tgfc/fanops/model"
)

// OrderFetcher retrieves an order from the order source by its external id.
// The service layer depends on this rather than the concrete client so import
// paths are testable without a live store.
type OrderFetcher interface {
	GetOrder(ctx context.Context, orderID string) (*model.Order, error)
}

// Client fetches orders from the Shopify Admin API with retry on transient
// failures.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewClient builds a client from the configured store credentials.
func NewClient(conf *config.ShopifyConfig) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    fmt.Sprintf("https://%s/admin/api/%s", conf.StoreDomain, conf.ApiVersion),
		token:      conf.AccessToken,
	}
}

type orderEnvelope struct {
	Order model.Order `json:"order"`
}

// GetOrder fetches one order by id. Network and 5xx failures are retried with
// exponential backoff; a 404 is permanent and returned immediately.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*model.Order, error) {
	var order *model.Order

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/orders/%s.json", c.baseURL, orderID), nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("X-Shopify-Access-Token", c.token)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return backoff.Permanent(errors.Errorf("order %s not found", orderID))
		case resp.StatusCode == http.StatusTooManyRequests:
			return errors.New("rate limited by order source")
		case resp.StatusCode >= 500:
			return errors.Errorf("order source returned %d", resp.StatusCode)
		case resp.StatusCode != http.StatusOK:
			return backoff.Permanent(errors.Errorf("order source returned %d", resp.StatusCode))
		}

		var envelope orderEnvelope
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
			return backoff.Permanent(errors.Wrap(err, "decoding order payload"))
		}
		order = &envelope.Order
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 30 * time.Second

	err := backoff.RetryNotify(operation, backoff.WithContext(policy, ctx), func(err error, next time.Duration) {
		logrus.WithError(err).Warnf("retrying order fetch for %s in %s", orderID, next)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}
