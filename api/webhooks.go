/*
Copyright 2024 TGFC.

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
package api

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tgfc/fanops"
)

// ReceiveShopifyWebhook logs an order webhook delivery and acknowledges it.
// A failure after the row is logged is tracked in the ledger for retry, never
// surfaced as a delivery failure, so the sender does not retry into a poison
// loop.
func (a Api) ReceiveShopifyWebhook(c *gin.Context) {
	externalEventID := c.GetHeader("X-Shopify-Webhook-Id")
	topic := c.GetHeader("X-Shopify-Topic")
	if externalEventID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing X-Shopify-Webhook-Id header"})
		return
	}

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	receipt, err := a.fanops.ReceiveWebhook(c.Request.Context(), fanops.ProviderShopify, externalEventID, topic, payload)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, receipt)
}

// ReceiveGraphWebhook logs an inbound-mail change notification.
func (a Api) ReceiveGraphWebhook(c *gin.Context) {
	externalEventID := c.GetHeader("X-Notification-Id")
	if externalEventID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing X-Notification-Id header"})
		return
	}

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	receipt, err := a.fanops.ReceiveWebhook(c.Request.Context(), fanops.ProviderGraph, externalEventID, "mail/received", payload)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, receipt)
}

func (a Api) ListFailedWebhookEvents(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a number"})
		return
	}

	events, err := a.fanops.ListFailedWebhookEvents(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, events)
}

func (a Api) ReplayWebhookEvent(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}

	if err := a.fanops.ReplayWebhookEvent(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "webhook event queued for replay"})
}
