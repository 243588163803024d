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

package fanops

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/tgfc/fanops/internal/notification"
	"github.com/tgfc/fanops/model"
)

// Webhook providers the ledger knows about.
const (
	ProviderShopify = "shopify"
	ProviderGraph   = "graph"
)

// WebhookReceipt reports whether a delivery was logged fresh or is a
// re-delivery, and the ledger row it landed on.
type WebhookReceipt struct {
	WebhookEventID string `json:"webhook_event_id"`
	Status         string `json:"status"`
	Duplicate      bool   `json:"duplicate"`
}

// ReceiveWebhook logs an inbound delivery in the idempotency ledger and
// queues it for processing. The receive path never fails once the row is
// logged: a completed row is acknowledged untouched, anything else is queued
// for (re-)processing. The ledger upsert is a single atomic statement, so
// concurrent deliveries of the same event land on one row.
func (f *Fanops) ReceiveWebhook(ctx context.Context, provider, externalEventID, topic string, payload json.RawMessage) (*WebhookReceipt, error) {
	event, inserted, err := f.datasource.UpsertWebhookEvent(ctx, provider, externalEventID, topic, payload)
	if err != nil {
		return nil, err
	}

	receipt := &WebhookReceipt{
		WebhookEventID: event.WebhookEventID,
		Status:         event.ProcessingStatus,
		Duplicate:      !inserted,
	}

	if !event.Retryable() {
		// Completed or skipped: a true duplicate delivery, acknowledge and
		// do nothing.
		return receipt, nil
	}

	if err := f.queue.EnqueueWebhookEvent(ctx, event); err != nil {
		// The row is durable; the next delivery or a manual replay picks it
		// up. Enqueue failure must not fail the acknowledgement.
		notification.NotifyError(err)
		logrus.Errorf("failed to enqueue webhook event %s: %v", event.WebhookEventID, err)
	}
	return receipt, nil
}

// ProcessWebhookEvent claims a ledger row and runs the payload through the
// pipeline. Exactly one concurrent processor wins the claim; the rest back
// off. Every exit path, including a panic, writes a final processing status
// back to the row: the ledger is the durability mechanism for retry.
func (f *Fanops) ProcessWebhookEvent(ctx context.Context, webhookEventID string) error {
	event, err := f.datasource.GetWebhookEventByID(ctx, webhookEventID)
	if err != nil {
		return err
	}
	if !event.Retryable() {
		return nil
	}

	claimed, err := f.datasource.ClaimWebhookEvent(ctx, event.WebhookEventID)
	if err != nil {
		return err
	}
	if !claimed {
		logrus.Infof("webhook event %s already claimed by another processor", event.WebhookEventID)
		return nil
	}

	var finalStatus string
	var processingError string
	defer func() {
		if r := recover(); r != nil {
			finalStatus = model.WebhookFailed
			processingError = fmt.Sprintf("panic: %v", r)
		}
		if finishErr := f.datasource.FinishWebhookEvent(ctx, event.WebhookEventID, finalStatus, processingError); finishErr != nil {
			notification.NotifyError(finishErr)
			logrus.Errorf("failed to finish webhook event %s: %v", event.WebhookEventID, finishErr)
		}
	}()

	finalStatus, processingError = f.runWebhookPayload(ctx, event)
	return nil
}

// runWebhookPayload dispatches on provider and returns the final ledger
// status. A payload that is recognized but needs no action is skipped, not
// failed.
func (f *Fanops) runWebhookPayload(ctx context.Context, event *model.WebhookEvent) (string, string) {
	switch event.Provider {
	case ProviderShopify:
		return f.runOrderWebhook(ctx, event)
	case ProviderGraph:
		return f.runEmailWebhook(ctx, event)
	}
	return model.WebhookSkipped, fmt.Sprintf("unknown provider %q", event.Provider)
}

func (f *Fanops) runOrderWebhook(ctx context.Context, event *model.WebhookEvent) (string, string) {
	var payload struct {
		ID json.Number `json:"id"`
	}
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return model.WebhookFailed, fmt.Sprintf("malformed order payload: %v", err)
	}
	orderID := payload.ID.String()
	if orderID == "" {
		orderID = event.ExternalEventID
	}

	result, err := f.ImportOrder(ctx, orderID)
	if err != nil {
		return model.WebhookFailed, err.Error()
	}
	if result.Outcome == OrderImportRejected {
		return model.WebhookSkipped, ""
	}
	logrus.Infof("webhook %s: order %s -> %s (work item %s)", event.WebhookEventID, orderID, result.Outcome, result.WorkItemID)
	return model.WebhookCompleted, ""
}

func (f *Fanops) runEmailWebhook(ctx context.Context, event *model.WebhookEvent) (string, string) {
	var msg model.InboundMessage
	if err := json.Unmarshal(event.Payload, &msg); err != nil {
		return model.WebhookFailed, fmt.Sprintf("malformed message payload: %v", err)
	}
	result, err := f.ImportEmail(ctx, &msg)
	if err != nil {
		return model.WebhookFailed, err.Error()
	}
	logrus.Infof("webhook %s: email %s -> %s", event.WebhookEventID, result.CommunicationID, result.Outcome)
	return model.WebhookCompleted, ""
}

// ReplayWebhookEvent re-queues a failed ledger row for another processing
// attempt. This is the manual-intervention path for the failed queue.
func (f *Fanops) ReplayWebhookEvent(ctx context.Context, webhookEventID string) error {
	event, err := f.datasource.GetWebhookEventByID(ctx, webhookEventID)
	if err != nil {
		return err
	}
	if !event.Retryable() {
		return fmt.Errorf("webhook event %s is %s and cannot be replayed", webhookEventID, event.ProcessingStatus)
	}
	return f.queue.EnqueueWebhookEvent(ctx, event)
}

// ListFailedWebhookEvents returns the failed-delivery queue awaiting manual
// remediation.
func (f *Fanops) ListFailedWebhookEvents(ctx context.Context, limit int) ([]*model.WebhookEvent, error) {
	return f.datasource.ListWebhookEventsByStatus(ctx, model.WebhookFailed, limit)
}
