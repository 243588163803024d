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

package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Processing statuses of a webhook event. The row is the durability mechanism
// for retry: a delivery never processes without first landing in this ledger.
const (
	WebhookPending    = "pending"
	WebhookProcessing = "processing"
	WebhookCompleted  = "completed"
	WebhookFailed     = "failed"
	WebhookSkipped    = "skipped"
)

// webhookTransitions is the transition table over a webhook event's
// processing status. Retry is a first-class transition (failed -> processing),
// not an ad hoc flag mutation.
var webhookTransitions = map[string][]string{
	WebhookPending:    {WebhookProcessing},
	WebhookFailed:     {WebhookProcessing},
	WebhookProcessing: {WebhookCompleted, WebhookFailed, WebhookSkipped},
}

// CanTransitionWebhook reports whether a webhook event may move between the
// two processing statuses.
func CanTransitionWebhook(from, to string) bool {
	for _, next := range webhookTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// WebhookEvent is one row of the idempotency ledger. Exactly one row exists
// per (provider, external_event_id); re-deliveries reuse the row and bump
// retry_count.
type WebhookEvent struct {
	ID               int64           `json:"-"`
	WebhookEventID   string          `json:"webhook_event_id"`
	Provider         string          `json:"provider"`
	ExternalEventID  string          `json:"external_event_id"`
	Topic            string          `json:"topic,omitempty"`
	ProcessingStatus string          `json:"processing_status"`
	RetryCount       int             `json:"retry_count"`
	Payload          json.RawMessage `json:"payload"`
	ProcessingError  string          `json:"processing_error,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// Retryable reports whether the event is eligible for (re-)processing.
// Completed events are true duplicates and must be acknowledged untouched.
func (e *WebhookEvent) Retryable() bool {
	switch e.ProcessingStatus {
	case WebhookPending, WebhookFailed, WebhookProcessing:
		return true
	}
	return false
}

// ValidateTransition returns an error naming both statuses when a processing
// transition is not in the table.
func (e *WebhookEvent) ValidateTransition(to string) error {
	if !CanTransitionWebhook(e.ProcessingStatus, to) {
		return fmt.Errorf("invalid webhook processing transition %s -> %s for event %s", e.ProcessingStatus, to, e.WebhookEventID)
	}
	return nil
}
