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

package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/tgfc/fanops/internal/apierror"
	"github.com/tgfc/fanops/model"
)

// staleClaimAfter is how long a processing claim holds before another
// processor may take the row over. A worker that crashed mid-flight never
// finishes its row; without this cutoff that row would be stuck in
// processing forever.
const staleClaimAfter = 15 * time.Minute

const webhookEventColumns = `
	webhook_event_id, provider, external_event_id, topic,
	processing_status, retry_count, payload, processing_error,
	created_at, updated_at`

// UpsertWebhookEvent is the single atomic insert-or-reuse step of the
// idempotency ledger. A fresh delivery inserts a pending row; a re-delivery
// reuses the existing row, bumping retry_count only when the row is still
// eligible for processing. A read-then-write here would reopen the race the
// unique (provider, external_event_id) constraint exists to close.
func (d Datasource) UpsertWebhookEvent(ctx context.Context, provider, externalEventID, topic string, payload json.RawMessage) (*model.WebhookEvent, bool, error) {
	row := d.Conn.QueryRowContext(ctx, `
		INSERT INTO webhook_events (webhook_event_id, provider, external_event_id, topic, processing_status, retry_count, payload)
		VALUES ($1, $2, $3, $4, $5, 0, $6)
		ON CONFLICT (provider, external_event_id) DO UPDATE SET
			retry_count = CASE
				WHEN webhook_events.processing_status IN ('pending', 'processing', 'failed')
				THEN webhook_events.retry_count + 1
				ELSE webhook_events.retry_count
			END,
			updated_at = NOW()
		RETURNING `+webhookEventColumns+`, (xmax = 0) AS inserted
	`, model.GenerateUUIDWithSuffix("whk"), provider, externalEventID, topic, model.WebhookPending, []byte(payload))

	event, inserted, err := scanWebhookEventWithInserted(row)
	if err != nil {
		return nil, false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to upsert webhook event", err)
	}
	return event, inserted, nil
}

func scanWebhookEvent(scanner interface {
	Scan(dest ...interface{}) error
}) (*model.WebhookEvent, error) {
	event := model.WebhookEvent{}
	var topic, processingError sql.NullString
	var payload []byte

	err := scanner.Scan(&event.WebhookEventID, &event.Provider, &event.ExternalEventID, &topic,
		&event.ProcessingStatus, &event.RetryCount, &payload, &processingError,
		&event.CreatedAt, &event.UpdatedAt)
	if err != nil {
		return nil, err
	}
	event.Topic = topic.String
	event.ProcessingError = processingError.String
	event.Payload = json.RawMessage(payload)
	return &event, nil
}

func scanWebhookEventWithInserted(row *sql.Row) (*model.WebhookEvent, bool, error) {
	event := model.WebhookEvent{}
	var topic, processingError sql.NullString
	var payload []byte
	var inserted bool

	err := row.Scan(&event.WebhookEventID, &event.Provider, &event.ExternalEventID, &topic,
		&event.ProcessingStatus, &event.RetryCount, &payload, &processingError,
		&event.CreatedAt, &event.UpdatedAt, &inserted)
	if err != nil {
		return nil, false, err
	}
	event.Topic = topic.String
	event.ProcessingError = processingError.String
	event.Payload = json.RawMessage(payload)
	return &event, inserted, nil
}

// ClaimWebhookEvent flips a pending or failed row to processing. The guarded
// WHERE clause means at most one concurrent processor wins the claim; losers
// observe affected == 0 and back off. A processing row whose claim has gone
// stale is claimable again, so a crashed worker cannot strand its row.
func (d Datasource) ClaimWebhookEvent(ctx context.Context, id string) (bool, error) {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE webhook_events
		SET processing_status = $2, updated_at = NOW()
		WHERE webhook_event_id = $1
			AND (processing_status IN ($3, $4) OR (processing_status = $2 AND updated_at < $5))
	`, id, model.WebhookProcessing, model.WebhookPending, model.WebhookFailed, time.Now().Add(-staleClaimAfter))
	if err != nil {
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to claim webhook event", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read claim result", err)
	}
	return affected == 1, nil
}

func (d Datasource) FinishWebhookEvent(ctx context.Context, id, status, processingError string) error {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE webhook_events
		SET processing_status = $2, processing_error = NULLIF($3, ''), updated_at = NOW()
		WHERE webhook_event_id = $1 AND processing_status = $4
	`, id, status, processingError, model.WebhookProcessing)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to finish webhook event", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read update result", err)
	}
	if affected == 0 {
		return apierror.NewAPIError(apierror.ErrConflict, "Webhook event is not in processing state", nil)
	}
	return nil
}

func (d Datasource) GetWebhookEvent(ctx context.Context, provider, externalEventID string) (*model.WebhookEvent, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+webhookEventColumns+`
		FROM webhook_events
		WHERE provider = $1 AND external_event_id = $2
	`, provider, externalEventID)

	event, err := scanWebhookEvent(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, "Webhook event not found", err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve webhook event", err)
	}
	return event, nil
}

func (d Datasource) GetWebhookEventByID(ctx context.Context, id string) (*model.WebhookEvent, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+webhookEventColumns+`
		FROM webhook_events
		WHERE webhook_event_id = $1
	`, id)

	event, err := scanWebhookEvent(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, "Webhook event not found", err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve webhook event", err)
	}
	return event, nil
}

func (d Datasource) ListWebhookEventsByStatus(ctx context.Context, status string, limit int) ([]*model.WebhookEvent, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT `+webhookEventColumns+`
		FROM webhook_events
		WHERE processing_status = $1
		ORDER BY updated_at DESC
		LIMIT $2
	`, status, limit)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to list webhook events", err)
	}
	defer rows.Close()

	events := []*model.WebhookEvent{}
	for rows.Next() {
		event, err := scanWebhookEvent(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan webhook event data", err)
		}
		events = append(events, event)
	}
	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over webhook events", err)
	}
	return events, nil
}
