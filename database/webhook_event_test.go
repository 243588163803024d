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
	"database/sql/driver"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/stretchr/testify/assert"
	"github.com/tgfc/fanops/internal/apierror"
	"github.com/tgfc/fanops/model"
)

var webhookEventTestColumns = []string{
	"webhook_event_id", "provider", "external_event_id", "topic",
	"processing_status", "retry_count", "payload", "processing_error",
	"created_at", "updated_at",
}

func TestUpsertWebhookEvent_FreshDelivery(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	payload := json.RawMessage(`{"id": 9001}`)
	rows := sqlmock.NewRows(append(webhookEventTestColumns, "inserted")).
		AddRow("whk_1", "shopify", "delivery-abc", "orders/create",
			model.WebhookPending, 0, []byte(payload), nil,
			time.Now(), time.Now(), true)

	mock.ExpectQuery("INSERT INTO webhook_events").
		WithArgs(sqlmock.AnyArg(), "shopify", "delivery-abc", "orders/create", model.WebhookPending, []byte(payload)).
		WillReturnRows(rows)

	event, inserted, err := ds.UpsertWebhookEvent(context.Background(), "shopify", "delivery-abc", "orders/create", payload)
	assert.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, model.WebhookPending, event.ProcessingStatus)
	assert.Equal(t, "delivery-abc", event.ExternalEventID)
}

func TestUpsertWebhookEvent_RedeliveryReusesRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	payload := json.RawMessage(`{"id": 9001}`)
	rows := sqlmock.NewRows(append(webhookEventTestColumns, "inserted")).
		AddRow("whk_1", "shopify", "delivery-abc", "orders/create",
			model.WebhookCompleted, 3, []byte(payload), nil,
			time.Now().Add(-time.Hour), time.Now(), false)

	mock.ExpectQuery("INSERT INTO webhook_events").
		WillReturnRows(rows)

	event, inserted, err := ds.UpsertWebhookEvent(context.Background(), "shopify", "delivery-abc", "orders/create", payload)
	assert.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, model.WebhookCompleted, event.ProcessingStatus)
	assert.Equal(t, 3, event.RetryCount)
}

func TestClaimWebhookEvent_Won(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectExec("UPDATE webhook_events").
		WithArgs("whk_1", model.WebhookProcessing, model.WebhookPending, model.WebhookFailed, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	claimed, err := ds.ClaimWebhookEvent(context.Background(), "whk_1")
	assert.NoError(t, err)
	assert.True(t, claimed)
}

// The claim cutoff passed to the query trails now by the staleness window, so
// a processing row abandoned by a crashed worker becomes claimable once its
// updated_at falls behind the cutoff.
func TestClaimWebhookEvent_StaleProcessingIsReclaimable(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectExec("UPDATE webhook_events").
		WithArgs("whk_1", model.WebhookProcessing, model.WebhookPending, model.WebhookFailed,
			cutoffWithin{expected: time.Now().Add(-staleClaimAfter)}).
		WillReturnResult(sqlmock.NewResult(0, 1))

	claimed, err := ds.ClaimWebhookEvent(context.Background(), "whk_1")
	assert.NoError(t, err)
	assert.True(t, claimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// cutoffWithin matches a time argument within a second of the expected one.
type cutoffWithin struct {
	expected time.Time
}

func (c cutoffWithin) Match(v driver.Value) bool {
	actual, ok := v.(time.Time)
	if !ok {
		return false
	}
	diff := actual.Sub(c.expected)
	if diff < 0 {
		diff = -diff
	}
	return diff < time.Second
}

func TestClaimWebhookEvent_LostToConcurrentProcessor(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectExec("UPDATE webhook_events").
		WithArgs("whk_1", model.WebhookProcessing, model.WebhookPending, model.WebhookFailed, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	claimed, err := ds.ClaimWebhookEvent(context.Background(), "whk_1")
	assert.NoError(t, err)
	assert.False(t, claimed)
}

func TestFinishWebhookEvent_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectExec("UPDATE webhook_events").
		WithArgs("whk_1", model.WebhookCompleted, "", model.WebhookProcessing).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = ds.FinishWebhookEvent(context.Background(), "whk_1", model.WebhookCompleted, "")
	assert.NoError(t, err)
}

func TestFinishWebhookEvent_NotInProcessingState(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectExec("UPDATE webhook_events").
		WithArgs("whk_1", model.WebhookFailed, "order lookup failed", model.WebhookProcessing).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = ds.FinishWebhookEvent(context.Background(), "whk_1", model.WebhookFailed, "order lookup failed")
	assert.Error(t, err)
	assert.True(t, apierror.IsConflict(err))
}

func TestGetWebhookEventByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectQuery("FROM webhook_events").
		WithArgs("whk_missing").
		WillReturnRows(sqlmock.NewRows(webhookEventTestColumns))

	_, err = ds.GetWebhookEventByID(context.Background(), "whk_missing")
	assert.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrNotFound, apiErr.Code)
}

func TestListWebhookEventsByStatus_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	rows := sqlmock.NewRows(webhookEventTestColumns).
		AddRow("whk_1", "shopify", "delivery-abc", "orders/create",
			model.WebhookFailed, 2, []byte(`{}`), "order lookup failed",
			time.Now(), time.Now()).
		AddRow("whk_2", "graph", "notif-def", "message-received",
			model.WebhookFailed, 1, []byte(`{}`), "timeout",
			time.Now(), time.Now())

	mock.ExpectQuery("FROM webhook_events").
		WithArgs(model.WebhookFailed, 20).
		WillReturnRows(rows)

	events, err := ds.ListWebhookEventsByStatus(context.Background(), model.WebhookFailed, 20)
	assert.NoError(t, err)
	assert.Len(t, events, 2)
	assert.Equal(t, "order lookup failed", events[0].ProcessingError)
}
