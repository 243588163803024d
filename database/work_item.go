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
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"
	"github.com/tgfc/fanops/internal/apierror"
	"github.com/tgfc/fanops/model"
)

const workItemColumns = `
	work_item_id, type, source, title, status,
	shopify_order_id, shopify_order_number, design_fee_order_id, design_fee_order_number,
	customer_email, customer_name, alternate_emails, customer_id,
	quantity, grip_color, event_date,
	closed_at, is_waiting, next_follow_up_at, last_contact_at,
	reason_included, created_at, updated_at`

func (d Datasource) CreateWorkItem(ctx context.Context, item *model.WorkItem) (*model.WorkItem, error) {
	reasonJSON, err := json.Marshal(item.ReasonIncluded)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal reason_included", err)
	}

	item.WorkItemID = model.GenerateUUIDWithSuffix("wki")
	item.CreatedAt = time.Now()
	item.UpdatedAt = item.CreatedAt
	if item.AlternateEmails == nil {
		item.AlternateEmails = []string{}
	}

	_, err = d.Conn.ExecContext(ctx, `
		INSERT INTO work_items (work_item_id, type, source, title, status,
			shopify_order_id, shopify_order_number, design_fee_order_id, design_fee_order_number,
			customer_email, customer_name, alternate_emails, customer_id,
			quantity, grip_color, event_date, is_waiting, next_follow_up_at, last_contact_at,
			reason_included, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, NULLIF($8, ''), $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
	`, item.WorkItemID, item.Type, item.Source, item.Title, item.Status,
		item.ShopifyOrderID, item.ShopifyOrderNumber, item.DesignFeeOrderID, item.DesignFeeOrderNumber,
		item.CustomerEmail, item.CustomerName, pq.Array(item.AlternateEmails), item.CustomerID,
		item.Quantity, item.GripColor, item.EventDate, item.IsWaiting, item.NextFollowUpAt, item.LastContactAt,
		reasonJSON, item.CreatedAt, item.UpdatedAt)

	if err != nil {
		pqErr, ok := err.(*pq.Error)
		if ok {
			switch pqErr.Code.Name() {
			case "unique_violation":
				return nil, apierror.NewAPIError(apierror.ErrConflict, "Work item for this order already exists", err)
			default:
				return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Database error occurred", err)
			}
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create work item", err)
	}

	return item, nil
}

func scanWorkItem(scanner interface {
	Scan(dest ...interface{}) error
}) (*model.WorkItem, error) {
	item := model.WorkItem{}
	var (
		title, shopifyOrderID, shopifyOrderNumber      sql.NullString
		designFeeOrderID, designFeeOrderNumber         sql.NullString
		customerEmail, customerName, gripColor         sql.NullString
		customerID                                     sql.NullString
		eventDate, closedAt, nextFollowUp, lastContact sql.NullTime
		reasonJSON                                     []byte
		alternateEmails                                pq.StringArray
	)

	err := scanner.Scan(&item.WorkItemID, &item.Type, &item.Source, &title, &item.Status,
		&shopifyOrderID, &shopifyOrderNumber, &designFeeOrderID, &designFeeOrderNumber,
		&customerEmail, &customerName, &alternateEmails, &customerID,
		&item.Quantity, &gripColor, &eventDate,
		&closedAt, &item.IsWaiting, &nextFollowUp, &lastContact,
		&reasonJSON, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}

	item.Title = title.String
	item.ShopifyOrderID = shopifyOrderID.String
	item.ShopifyOrderNumber = shopifyOrderNumber.String
	item.DesignFeeOrderID = designFeeOrderID.String
	item.DesignFeeOrderNumber = designFeeOrderNumber.String
	item.CustomerEmail = customerEmail.String
	item.CustomerName = customerName.String
	item.GripColor = gripColor.String
	item.AlternateEmails = []string(alternateEmails)
	if customerID.Valid {
		item.CustomerID = &customerID.String
	}
	if eventDate.Valid {
		item.EventDate = &eventDate.Time
	}
	if closedAt.Valid {
		item.ClosedAt = &closedAt.Time
	}
	if nextFollowUp.Valid {
		item.NextFollowUpAt = &nextFollowUp.Time
	}
	if lastContact.Valid {
		item.LastContactAt = &lastContact.Time
	}
	if len(reasonJSON) > 0 {
		if err := json.Unmarshal(reasonJSON, &item.ReasonIncluded); err != nil {
			return nil, err
		}
	}

	return &item, nil
}

func (d Datasource) GetWorkItemByID(ctx context.Context, id string) (*model.WorkItem, error) {
	cacheKey := fmt.Sprintf("work_item:%s", id)

	if d.Cache != nil {
		var cached model.WorkItem
		err := d.Cache.Get(ctx, cacheKey, &cached)
		if err == nil && cached.WorkItemID != "" {
			return &cached, nil
		}
	}

	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+workItemColumns+`
		FROM work_items
		WHERE work_item_id = $1
	`, id)

	item, err := scanWorkItem(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, "Work item not found", err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve work item", err)
	}

	if d.Cache != nil {
		err = d.Cache.Set(ctx, cacheKey, item, 5*time.Minute) // Cache for 5 minutes
		if err != nil {
			// Log the error, but don't return it as the main operation succeeded
			log.Printf("Failed to cache work item: %v", err)
		}
	}
	return item, nil
}

// invalidateWorkItem drops the cached copy after a write so the next read
// reflects the new row.
func (d Datasource) invalidateWorkItem(ctx context.Context, id string) {
	if d.Cache == nil {
		return
	}
	if err := d.Cache.Delete(ctx, fmt.Sprintf("work_item:%s", id)); err != nil {
		log.Printf("Failed to invalidate work item cache: %v", err)
	}
}

// GetOpenWorkItemByOrderID searches both order buckets. Linking only ever
// attaches to open work items, so closed rows are excluded here rather than
// by the caller.
func (d Datasource) GetOpenWorkItemByOrderID(ctx context.Context, orderID string) (*model.WorkItem, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+workItemColumns+`
		FROM work_items
		WHERE (shopify_order_id = $1 OR design_fee_order_id = $1) AND closed_at IS NULL
	`, orderID)

	item, err := scanWorkItem(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve work item by order id", err)
	}
	return item, nil
}

func (d Datasource) GetOpenWorkItemByOrderNumber(ctx context.Context, orderNumber string) (*model.WorkItem, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+workItemColumns+`
		FROM work_items
		WHERE (shopify_order_number = $1 OR design_fee_order_number = $1) AND closed_at IS NULL
		ORDER BY updated_at DESC
		LIMIT 1
	`, orderNumber)

	item, err := scanWorkItem(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve work item by order number", err)
	}
	return item, nil
}

func (d Datasource) SearchOpenWorkItemsByOrderNumber(ctx context.Context, fragment string) ([]*model.WorkItem, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT `+workItemColumns+`
		FROM work_items
		WHERE shopify_order_number LIKE '%' || $1 || '%' AND closed_at IS NULL
		ORDER BY updated_at DESC
		LIMIT 20
	`, fragment)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to search work items by order number", err)
	}
	defer rows.Close()

	return collectWorkItems(rows)
}

func (d Datasource) SearchOpenWorkItemsByTitle(ctx context.Context, fragment string) ([]*model.WorkItem, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT `+workItemColumns+`
		FROM work_items
		WHERE title ILIKE '%' || $1 || '%' AND closed_at IS NULL
		ORDER BY updated_at DESC
		LIMIT 20
	`, fragment)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to search work items by title", err)
	}
	defer rows.Close()

	return collectWorkItems(rows)
}

func collectWorkItems(rows *sql.Rows) ([]*model.WorkItem, error) {
	items := []*model.WorkItem{}
	for rows.Next() {
		item, err := scanWorkItem(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan work item data", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over work items", err)
	}
	return items, nil
}

// GetRecentOpenWorkItemByEmail matches the customer address against both the
// primary email and the alternate set.
func (d Datasource) GetRecentOpenWorkItemByEmail(ctx context.Context, email string, updatedSince time.Time) (*model.WorkItem, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+workItemColumns+`
		FROM work_items
		WHERE (LOWER(customer_email) = LOWER($1) OR $1 = ANY(alternate_emails))
			AND closed_at IS NULL AND updated_at >= $2
		ORDER BY updated_at DESC
		LIMIT 1
	`, email, updatedSince)

	item, err := scanWorkItem(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve work item by email", err)
	}
	return item, nil
}

func (d Datasource) UpdateWorkItemStatus(ctx context.Context, id, status string, closedAt, nextFollowUpAt *time.Time) error {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE work_items
		SET status = $2, closed_at = COALESCE(closed_at, $3), next_follow_up_at = $4, updated_at = NOW()
		WHERE work_item_id = $1
	`, id, status, closedAt, nextFollowUpAt)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update work item status", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read update result", err)
	}
	if affected == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, "Work item not found", nil)
	}
	d.invalidateWorkItem(ctx, id)
	return nil
}

func (d Datasource) UpdateWorkItemFollowUp(ctx context.Context, id string, nextFollowUpAt, lastContactAt *time.Time) error {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE work_items
		SET next_follow_up_at = $2, last_contact_at = COALESCE($3, last_contact_at), updated_at = NOW()
		WHERE work_item_id = $1
	`, id, nextFollowUpAt, lastContactAt)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update work item follow-up", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read update result", err)
	}
	if affected == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, "Work item not found", nil)
	}
	d.invalidateWorkItem(ctx, id)
	return nil
}

func (d Datasource) SetWorkItemWaiting(ctx context.Context, id string, waiting bool, nextFollowUpAt *time.Time) error {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE work_items
		SET is_waiting = $2, next_follow_up_at = $3, updated_at = NOW()
		WHERE work_item_id = $1
	`, id, waiting, nextFollowUpAt)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update work item waiting flag", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read update result", err)
	}
	if affected == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, "Work item not found", nil)
	}
	d.invalidateWorkItem(ctx, id)
	return nil
}

// AttachOrderToWorkItem fills the production bucket or the design-fee bucket.
// The guard on the target column keeps a work item from ever holding two
// orders of the same kind.
func (d Datasource) AttachOrderToWorkItem(ctx context.Context, id, orderID, orderNumber string, designFee bool, quantity int) error {
	var query string
	if designFee {
		query = `
			UPDATE work_items
			SET design_fee_order_id = $2, design_fee_order_number = $3, updated_at = NOW()
			WHERE work_item_id = $1 AND design_fee_order_id IS NULL AND closed_at IS NULL
		`
	} else {
		query = `
			UPDATE work_items
			SET shopify_order_id = $2, shopify_order_number = $3, quantity = quantity + $4, updated_at = NOW()
			WHERE work_item_id = $1 AND shopify_order_id IS NULL AND closed_at IS NULL
		`
	}

	var (
		result sql.Result
		err    error
	)
	if designFee {
		result, err = d.Conn.ExecContext(ctx, query, id, orderID, orderNumber)
	} else {
		result, err = d.Conn.ExecContext(ctx, query, id, orderID, orderNumber, quantity)
	}
	if err != nil {
		pqErr, ok := err.(*pq.Error)
		if ok && pqErr.Code.Name() == "unique_violation" {
			return apierror.NewAPIError(apierror.ErrConflict, "Order already attached to another work item", err)
		}
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to attach order to work item", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read update result", err)
	}
	if affected == 0 {
		return apierror.NewAPIError(apierror.ErrConflict, "Work item is closed or already holds an order in this bucket", nil)
	}
	d.invalidateWorkItem(ctx, id)
	return nil
}

func (d Datasource) AddAlternateEmail(ctx context.Context, id, email string) error {
	_, err := d.Conn.ExecContext(ctx, `
		UPDATE work_items
		SET alternate_emails = array_append(alternate_emails, $2), updated_at = NOW()
		WHERE work_item_id = $1 AND NOT ($2 = ANY(alternate_emails)) AND LOWER(customer_email) != LOWER($2)
	`, id, email)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to add alternate email", err)
	}
	d.invalidateWorkItem(ctx, id)
	return nil
}

func (d Datasource) ListFollowUpsDue(ctx context.Context, due time.Time, limit int) ([]*model.WorkItem, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT `+workItemColumns+`
		FROM work_items
		WHERE closed_at IS NULL AND is_waiting = FALSE
			AND next_follow_up_at IS NOT NULL AND next_follow_up_at <= $1
		ORDER BY next_follow_up_at ASC
		LIMIT $2
	`, due, limit)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to list due follow-ups", err)
	}
	defer rows.Close()

	return collectWorkItems(rows)
}

func (d Datasource) RecordStatusEvent(ctx context.Context, event *model.StatusEvent) error {
	event.EventID = model.GenerateUUIDWithSuffix("evt")
	event.CreatedAt = time.Now()

	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO work_item_status_events (event_id, work_item_id, from_status, to_status, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, event.EventID, event.WorkItemID, event.FromStatus, event.ToStatus, event.Note, event.CreatedAt)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record status event", err)
	}
	return nil
}

func (d Datasource) GetStatusEvents(ctx context.Context, workItemID string) ([]*model.StatusEvent, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT event_id, work_item_id, from_status, to_status, note, created_at
		FROM work_item_status_events
		WHERE work_item_id = $1
		ORDER BY created_at ASC
	`, workItemID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve status events", err)
	}
	defer rows.Close()

	events := []*model.StatusEvent{}
	for rows.Next() {
		event := model.StatusEvent{}
		var note sql.NullString
		err = rows.Scan(&event.EventID, &event.WorkItemID, &event.FromStatus, &event.ToStatus, &note, &event.CreatedAt)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan status event data", err)
		}
		event.Note = note.String
		events = append(events, &event)
	}
	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over status events", err)
	}
	return events, nil
}
