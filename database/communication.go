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
	"time"

	"github.com/lib/pq"
	"github.com/tgfc/fanops/internal/apierror"
	"github.com/tgfc/fanops/model"
)

const communicationColumns = `
	communication_id, direction, from_email, to_emails, subject,
	body_html, body_preview, received_at, sent_at,
	provider_message_id, internet_message_id, provider_thread_id,
	work_item_id, triage_status, category, created_at`

func (d Datasource) InsertCommunication(ctx context.Context, comm *model.Communication) (*model.Communication, error) {
	comm.CommunicationID = model.GenerateUUIDWithSuffix("comm")
	comm.CreatedAt = time.Now()
	if comm.ToEmails == nil {
		comm.ToEmails = []string{}
	}
	if comm.TriageStatus == "" {
		comm.TriageStatus = model.TriageUntriaged
	}

	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO communications (communication_id, direction, from_email, to_emails, subject,
			body_html, body_preview, received_at, sent_at,
			provider_message_id, internet_message_id, provider_thread_id,
			work_item_id, triage_status, category, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), $11, $12, $13, $14, $15, $16)
	`, comm.CommunicationID, comm.Direction, comm.FromEmail, pq.Array(comm.ToEmails), comm.Subject,
		comm.BodyHTML, comm.BodyPreview, comm.ReceivedAt, comm.SentAt,
		comm.ProviderMessageID, comm.InternetMessageID, comm.ProviderThreadID,
		comm.WorkItemID, comm.TriageStatus, comm.Category, comm.CreatedAt)

	if err != nil {
		pqErr, ok := err.(*pq.Error)
		if ok {
			switch pqErr.Code.Name() {
			case "unique_violation":
				return nil, apierror.NewAPIError(apierror.ErrConflict, "Communication with this message id already exists", err)
			default:
				return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Database error occurred", err)
			}
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to insert communication", err)
	}

	return comm, nil
}

func scanCommunication(scanner interface {
	Scan(dest ...interface{}) error
}) (*model.Communication, error) {
	comm := model.Communication{}
	var (
		fromEmail, subject, bodyHTML, bodyPreview      sql.NullString
		providerMessageID, internetMessageID, threadID sql.NullString
		workItemID, category                           sql.NullString
		receivedAt, sentAt                             sql.NullTime
		toEmails                                       pq.StringArray
	)

	err := scanner.Scan(&comm.CommunicationID, &comm.Direction, &fromEmail, &toEmails, &subject,
		&bodyHTML, &bodyPreview, &receivedAt, &sentAt,
		&providerMessageID, &internetMessageID, &threadID,
		&workItemID, &comm.TriageStatus, &category, &comm.CreatedAt)
	if err != nil {
		return nil, err
	}

	comm.FromEmail = fromEmail.String
	comm.ToEmails = []string(toEmails)
	comm.Subject = subject.String
	comm.BodyHTML = bodyHTML.String
	comm.BodyPreview = bodyPreview.String
	comm.ProviderMessageID = providerMessageID.String
	comm.InternetMessageID = internetMessageID.String
	comm.ProviderThreadID = threadID.String
	comm.Category = category.String
	if workItemID.Valid {
		comm.WorkItemID = &workItemID.String
	}
	if receivedAt.Valid {
		comm.ReceivedAt = &receivedAt.Time
	}
	if sentAt.Valid {
		comm.SentAt = &sentAt.Time
	}

	return &comm, nil
}

func (d Datasource) GetCommunicationByID(ctx context.Context, id string) (*model.Communication, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+communicationColumns+`
		FROM communications
		WHERE communication_id = $1
	`, id)

	comm, err := scanCommunication(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, "Communication not found", err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve communication", err)
	}
	return comm, nil
}

func (d Datasource) GetCommunicationByProviderMessageID(ctx context.Context, providerMessageID string) (*model.Communication, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+communicationColumns+`
		FROM communications
		WHERE provider_message_id = $1
	`, providerMessageID)

	comm, err := scanCommunication(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve communication by provider message id", err)
	}
	return comm, nil
}

func (d Datasource) GetCommunicationByInternetMessageID(ctx context.Context, internetMessageID string) (*model.Communication, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+communicationColumns+`
		FROM communications
		WHERE internet_message_id = $1
		ORDER BY created_at ASC
		LIMIT 1
	`, internetMessageID)

	comm, err := scanCommunication(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve communication by internet message id", err)
	}
	return comm, nil
}

// GetCommunicationByFingerprint catches provider delivery duplicates that lack
// stable message ids: same sender, same subject, received within the window.
func (d Datasource) GetCommunicationByFingerprint(ctx context.Context, fromEmail, subject string, receivedAt time.Time, window time.Duration) (*model.Communication, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+communicationColumns+`
		FROM communications
		WHERE LOWER(from_email) = LOWER($1) AND subject = $2
			AND received_at BETWEEN $3 AND $4
		ORDER BY created_at ASC
		LIMIT 1
	`, fromEmail, subject, receivedAt.Add(-window), receivedAt.Add(window))

	comm, err := scanCommunication(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve communication by fingerprint", err)
	}
	return comm, nil
}

// GetLinkedWorkItemByThreadID returns the work item any sibling message in the
// thread is already linked to, or "" when the thread is unlinked.
func (d Datasource) GetLinkedWorkItemByThreadID(ctx context.Context, threadID string) (string, error) {
	var workItemID string
	err := d.Conn.QueryRowContext(ctx, `
		SELECT work_item_id
		FROM communications
		WHERE provider_thread_id = $1 AND work_item_id IS NOT NULL
		ORDER BY created_at DESC
		LIMIT 1
	`, threadID).Scan(&workItemID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", apierror.NewAPIError(apierror.ErrInternalServer, "Failed to look up thread link", err)
	}
	return workItemID, nil
}

func (d Datasource) LinkCommunication(ctx context.Context, id, workItemID, triageStatus string) error {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE communications
		SET work_item_id = $2, triage_status = $3
		WHERE communication_id = $1
	`, id, workItemID, triageStatus)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to link communication", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read update result", err)
	}
	if affected == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, "Communication not found", nil)
	}
	return nil
}

func (d Datasource) UnlinkCommunication(ctx context.Context, id string) error {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE communications
		SET work_item_id = NULL, triage_status = $2
		WHERE communication_id = $1
	`, id, model.TriageUntriaged)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to unlink communication", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read update result", err)
	}
	if affected == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, "Communication not found", nil)
	}
	return nil
}

func (d Datasource) UpdateTriageStatus(ctx context.Context, id, triageStatus string) error {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE communications
		SET triage_status = $2
		WHERE communication_id = $1
	`, id, triageStatus)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update triage status", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read update result", err)
	}
	if affected == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, "Communication not found", nil)
	}
	return nil
}

// LinkUnlinkedByEmailWindow bulk-attaches unlinked inbound mail from the
// customer inside the window. Only rows without a prior link are touched.
func (d Datasource) LinkUnlinkedByEmailWindow(ctx context.Context, workItemID, fromEmail string, windowStart, windowEnd time.Time) (int64, error) {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE communications
		SET work_item_id = $1, triage_status = $2
		WHERE work_item_id IS NULL AND direction = $3
			AND LOWER(from_email) = LOWER($4)
			AND received_at BETWEEN $5 AND $6
	`, workItemID, model.TriageLinked, model.DirectionInbound, fromEmail, windowStart, windowEnd)
	if err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to bulk-link communications", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read update result", err)
	}
	return affected, nil
}

func (d Datasource) ListUntriaged(ctx context.Context, limit int) ([]*model.Communication, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT `+communicationColumns+`
		FROM communications
		WHERE triage_status = $1 AND direction = $2
		ORDER BY received_at DESC
		LIMIT $3
	`, model.TriageUntriaged, model.DirectionInbound, limit)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to list untriaged communications", err)
	}
	defer rows.Close()

	comms := []*model.Communication{}
	for rows.Next() {
		comm, err := scanCommunication(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan communication data", err)
		}
		comms = append(comms, comm)
	}
	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over communications", err)
	}
	return comms, nil
}

// FindDuplicateCommunications returns groups of communication ids sharing an
// internet message id, ordered earliest-created first within each group. The
// first id of each group is the one to keep.
func (d Datasource) FindDuplicateCommunications(ctx context.Context, limit int) ([][]string, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT ARRAY_AGG(communication_id ORDER BY created_at ASC)
		FROM communications
		WHERE internet_message_id != ''
		GROUP BY internet_message_id
		HAVING COUNT(*) > 1
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to find duplicate communications", err)
	}
	defer rows.Close()

	groups := [][]string{}
	for rows.Next() {
		var group pq.StringArray
		if err := rows.Scan(&group); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan duplicate group", err)
		}
		groups = append(groups, []string(group))
	}
	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over duplicate groups", err)
	}
	return groups, nil
}

func (d Datasource) DeleteCommunications(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result, err := d.Conn.ExecContext(ctx, `
		DELETE FROM communications
		WHERE communication_id = ANY($1)
	`, pq.Array(ids))
	if err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to delete communications", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read delete result", err)
	}
	return affected, nil
}
