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
	"fmt"
	"strings"
	"time"

	"github.com/tgfc/fanops/config"
	"github.com/tgfc/fanops/internal/apierror"
	"github.com/tgfc/fanops/internal/notification"
	"github.com/tgfc/fanops/model"
)

// Outcomes of an email import.
const (
	EmailImportInserted  = "inserted"
	EmailImportDuplicate = "duplicate"
)

// EmailImportResult reports what an email import did: whether the row was new
// or a duplicate (and by which strategy), and the work item it linked to, if
// any.
type EmailImportResult struct {
	Outcome         string `json:"outcome"`
	CommunicationID string `json:"communication_id"`
	DedupStrategy   string `json:"dedup_strategy,omitempty"`
	LinkStrategy    string `json:"link_strategy,omitempty"`
	WorkItemID      string `json:"work_item_id,omitempty"`
}

// ImportEmail runs an inbound message through the pipeline: dedup, domain
// filtering, form-lead parsing, then the linking cascade. A duplicate import
// is a no-op returning the existing communication id; an email no strategy
// can place stays untriaged for manual review.
func (f *Fanops) ImportEmail(ctx context.Context, msg *model.InboundMessage) (*EmailImportResult, error) {
	cfg, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	existing, strategy, err := f.findDuplicateCommunication(ctx, msg)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		result := &EmailImportResult{
			Outcome:         EmailImportDuplicate,
			CommunicationID: existing.CommunicationID,
			DedupStrategy:   strategy,
		}
		if existing.WorkItemID != nil {
			result.WorkItemID = *existing.WorkItemID
		}
		return result, nil
	}

	sender := strings.ToLower(msg.From.EmailAddress.Address)
	comm := communicationFromMessage(msg, sender)

	// Domain filters archive matching senders before any triage.
	if filter, err := f.matchDomainFilter(ctx, sender); err != nil {
		return nil, err
	} else if filter != nil {
		comm.TriageStatus = model.TriageArchived
		comm.Category = filter.Category
		inserted, dup, err := f.insertCommunication(ctx, msg, comm)
		if err != nil {
			return nil, err
		}
		if dup != nil {
			return dup, nil
		}
		return &EmailImportResult{Outcome: EmailImportInserted, CommunicationID: inserted.CommunicationID}, nil
	}

	if IsFormSender(sender, cfg.Form.Senders) {
		return f.importFormLead(ctx, msg, comm, cfg)
	}

	inserted, dup, err := f.insertCommunication(ctx, msg, comm)
	if err != nil {
		return nil, err
	}
	if dup != nil {
		return dup, nil
	}

	link, err := f.resolveWorkItemForEmail(ctx, msg)
	if err != nil {
		// The row is in; a linking failure leaves it untriaged rather than
		// failing the import.
		notification.NotifyError(err)
		return &EmailImportResult{Outcome: EmailImportInserted, CommunicationID: inserted.CommunicationID}, nil
	}
	if link == nil {
		return &EmailImportResult{Outcome: EmailImportInserted, CommunicationID: inserted.CommunicationID}, nil
	}

	if err := f.datasource.LinkCommunication(ctx, inserted.CommunicationID, link.WorkItemID, model.TriageLinked); err != nil {
		return nil, err
	}
	// An inbound customer reply restarts the follow-up clock from now, using
	// the cadence of the item's current status.
	now := time.Now()
	if item, err := f.datasource.GetWorkItemByID(ctx, link.WorkItemID); err != nil {
		notification.NotifyError(err)
	} else if err := f.datasource.UpdateWorkItemFollowUp(ctx, link.WorkItemID, NextFollowUp(item.Status, item.IsWaiting, now), &now); err != nil {
		notification.NotifyError(err)
	}
	return &EmailImportResult{
		Outcome:         EmailImportInserted,
		CommunicationID: inserted.CommunicationID,
		LinkStrategy:    link.Strategy,
		WorkItemID:      link.WorkItemID,
	}, nil
}

// insertCommunication writes the row, treating a unique-violation race with a
// concurrent import of the same message as a duplicate rather than a failure.
func (f *Fanops) insertCommunication(ctx context.Context, msg *model.InboundMessage, comm *model.Communication) (*model.Communication, *EmailImportResult, error) {
	inserted, err := f.datasource.InsertCommunication(ctx, comm)
	if err == nil {
		return inserted, nil, nil
	}
	if apierror.IsConflict(err) {
		existing, strategy, lookupErr := f.findDuplicateCommunication(ctx, msg)
		if lookupErr == nil && existing != nil {
			result := &EmailImportResult{
				Outcome:         EmailImportDuplicate,
				CommunicationID: existing.CommunicationID,
				DedupStrategy:   strategy,
			}
			if existing.WorkItemID != nil {
				result.WorkItemID = *existing.WorkItemID
			}
			return nil, result, nil
		}
	}
	return nil, nil, err
}

// importFormLead parses a form-notification email and opens a new inquiry
// when the parse is valid. An invalid parse leaves the email untriaged.
func (f *Fanops) importFormLead(ctx context.Context, msg *model.InboundMessage, comm *model.Communication, cfg *config.Configuration) (*EmailImportResult, error) {
	sub := ParseFormSubmission(msg.Body.Content, cfg.Form.ProviderDomain)
	if !sub.IsValid() {
		inserted, dup, err := f.insertCommunication(ctx, msg, comm)
		if err != nil {
			return nil, err
		}
		if dup != nil {
			return dup, nil
		}
		return &EmailImportResult{Outcome: EmailImportInserted, CommunicationID: inserted.CommunicationID}, nil
	}

	comm.Category = model.CategoryFormLead
	inserted, dup, err := f.insertCommunication(ctx, msg, comm)
	if err != nil {
		return nil, err
	}
	if dup != nil {
		return dup, nil
	}

	item := &model.WorkItem{
		Type:          model.TypeAssistedProject,
		Source:        model.SourceForm,
		Title:         formLeadTitle(sub),
		Status:        model.StatusNewInquiry,
		CustomerEmail: sub.CustomerEmail,
		CustomerName:  sub.CustomerName,
		ReasonIncluded: map[string]interface{}{
			"detected_via": "form_submission",
			"organization": sub.Organization,
		},
	}
	if sub.EventDate != "" {
		if eventDate, parseErr := time.Parse("2006-01-02", sub.EventDate); parseErr == nil {
			item.EventDate = &eventDate
		}
	}
	item.NextFollowUpAt = NextFollowUp(model.StatusNewInquiry, false, time.Now())

	created, err := f.datasource.CreateWorkItem(ctx, item)
	if err != nil {
		return nil, err
	}
	if err := f.datasource.LinkCommunication(ctx, inserted.CommunicationID, created.WorkItemID, model.TriageLinked); err != nil {
		notification.NotifyError(err)
	}
	return &EmailImportResult{
		Outcome:         EmailImportInserted,
		CommunicationID: inserted.CommunicationID,
		WorkItemID:      created.WorkItemID,
	}, nil
}

func communicationFromMessage(msg *model.InboundMessage, sender string) *model.Communication {
	toEmails := make([]string, 0, len(msg.ToRecipients))
	for _, recipient := range msg.ToRecipients {
		toEmails = append(toEmails, strings.ToLower(recipient.EmailAddress.Address))
	}
	receivedAt := msg.ReceivedDateTime
	sentAt := msg.SentDateTime
	return &model.Communication{
		Direction:         model.DirectionInbound,
		FromEmail:         sender,
		ToEmails:          toEmails,
		Subject:           msg.Subject,
		BodyHTML:          msg.Body.Content,
		BodyPreview:       msg.BodyPreview,
		ReceivedAt:        &receivedAt,
		SentAt:            &sentAt,
		ProviderMessageID: msg.ID,
		InternetMessageID: msg.InternetMessageID,
		ProviderThreadID:  msg.ConversationID,
		TriageStatus:      model.TriageUntriaged,
		Category:          model.CategoryCustomer,
	}
}

func formLeadTitle(sub model.FormSubmission) string {
	switch {
	case sub.CustomerName != "" && sub.Organization != "":
		return fmt.Sprintf("%s (%s)", sub.CustomerName, sub.Organization)
	case sub.CustomerName != "":
		return sub.CustomerName
	case sub.Organization != "":
		return sub.Organization
	}
	return sub.CustomerEmail
}

// matchDomainFilter looks up the sender's domain in the stored filter table.
func (f *Fanops) matchDomainFilter(ctx context.Context, sender string) (*model.DomainFilter, error) {
	_, domain, found := strings.Cut(sender, "@")
	if !found || domain == "" {
		return nil, nil
	}
	return f.datasource.GetDomainFilterByDomain(ctx, domain)
}

// LinkEmail manually attaches a communication to a work item during triage.
func (f *Fanops) LinkEmail(ctx context.Context, communicationID, workItemID string) error {
	item, err := f.datasource.GetWorkItemByID(ctx, workItemID)
	if err != nil {
		return err
	}
	if !item.IsOpen() {
		return apierror.NewAPIError(apierror.ErrBadRequest,
			fmt.Sprintf("work item %s is closed and cannot accept communications", workItemID), nil)
	}
	return f.datasource.LinkCommunication(ctx, communicationID, workItemID, model.TriageLinked)
}

// UnlinkEmail detaches a communication for re-triage.
func (f *Fanops) UnlinkEmail(ctx context.Context, communicationID string) error {
	return f.datasource.UnlinkCommunication(ctx, communicationID)
}

// ArchiveEmail removes a communication from the triage queue without linking.
func (f *Fanops) ArchiveEmail(ctx context.Context, communicationID string) error {
	return f.datasource.UpdateTriageStatus(ctx, communicationID, model.TriageArchived)
}

// ListUntriagedEmails returns the manual triage queue.
func (f *Fanops) ListUntriagedEmails(ctx context.Context, limit int) ([]*model.Communication, error) {
	return f.datasource.ListUntriaged(ctx, limit)
}
