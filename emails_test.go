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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgfc/fanops/internal/apierror"
	"github.com/tgfc/fanops/model"
)

// Importing the same payload again is a no-op returning the existing
// communication id and the same dedup strategy.
func TestImportEmailDuplicateIsNoOp(t *testing.T) {
	mockLinkingConfig()

	linkedID := "wki_linked"
	inserts := 0
	mock := &MockDataSource{
		GetByProviderMessageIDFn: func(_ context.Context, id string) (*model.Communication, error) {
			return &model.Communication{CommunicationID: "comm_existing", ProviderMessageID: id, WorkItemID: &linkedID}, nil
		},
		InsertCommunicationFn: func(_ context.Context, comm *model.Communication) (*model.Communication, error) {
			inserts++
			return comm, nil
		},
	}
	f := &Fanops{datasource: mock}

	msg := inboundMessage("hello", "", "amy@threadbarepress.com", "")
	for i := 0; i < 3; i++ {
		result, err := f.ImportEmail(context.Background(), msg)
		require.NoError(t, err)
		assert.Equal(t, EmailImportDuplicate, result.Outcome)
		assert.Equal(t, "comm_existing", result.CommunicationID)
		assert.Equal(t, DedupByProviderMessageID, result.DedupStrategy)
		assert.Equal(t, "wki_linked", result.WorkItemID)
	}
	assert.Zero(t, inserts)
}

// Two imports racing past the dedup check collide on the provider_message_id
// unique constraint; the loser resolves the winner's row and reports a
// duplicate instead of failing.
func TestImportEmailInsertConflictResolvesToDuplicate(t *testing.T) {
	mockLinkingConfig()

	linkedID := "wki_linked"
	lookups := 0
	mock := &MockDataSource{
		GetByProviderMessageIDFn: func(_ context.Context, id string) (*model.Communication, error) {
			lookups++
			if lookups == 1 {
				// The dedup pass runs before the competing insert lands.
				return nil, nil
			}
			return &model.Communication{CommunicationID: "comm_winner", ProviderMessageID: id, WorkItemID: &linkedID}, nil
		},
		InsertCommunicationFn: func(_ context.Context, _ *model.Communication) (*model.Communication, error) {
			return nil, apierror.NewAPIError(apierror.ErrConflict, "Communication already recorded", nil)
		},
	}
	f := &Fanops{datasource: mock}

	result, err := f.ImportEmail(context.Background(), inboundMessage("hello", "", "amy@threadbarepress.com", ""))
	require.NoError(t, err)
	assert.Equal(t, EmailImportDuplicate, result.Outcome)
	assert.Equal(t, "comm_winner", result.CommunicationID)
	assert.Equal(t, DedupByProviderMessageID, result.DedupStrategy)
	assert.Equal(t, "wki_linked", result.WorkItemID)
}

// A filtered sender domain archives the email with the filter's category
// before any triage.
func TestImportEmailDomainFilterArchives(t *testing.T) {
	mockLinkingConfig()

	var inserted *model.Communication
	mock := &MockDataSource{
		GetDomainFilterByDomainFn: func(_ context.Context, domain string) (*model.DomainFilter, error) {
			if domain == "mailer.spam.example" {
				return &model.DomainFilter{Domain: domain, Category: model.CategoryNewsletter}, nil
			}
			return nil, nil
		},
		InsertCommunicationFn: func(_ context.Context, comm *model.Communication) (*model.Communication, error) {
			comm.CommunicationID = "comm_1"
			inserted = comm
			return comm, nil
		},
	}
	f := &Fanops{datasource: mock}

	result, err := f.ImportEmail(context.Background(), inboundMessage("Weekly deals", "", "news@mailer.spam.example", ""))
	require.NoError(t, err)
	assert.Equal(t, EmailImportInserted, result.Outcome)
	assert.Empty(t, result.WorkItemID)
	require.NotNil(t, inserted)
	assert.Equal(t, model.TriageArchived, inserted.TriageStatus)
	assert.Equal(t, model.CategoryNewsletter, inserted.Category)
}

// The Amy Baker inquiry: a form-notification email with an asterisk-delimited
// body opens one assisted project at new_inquiry and links the email to it.
func TestImportEmailFormLeadCreatesInquiry(t *testing.T) {
	mockLinkingConfig()

	var createdItem *model.WorkItem
	var linkedWorkItemID string
	mock := &MockDataSource{
		InsertCommunicationFn: func(_ context.Context, comm *model.Communication) (*model.Communication, error) {
			comm.CommunicationID = "comm_lead"
			return comm, nil
		},
		CreateWorkItemFn: func(_ context.Context, item *model.WorkItem) (*model.WorkItem, error) {
			item.WorkItemID = "wki_lead"
			createdItem = item
			return item, nil
		},
		LinkCommunicationFn: func(_ context.Context, id, workItemID, triageStatus string) error {
			assert.Equal(t, "comm_lead", id)
			assert.Equal(t, model.TriageLinked, triageStatus)
			linkedWorkItemID = workItemID
			return nil
		},
	}
	f := &Fanops{datasource: mock}

	body := "Name: Amy Baker * Email: amy@threadbarepress.com * Organization: Oregon Country Fair"
	msg := inboundMessage("TGFC x Amy Baker Custom Fan Inquiry", body, "notifications@jotform.com", "")
	result, err := f.ImportEmail(context.Background(), msg)
	require.NoError(t, err)

	assert.Equal(t, EmailImportInserted, result.Outcome)
	assert.Equal(t, "wki_lead", result.WorkItemID)
	assert.Equal(t, "wki_lead", linkedWorkItemID)

	require.NotNil(t, createdItem)
	assert.Equal(t, model.TypeAssistedProject, createdItem.Type)
	assert.Equal(t, model.SourceForm, createdItem.Source)
	assert.Equal(t, model.StatusNewInquiry, createdItem.Status)
	assert.Equal(t, "amy@threadbarepress.com", createdItem.CustomerEmail)
	assert.Equal(t, "Amy Baker", createdItem.CustomerName)
	assert.Equal(t, "Amy Baker (Oregon Country Fair)", createdItem.Title)
}

// A form email that fails to parse must not create a work item; it stays
// untriaged for a human.
func TestImportEmailInvalidFormLeadStaysUntriaged(t *testing.T) {
	mockLinkingConfig()

	createCalled := false
	var inserted *model.Communication
	mock := &MockDataSource{
		CreateWorkItemFn: func(_ context.Context, item *model.WorkItem) (*model.WorkItem, error) {
			createCalled = true
			return item, nil
		},
		InsertCommunicationFn: func(_ context.Context, comm *model.Communication) (*model.Communication, error) {
			comm.CommunicationID = "comm_bad"
			inserted = comm
			return comm, nil
		},
	}
	f := &Fanops{datasource: mock}

	msg := inboundMessage("New submission", "Manage your forms at noreply@jotform.com", "notifications@jotform.com", "")
	result, err := f.ImportEmail(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, EmailImportInserted, result.Outcome)
	assert.Empty(t, result.WorkItemID)
	assert.False(t, createCalled)
	require.NotNil(t, inserted)
	assert.Equal(t, model.TriageUntriaged, inserted.TriageStatus)
}

// A customer email that links records the touch on the work item and resets
// the follow-up timer from the item's current status cadence.
func TestImportEmailLinksAndRecordsContact(t *testing.T) {
	mockLinkingConfig()

	var triage string
	var nextFollowUp, lastContact *time.Time
	mock := &MockDataSource{
		InsertCommunicationFn: func(_ context.Context, comm *model.Communication) (*model.Communication, error) {
			comm.CommunicationID = "comm_cust"
			return comm, nil
		},
		GetLinkedWorkItemByThreadFn: func(_ context.Context, _ string) (string, error) {
			return "wki_thread", nil
		},
		GetWorkItemByIDFn: func(_ context.Context, id string) (*model.WorkItem, error) {
			return &model.WorkItem{WorkItemID: id, Type: model.TypeAssistedProject, Status: model.StatusProofSent}, nil
		},
		LinkCommunicationFn: func(_ context.Context, _, workItemID, triageStatus string) error {
			assert.Equal(t, "wki_thread", workItemID)
			triage = triageStatus
			return nil
		},
		UpdateWorkItemFollowUpFn: func(_ context.Context, _ string, nextFollowUpAt, lastContactAt *time.Time) error {
			nextFollowUp = nextFollowUpAt
			lastContact = lastContactAt
			return nil
		},
	}
	f := &Fanops{datasource: mock}

	msg := inboundMessage("Re: proofs", "looks great", "amy@threadbarepress.com", "conv-9")
	result, err := f.ImportEmail(context.Background(), msg)
	require.NoError(t, err)

	assert.Equal(t, EmailImportInserted, result.Outcome)
	assert.Equal(t, "wki_thread", result.WorkItemID)
	assert.Equal(t, LinkByThread, result.LinkStrategy)
	assert.Equal(t, model.TriageLinked, triage)
	require.NotNil(t, lastContact)
	assert.WithinDuration(t, time.Now(), *lastContact, time.Second)

	require.NotNil(t, nextFollowUp)
	expected := NextFollowUp(model.StatusProofSent, false, *lastContact)
	require.NotNil(t, expected)
	assert.WithinDuration(t, *expected, *nextFollowUp, time.Second)
}

func TestLinkEmailClosedItemFails(t *testing.T) {
	mockLinkingConfig()

	closedAt := time.Now()
	mock := &MockDataSource{
		GetWorkItemByIDFn: func(_ context.Context, _ string) (*model.WorkItem, error) {
			return &model.WorkItem{WorkItemID: "wki_closed", Status: model.StatusClosedWon, ClosedAt: &closedAt}, nil
		},
	}
	f := &Fanops{datasource: mock}

	err := f.LinkEmail(context.Background(), "comm_1", "wki_closed")
	require.Error(t, err)
}
