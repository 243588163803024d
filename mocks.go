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
	"time"

	"github.com/tgfc/fanops/model"
)

// MockDataSource is a function-field datasource stub. Tests set only the
// fields they care about; everything else returns zero values.
type MockDataSource struct {
	CreateWorkItemFn               func(ctx context.Context, item *model.WorkItem) (*model.WorkItem, error)
	GetWorkItemByIDFn              func(ctx context.Context, id string) (*model.WorkItem, error)
	GetOpenWorkItemByOrderIDFn     func(ctx context.Context, orderID string) (*model.WorkItem, error)
	GetOpenWorkItemByOrderNumberFn func(ctx context.Context, orderNumber string) (*model.WorkItem, error)
	SearchByOrderNumberFn          func(ctx context.Context, fragment string) ([]*model.WorkItem, error)
	SearchByTitleFn                func(ctx context.Context, fragment string) ([]*model.WorkItem, error)
	GetRecentByEmailFn             func(ctx context.Context, email string, updatedSince time.Time) (*model.WorkItem, error)
	UpdateWorkItemStatusFn         func(ctx context.Context, id, status string, closedAt, nextFollowUpAt *time.Time) error
	UpdateWorkItemFollowUpFn       func(ctx context.Context, id string, nextFollowUpAt, lastContactAt *time.Time) error
	SetWorkItemWaitingFn           func(ctx context.Context, id string, waiting bool, nextFollowUpAt *time.Time) error
	AttachOrderToWorkItemFn        func(ctx context.Context, id, orderID, orderNumber string, designFee bool, quantity int) error
	AddAlternateEmailFn            func(ctx context.Context, id, email string) error
	ListFollowUpsDueFn             func(ctx context.Context, due time.Time, limit int) ([]*model.WorkItem, error)

	RecordStatusEventFn func(ctx context.Context, event *model.StatusEvent) error
	GetStatusEventsFn   func(ctx context.Context, workItemID string) ([]*model.StatusEvent, error)

	InsertCommunicationFn        func(ctx context.Context, comm *model.Communication) (*model.Communication, error)
	GetCommunicationByIDFn       func(ctx context.Context, id string) (*model.Communication, error)
	GetByProviderMessageIDFn     func(ctx context.Context, providerMessageID string) (*model.Communication, error)
	GetByInternetMessageIDFn     func(ctx context.Context, internetMessageID string) (*model.Communication, error)
	GetByFingerprintFn           func(ctx context.Context, fromEmail, subject string, receivedAt time.Time, window time.Duration) (*model.Communication, error)
	GetLinkedWorkItemByThreadFn  func(ctx context.Context, threadID string) (string, error)
	LinkCommunicationFn          func(ctx context.Context, id, workItemID, triageStatus string) error
	UnlinkCommunicationFn        func(ctx context.Context, id string) error
	UpdateTriageStatusFn         func(ctx context.Context, id, triageStatus string) error
	LinkUnlinkedByEmailWindowFn  func(ctx context.Context, workItemID, fromEmail string, windowStart, windowEnd time.Time) (int64, error)
	ListUntriagedFn              func(ctx context.Context, limit int) ([]*model.Communication, error)
	FindDuplicateCommunicationsFn func(ctx context.Context, limit int) ([][]string, error)
	DeleteCommunicationsFn       func(ctx context.Context, ids []string) (int64, error)

	UpsertWebhookEventFn       func(ctx context.Context, provider, externalEventID, topic string, payload json.RawMessage) (*model.WebhookEvent, bool, error)
	ClaimWebhookEventFn        func(ctx context.Context, id string) (bool, error)
	FinishWebhookEventFn       func(ctx context.Context, id, status, processingError string) error
	GetWebhookEventFn          func(ctx context.Context, provider, externalEventID string) (*model.WebhookEvent, error)
	GetWebhookEventByIDFn      func(ctx context.Context, id string) (*model.WebhookEvent, error)
	ListWebhookEventsByStatusFn func(ctx context.Context, status string, limit int) ([]*model.WebhookEvent, error)

	CreateDomainFilterFn      func(ctx context.Context, filter *model.DomainFilter) (*model.DomainFilter, error)
	GetDomainFilterByDomainFn func(ctx context.Context, domain string) (*model.DomainFilter, error)
	GetAllDomainFiltersFn     func(ctx context.Context) ([]*model.DomainFilter, error)
	DeleteDomainFilterFn      func(ctx context.Context, id string) error
}

func (m *MockDataSource) CreateWorkItem(ctx context.Context, item *model.WorkItem) (*model.WorkItem, error) {
	if m.CreateWorkItemFn != nil {
		return m.CreateWorkItemFn(ctx, item)
	}
	item.WorkItemID = model.GenerateUUIDWithSuffix("wki")
	return item, nil
}

func (m *MockDataSource) GetWorkItemByID(ctx context.Context, id string) (*model.WorkItem, error) {
	if m.GetWorkItemByIDFn != nil {
		return m.GetWorkItemByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *MockDataSource) GetOpenWorkItemByOrderID(ctx context.Context, orderID string) (*model.WorkItem, error) {
	if m.GetOpenWorkItemByOrderIDFn != nil {
		return m.GetOpenWorkItemByOrderIDFn(ctx, orderID)
	}
	return nil, nil
}

func (m *MockDataSource) GetOpenWorkItemByOrderNumber(ctx context.Context, orderNumber string) (*model.WorkItem, error) {
	if m.GetOpenWorkItemByOrderNumberFn != nil {
		return m.GetOpenWorkItemByOrderNumberFn(ctx, orderNumber)
	}
	return nil, nil
}

func (m *MockDataSource) SearchOpenWorkItemsByOrderNumber(ctx context.Context, fragment string) ([]*model.WorkItem, error) {
	if m.SearchByOrderNumberFn != nil {
		return m.SearchByOrderNumberFn(ctx, fragment)
	}
	return nil, nil
}

func (m *MockDataSource) SearchOpenWorkItemsByTitle(ctx context.Context, fragment string) ([]*model.WorkItem, error) {
	if m.SearchByTitleFn != nil {
		return m.SearchByTitleFn(ctx, fragment)
	}
	return nil, nil
}

func (m *MockDataSource) GetRecentOpenWorkItemByEmail(ctx context.Context, email string, updatedSince time.Time) (*model.WorkItem, error) {
	if m.GetRecentByEmailFn != nil {
		return m.GetRecentByEmailFn(ctx, email, updatedSince)
	}
	return nil, nil
}

func (m *MockDataSource) UpdateWorkItemStatus(ctx context.Context, id, status string, closedAt, nextFollowUpAt *time.Time) error {
	if m.UpdateWorkItemStatusFn != nil {
		return m.UpdateWorkItemStatusFn(ctx, id, status, closedAt, nextFollowUpAt)
	}
	return nil
}

func (m *MockDataSource) UpdateWorkItemFollowUp(ctx context.Context, id string, nextFollowUpAt, lastContactAt *time.Time) error {
	if m.UpdateWorkItemFollowUpFn != nil {
		return m.UpdateWorkItemFollowUpFn(ctx, id, nextFollowUpAt, lastContactAt)
	}
	return nil
}

func (m *MockDataSource) SetWorkItemWaiting(ctx context.Context, id string, waiting bool, nextFollowUpAt *time.Time) error {
	if m.SetWorkItemWaitingFn != nil {
		return m.SetWorkItemWaitingFn(ctx, id, waiting, nextFollowUpAt)
	}
	return nil
}

func (m *MockDataSource) AttachOrderToWorkItem(ctx context.Context, id, orderID, orderNumber string, designFee bool, quantity int) error {
	if m.AttachOrderToWorkItemFn != nil {
		return m.AttachOrderToWorkItemFn(ctx, id, orderID, orderNumber, designFee, quantity)
	}
	return nil
}

func (m *MockDataSource) AddAlternateEmail(ctx context.Context, id, email string) error {
	if m.AddAlternateEmailFn != nil {
		return m.AddAlternateEmailFn(ctx, id, email)
	}
	return nil
}

func (m *MockDataSource) ListFollowUpsDue(ctx context.Context, due time.Time, limit int) ([]*model.WorkItem, error) {
	if m.ListFollowUpsDueFn != nil {
		return m.ListFollowUpsDueFn(ctx, due, limit)
	}
	return nil, nil
}

func (m *MockDataSource) RecordStatusEvent(ctx context.Context, event *model.StatusEvent) error {
	if m.RecordStatusEventFn != nil {
		return m.RecordStatusEventFn(ctx, event)
	}
	return nil
}

func (m *MockDataSource) GetStatusEvents(ctx context.Context, workItemID string) ([]*model.StatusEvent, error) {
	if m.GetStatusEventsFn != nil {
		return m.GetStatusEventsFn(ctx, workItemID)
	}
	return nil, nil
}

func (m *MockDataSource) InsertCommunication(ctx context.Context, comm *model.Communication) (*model.Communication, error) {
	if m.InsertCommunicationFn != nil {
		return m.InsertCommunicationFn(ctx, comm)
	}
	comm.CommunicationID = model.GenerateUUIDWithSuffix("comm")
	return comm, nil
}

func (m *MockDataSource) GetCommunicationByID(ctx context.Context, id string) (*model.Communication, error) {
	if m.GetCommunicationByIDFn != nil {
		return m.GetCommunicationByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *MockDataSource) GetCommunicationByProviderMessageID(ctx context.Context, providerMessageID string) (*model.Communication, error) {
	if m.GetByProviderMessageIDFn != nil {
		return m.GetByProviderMessageIDFn(ctx, providerMessageID)
	}
	return nil, nil
}

func (m *MockDataSource) GetCommunicationByInternetMessageID(ctx context.Context, internetMessageID string) (*model.Communication, error) {
	if m.GetByInternetMessageIDFn != nil {
		return m.GetByInternetMessageIDFn(ctx, internetMessageID)
	}
	return nil, nil
}

func (m *MockDataSource) GetCommunicationByFingerprint(ctx context.Context, fromEmail, subject string, receivedAt time.Time, window time.Duration) (*model.Communication, error) {
	if m.GetByFingerprintFn != nil {
		return m.GetByFingerprintFn(ctx, fromEmail, subject, receivedAt, window)
	}
	return nil, nil
}

func (m *MockDataSource) GetLinkedWorkItemByThreadID(ctx context.Context, threadID string) (string, error) {
	if m.GetLinkedWorkItemByThreadFn != nil {
		return m.GetLinkedWorkItemByThreadFn(ctx, threadID)
	}
	return "", nil
}

func (m *MockDataSource) LinkCommunication(ctx context.Context, id, workItemID, triageStatus string) error {
	if m.LinkCommunicationFn != nil {
		return m.LinkCommunicationFn(ctx, id, workItemID, triageStatus)
	}
	return nil
}

func (m *MockDataSource) UnlinkCommunication(ctx context.Context, id string) error {
	if m.UnlinkCommunicationFn != nil {
		return m.UnlinkCommunicationFn(ctx, id)
	}
	return nil
}

func (m *MockDataSource) UpdateTriageStatus(ctx context.Context, id, triageStatus string) error {
	if m.UpdateTriageStatusFn != nil {
		return m.UpdateTriageStatusFn(ctx, id, triageStatus)
	}
	return nil
}

func (m *MockDataSource) LinkUnlinkedByEmailWindow(ctx context.Context, workItemID, fromEmail string, windowStart, windowEnd time.Time) (int64, error) {
	if m.LinkUnlinkedByEmailWindowFn != nil {
		return m.LinkUnlinkedByEmailWindowFn(ctx, workItemID, fromEmail, windowStart, windowEnd)
	}
	return 0, nil
}

func (m *MockDataSource) ListUntriaged(ctx context.Context, limit int) ([]*model.Communication, error) {
	if m.ListUntriagedFn != nil {
		return m.ListUntriagedFn(ctx, limit)
	}
	return nil, nil
}

func (m *MockDataSource) FindDuplicateCommunications(ctx context.Context, limit int) ([][]string, error) {
	if m.FindDuplicateCommunicationsFn != nil {
		return m.FindDuplicateCommunicationsFn(ctx, limit)
	}
	return nil, nil
}

func (m *MockDataSource) DeleteCommunications(ctx context.Context, ids []string) (int64, error) {
	if m.DeleteCommunicationsFn != nil {
		return m.DeleteCommunicationsFn(ctx, ids)
	}
	return 0, nil
}

func (m *MockDataSource) UpsertWebhookEvent(ctx context.Context, provider, externalEventID, topic string, payload json.RawMessage) (*model.WebhookEvent, bool, error) {
	if m.UpsertWebhookEventFn != nil {
		return m.UpsertWebhookEventFn(ctx, provider, externalEventID, topic, payload)
	}
	return &model.WebhookEvent{
		WebhookEventID:   model.GenerateUUIDWithSuffix("whk"),
		Provider:         provider,
		ExternalEventID:  externalEventID,
		Topic:            topic,
		ProcessingStatus: model.WebhookPending,
		Payload:          payload,
	}, true, nil
}

func (m *MockDataSource) ClaimWebhookEvent(ctx context.Context, id string) (bool, error) {
	if m.ClaimWebhookEventFn != nil {
		return m.ClaimWebhookEventFn(ctx, id)
	}
	return true, nil
}

func (m *MockDataSource) FinishWebhookEvent(ctx context.Context, id, status, processingError string) error {
	if m.FinishWebhookEventFn != nil {
		return m.FinishWebhookEventFn(ctx, id, status, processingError)
	}
	return nil
}

func (m *MockDataSource) GetWebhookEvent(ctx context.Context, provider, externalEventID string) (*model.WebhookEvent, error) {
	if m.GetWebhookEventFn != nil {
		return m.GetWebhookEventFn(ctx, provider, externalEventID)
	}
	return nil, nil
}

func (m *MockDataSource) GetWebhookEventByID(ctx context.Context, id string) (*model.WebhookEvent, error) {
	if m.GetWebhookEventByIDFn != nil {
		return m.GetWebhookEventByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *MockDataSource) ListWebhookEventsByStatus(ctx context.Context, status string, limit int) ([]*model.WebhookEvent, error) {
	if m.ListWebhookEventsByStatusFn != nil {
		return m.ListWebhookEventsByStatusFn(ctx, status, limit)
	}
	return nil, nil
}

func (m *MockDataSource) CreateDomainFilter(ctx context.Context, filter *model.DomainFilter) (*model.DomainFilter, error) {
	if m.CreateDomainFilterFn != nil {
		return m.CreateDomainFilterFn(ctx, filter)
	}
	filter.FilterID = model.GenerateUUIDWithSuffix("dft")
	return filter, nil
}

func (m *MockDataSource) GetDomainFilterByDomain(ctx context.Context, domain string) (*model.DomainFilter, error) {
	if m.GetDomainFilterByDomainFn != nil {
		return m.GetDomainFilterByDomainFn(ctx, domain)
	}
	return nil, nil
}

func (m *MockDataSource) GetAllDomainFilters(ctx context.Context) ([]*model.DomainFilter, error) {
	if m.GetAllDomainFiltersFn != nil {
		return m.GetAllDomainFiltersFn(ctx)
	}
	return nil, nil
}

func (m *MockDataSource) DeleteDomainFilter(ctx context.Context, id string) error {
	if m.DeleteDomainFilterFn != nil {
		return m.DeleteDomainFilterFn(ctx, id)
	}
	return nil
}
