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
	"encoding/json"
	"time"

	"github.com/tgfc/fanops/model"
)

// IDataSource defines the interface for data source operations, grouping related functionalities.
type IDataSource interface {
	workItem     // Interface for work-item operations
	statusEvent  // Interface for the status event audit log
	communication // Interface for imported email operations
	webhookEvent // Interface for the webhook idempotency ledger
	domainFilter // Interface for sender-domain filters
}

// workItem defines methods for handling work items.
type workItem interface {
	CreateWorkItem(ctx context.Context, item *model.WorkItem) (*model.WorkItem, error)                                 // Creates a new work item
	GetWorkItemByID(ctx context.Context, id string) (*model.WorkItem, error)                                           // Retrieves a work item by ID
	GetOpenWorkItemByOrderID(ctx context.Context, orderID string) (*model.WorkItem, error)                             // Finds an open work item holding the order in either bucket
	GetOpenWorkItemByOrderNumber(ctx context.Context, orderNumber string) (*model.WorkItem, error)                     // Exact order-number lookup over open items
	SearchOpenWorkItemsByOrderNumber(ctx context.Context, fragment string) ([]*model.WorkItem, error)                  // Fuzzy-contains order-number lookup over open items
	SearchOpenWorkItemsByTitle(ctx context.Context, fragment string) ([]*model.WorkItem, error)                        // Fuzzy-contains title lookup over open items
	GetRecentOpenWorkItemByEmail(ctx context.Context, email string, updatedSince time.Time) (*model.WorkItem, error)   // Most recently updated open item for a customer email
	UpdateWorkItemStatus(ctx context.Context, id, status string, closedAt, nextFollowUpAt *time.Time) error             // Persists a status transition's row mutations
	UpdateWorkItemFollowUp(ctx context.Context, id string, nextFollowUpAt, lastContactAt *time.Time) error              // Updates follow-up bookkeeping without a status change
	SetWorkItemWaiting(ctx context.Context, id string, waiting bool, nextFollowUpAt *time.Time) error                   // Toggles the waiting pause
	AttachOrderToWorkItem(ctx context.Context, id, orderID, orderNumber string, designFee bool, quantity int) error     // Fills the production or design-fee order bucket
	AddAlternateEmail(ctx context.Context, id, email string) error                                                      // Records an additional customer address
	ListFollowUpsDue(ctx context.Context, due time.Time, limit int) ([]*model.WorkItem, error)                          // Open items whose follow-up is due
}

// statusEvent defines methods for the append-only transition audit log.
type statusEvent interface {
	RecordStatusEvent(ctx context.Context, event *model.StatusEvent) error
	GetStatusEvents(ctx context.Context, workItemID string) ([]*model.StatusEvent, error)
}

// communication defines methods for handling imported emails.
type communication interface {
	InsertCommunication(ctx context.Context, comm *model.Communication) (*model.Communication, error)                                   // Creates a communication record
	GetCommunicationByID(ctx context.Context, id string) (*model.Communication, error)                                                  // Retrieves a communication by ID
	GetCommunicationByProviderMessageID(ctx context.Context, providerMessageID string) (*model.Communication, error)                    // Dedup strategy 1 lookup
	GetCommunicationByInternetMessageID(ctx context.Context, internetMessageID string) (*model.Communication, error)                    // Dedup strategy 2 lookup
	GetCommunicationByFingerprint(ctx context.Context, fromEmail, subject string, receivedAt time.Time, window time.Duration) (*model.Communication, error) // Dedup strategy 3 lookup
	GetLinkedWorkItemByThreadID(ctx context.Context, threadID string) (string, error)                                                   // Linker strategy 1: thread adoption
	LinkCommunication(ctx context.Context, id, workItemID, triageStatus string) error                                                   // Attaches a communication to a work item
	UnlinkCommunication(ctx context.Context, id string) error                                                                           // Detaches for manual re-triage
	UpdateTriageStatus(ctx context.Context, id, triageStatus string) error                                                              // Archive / untriage actions
	LinkUnlinkedByEmailWindow(ctx context.Context, workItemID, fromEmail string, windowStart, windowEnd time.Time) (int64, error)        // Bulk auto-link sweep around an order
	ListUntriaged(ctx context.Context, limit int) ([]*model.Communication, error)                                                       // Manual triage queue
	FindDuplicateCommunications(ctx context.Context, limit int) ([][]string, error)                                                     // Groups of duplicate ids, earliest first
	DeleteCommunications(ctx context.Context, ids []string) (int64, error)                                                              // Explicit dedup cleanup only
}

// webhookEvent defines methods for the webhook idempotency ledger.
type webhookEvent interface {
	UpsertWebhookEvent(ctx context.Context, provider, externalEventID, topic string, payload json.RawMessage) (*model.WebhookEvent, bool, error) // Atomic insert-or-reuse; bool reports a fresh insert
	ClaimWebhookEvent(ctx context.Context, id string) (bool, error)                                                                             // Guarded pending/failed -> processing flip; bool reports the claim won
	FinishWebhookEvent(ctx context.Context, id, status, processingError string) error                                                           // processing -> completed/failed/skipped
	GetWebhookEvent(ctx context.Context, provider, externalEventID string) (*model.WebhookEvent, error)                                         // Ledger lookup
	GetWebhookEventByID(ctx context.Context, id string) (*model.WebhookEvent, error)                                                            // Ledger lookup by internal id
	ListWebhookEventsByStatus(ctx context.Context, status string, limit int) ([]*model.WebhookEvent, error)                                     // The failed-status manual-intervention queue
}

// domainFilter defines methods for the database-stored sender-domain filter table.
type domainFilter interface {
	CreateDomainFilter(ctx context.Context, filter *model.DomainFilter) (*model.DomainFilter, error)
	GetDomainFilterByDomain(ctx context.Context, domain string) (*model.DomainFilter, error)
	GetAllDomainFilters(ctx context.Context) ([]*model.DomainFilter, error)
	DeleteDomainFilter(ctx context.Context, id string) error
}
